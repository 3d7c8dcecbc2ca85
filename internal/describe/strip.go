package describe

// strippedAnnotations are dropped from metadata.annotations; the rest
// pass through untouched.
var strippedAnnotations = []string{"kubectl.kubernetes.io/last-applied-configuration"}

// strippedMetadataKeys are dropped from metadata wholesale (spec.md
// §4.6 step 2: server-managed fields that add noise to a YAML detail
// view).
var strippedMetadataKeys = []string{"creationTimestamp", "resourceVersion", "uid", "generation", "managedFields"}

// stripManaged removes the server-managed fields spec.md §4.6 names,
// mutating obj in place.
func stripManaged(obj Object) {
	meta, ok := obj["metadata"].(map[string]interface{})
	if !ok {
		return
	}
	for _, k := range strippedMetadataKeys {
		delete(meta, k)
	}
	if annotations, ok := meta["annotations"].(map[string]interface{}); ok {
		for _, k := range strippedAnnotations {
			delete(annotations, k)
		}
		if len(annotations) == 0 {
			delete(meta, "annotations")
		}
	}
}
