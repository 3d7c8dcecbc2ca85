package describe

import "k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

// Object is an arbitrary Kubernetes object decoded into its generic map
// form, the shape both the dynamic client and Get's json.Unmarshal
// target produce.
type Object = map[string]interface{}

func nameOf(o Object) string {
	v, _, _ := unstructured.NestedString(o, "metadata", "name")
	return v
}

func labelsOf(o Object) map[string]string {
	v, _, _ := unstructured.NestedStringMap(o, "metadata", "labels")
	return v
}

// containsAll reports whether selector is a subset of labels: every key
// in selector is present in labels with an equal value (spec.md §4.7's
// label-selector containment rule). An empty selector matches
// everything, per Kubernetes selector semantics (spec.md §9).
func containsAll(selector, labels map[string]string) bool {
	for k, v := range selector {
		if lv, ok := labels[k]; !ok || lv != v {
			return false
		}
	}
	return true
}

// FilterByNames is the first of the two general filter kinds of
// spec.md §4.7: given a set of names, retain candidates whose
// metadata.name matches one of them.
func FilterByNames(candidates []Object, names []string) []string {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []string
	for _, c := range candidates {
		if n := nameOf(c); want[n] {
			out = append(out, n)
		}
	}
	return out
}

// FilterBySelectorField is the second general filter kind: given the
// subject's labels, retain candidates whose own selector field
// (extracted by selectorOf) is contained in those labels. Used for
// wirings where the subject is the label-bearer and the candidates
// carry a selector (Pod -> Service/NetworkPolicy).
func FilterBySelectorField(candidates []Object, subjectLabels map[string]string, selectorOf func(Object) map[string]string) []string {
	var out []string
	for _, c := range candidates {
		if containsAll(selectorOf(c), subjectLabels) {
			out = append(out, nameOf(c))
		}
	}
	return out
}

// FilterByLabelsField is FilterBySelectorField's mirror: given the
// subject's own selector, retain candidates whose labels (extracted by
// labelsOf) contain it. Used for wirings where the subject carries the
// selector and the candidates carry labels (Service/NetworkPolicy ->
// Pod).
func FilterByLabelsField(candidates []Object, subjectSelector map[string]string, labelsOf func(Object) map[string]string) []string {
	var out []string
	for _, c := range candidates {
		if containsAll(subjectSelector, labelsOf(c)) {
			out = append(out, nameOf(c))
		}
	}
	return out
}
