// Package table implements KubeTable and the namespace-merge rule of
// spec.md §4.4.
package table

import "fmt"

// Row is one row of a KubeTable. Namespace/Name carry cluster identity
// separately from the display Cells so the UI can key row selection
// without parsing rendered text.
type Row struct {
	Namespace string
	Name      string
	Metadata  map[string]string
	Cells     []string
}

// KubeTable is the server-side Table projection delivered to the UI.
type KubeTable struct {
	Header []string
	Rows   []Row
}

// NamespaceResult is one namespace's list/table result, as fanned out by
// a poller across the target namespace set.
type NamespaceResult struct {
	Namespace string
	Table     KubeTable
}

// Merge implements spec.md §4.4: if there is more than one namespace
// result (or force is set), a synthetic Namespace column is prepended to
// the header and to every row's cells. Column definitions are taken from
// the first result; rows are concatenated in input order, unsorted and
// undeduplicated.
func Merge(results []NamespaceResult, force bool) KubeTable {
	if len(results) == 0 {
		return KubeTable{}
	}

	prependNamespace := force || len(results) > 1

	header := append([]string(nil), results[0].Table.Header...)
	if prependNamespace {
		header = append([]string{"Namespace"}, header...)
	}

	merged := KubeTable{Header: header}
	for _, r := range results {
		for _, row := range r.Table.Rows {
			cells := row.Cells
			if prependNamespace {
				cells = append([]string{r.Namespace}, cells...)
			}
			merged.Rows = append(merged.Rows, Row{
				Namespace: row.Namespace,
				Name:      row.Name,
				Metadata:  row.Metadata,
				Cells:     cells,
			})
		}
	}
	return merged
}

// Validate checks the KubeTable invariant: every row's cell count equals
// the header's. Useful in tests and as a defensive check right after a
// table is parsed off the wire.
func (t KubeTable) Validate() error {
	for i, row := range t.Rows {
		if len(row.Cells) != len(t.Header) {
			return fmt.Errorf("row %d (%s/%s) has %d cells, want %d", i, row.Namespace, row.Name, len(row.Cells), len(t.Header))
		}
	}
	return nil
}
