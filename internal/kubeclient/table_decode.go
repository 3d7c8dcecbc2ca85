package kubeclient

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/kubetui/kubetui/internal/table"
)

// wireTable mirrors the JSON shape returned under the Table Accept
// header (spec.md §6): {columnDefinitions, rows:[{cells, object}]}.
type wireTable struct {
	ColumnDefinitions []struct {
		Name string `json:"name"`
	} `json:"columnDefinitions"`
	Rows []struct {
		Cells  []interface{} `json:"cells"`
		Object struct {
			Metadata struct {
				Name      string `json:"name"`
				Namespace string `json:"namespace"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"rows"`
}

func decodeTable(raw []byte) (table.KubeTable, error) {
	var wt wireTable
	if err := json.Unmarshal(raw, &wt); err != nil {
		return table.KubeTable{}, errors.Wrap(err, "decode table response")
	}

	header := make([]string, len(wt.ColumnDefinitions))
	for i, c := range wt.ColumnDefinitions {
		header[i] = c.Name
	}

	out := table.KubeTable{Header: header}
	for _, r := range wt.Rows {
		cells := make([]string, len(r.Cells))
		for i, c := range r.Cells {
			cells[i] = stringifyCell(c)
		}
		out.Rows = append(out.Rows, table.Row{
			Namespace: r.Object.Metadata.Namespace,
			Name:      r.Object.Metadata.Name,
			Cells:     cells,
		})
	}
	return out, nil
}

func stringifyCell(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
