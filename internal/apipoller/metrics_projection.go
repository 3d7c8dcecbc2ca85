package apipoller

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/kubetui/kubetui/internal/table"
)

// podMetricsList mirrors metrics.k8s.io/v1beta1 PodMetricsList, trimmed
// to the fields the projection needs.
type podMetricsList struct {
	Items []struct {
		Metadata struct {
			Name      string `json:"name"`
			Namespace string `json:"namespace"`
		} `json:"metadata"`
		Window     string `json:"window"`
		Containers []struct {
			Usage struct {
				CPU    string `json:"cpu"`
				Memory string `json:"memory"`
			} `json:"usage"`
		} `json:"containers"`
	} `json:"items"`
}

// toTable projects pod metrics into "NAME, CPU(cores), MEMORY(bytes),
// WINDOW" rows, summing container usage per pod.
func (l podMetricsList) toTable() table.KubeTable {
	out := table.KubeTable{Header: []string{"NAME", "CPU(cores)", "MEMORY(bytes)", "WINDOW"}}
	for _, item := range l.Items {
		var cpu, mem resource.Quantity
		for _, c := range item.Containers {
			if q, err := resource.ParseQuantity(c.Usage.CPU); err == nil {
				cpu.Add(q)
			}
			if q, err := resource.ParseQuantity(c.Usage.Memory); err == nil {
				mem.Add(q)
			}
		}
		out.Rows = append(out.Rows, table.Row{
			Namespace: item.Metadata.Namespace,
			Name:      item.Metadata.Name,
			Cells:     []string{item.Metadata.Name, cpu.String(), mem.String(), item.Window},
		})
	}
	return out
}

// nodeMetricsList mirrors metrics.k8s.io/v1beta1 NodeMetricsList.
type nodeMetricsList struct {
	Items []struct {
		Metadata struct {
			Name string `json:"name"`
		} `json:"metadata"`
		Usage struct {
			CPU    string `json:"cpu"`
			Memory string `json:"memory"`
		} `json:"usage"`
	} `json:"items"`
}

type nodeCapacity struct {
	Status struct {
		Capacity struct {
			CPU    string `json:"cpu"`
			Memory string `json:"memory"`
		} `json:"capacity"`
	} `json:"status"`
}

// toTable projects node metrics into "NAME, CPU(cores), CPU%,
// MEMORY(bytes), MEMORY%" rows. Percentages require each node's
// capacity, fetched with one extra Get per node.
func (l nodeMetricsList) toTable(ctx context.Context, get func(ctx context.Context, path string, out interface{}) error) table.KubeTable {
	out := table.KubeTable{Header: []string{"NAME", "CPU(cores)", "CPU%", "MEMORY(bytes)", "MEMORY%"}}
	for _, item := range l.Items {
		cpuUsage, _ := resource.ParseQuantity(item.Usage.CPU)
		memUsage, _ := resource.ParseQuantity(item.Usage.Memory)

		cpuPct, memPct := "-", "-"
		var cap nodeCapacity
		if err := get(ctx, fmt.Sprintf("api/v1/nodes/%s", item.Metadata.Name), &cap); err == nil {
			if cpuCap, err := resource.ParseQuantity(cap.Status.Capacity.CPU); err == nil && cpuCap.MilliValue() > 0 {
				cpuPct = fmt.Sprintf("%d%%", cpuUsage.MilliValue()*100/cpuCap.MilliValue())
			}
			if memCap, err := resource.ParseQuantity(cap.Status.Capacity.Memory); err == nil && memCap.Value() > 0 {
				memPct = fmt.Sprintf("%d%%", memUsage.Value()*100/memCap.Value())
			}
		}

		out.Rows = append(out.Rows, table.Row{
			Name:  item.Metadata.Name,
			Cells: []string{item.Metadata.Name, cpuUsage.String(), cpuPct, memUsage.String(), memPct},
		})
	}
	return out
}
