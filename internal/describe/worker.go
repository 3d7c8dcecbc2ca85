// Package describe implements the on-demand description workers of
// spec.md §4.6/§4.7: one tick loop per open detail view that fetches
// the subject object, strips server-managed fields, resolves related
// resources, and emits merged YAML.
package describe

import (
	"context"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/yaml"

	"github.com/kubetui/kubetui/internal/kubeclient"
	"github.com/kubetui/kubetui/internal/worker"
)

// TickInterval is the 3s loop spec.md §4.6 names.
const TickInterval = 3 * time.Second

// RelatedFunc computes the relatedResources map for one fetched
// subject. nil when the kind has no related-resource wiring.
type RelatedFunc func(ctx context.Context, subject Object) (map[string][]string, error)

// Worker is the single generic shape every description kind
// configures (spec.md §4.6: "one subclass per kind" becomes one Worker
// value per kind, not a type per kind).
type Worker struct {
	Logger   log.Logger
	Client   kubeclient.Interface
	Life     *worker.Lifecycle
	Interval time.Duration

	GVR       schema.GroupVersionResource
	Name      string
	Namespace string

	Related RelatedFunc

	// Emit is called with the rendered YAML lines (or an error) on every tick.
	Emit func(lines []string, err error)
}

// Run ticks until aborted (spec.md §4.6: "runs a 3s tick loop under an
// abort flag").
func (w *Worker) Run() worker.Result {
	interval := w.Interval
	if interval == 0 {
		interval = TickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.tick()
	for {
		select {
		case <-w.Life.Done():
			return worker.Terminated()
		case <-ticker.C:
			w.tick()
		}
	}
}

func (w *Worker) tick() {
	ctx := w.Life.Context()

	resourceClient := w.Client.Dynamic().Resource(w.GVR)
	var res *unstructured.Unstructured
	var err error
	if w.Namespace == "" {
		res, err = resourceClient.Get(ctx, w.Name, metav1.GetOptions{})
	} else {
		res, err = resourceClient.Namespace(w.Namespace).Get(ctx, w.Name, metav1.GetOptions{})
	}
	if err != nil {
		level.Error(w.Logger).Log("msg", "describe fetch failed", "kind", w.GVR.Resource, "name", w.Name, "err", err)
		if w.Emit != nil {
			w.Emit(nil, err)
		}
		return
	}

	obj := res.Object
	stripManaged(obj)

	if w.Related != nil {
		related, rerr := w.Related(ctx, obj)
		if rerr != nil {
			level.Error(w.Logger).Log("msg", "related resources failed", "kind", w.GVR.Resource, "name", w.Name, "err", rerr)
			if w.Emit != nil {
				w.Emit(nil, rerr)
			}
			return
		}
		obj["relatedResources"] = related
	}

	out, merr := yaml.Marshal(obj)
	if merr != nil {
		level.Error(w.Logger).Log("msg", "yaml marshal failed", "err", merr)
		if w.Emit != nil {
			w.Emit(nil, merr)
		}
		return
	}
	if w.Emit != nil {
		w.Emit(strings.Split(strings.TrimRight(string(out), "\n"), "\n"), nil)
	}
}
