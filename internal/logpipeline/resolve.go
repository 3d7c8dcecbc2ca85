package logpipeline

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/pkg/errors"

	"github.com/kubetui/kubetui/internal/filter"
	"github.com/kubetui/kubetui/internal/kubeclient"
)

// NewResolver builds a filter.Resolver against a live client: it fetches
// the named owning resource and reads the labels it selects its pods
// with, per spec.md §4.5.5's "<kind>/<name>" attribute. Pod is handled
// by filter.Query.Resolve itself (a name anchor, no fetch needed), so
// this resolver never sees kind == "pod".
func NewResolver(client kubeclient.Interface, namespace string) filter.Resolver {
	return func(ctx context.Context, kind, name string) (map[string]string, error) {
		opts := metav1.GetOptions{}
		switch kind {
		case "deployment":
			d, err := client.Typed().AppsV1().Deployments(namespace).Get(ctx, name, opts)
			if err != nil {
				return nil, errors.Wrapf(err, "get deployment %s/%s", namespace, name)
			}
			return selectorLabels(d.Spec.Selector.MatchLabels, d.Spec.Template.Labels), nil
		case "daemonset":
			d, err := client.Typed().AppsV1().DaemonSets(namespace).Get(ctx, name, opts)
			if err != nil {
				return nil, errors.Wrapf(err, "get daemonset %s/%s", namespace, name)
			}
			return selectorLabels(d.Spec.Selector.MatchLabels, d.Spec.Template.Labels), nil
		case "statefulset":
			s, err := client.Typed().AppsV1().StatefulSets(namespace).Get(ctx, name, opts)
			if err != nil {
				return nil, errors.Wrapf(err, "get statefulset %s/%s", namespace, name)
			}
			return selectorLabels(s.Spec.Selector.MatchLabels, s.Spec.Template.Labels), nil
		case "replicaset":
			r, err := client.Typed().AppsV1().ReplicaSets(namespace).Get(ctx, name, opts)
			if err != nil {
				return nil, errors.Wrapf(err, "get replicaset %s/%s", namespace, name)
			}
			return selectorLabels(r.Spec.Selector.MatchLabels, r.Spec.Template.Labels), nil
		case "job":
			j, err := client.Typed().BatchV1().Jobs(namespace).Get(ctx, name, opts)
			if err != nil {
				return nil, errors.Wrapf(err, "get job %s/%s", namespace, name)
			}
			var selector map[string]string
			if j.Spec.Selector != nil {
				selector = j.Spec.Selector.MatchLabels
			}
			return selectorLabels(selector, j.Spec.Template.Labels), nil
		case "service":
			s, err := client.Typed().CoreV1().Services(namespace).Get(ctx, name, opts)
			if err != nil {
				return nil, errors.Wrapf(err, "get service %s/%s", namespace, name)
			}
			return s.Spec.Selector, nil
		default:
			return nil, fmt.Errorf("log filter: unresolvable owning-resource kind %q", kind)
		}
	}
}

// selectorLabels prefers the workload's own spec.selector.matchLabels
// (spec.md §4.5.5: "resolved ... by fetching the resource and reading
// its spec.selector/template.metadata.labels"); it falls back to the
// pod template's labels when the selector is unset, which happens for
// Job, whose selector is optional and server-generated when absent.
func selectorLabels(selector, templateLabels map[string]string) map[string]string {
	if len(selector) > 0 {
		return selector
	}
	return templateLabels
}
