package filter

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Resolver fetches the labels an owning resource (deployment,
// daemonset, ...) selects its pods with. Implemented by
// internal/logpipeline against a live kube client; kept here as a
// function type so this package stays client-agnostic.
type Resolver func(ctx context.Context, kind, name string) (map[string]string, error)

// Resolve turns a parsed "<kind>/<name>" attribute into either a pod
// name anchor (kind == "pod") or a label selector fetched via resolve,
// per spec.md §4.5.5. No-op when the query carries no KindName.
func (q *Query) Resolve(ctx context.Context, resolve Resolver) error {
	if q.KindName == nil {
		return nil
	}
	if q.KindName.Kind == "pod" {
		re, err := regexp.Compile("^" + regexp.QuoteMeta(q.KindName.Name) + "$")
		if err != nil {
			return &ParseError{Program: q.KindName.Name, Reason: "Lex", Cause: err}
		}
		q.PodIncludes = append(q.PodIncludes, re)
		return nil
	}
	labels, err := resolve(ctx, q.KindName.Kind, q.KindName.Name)
	if err != nil {
		return err
	}
	q.LabelSelector = formatSelector(labels)
	return nil
}

// formatSelector renders a label map as "k=v,k2=v2" with keys sorted
// for a stable, testable selector string.
func formatSelector(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%s", k, labels[k])
	}
	return strings.Join(parts, ",")
}
