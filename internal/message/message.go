// Package message defines the tagged-sum message taxonomy exchanged
// between the event controller and the UI (spec.md §6). Requests flow
// UI -> controller on an rx channel; responses/pushes flow
// controller/workers -> UI on a tx channel.
package message

import (
	"github.com/kubetui/kubetui/internal/apiresource"
	"github.com/kubetui/kubetui/internal/table"
)

// Result mirrors a Rust Result<T, E> without needing generics-heavy
// plumbing at every call site: exactly one of Value/Err is set.
type Result[T any] struct {
	Value T
	Err   error
}

func Ok[T any](v T) Result[T]       { return Result[T]{Value: v} }
func Err[T any](err error) Result[T] { return Result[T]{Err: err} }

func (r Result[T]) IsErr() bool { return r.Err != nil }

// --- Namespace domain ---

type NamespaceGetRequest struct{}
type NamespaceGetResponse struct{ Result Result[[]string] }

type NamespaceSetRequest struct{ Namespaces []string }

// --- Context domain ---

type ContextGetRequest struct{}
type ContextGetResponse struct{ Contexts []string }

type ContextSwitchRequest struct{ Context string }

// --- Api domain (discovery + target-resource table) ---

type ApiGetRequest struct{}
type ApiGetResponse struct{ Result Result[[]apiresource.ApiResource] }

type ApiSetRequest struct{ Resources []apiresource.ApiResource }

// ApiPollResponse is pushed on every fast tick, rendered as display
// lines (spec.md §4.3: header + table + blank line, per resource).
type ApiPollResponse struct{ Result Result[[]string] }

// --- Pod domain ---

type PodPollResponse struct{ Result Result[table.KubeTable] }

// LogRequest starts (or restarts) the log pipeline scoped to the
// current target namespaces with the given filter query text.
type LogRequest struct{ Query string }
type LogStopRequest struct{}

// LogResponse is the batched flush from the LogCollector (spec.md
// §4.5.4), at most one per 200ms tick; ticks with no buffered lines
// send nothing.
type LogResponse struct {
	Lines []LogLine
}

type LogLine struct {
	Namespace string
	Pod       string
	Container string
	Text      string
}

// --- Event domain ---

// EventPollResponse is pushed on every EventPoller tick, in API server
// return order (no client-side sort, per spec.md §4.4's merge rule).
type EventPollResponse struct{ Result Result[table.KubeTable] }

// --- Config domain ---

type ConfigPollResponse struct{ Result Result[table.KubeTable] }

type ConfigDataRequest struct {
	Kind      string // "configmap" | "secret"
	Name      string
	Namespace string
}
type ConfigDataResponse struct{ Result Result[[]string] }

// --- Network domain ---

type NetworkPollResponse struct{ Result Result[table.KubeTable] }

type NetworkDetailOpenRequest struct {
	Kind      string
	Name      string
	Namespace string
}
type NetworkDetailCloseRequest struct{}
type NetworkDetailResponse struct{ Result Result[[]string] }

// --- Yaml domain ---

type YamlApisRequest struct{}
type YamlApisResponse struct{ Result Result[[]apiresource.ApiResource] }

type YamlResourceRequest struct{ Key string } // Key is an ApiResource.Key()
type YamlResourceResponse struct {
	Result Result[[]YamlResourceListItem]
}

type YamlResourceListItem struct {
	Kind      string
	Name      string
	Namespace string
	Value     string
	Key       string // metadata echo: ApiResource.Key() for this row's kind
}

type YamlRequest struct {
	Kind      string
	Name      string
	Namespace string
}
type YamlResponse struct{ Result Result[[]string] }

// --- Get domain (one-shot named fetch from any tab) ---

type GetRequest struct {
	Kind      string
	Name      string
	Namespace string
}
type GetResponse struct {
	Kind, Name, Namespace string
	Yaml                  Result[string]
}

// --- Lifecycle ---

// RestoreContext is pushed once per generation at Init so the UI can
// repaint prior selections after a context switch (spec.md §4.1).
type RestoreContext struct {
	Context    string
	Namespaces []string
}

// RestoreAPIs is pushed alongside RestoreContext with the restored
// target-api-resource selection.
type RestoreAPIs struct {
	Resources []apiresource.ApiResource
}

// ErrorResponse reports a non-fatal worker error (schema error, JoinError,
// etc.) on the error channel (spec.md §7).
type ErrorResponse struct{ Err error }

// Terminated signals that the whole process is shutting down (distinct
// from a per-generation ChangedContext), recovered from the original
// source's Kube::Terminated variant (see SPEC_FULL.md).
type Terminated struct{}
