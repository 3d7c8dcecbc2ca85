// Package fake provides a minimal in-memory kubeclient.Interface for
// tests that exercise pollers, watchers, and the controller without a
// real API server. It is deliberately simpler than client-go's own
// generated fake clientset: most of this module talks to the cluster
// through raw paths and Table responses, which the generated fake
// clientset cannot produce, so tests script the exact table/watch
// events they want to observe instead.
package fake

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/dynamic"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes"
	kubefake "k8s.io/client-go/kubernetes/fake"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/kubetui/kubetui/internal/apiresource"
	"github.com/kubetui/kubetui/internal/kubeclient"
	"github.com/kubetui/kubetui/internal/table"
)

// Client is a scriptable fake satisfying kubeclient.Interface.
type Client struct {
	mu sync.Mutex

	// Tables maps a list path to the table it should return on the next
	// TableGet call. Tests mutate this directly between ticks to
	// simulate cluster state changes.
	Tables map[string]table.KubeTable
	// TableErr, if set for a path, is returned instead of a table.
	TableErr map[string]error

	// GetResponses maps a path to the raw JSON it should decode into the
	// caller's out parameter.
	GetResponses map[string]string
	// Texts maps a path to the raw text GetText returns.
	Texts map[string]string

	// Watchers maps a path to a factory for its watch.Interface. Watch
	// calls the factory on every call and leaves the entry in place, so
	// a reconnect gets whatever the factory returns next; a path with no
	// entry gets an idle watch.NewFake().
	Watchers map[string]func() (watch.Interface, error)

	// Discoveries is returned verbatim by Discovery.
	Discoveries []apiresource.ApiResource
	DiscoveryErr error

	// LogLines maps "namespace/pod/container" to the lines LogStream
	// should yield, one per Read line.
	LogLines map[string][]string

	typed   kubernetes.Interface
	dynamic dynamic.Interface
}

var _ kubeclient.Interface = (*Client)(nil)

// New builds an empty fake. Use WithTyped/WithDynamic to swap in
// pre-seeded typed/dynamic clientsets, e.g. for internal/describe's
// related-resource resolver.
func New() *Client {
	return &Client{
		Tables:       map[string]table.KubeTable{},
		TableErr:     map[string]error{},
		GetResponses: map[string]string{},
		Texts:        map[string]string{},
		Watchers:     map[string]func() (watch.Interface, error){},
		LogLines:     map[string][]string{},
		typed:        kubefake.NewSimpleClientset(),
		dynamic:      dynamicfake.NewSimpleDynamicClient(runtime.NewScheme()),
	}
}

// WithTyped replaces the typed clientset (e.g. with objects pre-loaded
// via kubefake.NewSimpleClientset(objs...)).
func (c *Client) WithTyped(cs kubernetes.Interface) *Client {
	c.typed = cs
	return c
}

// WithDynamic replaces the dynamic clientset.
func (c *Client) WithDynamic(d dynamic.Interface) *Client {
	c.dynamic = d
	return c
}

func (c *Client) Get(_ context.Context, path string, out interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.GetResponses[path]
	if !ok {
		return nil
	}
	return unmarshalInto(raw, out)
}

func (c *Client) GetText(_ context.Context, path string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Texts[path], nil
}

func (c *Client) TableGet(_ context.Context, path string) (table.KubeTable, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.TableErr[path]; ok && err != nil {
		return table.KubeTable{}, err
	}
	return c.Tables[path], nil
}

func (c *Client) Watch(_ context.Context, path string, _ metav1.ListOptions) (watch.Interface, error) {
	c.mu.Lock()
	factory, ok := c.Watchers[path]
	c.mu.Unlock()
	if !ok {
		return watch.NewFake(), nil
	}
	return factory()
}

func (c *Client) LogStream(_ context.Context, namespace, pod string, params kubeclient.LogStreamParams) (io.ReadCloser, error) {
	key := strings.Join([]string{namespace, pod, params.Container}, "/")
	c.mu.Lock()
	lines := c.LogLines[key]
	c.mu.Unlock()
	return io.NopCloser(strings.NewReader(strings.Join(lines, "\n") + "\n")), nil
}

func (c *Client) Discovery(_ context.Context) ([]apiresource.ApiResource, error) {
	if c.DiscoveryErr != nil {
		return nil, c.DiscoveryErr
	}
	return c.Discoveries, nil
}

func (c *Client) Typed() kubernetes.Interface { return c.typed }
func (c *Client) Dynamic() dynamic.Interface   { return c.dynamic }

func (c *Client) GetUnstructured(ctx context.Context, gvr schema.GroupVersionResource, namespace, name string) (*unstructured.Unstructured, error) {
	if namespace == "" {
		return c.dynamic.Resource(gvr).Get(ctx, name, metav1.GetOptions{})
	}
	return c.dynamic.Resource(gvr).Namespace(namespace).Get(ctx, name, metav1.GetOptions{})
}

func (c *Client) ListUnstructured(ctx context.Context, gvr schema.GroupVersionResource, namespace string) (*unstructured.UnstructuredList, error) {
	if namespace == "" {
		return c.dynamic.Resource(gvr).List(ctx, metav1.ListOptions{})
	}
	return c.dynamic.Resource(gvr).Namespace(namespace).List(ctx, metav1.ListOptions{})
}

func unmarshalInto(raw string, out interface{}) error {
	if out == nil || raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), out)
}
