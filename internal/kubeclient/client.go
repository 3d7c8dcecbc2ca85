// Package kubeclient is the typed façade spec.md §2.1 describes: the one
// collaborator every poller, watcher, and description worker talks to.
// It wraps k8s.io/client-go so that the rest of this module never
// imports client-go directly.
package kubeclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-kit/log"
	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/kubetui/kubetui/internal/apiresource"
	"github.com/kubetui/kubetui/internal/table"
)

// tableAcceptHeader requests the server-side Table projection, per
// spec.md §6.
const tableAcceptHeader = "application/json;as=Table;v=v1;g=meta.k8s.io"

// WatchTimeoutSeconds bounds a watch call's server-side lifetime (§4.5.1,
// §5's "Timeouts"); the PodWatcher reconnects when it elapses.
const WatchTimeoutSeconds = int64(180)

// LogStreamParams configures a follow-log request.
type LogStreamParams struct {
	Container    string
	Follow       bool
	SinceSeconds *int64
	TailLines    *int64
	Timestamps   bool
}

// Interface is the façade surface every poller/watcher/description
// worker depends on. It is the sole dependency surface named in
// spec.md §2.3's "Poller base", widened with the operations the log
// pipeline and description workers also need.
type Interface interface {
	// Get fetches path and decodes the JSON body into out.
	Get(ctx context.Context, path string, out interface{}) error
	// GetText fetches path and returns its raw body.
	GetText(ctx context.Context, path string) (string, error)
	// TableGet fetches path with the server-side Table Accept header and
	// decodes it into a table.KubeTable.
	TableGet(ctx context.Context, path string) (table.KubeTable, error)
	// Watch opens a watch stream against path with the given list
	// options (label/field selectors, resourceVersion).
	Watch(ctx context.Context, path string, opts metav1.ListOptions) (watch.Interface, error)
	// LogStream opens a follow-log byte stream for one container.
	LogStream(ctx context.Context, namespace, pod string, params LogStreamParams) (io.ReadCloser, error)
	// Discovery enumerates every server-advertised group/version/kind
	// whose verbs include "list" (spec.md §4.3).
	Discovery(ctx context.Context) ([]apiresource.ApiResource, error)

	// Typed exposes the underlying clientset for components that need
	// strongly-typed access: internal/controller's one-shot namespace and
	// config fetches, and internal/logpipeline's <kind>/<name> resolver.
	// Pollers use TableGet only; internal/describe uses Dynamic.
	Typed() kubernetes.Interface
	// Dynamic exposes a dynamic client for resources with no generated
	// clientset (e.g. the Gateway API types in internal/describe).
	Dynamic() dynamic.Interface

	// GetUnstructured and ListUnstructured fetch an arbitrary GVR
	// through the dynamic client, for the Yaml/Get domains' one-shot
	// fetches of a user-picked ApiResource (spec.md §6's "Get" and
	// "Yaml" domains).
	GetUnstructured(ctx context.Context, gvr schema.GroupVersionResource, namespace, name string) (*unstructured.Unstructured, error)
	ListUnstructured(ctx context.Context, gvr schema.GroupVersionResource, namespace string) (*unstructured.UnstructuredList, error)
}

// Client is the concrete Interface implementation.
type Client struct {
	logger    log.Logger
	config    *rest.Config
	clientset kubernetes.Interface
	dyn       dynamic.Interface
}

var _ Interface = (*Client)(nil)

// New builds a Client from a resolved rest.Config. Kubeconfig resolution
// itself is the caller's concern (spec.md §1: "kubeconfig location
// policy" is an external collaborator); by the time New is called, cfg
// must already be valid, or construction fails with a wrapped error that
// is fatal at controller Init (spec.md §7).
func New(logger log.Logger, cfg *rest.Config) (*Client, error) {
	cs, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "build kubernetes clientset")
	}
	dyn, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "build dynamic client")
	}
	return &Client{logger: logger, config: cfg, clientset: cs, dyn: dyn}, nil
}

func (c *Client) Typed() kubernetes.Interface   { return c.clientset }
func (c *Client) Dynamic() dynamic.Interface    { return c.dyn }
func (c *Client) rest() rest.Interface          { return c.clientset.Discovery().RESTClient() }

func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	raw, err := c.rest().Get().AbsPath(path).DoRaw(ctx)
	if err != nil {
		return errors.Wrapf(err, "get %s", path)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	return nil
}

func (c *Client) GetText(ctx context.Context, path string) (string, error) {
	raw, err := c.rest().Get().AbsPath(path).DoRaw(ctx)
	if err != nil {
		return "", errors.Wrapf(err, "get %s", path)
	}
	return string(raw), nil
}

func (c *Client) TableGet(ctx context.Context, path string) (table.KubeTable, error) {
	raw, err := c.rest().Get().AbsPath(path).SetHeader("Accept", tableAcceptHeader).DoRaw(ctx)
	if err != nil {
		return table.KubeTable{}, errors.Wrapf(err, "table get %s", path)
	}
	return decodeTable(raw)
}

func (c *Client) Watch(ctx context.Context, path string, opts metav1.ListOptions) (watch.Interface, error) {
	opts.Watch = true
	timeout := WatchTimeoutSeconds
	opts.TimeoutSeconds = &timeout
	req := c.rest().Get().AbsPath(path).
		Param("watch", "true").
		Param("timeoutSeconds", fmt.Sprintf("%d", timeout))
	if opts.LabelSelector != "" {
		req = req.Param("labelSelector", opts.LabelSelector)
	}
	if opts.FieldSelector != "" {
		req = req.Param("fieldSelector", opts.FieldSelector)
	}
	if opts.ResourceVersion != "" {
		req = req.Param("resourceVersion", opts.ResourceVersion)
	}
	w, err := req.Watch(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "watch %s", path)
	}
	return w, nil
}

func (c *Client) LogStream(ctx context.Context, namespace, pod string, params LogStreamParams) (io.ReadCloser, error) {
	opts := &corev1.PodLogOptions{
		Container:    params.Container,
		Follow:       params.Follow,
		SinceSeconds: params.SinceSeconds,
		TailLines:    params.TailLines,
		Timestamps:   params.Timestamps,
	}
	stream, err := c.clientset.CoreV1().Pods(namespace).GetLogs(pod, opts).Stream(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "log stream %s/%s/%s", namespace, pod, params.Container)
	}
	return stream, nil
}

// GetUnstructured fetches an arbitrary object (possibly a CRD with no
// generated clientset, e.g. a Gateway) as an unstructured.Unstructured.
func (c *Client) GetUnstructured(ctx context.Context, gvr schema.GroupVersionResource, namespace, name string) (*unstructured.Unstructured, error) {
	if namespace == "" {
		return c.dyn.Resource(gvr).Get(ctx, name, metav1.GetOptions{})
	}
	return c.dyn.Resource(gvr).Namespace(namespace).Get(ctx, name, metav1.GetOptions{})
}

// ListUnstructured lists an arbitrary resource kind in a namespace (or
// cluster-wide when namespace is empty).
func (c *Client) ListUnstructured(ctx context.Context, gvr schema.GroupVersionResource, namespace string) (*unstructured.UnstructuredList, error) {
	if namespace == "" {
		return c.dyn.Resource(gvr).List(ctx, metav1.ListOptions{})
	}
	return c.dyn.Resource(gvr).Namespace(namespace).List(ctx, metav1.ListOptions{})
}

// ReadLines adapts a follow-log byte stream into a line channel. Callers
// (ContainerLogStreamer) receive from the returned channel until it
// closes, which happens when the underlying stream ends or ctx is
// cancelled.
func ReadLines(ctx context.Context, r io.ReadCloser) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		defer r.Close()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
