// Package controller implements the event controller of spec.md §4.1:
// the single message loop that multiplexes user intent into shared-
// state writes, worker start/stop, and context-switch teardown.
package controller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/oklog/run"
	"github.com/pkg/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/yaml"

	"github.com/kubetui/kubetui/internal/apipoller"
	"github.com/kubetui/kubetui/internal/apiresource"
	"github.com/kubetui/kubetui/internal/describe"
	"github.com/kubetui/kubetui/internal/filter"
	"github.com/kubetui/kubetui/internal/kubeclient"
	"github.com/kubetui/kubetui/internal/logpipeline"
	"github.com/kubetui/kubetui/internal/message"
	"github.com/kubetui/kubetui/internal/poller"
	"github.com/kubetui/kubetui/internal/state"
	"github.com/kubetui/kubetui/internal/table"
	"github.com/kubetui/kubetui/internal/worker"
)

// ClientResolver resolves a context name to a live kube client. Context
// discovery and kubeconfig resolution are external collaborators
// (spec.md §1); the controller only consumes the result.
type ClientResolver func(contextName string) (kubeclient.Interface, error)

// Config wires the controller's external collaborators.
type Config struct {
	Logger log.Logger

	// Rx delivers typed request messages from internal/message.
	Rx <-chan interface{}
	// Tx delivers typed response/push messages to the UI.
	Tx func(interface{})

	Store *Store

	ResolveClient  ClientResolver
	ListContexts   func() []string
	InitialContext string

	// InitialNamespaces seeds TargetNamespaces the very first time
	// InitialContext is entered and the Store has no prior entry for it
	// (spec.md §3: "defaults to the context's kubeconfig namespace").
	// Contexts visited later via a context switch start with no
	// selection until the Store has one recorded for them, since
	// per-context kubeconfig defaults are an external concern (spec.md
	// §1) this controller has no way to re-derive mid-run.
	InitialNamespaces []string
}

// Controller owns the generation loop.
type Controller struct {
	cfg Config
}

// New builds a Controller from cfg.
func New(cfg Config) *Controller {
	return &Controller{cfg: cfg}
}

// Run drives generations until the process context is cancelled or a
// fatal Init error occurs (spec.md §4.1, §7).
func (c *Controller) Run(ctx context.Context) error {
	contextName := c.cfg.InitialContext
	first := true
	for {
		next, err := c.runGeneration(ctx, contextName, first)
		if err != nil {
			return err
		}
		if next == "" {
			return nil
		}
		contextName = next
		first = false
	}
}

// logPipeline bundles the handle the controller needs to abort the
// currently-running log pipeline as one unit (spec.md §3: "Log
// streamers: live between ... {pod deletion, container-id change, user
// stops logs}"; the watcher and collector that feed them share one
// lifecycle, cancelling which cascades to every streamer they spawned).
type logPipeline struct {
	life *worker.Lifecycle
}

// generation holds the per-context worker set and the small amount of
// mutable state the dispatch loop needs (the currently-running log
// pipeline and description worker, if any). Touched only by the
// dispatch loop goroutine, so it needs no locking of its own.
type generation struct {
	cfg    Config
	name   string
	client kubeclient.Interface
	shared *state.Shared
	life   *worker.Lifecycle

	logPipe      *logPipeline
	describeLife *worker.Lifecycle
}

func (c *Controller) runGeneration(ctx context.Context, contextName string, first bool) (string, error) {
	client, err := c.cfg.ResolveClient(contextName)
	if err != nil {
		return "", errors.Wrapf(err, "resolve client for context %q", contextName)
	}

	prior, known := c.cfg.Store.Get(contextName)
	namespaces := prior.Namespaces
	targets := prior.TargetApiResources
	if !known && first {
		namespaces = c.cfg.InitialNamespaces
	}

	shared := state.NewShared(namespaces, targets)
	life := worker.NewLifecycle(ctx)

	g := &generation{
		cfg:    c.cfg,
		name:   contextName,
		client: client,
		shared: shared,
		life:   life,
	}

	c.cfg.Tx(message.RestoreContext{Context: contextName, Namespaces: shared.Namespaces.Get()})
	c.cfg.Tx(message.RestoreAPIs{Resources: shared.TargetApiResources.Get()})

	var rg run.Group
	var nextContext string

	rg.Add(func() error {
		nextContext = g.dispatchLoop(ctx)
		return nil
	}, func(error) {
		life.Terminate()
	})

	for _, actor := range g.fixedActors() {
		actor := actor
		rg.Add(func() error {
			actor.Run()
			return nil
		}, func(error) {
			life.Terminate()
		})
	}

	if err := rg.Run(); err != nil {
		level.Error(c.cfg.Logger).Log("msg", "generation worker error", "context", contextName, "err", err)
	}

	g.abortLogPipeline()
	g.abortDescribe()

	c.cfg.Store.Set(contextName, KubeState{
		Client:             client,
		Namespaces:         shared.Namespaces.Get(),
		TargetApiResources: shared.TargetApiResources.Get(),
	})

	return nextContext, nil
}

// runner is the minimal interface oklog/run.Group needs from each fixed
// poller/watcher: a blocking Run that returns when its lifecycle ends.
type runner interface {
	Run() worker.Result
}

// fixedActors builds the always-on PodPoller/ConfigPoller/NetworkPoller/
// EventPoller/ApiPoller set spec.md §2 names, wiring each one's Emit to
// the matching domain response on tx (spec.md §6).
func (g *generation) fixedActors() []runner {
	pod := poller.NewPod(g.cfg.Logger, g.client, g.shared, g.life, func(tb table.KubeTable, err error) {
		g.cfg.Tx(message.PodPollResponse{Result: toResult(tb, err)})
	})
	cfgPoller := poller.NewConfig(g.cfg.Logger, g.client, g.shared, g.life, func(tb table.KubeTable, err error) {
		g.cfg.Tx(message.ConfigPollResponse{Result: toResult(tb, err)})
	})
	network := poller.NewNetwork(g.cfg.Logger, g.client, g.shared, g.life, func(tb table.KubeTable, err error) {
		g.cfg.Tx(message.NetworkPollResponse{Result: toResult(tb, err)})
	})
	event := poller.NewEvent(g.cfg.Logger, g.client, g.shared, g.life, func(tb table.KubeTable, err error) {
		g.cfg.Tx(message.EventPollResponse{Result: toResult(tb, err)})
	})

	api := &apipoller.ApiPoller{
		Logger: g.cfg.Logger,
		Client: g.client,
		Shared: g.shared,
		Life:   g.life,
		EmitTable: func(lines []string, err error) {
			g.cfg.Tx(message.ApiPollResponse{Result: toResult(lines, err)})
		},
		// EmitAPIs refreshes the UI's api-resource picker on every
		// successful discovery, not just on an explicit Api.Get request
		// (spec.md §4.3: the snapshot "replaces wholesale" every 10s,
		// and the picker should reflect that without the UI polling).
		EmitAPIs: func(resources []apiresource.ApiResource) {
			g.cfg.Tx(message.ApiGetResponse{Result: message.Ok(resources)})
		},
	}

	return []runner{pod, cfgPoller, network, event, api}
}

// toResult adapts a (value, error) pair to message.Result[T], the shape
// every domain response in internal/message uses.
func toResult[T any](v T, err error) message.Result[T] {
	if err != nil {
		return message.Result[T]{Err: err}
	}
	return message.Result[T]{Value: v}
}

// dispatchLoop is the "Running" state of spec.md §4.1's per-generation
// state machine: it multiplexes rx messages by domain tag until a
// context switch or process termination ends the generation.
func (g *generation) dispatchLoop(ctx context.Context) string {
	for {
		select {
		case <-ctx.Done():
			return ""
		case <-g.life.Done():
			return ""
		case msg, ok := <-g.cfg.Rx:
			if !ok {
				return ""
			}
			if next, done := g.handle(ctx, msg); done {
				return next
			}
		}
	}
}

// handle dispatches one rx message. done is true when the generation
// must unwind: either a context switch (next carries the new context
// name) or a process-wide Terminated (next is "").
func (g *generation) handle(ctx context.Context, msg interface{}) (next string, done bool) {
	switch m := msg.(type) {

	case message.Terminated:
		return "", true

	case message.ContextSwitchRequest:
		return m.Context, true

	case message.NamespaceGetRequest:
		g.handleNamespaceGet(ctx)

	case message.NamespaceSetRequest:
		g.shared.Namespaces.Set(m.Namespaces)

	case message.ContextGetRequest:
		var contexts []string
		if g.cfg.ListContexts != nil {
			contexts = g.cfg.ListContexts()
		}
		g.cfg.Tx(message.ContextGetResponse{Contexts: contexts})

	case message.ApiGetRequest:
		g.cfg.Tx(message.ApiGetResponse{Result: message.Ok(g.shared.ApiResources.Get())})

	case message.ApiSetRequest:
		g.shared.TargetApiResources.Set(m.Resources)

	case message.LogRequest:
		g.startLogPipeline(m.Query)

	case message.LogStopRequest:
		g.abortLogPipeline()

	case message.ConfigDataRequest:
		lines, err := g.fetchConfigData(ctx, m)
		g.cfg.Tx(message.ConfigDataResponse{Result: toResult(lines, err)})

	case message.NetworkDetailOpenRequest:
		g.openDescribe(m)

	case message.NetworkDetailCloseRequest:
		g.abortDescribe()

	case message.YamlApisRequest:
		g.cfg.Tx(message.YamlApisResponse{Result: message.Ok(g.shared.ApiResources.Get())})

	case message.YamlResourceRequest:
		items, err := g.listYamlResources(ctx, m.Key)
		g.cfg.Tx(message.YamlResourceResponse{Result: toResult(items, err)})

	case message.YamlRequest:
		lines, err := g.fetchYamlByKey(ctx, m.Kind, m.Name, m.Namespace)
		g.cfg.Tx(message.YamlResponse{Result: toResult(lines, err)})

	case message.GetRequest:
		lines, err := g.fetchYamlByKey(ctx, m.Kind, m.Name, m.Namespace)
		var yamlResult message.Result[string]
		if err != nil {
			yamlResult = message.Result[string]{Err: err}
		} else {
			yamlResult = message.Ok(strings.Join(lines, "\n"))
		}
		g.cfg.Tx(message.GetResponse{Kind: m.Kind, Name: m.Name, Namespace: m.Namespace, Yaml: yamlResult})

	default:
		level.Warn(g.cfg.Logger).Log("msg", "unhandled request message", "type", fmt.Sprintf("%T", msg))
	}

	return "", false
}

// handleNamespaceGet replies with every namespace the cluster has (the
// UI's namespace picker contents), distinct from the shared
// TargetNamespaces cell this reads nothing from.
func (g *generation) handleNamespaceGet(ctx context.Context) {
	list, err := g.client.Typed().CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		g.cfg.Tx(message.NamespaceGetResponse{Result: message.Result[[]string]{Err: errors.Wrap(err, "list namespaces")}})
		return
	}
	names := make([]string, len(list.Items))
	for i, ns := range list.Items {
		names[i] = ns.Name
	}
	g.cfg.Tx(message.NamespaceGetResponse{Result: message.Ok(names)})
}

// fetchConfigData implements the Config domain's one-shot "Data" fetch
// (spec.md §4.1): decode a ConfigMap's or Secret's keys into display
// lines. Secret values arrive already base64-decoded by the typed
// client's JSON codec (encoding/json decodes []byte fields from
// base64), so no separate decode step is needed here.
func (g *generation) fetchConfigData(ctx context.Context, req message.ConfigDataRequest) ([]string, error) {
	switch strings.ToLower(req.Kind) {
	case "configmap":
		cm, err := g.client.Typed().CoreV1().ConfigMaps(req.Namespace).Get(ctx, req.Name, metav1.GetOptions{})
		if err != nil {
			return nil, errors.Wrapf(err, "get configmap %s/%s", req.Namespace, req.Name)
		}
		var lines []string
		for k, v := range cm.Data {
			lines = append(lines, fmt.Sprintf("%s: %s", k, v))
		}
		for k := range cm.BinaryData {
			lines = append(lines, fmt.Sprintf("%s: <binary>", k))
		}
		return lines, nil
	case "secret":
		sec, err := g.client.Typed().CoreV1().Secrets(req.Namespace).Get(ctx, req.Name, metav1.GetOptions{})
		if err != nil {
			return nil, errors.Wrapf(err, "get secret %s/%s", req.Namespace, req.Name)
		}
		var lines []string
		for k, v := range sec.Data {
			lines = append(lines, fmt.Sprintf("%s: %s", k, string(v)))
		}
		return lines, nil
	default:
		return nil, fmt.Errorf("config data: unknown kind %q", req.Kind)
	}
}

// startLogPipeline is the Log-request branch of spec.md §4.1's Running
// state: abort whatever log pipeline is live, parse the filter query,
// resolve its owning-resource attribute (if any) against the live
// client, and start a fresh PodWatcher + LogCollector pair scoped to
// the current target namespaces.
func (g *generation) startLogPipeline(query string) {
	g.abortLogPipeline()

	q, err := filter.Parse(query)
	if err != nil {
		g.cfg.Tx(message.ErrorResponse{Err: err})
		return
	}

	namespaces := g.shared.Namespaces.Get()
	ns := ""
	if len(namespaces) == 1 {
		ns = namespaces[0]
	}

	resolveCtx, cancel := context.WithTimeout(g.life.Context(), 30*time.Second)
	err = q.Resolve(resolveCtx, logpipeline.NewResolver(g.client, ns))
	cancel()
	if err != nil {
		g.cfg.Tx(message.ErrorResponse{Err: err})
		return
	}

	life := worker.NewLifecycle(g.life.Context())
	buffer := logpipeline.NewLogBuffer()
	registry := logpipeline.NewRegistry()

	watcher := &logpipeline.PodWatcher{
		Logger:    g.cfg.Logger,
		Client:    g.client,
		Life:      life,
		Namespace: ns,
		Query:     q,
		Buffer:    buffer,
		Registry:  registry,
		EmitError: func(err error) { g.cfg.Tx(message.ErrorResponse{Err: err}) },
	}
	collector := &logpipeline.LogCollector{
		Buffer: buffer,
		Life:   life,
		Emit:   func(resp message.LogResponse) { g.cfg.Tx(resp) },
	}

	go watcher.Run()
	go collector.Run()

	g.logPipe = &logPipeline{life: life}
}

func (g *generation) abortLogPipeline() {
	if g.logPipe != nil {
		g.logPipe.life.Terminate()
		g.logPipe = nil
	}
}

// openDescribe starts the single live description worker the Network
// tab's detail view uses (spec.md §4.6), aborting whatever kind was
// previously open.
func (g *generation) openDescribe(req message.NetworkDetailOpenRequest) {
	g.abortDescribe()

	life := worker.NewLifecycle(g.life.Context())
	kind := strings.ToLower(req.Kind)
	w, err := describe.NewForKind(g.cfg.Logger, g.client, life, kind, req.Name, req.Namespace, func(lines []string, err error) {
		g.cfg.Tx(message.NetworkDetailResponse{Result: toResult(lines, err)})
	})
	if err != nil {
		g.cfg.Tx(message.ErrorResponse{Err: err})
		return
	}

	go w.Run()
	g.describeLife = life
}

func (g *generation) abortDescribe() {
	if g.describeLife != nil {
		g.describeLife.Terminate()
		g.describeLife = nil
	}
}

// listYamlResources implements the original_source/-recovered
// Yaml.List(kind) operation (SPEC_FULL.md): every object of one
// ApiResource across the current target namespaces, for the YAML
// browser tab. key is the ApiResource's stable JSON serialization, per
// the metadata echo protocol (spec.md §3, §6).
func (g *generation) listYamlResources(ctx context.Context, key string) ([]message.YamlResourceListItem, error) {
	res, err := apiresource.ParseKey(key)
	if err != nil {
		return nil, errors.Wrap(err, "parse api resource key")
	}

	namespaces := g.shared.Namespaces.Get()
	if !res.IsNamespaced() || len(namespaces) == 0 {
		namespaces = []string{""}
	}

	var items []message.YamlResourceListItem
	for _, ns := range namespaces {
		list, err := g.client.ListUnstructured(ctx, gvrOf(res), ns)
		if err != nil {
			return nil, errors.Wrapf(err, "list %s", res.DisplayName())
		}
		for _, obj := range list.Items {
			items = append(items, message.YamlResourceListItem{
				Kind:      res.DisplayName(),
				Name:      obj.GetName(),
				Namespace: obj.GetNamespace(),
				Value:     obj.GetName(),
				Key:       key,
			})
		}
	}
	return items, nil
}

// fetchYamlByKey implements the Yaml and Get domains' one-shot named
// fetch (spec.md §4.1): key is the echoed ApiResource serialization
// (spec.md §6's "Metadata echo protocol"), resolved back to a GVR to
// fetch name/namespace through the dynamic client.
func (g *generation) fetchYamlByKey(ctx context.Context, key, name, namespace string) ([]string, error) {
	res, err := apiresource.ParseKey(key)
	if err != nil {
		return nil, errors.Wrap(err, "parse api resource key")
	}
	obj, err := g.client.GetUnstructured(ctx, gvrOf(res), namespace, name)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s %s/%s", res.DisplayName(), namespace, name)
	}
	out, err := yaml.Marshal(obj.Object)
	if err != nil {
		return nil, errors.Wrap(err, "marshal yaml")
	}
	return strings.Split(strings.TrimRight(string(out), "\n"), "\n"), nil
}

// gvrOf converts an ApiResource's group/version/plural into the GVR the
// dynamic client keys resources by.
func gvrOf(res apiresource.ApiResource) schema.GroupVersionResource {
	return schema.GroupVersionResource{Group: res.Group, Version: res.Version, Resource: res.Name}
}
