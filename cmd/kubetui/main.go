// Command kubetui runs the kube data plane described in spec.md: the
// pollers, log pipeline, and event controller that a terminal UI would
// attach to. The UI itself (widgets, layout, input dispatch) is an
// external collaborator out of scope for this module (spec.md §1); this
// binary wires the core's rx/tx to the process's own lifecycle so it can
// run standalone and be observed via logs and /metrics, the way
// cmd/operator/main.go exercises the teacher's operator package without
// a UI of its own.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/oklog/run"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
	"k8s.io/client-go/util/homedir"

	"github.com/kubetui/kubetui/internal/controller"
	"github.com/kubetui/kubetui/internal/kubeclient"
	"github.com/kubetui/kubetui/internal/message"
	"github.com/kubetui/kubetui/internal/metrics"
)

// The valid levels for the --log-level flag.
const (
	logLevelDebug = "debug"
	logLevelInfo  = "info"
	logLevelWarn  = "warn"
	logLevelError = "error"
)

var validLogLevels = []string{logLevelDebug, logLevelInfo, logLevelWarn, logLevelError}

func main() {
	var kubeconfig *string
	if home := homedir.HomeDir(); home != "" {
		kubeconfig = flag.String("kubeconfig", filepath.Join(home, ".kube", "config"), "(optional) absolute path to the kubeconfig file")
	} else {
		kubeconfig = flag.String("kubeconfig", "", "absolute path to the kubeconfig file")
	}
	var (
		logLevel    = flag.String("log-level", logLevelInfo, fmt.Sprintf("Log level to use. Possible values: %s", strings.Join(validLogLevels, ", ")))
		contextFlag = flag.String("context", "", "kubeconfig context to start in (defaults to the kubeconfig's current-context)")
		metricsAddr = flag.String("metrics-addr", ":8080", "Address to emit metrics on.")
	)
	flag.Parse()

	logger, err := setupLogger(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating logger failed: %s\n", err)
		os.Exit(2)
	}

	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	loadingRules.ExplicitPath = *kubeconfig
	rawConfig, err := loadingRules.Load()
	if err != nil {
		level.Error(logger).Log("msg", "loading kubeconfig failed", "err", err)
		os.Exit(1)
	}

	initialContext := *contextFlag
	if initialContext == "" {
		initialContext = rawConfig.CurrentContext
	}
	if initialContext == "" {
		level.Error(logger).Log("msg", "no context given and kubeconfig has no current-context")
		os.Exit(1)
	}

	var initialNamespaces []string
	if kc, ok := rawConfig.Contexts[initialContext]; ok && kc.Namespace != "" {
		initialNamespaces = []string{kc.Namespace}
	}

	clients := map[string]kubeclient.Interface{}
	resolveClient := func(contextName string) (kubeclient.Interface, error) {
		if c, ok := clients[contextName]; ok {
			return c, nil
		}
		cfg, err := clientConfigFor(rawConfig, contextName)
		if err != nil {
			return nil, errors.Wrapf(err, "build client config for context %q", contextName)
		}
		c, err := kubeclient.New(logger, cfg)
		if err != nil {
			return nil, errors.Wrapf(err, "build kube client for context %q", contextName)
		}
		clients[contextName] = c
		return c, nil
	}
	listContexts := func() []string {
		names := make([]string, 0, len(rawConfig.Contexts))
		for name := range rawConfig.Contexts {
			names = append(names, name)
		}
		return names
	}

	rx := make(chan interface{})
	tx := func(m interface{}) {
		level.Debug(logger).Log("msg", "tx", "type", fmt.Sprintf("%T", m))
	}

	ctrl := controller.New(controller.Config{
		Logger:            logger,
		Rx:                rx,
		Tx:                tx,
		Store:             controller.NewStore(),
		ResolveClient:     resolveClient,
		ListContexts:      listContexts,
		InitialContext:    initialContext,
		InitialNamespaces: initialNamespaces,
	})

	var g run.Group
	// Termination handler.
	{
		term := make(chan os.Signal, 1)
		cancel := make(chan struct{})
		signal.Notify(term, os.Interrupt, syscall.SIGTERM)

		g.Add(func() error {
			select {
			case <-term:
				level.Info(logger).Log("msg", "received SIGTERM, exiting gracefully...")
				select {
				case rx <- message.Terminated{}:
				case <-cancel:
				}
			case <-cancel:
			}
			return nil
		}, func(error) {
			close(cancel)
		})
	}
	// Metrics server.
	{
		server := &http.Server{Addr: *metricsAddr}
		http.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{Registry: metrics.Registry}))
		g.Add(func() error {
			return server.ListenAndServe()
		}, func(error) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			server.Shutdown(ctx)
			cancel()
		})
	}
	// Event controller main loop.
	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			return ctrl.Run(ctx)
		}, func(error) {
			cancel()
		})
	}

	if err := g.Run(); err != nil {
		level.Error(logger).Log("msg", "exit with error", "err", err)
		os.Exit(1)
	}
}

// clientConfigFor builds a *rest.Config for one named context out of an
// already-loaded kubeconfig, without re-reading the file per context
// (clientcmdapi.Config is fully in memory once loaded).
func clientConfigFor(rawConfig *clientcmdapi.Config, contextName string) (*rest.Config, error) {
	overrides := &clientcmd.ConfigOverrides{CurrentContext: contextName}
	return clientcmd.NewNonInteractiveClientConfig(*rawConfig, contextName, overrides, clientcmd.NewDefaultClientConfigLoadingRules()).ClientConfig()
}

func setupLogger(lvl string) (log.Logger, error) {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))

	switch lvl {
	case logLevelDebug:
		logger = level.NewFilter(logger, level.AllowDebug())
	case logLevelInfo:
		logger = level.NewFilter(logger, level.AllowInfo())
	case logLevelWarn:
		logger = level.NewFilter(logger, level.AllowWarn())
	case logLevelError:
		logger = level.NewFilter(logger, level.AllowError())
	default:
		return nil, errors.Errorf("log level %q unknown, must be one of (%s)", lvl, strings.Join(validLogLevels, ", "))
	}
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	logger = log.With(logger, "caller", log.DefaultCaller)

	return logger, nil
}
