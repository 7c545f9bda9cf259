package k8s

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"

	"github.com/flux-framework/flux-kube/internal/logging"
)

// kubernetesClient implements the Client interface using client-go.
// It is bound to a single context for its whole lifetime.
type kubernetesClient struct {
	config *ClientConfig

	// Clients are built on first use so commands that never reach the
	// API server (contexts, version) do not need a reachable cluster.
	restConfig      lazyValue[*rest.Config]
	dynamicClient   lazyValue[dynamic.Interface]
	discoveryClient lazyValue[discovery.DiscoveryInterface]

	// Kubeconfig management
	kubeconfigData *clientcmdapi.Config
	currentContext string

	builtinResources map[schema.GroupVersionKind]ResourceMapping

	// Kinds resolved through discovery, keyed by the requested kind.
	discoveredMu   sync.RWMutex
	discovered     map[schema.GroupVersionKind]discoveredKind
	discoveryGroup singleflight.Group

	// prepared clients were handed their API clients and have no REST config.
	prepared bool

	logger  Logger
	metrics MetricsRecorder
}

// ClientConfig holds configuration for the Kubernetes client.
type ClientConfig struct {
	// Kubeconfig settings
	KubeconfigPath string
	Context        string

	// Authentication mode
	InCluster bool // Use in-cluster service account authentication instead of kubeconfig

	// BearerToken, when set, replaces whatever credentials the kubeconfig
	// or service account would provide.
	BearerToken string

	// Performance settings
	QPSLimit   float32
	BurstLimit int
	Timeout    time.Duration

	Logger  Logger
	Metrics MetricsRecorder
}

// Logger interface for client logging.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

type noopMetrics struct{}

func (noopMetrics) RecordK8sOperation(context.Context, string, string, string, string, time.Duration) {
}

// NewClient creates a new Kubernetes client with the given configuration.
func NewClient(config *ClientConfig) (*kubernetesClient, error) {
	if config == nil {
		return nil, fmt.Errorf("client configuration is required")
	}

	client := newBaseClient(config)

	if config.InCluster {
		client.currentContext = InClusterContext

		if err := validateInClusterEnvironment(); err != nil {
			return nil, fmt.Errorf("in-cluster authentication not available: %w", err)
		}

		client.logger.Debug("Using in-cluster authentication")
		return client, nil
	}

	if err := client.loadKubeconfig(); err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}

	if config.Context != "" {
		client.currentContext = config.Context
	} else {
		client.currentContext = client.kubeconfigData.CurrentContext
	}

	if _, exists := client.kubeconfigData.Contexts[client.currentContext]; !exists && client.currentContext != "" {
		return nil, fmt.Errorf("%w: %q", ErrContextNotFound, client.currentContext)
	}

	client.logger.Debug("Using kubeconfig authentication", logging.Context(client.currentContext))
	return client, nil
}

// NewPreparedClient creates a client around already constructed dynamic and
// discovery clients. No kubeconfig is read; the client reports a single
// synthetic context named after config.Context.
func NewPreparedClient(config *ClientConfig, dynamicClient dynamic.Interface, discoveryClient discovery.DiscoveryInterface) (*kubernetesClient, error) {
	if config == nil {
		return nil, fmt.Errorf("client configuration is required")
	}
	if dynamicClient == nil {
		return nil, fmt.Errorf("dynamic client is required")
	}

	client := newBaseClient(config)
	client.currentContext = config.Context
	client.prepared = true
	client.dynamicClient.Set(dynamicClient)
	if discoveryClient != nil {
		client.discoveryClient.Set(discoveryClient)
	}
	return client, nil
}

func newBaseClient(config *ClientConfig) *kubernetesClient {
	if config.QPSLimit == 0 {
		config.QPSLimit = DefaultQPSLimit
	}
	if config.BurstLimit == 0 {
		config.BurstLimit = DefaultBurstLimit
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout * time.Second
	}

	client := &kubernetesClient{
		config:           config,
		builtinResources: initBuiltinResources(),
		logger:           config.Logger,
		metrics:          config.Metrics,
	}
	if client.logger == nil {
		client.logger = noopLogger{}
	}
	if client.metrics == nil {
		client.metrics = noopMetrics{}
	}
	return client
}

// validateInClusterEnvironment checks if the required in-cluster authentication files are present.
func validateInClusterEnvironment() error {
	if _, err := os.Stat(DefaultTokenPath); os.IsNotExist(err) {
		return fmt.Errorf("service account token not found at %s", DefaultTokenPath)
	}

	if _, err := os.Stat(DefaultCACertPath); os.IsNotExist(err) {
		return fmt.Errorf("service account CA certificate not found at %s", DefaultCACertPath)
	}

	if _, err := os.Stat(DefaultNamespacePath); os.IsNotExist(err) {
		return fmt.Errorf("service account namespace not found at %s", DefaultNamespacePath)
	}

	return nil
}

// expandHome resolves a leading "~/" against the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// loadingRules returns the kubeconfig loading rules for this client.
func (c *kubernetesClient) loadingRules() *clientcmd.ClientConfigLoadingRules {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if c.config.KubeconfigPath != "" {
		rules.ExplicitPath = c.config.KubeconfigPath
	}
	return rules
}

// loadKubeconfig loads the kubeconfig from the specified path or default locations.
func (c *kubernetesClient) loadKubeconfig() error {
	if c.config.KubeconfigPath != "" {
		c.config.KubeconfigPath = expandHome(c.config.KubeconfigPath)
	} else if kconf := os.Getenv(clientcmd.RecommendedConfigPathEnvVar); kconf != "" && !strings.Contains(kconf, string(os.PathListSeparator)) {
		// A single KUBECONFIG entry may use "~/", which client-go does not expand.
		c.config.KubeconfigPath = expandHome(kconf)
	}

	config := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		c.loadingRules(),
		&clientcmd.ConfigOverrides{},
	)

	rawConfig, err := config.RawConfig()
	if err != nil {
		return err
	}
	c.kubeconfigData = &rawConfig

	return nil
}

// getRestConfig returns the rest.Config for the bound context.
func (c *kubernetesClient) getRestConfig() (*rest.Config, error) {
	return c.restConfig.Get(c.buildRestConfig)
}

func (c *kubernetesClient) buildRestConfig() (*rest.Config, error) {
	if c.prepared {
		return nil, fmt.Errorf("client for context %q was created without a REST config", c.currentContext)
	}

	var restConfig *rest.Config
	var err error

	if c.config.InCluster {
		restConfig, err = rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to create in-cluster rest config: %w", err)
		}
	} else {
		contextConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
			c.loadingRules(),
			&clientcmd.ConfigOverrides{
				CurrentContext: c.currentContext,
			},
		)

		restConfig, err = contextConfig.ClientConfig()
		if err != nil {
			if clientcmd.IsEmptyConfig(err) {
				return nil, fmt.Errorf("%w: %s: %w", ErrNotLoggedIn, loginHint, err)
			}
			return nil, fmt.Errorf("failed to create rest config for context %q: %w", c.currentContext, err)
		}
	}

	c.logger.Debug("built REST config",
		logging.Context(c.currentContext),
		logging.Cluster(c.clusterName()),
		logging.Host(restConfig.Host),
		slog.Float64("qps", float64(c.config.QPSLimit)),
		slog.Int("burst", c.config.BurstLimit),
		slog.Duration("timeout", c.config.Timeout),
	)

	restConfig.QPS = c.config.QPSLimit
	restConfig.Burst = c.config.BurstLimit
	restConfig.Timeout = c.config.Timeout

	if c.config.BearerToken != "" {
		c.logger.Debug("Using bearer token instead of context credentials",
			logging.Context(c.currentContext),
			slog.String("token", logging.SanitizeToken(c.config.BearerToken)))
		applyBearerToken(restConfig, c.config.BearerToken)
	}

	return restConfig, nil
}

// clusterName returns the cluster of the bound context, or the context name
// when running in-cluster.
func (c *kubernetesClient) clusterName() string {
	if c.kubeconfigData != nil {
		if contextInfo, exists := c.kubeconfigData.Contexts[c.currentContext]; exists {
			return contextInfo.Cluster
		}
	}
	return c.currentContext
}

// applyBearerToken drops the credentials carried by restConfig and
// authenticates every request with token instead.
func applyBearerToken(restConfig *rest.Config, token string) {
	restConfig.BearerToken = ""
	restConfig.BearerTokenFile = ""
	restConfig.Username = ""
	restConfig.Password = ""
	restConfig.AuthProvider = nil
	restConfig.ExecProvider = nil
	restConfig.CertFile = ""
	restConfig.KeyFile = ""
	restConfig.CertData = nil
	restConfig.KeyData = nil

	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	restConfig.Wrap(func(rt http.RoundTripper) http.RoundTripper {
		return &oauth2.Transport{Source: source, Base: rt}
	})
}

// getDynamicClient returns the dynamic client for the bound context.
func (c *kubernetesClient) getDynamicClient() (dynamic.Interface, error) {
	return c.dynamicClient.Get(func() (dynamic.Interface, error) {
		restConfig, err := c.getRestConfig()
		if err != nil {
			return nil, err
		}
		dynamicClient, err := dynamic.NewForConfig(restConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create dynamic client for context %q: %w", c.currentContext, err)
		}
		return dynamicClient, nil
	})
}

// getDiscoveryClient returns the discovery client for the bound context.
func (c *kubernetesClient) getDiscoveryClient() (discovery.DiscoveryInterface, error) {
	return c.discoveryClient.Get(func() (discovery.DiscoveryInterface, error) {
		restConfig, err := c.getRestConfig()
		if err != nil {
			return nil, err
		}
		discoveryClient, err := discovery.NewDiscoveryClientForConfig(restConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create discovery client for context %q: %w", c.currentContext, err)
		}
		return discoveryClient, nil
	})
}

// ContextManager implementation

func inClusterContextInfo() ContextInfo {
	return ContextInfo{
		Name:      InClusterContext,
		Cluster:   InClusterContext,
		User:      "serviceaccount",
		Namespace: getInClusterNamespace(),
		Current:   true,
	}
}

// ListContexts returns all kubeconfig contexts sorted by name.
func (c *kubernetesClient) ListContexts(ctx context.Context) ([]ContextInfo, error) {
	if c.config.InCluster {
		return []ContextInfo{inClusterContextInfo()}, nil
	}

	if c.kubeconfigData == nil {
		return []ContextInfo{{Name: c.currentContext, Namespace: c.DefaultNamespace(), Current: true}}, nil
	}

	contexts := make([]ContextInfo, 0, len(c.kubeconfigData.Contexts))
	for contextName, contextInfo := range c.kubeconfigData.Contexts {
		contexts = append(contexts, ContextInfo{
			Name:      contextName,
			Cluster:   contextInfo.Cluster,
			User:      contextInfo.AuthInfo,
			Namespace: contextInfo.Namespace,
			Current:   contextName == c.currentContext,
		})
	}
	sort.Slice(contexts, func(i, j int) bool { return contexts[i].Name < contexts[j].Name })

	return contexts, nil
}

// GetCurrentContext returns the currently active context.
func (c *kubernetesClient) GetCurrentContext(ctx context.Context) (*ContextInfo, error) {
	if c.config.InCluster {
		info := inClusterContextInfo()
		return &info, nil
	}

	if c.kubeconfigData == nil {
		return &ContextInfo{Name: c.currentContext, Namespace: c.DefaultNamespace(), Current: true}, nil
	}

	contextInfo, exists := c.kubeconfigData.Contexts[c.currentContext]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrContextNotFound, c.currentContext)
	}

	return &ContextInfo{
		Name:      c.currentContext,
		Cluster:   contextInfo.Cluster,
		User:      contextInfo.AuthInfo,
		Namespace: contextInfo.Namespace,
		Current:   true,
	}, nil
}

// DefaultNamespace returns the namespace used when the caller names none:
// the context (or service account) namespace, then "default".
func (c *kubernetesClient) DefaultNamespace() string {
	if c.config.InCluster {
		return getInClusterNamespace()
	}
	if c.kubeconfigData != nil {
		if contextInfo, exists := c.kubeconfigData.Contexts[c.currentContext]; exists && contextInfo.Namespace != "" {
			return contextInfo.Namespace
		}
	}
	return FallbackNamespace
}

// getInClusterNamespace reads the namespace from the service account namespace file.
func getInClusterNamespace() string {
	data, err := os.ReadFile(DefaultNamespacePath)
	if err != nil {
		return FallbackNamespace
	}
	if ns := strings.TrimSpace(string(data)); ns != "" {
		return ns
	}
	return FallbackNamespace
}
