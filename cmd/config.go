package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/flux-framework/flux-kube/internal/instrumentation"
	"github.com/flux-framework/flux-kube/internal/k8s"
	"github.com/flux-framework/flux-kube/internal/logging"
)

// Environment variables read when the matching flag was not set.
const (
	envNamespace  = "FLUX_KUBE_NAMESPACE"
	envContext    = "FLUX_KUBE_CONTEXT"
	envToken      = "FLUX_KUBE_TOKEN"
	envLogFormat  = "FLUX_KUBE_LOG_FORMAT"
	envInCluster  = "FLUX_KUBE_IN_CLUSTER"
	envQPSLimit   = "FLUX_KUBE_QPS_LIMIT"
	envBurstLimit = "FLUX_KUBE_BURST_LIMIT"
	envTimeout    = "FLUX_KUBE_TIMEOUT"
)

// envValueTrue is the string value used to enable boolean environment variables.
const envValueTrue = "true"

// shutdownTimeout bounds the final metrics push and exporter flush.
const shutdownTimeout = 5 * time.Second

// rootOptions holds the global flags shared by every subcommand together
// with the process-wide state set up before a command runs.
type rootOptions struct {
	kubeconfig string
	context    string
	inCluster  bool
	token      string
	qpsLimit   float32
	burstLimit int
	timeout    time.Duration
	debug      bool
	logFormat  string
	envFile    string

	logger   *slog.Logger
	provider *instrumentation.Provider
}

func (o *rootOptions) addFlags(flags *pflag.FlagSet) {
	flags.StringVar(&o.kubeconfig, "kubeconfig", "", "Path to the kubeconfig file (default: $KUBECONFIG or ~/.kube/config)")
	flags.StringVar(&o.context, "context", "", "Kubeconfig context to use (can also be set via FLUX_KUBE_CONTEXT env var)")
	flags.BoolVar(&o.inCluster, "in-cluster", false, "Use in-cluster authentication (service account token) instead of kubeconfig")
	flags.StringVar(&o.token, "token", "", "Bearer token used instead of the kubeconfig credentials (can also be set via FLUX_KUBE_TOKEN env var)")
	flags.Float32Var(&o.qpsLimit, "qps-limit", k8s.DefaultQPSLimit, "QPS limit for Kubernetes API calls")
	flags.IntVar(&o.burstLimit, "burst-limit", k8s.DefaultBurstLimit, "Burst limit for Kubernetes API calls")
	flags.DurationVar(&o.timeout, "timeout", k8s.DefaultTimeout*time.Second, "Timeout for a single Kubernetes API request")
	flags.BoolVar(&o.debug, "debug", false, "Enable debug logging")
	flags.StringVar(&o.logFormat, "log-format", logging.FormatText, "Log format: text or json (can also be set via FLUX_KUBE_LOG_FORMAT env var)")
	flags.StringVar(&o.envFile, "env-file", ".env", "Environment file loaded before flags are resolved; missing files are ignored")
}

// complete loads the environment file, applies environment fallbacks and
// sets up logging and instrumentation for the command about to run.
func (o *rootOptions) complete(cmd *cobra.Command) error {
	if err := loadEnvFile(o.envFile); err != nil {
		return err
	}
	o.loadEnvVars(cmd)

	logger, err := logging.Setup(cmd.ErrOrStderr(), o.logFormat, o.debug)
	if err != nil {
		return err
	}
	o.logger = logger

	config := instrumentation.DefaultConfig()
	config.ServiceVersion = rootCmd.Version
	config.Writer = cmd.ErrOrStderr()
	provider, err := instrumentation.NewProvider(cmd.Context(), config)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	o.provider = provider
	logger.Debug("Instrumentation configured",
		slog.Bool("enabled", provider.Enabled()),
		slog.String("metrics_exporter", config.MetricsExporter),
		slog.String("tracing_exporter", config.TracingExporter))

	return nil
}

// shutdown flushes instrumentation and logs any failure.
func (o *rootOptions) shutdown() {
	if o.provider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := o.provider.Shutdown(ctx); err != nil {
		o.log().Warn("Instrumentation shutdown failed", logging.Err(err))
	}
	o.provider = nil
}

func (o *rootOptions) log() *slog.Logger {
	if o.logger == nil {
		return slog.Default()
	}
	return o.logger
}

// metrics returns the command metrics, or nil before complete has run.
// Every Metrics method accepts a nil receiver.
func (o *rootOptions) metrics() *instrumentation.Metrics {
	if o.provider == nil {
		return nil
	}
	return o.provider.Metrics()
}

// clientConfig builds the Kubernetes client configuration from the flags.
func (o *rootOptions) clientConfig() *k8s.ClientConfig {
	config := &k8s.ClientConfig{
		KubeconfigPath: o.kubeconfig,
		Context:        o.context,
		InCluster:      o.inCluster,
		BearerToken:    o.token,
		QPSLimit:       o.qpsLimit,
		BurstLimit:     o.burstLimit,
		Timeout:        o.timeout,
		Logger:         logging.NewSlogAdapter(o.log()),
	}
	if metrics := o.metrics(); metrics != nil {
		config.Metrics = metrics
	}
	return config
}

// loadEnvVars applies environment variables to the global flags that were
// not explicitly set on the command line.
func (o *rootOptions) loadEnvVars(cmd *cobra.Command) {
	flags := cmd.Flags()

	if !flags.Changed("context") {
		loadEnvIfEmpty(&o.context, envContext)
	}
	if !flags.Changed("token") {
		loadEnvIfEmpty(&o.token, envToken)
	}
	if !flags.Changed("log-format") {
		if format := os.Getenv(envLogFormat); format != "" {
			o.logFormat = format
		}
	}
	if !flags.Changed("in-cluster") {
		if os.Getenv(envInCluster) == envValueTrue {
			o.inCluster = true
		}
	}
	if !flags.Changed("qps-limit") {
		if f, ok := parseFloat32Env(os.Getenv(envQPSLimit), envQPSLimit); ok {
			o.qpsLimit = f
		}
	}
	if !flags.Changed("burst-limit") {
		if n, ok := parseIntEnv(os.Getenv(envBurstLimit), envBurstLimit); ok {
			o.burstLimit = n
		}
	}
	if !flags.Changed("timeout") {
		if d, ok := parseDurationEnv(os.Getenv(envTimeout), envTimeout); ok {
			o.timeout = d
		}
	}
}

// loadEnvFile loads path into the process environment without overriding
// variables that are already set.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load environment file %s: %w", path, err)
	}
	return nil
}

// loadEnvIfEmpty loads an environment variable into a string pointer if it's empty.
func loadEnvIfEmpty(target *string, envKey string) {
	if *target == "" {
		*target = os.Getenv(envKey)
	}
}

// parseDurationEnv parses a duration from an environment variable value.
// Returns the parsed duration and true if successful, or zero and false if parsing fails.
// Logs a warning if the value is present but invalid.
func parseDurationEnv(value, envName string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("Ignoring invalid duration", "env", envName, "value", value, logging.Err(err))
		return 0, false
	}
	return d, true
}

// parseIntEnv parses an integer from an environment variable value.
func parseIntEnv(value, envName string) (int, bool) {
	if value == "" {
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("Ignoring invalid integer", "env", envName, "value", value, logging.Err(err))
		return 0, false
	}
	return n, true
}

// parseFloat32Env parses a float32 from an environment variable value.
func parseFloat32Env(value, envName string) (float32, bool) {
	if value == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 32)
	if err != nil {
		slog.Warn("Ignoring invalid float", "env", envName, "value", value, logging.Err(err))
		return 0, false
	}
	return float32(f), true
}
