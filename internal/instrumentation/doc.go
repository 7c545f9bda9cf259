// Package instrumentation provides OpenTelemetry instrumentation for flux-kube.
//
// Instrumentation is off by default. When enabled it offers:
//   - OpenTelemetry metrics for command invocations and Kubernetes API calls
//   - Distributed tracing for commands and the list/discovery calls they make
//   - Prometheus export through a private registry, pushed to a Pushgateway
//     when the process shuts down
//   - OTLP and stdout export for traces and metrics
//
// # Metrics
//
//   - command_invocations_total / command_duration_seconds: by command,
//     cluster_type (classified kubeconfig context) and status
//   - kubernetes_operations_total / kubernetes_operation_duration_seconds: by
//     operation and status; resource_type and namespace are added only with
//     METRICS_DETAILED_LABELS=true
//   - deployments_listed_total: workloads returned, by kind
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: false)
//   - METRICS_EXPORTER: prometheus, otlp, stdout or none (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_EXPORTER_OTLP_INSECURE: use plain HTTP for OTLP
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 1.0)
//   - OTEL_SERVICE_NAME: Service name (default: flux-kube)
//   - PROMETHEUS_PUSHGATEWAY_URL / PROMETHEUS_PUSHGATEWAY_JOB: push target
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordK8sOperation(ctx, "list", "deployments", "default", "success", time.Since(start))
package instrumentation
