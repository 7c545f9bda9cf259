package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for flux-kube.
const TracerName = "github.com/flux-framework/flux-kube"

// Span attribute keys.
const (
	// SpanAttrCommand is the CLI command name.
	SpanAttrCommand = "flux_kube.command"

	// SpanAttrContext is the kubeconfig context name.
	SpanAttrContext = "k8s.context"

	// SpanAttrClusterType is the classified cluster type attribute.
	SpanAttrClusterType = "k8s.cluster_type"

	// SpanAttrNamespace is the Kubernetes namespace.
	SpanAttrNamespace = "k8s.namespace"

	// SpanAttrNamespaces is the list of namespaces a command covers.
	SpanAttrNamespaces = "k8s.namespaces"

	// SpanAttrResourceType is the Kubernetes resource type.
	SpanAttrResourceType = "k8s.resource_type"

	// SpanAttrOperation is the operation type (list, discover).
	SpanAttrOperation = "k8s.operation"

	// SpanAttrItemCount is the number of items an operation returned.
	SpanAttrItemCount = "k8s.item_count"
)

// SpanAttributeBuilder helps construct OpenTelemetry span attributes
// with consistent naming and cardinality controls.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder creates a new SpanAttributeBuilder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{
		attrs: make([]attribute.KeyValue, 0, 8),
	}
}

// WithContext adds the kubeconfig context and its classified cluster type.
func (b *SpanAttributeBuilder) WithContext(kubeContext string) *SpanAttributeBuilder {
	if kubeContext != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrContext, kubeContext))
	}
	b.attrs = append(b.attrs, attribute.String(SpanAttrClusterType, ClassifyClusterName(kubeContext)))
	return b
}

// WithNamespaces adds the namespaces a command was asked to cover.
func (b *SpanAttributeBuilder) WithNamespaces(namespaces []string) *SpanAttributeBuilder {
	if len(namespaces) > 0 {
		b.attrs = append(b.attrs, attribute.StringSlice(SpanAttrNamespaces, namespaces))
	}
	return b
}

// WithItemCount adds the number of returned items.
func (b *SpanAttributeBuilder) WithItemCount(count int) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Int(SpanAttrItemCount, count))
	return b
}

// Build returns the constructed attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// StartCommandSpan starts the root span of a CLI command.
// The caller is responsible for ending the span with defer span.End().
func StartCommandSpan(ctx context.Context, command string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attribute.String(SpanAttrCommand, command))
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "command."+command,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartK8sSpan starts a span for Kubernetes API operations.
// Includes operation and resource attributes.
func StartK8sSpan(ctx context.Context, operation, resourceType, namespace string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+3)
	allAttrs = append(allAttrs, attribute.String(SpanAttrOperation, operation))
	if resourceType != "" {
		allAttrs = append(allAttrs, attribute.String(SpanAttrResourceType, resourceType))
	}
	if namespace != "" {
		allAttrs = append(allAttrs, attribute.String(SpanAttrNamespace, namespace))
	}
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "k8s."+operation,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace ID from the current span in context.
// Returns empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
