package k8s

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/dynamic"

	"github.com/flux-framework/flux-kube/internal/instrumentation"
	"github.com/flux-framework/flux-kube/internal/logging"
)

// List retrieves a single page of resources of the given kind.
func (c *kubernetesClient) List(ctx context.Context, namespace string, kind ResourceKind, opts ListOptions) (*PaginatedListResponse, error) {
	mapping, err := c.ResolveKind(ctx, kind)
	if err != nil {
		return nil, err
	}

	dynamicClient, err := c.getDynamicClient()
	if err != nil {
		return nil, err
	}

	return c.listPage(ctx, dynamicClient, mapping, namespace, opts)
}

// ListAll retrieves every resource of the given kind, following continue
// tokens until the server reports no more pages.
func (c *kubernetesClient) ListAll(ctx context.Context, namespace string, kind ResourceKind, opts ListOptions) ([]unstructured.Unstructured, error) {
	mapping, err := c.ResolveKind(ctx, kind)
	if err != nil {
		return nil, err
	}

	dynamicClient, err := c.getDynamicClient()
	if err != nil {
		return nil, err
	}

	var items []unstructured.Unstructured
	pages := 0
	for {
		page, err := c.listPage(ctx, dynamicClient, mapping, namespace, opts)
		if err != nil {
			return nil, err
		}
		pages++
		items = append(items, page.Items...)

		if page.Continue == "" {
			break
		}
		opts.Continue = page.Continue
	}

	c.logger.Debug("listed all pages",
		logging.Operation(OperationList),
		logging.ResourceType(mapping.GVR.Resource),
		logging.Namespace(namespace),
		logging.Count(len(items)),
		slog.Int("pages", pages))

	return items, nil
}

// listPage issues one list call against the resolved resource.
func (c *kubernetesClient) listPage(ctx context.Context, dynamicClient dynamic.Interface, mapping *ResourceMapping, namespace string, opts ListOptions) (*PaginatedListResponse, error) {
	resourceType := mapping.GVR.Resource
	scope := namespace
	if opts.AllNamespaces || !mapping.Namespaced {
		scope = ""
	}

	ctx, span := instrumentation.StartK8sSpan(ctx, OperationList, resourceType, scope,
		attribute.String("k8s.gvr", mapping.GVR.String()),
		attribute.Bool("k8s.all_namespaces", opts.AllNamespaces),
	)
	defer span.End()

	listOpts := metav1.ListOptions{
		LabelSelector: opts.LabelSelector,
		FieldSelector: opts.FieldSelector,
	}
	if opts.Limit > 0 {
		listOpts.Limit = opts.Limit
	}
	if opts.Continue != "" {
		listOpts.Continue = opts.Continue
	}

	var resourceInterface dynamic.ResourceInterface
	if scope != "" {
		resourceInterface = dynamicClient.Resource(mapping.GVR).Namespace(scope)
	} else {
		resourceInterface = dynamicClient.Resource(mapping.GVR)
	}

	listStart := time.Now()
	list, err := resourceInterface.List(ctx, listOpts)
	elapsed := time.Since(listStart)
	if err != nil {
		c.metrics.RecordK8sOperation(ctx, OperationList, resourceType, scope, StatusError, elapsed)
		c.logger.Debug("K8s API list failed",
			logging.Operation(OperationList),
			logging.Status(StatusError),
			logging.ResourceType(resourceType),
			logging.Namespace(scope),
			slog.Duration("elapsed", elapsed),
			logging.SanitizedErr(err))
		err = classifyError(err, OperationList, resourceType, scope)
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	c.metrics.RecordK8sOperation(ctx, OperationList, resourceType, scope, StatusSuccess, elapsed)
	c.logger.Debug("K8s API list completed",
		logging.Operation(OperationList),
		logging.Status(StatusSuccess),
		logging.ResourceType(resourceType),
		logging.Namespace(scope),
		logging.Count(len(list.Items)),
		slog.Duration("elapsed", elapsed))

	span.SetAttributes(attribute.Int(instrumentation.SpanAttrItemCount, len(list.Items)))
	instrumentation.SetSpanSuccess(span)

	response := &PaginatedListResponse{
		Items:           list.Items,
		Continue:        list.GetContinue(),
		RemainingItems:  list.GetRemainingItemCount(),
		ResourceVersion: list.GetResourceVersion(),
		TotalItems:      len(list.Items),
	}
	if response.Continue != "" && response.RemainingItems == nil {
		remaining := int64(-1)
		response.RemainingItems = &remaining
	}

	return response, nil
}

