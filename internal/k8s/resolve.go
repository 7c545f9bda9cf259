package k8s

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/discovery"

	"github.com/flux-framework/flux-kube/internal/instrumentation"
	"github.com/flux-framework/flux-kube/internal/logging"
)

// discoveredKind is a cached discovery answer: a mapping, or the
// ErrResourceNotServed error for a kind the server does not serve.
type discoveredKind struct {
	mapping ResourceMapping
	err     error
}

func (d discoveredKind) result() (*ResourceMapping, error) {
	if d.err != nil {
		return nil, d.err
	}
	mapping := d.mapping
	return &mapping, nil
}

// ResolveKind maps an apiVersion/kind pair to the resource that serves it.
// Discovery answers are cached on the client and concurrent lookups of the
// same kind share one discovery call.
func (c *kubernetesClient) ResolveKind(ctx context.Context, kind ResourceKind) (*ResourceMapping, error) {
	gv, err := schema.ParseGroupVersion(kind.APIVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid apiVersion %q: %w", kind.APIVersion, err)
	}
	if kind.Kind == "" {
		return nil, fmt.Errorf("kind is required")
	}

	gvk := gv.WithKind(kind.Kind)
	if mapping, exists := c.builtinResources[gvk]; exists {
		return &mapping, nil
	}
	if cached, ok := c.cachedKind(gvk); ok {
		return cached.result()
	}

	v, err, _ := c.discoveryGroup.Do(gvk.String(), func() (interface{}, error) {
		if cached, ok := c.cachedKind(gvk); ok {
			return cached, nil
		}
		return c.resolveViaDiscovery(ctx, gvk)
	})
	if err != nil {
		return nil, err
	}
	return v.(discoveredKind).result()
}

// resolveViaDiscovery asks the server for gvk and caches definitive answers.
// Transport and authorization failures are returned as errors and not cached.
func (c *kubernetesClient) resolveViaDiscovery(ctx context.Context, gvk schema.GroupVersionKind) (discoveredKind, error) {
	ctx, span := instrumentation.StartK8sSpan(ctx, OperationDiscover, gvk.Kind, "",
		attribute.String("k8s.api_version", gvk.GroupVersion().String()),
	)
	defer span.End()

	start := time.Now()
	discoveryClient, err := c.getDiscoveryClient()
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return discoveredKind{}, err
	}

	mapping, err := discoverKind(ctx, discoveryClient, gvk.GroupVersion(), gvk.Kind)
	status := StatusSuccess
	if err != nil {
		status = StatusError
		instrumentation.SetSpanError(span, err)
	}
	c.metrics.RecordK8sOperation(ctx, OperationDiscover, gvk.Kind, "", status, time.Since(start))

	switch {
	case errors.Is(err, ErrResourceNotServed):
		c.logger.Debug("kind not served",
			logging.Operation(OperationDiscover),
			logging.ResourceType(gvk.String()))
		result := discoveredKind{err: err}
		c.storeKind(gvk, result)
		return result, nil
	case err != nil:
		c.logger.Debug("kind resolution failed",
			logging.Operation(OperationDiscover),
			logging.ResourceType(gvk.String()),
			logging.SanitizedErr(err))
		return discoveredKind{}, err
	}

	c.logger.Debug("resolved kind via discovery",
		logging.Operation(OperationDiscover),
		logging.ResourceType(gvk.String()),
		slog.String("gvr", mapping.GVR.String()),
		slog.Bool("namespaced", mapping.Namespaced))
	result := discoveredKind{mapping: *mapping}
	c.storeKind(gvk, result)
	return result, nil
}

func (c *kubernetesClient) cachedKind(gvk schema.GroupVersionKind) (discoveredKind, bool) {
	c.discoveredMu.RLock()
	defer c.discoveredMu.RUnlock()
	d, ok := c.discovered[gvk]
	return d, ok
}

func (c *kubernetesClient) storeKind(gvk schema.GroupVersionKind, d discoveredKind) {
	c.discoveredMu.Lock()
	defer c.discoveredMu.Unlock()
	if c.discovered == nil {
		c.discovered = make(map[schema.GroupVersionKind]discoveredKind)
	}
	c.discovered[gvk] = d
}

// discoverKind looks kind up in the resource list the server publishes for gv.
// The name may be a Kind, a plural or singular resource name, or a short name.
func discoverKind(ctx context.Context, discoveryClient discovery.DiscoveryInterface, gv schema.GroupVersion, name string) (*ResourceMapping, error) {
	ctx, cancel := context.WithTimeout(ctx, DiscoveryTimeoutSeconds*time.Second)
	defer cancel()

	type discoveryResult struct {
		resourceList *metav1.APIResourceList
		err          error
	}

	resultChan := make(chan discoveryResult, 1)
	go func() {
		resourceList, err := discoveryClient.ServerResourcesForGroupVersion(gv.String())
		resultChan <- discoveryResult{resourceList: resourceList, err: err}
	}()

	var resourceList *metav1.APIResourceList
	select {
	case result := <-resultChan:
		if result.err != nil {
			if apierrors.IsNotFound(result.err) {
				return nil, fmt.Errorf("%w: %s/%s", ErrResourceNotServed, gv.String(), name)
			}
			return nil, classifyError(result.err, OperationDiscover, gv.String(), "")
		}
		resourceList = result.resourceList
	case <-ctx.Done():
		return nil, fmt.Errorf("API discovery for %s timed out: %w", gv.String(), ctx.Err())
	}

	if resourceList == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrResourceNotServed, gv.String(), name)
	}

	wanted := strings.ToLower(name)
	for _, resource := range resourceList.APIResources {
		// Subresources such as deployments/scale share the parent's kind.
		if strings.Contains(resource.Name, "/") {
			continue
		}

		matches := []string{
			strings.ToLower(resource.Name),
			strings.ToLower(resource.Kind),
			strings.ToLower(resource.SingularName),
		}
		for _, shortName := range resource.ShortNames {
			matches = append(matches, strings.ToLower(shortName))
		}

		for _, match := range matches {
			if match == wanted {
				return &ResourceMapping{
					GVR:        gv.WithResource(resource.Name),
					Kind:       resource.Kind,
					Namespaced: resource.Namespaced,
				}, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %s/%s", ErrResourceNotServed, gv.String(), name)
}
