package k8s

import (
	"context"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// Client defines the interface for the Kubernetes operations flux-kube needs.
type Client interface {
	// Context Management Operations
	ContextManager

	// Generic Resource Operations
	ResourceLister

	// Deployment Operations
	DeploymentLister
}

// ContextManager handles Kubernetes context operations.
type ContextManager interface {
	// ListContexts returns all available Kubernetes contexts.
	ListContexts(ctx context.Context) ([]ContextInfo, error)

	// GetCurrentContext returns the context the client is bound to.
	GetCurrentContext(ctx context.Context) (*ContextInfo, error)

	// DefaultNamespace returns the namespace to use when none was requested.
	DefaultNamespace() string
}

// ResourceLister resolves kinds and lists arbitrary resources through the dynamic client.
type ResourceLister interface {
	// ResolveKind maps an apiVersion/kind pair to the served resource.
	ResolveKind(ctx context.Context, kind ResourceKind) (*ResourceMapping, error)

	// List retrieves a single page of resources.
	List(ctx context.Context, namespace string, kind ResourceKind, opts ListOptions) (*PaginatedListResponse, error)

	// ListAll follows continue tokens until every page has been retrieved.
	ListAll(ctx context.Context, namespace string, kind ResourceKind, opts ListOptions) ([]unstructured.Unstructured, error)
}

// DeploymentLister lists workloads and summarizes them for printing.
type DeploymentLister interface {
	// ListDeployments lists apps/v1 Deployments.
	ListDeployments(ctx context.Context, namespace string, opts ListOptions) ([]DeploymentSummary, error)

	// ListDeploymentConfigs lists OpenShift apps.openshift.io/v1 DeploymentConfigs.
	ListDeploymentConfigs(ctx context.Context, namespace string, opts ListOptions) ([]DeploymentSummary, error)
}

// MetricsRecorder receives Kubernetes operation measurements.
// It lets the client report metrics without depending on the instrumentation package.
type MetricsRecorder interface {
	RecordK8sOperation(ctx context.Context, operation, resourceType, namespace, status string, duration time.Duration)
}

// ContextInfo represents information about a Kubernetes context.
type ContextInfo struct {
	Name      string `json:"name"`
	Cluster   string `json:"cluster"`
	User      string `json:"user"`
	Namespace string `json:"namespace"`
	Current   bool   `json:"current"`
}

// ResourceKind identifies a resource by apiVersion and kind, the way it
// appears in a manifest.
type ResourceKind struct {
	APIVersion string `json:"apiVersion"`
	Kind       string `json:"kind"`
}

// String returns the kind in "apiVersion/Kind" form.
func (k ResourceKind) String() string {
	return k.APIVersion + "/" + k.Kind
}

// ResourceMapping is the result of resolving a ResourceKind.
type ResourceMapping struct {
	GVR        schema.GroupVersionResource `json:"gvr"`
	Kind       string                      `json:"kind"`
	Namespaced bool                        `json:"namespaced"`
}

// ListOptions provides configuration for list operations.
type ListOptions struct {
	LabelSelector string `json:"labelSelector,omitempty"`
	FieldSelector string `json:"fieldSelector,omitempty"`
	AllNamespaces bool   `json:"allNamespaces,omitempty"`

	// Pagination options
	Limit    int64  `json:"limit,omitempty"`    // Maximum number of items per page (0 = no limit)
	Continue string `json:"continue,omitempty"` // Continue token from previous request
}

// PaginatedListResponse contains one page of resources with metadata.
type PaginatedListResponse struct {
	Items           []unstructured.Unstructured `json:"items"`
	Continue        string                      `json:"continue,omitempty"`
	RemainingItems  *int64                      `json:"remainingItems,omitempty"`
	ResourceVersion string                      `json:"resourceVersion,omitempty"`
	TotalItems      int                         `json:"totalItems"`
}

// DeploymentSummary holds the per-item fields flux-kube prints.
type DeploymentSummary struct {
	Name              string            `json:"name"`
	Namespace         string            `json:"namespace"`
	Kind              string            `json:"kind"`
	Replicas          int32             `json:"replicas"`
	ReadyReplicas     int32             `json:"readyReplicas"`
	UpdatedReplicas   int32             `json:"updatedReplicas"`
	AvailableReplicas int32             `json:"availableReplicas"`
	Images            []string          `json:"images,omitempty"`
	Selector          map[string]string `json:"selector,omitempty"`
	CreationTimestamp time.Time         `json:"creationTimestamp"`
}
