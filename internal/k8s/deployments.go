package k8s

import (
	"context"
	"fmt"
	"sort"

	appsv1 "k8s.io/api/apps/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
)

// ListDeployments lists apps/v1 Deployments in namespace and summarizes them,
// sorted by namespace and name.
func (c *kubernetesClient) ListDeployments(ctx context.Context, namespace string, opts ListOptions) ([]DeploymentSummary, error) {
	items, err := c.ListAll(ctx, namespace, DeploymentKind, opts)
	if err != nil {
		return nil, err
	}

	summaries := make([]DeploymentSummary, 0, len(items))
	for i := range items {
		summary, err := summarizeDeployment(&items[i])
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	sortSummaries(summaries)

	return summaries, nil
}

// ListDeploymentConfigs lists OpenShift DeploymentConfigs in namespace.
// It fails with ErrResourceNotServed on clusters without the OpenShift apps API.
func (c *kubernetesClient) ListDeploymentConfigs(ctx context.Context, namespace string, opts ListOptions) ([]DeploymentSummary, error) {
	items, err := c.ListAll(ctx, namespace, DeploymentConfigKind, opts)
	if err != nil {
		return nil, err
	}

	summaries := make([]DeploymentSummary, 0, len(items))
	for i := range items {
		summaries = append(summaries, summarizeDeploymentConfig(&items[i]))
	}
	sortSummaries(summaries)

	return summaries, nil
}

// summarizeDeployment converts an unstructured Deployment into its typed form
// and extracts the printed fields.
func summarizeDeployment(obj *unstructured.Unstructured) (DeploymentSummary, error) {
	var deployment appsv1.Deployment
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(obj.UnstructuredContent(), &deployment); err != nil {
		return DeploymentSummary{}, fmt.Errorf("failed to convert deployment %s/%s: %w", obj.GetNamespace(), obj.GetName(), err)
	}

	// The API server defaults spec.replicas to 1.
	replicas := int32(1)
	if deployment.Spec.Replicas != nil {
		replicas = *deployment.Spec.Replicas
	}

	var images []string
	for _, container := range deployment.Spec.Template.Spec.Containers {
		images = append(images, container.Image)
	}

	var selector map[string]string
	if deployment.Spec.Selector != nil {
		selector = deployment.Spec.Selector.MatchLabels
	}

	return DeploymentSummary{
		Name:              deployment.Name,
		Namespace:         deployment.Namespace,
		Kind:              DeploymentKind.Kind,
		Replicas:          replicas,
		ReadyReplicas:     deployment.Status.ReadyReplicas,
		UpdatedReplicas:   deployment.Status.UpdatedReplicas,
		AvailableReplicas: deployment.Status.AvailableReplicas,
		Images:            images,
		Selector:          selector,
		CreationTimestamp: deployment.CreationTimestamp.Time,
	}, nil
}

// summarizeDeploymentConfig reads the printed fields straight from the
// unstructured object; there is no typed DeploymentConfig in client-go.
func summarizeDeploymentConfig(obj *unstructured.Unstructured) DeploymentSummary {
	nestedInt32 := func(fields ...string) int32 {
		v, found, err := unstructured.NestedInt64(obj.Object, fields...)
		if err != nil || !found {
			return 0
		}
		return int32(v)
	}

	replicas := int32(1)
	if v, found, err := unstructured.NestedInt64(obj.Object, "spec", "replicas"); err == nil && found {
		replicas = int32(v)
	}

	var images []string
	containers, _, _ := unstructured.NestedSlice(obj.Object, "spec", "template", "spec", "containers")
	for _, container := range containers {
		fields, ok := container.(map[string]interface{})
		if !ok {
			continue
		}
		if image, ok := fields["image"].(string); ok {
			images = append(images, image)
		}
	}

	selector, _, _ := unstructured.NestedStringMap(obj.Object, "spec", "selector")

	return DeploymentSummary{
		Name:              obj.GetName(),
		Namespace:         obj.GetNamespace(),
		Kind:              DeploymentConfigKind.Kind,
		Replicas:          replicas,
		ReadyReplicas:     nestedInt32("status", "readyReplicas"),
		UpdatedReplicas:   nestedInt32("status", "updatedReplicas"),
		AvailableReplicas: nestedInt32("status", "availableReplicas"),
		Images:            images,
		Selector:          selector,
		CreationTimestamp: obj.GetCreationTimestamp().Time,
	}
}

func sortSummaries(summaries []DeploymentSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].Namespace != summaries[j].Namespace {
			return summaries[i].Namespace < summaries[j].Namespace
		}
		return summaries[i].Name < summaries[j].Name
	})
}
