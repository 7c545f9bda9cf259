package k8s

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/discovery"
	discoveryfake "k8s.io/client-go/discovery/fake"
	"k8s.io/client-go/dynamic"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	k8stesting "k8s.io/client-go/testing"
)

var (
	deploymentsGVR       = schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "deployments"}
	deploymentConfigsGVR = schema.GroupVersionResource{Group: "apps.openshift.io", Version: "v1", Resource: "deploymentconfigs"}
)

// newFakeDynamicClient creates a fake dynamic client that knows the list
// kinds of the workloads flux-kube lists.
func newFakeDynamicClient(objects ...runtime.Object) *dynamicfake.FakeDynamicClient {
	gvrToListKind := map[schema.GroupVersionResource]string{
		deploymentsGVR:       "DeploymentList",
		deploymentConfigsGVR: "DeploymentConfigList",
	}
	return dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(), gvrToListKind, objects...)
}

// newFakeDiscovery returns a discovery client serving the given resource lists.
func newFakeDiscovery(resources ...*metav1.APIResourceList) *discoveryfake.FakeDiscovery {
	return &discoveryfake.FakeDiscovery{
		Fake: &k8stesting.Fake{Resources: resources},
	}
}

// openShiftAppsResources is the discovery document of apps.openshift.io/v1.
func openShiftAppsResources() *metav1.APIResourceList {
	return &metav1.APIResourceList{
		GroupVersion: "apps.openshift.io/v1",
		APIResources: []metav1.APIResource{
			{Name: "deploymentconfigs", SingularName: "deploymentconfig", Namespaced: true, Kind: "DeploymentConfig", ShortNames: []string{"dc"}},
			{Name: "deploymentconfigs/scale", Namespaced: true, Kind: "Scale"},
		},
	}
}

// newTestClient builds a prepared client around the fakes.
func newTestClient(t *testing.T, dynamicClient dynamic.Interface, discoveryClient discovery.DiscoveryInterface, metrics MetricsRecorder) *kubernetesClient {
	t.Helper()
	client, err := NewPreparedClient(&ClientConfig{Context: "fake", Metrics: metrics}, dynamicClient, discoveryClient)
	require.NoError(t, err)
	return client
}

// createTestDeployment creates an unstructured apps/v1 Deployment.
func createTestDeployment(name, namespace string, replicas int64, labels map[string]string, images ...string) *unstructured.Unstructured {
	containers := make([]interface{}, 0, len(images))
	for i, image := range images {
		containers = append(containers, map[string]interface{}{
			"name":  name + "-" + string(rune('a'+i)),
			"image": image,
		})
	}

	metadata := map[string]interface{}{
		"name":              name,
		"namespace":         namespace,
		"creationTimestamp": "2024-01-02T03:04:05Z",
	}
	if len(labels) > 0 {
		l := make(map[string]interface{}, len(labels))
		for k, v := range labels {
			l[k] = v
		}
		metadata["labels"] = l
	}

	return &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": "apps/v1",
			"kind":       "Deployment",
			"metadata":   metadata,
			"spec": map[string]interface{}{
				"replicas": replicas,
				"selector": map[string]interface{}{
					"matchLabels": map[string]interface{}{"app": name},
				},
				"template": map[string]interface{}{
					"spec": map[string]interface{}{
						"containers": containers,
					},
				},
			},
			"status": map[string]interface{}{
				"readyReplicas":     replicas,
				"updatedReplicas":   replicas,
				"availableReplicas": replicas,
			},
		},
	}
}

// createTestDeploymentConfig creates an unstructured OpenShift DeploymentConfig.
func createTestDeploymentConfig(name, namespace string, replicas int64, image string) *unstructured.Unstructured {
	return &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": "apps.openshift.io/v1",
			"kind":       "DeploymentConfig",
			"metadata": map[string]interface{}{
				"name":      name,
				"namespace": namespace,
			},
			"spec": map[string]interface{}{
				"replicas": replicas,
				"selector": map[string]interface{}{"deploymentconfig": name},
				"template": map[string]interface{}{
					"spec": map[string]interface{}{
						"containers": []interface{}{
							map[string]interface{}{"name": name, "image": image},
						},
					},
				},
			},
			"status": map[string]interface{}{
				"readyReplicas":     replicas - 1,
				"updatedReplicas":   replicas,
				"availableReplicas": replicas - 1,
			},
		},
	}
}

// pagedDynamicClient serves pre-built list pages in order and records the
// options of every list call.
type pagedDynamicClient struct {
	dynamic.Interface
	pages []*unstructured.UnstructuredList
	calls []metav1.ListOptions
	gvrs  []schema.GroupVersionResource
}

func (p *pagedDynamicClient) Resource(gvr schema.GroupVersionResource) dynamic.NamespaceableResourceInterface {
	p.gvrs = append(p.gvrs, gvr)
	return &pagedResource{client: p}
}

type pagedResource struct {
	dynamic.NamespaceableResourceInterface
	client *pagedDynamicClient
}

func (r *pagedResource) Namespace(string) dynamic.ResourceInterface {
	return r
}

func (r *pagedResource) List(_ context.Context, opts metav1.ListOptions) (*unstructured.UnstructuredList, error) {
	r.client.calls = append(r.client.calls, opts)
	page := r.client.pages[len(r.client.calls)-1]
	return page, nil
}

// newPage builds one page holding the named deployments.
func newPage(continueToken string, names ...string) *unstructured.UnstructuredList {
	list := &unstructured.UnstructuredList{}
	list.SetContinue(continueToken)
	for _, name := range names {
		list.Items = append(list.Items, *createTestDeployment(name, "paged", 1, nil, "nginx:1.27"))
	}
	return list
}
