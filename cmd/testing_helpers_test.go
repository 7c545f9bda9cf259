package cmd

import (
	"bytes"
	"context"
	"testing"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	discoveryfake "k8s.io/client-go/discovery/fake"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/flux-framework/flux-kube/internal/k8s"
)

// fakeCluster is the cluster commands talk to in tests.
type fakeCluster struct {
	dynamic   *dynamicfake.FakeDynamicClient
	discovery *discoveryfake.FakeDiscovery

	// namespace is reported as the client's default namespace.
	namespace string
	// configs records every client configuration commands asked for.
	configs []*k8s.ClientConfig
}

// newFakeCluster creates a cluster holding objects. Discovery only serves
// the given resource lists.
func newFakeCluster(namespace string, objects []runtime.Object, resources ...*metav1.APIResourceList) *fakeCluster {
	gvrToListKind := map[schema.GroupVersionResource]string{
		{Group: "apps", Version: "v1", Resource: "deployments"}:                    "DeploymentList",
		{Group: "apps.openshift.io", Version: "v1", Resource: "deploymentconfigs"}: "DeploymentConfigList",
	}
	return &fakeCluster{
		dynamic:   dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(), gvrToListKind, objects...),
		discovery: &discoveryfake.FakeDiscovery{Fake: &k8stesting.Fake{Resources: resources}},
		namespace: namespace,
	}
}

// install points newK8sClient at the fake cluster for the duration of the test.
func (f *fakeCluster) install(t *testing.T) {
	t.Helper()
	original := newK8sClient
	t.Cleanup(func() { newK8sClient = original })

	newK8sClient = func(config *k8s.ClientConfig) (k8s.Client, error) {
		f.configs = append(f.configs, config)
		client, err := k8s.NewPreparedClient(config, f.dynamic, f.discovery)
		if err != nil {
			return nil, err
		}
		return namespacedClient{Client: client, namespace: f.namespace}, nil
	}
}

// namespacedClient reports namespace as the default namespace, the way a
// kubeconfig context with a namespace set would.
type namespacedClient struct {
	k8s.Client
	namespace string
}

func (c namespacedClient) DefaultNamespace() string {
	return c.namespace
}

// executeCommand runs a fresh command tree with args and returns what it
// wrote to stdout and stderr.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	opts := &rootOptions{}
	root := newRootCmd(opts)
	t.Cleanup(opts.shutdown)

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--env-file="}, args...))

	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// openShiftAppsResources is the discovery document of apps.openshift.io/v1.
func openShiftAppsResources() *metav1.APIResourceList {
	return &metav1.APIResourceList{
		GroupVersion: "apps.openshift.io/v1",
		APIResources: []metav1.APIResource{
			{Name: "deploymentconfigs", SingularName: "deploymentconfig", Namespaced: true, Kind: "DeploymentConfig", ShortNames: []string{"dc"}},
		},
	}
}

// newDeployment creates an unstructured apps/v1 Deployment.
func newDeployment(namespace, name string, labels map[string]interface{}) *unstructured.Unstructured {
	metadata := map[string]interface{}{
		"name":              name,
		"namespace":         namespace,
		"creationTimestamp": "2024-01-02T03:04:05Z",
	}
	if labels != nil {
		metadata["labels"] = labels
	}
	return &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": "apps/v1",
			"kind":       "Deployment",
			"metadata":   metadata,
			"spec": map[string]interface{}{
				"replicas": int64(2),
				"template": map[string]interface{}{
					"spec": map[string]interface{}{
						"containers": []interface{}{
							map[string]interface{}{"name": "main", "image": "ghcr.io/flux-framework/" + name + ":latest"},
						},
					},
				},
			},
			"status": map[string]interface{}{
				"readyReplicas":     int64(1),
				"updatedReplicas":   int64(2),
				"availableReplicas": int64(1),
			},
		},
	}
}

// newDeploymentConfig creates an unstructured OpenShift DeploymentConfig.
func newDeploymentConfig(namespace, name string) *unstructured.Unstructured {
	return &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": "apps.openshift.io/v1",
			"kind":       "DeploymentConfig",
			"metadata": map[string]interface{}{
				"name":      name,
				"namespace": namespace,
			},
			"spec": map[string]interface{}{
				"replicas": int64(1),
			},
		},
	}
}
