package k8s

import "k8s.io/apimachinery/pkg/runtime/schema"

// Well-known kinds flux-kube lists.
var (
	DeploymentKind       = ResourceKind{APIVersion: "apps/v1", Kind: "Deployment"}
	DeploymentConfigKind = ResourceKind{APIVersion: "apps.openshift.io/v1", Kind: "DeploymentConfig"}
)

// initBuiltinResources returns the kinds that resolve without a discovery
// round trip. Anything outside this table, including OpenShift kinds, goes
// through the discovery API so that clusters not serving them are detected.
func initBuiltinResources() map[schema.GroupVersionKind]ResourceMapping {
	builtin := []struct {
		gvk        schema.GroupVersionKind
		resource   string
		namespaced bool
	}{
		// Core/v1 resources
		{schema.GroupVersionKind{Version: "v1", Kind: "Pod"}, "pods", true},
		{schema.GroupVersionKind{Version: "v1", Kind: "Service"}, "services", true},
		{schema.GroupVersionKind{Version: "v1", Kind: "ConfigMap"}, "configmaps", true},
		{schema.GroupVersionKind{Version: "v1", Kind: "Secret"}, "secrets", true},
		{schema.GroupVersionKind{Version: "v1", Kind: "ServiceAccount"}, "serviceaccounts", true},
		{schema.GroupVersionKind{Version: "v1", Kind: "Namespace"}, "namespaces", false},
		{schema.GroupVersionKind{Version: "v1", Kind: "Node"}, "nodes", false},

		// Apps/v1 resources
		{schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "Deployment"}, "deployments", true},
		{schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "ReplicaSet"}, "replicasets", true},
		{schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "StatefulSet"}, "statefulsets", true},
		{schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "DaemonSet"}, "daemonsets", true},

		// Batch resources
		{schema.GroupVersionKind{Group: "batch", Version: "v1", Kind: "Job"}, "jobs", true},
		{schema.GroupVersionKind{Group: "batch", Version: "v1", Kind: "CronJob"}, "cronjobs", true},
	}

	resources := make(map[schema.GroupVersionKind]ResourceMapping, len(builtin))
	for _, b := range builtin {
		resources[b.gvk] = ResourceMapping{
			GVR:        b.gvk.GroupVersion().WithResource(b.resource),
			Kind:       b.gvk.Kind,
			Namespaced: b.namespaced,
		}
	}
	return resources
}
