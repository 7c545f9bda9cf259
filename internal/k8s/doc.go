// Package k8s provides the Kubernetes/OpenShift access layer for flux-kube.
//
// The package builds API clients from ambient credentials (a kubeconfig file
// or the in-cluster service account), resolves kinds to resources through
// the discovery API the way a dynamic client does, and lists resources with
// pagination.
//
// The interfaces are broken down into focused concerns:
//
//   - ContextManager: kubeconfig context inspection and namespace defaults
//   - ResourceLister: kind resolution and generic paginated lists
//   - DeploymentLister: Deployment (and OpenShift DeploymentConfig) summaries
//
// Example usage:
//
//	client, err := k8s.NewClient(&k8s.ClientConfig{Context: "dev"})
//	if err != nil {
//		return err
//	}
//
//	deployments, err := client.ListDeployments(ctx, "milroy1", k8s.ListOptions{})
//	if errors.Is(err, k8s.ErrNotLoggedIn) {
//		// credentials missing or expired
//	}
//
// API server authentication and authorization failures are reported as
// *AuthError values so that callers can tell them apart from other list
// failures.
package k8s
