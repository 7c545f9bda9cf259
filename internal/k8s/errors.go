package k8s

import (
	"errors"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// Sentinel errors for common failure scenarios.
// These errors can be checked using errors.Is() for programmatic error handling.
var (
	// ErrNotLoggedIn indicates that the API server rejected the request as
	// unauthenticated (HTTP 401): missing, expired or revoked credentials.
	ErrNotLoggedIn = errors.New("not logged in to the cluster")

	// ErrForbidden indicates that the API server authenticated the caller but
	// RBAC denied the operation (HTTP 403).
	ErrForbidden = errors.New("operation forbidden")

	// ErrResourceNotServed indicates that the requested apiVersion/kind is not
	// served by the cluster, e.g. DeploymentConfigs on a non-OpenShift cluster.
	ErrResourceNotServed = errors.New("resource not served by the cluster")

	// ErrContextNotFound indicates that the requested kubeconfig context does not exist.
	ErrContextNotFound = errors.New("kubeconfig context not found")
)

// loginHint is appended to authentication failures.
const loginHint = "you must be logged in to the Kubernetes or OpenShift cluster to continue"

// AuthError provides context about an authentication or authorization failure.
type AuthError struct {
	Operation    string
	ResourceType string
	Namespace    string
	Err          error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	scope := e.ResourceType
	if e.Namespace != "" {
		scope = fmt.Sprintf("%s in namespace %q", e.ResourceType, e.Namespace)
	}
	if apierrors.IsForbidden(e.Err) {
		return fmt.Sprintf("%s %s: %v", e.Operation, scope, e.Err)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Operation, scope, loginHint, e.Err)
}

// Is matches ErrNotLoggedIn or ErrForbidden depending on the API status.
func (e *AuthError) Is(target error) bool {
	switch target {
	case ErrNotLoggedIn:
		return apierrors.IsUnauthorized(e.Err)
	case ErrForbidden:
		return apierrors.IsForbidden(e.Err)
	}
	return false
}

// Unwrap returns the underlying API error.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// classifyError wraps API status errors that callers need to tell apart.
func classifyError(err error, operation, resourceType, namespace string) error {
	if err == nil {
		return nil
	}
	if apierrors.IsUnauthorized(err) || apierrors.IsForbidden(err) {
		return &AuthError{
			Operation:    operation,
			ResourceType: resourceType,
			Namespace:    namespace,
			Err:          err,
		}
	}
	if namespace != "" {
		return fmt.Errorf("failed to %s %s in namespace %q: %w", operation, resourceType, namespace, err)
	}
	return fmt.Errorf("failed to %s %s: %w", operation, resourceType, err)
}
