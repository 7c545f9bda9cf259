package k8s

const (
	// Service account paths - default Kubernetes in-cluster locations
	DefaultServiceAccountPath = "/var/run/secrets/kubernetes.io/serviceaccount"
	DefaultTokenPath          = DefaultServiceAccountPath + "/token"
	DefaultCACertPath         = DefaultServiceAccountPath + "/ca.crt"
	DefaultNamespacePath      = DefaultServiceAccountPath + "/namespace"

	// Default performance settings
	DefaultQPSLimit   = 20.0
	DefaultBurstLimit = 30
	DefaultTimeout    = 30 // seconds

	// DefaultChunkSize matches kubectl's default page size for list calls.
	DefaultChunkSize = 500

	// Discovery timeout
	DiscoveryTimeoutSeconds = 30

	// In-cluster context name
	InClusterContext = "in-cluster"

	// FallbackNamespace is used when neither the flag nor the context names one.
	FallbackNamespace = "default"
)

// Operation names reported to logs and metrics.
const (
	OperationList     = "list"
	OperationDiscover = "discover"
)

// Status values reported to metrics.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)
