package cmd

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	k8stesting "k8s.io/client-go/testing"

	"github.com/flux-framework/flux-kube/internal/k8s"
)

func clusterObjects() []runtime.Object {
	return []runtime.Object{
		newDeployment("milroy1", "web", map[string]interface{}{"app": "web"}),
		newDeployment("milroy1", "api", map[string]interface{}{"app": "flux"}),
		newDeployment("team-a", "broker", nil),
		newDeployment("team-b", "scheduler", map[string]interface{}{"app": "flux"}),
	}
}

func TestGetDeploymentsPrintsNames(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		env      string
		expected string
	}{
		{
			name:     "explicit namespace",
			args:     []string{"-n", "milroy1"},
			expected: "api\nweb\n",
		},
		{
			name:     "long namespace flag",
			args:     []string{"--namespace", "team-a"},
			expected: "broker\n",
		},
		{
			name:     "default namespace from context",
			expected: "api\nweb\n",
		},
		{
			name:     "namespace from environment",
			env:      "team-b",
			expected: "scheduler\n",
		},
		{
			name:     "comma separated namespaces from environment",
			env:      "team-a, team-b",
			expected: "broker\nscheduler\n",
		},
		{
			name:     "flag wins over environment",
			args:     []string{"-n", "team-a"},
			env:      "team-b",
			expected: "broker\n",
		},
		{
			name:     "several namespaces keep the given order",
			args:     []string{"-n", "team-b,milroy1", "-n", "team-a"},
			expected: "scheduler\napi\nweb\nbroker\n",
		},
		{
			name:     "duplicate namespaces are listed once",
			args:     []string{"-n", "team-a", "-n", "team-a"},
			expected: "broker\n",
		},
		{
			name:     "label selector",
			args:     []string{"-A", "-l", "app=flux"},
			expected: "api\nscheduler\n",
		},
		{
			name:     "all namespaces",
			args:     []string{"--all-namespaces"},
			expected: "api\nweb\nbroker\nscheduler\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(envNamespace, tt.env)
			newFakeCluster("milroy1", clusterObjects()).install(t)

			stdout, _, err := executeCommand(t, append([]string{commandGetDeployments}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, stdout)
		})
	}
}

func TestGetDeploymentsNoDeployments(t *testing.T) {
	t.Run("single namespace", func(t *testing.T) {
		newFakeCluster("milroy1", clusterObjects()).install(t)

		stdout, _, err := executeCommand(t, commandGetDeployments, "-n", "empty")
		require.NoError(t, err)
		assert.Equal(t, "No deployments found in empty namespace.\n", stdout)
	})

	t.Run("mixed with populated namespaces", func(t *testing.T) {
		newFakeCluster("milroy1", clusterObjects()).install(t)

		stdout, _, err := executeCommand(t, commandGetDeployments, "-n", "team-a,empty,team-b")
		require.NoError(t, err)
		assert.Equal(t, "broker\nNo deployments found in empty namespace.\nscheduler\n", stdout)
	})

	t.Run("all namespaces", func(t *testing.T) {
		newFakeCluster("milroy1", nil).install(t)

		stdout, _, err := executeCommand(t, commandGetDeployments, "-A")
		require.NoError(t, err)
		assert.Equal(t, "No deployments found.\n", stdout)
	})
}

func TestGetDeploymentsAPIErrors(t *testing.T) {
	gr := schema.GroupResource{Group: "apps", Resource: "deployments"}

	tests := []struct {
		name     string
		apiErr   error
		sentinel error
		contains string
	}{
		{
			name:     "unauthorized",
			apiErr:   apierrors.NewUnauthorized("token expired"),
			sentinel: k8s.ErrNotLoggedIn,
			contains: "must be logged in",
		},
		{
			name:     "forbidden",
			apiErr:   apierrors.NewForbidden(gr, "", errors.New("no list verb")),
			sentinel: k8s.ErrForbidden,
			contains: "milroy1",
		},
		{
			name:     "server error",
			apiErr:   apierrors.NewInternalError(errors.New("etcd unavailable")),
			contains: "etcd unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cluster := newFakeCluster("milroy1", clusterObjects())
			cluster.dynamic.PrependReactor("list", "deployments", func(k8stesting.Action) (bool, runtime.Object, error) {
				return true, nil, tt.apiErr
			})
			cluster.install(t)

			stdout, _, err := executeCommand(t, commandGetDeployments, "-n", "milroy1")
			require.Error(t, err)
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
			assert.Contains(t, err.Error(), tt.contains)
			assert.Empty(t, stdout)
		})
	}
}

func TestGetDeploymentsClientError(t *testing.T) {
	original := newK8sClient
	t.Cleanup(func() { newK8sClient = original })
	newK8sClient = func(*k8s.ClientConfig) (k8s.Client, error) {
		return nil, k8s.ErrContextNotFound
	}

	_, _, err := executeCommand(t, commandGetDeployments)
	require.Error(t, err)
	assert.ErrorIs(t, err, k8s.ErrContextNotFound)
	assert.Contains(t, err.Error(), "failed to create Kubernetes client")
}

func TestGetDeploymentsDeploymentConfigs(t *testing.T) {
	objects := append(clusterObjects(), newDeploymentConfig("milroy1", "legacy"))

	t.Run("served", func(t *testing.T) {
		newFakeCluster("milroy1", objects, openShiftAppsResources()).install(t)

		stdout, _, err := executeCommand(t, commandGetDeployments, "--include-deploymentconfigs")
		require.NoError(t, err)
		assert.Equal(t, "api\nlegacy\nweb\n", stdout)
	})

	t.Run("not served", func(t *testing.T) {
		newFakeCluster("milroy1", clusterObjects()).install(t)

		stdout, _, err := executeCommand(t, commandGetDeployments, "--include-deploymentconfigs", "--debug")
		require.NoError(t, err)
		assert.Equal(t, "api\nweb\n", stdout)
	})

	t.Run("not requested", func(t *testing.T) {
		newFakeCluster("milroy1", objects, openShiftAppsResources()).install(t)

		stdout, _, err := executeCommand(t, commandGetDeployments)
		require.NoError(t, err)
		assert.Equal(t, "api\nweb\n", stdout)
	})
}

func TestGetDeploymentsOutputFormats(t *testing.T) {
	t.Run("wide", func(t *testing.T) {
		newFakeCluster("milroy1", clusterObjects()).install(t)

		stdout, _, err := executeCommand(t, commandGetDeployments, "-o", "wide")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, []string{"NAMESPACE", "NAME", "READY", "UP-TO-DATE", "AVAILABLE", "AGE", "IMAGES"}, strings.Fields(lines[0]))

		fields := strings.Fields(lines[1])
		require.Len(t, fields, 7)
		assert.Equal(t, "milroy1", fields[0])
		assert.Equal(t, "api", fields[1])
		assert.Equal(t, "1/2", fields[2])
		assert.Equal(t, "ghcr.io/flux-framework/api:latest", fields[6])
	})

	t.Run("json", func(t *testing.T) {
		newFakeCluster("milroy1", clusterObjects()).install(t)

		stdout, _, err := executeCommand(t, commandGetDeployments, "-n", "milroy1,empty", "-o", "json")
		require.NoError(t, err)

		var doc struct {
			Items []k8s.DeploymentSummary `json:"items"`
		}
		require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
		require.Len(t, doc.Items, 2)
		assert.Equal(t, "api", doc.Items[0].Name)
		assert.Equal(t, int32(2), doc.Items[0].Replicas)
		assert.Equal(t, "web", doc.Items[1].Name)
	})

	t.Run("yaml", func(t *testing.T) {
		newFakeCluster("milroy1", clusterObjects()).install(t)

		stdout, _, err := executeCommand(t, commandGetDeployments, "-o", "yaml")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(stdout, "items:\n"))
		assert.Contains(t, stdout, "name: api")
		assert.Contains(t, stdout, "namespace: milroy1")
	})

	t.Run("unsupported", func(t *testing.T) {
		newFakeCluster("milroy1", clusterObjects()).install(t)

		_, _, err := executeCommand(t, commandGetDeployments, "-o", "table")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported output format")
	})
}

func TestGetDeploymentsFlagValidation(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{
			name:     "namespace with all namespaces",
			args:     []string{"-n", "milroy1", "-A"},
			contains: "none of the others can be",
		},
		{
			name:     "negative chunk size",
			args:     []string{"--chunk-size=-1"},
			contains: "--chunk-size must not be negative",
		},
		{
			name:     "unexpected argument",
			args:     []string{"milroy1"},
			contains: "unknown command",
		},
		{
			name:     "invalid log format",
			args:     []string{"--log-format", "xml"},
			contains: "unsupported log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cluster := newFakeCluster("milroy1", clusterObjects())
			cluster.install(t)

			_, _, err := executeCommand(t, append([]string{commandGetDeployments}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
			assert.Empty(t, cluster.configs)
		})
	}
}

func TestGetDeploymentsClientConfig(t *testing.T) {
	t.Setenv(envContext, "from-env")
	t.Setenv(envToken, "env-token")
	t.Setenv(envBurstLimit, "90")

	cluster := newFakeCluster("milroy1", clusterObjects())
	cluster.install(t)

	_, _, err := executeCommand(t, "--context", "flux", "--qps-limit", "5", "--timeout", "10s",
		commandGetDeployments, "-n", "milroy1")
	require.NoError(t, err)

	require.Len(t, cluster.configs, 1)
	config := cluster.configs[0]
	assert.Equal(t, "flux", config.Context)
	assert.Equal(t, "env-token", config.BearerToken)
	assert.Equal(t, float32(5), config.QPSLimit)
	assert.Equal(t, 90, config.BurstLimit)
	assert.Equal(t, "10s", config.Timeout.String())
	assert.NotNil(t, config.Logger)
	assert.NotNil(t, config.Metrics)
}

func TestGetDeploymentsDebugLog(t *testing.T) {
	t.Setenv("INSTRUMENTATION_ENABLED", "false")
	newFakeCluster("milroy1", clusterObjects()).install(t)

	stdout, stderr, err := executeCommand(t, "--context", "flux", "--debug", "--log-format", "json",
		commandGetDeployments, "-n", "milroy1")
	require.NoError(t, err)
	assert.Equal(t, "api\nweb\n", stdout)

	records := map[string]map[string]interface{}{}
	for _, line := range strings.Split(strings.TrimSpace(stderr), "\n") {
		var record map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &record), line)
		records[record["msg"].(string)] = record
	}

	finished, ok := records["Command finished"]
	require.True(t, ok, stderr)
	assert.Equal(t, "flux", finished["context"])
	assert.Equal(t, commandGetDeployments, finished["operation"])
	assert.Equal(t, "success", finished["status"])
	assert.Equal(t, float64(2), finished["count"])

	configured, ok := records["Instrumentation configured"]
	require.True(t, ok, stderr)
	assert.Equal(t, false, configured["enabled"])

	listed, ok := records["K8s API list completed"]
	require.True(t, ok, stderr)
	assert.Equal(t, "milroy1", listed["namespace"])
	assert.Equal(t, float64(2), listed["count"])
}
