package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newOptionsCmd returns a command carrying the global flags of opts,
// parsed from args.
func newOptionsCmd(t *testing.T, opts *rootOptions, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	opts.addFlags(cmd.Flags())
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestLoadEnvVars(t *testing.T) {
	t.Setenv(envContext, "env-context")
	t.Setenv(envToken, "env-token")
	t.Setenv(envLogFormat, "json")
	t.Setenv(envInCluster, "true")
	t.Setenv(envQPSLimit, "7.5")
	t.Setenv(envBurstLimit, "15")
	t.Setenv(envTimeout, "1m")

	t.Run("flags not set", func(t *testing.T) {
		opts := &rootOptions{}
		cmd := newOptionsCmd(t, opts)

		opts.loadEnvVars(cmd)

		assert.Equal(t, "env-context", opts.context)
		assert.Equal(t, "env-token", opts.token)
		assert.Equal(t, "json", opts.logFormat)
		assert.True(t, opts.inCluster)
		assert.Equal(t, float32(7.5), opts.qpsLimit)
		assert.Equal(t, 15, opts.burstLimit)
		assert.Equal(t, time.Minute, opts.timeout)
	})

	t.Run("explicit flags win", func(t *testing.T) {
		opts := &rootOptions{}
		cmd := newOptionsCmd(t, opts,
			"--context", "flag-context",
			"--token", "flag-token",
			"--log-format", "text",
			"--in-cluster=false",
			"--qps-limit", "1",
			"--burst-limit", "2",
			"--timeout", "3s",
		)

		opts.loadEnvVars(cmd)

		assert.Equal(t, "flag-context", opts.context)
		assert.Equal(t, "flag-token", opts.token)
		assert.Equal(t, "text", opts.logFormat)
		assert.False(t, opts.inCluster)
		assert.Equal(t, float32(1), opts.qpsLimit)
		assert.Equal(t, 2, opts.burstLimit)
		assert.Equal(t, 3*time.Second, opts.timeout)
	})
}

func TestLoadEnvVarsInvalidValues(t *testing.T) {
	t.Setenv(envQPSLimit, "fast")
	t.Setenv(envBurstLimit, "many")
	t.Setenv(envTimeout, "soon")

	opts := &rootOptions{}
	cmd := newOptionsCmd(t, opts)

	opts.loadEnvVars(cmd)

	assert.Equal(t, float32(20), opts.qpsLimit)
	assert.Equal(t, 30, opts.burstLimit)
	assert.Equal(t, 30*time.Second, opts.timeout)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("FLUX_KUBE_TEST_FROM_FILE=file\nFLUX_KUBE_TEST_PRESET=file\n"), 0600))

	t.Setenv("FLUX_KUBE_TEST_PRESET", "environment")
	t.Cleanup(func() { _ = os.Unsetenv("FLUX_KUBE_TEST_FROM_FILE") })

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "file", os.Getenv("FLUX_KUBE_TEST_FROM_FILE"))
	assert.Equal(t, "environment", os.Getenv("FLUX_KUBE_TEST_PRESET"))

	assert.NoError(t, loadEnvFile(filepath.Join(dir, "missing.env")))
	assert.NoError(t, loadEnvFile(""))
}

func TestParseEnvHelpers(t *testing.T) {
	d, ok := parseDurationEnv("90s", "X")
	assert.True(t, ok)
	assert.Equal(t, 90*time.Second, d)

	_, ok = parseDurationEnv("", "X")
	assert.False(t, ok)

	n, ok := parseIntEnv("42", "X")
	assert.True(t, ok)
	assert.Equal(t, 42, n)

	_, ok = parseIntEnv("4.2", "X")
	assert.False(t, ok)

	f, ok := parseFloat32Env("2.5", "X")
	assert.True(t, ok)
	assert.Equal(t, float32(2.5), f)

	_, ok = parseFloat32Env("abc", "X")
	assert.False(t, ok)
}

func TestClientConfigBeforeComplete(t *testing.T) {
	opts := &rootOptions{kubeconfig: "/tmp/config", context: "flux", token: "t"}

	config := opts.clientConfig()

	assert.Equal(t, "/tmp/config", config.KubeconfigPath)
	assert.Equal(t, "flux", config.Context)
	assert.Equal(t, "t", config.BearerToken)
	assert.NotNil(t, config.Logger)
	assert.Nil(t, config.Metrics)
}
