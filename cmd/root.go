package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// rootOpts holds the global flags of rootCmd.
var rootOpts = &rootOptions{}

// rootCmd represents the base command for the flux-kube application.
var rootCmd *cobra.Command

// newRootCmd builds the command tree around opts.
func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flux-kube",
		Short: "List workloads on Kubernetes and OpenShift clusters",
		Long: `flux-kube talks to a Kubernetes or OpenShift cluster with the credentials
of the current kubeconfig context (or the pod's service account when run
in-cluster) and lists Deployment resources through the dynamic client.

Environment variables prefixed with FLUX_KUBE_ provide defaults for flags
that are not given on the command line. A .env file in the working
directory is loaded first; variables already set in the environment win.`,
		// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.complete(cmd)
		},
	}

	opts.addFlags(cmd.PersistentFlags())

	cmd.AddCommand(newGetDeploymentsCmd(opts))
	cmd.AddCommand(newContextsCmd(opts))
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newSelfUpdateCmd())

	return cmd
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application.
// It is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "flux-kube version %s\n" .Version}}`)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	rootOpts.shutdown()
	cancel()

	if err != nil {
		// Cobra has already printed the error.
		os.Exit(1)
	}
}

// init builds the command tree. Subcommands read rootCmd.Version, so it
// cannot be built in the variable declaration.
func init() {
	rootCmd = newRootCmd(rootOpts)
}
