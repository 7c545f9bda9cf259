package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/flux-framework/flux-kube/internal/instrumentation"
	"github.com/flux-framework/flux-kube/internal/output"
)

const commandContexts = "contexts"

// newContextsCmd creates the command that lists kubeconfig contexts.
func newContextsCmd(root *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   commandContexts,
		Short: "List the available kubeconfig contexts",
		Long: `List the contexts of the kubeconfig file, marking the current one.
In-cluster mode reports a single "in-cluster" context.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if format != output.FormatName && format != output.FormatWide {
				return fmt.Errorf("unsupported output format %q (supported: %s, %s)", format, output.FormatName, output.FormatWide)
			}

			ctx, span := instrumentation.StartCommandSpan(cmd.Context(), commandContexts)
			defer span.End()

			start := time.Now()
			kubeContext := ""
			defer func() {
				status := instrumentation.StatusSuccess
				if err != nil {
					status = instrumentation.StatusError
					instrumentation.SetSpanError(span, err)
				} else {
					instrumentation.SetSpanSuccess(span)
				}
				root.metrics().RecordCommand(ctx, commandContexts, kubeContext, status, time.Since(start))
			}()

			client, err := newK8sClient(root.clientConfig())
			if err != nil {
				return fmt.Errorf("failed to create Kubernetes client: %w", err)
			}

			contexts, err := client.ListContexts(ctx)
			if err != nil {
				return fmt.Errorf("failed to list contexts: %w", err)
			}
			for _, c := range contexts {
				if c.Current {
					kubeContext = c.Name
				}
			}

			return output.PrintContexts(cmd.OutOrStdout(), contexts, format == output.FormatName)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", output.FormatWide, "Output format: wide or name")

	return cmd
}
