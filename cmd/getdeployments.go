package cmd

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/flux-framework/flux-kube/internal/instrumentation"
	"github.com/flux-framework/flux-kube/internal/k8s"
	"github.com/flux-framework/flux-kube/internal/logging"
	"github.com/flux-framework/flux-kube/internal/output"
)

const commandGetDeployments = "getdeployments"

// maxConcurrentLists bounds how many namespaces are listed at once.
const maxConcurrentLists = 4

// newK8sClient creates the Kubernetes client used by commands.
// Tests replace it to run commands against fake clusters.
var newK8sClient = func(config *k8s.ClientConfig) (k8s.Client, error) {
	return k8s.NewClient(config)
}

type getDeploymentsOptions struct {
	root *rootOptions

	namespaces               []string
	allNamespaces            bool
	labelSelector            string
	fieldSelector            string
	output                   string
	chunkSize                int64
	includeDeploymentConfigs bool
}

// newGetDeploymentsCmd creates the command that lists Deployments.
func newGetDeploymentsCmd(root *rootOptions) *cobra.Command {
	opts := &getDeploymentsOptions{root: root}

	cmd := &cobra.Command{
		Use:   commandGetDeployments,
		Short: "List the deployments in a namespace",
		Long: `List the Deployment resources of one or more namespaces.

Without --namespace the namespace of the current kubeconfig context is used
(the service account namespace when running in-cluster), falling back to
"default". Several namespaces may be given, either by repeating the flag or
as a comma separated list; they are listed concurrently and printed in the
order given.`,
		Example: `  flux-kube getdeployments
  flux-kube getdeployments -n milroy1
  flux-kube getdeployments -n team-a,team-b -o wide
  flux-kube getdeployments -A -l app=flux -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("namespace") && !opts.allNamespaces {
				if ns := os.Getenv(envNamespace); ns != "" {
					opts.namespaces = strings.Split(ns, ",")
				}
			}
			return opts.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringSliceVarP(&opts.namespaces, "namespace", "n", nil, "Namespace to list; repeat or comma separate for several (can also be set via FLUX_KUBE_NAMESPACE env var)")
	cmd.Flags().BoolVarP(&opts.allNamespaces, "all-namespaces", "A", false, "List deployments across all namespaces")
	cmd.Flags().StringVarP(&opts.labelSelector, "selector", "l", "", "Label selector to filter on (e.g. app=web)")
	cmd.Flags().StringVar(&opts.fieldSelector, "field-selector", "", "Field selector to filter on (e.g. metadata.name=web)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", output.FormatName, fmt.Sprintf("Output format: %s", strings.Join(output.SupportedFormats, ", ")))
	cmd.Flags().Int64Var(&opts.chunkSize, "chunk-size", k8s.DefaultChunkSize, "Number of items requested per page; 0 disables paging")
	cmd.Flags().BoolVar(&opts.includeDeploymentConfigs, "include-deploymentconfigs", false, "Also list OpenShift DeploymentConfigs when the cluster serves them")
	cmd.MarkFlagsMutuallyExclusive("namespace", "all-namespaces")

	return cmd
}

// run lists the requested namespaces and prints the results to out.
func (o *getDeploymentsOptions) run(ctx context.Context, out io.Writer) (err error) {
	if o.chunkSize < 0 {
		return fmt.Errorf("--chunk-size must not be negative, got %d", o.chunkSize)
	}
	printer, err := output.NewPrinter(o.output)
	if err != nil {
		return err
	}

	client, err := newK8sClient(o.root.clientConfig())
	if err != nil {
		return fmt.Errorf("failed to create Kubernetes client: %w", err)
	}

	kubeContext := ""
	if current, ctxErr := client.GetCurrentContext(ctx); ctxErr == nil {
		kubeContext = current.Name
	}
	namespaces := o.targetNamespaces(client)

	ctx, span := instrumentation.StartCommandSpan(ctx, commandGetDeployments,
		instrumentation.NewSpanAttributeBuilder().
			WithContext(kubeContext).
			WithNamespaces(namespaces).
			Build()...)
	defer span.End()

	logger := logging.WithOperation(logging.WithContext(o.root.log(), kubeContext), commandGetDeployments)
	start := time.Now()
	total := 0
	defer func() {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		o.root.metrics().RecordCommand(ctx, commandGetDeployments, kubeContext, status, time.Since(start))
		logger.Debug("Command finished",
			logging.Status(status),
			logging.Count(total),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("trace_id", instrumentation.GetTraceID(ctx)))
	}()

	results, err := o.listNamespaces(ctx, client, namespaces)
	if err != nil {
		return err
	}

	for _, result := range results {
		total += len(result.Items)
	}
	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithItemCount(total).Build()...)

	return printer.Print(out, results)
}

// targetNamespaces returns the namespaces to list. An empty string stands
// for all namespaces.
func (o *getDeploymentsOptions) targetNamespaces(client k8s.Client) []string {
	if o.allNamespaces {
		return []string{""}
	}

	var namespaces []string
	for _, ns := range o.namespaces {
		ns = strings.TrimSpace(ns)
		if ns == "" || slices.Contains(namespaces, ns) {
			continue
		}
		namespaces = append(namespaces, ns)
	}
	if len(namespaces) == 0 {
		namespaces = []string{client.DefaultNamespace()}
	}
	return namespaces
}

// listNamespaces lists every namespace concurrently. Results keep the order
// of namespaces; the first failure cancels the remaining lists.
func (o *getDeploymentsOptions) listNamespaces(ctx context.Context, client k8s.Client, namespaces []string) ([]output.Result, error) {
	results := make([]output.Result, len(namespaces))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLists)

	for i, ns := range namespaces {
		g.Go(func() error {
			items, err := o.listNamespace(gctx, client, ns)
			if err != nil {
				if ns == "" {
					return fmt.Errorf("failed to list deployments: %w", err)
				}
				return fmt.Errorf("failed to list deployments in namespace %q: %w", ns, err)
			}
			results[i] = output.Result{Namespace: ns, Items: items}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// listNamespace lists the Deployments of one namespace and, when requested,
// its DeploymentConfigs.
func (o *getDeploymentsOptions) listNamespace(ctx context.Context, client k8s.Client, namespace string) ([]k8s.DeploymentSummary, error) {
	listOpts := k8s.ListOptions{
		LabelSelector: o.labelSelector,
		FieldSelector: o.fieldSelector,
		AllNamespaces: namespace == "",
		Limit:         o.chunkSize,
	}
	metrics := o.root.metrics()

	items, err := client.ListDeployments(ctx, namespace, listOpts)
	if err != nil {
		return nil, err
	}
	metrics.RecordDeploymentsListed(ctx, k8s.DeploymentKind.Kind, namespace, len(items))

	if !o.includeDeploymentConfigs {
		return items, nil
	}

	configs, err := client.ListDeploymentConfigs(ctx, namespace, listOpts)
	switch {
	case errors.Is(err, k8s.ErrResourceNotServed):
		o.root.log().Debug("Skipping DeploymentConfigs, API not served by cluster",
			logging.Namespace(namespace),
			logging.ResourceType(k8s.DeploymentConfigKind.String()))
		return items, nil
	case err != nil:
		return nil, err
	}
	metrics.RecordDeploymentsListed(ctx, k8s.DeploymentConfigKind.Kind, namespace, len(configs))

	items = append(items, configs...)
	slices.SortStableFunc(items, func(a, b k8s.DeploymentSummary) int {
		if c := cmp.Compare(a.Namespace, b.Namespace); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return items, nil
}
