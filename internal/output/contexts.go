package output

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/flux-framework/flux-kube/internal/k8s"
)

// PrintContexts writes contexts as a table, marking the current one with
// an asterisk. With namesOnly set only the context names are written.
func PrintContexts(w io.Writer, contexts []k8s.ContextInfo, namesOnly bool) error {
	if namesOnly {
		for _, c := range contexts {
			if _, err := fmt.Fprintln(w, c.Name); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 8, 3, ' ', 0)
	fmt.Fprintln(tw, "CURRENT\tNAME\tCLUSTER\tAUTHINFO\tNAMESPACE")
	for _, c := range contexts {
		current := ""
		if c.Current {
			current = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", current, c.Name, c.Cluster, c.User, c.Namespace)
	}
	return tw.Flush()
}
