package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/text/cases"
	"k8s.io/apimachinery/pkg/util/duration"
	"sigs.k8s.io/yaml"

	"github.com/flux-framework/flux-kube/internal/k8s"
)

// Supported output formats.
const (
	FormatName = "name"
	FormatWide = "wide"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// SupportedFormats lists the formats accepted by NewPrinter.
var SupportedFormats = []string{FormatName, FormatWide, FormatJSON, FormatYAML}

// Result is the listing of one namespace. An empty Namespace stands for
// all namespaces.
type Result struct {
	Namespace string
	Items     []k8s.DeploymentSummary
}

// Printer writes listing results to w.
type Printer interface {
	Print(w io.Writer, results []Result) error
}

// NewPrinter returns the printer for format. Format names are matched
// case-insensitively; an empty format selects FormatName.
func NewPrinter(format string) (Printer, error) {
	switch cases.Fold().String(strings.TrimSpace(format)) {
	case FormatName, "":
		return &namePrinter{}, nil
	case FormatWide:
		return &widePrinter{now: time.Now}, nil
	case FormatJSON:
		return &jsonPrinter{}, nil
	case FormatYAML:
		return &yamlPrinter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (supported: %s)", format, strings.Join(SupportedFormats, ", "))
	}
}

// EmptyMessage is printed for a namespace without deployments.
func EmptyMessage(namespace string) string {
	if namespace == "" {
		return "No deployments found."
	}
	return fmt.Sprintf("No deployments found in %s namespace.", namespace)
}

// namePrinter prints one deployment name per line.
type namePrinter struct{}

func (p *namePrinter) Print(w io.Writer, results []Result) error {
	for _, result := range results {
		if len(result.Items) == 0 {
			if _, err := fmt.Fprintln(w, EmptyMessage(result.Namespace)); err != nil {
				return err
			}
			continue
		}
		for _, item := range result.Items {
			if _, err := fmt.Fprintln(w, item.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

var wideColumns = []string{"NAMESPACE", "NAME", "READY", "UP-TO-DATE", "AVAILABLE", "AGE", "IMAGES"}

// widePrinter prints a single table over all namespaces, followed by the
// messages for namespaces that had nothing to show.
type widePrinter struct {
	now func() time.Time
}

func (p *widePrinter) Print(w io.Writer, results []Result) error {
	var empty []string
	var rows []k8s.DeploymentSummary
	for _, result := range results {
		if len(result.Items) == 0 {
			empty = append(empty, EmptyMessage(result.Namespace))
			continue
		}
		rows = append(rows, result.Items...)
	}

	if len(rows) > 0 {
		tw := tabwriter.NewWriter(w, 0, 8, 3, ' ', 0)

		fmt.Fprintln(tw, strings.Join(wideColumns, "\t"))

		now := p.now()
		for _, item := range rows {
			age := "<unknown>"
			if !item.CreationTimestamp.IsZero() {
				age = duration.HumanDuration(now.Sub(item.CreationTimestamp))
			}
			images := "<none>"
			if len(item.Images) > 0 {
				images = strings.Join(item.Images, ",")
			}
			fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%d\t%d\t%s\t%s\n",
				item.Namespace,
				item.Name,
				item.ReadyReplicas, item.Replicas,
				item.UpdatedReplicas,
				item.AvailableReplicas,
				age,
				images,
			)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	for _, message := range empty {
		if _, err := fmt.Fprintln(w, message); err != nil {
			return err
		}
	}
	return nil
}

// listDocument is the json/yaml document shape.
type listDocument struct {
	Items []k8s.DeploymentSummary `json:"items"`
}

func newListDocument(results []Result) listDocument {
	doc := listDocument{Items: []k8s.DeploymentSummary{}}
	for _, result := range results {
		doc.Items = append(doc.Items, result.Items...)
	}
	return doc
}

// jsonPrinter prints every result as one {"items": [...]} document.
type jsonPrinter struct{}

func (p *jsonPrinter) Print(w io.Writer, results []Result) error {
	data, err := json.MarshalIndent(newListDocument(results), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// yamlPrinter prints the same document as jsonPrinter in yaml.
type yamlPrinter struct{}

func (p *yamlPrinter) Print(w io.Writer, results []Result) error {
	data, err := yaml.Marshal(newListDocument(results))
	if err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	_, err = w.Write(data)
	return err
}
