package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/schema"
)

// TypeSummary describes one compiled message type.
type TypeSummary struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
	Keys   []string `json:"keys,omitempty"`
}

// ValidateResult lists the message types a schema directory declares.
type ValidateResult struct {
	Dir   string        `json:"dir"`
	Types []TypeSummary `json:"types"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <schema-dir>",
		Short: "Compile CUE message schemas",
		Long: `Compile the CUE package in schema-dir and list the message types
it declares, with their fields and list keys.

Examples:
  dtsmember validate ./schema
  dtsmember validate ./schema --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			reg, err := schema.Load(args[0])
			if err != nil {
				return out.fail(ExitFailure, CodeSchema, "schema validation failed", err)
			}

			result := ValidateResult{Dir: args[0], Types: []TypeSummary{}}
			for _, name := range reg.Names() {
				typ, _ := reg.Lookup(name)
				result.Types = append(result.Types, summarize(typ))
			}
			return out.Emit(result, func(w io.Writer) {
				fmt.Fprintf(w, "✓ %s: %d message types\n", args[0], len(result.Types))
				for _, ts := range result.Types {
					fmt.Fprintf(w, "  %s {%s}", ts.Name, strings.Join(ts.Fields, ", "))
					if len(ts.Keys) > 0 {
						fmt.Fprintf(w, " keys=%s", strings.Join(ts.Keys, ","))
					}
					fmt.Fprintln(w)
				}
			})
		},
	}
}

func summarize(t *schema.Type) TypeSummary {
	ts := TypeSummary{Name: t.Name, Fields: make([]string, 0, len(t.Fields))}
	for _, f := range t.Fields {
		ts.Fields = append(ts.Fields, fmt.Sprintf("%s:%s", f.Name, f.Kind))
	}
	ts.Keys = t.Keys()
	return ts
}
