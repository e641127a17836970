package cli

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
)

// KeyspecResult describes a parsed xpath.
type KeyspecResult struct {
	XPath     string `json:"xpath"`
	Category  string `json:"category"`
	Depth     int    `json:"depth"`
	Wildcards bool   `json:"wildcards"`
	Binpath   string `json:"binpath,omitempty"` // hex
	Digest    string `json:"digest,omitempty"`
	Minikey   string `json:"minikey,omitempty"` // canonical JSON list
}

// NewKeyspecCommand creates the keyspec command.
func NewKeyspecCommand(rootOpts *RootOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "keyspec <xpath>",
		Short: "Parse an xpath into a keyspec",
		Long: `Parse an xpath and print its depth, whether it has wildcards and,
for concrete keyspecs, the binpath in hex with its digest and the minikey.

Examples:
  dtsmember keyspec "/car[brand='Toyota']"
  dtsmember keyspec "/car[brand=*]/model[name=*]" --category data`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			cat, err := keyspec.ParseCategory(category)
			if err != nil {
				return out.fail(ExitCommandError, CodeKeyspec, "bad category", err)
			}
			result, err := describeKeyspec(args[0], cat)
			if err != nil {
				return out.fail(ExitFailure, CodeKeyspec, "invalid xpath", err)
			}
			return out.Emit(result, func(w io.Writer) { writeKeyspecText(w, result) })
		},
	}

	cmd.Flags().StringVar(&category, "category", "any", "keyspec category (any|config|data|rpc-input|rpc-output|notification)")

	return cmd
}

func describeKeyspec(xpath string, cat keyspec.Category) (KeyspecResult, error) {
	ks, err := keyspec.ParseXPath(xpath, cat)
	if err != nil {
		return KeyspecResult{}, err
	}
	result := KeyspecResult{
		XPath:     ks.String(),
		Category:  ks.Category.String(),
		Depth:     ks.Depth(),
		Wildcards: ks.HasWildcards(),
	}
	if result.Wildcards {
		return result, nil
	}

	bin, err := ks.Binpath()
	if err != nil {
		return KeyspecResult{}, err
	}
	result.Binpath = hex.EncodeToString(bin)
	result.Digest = ir.KeyDigest(bin)

	mk, err := keyspec.MinikeyOf(ks)
	if err != nil {
		return KeyspecResult{}, err
	}
	raw, err := ir.MarshalCanonical(ir.List(mk))
	if err != nil {
		return KeyspecResult{}, err
	}
	result.Minikey = string(raw)
	return result, nil
}

func writeKeyspecText(w io.Writer, r KeyspecResult) {
	fmt.Fprintf(w, "xpath:     %s\n", r.XPath)
	fmt.Fprintf(w, "category:  %s\n", r.Category)
	fmt.Fprintf(w, "depth:     %d\n", r.Depth)
	fmt.Fprintf(w, "wildcards: %t\n", r.Wildcards)
	if r.Binpath != "" {
		fmt.Fprintf(w, "binpath:   %s\n", r.Binpath)
		fmt.Fprintf(w, "digest:    %s\n", r.Digest)
		fmt.Fprintf(w, "minikey:   %s\n", r.Minikey)
	}
}
