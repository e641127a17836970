package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/config"
)

// InitResult reports the config file init wrote or found.
type InitResult struct {
	Path    string `json:"path"`
	Created bool   `json:"created"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default config file",
		Long: `Write the default configuration to path (dtsmember.yaml by default).
An existing file is left untouched.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			path := "dtsmember.yaml"
			if len(args) == 1 {
				path = args[0]
			}

			_, statErr := os.Stat(path)
			if err := config.WriteDefault(path); err != nil {
				return out.fail(ExitCommandError, CodeLoad, "failed to write config", err)
			}
			result := InitResult{Path: path, Created: os.IsNotExist(statErr)}
			return out.Emit(result, func(w io.Writer) {
				if result.Created {
					fmt.Fprintf(w, "✓ wrote %s\n", path)
				} else {
					fmt.Fprintf(w, "%s already exists\n", path)
				}
			})
		},
	}
}
