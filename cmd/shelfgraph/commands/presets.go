package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sanonone/shelfgraph/internal/config"
)

// NewPresetsCmd creates the presets command.
func NewPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets [name]",
		Short: "Print the named configuration presets",
		Long: `Print every preset, or only the named one, as YAML. The output is a valid
config file and can be used as a starting point.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := config.PresetNames()
			if len(args) == 1 {
				names = args
			}
			out := cmd.OutOrStdout()
			for i, name := range names {
				cfg, err := config.Preset(name)
				if err != nil {
					return err
				}
				raw, err := yaml.Marshal(cfg)
				if err != nil {
					return fmt.Errorf("encoding preset %s: %w", name, err)
				}
				if i > 0 {
					fmt.Fprintln(out, "---")
				}
				fmt.Fprintf(out, "# %s\n%s", name, raw)
			}
			return nil
		},
	}
}
