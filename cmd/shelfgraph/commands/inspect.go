package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sanonone/shelfgraph/pkg/export"
	"github.com/sanonone/shelfgraph/pkg/persistence"
)

// NewInspectCmd creates the inspect command.
func NewInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the shape of an artifact",
		Long: `Load a matrix (.mtx), shape (.txt) or graph (.graphml) artifact and print
its dimensions. Loading validates the artifact, so this doubles as an
integrity check.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			out := cmd.OutOrStdout()

			switch strings.ToLower(filepath.Ext(path)) {
			case ".mtx":
				m, info, err := persistence.LoadMatrix(path)
				if err != nil {
					return fmt.Errorf("loading matrix: %w", err)
				}
				fmt.Fprintf(out, "matrix %s: shape %s, %d non-zeros, %s\n",
					path, persistence.FormatShape(m.Rows, m.Cols), m.NNZ(), info.Precision)
			case ".txt":
				rows, cols, err := persistence.LoadShape(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "shape %s: %s\n", path, persistence.FormatShape(rows, cols))
			case ".graphml", ".xml":
				g, err := export.ReadGraphMLFile(path)
				if err != nil {
					return fmt.Errorf("loading graph: %w", err)
				}
				fmt.Fprintf(out, "graph %s (%s): %d nodes, %d edges\n", path, g.Name, g.NumNodes(), g.NumEdges())
			default:
				return fmt.Errorf("unsupported artifact %q (want .mtx, .txt or .graphml)", path)
			}
			return nil
		},
	}
}
