package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sanonone/shelfgraph/internal/config"
	"github.com/sanonone/shelfgraph/internal/pipeline"
)

type buildOptions struct {
	configPath string
	manifest   string
	outDir     string
	preset     string
	logLevel   string
}

// NewBuildCmd creates the build command.
func NewBuildCmd() *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Run the pipeline and write all artifacts",
		Long: `Load the corpus manifest, extract TF-IDF features, build the semantic and
subject graphs and write them with the run report to the output directory.

Flags override the corresponding values of the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	cmd.Flags().StringVarP(&opts.manifest, "manifest", "m", "", "Corpus manifest (JSON Lines)")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "Output directory")
	cmd.Flags().StringVar(&opts.preset, "preset", "", "Base preset (gutenberg, legacy)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	return cmd
}

func runBuild(cmd *cobra.Command, opts *buildOptions) error {
	cfg, err := config.Load(opts.configPath, opts.preset)
	if err != nil {
		return err
	}
	if opts.manifest != "" {
		cfg.Corpus.Manifest = opts.manifest
	}
	if opts.outDir != "" {
		cfg.Output.Dir = opts.outDir
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if err := setupLogger(cmd.ErrOrStderr(), cfg.Logging); err != nil {
		return err
	}

	res, err := pipeline.Build(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	r := res.Report
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s (%s preset)\n", r.RunID, r.Preset)
	fmt.Fprintf(out, "  documents:  %d (%d degraded)\n", r.Documents, degradedTotal(r.Degraded))
	fmt.Fprintf(out, "  features:   %d x %d, %d non-zeros\n", r.Matrix.Rows, r.Matrix.Cols, r.Matrix.NNZ)
	fmt.Fprintf(out, "  semantic:   %d nodes, %d edges\n", r.Semantic.Nodes, r.Semantic.Edges)
	fmt.Fprintf(out, "  subjects:   %d nodes, %d edges\n", r.Subjects.Nodes, r.Subjects.Edges)
	fmt.Fprintf(out, "Artifacts written to %s\n", cfg.Output.Dir)
	return nil
}

func degradedTotal(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}
