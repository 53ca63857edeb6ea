// Package commands implements the shelfgraph command line.
package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sanonone/shelfgraph/internal/config"
)

// NewRootCmd assembles the command tree.
func NewRootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "shelfgraph",
		Short: "Build similarity graphs over a book corpus",
		Long: `shelfgraph turns a corpus of cleaned book texts into a TF-IDF feature
matrix, a semantic similarity graph and a subject graph built from tag overlap.

Examples:
  shelfgraph build --config shelfgraph.yaml
  shelfgraph build --manifest corpus.jsonl --out data/outputs --preset legacy
  shelfgraph inspect data/outputs/semantic.graphml
  shelfgraph presets`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Values from .env feed ${VAR} references in the config file.
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("loading %s: %w", envFile, err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before reading the config")

	cmd.AddCommand(NewBuildCmd())
	cmd.AddCommand(NewInspectCmd())
	cmd.AddCommand(NewPresetsCmd())
	return cmd
}

// setupLogger installs the default slog handler described by cfg.
func setupLogger(w io.Writer, cfg config.LoggingConfig) error {
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
