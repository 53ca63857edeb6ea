// Package config defines the YAML configuration of a pipeline run.
//
// A file starts from a named preset (the "preset" key, "gutenberg" when absent)
// and overrides any subset of its values. Environment variables in the raw file
// are expanded before parsing, and unknown keys are rejected.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/sanonone/shelfgraph/pkg/distance"
	"github.com/sanonone/shelfgraph/pkg/errdefs"
	"github.com/sanonone/shelfgraph/pkg/features"
	"github.com/sanonone/shelfgraph/pkg/graph"
	"github.com/sanonone/shelfgraph/pkg/knn"
	"github.com/sanonone/shelfgraph/pkg/persistence"
	"gopkg.in/yaml.v3"
)

// Preset names.
const (
	PresetGutenberg = "gutenberg"
	PresetLegacy    = "legacy"
)

// Config is the top-level configuration.
type Config struct {
	Preset   string          `yaml:"preset"`
	Corpus   CorpusConfig    `yaml:"corpus"`
	Features features.Config `yaml:"features"`
	Semantic SemanticConfig  `yaml:"semantic"`
	Subjects SubjectsConfig  `yaml:"subjects"`
	Search   SearchConfig    `yaml:"search"`
	Analysis AnalysisConfig  `yaml:"analysis"`
	Output   OutputConfig    `yaml:"output"`
	Logging  LoggingConfig   `yaml:"logging"`
}

// CorpusConfig locates the document manifest.
type CorpusConfig struct {
	Manifest string `yaml:"manifest"`
}

// SemanticConfig configures the text similarity graph.
type SemanticConfig struct {
	K         int     `yaml:"k"`
	Threshold float64 `yaml:"threshold"`
	Metric    string  `yaml:"metric"`
	Algorithm string  `yaml:"algorithm"`
}

// SubjectsConfig configures the subject graph.
type SubjectsConfig struct {
	Candidates      int     `yaml:"candidates"`
	MinJaccard      float64 `yaml:"min_jaccard"`
	IncludeTagNodes bool    `yaml:"include_tag_nodes"`
	Algorithm       string  `yaml:"algorithm"`
}

// SearchConfig holds settings shared by both neighbor searches.
type SearchConfig struct {
	// Workers bounds search parallelism. 0 uses every available CPU.
	Workers int `yaml:"workers"`
}

// AnalysisConfig toggles graph analysis in the run report.
type AnalysisConfig struct {
	Enabled bool `yaml:"enabled"`
	// Annotate writes pagerank and community attributes onto exported nodes.
	Annotate bool `yaml:"annotate"`

	graph.AnalysisConfig `yaml:",inline"`
}

// OutputConfig controls where and how artifacts are written.
type OutputConfig struct {
	Dir       string `yaml:"dir"`
	Precision string `yaml:"precision"`
}

// LoggingConfig controls the slog handler installed by the CLI.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the canonical "gutenberg" preset.
func DefaultConfig() Config {
	return Config{
		Preset:   PresetGutenberg,
		Features: features.DefaultConfig(),
		Semantic: SemanticConfig{
			K:         10,
			Threshold: 0.25,
			Metric:    string(distance.Cosine),
			Algorithm: string(knn.Brute),
		},
		Subjects: SubjectsConfig{
			Candidates: 10,
			MinJaccard: 0.10,
			Algorithm:  string(knn.Brute),
		},
		Analysis: AnalysisConfig{
			Enabled:        true,
			Annotate:       true,
			AnalysisConfig: graph.DefaultAnalysisConfig(),
		},
		Output: OutputConfig{
			Dir:       "data/outputs",
			Precision: string(persistence.Float32),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

var presets = map[string]func() Config{
	PresetGutenberg: DefaultConfig,
	// legacy reproduces the earlier pipeline variant, which folded case itself
	// and kept a larger vocabulary.
	PresetLegacy: func() Config {
		cfg := DefaultConfig()
		cfg.Preset = PresetLegacy
		cfg.Features.Lowercase = true
		cfg.Features.MaxFeatures = 120_000
		return cfg
	},
}

// Preset returns a named preset.
func Preset(name string) (Config, error) {
	build, ok := presets[strings.ToLower(name)]
	if !ok {
		return Config{}, errdefs.Configf("config", "preset", "unknown preset %q (available: %s)", name, strings.Join(PresetNames(), ", "))
	}
	return build(), nil
}

// PresetNames lists the available presets in alphabetical order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load reads the YAML configuration file at path. The base preset is, in order
// of precedence, presetOverride, the file's "preset" key, then "gutenberg".
// An empty path returns the base preset unchanged.
func Load(path, presetOverride string) (Config, error) {
	if path == "" {
		name := presetOverride
		if name == "" {
			name = PresetGutenberg
		}
		return Preset(name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data, presetOverride)
}

// Parse decodes a YAML document; see Load.
func Parse(data []byte, presetOverride string) (Config, error) {
	expanded := []byte(os.ExpandEnv(string(data)))

	var head struct {
		Preset string `yaml:"preset"`
	}
	if err := yaml.Unmarshal(expanded, &head); err != nil {
		return Config{}, fmt.Errorf("YAML syntax error in config: %w", err)
	}
	name := head.Preset
	if presetOverride != "" {
		name = presetOverride
	}
	if name == "" {
		name = PresetGutenberg
	}
	cfg, err := Preset(name)
	if err != nil {
		return Config{}, err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(expanded))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("YAML syntax error in config: %w", err)
	}
	cfg.Preset = strings.ToLower(name)
	return cfg, nil
}

// KNN returns the neighbor search parameters of the semantic graph.
func (c Config) KNN() knn.Config {
	return knn.Config{
		K:         c.Semantic.K,
		Metric:    distance.DistanceMetric(c.Semantic.Metric),
		Algorithm: knn.Algorithm(c.Semantic.Algorithm),
		Workers:   c.Search.Workers,
	}
}

// Similarity returns the semantic graph parameters.
func (c Config) Similarity() graph.SimilarityConfig {
	return graph.SimilarityConfig{Threshold: c.Semantic.Threshold}
}

// SubjectGraph returns the subject graph parameters.
func (c Config) SubjectGraph() graph.SubjectConfig {
	return graph.SubjectConfig{
		Candidates:      c.Subjects.Candidates,
		MinJaccard:      c.Subjects.MinJaccard,
		IncludeTagNodes: c.Subjects.IncludeTagNodes,
		Metric:          distance.Cosine,
		Algorithm:       knn.Algorithm(c.Subjects.Algorithm),
		Workers:         c.Search.Workers,
	}
}

// SlogLevel parses the logging level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, errdefs.Configf("logging", "level", "%v", err)
	}
	return level, nil
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	add(c.Features.Validate())
	add(c.KNN().Validate())
	if metric, err := distance.ParseMetric(c.Semantic.Metric); err == nil && metric != distance.Cosine {
		add(errdefs.Configf("semantic", "metric", "similarity edges are weighted by 1 - cosine distance, got %q", metric))
	}
	add(c.Similarity().Validate())
	add(c.SubjectGraph().Validate())
	subjectSearch := knn.Config{K: c.Subjects.Candidates, Algorithm: knn.Algorithm(c.Subjects.Algorithm), Workers: c.Search.Workers}
	if c.Subjects.Candidates >= 1 {
		add(subjectSearch.Validate())
	}
	if c.Analysis.Enabled {
		add(c.Analysis.AnalysisConfig.Validate())
	}
	if c.Output.Dir == "" {
		add(errdefs.Configf("output", "dir", "must not be empty"))
	}
	if _, err := persistence.ParsePrecision(c.Output.Precision); err != nil {
		add(errdefs.Configf("output", "precision", "%v", err))
	}
	_, err := c.Logging.SlogLevel()
	add(err)
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		add(errdefs.Configf("logging", "format", "must be text or json, got %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}
