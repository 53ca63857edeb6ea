package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sanonone/shelfgraph/internal/config"
	"github.com/sanonone/shelfgraph/internal/corpus"
	"github.com/sanonone/shelfgraph/pkg/errdefs"
	"github.com/sanonone/shelfgraph/pkg/export"
	"github.com/sanonone/shelfgraph/pkg/graph"
	"github.com/sanonone/shelfgraph/pkg/persistence"
)

// Artifact file names inside the output directory.
const (
	MatrixFile     = "tfidf.mtx"
	ShapeFile      = "tfidf_shape.txt"
	VocabularyFile = "vocabulary.json"
	SemanticFile   = "semantic.graphml"
	SubjectsFile   = "subjects.graphml"
	ReportFile     = "report.json"
	MetricsFile    = "metrics.prom"
)

// Report is the run summary written to report.json.
type Report struct {
	RunID      string         `json:"run_id"`
	Preset     string         `json:"preset"`
	Documents  int            `json:"documents"`
	Degraded   map[string]int `json:"degraded,omitempty"`
	Vocabulary int            `json:"vocabulary_terms"`
	Tags       int            `json:"tags"`
	Matrix     MatrixReport   `json:"matrix"`
	Parameters Parameters     `json:"parameters"`
	Semantic   graph.Summary  `json:"semantic"`
	Subjects   graph.Summary  `json:"subjects"`
}

// MatrixReport describes the TF-IDF matrix.
type MatrixReport struct {
	Rows      int `json:"rows"`
	Cols      int `json:"cols"`
	NNZ       int `json:"nnz"`
	EmptyRows int `json:"empty_rows"`
}

// Parameters records the settings that shaped the artifacts.
type Parameters struct {
	MaxFeatures int     `json:"max_features"`
	MinDF       int     `json:"min_df"`
	MaxDF       float64 `json:"max_df"`
	NGramRange  [2]int  `json:"ngram_range"`
	K           int     `json:"k"`
	Metric      string  `json:"metric"`
	Threshold   float64 `json:"threshold"`
	Candidates  int     `json:"candidates"`
	MinJaccard  float64 `json:"min_jaccard"`
	TagNodes    bool    `json:"tag_nodes"`
}

func parametersOf(cfg config.Config) Parameters {
	return Parameters{
		MaxFeatures: cfg.Features.MaxFeatures,
		MinDF:       cfg.Features.MinDF,
		MaxDF:       cfg.Features.MaxDFRatio,
		NGramRange:  [2]int{cfg.Features.NGramMin, cfg.Features.NGramMax},
		K:           cfg.Semantic.K,
		Metric:      cfg.Semantic.Metric,
		Threshold:   cfg.Semantic.Threshold,
		Candidates:  cfg.Subjects.Candidates,
		MinJaccard:  cfg.Subjects.MinJaccard,
		TagNodes:    cfg.Subjects.IncludeTagNodes,
	}
}

// Write stores every artifact of res in the configured output directory. Each
// file is replaced atomically; the metrics textfile is written last.
func (p *Pipeline) Write(res *Result) error {
	dir := p.cfg.Output.Dir
	precision, err := persistence.ParsePrecision(p.cfg.Output.Precision)
	if err != nil {
		return errdefs.Configf("output", "precision", "%v", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	done := p.metrics.Stage("write")
	steps := []struct {
		name  string
		write func(path string) error
	}{
		{MatrixFile, func(path string) error { return persistence.SaveMatrix(path, res.Features, precision) }},
		{ShapeFile, func(path string) error { return persistence.SaveShape(path, res.Features) }},
		{VocabularyFile, func(path string) error { return writeJSON(path, res.Vectorizer.Vocabulary(), false) }},
		{SemanticFile, func(path string) error { return export.WriteGraphMLFile(path, res.Semantic) }},
		{SubjectsFile, func(path string) error { return export.WriteGraphMLFile(path, res.Subjects) }},
		{ReportFile, func(path string) error { return writeJSON(path, res.Report, true) }},
	}
	for _, step := range steps {
		if err := step.write(filepath.Join(dir, step.name)); err != nil {
			return fmt.Errorf("writing %s: %w", step.name, err)
		}
	}
	p.log.Info("[Pipeline] Artifacts written", "dir", dir, "precision", precision, "elapsed", done())

	if err := p.metrics.WriteTextfile(filepath.Join(dir, MetricsFile)); err != nil {
		return fmt.Errorf("writing %s: %w", MetricsFile, err)
	}
	return nil
}

func writeJSON(path string, v any, indent bool) error {
	return persistence.WriteFileAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		if indent {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(v)
	})
}

// Build loads the configured manifest, runs the pipeline and writes the artifacts.
func Build(ctx context.Context, cfg config.Config) (*Result, error) {
	if cfg.Corpus.Manifest == "" {
		return nil, errdefs.Configf("corpus", "manifest", "no manifest configured")
	}
	p, err := New(cfg)
	if err != nil {
		return nil, err
	}
	docs, load, err := corpus.LoadManifest(cfg.Corpus.Manifest)
	if err != nil {
		return nil, err
	}
	res, err := p.Run(ctx, docs, load)
	if err != nil {
		return nil, err
	}
	if err := p.Write(res); err != nil {
		return nil, err
	}
	return res, nil
}
