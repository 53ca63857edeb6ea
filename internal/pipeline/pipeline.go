// Package pipeline runs a full build: corpus -> TF-IDF features -> semantic graph,
// tags -> subject graph, then analysis and artifact export.
//
// Every stage runs in memory first; artifacts are only written once all stages
// have succeeded, so a failed run leaves the output directory untouched.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/google/uuid"

	"github.com/sanonone/shelfgraph/internal/config"
	"github.com/sanonone/shelfgraph/internal/corpus"
	"github.com/sanonone/shelfgraph/pkg/errdefs"
	"github.com/sanonone/shelfgraph/pkg/features"
	"github.com/sanonone/shelfgraph/pkg/graph"
	"github.com/sanonone/shelfgraph/pkg/knn"
	"github.com/sanonone/shelfgraph/pkg/metrics"
	"github.com/sanonone/shelfgraph/pkg/sparse"
	"github.com/sanonone/shelfgraph/pkg/subjects"
)

// Pipeline holds the configuration and metrics of a single run.
type Pipeline struct {
	cfg     config.Config
	runID   string
	log     *slog.Logger
	metrics *metrics.Recorder
}

// Result is everything a run computes before anything is written.
type Result struct {
	Vectorizer *features.Vectorizer
	Features   *sparse.Matrix
	Semantic   *graph.Graph
	Subjects   *graph.Graph
	Report     Report
}

// New validates cfg and prepares a run with a fresh run id.
func New(cfg config.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	runID := uuid.NewString()
	return &Pipeline{
		cfg:     cfg,
		runID:   runID,
		log:     slog.With("run_id", runID),
		metrics: metrics.New(),
	}, nil
}

// RunID identifies the run in logs and in the report.
func (p *Pipeline) RunID() string { return p.runID }

// Metrics returns the run's recorder.
func (p *Pipeline) Metrics() *metrics.Recorder { return p.metrics }

// Run computes the feature matrix, both graphs and the report for docs.
// load is the outcome of reading the manifest and only feeds the report.
func (p *Pipeline) Run(ctx context.Context, docs []corpus.Document, load corpus.Report) (*Result, error) {
	if len(docs) == 0 {
		return nil, errdefs.ErrEmptyInput
	}
	p.log.Info("[Pipeline] Run started", "documents", len(docs), "preset", p.cfg.Preset)
	p.metrics.Documents.Set(float64(len(docs)))
	for _, reason := range load.Reasons() {
		p.metrics.DegradedDocuments.WithLabelValues(reason).Add(float64(load.Degraded[reason]))
	}

	specs := nodeSpecs(docs)
	res := &Result{}

	done := p.metrics.Stage("features")
	vec, err := features.New(p.cfg.Features)
	if err != nil {
		return nil, err
	}
	x, err := vec.FitTransform(corpus.Texts(docs))
	if err != nil {
		return nil, fmt.Errorf("feature extraction: %w", err)
	}
	res.Vectorizer, res.Features = vec, x
	p.metrics.VocabularySize.Set(float64(len(vec.Terms())))
	p.metrics.ObserveMatrix("tfidf", x.NNZ(), emptyRows(x))
	p.log.Info("[Pipeline] Features extracted",
		"rows", x.Rows, "terms", x.Cols, "nnz", x.NNZ(), "elapsed", done())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done = p.metrics.Stage("semantic")
	neighbors, err := knn.Search(ctx, x, p.cfg.KNN())
	if err != nil {
		return nil, fmt.Errorf("semantic neighbor search: %w", err)
	}
	res.Semantic, err = graph.BuildSimilarity(specs, neighbors, p.cfg.Similarity())
	if err != nil {
		return nil, fmt.Errorf("semantic graph: %w", err)
	}
	p.metrics.ObserveGraph("semantic", res.Semantic.NumNodes(), res.Semantic.NumEdges())
	p.log.Info("[Pipeline] Semantic graph built",
		"nodes", res.Semantic.NumNodes(), "edges", res.Semantic.NumEdges(), "elapsed", done())

	done = p.metrics.Stage("subjects")
	tags := corpus.TagLists(docs)
	incidence, tagVocab := subjects.BuildIncidence(tags)
	p.metrics.ObserveMatrix("incidence", incidence.NNZ(), emptyRows(incidence))
	res.Subjects, err = graph.BuildSubjectsFromIncidence(ctx, specs, tags, incidence, tagVocab, p.cfg.SubjectGraph())
	if err != nil {
		return nil, fmt.Errorf("subject graph: %w", err)
	}
	p.metrics.ObserveGraph("subjects", res.Subjects.NumNodes(), res.Subjects.NumEdges())
	p.log.Info("[Pipeline] Subject graph built",
		"nodes", res.Subjects.NumNodes(), "edges", res.Subjects.NumEdges(), "tags", tagVocab.Len(), "elapsed", done())

	res.Report = Report{
		RunID:      p.runID,
		Preset:     p.cfg.Preset,
		Documents:  len(docs),
		Degraded:   load.Degraded,
		Vocabulary: len(vec.Terms()),
		Tags:       tagVocab.Len(),
		Matrix:     MatrixReport{Rows: x.Rows, Cols: x.Cols, NNZ: x.NNZ(), EmptyRows: emptyRows(x)},
		Parameters: parametersOf(p.cfg),
	}

	done = p.metrics.Stage("analysis")
	res.Report.Semantic, err = p.summarize(res.Semantic)
	if err != nil {
		return nil, fmt.Errorf("analyzing semantic graph: %w", err)
	}
	res.Report.Subjects, err = p.summarize(res.Subjects)
	if err != nil {
		return nil, fmt.Errorf("analyzing subject graph: %w", err)
	}
	p.log.Debug("[Pipeline] Analysis done", "enabled", p.cfg.Analysis.Enabled, "elapsed", done())

	return res, nil
}

// summarize returns plain statistics, or the full analysis when enabled. With
// annotation on, scores are also written onto the graph nodes.
func (p *Pipeline) summarize(g *graph.Graph) (graph.Summary, error) {
	if !p.cfg.Analysis.Enabled {
		return graph.Stats(g), nil
	}
	a, err := graph.Analyze(g, p.cfg.Analysis.AnalysisConfig)
	if err != nil {
		return graph.Summary{}, err
	}
	if p.cfg.Analysis.Annotate {
		a.Annotate(g)
	}
	return a.Summary, nil
}

func nodeSpecs(docs []corpus.Document) []graph.NodeSpec {
	specs := make([]graph.NodeSpec, len(docs))
	for i, d := range docs {
		specs[i] = graph.NodeSpec{Key: d.Key, Attrs: maps.Clone(d.Attributes)}
	}
	return specs
}

func emptyRows(m *sparse.Matrix) int {
	n := 0
	for i := 0; i < m.Rows; i++ {
		if m.Indptr[i] == m.Indptr[i+1] {
			n++
		}
	}
	return n
}
