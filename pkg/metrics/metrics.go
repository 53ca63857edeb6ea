// Package metrics collects the measurements of a pipeline run and exports them in
// the Prometheus text format, ready for a node_exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder owns a private registry, so concurrent runs (and tests) never share
// counters through the global default registry.
type Recorder struct {
	registry *prometheus.Registry

	// StageDuration measures how long each pipeline stage takes.
	StageDuration *prometheus.HistogramVec
	// Documents is the number of documents in the run.
	Documents prometheus.Gauge
	// VocabularySize is the number of fitted TF-IDF terms.
	VocabularySize prometheus.Gauge
	// MatrixNonZeros counts stored entries per matrix ("tfidf", "incidence").
	MatrixNonZeros *prometheus.GaugeVec
	// EmptyRows counts all-zero rows per matrix.
	EmptyRows *prometheus.CounterVec
	// GraphNodes and GraphEdges describe each produced graph.
	GraphNodes *prometheus.GaugeVec
	GraphEdges *prometheus.GaugeVec
	// DegradedDocuments counts documents whose text or tags could not be read.
	DegradedDocuments *prometheus.CounterVec
}

// New creates a Recorder with all metrics registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "shelfgraph_stage_duration_seconds",
				Help: "Duration of pipeline stages in seconds",
				// From a few milliseconds (small test corpora) to tens of minutes.
				Buckets: []float64{0.005, 0.05, 0.25, 1, 5, 15, 60, 300, 900, 1800},
			},
			[]string{"stage"},
		),
		Documents: factory.NewGauge(prometheus.GaugeOpts{
			Name: "shelfgraph_documents",
			Help: "Number of documents processed by the run",
		}),
		VocabularySize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "shelfgraph_vocabulary_terms",
			Help: "Number of terms in the fitted TF-IDF vocabulary",
		}),
		MatrixNonZeros: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "shelfgraph_matrix_nonzeros",
			Help: "Number of stored entries in a sparse matrix",
		}, []string{"matrix"}),
		EmptyRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shelfgraph_matrix_empty_rows_total",
			Help: "Number of all-zero rows in a sparse matrix",
		}, []string{"matrix"}),
		GraphNodes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "shelfgraph_graph_nodes",
			Help: "Number of nodes in a produced graph",
		}, []string{"graph"}),
		GraphEdges: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "shelfgraph_graph_edges",
			Help: "Number of edges in a produced graph",
		}, []string{"graph"}),
		DegradedDocuments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shelfgraph_degraded_documents_total",
			Help: "Documents treated as empty because their data was missing or unreadable",
		}, []string{"reason"}),
	}
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Stage starts timing a stage. Call the returned function when the stage ends.
func (r *Recorder) Stage(name string) func() time.Duration {
	timer := prometheus.NewTimer(r.StageDuration.WithLabelValues(name))
	return timer.ObserveDuration
}

// ObserveGraph records the size of a graph.
func (r *Recorder) ObserveGraph(name string, nodes, edges int) {
	r.GraphNodes.WithLabelValues(name).Set(float64(nodes))
	r.GraphEdges.WithLabelValues(name).Set(float64(edges))
}

// ObserveMatrix records the size and empty-row count of a matrix.
func (r *Recorder) ObserveMatrix(name string, nnz, emptyRows int) {
	r.MatrixNonZeros.WithLabelValues(name).Set(float64(nnz))
	r.EmptyRows.WithLabelValues(name).Add(float64(emptyRows))
}

// WriteTextfile writes every metric to path in the Prometheus text format.
// The file is written to a temporary name and renamed into place.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
