// Package features implements the TF-IDF feature extractor.
//
// Weights follow the smoothed formulation: tf is the raw count of a term in a
// document, idf = ln((1+N)/(1+df)) + 1, and every non-empty row is scaled to unit
// L2 norm so that cosine similarity between rows reduces to a dot product.
package features

import (
	"errors"
	"log/slog"
	"math"
	"sort"

	"github.com/sanonone/shelfgraph/pkg/errdefs"
	"github.com/sanonone/shelfgraph/pkg/sparse"
	"github.com/sanonone/shelfgraph/pkg/textanalyzer"
	"github.com/tidwall/btree"
)

// ErrNotFitted is returned by Transform before the vocabulary has been fitted.
var ErrNotFitted = errors.New("vectorizer has not been fitted")

// Vocabulary maps a term to its column index.
type Vocabulary map[string]int

// Vectorizer fits a vocabulary and IDF weights on a corpus and turns texts into
// TF-IDF rows.
type Vectorizer struct {
	cfg      Config
	analyzer textanalyzer.Analyzer

	vocab  Vocabulary
	terms  []string  // column index -> term
	idf    []float64 // column index -> idf weight
	fitted bool
}

// New validates cfg and returns an unfitted vectorizer.
func New(cfg Config) (*Vectorizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	analyzer, err := textanalyzer.NewWordAnalyzer(cfg.analyzerOptions())
	if err != nil {
		return nil, errdefs.Configf(component, "", "%v", err)
	}
	return &Vectorizer{cfg: cfg, analyzer: analyzer}, nil
}

// Vocabulary returns the fitted term -> column mapping.
func (v *Vectorizer) Vocabulary() Vocabulary { return v.vocab }

// Terms returns the fitted terms ordered by column index.
func (v *Vectorizer) Terms() []string { return v.terms }

// IDF returns the idf weight of every column.
func (v *Vectorizer) IDF() []float64 { return v.idf }

// FitTransform learns the vocabulary and idf weights from texts and returns their
// TF-IDF matrix. Row i corresponds to texts[i]; an empty string yields an all-zero
// row. An empty corpus yields a zero-row matrix.
func (v *Vectorizer) FitTransform(texts []string) (*sparse.Matrix, error) {
	n := len(texts)
	if n == 0 {
		v.setVocabulary(nil, nil, 0)
		slog.Debug("[Features] empty corpus, returning zero-row matrix")
		return sparse.Empty(0), nil
	}

	counts := make([]map[string]int, n)
	docFreq := make(map[string]int)
	totals := make(map[string]int)
	for i, text := range texts {
		counts[i] = v.countTerms(text)
		for term, c := range counts[i] {
			docFreq[term]++
			totals[term] += c
		}
	}

	maxDocCount := v.cfg.MaxDFRatio * float64(n)
	if maxDocCount < float64(v.cfg.MinDF) {
		return nil, errdefs.Configf(component, "max_df",
			"max_df*N (%.2f) is below min_df (%d) for a corpus of %d documents", maxDocCount, v.cfg.MinDF, n)
	}

	candidates := make([]string, 0, len(docFreq))
	for term, df := range docFreq {
		if df >= v.cfg.MinDF && float64(df) <= maxDocCount {
			candidates = append(candidates, term)
		}
	}
	kept := v.limitFeatures(candidates, totals)
	if len(kept) == 0 {
		return nil, errdefs.Configf(component, "", "empty vocabulary after frequency filtering (%d documents, %d distinct terms)", n, len(docFreq))
	}
	v.setVocabulary(kept, docFreq, n)

	slog.Debug("[Features] vocabulary fitted",
		"documents", n, "distinct_terms", len(docFreq), "qualifying", len(candidates), "kept", len(kept))

	return v.buildMatrix(counts), nil
}

// Transform vectorizes texts with the fitted vocabulary and idf weights. Terms
// unknown to the vocabulary are ignored.
func (v *Vectorizer) Transform(texts []string) (*sparse.Matrix, error) {
	if !v.fitted {
		return nil, ErrNotFitted
	}
	counts := make([]map[string]int, len(texts))
	for i, text := range texts {
		counts[i] = v.countTerms(text)
	}
	return v.buildMatrix(counts), nil
}

func (v *Vectorizer) countTerms(text string) map[string]int {
	terms := v.analyzer.Analyze(text)
	counts := make(map[string]int, len(terms))
	for _, term := range terms {
		counts[term]++
	}
	return counts
}

type rankedTerm struct {
	term  string
	total int
}

// limitFeatures keeps at most MaxFeatures terms, preferring the highest corpus-wide
// counts and breaking ties by term so the selection is deterministic.
func (v *Vectorizer) limitFeatures(candidates []string, totals map[string]int) []string {
	if v.cfg.MaxFeatures == 0 || len(candidates) <= v.cfg.MaxFeatures {
		return candidates
	}
	ranking := btree.NewBTreeG(func(a, b rankedTerm) bool {
		if a.total != b.total {
			return a.total > b.total
		}
		return a.term < b.term
	})
	for _, term := range candidates {
		ranking.Set(rankedTerm{term: term, total: totals[term]})
	}
	kept := make([]string, 0, v.cfg.MaxFeatures)
	ranking.Scan(func(item rankedTerm) bool {
		kept = append(kept, item.term)
		return len(kept) < v.cfg.MaxFeatures
	})
	return kept
}

// setVocabulary assigns columns in lexicographic term order and computes idf.
func (v *Vectorizer) setVocabulary(terms []string, docFreq map[string]int, n int) {
	sort.Strings(terms)
	v.terms = terms
	v.vocab = make(Vocabulary, len(terms))
	v.idf = make([]float64, len(terms))
	for col, term := range terms {
		v.vocab[term] = col
		v.idf[col] = math.Log(float64(1+n)/float64(1+docFreq[term])) + 1
	}
	v.fitted = true
}

func (v *Vectorizer) buildMatrix(counts []map[string]int) *sparse.Matrix {
	nnz := 0
	for _, c := range counts {
		nnz += len(c)
	}
	b := sparse.NewBuilder(len(counts), nnz)
	cols := make([]int, 0, 64)
	vals := make([]float64, 0, 64)
	for _, docCounts := range counts {
		cols, vals = cols[:0], vals[:0]
		for term, tf := range docCounts {
			col, ok := v.vocab[term]
			if !ok {
				continue
			}
			cols = append(cols, col)
			vals = append(vals, float64(tf)*v.idf[col])
		}
		b.AppendRow(cols, vals)
	}
	m, err := b.Build(len(v.terms))
	if err != nil {
		// Columns come from the vocabulary, so the structure is valid by construction.
		panic(err)
	}
	m.NormalizeRows()
	return m
}
