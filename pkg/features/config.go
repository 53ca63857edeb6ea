package features

import (
	"math"

	"github.com/sanonone/shelfgraph/pkg/errdefs"
	"github.com/sanonone/shelfgraph/pkg/textanalyzer"
)

const component = "features"

// Config holds the vectorizer parameters.
type Config struct {
	// MaxFeatures caps the vocabulary size. 0 disables the cap.
	MaxFeatures int `yaml:"max_features"`
	// MinDF is the minimum number of documents a term must appear in.
	MinDF int `yaml:"min_df"`
	// MaxDFRatio drops terms that appear in more than MaxDFRatio*N documents.
	MaxDFRatio float64 `yaml:"max_df"`
	NGramMin   int     `yaml:"ngram_min"`
	NGramMax   int     `yaml:"ngram_max"`
	// StopWords selects the stop-word locale ("english", "italian", "none").
	StopWords string `yaml:"stop_words"`
	Lowercase bool   `yaml:"lowercase"`
}

// DefaultConfig returns the parameters used for the book corpus: unigrams and
// bigrams, English stop words, df between 5 documents and 85% of the corpus.
// Text is expected to be lowercased by the cleaning stage already.
func DefaultConfig() Config {
	return Config{
		MaxFeatures: 100_000,
		MinDF:       5,
		MaxDFRatio:  0.85,
		NGramMin:    1,
		NGramMax:    2,
		StopWords:   textanalyzer.LocaleEnglish,
		Lowercase:   false,
	}
}

// Validate checks every parameter independently of the corpus size.
func (c Config) Validate() error {
	if c.MaxFeatures < 0 {
		return errdefs.Configf(component, "max_features", "must be >= 0, got %d", c.MaxFeatures)
	}
	if c.MinDF < 1 {
		return errdefs.Configf(component, "min_df", "must be >= 1, got %d", c.MinDF)
	}
	if math.IsNaN(c.MaxDFRatio) || c.MaxDFRatio <= 0 || c.MaxDFRatio > 1 {
		return errdefs.Configf(component, "max_df", "must be in (0, 1], got %v", c.MaxDFRatio)
	}
	if c.NGramMin < 1 {
		return errdefs.Configf(component, "ngram_min", "must be >= 1, got %d", c.NGramMin)
	}
	if c.NGramMax < c.NGramMin {
		return errdefs.Configf(component, "ngram_max", "must be >= ngram_min (%d), got %d", c.NGramMin, c.NGramMax)
	}
	if _, err := textanalyzer.StopWords(c.StopWords); err != nil {
		return errdefs.Configf(component, "stop_words", "%v", err)
	}
	return nil
}

func (c Config) analyzerOptions() textanalyzer.Options {
	return textanalyzer.Options{
		Lowercase: c.Lowercase,
		StopWords: c.StopWords,
		NGramMin:  c.NGramMin,
		NGramMax:  c.NGramMax,
	}
}
