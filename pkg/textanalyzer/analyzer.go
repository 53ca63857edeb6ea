// Package textanalyzer turns raw document text into the terms counted by the
// feature extractor: word tokens, optional case folding, locale stop-word removal
// and word n-grams.
package textanalyzer

import (
	"fmt"
	"regexp"
	"strings"
)

// Analyzer is the interface implemented by every text analyzer.
type Analyzer interface {
	// Analyze turns a text into the slice of terms it contains, in order.
	Analyze(text string) []string
}

// Supported stop-word locales.
const (
	LocaleNone    = "none"
	LocaleEnglish = "english"
	LocaleItalian = "italian"
)

// tokenizerRegex extracts runs of at least two letters or digits.
// \p{L} matches letters in any script, which is better than \w for non-ASCII text.
var tokenizerRegex = regexp.MustCompile(`[\p{L}\p{N}]{2,}`)

// Tokenize splits a text into lowercase word tokens.
func Tokenize(text string) []string {
	return tokenizerRegex.FindAllString(strings.ToLower(text), -1)
}

// TokenizeCased splits a text into word tokens without touching their case.
func TokenizeCased(text string) []string {
	return tokenizerRegex.FindAllString(text, -1)
}

// Options configures a WordAnalyzer.
type Options struct {
	Lowercase bool
	// StopWords selects the stop-word list: "english", "italian" or "none".
	// An empty value behaves like "none".
	StopWords string
	NGramMin  int
	NGramMax  int
}

// WordAnalyzer tokenizes, filters stop words and emits word n-grams.
type WordAnalyzer struct {
	opts      Options
	stopWords map[string]struct{}
}

// NewWordAnalyzer validates the options and returns a ready analyzer.
func NewWordAnalyzer(opts Options) (*WordAnalyzer, error) {
	stop, err := StopWords(opts.StopWords)
	if err != nil {
		return nil, err
	}
	if opts.NGramMin < 1 {
		return nil, fmt.Errorf("ngram min must be >= 1, got %d", opts.NGramMin)
	}
	if opts.NGramMax < opts.NGramMin {
		return nil, fmt.Errorf("ngram max (%d) must be >= ngram min (%d)", opts.NGramMax, opts.NGramMin)
	}
	return &WordAnalyzer{opts: opts, stopWords: stop}, nil
}

// Analyze implements the Analyzer interface.
func (a *WordAnalyzer) Analyze(text string) []string {
	var tokens []string
	if a.opts.Lowercase {
		tokens = Tokenize(text)
	} else {
		tokens = TokenizeCased(text)
	}
	if a.stopWords != nil {
		tokens = filterStopWords(tokens, a.stopWords)
	}
	return NGrams(tokens, a.opts.NGramMin, a.opts.NGramMax)
}

// NGrams returns all word n-grams of length min..max, shorter n first.
// N-gram words are joined by a single space. Stop words are removed before
// n-grams are formed, so an n-gram may span a removed word.
func NGrams(tokens []string, min, max int) []string {
	if min == 1 && max == 1 {
		return tokens
	}
	total := 0
	for n := min; n <= max; n++ {
		if len(tokens) >= n {
			total += len(tokens) - n + 1
		}
	}
	grams := make([]string, 0, total)
	for n := min; n <= max; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			if n == 1 {
				grams = append(grams, tokens[i])
				continue
			}
			grams = append(grams, strings.Join(tokens[i:i+n], " "))
		}
	}
	return grams
}

// StopWords returns the stop-word set for a locale. The "none" locale returns nil.
func StopWords(locale string) (map[string]struct{}, error) {
	switch strings.ToLower(locale) {
	case "", LocaleNone:
		return nil, nil
	case LocaleEnglish:
		return englishStopWords, nil
	case LocaleItalian:
		return italianStopWords, nil
	default:
		return nil, fmt.Errorf("unsupported stop-word locale %q", locale)
	}
}

func filterStopWords(tokens []string, stop map[string]struct{}) []string {
	// Pre-allocate to avoid re-allocations on long documents.
	filtered := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStopWord := stop[token]; !isStopWord {
			filtered = append(filtered, token)
		}
	}
	return filtered
}
