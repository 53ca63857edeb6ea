package features

import (
	"math"
	"testing"

	"github.com/sanonone/shelfgraph/pkg/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plainConfig() Config {
	return Config{
		MinDF:      1,
		MaxDFRatio: 1.0,
		NGramMin:   1,
		NGramMax:   1,
		StopWords:  "none",
		Lowercase:  true,
	}
}

func newVectorizer(t *testing.T, cfg Config) *Vectorizer {
	t.Helper()
	v, err := New(cfg)
	require.NoError(t, err)
	return v
}

func TestFitTransformWeights(t *testing.T) {
	v := newVectorizer(t, plainConfig())
	m, err := v.FitTransform([]string{"apple banana", "Apple cherry", ""})
	require.NoError(t, err)

	rows, cols := m.Shape()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 3, cols)
	assert.Equal(t, Vocabulary{"apple": 0, "banana": 1, "cherry": 2}, v.Vocabulary())
	assert.Equal(t, []string{"apple", "banana", "cherry"}, v.Terms())

	idfApple := math.Log(4.0/3.0) + 1
	idfBanana := math.Log(4.0/2.0) + 1
	assert.InDelta(t, idfApple, v.IDF()[0], 1e-12)
	assert.InDelta(t, idfBanana, v.IDF()[1], 1e-12)

	norm := math.Hypot(idfApple, idfBanana)
	assert.InDelta(t, idfApple/norm, m.At(0, 0), 1e-12)
	assert.InDelta(t, idfBanana/norm, m.At(0, 1), 1e-12)
	assert.Zero(t, m.At(0, 2))

	norms := m.RowNorms()
	assert.InDelta(t, 1.0, norms[0], 1e-12)
	assert.InDelta(t, 1.0, norms[1], 1e-12)
	assert.Zero(t, norms[2], "empty text must yield an all-zero row")
}

func TestFitTransformTermFrequency(t *testing.T) {
	v := newVectorizer(t, plainConfig())
	m, err := v.FitTransform([]string{"red red blue", "blue"})
	require.NoError(t, err)

	idfRed := math.Log(3.0/2.0) + 1
	idfBlue := math.Log(3.0/3.0) + 1
	wRed, wBlue := 2*idfRed, idfBlue
	norm := math.Hypot(wRed, wBlue)
	assert.InDelta(t, wBlue/norm, m.At(0, 0), 1e-12)
	assert.InDelta(t, wRed/norm, m.At(0, 1), 1e-12)
	assert.InDelta(t, 1.0, m.At(1, 0), 1e-12)
}

func TestDocumentFrequencyBounds(t *testing.T) {
	t.Run("MaxDF", func(t *testing.T) {
		cfg := plainConfig()
		cfg.MaxDFRatio = 0.9
		v := newVectorizer(t, cfg)
		_, err := v.FitTransform([]string{"common alpha", "common beta", "common gamma"})
		require.NoError(t, err)
		assert.NotContains(t, v.Vocabulary(), "common")
		assert.Len(t, v.Vocabulary(), 3)
	})

	t.Run("MinDF", func(t *testing.T) {
		cfg := plainConfig()
		cfg.MinDF = 2
		v := newVectorizer(t, cfg)
		m, err := v.FitTransform([]string{"alpha beta", "alpha gamma", "delta"})
		require.NoError(t, err)
		assert.Equal(t, Vocabulary{"alpha": 0}, v.Vocabulary())
		assert.Equal(t, 0, len(m.Row(2).Indices))
	})

	t.Run("MaxDFBelowMinDF", func(t *testing.T) {
		v := newVectorizer(t, DefaultConfig())
		_, err := v.FitTransform([]string{"one", "two", "three", "four"})
		require.Error(t, err)
		assert.True(t, errdefs.IsConfiguration(err))
	})
}

func TestMaxFeatures(t *testing.T) {
	texts := []string{"aa aa aa bb bb cc", "dd"}

	cfg := plainConfig()
	cfg.MaxFeatures = 2
	v := newVectorizer(t, cfg)
	_, err := v.FitTransform(texts)
	require.NoError(t, err)
	assert.Equal(t, []string{"aa", "bb"}, v.Terms())

	// cc and dd tie on total count; the lexicographically smaller term wins.
	cfg.MaxFeatures = 3
	v = newVectorizer(t, cfg)
	m, err := v.FitTransform(texts)
	require.NoError(t, err)
	assert.Equal(t, []string{"aa", "bb", "cc"}, v.Terms())
	assert.Zero(t, m.RowNorms()[1])
}

func TestBigrams(t *testing.T) {
	cfg := plainConfig()
	cfg.NGramMax = 2
	cfg.StopWords = "english"
	v := newVectorizer(t, cfg)
	_, err := v.FitTransform([]string{"the old man and the sea", "the old man"})
	require.NoError(t, err)
	assert.Contains(t, v.Vocabulary(), "old man")
	assert.Contains(t, v.Vocabulary(), "man sea")
	assert.NotContains(t, v.Vocabulary(), "the")
}

func TestEmptyCorpus(t *testing.T) {
	v := newVectorizer(t, DefaultConfig())
	m, err := v.FitTransform(nil)
	require.NoError(t, err)
	rows, cols := m.Shape()
	assert.Equal(t, 0, rows)
	assert.Equal(t, 0, cols)
	assert.Empty(t, v.Vocabulary())
}

func TestEmptyVocabulary(t *testing.T) {
	cfg := plainConfig()
	cfg.MinDF = 2
	v := newVectorizer(t, cfg)
	_, err := v.FitTransform([]string{"alpha", "beta"})
	require.Error(t, err)
	assert.True(t, errdefs.IsConfiguration(err))
}

func TestTransform(t *testing.T) {
	v := newVectorizer(t, plainConfig())
	_, err := v.Transform([]string{"x"})
	assert.ErrorIs(t, err, ErrNotFitted)

	_, err = v.FitTransform([]string{"apple banana", "apple cherry"})
	require.NoError(t, err)

	m, err := v.Transform([]string{"banana durian", "durian"})
	require.NoError(t, err)
	rows, cols := m.Shape()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 3, cols)
	assert.InDelta(t, 1.0, m.At(0, 1), 1e-12)
	assert.Zero(t, m.RowNorms()[1])
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative max features", func(c *Config) { c.MaxFeatures = -1 }},
		{"zero min df", func(c *Config) { c.MinDF = 0 }},
		{"zero max df", func(c *Config) { c.MaxDFRatio = 0 }},
		{"max df above one", func(c *Config) { c.MaxDFRatio = 1.5 }},
		{"nan max df", func(c *Config) { c.MaxDFRatio = math.NaN() }},
		{"zero ngram min", func(c *Config) { c.NGramMin = 0 }},
		{"inverted ngram range", func(c *Config) { c.NGramMin, c.NGramMax = 3, 2 }},
		{"unknown stop words", func(c *Config) { c.StopWords = "klingon" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errdefs.IsConfiguration(err))

			_, err = New(cfg)
			assert.Error(t, err)
		})
	}
}
