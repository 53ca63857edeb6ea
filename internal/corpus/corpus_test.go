package corpus

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sanonone/shelfgraph/pkg/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLoader map[string]string

func (s stubLoader) Load(path string) (string, error) {
	text, ok := s[path]
	if !ok {
		return "", errors.New("permission denied")
	}
	return text, nil
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "texts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "texts", "a.txt"), []byte("call me ishmael"), 0o644))

	manifest := strings.Join([]string{
		`{"key": "a", "text_path": "texts/a.txt", "tags": ["Whaling", "Sea stories"], "attributes": {"title": "Moby Dick", "year": 1851}}`,
		``,
		`{"key": "b", "text": "inline wins", "text_path": "texts/missing.txt", "tags": []}`,
		`{"key": "c", "text_path": "texts/missing.txt", "tags": null}`,
		`{"key": "d", "tags": "Adventure"}`,
	}, "\n")
	path := filepath.Join(dir, "corpus.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))

	docs, report, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, docs, 4)

	assert.Equal(t, "call me ishmael", docs[0].Text)
	assert.Equal(t, []string{"Whaling", "Sea stories"}, docs[0].Tags)
	assert.Equal(t, "Moby Dick", docs[0].Attributes["title"])
	assert.Equal(t, json.Number("1851"), docs[0].Attributes["year"])

	assert.Equal(t, "inline wins", docs[1].Text)
	assert.Empty(t, docs[1].Tags)

	assert.Equal(t, "", docs[2].Text)
	assert.Nil(t, docs[2].Tags)
	assert.Nil(t, docs[3].Tags)

	assert.Equal(t, 4, report.Documents)
	assert.Equal(t, map[string]int{
		ReasonMissingText:   2,
		ReasonNullTags:      1,
		ReasonMalformedTags: 1,
	}, report.Degraded)
	assert.Equal(t, 4, report.TotalDegraded())
	assert.Equal(t, []string{ReasonMalformedTags, ReasonMissingText, ReasonNullTags}, report.Reasons())

	assert.Equal(t, []string{"call me ishmael", "inline wins", "", ""}, Texts(docs))
	assert.Len(t, TagLists(docs), 4)
}

func TestReadManifestUnreadableText(t *testing.T) {
	loader := stubLoader{filepath.Join("base", "ok.txt"): "fine"}
	input := `{"key": "ok", "text_path": "ok.txt"}
{"key": "locked", "text_path": "locked.txt"}
{"key": "abs", "text_path": "/abs/ok.txt"}`

	docs, report, err := ReadManifest(strings.NewReader(input), "base", loader)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "fine", docs[0].Text)
	assert.Equal(t, "", docs[1].Text)
	assert.Equal(t, 2, report.Degraded[ReasonUnreadableText])
}

func TestReadManifestErrors(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		wantErr error
		config  bool
	}{
		{name: "InvalidJSON", input: `{"key": `, wantErr: ErrMalformedManifest},
		{name: "MissingKey", input: `{"text": "x"}`, wantErr: ErrMalformedManifest},
		{name: "DuplicateKey", input: "{\"key\": \"a\", \"text\": \"x\"}\n{\"key\": \"a\", \"text\": \"y\"}", config: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ReadManifest(strings.NewReader(tc.input), ".", FileLoader{})
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			assert.Equal(t, tc.config, errdefs.IsConfiguration(err))
		})
	}
}

func TestReadManifestEmpty(t *testing.T) {
	docs, report, err := ReadManifest(strings.NewReader("\n\n"), ".", FileLoader{})
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, 0, report.Documents)
}

func TestLoadManifestMissingFile(t *testing.T) {
	_, _, err := LoadManifest(filepath.Join(t.TempDir(), "nope.jsonl"))
	assert.Error(t, err)
}

func TestReadManifestMalformedFields(t *testing.T) {
	input := strings.Join([]string{
		`{"key": "ok", "text": "fine", "attributes": {"year": 1851}}`,
		`{"key": "number-text", "text": 42, "tags": ["sea"]}`,
		`{"key": "bad-path", "text_path": ["a.txt"]}`,
		`{"key": "bad-attrs", "text": "still loaded", "attributes": ["title"]}`,
	}, "\n")

	docs, report, err := ReadManifest(strings.NewReader(input), ".", FileLoader{})
	require.NoError(t, err)
	require.Len(t, docs, 4)

	assert.Equal(t, "fine", docs[0].Text)
	assert.Equal(t, json.Number("1851"), docs[0].Attributes["year"])

	assert.Equal(t, "", docs[1].Text)
	assert.Equal(t, []string{"sea"}, docs[1].Tags, "other fields of the record survive")
	assert.Equal(t, "", docs[2].Text)

	assert.Equal(t, "still loaded", docs[3].Text)
	assert.NotNil(t, docs[3].Attributes)
	assert.Empty(t, docs[3].Attributes)

	assert.Equal(t, map[string]int{
		ReasonMalformedText:       2,
		ReasonMalformedAttributes: 1,
	}, report.Degraded)
}

func TestReadManifestIntegerKeys(t *testing.T) {
	input := "{\"key\": 1342, \"text\": \"pride\"}\n{\"key\": \"84\", \"text\": \"frankenstein\"}\n{\"key\": 2701, \"text\": \"moby\"}"
	docs, _, err := ReadManifest(strings.NewReader(input), ".", FileLoader{})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "1342", docs[0].Key)
	assert.Equal(t, "84", docs[1].Key)
	assert.Equal(t, "2701", docs[2].Key)

	_, _, err = ReadManifest(strings.NewReader("{\"key\": 84, \"text\": \"a\"}\n{\"key\": \"84\", \"text\": \"b\"}"), ".", FileLoader{})
	assert.True(t, errdefs.IsConfiguration(err), "an integer key and its decimal string are the same document")

	for _, bad := range []string{`{"key": 1.5}`, `{"key": true}`, `{"key": {"id": 1}}`, `{"key": "  "}`, `[1, 2]`} {
		_, _, err := ReadManifest(strings.NewReader(bad), ".", FileLoader{})
		assert.ErrorIs(t, err, ErrMalformedManifest, bad)
	}
}
