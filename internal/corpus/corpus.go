// Package corpus loads the documents of a run from a JSON Lines manifest.
//
// Each line describes one document:
//
//	{"key": "pg2701", "text_path": "texts/pg2701.txt", "tags": ["Whaling"], "attributes": {"title": "Moby Dick"}}
//
// The key is a string or an integer. Inline "text" takes precedence over
// "text_path"; relative paths are resolved against the manifest directory.
// Missing, unreadable or mistyped text, tags and attributes degrade to empty
// values and are logged. Only a line that is not a JSON object with a usable key
// fails the load.
package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sanonone/shelfgraph/pkg/errdefs"
)

// Degradation reasons reported in Report.Degraded.
const (
	ReasonMissingText         = "missing_text"
	ReasonUnreadableText      = "unreadable_text"
	ReasonMalformedText       = "malformed_text"
	ReasonNullTags            = "null_tags"
	ReasonMalformedTags       = "malformed_tags"
	ReasonMalformedAttributes = "malformed_attributes"
)

// maxLineSize bounds a single manifest record; inline texts can be whole books.
const maxLineSize = 64 << 20

// ErrMalformedManifest is returned for lines that are not a valid record.
var ErrMalformedManifest = errors.New("malformed manifest")

// Document is one corpus entry. Documents are not modified after loading.
type Document struct {
	Key        string
	Text       string
	TextPath   string
	Tags       []string
	Attributes map[string]any
}

// Report summarizes a load.
type Report struct {
	Documents int
	// Degraded counts documents per degradation reason.
	Degraded map[string]int
}

func (r *Report) degrade(reason string) {
	if r.Degraded == nil {
		r.Degraded = make(map[string]int)
	}
	r.Degraded[reason]++
}

// Loader reads the text of a document.
type Loader interface {
	Load(path string) (string, error)
}

// FileLoader reads plain UTF-8 text files.
type FileLoader struct{}

func (FileLoader) Load(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// record keeps every field raw so that a bad value degrades only that field.
type record struct {
	Key        json.RawMessage `json:"key"`
	Text       json.RawMessage `json:"text"`
	TextPath   json.RawMessage `json:"text_path"`
	Tags       json.RawMessage `json:"tags"`
	Attributes json.RawMessage `json:"attributes"`
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// LoadManifest reads the manifest at path using a FileLoader.
func LoadManifest(path string) ([]Document, Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Report{}, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()
	return ReadManifest(f, filepath.Dir(path), FileLoader{})
}

// ReadManifest decodes a manifest stream. Relative text paths are joined to baseDir.
// Duplicate keys are a configuration error since rows are addressed by key.
func ReadManifest(r io.Reader, baseDir string, loader Loader) ([]Document, Report, error) {
	var (
		docs   []Document
		report Report
		seen   = make(map[string]int)
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, report, fmt.Errorf("%w: line %d: %v", ErrMalformedManifest, line, err)
		}
		key, err := decodeKey(rec.Key)
		if err != nil {
			return nil, report, fmt.Errorf("%w: line %d: %v", ErrMalformedManifest, line, err)
		}
		if prev, dup := seen[key]; dup {
			return nil, report, errdefs.Configf("corpus", "key", "duplicate document key %q on lines %d and %d", key, prev, line)
		}
		seen[key] = line

		doc := Document{Key: key}
		doc.Text, doc.TextPath = loadText(key, rec, baseDir, loader, &report)
		doc.Tags = decodeTags(key, rec.Tags, &report)
		doc.Attributes = decodeAttributes(key, rec.Attributes, &report)
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, report, fmt.Errorf("failed to read manifest: %w", err)
	}

	report.Documents = len(docs)
	slog.Info("[Corpus] Manifest loaded", "documents", report.Documents, "degraded", report.TotalDegraded())
	return docs, report, nil
}

// decodeKey accepts a JSON string or an integer; integers become their decimal form.
func decodeKey(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", errors.New("missing key")
	}
	var key string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &key); err != nil {
			return "", fmt.Errorf("invalid key: %v", err)
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", fmt.Errorf("key must be a string or an integer, got %s", raw)
		}
		id, err := n.Int64()
		if err != nil {
			return "", fmt.Errorf("key must be a string or an integer, got %s", raw)
		}
		key = strconv.FormatInt(id, 10)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("missing key")
	}
	return key, nil
}

func loadText(key string, rec record, baseDir string, loader Loader, report *Report) (text, textPath string) {
	if !isNull(rec.Text) {
		if err := json.Unmarshal(rec.Text, &text); err != nil {
			slog.Warn("[Corpus] Malformed inline text, using empty document", "key", key, "error", err)
			report.degrade(ReasonMalformedText)
			return "", ""
		}
		return text, ""
	}
	if !isNull(rec.TextPath) {
		if err := json.Unmarshal(rec.TextPath, &textPath); err != nil {
			slog.Warn("[Corpus] Malformed text_path, using empty document", "key", key, "error", err)
			report.degrade(ReasonMalformedText)
			return "", ""
		}
	}
	if textPath == "" {
		slog.Warn("[Corpus] Document has no text", "key", key)
		report.degrade(ReasonMissingText)
		return "", ""
	}

	path := textPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	text, err := loader.Load(path)
	if err != nil {
		reason := ReasonUnreadableText
		if errors.Is(err, fs.ErrNotExist) {
			reason = ReasonMissingText
		}
		slog.Warn("[Corpus] Text unavailable, using empty document", "key", key, "path", path, "error", err)
		report.degrade(reason)
		return "", textPath
	}
	return text, textPath
}

// decodeAttributes keeps integer values exact as json.Number.
func decodeAttributes(key string, raw json.RawMessage, report *Report) map[string]any {
	if isNull(raw) {
		return nil
	}
	var attrs map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&attrs); err != nil {
		slog.Warn("[Corpus] Malformed attributes, using empty record", "key", key, "error", err)
		report.degrade(ReasonMalformedAttributes)
		return map[string]any{}
	}
	return attrs
}

func decodeTags(key string, raw json.RawMessage, report *Report) []string {
	if len(raw) == 0 {
		return nil
	}
	if string(raw) == "null" {
		slog.Warn("[Corpus] Null tag list, using empty set", "key", key)
		report.degrade(ReasonNullTags)
		return nil
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		slog.Warn("[Corpus] Malformed tag list, using empty set", "key", key, "error", err)
		report.degrade(ReasonMalformedTags)
		return nil
	}
	return tags
}

// TotalDegraded returns the number of degraded documents over all reasons.
func (r Report) TotalDegraded() int {
	total := 0
	for _, n := range r.Degraded {
		total += n
	}
	return total
}

// Reasons returns the degradation reasons in sorted order.
func (r Report) Reasons() []string {
	reasons := make([]string, 0, len(r.Degraded))
	for reason := range r.Degraded {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	return reasons
}

// Texts returns the document texts in row order.
func Texts(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Text
	}
	return out
}

// TagLists returns the raw tag lists in row order.
func TagLists(docs []Document) [][]string {
	out := make([][]string, len(docs))
	for i, d := range docs {
		out[i] = d.Tags
	}
	return out
}
