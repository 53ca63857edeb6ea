// Package subjects turns per-document tag lists into a binary incidence matrix.
package subjects

import (
	"strings"

	"github.com/sanonone/shelfgraph/pkg/sparse"
)

// Vocabulary holds the distinct tags of a corpus in first-seen order.
type Vocabulary struct {
	Tags  []string
	index map[string]int
}

// Len returns the number of distinct tags.
func (v Vocabulary) Len() int { return len(v.Tags) }

// Column returns the column index of tag, or -1.
func (v Vocabulary) Column(tag string) int {
	if c, ok := v.index[normalize(tag)]; ok {
		return c
	}
	return -1
}

// normalize trims surrounding whitespace. A blank tag normalizes to "".
func normalize(tag string) string {
	return strings.TrimSpace(tag)
}

// Set returns the normalized set of a raw tag list. Duplicate and blank tags are
// dropped; a nil list yields an empty set.
func Set(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t = normalize(t); t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

// BuildIncidence builds the document x tag incidence matrix. Row i belongs to
// tags[i]; a cell is 1 when the document carries the tag. Columns are assigned to
// tags in the order they are first seen across the corpus. Documents without tags
// produce all-zero rows, and no documents produce a zero-row matrix.
func BuildIncidence(tags [][]string) (*sparse.Matrix, Vocabulary) {
	vocab := Vocabulary{index: make(map[string]int)}
	b := sparse.NewBuilder(len(tags), 0)

	var cols []int
	var ones []float64
	for _, docTags := range tags {
		cols, ones = cols[:0], ones[:0]
		seen := make(map[int]struct{}, len(docTags))
		for _, raw := range docTags {
			tag := normalize(raw)
			if tag == "" {
				continue
			}
			c, ok := vocab.index[tag]
			if !ok {
				c = len(vocab.Tags)
				vocab.index[tag] = c
				vocab.Tags = append(vocab.Tags, tag)
			}
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			cols = append(cols, c)
			ones = append(ones, 1)
		}
		b.AppendRow(cols, ones)
	}

	m, err := b.Build(len(vocab.Tags))
	if err != nil {
		panic(err)
	}
	return m, vocab
}
