// Package retrieval serves bounded reference-snippet lookups for question
// and analysis turns. Two sources back it: an in-memory term index over the
// built-in knowledge base and an optional FTS5 index in the embedded
// database; an ensemble fuses them.
package retrieval

import (
	"context"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring"

	"github.com/CURENT/pv-curve-llm/agent/dialogue/ports"
)

// TermIndex is an in-memory inverted index with roaring-bitmap posting
// lists. It is built once at startup and read-only afterwards.
type TermIndex struct {
	postings map[string]*roaring.Bitmap
	docs     map[uint32]Doc
	tokens   map[uint32]int // token count per doc, for length normalization
}

// NewTermIndex indexes the built-in knowledge base.
func NewTermIndex() *TermIndex {
	return NewTermIndexFrom(knowledgeBase)
}

// NewTermIndexFrom indexes an arbitrary doc set.
func NewTermIndexFrom(docs []Doc) *TermIndex {
	ix := &TermIndex{
		postings: make(map[string]*roaring.Bitmap),
		docs:     make(map[uint32]Doc),
		tokens:   make(map[uint32]int),
	}
	for _, d := range docs {
		ix.docs[d.ID] = d
		toks := tokenize(d.Title + " " + d.Text)
		ix.tokens[d.ID] = len(toks)
		for _, tok := range toks {
			bm, ok := ix.postings[tok]
			if !ok {
				bm = roaring.New()
				ix.postings[tok] = bm
			}
			bm.Add(d.ID)
		}
	}
	return ix
}

// Search scores docs by matched query terms with a mild length penalty and
// returns the top k, ordered by score then doc ID for determinism.
func (ix *TermIndex) Search(_ context.Context, query string, k int) ([]ports.Snippet, error) {
	terms := tokenize(query)
	if len(terms) == 0 || k <= 0 {
		return nil, nil
	}

	// Union of candidates, counting hits per doc.
	hits := make(map[uint32]int)
	seen := make(map[string]struct{})
	for _, t := range terms {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		bm, ok := ix.postings[t]
		if !ok {
			continue
		}
		it := bm.Iterator()
		for it.HasNext() {
			hits[it.Next()]++
		}
	}
	if len(hits) == 0 {
		return nil, nil
	}

	type scored struct {
		id    uint32
		score float64
	}
	cands := make([]scored, 0, len(hits))
	for id, n := range hits {
		norm := 1.0 + float64(ix.tokens[id])/64.0
		cands = append(cands, scored{id: id, score: float64(n) / norm})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].id < cands[j].id
	})

	if k > len(cands) {
		k = len(cands)
	}
	out := make([]ports.Snippet, 0, k)
	for _, c := range cands[:k] {
		d := ix.docs[c.id]
		out = append(out, ports.Snippet{Text: d.Text, Score: c.score, Source: "terms:" + d.Title})
	}
	return out, nil
}

var _ source = (*TermIndex)(nil)

// tokenize lowercases and splits on non-alphanumerics, dropping one-letter
// fragments.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}
