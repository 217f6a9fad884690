package retrieval

import (
	"context"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/CURENT/pv-curve-llm/agent/config"
	"github.com/CURENT/pv-curve-llm/agent/dialogue/ports"
)

// source is a single ranked retrieval backend. Sources return their own
// higher-is-better scores; the ensemble only relies on result order.
type source interface {
	Search(ctx context.Context, query string, k int) ([]ports.Snippet, error)
}

type namedSource struct {
	name   string
	weight float64
	src    source
}

// rankedList is one source's ordered contribution to fusion.
type rankedList struct {
	weight  float64
	results []ports.Snippet
}

// Ensemble fans a query out to every registered source and fuses the ranked
// lists with weighted reciprocal rank fusion. A failing source drops out of
// the fusion instead of failing the query; the ensemble errors only when all
// sources fail.
type Ensemble struct {
	cfg     config.RetrievalConfig
	sources []namedSource
}

// NewEnsemble builds the default two-source ensemble: the term index is always
// available, the FTS source joins when a database handle was configured.
func NewEnsemble(cfg config.RetrievalConfig, terms *TermIndex, fts *FTSIndex) *Ensemble {
	e := &Ensemble{cfg: cfg}
	e.sources = append(e.sources, namedSource{name: "terms", weight: cfg.WeightTerms, src: terms})
	if fts != nil {
		e.sources = append(e.sources, namedSource{name: "fts", weight: cfg.WeightFTS, src: fts})
	}
	return e
}

// Search implements ports.Retriever.
func (e *Ensemble) Search(ctx context.Context, query string, k int) ([]ports.Snippet, error) {
	if k <= 0 {
		k = e.cfg.K
	}

	var mu sync.Mutex
	var lists []rankedList

	p := pool.New().WithContext(ctx)
	for _, ns := range e.sources {
		ns := ns
		p.Go(func(ctx context.Context) error {
			// Overfetch per source so fusion has overlap to work with.
			res, err := ns.src.Search(ctx, query, k*2)
			if err != nil {
				return err
			}
			mu.Lock()
			lists = append(lists, rankedList{weight: ns.weight, results: res})
			mu.Unlock()
			return nil
		})
	}
	err := p.Wait()
	if len(lists) == 0 {
		return nil, err
	}

	fused := e.fuse(lists)
	if len(fused) > k {
		fused = fused[:k]
	}
	return fused, nil
}

// fuse applies weighted RRF keyed on snippet text, so the same fact surfaced
// by several sources accumulates score instead of duplicating.
func (e *Ensemble) fuse(lists []rankedList) []ports.Snippet {
	rrfK := e.cfg.RRFK
	if rrfK <= 0 {
		rrfK = 60
	}

	type entry struct {
		snippet ports.Snippet
		score   float64
	}
	byText := make(map[string]*entry)

	for _, list := range lists {
		weight := list.weight
		if weight <= 0 {
			weight = 1
		}
		for rank, snip := range list.results {
			score := weight / (float64(rank) + rrfK)
			if ex, ok := byText[snip.Text]; ok {
				ex.score += score
			} else {
				byText[snip.Text] = &entry{snippet: snip, score: score}
			}
		}
	}

	fused := make([]ports.Snippet, 0, len(byText))
	for _, en := range byText {
		s := en.snippet
		s.Score = en.score
		fused = append(fused, s)
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].Source < fused[j].Source
	})
	return fused
}

var _ ports.Retriever = (*Ensemble)(nil)
