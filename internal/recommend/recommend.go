// Package recommend ranks movies by precomputed tags similarity.
//
// Recommend is a pure function over a corpus and its similarity matrix.
// Engine owns the corpus lifetime and builds the matrix lazily, exactly
// once, consulting a matrixstore.Store first.
package recommend

import (
	"errors"
	"fmt"
	"sort"

	"github.com/iishyfishyy/yehdekho/internal/similarity"
	"github.com/iishyfishyy/yehdekho/internal/textvec"
)

var (
	// ErrEmptyCorpus is returned when an engine is created without items
	ErrEmptyCorpus = textvec.ErrEmptyCorpus

	// ErrItemNotFound is returned when the query title is not in the corpus
	ErrItemNotFound = errors.New("item not found")

	// ErrCorpusMismatch is returned when a matrix does not belong to the corpus
	ErrCorpusMismatch = errors.New("similarity matrix does not match corpus")
)

// DefaultK is the number of recommendations returned when none is requested
const DefaultK = 5

// Result is one recommended item
type Result struct {
	Index int
	Title string
	Score float64
}

// Recommend returns the k items most similar to title, highest score first.
// Equal scores keep ascending corpus order. The query's own index is never
// returned, and fewer than k results come back only when the corpus has
// fewer than k+1 items.
func Recommend(title string, corpus Corpus, m *similarity.Matrix, k int) ([]Result, error) {
	if m == nil || m.Size() != len(corpus) {
		return nil, ErrCorpusMismatch
	}

	idx, ok := corpus.IndexOf(title)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrItemNotFound, title)
	}

	if k <= 0 {
		return []Result{}, nil
	}

	row := m.Row(idx)
	candidates := make([]Result, 0, len(corpus)-1)
	for j, score := range row {
		if j == idx {
			continue
		}
		candidates = append(candidates, Result{
			Index: j,
			Title: corpus[j].Title,
			Score: score,
		})
	}

	// candidates are in index order; a stable sort keeps it for ties
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].Score > candidates[b].Score
	})

	n := min(k, len(candidates))
	return candidates[:n], nil
}
