package recommend

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/iishyfishyy/yehdekho/internal/similarity"
	"github.com/iishyfishyy/yehdekho/internal/textvec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioCorpus() Corpus {
	return Corpus{
		{Title: "A", Tags: "space war robot"},
		{Title: "B", Tags: "space war alien"},
		{Title: "C", Tags: "romance drama"},
		{Title: "D", Tags: "space alien robot"},
		{Title: "E", Tags: "romance comedy"},
	}
}

func buildMatrix(t *testing.T, corpus Corpus, maxTerms int) *similarity.Matrix {
	t.Helper()

	_, vectors, err := textvec.Build(corpus.Documents(), maxTerms)
	require.NoError(t, err)
	m, err := similarity.Build(vectors)
	require.NoError(t, err)
	return m
}

func titles(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Title
	}
	return out
}

func TestRecommend_Scenario(t *testing.T) {
	corpus := scenarioCorpus()
	m := buildMatrix(t, corpus, 10)

	results, err := Recommend("A", corpus, m, 2)
	require.NoError(t, err)

	// B and D each share two terms with A; equal scores keep corpus order
	assert.Equal(t, []string{"B", "D"}, titles(results))
	assert.InDelta(t, 2.0/3.0, results[0].Score, 1e-12)
	assert.InDelta(t, 2.0/3.0, results[1].Score, 1e-12)
	assert.Equal(t, 1, results[0].Index)
	assert.Equal(t, 3, results[1].Index)

	all, err := Recommend("A", corpus, m, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "D", "C", "E"}, titles(all))
	assert.Zero(t, all[2].Score)
}

func TestRecommend_ItemNotFound(t *testing.T) {
	corpus := scenarioCorpus()
	m := buildMatrix(t, corpus, 10)
	before := m.Row(0)

	_, err := Recommend("Z", corpus, m, 2)
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.Contains(t, err.Error(), `"Z"`)

	// matching is case-sensitive
	_, err = Recommend("a", corpus, m, 2)
	assert.ErrorIs(t, err, ErrItemNotFound)

	assert.Equal(t, before, m.Row(0))
}

func TestRecommend_SmallCorpus(t *testing.T) {
	corpus := scenarioCorpus()[:3]
	m := buildMatrix(t, corpus, 10)

	results, err := Recommend("C", corpus, m, 5)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRecommend_SingleItem(t *testing.T) {
	corpus := Corpus{{Title: "Solo", Tags: "alone"}}
	m := buildMatrix(t, corpus, 10)

	results, err := Recommend("Solo", corpus, m, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRecommend_NonPositiveK(t *testing.T) {
	corpus := scenarioCorpus()
	m := buildMatrix(t, corpus, 10)

	results, err := Recommend("A", corpus, m, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRecommend_CorpusMismatch(t *testing.T) {
	corpus := scenarioCorpus()
	m := buildMatrix(t, corpus[:2], 10)

	_, err := Recommend("A", corpus, m, 2)
	assert.ErrorIs(t, err, ErrCorpusMismatch)

	_, err = Recommend("A", corpus, nil, 2)
	assert.ErrorIs(t, err, ErrCorpusMismatch)
}

func TestRecommend_DuplicateAndDegenerateQuery(t *testing.T) {
	corpus := Corpus{
		{Title: "Twin", Tags: "the and of"},
		{Title: "Other", Tags: "space"},
		{Title: "Twin", Tags: "the and of"},
	}
	m := buildMatrix(t, corpus, 10)

	results, err := Recommend("Twin", corpus, m, 5)
	require.NoError(t, err)

	// zero-norm query scores 0 everywhere; the first Twin is the query, the
	// second is a different item and is returned
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Index)
	assert.Equal(t, 2, results[1].Index)
	for _, r := range results {
		assert.NotEqual(t, 0, r.Index)
		assert.Zero(t, r.Score)
	}
}

func TestRecommend_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	words := []string{"space", "war", "robot", "alien", "romance", "drama", "comedy", "heist", "noir", "western"}

	for round := 0; round < 25; round++ {
		n := 1 + r.Intn(30)
		corpus := make(Corpus, n)
		for i := range corpus {
			var tags string
			nw := r.Intn(5)
			for w := 0; w < nw; w++ {
				tags += words[r.Intn(len(words))] + " "
			}
			corpus[i] = Item{Title: fmt.Sprintf("movie-%d", i), Tags: tags}
		}
		m := buildMatrix(t, corpus, 1+r.Intn(10))

		for q := range corpus {
			for _, k := range []int{1, 3, 5, 50} {
				results, err := Recommend(corpus[q].Title, corpus, m, k)
				require.NoError(t, err)

				assert.Len(t, results, min(k, n-1))
				for i, res := range results {
					assert.NotEqual(t, q, res.Index)
					if i > 0 {
						prev := results[i-1]
						assert.GreaterOrEqual(t, prev.Score, res.Score)
						if prev.Score == res.Score {
							assert.Less(t, prev.Index, res.Index)
						}
					}
				}
			}
		}
	}
}

func TestFindTitles(t *testing.T) {
	corpus := Corpus{
		{Title: "Avatar"},
		{Title: "The Avengers"},
		{Title: "Avatar: The Way of Water"},
		{Title: "avatar"},
		{Title: "Titanic"},
	}

	assert.Equal(t, []string{"Avatar", "avatar", "Avatar: The Way of Water"}, FindTitles(corpus, "avatar", 0))
	assert.Equal(t, []string{"The Avengers", "Avatar: The Way of Water"}, FindTitles(corpus, "the", 0))
	assert.Equal(t, []string{"Avatar"}, FindTitles(corpus, "AVATAR", 1))
	assert.Empty(t, FindTitles(corpus, "  ", 5))
	assert.Empty(t, FindTitles(corpus, "zzz", 5))
}
