// Package textvec turns tags documents into fixed-length term count vectors.
//
// Build derives a bounded vocabulary from the whole corpus and vectorizes
// every document against it in one pass:
//
//	vocab, vectors, err := textvec.Build(docs, 5000)
//
// Vocabulary selection keeps the maxTerms most frequent terms by total corpus
// count. Equal counts are resolved by first occurrence in the corpus
// (document order, then token order). The selected terms are laid out as
// vector columns in ascending lexical order.
package textvec

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrEmptyCorpus is returned when there are no documents to build from
	ErrEmptyCorpus = errors.New("empty corpus")

	// ErrInvalidMaxTerms is returned for a non-positive vocabulary cap
	ErrInvalidMaxTerms = errors.New("max terms must be positive")
)

// Vector is a term count vector over a Vocabulary
type Vector []int

// Norm returns the Euclidean length of the vector
func (v Vector) Norm() float64 {
	var sum float64
	for _, c := range v {
		sum += float64(c) * float64(c)
	}
	return math.Sqrt(sum)
}

// IsZero reports whether no vocabulary term occurred in the document
func (v Vector) IsZero() bool {
	for _, c := range v {
		if c != 0 {
			return false
		}
	}
	return true
}

// Vocabulary is an immutable, ordered set of selected terms
type Vocabulary struct {
	terms []string
	index map[string]int
}

// Len returns the number of terms, which is also the vector length
func (v *Vocabulary) Len() int {
	return len(v.terms)
}

// Terms returns a copy of the terms in column order
func (v *Vocabulary) Terms() []string {
	terms := make([]string, len(v.terms))
	copy(terms, v.terms)
	return terms
}

// Index returns the column of a term
func (v *Vocabulary) Index(term string) (int, bool) {
	i, ok := v.index[term]
	return i, ok
}

// Vectorize counts vocabulary terms in doc. Terms outside the vocabulary are ignored.
func (v *Vocabulary) Vectorize(doc string) Vector {
	return v.vectorizeTokens(Tokenize(doc))
}

func (v *Vocabulary) vectorizeTokens(tokens []string) Vector {
	vec := make(Vector, len(v.terms))
	for _, tok := range tokens {
		if i, ok := v.index[tok]; ok {
			vec[i]++
		}
	}
	return vec
}

// termStat tracks the corpus frequency of a term
type termStat struct {
	term  string
	count int
}

// BuildVocabulary selects at most maxTerms terms from the tokenized corpus
func BuildVocabulary(tokenized [][]string, maxTerms int) (*Vocabulary, error) {
	if len(tokenized) == 0 {
		return nil, ErrEmptyCorpus
	}
	if maxTerms <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMaxTerms, maxTerms)
	}

	stats := make(map[string]*termStat)
	var order []*termStat
	for _, tokens := range tokenized {
		for _, tok := range tokens {
			st, ok := stats[tok]
			if !ok {
				st = &termStat{term: tok}
				stats[tok] = st
				order = append(order, st)
			}
			st.count++
		}
	}

	// order is already in first-seen order, so a stable sort on count keeps that tie-break
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].count > order[j].count
	})

	n := min(len(order), maxTerms)
	terms := make([]string, n)
	for i := 0; i < n; i++ {
		terms[i] = order[i].term
	}
	sort.Strings(terms)

	index := make(map[string]int, n)
	for i, t := range terms {
		index[t] = i
	}

	return &Vocabulary{terms: terms, index: index}, nil
}

// Build tokenizes documents, selects the vocabulary and returns one vector per document,
// in document order.
func Build(documents []string, maxTerms int) (*Vocabulary, []Vector, error) {
	if len(documents) == 0 {
		return nil, nil, ErrEmptyCorpus
	}

	tokenized := make([][]string, len(documents))
	for i, doc := range documents {
		tokenized[i] = Tokenize(doc)
	}

	vocab, err := BuildVocabulary(tokenized, maxTerms)
	if err != nil {
		return nil, nil, err
	}

	vectors := make([]Vector, len(documents))
	for i, tokens := range tokenized {
		vectors[i] = vocab.vectorizeTokens(tokens)
	}

	return vocab, vectors, nil
}

// NewVocabulary rebuilds a vocabulary from terms already in column order,
// e.g. terms restored from a cache entry.
func NewVocabulary(terms []string) *Vocabulary {
	own := make([]string, len(terms))
	copy(own, terms)
	index := make(map[string]int, len(own))
	for i, t := range own {
		index[t] = i
	}
	return &Vocabulary{terms: own, index: index}
}
