package catalog

import (
	"strings"

	"github.com/iishyfishyy/yehdekho/internal/recommend"
)

// Movie is one catalog record
type Movie struct {
	ID       string   `json:"id,omitempty" yaml:"id,omitempty"`
	Title    string   `json:"title" yaml:"title"`
	Overview string   `json:"overview,omitempty" yaml:"overview,omitempty"`
	Genres   []string `json:"genres,omitempty" yaml:"genres,omitempty"`
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Cast     []string `json:"cast,omitempty" yaml:"cast,omitempty"`
	Crew     []string `json:"crew,omitempty" yaml:"crew,omitempty"`
	Tags     string   `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// maxCast is how many leading cast members contribute to tags
const maxCast = 3

// BuildTags derives a tags document from the descriptive fields: overview
// words, then genres, keywords, the leading cast and the director. Crew is
// expected director first; the rest of the crew is ignored. Multi-word
// names are collapsed into one token so "Sam Worthington" does not match
// every other Sam.
func BuildTags(m Movie) string {
	var parts []string

	parts = append(parts, strings.Fields(m.Overview)...)
	for _, g := range m.Genres {
		parts = append(parts, collapse(g))
	}
	for _, k := range m.Keywords {
		parts = append(parts, collapse(k))
	}
	for i, c := range m.Cast {
		if i >= maxCast {
			break
		}
		parts = append(parts, collapse(c))
	}
	if len(m.Crew) > 0 {
		parts = append(parts, collapse(m.Crew[0]))
	}

	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, strings.ToLower(p))
		}
	}

	return strings.Join(kept, " ")
}

// collapse removes whitespace inside a name
func collapse(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// ToCorpus converts movies to a corpus, preserving order. Movies without
// explicit tags get BuildTags.
func ToCorpus(movies []Movie) recommend.Corpus {
	corpus := make(recommend.Corpus, len(movies))
	for i, m := range movies {
		tags := m.Tags
		if strings.TrimSpace(tags) == "" {
			tags = BuildTags(m)
		}
		corpus[i] = recommend.Item{
			Title: m.Title,
			Tags:  tags,
		}
	}
	return corpus
}
