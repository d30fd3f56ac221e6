package recommend

import (
	"strings"
)

// Item is a single movie: its title and its tags document
type Item struct {
	Title string
	Tags  string
}

// Corpus is the ordered item collection. Index positions are shared with
// document vectors and similarity matrix rows, so a Corpus must not be
// reordered once an Engine has been built from it.
type Corpus []Item

// Documents returns the tags documents in corpus order
func (c Corpus) Documents() []string {
	docs := make([]string, len(c))
	for i, item := range c {
		docs[i] = item.Tags
	}
	return docs
}

// Titles returns the titles in corpus order
func (c Corpus) Titles() []string {
	titles := make([]string, len(c))
	for i, item := range c {
		titles[i] = item.Title
	}
	return titles
}

// IndexOf returns the first index whose title matches exactly (case-sensitive)
func (c Corpus) IndexOf(title string) (int, bool) {
	for i, item := range c {
		if item.Title == title {
			return i, true
		}
	}
	return -1, false
}

// FindTitles returns up to limit titles matching query case-insensitively.
// Exact matches come first, then prefix matches, then substring matches,
// each group in corpus order. A non-positive limit means no limit.
func FindTitles(c Corpus, query string, limit int) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []string{}
	}

	var exact, prefix, contains []string
	for _, item := range c {
		t := strings.ToLower(item.Title)
		switch {
		case t == q:
			exact = append(exact, item.Title)
		case strings.HasPrefix(t, q):
			prefix = append(prefix, item.Title)
		case strings.Contains(t, q):
			contains = append(contains, item.Title)
		}
	}

	matches := append(append(exact, prefix...), contains...)
	if matches == nil {
		return []string{}
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
