package textvec

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenize splits text into lower-cased terms, filtering out stop words.
// A term is a run of at least two letters, digits or underscores; anything
// else separates terms.
func Tokenize(text string) []string {
	var words []string
	var currentWord strings.Builder

	flush := func() {
		if currentWord.Len() == 0 {
			return
		}
		word := currentWord.String()
		currentWord.Reset()
		if utf8.RuneCountInString(word) < 2 || IsStopWord(word) {
			return
		}
		words = append(words, word)
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			currentWord.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}

	// Don't forget the last word
	flush()

	return words
}
