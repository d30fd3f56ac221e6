package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

const defaultWidth = 80

// Row is one line of the recommendation table
type Row struct {
	Rank   int
	Title  string
	Score  float64
	Poster string
}

// IsInteractive reports whether stdin and stdout are both terminals
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// TerminalWidth returns the width of stdout, or 80 when it is not a terminal
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

// ShowRecommendations prints the ranked table to stdout
func ShowRecommendations(query string, rows []Row) {
	RenderRecommendations(color.Output, query, rows, TerminalWidth())
}

// RenderRecommendations writes the ranked table for query. Titles are
// truncated to fit width; poster URLs go on their own line, with a dash
// for titles that have none.
func RenderRecommendations(w io.Writer, query string, rows []Row, width int) {
	if width <= 0 {
		width = defaultWidth
	}

	bold := color.New(color.Bold)
	gray := color.New(color.FgHiBlack)

	bold.Fprintf(w, "\nBecause you liked %s:\n\n", query)

	if len(rows) == 0 {
		gray.Fprintln(w, "  No recommendations.")
		return
	}

	// "  NN. " prefix plus "  0.000" score column
	titleWidth := width - 6 - 8
	if titleWidth < 10 {
		titleWidth = 10
	}

	showPosters := false
	for _, r := range rows {
		if r.Poster != "" {
			showPosters = true
			break
		}
	}

	for _, r := range rows {
		fmt.Fprintf(w, "  %2d. %-*s  %s\n", r.Rank, titleWidth, truncate(r.Title, titleWidth), scoreColor(r.Score).Sprintf("%.3f", r.Score))
		switch {
		case r.Poster != "":
			gray.Fprintf(w, "      %s\n", r.Poster)
		case showPosters:
			gray.Fprintln(w, "      —")
		}
	}
	fmt.Fprintln(w)
}

func scoreColor(score float64) *color.Color {
	switch {
	case score >= 0.5:
		return color.New(color.FgGreen)
	case score >= 0.2:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgHiBlack)
	}
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// TitlesText formats rows as plain text for the clipboard
func TitlesText(rows []Row) string {
	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "%d. %s\n", r.Rank, r.Title)
	}
	return b.String()
}
