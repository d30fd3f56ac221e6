// Package catalog loads the movie catalog the recommender is built from.
//
// Supported formats are picked by file extension:
//
//	.csv          header row naming at least "title"; either a "tags" column
//	              or any of overview, genres, keywords, cast, crew
//	              (list columns are "|"-separated)
//	.json         array of movie objects
//	.yaml, .yml   sequence of movie mappings
//
// Record order in the file becomes corpus order.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/iishyfishyy/yehdekho/internal/logging"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNoMovies is returned when a catalog has no usable records
	ErrNoMovies = errors.New("catalog contains no movies")

	// ErrUnsupportedFormat is returned for unknown file extensions
	ErrUnsupportedFormat = errors.New("unsupported catalog format")
)

// Load reads a catalog file
func Load(path string) ([]Movie, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer file.Close()

	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	movies, err := Decode(file, format)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	logging.Debug().
		Str("component", "catalog").
		Str("path", path).
		Int("movies", len(movies)).
		Msg("catalog loaded")

	return movies, nil
}

// Decode reads a catalog in the given format (csv, json, yaml or yml)
func Decode(r io.Reader, format string) ([]Movie, error) {
	var (
		movies []Movie
		err    error
	)

	switch format {
	case "csv":
		movies, err = decodeCSV(r)
	case "json":
		err = json.NewDecoder(r).Decode(&movies)
	case "yaml", "yml":
		err = yaml.NewDecoder(r).Decode(&movies)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	return clean(movies)
}

// clean drops records without a title, keeping order
func clean(movies []Movie) ([]Movie, error) {
	kept := make([]Movie, 0, len(movies))
	for i, m := range movies {
		m.Title = strings.TrimSpace(m.Title)
		if m.Title == "" {
			logging.Warn().Str("component", "catalog").Int("record", i+1).Msg("skipping movie without title")
			continue
		}
		kept = append(kept, m)
	}

	if len(kept) == 0 {
		return nil, ErrNoMovies
	}

	return kept, nil
}

func decodeCSV(r io.Reader) ([]Movie, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoMovies
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns["title"]; !ok {
		return nil, fmt.Errorf("missing title column")
	}

	field := func(record []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var movies []Movie
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}

		movies = append(movies, Movie{
			ID:       field(record, "id"),
			Title:    field(record, "title"),
			Overview: field(record, "overview"),
			Genres:   splitList(field(record, "genres")),
			Keywords: splitList(field(record, "keywords")),
			Cast:     splitList(field(record, "cast")),
			Crew:     splitList(field(record, "crew")),
			Tags:     field(record, "tags"),
		})
	}

	return movies, nil
}

// splitList splits a "|"-separated CSV cell
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, "|") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
