package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/iishyfishyy/yehdekho/internal/poster"
	"github.com/iishyfishyy/yehdekho/internal/recommend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct{}

func (fakeFetcher) Fetch(ctx context.Context, title string) (string, error) {
	if title == "D" {
		return "", poster.ErrUnavailable
	}
	return "https://img.example/" + title + ".jpg", nil
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	engine, err := recommend.NewEngine(recommend.Corpus{
		{Title: "A", Tags: "space war robot"},
		{Title: "B", Tags: "space war alien"},
		{Title: "C", Tags: "romance drama"},
		{Title: "D", Tags: "space alien robot"},
		{Title: "E", Tags: "romance comedy"},
		{Title: "Alien", Tags: "space horror"},
	}, recommend.EngineConfig{MaxTerms: 10})
	require.NoError(t, err)
	return NewServer(cfg, engine, fakeFetcher{})
}

func get(t *testing.T, s *Server, target string, out any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Config{})

	var body HealthResponse
	rec := get(t, s, "/healthz", &body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 6, body.Items)
	assert.False(t, body.Built)
}

func TestRecommendations(t *testing.T) {
	s := newTestServer(t, Config{})

	var body RecommendationsResponse
	rec := get(t, s, "/api/recommendations?title=A&k=2", &body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	assert.Equal(t, "A", body.Query)
	require.Len(t, body.Results, 2)
	assert.Equal(t, 1, body.Results[0].Rank)
	assert.Equal(t, "B", body.Results[0].Title)
	assert.Equal(t, "https://img.example/B.jpg", body.Results[0].Poster)
	assert.Equal(t, 2, body.Results[1].Rank)
	assert.Equal(t, "D", body.Results[1].Title)
	// poster failures leave the result in place without a poster
	assert.Empty(t, body.Results[1].Poster)
	assert.GreaterOrEqual(t, body.Results[0].Score, body.Results[1].Score)
}

func TestRecommendations_DefaultK(t *testing.T) {
	s := newTestServer(t, Config{DefaultK: 3})

	var body RecommendationsResponse
	get(t, s, "/api/recommendations?title=C", &body)
	assert.Len(t, body.Results, 3)
}

func TestRecommendations_Errors(t *testing.T) {
	s := newTestServer(t, Config{})

	tests := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"unknown title", "/api/recommendations?title=Z", http.StatusNotFound, "ITEM_NOT_FOUND"},
		{"case sensitive", "/api/recommendations?title=a", http.StatusNotFound, "ITEM_NOT_FOUND"},
		{"missing title", "/api/recommendations", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"k not a number", "/api/recommendations?title=A&k=two", http.StatusBadRequest, "INVALID_K"},
		{"k zero", "/api/recommendations?title=A&k=0", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"k too large", "/api/recommendations?title=A&k=500", http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body ErrorResponse
			rec := get(t, s, tt.target, &body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestMovies(t *testing.T) {
	s := newTestServer(t, Config{})

	var body MoviesResponse
	get(t, s, "/api/movies?limit=3", &body)
	assert.Equal(t, []string{"A", "B", "C"}, body.Movies)
	assert.Equal(t, 3, body.Count)

	get(t, s, "/api/movies?q=ali", &body)
	assert.Equal(t, []string{"Alien"}, body.Movies)

	rec := get(t, s, "/api/movies?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, Config{RequestsPerMinute: 2})

	for i := 0; i < 2; i++ {
		rec := get(t, s, "/healthz", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec := get(t, s, "/healthz", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestNewServer_NilFetcher(t *testing.T) {
	engine, err := recommend.NewEngine(recommend.Corpus{
		{Title: "A", Tags: "space"},
		{Title: "B", Tags: "space"},
	}, recommend.EngineConfig{})
	require.NoError(t, err)

	s := NewServer(Config{}, engine, nil)

	var body RecommendationsResponse
	get(t, s, "/api/recommendations?title=A", &body)
	require.Len(t, body.Results, 1)
	assert.Empty(t, body.Results[0].Poster)
}
