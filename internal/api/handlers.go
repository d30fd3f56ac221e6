package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/iishyfishyy/yehdekho/internal/logging"
	"github.com/iishyfishyy/yehdekho/internal/poster"
	"github.com/iishyfishyy/yehdekho/internal/recommend"
)

const defaultMoviesLimit = 20

// RecommendationsResponse is the body of GET /api/recommendations
type RecommendationsResponse struct {
	Query   string           `json:"query"`
	Results []ResultResponse `json:"results"`
}

// ResultResponse is one ranked recommendation
type ResultResponse struct {
	Rank   int     `json:"rank"`
	Title  string  `json:"title"`
	Score  float64 `json:"score"`
	Poster string  `json:"poster,omitempty"`
}

// MoviesResponse is the body of GET /api/movies
type MoviesResponse struct {
	Movies []string `json:"movies"`
	Count  int      `json:"count"`
}

// HealthResponse is the body of GET /healthz
type HealthResponse struct {
	Status         string `json:"status"`
	Items          int    `json:"items"`
	Built          bool   `json:"built"`
	VocabularySize int    `json:"vocabulary_size,omitempty"`
}

// ErrorResponse wraps API errors
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// APIError is a machine readable error code plus a message
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type recommendationsRequest struct {
	Title string `validate:"required"`
	K     int    `validate:"min=1,max=50"`
}

type moviesRequest struct {
	Limit int `validate:"min=1,max=100"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.Stats()
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:         "ok",
		Items:          stats.Items,
		Built:          stats.Built,
		VocabularySize: stats.VocabularySize,
	})
}

func (s *Server) handleMovies(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultMoviesLimit)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_LIMIT", err.Error(), nil)
		return
	}

	req := moviesRequest{Limit: limit}
	if msg := s.validateRequest(req); msg != "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", msg, nil)
		return
	}

	var movies []string
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		movies = s.engine.FindTitles(q, req.Limit)
	} else {
		movies = s.engine.Corpus().Titles()
		if len(movies) > req.Limit {
			movies = movies[:req.Limit]
		}
	}

	respondJSON(w, http.StatusOK, MoviesResponse{Movies: movies, Count: len(movies)})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	k, err := intParam(r, "k", s.cfg.DefaultK)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_K", err.Error(), nil)
		return
	}

	req := recommendationsRequest{
		Title: r.URL.Query().Get("title"),
		K:     k,
	}
	if msg := s.validateRequest(req); msg != "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", msg, nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	results, err := s.engine.Recommend(ctx, req.Title, req.K)
	switch {
	case errors.Is(err, recommend.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "ITEM_NOT_FOUND", fmt.Sprintf("no movie titled %q", req.Title), nil)
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "RECOMMENDATION_ERROR", "failed to generate recommendations", err)
		return
	}

	titles := make([]string, len(results))
	for i, res := range results {
		titles[i] = res.Title
	}
	posters := poster.FetchAll(ctx, s.posters, titles, s.cfg.PosterConcurrency)

	resp := RecommendationsResponse{
		Query:   req.Title,
		Results: make([]ResultResponse, len(results)),
	}
	for i, res := range results {
		resp.Results[i] = ResultResponse{
			Rank:   i + 1,
			Title:  res.Title,
			Score:  res.Score,
			Poster: posters[i],
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// validateRequest returns a human readable message, or "" when v is valid
func (s *Server) validateRequest(v any) string {
	err := s.validate.Struct(v)
	if err == nil {
		return ""
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s must be between bounds (%s=%s)", field, fe.Tag(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}

// intParam parses an integer query parameter, returning def when absent
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("failed to write JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		log := logging.Component("api")
		log.Error().Err(err).Str("code", code).Msg("request failed")
	}
	respondJSON(w, status, ErrorResponse{Error: APIError{Code: code, Message: message}})
}
