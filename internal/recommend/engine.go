package recommend

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/iishyfishyy/yehdekho/internal/logging"
	"github.com/iishyfishyy/yehdekho/internal/recommend/matrixstore"
	"github.com/iishyfishyy/yehdekho/internal/similarity"
	"github.com/iishyfishyy/yehdekho/internal/textvec"
)

// DefaultMaxTerms caps the vocabulary when no limit is configured
const DefaultMaxTerms = 5000

// EngineConfig configures an Engine
type EngineConfig struct {
	// MaxTerms caps the vocabulary size (DefaultMaxTerms when zero)
	MaxTerms int

	// Store caches built matrices; nil disables caching beyond the engine itself
	Store matrixstore.Store
}

// Stats describes the engine's built state
type Stats struct {
	Items          int
	VocabularySize int
	Built          bool
	FromCache      bool
	Fingerprint    string
	BuildDuration  time.Duration
}

// Engine owns a corpus and its similarity matrix. The matrix is built on
// first use and is read-only afterwards; concurrent first calls share one build.
type Engine struct {
	corpus   Corpus
	maxTerms int
	store    matrixstore.Store
	key      string

	mu        sync.Mutex
	matrix    *similarity.Matrix
	vocab     *textvec.Vocabulary
	fromCache bool
	buildTime time.Duration
}

// NewEngine creates an engine over a copy of corpus
func NewEngine(corpus Corpus, cfg EngineConfig) (*Engine, error) {
	if len(corpus) == 0 {
		return nil, ErrEmptyCorpus
	}

	maxTerms := cfg.MaxTerms
	if maxTerms == 0 {
		maxTerms = DefaultMaxTerms
	}
	if maxTerms < 0 {
		return nil, fmt.Errorf("%w: %d", textvec.ErrInvalidMaxTerms, maxTerms)
	}

	own := make(Corpus, len(corpus))
	copy(own, corpus)

	return &Engine{
		corpus:   own,
		maxTerms: maxTerms,
		store:    cfg.Store,
		key:      Fingerprint(own, maxTerms),
	}, nil
}

// Fingerprint identifies a corpus and vocabulary cap for matrix caching
func Fingerprint(corpus Corpus, maxTerms int) string {
	d := xxhash.New()
	d.WriteString(strconv.Itoa(maxTerms))
	d.WriteString("\x00")
	for _, item := range corpus {
		d.WriteString(item.Title)
		d.WriteString("\x00")
		d.WriteString(item.Tags)
		d.WriteString("\x00")
	}
	return hex.EncodeToString(d.Sum(nil))
}

// Corpus returns a copy of the engine's corpus
func (e *Engine) Corpus() Corpus {
	c := make(Corpus, len(e.corpus))
	copy(c, e.corpus)
	return c
}

// Len returns the number of items
func (e *Engine) Len() int {
	return len(e.corpus)
}

// Matrix returns the similarity matrix, building it on first use
func (e *Engine) Matrix(ctx context.Context) (*similarity.Matrix, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.matrix != nil {
		return e.matrix, nil
	}

	log := logging.Component("engine")

	if e.store != nil {
		entry, err := e.store.Get(ctx, e.key)
		switch {
		case err == nil && entry.Matrix.Size() == len(e.corpus):
			log.Debug().Str("fingerprint", e.key).Msg("using cached similarity matrix")
			e.matrix = entry.Matrix
			e.vocab = textvec.NewVocabulary(entry.Terms)
			e.fromCache = true
			return e.matrix, nil
		case err != nil && !errors.Is(err, matrixstore.ErrNotFound):
			log.Warn().Err(err).Msg("matrix cache unreadable, rebuilding")
		}
	}

	start := time.Now()

	vocab, vectors, err := textvec.Build(e.corpus.Documents(), e.maxTerms)
	if err != nil {
		return nil, fmt.Errorf("failed to vectorize corpus: %w", err)
	}

	matrix, err := similarity.Build(vectors)
	if err != nil {
		return nil, fmt.Errorf("failed to build similarity matrix: %w", err)
	}

	e.buildTime = time.Since(start)
	log.Debug().
		Int("items", len(e.corpus)).
		Int("vocabulary", vocab.Len()).
		Dur("took", e.buildTime).
		Msg("built similarity matrix")

	if e.store != nil {
		entry := &matrixstore.Entry{
			Key:       e.key,
			Terms:     vocab.Terms(),
			Matrix:    matrix,
			CreatedAt: time.Now(),
		}
		if err := e.store.Put(ctx, entry); err != nil {
			// Non-fatal, the in-process matrix is still valid
			log.Warn().Err(err).Msg("failed to cache similarity matrix")
		}
	}

	e.matrix = matrix
	e.vocab = vocab
	e.fromCache = false

	return e.matrix, nil
}

// Recommend returns the k movies most similar to title
func (e *Engine) Recommend(ctx context.Context, title string, k int) ([]Result, error) {
	m, err := e.Matrix(ctx)
	if err != nil {
		return nil, err
	}
	return Recommend(title, e.corpus, m, k)
}

// FindTitles searches the corpus titles, see FindTitles
func (e *Engine) FindTitles(query string, limit int) []string {
	return FindTitles(e.corpus, query, limit)
}

// Stats reports the engine state without triggering a build
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Stats{
		Items:         len(e.corpus),
		Built:         e.matrix != nil,
		FromCache:     e.fromCache,
		Fingerprint:   e.key,
		BuildDuration: e.buildTime,
	}
	if e.vocab != nil {
		s.VocabularySize = e.vocab.Len()
	}
	return s
}
