package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/stratospay/delphi/pkg/domain/model"
	"golang.org/x/sync/singleflight"
)

// Service computes text embeddings through an LLM client, caching results by
// content hash. Concurrent first computations for the same text are coalesced
// so only one provider call is issued.
type Service struct {
	client    gollem.LLMClient
	dimension int
	cache     *cache
	group     singleflight.Group
}

// Option is a functional option for Service configuration
type Option func(*Service)

// WithDimension overrides the embedding dimension
func WithDimension(dim int) Option {
	return func(s *Service) {
		s.dimension = dim
	}
}

// WithCacheCapacity overrides the embedding cache capacity
func WithCacheCapacity(capacity int) Option {
	return func(s *Service) {
		s.cache = newCache(capacity)
	}
}

// New creates an embedding service. The client may be nil, in which case all
// embeddings are produced by the deterministic term-hash fallback.
func New(client gollem.LLMClient, opts ...Option) *Service {
	s := &Service{
		client:    client,
		dimension: model.EmbeddingDimension,
		cache:     newCache(defaultCacheCapacity),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Embed returns the embedding for the given text. Results are cached by
// content; recomputation for identical text is safe and idempotent.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	key := contentKey(text)
	if v, ok := s.cache.get(key); ok {
		return v, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		if v, ok := s.cache.get(key); ok {
			return v, nil
		}

		vec, err := s.compute(ctx, text)
		if err != nil {
			return nil, err
		}
		s.cache.put(key, vec)
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// Fallback returns the deterministic term-hash embedding for the given text.
// It is used for knowledge entries that have no provider embedding yet.
func (s *Service) Fallback(text string) []float32 {
	return hashEmbedding(text, s.dimension)
}

// Dimension returns the embedding dimension of this service
func (s *Service) Dimension() int {
	return s.dimension
}

// HasProvider reports whether a real LLM client backs this service.
// Without one, Embed produces the term-hash fallback for every text.
func (s *Service) HasProvider() bool {
	return s.client != nil
}

func (s *Service) compute(ctx context.Context, text string) ([]float32, error) {
	if s.client == nil {
		return hashEmbedding(text, s.dimension), nil
	}

	embeddings, err := s.client.GenerateEmbedding(ctx, s.dimension, []string{text})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate embedding")
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, goerr.New("embedding generation returned empty result")
	}

	vec := make([]float32, len(embeddings[0]))
	for i, v := range embeddings[0] {
		vec[i] = float32(v)
	}
	return vec, nil
}

func contentKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// hashEmbedding derives a deterministic vector from term hashing: each token
// adds weight to one bucket, and the result is L2-normalized.
func hashEmbedding(text string, dimension int) []float32 {
	vec := make([]float32, dimension)
	for _, term := range splitTerms(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(term))
		vec[int(h.Sum32())%dimension]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

func splitTerms(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

const defaultCacheCapacity = 1024

// cache is a bounded content-addressed embedding cache. When the capacity is
// exceeded it clears all entries rather than tracking recency; embeddings are
// cheap to recompute and writes are idempotent.
type cache struct {
	mu       sync.RWMutex
	capacity int
	entries  map[string][]float32
}

func newCache(capacity int) *cache {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	return &cache{
		capacity: capacity,
		entries:  make(map[string][]float32),
	}
}

func (c *cache) get(key string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *cache) put(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.capacity {
		c.entries = make(map[string][]float32)
	}
	c.entries[key] = vec
}
