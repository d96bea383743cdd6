// Package retrieval layers owner-scoped semantic search and document
// ingestion on top of the shared vector store.
package retrieval

import (
	"context"
	"fmt"
	"log"

	"docgate/internal/chunker"
	"docgate/internal/embedding"
	"docgate/internal/vector"
)

// Config holds retrieval tuning knobs. The over-fetch width compensates for
// the index having no native per-owner filtering: we pull a wide candidate
// set and keep only the target owner's chunks.
type Config struct {
	TopK            int // results returned per question
	OverfetchFactor int // candidates fetched per requested result
	OverfetchFloor  int // minimum candidate width
}

// DefaultConfig returns the default retrieval configuration.
func DefaultConfig() Config {
	return Config{
		TopK:            5,
		OverfetchFactor: 20,
		OverfetchFloor:  100,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TopK <= 0 {
		c.TopK = d.TopK
	}
	if c.OverfetchFactor <= 0 {
		c.OverfetchFactor = d.OverfetchFactor
	}
	if c.OverfetchFloor <= 0 {
		c.OverfetchFloor = d.OverfetchFloor
	}
	return c
}

// ScoredChunk is a retrieved chunk with its similarity score
// (cosine, larger = more similar).
type ScoredChunk struct {
	Chunk vector.Chunk
	Score float32
}

// Service performs ingestion and owner-scoped search.
type Service struct {
	store    *vector.Store
	embedder embedding.Embedder
	splitter *chunker.Splitter
	cfg      Config
}

// NewService creates a retrieval service over the given store and embedder.
func NewService(store *vector.Store, embedder embedding.Embedder, splitter *chunker.Splitter, cfg Config) *Service {
	return &Service{
		store:    store,
		embedder: embedder,
		splitter: splitter,
		cfg:      cfg.withDefaults(),
	}
}

// TopK returns the configured per-question result count.
func (s *Service) TopK() int { return s.cfg.TopK }

// HasAnyChunks reports whether the owner has any indexed content.
func (s *Service) HasAnyChunks(ownerID int64) bool {
	return s.store.HasOwner(ownerID)
}

// Ingest chunks, embeds and indexes a document's content for its owner,
// writing the batch through to disk before returning. Returns the number of
// chunks indexed. An embedding failure indexes nothing.
func (s *Service) Ingest(ctx context.Context, documentID, ownerID int64, content string) (int, error) {
	chunks := s.splitter.Chunk(content)
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := s.embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("retrieval: embed document %d: %w", documentID, err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("%w: retrieval: %d vectors for %d chunks", embedding.ErrUnavailable, len(vectors), len(chunks))
	}

	entries := make([]vector.Entry, len(chunks))
	for i, text := range chunks {
		entries[i] = vector.Entry{
			Vector: vectors[i],
			Chunk: vector.Chunk{
				DocumentID: documentID,
				OwnerID:    ownerID,
				Text:       text,
			},
		}
	}
	if err := s.store.AddBatch(ctx, entries); err != nil {
		return 0, fmt.Errorf("retrieval: index document %d: %w", documentID, err)
	}

	log.Printf("[Retrieval] indexed %d chunks for document %d (owner %d)", len(chunks), documentID, ownerID)
	return len(chunks), nil
}

// SearchForOwner returns up to k of the owner's chunks most similar to the
// query, best first. Chunks belonging to other owners are never returned; if
// the over-fetch width surfaces fewer than k true matches the result is
// simply shorter, the owner filter is never relaxed.
func (s *Service) SearchForOwner(ctx context.Context, query string, ownerID int64, k int) ([]ScoredChunk, error) {
	if k <= 0 {
		k = s.cfg.TopK
	}
	if s.store.Len() == 0 || !s.store.HasOwner(ownerID) {
		return nil, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed query: %w", err)
	}

	searchK := k * s.cfg.OverfetchFactor
	if searchK < s.cfg.OverfetchFloor {
		searchK = s.cfg.OverfetchFloor
	}
	if searchK > s.store.Len() {
		searchK = s.store.Len()
	}

	results, err := s.store.Search(vectors[0], searchK)
	if err != nil {
		return nil, fmt.Errorf("retrieval: search: %w", err)
	}

	var matches []ScoredChunk
	for _, r := range results {
		if r.Chunk.OwnerID != ownerID {
			continue
		}
		matches = append(matches, ScoredChunk{Chunk: r.Chunk, Score: r.Score})
		if len(matches) == k {
			break
		}
	}
	return matches, nil
}
