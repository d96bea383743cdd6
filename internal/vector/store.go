// Package vector implements a flat, append-only similarity index over text
// chunk embeddings with synchronized SQLite persistence.
//
// Similarity metric: cosine similarity computed as the dot product of
// unit-normalized vectors. Scores are in [-1, 1] and larger means more
// similar. Every comparison in this package and its consumers follows that
// direction.
package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"docgate/internal/mathutil"
)

// Chunk is the metadata stored alongside each embedding. Immutable once added.
type Chunk struct {
	DocumentID int64
	OwnerID    int64
	Text       string
}

// Entry pairs an embedding with its chunk metadata for batch appends.
type Entry struct {
	Vector []float32
	Chunk  Chunk
}

// Result is a single nearest-neighbor match.
type Result struct {
	Position int
	Score    float32
	Chunk    Chunk
}

// Store owns the ordered embedding sequence and the parallel chunk metadata
// sequence. The two grow only together; len(vectors) == len(chunks) is an
// internal invariant and position i in one always corresponds to position i
// in the other, including across persistence round-trips.
//
// Readers (Search, Len, HasOwner) may proceed concurrently; appends and
// persistence take the exclusive side of the lock.
type Store struct {
	mu      sync.RWMutex
	dims    int
	vectors [][]float32
	chunks  []Chunk

	db     *persistDB // nil for a purely in-memory store
	saved  int        // rows already written through to disk
	closed bool
}

// NewStore creates an in-memory store for vectors of the given dimension.
func NewStore(dims int) *Store {
	return &Store{dims: dims}
}

// Open creates a store backed by the SQLite file at path, loading any
// previously persisted state. A corrupt pair on disk fails the open.
func Open(path string, dims int) (*Store, error) {
	db, err := openPersistDB(path)
	if err != nil {
		return nil, err
	}

	s := &Store{dims: dims, db: db}
	if err := s.load(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Dimensions returns the embedding dimension this store accepts.
func (s *Store) Dimensions() int { return s.dims }

// Len returns the number of indexed entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// Add appends one embedding and its chunk metadata at the next position.
// The vector is normalized to unit length on the way in. The append is
// in-memory only; call Persist (or use AddBatch) for durability.
func (s *Store) Add(vec []float32, c Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.appendLocked(vec, c)
}

// AddBatch appends all entries and writes them through to disk within a
// single exclusive section, so a concurrent search can never observe a
// half-appended batch. Dimensions are validated up front; a mismatch rejects
// the whole batch. A persistence failure leaves the in-memory appends in
// place but is surfaced to the caller.
func (s *Store) AddBatch(ctx context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	for _, e := range entries {
		if len(e.Vector) != s.dims {
			return fmt.Errorf("%w: got %d, index expects %d", ErrDimensionMismatch, len(e.Vector), s.dims)
		}
	}
	for _, e := range entries {
		if err := s.appendLocked(e.Vector, e.Chunk); err != nil {
			return err
		}
	}
	return s.persistLocked(ctx)
}

func (s *Store) appendLocked(vec []float32, c Chunk) error {
	if len(vec) != s.dims {
		return fmt.Errorf("%w: got %d, index expects %d", ErrDimensionMismatch, len(vec), s.dims)
	}
	s.vectors = append(s.vectors, mathutil.Normalized(vec))
	s.chunks = append(s.chunks, c)
	return nil
}

// Search returns up to k entries most similar to query, best first.
// An empty index yields an empty result set.
func (s *Store) Search(query []float32, k int) ([]Result, error) {
	if len(query) != s.dims {
		return nil, fmt.Errorf("%w: query has %d, index expects %d", ErrDimensionMismatch, len(query), s.dims)
	}
	if k <= 0 {
		return nil, nil
	}

	q := mathutil.Normalized(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.vectors) == 0 {
		return nil, nil
	}

	results := make([]Result, len(s.vectors))
	for i, v := range s.vectors {
		results[i] = Result{
			Position: i,
			Score:    mathutil.Dot(q, v),
			Chunk:    s.chunks[i],
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// HasOwner reports whether any indexed chunk belongs to the given owner.
func (s *Store) HasOwner(ownerID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.chunks {
		if s.chunks[i].OwnerID == ownerID {
			return true
		}
	}
	return false
}

// Persist writes any unsaved entries through to disk. A no-op for in-memory
// stores and when everything is already saved.
func (s *Store) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.persistLocked(ctx)
}

func (s *Store) persistLocked(ctx context.Context) error {
	if s.db == nil || s.saved == len(s.vectors) {
		return nil
	}
	if err := s.db.saveFrom(ctx, s.saved, s.vectors, s.chunks); err != nil {
		return fmt.Errorf("vector: persist: %w", err)
	}
	s.saved = len(s.vectors)
	return nil
}

// load restores the positional pair from disk. Called once at Open, before
// the store is shared, so no locking is needed.
func (s *Store) load(ctx context.Context) error {
	vectors, chunks, err := s.db.loadAll(ctx)
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: %d vectors, %d chunks", ErrStorageCorrupt, len(vectors), len(chunks))
	}
	for _, v := range vectors {
		if len(v) != s.dims {
			return fmt.Errorf("%w: stored vector has %d dims, index expects %d", ErrStorageCorrupt, len(v), s.dims)
		}
	}
	s.vectors = vectors
	s.chunks = chunks
	s.saved = len(vectors)
	return nil
}

// Close flushes unsaved entries and releases the underlying database.
// Appends and persistence after Close fail with ErrClosed. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.db == nil {
		return nil
	}
	err := s.persistLocked(context.Background())
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	s.db = nil
	return err
}
