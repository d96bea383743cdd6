package vector

import "errors"

// Common errors returned by the vector store.
var (
	ErrDimensionMismatch = errors.New("vector: embedding dimension mismatch")
	ErrStorageCorrupt    = errors.New("vector: persisted vectors and chunk metadata out of sync")
	ErrClosed            = errors.New("vector: store is closed")
)
