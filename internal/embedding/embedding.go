// Package embedding converts text into fixed-dimension dense vectors.
//
// Implementations return unit-normalized vectors so that the vector store's
// dot-product scoring is a true cosine similarity.
package embedding

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the underlying embedding model could not be
// reached or returned an unusable response. It is fatal to the enclosing
// ingestion or query operation; callers never substitute an empty vector.
var ErrUnavailable = errors.New("embedding: model unavailable")

// Embedder converts text to vectors.
type Embedder interface {
	// Embed converts texts to vectors, one per input, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector dimensionality.
	Dimensions() int

	// Name identifies the embedder.
	Name() string
}
