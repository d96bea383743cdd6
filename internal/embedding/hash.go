package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"docgate/internal/mathutil"
)

// Compile-time interface check.
var _ Embedder = (*Hashing)(nil)

// Hashing is a deterministic feature-hashing embedder. It needs no model,
// no training and no network, which makes it the offline/development default
// when no API-backed embedder is configured. Identical input always produces
// the identical unit vector.
type Hashing struct {
	dims int
}

// NewHashing creates a hashing embedder with the given dimensionality.
func NewHashing(dims int) *Hashing {
	if dims <= 0 {
		dims = 512
	}
	return &Hashing{dims: dims}
}

func (h *Hashing) Name() string    { return "hashing" }
func (h *Hashing) Dimensions() int { return h.dims }

// Embed maps each text's term frequencies into hashed buckets, using a sign
// bit from the hash so colliding terms partially cancel instead of stacking.
func (h *Hashing) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, h.dims)

		tf := make(map[string]int)
		for _, w := range tokenize(text) {
			tf[w]++
		}
		for word, count := range tf {
			bucket, sign := hashWord(word, h.dims)
			vec[bucket] += sign * float32(count)
		}

		mathutil.NormalizeInPlace(vec)
		vectors[i] = vec
	}
	return vectors, nil
}

func hashWord(word string, dims int) (int, float32) {
	hasher := fnv.New64a()
	hasher.Write([]byte(word))
	sum := hasher.Sum64()

	sign := float32(1)
	if sum&1 == 1 {
		sign = -1
	}
	return int((sum >> 1) % uint64(dims)), sign
}

// tokenize splits text into lowercase alphanumeric words.
func tokenize(text string) []string {
	var words []string
	var word strings.Builder

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			word.WriteRune(r)
		} else if word.Len() > 0 {
			words = append(words, word.String())
			word.Reset()
		}
	}
	if word.Len() > 0 {
		words = append(words, word.String())
	}
	return words
}
