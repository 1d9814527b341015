// Package biometric defines the face-embedding seam: extractors turn an image
// into an embedding, matchers score two embeddings, and Verifier applies the
// acceptance threshold under a timeout and circuit breaker.
package biometric

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/crypto/blake2b"
)

// Embedding is a fixed-length face feature vector.
type Embedding []float32

// Extractor derives an embedding from an encoded image.
type Extractor interface {
	Extract(ctx context.Context, image []byte) (Embedding, error)
}

// Matcher scores the similarity of two embeddings in [0, 1].
type Matcher interface {
	Similarity(ctx context.Context, sample, reference Embedding) (float64, error)
}

var (
	ErrEmptyImage        = errors.New("image is empty")
	ErrDimensionMismatch = errors.New("embedding dimensions differ")
)

// CosineMatcher scores embeddings by cosine similarity mapped to [0, 1].
type CosineMatcher struct{}

func (CosineMatcher) Similarity(_ context.Context, sample, reference Embedding) (float64, error) {
	if len(sample) == 0 || len(sample) != len(reference) {
		return 0, ErrDimensionMismatch
	}
	var dot, na, nb float64
	for i := range sample {
		a, b := float64(sample[i]), float64(reference[i])
		dot += a * b
		na += a * a
		nb += b * b
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Max(0, math.Min(1, (cos+1)/2)), nil
}

// DefaultDimension is the embedding length produced by HashExtractor.
const DefaultDimension = 128

// HashExtractor derives a deterministic embedding from the image bytes using
// the BLAKE2b XOF. Identical images match exactly and unrelated images score
// near 0.5. It stands in for a real face model in development.
type HashExtractor struct {
	Dimension int
}

func (e HashExtractor) Extract(ctx context.Context, image []byte) (Embedding, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dim := e.Dimension
	if dim <= 0 {
		dim = DefaultDimension
	}
	xof, err := blake2b.NewXOF(uint32(dim), nil)
	if err != nil {
		return nil, fmt.Errorf("create xof: %w", err)
	}
	if _, err := xof.Write(image); err != nil {
		return nil, fmt.Errorf("hash image: %w", err)
	}
	raw := make([]byte, dim)
	if _, err := xof.Read(raw); err != nil {
		return nil, fmt.Errorf("read xof: %w", err)
	}
	embedding := make(Embedding, dim)
	for i, b := range raw {
		embedding[i] = float32(int(b)-128) / 128
	}
	return embedding, nil
}
