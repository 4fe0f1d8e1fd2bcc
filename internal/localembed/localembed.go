// Package localembed provides a dependency-free, deterministic stand-in
// for a real embedding model provider. It lets sessionkgctl exercise
// backfill-embeddings and semantic-search end to end without a network
// call.
package localembed

import (
	"hash/fnv"

	"github.com/Whamp/sessionkg/internal/embedtext"
)

// Provider deterministically hashes each input text into a fixed-dimension
// vector. It implements types.EmbeddingProvider and is meant for local
// demos and tests, not as a substitute for a real embedding model.
type Provider struct {
	Dim   int
	Model string
}

// New returns a Provider producing dim-dimensional vectors, labeled model.
func New(dim int, model string) *Provider {
	if model == "" {
		model = "localembed-v1"
	}
	return &Provider{Dim: dim, Model: model}
}

// ModelName implements types.EmbeddingProvider.
func (p *Provider) ModelName() string { return p.Model }

// Dimensions implements types.EmbeddingProvider.
func (p *Provider) Dimensions() int { return p.Dim }

// Embed implements types.EmbeddingProvider: every text in batch is hashed
// into a deterministic Dim-length vector and L2-normalized, so repeated
// calls with the same text are stable and comparable by cosine distance.
func (p *Provider) Embed(batch []string) ([][]float32, error) {
	out := make([][]float32, len(batch))
	for i, text := range batch {
		out[i] = embedOne(text, p.Dim)
	}
	return out, nil
}

func embedOne(text string, dim int) []float32 {
	vec := make([]float32, dim)
	for d := 0; d < dim; d++ {
		h := fnv.New32a()
		h.Write([]byte(text))
		h.Write([]byte{byte(d), byte(d >> 8)})
		v := h.Sum32()
		// Map the 32-bit hash into [-1, 1).
		vec[d] = float32(int32(v)) / float32(1<<31)
	}
	return embedtext.Normalize(vec)
}
