package testutil

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// EmbedDim matches the vector(768) column in the chunks schema.
const EmbedDim = 768

// MockEmbedder implements ai.Embedder without network calls. Every text
// maps to a deterministic unit vector, so identical texts always compare
// as identical and distinct texts are near-orthogonal. Exact-text
// overrides in Vectors let a test pin specific similarity orderings.
type MockEmbedder struct {
	Vectors   map[string][]float32
	Err       error
	CallCount int
}

func (m *MockEmbedder) Name() string { return "mock-embedder" }

func (m *MockEmbedder) Register(r api.Registry) {}

func (m *MockEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.CallCount++

	if m.Err != nil {
		return nil, m.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp := &ai.EmbedResponse{}
	for _, doc := range req.Input {
		text := ""
		if len(doc.Content) > 0 {
			text = doc.Content[0].Text
		}
		vec, ok := m.Vectors[text]
		if !ok {
			vec = deterministicVector(text)
		}
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{Embedding: vec})
	}
	return resp, nil
}

// deterministicVector hashes the text into a unit vector of EmbedDim.
func deterministicVector(text string) []float32 {
	vec := make([]float32, EmbedDim)
	var norm float64
	for i := range vec {
		h := fnv.New64a()
		h.Write([]byte(text))
		h.Write([]byte{byte(i), byte(i >> 8)})
		// Map the hash onto [-1, 1].
		v := float64(int64(h.Sum64())) / math.MaxInt64
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
