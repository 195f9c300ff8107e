// Package embedding converts text to float32 vectors via any
// OpenAI-compatible embedding server (vLLM, Ollama, ONNX Runtime Server,
// or OpenAI itself).
//
// The duplicate detector embeds a canonical text blob for each extracted
// office record; it only needs the Embedder interface and never sees the
// transport. With no endpoint configured the client degrades to zero
// vectors, which downstream code treats as "semantic search unavailable".
package embedding

import (
	"context"
	"log/slog"
	"time"
)

// Embedder converts text to vectors.
type Embedder interface {
	// Embed returns the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns embeddings for multiple texts in one HTTP call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector dimension, or 0 if not yet detected.
	Dimension() int
}

// Config configures the embedding client.
type Config struct {
	// Endpoint is the base URL of the embedding server
	// (e.g. "http://localhost:8003"). Empty means zero-vector fallback.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Model is the model name sent in each request.
	Model string `json:"model" yaml:"model"`

	// Dimension is the expected vector dimension. 0 = auto-detect.
	Dimension int `json:"dimension" yaml:"dimension"`

	// BatchSize caps texts per HTTP request. Default: 32.
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// Timeout per HTTP request. Default: 30s.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 32
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// New creates an Embedder from config. If Endpoint is empty it returns a
// zero-vector embedder so the pipeline can run without a model server.
func New(cfg Config) Embedder {
	cfg.defaults()
	if cfg.Endpoint == "" {
		dim := cfg.Dimension
		if dim <= 0 {
			dim = 768
		}
		return &zeroEmbedder{dim: dim}
	}
	return newClient(cfg)
}

// zeroEmbedder produces zero vectors of fixed dimension.
type zeroEmbedder struct {
	dim int
}

func (z *zeroEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return make([]float32, z.dim), nil
}

func (z *zeroEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, z.dim)
	}
	return out, nil
}

func (z *zeroEmbedder) Dimension() int { return z.dim }
