package embeddings

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"golang.org/x/oauth2"
)

// EmbedRequest is the provider contract's input shape (§4.5): a batch of
// texts to embed under a named model, with an optional dimensionality
// hint for providers (like Matryoshka-style models) that support it.
type EmbedRequest struct {
	Inputs     []string
	Model      string
	Dimensions int
}

// EmbedResponse is the provider contract's output: one vector per input,
// all sharing Dims.
type EmbedResponse struct {
	Model   string
	Vectors [][]float32
	Dims    int
}

// Provider embeds text into vectors. HTTPProvider and LocalProvider are
// the two variants §4.5 calls for.
type Provider interface {
	ID() string
	Embed(ctx context.Context, req EmbedRequest) (EmbedResponse, error)
}

// HTTPProvider calls an OpenAI-compatible embeddings endpoint, using a
// bearer-token-authenticated client built from a static oauth2 token
// source rather than hand-rolling the Authorization header.
type HTTPProvider struct {
	id      string
	baseURL string
	client  *http.Client
}

// NewHTTPProvider builds an HTTPProvider authenticating with apiKey
// against baseURL (e.g. "https://api.openai.com/v1/embeddings").
func NewHTTPProvider(id, baseURL, apiKey string) *HTTPProvider {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey, TokenType: "Bearer"})
	return &HTTPProvider{
		id:      id,
		baseURL: baseURL,
		client:  oauth2.NewClient(context.Background(), ts),
	}
}

func (p *HTTPProvider) ID() string { return p.id }

type httpEmbedRequestBody struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type httpEmbedResponseBody struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
}

func (p *HTTPProvider) Embed(ctx context.Context, req EmbedRequest) (EmbedResponse, error) {
	body, err := json.Marshal(httpEmbedRequestBody{Input: req.Inputs, Model: req.Model})
	if err != nil {
		return EmbedResponse{}, fmt.Errorf("embeddings: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return EmbedResponse{}, fmt.Errorf("embeddings: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return EmbedResponse{}, fmt.Errorf("embeddings: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return EmbedResponse{}, fmt.Errorf("embeddings: provider returned status %d", resp.StatusCode)
	}

	var parsed httpEmbedResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return EmbedResponse{}, fmt.Errorf("embeddings: decode response: %w", err)
	}
	if len(parsed.Data) != len(req.Inputs) {
		return EmbedResponse{}, fmt.Errorf("embeddings: expected %d vectors, got %d", len(req.Inputs), len(parsed.Data))
	}

	vectors := make([][]float32, len(parsed.Data))
	dims := 0
	for i, d := range parsed.Data {
		if i == 0 {
			dims = len(d.Embedding)
		} else if len(d.Embedding) != dims {
			return EmbedResponse{}, ErrEmbeddingDims
		}
		vectors[i] = d.Embedding
	}
	return EmbedResponse{Model: req.Model, Vectors: vectors, Dims: dims}, nil
}

// LocalProvider derives deterministic, reproducible pseudo-random
// unit-range vectors from (text, dims) alone. It needs no network
// access and is the default when no HTTP provider key is configured.
type LocalProvider struct {
	id string
}

// NewLocalProvider constructs a LocalProvider identified by id.
func NewLocalProvider(id string) *LocalProvider {
	return &LocalProvider{id: id}
}

func (p *LocalProvider) ID() string { return p.id }

func (p *LocalProvider) Embed(_ context.Context, req EmbedRequest) (EmbedResponse, error) {
	dims := req.Dimensions
	if dims <= 0 {
		dims = 8
	}

	vectors := make([][]float32, len(req.Inputs))
	for i, text := range req.Inputs {
		vectors[i] = deterministicVector(text, dims)
	}
	return EmbedResponse{Model: p.id, Vectors: vectors, Dims: dims}, nil
}

// deterministicVector expands sha256(text) into dims float32 components
// in [0, 1] by re-hashing with an incrementing counter whenever the
// digest runs out of bytes, so the same (text, dims) always yields the
// same vector.
func deterministicVector(text string, dims int) []float32 {
	vec := make([]float32, dims)
	counter := uint32(0)
	var pool []byte
	for i := range vec {
		for len(pool) < 4 {
			var buf bytes.Buffer
			buf.WriteString(text)
			binary.Write(&buf, binary.BigEndian, counter)
			counter++
			sum := sha256.Sum256(buf.Bytes())
			pool = append(pool, sum[:]...)
		}
		bits := binary.BigEndian.Uint32(pool[:4])
		pool = pool[4:]
		vec[i] = float32(bits) / float32(math.MaxUint32)
	}
	return vec
}
