package tools

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/docindex/internal/retriever"
	"github.com/roach88/docindex/internal/store"
)

const (
	minK, maxK     = 1, 25
	maxBM25K       = 200
	maxVectorK     = 500
	defaultBM25K   = 50
	defaultVectorK = 100
)

// RetrieveInput is the input contract for retrieve (§4.6, working-tree
// BM25). K is clamped to [1,25].
type RetrieveInput struct {
	Query        string
	K            int
	IndexVersion string
}

// RetrieveValue is the successful result of Retrieve.
type RetrieveValue struct {
	Candidates       []retriever.Candidate `json:"candidates"`
	EffectiveVersion string                `json:"effective_version"`
}

func Retrieve(ctx context.Context, s *store.Store, in RetrieveInput) Result {
	k := clamp(in.K, minK, maxK)

	var value RetrieveValue
	var warnings []string
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		r, err := retriever.Retrieve(ctx, tx, in.Query, k, in.IndexVersion)
		if err != nil {
			return err
		}
		value = RetrieveValue{Candidates: orEmptyCandidates(r.Candidates), EffectiveVersion: r.EffectiveVersion}
		warnings = r.Warnings
		return nil
	})
	if err != nil {
		return fail(err)
	}
	return okWithProvenance(value, warnings, provenanceOf(value.Candidates))
}

// RetrieveWithEmbeddingsInput is the input contract for
// retrieve_with_embeddings (§4.6, hybrid BM25+cosine).
type RetrieveWithEmbeddingsInput struct {
	Query      string
	K          int
	Ref        string
	ProviderID string
	Dims       int
	BM25K      int
	VectorK    int
	Alpha      float64
}

// RetrieveWithEmbeddingsValue is the successful result of
// RetrieveWithEmbeddings.
type RetrieveWithEmbeddingsValue struct {
	Candidates []retriever.Candidate `json:"candidates"`
	TreeHash   string                `json:"tree_hash"`
	CommitHash string                `json:"commit_hash"`
}

func RetrieveWithEmbeddings(ctx context.Context, s *store.Store, providers Providers, in RetrieveWithEmbeddingsInput) Result {
	provider, found := providers.get(in.ProviderID)
	if !found {
		return fail(errUnknownProvider(in.ProviderID))
	}

	k := clamp(in.K, minK, maxK)
	bm25K := in.BM25K
	if bm25K <= 0 {
		bm25K = defaultBM25K
	}
	bm25K = clamp(bm25K, 1, maxBM25K)
	vectorK := in.VectorK
	if vectorK <= 0 {
		vectorK = defaultVectorK
	}
	vectorK = clamp(vectorK, 1, maxVectorK)
	alpha := clampFloat(in.Alpha, 0, 1)

	var value RetrieveWithEmbeddingsValue
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		r, err := retriever.RetrieveWithEmbeddings(ctx, tx, in.Ref, in.Query, k, provider, in.ProviderID, in.Dims, bm25K, vectorK, alpha)
		if err != nil {
			return err
		}
		value = RetrieveWithEmbeddingsValue{
			Candidates: orEmptyCandidates(r.Candidates),
			TreeHash:   r.TreeHash,
			CommitHash: r.CommitHash,
		}
		return nil
	})
	if err != nil {
		return fail(err)
	}
	return okWithProvenance(value, nil, provenanceOf(value.Candidates))
}

func orEmptyCandidates(c []retriever.Candidate) []retriever.Candidate {
	if c == nil {
		return []retriever.Candidate{}
	}
	return c
}

// provenanceOf renders each candidate's originating document and span
// as "doc:<doc_id>@<span_start>-<span_end>", the shape the audit
// envelope's provenance[] carries. Order matches the candidates, the
// ranking already applied by the retriever.
func provenanceOf(candidates []retriever.Candidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = fmt.Sprintf("doc:%s@%d-%d", c.DocID, c.SpanStart, c.SpanEnd)
	}
	return out
}
