package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/docindex/internal/codec"
)

// Envelope is the wrapper every tool call returns (§4.9). Result is
// nil on failure; Errors carries the stable error code(s) in that
// case.
type Envelope struct {
	RequestID     string   `json:"request_id"`
	ToolName      string   `json:"tool_name"`
	ToolVersion   string   `json:"tool_version"`
	ServerVersion string   `json:"server_version"`
	InputsHash    string   `json:"inputs_hash"`
	OutputsHash   string   `json:"outputs_hash"`
	Result        any      `json:"result"`
	Provenance    []string `json:"provenance"`
	Warnings      []string `json:"warnings"`
	Errors        []string `json:"errors"`
	Metrics       Metrics  `json:"metrics"`
}

// Metrics carries the envelope's metrics block. Timestamp is supplied
// by the caller rather than read from the wall clock here, keeping
// this package free of time-dependent behavior.
type Metrics struct {
	Timestamp string `json:"timestamp"`
}

// BuildInput is everything needed to construct one envelope.
type BuildInput struct {
	RequestID     string
	ToolName      string
	ToolVersion   string
	ServerVersion string
	Input         any
	Result        any
	Provenance    []string
	Warnings      []string
	Errors        []string
	Timestamp     string
}

// nullHash is the outputs_hash used when Result is nil (a failed
// call): the canonical codec forbids null in identity hashes, but a
// failed tool call legitimately has no result, so its hash is fixed
// over the literal JSON token rather than routed through FromAny.
var nullHash = codec.SHA256Hex([]byte("null"))

// Build computes inputs_hash/outputs_hash and assembles the envelope.
// Equal results always hash to the same outputs_hash regardless of
// request_id or timestamp, so callers can deduplicate on it.
func Build(in BuildInput) (Envelope, error) {
	inputsHash, err := hashAny(in.Input)
	if err != nil {
		return Envelope{}, fmt.Errorf("audit: hash input: %w", err)
	}
	outputsHash := nullHash
	if in.Result != nil {
		outputsHash, err = hashAny(in.Result)
		if err != nil {
			return Envelope{}, fmt.Errorf("audit: hash result: %w", err)
		}
	}

	provenance := in.Provenance
	if provenance == nil {
		provenance = []string{}
	}
	warnings := in.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	errs := in.Errors
	if errs == nil {
		errs = []string{}
	}

	return Envelope{
		RequestID:     in.RequestID,
		ToolName:      in.ToolName,
		ToolVersion:   in.ToolVersion,
		ServerVersion: in.ServerVersion,
		InputsHash:    inputsHash,
		OutputsHash:   outputsHash,
		Result:        in.Result,
		Provenance:    provenance,
		Warnings:      warnings,
		Errors:        errs,
		Metrics:       Metrics{Timestamp: in.Timestamp},
	}, nil
}

// hashAny hashes an arbitrary tool input or result struct. codec.FromAny
// only accepts the plain-JSON shapes produced by decoding into `any`
// (string, json.Number, bool, []any, map[string]any), not typed Go
// structs, and it forbids floats outright since identity hashes
// (tree_hash, commit_hash, ...) must stay deterministic across
// platforms. Audit hashing has neither constraint: inputs/results are
// arbitrary tool structs, and fields like retrieval alpha or BM25/cosine
// scores are genuinely float. So this round-trips v through
// encoding/json to get a FromAny-shaped tree, then stringifies any
// float number deterministically (Go's float64 JSON formatting is a
// pure function of the value) before canonical hashing. The canonical
// codec has no null, so a nil v hashes to nullHash and null-valued
// object keys (nil slices, maps and pointers) are omitted.
func hashAny(v any) (string, error) {
	prepared, err := toHashable(v)
	if err != nil {
		return "", fmt.Errorf("audit: prepare for hash: %w", err)
	}
	if prepared == nil {
		return nullHash, nil
	}
	return codec.HashCanonicalAny(prepared)
}

func toHashable(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return stringifyFloats(raw), nil
}

// stringifyFloats replaces every float-valued json.Number in v with its
// literal text prefixed by "f:", so it survives codec.FromAny (which
// would otherwise reject it) while still hashing distinctly per value.
// Object keys whose value is null are dropped for the same reason.
func stringifyFloats(v any) any {
	switch val := v.(type) {
	case json.Number:
		if strings.ContainsAny(string(val), ".eE") {
			return "f:" + string(val)
		}
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			if elem == nil {
				continue
			}
			out[k] = stringifyFloats(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = stringifyFloats(elem)
		}
		return out
	default:
		return v
	}
}
