package embeddings

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeFloat32LE packs a vector into the on-disk little-endian float32
// blob format chunk_embeddings.blob stores.
func EncodeFloat32LE(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeFloat32LE unpacks a blob into a vector, validating it holds
// exactly dims float32s.
func DecodeFloat32LE(blob []byte, dims int) ([]float32, error) {
	if len(blob) != dims*4 {
		return nil, fmt.Errorf("embeddings: blob length %d does not match dims %d", len(blob), dims)
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}
