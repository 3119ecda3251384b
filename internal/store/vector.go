package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Product vectors are stored as little-endian float64 BLOBs in both backends.

func encodeVector(vec []float64) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, vec); err != nil {
		return nil, fmt.Errorf("failed to encode vector: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeVector(blob []byte) ([]float64, error) {
	if len(blob)%8 != 0 {
		return nil, fmt.Errorf("corrupt vector blob: %d bytes", len(blob))
	}
	vec := make([]float64, len(blob)/8)
	if err := binary.Read(bytes.NewReader(blob), binary.LittleEndian, &vec); err != nil {
		return nil, fmt.Errorf("failed to decode vector: %w", err)
	}
	return vec, nil
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}
	var dot, magA, magB float64
	for i := 0; i < len(a); i++ {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
