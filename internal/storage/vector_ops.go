package storage

import (
	"encoding/binary"
	"fmt"
	"math"
)

// SerializeVector converts a float32 slice to a little-endian byte blob
// for SQLite storage.
func SerializeVector(vector []float32) []byte {
	buf := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DeserializeVector converts a byte blob back to a float32 slice. The
// blob length must be a multiple of 4 and match the stored dimension.
func DeserializeVector(blob []byte, dimension int) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(blob))
	}
	n := len(blob) / 4
	if dimension > 0 && n != dimension {
		return nil, fmt.Errorf("vector blob has %d elements, expected %d", n, dimension)
	}
	vector := make([]float32, n)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector, nil
}
