package db

import (
	"encoding/binary"
	"math"
)

// EncodeVector packs v as little-endian FLOAT32, the layout of a VECTOR field value.
func EncodeVector(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
