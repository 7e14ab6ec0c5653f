package tsip

import (
	"encoding/binary"
	"math"
)

// Multi-byte TSIP fields are big-endian. The readers below assume the caller
// already checked that b holds enough bytes past off.

func Int16At(b []byte, off int) int16 {
	return int16(binary.BigEndian.Uint16(b[off:]))
}

func Uint16At(b []byte, off int) uint16 {
	return binary.BigEndian.Uint16(b[off:])
}

func Int32At(b []byte, off int) int32 {
	return int32(binary.BigEndian.Uint32(b[off:]))
}

func Uint32At(b []byte, off int) uint32 {
	return binary.BigEndian.Uint32(b[off:])
}

// Float32At reads an IEEE-754 single.
func Float32At(b []byte, off int) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(b[off:]))
}

// Float64At reads an IEEE-754 double.
func Float64At(b []byte, off int) float64 {
	return math.Float64frombits(binary.BigEndian.Uint64(b[off:]))
}
