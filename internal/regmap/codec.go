// internal/regmap/codec.go
package regmap

import "math"

// Value <-> register word conversions.
// Multi-word values are big-endian with the high word first.
// No IO. No side effects.

// EncodeFloat32 splits f into (hi, lo) words.
func EncodeFloat32(f float32) [2]uint16 {
	bits := math.Float32bits(f)
	return [2]uint16{uint16(bits >> 16), uint16(bits)}
}

// DecodeFloat32 reassembles a float32 from (hi, lo). Bit-exact.
func DecodeFloat32(hi, lo uint16) float32 {
	return math.Float32frombits(uint32(hi)<<16 | uint32(lo))
}

// EncodeInt16 packs v as one two's-complement word.
func EncodeInt16(v int16) uint16 {
	return uint16(v)
}

// DecodeInt16 interprets w as signed.
func DecodeInt16(w uint16) int16 {
	return int16(w)
}

// EncodeInt32 splits v into (hi, lo) words.
func EncodeInt32(v int32) [2]uint16 {
	u := uint32(v)
	return [2]uint16{uint16(u >> 16), uint16(u)}
}

// DecodeInt32 reassembles a signed 32-bit value from (hi, lo).
func DecodeInt32(hi, lo uint16) int32 {
	return int32(uint32(hi)<<16 | uint32(lo))
}

// PutFloat32 writes f into regs at off (2 words).
func PutFloat32(regs []uint16, off int, f float32) {
	w := EncodeFloat32(f)
	regs[off] = w[0]
	regs[off+1] = w[1]
}

// Float32At reads a float32 from regs at off.
func Float32At(regs []uint16, off int) float32 {
	return DecodeFloat32(regs[off], regs[off+1])
}

// PutInt32 writes v into regs at off (2 words).
func PutInt32(regs []uint16, off int, v int32) {
	w := EncodeInt32(v)
	regs[off] = w[0]
	regs[off+1] = w[1]
}

// Int32At reads a signed 32-bit value from regs at off.
func Int32At(regs []uint16, off int) int32 {
	return DecodeInt32(regs[off], regs[off+1])
}
