package types

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DType tags the element type of a buffer. Tags follow the numpy dtype
// naming used on the wire; payloads are little-endian.
type DType string

const (
	Uint8   DType = "uint8"
	Uint16  DType = "uint16"
	Uint32  DType = "uint32"
	Float32 DType = "float32"
	Float64 DType = "float64"
)

var elementSizes = map[DType]int{
	Uint8:   1,
	Uint16:  2,
	Uint32:  4,
	Float32: 4,
	Float64: 8,
}

// ElementSize returns the byte width of one element of the given type.
func ElementSize(dtype DType) (int, error) {
	size, ok := elementSizes[dtype]
	if !ok {
		return 0, fmt.Errorf("unsupported dtype %q", dtype)
	}
	return size, nil
}

// BufferDescriptor describes the logical shape of one raw buffer.
type BufferDescriptor struct {
	Dims  []int `cbor:"dims"`
	DType DType `cbor:"dtype"`
}

// NumElements is the product of the descriptor's dimensions.
func (d BufferDescriptor) NumElements() int {
	n := 1
	for _, dim := range d.Dims {
		n *= dim
	}
	return n
}

// FrameMetadata maps the four frame fields to their buffer descriptors.
// The wire schema has exactly these four keys; extra keys are rejected
// at decode time.
type FrameMetadata struct {
	Image      BufferDescriptor `cbor:"image"`
	Depth      BufferDescriptor `cbor:"depth"`
	Pointcloud BufferDescriptor `cbor:"pointcloud"`
	Transform  BufferDescriptor `cbor:"transform"`
}

// Buffer is a flat byte payload plus the logical shape it is viewed
// through. The payload is not copied on reshape; typed accessors decode
// on demand.
type Buffer struct {
	Dims  []int
	DType DType
	Data  []byte
}

// Descriptor returns the buffer's shape description.
func (b Buffer) Descriptor() BufferDescriptor {
	return BufferDescriptor{Dims: b.Dims, DType: b.DType}
}

// Float64s decodes the payload as little-endian float64 values.
func (b Buffer) Float64s() []float64 {
	out := make([]float64, len(b.Data)/8)
	for i := range out {
		bits := binary.LittleEndian.Uint64(b.Data[i*8 : i*8+8])
		out[i] = math.Float64frombits(bits)
	}
	return out
}

// Uint8s returns the payload bytes as-is.
func (b Buffer) Uint8s() []uint8 {
	return b.Data
}

// Float64Buffer encodes values as a little-endian float64 buffer with the
// given dimensions.
func Float64Buffer(dims []int, values []float64) Buffer {
	data := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(data[i*8:i*8+8], math.Float64bits(v))
	}
	return Buffer{Dims: dims, DType: Float64, Data: data}
}

// Uint8Buffer wraps raw bytes as a uint8 buffer with the given dimensions.
func Uint8Buffer(dims []int, values []uint8) Buffer {
	return Buffer{Dims: dims, DType: Uint8, Data: values}
}

// FrameBundle is one synchronized capture: image, depth map, point cloud
// and camera pose transform. Bundles are not mutated after construction.
type FrameBundle struct {
	Image      Buffer
	Depth      Buffer
	Pointcloud Buffer
	Transform  Buffer
}
