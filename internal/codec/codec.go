// Package codec frames bundles into wire payloads and back: a CBOR
// metadata part describing four raw buffers, and the buffers themselves
// reinterpreted through their descriptors. No I/O, no state.
package codec

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"oakd-vio-go/internal/types"
)

var (
	// ErrMalformedMetadata reports a metadata part that does not decode
	// to the expected four-field schema.
	ErrMalformedMetadata = errors.New("malformed frame metadata")

	// ErrSizeMismatch reports a raw buffer whose byte length does not
	// match its descriptor.
	ErrSizeMismatch = errors.New("buffer size mismatch")
)

// The decoder rejects keys outside the fixed schema so an open-ended
// metadata map never passes as a valid frame.
var decMode cbor.DecMode

func init() {
	var err error
	decMode, err = cbor.DecOptions{
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Describe derives the frame metadata from a bundle's buffers.
func Describe(bundle types.FrameBundle) types.FrameMetadata {
	return types.FrameMetadata{
		Image:      bundle.Image.Descriptor(),
		Depth:      bundle.Depth.Descriptor(),
		Pointcloud: bundle.Pointcloud.Descriptor(),
		Transform:  bundle.Transform.Descriptor(),
	}
}

// MarshalMetadata encodes the metadata to its compact binary form.
func MarshalMetadata(meta types.FrameMetadata) ([]byte, error) {
	payload, err := cbor.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return payload, nil
}

// UnmarshalMetadata parses a received metadata part. Anything that does
// not match the four-field schema fails with ErrMalformedMetadata.
func UnmarshalMetadata(payload []byte) (types.FrameMetadata, error) {
	var meta types.FrameMetadata
	if err := decMode.Unmarshal(payload, &meta); err != nil {
		return types.FrameMetadata{}, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}
	for _, field := range []struct {
		name string
		desc types.BufferDescriptor
	}{
		{"image", meta.Image},
		{"depth", meta.Depth},
		{"pointcloud", meta.Pointcloud},
		{"transform", meta.Transform},
	} {
		if err := validateDescriptor(field.desc); err != nil {
			return types.FrameMetadata{}, fmt.Errorf("%w: field %s: %v", ErrMalformedMetadata, field.name, err)
		}
	}
	return meta, nil
}

func validateDescriptor(desc types.BufferDescriptor) error {
	if desc.Dims == nil {
		return errors.New("missing dims")
	}
	for _, dim := range desc.Dims {
		if dim < 0 {
			return fmt.Errorf("negative dimension %d", dim)
		}
	}
	if _, err := types.ElementSize(desc.DType); err != nil {
		return err
	}
	return nil
}

// ReconstructBuffer reinterprets raw bytes as a shaped buffer using the
// descriptor. The payload is referenced, not copied. Fails with
// ErrSizeMismatch when the byte length does not equal
// product(dims) * element size.
func ReconstructBuffer(raw []byte, desc types.BufferDescriptor) (types.Buffer, error) {
	elemSize, err := types.ElementSize(desc.DType)
	if err != nil {
		return types.Buffer{}, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}
	want := desc.NumElements() * elemSize
	if len(raw) != want {
		return types.Buffer{}, fmt.Errorf("%w: dims %v dtype %s want %d bytes, have %d",
			ErrSizeMismatch, desc.Dims, desc.DType, want, len(raw))
	}
	return types.Buffer{Dims: desc.Dims, DType: desc.DType, Data: raw}, nil
}
