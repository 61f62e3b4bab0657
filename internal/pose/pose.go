// Package pose builds 4x4 homogeneous camera transforms from the
// quaternion and translation reported by the odometry pipeline.
package pose

import (
	"fmt"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"oakd-vio-go/internal/types"
)

// Matrix is a row-major 4x4 homogeneous transform: rotation in the upper
// left 3x3 block, translation in the last column, bottom row [0 0 0 1].
type Matrix [16]float64

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// FromQuaternion combines a scalar-first quaternion rotation with a
// translation. The quaternion is normalized before use.
func FromQuaternion(qw, qx, qy, qz, tx, ty, tz float64) Matrix {
	q := quat.Number{Real: qw, Imag: qx, Jmag: qy, Kmag: qz}
	if norm := quat.Abs(q); norm > 0 {
		q = quat.Scale(1/norm, q)
	}
	rot := r3.Rotation(q)

	// Rotation matrix columns are the images of the basis vectors.
	ex := rot.Rotate(r3.Vec{X: 1})
	ey := rot.Rotate(r3.Vec{Y: 1})
	ez := rot.Rotate(r3.Vec{Z: 1})

	return Matrix{
		ex.X, ey.X, ez.X, tx,
		ex.Y, ey.Y, ez.Y, ty,
		ex.Z, ey.Z, ez.Z, tz,
		0, 0, 0, 1,
	}
}

// Buffer encodes the matrix as a (4,4) float64 buffer for transport.
func (m Matrix) Buffer() types.Buffer {
	return types.Float64Buffer([]int{4, 4}, m[:])
}

// FromBuffer decodes a received (4,4) float64 buffer back into a matrix.
func FromBuffer(buf types.Buffer) (Matrix, error) {
	if buf.DType != types.Float64 {
		return Matrix{}, fmt.Errorf("transform buffer has dtype %s, want %s", buf.DType, types.Float64)
	}
	if len(buf.Dims) != 2 || buf.Dims[0] != 4 || buf.Dims[1] != 4 {
		return Matrix{}, fmt.Errorf("transform buffer has dims %v, want [4 4]", buf.Dims)
	}
	var m Matrix
	copy(m[:], buf.Float64s())
	return m, nil
}

// Translation returns the transform's translation column.
func (m Matrix) Translation() (x, y, z float64) {
	return m[3], m[7], m[11]
}
