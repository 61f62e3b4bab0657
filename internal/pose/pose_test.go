package pose

import (
	"math"
	"testing"

	"oakd-vio-go/internal/types"
)

const tolerance = 1e-12

func matricesClose(t *testing.T, want, got Matrix) {
	t.Helper()
	for i := range want {
		if math.Abs(want[i]-got[i]) > tolerance {
			t.Fatalf("element %d: want %v got %v\nfull: %v", i, want[i], got[i], got)
		}
	}
}

func TestFromQuaternionIdentity(t *testing.T) {
	got := FromQuaternion(1, 0, 0, 0, 0, 0, 0)
	matricesClose(t, Identity(), got)
}

func TestFromQuaternionTranslation(t *testing.T) {
	got := FromQuaternion(1, 0, 0, 0, 1.5, -2.0, 3.25)

	x, y, z := got.Translation()
	if x != 1.5 || y != -2.0 || z != 3.25 {
		t.Fatalf("unexpected translation: (%v, %v, %v)", x, y, z)
	}
	// Bottom row stays homogeneous.
	if got[12] != 0 || got[13] != 0 || got[14] != 0 || got[15] != 1 {
		t.Fatalf("unexpected bottom row: %v", got[12:16])
	}
}

func TestFromQuaternionYaw90(t *testing.T) {
	// 90 degrees about z, scalar-first convention.
	half := math.Pi / 4
	got := FromQuaternion(math.Cos(half), 0, 0, math.Sin(half), 0, 0, 0)

	want := Matrix{
		0, -1, 0, 0,
		1, 0, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
	matricesClose(t, want, got)
}

func TestFromQuaternionNormalizes(t *testing.T) {
	// Odometry quaternions arrive with drift; a scaled identity must
	// still produce the identity rotation.
	got := FromQuaternion(2, 0, 0, 0, 0, 0, 0)
	matricesClose(t, Identity(), got)
}

func TestBufferRoundTrip(t *testing.T) {
	original := FromQuaternion(math.Cos(0.3), 0, math.Sin(0.3), 0, 0.5, 1.5, -0.25)

	buf := original.Buffer()
	if len(buf.Dims) != 2 || buf.Dims[0] != 4 || buf.Dims[1] != 4 {
		t.Fatalf("unexpected dims: %v", buf.Dims)
	}
	if buf.DType != types.Float64 {
		t.Fatalf("unexpected dtype: %s", buf.DType)
	}

	got, err := FromBuffer(buf)
	if err != nil {
		t.Fatalf("from buffer error: %v", err)
	}
	matricesClose(t, original, got)
}

func TestFromBufferRejectsWrongShape(t *testing.T) {
	if _, err := FromBuffer(types.Float64Buffer([]int{2, 8}, make([]float64, 16))); err == nil {
		t.Fatal("expected error for wrong dims")
	}
	if _, err := FromBuffer(types.Uint8Buffer([]int{4, 4}, make([]uint8, 16))); err == nil {
		t.Fatal("expected error for wrong dtype")
	}
}
