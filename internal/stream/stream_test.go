package stream

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oakd-vio-go/internal/codec"
	"oakd-vio-go/internal/pose"
	"oakd-vio-go/internal/types"
)

// testBundle builds the reference bundle: a (4,4,3) uint8 image, (4,4)
// float64 depth, (16,3) float64 pointcloud and an identity transform.
func testBundle(t *testing.T, depthBase float64) types.FrameBundle {
	t.Helper()

	image := make([]uint8, 4*4*3)
	for i := range image {
		image[i] = uint8(i)
	}
	depth := make([]float64, 4*4)
	for i := range depth {
		depth[i] = depthBase + float64(i)*0.25
	}
	points := make([]float64, 16*3)
	for i := range points {
		points[i] = float64(i) * 0.5
	}

	return types.FrameBundle{
		Image:      types.Uint8Buffer([]int{4, 4, 3}, image),
		Depth:      types.Float64Buffer([]int{4, 4}, depth),
		Pointcloud: types.Float64Buffer([]int{16, 3}, points),
		Transform:  pose.Identity().Buffer(),
	}
}

func encodeWire(t *testing.T, bundle types.FrameBundle) [][]byte {
	t.Helper()
	meta, err := codec.MarshalMetadata(codec.Describe(bundle))
	require.NoError(t, err)
	return [][]byte{
		meta,
		bundle.Image.Data,
		bundle.Depth.Data,
		bundle.Pointcloud.Data,
		bundle.Transform.Data,
	}
}

func uniqueStream(suffix string) string {
	return fmt.Sprintf("vio-test-%d-%s", os.Getpid(), suffix)
}

func TestGetNextEmptyOnFreshSubscriber(t *testing.T) {
	sub, err := NewSubscriber(uniqueStream("fresh"))
	require.NoError(t, err)
	defer sub.Close()
	require.NoError(t, sub.Connect())

	start := time.Now()
	bundle, err := sub.GetNext()
	require.NoError(t, err)
	assert.Nil(t, bundle)
	assert.Less(t, time.Since(start), time.Second, "GetNext must not wait for data")
}

func TestSubscriberLatestWins(t *testing.T) {
	sub, err := NewSubscriber(uniqueStream("latest"))
	require.NoError(t, err)
	defer sub.Close()

	// Feed the slot directly, as the receive loop would.
	sub.slot.Put(encodeWire(t, testBundle(t, 1.0)))
	sub.slot.Put(encodeWire(t, testBundle(t, 2.0)))
	sub.slot.Put(encodeWire(t, testBundle(t, 3.0)))

	bundle, err := sub.GetNext()
	require.NoError(t, err)
	require.NotNil(t, bundle)
	assert.Equal(t, 3.0, bundle.Depth.Float64s()[0], "first read must see the newest frame")

	bundle, err = sub.GetNext()
	require.NoError(t, err)
	assert.Nil(t, bundle, "second read must find the slot empty")
}

func TestGetNextDecodeErrorDoesNotStick(t *testing.T) {
	sub, err := NewSubscriber(uniqueStream("decode"))
	require.NoError(t, err)
	defer sub.Close()

	// Wrong arity.
	sub.slot.Put([][]byte{{0x01}, {0x02}})
	_, err = sub.GetNext()
	require.ErrorIs(t, err, codec.ErrMalformedMetadata)

	// Right arity, truncated image payload.
	parts := encodeWire(t, testBundle(t, 1.0))
	parts[1] = parts[1][:5]
	sub.slot.Put(parts)
	_, err = sub.GetNext()
	require.ErrorIs(t, err, codec.ErrSizeMismatch)

	// A later well-formed frame decodes normally.
	sub.slot.Put(encodeWire(t, testBundle(t, 4.0)))
	bundle, err := sub.GetNext()
	require.NoError(t, err)
	require.NotNil(t, bundle)
	assert.Equal(t, 4.0, bundle.Depth.Float64s()[0])

	stats := sub.Stats()
	assert.Equal(t, uint64(2), stats.DecodeErrors)
	assert.Equal(t, uint64(1), stats.Consumed)
}

func TestCloseIdempotent(t *testing.T) {
	sub, err := NewSubscriber(uniqueStream("close"))
	require.NoError(t, err)
	require.NoError(t, sub.Connect())

	start := time.Now()
	require.NoError(t, sub.Close())
	assert.Less(t, time.Since(start), 3*time.Second, "close must not hang")

	require.NoError(t, sub.Close(), "second close is a no-op")

	_, err = sub.GetNext()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConnectAfterCloseRejected(t *testing.T) {
	sub, err := NewSubscriber(uniqueStream("reconnect"))
	require.NoError(t, err)
	require.NoError(t, sub.Close())
	assert.ErrorIs(t, sub.Connect(), ErrClosed)
}

func TestEndToEnd(t *testing.T) {
	name := uniqueStream("e2e")

	pub, err := NewPublisher(name)
	require.NoError(t, err)
	defer pub.Close()
	require.NoError(t, pub.Bind())

	sub, err := NewSubscriber(name)
	require.NoError(t, err)
	defer sub.Close()
	require.NoError(t, sub.Connect())

	sent := testBundle(t, 2.0)

	// PUB/SUB joins asynchronously, so keep sending until a frame lands.
	var got *types.FrameBundle
	deadline := time.Now().Add(5 * time.Second)
	for got == nil && time.Now().Before(deadline) {
		require.NoError(t, pub.Send(sent))
		time.Sleep(20 * time.Millisecond)
		got, err = sub.GetNext()
		require.NoError(t, err)
	}
	require.NotNil(t, got, "no frame delivered before deadline")

	assert.Equal(t, sent.Image, got.Image)
	assert.Equal(t, sent.Depth, got.Depth)
	assert.Equal(t, sent.Pointcloud, got.Pointcloud)
	assert.Equal(t, sent.Transform, got.Transform)

	m, err := pose.FromBuffer(got.Transform)
	require.NoError(t, err)
	assert.Equal(t, pose.Identity(), m)
}
