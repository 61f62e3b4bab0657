// Package simulator produces synthetic frame bundles in place of the
// camera pipeline, for development and tests without hardware attached.
package simulator

import (
	"context"
	"math"
	"math/rand"
	"time"

	"oakd-vio-go/internal/pose"
	"oakd-vio-go/internal/types"
)

type Config struct {
	Width  int
	Height int
	FPS    float64
}

// Stream emits frame bundles at the configured rate until the context is
// cancelled. The pose follows a slow circular path; image and depth get
// a radial pattern with per-frame noise so consecutive frames differ.
func Stream(ctx context.Context, cfg Config) <-chan types.FrameBundle {
	out := make(chan types.FrameBundle)
	go func() {
		defer close(out)

		width := cfg.Width
		height := cfg.Height
		totalPixels := width * height
		frameInterval := time.Duration(float64(time.Second) / cfg.FPS)
		ticker := time.NewTicker(frameInterval)
		defer ticker.Stop()

		baseDepth := make([]float64, totalPixels)
		centerX := float64(width) / 2.0
		centerY := float64(height) / 2.0
		for i := 0; i < totalPixels; i++ {
			dx := float64(i%width) - centerX
			dy := float64(i/width) - centerY
			distance := math.Sqrt(dx*dx + dy*dy)
			baseDepth[i] = 1.0 + distance/float64(width)
		}

		frameIndex := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				bundle := buildBundle(width, height, baseDepth, frameIndex)
				select {
				case <-ctx.Done():
					return
				case out <- bundle:
				}
				frameIndex++
			}
		}
	}()
	return out
}

func buildBundle(width, height int, baseDepth []float64, frameIndex int) types.FrameBundle {
	totalPixels := width * height

	image := make([]uint8, totalPixels*3)
	depth := make([]float64, totalPixels)
	points := make([]float64, totalPixels*3)

	phase := float64(frameIndex) * 0.05
	for i := 0; i < totalPixels; i++ {
		x := i % width
		y := i / width

		d := baseDepth[i] + 0.01*rand.NormFloat64()
		if d < 0.1 {
			d = 0.1
		}
		depth[i] = d

		shade := uint8(math.Mod(float64(x+y)+phase*10, 256))
		image[i*3] = shade
		image[i*3+1] = 255 - shade
		image[i*3+2] = uint8(x % 256)

		// Pinhole back-projection onto a unit focal plane.
		points[i*3] = (float64(x) - float64(width)/2) * d / float64(width)
		points[i*3+1] = (float64(y) - float64(height)/2) * d / float64(width)
		points[i*3+2] = d
	}

	yaw := phase
	transform := pose.FromQuaternion(
		math.Cos(yaw/2), 0, 0, math.Sin(yaw/2),
		math.Cos(yaw), math.Sin(yaw), 0,
	)

	return types.FrameBundle{
		Image:      types.Uint8Buffer([]int{height, width, 3}, image),
		Depth:      types.Float64Buffer([]int{height, width}, depth),
		Pointcloud: types.Float64Buffer([]int{totalPixels, 3}, points),
		Transform:  transform.Buffer(),
	}
}
