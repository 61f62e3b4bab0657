package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"oakd-vio-go/internal/config"
	"oakd-vio-go/internal/simulator"
	"oakd-vio-go/internal/stream"
)

var (
	fps      float64
	width    int
	height   int
	logEvery int
)

var rootCmd = &cobra.Command{
	Use:   "vio-publish <stream-name>",
	Short: "Publish RGB-D VIO frame bundles on a named stream",
	Long: `vio-publish binds a PUB endpoint for the given stream name and
streams frame bundles (image, depth, pointcloud, pose transform) at the
configured rate until interrupted. Subscribers that cannot keep up
receive only the newest frame; nothing is queued on their behalf.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.AppConfig{
			StreamName: args[0],
			FPS:        fps,
			Width:      width,
			Height:     height,
			LogEvery:   logEvery,
		}
		return run(cfg)
	},
}

func init() {
	rootCmd.Flags().Float64Var(&fps, "fps", 30, "Target frames per second")
	rootCmd.Flags().IntVar(&width, "width", 640, "Image width in pixels")
	rootCmd.Flags().IntVar(&height, "height", 400, "Image height in pixels")
	rootCmd.Flags().IntVar(&logEvery, "log-every", 100, "Log throughput every Nth frame")
}

func run(cfg config.AppConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pub, err := stream.NewPublisher(cfg.StreamName)
	if err != nil {
		return err
	}
	defer pub.Close()

	if err := pub.Bind(); err != nil {
		return err
	}
	log.Printf("publishing %q on %s at %.1f fps", cfg.StreamName, pub.URI(), cfg.FPS)

	var sent, sendErrors atomic.Uint64
	start := time.Now()

	frames := simulator.Stream(ctx, simulator.Config{
		Width:  cfg.Width,
		Height: cfg.Height,
		FPS:    cfg.FPS,
	})
	for bundle := range frames {
		if err := pub.Send(bundle); err != nil {
			sendErrors.Add(1)
			log.Printf("send error: %v", err)
			continue
		}
		n := sent.Add(1)
		if cfg.LogEvery > 0 && n%uint64(cfg.LogEvery) == 0 {
			elapsed := time.Since(start).Seconds()
			log.Printf("sent %d frames (%.1f fps, %d send errors)",
				n, float64(n)/elapsed, sendErrors.Load())
		}
	}

	fmt.Printf("done: sent %d frames, %d send errors\n", sent.Load(), sendErrors.Load())
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("vio-publish: %v", err)
		os.Exit(1)
	}
}
