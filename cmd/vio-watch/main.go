package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"oakd-vio-go/internal/config"
	"oakd-vio-go/internal/monitor"
	"oakd-vio-go/internal/pose"
	"oakd-vio-go/internal/stream"
	"oakd-vio-go/internal/types"
)

var (
	pollInterval time.Duration
	limit        int
	monitorPort  int
)

var rootCmd = &cobra.Command{
	Use:   "vio-watch <stream-name>",
	Short: "Subscribe to a VIO frame stream and print frame summaries",
	Long: `vio-watch connects a subscriber to the given stream name and polls
for the latest frame at a fixed interval, printing each frame's buffer
shapes and camera translation. With --port it also serves /status and a
/ws websocket feed of the same summaries.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.AppConfig{
			StreamName:   args[0],
			PollInterval: pollInterval,
			MonitorPort:  monitorPort,
		}
		return run(cfg)
	},
}

func init() {
	rootCmd.Flags().DurationVar(&pollInterval, "interval", 100*time.Millisecond, "Polling interval for the latest frame")
	rootCmd.Flags().IntVar(&limit, "limit", 0, "Stop after this many frames (0 = run until interrupted)")
	rootCmd.Flags().IntVar(&monitorPort, "port", 0, "HTTP monitor port (0 = disabled)")
}

func run(cfg config.AppConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub, err := stream.NewSubscriber(cfg.StreamName)
	if err != nil {
		return err
	}
	defer sub.Close()

	if err := sub.Connect(); err != nil {
		return err
	}
	log.Printf("watching %q on %s", cfg.StreamName, sub.URI())

	summaries := make(chan monitor.FrameSummary, 8)
	if cfg.MonitorPort > 0 {
		go func() {
			statusFn := func() map[string]any {
				stats := sub.Stats()
				return map[string]any{
					"stream_name":   cfg.StreamName,
					"received":      stats.Received,
					"dropped":       stats.Dropped,
					"consumed":      stats.Consumed,
					"decode_errors": stats.DecodeErrors,
				}
			}
			if err := monitor.Run(ctx, cfg.MonitorPort, summaries, statusFn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("monitor server: %v", err)
			}
		}()
	}

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	seen := 0
	for {
		select {
		case <-ctx.Done():
			printStats(sub)
			return nil
		case <-ticker.C:
			bundle, err := sub.GetNext()
			if err != nil {
				log.Printf("decode error: %v", err)
				continue
			}
			if bundle == nil {
				continue
			}
			seen++
			printFrame(seen, bundle)
			if cfg.MonitorPort > 0 {
				select {
				case summaries <- summarize(cfg.StreamName, bundle):
				default:
				}
			}
			if limit > 0 && seen >= limit {
				printStats(sub)
				return nil
			}
		}
	}
}

func printFrame(n int, bundle *types.FrameBundle) {
	fmt.Printf("frame %d\n", n)
	fmt.Printf("  image:      %v %s\n", bundle.Image.Dims, bundle.Image.DType)
	fmt.Printf("  depth:      %v %s\n", bundle.Depth.Dims, bundle.Depth.DType)
	fmt.Printf("  pointcloud: %v %s\n", bundle.Pointcloud.Dims, bundle.Pointcloud.DType)
	if m, err := pose.FromBuffer(bundle.Transform); err == nil {
		x, y, z := m.Translation()
		fmt.Printf("  translation: (%.3f, %.3f, %.3f)\n", x, y, z)
	}
}

func printStats(sub *stream.Subscriber) {
	stats := sub.Stats()
	fmt.Printf("summary: received=%d dropped=%d consumed=%d decode_errors=%d\n",
		stats.Received, stats.Dropped, stats.Consumed, stats.DecodeErrors)
}

func summarize(streamName string, bundle *types.FrameBundle) monitor.FrameSummary {
	summary := monitor.FrameSummary{
		StreamName: streamName,
		ImageDims:  bundle.Image.Dims,
		DepthDims:  bundle.Depth.Dims,
		PointsDims: bundle.Pointcloud.Dims,
		ReceivedAt: time.Now(),
	}
	if m, err := pose.FromBuffer(bundle.Transform); err == nil {
		x, y, z := m.Translation()
		summary.Translation = []float64{x, y, z}
	}
	return summary
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("vio-watch: %v", err)
		os.Exit(1)
	}
}
