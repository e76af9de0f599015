// Command dp-kernelsim exercises kernelconsumer's user-mode stand-in
// for a kernel driver's periodic DPC read: it attaches to a running
// producer's region as its consumer and logs RMS/peak diagnostics on
// each tick, with no audio output of its own.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/livetrack/directpipe/internal/config"
	"github.com/livetrack/directpipe/internal/diagnostics"
	"github.com/livetrack/directpipe/kernelconsumer"
)

func main() {
	name := flag.String("name", "", "shared memory region name (default: protocol default)")
	blockFrames := flag.Uint("block-frames", 256, "frames drained per simulated DPC tick")
	flag.Parse()

	log, _ := zap.NewDevelopment()
	defer log.Sync()

	regionName := *name
	if regionName == "" {
		regionName = config.DefaultProducerSettings().Name
	}

	reader, err := kernelconsumer.Open(regionName, int(*blockFrames))
	if err != nil {
		log.Fatal("open kernel-mode stand-in reader", zap.Error(err))
	}
	defer reader.Close()
	log.Info("attached", zap.String("region", regionName), zap.Uint32("sample_rate", reader.SampleRate()), zap.Uint32("channels", reader.Channels()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go reader.Run(ctx, int(*blockFrames), func(buf []float32, frames int) {
		if frames == 0 {
			return
		}
		stats := diagnostics.Analyze(buf[:frames*int(reader.Channels())], 0.001)
		log.Debug("tick", zap.Int("frames", frames), zap.Float64("rms", stats.RMS), zap.Float32("peak", stats.Peak))
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")
}
