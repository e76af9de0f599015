// Command dp-monitor demonstrates the intra-process monitor bridge in
// isolation: a WAV file is replayed into the bridge on one goroutine
// (standing in for a producer's audio callback) while a real output
// device's own callback thread drains it independently, proving
// neither side ever blocks on the other.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gordonklaus/portaudio"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/livetrack/directpipe/internal/audio"
	"github.com/livetrack/directpipe/internal/wav"
	"github.com/livetrack/directpipe/monitor"
)

func main() {
	wavPath := flag.String("wav", "", "WAV file to replay into the monitor bridge (required)")
	blockFrames := flag.Uint("block-frames", 256, "frames per replay/output block")
	flag.Parse()

	log, _ := zap.NewDevelopment()
	defer log.Sync()

	if *wavPath == "" {
		log.Fatal("missing required -wav flag")
	}

	player, err := wav.OpenReplay(*wavPath)
	if err != nil {
		log.Fatal("open replay file", zap.Error(err))
	}
	log.Info("replaying file", zap.String("path", *wavPath), zap.Uint32("sample_rate", player.SampleRate()), zap.Int("channels", player.Channels()))

	bridge := monitor.New()
	bridge.SetLogger(log)
	bridge.Configure(float64(player.SampleRate()))

	if err := portaudio.Initialize(); err != nil {
		log.Fatal("initialize portaudio", zap.Error(err))
	}
	defer portaudio.Terminate()

	device, err := audio.FindOutputDevice()
	if err != nil {
		log.Fatal("find output device", zap.Error(err))
	}
	log.Info("monitor output device selected", zap.String("device", device.Name))

	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 2,
			Latency:  device.DefaultLowOutputLatency,
		},
		SampleRate:      float64(player.SampleRate()),
		FramesPerBuffer: int(*blockFrames),
	}

	planarOut := [][]float32{make([]float32, *blockFrames), make([]float32, *blockFrames)}
	stream, err := portaudio.OpenStream(params, func(out []float32) {
		n := len(out) / 2
		// planarOut was sized for blockFrames at open time, matching
		// FramesPerBuffer; clamp rather than reallocate on the RT callback.
		if maxFrames := len(planarOut[0]); n > maxFrames {
			n = maxFrames
		}
		bridge.Read([][]float32{planarOut[0][:n], planarOut[1][:n]}, n)
		for i := 0; i < n; i++ {
			out[i*2] = planarOut[0][i]
			out[i*2+1] = planarOut[1][i]
		}
		for i := n * 2; i < len(out); i++ {
			out[i] = 0
		}
	})
	if err != nil {
		log.Fatal("open monitor output stream", zap.Error(err))
	}

	bridge.AboutToStart(float64(player.SampleRate()))
	if bridge.Status() != monitor.Active {
		log.Fatal("monitor bridge failed to activate", zap.String("status", bridge.Status().String()))
	}
	if err := stream.Start(); err != nil {
		log.Fatal("start monitor output stream", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	planarIn := [][]float32{make([]float32, *blockFrames), make([]float32, *blockFrames)}
	go func() {
		defer cancel()
		for !player.Done() {
			n := player.NextBlock(planarIn, int(*blockFrames))
			if n == 0 {
				return
			}
			bridge.WriteAudio([][]float32{planarIn[0][:n], planarIn[1][:n]}, n)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
		log.Info("replay finished", zap.Uint64("dropped_frames", bridge.DroppedFrames()))
	}

	bridge.Shutdown()
	if err := stream.Stop(); err != nil {
		log.Warn("stop monitor output stream", zap.Error(err))
	}
	stream.Close()
}
