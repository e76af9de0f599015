// Command dp-produce captures a real input device into a DirectPipe
// shared-memory region, for feeding a downstream dp-consume or a
// third-party consumer.
package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gordonklaus/portaudio"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/livetrack/directpipe/internal/audio"
	"github.com/livetrack/directpipe/internal/config"
	"github.com/livetrack/directpipe/internal/telemetry"
	"github.com/livetrack/directpipe/producer"
)

func main() {
	name := flag.String("name", "", "shared memory region name (default: producer settings file / protocol default)")
	sampleRate := flag.Uint("sample-rate", 48000, "capture sample rate")
	channels := flag.Uint("channels", 2, "capture channel count")
	bufferFrames := flag.Uint("buffer-frames", 0, "ring capacity in frames, power of two (default: producer settings file / protocol default)")
	blockFrames := flag.Uint("block-frames", 256, "frames per PortAudio callback")
	settingsPath := flag.String("settings", "dp-produce.yaml", "path to persisted producer settings")
	telemetryAddr := flag.String("telemetry-addr", "", "if set, serve a telemetry websocket at this address (e.g. :9001)")
	flag.Parse()

	log, _ := zap.NewDevelopment()
	defer log.Sync()

	settings, err := config.LoadProducerSettings(*settingsPath)
	if err != nil {
		log.Fatal("load producer settings", zap.Error(err))
	}
	if *name != "" {
		settings.Name = *name
	}
	if *bufferFrames != 0 {
		settings.BufferFrames = uint32(*bufferFrames)
	}
	settings.SampleRate = uint32(*sampleRate)
	settings.Channels = uint32(*channels)

	if err := portaudio.Initialize(); err != nil {
		log.Fatal("initialize portaudio", zap.Error(err))
	}
	defer portaudio.Terminate()

	cfg := producer.Config{
		Name:         settings.Name,
		SampleRate:   settings.SampleRate,
		Channels:     settings.Channels,
		BufferFrames: settings.BufferFrames,
		MaxBlockSize: int(*blockFrames) * 4,
	}
	writer, err := producer.Start(cfg)
	if err != nil {
		log.Fatal("start producer", zap.Error(err))
	}
	defer writer.Stop()
	log.Info("producer started", zap.String("region", cfg.Name), zap.Uint32("sample_rate", cfg.SampleRate), zap.Uint32("channels", cfg.Channels), zap.Uint32("buffer_frames", cfg.BufferFrames))

	device, err := audio.FindInputDevice()
	if err != nil {
		log.Fatal("find input device", zap.Error(err))
	}
	log.Info("capture device selected", zap.String("device", device.Name))

	capture, err := audio.NewCapture(writer, device, float64(settings.SampleRate), int(settings.Channels), int(*blockFrames))
	if err != nil {
		log.Fatal("open capture stream", zap.Error(err))
	}
	if err := capture.Start(); err != nil {
		log.Fatal("start capture stream", zap.Error(err))
	}

	var telemetrySrv *telemetry.Server
	if *telemetryAddr != "" {
		telemetrySrv = telemetry.NewServer(log)
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", telemetrySrv.Handler)
		httpSrv := &http.Server{Addr: *telemetryAddr, Handler: mux}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn("telemetry server stopped", zap.Error(err))
			}
		}()
		go reportLoop(telemetrySrv, writer)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down", zap.String("region", cfg.Name))
	if err := capture.Stop(); err != nil {
		log.Warn("stop capture stream", zap.Error(err))
	}
	if err := config.SaveProducerSettings(*settingsPath, settings); err != nil {
		log.Warn("save producer settings", zap.Error(err))
	}
}

func reportLoop(srv *telemetry.Server, w *producer.Writer) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		srv.Broadcast(telemetry.Snapshot{
			Role:          "producer",
			State:         "active",
			OverflowCount: w.OverflowCount(),
		})
	}
}
