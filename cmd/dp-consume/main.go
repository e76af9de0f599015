// Command dp-consume attaches to a DirectPipe shared-memory region and
// plays it out a real output device, with a control console (stdin or
// a polled file) for mute/buffer-preset changes and an optional
// telemetry websocket for dashboards.
package main

import (
	"context"
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
	"github.com/livetrack/directpipe/internal/control"
	"github.com/livetrack/directpipe/internal/telemetry"
	"github.com/livetrack/directpipe/consumer"
)

type app struct {
	reader       *consumer.Reader
	settings     config.ConsumerSettings
	settingsPath string
	log          *zap.Logger
	cancel       context.CancelFunc
}

func (a *app) HandleCommand(cmd control.Command) {
	switch cmd {
	case control.CmdMute:
		a.settings.Mute = true
		a.reader.SetMute(true)
	case control.CmdUnmute:
		a.settings.Mute = false
		a.reader.SetMute(false)
	case control.CmdPresetUp:
		a.settings.BufferPreset++
		a.reader.SetBufferPreset(consumer.BufferPreset(a.settings.BufferPreset))
		a.settings.BufferPreset = int(a.reader.BufferPreset())
	case control.CmdPresetDown:
		a.settings.BufferPreset--
		a.reader.SetBufferPreset(consumer.BufferPreset(a.settings.BufferPreset))
		a.settings.BufferPreset = int(a.reader.BufferPreset())
	case control.CmdQuit:
		a.cancel()
		return
	}
	if err := config.SaveConsumerSettings(a.settingsPath, a.settings); err != nil {
		a.log.Warn("save consumer settings", zap.Error(err))
	}
	a.log.Info("control command applied", zap.String("command", string(cmd)), zap.Bool("mute", a.settings.Mute), zap.Int("buffer_preset", a.settings.BufferPreset))
}

func main() {
	name := flag.String("name", "", "shared memory region name (default: protocol default)")
	channels := flag.Uint("channels", 2, "playback channel count")
	blockFrames := flag.Uint("block-frames", 256, "frames per PortAudio callback")
	settingsPath := flag.String("settings", "dp-consume.yaml", "path to persisted consumer settings")
	telemetryAddr := flag.String("telemetry-addr", "", "if set, serve a telemetry websocket at this address (e.g. :9002)")
	controlFile := flag.String("control-file", "", "if set, poll this file for mute/preset commands instead of reading stdin")
	flag.Parse()

	log, _ := zap.NewDevelopment()
	defer log.Sync()

	settings, err := config.LoadConsumerSettings(*settingsPath)
	if err != nil {
		log.Fatal("load consumer settings", zap.Error(err))
	}

	regionName := *name
	if regionName == "" {
		def := config.DefaultProducerSettings()
		regionName = def.Name
	}

	reader := consumer.New(consumer.Config{Name: regionName, MaxBlockSize: int(*blockFrames)})
	reader.SetLogger(log)
	reader.Prepare(int(*blockFrames))
	reader.SetMute(settings.Mute)
	reader.SetBufferPreset(consumer.BufferPreset(settings.BufferPreset))
	defer reader.Close()

	if err := portaudio.Initialize(); err != nil {
		log.Fatal("initialize portaudio", zap.Error(err))
	}
	defer portaudio.Terminate()

	device, err := audio.FindOutputDevice()
	if err != nil {
		log.Fatal("find output device", zap.Error(err))
	}
	log.Info("playback device selected", zap.String("device", device.Name))

	playback, err := audio.NewPlayback(reader, device, 48000, int(*channels), int(*blockFrames))
	if err != nil {
		log.Fatal("open playback stream", zap.Error(err))
	}
	if err := playback.Start(); err != nil {
		log.Fatal("start playback stream", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &app{reader: reader, settings: settings, settingsPath: *settingsPath, log: log, cancel: cancel}

	if *controlFile != "" {
		fm := control.NewFileMonitor(ctx, *controlFile, 200*time.Millisecond, a, log)
		if err := fm.Start(); err != nil {
			log.Fatal("start file control monitor", zap.Error(err))
		}
		defer fm.Stop()
	} else {
		sm := control.NewStdinMonitor(ctx, a, log)
		sm.Start()
		defer sm.Stop()
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
		go reportLoop(ctx, telemetrySrv, reader)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("received exit signal")
	case <-ctx.Done():
		log.Info("quit command received")
	}

	if err := playback.Stop(); err != nil {
		log.Warn("stop playback stream", zap.Error(err))
	}
}

func reportLoop(ctx context.Context, srv *telemetry.Server, r *consumer.Reader) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			srv.Broadcast(telemetry.Snapshot{
				Role:             "consumer",
				State:            r.State().String(),
				BufferPreset:     r.BufferPreset().String(),
				UnderrunCount:    r.UnderrunCount(),
				SourceSampleRate: r.SourceSampleRate(),
			})
		}
	}
}
