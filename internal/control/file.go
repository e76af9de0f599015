package control

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// FileMonitor polls a plain file for a single-word command, the way
// the teacher's FileMonitor polled a control file for recording
// start/stop. Useful for driving a headless dp-consume instance from
// a shell script without a real control socket.
type FileMonitor struct {
	path         string
	pollInterval time.Duration
	handler      Handler
	log          *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewFileMonitor creates a file-backed control monitor. pollInterval
// of zero defaults to 200ms.
func NewFileMonitor(parentCtx context.Context, path string, pollInterval time.Duration, handler Handler, log *zap.Logger) *FileMonitor {
	if pollInterval <= 0 {
		pollInterval = 200 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(parentCtx)
	return &FileMonitor{path: path, pollInterval: pollInterval, handler: handler, log: log, ctx: ctx, cancel: cancel}
}

// Start truncates the control file and begins polling it.
func (fm *FileMonitor) Start() error {
	if err := os.WriteFile(fm.path, []byte{}, 0644); err != nil {
		return fmt.Errorf("control: init control file: %w", err)
	}
	go fm.loop()
	return nil
}

// Stop ends the polling loop.
func (fm *FileMonitor) Stop() {
	fm.cancel()
}

func (fm *FileMonitor) loop() {
	ticker := time.NewTicker(fm.pollInterval)
	defer ticker.Stop()

	var last string
	for {
		select {
		case <-fm.ctx.Done():
			return
		case <-ticker.C:
			fm.poll(&last)
		}
	}
}

func (fm *FileMonitor) poll(last *string) {
	content, err := os.ReadFile(fm.path)
	if err != nil {
		fm.log.Warn("control file read failed", zap.String("path", fm.path), zap.Error(err))
		return
	}

	current := string(bytes.TrimSpace(content))
	if current == "" || current == *last {
		return
	}
	*last = current

	cmd, err := ParseCommand(current)
	if err != nil {
		fm.log.Warn("ignoring unrecognized control command", zap.String("raw", current))
	} else {
		fm.handler.HandleCommand(cmd)
	}

	if err := os.WriteFile(fm.path, []byte{}, 0644); err != nil {
		fm.log.Warn("control file clear failed", zap.Error(err))
	}
}
