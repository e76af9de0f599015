package control

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// StdinMonitor is an interactive debug console for a running consumer,
// the direct descendant of the teacher's StdinMonitor debug console.
type StdinMonitor struct {
	handler Handler
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewStdinMonitor creates a new stdin command console.
func NewStdinMonitor(parentCtx context.Context, handler Handler, log *zap.Logger) *StdinMonitor {
	ctx, cancel := context.WithCancel(parentCtx)
	return &StdinMonitor{handler: handler, log: log, ctx: ctx, cancel: cancel}
}

// Start begins reading commands from stdin in the background.
func (sm *StdinMonitor) Start() error {
	go sm.loop()
	return nil
}

// Stop ends the console loop.
func (sm *StdinMonitor) Stop() {
	sm.cancel()
}

func (sm *StdinMonitor) loop() {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== dp-consume control console ===")
	fmt.Println("  m / unmute   - mute / unmute playback")
	fmt.Println("  +  / -       - bump buffer preset up / down")
	fmt.Println("  q            - quit")

	for {
		select {
		case <-sm.ctx.Done():
			return
		default:
			fmt.Print("> ")
			input, err := reader.ReadString('\n')
			if err != nil {
				sm.log.Warn("stdin read failed", zap.Error(err))
				return
			}
			input = strings.TrimSpace(input)
			if input == "" {
				continue
			}
			cmd, err := ParseCommand(input)
			if err != nil {
				fmt.Printf("unknown command: %s\n", input)
				continue
			}
			sm.handler.HandleCommand(cmd)
		}
	}
}
