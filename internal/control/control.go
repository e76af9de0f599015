// Package control drives a consumer.Reader's user-facing knobs (mute,
// buffer preset) from an out-of-band channel, exactly as the teacher
// drove its recording state machine: a polling loop that reads a
// small command out of a file or stdin and dispatches it to a
// Handler. Nothing here touches the audio path.
package control

import "fmt"

// Command is a control-plane instruction for a running consumer.
type Command string

const (
	CmdMute        Command = "mute"
	CmdUnmute      Command = "unmute"
	CmdPresetUp    Command = "preset_up"
	CmdPresetDown  Command = "preset_down"
	CmdQuit        Command = "quit"
)

// ParseCommand accepts both the long form and the teacher's original
// single-character shorthand.
func ParseCommand(s string) (Command, error) {
	switch s {
	case "m", "mute":
		return CmdMute, nil
	case "u", "unmute":
		return CmdUnmute, nil
	case "+", "preset_up":
		return CmdPresetUp, nil
	case "-", "preset_down":
		return CmdPresetDown, nil
	case "q", "quit", "exit":
		return CmdQuit, nil
	default:
		return "", fmt.Errorf("control: unknown command %q", s)
	}
}

// Handler receives dispatched commands. consumer.Reader does not
// implement this directly since Command needs translating into its
// SetMute/SetBufferPreset calls plus a persisted config write;
// cmd/dp-consume supplies the glue.
type Handler interface {
	HandleCommand(cmd Command)
}
