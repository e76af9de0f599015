package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommandAcceptsShorthandAndLongForm(t *testing.T) {
	cases := map[string]Command{
		"m": CmdMute, "mute": CmdMute,
		"u": CmdUnmute, "unmute": CmdUnmute,
		"+": CmdPresetUp, "preset_up": CmdPresetUp,
		"-": CmdPresetDown, "preset_down": CmdPresetDown,
		"q": CmdQuit, "quit": CmdQuit, "exit": CmdQuit,
	}
	for input, want := range cases {
		got, err := ParseCommand(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestParseCommandRejectsUnknown(t *testing.T) {
	_, err := ParseCommand("bogus")
	assert.Error(t, err)
}
