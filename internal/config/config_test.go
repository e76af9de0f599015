package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetrack/directpipe/consumer"
)

func TestLoadConsumerSettingsMissingFileReturnsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	s, err := LoadConsumerSettings(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConsumerSettings(), s)
}

func TestSaveThenLoadConsumerSettingsRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "consumer.yaml")
	want := ConsumerSettings{Mute: true, BufferPreset: int(consumer.PresetHigh)}

	require.NoError(t, SaveConsumerSettings(path, want))
	got, err := LoadConsumerSettings(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveThenLoadProducerSettingsRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "producer.yaml")
	want := ProducerSettings{Name: "custom", SampleRate: 44100, Channels: 2, BufferFrames: 4096}

	require.NoError(t, SaveProducerSettings(path, want))
	got, err := LoadProducerSettings(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadProducerSettingsMissingFileReturnsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	s, err := LoadProducerSettings(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultProducerSettings(), s)
}
