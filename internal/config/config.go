// Package config persists the settings a DirectPipe consumer remembers
// across restarts: mute state and buffer preset. Producer geometry is
// also expressible here for CLI convenience, though most producers take
// it from flags instead.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/livetrack/directpipe/consumer"
	"github.com/livetrack/directpipe/protocol"
)

// ConsumerSettings is the persisted shape of a consumer's user-facing
// parameters, round-tripped through a YAML file so a restart resumes
// with the same mute/buffer choice the user last made.
type ConsumerSettings struct {
	Mute         bool `yaml:"mute"`
	BufferPreset int  `yaml:"buffer_preset"`
}

// DefaultConsumerSettings mirrors the original plugin's parameter
// defaults: unmuted, Low (index 1, ~10ms).
func DefaultConsumerSettings() ConsumerSettings {
	return ConsumerSettings{Mute: false, BufferPreset: int(consumer.PresetLow)}
}

// ProducerSettings is the persisted shape of a producer's region
// geometry, for CLI tools that want to remember a non-default
// buffer_frames/channels choice between runs.
type ProducerSettings struct {
	Name         string `yaml:"name"`
	SampleRate   uint32 `yaml:"sample_rate"`
	Channels     uint32 `yaml:"channels"`
	BufferFrames uint32 `yaml:"buffer_frames"`
}

// DefaultProducerSettings mirrors protocol's package-level defaults.
func DefaultProducerSettings() ProducerSettings {
	return ProducerSettings{
		Name:         protocol.RegionName,
		SampleRate:   48000,
		Channels:     protocol.DefaultChannels,
		BufferFrames: protocol.DefaultBufferFrames,
	}
}

// LoadConsumerSettings reads path as YAML, returning DefaultConsumerSettings
// if the file does not exist. Any other read or parse error is returned.
func LoadConsumerSettings(path string) (ConsumerSettings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConsumerSettings(), nil
	}
	if err != nil {
		return ConsumerSettings{}, err
	}
	var s ConsumerSettings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return ConsumerSettings{}, err
	}
	return s, nil
}

// SaveConsumerSettings writes s to path as YAML, called whenever
// consumer.Reader.SetMute or SetBufferPreset changes the persisted
// state.
func SaveConsumerSettings(path string, s ConsumerSettings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadProducerSettings reads path as YAML, returning
// DefaultProducerSettings if the file does not exist.
func LoadProducerSettings(path string) (ProducerSettings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultProducerSettings(), nil
	}
	if err != nil {
		return ProducerSettings{}, err
	}
	var s ProducerSettings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return ProducerSettings{}, err
	}
	return s, nil
}

// SaveProducerSettings writes s to path as YAML.
func SaveProducerSettings(path string, s ProducerSettings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
