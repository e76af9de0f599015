// Package audio wires DirectPipe's producer/consumer RT components to
// real PortAudio device I/O for the cmd/dp-* binaries.
package audio

import (
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// FindInputDevice picks the best available capture device using the
// same priority-by-name-substring scheme as the teacher's device
// selection, generalized to a scoring table so both input and output
// selection share one implementation.
func FindInputDevice() (*portaudio.DeviceInfo, error) {
	return findDevice(func(d *portaudio.DeviceInfo) bool { return d.MaxInputChannels > 0 }, portaudio.DefaultInputDevice)
}

// FindOutputDevice picks the best available playback device.
func FindOutputDevice() (*portaudio.DeviceInfo, error) {
	return findDevice(func(d *portaudio.DeviceInfo) bool { return d.MaxOutputChannels > 0 }, portaudio.DefaultOutputDevice)
}

func findDevice(eligible func(*portaudio.DeviceInfo) bool, fallback func() (*portaudio.DeviceInfo, error)) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("audio: list devices: %w", err)
	}

	var best *portaudio.DeviceInfo
	bestPriority := -1

	for _, dev := range devices {
		if !eligible(dev) {
			continue
		}
		p := devicePriority(dev.Name)
		if p > bestPriority {
			bestPriority = p
			best = dev
		}
	}

	if best != nil {
		return best, nil
	}
	return fallback()
}

// devicePriority scores a device name the way the teacher's
// findAudioDevice ranks capture devices: PulseAudio/PipeWire highest,
// then explicit named devices, excluding known loopback/monitor/rate
// converter pseudo-devices outright.
func devicePriority(name string) int {
	lower := strings.ToLower(name)

	switch {
	case strings.Contains(lower, "monitor"),
		strings.Contains(lower, "loopback"),
		strings.Contains(lower, "sysdefault"),
		strings.Contains(lower, "lavrate"),
		strings.Contains(lower, "samplerate"),
		strings.Contains(lower, "speexrate"),
		strings.Contains(lower, "upmix"),
		strings.Contains(lower, "vdownmix"):
		return -1
	}

	priority := 0
	if strings.Contains(lower, "pulse") {
		priority = 200
	} else if strings.Contains(lower, "pipewire") {
		priority = 190
	}
	if strings.Contains(lower, "microphone") || strings.Contains(lower, "mic") || strings.Contains(lower, "speaker") {
		priority += 100
	}
	if strings.Contains(lower, "digital") {
		priority += 50
	}
	if lower == "default" {
		priority = 150
	}
	if strings.Contains(lower, "plughw") {
		priority += 25
	}
	if priority == 0 {
		priority = 10
	}
	return priority
}
