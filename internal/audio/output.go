package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/gopxl/beep/v2"
)

// Output opens players that pull signed 16-bit little-endian stereo PCM
// at SampleRate.
type Output interface {
	NewPlayer(r io.Reader) (Player, error)
	SampleRate() beep.SampleRate
}

// Player is one stream on an Output. *oto.Player satisfies it.
type Player interface {
	Play()
	IsPlaying() bool
	Close() error
}

// OutputType selects the Output implementation.
type OutputType int

const (
	// OutputAuto uses the device unless running in CI or asked to mock.
	OutputAuto OutputType = iota
	// OutputDevice plays through the system audio device.
	OutputDevice
	// OutputMock discards audio and completes immediately.
	OutputMock
)

// String returns the name used in configuration.
func (t OutputType) String() string {
	switch t {
	case OutputAuto:
		return "auto"
	case OutputDevice:
		return "device"
	case OutputMock:
		return "mock"
	default:
		return "unknown"
	}
}

// ParseOutputType maps a configuration value to an OutputType.
func ParseOutputType(s string) (OutputType, error) {
	switch s {
	case "", "auto":
		return OutputAuto, nil
	case "device":
		return OutputDevice, nil
	case "mock":
		return OutputMock, nil
	default:
		return OutputAuto, fmt.Errorf("unknown audio output %q", s)
	}
}

// IsCI reports whether a device is unlikely to be available.
func IsCI() bool {
	for _, v := range []string{"CI", "CONTINUOUS_INTEGRATION", "GITHUB_ACTIONS", "GITLAB_CI", "BUILDKITE"} {
		if val := os.Getenv(v); val != "" && val != "false" {
			log.Debug("CI environment detected", "variable", v)
			return true
		}
	}
	return os.Getenv("VOICEREADER_MOCK_AUDIO") == "true"
}

// NewOutput creates an Output of the requested type.
func NewOutput(t OutputType) (Output, error) {
	switch t {
	case OutputDevice:
		return DeviceOutput()
	case OutputMock:
		return NewMockOutput(true), nil
	case OutputAuto:
		if IsCI() {
			log.Info("Using mock audio output", "reason", "CI environment")
			return NewMockOutput(true), nil
		}
		out, err := DeviceOutput()
		if err != nil {
			log.Warn("Audio device unavailable, falling back to mock output", "error", err)
			return NewMockOutput(true), nil
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown audio output type: %v", t)
	}
}
