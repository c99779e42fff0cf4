package audio

import "github.com/gopxl/beep/v2"

const (
	// SampleRate is the output device rate in Hz.
	SampleRate beep.SampleRate = 44100
	// Channels is the output channel count.
	Channels = 2
	// BytesPerSample is the size of one signed 16-bit sample.
	BytesPerSample = 2

	frameSize = Channels * BytesPerSample

	// MinSpeed and MaxSpeed bound the playback rate.
	MinSpeed = 0.5
	MaxSpeed = 2.0
	// DefaultSpeed is normal playback rate.
	DefaultSpeed = 1.0

	// MinVolume and MaxVolume bound the gain.
	MinVolume = 0.0
	MaxVolume = 1.0
	// DefaultVolume is full volume.
	DefaultVolume = 1.0

	resampleQuality = 4
)

// ClampSpeed limits speed to the supported range.
func ClampSpeed(speed float64) float64 {
	return clamp(speed, MinSpeed, MaxSpeed)
}

// ClampVolume limits volume to the supported range.
func ClampVolume(volume float64) float64 {
	return clamp(volume, MinVolume, MaxVolume)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
