//go:build !nocgo

package audio

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
	"github.com/gopxl/beep/v2"
)

var (
	deviceOnce sync.Once
	device     *deviceOutput
	deviceErr  error
)

type deviceOutput struct {
	ctx *oto.Context
}

// DeviceOutput returns the process-wide device output. oto allows a
// single context per process, so it is created once.
func DeviceOutput() (Output, error) {
	deviceOnce.Do(func() {
		device, deviceErr = newDeviceOutput()
	})
	if deviceErr != nil {
		return nil, deviceErr
	}
	return device, nil
}

func newDeviceOutput() (*deviceOutput, error) {
	options := &oto.NewContextOptions{
		SampleRate:   int(SampleRate),
		ChannelCount: Channels,
		Format:       oto.FormatSignedInt16LE,
	}
	switch runtime.GOOS {
	case "darwin":
		options.BufferSize = 100 * time.Millisecond
	case "windows":
		options.BufferSize = 80 * time.Millisecond
	default:
		options.BufferSize = 50 * time.Millisecond
	}

	log.Debug("Initializing audio device",
		"sample_rate", options.SampleRate,
		"channels", options.ChannelCount,
		"buffer_size", options.BufferSize)

	ctx, ready, err := oto.NewContext(options)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio context: %w", err)
	}
	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("audio context initialization timeout")
	}
	return &deviceOutput{ctx: ctx}, nil
}

func (d *deviceOutput) NewPlayer(r io.Reader) (Player, error) {
	return d.ctx.NewPlayer(r), nil
}

func (d *deviceOutput) SampleRate() beep.SampleRate {
	return SampleRate
}
