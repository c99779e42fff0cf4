//go:build nocgo

package audio

import "errors"

// DeviceOutput is unavailable in builds without cgo.
func DeviceOutput() (Output, error) {
	return nil, errors.New("audio device output requires cgo")
}
