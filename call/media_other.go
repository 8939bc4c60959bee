//go:build !linux

package call

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// DeviceSource is a stub on non-Linux platforms. Camera/mic capture via
// pion/mediadevices needs platform drivers (V4L2/malgo on Linux).
type DeviceSource struct{}

// NewDeviceSource builds the platform media source.
func NewDeviceSource(_ *zerolog.Logger) *DeviceSource {
	return &DeviceSource{}
}

// Acquire always fails on this platform; the engine reports the call as
// ended with a media reason.
func (d *DeviceSource) Acquire(context.Context, bool) (LocalMedia, error) {
	return nil, errors.New("media capture is not supported on this platform")
}
