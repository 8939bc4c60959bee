//go:build linux

package call

import (
	"context"
	"fmt"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// DeviceSource captures local camera/microphone via pion/mediadevices
// (V4L2 + malgo on Linux).
type DeviceSource struct {
	log zerolog.Logger
}

// NewDeviceSource builds the platform media source.
func NewDeviceSource(logger *zerolog.Logger) *DeviceSource {
	lg := zerolog.Nop()
	if logger != nil {
		lg = logger.With().Str("component", "media").Logger()
	}
	return &DeviceSource{log: lg}
}

type deviceMedia struct {
	stream   mediadevices.MediaStream
	selector *mediadevices.CodecSelector
}

func (d *deviceMedia) Tracks() []webrtc.TrackLocal {
	tracks := d.stream.GetTracks()
	out := make([]webrtc.TrackLocal, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t)
	}
	return out
}

func (d *deviceMedia) Populate(me *webrtc.MediaEngine) error {
	d.selector.Populate(me)
	return nil
}

func (d *deviceMedia) Close() error {
	for _, t := range d.stream.GetTracks() {
		t.Close()
	}
	return nil
}

// Acquire captures microphone, plus camera when video is set.
// GetUserMedia fails as a unit if either track cannot be opened, so a
// video request falls back to audio-only before giving up; a busy
// camera must not block a voice call.
func (d *DeviceSource) Acquire(_ context.Context, video bool) (LocalMedia, error) {
	vpxParams, err := vpx.NewVP8Params()
	if err != nil {
		return nil, fmt.Errorf("vp8 params: %w", err)
	}
	vpxParams.BitRate = 1_500_000

	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, fmt.Errorf("opus params: %w", err)
	}

	selector := mediadevices.NewCodecSelector(
		mediadevices.WithVideoEncoders(&vpxParams),
		mediadevices.WithAudioEncoders(&opusParams),
	)

	attempts := []struct {
		video bool
		label string
	}{{video, "audio+video"}, {false, "audio-only"}}
	if !video {
		attempts = attempts[1:]
	}

	var lastErr error
	for _, a := range attempts {
		constraints := mediadevices.MediaStreamConstraints{Codec: selector}
		constraints.Audio = func(_ *mediadevices.MediaTrackConstraints) {}
		if a.video {
			constraints.Video = func(c *mediadevices.MediaTrackConstraints) {
				// Raw formats only: some cameras expose an MJPEG node
				// that produces malformed frames and poisons the VP8
				// encoder.
				c.FrameFormat = prop.FrameFormatOneOf{
					frame.FormatYUYV,
					frame.FormatI420,
					frame.FormatI444,
					frame.FormatRGBA,
				}
				c.Width = prop.IntRanged{Max: 640}
				c.Height = prop.IntRanged{Max: 480}
			}
		}

		stream, err := mediadevices.GetUserMedia(constraints)
		if err != nil {
			d.log.Warn().Err(err).Str("attempt", a.label).Msg("media capture attempt failed")
			lastErr = err
			continue
		}

		for _, track := range stream.GetTracks() {
			track.OnEnded(func(err error) {
				if err != nil {
					d.log.Warn().Err(err).Msg("local track ended")
				}
			})
		}

		d.log.Info().Str("attempt", a.label).Int("tracks", len(stream.GetTracks())).Msg("local media captured")
		return &deviceMedia{stream: stream, selector: selector}, nil
	}

	return nil, fmt.Errorf("get user media: %w", lastErr)
}
