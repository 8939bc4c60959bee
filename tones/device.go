package tones

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

// ErrSinkClosed is returned by Write after Close.
var ErrSinkClosed = errors.New("tone sink closed")

// sampleRing is a fixed-capacity circular PCM queue between the player
// goroutine and the device callback. Push blocks while full, which
// paces synthesis at playback speed; pop never blocks because the
// device callback must return immediately.
type sampleRing struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []int16
	head   int
	count  int
	closed bool
}

func newSampleRing(capacity int) *sampleRing {
	r := &sampleRing{buf: make([]int16, capacity)}
	r.cond = sync.NewCond(&r.mu)
	return r
}

func (r *sampleRing) push(pcm []int16) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range pcm {
		for r.count == len(r.buf) && !r.closed {
			r.cond.Wait()
		}
		if r.closed {
			return ErrSinkClosed
		}
		r.buf[(r.head+r.count)%len(r.buf)] = s
		r.count++
	}
	return nil
}

// popInto fills dst with queued samples and returns how many were
// copied. The remainder is the caller's to zero-fill.
func (r *sampleRing) popInto(dst []int16) int {
	r.mu.Lock()
	n := r.count
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	r.head = (r.head + n) % len(r.buf)
	r.count -= n
	r.mu.Unlock()
	r.cond.Broadcast()
	return n
}

func (r *sampleRing) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cond.Broadcast()
}

// DeviceSink plays PCM on the default output device through malgo.
// The device pulls mono s16 frames at SampleRate; underruns play
// silence rather than stalling the callback.
type DeviceSink struct {
	actx *malgo.AllocatedContext
	dev  *malgo.Device
	ring *sampleRing
	log  zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// NewDeviceSink opens the default playback device. The queue holds
// 200 ms of audio so Write paces the player without audible latency.
func NewDeviceSink(logger zerolog.Logger) (*DeviceSink, error) {
	actx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug().Str("msg", message).Msg("malgo")
	})
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}

	s := &DeviceSink{
		actx: actx,
		ring: newSampleRing(SampleRate / 5),
		log:  logger,
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.SampleRate = SampleRate

	dev, err := malgo.InitDevice(actx.Context, cfg, malgo.DeviceCallbacks{
		Data: s.fill,
	})
	if err != nil {
		actx.Uninit()
		actx.Free()
		return nil, fmt.Errorf("init playback device: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		actx.Uninit()
		actx.Free()
		return nil, fmt.Errorf("start playback device: %w", err)
	}
	s.dev = dev
	return s, nil
}

// fill is the device pull callback. It must never block.
func (s *DeviceSink) fill(out, _ []byte, frameCount uint32) {
	samples := make([]int16, frameCount)
	n := s.ring.popInto(samples)
	for i := 0; i < int(frameCount); i++ {
		var v int16
		if i < n {
			v = samples[i]
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
}

// Write queues pcm for playback, blocking while the device queue is
// full.
func (s *DeviceSink) Write(pcm []int16) error {
	return s.ring.push(pcm)
}

// Close stops the device and wakes any blocked writer.
func (s *DeviceSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.ring.close()
	if s.dev != nil {
		s.dev.Uninit()
	}
	s.actx.Uninit()
	s.actx.Free()
	return nil
}
