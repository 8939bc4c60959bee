package tones

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// frameSamples is the chunk size handed to the sink: 20 ms at 48 kHz.
// Small enough that cancellation lands mid-burst without an audible lag.
const frameSamples = SampleRate / 50

// Sink consumes synthesized PCM. Write may block until the device has
// room for the frame.
type Sink interface {
	Write(pcm []int16) error
	Close() error
}

// Player schedules feedback patterns on a sink. At most one pattern is
// live at any moment: starting a new one cancels the current one first,
// and the new pattern is not started until the old run has fully
// stopped.
type Player struct {
	sink Sink
	log  zerolog.Logger

	// startMu serializes start/stop so two callers can never race a
	// swap and end up with two live runs.
	startMu sync.Mutex

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	gen     int
	current string
}

// NewPlayer wraps a sink. The player does not own audio device setup;
// pass NewDeviceSink's result (or a fake in tests).
func NewPlayer(sink Sink, logger zerolog.Logger) *Player {
	return &Player{sink: sink, log: logger}
}

// PlayRingtone starts the repeating incoming-call alert.
func (p *Player) PlayRingtone() { p.start(Ringtone()) }

// PlayRingback starts the repeating waiting-for-answer cadence.
func (p *Player) PlayRingback() { p.start(Ringback()) }

// PlayConnected plays the call-established cue once.
func (p *Player) PlayConnected() { p.start(Connected()) }

// PlayEnded plays the call-over cue once.
func (p *Player) PlayEnded() { p.start(Ended()) }

// PlayDeclined plays the busy cue once.
func (p *Player) PlayDeclined() { p.start(Declined()) }

// Current reports the name of the live pattern, or "" when silent.
// One-shot patterns clear themselves when their sequence finishes.
func (p *Player) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// StopAll cancels the live pattern, if any, and waits for it to stop.
// Safe to call repeatedly and while nothing is playing.
func (p *Player) StopAll() {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	p.stopCurrent()
	p.mu.Lock()
	p.current = ""
	p.mu.Unlock()
}

// Close stops playback and releases the sink.
func (p *Player) Close() error {
	p.StopAll()
	return p.sink.Close()
}

func (p *Player) start(pat Pattern) {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	p.stopCurrent()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.cancel = cancel
	p.done = done
	p.current = pat.Name
	p.mu.Unlock()

	go p.run(ctx, pat, gen, done)
}

// stopCurrent cancels the live run and blocks until its goroutine has
// returned. Caller holds startMu.
func (p *Player) stopCurrent() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (p *Player) run(ctx context.Context, pat Pattern, gen int, done chan struct{}) {
	defer close(done)
	for {
		for _, t := range pat.Tones {
			if !p.write(ctx, Synthesize(t, SampleRate)) {
				return
			}
			if !sleep(ctx, t.Gap) {
				return
			}
		}
		if !pat.Repeat {
			p.finished(gen)
			return
		}
		if !sleep(ctx, pat.Interval) {
			return
		}
	}
}

// write feeds pcm to the sink in frame-sized chunks, checking for
// cancellation between chunks. Returns false when the run should stop.
func (p *Player) write(ctx context.Context, pcm []int16) bool {
	for len(pcm) > 0 {
		if ctx.Err() != nil {
			return false
		}
		n := frameSamples
		if n > len(pcm) {
			n = len(pcm)
		}
		if err := p.sink.Write(pcm[:n]); err != nil {
			p.log.Warn().Err(err).Msg("tone sink write failed")
			return false
		}
		pcm = pcm[n:]
	}
	return true
}

// finished clears the current pattern after a one-shot run, unless a
// newer pattern already took over.
func (p *Player) finished(gen int) {
	p.mu.Lock()
	if p.gen == gen {
		p.current = ""
	}
	p.mu.Unlock()
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
