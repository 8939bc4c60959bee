// Package tones generates the procedural call feedback audio: ringtone,
// ringback, and the connected/ended/declined cues. Everything is
// synthesized on the fly as 48 kHz mono s16 PCM; no audio assets are
// shipped and nothing here touches the network or the call engine.
package tones

import (
	"math"
	"time"
)

// SampleRate of all synthesized PCM. Matches the Opus capture rate used
// on the call media path so a single output device config serves both.
const SampleRate = 48000

// amplitude keeps the cues well below full scale.
const amplitude = 0.35

// Tone is one dual-frequency burst followed by silence. FreqB may be
// zero for a pure tone.
type Tone struct {
	FreqA    float64
	FreqB    float64
	Duration time.Duration
	Gap      time.Duration
}

// Pattern is a named tone sequence. Repeating patterns replay the
// sequence after Interval of silence until cancelled; one-shots play
// the sequence once.
type Pattern struct {
	Name     string
	Tones    []Tone
	Repeat   bool
	Interval time.Duration
}

// Ringtone is the incoming-call alert: a double burst in the UK
// ring cadence, repeating until answered or dismissed.
func Ringtone() Pattern {
	burst := Tone{FreqA: 400, FreqB: 450, Duration: 400 * time.Millisecond, Gap: 200 * time.Millisecond}
	return Pattern{
		Name:     "ringtone",
		Tones:    []Tone{burst, burst},
		Repeat:   true,
		Interval: 2 * time.Second,
	}
}

// Ringback is heard by the caller while waiting for the peer to pick
// up: the North American 440+480 Hz cadence, 2 s on / 4 s off.
func Ringback() Pattern {
	return Pattern{
		Name:     "ringback",
		Tones:    []Tone{{FreqA: 440, FreqB: 480, Duration: 2 * time.Second}},
		Repeat:   true,
		Interval: 4 * time.Second,
	}
}

// Connected is a short ascending one-shot confirming media is flowing.
func Connected() Pattern {
	return Pattern{
		Name: "connected",
		Tones: []Tone{
			{FreqA: 523.25, Duration: 120 * time.Millisecond, Gap: 40 * time.Millisecond},
			{FreqA: 659.25, Duration: 180 * time.Millisecond},
		},
	}
}

// Ended is a short descending one-shot played after teardown.
func Ended() Pattern {
	return Pattern{
		Name: "ended",
		Tones: []Tone{
			{FreqA: 440, Duration: 150 * time.Millisecond, Gap: 40 * time.Millisecond},
			{FreqA: 330, Duration: 220 * time.Millisecond},
		},
	}
}

// Declined is three busy-tone bursts (480+620 Hz), played once.
func Declined() Pattern {
	burst := Tone{FreqA: 480, FreqB: 620, Duration: 250 * time.Millisecond, Gap: 250 * time.Millisecond}
	return Pattern{
		Name:  "declined",
		Tones: []Tone{burst, burst, burst},
	}
}

// Synthesize renders one tone (without its trailing gap) as mono s16
// PCM at the given rate. A 5 ms linear ramp is applied at both ends so
// bursts start and stop without clicks.
func Synthesize(t Tone, rate int) []int16 {
	n := int(float64(rate) * t.Duration.Seconds())
	if n <= 0 {
		return nil
	}
	ramp := rate * 5 / 1000
	if ramp*2 > n {
		ramp = n / 2
	}
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		ts := float64(i) / float64(rate)
		v := math.Sin(2 * math.Pi * t.FreqA * ts)
		if t.FreqB > 0 {
			v = (v + math.Sin(2*math.Pi*t.FreqB*ts)) / 2
		}
		gain := 1.0
		if ramp > 0 {
			switch {
			case i < ramp:
				gain = float64(i) / float64(ramp)
			case i >= n-ramp:
				gain = float64(n-1-i) / float64(ramp)
			}
		}
		out[i] = int16(v * gain * amplitude * math.MaxInt16)
	}
	return out
}
