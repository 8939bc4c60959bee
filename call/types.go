// Package call implements peer-to-peer audio/video call negotiation
// over the realtime signaling channel: media acquisition, SDP
// offer/answer exchange, trickle ICE, and teardown. It is coupled to
// the rest of the client only through the Signaler and MediaSource
// interfaces.
package call

import (
	"context"
	"errors"

	"github.com/pion/webrtc/v4"

	"github.com/vovakirdan/wirechat-client/internal/proto"
)

var (
	// ErrCallActive is returned by Start/Answer while another call is
	// live. Callers must End the current call first; the engine never
	// tears one down implicitly.
	ErrCallActive = errors.New("another call is active")

	// ErrMediaUnavailable wraps camera/microphone acquisition failures.
	ErrMediaUnavailable = errors.New("media access denied or unavailable")
)

// Direction of a call session.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
)

func (d Direction) String() string {
	if d == Incoming {
		return "incoming"
	}
	return "outgoing"
}

// Phase of the call session state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAcquiringMedia
	PhaseNegotiating
	PhaseConnected
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAcquiringMedia:
		return "acquiring-media"
	case PhaseNegotiating:
		return "negotiating"
	case PhaseConnected:
		return "connected"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// PhaseChange is delivered to the engine's phase listener. Reason is
// set for PhaseEnded.
type PhaseChange struct {
	Phase  Phase
	Reason string
}

// Session is a read-only snapshot of the active call.
type Session struct {
	ConversationID string
	PeerID         string
	Direction      Direction
	Video          bool
	Phase          Phase
	Reason         string
}

// Signaler relays negotiation payloads to the peer. *realtime.Emitter
// satisfies it. The boolean results follow the emitter contract:
// false means the transport dropped the payload.
type Signaler interface {
	SendCallOffer(ctx context.Context, data proto.CallOfferData) bool
	SendCallAnswer(ctx context.Context, data proto.CallAnswerData) bool
	SendCallCandidate(ctx context.Context, data proto.CallCandidateData) bool
	SendCallEnd(ctx context.Context, data proto.CallEndData) bool
}

// LocalMedia owns the local capture tracks for one session. Close stops
// and releases every track; the session calls it on every exit path.
type LocalMedia interface {
	Tracks() []webrtc.TrackLocal
	Close() error
}

// MediaSource acquires local media. The device-backed implementation
// lives in media_linux.go; tests substitute fakes.
type MediaSource interface {
	Acquire(ctx context.Context, video bool) (LocalMedia, error)
}

// ConnState is the reduced peer-connection state the engine reacts to.
type ConnState int

const (
	ConnConnected ConnState = iota
	ConnDisconnected
	ConnFailed
)

// PeerConnection is the slice of a WebRTC peer connection the engine
// drives. The pion-backed implementation lives in pion.go.
type PeerConnection interface {
	// CreateOffer builds an SDP offer and installs it as the local
	// description.
	CreateOffer() (string, error)
	// AcceptOffer installs the remote offer and returns a local answer,
	// installed as the local description.
	AcceptOffer(sdp string) (string, error)
	// AcceptAnswer installs the remote answer.
	AcceptAnswer(sdp string) error
	// AddCandidate adds one remote ICE candidate.
	AddCandidate(candidate string) error
	Close() error
}

// PCCallbacks are wired at construction so trickled candidates and
// connection-state changes reach the engine.
type PCCallbacks struct {
	OnCandidate   func(candidate string)
	OnStateChange func(state ConnState)
}

// PCConfig parameterizes peer connection construction.
type PCConfig struct {
	STUNServers []string
}

// PCFactory builds a peer connection with media attached.
type PCFactory func(cfg PCConfig, media LocalMedia, cb PCCallbacks) (PeerConnection, error)
