package call

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-client/internal/proto"
)

// Engine manages at most one call session at a time. Every async
// continuation (media acquisition, negotiation steps, pion callbacks)
// carries the session generation it was started under and is discarded
// when a newer generation owns the engine: a slow camera grab must not
// attach media to a call the user already hung up.
type Engine struct {
	sig     Signaler
	media   MediaSource
	newPC   PCFactory
	stun    []string
	log     zerolog.Logger
	onPhase func(PhaseChange)

	mu   sync.Mutex
	sess *session
	gen  int
}

type session struct {
	conversationID string
	peerID         string
	direction      Direction
	video          bool
	gen            int
	phase          Phase
	reason         string
	media          LocalMedia
	pc             PeerConnection
}

// Config assembles an Engine.
type Config struct {
	Signaler    Signaler
	Media       MediaSource
	PCFactory   PCFactory // defaults to the pion implementation
	STUNServers []string
	Logger      *zerolog.Logger
	// OnPhase, when set, observes every phase change (for UI and tones).
	OnPhase func(PhaseChange)
}

// NewEngine builds an idle engine.
func NewEngine(cfg Config) *Engine {
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "call").Logger()
	}
	factory := cfg.PCFactory
	if factory == nil {
		factory = NewPionPC
	}
	return &Engine{
		sig:     cfg.Signaler,
		media:   cfg.Media,
		newPC:   factory,
		stun:    cfg.STUNServers,
		log:     logger,
		onPhase: cfg.OnPhase,
	}
}

// Current returns a snapshot of the active session; zero-valued with
// PhaseIdle when there is none.
func (e *Engine) Current() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess == nil {
		return Session{Phase: PhaseIdle}
	}
	s := e.sess
	return Session{
		ConversationID: s.conversationID,
		PeerID:         s.peerID,
		Direction:      s.direction,
		Video:          s.video,
		Phase:          s.phase,
		Reason:         s.reason,
	}
}

// Start places an outgoing call: acquire media, build the peer
// connection, send the offer. Returns ErrCallActive while another call
// is live.
func (e *Engine) Start(ctx context.Context, conversationID, peerID string, video bool) error {
	gen, err := e.begin(conversationID, peerID, Outgoing, video)
	if err != nil {
		return err
	}
	return e.negotiate(ctx, gen, "")
}

// Answer accepts an incoming offer: acquire media, build the peer
// connection, send the answer. Returns ErrCallActive while another
// call is live.
func (e *Engine) Answer(ctx context.Context, offer proto.CallOfferEvent, video bool) error {
	gen, err := e.begin(offer.ConversationID, offer.From, Incoming, video)
	if err != nil {
		return err
	}
	return e.negotiate(ctx, gen, offer.SDP)
}

// begin claims the engine for a new session in PhaseAcquiringMedia.
func (e *Engine) begin(conversationID, peerID string, dir Direction, video bool) (int, error) {
	e.mu.Lock()
	if s := e.sess; s != nil && s.phase != PhaseIdle && s.phase != PhaseEnded {
		e.mu.Unlock()
		return 0, ErrCallActive
	}
	e.gen++
	gen := e.gen
	e.sess = &session{
		conversationID: conversationID,
		peerID:         peerID,
		direction:      dir,
		video:          video,
		gen:            gen,
		phase:          PhaseAcquiringMedia,
	}
	e.mu.Unlock()

	e.log.Info().Str("conversation", conversationID).Str("peer", peerID).
		Str("direction", dir.String()).Bool("video", video).Msg("call starting")
	e.notify(PhaseChange{Phase: PhaseAcquiringMedia})
	return gen, nil
}

// negotiate runs the async part of call setup. remoteOffer is empty for
// outgoing calls. Each step re-checks that gen still owns the engine.
func (e *Engine) negotiate(ctx context.Context, gen int, remoteOffer string) error {
	media, err := e.media.Acquire(ctx, e.sessionVideo(gen))
	if err != nil {
		e.fail(gen, "media access denied or unavailable", err)
		return fmt.Errorf("%w: %w", ErrMediaUnavailable, err)
	}

	if !e.adoptMedia(gen, media) {
		// Session ended while getUserMedia was pending; release and
		// discard silently.
		_ = media.Close()
		return nil
	}

	peerID := e.sessionPeer(gen)
	pc, err := e.newPC(PCConfig{STUNServers: e.stun}, media, PCCallbacks{
		OnCandidate:   func(cand string) { e.relayCandidate(gen, cand) },
		OnStateChange: func(st ConnState) { e.handlePCState(gen, st) },
	})
	if err != nil {
		e.fail(gen, "peer connection setup failed", err)
		return fmt.Errorf("new peer connection: %w", err)
	}
	if !e.adoptPC(gen, pc) {
		_ = pc.Close()
		return nil
	}
	e.notify(PhaseChange{Phase: PhaseNegotiating})

	if remoteOffer == "" {
		offer, err := pc.CreateOffer()
		if err != nil {
			e.fail(gen, "offer creation failed", err)
			return fmt.Errorf("create offer: %w", err)
		}
		if !e.isCurrent(gen) {
			return nil
		}
		callType := proto.CallTypeAudio
		if e.sessionVideo(gen) {
			callType = proto.CallTypeVideo
		}
		e.sig.SendCallOffer(ctx, proto.CallOfferData{
			ConversationID: e.sessionConversation(gen),
			To:             peerID,
			SDP:            offer,
			CallType:       callType,
		})
		return nil
	}

	answer, err := pc.AcceptOffer(remoteOffer)
	if err != nil {
		e.fail(gen, "answer creation failed", err)
		return fmt.Errorf("accept offer: %w", err)
	}
	if !e.isCurrent(gen) {
		return nil
	}
	e.sig.SendCallAnswer(ctx, proto.CallAnswerData{
		ConversationID: e.sessionConversation(gen),
		To:             peerID,
		SDP:            answer,
	})
	return nil
}

// HandleAnswer applies the peer's SDP answer. A no-op without an active
// peer connection, guarding against late or duplicate answers.
func (e *Engine) HandleAnswer(ev proto.CallAnswerEvent) {
	e.mu.Lock()
	var pc PeerConnection
	if s := e.sess; s != nil && s.phase == PhaseNegotiating {
		pc = s.pc
	}
	e.mu.Unlock()
	if pc == nil {
		return
	}
	if err := pc.AcceptAnswer(ev.SDP); err != nil {
		e.log.Warn().Err(err).Msg("apply remote answer failed")
	}
}

// HandleCandidate adds a trickled remote ICE candidate. A no-op without
// an active peer connection.
func (e *Engine) HandleCandidate(ev proto.CallCandidateEvent) {
	e.mu.Lock()
	var pc PeerConnection
	if s := e.sess; s != nil && (s.phase == PhaseNegotiating || s.phase == PhaseConnected) {
		pc = s.pc
	}
	e.mu.Unlock()
	if pc == nil {
		return
	}
	if err := pc.AddCandidate(ev.Candidate); err != nil {
		e.log.Warn().Err(err).Msg("add remote candidate failed")
	}
}

// HandleRemoteEnd tears the session down after the peer hung up. The
// end signal is echoed through the shared teardown path; the peer's
// engine is already idle, so the echo lands as a no-op there.
func (e *Engine) HandleRemoteEnd(ev proto.CallEndedEvent) {
	e.End(context.Background())
}

// End is the single idempotent teardown path: stops and releases local
// media, closes the peer connection, signals the peer, resets to idle.
// Safe to call when already idle, and re-entrant from callbacks fired
// during teardown.
func (e *Engine) End(ctx context.Context) {
	e.teardown(ctx, true, "")
}

func (e *Engine) teardown(ctx context.Context, signal bool, reason string) {
	e.mu.Lock()
	s := e.sess
	if s == nil || s.phase == PhaseIdle {
		e.mu.Unlock()
		return
	}
	e.gen++ // invalidate in-flight continuations
	media, pc := s.media, s.pc
	s.media, s.pc = nil, nil
	conversationID, peerID := s.conversationID, s.peerID
	e.sess = nil
	e.mu.Unlock()

	if media != nil {
		_ = media.Close()
	}
	if pc != nil {
		_ = pc.Close()
	}
	if signal {
		e.sig.SendCallEnd(ctx, proto.CallEndData{ConversationID: conversationID, To: peerID})
	}

	e.log.Info().Str("conversation", conversationID).Str("reason", reason).Msg("call ended")
	e.notify(PhaseChange{Phase: PhaseEnded, Reason: reason})
	e.notify(PhaseChange{Phase: PhaseIdle})
}

// fail ends the session with a user-facing reason. Stale generations
// are discarded silently.
func (e *Engine) fail(gen int, reason string, err error) {
	e.mu.Lock()
	s := e.sess
	if s == nil || gen != e.gen {
		e.mu.Unlock()
		return
	}
	media, pc := s.media, s.pc
	s.media, s.pc = nil, nil
	s.phase = PhaseEnded
	s.reason = reason
	e.mu.Unlock()

	if media != nil {
		_ = media.Close()
	}
	if pc != nil {
		_ = pc.Close()
	}

	e.log.Warn().Err(err).Str("reason", reason).Msg("call failed")
	e.notify(PhaseChange{Phase: PhaseEnded, Reason: reason})
}

// handlePCState reacts to peer connection state changes. A transport
// failure is a local-only observation: the session ends without
// emitting call_end.
func (e *Engine) handlePCState(gen int, st ConnState) {
	if !e.isCurrent(gen) {
		return
	}
	switch st {
	case ConnConnected:
		e.mu.Lock()
		if s := e.sess; s != nil && s.gen == gen && s.phase == PhaseNegotiating {
			s.phase = PhaseConnected
			e.mu.Unlock()
			e.notify(PhaseChange{Phase: PhaseConnected})
			return
		}
		e.mu.Unlock()
	case ConnDisconnected, ConnFailed:
		e.teardown(context.Background(), false, "connection lost")
	}
}

func (e *Engine) relayCandidate(gen int, cand string) {
	e.mu.Lock()
	current := e.sess != nil && gen == e.gen
	var peerID string
	if current {
		peerID = e.sess.peerID
	}
	e.mu.Unlock()
	if !current {
		return
	}
	e.sig.SendCallCandidate(context.Background(), proto.CallCandidateData{To: peerID, Candidate: cand})
}

func (e *Engine) adoptMedia(gen int, media LocalMedia) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.sess
	if s == nil || gen != e.gen || s.phase != PhaseAcquiringMedia {
		return false
	}
	s.media = media
	return true
}

func (e *Engine) adoptPC(gen int, pc PeerConnection) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.sess
	if s == nil || gen != e.gen {
		return false
	}
	s.pc = pc
	s.phase = PhaseNegotiating
	return true
}

func (e *Engine) isCurrent(gen int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess != nil && gen == e.gen
}

func (e *Engine) sessionVideo(gen int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess != nil && gen == e.gen && e.sess.video
}

func (e *Engine) sessionPeer(gen int) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess != nil && gen == e.gen {
		return e.sess.peerID
	}
	return ""
}

func (e *Engine) sessionConversation(gen int) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess != nil && gen == e.gen {
		return e.sess.conversationID
	}
	return ""
}

func (e *Engine) notify(ch PhaseChange) {
	if e.onPhase != nil {
		e.onPhase(ch)
	}
}
