package call

import (
	"fmt"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
)

// enginePopulator is implemented by media sources that carry their own
// codec selection (mediadevices). Without it the default codecs are
// registered.
type enginePopulator interface {
	Populate(*webrtc.MediaEngine) error
}

// NewPionPC is the default PCFactory, building a pion peer connection
// with the media's tracks attached and callbacks wired.
func NewPionPC(cfg PCConfig, media LocalMedia, cb PCCallbacks) (PeerConnection, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if p, ok := media.(enginePopulator); ok {
		if err := p.Populate(mediaEngine); err != nil {
			return nil, fmt.Errorf("populate media engine: %w", err)
		}
	} else if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	registry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, registry); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	// Generous ICE timeouts so a short relay/NAT hiccup does not
	// immediately terminate the call.
	se := webrtc.SettingEngine{}
	se.SetICETimeouts(30*time.Second, 120*time.Second, 2*time.Second)

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithInterceptorRegistry(registry),
		webrtc.WithSettingEngine(se),
	)

	iceServers := make([]webrtc.ICEServer, 0, len(cfg.STUNServers))
	for _, url := range cfg.STUNServers {
		iceServers = append(iceServers, webrtc.ICEServer{URLs: []string{url}})
	}

	pc, err := api.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}

	for _, track := range media.Tracks() {
		if _, err := pc.AddTransceiverFromTrack(track, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionSendrecv,
		}); err != nil {
			_ = pc.Close()
			return nil, fmt.Errorf("add track: %w", err)
		}
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil || cb.OnCandidate == nil {
			return
		}
		cb.OnCandidate(c.ToJSON().Candidate)
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		if cb.OnStateChange == nil {
			return
		}
		switch state {
		case webrtc.PeerConnectionStateConnected:
			cb.OnStateChange(ConnConnected)
		case webrtc.PeerConnectionStateDisconnected, webrtc.PeerConnectionStateClosed:
			cb.OnStateChange(ConnDisconnected)
		case webrtc.PeerConnectionStateFailed:
			cb.OnStateChange(ConnFailed)
		}
	})

	return &pionPC{pc: pc}, nil
}

type pionPC struct {
	pc *webrtc.PeerConnection
}

func (p *pionPC) CreateOffer() (string, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("create offer: %w", err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("set local description: %w", err)
	}
	return offer.SDP, nil
}

func (p *pionPC) AcceptOffer(sdp string) (string, error) {
	remote := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}
	if err := p.pc.SetRemoteDescription(remote); err != nil {
		return "", fmt.Errorf("set remote description: %w", err)
	}
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("create answer: %w", err)
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return "", fmt.Errorf("set local description: %w", err)
	}
	return answer.SDP, nil
}

func (p *pionPC) AcceptAnswer(sdp string) error {
	remote := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp}
	if err := p.pc.SetRemoteDescription(remote); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	return nil
}

func (p *pionPC) AddCandidate(candidate string) error {
	return p.pc.AddICECandidate(webrtc.ICECandidateInit{Candidate: candidate})
}

func (p *pionPC) Close() error {
	return p.pc.Close()
}
