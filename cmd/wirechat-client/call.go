package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-client/call"
	"github.com/vovakirdan/wirechat-client/internal/log"
	"github.com/vovakirdan/wirechat-client/internal/proto"
	"github.com/vovakirdan/wirechat-client/realtime"
	"github.com/vovakirdan/wirechat-client/tones"
)

var (
	flagCallVideo bool
	flagCallWait  bool
)

var callCmd = &cobra.Command{
	Use:   "call <conversation-id> [peer-user-id]",
	Short: "Place a call, or wait for one with --wait",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		peer := ""
		if len(args) == 2 {
			peer = args[1]
		}
		if !flagCallWait && peer == "" {
			return fmt.Errorf("peer-user-id is required unless --wait is set")
		}
		return runCall(cmd.Context(), args[0], peer)
	},
}

func init() {
	callCmd.Flags().BoolVar(&flagCallVideo, "video", false, "capture camera as well as microphone")
	callCmd.Flags().BoolVar(&flagCallWait, "wait", false, "wait for an incoming call instead of placing one")
}

// discardSink keeps call flow working on machines with no playback
// device.
type discardSink struct{}

func (discardSink) Write([]int16) error { return nil }
func (discardSink) Close() error        { return nil }

func newTonePlayer() *tones.Player {
	tlog := log.Component(logger, "tones")
	sink, err := tones.NewDeviceSink(*tlog)
	if err != nil {
		tlog.Warn().Err(err).Msg("audio output unavailable, call tones disabled")
		return tones.NewPlayer(discardSink{}, *tlog)
	}
	return tones.NewPlayer(sink, *tlog)
}

func runCall(parent context.Context, conversationID, peerID string) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := newManager()
	defer manager.Close()
	emitter := realtime.NewEmitter(manager)

	player := newTonePlayer()
	defer player.Close()

	callOver := make(chan struct{}, 1)
	engine := call.NewEngine(call.Config{
		Signaler:    emitter,
		Media:       call.NewDeviceSource(logger),
		STUNServers: cfg.STUNServers,
		Logger:      logger,
		OnPhase: func(ch call.PhaseChange) {
			switch ch.Phase {
			case call.PhaseConnected:
				fmt.Println("-- call connected --")
				player.PlayConnected()
			case call.PhaseEnded:
				if ch.Reason != "" {
					fmt.Printf("-- call ended: %s --\n", ch.Reason)
				} else {
					fmt.Println("-- call ended --")
				}
				player.PlayEnded()
				select {
				case callOver <- struct{}{}:
				default:
				}
			}
		},
	})
	defer engine.End(context.Background())

	offers := make(chan proto.CallOfferEvent, 1)
	unbind := manager.Bind(&realtime.Handlers{
		OnCallOffer: func(ev proto.CallOfferEvent) {
			select {
			case offers <- ev:
			default:
				logger.Warn().Str("from", ev.From).Msg("dropping concurrent call offer")
			}
		},
		OnCallAnswer:    engine.HandleAnswer,
		OnCallCandidate: engine.HandleCandidate,
		OnCallEnded: func(ev proto.CallEndedEvent) {
			// Teardown fires the generic ended cue; the declined cue
			// replaces it afterwards so it is the one heard.
			engine.HandleRemoteEnd(ev)
			if ev.Declined {
				player.PlayDeclined()
			}
		},
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("server reported error")
		},
	})
	defer unbind()

	if err := manager.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	emitter.OpenConversation(ctx, conversationID)

	if flagCallWait {
		return waitForCall(ctx, engine, player, offers, callOver)
	}

	fmt.Printf("Calling %s...\n", peerID)
	player.PlayRingback()
	if err := engine.Start(ctx, conversationID, peerID, flagCallVideo); err != nil {
		player.StopAll()
		return fmt.Errorf("start call: %w", err)
	}

	waitForHangup(ctx, callOver)
	return nil
}

func waitForCall(ctx context.Context, engine *call.Engine, player *tones.Player, offers <-chan proto.CallOfferEvent, callOver <-chan struct{}) error {
	fmt.Println("Waiting for an incoming call. Ctrl+C to exit.")

	var offer proto.CallOfferEvent
	select {
	case <-ctx.Done():
		return nil
	case offer = <-offers:
	}

	player.PlayRingtone()
	fmt.Printf("Incoming %s call from %s. Press Enter to answer, Ctrl+C to decline.\n", offer.CallType, offer.From)

	answered := make(chan struct{})
	go func() {
		bufio.NewScanner(os.Stdin).Scan()
		close(answered)
	}()

	select {
	case <-ctx.Done():
		player.StopAll()
		return nil
	case <-answered:
	}

	player.StopAll()
	if err := engine.Answer(ctx, offer, flagCallVideo); err != nil {
		return fmt.Errorf("answer call: %w", err)
	}

	waitForHangup(ctx, callOver)
	return nil
}

// waitForHangup blocks until the user interrupts or the session ends.
func waitForHangup(ctx context.Context, callOver <-chan struct{}) {
	select {
	case <-ctx.Done():
	case <-callOver:
	}
}
