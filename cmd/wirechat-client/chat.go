package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-client/internal/proto"
	"github.com/vovakirdan/wirechat-client/internal/store"
	"github.com/vovakirdan/wirechat-client/realtime"
)

var chatCmd = &cobra.Command{
	Use:   "chat <conversation-id>",
	Short: "Join a conversation interactively",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context(), args[0])
	},
}

func runChat(parent context.Context, conversationID string) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache, err := openCache()
	if err != nil {
		return err
	}
	defer cache.Close()

	manager := newManager()
	defer manager.Close()
	emitter := realtime.NewEmitter(manager)
	typing := realtime.NewTypingSet(realtime.WithExpiry(cfg.TypingExpiry))
	presence := realtime.NewPresenceSet()

	unsubscribe := manager.Subscribe(func(s realtime.State) {
		switch s.Status {
		case realtime.StatusConnected:
			fmt.Println("-- connected --")
		case realtime.StatusReconnecting:
			fmt.Printf("-- reconnecting (attempt %d) --\n", s.ReconnectAttempts)
		case realtime.StatusError:
			fmt.Printf("-- connection lost: %v --\n", s.Err)
		}
	})
	defer unsubscribe()

	cacheCtx := context.Background()
	unbind := manager.Bind(&realtime.Handlers{
		OnMessage: func(ev proto.MessageEvent) {
			msg := eventToMessage(ev)
			if err := cache.UpsertMessage(cacheCtx, msg); err != nil {
				logger.Warn().Err(err).Msg("cache message failed")
			}
			if ev.ConversationID == conversationID {
				printMessage(msg)
			}
		},
		OnMessageEdited: func(ev proto.MessageEvent) {
			if err := cache.MarkEdited(cacheCtx, ev.ID, ev.Body); err != nil {
				logger.Warn().Err(err).Msg("cache edit failed")
			}
			if ev.ConversationID == conversationID {
				fmt.Printf("-- %s edited a message: %s --\n", ev.SenderID, ev.Body)
			}
		},
		OnMessageDeleted: func(ev proto.MessageEvent) {
			if err := cache.MarkDeleted(cacheCtx, ev.ID); err != nil {
				logger.Warn().Err(err).Msg("cache delete failed")
			}
			if ev.ConversationID == conversationID {
				fmt.Printf("-- %s deleted a message --\n", ev.SenderID)
			}
		},
		OnReaction: func(ev proto.ReactionEvent) {
			fmt.Printf("-- %s reacted %s --\n", ev.UserID, ev.Emoji)
		},
		OnTyping: typing.Apply,
		OnUserStatus: func(ev proto.StatusEvent) {
			presence.Apply(ev)
			if presence.IsOnline(ev.UserID) {
				fmt.Printf("-- %s is online --\n", ev.UserID)
			} else {
				fmt.Printf("-- %s went offline --\n", ev.UserID)
			}
		},
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("server reported error")
		},
	})
	defer unbind()

	stopTyping := typing.OnChange(func(convo string, users []string) {
		if convo != conversationID {
			return
		}
		if len(users) == 0 {
			fmt.Println("-- nobody is typing --")
			return
		}
		fmt.Printf("-- typing: %s --\n", strings.Join(users, ", "))
	})
	defer stopTyping()

	if err := manager.Connect(ctx); err != nil {
		// Reconnection continues in the background; the subscriber
		// prints the outcome either way.
		logger.Warn().Err(err).Msg("initial connect failed")
	}

	scrollback, err := hydrate(ctx, newRESTClient(), cache, conversationID, 50)
	if err != nil {
		return err
	}
	for _, m := range scrollback {
		printMessage(m)
	}

	emitter.OpenConversation(ctx, conversationID)
	emitter.AnnounceOnline(ctx)
	defer emitter.CloseConversation(context.Background(), conversationID)

	fmt.Printf("Joined %s. Type to chat, /help for commands, Ctrl+C to exit.\n", conversationID)
	chatInputLoop(ctx, emitter, conversationID)
	return nil
}

func eventToMessage(ev proto.MessageEvent) *store.Message {
	return &store.Message{
		ID:             ev.ID,
		ConversationID: ev.ConversationID,
		SenderID:       ev.SenderID,
		Body:           ev.Body,
		SentAt:         time.UnixMilli(ev.TS),
		Edited:         ev.Edited,
		Deleted:        ev.Deleted,
	}
}

func chatInputLoop(ctx context.Context, emitter *realtime.Emitter, conversationID string) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if strings.HasPrefix(text, "/") {
				if quit := chatCommand(ctx, emitter, conversationID, text); quit {
					return
				}
				continue
			}
			if _, ok := emitter.SendMessage(ctx, conversationID, text); !ok {
				fmt.Println("-- not connected, message dropped --")
			}
		}
	}
}

// chatCommand handles slash commands; returns true to quit.
func chatCommand(ctx context.Context, emitter *realtime.Emitter, conversationID, text string) bool {
	fields := strings.Fields(text)
	switch fields[0] {
	case "/quit":
		return true
	case "/typing":
		emitter.StartTyping(ctx, conversationID)
	case "/done":
		emitter.StopTyping(ctx, conversationID)
	case "/edit":
		if len(fields) < 3 {
			fmt.Println("usage: /edit <message-id> <new body>")
			return false
		}
		emitter.EditMessage(ctx, fields[1], strings.Join(fields[2:], " "))
	case "/del":
		if len(fields) != 2 {
			fmt.Println("usage: /del <message-id>")
			return false
		}
		emitter.DeleteMessage(ctx, fields[1])
	case "/react":
		if len(fields) != 3 {
			fmt.Println("usage: /react <message-id> <emoji>")
			return false
		}
		emitter.React(ctx, fields[1], fields[2])
	case "/read":
		if len(fields) != 2 {
			fmt.Println("usage: /read <message-id>")
			return false
		}
		emitter.MarkRead(ctx, conversationID, fields[1])
	case "/help":
		fmt.Println("commands: /typing /done /edit /del /react /read /quit")
	default:
		fmt.Printf("unknown command %s, try /help\n", fields[0])
	}
	return false
}
