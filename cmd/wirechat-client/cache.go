package main

import (
	"context"
	"fmt"
	"time"

	"github.com/vovakirdan/wirechat-client/internal/store"
	"github.com/vovakirdan/wirechat-client/internal/store/sqlite"
	"github.com/vovakirdan/wirechat-client/rest"
)

// scrollbackKeep bounds how much history the cache retains per
// conversation.
const scrollbackKeep = 500

func openCache() (*sqlite.SQLiteCache, error) {
	cache, err := sqlite.New(cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("open message cache: %w", err)
	}
	return cache, nil
}

// hydrate pulls the latest history page over REST into the cache and
// returns the cached scrollback window. A REST failure degrades to
// whatever the cache already holds.
func hydrate(ctx context.Context, restc *rest.Client, cache store.MessageCache, conversationID string, limit int) ([]*store.Message, error) {
	page, err := restc.History(ctx, conversationID, limit, "")
	if err != nil {
		logger.Warn().Err(err).Msg("history fetch failed, serving cached scrollback")
	} else {
		for _, dto := range page.Messages {
			msg := &store.Message{
				ID:             dto.ID,
				ConversationID: dto.ConversationID,
				SenderID:       dto.SenderID,
				Body:           dto.Body,
				SentAt:         time.UnixMilli(dto.TS),
				Edited:         dto.Edited,
				Deleted:        dto.Deleted,
			}
			if err := cache.UpsertMessage(ctx, msg); err != nil {
				return nil, fmt.Errorf("cache message: %w", err)
			}
		}
		if err := cache.Prune(ctx, conversationID, scrollbackKeep); err != nil {
			return nil, fmt.Errorf("prune cache: %w", err)
		}
	}

	return cache.ListMessages(ctx, conversationID, limit, nil)
}

func printMessage(m *store.Message) {
	when := m.SentAt.Local().Format("15:04")
	switch {
	case m.Deleted:
		fmt.Printf("[%s] %s: (deleted)\n", when, m.SenderID)
	case m.Edited:
		fmt.Printf("[%s] %s: %s (edited)\n", when, m.SenderID, m.Body)
	default:
		fmt.Printf("[%s] %s: %s\n", when, m.SenderID, m.Body)
	}
}
