package realtime

import (
	"sync"

	"github.com/vovakirdan/wirechat-client/internal/proto"
)

// PresenceSet tracks which users are currently online, fed by
// user_status events. Compose Apply into Handlers.OnUserStatus.
type PresenceSet struct {
	mu     sync.Mutex
	online map[string]struct{}
}

// NewPresenceSet creates an empty presence map.
func NewPresenceSet() *PresenceSet {
	return &PresenceSet{online: make(map[string]struct{})}
}

// Apply folds one status event into the set.
func (p *PresenceSet) Apply(ev proto.StatusEvent) {
	p.mu.Lock()
	if ev.Online {
		p.online[ev.UserID] = struct{}{}
	} else {
		delete(p.online, ev.UserID)
	}
	p.mu.Unlock()
}

// IsOnline reports whether the user is known to be online.
func (p *PresenceSet) IsOnline(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.online[userID]
	return ok
}

// Reset drops all presence state, e.g. after a disconnect.
func (p *PresenceSet) Reset() {
	p.mu.Lock()
	p.online = make(map[string]struct{})
	p.mu.Unlock()
}
