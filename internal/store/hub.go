package store

import (
	"sync"

	"github.com/zhubert/parley/internal/backend"
)

// Hub fans live-query snapshots out to subscribers. Each subscriber holds at
// most one undelivered snapshot; a newer one replaces it.
type Hub struct {
	mu   sync.Mutex
	subs map[backend.Token]*Subscription
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[backend.Token]*Subscription)}
}

// Subscription is a live query registered with a Hub.
type Subscription struct {
	token backend.Token
	query backend.Query
	hub   *Hub

	mu     sync.Mutex
	ch     chan backend.Snapshot
	closed bool
}

func (s *Subscription) Token() backend.Token                { return s.token }
func (s *Subscription) Snapshots() <-chan backend.Snapshot { return s.ch }
func (s *Subscription) Query() backend.Query                { return s.query }

// Cancel stops delivery and closes the snapshot channel. Safe to call more
// than once.
func (s *Subscription) Cancel() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	s.hub.remove(s.token)
}

// deliver replaces any unread snapshot with snap.
func (s *Subscription) deliver(snap backend.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	snap.Token = s.token
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}

// Register adds a subscription for q. The caller delivers the initial
// snapshot.
func (h *Hub) Register(q backend.Query) *Subscription {
	s := &Subscription{
		token: backend.NextToken(),
		query: q,
		hub:   h,
		ch:    make(chan backend.Snapshot, 1),
	}
	h.mu.Lock()
	h.subs[s.token] = s
	h.mu.Unlock()
	return s
}

func (h *Hub) remove(token backend.Token) {
	h.mu.Lock()
	delete(h.subs, token)
	h.mu.Unlock()
}

// Watching returns the subscriptions on collection.
func (h *Hub) Watching(collection string) []*Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*Subscription
	for _, s := range h.subs {
		if s.query.Collection == collection {
			out = append(out, s)
		}
	}
	return out
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// CloseAll cancels every subscription.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()
	for _, s := range subs {
		s.Cancel()
	}
}
