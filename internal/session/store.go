package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/expensesbot/internal/common"
)

// DefaultTTL is how long a conversation lives after its last write.
const DefaultTTL = 5 * time.Minute

// Snapshotter keeps a durable copy of conversations for crash recovery.
type Snapshotter interface {
	Save(ctx context.Context, conv Conversation) error
	Load(ctx context.Context, userID string) (Conversation, bool, error)
	Delete(ctx context.Context, userID string) error
}

// Store holds live conversations in memory. An expired conversation is
// treated as absent and evicted on the next read or sweep.
type Store struct {
	snapshots Snapshotter
	logger    *slog.Logger
	now       func() time.Time
	convs     map[string]Conversation
	ttl       time.Duration
	mu        sync.Mutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithSnapshotter enables durable snapshots.
func WithSnapshotter(s Snapshotter) StoreOption {
	return func(st *Store) { st.snapshots = s }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) StoreOption {
	return func(st *Store) { st.now = now }
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) StoreOption {
	return func(st *Store) {
		if ttl > 0 {
			st.ttl = ttl
		}
	}
}

// WithStoreLogger sets the logger.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(st *Store) { st.logger = logger }
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		now:   time.Now,
		convs: make(map[string]Conversation),
		ttl:   DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = common.OrDefault(s.logger)
	return s
}

// Get returns the live conversation of userID.
func (s *Store) Get(ctx context.Context, userID string) (Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if conv, ok := s.convs[userID]; ok {
		if now.After(conv.ExpiresAt) {
			delete(s.convs, userID)
			s.deleteSnapshot(ctx, userID)
			return Conversation{}, false
		}
		return conv, true
	}

	if s.snapshots == nil {
		return Conversation{}, false
	}
	conv, ok, err := s.snapshots.Load(ctx, userID)
	if err != nil {
		s.logger.Debug("conversation snapshot load failed", "user_id", userID, "error", err)
		return Conversation{}, false
	}
	if !ok {
		return Conversation{}, false
	}
	conv.ExpiresAt = conv.CreatedAt.Add(s.ttl)
	if now.After(conv.ExpiresAt) {
		s.deleteSnapshot(ctx, userID)
		return Conversation{}, false
	}
	s.convs[userID] = conv
	return conv, true
}

// Set opens or advances the conversation of userID.
func (s *Store) Set(ctx context.Context, userID string, payload Payload) Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	conv := Conversation{
		UserID:    userID,
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.convs[userID] = conv

	if s.snapshots != nil {
		if err := s.snapshots.Save(ctx, conv); err != nil {
			s.logger.Debug("conversation snapshot save failed", "user_id", userID, "error", err)
		}
	}
	return conv
}

// Clear ends the conversation of userID.
func (s *Store) Clear(ctx context.Context, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.convs, userID)
	s.deleteSnapshot(ctx, userID)
}

// Sweep evicts expired conversations and returns how many were removed.
func (s *Store) Sweep(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for userID, conv := range s.convs {
		if now.After(conv.ExpiresAt) {
			delete(s.convs, userID)
			s.deleteSnapshot(ctx, userID)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps every interval until ctx is canceled.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(ctx); n > 0 {
				s.logger.Debug("swept expired conversations", "count", n)
			}
		}
	}
}

// Len returns the number of conversations held in memory.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs)
}

// deleteSnapshot must be called with mu held.
func (s *Store) deleteSnapshot(ctx context.Context, userID string) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Delete(ctx, userID); err != nil {
		s.logger.Debug("conversation snapshot delete failed", "user_id", userID, "error", err)
	}
}
