package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
)

var conversationBucket = []byte("conversations")

// BoltSnapshotter stores conversation snapshots in a bolt database, one key
// per user.
type BoltSnapshotter struct {
	db *bolt.DB
}

type snapshot struct {
	CreatedAt time.Time       `json:"created_at"`
	UserID    string          `json:"user_id"`
	State     string          `json:"state"`
	Payload   json.RawMessage `json:"payload"`
}

// OpenBoltSnapshotter opens (or creates) the snapshot file at path.
func OpenBoltSnapshotter(path string) (*BoltSnapshotter, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(conversationBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create state bucket: %w", err)
	}
	return &BoltSnapshotter{db: db}, nil
}

// Save writes conv. Expiry is not stored; it is recomputed from CreatedAt.
func (b *BoltSnapshotter) Save(_ context.Context, conv Conversation) error {
	if conv.Payload == nil {
		return fmt.Errorf("conversation of %s has no payload", conv.UserID)
	}
	payload, err := json.Marshal(conv.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	val, err := json.Marshal(snapshot{
		CreatedAt: conv.CreatedAt,
		UserID:    conv.UserID,
		State:     conv.Payload.State().String(),
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(conversationBucket).Put([]byte(conv.UserID), val)
	})
}

// Load reads the snapshot of userID.
func (b *BoltSnapshotter) Load(_ context.Context, userID string) (Conversation, bool, error) {
	var val []byte
	if err := b.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(conversationBucket).Get([]byte(userID)); v != nil {
			val = append([]byte(nil), v...)
		}
		return nil
	}); err != nil {
		return Conversation{}, false, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if val == nil {
		return Conversation{}, false, nil
	}

	var snap snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return Conversation{}, false, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	state, ok := ParseState(snap.State)
	if !ok {
		return Conversation{}, false, fmt.Errorf("unknown state %q in snapshot", snap.State)
	}
	payload, err := decodePayload(state, snap.Payload)
	if err != nil {
		return Conversation{}, false, fmt.Errorf("failed to decode payload: %w", err)
	}
	return Conversation{
		UserID:    snap.UserID,
		Payload:   payload,
		CreatedAt: snap.CreatedAt,
	}, true, nil
}

// Delete removes the snapshot of userID.
func (b *BoltSnapshotter) Delete(_ context.Context, userID string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(conversationBucket).Delete([]byte(userID))
	})
}

// Close closes the database.
func (b *BoltSnapshotter) Close() error {
	return b.db.Close()
}
