package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltSnapshotter_AllPayloads(t *testing.T) {
	snaps, err := OpenBoltSnapshotter(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer func() { _ = snaps.Close() }()

	ctx := context.Background()
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	payloads := []Payload{
		BudgetCategory{Delete: true},
		BudgetAmount{Category: "Bills"},
		RecurringName{},
		RecurringAmount{Name: "Netflix"},
		RecurringFrequency{Name: "Netflix", Amount: 1299},
		TimezoneInput{Mode: TimezoneModeCity},
		AIQuery{},
		ReceiptUpload{},
	}

	for _, p := range payloads {
		t.Run(p.State().String(), func(t *testing.T) {
			require.NoError(t, snaps.Save(ctx, Conversation{UserID: "u1", Payload: p, CreatedAt: created}))

			conv, ok, err := snaps.Load(ctx, "u1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, p, conv.Payload)
			assert.True(t, created.Equal(conv.CreatedAt))
		})
	}

	require.NoError(t, snaps.Delete(ctx, "u1"))
	_, ok, err := snaps.Load(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBoltSnapshotter_RejectsEmptyPayload(t *testing.T) {
	snaps, err := OpenBoltSnapshotter(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer func() { _ = snaps.Close() }()

	assert.Error(t, snaps.Save(context.Background(), Conversation{UserID: "u1"}))
}

func TestParseState(t *testing.T) {
	for s := Idle; s <= WaitingReceiptUpload; s++ {
		got, ok := ParseState(s.String())
		assert.True(t, ok)
		assert.Equal(t, s, got)
	}
	_, ok := ParseState("nope")
	assert.False(t, ok)
}
