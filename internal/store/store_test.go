package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chainchat/chainchat/internal/address"
	"github.com/chainchat/chainchat/internal/certificate"
	"github.com/chainchat/chainchat/internal/host"
	"github.com/chainchat/chainchat/internal/ledger"
	"github.com/chainchat/chainchat/internal/program"
	"github.com/chainchat/chainchat/internal/state"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(zaptest.NewLogger(t), filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestHost(t *testing.T) *host.Host {
	t.Helper()
	logger := zaptest.NewLogger(t)
	l := ledger.New(logger)
	prog := program.New(logger, l, certificate.NewLocalIssuer(logger))
	return host.New(logger, l, prog, host.WithClock(func() int64 { return 1_700_000_000 }))
}

func testAddr(b byte) address.Address {
	var a address.Address
	for i := range a {
		a[i] = b
	}
	return a
}

func TestCheckpointPersistence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cp, err := s.LoadCheckpoint(ctx)
	require.NoError(t, err)
	assert.Nil(t, cp, "fresh store has no checkpoint")

	h := newTestHost(t)
	owner := testAddr(0x01)
	_, err = h.Apply(owner, host.Initialize{})
	require.NoError(t, err)
	_, err = h.Apply(owner, host.CreateChannel{Name: "general", Cost: state.MinChannelCost})
	require.NoError(t, err)
	require.NoError(t, h.Ledger().Credit(testAddr(0x02), 123_456))

	require.NoError(t, s.SaveCheckpoint(ctx, h.Checkpoint()))

	loaded, err := s.LoadCheckpoint(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, uint64(2), loaded.Sequence)

	restored := newTestHost(t)
	require.NoError(t, restored.RestoreCheckpoint(loaded))
	assert.Equal(t, uint64(2), restored.Sequence())
	assert.Equal(t, uint64(123_456), restored.Ledger().Balance(testAddr(0x02)))
	require.Len(t, restored.Channels(), 1)
	assert.Equal(t, "general", restored.Channels()[0].Name)
}

func TestCheckpointOverwrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	h := newTestHost(t)
	owner := testAddr(0x01)
	_, err := h.Apply(owner, host.Initialize{})
	require.NoError(t, err)
	require.NoError(t, s.SaveCheckpoint(ctx, h.Checkpoint()))

	_, err = h.Apply(owner, host.CreateChannel{Name: "general", Cost: state.MinChannelCost})
	require.NoError(t, err)
	require.NoError(t, s.SaveCheckpoint(ctx, h.Checkpoint()))

	loaded, err := s.LoadCheckpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), loaded.Sequence, "save replaces the previous checkpoint")
}

func TestEventJournal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	h := newTestHost(t)
	owner := testAddr(0x01)
	applied, err := h.Apply(owner, host.Initialize{})
	require.NoError(t, err)
	require.NoError(t, s.AppendEvents(ctx, applied))

	applied, err = h.Apply(owner, host.CreateChannel{Name: "general", Cost: state.MinChannelCost})
	require.NoError(t, err)
	require.NoError(t, s.AppendEvents(ctx, applied))

	entries, err := s.RecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "channel_created", entries[0].Name, "newest first")
	assert.Equal(t, uint64(2), entries[0].Sequence)
	assert.Equal(t, "config_initialized", entries[1].Name)
	assert.Contains(t, string(entries[0].Payload), "general")

	entries, err = s.RecentEvents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
