// Package program implements the transition logic: channel lifecycle,
// membership economics, and poll governance. Every exported operation is one
// atomic instruction: it validates, mutates records in place, and returns
// an error to signal the host to roll the whole instruction back. The
// program never orders events, never performs networking, and never signs
// anything.
package program

import (
	"go.uber.org/zap"

	"github.com/chainchat/chainchat/internal/address"
	"github.com/chainchat/chainchat/internal/certificate"
	cerrors "github.com/chainchat/chainchat/internal/errors"
	"github.com/chainchat/chainchat/internal/events"
	"github.com/chainchat/chainchat/internal/ledger"
	"github.com/chainchat/chainchat/internal/state"
)

// Program holds the transition logic's collaborators. It keeps no state of
// its own: all persisted state lives in the ledger.
type Program struct {
	logger *zap.Logger
	ledger *ledger.Ledger
	certs  certificate.Issuer
}

// New wires the program to its ledger and certificate issuer.
func New(logger *zap.Logger, l *ledger.Ledger, certs certificate.Issuer) *Program {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Program{logger: logger, ledger: l, certs: certs}
}

// Context carries the per-instruction inputs the host supplies: the signing
// caller, the sequenced current time, and the event buffer the host will
// persist on success.
type Context struct {
	Caller address.Address
	Now    int64
	Events *events.Buffer
}

func (c Context) emit(e events.Event) {
	if c.Events != nil {
		c.Events.Emit(e)
	}
}

// loadConfig returns the singleton config record.
func (p *Program) loadConfig() (*state.Config, error) {
	rec, ok := p.ledger.Record(address.ForState())
	if !ok {
		return nil, cerrors.ErrNotInitialized
	}
	cfg := rec.(*state.Config)
	if !cfg.Initialized {
		return nil, cerrors.ErrNotInitialized
	}
	return cfg, nil
}

// loadChannel resolves a channel by id, treating an address mismatch the
// same as a missing record.
func (p *Program) loadChannel(channelID uint64) (*state.Channel, error) {
	rec, ok := p.ledger.Record(address.ForChannel(channelID))
	if !ok {
		return nil, cerrors.ErrChannelNotFound
	}
	ch := rec.(*state.Channel)
	if ch.ID != channelID {
		return nil, cerrors.ErrChannelNotFound
	}
	return ch, nil
}

// loadMembership returns the (channel, member) record if it exists.
func (p *Program) loadMembership(channelID uint64, member address.Address) (*state.Membership, bool) {
	rec, ok := p.ledger.Record(address.ForMembership(channelID, member))
	if !ok {
		return nil, false
	}
	return rec.(*state.Membership), true
}

// requireJoined fails unless member holds a joined membership in the
// channel.
func (p *Program) requireJoined(channelID uint64, member address.Address) error {
	mem, ok := p.loadMembership(channelID, member)
	if !ok || !mem.Joined || mem.ChannelID != channelID {
		return cerrors.ErrNotMember
	}
	return nil
}

// loadPoll resolves a poll by (channel, index).
func (p *Program) loadPoll(channelID, pollIndex uint64) (*state.Poll, error) {
	rec, ok := p.ledger.Record(address.ForPoll(channelID, pollIndex))
	if !ok {
		return nil, cerrors.ErrPollNotFound
	}
	return rec.(*state.Poll), nil
}
