// Package host sequences instructions into a single global order and
// applies each one atomically against the ledger. A failed instruction
// leaves no trace: the host snapshots the ledger before dispatch and
// restores it on error.
package host

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chainchat/chainchat/internal/address"
	cerrors "github.com/chainchat/chainchat/internal/errors"
	"github.com/chainchat/chainchat/internal/events"
	"github.com/chainchat/chainchat/internal/ledger"
	"github.com/chainchat/chainchat/internal/metrics"
	"github.com/chainchat/chainchat/internal/program"
	"github.com/chainchat/chainchat/internal/state"
)

var errUnknownInstruction = errors.New("unknown instruction")

// Applied describes one successfully applied instruction.
type Applied struct {
	Sequence uint64
	Kind     string
	Caller   address.Address
	Now      int64
	Events   []events.Event

	// Result carries the instruction's return value when it has one: the
	// new channel id, the new poll index, or the poll outcome.
	Result any
}

// Host owns the ledger and the program and is the only writer to both.
type Host struct {
	logger  *zap.Logger
	ledger  *ledger.Ledger
	program *program.Program
	metrics *metrics.Metrics
	clock   func() int64

	mu       sync.Mutex
	sequence uint64

	subMu   sync.Mutex
	subs    map[int]chan *Applied
	nextSub int
}

// Option configures a Host.
type Option func(*Host)

// WithClock overrides the sequenced-time source. Replays use this to
// reproduce historical timestamps.
func WithClock(clock func() int64) Option {
	return func(h *Host) { h.clock = clock }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Host) { h.metrics = m }
}

// New builds a host around a ledger and program.
func New(logger *zap.Logger, l *ledger.Ledger, p *program.Program, opts ...Option) *Host {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Host{
		logger:  logger,
		ledger:  l,
		program: p,
		clock:   func() int64 { return time.Now().Unix() },
		subs:    make(map[int]chan *Applied),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Sequence returns the number of instructions applied so far.
func (h *Host) Sequence() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sequence
}

// Ledger exposes the ledger for read-only callers.
func (h *Host) Ledger() *ledger.Ledger {
	return h.ledger
}

// Apply sequences the instruction at the current clock time.
func (h *Host) Apply(caller address.Address, instr Instruction) (*Applied, error) {
	return h.ApplyAt(caller, h.clock(), instr)
}

// ApplyAt sequences the instruction at an explicit time. All-or-nothing:
// on error every balance and record mutation is rolled back and no events
// are published.
func (h *Host) ApplyAt(caller address.Address, now int64, instr Instruction) (*Applied, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	snap := h.ledger.Snapshot()
	ctx := program.Context{Caller: caller, Now: now, Events: events.NewBuffer()}

	result, err := h.dispatch(ctx, instr)
	if err != nil {
		h.ledger.Restore(snap)
		h.observeAbort(instr.Kind(), err)
		h.logger.Debug("instruction aborted",
			zap.String("kind", instr.Kind()),
			zap.String("caller", caller.Short()),
			zap.Error(err),
		)
		return nil, err
	}

	h.sequence++
	applied := &Applied{
		Sequence: h.sequence,
		Kind:     instr.Kind(),
		Caller:   caller,
		Now:      now,
		Events:   ctx.Events.Drain(),
		Result:   result,
	}
	h.observeApply(applied, time.Since(start))
	h.publish(applied)
	return applied, nil
}

func (h *Host) dispatch(ctx program.Context, instr Instruction) (any, error) {
	switch in := instr.(type) {
	case Initialize:
		return nil, h.program.Initialize(ctx)
	case SetPlatformFee:
		return nil, h.program.SetPlatformFee(ctx, in.Fee)
	case SetFeeRecipient:
		return nil, h.program.SetFeeRecipient(ctx, in.Recipient)
	case Withdraw:
		return nil, h.program.Withdraw(ctx, in.Amount)
	case CreateChannel:
		return h.program.CreateChannel(ctx, in.Name, in.Description, in.ImageURI, in.Cost, in.IsPrivate)
	case UpdateChannel:
		return nil, h.program.UpdateChannel(ctx, in.ChannelID, in.Update)
	case DeleteChannel:
		return nil, h.program.DeleteChannel(ctx, in.ChannelID)
	case JoinChannel:
		return nil, h.program.JoinChannel(ctx, in.ChannelID)
	case LeaveChannel:
		return nil, h.program.LeaveChannel(ctx, in.ChannelID)
	case CreatePoll:
		return h.program.CreatePoll(ctx, in.ChannelID, in.Params)
	case VotePoll:
		return nil, h.program.VotePoll(ctx, in.ChannelID, in.PollIndex, in.OptionIndex)
	case EndPoll:
		return h.program.EndPoll(ctx, in.ChannelID, in.PollIndex, in.TargetMembership)
	case DelegatePoll:
		return nil, h.program.DelegatePoll(ctx, in.ChannelID, in.PollIndex)
	case CommitPoll:
		return nil, h.program.CommitPoll(ctx, in.ChannelID, in.PollIndex, in.Tally, in.Voted)
	case CreateProfile:
		return nil, h.program.CreateProfile(ctx, in.DisplayName, in.Bio, in.AvatarURI)
	case UpdateProfile:
		return nil, h.program.UpdateProfile(ctx, in.Update)
	default:
		return nil, errUnknownInstruction
	}
}

func (h *Host) observeApply(applied *Applied, took time.Duration) {
	if h.metrics == nil {
		return
	}
	h.metrics.InstructionsApplied.WithLabelValues(applied.Kind).Inc()
	h.metrics.EventsEmitted.Add(float64(len(applied.Events)))
	h.metrics.ApplyDuration.Observe(took.Seconds())
	h.metrics.LedgerAccounts.Set(float64(h.ledger.Accounts()))
	h.metrics.LedgerRecords.Set(float64(h.ledger.Records()))
	for _, e := range applied.Events {
		switch evt := e.(type) {
		case events.ChannelJoined:
			h.metrics.TransferVolume.Add(float64(evt.Cost))
		case events.Withdraw:
			h.metrics.TransferVolume.Add(float64(evt.Amount))
		}
	}
}

func (h *Host) observeAbort(kind string, err error) {
	if h.metrics == nil {
		return
	}
	h.metrics.InstructionsAborted.WithLabelValues(kind, string(cerrors.CategoryOf(err))).Inc()
}

// Subscribe registers a feed of applied instructions. Slow consumers drop
// notifications instead of blocking the apply path. The returned cancel
// func closes the channel.
func (h *Host) Subscribe(buffer int) (<-chan *Applied, func()) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	id := h.nextSub
	h.nextSub++
	ch := make(chan *Applied, buffer)
	h.subs[id] = ch
	cancel := func() {
		h.subMu.Lock()
		defer h.subMu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (h *Host) publish(applied *Applied) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- applied:
		default:
		}
	}
}

// Checkpoint captures the ledger's full state with the current sequence.
type Checkpoint struct {
	Sequence uint64
	Balances []ledger.BalanceEntry
	Records  []ledger.RecordEntry
}

// Checkpoint snapshots the ledger for persistence.
func (h *Host) Checkpoint() *Checkpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	balances, records := h.ledger.Dump()
	return &Checkpoint{Sequence: h.sequence, Balances: balances, Records: records}
}

// RestoreCheckpoint loads a persisted ledger image and resumes sequencing
// after it.
func (h *Host) RestoreCheckpoint(cp *Checkpoint) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.ledger.Load(cp.Balances, cp.Records); err != nil {
		return err
	}
	h.sequence = cp.Sequence
	return nil
}

// Channels lists the channel records currently in the ledger, for the
// read-only API.
func (h *Host) Channels() []*state.Channel {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*state.Channel
	_, records := h.ledger.Dump()
	for _, entry := range records {
		rec, err := state.Decode(entry.Kind, entry.Data)
		if err != nil {
			continue
		}
		if ch, ok := rec.(*state.Channel); ok {
			out = append(out, ch)
		}
	}
	return out
}

// Polls lists the polls of one channel.
func (h *Host) Polls(channelID uint64) []*state.Poll {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*state.Poll
	_, records := h.ledger.Dump()
	for _, entry := range records {
		rec, err := state.Decode(entry.Kind, entry.Data)
		if err != nil {
			continue
		}
		if poll, ok := rec.(*state.Poll); ok && poll.ChannelID == channelID {
			out = append(out, poll)
		}
	}
	return out
}
