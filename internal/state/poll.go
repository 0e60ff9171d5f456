package state

import "github.com/chainchat/chainchat/internal/address"

// PollKind selects the poll state machine variant. Moderation polls carry a
// target and a majority threshold; general questions are free-form.
type PollKind uint8

const (
	PollKickUser PollKind = iota
	PollMuteUser
	PollGeneralQuestion
)

func (k PollKind) String() string {
	switch k {
	case PollKickUser:
		return "kick_user"
	case PollMuteUser:
		return "mute_user"
	case PollGeneralQuestion:
		return "general_question"
	default:
		return "unknown"
	}
}

// Valid reports whether k names a known poll kind.
func (k PollKind) Valid() bool {
	return k <= PollGeneralQuestion
}

// Moderation reports whether the poll can trigger an enforcement decision.
func (k PollKind) Moderation() bool {
	return k == PollKickUser || k == PollMuteUser
}

// PollOutcome is the terminal result of an ended poll.
type PollOutcome uint8

const (
	OutcomeNone PollOutcome = iota // active, or general poll (tally only)
	OutcomePassed
	OutcomeFailed
	OutcomeNoAction // below threshold despite a yes majority
)

func (o PollOutcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomePassed:
		return "passed"
	case OutcomeFailed:
		return "failed"
	case OutcomeNoAction:
		return "no_action"
	default:
		return "unknown"
	}
}

// Poll is a per-channel vote. Invariants:
// len(Tally) == len(Options), sum(Tally) == TotalVotes == len(Voted),
// no duplicates in Voted. Immutable once Ended.
type Poll struct {
	ChannelID     uint64
	Creator       address.Address
	Type          PollKind
	Question      string
	Options       []string
	Tally         []uint64
	TotalVotes    uint64
	StartTime     int64
	EndTime       int64
	RequiredVotes uint64
	HasTarget     bool
	Target        address.Address
	Voted         []address.Address
	Ended         bool
	Delegated     bool
	Outcome       PollOutcome
}

func (p *Poll) Kind() RecordKind { return KindPoll }

func (p *Poll) Clone() Record {
	clone := *p
	clone.Options = append([]string(nil), p.Options...)
	clone.Tally = append([]uint64(nil), p.Tally...)
	clone.Voted = append([]address.Address(nil), p.Voted...)
	return &clone
}

// HasVoted reports whether the member already appears in the voted set.
func (p *Poll) HasVoted(member address.Address) bool {
	for _, v := range p.Voted {
		if v == member {
			return true
		}
	}
	return false
}

// CanVote reports whether the poll accepts votes at the given time.
func (p *Poll) CanVote(now int64) bool {
	return !p.Ended && !p.Delegated && now >= p.StartTime && now <= p.EndTime
}

func (p *Poll) Encode() []byte {
	w := &writer{}
	w.u64(p.ChannelID)
	w.addr(p.Creator)
	w.u8(uint8(p.Type))
	w.str(p.Question)
	w.u32(uint32(len(p.Options)))
	for _, opt := range p.Options {
		w.str(opt)
	}
	w.u32(uint32(len(p.Tally)))
	for _, n := range p.Tally {
		w.u64(n)
	}
	w.u64(p.TotalVotes)
	w.i64(p.StartTime)
	w.i64(p.EndTime)
	w.u64(p.RequiredVotes)
	w.bool(p.HasTarget)
	if p.HasTarget {
		w.addr(p.Target)
	}
	w.u32(uint32(len(p.Voted)))
	for _, v := range p.Voted {
		w.addr(v)
	}
	w.bool(p.Ended)
	w.bool(p.Delegated)
	w.u8(uint8(p.Outcome))
	return w.buf
}

func DecodePoll(data []byte) (*Poll, error) {
	r := &reader{buf: data}
	p := &Poll{
		ChannelID: r.u64(),
		Creator:   r.addr(),
		Type:      PollKind(r.u8()),
		Question:  r.str(MaxPollQuestionLength),
	}
	nOpts := int(r.u32())
	if r.err == nil && nOpts > MaxPollOptions {
		return nil, errTruncated
	}
	for i := 0; i < nOpts && r.err == nil; i++ {
		p.Options = append(p.Options, r.str(MaxPollOptionLength))
	}
	nTally := int(r.u32())
	if r.err == nil && nTally > MaxPollOptions {
		return nil, errTruncated
	}
	for i := 0; i < nTally && r.err == nil; i++ {
		p.Tally = append(p.Tally, r.u64())
	}
	p.TotalVotes = r.u64()
	p.StartTime = r.i64()
	p.EndTime = r.i64()
	p.RequiredVotes = r.u64()
	p.HasTarget = r.bool()
	if p.HasTarget {
		p.Target = r.addr()
	}
	nVoted := int(r.u32())
	if r.err == nil && nVoted > MaxPollVoters {
		return nil, errTruncated
	}
	for i := 0; i < nVoted && r.err == nil; i++ {
		p.Voted = append(p.Voted, r.addr())
	}
	p.Ended = r.bool()
	p.Delegated = r.bool()
	p.Outcome = PollOutcome(r.u8())
	if err := r.done(); err != nil {
		return nil, err
	}
	return p, nil
}
