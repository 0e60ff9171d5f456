package program

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/chainchat/chainchat/internal/address"
	cerrors "github.com/chainchat/chainchat/internal/errors"
	"github.com/chainchat/chainchat/internal/events"
	"github.com/chainchat/chainchat/internal/state"
)

// PollParams carries the create_poll instruction arguments. Target is
// required for moderation polls and ignored for general questions.
type PollParams struct {
	Kind     state.PollKind
	Question string
	Options  []string
	Duration int64
	Target   *address.Address
}

// CreatePoll opens a poll in a channel. Moderation polls get fixed Yes/No
// options, a question synthesized from the target's display name, and a
// simple-majority threshold over the channel's current member count.
// General questions carry caller options and no threshold.
func (p *Program) CreatePoll(ctx Context, channelID uint64, params PollParams) (uint64, error) {
	ch, err := p.loadChannel(channelID)
	if err != nil {
		return 0, err
	}
	if err := p.requireJoined(channelID, ctx.Caller); err != nil {
		return 0, err
	}
	if params.Duration <= 0 {
		return 0, cerrors.ErrInvalidDuration
	}

	poll := &state.Poll{
		ChannelID:  channelID,
		Creator:    ctx.Caller,
		Type:       params.Kind,
		TotalVotes: 0,
		StartTime:  ctx.Now,
		EndTime:    ctx.Now + params.Duration,
		Ended:      false,
	}

	switch params.Kind {
	case state.PollKickUser, state.PollMuteUser:
		if params.Target == nil {
			return 0, cerrors.ErrMissingTarget
		}
		displayName, ok := p.profileDisplayName(*params.Target)
		if !ok {
			return 0, cerrors.ErrMissingTarget
		}
		if params.Kind == state.PollKickUser {
			poll.Question = fmt.Sprintf("Kick %s from the channel?", displayName)
		} else {
			poll.Question = fmt.Sprintf("Mute %s in the channel?", displayName)
		}
		poll.Options = []string{"Yes", "No"}
		poll.Tally = []uint64{0, 0}
		poll.RequiredVotes = ch.MemberCount/2 + 1
		poll.HasTarget = true
		poll.Target = *params.Target

	case state.PollGeneralQuestion:
		if len(params.Options) < state.MinPollOptions {
			return 0, cerrors.ErrInsufficientOptions
		}
		if len(params.Options) > state.MaxPollOptions {
			return 0, cerrors.ErrTooManyOptions
		}
		for _, opt := range params.Options {
			if len(opt) > state.MaxPollOptionLength {
				return 0, cerrors.ErrOptionTooLong
			}
		}
		if len(params.Question) == 0 {
			return 0, cerrors.ErrEmptyQuestion
		}
		if len(params.Question) > state.MaxPollQuestionLength {
			return 0, cerrors.ErrQuestionTooLong
		}
		poll.Question = params.Question
		poll.Options = append([]string(nil), params.Options...)
		poll.Tally = make([]uint64, len(params.Options))
		poll.RequiredVotes = 0

	default:
		return 0, cerrors.ErrInvalidPollType
	}

	pollIndex := ch.PollCount
	if err := p.ledger.CreateRecord(address.ForPoll(channelID, pollIndex), poll); err != nil {
		return 0, err
	}
	ch.PollCount, err = safeAdd(ch.PollCount, 1)
	if err != nil {
		return 0, err
	}
	ch.UpdatedAt = ctx.Now

	p.logger.Info("poll created",
		zap.Uint64("channel_id", channelID),
		zap.Uint64("poll_index", pollIndex),
		zap.String("poll_type", params.Kind.String()),
	)
	ctx.emit(events.PollCreated{
		ChannelID: channelID,
		PollIndex: pollIndex,
		Creator:   ctx.Caller,
		PollType:  params.Kind,
		Question:  poll.Question,
		EndTime:   poll.EndTime,
	})
	return pollIndex, nil
}

// VotePoll records one single-choice vote. One member, one vote, enforced
// by the voted set.
func (p *Program) VotePoll(ctx Context, channelID, pollIndex, optionIndex uint64) error {
	if err := p.requireJoined(channelID, ctx.Caller); err != nil {
		return err
	}
	poll, err := p.loadPoll(channelID, pollIndex)
	if err != nil {
		return err
	}
	if poll.ChannelID != channelID {
		return cerrors.ErrInvalidChannel
	}
	if poll.HasVoted(ctx.Caller) {
		return cerrors.ErrAlreadyVoted
	}
	if poll.Delegated {
		return cerrors.ErrPollDelegated
	}
	if !poll.CanVote(ctx.Now) {
		return cerrors.ErrPollNotActive
	}
	if optionIndex >= uint64(len(poll.Options)) {
		return cerrors.ErrInvalidOption
	}
	if len(poll.Voted) >= state.MaxPollVoters {
		return cerrors.ErrPollFull
	}

	poll.Tally[optionIndex], err = safeAdd(poll.Tally[optionIndex], 1)
	if err != nil {
		return err
	}
	poll.TotalVotes, err = safeAdd(poll.TotalVotes, 1)
	if err != nil {
		return err
	}
	poll.Voted = append(poll.Voted, ctx.Caller)

	ctx.emit(events.PollVoted{
		ChannelID:   channelID,
		PollIndex:   pollIndex,
		Voter:       ctx.Caller,
		OptionIndex: optionIndex,
		TotalVotes:  poll.TotalVotes,
	})
	return nil
}

// EndPoll terminates a poll. The poll creator and the channel creator may
// end it at any time; anyone may end it once the voting window has closed.
// Moderation polls resolve to an enforcement outcome; a passed outcome is
// validated against the target's membership record but the revocation
// itself is deferred to an explicit follow-up. General polls just freeze
// their tally.
func (p *Program) EndPoll(ctx Context, channelID, pollIndex uint64, targetMembership *address.Address) (state.PollOutcome, error) {
	ch, err := p.loadChannel(channelID)
	if err != nil {
		return state.OutcomeNone, err
	}
	poll, err := p.loadPoll(channelID, pollIndex)
	if err != nil {
		return state.OutcomeNone, err
	}
	if poll.Creator != ctx.Caller && ch.Creator != ctx.Caller && ctx.Now <= poll.EndTime {
		return state.OutcomeNone, cerrors.ErrUnauthorized
	}
	if poll.Ended {
		return state.OutcomeNone, cerrors.ErrPollAlreadyEnded
	}
	if poll.Delegated {
		return state.OutcomeNone, cerrors.ErrPollDelegated
	}

	outcome := state.OutcomeNone

	if poll.Type.Moderation() {
		yes, no := poll.Tally[0], poll.Tally[1]
		switch {
		case yes > no && poll.TotalVotes >= poll.RequiredVotes:
			outcome = state.OutcomePassed
		case yes > no:
			// Majority of cast votes, but turnout below the threshold.
			outcome = state.OutcomeNoAction
		default:
			// Ties never pass.
			outcome = state.OutcomeFailed
		}

		if outcome == state.OutcomePassed {
			if targetMembership == nil {
				return state.OutcomeNone, cerrors.ErrInvalidTarget
			}
			expected := address.ForMembership(channelID, poll.Target)
			rec, ok := p.ledger.Record(*targetMembership)
			if !ok || *targetMembership != expected {
				return state.OutcomeNone, cerrors.ErrInvalidTarget
			}
			mem, isMembership := rec.(*state.Membership)
			if !isMembership || mem.Member != poll.Target {
				return state.OutcomeNone, cerrors.ErrInvalidTarget
			}
			// Enforcement is reported, not applied: the revocation side
			// effect stays a follow-up instruction.
			p.logger.Info("moderation poll passed",
				zap.Uint64("channel_id", channelID),
				zap.Uint64("poll_index", pollIndex),
				zap.String("poll_type", poll.Type.String()),
				zap.String("target", poll.Target.Short()),
			)
		}
	}
	// Validation is complete; only now does the record change, so a failed
	// call leaves the poll open even without the host rollback.
	poll.Ended = true
	poll.Outcome = outcome

	evt := events.PollEnded{
		ChannelID:  channelID,
		PollIndex:  pollIndex,
		EndedBy:    ctx.Caller,
		TotalVotes: poll.TotalVotes,
		Outcome:    outcome,
	}
	if poll.HasTarget {
		evt.Target = poll.Target
	}
	ctx.emit(evt)
	return outcome, nil
}

// DelegatePoll hands the poll's vote accumulation to the fast-path venue.
// While delegated, local votes and termination are rejected until the venue
// commits back.
func (p *Program) DelegatePoll(ctx Context, channelID, pollIndex uint64) error {
	ch, err := p.loadChannel(channelID)
	if err != nil {
		return err
	}
	poll, err := p.loadPoll(channelID, pollIndex)
	if err != nil {
		return err
	}
	if poll.Creator != ctx.Caller && ch.Creator != ctx.Caller {
		return cerrors.ErrUnauthorized
	}
	if poll.Ended {
		return cerrors.ErrPollAlreadyEnded
	}
	if poll.Delegated {
		return cerrors.ErrPollDelegated
	}

	poll.Delegated = true
	ctx.emit(events.PollDelegated{ChannelID: channelID, PollIndex: pollIndex})
	return nil
}

// CommitPoll reconciles an externally accumulated tally and clears the
// delegation. The committed state must satisfy every poll invariant and be
// monotonic against the pre-delegation state; otherwise the commit aborts.
func (p *Program) CommitPoll(ctx Context, channelID, pollIndex uint64, tally []uint64, voted []address.Address) error {
	ch, err := p.loadChannel(channelID)
	if err != nil {
		return err
	}
	poll, err := p.loadPoll(channelID, pollIndex)
	if err != nil {
		return err
	}
	if poll.Creator != ctx.Caller && ch.Creator != ctx.Caller {
		return cerrors.ErrUnauthorized
	}
	if !poll.Delegated {
		return cerrors.ErrPollNotDelegated
	}

	if err := p.validateCommittedTally(poll, tally, voted); err != nil {
		return err
	}

	var total uint64
	for _, n := range tally {
		total, err = safeAdd(total, n)
		if err != nil {
			return err
		}
	}
	poll.Tally = append([]uint64(nil), tally...)
	poll.Voted = append([]address.Address(nil), voted...)
	poll.TotalVotes = total
	poll.Delegated = false

	ctx.emit(events.PollCommitted{
		ChannelID:  channelID,
		PollIndex:  pollIndex,
		TotalVotes: total,
	})
	return nil
}

func (p *Program) validateCommittedTally(poll *state.Poll, tally []uint64, voted []address.Address) error {
	if len(tally) != len(poll.Options) {
		return cerrors.ErrInvalidTally
	}
	if len(voted) > state.MaxPollVoters {
		return cerrors.ErrInvalidTally
	}

	var total uint64
	for i, n := range tally {
		if n < poll.Tally[i] {
			return cerrors.ErrInvalidTally // tallies only grow
		}
		sum, err := safeAdd(total, n)
		if err != nil {
			return err
		}
		total = sum
	}
	if total != uint64(len(voted)) {
		return cerrors.ErrInvalidTally
	}

	seen := make(map[address.Address]struct{}, len(voted))
	for _, v := range voted {
		if _, dup := seen[v]; dup {
			return cerrors.ErrInvalidTally
		}
		seen[v] = struct{}{}
	}
	// Every vote already recorded locally must survive the commit.
	for _, v := range poll.Voted {
		if _, ok := seen[v]; !ok {
			return cerrors.ErrInvalidTally
		}
	}
	return nil
}
