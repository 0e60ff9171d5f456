// Package events defines the records a successful instruction declares.
// The host persists the instruction's events together with the new account
// images; a failed instruction emits nothing.
package events

import (
	"github.com/chainchat/chainchat/internal/address"
	"github.com/chainchat/chainchat/internal/state"
)

// Event is one emitted record.
type Event interface {
	Name() string
}

// Buffer collects the events of the instruction currently executing. The
// host drains it on success and discards it on abort.
type Buffer struct {
	events []Event
}

// NewBuffer returns an empty event buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Emit appends an event.
func (b *Buffer) Emit(e Event) {
	b.events = append(b.events, e)
}

// Drain returns the collected events and resets the buffer.
func (b *Buffer) Drain() []Event {
	out := b.events
	b.events = nil
	return out
}

type ConfigInitialized struct {
	Owner        address.Address `json:"owner"`
	PlatformFee  uint64          `json:"platform_fee"`
	FeeRecipient address.Address `json:"fee_recipient"`
}

func (ConfigInitialized) Name() string { return "config_initialized" }

type ChannelCreated struct {
	ChannelID     uint64          `json:"channel_id"`
	ChannelName   string          `json:"name"`
	Cost          uint64          `json:"cost"`
	Creator       address.Address `json:"creator"`
	IsPrivate     bool            `json:"is_private"`
	CreatedAt     int64           `json:"created_at"`
	CertificateID string          `json:"certificate_id"`
}

func (ChannelCreated) Name() string { return "channel_created" }

type ChannelUpdated struct {
	ChannelID     uint64          `json:"channel_id"`
	Creator       address.Address `json:"creator"`
	UpdatedFields []string        `json:"updated_fields"`
	UpdatedAt     int64           `json:"updated_at"`
}

func (ChannelUpdated) Name() string { return "channel_updated" }

type ChannelDeleted struct {
	ChannelID uint64          `json:"channel_id"`
	Creator   address.Address `json:"creator"`
	Refund    uint64          `json:"refund"`
	DeletedAt int64           `json:"deleted_at"`
}

func (ChannelDeleted) Name() string { return "channel_deleted" }

type ChannelJoined struct {
	ChannelID     uint64          `json:"channel_id"`
	Member        address.Address `json:"member"`
	Cost          uint64          `json:"cost"`
	PlatformCut   uint64          `json:"platform_cut"`
	CreatorCut    uint64          `json:"creator_cut"`
	CertificateID string          `json:"certificate_id"`
	JoinedAt      int64           `json:"joined_at"`
}

func (ChannelJoined) Name() string { return "channel_joined" }

type ChannelLeft struct {
	ChannelID uint64          `json:"channel_id"`
	Member    address.Address `json:"member"`
	LeftAt    int64           `json:"left_at"`
}

func (ChannelLeft) Name() string { return "channel_left" }

type PlatformFeeUpdated struct {
	Owner  address.Address `json:"owner"`
	OldFee uint64          `json:"old_fee"`
	NewFee uint64          `json:"new_fee"`
}

func (PlatformFeeUpdated) Name() string { return "platform_fee_updated" }

type FeeRecipientUpdated struct {
	Owner        address.Address `json:"owner"`
	OldRecipient address.Address `json:"old_recipient"`
	NewRecipient address.Address `json:"new_recipient"`
}

func (FeeRecipientUpdated) Name() string { return "fee_recipient_updated" }

type Withdraw struct {
	Owner  address.Address `json:"owner"`
	Amount uint64          `json:"amount"`
}

func (Withdraw) Name() string { return "withdraw" }

type PollCreated struct {
	ChannelID uint64          `json:"channel_id"`
	PollIndex uint64          `json:"poll_index"`
	Creator   address.Address `json:"creator"`
	PollType  state.PollKind  `json:"poll_type"`
	Question  string          `json:"question"`
	EndTime   int64           `json:"end_time"`
}

func (PollCreated) Name() string { return "poll_created" }

type PollVoted struct {
	ChannelID   uint64          `json:"channel_id"`
	PollIndex   uint64          `json:"poll_index"`
	Voter       address.Address `json:"voter"`
	OptionIndex uint64          `json:"option_index"`
	TotalVotes  uint64          `json:"total_votes"`
}

func (PollVoted) Name() string { return "poll_voted" }

type PollEnded struct {
	ChannelID  uint64            `json:"channel_id"`
	PollIndex  uint64            `json:"poll_index"`
	EndedBy    address.Address   `json:"ended_by"`
	TotalVotes uint64            `json:"total_votes"`
	Outcome    state.PollOutcome `json:"outcome"`
	Target     address.Address   `json:"target,omitempty"`
}

func (PollEnded) Name() string { return "poll_ended" }

type PollDelegated struct {
	ChannelID uint64 `json:"channel_id"`
	PollIndex uint64 `json:"poll_index"`
}

func (PollDelegated) Name() string { return "poll_delegated" }

type PollCommitted struct {
	ChannelID  uint64 `json:"channel_id"`
	PollIndex  uint64 `json:"poll_index"`
	TotalVotes uint64 `json:"total_votes"`
}

func (PollCommitted) Name() string { return "poll_committed" }

type ProfileCreated struct {
	Owner       address.Address `json:"owner"`
	DisplayName string          `json:"display_name"`
	CreatedAt   int64           `json:"created_at"`
}

func (ProfileCreated) Name() string { return "profile_created" }

type ProfileUpdated struct {
	Owner         address.Address `json:"owner"`
	UpdatedFields []string        `json:"updated_fields"`
}

func (ProfileUpdated) Name() string { return "profile_updated" }
