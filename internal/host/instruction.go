package host

import (
	"github.com/chainchat/chainchat/internal/address"
	"github.com/chainchat/chainchat/internal/program"
)

// Instruction is one sequenced operation. The host assigns it a position in
// the global order and applies it atomically.
type Instruction interface {
	Kind() string
}

type Initialize struct{}

func (Initialize) Kind() string { return "initialize" }

type SetPlatformFee struct {
	Fee uint64
}

func (SetPlatformFee) Kind() string { return "set_platform_fee" }

type SetFeeRecipient struct {
	Recipient address.Address
}

func (SetFeeRecipient) Kind() string { return "set_fee_recipient" }

type Withdraw struct {
	Amount uint64
}

func (Withdraw) Kind() string { return "withdraw" }

type CreateChannel struct {
	Name        string
	Description string
	ImageURI    string
	Cost        uint64
	IsPrivate   bool
}

func (CreateChannel) Kind() string { return "create_channel" }

type UpdateChannel struct {
	ChannelID uint64
	Update    program.ChannelUpdate
}

func (UpdateChannel) Kind() string { return "update_channel" }

type DeleteChannel struct {
	ChannelID uint64
}

func (DeleteChannel) Kind() string { return "delete_channel" }

type JoinChannel struct {
	ChannelID uint64
}

func (JoinChannel) Kind() string { return "join_channel" }

type LeaveChannel struct {
	ChannelID uint64
}

func (LeaveChannel) Kind() string { return "leave_channel" }

type CreatePoll struct {
	ChannelID uint64
	Params    program.PollParams
}

func (CreatePoll) Kind() string { return "create_poll" }

type VotePoll struct {
	ChannelID   uint64
	PollIndex   uint64
	OptionIndex uint64
}

func (VotePoll) Kind() string { return "vote_poll" }

type EndPoll struct {
	ChannelID        uint64
	PollIndex        uint64
	TargetMembership *address.Address
}

func (EndPoll) Kind() string { return "end_poll" }

type DelegatePoll struct {
	ChannelID uint64
	PollIndex uint64
}

func (DelegatePoll) Kind() string { return "delegate_poll" }

type CommitPoll struct {
	ChannelID uint64
	PollIndex uint64
	Tally     []uint64
	Voted     []address.Address
}

func (CommitPoll) Kind() string { return "commit_poll" }

type CreateProfile struct {
	DisplayName string
	Bio         string
	AvatarURI   string
}

func (CreateProfile) Kind() string { return "create_profile" }

type UpdateProfile struct {
	Update program.ProfileUpdate
}

func (UpdateProfile) Kind() string { return "update_profile" }
