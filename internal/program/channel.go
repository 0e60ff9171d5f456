package program

import (
	"go.uber.org/zap"

	"github.com/chainchat/chainchat/internal/address"
	cerrors "github.com/chainchat/chainchat/internal/errors"
	"github.com/chainchat/chainchat/internal/events"
	"github.com/chainchat/chainchat/internal/state"
)

func validateChannelName(name string) error {
	if len(name) == 0 || len(name) > state.MaxChannelNameLength {
		return cerrors.ErrNameTooLong
	}
	return nil
}

func validateChannelDescription(description string) error {
	if len(description) > state.MaxChannelDescriptionLength {
		return cerrors.ErrDescriptionTooLong
	}
	return nil
}

func validateChannelImageURI(uri string) error {
	if len(uri) > state.MaxChannelImageURILength {
		return cerrors.ErrImageURITooLong
	}
	return nil
}

func validateChannelCost(cost uint64) error {
	if cost < state.MinChannelCost {
		return cerrors.ErrInvalidCost
	}
	return nil
}

// CreateChannel validates the fields, assigns the next channel id, writes
// the channel and the creator's membership, and triggers certificate
// issuance for the creator. The creator is auto-joined, so MemberCount
// starts at 1.
func (p *Program) CreateChannel(ctx Context, name, description, imageURI string, cost uint64, isPrivate bool) (uint64, error) {
	cfg, err := p.loadConfig()
	if err != nil {
		return 0, err
	}
	if err := validateChannelName(name); err != nil {
		return 0, err
	}
	if err := validateChannelDescription(description); err != nil {
		return 0, err
	}
	if err := validateChannelImageURI(imageURI); err != nil {
		return 0, err
	}
	if err := validateChannelCost(cost); err != nil {
		return 0, err
	}

	total, err := safeAdd(cfg.TotalChannels, 1)
	if err != nil {
		return 0, err
	}
	cfg.TotalChannels = total
	channelID := total

	ch := &state.Channel{
		ID:          channelID,
		Name:        name,
		Description: description,
		ImageURI:    imageURI,
		Cost:        cost,
		Creator:     ctx.Caller,
		IsPrivate:   isPrivate,
		MemberCount: 1,
		PollCount:   0,
		CreatedAt:   ctx.Now,
		UpdatedAt:   ctx.Now,
	}
	if err := p.ledger.CreateRecord(address.ForChannel(channelID), ch); err != nil {
		return 0, err
	}

	memAddr := address.ForMembership(channelID, ctx.Caller)
	mem := &state.Membership{
		ChannelID: channelID,
		Member:    ctx.Caller,
		Joined:    true,
		JoinedAt:  ctx.Now,
	}
	if err := p.ledger.CreateRecord(memAddr, mem); err != nil {
		return 0, err
	}

	serial, err := p.certs.Issue(memAddr, ctx.Caller, channelID)
	if err != nil {
		return 0, cerrors.Wrap("issue creator certificate", err)
	}
	mem.CertificateID = serial

	p.logger.Info("channel created",
		zap.Uint64("channel_id", channelID),
		zap.String("name", name),
		zap.Uint64("cost", cost),
		zap.String("creator", ctx.Caller.Short()),
	)
	ctx.emit(events.ChannelCreated{
		ChannelID:     channelID,
		ChannelName:   name,
		Cost:          cost,
		Creator:       ctx.Caller,
		IsPrivate:     isPrivate,
		CreatedAt:     ctx.Now,
		CertificateID: serial,
	})
	return channelID, nil
}

// ChannelUpdate names the optional fields of an update instruction; nil
// fields keep their current value.
type ChannelUpdate struct {
	Name        *string
	Description *string
	Cost        *uint64
	IsPrivate   *bool
}

// UpdateChannel applies the supplied fields. Creator only.
func (p *Program) UpdateChannel(ctx Context, channelID uint64, upd ChannelUpdate) error {
	ch, err := p.loadChannel(channelID)
	if err != nil {
		return err
	}
	if ch.Creator != ctx.Caller {
		return cerrors.ErrUnauthorizedCreator
	}

	var updated []string
	if upd.Name != nil {
		if err := validateChannelName(*upd.Name); err != nil {
			return err
		}
		ch.Name = *upd.Name
		updated = append(updated, "name")
	}
	if upd.Description != nil {
		if err := validateChannelDescription(*upd.Description); err != nil {
			return err
		}
		ch.Description = *upd.Description
		updated = append(updated, "description")
	}
	if upd.Cost != nil {
		if err := validateChannelCost(*upd.Cost); err != nil {
			return err
		}
		ch.Cost = *upd.Cost
		updated = append(updated, "cost")
	}
	if upd.IsPrivate != nil {
		ch.IsPrivate = *upd.IsPrivate
		updated = append(updated, "is_private")
	}
	ch.UpdatedAt = ctx.Now

	ctx.emit(events.ChannelUpdated{
		ChannelID:     channelID,
		Creator:       ctx.Caller,
		UpdatedFields: updated,
		UpdatedAt:     ctx.Now,
	})
	return nil
}

// DeleteChannel reclaims the channel record and returns any residual
// balance held at its address to the creator. Creator only. Membership
// records are left in place; they fail naturally once the channel is gone.
func (p *Program) DeleteChannel(ctx Context, channelID uint64) error {
	ch, err := p.loadChannel(channelID)
	if err != nil {
		return err
	}
	if ch.Creator != ctx.Caller {
		return cerrors.ErrUnauthorizedCreator
	}

	chAddr := address.ForChannel(channelID)
	refund := p.ledger.Balance(chAddr)
	if refund > 0 {
		if err := p.ledger.Transfer(chAddr, ch.Creator, refund); err != nil {
			return err
		}
	}
	p.ledger.DeleteRecord(chAddr)

	p.logger.Info("channel deleted",
		zap.Uint64("channel_id", channelID),
		zap.Uint64("refund", refund),
	)
	ctx.emit(events.ChannelDeleted{
		ChannelID: channelID,
		Creator:   ctx.Caller,
		Refund:    refund,
		DeletedAt: ctx.Now,
	})
	return nil
}
