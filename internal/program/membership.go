package program

import (
	"go.uber.org/zap"

	"github.com/chainchat/chainchat/internal/address"
	cerrors "github.com/chainchat/chainchat/internal/errors"
	"github.com/chainchat/chainchat/internal/events"
	"github.com/chainchat/chainchat/internal/state"
)

// JoinChannel pays the join cost, splits it between platform and creator,
// records the membership, and triggers certificate issuance bound to the
// membership record. A member who previously left rejoins through the same
// record and pays the cost again, keeping the original certificate.
func (p *Program) JoinChannel(ctx Context, channelID uint64) error {
	cfg, err := p.loadConfig()
	if err != nil {
		return err
	}
	ch, err := p.loadChannel(channelID)
	if err != nil {
		return err
	}

	memAddr := address.ForMembership(channelID, ctx.Caller)
	mem, exists := p.loadMembership(channelID, ctx.Caller)
	if exists && mem.Joined {
		return cerrors.ErrAlreadyJoined
	}

	cost := ch.Cost
	if p.ledger.Balance(ctx.Caller) < cost {
		return cerrors.ErrInsufficientFunds
	}

	platformCut, creatorCut, err := SplitFee(cost, cfg.PlatformFeePercent)
	if err != nil {
		return err
	}
	if err := p.ledger.Transfer(ctx.Caller, cfg.FeeRecipient, platformCut); err != nil {
		return err
	}
	if err := p.ledger.Transfer(ctx.Caller, ch.Creator, creatorCut); err != nil {
		return err
	}

	if exists {
		mem.Joined = true
		mem.JoinedAt = ctx.Now
	} else {
		mem = &state.Membership{
			ChannelID: channelID,
			Member:    ctx.Caller,
			Joined:    true,
			JoinedAt:  ctx.Now,
		}
		if err := p.ledger.CreateRecord(memAddr, mem); err != nil {
			return err
		}
	}

	ch.MemberCount, err = safeAdd(ch.MemberCount, 1)
	if err != nil {
		return err
	}

	// A record that already carries a certificate keeps it on rejoin; the
	// issuer is only consulted for the first join.
	serial := mem.CertificateID
	if !mem.HasCertificate() {
		serial, err = p.certs.Issue(memAddr, ctx.Caller, channelID)
		if err != nil {
			return cerrors.Wrap("issue membership certificate", err)
		}
		mem.CertificateID = serial
	}

	p.logger.Info("channel joined",
		zap.Uint64("channel_id", channelID),
		zap.String("member", ctx.Caller.Short()),
		zap.Uint64("cost", cost),
		zap.Uint64("platform_cut", platformCut),
		zap.Uint64("creator_cut", creatorCut),
	)
	ctx.emit(events.ChannelJoined{
		ChannelID:     channelID,
		Member:        ctx.Caller,
		Cost:          cost,
		PlatformCut:   platformCut,
		CreatorCut:    creatorCut,
		CertificateID: serial,
		JoinedAt:      ctx.Now,
	})
	return nil
}

// LeaveChannel toggles the membership off without destroying the record,
// so the (channel, member) address stays occupied.
func (p *Program) LeaveChannel(ctx Context, channelID uint64) error {
	ch, err := p.loadChannel(channelID)
	if err != nil {
		return err
	}

	mem, ok := p.loadMembership(channelID, ctx.Caller)
	if !ok || mem.ChannelID != channelID || mem.Member != ctx.Caller {
		return cerrors.ErrMembershipNotFound
	}
	if !mem.Joined {
		return cerrors.ErrNotMember
	}

	mem.Joined = false
	ch.MemberCount, err = safeSub(ch.MemberCount, 1)
	if err != nil {
		return err
	}

	ctx.emit(events.ChannelLeft{
		ChannelID: channelID,
		Member:    ctx.Caller,
		LeftAt:    ctx.Now,
	})
	return nil
}
