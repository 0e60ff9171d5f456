package program

import (
	"go.uber.org/zap"

	"github.com/chainchat/chainchat/internal/address"
	cerrors "github.com/chainchat/chainchat/internal/errors"
	"github.com/chainchat/chainchat/internal/events"
	"github.com/chainchat/chainchat/internal/state"
)

// Initialize creates the singleton config record. The caller becomes the
// program owner and the initial fee recipient, with the default platform
// fee applied.
func (p *Program) Initialize(ctx Context) error {
	if _, ok := p.ledger.Record(address.ForState()); ok {
		return cerrors.ErrAlreadyInitialized
	}

	cfg := &state.Config{
		Initialized:        true,
		TotalChannels:      0,
		PlatformFeePercent: state.DefaultPlatformFeePercent,
		FeeRecipient:       ctx.Caller,
		Owner:              ctx.Caller,
	}
	if err := p.ledger.CreateRecord(address.ForState(), cfg); err != nil {
		return err
	}

	p.logger.Info("program initialized",
		zap.String("owner", ctx.Caller.Short()),
		zap.Uint64("platform_fee", cfg.PlatformFeePercent),
	)
	ctx.emit(events.ConfigInitialized{
		Owner:        ctx.Caller,
		PlatformFee:  cfg.PlatformFeePercent,
		FeeRecipient: ctx.Caller,
	})
	return nil
}

// SetPlatformFee updates the platform's percentage cut. Owner only.
func (p *Program) SetPlatformFee(ctx Context, newFee uint64) error {
	cfg, err := p.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Owner != ctx.Caller {
		return cerrors.ErrUnauthorizedOwner
	}
	if newFee > state.MaxPlatformFeePercent {
		return cerrors.ErrFeeExceedsMaximum
	}

	oldFee := cfg.PlatformFeePercent
	cfg.PlatformFeePercent = newFee

	ctx.emit(events.PlatformFeeUpdated{Owner: ctx.Caller, OldFee: oldFee, NewFee: newFee})
	return nil
}

// SetFeeRecipient redirects future platform cuts. Owner only.
func (p *Program) SetFeeRecipient(ctx Context, newRecipient address.Address) error {
	cfg, err := p.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Owner != ctx.Caller {
		return cerrors.ErrUnauthorizedOwner
	}

	old := cfg.FeeRecipient
	cfg.FeeRecipient = newRecipient

	ctx.emit(events.FeeRecipientUpdated{Owner: ctx.Caller, OldRecipient: old, NewRecipient: newRecipient})
	return nil
}

// Withdraw moves accumulated treasury funds (held at the state address) to
// the owner. Owner only; the amount must be positive and covered.
func (p *Program) Withdraw(ctx Context, amount uint64) error {
	cfg, err := p.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Owner != ctx.Caller {
		return cerrors.ErrUnauthorizedOwner
	}
	treasury := address.ForState()
	if amount == 0 || amount > p.ledger.Balance(treasury) {
		return cerrors.ErrInvalidWithdrawal
	}
	if err := p.ledger.Transfer(treasury, cfg.Owner, amount); err != nil {
		return err
	}

	ctx.emit(events.Withdraw{Owner: ctx.Caller, Amount: amount})
	return nil
}
