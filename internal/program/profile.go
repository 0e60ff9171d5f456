package program

import (
	"github.com/chainchat/chainchat/internal/address"
	cerrors "github.com/chainchat/chainchat/internal/errors"
	"github.com/chainchat/chainchat/internal/events"
	"github.com/chainchat/chainchat/internal/state"
)

func validateProfileFields(displayName, bio, avatarURI string) error {
	if len(displayName) == 0 || len(displayName) > state.MaxDisplayNameLength {
		return cerrors.ErrDisplayNameTooLong
	}
	if len(bio) > state.MaxBioLength {
		return cerrors.ErrBioTooLong
	}
	if len(avatarURI) > state.MaxAvatarURILength {
		return cerrors.ErrAvatarURITooLong
	}
	return nil
}

// CreateProfile writes the caller's profile record. One per wallet,
// enforced by the derived address.
func (p *Program) CreateProfile(ctx Context, displayName, bio, avatarURI string) error {
	if err := validateProfileFields(displayName, bio, avatarURI); err != nil {
		return err
	}

	profile := &state.Profile{
		Owner:       ctx.Caller,
		DisplayName: displayName,
		Bio:         bio,
		AvatarURI:   avatarURI,
		CreatedAt:   ctx.Now,
	}
	if err := p.ledger.CreateRecord(address.ForProfile(ctx.Caller), profile); err != nil {
		return err
	}

	ctx.emit(events.ProfileCreated{
		Owner:       ctx.Caller,
		DisplayName: displayName,
		CreatedAt:   ctx.Now,
	})
	return nil
}

// ProfileUpdate names the optional fields of a profile update.
type ProfileUpdate struct {
	DisplayName *string
	Bio         *string
	AvatarURI   *string
}

// UpdateProfile applies the supplied fields to the caller's own profile.
func (p *Program) UpdateProfile(ctx Context, upd ProfileUpdate) error {
	rec, ok := p.ledger.Record(address.ForProfile(ctx.Caller))
	if !ok {
		return cerrors.ErrProfileNotFound
	}
	profile := rec.(*state.Profile)

	var updated []string
	if upd.DisplayName != nil {
		if len(*upd.DisplayName) == 0 || len(*upd.DisplayName) > state.MaxDisplayNameLength {
			return cerrors.ErrDisplayNameTooLong
		}
		profile.DisplayName = *upd.DisplayName
		updated = append(updated, "display_name")
	}
	if upd.Bio != nil {
		if len(*upd.Bio) > state.MaxBioLength {
			return cerrors.ErrBioTooLong
		}
		profile.Bio = *upd.Bio
		updated = append(updated, "bio")
	}
	if upd.AvatarURI != nil {
		if len(*upd.AvatarURI) > state.MaxAvatarURILength {
			return cerrors.ErrAvatarURITooLong
		}
		profile.AvatarURI = *upd.AvatarURI
		updated = append(updated, "avatar_uri")
	}

	ctx.emit(events.ProfileUpdated{Owner: ctx.Caller, UpdatedFields: updated})
	return nil
}

// profileDisplayName resolves a wallet's display name for synthesized poll
// questions.
func (p *Program) profileDisplayName(owner address.Address) (string, bool) {
	rec, ok := p.ledger.Record(address.ForProfile(owner))
	if !ok {
		return "", false
	}
	return rec.(*state.Profile).DisplayName, true
}
