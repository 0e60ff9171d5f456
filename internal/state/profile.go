package state

import "github.com/chainchat/chainchat/internal/address"

// Profile holds a user's display data. Moderation polls read the display
// name to synthesize their question; nothing else in the program depends
// on it.
type Profile struct {
	Owner       address.Address
	DisplayName string
	Bio         string
	AvatarURI   string
	CreatedAt   int64
}

func (p *Profile) Kind() RecordKind { return KindProfile }

func (p *Profile) Clone() Record {
	clone := *p
	return &clone
}

func (p *Profile) Encode() []byte {
	w := &writer{}
	w.addr(p.Owner)
	w.str(p.DisplayName)
	w.str(p.Bio)
	w.str(p.AvatarURI)
	w.i64(p.CreatedAt)
	return w.buf
}

func DecodeProfile(data []byte) (*Profile, error) {
	r := &reader{buf: data}
	p := &Profile{
		Owner:       r.addr(),
		DisplayName: r.str(MaxDisplayNameLength),
		Bio:         r.str(MaxBioLength),
		AvatarURI:   r.str(MaxAvatarURILength),
		CreatedAt:   r.i64(),
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return p, nil
}
