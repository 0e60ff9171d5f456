package state

import "github.com/chainchat/chainchat/internal/address"

// Channel is a membership-gated room. The id is the config counter value at
// creation and never changes. Only the creator may mutate the editable
// fields; MemberCount moves only through join/leave and PollCount only
// through poll creation.
type Channel struct {
	ID          uint64
	Name        string
	Description string
	ImageURI    string
	Cost        uint64
	Creator     address.Address
	IsPrivate   bool
	MemberCount uint64
	PollCount   uint64
	CreatedAt   int64
	UpdatedAt   int64
}

func (c *Channel) Kind() RecordKind { return KindChannel }

func (c *Channel) Clone() Record {
	clone := *c
	return &clone
}

func (c *Channel) Encode() []byte {
	w := &writer{}
	w.u64(c.ID)
	w.str(c.Name)
	w.str(c.Description)
	w.str(c.ImageURI)
	w.u64(c.Cost)
	w.addr(c.Creator)
	w.bool(c.IsPrivate)
	w.u64(c.MemberCount)
	w.u64(c.PollCount)
	w.i64(c.CreatedAt)
	w.i64(c.UpdatedAt)
	return w.buf
}

func DecodeChannel(data []byte) (*Channel, error) {
	r := &reader{buf: data}
	c := &Channel{
		ID:          r.u64(),
		Name:        r.str(MaxChannelNameLength),
		Description: r.str(MaxChannelDescriptionLength),
		ImageURI:    r.str(MaxChannelImageURILength),
		Cost:        r.u64(),
		Creator:     r.addr(),
		IsPrivate:   r.bool(),
		MemberCount: r.u64(),
		PollCount:   r.u64(),
		CreatedAt:   r.i64(),
		UpdatedAt:   r.i64(),
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return c, nil
}
