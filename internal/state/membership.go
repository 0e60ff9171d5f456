package state

import "github.com/chainchat/chainchat/internal/address"

// Membership records one (channel, member) pair. Created on first join (or
// on channel creation for the creator) and never destroyed: leave only
// toggles Joined off, so rejoin reuses the record at the same address.
type Membership struct {
	ChannelID     uint64
	Member        address.Address
	Joined        bool
	JoinedAt      int64
	CertificateID string // empty until a certificate is issued
}

func (m *Membership) Kind() RecordKind { return KindMembership }

func (m *Membership) Clone() Record {
	clone := *m
	return &clone
}

// HasCertificate reports whether a membership certificate was issued.
func (m *Membership) HasCertificate() bool {
	return m.CertificateID != ""
}

func (m *Membership) Encode() []byte {
	w := &writer{}
	w.u64(m.ChannelID)
	w.addr(m.Member)
	w.bool(m.Joined)
	w.i64(m.JoinedAt)
	w.bool(m.HasCertificate())
	if m.HasCertificate() {
		w.str(m.CertificateID)
	}
	return w.buf
}

func DecodeMembership(data []byte) (*Membership, error) {
	r := &reader{buf: data}
	m := &Membership{
		ChannelID: r.u64(),
		Member:    r.addr(),
		Joined:    r.bool(),
		JoinedAt:  r.i64(),
	}
	if r.bool() {
		m.CertificateID = r.str(MaxCertificateIDLength)
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return m, nil
}
