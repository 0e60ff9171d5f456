package state

import "github.com/chainchat/chainchat/internal/address"

// Config is the process-wide singleton: created once by initialize, amended
// only by owner setters, never destroyed. TotalChannels doubles as the
// channel-id source.
type Config struct {
	Initialized        bool
	TotalChannels      uint64
	PlatformFeePercent uint64
	FeeRecipient       address.Address
	Owner              address.Address
}

func (c *Config) Kind() RecordKind { return KindConfig }

func (c *Config) Clone() Record {
	clone := *c
	return &clone
}

func (c *Config) Encode() []byte {
	w := &writer{}
	w.bool(c.Initialized)
	w.u64(c.TotalChannels)
	w.u64(c.PlatformFeePercent)
	w.addr(c.FeeRecipient)
	w.addr(c.Owner)
	return w.buf
}

func DecodeConfig(data []byte) (*Config, error) {
	r := &reader{buf: data}
	c := &Config{
		Initialized:        r.bool(),
		TotalChannels:      r.u64(),
		PlatformFeePercent: r.u64(),
		FeeRecipient:       r.addr(),
		Owner:              r.addr(),
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return c, nil
}
