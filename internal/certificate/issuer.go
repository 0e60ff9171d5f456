// Package certificate models the external issuance capability: one
// non-fungible credential per membership, minted as an atomic sub-step of
// the join or create instruction that triggered it. The program only
// triggers issuance and propagates failures; it never mints anything
// itself.
package certificate

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chainchat/chainchat/internal/address"
)

// Issuer mints a membership certificate. It is consulted only for
// memberships without a certificate; the returned serial is recorded on the
// membership and any error aborts the surrounding instruction.
type Issuer interface {
	Issue(membership address.Address, member address.Address, channelID uint64) (string, error)
}

// LocalIssuer is the in-process issuance service used by the host harness.
// Authority over each certificate is bound to the membership record address
// it was issued for.
type LocalIssuer struct {
	logger *zap.Logger
	issued map[address.Address]string
}

// NewLocalIssuer returns an issuer with no certificates outstanding.
func NewLocalIssuer(logger *zap.Logger) *LocalIssuer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalIssuer{
		logger: logger,
		issued: make(map[address.Address]string),
	}
}

// Issue mints one certificate per membership. A membership that already
// holds a certificate keeps it: rejoin after leave reuses the original
// credential instead of minting a second one.
func (i *LocalIssuer) Issue(membership address.Address, member address.Address, channelID uint64) (string, error) {
	if serial, ok := i.issued[membership]; ok {
		return serial, nil
	}
	serial := fmt.Sprintf("cert-%d-%s", channelID, uuid.NewString())
	i.issued[membership] = serial
	i.logger.Debug("certificate issued",
		zap.String("serial", serial),
		zap.String("membership", membership.Short()),
		zap.String("member", member.Short()),
		zap.Uint64("channel_id", channelID),
	)
	return serial, nil
}

// Outstanding returns the number of certificates issued.
func (i *LocalIssuer) Outstanding() int {
	return len(i.issued)
}
