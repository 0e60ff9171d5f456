// Package address derives record addresses from namespaced seed tuples.
// A record's address is a pure function of its namespace and parent
// identifiers, so the membership record for a (channel, member) pair always
// resolves to the same address and a second create for the pair collides.
package address

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Size is the length of a derived address in bytes.
const Size = 32

// Address identifies an account record or a wallet.
type Address [Size]byte

// Zero is the all-zero address, used as the absent value.
var Zero Address

// Seed namespaces. One namespace per record family keeps derivations
// collision-free across families.
const (
	NamespaceState       = "state"
	NamespaceChannel     = "channel"
	NamespaceMembership  = "membership"
	NamespacePoll        = "poll"
	NamespaceProfile     = "profile"
	NamespaceCertificate = "certificate"
)

// Derive hashes the namespace and seeds into an address. Each part is
// length-prefixed before hashing so ("ab","c") and ("a","bc") cannot
// produce the same digest.
func Derive(namespace string, seeds ...[]byte) Address {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err) // only fails for an oversized key, and we pass none
	}
	writePart(h.Write, []byte(namespace))
	for _, seed := range seeds {
		writePart(h.Write, seed)
	}
	var addr Address
	copy(addr[:], h.Sum(nil))
	return addr
}

func writePart(write func([]byte) (int, error), part []byte) {
	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(part)))
	write(prefix[:])
	write(part)
}

// U64Seed encodes v as a little-endian seed component.
func U64Seed(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

// ForState returns the singleton config record address.
func ForState() Address {
	return Derive(NamespaceState)
}

// ForChannel returns the address of the channel with the given id.
func ForChannel(channelID uint64) Address {
	return Derive(NamespaceChannel, U64Seed(channelID))
}

// ForMembership returns the address of the (channel, member) record.
func ForMembership(channelID uint64, member Address) Address {
	return Derive(NamespaceMembership, U64Seed(channelID), member[:])
}

// ForPoll returns the address of a channel's poll at the given index.
func ForPoll(channelID, pollIndex uint64) Address {
	return Derive(NamespacePoll, U64Seed(channelID), U64Seed(pollIndex))
}

// ForProfile returns the address of a user's profile record.
func ForProfile(owner Address) Address {
	return Derive(NamespaceProfile, owner[:])
}

// ForCertificate returns the address of the certificate bound to a
// membership record.
func ForCertificate(membership Address) Address {
	return Derive(NamespaceCertificate, membership[:])
}

// IsZero reports whether the address is the absent value.
func (a Address) IsZero() bool {
	return a == Zero
}

// Bytes returns the address as a byte slice.
func (a Address) Bytes() []byte {
	return a[:]
}

// String returns the full hex form.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// Short returns an abbreviated hex form for logs.
func (a Address) Short() string {
	s := a.String()
	return s[:8] + ".." + s[len(s)-4:]
}

// FromBytes copies b into an Address. Short input is zero-padded on the
// right; long input is truncated.
func FromBytes(b []byte) Address {
	var addr Address
	copy(addr[:], b)
	return addr
}

// Parse decodes a hex string produced by String.
func Parse(s string) (Address, error) {
	var addr Address
	b, err := hex.DecodeString(s)
	if err != nil {
		return addr, err
	}
	copy(addr[:], b)
	return addr, nil
}
