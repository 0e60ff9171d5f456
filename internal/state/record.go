// Package state defines the persisted record types and their binary codec.
// Records are independently addressed account images; the host persists each
// one whole on a successful instruction and none on a failed one.
package state

// RecordKind tags a persisted record image so a store can decode it.
type RecordKind uint8

const (
	KindConfig RecordKind = iota + 1
	KindChannel
	KindMembership
	KindPoll
	KindProfile
)

func (k RecordKind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindChannel:
		return "channel"
	case KindMembership:
		return "membership"
	case KindPoll:
		return "poll"
	case KindProfile:
		return "profile"
	default:
		return "unknown"
	}
}

// Record is a persisted account image.
type Record interface {
	Kind() RecordKind
	// Clone returns a deep copy, used for snapshot isolation.
	Clone() Record
	// Encode serializes the record in the persisted wire format.
	Encode() []byte
}

// Decode reconstructs a record image from its kind tag and payload.
func Decode(kind RecordKind, data []byte) (Record, error) {
	switch kind {
	case KindConfig:
		return DecodeConfig(data)
	case KindChannel:
		return DecodeChannel(data)
	case KindMembership:
		return DecodeMembership(data)
	case KindPoll:
		return DecodePoll(data)
	case KindProfile:
		return DecodeProfile(data)
	default:
		return nil, errUnknownKind
	}
}
