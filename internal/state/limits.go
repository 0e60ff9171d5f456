package state

// Field bounds and economic constants. These are part of the persisted wire
// format: decoders reject strings and vectors above these maxima.
const (
	MaxChannelNameLength        = 64
	MaxChannelDescriptionLength = 512
	MaxChannelImageURILength    = 256

	MaxPollQuestionLength = 200
	MaxPollOptionLength   = 100
	MinPollOptions        = 2
	MaxPollOptions        = 10
	MaxPollVoters         = 100

	MaxDisplayNameLength = 50
	MaxBioLength         = 200
	MaxAvatarURILength   = 200

	// MinChannelCost is the minimum join cost in native currency units.
	MinChannelCost uint64 = 1_000_000

	// MaxPlatformFeePercent caps the platform's cut of each join fee.
	MaxPlatformFeePercent uint64 = 50

	// DefaultPlatformFeePercent is set when the program is initialized.
	DefaultPlatformFeePercent uint64 = 5

	// MaxCertificateIDLength bounds the issued certificate serial.
	MaxCertificateIDLength = 64
)
