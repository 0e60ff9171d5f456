package program

import cerrors "github.com/chainchat/chainchat/internal/errors"

// Checked arithmetic: the program never saturates silently; any wrap aborts
// the instruction.

func safeAdd(a, b uint64) (uint64, error) {
	if a+b < a {
		return 0, cerrors.ErrOverflow
	}
	return a + b, nil
}

func safeSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, cerrors.ErrUnderflow
	}
	return a - b, nil
}

func safeMul(a, b uint64) (uint64, error) {
	if a != 0 && a*b/a != b {
		return 0, cerrors.ErrOverflow
	}
	return a * b, nil
}

// SplitFee divides a join cost between the platform and the channel
// creator: platformCut = floor(cost*feePercent/100), creatorCut the
// remainder, so the two always sum back to cost exactly.
func SplitFee(cost, feePercent uint64) (platformCut, creatorCut uint64, err error) {
	scaled, err := safeMul(cost, feePercent)
	if err != nil {
		return 0, 0, err
	}
	platformCut = scaled / 100
	creatorCut = cost - platformCut // safe: platformCut <= cost for feePercent <= 100
	return platformCut, creatorCut, nil
}
