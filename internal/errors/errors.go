// Package errors defines the program's error taxonomy. Every error returned
// by a transition aborts the whole instruction; the categories below exist so
// callers and the host can classify a failure without string matching.
package errors

import (
	"errors"
	"fmt"
)

// Category groups errors by how a caller should react to them.
type Category string

const (
	CategoryValidation    Category = "validation"
	CategoryAuthorization Category = "authorization"
	CategoryState         Category = "state"
	CategoryArithmetic    Category = "arithmetic"
	CategoryTransfer      Category = "transfer"
)

// Validation errors: input shape or range, caller-correctable.
var (
	ErrNameTooLong        = errors.New("channel name is too long")
	ErrDescriptionTooLong = errors.New("channel description is too long")
	ErrImageURITooLong    = errors.New("channel image uri is too long")
	ErrInvalidCost        = errors.New("invalid channel cost amount")
	ErrFeeExceedsMaximum  = errors.New("platform fee exceeds maximum allowed percentage")
	ErrInvalidWithdrawal  = errors.New("invalid withdrawal amount")
	ErrInvalidPollType    = errors.New("invalid poll type")
	ErrMissingTarget      = errors.New("target user is required for this poll type")
	ErrInsufficientOptions = errors.New("insufficient options for poll")
	ErrTooManyOptions     = errors.New("too many options for poll")
	ErrEmptyQuestion      = errors.New("poll question cannot be empty")
	ErrQuestionTooLong    = errors.New("poll question is too long")
	ErrOptionTooLong      = errors.New("poll option is too long")
	ErrInvalidOption      = errors.New("invalid option selected")
	ErrInvalidDuration    = errors.New("invalid poll duration")
	ErrInvalidTarget      = errors.New("invalid target user")
	ErrDisplayNameTooLong = errors.New("display name is too long")
	ErrBioTooLong         = errors.New("bio is too long")
	ErrAvatarURITooLong   = errors.New("avatar uri is too long")
	ErrInvalidTally       = errors.New("committed tally violates poll invariants")
)

// Authorization errors: wrong signer for the operation.
var (
	ErrUnauthorized        = errors.New("user not authorized")
	ErrUnauthorizedOwner   = errors.New("only program owner can perform this action")
	ErrUnauthorizedCreator = errors.New("only channel creator can perform this action")
)

// State errors: the operation does not fit the current record state.
var (
	ErrAlreadyInitialized = errors.New("program is already initialized")
	ErrNotInitialized     = errors.New("program is not initialized")
	ErrChannelNotFound    = errors.New("channel not found")
	ErrInvalidChannel     = errors.New("poll does not belong to this channel")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrNotMember          = errors.New("user is not a member of this channel")
	ErrAlreadyJoined      = errors.New("user has already joined this channel")
	ErrPollNotFound       = errors.New("poll not found")
	ErrAlreadyVoted       = errors.New("user has already voted in this poll")
	ErrPollNotActive      = errors.New("poll is not active")
	ErrPollAlreadyEnded   = errors.New("poll has already ended")
	ErrPollFull           = errors.New("poll voter list is full")
	ErrPollDelegated      = errors.New("poll is delegated to the fast-path venue")
	ErrPollNotDelegated   = errors.New("poll is not delegated")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrRecordExists       = errors.New("record already exists at derived address")
	ErrRecordNotFound     = errors.New("record not found")
)

// Arithmetic errors: always fatal, never silently saturated.
var (
	ErrOverflow  = errors.New("arithmetic overflow")
	ErrUnderflow = errors.New("arithmetic underflow")
)

// Transfer errors: value movement between accounts failed.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrTransferFailed    = errors.New("transfer failed")
)

// CategoryOf classifies an error. Unrecognized errors fall into the state
// category, the safest assumption for an aborted instruction.
func CategoryOf(err error) Category {
	switch {
	case IsValidation(err):
		return CategoryValidation
	case IsAuthorization(err):
		return CategoryAuthorization
	case IsArithmetic(err):
		return CategoryArithmetic
	case IsTransfer(err):
		return CategoryTransfer
	default:
		return CategoryState
	}
}

// IsValidation reports whether err is caller-correctable bad input.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrNameTooLong, ErrDescriptionTooLong, ErrImageURITooLong,
		ErrInvalidCost, ErrFeeExceedsMaximum, ErrInvalidWithdrawal,
		ErrInvalidPollType, ErrMissingTarget, ErrInsufficientOptions,
		ErrTooManyOptions, ErrEmptyQuestion, ErrQuestionTooLong,
		ErrOptionTooLong, ErrInvalidOption, ErrInvalidDuration,
		ErrInvalidTarget, ErrDisplayNameTooLong, ErrBioTooLong,
		ErrAvatarURITooLong, ErrInvalidTally,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsAuthorization reports whether err is a wrong-signer failure.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrUnauthorizedOwner) ||
		errors.Is(err, ErrUnauthorizedCreator)
}

// IsArithmetic reports whether err is an overflow or underflow.
func IsArithmetic(err error) bool {
	return errors.Is(err, ErrOverflow) || errors.Is(err, ErrUnderflow)
}

// IsTransfer reports whether err came from the value-transfer primitive.
func IsTransfer(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrTransferFailed)
}

// Wrap adds operation context while preserving the sentinel for errors.Is.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
