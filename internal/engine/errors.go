package engine

import "errors"

// Validation errors: the input shape is wrong and the caller should fix it.
var (
	ErrInvalidEntryCount = errors.New("at least two entries are required")
	ErrNegativeScore     = errors.New("scores must not be negative")
	ErrMissingEntries    = errors.New("match does not have both entries yet")
)

// Invariant violations: a business rule conflict, never retried.
var (
	ErrConflictingSeeds     = errors.New("two entries carry the same seed")
	ErrBracketAlreadyExists = errors.New("tournament already has a bracket")
	ErrAlreadyCompleted     = errors.New("match is already completed")
	ErrDrawNotSupported     = errors.New("draws are not supported in elimination matches")
	ErrWinnerNotInMatch     = errors.New("winner is not part of this match")
	ErrMatchNotCompleted    = errors.New("match is not completed")
	ErrByeMatch             = errors.New("bye matches cannot take a result")
)

// Not-found errors: a referenced record is missing.
var (
	ErrMatchNotFound = errors.New("match not found")
	ErrEntryNotFound = errors.New("entry not found")
)

// IsValidation reports whether err is a bad-input error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidEntryCount) ||
		errors.Is(err, ErrNegativeScore) ||
		errors.Is(err, ErrMissingEntries)
}

// IsInvariant reports whether err is a business-rule conflict.
func IsInvariant(err error) bool {
	return errors.Is(err, ErrConflictingSeeds) ||
		errors.Is(err, ErrBracketAlreadyExists) ||
		errors.Is(err, ErrAlreadyCompleted) ||
		errors.Is(err, ErrDrawNotSupported) ||
		errors.Is(err, ErrWinnerNotInMatch) ||
		errors.Is(err, ErrMatchNotCompleted) ||
		errors.Is(err, ErrByeMatch)
}

// IsNotFound reports whether err is a missing-record error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMatchNotFound) || errors.Is(err, ErrEntryNotFound)
}
