package ledger

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a ledger operation wraps exactly one
// of these, so callers can branch with errors.Is on the kind.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrOperationsSuspended = errors.New("operations suspended")
	ErrNotFound            = errors.New("not found")
	ErrInvalidState        = errors.New("invalid state")
	ErrLimitExceeded       = errors.New("limit exceeded")
	ErrConflict            = errors.New("conflict")
	ErrAlreadyProcessed    = errors.New("already processed")
	ErrInvalidInput        = errors.New("invalid input")
)

// Gate and airlines
var (
	ErrNotAdmin                 = fmt.Errorf("%w: caller is not the administrator", ErrUnauthorized)
	ErrProposerNotFunded        = fmt.Errorf("%w: proposer not funded", ErrInvalidState)
	ErrUnknownAirline           = fmt.Errorf("%w: unknown airline", ErrNotFound)
	ErrAirlineAlreadyRegistered = fmt.Errorf("%w: airline already registered", ErrConflict)
	ErrDuplicateVote            = fmt.Errorf("%w: duplicate vote", ErrConflict)
	ErrInvalidAirline           = fmt.Errorf("%w: airline address required", ErrInvalidInput)
	ErrZeroAmount               = fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	ErrAmountOverflow           = fmt.Errorf("%w: amount overflows", ErrInvalidInput)
)

// Flights and insurance
var (
	ErrNotFlightOwner       = fmt.Errorf("%w: flights are registered by their own airline", ErrUnauthorized)
	ErrAirlineNotFunded     = fmt.Errorf("%w: airline not funded", ErrInvalidState)
	ErrInvalidFlight        = fmt.Errorf("%w: flight designator required", ErrInvalidInput)
	ErrFlightNotRegistered  = fmt.Errorf("%w: flight not registered", ErrNotFound)
	ErrFlightFinalized      = fmt.Errorf("%w: flight status already final", ErrInvalidState)
	ErrPremiumExceedsCap    = fmt.Errorf("%w: premium exceeds cap", ErrLimitExceeded)
	ErrNoCredits            = fmt.Errorf("%w: no credits", ErrInvalidState)
	ErrInsufficientReserves = fmt.Errorf("%w: insufficient reserves", ErrInvalidState)
	ErrInvalidPassenger     = fmt.Errorf("%w: passenger address required", ErrInvalidInput)

	// ErrTransferFailed is returned when the value transfer of a withdrawal
	// fails; the balance has been restored.
	ErrTransferFailed = errors.New("credit transfer failed")
)

// Oracles
var (
	ErrInsufficientStake       = fmt.Errorf("%w: stake below registration fee", ErrLimitExceeded)
	ErrOracleAlreadyRegistered = fmt.Errorf("%w: oracle already registered", ErrConflict)
	ErrOracleNotRegistered     = fmt.Errorf("%w: oracle not registered", ErrUnauthorized)
	ErrInvalidOracle           = fmt.Errorf("%w: oracle address required", ErrInvalidInput)
	ErrIndexNotAssigned        = fmt.Errorf("%w: index not assigned to oracle", ErrUnauthorized)
	ErrInvalidStatusCode       = fmt.Errorf("%w: unknown status code", ErrInvalidInput)
	ErrRequestNotFound         = fmt.Errorf("%w: status request not found", ErrNotFound)
	ErrRequestClosed           = fmt.Errorf("%w: status request closed", ErrConflict)
	ErrDuplicateResponse       = fmt.Errorf("%w: oracle already responded", ErrConflict)
	ErrStatusFinalized         = fmt.Errorf("%w: flight status already finalized", ErrAlreadyProcessed)
)

var kinds = []struct {
	err   error
	label string
}{
	{ErrUnauthorized, "unauthorized"},
	{ErrOperationsSuspended, "operations_suspended"},
	{ErrNotFound, "not_found"},
	{ErrInvalidState, "invalid_state"},
	{ErrLimitExceeded, "limit_exceeded"},
	{ErrConflict, "conflict"},
	{ErrAlreadyProcessed, "already_processed"},
	{ErrInvalidInput, "invalid_input"},
}

// KindOf returns the label of the error's kind: "" for nil, "internal" for
// errors outside the taxonomy
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.label
		}
	}
	return "internal"
}
