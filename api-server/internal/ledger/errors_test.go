package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrNotAdmin, "unauthorized"},
		{ErrOperationsSuspended, "operations_suspended"},
		{ErrUnknownAirline, "not_found"},
		{ErrProposerNotFunded, "invalid_state"},
		{ErrPremiumExceedsCap, "limit_exceeded"},
		{ErrDuplicateVote, "conflict"},
		{ErrStatusFinalized, "already_processed"},
		{ErrZeroAmount, "invalid_input"},
		{fmt.Errorf("service: %w", ErrRequestClosed), "conflict"},
		{ErrTransferFailed, "internal"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), "%v", tt.err)
	}
}
