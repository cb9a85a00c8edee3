package ledger

import (
	"context"

	"go.uber.org/zap"
)

// IsOperational reports the gate state. Reads stay available while it is
// closed.
func (e *Engine) IsOperational() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st.operational
}

// SetOperatingStatus opens or closes the gate. Only the administrator may
// call it; setting the current value is a no-op.
func (e *Engine) SetOperatingStatus(ctx context.Context, caller string, operational bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.params.Admin {
		return ErrNotAdmin
	}
	if e.st.operational == operational {
		return nil
	}
	if _, err := e.commit(ctx, event(EventOperatingStatusChanged, operatingStatusChanged{
		Operational: operational,
		By:          caller,
	})); err != nil {
		return err
	}
	e.logger.Info("operating status changed", zap.Bool("operational", operational))
	return nil
}

// requireOperational fails fast when the gate is closed. Callers hold e.mu.
func (e *Engine) requireOperational() error {
	if !e.st.operational {
		return ErrOperationsSuspended
	}
	return nil
}
