package ledger

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/cx-tal-miterani/flight-surety/shared/models"
)

// PolicyInfo is a read-only view of a passenger's coverage on a flight
type PolicyInfo struct {
	Passenger string
	Flight    models.FlightKey
	Premium   *uint256.Int
	PaidOut   bool
}

// BuyInsurance escrows premium for passenger on a registered flight. A second
// purchase tops up the existing policy as long as the total stays within the
// premium cap.
func (e *Engine) BuyInsurance(ctx context.Context, passenger string, key models.FlightKey, premium *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOperational(); err != nil {
		return err
	}
	if passenger == "" {
		return ErrInvalidPassenger
	}
	if premium == nil || premium.IsZero() {
		return ErrZeroAmount
	}
	f, ok := e.st.flights[key]
	if !ok {
		return ErrFlightNotRegistered
	}
	if f.finalized {
		return ErrFlightFinalized
	}

	total := premium
	if p, ok := e.st.policies[policyKey{passenger: passenger, flight: key}]; ok {
		var overflow bool
		if total, overflow = new(uint256.Int).AddOverflow(p.premium, premium); overflow {
			return ErrPremiumExceedsCap
		}
	}
	if total.Gt(e.params.PremiumCap) {
		return ErrPremiumExceedsCap
	}

	_, err := e.commit(ctx, event(EventInsurancePurchased, insurancePurchased{
		Passenger: passenger,
		Airline:   key.Airline,
		Flight:    key.Flight,
		Timestamp: key.Timestamp,
		Premium:   premium.Dec(),
	}))
	return err
}

func (e *Engine) IsPassengerInsured(passenger string, key models.FlightKey) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.st.policies[policyKey{passenger: passenger, flight: key}]
	return ok
}

func (e *Engine) Policy(passenger string, key models.FlightKey) (PolicyInfo, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.st.policies[policyKey{passenger: passenger, flight: key}]
	if !ok {
		return PolicyInfo{}, false
	}
	return PolicyInfo{Passenger: passenger, Flight: key, Premium: p.premium.Clone(), PaidOut: p.paidOut}, true
}

// processFlightStatus plans the finalization of key's status: the
// FlightStatusInfo record and, for LateAirline, one credit per unpaid policy.
// A flight is finalized once; later calls fail with ErrStatusFinalized.
// Callers hold e.mu.
func (e *Engine) processFlightStatus(index uint8, key models.FlightKey, status models.StatusCode) ([]draft, error) {
	f, ok := e.st.flights[key]
	if !ok {
		return nil, ErrFlightNotRegistered
	}
	if f.finalized {
		return nil, ErrStatusFinalized
	}

	drafts := []draft{event(EventFlightStatusInfo, models.FlightStatusInfo{
		Index:     index,
		Airline:   key.Airline,
		Flight:    key.Flight,
		Timestamp: key.Timestamp,
		Status:    status,
	})}
	if status != models.StatusLateAirline {
		return drafts, nil
	}
	for _, passenger := range f.passengers {
		p := e.st.policies[policyKey{passenger: passenger, flight: key}]
		if p == nil || p.paidOut {
			continue
		}
		drafts = append(drafts, event(EventInsureeCredited, insureeCredited{
			Passenger: passenger,
			Airline:   key.Airline,
			Flight:    key.Flight,
			Timestamp: key.Timestamp,
			Amount:    payout(p.premium).Dec(),
		}))
	}
	return drafts, nil
}

// GetPassengerCredits returns the passenger's withdrawable balance
func (e *Engine) GetPassengerCredits(passenger string) *uint256.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st.creditsOf(passenger).Clone()
}

// WithdrawCredits pays out the passenger's full balance. The balance is zeroed
// in the journal before the transfer runs, so a concurrent or re-entrant
// withdrawal sees nothing to pay. A failed transfer restores the balance.
func (e *Engine) WithdrawCredits(ctx context.Context, passenger string) (*uint256.Int, error) {
	amount, err := e.debitCredits(ctx, passenger)
	if err != nil {
		return nil, err
	}

	if err := e.transfer.Transfer(ctx, passenger, amount); err != nil {
		e.logger.Warn("credit transfer failed, restoring balance",
			zap.String("passenger", passenger),
			zap.String("amount", amount.Dec()),
			zap.Error(err),
		)
		if rerr := e.restoreCredits(context.WithoutCancel(ctx), passenger, amount); rerr != nil {
			e.logger.Error("failed to restore credits",
				zap.String("passenger", passenger),
				zap.String("amount", amount.Dec()),
				zap.Error(rerr),
			)
			return nil, fmt.Errorf("%w: %v; restore failed: %v", ErrTransferFailed, err, rerr)
		}
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	e.logger.Info("credits withdrawn", zap.String("passenger", passenger), zap.String("amount", amount.Dec()))
	return amount, nil
}

func (e *Engine) debitCredits(ctx context.Context, passenger string) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOperational(); err != nil {
		return nil, err
	}
	amount := e.st.creditsOf(passenger).Clone()
	if amount.IsZero() {
		return nil, ErrNoCredits
	}
	if e.st.reserves.Lt(amount) {
		return nil, ErrInsufficientReserves
	}
	if _, err := e.commit(ctx, event(EventCreditsWithdrawn, creditsMoved{
		Passenger: passenger,
		Amount:    amount.Dec(),
	})); err != nil {
		return nil, err
	}
	return amount, nil
}

func (e *Engine) restoreCredits(ctx context.Context, passenger string, amount *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.commit(ctx, event(EventCreditsRestored, creditsMoved{
		Passenger: passenger,
		Amount:    amount.Dec(),
	}))
	return err
}
