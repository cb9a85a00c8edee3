package ledger

import (
	"context"

	"go.uber.org/zap"

	"github.com/cx-tal-miterani/flight-surety/shared/models"
)

// FlightInfo is a read-only view of a flight
type FlightInfo struct {
	Key         models.FlightKey
	Origin      string
	Destination string
	Status      models.StatusCode
	Finalized   bool
}

func (f *flight) info() FlightInfo {
	return FlightInfo{
		Key:         f.key,
		Origin:      f.origin,
		Destination: f.destination,
		Status:      f.status,
		Finalized:   f.finalized,
	}
}

// RegisterFlight registers key for the calling airline, which must own the key
// and be Funded. Registering an existing key again reports true and changes
// nothing.
func (e *Engine) RegisterFlight(ctx context.Context, caller string, key models.FlightKey, origin, destination string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOperational(); err != nil {
		return false, err
	}
	if key.Flight == "" {
		return false, ErrInvalidFlight
	}
	if caller != key.Airline {
		return false, ErrNotFlightOwner
	}
	if !e.st.isFunded(caller) {
		return false, ErrAirlineNotFunded
	}
	if _, ok := e.st.flights[key]; ok {
		return true, nil
	}

	if _, err := e.commit(ctx, event(EventFlightRegistered, flightRegistered{
		Airline:     key.Airline,
		Flight:      key.Flight,
		Timestamp:   key.Timestamp,
		Origin:      origin,
		Destination: destination,
	})); err != nil {
		return false, err
	}
	e.logger.Info("flight registered", zap.Stringer("flight", key))
	return true, nil
}

func (e *Engine) IsRegisteredFlight(key models.FlightKey) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.st.flights[key]
	return ok
}

func (e *Engine) Flight(key models.FlightKey) (FlightInfo, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	f, ok := e.st.flights[key]
	if !ok {
		return FlightInfo{}, false
	}
	return f.info(), true
}

// ListFlights returns every flight ordered by scheduled departure
func (e *Engine) ListFlights() []FlightInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]FlightInfo, 0, e.st.byDeparture.Len())
	e.st.byDeparture.Ascend(func(f *flight) bool {
		out = append(out, f.info())
		return true
	})
	return out
}
