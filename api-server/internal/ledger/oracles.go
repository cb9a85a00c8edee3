package ledger

import (
	"context"
	"strconv"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/cx-tal-miterani/flight-surety/shared/models"
)

// StatusRequest is an opened (or re-broadcast) status request and the journal
// offset of its OracleRequest record
type StatusRequest struct {
	Offset  uint64
	Request models.OracleRequest
}

// Report is the outcome of an accepted oracle response
type Report struct {
	Finalized bool
	Status    models.StatusCode
	// Votes is the number of matching responses for Status on this request
	Votes int
}

// drawIndex draws one topic index bound to parts and the engine nonce.
// Callers hold e.mu.
func (e *Engine) drawIndex(parts ...string) uint8 {
	seed := drawSeed(e.nonce, parts...)
	e.nonce++
	return e.entropy.Draw(seed, TopicSpace) % TopicSpace
}

// RegisterOracle registers principal with a stake of at least the oracle fee
// and assigns it three topic indexes. Duplicates among the three are allowed.
func (e *Engine) RegisterOracle(ctx context.Context, principal string, stake *uint256.Int) ([3]uint8, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOperational(); err != nil {
		return [3]uint8{}, err
	}
	if principal == "" {
		return [3]uint8{}, ErrInvalidOracle
	}
	if _, ok := e.st.oracles[principal]; ok {
		return [3]uint8{}, ErrOracleAlreadyRegistered
	}
	if stake == nil || stake.Lt(e.params.OracleStake) {
		return [3]uint8{}, ErrInsufficientStake
	}
	if _, overflow := new(uint256.Int).AddOverflow(e.st.reserves, stake); overflow {
		return [3]uint8{}, ErrAmountOverflow
	}

	var indexes [3]uint8
	for i := range indexes {
		indexes[i] = e.drawIndex(principal)
	}
	if _, err := e.commit(ctx, event(EventOracleRegistered, oracleRegistered{
		Oracle:  principal,
		Stake:   stake.Dec(),
		Indexes: indexes,
	})); err != nil {
		return [3]uint8{}, err
	}
	e.logger.Debug("oracle registered", zap.String("oracle", principal), zap.Any("indexes", indexes))
	return indexes, nil
}

// GetMyIndexes returns the indexes assigned to principal
func (e *Engine) GetMyIndexes(principal string) ([3]uint8, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	indexes, ok := e.st.oracles[principal]
	if !ok {
		return [3]uint8{}, ErrOracleNotRegistered
	}
	return indexes, nil
}

// OracleCount returns the number of registered oracles
func (e *Engine) OracleCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.st.oracles)
}

// FetchFlightStatus opens a status request for a registered, not yet
// finalized flight under a pseudo-random index and emits OracleRequest. If
// the drawn request is already open it is broadcast again with its responses
// kept.
func (e *Engine) FetchFlightStatus(ctx context.Context, key models.FlightKey) (StatusRequest, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOperational(); err != nil {
		return StatusRequest{}, err
	}
	f, ok := e.st.flights[key]
	if !ok {
		return StatusRequest{}, ErrFlightNotRegistered
	}
	if f.finalized {
		return StatusRequest{}, ErrStatusFinalized
	}

	req := models.OracleRequest{
		Index:     e.drawIndex(key.Airline, key.Flight, strconv.FormatInt(key.Timestamp, 10)),
		Airline:   key.Airline,
		Flight:    key.Flight,
		Timestamp: key.Timestamp,
	}
	recs, err := e.commit(ctx, event(EventOracleRequest, req))
	if err != nil {
		return StatusRequest{}, err
	}
	e.logger.Info("status requested", zap.Stringer("flight", key), zap.Uint8("index", req.Index))
	return StatusRequest{Offset: recs[0].Offset, Request: req}, nil
}

// SubmitOracleResponse records reporter's status for request (index, key).
// Each oracle answers a request once. The response that brings one status to
// Quorum matching votes closes the request and finalizes the flight, paying
// out insurees when the status is LateAirline.
func (e *Engine) SubmitOracleResponse(ctx context.Context, reporter string, index uint8, key models.FlightKey, status models.StatusCode) (Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOperational(); err != nil {
		return Report{}, err
	}
	if !status.Valid() {
		return Report{}, ErrInvalidStatusCode
	}
	indexes, ok := e.st.oracles[reporter]
	if !ok {
		return Report{}, ErrOracleNotRegistered
	}
	if indexes[0] != index && indexes[1] != index && indexes[2] != index {
		return Report{}, ErrIndexNotAssigned
	}
	req, ok := e.st.requests[requestKey{index: index, flight: key}]
	if !ok {
		return Report{}, ErrRequestNotFound
	}
	if f := e.st.flights[key]; !req.open || f == nil || f.finalized {
		return Report{}, ErrRequestClosed
	}
	if _, dup := req.responses[reporter]; dup {
		return Report{}, ErrDuplicateResponse
	}

	votes := req.tally[status] + 1
	drafts := []draft{event(EventOracleReport, oracleReport{
		Oracle:    reporter,
		Index:     index,
		Airline:   key.Airline,
		Flight:    key.Flight,
		Timestamp: key.Timestamp,
		Status:    status,
	})}
	finalized := votes >= Quorum
	if finalized {
		more, err := e.processFlightStatus(index, key, status)
		if err != nil {
			return Report{}, err
		}
		drafts = append(drafts, more...)
	}
	if _, err := e.commit(ctx, drafts...); err != nil {
		return Report{}, err
	}

	if finalized {
		e.logger.Info("flight status finalized",
			zap.Stringer("flight", key),
			zap.Uint8("index", index),
			zap.Stringer("status", status),
			zap.Int("credited", len(drafts)-2),
		)
	}
	return Report{Finalized: finalized, Status: status, Votes: votes}, nil
}
