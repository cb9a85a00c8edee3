package models

import (
	"encoding/json"
	"time"
)

// Event types observable on the event stream
const (
	EventOracleRequest    = "OracleRequest"
	EventFlightStatusInfo = "FlightStatusInfo"
)

// OracleRequest asks oracles holding Index to report a flight's status
type OracleRequest struct {
	Index     uint8  `json:"index"`
	Airline   string `json:"airline"`
	Flight    string `json:"flight"`
	Timestamp int64  `json:"timestamp"`
}

// FlightKey returns the flight the request is about
func (r OracleRequest) FlightKey() FlightKey {
	return FlightKey{Airline: r.Airline, Flight: r.Flight, Timestamp: r.Timestamp}
}

// FlightStatusInfo is emitted once a status request reaches quorum
type FlightStatusInfo struct {
	Index     uint8      `json:"index"`
	Airline   string     `json:"airline"`
	Flight    string     `json:"flight"`
	Timestamp int64      `json:"timestamp"`
	Status    StatusCode `json:"status"`
}

// RegisterOracleRequest carries the registration stake in wei
type RegisterOracleRequest struct {
	Stake string `json:"stake"`
}

// OracleIndexesResponse lists the topic indexes assigned to an oracle
type OracleIndexesResponse struct {
	Oracle  string   `json:"oracle"`
	Indexes [3]uint8 `json:"indexes"`
}

// SubmitOracleResponseRequest is an oracle's status report
type SubmitOracleResponseRequest struct {
	Index      uint8      `json:"index"`
	Airline    string     `json:"airline"`
	Flight     string     `json:"flight"`
	Timestamp  int64      `json:"timestamp"`
	StatusCode StatusCode `json:"statusCode"`
}

// SubmitOracleResponseResult reports what the engine did with a report
type SubmitOracleResponseResult struct {
	Accepted   bool       `json:"accepted"`
	Finalized  bool       `json:"finalized"`
	StatusCode StatusCode `json:"statusCode"`
	Votes      int        `json:"votes"`
}

// Event is a committed journal record as served by /api/events
type Event struct {
	Offset    uint64          `json:"offset"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventsResponse is a page of the event stream
type EventsResponse struct {
	Events []Event `json:"events"`
	Next   uint64  `json:"next"`
}

// ErrorResponse is the body of every non-2xx API response
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// FetchStatusResponse identifies the status request opened for a flight.
// Offset is the position of its OracleRequest event on the stream.
type FetchStatusResponse struct {
	Offset  uint64        `json:"offset"`
	Request OracleRequest `json:"request"`
}
