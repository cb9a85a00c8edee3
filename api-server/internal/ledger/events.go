package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/cx-tal-miterani/flight-surety/api-server/internal/journal"
	"github.com/cx-tal-miterani/flight-surety/shared/models"
)

// Journal record types
const (
	EventOperatingStatusChanged = "OperatingStatusChanged"
	EventAirlineVoted           = "AirlineVoted"
	EventAirlineRegistered      = "AirlineRegistered"
	EventAirlineFunded          = "AirlineFunded"
	EventFlightRegistered       = "FlightRegistered"
	EventInsurancePurchased     = "InsurancePurchased"
	EventOracleRegistered       = "OracleRegistered"
	EventOracleRequest          = models.EventOracleRequest
	EventOracleReport           = "OracleReport"
	EventFlightStatusInfo       = models.EventFlightStatusInfo
	EventInsureeCredited        = "InsureeCredited"
	EventCreditsWithdrawn       = "CreditsWithdrawn"
	EventCreditsRestored        = "CreditsRestored"
)

// EventTypes lists every record type the ledger writes
var EventTypes = []string{
	EventOperatingStatusChanged,
	EventAirlineVoted,
	EventAirlineRegistered,
	EventAirlineFunded,
	EventFlightRegistered,
	EventInsurancePurchased,
	EventOracleRegistered,
	EventOracleRequest,
	EventOracleReport,
	EventFlightStatusInfo,
	EventInsureeCredited,
	EventCreditsWithdrawn,
	EventCreditsRestored,
}

type operatingStatusChanged struct {
	Operational bool   `json:"operational"`
	By          string `json:"by"`
}

type airlineVoted struct {
	Candidate string `json:"candidate"`
	Voter     string `json:"voter"`
}

type airlineRegistered struct {
	Airline string `json:"airline"`
	By      string `json:"by,omitempty"`
}

type airlineFunded struct {
	Airline string `json:"airline"`
	Amount  string `json:"amount"`
	Funded  bool   `json:"funded"`
}

type flightRegistered struct {
	Airline     string `json:"airline"`
	Flight      string `json:"flight"`
	Timestamp   int64  `json:"timestamp"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

type insurancePurchased struct {
	Passenger string `json:"passenger"`
	Airline   string `json:"airline"`
	Flight    string `json:"flight"`
	Timestamp int64  `json:"timestamp"`
	Premium   string `json:"premium"`
}

type oracleRegistered struct {
	Oracle  string   `json:"oracle"`
	Stake   string   `json:"stake"`
	Indexes [3]uint8 `json:"indexes"`
}

type oracleReport struct {
	Oracle    string            `json:"oracle"`
	Index     uint8             `json:"index"`
	Airline   string            `json:"airline"`
	Flight    string            `json:"flight"`
	Timestamp int64             `json:"timestamp"`
	Status    models.StatusCode `json:"status"`
}

type insureeCredited struct {
	Passenger string `json:"passenger"`
	Airline   string `json:"airline"`
	Flight    string `json:"flight"`
	Timestamp int64  `json:"timestamp"`
	Amount    string `json:"amount"`
}

type creditsMoved struct {
	Passenger string `json:"passenger"`
	Amount    string `json:"amount"`
}

// draft is an event planned by an operation but not yet committed
type draft struct {
	typ     string
	payload any
}

func event(typ string, payload any) draft {
	return draft{typ: typ, payload: payload}
}

func decode[T any](rec journal.Record) (T, error) {
	var v T
	if err := json.Unmarshal(rec.Data, &v); err != nil {
		return v, fmt.Errorf("failed to decode %s record %d: %w", rec.Type, rec.Offset, err)
	}
	return v, nil
}

func parseAmount(rec journal.Record, v string) (*uint256.Int, error) {
	amount, err := uint256.FromDecimal(v)
	if err != nil {
		return nil, fmt.Errorf("bad amount in %s record %d: %w", rec.Type, rec.Offset, err)
	}
	return amount, nil
}
