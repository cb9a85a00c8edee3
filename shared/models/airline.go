package models

// AirlineStatus is the admission state of an airline
type AirlineStatus string

const (
	AirlineUnregistered AirlineStatus = "unregistered"
	AirlineRegistered   AirlineStatus = "registered"
	AirlineFunded       AirlineStatus = "funded"
)

// Airline represents an airline and its funding
type Airline struct {
	Address    string        `json:"address"`
	Status     AirlineStatus `json:"status"`
	Registered bool          `json:"registered"`
	Funded     bool          `json:"funded"`
	Funds      string        `json:"funds"`
	Votes      int           `json:"votes"`
}

// RegisterAirlineRequest proposes (or votes for) a candidate airline
type RegisterAirlineRequest struct {
	Candidate string `json:"candidate"`
}

// RegisterAirlineResponse reports the outcome of a proposal
type RegisterAirlineResponse struct {
	Candidate string `json:"candidate"`
	Admitted  bool   `json:"admitted"`
	Votes     int    `json:"votes"`
	Required  int    `json:"required"`
}

// FundRequest carries an airline's funding payment in wei
type FundRequest struct {
	Amount string `json:"amount"`
}

// OperatingStatus is the body of GET and PUT /api/operational
type OperatingStatus struct {
	Operational bool `json:"operational"`
}
