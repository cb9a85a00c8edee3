package models

// BuyInsuranceRequest is the body of a premium payment; Premium is in wei
type BuyInsuranceRequest struct {
	Premium string `json:"premium"`
}

// Policy is a passenger's coverage on a single flight
type Policy struct {
	Passenger string    `json:"passenger"`
	Flight    FlightKey `json:"flight"`
	Premium   string    `json:"premium"`
	Insured   bool      `json:"insured"`
	PaidOut   bool      `json:"paidOut"`
}

// CreditsResponse reports a passenger's withdrawable balance in wei
type CreditsResponse struct {
	Passenger string `json:"passenger"`
	Credits   string `json:"credits"`
}

// WithdrawResponse reports the amount transferred by a withdrawal
type WithdrawResponse struct {
	Passenger string `json:"passenger"`
	Amount    string `json:"amount"`
}
