package models

import (
	"fmt"
	"strconv"
)

// StatusCode is the flight status reported by oracles
type StatusCode uint8

const (
	StatusUnknown       StatusCode = 0
	StatusOnTime        StatusCode = 10
	StatusLateAirline   StatusCode = 20
	StatusLateWeather   StatusCode = 30
	StatusLateTechnical StatusCode = 40
	StatusLateOther     StatusCode = 50
)

// StatusCodes lists every valid status code in ascending order
var StatusCodes = []StatusCode{
	StatusUnknown,
	StatusOnTime,
	StatusLateAirline,
	StatusLateWeather,
	StatusLateTechnical,
	StatusLateOther,
}

// Valid reports whether the code belongs to the closed enumeration
func (c StatusCode) Valid() bool {
	switch c {
	case StatusUnknown, StatusOnTime, StatusLateAirline,
		StatusLateWeather, StatusLateTechnical, StatusLateOther:
		return true
	}
	return false
}

func (c StatusCode) String() string {
	switch c {
	case StatusUnknown:
		return "unknown"
	case StatusOnTime:
		return "on_time"
	case StatusLateAirline:
		return "late_airline"
	case StatusLateWeather:
		return "late_weather"
	case StatusLateTechnical:
		return "late_technical"
	case StatusLateOther:
		return "late_other"
	}
	return "status_" + strconv.Itoa(int(c))
}

// FlightKey identifies a flight: airline, designator and scheduled departure
type FlightKey struct {
	Airline   string `json:"airline"`
	Flight    string `json:"flight"`
	Timestamp int64  `json:"timestamp"`
}

func (k FlightKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Airline, k.Flight, k.Timestamp)
}

// Flight represents a registered flight
type Flight struct {
	Airline      string     `json:"airline"`
	FlightNumber string     `json:"flightNumber"`
	Origin       string     `json:"origin"`
	Destination  string     `json:"destination"`
	Timestamp    int64      `json:"timestamp"`
	Registered   bool       `json:"registered"`
	StatusCode   StatusCode `json:"statusCode"`
	Status       string     `json:"status"`
	Finalized    bool       `json:"finalized"`
}

// RegisterFlightRequest is the body of POST /api/flights
type RegisterFlightRequest struct {
	FlightNumber string `json:"flightNumber"`
	Origin       string `json:"origin"`
	Destination  string `json:"destination"`
	Timestamp    int64  `json:"timestamp"`
}

// RegisterFlightResponse reports whether the flight key is registered
type RegisterFlightResponse struct {
	Flight     FlightKey `json:"flight"`
	Registered bool      `json:"registered"`
}
