package ledger

import (
	"fmt"

	"github.com/google/btree"
	"github.com/holiman/uint256"

	"github.com/cx-tal-miterani/flight-surety/api-server/internal/journal"
	"github.com/cx-tal-miterani/flight-surety/shared/models"
)

type airline struct {
	address string
	status  models.AirlineStatus
	funds   *uint256.Int
	// voters for a pending candidate, cleared on admission
	voters map[string]struct{}
}

func (a *airline) admitted() bool {
	return a.status == models.AirlineRegistered || a.status == models.AirlineFunded
}

type flight struct {
	key         models.FlightKey
	origin      string
	destination string
	status      models.StatusCode
	finalized   bool
	// passengers in purchase order
	passengers []string
}

func flightLess(a, b *flight) bool {
	if a.key.Timestamp != b.key.Timestamp {
		return a.key.Timestamp < b.key.Timestamp
	}
	if a.key.Airline != b.key.Airline {
		return a.key.Airline < b.key.Airline
	}
	return a.key.Flight < b.key.Flight
}

type policyKey struct {
	passenger string
	flight    models.FlightKey
}

type policy struct {
	premium *uint256.Int
	paidOut bool
}

type requestKey struct {
	index  uint8
	flight models.FlightKey
}

type request struct {
	open      bool
	responses map[string]models.StatusCode
	tally     map[models.StatusCode]int
}

// state is the in-memory ledger. It is only ever changed by apply.
type state struct {
	operational bool
	airlines    map[string]*airline
	admitted    int
	funded      int
	flights     map[models.FlightKey]*flight
	byDeparture *btree.BTreeG[*flight]
	policies    map[policyKey]*policy
	credits     map[string]*uint256.Int
	oracles     map[string][3]uint8
	requests    map[requestKey]*request
	// value held: funding, premiums and stakes received minus withdrawals
	reserves *uint256.Int
}

func newState() *state {
	return &state{
		operational: true,
		airlines:    make(map[string]*airline),
		flights:     make(map[models.FlightKey]*flight),
		byDeparture: btree.NewG(16, flightLess),
		policies:    make(map[policyKey]*policy),
		credits:     make(map[string]*uint256.Int),
		oracles:     make(map[string][3]uint8),
		requests:    make(map[requestKey]*request),
		reserves:    new(uint256.Int),
	}
}

func (s *state) airline(address string) *airline {
	a, ok := s.airlines[address]
	if !ok {
		a = &airline{
			address: address,
			status:  models.AirlineUnregistered,
			funds:   new(uint256.Int),
		}
		s.airlines[address] = a
	}
	return a
}

func (s *state) isAdmitted(address string) bool {
	a, ok := s.airlines[address]
	return ok && a.admitted()
}

func (s *state) isFunded(address string) bool {
	a, ok := s.airlines[address]
	return ok && a.status == models.AirlineFunded
}

func (s *state) creditsOf(passenger string) *uint256.Int {
	if c, ok := s.credits[passenger]; ok {
		return c
	}
	return new(uint256.Int)
}

// apply folds one committed record into the state
func (s *state) apply(rec journal.Record) error {
	switch rec.Type {
	case EventOperatingStatusChanged:
		ev, err := decode[operatingStatusChanged](rec)
		if err != nil {
			return err
		}
		s.operational = ev.Operational

	case EventAirlineVoted:
		ev, err := decode[airlineVoted](rec)
		if err != nil {
			return err
		}
		a := s.airline(ev.Candidate)
		if a.voters == nil {
			a.voters = make(map[string]struct{})
		}
		a.voters[ev.Voter] = struct{}{}

	case EventAirlineRegistered:
		ev, err := decode[airlineRegistered](rec)
		if err != nil {
			return err
		}
		a := s.airline(ev.Airline)
		if !a.admitted() {
			a.status = models.AirlineRegistered
			a.voters = nil
			s.admitted++
		}

	case EventAirlineFunded:
		ev, err := decode[airlineFunded](rec)
		if err != nil {
			return err
		}
		amount, err := parseAmount(rec, ev.Amount)
		if err != nil {
			return err
		}
		a := s.airline(ev.Airline)
		a.funds = new(uint256.Int).Add(a.funds, amount)
		s.reserves = new(uint256.Int).Add(s.reserves, amount)
		if ev.Funded && a.status != models.AirlineFunded {
			a.status = models.AirlineFunded
			s.funded++
		}

	case EventFlightRegistered:
		ev, err := decode[flightRegistered](rec)
		if err != nil {
			return err
		}
		key := models.FlightKey{Airline: ev.Airline, Flight: ev.Flight, Timestamp: ev.Timestamp}
		if _, ok := s.flights[key]; !ok {
			f := &flight{key: key, origin: ev.Origin, destination: ev.Destination}
			s.flights[key] = f
			s.byDeparture.ReplaceOrInsert(f)
		}

	case EventInsurancePurchased:
		ev, err := decode[insurancePurchased](rec)
		if err != nil {
			return err
		}
		premium, err := parseAmount(rec, ev.Premium)
		if err != nil {
			return err
		}
		key := policyKey{
			passenger: ev.Passenger,
			flight:    models.FlightKey{Airline: ev.Airline, Flight: ev.Flight, Timestamp: ev.Timestamp},
		}
		p, ok := s.policies[key]
		if !ok {
			p = &policy{premium: new(uint256.Int)}
			s.policies[key] = p
			if f, ok := s.flights[key.flight]; ok {
				f.passengers = append(f.passengers, ev.Passenger)
			}
		}
		p.premium = new(uint256.Int).Add(p.premium, premium)
		s.reserves = new(uint256.Int).Add(s.reserves, premium)

	case EventOracleRegistered:
		ev, err := decode[oracleRegistered](rec)
		if err != nil {
			return err
		}
		stake, err := parseAmount(rec, ev.Stake)
		if err != nil {
			return err
		}
		s.oracles[ev.Oracle] = ev.Indexes
		s.reserves = new(uint256.Int).Add(s.reserves, stake)

	case EventOracleRequest:
		ev, err := decode[models.OracleRequest](rec)
		if err != nil {
			return err
		}
		key := requestKey{index: ev.Index, flight: ev.FlightKey()}
		if _, ok := s.requests[key]; !ok {
			s.requests[key] = &request{
				open:      true,
				responses: make(map[string]models.StatusCode),
				tally:     make(map[models.StatusCode]int),
			}
		}

	case EventOracleReport:
		ev, err := decode[oracleReport](rec)
		if err != nil {
			return err
		}
		key := requestKey{
			index:  ev.Index,
			flight: models.FlightKey{Airline: ev.Airline, Flight: ev.Flight, Timestamp: ev.Timestamp},
		}
		r, ok := s.requests[key]
		if !ok {
			return fmt.Errorf("report record %d for unknown request %d/%s", rec.Offset, key.index, key.flight)
		}
		if _, dup := r.responses[ev.Oracle]; !dup {
			r.responses[ev.Oracle] = ev.Status
			r.tally[ev.Status]++
		}

	case EventFlightStatusInfo:
		ev, err := decode[models.FlightStatusInfo](rec)
		if err != nil {
			return err
		}
		key := models.FlightKey{Airline: ev.Airline, Flight: ev.Flight, Timestamp: ev.Timestamp}
		if r, ok := s.requests[requestKey{index: ev.Index, flight: key}]; ok {
			r.open = false
		}
		if f, ok := s.flights[key]; ok {
			f.status = ev.Status
			f.finalized = true
		}

	case EventInsureeCredited:
		ev, err := decode[insureeCredited](rec)
		if err != nil {
			return err
		}
		amount, err := parseAmount(rec, ev.Amount)
		if err != nil {
			return err
		}
		s.credits[ev.Passenger] = new(uint256.Int).Add(s.creditsOf(ev.Passenger), amount)
		key := policyKey{
			passenger: ev.Passenger,
			flight:    models.FlightKey{Airline: ev.Airline, Flight: ev.Flight, Timestamp: ev.Timestamp},
		}
		if p, ok := s.policies[key]; ok {
			p.paidOut = true
		}

	case EventCreditsWithdrawn:
		ev, err := decode[creditsMoved](rec)
		if err != nil {
			return err
		}
		amount, err := parseAmount(rec, ev.Amount)
		if err != nil {
			return err
		}
		balance := s.creditsOf(ev.Passenger)
		if balance.Lt(amount) || s.reserves.Lt(amount) {
			return fmt.Errorf("withdrawal record %d exceeds balance", rec.Offset)
		}
		s.credits[ev.Passenger] = new(uint256.Int).Sub(balance, amount)
		s.reserves = new(uint256.Int).Sub(s.reserves, amount)

	case EventCreditsRestored:
		ev, err := decode[creditsMoved](rec)
		if err != nil {
			return err
		}
		amount, err := parseAmount(rec, ev.Amount)
		if err != nil {
			return err
		}
		s.credits[ev.Passenger] = new(uint256.Int).Add(s.creditsOf(ev.Passenger), amount)
		s.reserves = new(uint256.Int).Add(s.reserves, amount)

	default:
		return fmt.Errorf("unknown record type %q at offset %d", rec.Type, rec.Offset)
	}
	return nil
}
