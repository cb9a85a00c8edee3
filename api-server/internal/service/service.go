package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/cx-tal-miterani/flight-surety/api-server/internal/journal"
	"github.com/cx-tal-miterani/flight-surety/api-server/internal/ledger"
	"github.com/cx-tal-miterani/flight-surety/api-server/internal/metrics"
	"github.com/cx-tal-miterani/flight-surety/shared/models"
)

const (
	DefaultEventLimit = 100
	MaxEventLimit     = 1000
	eventPageSize     = 256
)

var (
	ErrInvalidAmount = fmt.Errorf("%w: amount must be a decimal wei string", ledger.ErrInvalidInput)
	ErrNoCaller      = fmt.Errorf("%w: caller identity required", ledger.ErrUnauthorized)
)

// EventQuery selects a page of the event stream
type EventQuery struct {
	From uint64
	// Types filters by record type; empty means all
	Types []string
	Limit int
	// Wait long-polls up to this long when no matching event exists yet
	Wait time.Duration
}

// SuretyService defines the flight surety service interface
type SuretyService interface {
	GetOperatingStatus(ctx context.Context) *models.OperatingStatus
	SetOperatingStatus(ctx context.Context, caller string, operational bool) error

	GetAirline(ctx context.Context, address string) *models.Airline
	RegisterAirline(ctx context.Context, caller string, req *models.RegisterAirlineRequest) (*models.RegisterAirlineResponse, error)
	FundAirline(ctx context.Context, caller string, req *models.FundRequest) (*models.Airline, error)

	GetFlights(ctx context.Context) []*models.Flight
	GetFlight(ctx context.Context, key models.FlightKey) (*models.Flight, error)
	RegisterFlight(ctx context.Context, caller string, req *models.RegisterFlightRequest) (*models.RegisterFlightResponse, error)

	BuyInsurance(ctx context.Context, caller string, key models.FlightKey, req *models.BuyInsuranceRequest) (*models.Policy, error)
	GetPolicy(ctx context.Context, passenger string, key models.FlightKey) *models.Policy
	GetCredits(ctx context.Context, passenger string) *models.CreditsResponse
	WithdrawCredits(ctx context.Context, caller string) (*models.WithdrawResponse, error)

	FetchFlightStatus(ctx context.Context, key models.FlightKey) (*models.FetchStatusResponse, error)
	RegisterOracle(ctx context.Context, caller string, req *models.RegisterOracleRequest) (*models.OracleIndexesResponse, error)
	GetOracleIndexes(ctx context.Context, address string) (*models.OracleIndexesResponse, error)
	SubmitOracleResponse(ctx context.Context, caller string, req *models.SubmitOracleResponseRequest) (*models.SubmitOracleResponseResult, error)

	GetEvents(ctx context.Context, q EventQuery) (*models.EventsResponse, error)
}

// suretyServiceImpl implements SuretyService on the ledger engine
type suretyServiceImpl struct {
	engine      *ledger.Engine
	feed        *journal.Feed
	metrics     *metrics.Metrics
	logger      *zap.Logger
	maxPollWait time.Duration
}

// NewSuretyService creates a new SuretyService. feed must be registered as a
// listener of engine.
func NewSuretyService(engine *ledger.Engine, feed *journal.Feed, m *metrics.Metrics, logger *zap.Logger, maxPollWait time.Duration) SuretyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &suretyServiceImpl{
		engine:      engine,
		feed:        feed,
		metrics:     m,
		logger:      logger.With(zap.String("component", "service")),
		maxPollWait: maxPollWait,
	}
	if m != nil {
		m.SetReserves(engine.Reserves())
	}
	return s
}

// observe records the outcome of a mutating operation
func (s *suretyServiceImpl) observe(op string, err error) {
	if s.metrics != nil {
		s.metrics.Observe(op, err)
		s.metrics.SetReserves(s.engine.Reserves())
	}
	if err != nil && ledger.KindOf(err) == "internal" {
		s.logger.Error("operation failed", zap.String("operation", op), zap.Error(err))
	}
}

func parseAmount(v string) (*uint256.Int, error) {
	amount, err := uint256.FromDecimal(strings.TrimSpace(v))
	if err != nil {
		return nil, ErrInvalidAmount
	}
	return amount, nil
}

func requireCaller(caller string) error {
	if caller == "" {
		return ErrNoCaller
	}
	return nil
}

// --- Operational gate ---

func (s *suretyServiceImpl) GetOperatingStatus(ctx context.Context) *models.OperatingStatus {
	return &models.OperatingStatus{Operational: s.engine.IsOperational()}
}

func (s *suretyServiceImpl) SetOperatingStatus(ctx context.Context, caller string, operational bool) error {
	err := s.engine.SetOperatingStatus(ctx, caller, operational)
	s.observe("setOperatingStatus", err)
	return err
}

// --- Airlines ---

func (s *suretyServiceImpl) GetAirline(ctx context.Context, address string) *models.Airline {
	return airlineToModel(s.engine.Airline(address))
}

func (s *suretyServiceImpl) RegisterAirline(ctx context.Context, caller string, req *models.RegisterAirlineRequest) (*models.RegisterAirlineResponse, error) {
	res, err := s.registerAirline(ctx, caller, req)
	s.observe("registerAirline", err)
	return res, err
}

func (s *suretyServiceImpl) registerAirline(ctx context.Context, caller string, req *models.RegisterAirlineRequest) (*models.RegisterAirlineResponse, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	adm, err := s.engine.RegisterAirline(ctx, caller, strings.TrimSpace(req.Candidate))
	if err != nil {
		return nil, err
	}
	return &models.RegisterAirlineResponse{
		Candidate: adm.Candidate,
		Admitted:  adm.Admitted,
		Votes:     adm.Votes,
		Required:  adm.Required,
	}, nil
}

func (s *suretyServiceImpl) FundAirline(ctx context.Context, caller string, req *models.FundRequest) (*models.Airline, error) {
	res, err := s.fundAirline(ctx, caller, req)
	s.observe("fund", err)
	return res, err
}

func (s *suretyServiceImpl) fundAirline(ctx context.Context, caller string, req *models.FundRequest) (*models.Airline, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Fund(ctx, caller, amount); err != nil {
		return nil, err
	}
	return airlineToModel(s.engine.Airline(caller)), nil
}

// --- Flights ---

func (s *suretyServiceImpl) GetFlights(ctx context.Context) []*models.Flight {
	infos := s.engine.ListFlights()
	flights := make([]*models.Flight, 0, len(infos))
	for _, info := range infos {
		flights = append(flights, FlightToModel(info))
	}
	return flights
}

func (s *suretyServiceImpl) GetFlight(ctx context.Context, key models.FlightKey) (*models.Flight, error) {
	info, ok := s.engine.Flight(key)
	if !ok {
		return nil, ledger.ErrFlightNotRegistered
	}
	return FlightToModel(info), nil
}

func (s *suretyServiceImpl) RegisterFlight(ctx context.Context, caller string, req *models.RegisterFlightRequest) (*models.RegisterFlightResponse, error) {
	res, err := s.registerFlight(ctx, caller, req)
	s.observe("registerFlight", err)
	return res, err
}

func (s *suretyServiceImpl) registerFlight(ctx context.Context, caller string, req *models.RegisterFlightRequest) (*models.RegisterFlightResponse, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	key := models.FlightKey{
		Airline:   caller,
		Flight:    strings.TrimSpace(req.FlightNumber),
		Timestamp: req.Timestamp,
	}
	registered, err := s.engine.RegisterFlight(ctx, caller, key,
		strings.TrimSpace(req.Origin), strings.TrimSpace(req.Destination))
	if err != nil {
		return nil, err
	}
	return &models.RegisterFlightResponse{Flight: key, Registered: registered}, nil
}

// --- Insurance ---

func (s *suretyServiceImpl) BuyInsurance(ctx context.Context, caller string, key models.FlightKey, req *models.BuyInsuranceRequest) (*models.Policy, error) {
	res, err := s.buyInsurance(ctx, caller, key, req)
	s.observe("buyInsurance", err)
	return res, err
}

func (s *suretyServiceImpl) buyInsurance(ctx context.Context, caller string, key models.FlightKey, req *models.BuyInsuranceRequest) (*models.Policy, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	premium, err := parseAmount(req.Premium)
	if err != nil {
		return nil, err
	}
	if err := s.engine.BuyInsurance(ctx, caller, key, premium); err != nil {
		return nil, err
	}
	return s.GetPolicy(ctx, caller, key), nil
}

func (s *suretyServiceImpl) GetPolicy(ctx context.Context, passenger string, key models.FlightKey) *models.Policy {
	p, ok := s.engine.Policy(passenger, key)
	if !ok {
		return &models.Policy{Passenger: passenger, Flight: key, Premium: "0"}
	}
	return &models.Policy{
		Passenger: passenger,
		Flight:    key,
		Premium:   p.Premium.Dec(),
		Insured:   true,
		PaidOut:   p.PaidOut,
	}
}

func (s *suretyServiceImpl) GetCredits(ctx context.Context, passenger string) *models.CreditsResponse {
	return &models.CreditsResponse{
		Passenger: passenger,
		Credits:   s.engine.GetPassengerCredits(passenger).Dec(),
	}
}

func (s *suretyServiceImpl) WithdrawCredits(ctx context.Context, caller string) (*models.WithdrawResponse, error) {
	res, err := s.withdrawCredits(ctx, caller)
	s.observe("withdrawCredits", err)
	return res, err
}

func (s *suretyServiceImpl) withdrawCredits(ctx context.Context, caller string) (*models.WithdrawResponse, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	amount, err := s.engine.WithdrawCredits(ctx, caller)
	if err != nil {
		return nil, err
	}
	return &models.WithdrawResponse{Passenger: caller, Amount: amount.Dec()}, nil
}

// --- Oracles ---

func (s *suretyServiceImpl) FetchFlightStatus(ctx context.Context, key models.FlightKey) (*models.FetchStatusResponse, error) {
	req, err := s.engine.FetchFlightStatus(ctx, key)
	s.observe("fetchFlightStatus", err)
	if err != nil {
		return nil, err
	}
	return &models.FetchStatusResponse{Offset: req.Offset, Request: req.Request}, nil
}

func (s *suretyServiceImpl) RegisterOracle(ctx context.Context, caller string, req *models.RegisterOracleRequest) (*models.OracleIndexesResponse, error) {
	res, err := s.registerOracle(ctx, caller, req)
	s.observe("registerOracle", err)
	return res, err
}

func (s *suretyServiceImpl) registerOracle(ctx context.Context, caller string, req *models.RegisterOracleRequest) (*models.OracleIndexesResponse, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	stake, err := parseAmount(req.Stake)
	if err != nil {
		return nil, err
	}
	indexes, err := s.engine.RegisterOracle(ctx, caller, stake)
	if err != nil {
		return nil, err
	}
	return &models.OracleIndexesResponse{Oracle: caller, Indexes: indexes}, nil
}

func (s *suretyServiceImpl) GetOracleIndexes(ctx context.Context, address string) (*models.OracleIndexesResponse, error) {
	indexes, err := s.engine.GetMyIndexes(address)
	if err != nil {
		return nil, err
	}
	return &models.OracleIndexesResponse{Oracle: address, Indexes: indexes}, nil
}

func (s *suretyServiceImpl) SubmitOracleResponse(ctx context.Context, caller string, req *models.SubmitOracleResponseRequest) (*models.SubmitOracleResponseResult, error) {
	res, err := s.submitOracleResponse(ctx, caller, req)
	s.observe("submitOracleResponse", err)
	return res, err
}

func (s *suretyServiceImpl) submitOracleResponse(ctx context.Context, caller string, req *models.SubmitOracleResponseRequest) (*models.SubmitOracleResponseResult, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	key := models.FlightKey{Airline: req.Airline, Flight: req.Flight, Timestamp: req.Timestamp}
	rep, err := s.engine.SubmitOracleResponse(ctx, caller, req.Index, key, req.StatusCode)
	if err != nil {
		return nil, err
	}
	return &models.SubmitOracleResponseResult{
		Accepted:   true,
		Finalized:  rep.Finalized,
		StatusCode: rep.Status,
		Votes:      rep.Votes,
	}, nil
}

// --- Events ---

// GetEvents returns up to q.Limit matching events from q.From. With q.Wait
// set it blocks until a matching event is committed or the wait expires, in
// which case the page is empty.
func (s *suretyServiceImpl) GetEvents(ctx context.Context, q EventQuery) (*models.EventsResponse, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	if limit > MaxEventLimit {
		limit = MaxEventLimit
	}
	wait := q.Wait
	if s.maxPollWait > 0 && wait > s.maxPollWait {
		wait = s.maxPollWait
	}
	if wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wait)
		defer cancel()
	}

	next := q.From
	for {
		events, scanned, err := s.scan(ctx, next, q.Types, limit)
		if err != nil {
			if wait > 0 && errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return nil, err
		}
		next = scanned
		if len(events) > 0 || wait <= 0 {
			return &models.EventsResponse{Events: events, Next: next}, nil
		}
		if _, err := s.feed.Wait(ctx, next); err != nil {
			break
		}
	}
	return &models.EventsResponse{Events: []models.Event{}, Next: next}, nil
}

// scan reads committed records from next, keeping those matching types, and
// returns the offset after the last record it looked at
func (s *suretyServiceImpl) scan(ctx context.Context, next uint64, types []string, limit int) ([]models.Event, uint64, error) {
	events := []models.Event{}
	head := s.feed.Head()
	for next < head && len(events) < limit {
		page, err := s.engine.Store().Read(ctx, next, eventPageSize)
		if err != nil {
			return nil, next, fmt.Errorf("failed to read events: %w", err)
		}
		if len(page) == 0 {
			break
		}
		for _, rec := range page {
			if rec.Offset >= head {
				return events, next, nil
			}
			next = rec.Offset + 1
			if matches(types, rec.Type) {
				events = append(events, EventToModel(rec))
				if len(events) == limit {
					break
				}
			}
		}
	}
	return events, next, nil
}

func matches(types []string, typ string) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == typ {
			return true
		}
	}
	return false
}

// --- Conversions ---

func airlineToModel(a ledger.AirlineInfo) *models.Airline {
	return &models.Airline{
		Address:    a.Address,
		Status:     a.Status,
		Registered: a.Status == models.AirlineRegistered || a.Status == models.AirlineFunded,
		Funded:     a.Status == models.AirlineFunded,
		Funds:      a.Funds.Dec(),
		Votes:      a.Votes,
	}
}

// FlightToModel converts a flight view to its wire form
func FlightToModel(f ledger.FlightInfo) *models.Flight {
	return &models.Flight{
		Airline:      f.Key.Airline,
		FlightNumber: f.Key.Flight,
		Origin:       f.Origin,
		Destination:  f.Destination,
		Timestamp:    f.Key.Timestamp,
		Registered:   true,
		StatusCode:   f.Status,
		Status:       f.Status.String(),
		Finalized:    f.Finalized,
	}
}

// EventToModel converts a journal record to its wire form
func EventToModel(rec journal.Record) models.Event {
	return models.Event{
		Offset:    rec.Offset,
		Type:      rec.Type,
		Timestamp: rec.Time,
		Data:      rec.Data,
	}
}

