package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cx-tal-miterani/flight-surety/api-server/internal/service"
	"github.com/cx-tal-miterani/flight-surety/shared/models"
)

// MockSuretyService is a mock implementation of SuretyService
type MockSuretyService struct {
	mock.Mock
}

var _ service.SuretyService = (*MockSuretyService)(nil)

func (m *MockSuretyService) GetOperatingStatus(ctx context.Context) *models.OperatingStatus {
	args := m.Called(ctx)
	return args.Get(0).(*models.OperatingStatus)
}

func (m *MockSuretyService) SetOperatingStatus(ctx context.Context, caller string, operational bool) error {
	args := m.Called(ctx, caller, operational)
	return args.Error(0)
}

func (m *MockSuretyService) GetAirline(ctx context.Context, address string) *models.Airline {
	args := m.Called(ctx, address)
	return args.Get(0).(*models.Airline)
}

func (m *MockSuretyService) RegisterAirline(ctx context.Context, caller string, req *models.RegisterAirlineRequest) (*models.RegisterAirlineResponse, error) {
	args := m.Called(ctx, caller, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RegisterAirlineResponse), args.Error(1)
}

func (m *MockSuretyService) FundAirline(ctx context.Context, caller string, req *models.FundRequest) (*models.Airline, error) {
	args := m.Called(ctx, caller, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Airline), args.Error(1)
}

func (m *MockSuretyService) GetFlights(ctx context.Context) []*models.Flight {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*models.Flight)
}

func (m *MockSuretyService) GetFlight(ctx context.Context, key models.FlightKey) (*models.Flight, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Flight), args.Error(1)
}

func (m *MockSuretyService) RegisterFlight(ctx context.Context, caller string, req *models.RegisterFlightRequest) (*models.RegisterFlightResponse, error) {
	args := m.Called(ctx, caller, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RegisterFlightResponse), args.Error(1)
}

func (m *MockSuretyService) BuyInsurance(ctx context.Context, caller string, key models.FlightKey, req *models.BuyInsuranceRequest) (*models.Policy, error) {
	args := m.Called(ctx, caller, key, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Policy), args.Error(1)
}

func (m *MockSuretyService) GetPolicy(ctx context.Context, passenger string, key models.FlightKey) *models.Policy {
	args := m.Called(ctx, passenger, key)
	return args.Get(0).(*models.Policy)
}

func (m *MockSuretyService) GetCredits(ctx context.Context, passenger string) *models.CreditsResponse {
	args := m.Called(ctx, passenger)
	return args.Get(0).(*models.CreditsResponse)
}

func (m *MockSuretyService) WithdrawCredits(ctx context.Context, caller string) (*models.WithdrawResponse, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WithdrawResponse), args.Error(1)
}

func (m *MockSuretyService) FetchFlightStatus(ctx context.Context, key models.FlightKey) (*models.FetchStatusResponse, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FetchStatusResponse), args.Error(1)
}

func (m *MockSuretyService) RegisterOracle(ctx context.Context, caller string, req *models.RegisterOracleRequest) (*models.OracleIndexesResponse, error) {
	args := m.Called(ctx, caller, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OracleIndexesResponse), args.Error(1)
}

func (m *MockSuretyService) GetOracleIndexes(ctx context.Context, address string) (*models.OracleIndexesResponse, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OracleIndexesResponse), args.Error(1)
}

func (m *MockSuretyService) SubmitOracleResponse(ctx context.Context, caller string, req *models.SubmitOracleResponseRequest) (*models.SubmitOracleResponseResult, error) {
	args := m.Called(ctx, caller, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubmitOracleResponseResult), args.Error(1)
}

func (m *MockSuretyService) GetEvents(ctx context.Context, q service.EventQuery) (*models.EventsResponse, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EventsResponse), args.Error(1)
}
