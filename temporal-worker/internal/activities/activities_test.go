package activities

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/cx-tal-miterani/flight-surety/shared/models"
	"github.com/cx-tal-miterani/flight-surety/temporal-worker/internal/repository"
	"github.com/cx-tal-miterani/flight-surety/temporal-worker/internal/surety"
)

var request = models.OracleRequest{Index: 7, Airline: "0xairline", Flight: "SQ390", Timestamp: 1640928519}

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) RegisterOracle(ctx context.Context, caller, stake string) (*models.OracleIndexesResponse, error) {
	args := m.Called(ctx, caller, stake)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OracleIndexesResponse), args.Error(1)
}

func (m *mockAPI) GetIndexes(ctx context.Context, oracle string) (*models.OracleIndexesResponse, error) {
	args := m.Called(ctx, oracle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OracleIndexesResponse), args.Error(1)
}

func (m *mockAPI) SubmitResponse(ctx context.Context, oracle string, req models.OracleRequest, status models.StatusCode) (*models.SubmitOracleResponseResult, error) {
	args := m.Called(ctx, oracle, req, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubmitOracleResponseResult), args.Error(1)
}

type ActivitiesTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestActivityEnvironment
	api *mockAPI
}

func (s *ActivitiesTestSuite) SetupTest() {
	s.env = s.NewTestActivityEnvironment()
	s.api = new(mockAPI)
}

func (s *ActivitiesTestSuite) AfterTest(suiteName, testName string) {
	s.api.AssertExpectations(s.T())
}

func TestActivitiesTestSuite(t *testing.T) {
	suite.Run(t, new(ActivitiesTestSuite))
}

func (s *ActivitiesTestSuite) register(codes ...models.StatusCode) {
	acts := NewActivities(s.api, repository.NewMemoryStore(), nil, codes, nil)
	acts.Register(s.env)
}

func (s *ActivitiesTestSuite) TestPickStatusCode_FromConfiguredSet() {
	s.register(models.StatusUnknown, models.StatusOnTime, models.StatusLateAirline)

	for i := 0; i < 20; i++ {
		val, err := s.env.ExecuteActivity(models.ActivityPickStatusCode, "0xoracle", request)
		s.Require().NoError(err)
		var code models.StatusCode
		s.Require().NoError(val.Get(&code))
		s.Contains([]models.StatusCode{models.StatusUnknown, models.StatusOnTime, models.StatusLateAirline}, code)
	}
}

func (s *ActivitiesTestSuite) TestPickStatusCode_SingleCode() {
	s.register(models.StatusLateAirline)

	val, err := s.env.ExecuteActivity(models.ActivityPickStatusCode, "0xoracle", request)
	s.Require().NoError(err)
	var code models.StatusCode
	s.Require().NoError(val.Get(&code))
	s.Equal(models.StatusLateAirline, code)
}

func (s *ActivitiesTestSuite) TestSubmitOracleResponse_Success() {
	s.register(models.StatusLateAirline)
	s.api.On("SubmitResponse", mock.Anything, "0xoracle", request, models.StatusLateAirline).
		Return(&models.SubmitOracleResponseResult{Accepted: true, Finalized: true, Votes: 3, StatusCode: models.StatusLateAirline}, nil)

	val, err := s.env.ExecuteActivity(models.ActivitySubmitOracleResponse, models.SubmitOracleResponseInput{
		Oracle: "0xoracle", Request: request, StatusCode: models.StatusLateAirline,
	})
	s.Require().NoError(err)

	var res models.SubmitOracleResponseResult
	s.Require().NoError(val.Get(&res))
	s.True(res.Finalized)
	s.Equal(3, res.Votes)
}

func (s *ActivitiesTestSuite) TestSubmitOracleResponse_ConflictIsNotRetryable() {
	s.register(models.StatusOnTime)
	s.api.On("SubmitResponse", mock.Anything, "0xoracle", request, models.StatusOnTime).
		Return(nil, &surety.APIError{Status: http.StatusConflict, Kind: surety.KindConflict, Message: "status request closed"})

	_, err := s.env.ExecuteActivity(models.ActivitySubmitOracleResponse, models.SubmitOracleResponseInput{
		Oracle: "0xoracle", Request: request, StatusCode: models.StatusOnTime,
	})
	s.Require().Error(err)

	var appErr *temporal.ApplicationError
	s.Require().True(errors.As(err, &appErr))
	s.True(appErr.NonRetryable())
	s.Equal(ErrorTypeRejected, appErr.Type())
}

func (s *ActivitiesTestSuite) TestSubmitOracleResponse_SuspendedIsRetryable() {
	s.register(models.StatusOnTime)
	s.api.On("SubmitResponse", mock.Anything, "0xoracle", request, models.StatusOnTime).
		Return(nil, &surety.APIError{Status: http.StatusServiceUnavailable, Kind: "operations_suspended"})

	_, err := s.env.ExecuteActivity(models.ActivitySubmitOracleResponse, models.SubmitOracleResponseInput{
		Oracle: "0xoracle", Request: request, StatusCode: models.StatusOnTime,
	})
	s.Require().Error(err)

	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		s.False(appErr.NonRetryable())
	}
}

func TestEnsureOracles_RegistersAndReuses(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	store := repository.NewMemoryStore()
	acts := NewActivities(api, store, nil, nil, nil)

	api.On("RegisterOracle", ctx, mock.AnythingOfType("string"), "1000").
		Return(&models.OracleIndexesResponse{Indexes: [3]uint8{2, 5, 5}}, nil).Times(3)

	oracles, err := acts.EnsureOracles(ctx, 3, "1000")
	require.NoError(t, err)
	require.Len(t, oracles, 3)
	seen := map[string]bool{}
	for i, o := range oracles {
		assert.Equal(t, i, o.Serial)
		assert.Equal(t, [3]uint8{2, 5, 5}, o.Indexes)
		assert.Len(t, o.Address, 34)
		seen[o.Address] = true
	}
	assert.Len(t, seen, 3)

	// A restarted worker finds its oracles already registered
	api.On("RegisterOracle", ctx, mock.AnythingOfType("string"), "1000").
		Return(nil, &surety.APIError{Status: http.StatusConflict, Kind: surety.KindConflict})
	for _, o := range oracles {
		api.On("GetIndexes", ctx, o.Address).
			Return(&models.OracleIndexesResponse{Oracle: o.Address, Indexes: [3]uint8{2, 5, 5}}, nil).Once()
	}

	again, err := acts.EnsureOracles(ctx, 3, "1000")
	require.NoError(t, err)
	assert.Equal(t, oracles, again)
	api.AssertExpectations(t)
}

func TestEnsureOracles_StopsOnError(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	acts := NewActivities(api, repository.NewMemoryStore(), nil, nil, nil)

	api.On("RegisterOracle", ctx, mock.AnythingOfType("string"), "1000").
		Return(nil, &surety.APIError{Status: http.StatusUnprocessableEntity, Kind: "limit_exceeded"})

	_, err := acts.EnsureOracles(ctx, 2, "1000")
	assert.Error(t, err)
	api.AssertNumberOfCalls(t, "RegisterOracle", 1)
}
