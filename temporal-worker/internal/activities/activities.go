package activities

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cx-tal-miterani/flight-surety/shared/models"
	"github.com/cx-tal-miterani/flight-surety/temporal-worker/internal/repository"
	"github.com/cx-tal-miterani/flight-surety/temporal-worker/internal/surety"
)

// ErrorTypeRejected marks submissions the API refused for good
const ErrorTypeRejected = "SuretyRejected"

// API is the part of the surety API the activities call
type API interface {
	RegisterOracle(ctx context.Context, caller, stake string) (*models.OracleIndexesResponse, error)
	GetIndexes(ctx context.Context, oracle string) (*models.OracleIndexesResponse, error)
	SubmitResponse(ctx context.Context, oracle string, req models.OracleRequest, status models.StatusCode) (*models.SubmitOracleResponseResult, error)
}

// Registry is satisfied by worker.Worker and the Temporal test environments
type Registry interface {
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// Activities holds the oracle simulator's dependencies
type Activities struct {
	api         API
	store       repository.OracleStore
	limiter     *rate.Limiter
	statusCodes []models.StatusCode
	logger      *zap.Logger
}

// NewActivities creates the activity set. statusCodes is the pool simulated
// oracles draw their answers from; limiter throttles submissions.
func NewActivities(api API, store repository.OracleStore, limiter *rate.Limiter, statusCodes []models.StatusCode, logger *zap.Logger) *Activities {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Activities{
		api:         api,
		store:       store,
		limiter:     limiter,
		statusCodes: statusCodes,
		logger:      logger.With(zap.String("component", "oracles")),
	}
}

// Register registers every activity under its shared name
func (a *Activities) Register(r Registry) {
	r.RegisterActivityWithOptions(a.PickStatusCode, activity.RegisterOptions{Name: models.ActivityPickStatusCode})
	r.RegisterActivityWithOptions(a.SubmitOracleResponse, activity.RegisterOptions{Name: models.ActivitySubmitOracleResponse})
}

// PickStatusCode activity - draws the status a simulated oracle reports
func (a *Activities) PickStatusCode(ctx context.Context, oracle string, req models.OracleRequest) (models.StatusCode, error) {
	if len(a.statusCodes) == 0 {
		return models.StatusUnknown, temporal.NewNonRetryableApplicationError("no status codes configured", "Configuration", nil)
	}
	code := a.statusCodes[rand.IntN(len(a.statusCodes))]
	activity.GetLogger(ctx).Debug("Picked status code", "oracle", oracle, "flight", req.Flight, "status", code.String())
	return code, nil
}

// SubmitOracleResponse activity - reports a status through the API. Answers
// the API refuses for good (closed request, duplicate, index not held) fail
// without retry.
func (a *Activities) SubmitOracleResponse(ctx context.Context, input models.SubmitOracleResponseInput) (*models.SubmitOracleResponseResult, error) {
	logger := activity.GetLogger(ctx)

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	res, err := a.api.SubmitResponse(ctx, input.Oracle, input.Request, input.StatusCode)
	if err != nil {
		if surety.IsTerminal(err) {
			logger.Info("Response rejected", "oracle", input.Oracle, "index", input.Request.Index, "error", err)
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrorTypeRejected, err)
		}
		logger.Warn("Response submission failed", "oracle", input.Oracle, "error", err)
		return nil, err
	}

	logger.Info("Response submitted",
		"oracle", input.Oracle,
		"index", input.Request.Index,
		"status", input.StatusCode.String(),
		"votes", res.Votes,
		"finalized", res.Finalized)
	return res, nil
}

// newAddress generates a principal for a simulated oracle
func newAddress() string {
	return "0x" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// EnsureOracles makes sure count simulated oracles exist and are registered,
// reusing stored identities. It runs once at worker startup, outside Temporal.
func (a *Activities) EnsureOracles(ctx context.Context, count int, stake string) ([]models.SimulatedOracle, error) {
	stored, err := a.store.List(ctx)
	if err != nil {
		return nil, err
	}
	bySerial := make(map[int]models.SimulatedOracle, len(stored))
	for _, o := range stored {
		bySerial[o.Serial] = o
	}

	oracles := make([]models.SimulatedOracle, 0, count)
	for serial := 0; serial < count; serial++ {
		o, ok := bySerial[serial]
		if !ok {
			o = models.SimulatedOracle{Serial: serial, Address: newAddress()}
		}

		res, err := a.api.RegisterOracle(ctx, o.Address, stake)
		if surety.IsKind(err, surety.KindConflict) {
			res, err = a.api.GetIndexes(ctx, o.Address)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to register oracle %d: %w", serial, err)
		}
		o.Indexes = res.Indexes

		if err := a.store.Save(ctx, o); err != nil {
			return nil, err
		}
		a.logger.Info("oracle registered",
			zap.Int("serial", serial),
			zap.String("address", o.Address),
			zap.Uint8s("indexes", o.Indexes[:]),
			zap.Bool("reused", ok))
		oracles = append(oracles, o)
	}
	return oracles, nil
}
