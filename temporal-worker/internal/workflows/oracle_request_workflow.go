package workflows

import (
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/cx-tal-miterani/flight-surety/shared/models"
)

const (
	// SubmitTimeout bounds a single submission attempt, throttling included
	SubmitTimeout = 30 * time.Second
	// MaxSubmitAttempts is the number of tries for a transient failure
	MaxSubmitAttempts = 5
)

// WorkflowID is the ID of the workflow answering the request at offset, so
// each request is answered at most once
func WorkflowID(offset uint64) string {
	return fmt.Sprintf("oracle-request-%d", offset)
}

// OracleRequestWorkflow answers one status request from every simulated
// oracle holding its index, in serial order, and stops once the flight
// status is finalized
func OracleRequestWorkflow(ctx workflow.Context, input models.OracleRequestWorkflowInput) (*models.OracleRequestWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	req := input.Request
	logger.Info("Oracle request workflow started",
		"offset", input.Offset, "index", req.Index, "flight", req.FlightKey().String())

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: SubmitTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    MaxSubmitAttempts,
		},
	})

	result := &models.OracleRequestWorkflowResult{}
	for _, oracle := range input.Oracles {
		if !oracle.Holds(req.Index) {
			continue
		}

		var code models.StatusCode
		if err := workflow.ExecuteActivity(ctx, models.ActivityPickStatusCode, oracle.Address, req).Get(ctx, &code); err != nil {
			return nil, err
		}

		var res models.SubmitOracleResponseResult
		err := workflow.ExecuteActivity(ctx, models.ActivitySubmitOracleResponse, models.SubmitOracleResponseInput{
			Oracle:     oracle.Address,
			Request:    req,
			StatusCode: code,
		}).Get(ctx, &res)
		if err != nil {
			var appErr *temporal.ApplicationError
			if !errors.As(err, &appErr) || !appErr.NonRetryable() {
				logger.Warn("Submission failed after retries", "oracle", oracle.Address, "error", err)
			}
			result.Rejected++
			continue
		}

		result.Submitted++
		if res.Finalized {
			result.Finalized = true
			result.StatusCode = res.StatusCode
			logger.Info("Flight status finalized",
				"flight", req.FlightKey().String(), "status", res.StatusCode.String(), "votes", res.Votes)
			break
		}
	}

	logger.Info("Oracle request workflow finished",
		"offset", input.Offset,
		"submitted", result.Submitted,
		"rejected", result.Rejected,
		"finalized", result.Finalized)
	return result, nil
}
