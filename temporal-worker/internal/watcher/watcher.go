// Package watcher follows the engine's event stream and starts one oracle
// request workflow per OracleRequest record.
package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/cx-tal-miterani/flight-surety/shared/models"
	"github.com/cx-tal-miterani/flight-surety/temporal-worker/internal/workflows"
)

// EventSource is the long-poll read of the event stream
type EventSource interface {
	Events(ctx context.Context, from uint64, types []string, wait time.Duration) (*models.EventsResponse, error)
}

// Starter starts workflows; client.Client satisfies it
type Starter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

var watchedTypes = []string{models.EventOracleRequest, models.EventFlightStatusInfo}

// Watcher dispatches status requests to the simulated oracles
type Watcher struct {
	events     EventSource
	starter    Starter
	taskQueue  string
	oracles    []models.SimulatedOracle
	pollWait   time.Duration
	logger     *zap.Logger
	next       uint64
	newBackOff func() backoff.BackOff
}

func New(events EventSource, starter Starter, taskQueue string, oracles []models.SimulatedOracle, from uint64, pollWait time.Duration, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		events:     events,
		starter:    starter,
		taskQueue:  taskQueue,
		oracles:    oracles,
		pollWait:   pollWait,
		logger:     logger.With(zap.String("component", "watcher")),
		next:       from,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// Next returns the offset the watcher reads from next
func (w *Watcher) Next() uint64 {
	return w.next
}

// Run follows the stream until ctx is done. Poll and start failures are
// retried with backoff from the same offset.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("following oracle requests", zap.Uint64("from", w.next), zap.Int("oracles", len(w.oracles)))
	b := w.newBackOff()
	for {
		err := w.poll(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			b.Reset()
			continue
		}

		delay := b.NextBackOff()
		w.logger.Warn("event poll failed", zap.Uint64("from", w.next), zap.Duration("retryIn", delay), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// poll reads one page and handles it. next only advances past records that
// were handled.
func (w *Watcher) poll(ctx context.Context) error {
	page, err := w.events.Events(ctx, w.next, watchedTypes, w.pollWait)
	if err != nil {
		return err
	}
	for _, evt := range page.Events {
		if err := w.handle(ctx, evt); err != nil {
			return err
		}
		w.next = evt.Offset + 1
	}
	if page.Next > w.next {
		w.next = page.Next
	}
	return nil
}

func (w *Watcher) handle(ctx context.Context, evt models.Event) error {
	switch evt.Type {
	case models.EventOracleRequest:
		var req models.OracleRequest
		if err := json.Unmarshal(evt.Data, &req); err != nil {
			w.logger.Error("malformed oracle request", zap.Uint64("offset", evt.Offset), zap.Error(err))
			return nil
		}
		return w.start(ctx, evt.Offset, req)

	case models.EventFlightStatusInfo:
		var info models.FlightStatusInfo
		if err := json.Unmarshal(evt.Data, &info); err != nil {
			w.logger.Error("malformed flight status", zap.Uint64("offset", evt.Offset), zap.Error(err))
			return nil
		}
		w.logger.Info("flight status finalized",
			zap.Uint64("offset", evt.Offset),
			zap.Uint8("index", info.Index),
			zap.String("airline", info.Airline),
			zap.String("flight", info.Flight),
			zap.Int64("timestamp", info.Timestamp),
			zap.Stringer("status", info.Status))
	}
	return nil
}

func (w *Watcher) start(ctx context.Context, offset uint64, req models.OracleRequest) error {
	opts := client.StartWorkflowOptions{
		ID:                    workflows.WorkflowID(offset),
		TaskQueue:             w.taskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}
	input := models.OracleRequestWorkflowInput{Offset: offset, Request: req, Oracles: w.oracles}

	run, err := w.starter.ExecuteWorkflow(ctx, opts, workflows.OracleRequestWorkflow, input)
	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &started) {
		w.logger.Debug("oracle request already answered", zap.Uint64("offset", offset))
		return nil
	}
	if err != nil {
		return err
	}
	w.logger.Info("oracle request dispatched",
		zap.Uint64("offset", offset),
		zap.Uint8("index", req.Index),
		zap.String("flight", req.FlightKey().String()),
		zap.String("workflowId", run.GetID()),
		zap.String("runId", run.GetRunID()))
	return nil
}
