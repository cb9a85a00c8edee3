package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cx-tal-miterani/flight-surety/api-server/internal/journal"
	"github.com/cx-tal-miterani/flight-surety/api-server/internal/ledger"
	"github.com/cx-tal-miterani/flight-surety/api-server/internal/metrics"
	"github.com/cx-tal-miterani/flight-surety/shared/models"
)

const (
	admin     = "0xadmin"
	airline   = "0xairline"
	passenger = "0xpassenger"
)

type constEntropy uint8

func (c constEntropy) Draw(_ []byte, space uint8) uint8 { return uint8(c) % space }

func newTestService(t *testing.T) (SuretyService, *ledger.Engine) {
	t.Helper()
	feed := journal.NewFeed(0)
	m := metrics.New(prometheus.NewRegistry())
	engine, err := ledger.New(context.Background(), journal.NewMemoryStore(),
		ledger.DefaultParams(admin, airline),
		ledger.WithEntropy(constEntropy(4)),
		ledger.WithListener(feed),
		ledger.WithListener(m),
	)
	require.NoError(t, err)
	return NewSuretyService(engine, feed, m, nil, time.Second), engine
}

func TestService_InsuranceFlow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	funded, err := svc.FundAirline(ctx, airline, &models.FundRequest{Amount: "10000000000000000000"})
	require.NoError(t, err)
	assert.True(t, funded.Funded)
	assert.Equal(t, models.AirlineFunded, funded.Status)

	reg, err := svc.RegisterFlight(ctx, airline, &models.RegisterFlightRequest{
		FlightNumber: " SQ390 ", Origin: "SIN", Destination: "BKK", Timestamp: 1640928519,
	})
	require.NoError(t, err)
	key := reg.Flight
	assert.Equal(t, models.FlightKey{Airline: airline, Flight: "SQ390", Timestamp: 1640928519}, key)

	policy, err := svc.BuyInsurance(ctx, passenger, key, &models.BuyInsuranceRequest{Premium: "1000000000000000000"})
	require.NoError(t, err)
	assert.True(t, policy.Insured)
	assert.Equal(t, "1000000000000000000", policy.Premium)

	status, err := svc.FetchFlightStatus(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, uint8(4), status.Request.Index)

	var last *models.SubmitOracleResponseResult
	for _, o := range []string{"0xo1", "0xo2", "0xo3"} {
		idx, err := svc.RegisterOracle(ctx, o, &models.RegisterOracleRequest{Stake: "1000000000000000000"})
		require.NoError(t, err)
		assert.Equal(t, [3]uint8{4, 4, 4}, idx.Indexes)

		last, err = svc.SubmitOracleResponse(ctx, o, &models.SubmitOracleResponseRequest{
			Index: 4, Airline: airline, Flight: "SQ390", Timestamp: 1640928519, StatusCode: models.StatusLateAirline,
		})
		require.NoError(t, err)
	}
	assert.True(t, last.Finalized)
	assert.Equal(t, 3, last.Votes)

	flight, err := svc.GetFlight(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "late_airline", flight.Status)
	assert.True(t, flight.Finalized)

	assert.Equal(t, "1500000000000000000", svc.GetCredits(ctx, passenger).Credits)
	w, err := svc.WithdrawCredits(ctx, passenger)
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", w.Amount)
	assert.Equal(t, "0", svc.GetCredits(ctx, passenger).Credits)
	assert.True(t, svc.GetPolicy(ctx, passenger, key).PaidOut)
}

func TestService_Rejects(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.FundAirline(ctx, airline, &models.FundRequest{Amount: "ten"})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, "invalid_input", ledger.KindOf(err))

	_, err = svc.FundAirline(ctx, "", &models.FundRequest{Amount: "1"})
	assert.ErrorIs(t, err, ErrNoCaller)

	_, err = svc.GetFlight(ctx, models.FlightKey{Airline: airline, Flight: "X", Timestamp: 1})
	assert.ErrorIs(t, err, ledger.ErrFlightNotRegistered)

	_, err = svc.GetOracleIndexes(ctx, "0xnobody")
	assert.ErrorIs(t, err, ledger.ErrOracleNotRegistered)

	assert.ErrorIs(t, svc.SetOperatingStatus(ctx, airline, false), ledger.ErrNotAdmin)
	require.NoError(t, svc.SetOperatingStatus(ctx, admin, false))
	assert.False(t, svc.GetOperatingStatus(ctx).Operational)
}

func TestService_GetEvents(t *testing.T) {
	svc, engine := newTestService(t)
	ctx := context.Background()

	page, err := svc.GetEvents(ctx, EventQuery{})
	require.NoError(t, err)
	require.Len(t, page.Events, 1)
	assert.Equal(t, ledger.EventAirlineRegistered, page.Events[0].Type)
	assert.Equal(t, uint64(1), page.Next)

	_, err = svc.FundAirline(ctx, airline, &models.FundRequest{Amount: "10000000000000000000"})
	require.NoError(t, err)
	_, err = svc.RegisterFlight(ctx, airline, &models.RegisterFlightRequest{FlightNumber: "SQ390", Timestamp: 1})
	require.NoError(t, err)

	filtered, err := svc.GetEvents(ctx, EventQuery{Types: []string{ledger.EventFlightRegistered}})
	require.NoError(t, err)
	require.Len(t, filtered.Events, 1)
	assert.Equal(t, engine.Head(), filtered.Next)

	limited, err := svc.GetEvents(ctx, EventQuery{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited.Events, 2)
	assert.Equal(t, uint64(2), limited.Next)

	// nothing new: a bounded wait returns an empty page at the head
	empty, err := svc.GetEvents(ctx, EventQuery{From: engine.Head(), Wait: 20 * time.Millisecond})
	require.NoError(t, err)
	assert.Empty(t, empty.Events)
	assert.Equal(t, engine.Head(), empty.Next)
}

func TestService_GetEventsLongPoll(t *testing.T) {
	svc, engine := newTestService(t)
	ctx := context.Background()
	from := engine.Head()

	type result struct {
		page *models.EventsResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		page, err := svc.GetEvents(ctx, EventQuery{
			From:  from,
			Types: []string{models.EventOracleRequest},
			Wait:  time.Second,
		})
		done <- result{page, err}
	}()

	_, err := svc.FundAirline(ctx, airline, &models.FundRequest{Amount: "10000000000000000000"})
	require.NoError(t, err)
	reg, err := svc.RegisterFlight(ctx, airline, &models.RegisterFlightRequest{FlightNumber: "SQ390", Timestamp: 1})
	require.NoError(t, err)
	_, err = svc.FetchFlightStatus(ctx, reg.Flight)
	require.NoError(t, err)

	select {
	case r := <-done:
		require.NoError(t, r.err)
		require.Len(t, r.page.Events, 1)
		assert.Equal(t, models.EventOracleRequest, r.page.Events[0].Type)
	case <-time.After(2 * time.Second):
		t.Fatal("long poll did not return")
	}
}
