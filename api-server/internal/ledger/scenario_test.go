package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cx-tal-miterani/flight-surety/shared/models"
)

func TestScenario_LateAirlinePayoutAndWithdraw(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.e.Fund(ctx, airlineA, Ether(10)))
	require.True(t, f.e.IsFundedAirline(airlineA))

	ok, err := f.e.RegisterFlight(ctx, airlineA, sq390, "SIN", "BKK")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, f.e.BuyInsurance(ctx, passenger, sq390, Ether(1)))
	require.True(t, f.e.IsPassengerInsured(passenger, sq390))

	oracles := f.registerOracles(t, 3)
	req, err := f.e.FetchFlightStatus(ctx, sq390)
	require.NoError(t, err)

	var last Report
	for _, o := range oracles {
		last, err = f.e.SubmitOracleResponse(ctx, o, req.Request.Index, sq390, models.StatusLateAirline)
		require.NoError(t, err)
	}
	assert.True(t, last.Finalized)
	assert.Equal(t, models.StatusLateAirline, last.Status)

	assert.Equal(t, "1500000000000000000", f.e.GetPassengerCredits(passenger).Dec())

	amount, err := f.e.WithdrawCredits(ctx, passenger)
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", amount.Dec())
	assert.True(t, f.e.GetPassengerCredits(passenger).IsZero())
}
