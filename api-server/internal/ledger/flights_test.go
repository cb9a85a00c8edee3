package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cx-tal-miterani/flight-surety/shared/models"
)

func TestRegisterFlight_UnfundedAirline(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.fundAll(t, airlineA)
	_, err := f.e.RegisterAirline(ctx, airlineA, airlineB)
	require.NoError(t, err)
	head := f.e.Head()

	key := models.FlightKey{Airline: airlineB, Flight: "TG404", Timestamp: 1640928519}
	ok, err := f.e.RegisterFlight(ctx, airlineB, key, "BKK", "SIN")
	assert.ErrorIs(t, err, ErrAirlineNotFunded)
	assert.False(t, ok)
	assert.False(t, f.e.IsRegisteredFlight(key))
	assert.Empty(t, f.e.ListFlights())
	assert.Equal(t, head, f.e.Head())
}

func TestRegisterFlight(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.fundAll(t, airlineA)

	ok, err := f.e.RegisterFlight(ctx, airlineA, sq390, "SIN", "BKK")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, f.e.IsRegisteredFlight(sq390))

	info, found := f.e.Flight(sq390)
	require.True(t, found)
	assert.Equal(t, "SIN", info.Origin)
	assert.Equal(t, "BKK", info.Destination)
	assert.Equal(t, models.StatusUnknown, info.Status)
	assert.False(t, info.Finalized)

	// same key again: reported registered, nothing written
	head := f.e.Head()
	ok, err = f.e.RegisterFlight(ctx, airlineA, sq390, "XXX", "YYY")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, head, f.e.Head())
	info, _ = f.e.Flight(sq390)
	assert.Equal(t, "SIN", info.Origin)

	// a different timestamp is a different flight
	later := sq390
	later.Timestamp++
	assert.False(t, f.e.IsRegisteredFlight(later))
}

func TestRegisterFlight_Rejects(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.fundAll(t, airlineA, airlineB)

	_, err := f.e.RegisterFlight(ctx, airlineA, models.FlightKey{Airline: airlineA, Timestamp: 1}, "SIN", "BKK")
	assert.ErrorIs(t, err, ErrInvalidFlight)

	_, err = f.e.RegisterFlight(ctx, airlineB, sq390, "SIN", "BKK")
	assert.ErrorIs(t, err, ErrNotFlightOwner)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, f.e.IsRegisteredFlight(sq390))
}

func TestListFlights_OrderedByDeparture(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.fundAll(t, airlineA, airlineB)

	keys := []models.FlightKey{
		{Airline: airlineA, Flight: "SQ392", Timestamp: 300},
		{Airline: airlineB, Flight: "TG100", Timestamp: 100},
		{Airline: airlineA, Flight: "SQ391", Timestamp: 200},
		{Airline: airlineA, Flight: "SQ390", Timestamp: 100},
	}
	for _, k := range keys {
		_, err := f.e.RegisterFlight(ctx, k.Airline, k, "SIN", "BKK")
		require.NoError(t, err)
	}

	var got []string
	for _, info := range f.e.ListFlights() {
		got = append(got, info.Key.Flight)
	}
	assert.Equal(t, []string{"SQ390", "TG100", "SQ391", "SQ392"}, got)
}
