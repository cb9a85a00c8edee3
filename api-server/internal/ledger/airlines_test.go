package ledger

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cx-tal-miterani/flight-surety/shared/models"
)

func TestRegisterAirline_Bootstrap(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.fundAll(t, airlineA)

	// a single funded proposal admits while fewer than four are admitted
	for n, candidate := range []string{airlineB, airlineC, airlineD} {
		admitted, _ := f.e.AirlineCounts()
		require.Equal(t, n+1, admitted)

		res, err := f.e.RegisterAirline(ctx, airlineA, candidate)
		require.NoError(t, err)
		assert.True(t, res.Admitted)
		assert.True(t, f.e.IsRegisteredAirline(candidate))
		assert.False(t, f.e.IsFundedAirline(candidate))
	}

	admitted, funded := f.e.AirlineCounts()
	assert.Equal(t, 4, admitted)
	assert.Equal(t, 1, funded)
}

func TestRegisterAirline_ProposerMustBeFunded(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	head := f.e.Head()

	// airlineA is registered but not yet funded
	_, err := f.e.RegisterAirline(ctx, airlineA, airlineB)
	assert.ErrorIs(t, err, ErrProposerNotFunded)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.e.RegisterAirline(ctx, "0xstranger", airlineB)
	assert.ErrorIs(t, err, ErrProposerNotFunded)

	admitted, _ := f.e.AirlineCounts()
	assert.Equal(t, 1, admitted)
	assert.False(t, f.e.IsRegisteredAirline(airlineB))
	assert.Equal(t, head, f.e.Head())
}

func TestRegisterAirline_Rejects(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.fundAll(t, airlineA)

	_, err := f.e.RegisterAirline(ctx, airlineA, "")
	assert.ErrorIs(t, err, ErrInvalidAirline)

	_, err = f.e.RegisterAirline(ctx, airlineA, airlineA)
	assert.ErrorIs(t, err, ErrAirlineAlreadyRegistered)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRegisterAirline_MultiPartyConsensus(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.fundAll(t, airlineA, airlineB, airlineC, airlineD)

	// a fifth airline is admitted but left unfunded: five exist, four funded
	first, err := f.e.RegisterAirline(ctx, airlineA, "0xairline-e")
	require.NoError(t, err)
	require.False(t, first.Admitted)
	second, err := f.e.RegisterAirline(ctx, airlineB, "0xairline-e")
	require.NoError(t, err)
	require.True(t, second.Admitted)

	// one of four votes does not admit
	res, err := f.e.RegisterAirline(ctx, airlineA, "0xairline-f")
	require.NoError(t, err)
	assert.False(t, res.Admitted)
	assert.Equal(t, 1, res.Votes)
	assert.Equal(t, 2, res.Required)
	assert.False(t, f.e.IsRegisteredAirline("0xairline-f"))
	assert.Equal(t, models.AirlineUnregistered, f.e.Airline("0xairline-f").Status)
	assert.Equal(t, 1, f.e.Airline("0xairline-f").Votes)

	// a repeat vote is rejected and does not count
	_, err = f.e.RegisterAirline(ctx, airlineA, "0xairline-f")
	assert.ErrorIs(t, err, ErrDuplicateVote)
	assert.False(t, f.e.IsRegisteredAirline("0xairline-f"))

	// two of four (50%) admits
	res, err = f.e.RegisterAirline(ctx, airlineC, "0xairline-f")
	require.NoError(t, err)
	assert.True(t, res.Admitted)
	assert.Equal(t, 2, res.Votes)
	assert.True(t, f.e.IsRegisteredAirline("0xairline-f"))
	assert.Equal(t, models.AirlineRegistered, f.e.Airline("0xairline-f").Status)

	// unfunded members cannot vote
	_, err = f.e.RegisterAirline(ctx, "0xairline-e", "0xairline-g")
	assert.ErrorIs(t, err, ErrProposerNotFunded)
}

func TestRegisterAirline_ThresholdIsHalfOfFunded(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	members := []string{airlineA, airlineB, airlineC, airlineD}
	f.fundAll(t, members...)

	for n := 4; n <= 7; n++ {
		candidate := fmt.Sprintf("0xcandidate-%d", n)
		required := (n + 1) / 2

		for i := 0; i < required; i++ {
			res, err := f.e.RegisterAirline(ctx, members[i], candidate)
			require.NoError(t, err)
			assert.Equal(t, required, res.Required, "funded=%d", n)
			assert.Equal(t, i+1 == required, res.Admitted, "funded=%d votes=%d", n, i+1)
			assert.Equal(t, i+1 == required, f.e.IsRegisteredAirline(candidate))
		}

		require.NoError(t, f.e.Fund(ctx, candidate, Ether(10)))
		members = append(members, candidate)
		_, funded := f.e.AirlineCounts()
		require.Equal(t, n+1, funded)
	}
}

func TestFund(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	err := f.e.Fund(ctx, "0xstranger", Ether(10))
	assert.ErrorIs(t, err, ErrUnknownAirline)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, f.e.Fund(ctx, airlineA, Ether(0)), ErrZeroAmount)
	assert.ErrorIs(t, f.e.Fund(ctx, airlineA, nil), ErrZeroAmount)

	require.NoError(t, f.e.Fund(ctx, airlineA, Ether(4)))
	assert.False(t, f.e.IsFundedAirline(airlineA))
	assert.Equal(t, models.AirlineRegistered, f.e.Airline(airlineA).Status)

	require.NoError(t, f.e.Fund(ctx, airlineA, Ether(6)))
	assert.True(t, f.e.IsFundedAirline(airlineA))
	assert.Equal(t, Ether(10), f.e.GetFundsForAirline(airlineA))

	// funding past the fee keeps accumulating
	require.NoError(t, f.e.Fund(ctx, airlineA, Ether(1)))
	assert.Equal(t, Ether(11), f.e.GetFundsForAirline(airlineA))
	_, funded := f.e.AirlineCounts()
	assert.Equal(t, 1, funded)
	assert.Equal(t, Ether(11), f.e.Reserves())

	assert.True(t, f.e.GetFundsForAirline("0xstranger").IsZero())
}
