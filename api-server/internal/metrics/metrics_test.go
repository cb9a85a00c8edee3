package metrics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/cx-tal-miterani/flight-surety/api-server/internal/journal"
	"github.com/cx-tal-miterani/flight-surety/api-server/internal/ledger"
)

func TestObserve(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Observe("buyInsurance", nil)
	m.Observe("buyInsurance", ledger.ErrPremiumExceedsCap)
	m.Observe("buyInsurance", ledger.ErrPremiumExceedsCap)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("buyInsurance", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("buyInsurance", "limit_exceeded")))
}

func TestCommitted(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Committed([]journal.Record{
		{Offset: 4, Type: ledger.EventOracleReport, Data: json.RawMessage(`{}`)},
		{Offset: 5, Type: ledger.EventFlightStatusInfo, Data: json.RawMessage(`{"status":20}`)},
		{Offset: 6, Type: ledger.EventInsureeCredited, Data: json.RawMessage(`{}`)},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues(ledger.EventFlightStatusInfo)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.finalizations.WithLabelValues("late_airline")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.head))
}

func TestSetReservesAndHTTP(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetReserves(ledger.Finney(1500))
	assert.InDelta(t, 1.5, testutil.ToFloat64(m.reserves), 1e-9)

	m.ObserveHTTP("GET", "/health", 200, 3*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpDuration))
}
