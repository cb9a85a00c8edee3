package metrics

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cx-tal-miterani/flight-surety/api-server/internal/journal"
	"github.com/cx-tal-miterani/flight-surety/api-server/internal/ledger"
	"github.com/cx-tal-miterani/flight-surety/shared/models"
)

const namespace = "flight_surety"

// Metrics holds the engine's collectors. It also listens to journal commits.
type Metrics struct {
	operations    *prometheus.CounterVec
	events        *prometheus.CounterVec
	finalizations *prometheus.CounterVec
	reserves      prometheus.Gauge
	head          prometheus.Gauge
	httpDuration  *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "ledger operations by outcome kind",
		}, []string{"operation", "result"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_committed_total",
			Help:      "journal records committed by type",
		}, []string{"type"}),
		finalizations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flight_status_finalized_total",
			Help:      "flight statuses finalized by oracle quorum",
		}, []string{"status"}),
		reserves: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reserves_ether",
			Help:      "value held by the ledger, in units of native currency",
		}),
		head: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "journal_head",
			Help:      "offset of the next journal record",
		}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		}, []string{"method", "route", "code"}),
	}
}

// Observe counts one operation by the kind of its error
func (m *Metrics) Observe(operation string, err error) {
	result := "ok"
	if err != nil {
		result = ledger.KindOf(err)
	}
	m.operations.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) Committed(recs []journal.Record) {
	for _, rec := range recs {
		m.events.WithLabelValues(rec.Type).Inc()
		m.head.Set(float64(rec.Offset + 1))
		if rec.Type != ledger.EventFlightStatusInfo {
			continue
		}
		var info models.FlightStatusInfo
		if err := json.Unmarshal(rec.Data, &info); err == nil {
			m.finalizations.WithLabelValues(info.Status.String()).Inc()
		}
	}
}

// SetReserves records the held value; wei is converted to whole units
func (m *Metrics) SetReserves(wei *uint256.Int) {
	v, err := strconv.ParseFloat(wei.Dec(), 64)
	if err != nil {
		return
	}
	m.reserves.Set(v / 1e18)
}

func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(code)).Observe(d.Seconds())
}
