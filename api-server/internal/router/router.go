package router

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/cx-tal-miterani/flight-surety/api-server/internal/handlers"
	"github.com/cx-tal-miterani/flight-surety/api-server/internal/metrics"
)

// RequestIDHeader is echoed back on every response
const RequestIDHeader = "X-Request-ID"

const flightPath = "/flights/{airline}/{flight}/{timestamp}"

// Options carries the collaborators the route table needs besides the handlers
type Options struct {
	// Events serves /api/events/ws; the route is omitted when nil
	Events   http.Handler
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// SetupRouter creates and configures the HTTP router
func SetupRouter(h *handlers.Handler, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := mux.NewRouter()
	r.Use(requestID)
	r.Use(observe(opts.Metrics, logger.With(zap.String("component", "http"))))

	// API routes
	api := r.PathPrefix("/api").Subrouter()

	// Operational gate
	api.HandleFunc("/operational", h.GetOperatingStatus).Methods(http.MethodGet)
	api.HandleFunc("/operational", h.SetOperatingStatus).Methods(http.MethodPut)

	// Airlines
	api.HandleFunc("/airlines", h.RegisterAirline).Methods(http.MethodPost)
	api.HandleFunc("/airlines/fund", h.FundAirline).Methods(http.MethodPost)
	api.HandleFunc("/airlines/{address}", h.GetAirline).Methods(http.MethodGet)

	// Flights and insurance
	api.HandleFunc("/flights", h.GetFlights).Methods(http.MethodGet)
	api.HandleFunc("/flights", h.RegisterFlight).Methods(http.MethodPost)
	api.HandleFunc(flightPath, h.GetFlight).Methods(http.MethodGet)
	api.HandleFunc(flightPath+"/insurance", h.BuyInsurance).Methods(http.MethodPost)
	api.HandleFunc(flightPath+"/insurance/{passenger}", h.GetPolicy).Methods(http.MethodGet)
	api.HandleFunc(flightPath+"/status", h.FetchFlightStatus).Methods(http.MethodPost)

	// Passengers
	api.HandleFunc("/passengers/withdraw", h.WithdrawCredits).Methods(http.MethodPost)
	api.HandleFunc("/passengers/{address}/credits", h.GetCredits).Methods(http.MethodGet)

	// Oracles
	api.HandleFunc("/oracles", h.RegisterOracle).Methods(http.MethodPost)
	api.HandleFunc("/oracles/responses", h.SubmitOracleResponse).Methods(http.MethodPost)
	api.HandleFunc("/oracles/{address}/indexes", h.GetOracleIndexes).Methods(http.MethodGet)

	// Event stream
	api.HandleFunc("/events", h.GetEvents).Methods(http.MethodGet)
	if opts.Events != nil {
		api.Handle("/events/ws", opts.Events).Methods(http.MethodGet)
	}

	// Health check and metrics
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", handlers.CallerHeader, RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
	})
	return c.Handler(r)
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// observe records latency per route template and logs each request at debug level
func observe(m *metrics.Metrics, logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := "unmatched"
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			elapsed := time.Since(start)
			if m != nil {
				m.ObserveHTTP(r.Method, route, rec.status, elapsed)
			}
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", rec.status),
				zap.Duration("duration", elapsed),
				zap.String("request_id", r.Header.Get(RequestIDHeader)))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade through the recorder
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
