package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/cx-tal-miterani/flight-surety/api-server/internal/ledger"
	"github.com/cx-tal-miterani/flight-surety/api-server/internal/service"
	"github.com/cx-tal-miterani/flight-surety/shared/models"
)

// CallerHeader carries the principal the request acts as
const CallerHeader = "X-Caller"

// Handler contains HTTP handlers for the API
type Handler struct {
	suretyService service.SuretyService
}

// NewHandler creates a new Handler instance
func NewHandler(suretyService service.SuretyService) *Handler {
	return &Handler{
		suretyService: suretyService,
	}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, models.ErrorResponse{Error: message})
}

// respondLedgerError maps the error kind to an HTTP status
func respondLedgerError(w http.ResponseWriter, err error) {
	kind := ledger.KindOf(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, ledger.ErrOperationsSuspended):
		status = http.StatusServiceUnavailable
	case errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidState),
		errors.Is(err, ledger.ErrConflict),
		errors.Is(err, ledger.ErrAlreadyProcessed):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrLimitExceeded):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	respondJSON(w, status, models.ErrorResponse{Error: message, Kind: kind})
}

func caller(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(CallerHeader))
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// flightKey reads {airline}/{flight}/{timestamp} from the route
func flightKey(w http.ResponseWriter, r *http.Request) (models.FlightKey, bool) {
	vars := mux.Vars(r)
	ts, err := strconv.ParseInt(vars["timestamp"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid timestamp")
		return models.FlightKey{}, false
	}
	return models.FlightKey{Airline: vars["airline"], Flight: vars["flight"], Timestamp: ts}, true
}

// GetOperatingStatus handles GET /api/operational
func (h *Handler) GetOperatingStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.suretyService.GetOperatingStatus(r.Context()))
}

// SetOperatingStatus handles PUT /api/operational
func (h *Handler) SetOperatingStatus(w http.ResponseWriter, r *http.Request) {
	var req models.OperatingStatus
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.suretyService.SetOperatingStatus(r.Context(), caller(r), req.Operational); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.suretyService.GetOperatingStatus(r.Context()))
}

// GetAirline handles GET /api/airlines/{address}
func (h *Handler) GetAirline(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.suretyService.GetAirline(r.Context(), mux.Vars(r)["address"]))
}

// RegisterAirline handles POST /api/airlines
func (h *Handler) RegisterAirline(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterAirlineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Candidate == "" {
		respondError(w, http.StatusBadRequest, "Candidate is required")
		return
	}

	res, err := h.suretyService.RegisterAirline(r.Context(), caller(r), &req)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	status := http.StatusAccepted
	if res.Admitted {
		status = http.StatusCreated
	}
	respondJSON(w, status, res)
}

// FundAirline handles POST /api/airlines/fund
func (h *Handler) FundAirline(w http.ResponseWriter, r *http.Request) {
	var req models.FundRequest
	if !decodeBody(w, r, &req) {
		return
	}
	airline, err := h.suretyService.FundAirline(r.Context(), caller(r), &req)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, airline)
}

// GetFlights handles GET /api/flights
func (h *Handler) GetFlights(w http.ResponseWriter, r *http.Request) {
	flights := h.suretyService.GetFlights(r.Context())
	respondJSON(w, http.StatusOK, flights)
}

// GetFlight handles GET /api/flights/{airline}/{flight}/{timestamp}
func (h *Handler) GetFlight(w http.ResponseWriter, r *http.Request) {
	key, ok := flightKey(w, r)
	if !ok {
		return
	}
	flight, err := h.suretyService.GetFlight(r.Context(), key)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, flight)
}

// RegisterFlight handles POST /api/flights
func (h *Handler) RegisterFlight(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterFlightRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.FlightNumber == "" {
		respondError(w, http.StatusBadRequest, "Flight number is required")
		return
	}

	res, err := h.suretyService.RegisterFlight(r.Context(), caller(r), &req)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

// BuyInsurance handles POST /api/flights/{airline}/{flight}/{timestamp}/insurance
func (h *Handler) BuyInsurance(w http.ResponseWriter, r *http.Request) {
	key, ok := flightKey(w, r)
	if !ok {
		return
	}
	var req models.BuyInsuranceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	policy, err := h.suretyService.BuyInsurance(r.Context(), caller(r), key, &req)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, policy)
}

// GetPolicy handles GET /api/flights/{airline}/{flight}/{timestamp}/insurance/{passenger}
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	key, ok := flightKey(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.suretyService.GetPolicy(r.Context(), mux.Vars(r)["passenger"], key))
}

// FetchFlightStatus handles POST /api/flights/{airline}/{flight}/{timestamp}/status
func (h *Handler) FetchFlightStatus(w http.ResponseWriter, r *http.Request) {
	key, ok := flightKey(w, r)
	if !ok {
		return
	}
	res, err := h.suretyService.FetchFlightStatus(r.Context(), key)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, res)
}

// GetCredits handles GET /api/passengers/{address}/credits
func (h *Handler) GetCredits(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.suretyService.GetCredits(r.Context(), mux.Vars(r)["address"]))
}

// WithdrawCredits handles POST /api/passengers/withdraw
func (h *Handler) WithdrawCredits(w http.ResponseWriter, r *http.Request) {
	res, err := h.suretyService.WithdrawCredits(r.Context(), caller(r))
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// RegisterOracle handles POST /api/oracles
func (h *Handler) RegisterOracle(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterOracleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.suretyService.RegisterOracle(r.Context(), caller(r), &req)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

// GetOracleIndexes handles GET /api/oracles/{address}/indexes
func (h *Handler) GetOracleIndexes(w http.ResponseWriter, r *http.Request) {
	res, err := h.suretyService.GetOracleIndexes(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// SubmitOracleResponse handles POST /api/oracles/responses
func (h *Handler) SubmitOracleResponse(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitOracleResponseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.suretyService.SubmitOracleResponse(r.Context(), caller(r), &req)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// ParseEventQuery reads from, type, limit and wait from the query string.
// type is a comma-separated list; wait is a duration ("20s") or seconds.
func ParseEventQuery(r *http.Request) (service.EventQuery, error) {
	var q service.EventQuery
	values := r.URL.Query()
	if v := values.Get("from"); v != "" {
		from, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return q, errors.New("Invalid from offset")
		}
		q.From = from
	}
	if v := values.Get("type"); v != "" {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				q.Types = append(q.Types, t)
			}
		}
	}
	if v := values.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return q, errors.New("Invalid limit")
		}
		q.Limit = limit
	}
	if v := values.Get("wait"); v != "" {
		wait, err := time.ParseDuration(v)
		if err != nil {
			secs, serr := strconv.Atoi(v)
			if serr != nil || secs < 0 {
				return q, errors.New("Invalid wait")
			}
			wait = time.Duration(secs) * time.Second
		}
		q.Wait = wait
	}
	return q, nil
}

// GetEvents handles GET /api/events
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	q, err := ParseEventQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := h.suretyService.GetEvents(r.Context(), q)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"operational": h.suretyService.GetOperatingStatus(r.Context()).Operational,
		"time":        time.Now().UTC().Format(time.RFC3339),
	})
}
