package surety

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cx-tal-miterani/flight-surety/shared/models"
)

var request = models.OracleRequest{Index: 7, Airline: "0xairline", Flight: "SQ390", Timestamp: 1640928519}

func TestClient_SubmitResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/oracles/responses", r.URL.Path)
		assert.Equal(t, "0xoracle", r.Header.Get(CallerHeader))

		var body models.SubmitOracleResponseRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, uint8(7), body.Index)
		assert.Equal(t, "SQ390", body.Flight)
		assert.Equal(t, models.StatusLateAirline, body.StatusCode)

		json.NewEncoder(w).Encode(models.SubmitOracleResponseResult{Accepted: true, Votes: 1, StatusCode: body.StatusCode})
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL+"/", nil).SubmitResponse(context.Background(), "0xoracle", request, models.StatusLateAirline)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, 1, res.Votes)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		kind     string
		terminal bool
	}{
		{"closed request", http.StatusConflict, `{"error":"status request closed","kind":"conflict"}`, KindConflict, true},
		{"index not held", http.StatusForbidden, `{"error":"index not assigned","kind":"unauthorized"}`, "unauthorized", true},
		{"suspended", http.StatusServiceUnavailable, `{"error":"suspended","kind":"operations_suspended"}`, "operations_suspended", false},
		{"proxy error", http.StatusBadGateway, `<html>bad gateway</html>`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, nil).SubmitResponse(context.Background(), "0xoracle", request, models.StatusOnTime)
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.terminal, IsTerminal(err))
		})
	}
}

func TestClient_Events(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/events", r.URL.Path)
		assert.Equal(t, "12", q.Get("from"))
		assert.Equal(t, "OracleRequest,FlightStatusInfo", q.Get("type"))
		assert.Equal(t, "20s", q.Get("wait"))

		data, _ := json.Marshal(request)
		json.NewEncoder(w).Encode(models.EventsResponse{
			Events: []models.Event{{Offset: 12, Type: models.EventOracleRequest, Data: data}},
			Next:   13,
		})
	}))
	defer srv.Close()

	page, err := NewClient(srv.URL, nil).Events(context.Background(), 12,
		[]string{models.EventOracleRequest, models.EventFlightStatusInfo}, 20*time.Second)
	require.NoError(t, err)
	require.Len(t, page.Events, 1)
	assert.Equal(t, uint64(13), page.Next)

	var got models.OracleRequest
	require.NoError(t, json.Unmarshal(page.Events[0].Data, &got))
	assert.Equal(t, request, got)
}

func TestClient_RegisterOracle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/oracles":
			assert.Equal(t, "0xoracle", r.Header.Get(CallerHeader))
			var body models.RegisterOracleRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "1000000000000000000", body.Stake)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(models.OracleIndexesResponse{Oracle: "0xoracle", Indexes: [3]uint8{1, 4, 4}})
		case "/api/oracles/0xoracle/indexes":
			json.NewEncoder(w).Encode(models.OracleIndexesResponse{Oracle: "0xoracle", Indexes: [3]uint8{1, 4, 4}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	res, err := c.RegisterOracle(context.Background(), "0xoracle", "1000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, [3]uint8{1, 4, 4}, res.Indexes)

	res, err = c.GetIndexes(context.Background(), "0xoracle")
	require.NoError(t, err)
	assert.Equal(t, [3]uint8{1, 4, 4}, res.Indexes)
}
