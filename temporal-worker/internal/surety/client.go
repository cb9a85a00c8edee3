// Package surety is an HTTP client for the flight surety API, used by the
// oracle simulator.
package surety

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cx-tal-miterani/flight-surety/shared/models"
)

// CallerHeader carries the principal a request acts as
const CallerHeader = "X-Caller"

// Error kinds the simulator reacts to
const (
	KindConflict         = "conflict"
	KindAlreadyProcessed = "already_processed"
	KindInvalidState     = "invalid_state"
)

// APIError is a non-2xx answer from the API
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("surety api: %d %s: %s", e.Status, e.Kind, e.Message)
	}
	return fmt.Sprintf("surety api: %d: %s", e.Status, e.Message)
}

// Terminal reports whether repeating the request cannot succeed. Suspended
// operations (503) and server errors are worth retrying.
func (e *APIError) Terminal() bool {
	return e.Status >= 400 && e.Status < 500
}

// IsTerminal reports whether err is an APIError that should not be retried
func IsTerminal(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Terminal()
}

// IsKind reports whether err is an APIError of the given kind
func IsKind(err error, kind string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// Client calls the API on behalf of any principal
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL. A nil httpClient gets a default
// without a global timeout, since event polls are long-lived.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// RegisterOracle stakes for caller and returns its assigned indexes
func (c *Client) RegisterOracle(ctx context.Context, caller, stake string) (*models.OracleIndexesResponse, error) {
	var res models.OracleIndexesResponse
	err := c.do(ctx, http.MethodPost, "/api/oracles", caller, models.RegisterOracleRequest{Stake: stake}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// GetIndexes returns the indexes assigned to oracle
func (c *Client) GetIndexes(ctx context.Context, oracle string) (*models.OracleIndexesResponse, error) {
	var res models.OracleIndexesResponse
	if err := c.do(ctx, http.MethodGet, "/api/oracles/"+url.PathEscape(oracle)+"/indexes", "", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SubmitResponse reports status for req as oracle
func (c *Client) SubmitResponse(ctx context.Context, oracle string, req models.OracleRequest, status models.StatusCode) (*models.SubmitOracleResponseResult, error) {
	body := models.SubmitOracleResponseRequest{
		Index:      req.Index,
		Airline:    req.Airline,
		Flight:     req.Flight,
		Timestamp:  req.Timestamp,
		StatusCode: status,
	}
	var res models.SubmitOracleResponseResult
	if err := c.do(ctx, http.MethodPost, "/api/oracles/responses", oracle, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Events returns records at or after from of the given types, waiting up to
// wait for the first one
func (c *Client) Events(ctx context.Context, from uint64, types []string, wait time.Duration) (*models.EventsResponse, error) {
	q := url.Values{}
	q.Set("from", strconv.FormatUint(from, 10))
	if len(types) > 0 {
		q.Set("type", strings.Join(types, ","))
	}
	if wait > 0 {
		q.Set("wait", wait.String())
	}
	var res models.EventsResponse
	if err := c.do(ctx, http.MethodGet, "/api/events?"+q.Encode(), "", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, method, path, caller string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller != "" {
		req.Header.Set(CallerHeader, caller)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e models.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
			e.Error = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Kind: e.Kind, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return nil
}
