package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/vmunix/arrwatch/internal/api"
	"github.com/vmunix/arrwatch/internal/rename"
	"github.com/vmunix/arrwatch/internal/scan"
)

// Client wraps HTTP calls to the arrwatch daemon.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new daemon API client.
func NewClient(serverURL string) *Client {
	return &Client{
		baseURL: serverURL,
		httpClient: &http.Client{
			// Renames run synchronously on the daemon.
			Timeout: 5 * time.Minute,
		},
	}
}

// APIError is a non-2xx response from the daemon.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("server error %d: %s", e.Status, e.Message)
}

func (c *Client) do(method, path string, query url.Values, result any, accept ...int) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	ok := resp.StatusCode == http.StatusOK
	for _, code := range accept {
		ok = ok || resp.StatusCode == code
	}
	if !ok {
		return decodeError(resp)
	}
	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{Status: resp.StatusCode, Message: string(body)}

	var e struct {
		Error   string `json:"error"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil {
		switch {
		case e.Error != "":
			apiErr.Code, apiErr.Message = e.Code, e.Error
		case e.Message != "":
			apiErr.Message = e.Message
		}
	}
	return apiErr
}

func refQuery(ref string) url.Values {
	return url.Values{"ref": {ref}}
}

// Series lists the watched series.
func (c *Client) Series() (*api.ListSeriesResponse, error) {
	var resp api.ListSeriesResponse
	if err := c.do(http.MethodGet, "/api/v1/series", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status compares the source's episodes with the backend.
func (c *Client) Status(ref string) (*scan.SeriesStatus, error) {
	var resp scan.SeriesStatus
	if err := c.do(http.MethodGet, "/api/v1/series/status", refQuery(ref), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Preview computes renames without applying them.
func (c *Client) Preview(ref string) ([]rename.Decision, error) {
	var resp []rename.Decision
	if err := c.do(http.MethodGet, "/api/v1/series/rename-preview", refQuery(ref), &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Rename reapplies the naming rule to a series.
func (c *Client) Rename(ref string) (*api.RenameResponse, error) {
	var resp api.RenameResponse
	if err := c.do(http.MethodPost, "/api/v1/series/rename", refQuery(ref), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Scan starts a scan of ref, or of every series when ref is empty. A scan
// that is already running is reported in the response, not as an error.
func (c *Client) Scan(ref string) (*api.ScanResponse, error) {
	var q url.Values
	if ref != "" {
		q = refQuery(ref)
	}
	var resp api.ScanResponse
	if err := c.do(http.MethodPost, "/api/v1/scan", q, &resp, http.StatusAccepted, http.StatusConflict); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Scheduler returns the interval trigger state.
func (c *Client) Scheduler() (*api.SchedulerResponse, error) {
	return c.scheduler(http.MethodGet, "/api/v1/scheduler")
}

// StartScheduler turns the interval trigger on.
func (c *Client) StartScheduler() (*api.SchedulerResponse, error) {
	return c.scheduler(http.MethodPost, "/api/v1/scheduler/start")
}

// StopScheduler turns the interval trigger off.
func (c *Client) StopScheduler() (*api.SchedulerResponse, error) {
	return c.scheduler(http.MethodPost, "/api/v1/scheduler/stop")
}

func (c *Client) scheduler(method, path string) (*api.SchedulerResponse, error) {
	var resp api.SchedulerResponse
	if err := c.do(method, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EventFilter selects persisted events. Zero fields are omitted.
type EventFilter struct {
	Since string
	Ref   string
	Run   string
	Limit int
}

func (f EventFilter) query() url.Values {
	q := url.Values{}
	for k, v := range map[string]string{"since": f.Since, "ref": f.Ref, "run": f.Run} {
		if v != "" {
			q.Set(k, v)
		}
	}
	if f.Limit > 0 {
		q.Set("limit", fmt.Sprint(f.Limit))
	}
	return q
}

// Events lists persisted events.
func (c *Client) Events(f EventFilter) (*api.ListEventsResponse, error) {
	q := f.query()
	var resp api.ListEventsResponse
	if err := c.do(http.MethodGet, "/api/v1/events", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
