package calsync

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/fractal/pkg/buildinfo"
	"github.com/matzehuels/fractal/pkg/errors"
	"github.com/matzehuels/fractal/pkg/httputil"
	"github.com/matzehuels/fractal/pkg/observability"
	"github.com/matzehuels/fractal/pkg/task"
)

// DefaultBaseURL is the Google Calendar v3 API root.
const DefaultBaseURL = "https://www.googleapis.com/calendar/v3"

const (
	httpTimeout   = 10 * time.Second
	retryAttempts = 3
	retryDelay    = time.Second
)

// TokenFunc returns the bearer token for the next request.
type TokenFunc func(ctx context.Context) (string, error)

// StaticToken returns a TokenFunc that always yields token.
func StaticToken(token string) TokenFunc {
	return func(context.Context) (string, error) { return token, nil }
}

// Config configures a [Client].
type Config struct {
	BaseURL    string // defaults to DefaultBaseURL
	CalendarID string // defaults to "primary"
	Token      TokenFunc
	HTTP       *http.Client
	RetryDelay time.Duration // initial backoff; defaults to one second
}

// Client talks to the events collection of one calendar.
type Client struct {
	http       *http.Client
	base       string
	calendarID string
	token      TokenFunc
	delay      time.Duration
}

// NewClient creates a Client, filling unset Config fields with defaults.
func NewClient(cfg Config) *Client {
	c := &Client{
		http:       cfg.HTTP,
		base:       strings.TrimSuffix(cfg.BaseURL, "/"),
		calendarID: cfg.CalendarID,
		token:      cfg.Token,
		delay:      cfg.RetryDelay,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: httpTimeout}
	}
	if c.base == "" {
		c.base = DefaultBaseURL
	}
	if c.calendarID == "" {
		c.calendarID = "primary"
	}
	if c.delay <= 0 {
		c.delay = retryDelay
	}
	return c
}

// EventTime is a calendar timestamp.
type EventTime struct {
	DateTime string `json:"dateTime"`
}

// Event is the subset of a calendar event the planner writes.
type Event struct {
	ID                 string              `json:"id,omitempty"`
	Summary            string              `json:"summary"`
	Description        string              `json:"description,omitempty"`
	Start              EventTime           `json:"start"`
	End                EventTime           `json:"end"`
	Status             string              `json:"status,omitempty"`
	ExtendedProperties *ExtendedProperties `json:"extendedProperties,omitempty"`
}

// ExtendedProperties carries planner metadata on the event.
type ExtendedProperties struct {
	Private map[string]string `json:"private,omitempty"`
}

// Keys of the private extended properties.
const (
	PropTaskID = "fractalTaskId"
	PropSector = "fractalSector"
)

// EventFromTask maps a task onto a calendar event.
func EventFromTask(t task.Task) Event {
	e := Event{
		Summary:     t.Title,
		Description: t.Description,
		Start:       EventTime{DateTime: t.Start.Format(time.RFC3339)},
		End:         EventTime{DateTime: t.End.Format(time.RFC3339)},
		Status:      "confirmed",
		ExtendedProperties: &ExtendedProperties{Private: map[string]string{
			PropTaskID: t.ID,
			PropSector: t.Key().String(),
		}},
	}
	if t.Status == task.StatusCancelled {
		e.Status = "cancelled"
	}
	return e
}

// Insert creates an event and returns its id.
func (c *Client) Insert(ctx context.Context, e Event) (string, error) {
	var out Event
	if err := c.do(ctx, http.MethodPost, c.eventsPath(""), e, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New(errors.ErrCodeInvalidFormat, "insert event: response has no id")
	}
	return out.ID, nil
}

// Patch updates the event with id.
func (c *Client) Patch(ctx context.Context, id string, e Event) error {
	return c.do(ctx, http.MethodPatch, c.eventsPath(id), e, nil)
}

// Delete removes the event with id. An event that is already gone counts
// as deleted.
func (c *Client) Delete(ctx context.Context, id string) error {
	err := c.do(ctx, http.MethodDelete, c.eventsPath(id), nil, nil)
	if errors.Is(err, errors.ErrCodeNotFound) {
		return nil
	}
	return err
}

func (c *Client) eventsPath(id string) string {
	p := "/calendars/" + url.PathEscape(c.calendarID) + "/events"
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	token, err := c.token(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeUnauthorized, err, "calendar token")
	}

	return httputil.Retry(ctx, retryAttempts, c.delay, func() error {
		return c.once(ctx, method, path, token, payload, out)
	})
}

func (c *Client) once(ctx context.Context, method, path, token string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hooks := observability.HTTP()
	host := req.URL.Host
	hooks.OnRequest(ctx, method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, host, path, err)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		code := errors.ErrCodeNetwork
		if isTimeout(err) {
			code = errors.ErrCodeTimeout
		}
		return &httputil.RetryableError{Err: errors.Wrap(code, err, "%s %s", method, path)}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, method, host, path, resp.StatusCode, time.Since(start))

	if err := httputil.CheckStatus(resp); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s %s", method, path)
	}
	return nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return stderrors.As(err, &t) && t.Timeout()
}
