package ditraheat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxErrorBody caps how much of an error response is kept in APIError.
const maxErrorBody = 512

// Client talks to the DITRA-HEAT-E-WiFi cloud service on behalf of one
// thermostat.
type Client struct {
	baseURL         string
	serialNumber    string
	httpClient      *http.Client
	mode            RegulationMode
	comfortDuration time.Duration
	logger          *slog.Logger
	session         *session
	now             func() time.Time
}

// NewClient creates a client for the thermostat with the given serial number.
// No request is made until the first operation; sign-in happens lazily.
func NewClient(email, password, serialNumber string, opts ...Option) (*Client, error) {
	if email == "" {
		return nil, ErrEmptyEmail
	}
	if password == "" {
		return nil, ErrEmptyPassword
	}
	if serialNumber == "" {
		return nil, ErrEmptySerialNumber
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.timeout > 0 {
		hc := *httpClient
		hc.Timeout = cfg.timeout
		httpClient = &hc
	}

	c := &Client{
		baseURL:         cfg.baseURL,
		serialNumber:    serialNumber,
		httpClient:      httpClient,
		mode:            cfg.mode,
		comfortDuration: cfg.comfortDuration,
		logger:          cfg.logger,
		now:             time.Now,
	}
	c.session = newSession(email, password, c.signIn, cfg.logger)

	return c, nil
}

// SerialNumber returns the serial number of the controlled thermostat.
func (c *Client) SerialNumber() string {
	return c.serialNumber
}

// RegulationMode returns the mode used by SetTargetTemperature.
func (c *Client) RegulationMode() RegulationMode {
	return c.mode
}

// do performs one HTTP exchange. A 2xx body is decoded into out when out is
// non-nil; anything else becomes an *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", path, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("request failed", "method", method, "path", path, "error", err)
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	if c.logger != nil {
		c.logger.Debug("response received", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(respBody))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return &APIError{
			Method:     method,
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrMalformedResponse, method, path, err)
	}
	return nil
}

// doAuthed attaches the session to the request. A 401 clears the session so
// the next call signs in again; the current call still fails.
func (c *Client) doAuthed(ctx context.Context, method, path string, query url.Values, body, out any) error {
	token, err := c.session.ensure(ctx)
	if err != nil {
		return err
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set(ParamSessionID, token)

	err = c.do(ctx, method, path, query, body, out)
	if IsUnauthorized(err) {
		c.session.invalidate(token)
	}
	return err
}

// thermostatQuery returns the query shared by the thermostat endpoints.
func (c *Client) thermostatQuery() url.Values {
	return url.Values{ParamSerialNumber: {c.serialNumber}}
}
