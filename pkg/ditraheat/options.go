package ditraheat

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Option configures a Client.
type Option func(*clientConfig) error

// clientConfig holds the configuration for a Client.
type clientConfig struct {
	baseURL         string
	httpClient      *http.Client
	timeout         time.Duration
	mode            RegulationMode
	comfortDuration time.Duration
	logger          *slog.Logger
}

// defaultConfig returns the default client configuration.
func defaultConfig() *clientConfig {
	return &clientConfig{
		baseURL:         DefaultBaseURL,
		mode:            ModeSchedule,
		comfortDuration: DefaultComfortDuration,
		logger:          nil,
	}
}

// WithBaseURL points the client at a different host.
// Default is DefaultBaseURL.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) error {
		if url == "" {
			return errors.New("base URL cannot be empty")
		}
		c.baseURL = strings.TrimRight(url, "/")
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for all requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) error {
		if client == nil {
			return errors.New("HTTP client cannot be nil")
		}
		c.httpClient = client
		return nil
	}
}

// WithTimeout bounds each HTTP exchange.
// By default no timeout is applied beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		c.timeout = d
		return nil
	}
}

// WithRegulationMode sets the mode used by SetTargetTemperature.
// Default is ModeSchedule.
func WithRegulationMode(mode RegulationMode) Option {
	return func(c *clientConfig) error {
		if mode < ModeSchedule || mode > ModeAway {
			return ErrInvalidMode
		}
		c.mode = mode
		return nil
	}
}

// WithComfortDuration sets how long a Temporary setpoint lasts.
// Default is 2 hours.
func WithComfortDuration(d time.Duration) Option {
	return func(c *clientConfig) error {
		if d <= 0 {
			return errors.New("comfort duration must be positive")
		}
		c.comfortDuration = d
		return nil
	}
}

// WithLogger sets a structured logger for debug and error logging.
// By default, no logging is performed.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) error {
		c.logger = logger
		return nil
	}
}
