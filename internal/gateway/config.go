package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/danmuck/rsvpctl/internal/clock"
	"github.com/danmuck/rsvpctl/internal/protocol/envelope"
)

const (
	DefaultGatewayURL = "http://127.0.0.1:4943"
	DefaultCanisterID = "uxrrr-q7777-77774-qaaaq-cai"
)

var ErrInvalidConfig = errors.New("gateway: invalid config")

// Config defines the canister target and transport limits of one Client.
type Config struct {
	BaseURL         string
	CanisterID      string
	RequestTimeout  time.Duration
	IngressValidity time.Duration
	// RateLimit is requests per second across the client. Zero disables it.
	RateLimit     float64
	RateBurst     int
	MaxReplyBytes int64
	MaxIdleConns  int

	Clock     clock.Clock
	Finalizer CallFinalizer
	// Transport overrides the pooled HTTP transport, mostly for tests.
	Transport http.RoundTripper
}

// DefaultConfig targets a local replica with the default canister.
func DefaultConfig() Config {
	return Config{
		BaseURL:         DefaultGatewayURL,
		CanisterID:      DefaultCanisterID,
		RequestTimeout:  30 * time.Second,
		IngressValidity: envelope.DefaultValidity,
		RateBurst:       1,
		MaxReplyBytes:   8 << 20,
		MaxIdleConns:    16,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = d.BaseURL
	}
	if strings.TrimSpace(c.CanisterID) == "" {
		c.CanisterID = d.CanisterID
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.IngressValidity <= 0 {
		c.IngressValidity = d.IngressValidity
	}
	if c.RateBurst <= 0 {
		c.RateBurst = d.RateBurst
	}
	if c.MaxReplyBytes <= 0 {
		c.MaxReplyBytes = d.MaxReplyBytes
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = d.MaxIdleConns
	}
	if c.Clock == nil {
		c.Clock = clock.Real()
	}
	if c.Finalizer == nil {
		c.Finalizer = SyncReply{}
	}
	return c
}

// Validate checks the gateway URL and limits.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: gateway url: %w", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: gateway url scheme %q", ErrInvalidConfig, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: gateway url missing host", ErrInvalidConfig)
	}
	if strings.ContainsAny(c.CanisterID, "/?# ") {
		return fmt.Errorf("%w: canister id %q", ErrInvalidConfig, c.CanisterID)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: negative rate limit", ErrInvalidConfig)
	}
	return nil
}
