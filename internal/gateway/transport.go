package gateway

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/danmuck/rsvpctl/internal/protocol/envelope"
)

// ContentType is the media type of request and reply bodies.
const ContentType = "application/cbor"

func newHTTPClient(cfg Config) *http.Client {
	rt := cfg.Transport
	if rt == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.MaxIdleConns = cfg.MaxIdleConns
		t.MaxIdleConnsPerHost = cfg.MaxIdleConns
		rt = t
	}
	return &http.Client{Transport: rt}
}

func (c *Client) endpoint(kind envelope.Kind) string {
	return c.base.JoinPath("api", "v2", "canister", c.cfg.CanisterID, kind.String()).String()
}

// roundTrip builds, checks and posts one envelope. The expiry is checked again
// after any rate-limit wait so a stale envelope is never transmitted.
func (c *Client) roundTrip(ctx context.Context, kind envelope.Kind, method string, arg []byte) ([]byte, envelope.Envelope, error) {
	if c.closed.Load() {
		return nil, envelope.Envelope{}, &TransportError{Op: "send " + kind.String(), Err: ErrClosed}
	}
	env, err := c.builder.Build(kind, c.cfg.CanisterID, method, arg)
	if err != nil {
		return nil, env, envelopeError(method, err)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, env, &TransportError{Op: "rate limit", Err: err}
		}
	}
	if err := env.Validate(c.cfg.Clock.Now()); err != nil {
		return nil, env, envelopeError(method, err)
	}
	body, err := envelope.Serialize(env)
	if err != nil {
		return nil, env, &EncodingError{Method: method, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(kind), bytes.NewReader(body))
	if err != nil {
		return nil, env, &TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("Content-Type", ContentType)
	c.log.Trace().Str("method", method).Str("envelope", envelope.Diagnose(body)).Msg("gateway_send")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, env, &TransportError{Op: "post " + kind.String(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxReplyBytes+1))
	if err != nil {
		return nil, env, &TransportError{Op: "read reply", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		if int64(len(raw)) > c.cfg.MaxReplyBytes {
			raw = raw[:c.cfg.MaxReplyBytes]
		}
		return nil, env, &HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if int64(len(raw)) > c.cfg.MaxReplyBytes {
		return nil, env, &ProtocolDecodeError{Err: ErrReplyTooLarge}
	}
	return raw, env, nil
}

func envelopeError(method string, err error) error {
	if errors.Is(err, envelope.ErrExpired) || errors.Is(err, envelope.ErrExpiryComputation) {
		return &ExpiryError{Err: err}
	}
	return &EncodingError{Method: method, Err: err}
}
