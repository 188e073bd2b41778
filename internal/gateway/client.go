// Package gateway is the canister HTTP client: it wraps codec-encoded
// arguments in envelopes, posts them to the call and query endpoints, and maps
// every outcome onto one ServiceResult shape.
//
// Ownership boundary:
// - pooled HTTP transport and its lifecycle
// - call/query dispatch and reply decoding
// - error taxonomy and result mapping
package gateway

import (
	"context"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/danmuck/rsvpctl/internal/logging"
	"github.com/danmuck/rsvpctl/internal/observability"
	"github.com/danmuck/rsvpctl/internal/protocol/candid"
	"github.com/danmuck/rsvpctl/internal/protocol/envelope"
)

const tracerName = "github.com/danmuck/rsvpctl/internal/gateway"

// Outcome is the raw result of one call or query before mapping. Calls fill
// Body, queries fill Value.
type Outcome struct {
	Body  map[string]any
	Value candid.Value
	Err   error
}

// Client is safe for concurrent use. The only shared state is the
// connection pool and the optional rate limiter.
type Client struct {
	cfg     Config
	base    *url.URL
	http    *http.Client
	builder envelope.Builder
	limiter *rate.Limiter
	tracer  trace.Tracer
	log     zerolog.Logger
	closed  atomic.Bool
}

// Open validates cfg and acquires the pooled HTTP transport.
func Open(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		cfg:     cfg,
		base:    base,
		http:    newHTTPClient(cfg),
		builder: envelope.Builder{Clock: cfg.Clock, Validity: cfg.IngressValidity},
		tracer:  otel.Tracer(tracerName),
		log:     logging.Component("gateway"),
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}
	c.log.Info().
		Str("gateway", cfg.BaseURL).
		Str("canister", cfg.CanisterID).
		Dur("timeout", cfg.RequestTimeout).
		Msg("gateway client opened")
	return c, nil
}

// WithClient opens a client, runs fn, and closes the client on every exit
// path including a panic in fn.
func WithClient(cfg Config, fn func(*Client) error) error {
	c, err := Open(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()
	return fn(c)
}

// Close releases pooled connections. Operations after Close fail with
// ErrClosed. Close is idempotent.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.http.CloseIdleConnections()
	c.log.Info().Msg("gateway client closed")
	return nil
}

func (c *Client) CanisterID() string { return c.cfg.CanisterID }

// Call posts a state-mutating request and returns the decoded CBOR body.
func (c *Client) Call(ctx context.Context, method string, arg []byte) Outcome {
	return c.observe(ctx, envelope.KindCall, method, func(ctx context.Context) Outcome {
		raw, env, err := c.roundTrip(ctx, envelope.KindCall, method, arg)
		if err != nil {
			return Outcome{Err: err}
		}
		body, err := envelope.DecodeBody(raw)
		if err != nil {
			return Outcome{Err: &ProtocolDecodeError{Err: err}}
		}
		body, err = c.cfg.Finalizer.FinalizeCall(ctx, env, body)
		if err != nil {
			return Outcome{Body: body, Err: err}
		}
		return Outcome{Body: body}
	})
}

// Query posts a read-only request and decodes the replied argument.
func (c *Client) Query(ctx context.Context, method string, arg []byte) Outcome {
	return c.observe(ctx, envelope.KindQuery, method, func(ctx context.Context) Outcome {
		raw, _, err := c.roundTrip(ctx, envelope.KindQuery, method, arg)
		if err != nil {
			return Outcome{Err: err}
		}
		reply, err := envelope.DecodeReply(raw)
		if err != nil {
			return Outcome{Err: &ProtocolDecodeError{Err: err}}
		}
		if !reply.Replied() {
			return Outcome{Err: &RemoteRejection{
				Status:  reply.Status,
				Code:    reply.RejectCode,
				Message: reply.RejectMessage,
			}}
		}
		v, err := candid.Decode(reply.Arg)
		if err != nil {
			return Outcome{Err: &ProtocolDecodeError{Err: err}}
		}
		return Outcome{Value: v}
	})
}

func (c *Client) observe(ctx context.Context, kind envelope.Kind, method string, fn func(context.Context) Outcome) Outcome {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	ctx, span := c.tracer.Start(ctx, "gateway."+kind.String(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rsvpctl.canister", c.cfg.CanisterID),
			attribute.String("rsvpctl.method", method),
		),
	)
	defer span.End()

	out := fn(ctx)

	elapsed := time.Since(start)
	outcome := outcomeLabel(out.Err)
	observability.RecordGatewayRequest(kind.String(), method, outcome, elapsed)
	event := c.log.Debug()
	if out.Err != nil {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, outcome)
		event = c.log.Warn().Err(out.Err)
	}
	event.
		Str("kind", kind.String()).
		Str("method", method).
		Str("outcome", outcome).
		Dur("duration", elapsed).
		Msg("gateway_request")
	return out
}
