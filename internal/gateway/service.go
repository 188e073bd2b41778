package gateway

import (
	"context"

	"github.com/danmuck/rsvpctl/internal/protocol/candid"
	"github.com/danmuck/rsvpctl/internal/protocol/envelope"
	"github.com/danmuck/rsvpctl/internal/rsvp"
)

// Canister method names.
const (
	MethodCreateEvent      = "create_event"
	MethodAddRSVP          = "add_rsvp"
	MethodCancelRSVP       = "cancel_rsvp"
	MethodListEvents       = "list_events"
	MethodListRSVPs        = "list_rsvps"
	MethodListRSVPsByEvent = "list_rsvps_by_event"
	MethodGetRSVP          = "get_rsvp"
	MethodGetEventByName   = "get_event_by_name"
	MethodHealth           = "health"
)

func (c *Client) CreateEvent(ctx context.Context, in rsvp.EventInput) ServiceResult {
	arg, err := candid.EncodeEventInput(in)
	return c.callWith(ctx, MethodCreateEvent, arg, err)
}

func (c *Client) AddRSVP(ctx context.Context, in rsvp.RSVPInput) ServiceResult {
	arg, err := candid.EncodeRSVPInput(in)
	return c.callWith(ctx, MethodAddRSVP, arg, err)
}

func (c *Client) CancelRSVP(ctx context.Context, rsvpID string) ServiceResult {
	arg, err := candid.EncodeText(rsvpID)
	return c.callWith(ctx, MethodCancelRSVP, arg, err)
}

func (c *Client) ListEvents(ctx context.Context) ServiceResult {
	return c.queryWith(ctx, MethodListEvents, candid.EncodeEmpty(), nil)
}

func (c *Client) ListRSVPs(ctx context.Context) ServiceResult {
	return c.queryWith(ctx, MethodListRSVPs, candid.EncodeEmpty(), nil)
}

func (c *Client) ListRSVPsByEvent(ctx context.Context, eventName string) ServiceResult {
	arg, err := candid.EncodeText(eventName)
	return c.queryWith(ctx, MethodListRSVPsByEvent, arg, err)
}

func (c *Client) GetRSVP(ctx context.Context, rsvpID string) ServiceResult {
	arg, err := candid.EncodeText(rsvpID)
	return c.queryWith(ctx, MethodGetRSVP, arg, err)
}

func (c *Client) GetEventByName(ctx context.Context, eventName string) ServiceResult {
	arg, err := candid.EncodeText(eventName)
	return c.queryWith(ctx, MethodGetEventByName, arg, err)
}

func (c *Client) HealthCheck(ctx context.Context) ServiceResult {
	return c.queryWith(ctx, MethodHealth, candid.EncodeEmpty(), nil)
}

// callWith and queryWith surface an encode failure as an EncodingError
// instead of sending anything.
func (c *Client) callWith(ctx context.Context, method string, arg []byte, encErr error) ServiceResult {
	if encErr != nil {
		return MapResult(envelope.KindCall, Outcome{Err: &EncodingError{Method: method, Err: encErr}})
	}
	return MapResult(envelope.KindCall, c.Call(ctx, method, arg))
}

func (c *Client) queryWith(ctx context.Context, method string, arg []byte, encErr error) ServiceResult {
	if encErr != nil {
		return MapResult(envelope.KindQuery, Outcome{Err: &EncodingError{Method: method, Err: encErr}})
	}
	return MapResult(envelope.KindQuery, c.Query(ctx, method, arg))
}
