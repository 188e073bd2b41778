package action

import (
	"context"
	"fmt"

	"github.com/danmuck/rsvpctl/internal/gateway"
	"github.com/danmuck/rsvpctl/internal/rsvp"
)

// Service is the set of canister operations an Action can run against.
// *gateway.Client implements it.
type Service interface {
	CreateEvent(ctx context.Context, in rsvp.EventInput) gateway.ServiceResult
	AddRSVP(ctx context.Context, in rsvp.RSVPInput) gateway.ServiceResult
	CancelRSVP(ctx context.Context, rsvpID string) gateway.ServiceResult
	ListEvents(ctx context.Context) gateway.ServiceResult
	ListRSVPs(ctx context.Context) gateway.ServiceResult
	ListRSVPsByEvent(ctx context.Context, eventName string) gateway.ServiceResult
	GetRSVP(ctx context.Context, rsvpID string) gateway.ServiceResult
	GetEventByName(ctx context.Context, eventName string) gateway.ServiceResult
	HealthCheck(ctx context.Context) gateway.ServiceResult
}

var _ Service = (*gateway.Client)(nil)

// Execute runs a against svc.
func Execute(ctx context.Context, svc Service, a Action) gateway.ServiceResult {
	switch a := a.(type) {
	case CreateEvent:
		return svc.CreateEvent(ctx, a.Input)
	case AddRSVP:
		return svc.AddRSVP(ctx, a.Input)
	case CancelRSVP:
		return svc.CancelRSVP(ctx, a.RSVPID)
	case ListEvents:
		return svc.ListEvents(ctx)
	case ListRSVPs:
		return svc.ListRSVPs(ctx)
	case ListRSVPsByEvent:
		return svc.ListRSVPsByEvent(ctx, a.EventName)
	case GetRSVP:
		return svc.GetRSVP(ctx, a.RSVPID)
	case GetEventByName:
		return svc.GetEventByName(ctx, a.EventName)
	case HealthCheck:
		return svc.HealthCheck(ctx)
	default:
		return gateway.ServiceResult{Success: false, Message: fmt.Sprintf("unsupported action %T", a)}
	}
}
