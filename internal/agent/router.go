package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/danmuck/rsvpctl/internal/action"
	"github.com/danmuck/rsvpctl/internal/mailbox"
)

var ErrUnknownMessageType = errors.New("agent: unknown message type")

// Handler processes one inbound envelope. svc is nil for agents that never
// reach the canister.
type Handler func(ctx context.Context, sender string, env mailbox.Envelope, svc action.Service) error

// Router maps message type tags to handlers.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRouter() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

// Handle registers h for msgType, replacing any previous handler.
func (r *Router) Handle(msgType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[msgType] = h
}

// Routes reports whether msgType has a handler.
func (r *Router) Routes(msgType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[msgType]
	return ok
}

// Types lists registered message types in sorted order.
func (r *Router) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Dispatch runs the handler registered for env.Type.
func (r *Router) Dispatch(ctx context.Context, sender string, env mailbox.Envelope, svc action.Service) error {
	r.mu.RLock()
	h, ok := r.handlers[env.Type]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMessageType, env.Type)
	}
	return h(ctx, sender, env, svc)
}
