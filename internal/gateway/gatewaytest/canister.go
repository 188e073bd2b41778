// Package gatewaytest serves an in-memory RSVP canister over the gateway
// call/query endpoints so client, agent and ingress tests run without a
// replica.
package gatewaytest

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/rsvpctl/internal/protocol/candid"
	"github.com/danmuck/rsvpctl/internal/protocol/candid/candidtest"
	"github.com/danmuck/rsvpctl/internal/protocol/envelope"
	"github.com/danmuck/rsvpctl/internal/rsvp"
)

const pathPrefix = "/api/v2/canister/"

// Reject codes used by the fake.
const (
	CodeDestinationInvalid = 3
	CodeCanisterReject     = 4
)

// Canister is a fake RSVP canister. The zero value is not usable; call
// NewCanister.
type Canister struct {
	// Intercept runs before normal dispatch; returning true means it wrote
	// the response.
	Intercept func(w http.ResponseWriter, env envelope.Envelope) bool
	Now       func() time.Time

	mu       sync.Mutex
	events   []rsvp.Event
	rsvps    []rsvp.RSVP
	nextID   int
	requests []envelope.Envelope
}

func NewCanister() *Canister {
	return &Canister{Now: time.Now}
}

// Serve starts an httptest server closed with t.
func (c *Canister) Serve(t testing.TB) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(c)
	t.Cleanup(srv.Close)
	return srv
}

// Requests returns every envelope received so far.
func (c *Canister) Requests() []envelope.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]envelope.Envelope, len(c.requests))
	copy(out, c.requests)
	return out
}

// Events returns the stored events.
func (c *Canister) Events() []rsvp.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]rsvp.Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *Canister) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.Header.Get("Content-Type") != "application/cbor" {
		http.Error(w, "unsupported content type", http.StatusUnsupportedMediaType)
		return
	}
	rest, ok := strings.CutPrefix(r.URL.Path, pathPrefix)
	if !ok {
		http.NotFound(w, r)
		return
	}
	target, kindName, ok := strings.Cut(rest, "/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	kind, err := envelope.ParseKind(kindName)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	env, err := envelope.Parse(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if env.Kind != kind || env.TargetID != target {
		http.Error(w, "envelope does not match endpoint", http.StatusBadRequest)
		return
	}
	if env.Expiry <= uint64(c.Now().UnixNano()) {
		http.Error(w, "ingress expiry has passed", http.StatusBadRequest)
		return
	}

	c.mu.Lock()
	c.requests = append(c.requests, env)
	c.mu.Unlock()

	if c.Intercept != nil && c.Intercept(w, env) {
		return
	}

	reply := c.dispatch(env)
	body, err := envelope.EncodeReply(reply)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	WriteCBOR(w, http.StatusOK, body)
}

// WriteCBOR writes a CBOR body with status.
func WriteCBOR(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/cbor")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Replied builds a replied reply carrying args.
func Replied(args ...candid.Value) envelope.Reply {
	return envelope.Reply{Status: envelope.StatusReplied, Arg: candidtest.Encode(args...)}
}

// Rejected builds a rejected reply.
func Rejected(code uint64, msg string) envelope.Reply {
	return envelope.Reply{Status: envelope.StatusRejected, RejectCode: code, RejectMessage: msg}
}

func (c *Canister) dispatch(env envelope.Envelope) envelope.Reply {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch env.Method {
	case "create_event":
		v, err := candid.Decode(env.Arg)
		if err != nil {
			return Rejected(CodeCanisterReject, err.Error())
		}
		in, err := candid.DecodeEventInput(v)
		if err != nil {
			return Rejected(CodeCanisterReject, err.Error())
		}
		if _, ok := c.findEvent(in.Name); ok {
			return Rejected(CodeCanisterReject, fmt.Sprintf("Event '%s' already exists", in.Name))
		}
		c.events = append(c.events, rsvp.Event{
			Name:            in.Name,
			Description:     in.Description,
			Date:            in.Date,
			MaxParticipants: in.MaxParticipants,
			CreatedAt:       uint64(c.Now().UnixNano()),
		})
		return Replied(candid.NewText(fmt.Sprintf("Event '%s' created successfully", in.Name)))
	case "add_rsvp":
		v, err := candid.Decode(env.Arg)
		if err != nil {
			return Rejected(CodeCanisterReject, err.Error())
		}
		in, err := candid.DecodeRSVPInput(v)
		if err != nil {
			return Rejected(CodeCanisterReject, err.Error())
		}
		i, ok := c.findEvent(in.EventName)
		if !ok {
			return Rejected(CodeCanisterReject, "Event not found")
		}
		if c.events[i].CurrentParticipants >= c.events[i].MaxParticipants {
			return Rejected(CodeCanisterReject, "Event is full")
		}
		c.nextID++
		r := rsvp.RSVP{
			ID:               fmt.Sprintf("rsvp-%d", c.nextID),
			EventName:        in.EventName,
			ParticipantName:  in.ParticipantName,
			ParticipantEmail: in.ParticipantEmail,
			Timestamp:        uint64(c.Now().UnixNano()),
			Status:           rsvp.StatusConfirmed,
		}
		c.rsvps = append(c.rsvps, r)
		c.events[i].CurrentParticipants++
		return Replied(candid.NewText(fmt.Sprintf("RSVP %s added for %s", r.ID, r.ParticipantName)))
	case "cancel_rsvp":
		id, ok := textArg(env.Arg)
		if !ok {
			return Rejected(CodeCanisterReject, "expected text argument")
		}
		j, ok := c.findRSVP(id)
		if !ok {
			return Rejected(CodeCanisterReject, "RSVP not found")
		}
		if c.rsvps[j].Status != rsvp.StatusCancelled {
			c.rsvps[j].Status = rsvp.StatusCancelled
			if i, ok := c.findEvent(c.rsvps[j].EventName); ok && c.events[i].CurrentParticipants > 0 {
				c.events[i].CurrentParticipants--
			}
		}
		return Replied(candid.NewText(fmt.Sprintf("RSVP %s cancelled", id)))
	case "list_events":
		items := make([]candid.Value, 0, len(c.events))
		for _, ev := range c.events {
			items = append(items, candidtest.EventRecord(ev))
		}
		return Replied(candid.NewVec(items...))
	case "list_rsvps":
		return Replied(c.rsvpVec(""))
	case "list_rsvps_by_event":
		name, ok := textArg(env.Arg)
		if !ok {
			return Rejected(CodeCanisterReject, "expected text argument")
		}
		return Replied(c.rsvpVec(name))
	case "get_rsvp":
		id, ok := textArg(env.Arg)
		if !ok {
			return Rejected(CodeCanisterReject, "expected text argument")
		}
		j, ok := c.findRSVP(id)
		if !ok {
			return Rejected(CodeCanisterReject, "not found")
		}
		return Replied(candidtest.RSVPRecord(c.rsvps[j]))
	case "get_event_by_name":
		name, ok := textArg(env.Arg)
		if !ok {
			return Rejected(CodeCanisterReject, "expected text argument")
		}
		i, ok := c.findEvent(name)
		if !ok {
			return Rejected(CodeCanisterReject, "not found")
		}
		return Replied(candidtest.EventRecord(c.events[i]))
	case "health":
		return Replied(candid.NewText("ok"))
	default:
		return Rejected(CodeDestinationInvalid, fmt.Sprintf("method %q not found", env.Method))
	}
}

func (c *Canister) rsvpVec(eventName string) candid.Value {
	items := make([]candid.Value, 0, len(c.rsvps))
	for _, r := range c.rsvps {
		if eventName != "" && r.EventName != eventName {
			continue
		}
		items = append(items, candidtest.RSVPRecord(r))
	}
	return candid.NewVec(items...)
}

func (c *Canister) findEvent(name string) (int, bool) {
	for i, ev := range c.events {
		if ev.Name == name {
			return i, true
		}
	}
	return 0, false
}

func (c *Canister) findRSVP(id string) (int, bool) {
	for i, r := range c.rsvps {
		if r.ID == id {
			return i, true
		}
	}
	return 0, false
}

func textArg(arg []byte) (string, bool) {
	v, err := candid.Decode(arg)
	if err != nil {
		return "", false
	}
	s, err := v.AsText()
	return s, err == nil
}
