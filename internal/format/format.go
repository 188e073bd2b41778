// Package format renders gateway results as chat replies.
package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/rsvpctl/internal/gateway"
	"github.com/danmuck/rsvpctl/internal/protocol/candid"
	"github.com/danmuck/rsvpctl/internal/protocol/schema"
	"github.com/danmuck/rsvpctl/internal/rsvp"
)

// Operation names accepted by Format.
const (
	OpCreateEvent      = "create_event"
	OpAddRSVP          = "add_rsvp"
	OpCancelRSVP       = "cancel_rsvp"
	OpListEvents       = "list_events"
	OpListRSVPs        = "list_rsvps"
	OpListRSVPsByEvent = "list_rsvps_by_event"
	OpGetRSVP          = "get_rsvp"
	OpGetEventByName   = "get_event_by_name"
	OpHealthCheck      = "health_check"
)

const (
	markError   = "❌ Error: "
	markOK      = "✅ "
	markHealthy = "🟢 "
	notAvail    = "N/A"
)

// Format renders res for operation op. The result is never empty.
func Format(res gateway.ServiceResult, op string) string {
	if !res.Success {
		msg := res.Message
		if strings.TrimSpace(msg) == "" {
			msg = "unknown failure"
		}
		return markError + msg
	}

	switch op {
	case OpCreateEvent:
		return markOK + textOr(res.Data, "Event created successfully!")
	case OpAddRSVP:
		return markOK + textOr(res.Data, "RSVP added successfully!")
	case OpCancelRSVP:
		return markOK + textOr(res.Data, "RSVP cancelled successfully!")
	case OpHealthCheck:
		return markHealthy + textOr(res.Data, "Service is running healthy!")
	case OpListEvents:
		items := list(res.Data)
		if len(items) == 0 {
			return "📅 No events found."
		}
		var b strings.Builder
		b.WriteString("\n📅 **Events:**\n")
		for _, item := range items {
			writeEvent(&b, fields(item, schema.ShapeEvent))
		}
		return b.String()
	case OpListRSVPs, OpListRSVPsByEvent:
		items := list(res.Data)
		if len(items) == 0 {
			return "📋 No RSVPs found."
		}
		var b strings.Builder
		b.WriteString("\n📋 **RSVPs:**\n")
		for _, item := range items {
			writeRSVP(&b, fields(item, schema.ShapeRSVP))
		}
		return b.String()
	case OpGetRSVP:
		f := fields(res.Data, schema.ShapeRSVP)
		if len(f) == 0 {
			return "❌ RSVP not found."
		}
		status := text(f, "status")
		return fmt.Sprintf("📋 **RSVP Details:**\n• **%s** %s\n📧 %s\n🎪 Event: %s\n📊 Status: %s",
			text(f, "participant_name"), statusEmoji(status), text(f, "participant_email"), text(f, "event_name"), status)
	case OpGetEventByName:
		f := fields(res.Data, schema.ShapeEvent)
		if len(f) == 0 {
			return "❌ Event not found."
		}
		return fmt.Sprintf("📅 **Event Details:**\n• **%s**\n📝 %s\n🗓️ %s\n👥 %s/%s participants",
			text(f, "name"), text(f, "description"), text(f, "date"),
			count(f, "current_participants"), count(f, "max_participants"))
	default:
		return "✅ Operation succeeded: " + res.Message
	}
}

func writeEvent(b *strings.Builder, f map[string]any) {
	fmt.Fprintf(b, "• **%s**\n", text(f, "name"))
	fmt.Fprintf(b, "  📝 %s\n", text(f, "description"))
	fmt.Fprintf(b, "  🗓️ %s\n", text(f, "date"))
	fmt.Fprintf(b, "  👥 %s/%s participants\n\n", count(f, "current_participants"), count(f, "max_participants"))
}

func writeRSVP(b *strings.Builder, f map[string]any) {
	status := text(f, "status")
	fmt.Fprintf(b, "• **%s** %s\n", text(f, "participant_name"), statusEmoji(status))
	fmt.Fprintf(b, "  📧 %s\n", text(f, "participant_email"))
	fmt.Fprintf(b, "  🎪 Event: %s\n", text(f, "event_name"))
	fmt.Fprintf(b, "  📊 Status: %s\n\n", status)
}

func statusEmoji(status string) string {
	switch rsvp.Status(status) {
	case rsvp.StatusConfirmed:
		return "✅"
	case rsvp.StatusCancelled:
		return "❌"
	default:
		return "⏳"
	}
}

func textOr(data any, fallback string) string {
	if s, ok := data.(string); ok && s != "" {
		return s
	}
	return fallback
}

// list accepts the shapes result data takes after projection or after a JSON
// round trip. A vec that did not project is kept as raw items.
func list(data any) []any {
	switch v := data.(type) {
	case []any:
		return v
	case candid.Value:
		if v.Kind != candid.KindVec {
			return nil
		}
		out := make([]any, 0, len(v.Items))
		for _, item := range v.Items {
			out = append(out, item)
		}
		return out
	case []rsvp.Event:
		out := make([]any, 0, len(v))
		for _, ev := range v {
			out = append(out, ev)
		}
		return out
	case []rsvp.RSVP:
		out := make([]any, 0, len(v))
		for _, r := range v {
			out = append(out, r)
		}
		return out
	case []map[string]any:
		out := make([]any, 0, len(v))
		for _, m := range v {
			out = append(out, m)
		}
		return out
	default:
		return nil
	}
}

func fields(item any, shape schema.Shape) map[string]any {
	switch v := item.(type) {
	case candid.Value:
		return recordFields(v, shape)
	case rsvp.Event:
		return eventFields(v)
	case *rsvp.Event:
		if v == nil {
			return nil
		}
		return eventFields(*v)
	case rsvp.RSVP:
		return rsvpFields(v)
	case *rsvp.RSVP:
		if v == nil {
			return nil
		}
		return rsvpFields(*v)
	case map[string]any:
		return v
	default:
		return nil
	}
}

func eventFields(ev rsvp.Event) map[string]any {
	return map[string]any{
		"name":                 ev.Name,
		"description":          ev.Description,
		"date":                 ev.Date,
		"max_participants":     ev.MaxParticipants,
		"current_participants": ev.CurrentParticipants,
		"created_at":           ev.CreatedAt,
	}
}

// recordFields names the fields of a record that matched no known shape, so
// partial records still render. Unknown ids are dropped.
func recordFields(v candid.Value, shape schema.Shape) map[string]any {
	if v.Kind != candid.KindRecord {
		return nil
	}
	out := make(map[string]any, len(v.Fields))
	for _, f := range v.Fields {
		name := schema.FieldName(shape, f.ID)
		if name == "" {
			continue
		}
		switch f.Value.Kind {
		case candid.KindText:
			out[name] = f.Value.Text
		case candid.KindNat:
			out[name] = f.Value.Nat
		}
	}
	return out
}

func rsvpFields(r rsvp.RSVP) map[string]any {
	return map[string]any{
		"id":                r.ID,
		"event_name":        r.EventName,
		"participant_name":  r.ParticipantName,
		"participant_email": r.ParticipantEmail,
		"timestamp":         r.Timestamp,
		"status":            string(r.Status),
	}
}

func text(f map[string]any, key string) string {
	if s, ok := f[key].(string); ok && s != "" {
		return s
	}
	return notAvail
}

func count(f map[string]any, key string) string {
	switch n := f[key].(type) {
	case uint64:
		return strconv.FormatUint(n, 10)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return "0"
	}
}
