package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/danmuck/rsvpctl/internal/testutil/testlog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordIngressRequest("rsvp-manager", "/health", 200, 12*time.Millisecond)
	RecordGatewayRequest("query", "list_events", "ok", 24*time.Millisecond)
	RecordAgentMessage("chat_message", true)
}

func TestRecordGatewayRequestCounts(t *testing.T) {
	testlog.Start(t)
	before := testutil.ToFloat64(gatewayRequests.WithLabelValues("call", "create_event", "http_error"))
	RecordGatewayRequest("call", "create_event", "http_error", time.Millisecond)
	RecordGatewayRequest("call", "create_event", "http_error", time.Millisecond)
	after := testutil.ToFloat64(gatewayRequests.WithLabelValues("call", "create_event", "http_error"))
	if after-before != 2 {
		t.Fatalf("expected 2 increments, got %v", after-before)
	}

	before = testutil.ToFloat64(agentMessages.WithLabelValues("rsvp_response", "error"))
	RecordAgentMessage("rsvp_response", false)
	if got := testutil.ToFloat64(agentMessages.WithLabelValues("rsvp_response", "error")); got-before != 1 {
		t.Fatalf("expected 1 increment, got %v", got-before)
	}
}
