package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func render(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestCounterRendering(t *testing.T) {
	c := New()
	c.Describe("todobot_tool_invocations_total", "Tool invocations by tool and status")
	c.Inc("todobot_tool_invocations_total", Label{"tool", "add_task"}, Label{"status", "success"})
	c.Inc("todobot_tool_invocations_total", Label{"tool", "add_task"}, Label{"status", "success"})
	c.Inc("todobot_tool_invocations_total", Label{"status", "error"}, Label{"tool", "delete_task"})

	out := render(t, c)
	if want := `todobot_tool_invocations_total{status="success",tool="add_task"} 2`; !contains(out, want) {
		t.Errorf("missing %q in:\n%s", want, out)
	}
	if want := `todobot_tool_invocations_total{status="error",tool="delete_task"} 1`; !contains(out, want) {
		t.Errorf("label order must not split series, got:\n%s", out)
	}
	if want := "# HELP todobot_tool_invocations_total"; !contains(out, want) {
		t.Errorf("missing help line in:\n%s", out)
	}
}

func TestGaugeAndHistogram(t *testing.T) {
	c := New()
	c.SetGauge("todobot_open_conversations", 3)
	c.Observe("todobot_engine_latency_seconds", 0.7)
	c.Observe("todobot_engine_latency_seconds", 40)

	out := render(t, c)
	if want := "todobot_open_conversations 3"; !contains(out, want) {
		t.Errorf("missing %q in:\n%s", want, out)
	}
	if want := `todobot_engine_latency_seconds_bucket{le="1"} 1`; !contains(out, want) {
		t.Errorf("missing %q in:\n%s", want, out)
	}
	if want := `todobot_engine_latency_seconds_bucket{le="+Inf"} 2`; !contains(out, want) {
		t.Errorf("missing %q in:\n%s", want, out)
	}
	if want := "todobot_engine_latency_seconds_count 2"; !contains(out, want) {
		t.Errorf("missing %q in:\n%s", want, out)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.Inc("todobot_messages_total")
	c.Add("todobot_messages_total", 5)
	c.SetGauge("todobot_open_conversations", 1)
	c.Observe("todobot_engine_latency_seconds", 1.0)
	c.Describe("todobot_messages_total", "help")
	if got := c.Uptime(); got != 0 {
		t.Errorf("nil uptime = %v, want 0", got)
	}
	render(t, c)
}

func contains(s, sub string) bool { return strings.Contains(s, sub) }
