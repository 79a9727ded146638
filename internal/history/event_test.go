package history

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvents(t *testing.T) {
	t.Parallel()
	raw := []byte(`{"events": [
		{"eventId": "1", "eventTime": "2026-03-01T10:00:00.120Z",
		 "eventType": "EVENT_TYPE_WORKFLOW_EXECUTION_STARTED",
		 "workflowExecutionStartedEventAttributes": {
			"workflowType": {"name": "OnboardingFlow"},
			"input": {"payloads": [{"data": "eyJrIjoidiJ9"}]}
		 }},
		{"eventId": 2, "eventTime": "2026-03-01T10:00:01Z",
		 "eventType": "EVENT_TYPE_WORKFLOW_TASK_SCHEDULED",
		 "workflowTaskScheduledEventAttributes": {}}
	]}`)

	events, err := ParseEvents(raw)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, int64(1), events[0].EventID)
	assert.Equal(t, "WorkflowExecutionStarted", events[0].EventType)
	assert.Equal(t, "OnboardingFlow", events[0].Attributes["workflowType"].(map[string]any)["name"])
	require.Len(t, events[0].Payloads, 1)
	assert.Equal(t, "eyJrIjoidiJ9", events[0].Payloads[0].Data)

	assert.Equal(t, int64(2), events[1].EventID)
	assert.Equal(t, "WorkflowTaskScheduled", events[1].EventType)
}

func TestParseEventsBareArray(t *testing.T) {
	t.Parallel()
	raw := []byte(`[{"eventId": 1, "eventType": "WorkflowExecutionStarted"}]`)
	events, err := ParseEvents(raw)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "WorkflowExecutionStarted", events[0].EventType)
}

func TestParseEventsMalformed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
	}{
		{name: "missing eventId", raw: `[{"eventType": "TimerFired"}]`},
		{name: "missing eventType", raw: `[{"eventId": 7}]`},
		{
			name: "non increasing ids",
			raw:  `[{"eventId": 2, "eventType": "TimerStarted"}, {"eventId": 2, "eventType": "TimerFired"}]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEvents([]byte(tt.raw))
			var malformed *MalformedEventError
			require.ErrorAs(t, err, &malformed)
		})
	}
}

func TestMalformedEventErrorNamesID(t *testing.T) {
	t.Parallel()
	_, err := ParseEvents([]byte(`[{"eventId": 7}]`))
	var malformed *MalformedEventError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, int64(7), malformed.EventID)
	assert.Contains(t, err.Error(), "7")
}

func TestNormalizeEventType(t *testing.T) {
	t.Parallel()
	tests := []struct{ in, want string }{
		{"EVENT_TYPE_WORKFLOW_EXECUTION_STARTED", "WorkflowExecutionStarted"},
		{"EVENT_TYPE_ACTIVITY_TASK_FAILED", "ActivityTaskFailed"},
		{"EVENT_TYPE_TIMER_FIRED", "TimerFired"},
		{"WorkflowTaskFailed", "WorkflowTaskFailed"},
		{"MARKER_RECORDED", "MarkerRecorded"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeEventType(tt.in); got != tt.want {
				t.Errorf("NormalizeEventType(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// history fabricates a synthetic strictly-ordered event sequence for filter
// and pipeline tests.
func history(types ...string) []Event {
	events := make([]Event, 0, len(types))
	for i, typ := range types {
		events = append(events, Event{EventID: int64(i + 1), EventType: typ})
	}
	return events
}

func typeNames(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, fmt.Sprintf("%d:%s", e.EventID, e.EventType))
	}
	return out
}
