// Package history parses, filters, projects, and decodes workflow execution
// history. Every pipeline stage is a pure function producing a new read-only
// view; raw event sequences are owned per invocation and never mutated.
package history

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Payload is one raw payload reference as it appears in history records:
// base64-encoded data, opaque until decoded on demand.
type Payload struct {
	Data string `json:"data"`
}

// Event is the canonical parsed representation of one history event.
type Event struct {
	EventID    int64          `json:"event_id"`
	EventType  string         `json:"event_type"`
	EventTime  time.Time      `json:"event_time"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Payloads   []Payload      `json:"payloads,omitempty"`
}

// MalformedEventError breaks the whole parse: a record without an eventId or
// eventType, or an id out of order, invalidates the ordering invariant every
// downstream stage depends on.
type MalformedEventError struct {
	EventID int64
	Reason  string
}

func (e *MalformedEventError) Error() string {
	if e.EventID > 0 {
		return fmt.Sprintf("malformed history event %d: %s", e.EventID, e.Reason)
	}
	return fmt.Sprintf("malformed history event: %s", e.Reason)
}

// ParseEvents parses a raw history document into canonical events. It accepts
// either a bare record array or the CLI's `{"events": [...]}` envelope.
// EventIDs must be strictly increasing within one history.
func ParseEvents(raw []byte) ([]Event, error) {
	var envelope struct {
		Events []map[string]any `json:"events"`
	}
	var records []map[string]any
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Events != nil {
		records = envelope.Events
	} else if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("history: parse records: %w", err)
	}

	events := make([]Event, 0, len(records))
	var prevID int64
	for _, rec := range records {
		ev, err := parseEvent(rec, prevID)
		if err != nil {
			return nil, err
		}
		prevID = ev.EventID
		events = append(events, ev)
	}
	return events, nil
}

func parseEvent(rec map[string]any, prevID int64) (Event, error) {
	id, ok := eventID(rec["eventId"])
	if !ok {
		return Event{}, &MalformedEventError{Reason: "missing eventId"}
	}
	if id <= prevID {
		return Event{}, &MalformedEventError{EventID: id, Reason: fmt.Sprintf("eventId not strictly increasing (previous %d)", prevID)}
	}

	rawType, ok := rec["eventType"].(string)
	if !ok || rawType == "" {
		return Event{}, &MalformedEventError{EventID: id, Reason: "missing eventType"}
	}

	ev := Event{
		EventID:   id,
		EventType: NormalizeEventType(rawType),
	}
	if ts, ok := rec["eventTime"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			ev.EventTime = parsed
		}
	}

	// The typed attribute block is the single key ending in EventAttributes.
	for key, val := range rec {
		if !strings.HasSuffix(key, "EventAttributes") {
			continue
		}
		if attrs, ok := val.(map[string]any); ok {
			ev.Attributes = attrs
			ev.Payloads = collectPayloads(attrs)
		}
		break
	}
	return ev, nil
}

// eventID accepts both JSON numbers and the protojson string form of int64.
func eventID(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case string:
		id, err := strconv.ParseInt(n, 10, 64)
		return id, err == nil
	}
	return 0, false
}

// collectPayloads walks an attribute tree for `{"payloads": [{"data": ...}]}`
// blocks, preserving document order within each block.
func collectPayloads(v any) []Payload {
	var out []Payload
	switch node := v.(type) {
	case map[string]any:
		if raw, ok := node["payloads"].([]any); ok {
			for _, item := range raw {
				if m, ok := item.(map[string]any); ok {
					if data, ok := m["data"].(string); ok {
						out = append(out, Payload{Data: data})
					}
				}
			}
			return out
		}
		for _, child := range node {
			out = append(out, collectPayloads(child)...)
		}
	case []any:
		for _, child := range node {
			out = append(out, collectPayloads(child)...)
		}
	}
	return out
}

// NormalizeEventType maps the proto enum spelling
// EVENT_TYPE_WORKFLOW_EXECUTION_STARTED to the canonical
// WorkflowExecutionStarted form. PascalCase input passes through unchanged.
func NormalizeEventType(s string) string {
	if !strings.Contains(s, "_") {
		return s
	}
	s = strings.TrimPrefix(s, "EVENT_TYPE_")
	var b strings.Builder
	for _, part := range strings.Split(s, "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(strings.ToLower(part[1:]))
	}
	return b.String()
}
