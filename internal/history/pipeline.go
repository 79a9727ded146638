package history

import (
	"fmt"
	"time"
)

// ProjectedEvent is one event after projection. Minimal keeps id/type/time;
// standard adds the failure message and one primary identifying attribute;
// full carries all attributes and raw payload references unmodified.
type ProjectedEvent struct {
	EventID        int64            `json:"event_id"`
	EventType      string           `json:"event_type"`
	EventTime      time.Time        `json:"event_time"`
	FailureMessage string           `json:"failure_message,omitempty"`
	Detail         string           `json:"detail,omitempty"`
	Attributes     map[string]any   `json:"attributes,omitempty"`
	Payloads       []Payload        `json:"payloads,omitempty"`
	Decoded        []DecodedPayload `json:"decoded,omitempty"`
}

// Result is the outcome of one pipeline run.
type Result struct {
	Events []ProjectedEvent `json:"events"`
	// TotalMatched counts events after the type filter, before the window.
	TotalMatched int             `json:"total_matched"`
	Warnings     []DecodeWarning `json:"warnings,omitempty"`
}

// Run executes the fixed stage order over one event sequence: type filter,
// window, projection, then on-demand payload decode for projections at
// standard and above. The input slice is never mutated.
func Run(events []Event, spec FilterSpec, codec *Codec) (Result, error) {
	if err := spec.Validate(); err != nil {
		return Result{}, err
	}
	projection := spec.Projection
	if projection == "" {
		projection = ProjectionStandard
	}
	if codec == nil {
		codec = NewCodec(0)
	}

	filtered := filterByType(events, spec)
	windowed := applyWindow(filtered, spec.Window)

	res := Result{
		Events:       make([]ProjectedEvent, 0, len(windowed)),
		TotalMatched: len(filtered),
	}
	for _, ev := range windowed {
		pe := project(ev, projection)
		if projection != ProjectionMinimal {
			decoded, warnings := codec.DecodeBatch(ev.EventID, ev.Payloads)
			pe.Decoded = decoded
			res.Warnings = append(res.Warnings, warnings...)
		}
		res.Events = append(res.Events, pe)
	}
	return res, nil
}

func project(ev Event, p Projection) ProjectedEvent {
	pe := ProjectedEvent{
		EventID:   ev.EventID,
		EventType: ev.EventType,
		EventTime: ev.EventTime,
	}
	switch p {
	case ProjectionMinimal:
	case ProjectionFull:
		pe.Attributes = ev.Attributes
		pe.Payloads = ev.Payloads
		fallthrough
	default: // standard
		pe.FailureMessage = failureMessage(ev.Attributes)
		pe.Detail = primaryDetail(ev.Attributes)
	}
	return pe
}

// failureMessage digs the failure message out of the typed attribute block.
func failureMessage(attrs map[string]any) string {
	failure, ok := attrs["failure"].(map[string]any)
	if !ok {
		return ""
	}
	msg, _ := failure["message"].(string)
	return msg
}

// primaryDetail picks the one attribute that best identifies the event:
// activity type, signal name, child workflow type, or the scheduled event it
// refers back to.
func primaryDetail(attrs map[string]any) string {
	if name := namedType(attrs, "activityType"); name != "" {
		return name
	}
	if name, ok := attrs["signalName"].(string); ok && name != "" {
		return name
	}
	if name := namedType(attrs, "workflowType"); name != "" {
		return name
	}
	if name, ok := attrs["markerName"].(string); ok && name != "" {
		return name
	}
	if id, ok := attrs["scheduledEventId"]; ok {
		if n, ok := eventID(id); ok {
			return fmt.Sprintf("scheduledEventId=%d", n)
		}
	}
	return ""
}

func namedType(attrs map[string]any, key string) string {
	block, ok := attrs[key].(map[string]any)
	if !ok {
		return ""
	}
	name, _ := block["name"].(string)
	return name
}
