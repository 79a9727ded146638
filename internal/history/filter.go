package history

import (
	"fmt"
	"strings"
)

// Projection names the retained field set per event after filtering.
type Projection string

const (
	ProjectionMinimal  Projection = "minimal"
	ProjectionStandard Projection = "standard"
	ProjectionFull     Projection = "full"
)

func (p Projection) Valid() bool {
	switch p {
	case ProjectionMinimal, ProjectionStandard, ProjectionFull:
		return true
	}
	return false
}

// Preset is a named, predefined event-type include/exclude configuration.
type Preset string

const (
	PresetSummary            Preset = "summary"
	PresetCriticalPath       Preset = "critical_path"
	PresetLastFailureContext Preset = "last_failure_context"
	PresetResets             Preset = "resets"
)

func (p Preset) Valid() bool {
	switch p {
	case PresetSummary, PresetCriticalPath, PresetLastFailureContext, PresetResets:
		return true
	}
	return false
}

// Window caps how much of the (possibly reversed) sequence is kept.
// Limit <= 0 means uncapped.
type Window struct {
	Limit   int  `json:"limit"`
	Reverse bool `json:"reverse"`
}

// DefaultFailureContext is how many events precede the last failure under the
// last_failure_context preset.
const DefaultFailureContext = 10

// FilterSpec configures one pipeline run. IncludeTypes and ExcludeTypes are
// mutually exclusive; a Preset overrides both.
type FilterSpec struct {
	IncludeTypes []string   `json:"include_types,omitempty"`
	ExcludeTypes []string   `json:"exclude_types,omitempty"`
	Preset       Preset     `json:"preset,omitempty"`
	Projection   Projection `json:"projection"`
	Window       Window     `json:"window"`
	// FailureContext is the preceding-event count for last_failure_context;
	// zero means DefaultFailureContext.
	FailureContext int `json:"failure_context,omitempty"`
}

// Validate rejects contradictory or unknown spec values.
func (s FilterSpec) Validate() error {
	if len(s.IncludeTypes) > 0 && len(s.ExcludeTypes) > 0 {
		return fmt.Errorf("filter spec: include_types and exclude_types are mutually exclusive")
	}
	if s.Preset != "" && !s.Preset.Valid() {
		return fmt.Errorf("filter spec: unknown preset %q", s.Preset)
	}
	if s.Projection != "" && !s.Projection.Valid() {
		return fmt.Errorf("filter spec: unknown projection %q", s.Projection)
	}
	return nil
}

// summaryTypes are the execution lifecycle events the summary preset keeps.
var summaryTypes = []string{
	"WorkflowExecutionStarted",
	"WorkflowExecutionCompleted",
	"WorkflowExecutionFailed",
	"WorkflowExecutionTimedOut",
	"WorkflowExecutionCanceled",
	"WorkflowExecutionTerminated",
	"WorkflowExecutionContinuedAsNew",
}

// criticalPathExcluded is the noise the critical_path preset drops.
var criticalPathExcluded = []string{
	"TimerFired",
	"TimerStarted",
	"MarkerRecorded",
	"WorkflowTaskScheduled",
	"WorkflowTaskStarted",
}

// filterByType applies the preset (expanded to a concrete include/exclude
// set) or the caller's explicit sets, returning a fresh slice.
func filterByType(events []Event, spec FilterSpec) []Event {
	include, exclude := spec.IncludeTypes, spec.ExcludeTypes

	switch spec.Preset {
	case PresetSummary:
		include, exclude = summaryTypes, nil
	case PresetCriticalPath:
		include, exclude = nil, criticalPathExcluded
	case PresetResets:
		include, exclude = []string{"WorkflowTaskFailed"}, nil
	case PresetLastFailureContext:
		return lastFailureContext(events, spec.FailureContext)
	}

	if len(include) > 0 {
		keep := toSet(include)
		return filterEvents(events, func(e Event) bool { return keep[e.EventType] })
	}
	if len(exclude) > 0 {
		drop := toSet(exclude)
		return filterEvents(events, func(e Event) bool { return !drop[e.EventType] })
	}
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// lastFailureContext scans tail-to-head for the last *Failed event and keeps
// it plus the preceding n events. With no failure present it behaves as
// critical_path.
func lastFailureContext(events []Event, n int) []Event {
	if n <= 0 {
		n = DefaultFailureContext
	}
	for i := len(events) - 1; i >= 0; i-- {
		if strings.HasSuffix(events[i].EventType, "Failed") {
			start := i - n
			if start < 0 {
				start = 0
			}
			out := make([]Event, i+1-start)
			copy(out, events[start:i+1])
			return out
		}
	}
	drop := toSet(criticalPathExcluded)
	return filterEvents(events, func(e Event) bool { return !drop[e.EventType] })
}

func filterEvents(events []Event, keep func(Event) bool) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// applyWindow optionally reverses to most-recent-first, then takes the first
// limit events of the resulting order. The underlying eventId ordering of the
// input is untouched.
func applyWindow(events []Event, w Window) []Event {
	out := make([]Event, len(events))
	copy(out, events)
	if w.Reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if w.Limit > 0 && w.Limit < len(out) {
		out = out[:w.Limit]
	}
	return out
}

func toSet(types []string) map[string]bool {
	m := make(map[string]bool, len(types))
	for _, t := range types {
		m[NormalizeEventType(t)] = true
	}
	return m
}
