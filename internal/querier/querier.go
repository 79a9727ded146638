// Package querier provides visibility and history access over a Temporal
// SDK client. It is the gRPC sibling of the temporalcli package; both serve
// the same collaborator interfaces.
package querier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	historypb "go.temporal.io/api/history/v1"
	workflowpb "go.temporal.io/api/workflow/v1"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/workflow-lens/lens-go/internal/history"
	"github.com/workflow-lens/lens-go/internal/visibility"
)

// Querier implements the visibility client against a live Temporal server.
type Querier struct {
	client client.Client
}

// New creates a Querier over an established SDK client.
func New(c client.Client) *Querier {
	return &Querier{client: c}
}

var _ visibility.Client = (*Querier)(nil)

// Count counts workflow executions matching the visibility query.
func (q *Querier) Count(ctx context.Context, query string) (int, error) {
	resp, err := q.client.CountWorkflow(ctx, &workflowservice.CountWorkflowExecutionsRequest{
		Query: query,
	})
	if err != nil {
		return 0, fmt.Errorf("count workflows: %w", err)
	}
	return int(resp.Count), nil
}

// List returns execution summaries for the visibility query, at most limit.
func (q *Querier) List(ctx context.Context, query string, limit int) ([]visibility.ExecutionSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	resp, err := q.client.ListWorkflow(ctx, &workflowservice.ListWorkflowExecutionsRequest{
		Query:    query,
		PageSize: int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}

	summaries := make([]visibility.ExecutionSummary, 0, len(resp.Executions))
	for _, info := range resp.Executions {
		summaries = append(summaries, summaryFromInfo(info))
		if len(summaries) == limit {
			break
		}
	}
	return summaries, nil
}

// FetchRawHistory streams the full event history and re-encodes it as the
// same JSON document shape the CLI emits, so one parser serves both
// backends.
func (q *Querier) FetchRawHistory(ctx context.Context, workflowID, runID string) ([]byte, error) {
	iter := q.client.GetWorkflowHistory(ctx, workflowID, runID, false, enumspb.HISTORY_EVENT_FILTER_TYPE_ALL_EVENT)
	return encodeHistory(iter)
}

// eventIterator matches client.HistoryEventIterator.
type eventIterator interface {
	HasNext() bool
	Next() (*historypb.HistoryEvent, error)
}

func encodeHistory(iter eventIterator) ([]byte, error) {
	marshaler := protojson.MarshalOptions{}
	var buf bytes.Buffer
	buf.WriteString(`{"events":[`)
	first := true
	for iter.HasNext() {
		event, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("fetch history: %w", err)
		}
		encoded, err := marshaler.Marshal(event)
		if err != nil {
			return nil, fmt.Errorf("fetch history: encode event: %w", err)
		}
		if !first {
			buf.WriteByte(',')
		}
		buf.Write(encoded)
		first = false
	}
	buf.WriteString(`]}`)
	return buf.Bytes(), nil
}

// Stack queries the running workflow for its goroutine dump. The worker
// answers the built-in __stack_trace query with a plain string.
func (q *Querier) Stack(ctx context.Context, workflowID, runID string) ([]byte, error) {
	val, err := q.client.QueryWorkflow(ctx, workflowID, runID, "__stack_trace")
	if err != nil {
		return nil, fmt.Errorf("workflow stack: %w", err)
	}
	var trace string
	if err := val.Get(&trace); err != nil {
		return nil, fmt.Errorf("workflow stack: decode: %w", err)
	}
	return []byte(trace), nil
}

// WorkflowDescription pairs execution metadata with the tail of its event
// history, enough to see how a workflow is doing without pulling the full
// history.
type WorkflowDescription struct {
	Summary           visibility.ExecutionSummary `json:"summary"`
	HistoryLength     int64                       `json:"history_length"`
	PendingActivities int                         `json:"pending_activities"`
	LastEvent         *history.Event              `json:"last_event,omitempty"`
}

// Inspect fetches the execution description and its event history
// concurrently.
func (q *Querier) Inspect(ctx context.Context, workflowID, runID string) (*WorkflowDescription, error) {
	var (
		desc *workflowservice.DescribeWorkflowExecutionResponse
		raw  []byte
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		desc, err = q.client.DescribeWorkflowExecution(gctx, workflowID, runID)
		if err != nil {
			return fmt.Errorf("describe workflow: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		raw, err = q.FetchRawHistory(gctx, workflowID, runID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	events, err := history.ParseEvents(raw)
	if err != nil {
		return nil, err
	}

	info := desc.WorkflowExecutionInfo
	wd := &WorkflowDescription{
		Summary:           summaryFromInfo(info),
		HistoryLength:     info.HistoryLength,
		PendingActivities: len(desc.PendingActivities),
	}
	if len(events) > 0 {
		wd.LastEvent = &events[len(events)-1]
	}
	return wd, nil
}

// Describe serves the visibility client's describe as the JSON form of an
// Inspect result.
func (q *Querier) Describe(ctx context.Context, workflowID, runID string) ([]byte, error) {
	desc, err := q.Inspect(ctx, workflowID, runID)
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("describe workflow: encode: %w", err)
	}
	return out, nil
}

func summaryFromInfo(info *workflowpb.WorkflowExecutionInfo) visibility.ExecutionSummary {
	s := visibility.ExecutionSummary{
		Status: info.Status.String(),
	}
	if info.Execution != nil {
		s.WorkflowID = info.Execution.WorkflowId
		s.RunID = info.Execution.RunId
	}
	if info.Type != nil {
		s.Type = info.Type.Name
	}
	if info.StartTime != nil {
		s.StartTime = info.StartTime.AsTime()
	}
	if info.CloseTime != nil {
		s.CloseTime = info.CloseTime.AsTime()
	}
	s.TaskQueue = info.TaskQueue
	return s
}
