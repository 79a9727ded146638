package temporalcli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/workflow-lens/lens-go/internal/visibility"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client implements the visibility and history collaborator interfaces over
// the external CLI binary.
type Client struct {
	runner  Runner
	builder CommandBuilder
}

// NewClient wires a runner and command builder together.
func NewClient(runner Runner, builder CommandBuilder) *Client {
	return &Client{runner: runner, builder: builder}
}

var _ visibility.Client = (*Client)(nil)

// Count runs `workflow count` for the query. The CLI reports the count as a
// JSON string, older releases as a number; both parse here.
func (c *Client) Count(ctx context.Context, query string) (int, error) {
	out, err := c.runner.Run(ctx, c.builder.CountArgs(query))
	if err != nil {
		return 0, fmt.Errorf("count workflows: %w", err)
	}

	var body struct {
		Count any `json:"count"`
	}
	if err := json.Unmarshal(out, &body); err != nil {
		return 0, fmt.Errorf("count workflows: parse output: %w", err)
	}
	switch n := body.Count.(type) {
	case string:
		count, err := strconv.Atoi(n)
		if err != nil {
			return 0, fmt.Errorf("count workflows: bad count %q", n)
		}
		return count, nil
	case float64:
		return int(n), nil
	}
	return 0, fmt.Errorf("count workflows: missing count in output")
}

// List runs `workflow list` and flattens each execution record into a
// summary. Records are protojson-shaped; unknown fields are ignored.
func (c *Client) List(ctx context.Context, query string, limit int) ([]visibility.ExecutionSummary, error) {
	out, err := c.runner.Run(ctx, c.builder.ListArgs(query, limit))
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}

	var records []executionRecord
	if err := json.Unmarshal(out, &records); err != nil {
		return nil, fmt.Errorf("list workflows: parse output: %w", err)
	}

	summaries := make([]visibility.ExecutionSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, rec.summary())
	}
	return summaries, nil
}

// FetchRawHistory runs `workflow show` and returns the raw history document
// for the event parser.
func (c *Client) FetchRawHistory(ctx context.Context, workflowID, runID string) ([]byte, error) {
	out, err := c.runner.Run(ctx, c.builder.ShowArgs(workflowID, runID))
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	return out, nil
}

// Describe runs `workflow describe` and returns the raw JSON document. The
// caller decides how much of it to surface.
func (c *Client) Describe(ctx context.Context, workflowID, runID string) ([]byte, error) {
	out, err := c.runner.Run(ctx, c.builder.DescribeArgs(workflowID, runID))
	if err != nil {
		return nil, fmt.Errorf("describe workflow: %w", err)
	}
	return out, nil
}

// Stack runs `workflow stack` and returns the raw goroutine dump document.
// Only running workflows have one; closed workflows error at the server.
func (c *Client) Stack(ctx context.Context, workflowID, runID string) ([]byte, error) {
	out, err := c.runner.Run(ctx, c.builder.StackArgs(workflowID, runID))
	if err != nil {
		return nil, fmt.Errorf("workflow stack: %w", err)
	}
	return out, nil
}

// executionRecord mirrors the CLI's `workflow list` record shape.
type executionRecord struct {
	Execution struct {
		WorkflowID string `json:"workflowId"`
		RunID      string `json:"runId"`
	} `json:"execution"`
	Type struct {
		Name string `json:"name"`
	} `json:"type"`
	Status    string `json:"status"`
	StartTime string `json:"startTime"`
	CloseTime string `json:"closeTime"`
	TaskQueue string `json:"taskQueue"`
}

func (r executionRecord) summary() visibility.ExecutionSummary {
	s := visibility.ExecutionSummary{
		WorkflowID: r.Execution.WorkflowID,
		RunID:      r.Execution.RunID,
		Type:       r.Type.Name,
		Status:     normalizeStatus(r.Status),
		TaskQueue:  r.TaskQueue,
	}
	if t, err := time.Parse(time.RFC3339Nano, r.StartTime); err == nil {
		s.StartTime = t
	}
	if t, err := time.Parse(time.RFC3339Nano, r.CloseTime); err == nil {
		s.CloseTime = t
	}
	return s
}

// normalizeStatus maps WORKFLOW_EXECUTION_STATUS_COMPLETED to Completed,
// leaving already-friendly values alone.
func normalizeStatus(s string) string {
	s = strings.TrimPrefix(s, "WORKFLOW_EXECUTION_STATUS_")
	if s == "" || strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		return s
	}
	var b strings.Builder
	for _, part := range strings.Split(s, "_") {
		if part == "" {
			continue
		}
		b.WriteString(part[:1])
		b.WriteString(strings.ToLower(part[1:]))
	}
	return b.String()
}
