// Package visibility holds the count-before-list discipline around workflow
// visibility queries: the scope advisor bounds list requests by a prior count,
// and the fallback resolver retries a zero-result type-equality query as an
// id-prefix query. Round trips go through collaborator interfaces; the package
// itself performs no I/O of its own.
package visibility

import (
	"context"
	"time"
)

// Counter executes a count round trip against the visibility store.
type Counter interface {
	Count(ctx context.Context, query string) (int, error)
}

// Lister returns execution summaries for a query, capped at limit.
type Lister interface {
	List(ctx context.Context, query string, limit int) ([]ExecutionSummary, error)
}

// Client is the full collaborator surface the MCP tools need. Describe and
// Stack return backend-shaped documents; callers pass them through rather
// than interpreting them.
type Client interface {
	Counter
	Lister
	FetchRawHistory(ctx context.Context, workflowID, runID string) ([]byte, error)
	Describe(ctx context.Context, workflowID, runID string) ([]byte, error)
	Stack(ctx context.Context, workflowID, runID string) ([]byte, error)
}

// ExecutionSummary is one workflow execution row from a list call.
type ExecutionSummary struct {
	WorkflowID string    `json:"workflow_id"`
	RunID      string    `json:"run_id"`
	Type       string    `json:"type"`
	Status     string    `json:"status"`
	StartTime  time.Time `json:"start_time"`
	CloseTime  time.Time `json:"close_time"`
	TaskQueue  string    `json:"task_queue,omitempty"`
}
