// Package mcpserver exposes workflow visibility and history via MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/workflow-lens/lens-go/internal/history"
	"github.com/workflow-lens/lens-go/internal/observability"
	"github.com/workflow-lens/lens-go/internal/query"
	"github.com/workflow-lens/lens-go/internal/visibility"
)

// Deps wires the tool handlers to their collaborators and limits.
type Deps struct {
	Client   visibility.Client
	Registry *query.Registry
	// Metrics is optional; nil disables instrumentation.
	Metrics *observability.Metrics

	// MaxListLimit caps list_workflows results; zero means 50.
	MaxListLimit int
	// PayloadMaxLen caps decoded payload length; zero means the codec default.
	PayloadMaxLen int
	// FailureContext is the last_failure_context window; zero means the
	// pipeline default.
	FailureContext int
}

// RegisterTools registers all lens MCP tools on the given server.
func RegisterTools(server *mcp.Server, deps Deps) {
	if deps.MaxListLimit <= 0 {
		deps.MaxListLimit = 50
	}

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "build_workflow_query",
			Description: "Build a typed visibility filter query from structured field/operator/value filters",
		},
		instrumented(deps, "build_workflow_query", buildQueryHandler(deps)),
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "validate_workflow_query",
			Description: "Statically validate a visibility filter query and list every problem found",
		},
		instrumented(deps, "validate_workflow_query", validateQueryHandler(deps)),
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "count_workflows",
			Description: "Count workflow executions matching a visibility query",
		},
		instrumented(deps, "count_workflows", countWorkflowsHandler(deps)),
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "list_workflows",
			Description: "List workflow executions with count-first scoping and id-prefix fallback for unknown workflow types",
		},
		instrumented(deps, "list_workflows", listWorkflowsHandler(deps)),
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "get_workflow_history",
			Description: "Fetch, filter, and project a workflow's event history with decoded payloads",
		},
		instrumented(deps, "get_workflow_history", getHistoryHandler(deps)),
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "get_failed_runs",
			Description: "Count the failed runs of one workflow id, a fast first check for retry loops",
		},
		instrumented(deps, "get_failed_runs", failedRunsHandler(deps)),
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "trace_workflow",
			Description: "Fetch the current stack trace of a running workflow to see where it is blocked",
		},
		instrumented(deps, "trace_workflow", traceWorkflowHandler(deps)),
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "describe_workflow",
			Description: "Describe one workflow execution: status, timing, pending work, and how it last progressed",
		},
		instrumented(deps, "describe_workflow", describeWorkflowHandler(deps)),
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "list_search_attributes",
			Description: "List the search attribute fields the query builder knows, with their types",
		},
		instrumented(deps, "list_search_attributes", listFieldsHandler(deps)),
	)
}

// instrumented records call count and latency per tool when metrics are
// configured. Results flagged IsError count as failures.
func instrumented[In any](deps Deps, name string, h mcp.ToolHandlerFor[In, any]) mcp.ToolHandlerFor[In, any] {
	if deps.Metrics == nil {
		return h
	}
	return func(ctx context.Context, req *mcp.CallToolRequest, input In) (*mcp.CallToolResult, any, error) {
		start := time.Now()
		res, out, err := h(ctx, req, input)
		ok := err == nil && (res == nil || !res.IsError)
		deps.Metrics.RecordToolCall(ctx, name, time.Since(start), ok)
		return res, out, err
	}
}

type filterInput struct {
	Field    string   `json:"field"`
	Operator string   `json:"operator"`
	Values   []string `json:"values,omitempty"`
}

type buildQueryInput struct {
	Filters []filterInput `json:"filters"`
	// Combinator joins multiple filters, AND (default) or OR.
	Combinator string `json:"combinator,omitempty"`
}

type buildQueryOutput struct {
	Query string `json:"query"`
}

func buildQueryHandler(deps Deps) mcp.ToolHandlerFor[buildQueryInput, any] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input buildQueryInput) (*mcp.CallToolResult, any, error) {
		q, err := buildQuery(deps.Registry, input)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		return textResult(buildQueryOutput{Query: q.Render()})
	}
}

type validateQueryInput struct {
	Query string `json:"query"`
}

type validateQueryOutput struct {
	Valid    bool            `json:"valid"`
	Findings []query.Finding `json:"findings"`
}

func validateQueryHandler(deps Deps) mcp.ToolHandlerFor[validateQueryInput, any] {
	validator := query.NewValidator(deps.Registry)
	return func(_ context.Context, _ *mcp.CallToolRequest, input validateQueryInput) (*mcp.CallToolResult, any, error) {
		findings := validator.Validate(input.Query)
		return textResult(validateQueryOutput{Valid: len(findings) == 0, Findings: findings})
	}
}

type countWorkflowsInput struct {
	Query string `json:"query,omitempty"`
}

type countWorkflowsOutput struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

func countWorkflowsHandler(deps Deps) mcp.ToolHandlerFor[countWorkflowsInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input countWorkflowsInput) (*mcp.CallToolResult, any, error) {
		count, err := deps.Client.Count(ctx, input.Query)
		if err != nil {
			return nil, nil, fmt.Errorf("count_workflows: %w", err)
		}
		return textResult(countWorkflowsOutput{Query: input.Query, Count: count})
	}
}

type listWorkflowsInput struct {
	// Query is a raw visibility filter. Mutually exclusive with WorkflowType.
	Query string `json:"query,omitempty"`
	// WorkflowType looks up executions of one workflow type, falling back to
	// a WorkflowId prefix match when the type name matches nothing.
	WorkflowType string `json:"workflow_type,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

type listWorkflowsOutput struct {
	Query      string                        `json:"query"`
	Count      int                           `json:"count"`
	Strategy   visibility.Strategy           `json:"strategy"`
	Executions []visibility.ExecutionSummary `json:"executions"`
	// Fallback reports the id-prefix resolution when WorkflowType was used.
	Fallback *visibility.Resolution `json:"fallback,omitempty"`
}

func listWorkflowsHandler(deps Deps) mcp.ToolHandlerFor[listWorkflowsInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input listWorkflowsInput) (*mcp.CallToolResult, any, error) {
		if input.Query != "" && input.WorkflowType != "" {
			return errorResult("query and workflow_type are mutually exclusive"), nil, nil
		}

		out := listWorkflowsOutput{Query: input.Query}
		switch {
		case input.WorkflowType != "":
			res, err := resolveByType(ctx, deps, input.WorkflowType)
			if err != nil {
				return nil, nil, fmt.Errorf("list_workflows: %w", err)
			}
			out.Fallback = &res
			out.Query = res.Query
			out.Count = res.Count
		default:
			count, err := deps.Client.Count(ctx, input.Query)
			if err != nil {
				return nil, nil, fmt.Errorf("list_workflows: %w", err)
			}
			out.Count = count
		}

		maxLimit := deps.MaxListLimit
		if input.Limit > 0 && input.Limit < maxLimit {
			maxLimit = input.Limit
		}
		plan := visibility.Decide(out.Count, maxLimit)
		out.Strategy = plan.Strategy
		out.Executions = []visibility.ExecutionSummary{}

		if plan.Strategy != visibility.StrategyEmpty {
			execs, err := deps.Client.List(ctx, out.Query, plan.Limit)
			if err != nil {
				return nil, nil, fmt.Errorf("list_workflows: %w", err)
			}
			out.Executions = execs
		}
		return textResult(out)
	}
}

func resolveByType(ctx context.Context, deps Deps, workflowType string) (visibility.Resolution, error) {
	fd, err := deps.Registry.Describe("WorkflowType")
	if err != nil {
		return visibility.Resolution{}, err
	}
	cmp, err := query.NewComparison(fd, query.OpEq, workflowType)
	if err != nil {
		return visibility.Resolution{}, err
	}
	q, err := query.NewQuery(cmp)
	if err != nil {
		return visibility.Resolution{}, err
	}
	return visibility.NewResolver(deps.Client, deps.Registry).Resolve(ctx, q)
}

type getHistoryInput struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id,omitempty"`

	// Preset overrides IncludeTypes and ExcludeTypes.
	Preset         string   `json:"preset,omitempty"`
	IncludeTypes   []string `json:"include_types,omitempty"`
	ExcludeTypes   []string `json:"exclude_types,omitempty"`
	Projection     string   `json:"projection,omitempty"`
	Limit          int      `json:"limit,omitempty"`
	Reverse        bool     `json:"reverse,omitempty"`
	FailureContext int      `json:"failure_context,omitempty"`
}

func getHistoryHandler(deps Deps) mcp.ToolHandlerFor[getHistoryInput, any] {
	codec := history.NewCodec(deps.PayloadMaxLen)
	return func(ctx context.Context, _ *mcp.CallToolRequest, input getHistoryInput) (*mcp.CallToolResult, any, error) {
		if input.WorkflowID == "" {
			return errorResult("workflow_id is required"), nil, nil
		}

		spec := history.FilterSpec{
			IncludeTypes:   input.IncludeTypes,
			ExcludeTypes:   input.ExcludeTypes,
			Preset:         history.Preset(input.Preset),
			Projection:     history.Projection(input.Projection),
			Window:         history.Window{Limit: input.Limit, Reverse: input.Reverse},
			FailureContext: input.FailureContext,
		}
		if spec.FailureContext == 0 {
			spec.FailureContext = deps.FailureContext
		}
		if err := spec.Validate(); err != nil {
			return errorResult(err.Error()), nil, nil
		}

		raw, err := deps.Client.FetchRawHistory(ctx, input.WorkflowID, input.RunID)
		if err != nil {
			return nil, nil, fmt.Errorf("get_workflow_history: %w", err)
		}
		events, err := history.ParseEvents(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("get_workflow_history: %w", err)
		}

		result, err := history.Run(events, spec, codec)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		if deps.Metrics != nil {
			deps.Metrics.RecordPipeline(ctx, len(result.Events), len(result.Warnings))
		}
		return textResult(result)
	}
}

type failedRunsInput struct {
	WorkflowID string `json:"workflow_id"`
}

type failedRunsOutput struct {
	WorkflowID  string `json:"workflow_id"`
	FailedCount int    `json:"failed_count"`
	Query       string `json:"query"`
}

// failedRunsHandler counts runs of one workflow id that ended Failed. A
// running workflow still reports its historical failures, which makes this
// the cheap first check for retry loops.
func failedRunsHandler(deps Deps) mcp.ToolHandlerFor[failedRunsInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input failedRunsInput) (*mcp.CallToolResult, any, error) {
		if input.WorkflowID == "" {
			return errorResult("workflow_id is required"), nil, nil
		}
		q, err := failedRunsQuery(deps.Registry, input.WorkflowID)
		if err != nil {
			return nil, nil, fmt.Errorf("get_failed_runs: %w", err)
		}
		count, err := deps.Client.Count(ctx, q)
		if err != nil {
			return nil, nil, fmt.Errorf("get_failed_runs: %w", err)
		}
		return textResult(failedRunsOutput{
			WorkflowID:  input.WorkflowID,
			FailedCount: count,
			Query:       q,
		})
	}
}

func failedRunsQuery(reg *query.Registry, workflowID string) (string, error) {
	idField, err := reg.Describe("WorkflowId")
	if err != nil {
		return "", err
	}
	statusField, err := reg.Describe("ExecutionStatus")
	if err != nil {
		return "", err
	}
	idCmp, err := query.NewComparison(idField, query.OpEq, workflowID)
	if err != nil {
		return "", err
	}
	statusCmp, err := query.NewComparison(statusField, query.OpEq, "Failed")
	if err != nil {
		return "", err
	}
	q, err := query.NewQuery(query.And(idCmp, statusCmp))
	if err != nil {
		return "", err
	}
	return q.Render(), nil
}

type traceWorkflowInput struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id,omitempty"`
}

func traceWorkflowHandler(deps Deps) mcp.ToolHandlerFor[traceWorkflowInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input traceWorkflowInput) (*mcp.CallToolResult, any, error) {
		if input.WorkflowID == "" {
			return errorResult("workflow_id is required"), nil, nil
		}
		raw, err := deps.Client.Stack(ctx, input.WorkflowID, input.RunID)
		if err != nil {
			return nil, nil, fmt.Errorf("trace_workflow: %w", err)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: string(raw)},
			},
		}, nil, nil
	}
}

type describeWorkflowInput struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id,omitempty"`
}

func describeWorkflowHandler(deps Deps) mcp.ToolHandlerFor[describeWorkflowInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input describeWorkflowInput) (*mcp.CallToolResult, any, error) {
		if input.WorkflowID == "" {
			return errorResult("workflow_id is required"), nil, nil
		}
		raw, err := deps.Client.Describe(ctx, input.WorkflowID, input.RunID)
		if err != nil {
			return nil, nil, fmt.Errorf("describe_workflow: %w", err)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: string(raw)},
			},
		}, nil, nil
	}
}

type listFieldsInput struct{}

type listFieldsOutput struct {
	Fields []query.FieldDescriptor `json:"fields"`
}

func listFieldsHandler(deps Deps) mcp.ToolHandlerFor[listFieldsInput, any] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ listFieldsInput) (*mcp.CallToolResult, any, error) {
		return textResult(listFieldsOutput{Fields: deps.Registry.Fields()})
	}
}

// buildQuery turns structured filter input into a typed expression tree.
func buildQuery(reg *query.Registry, input buildQueryInput) (query.Query, error) {
	if len(input.Filters) == 0 {
		return query.Query{}, fmt.Errorf("at least one filter is required")
	}

	children := make([]query.Expression, 0, len(input.Filters))
	for _, f := range input.Filters {
		fd, err := reg.Describe(f.Field)
		if err != nil {
			return query.Query{}, err
		}
		op := normalizeOperator(f.Operator)
		operands := make([]any, 0, len(f.Values))
		for _, v := range f.Values {
			operand, err := coerceOperand(fd.Type, v)
			if err != nil {
				return query.Query{}, err
			}
			operands = append(operands, operand)
		}
		cmp, err := query.NewComparison(fd, op, operands...)
		if err != nil {
			return query.Query{}, err
		}
		children = append(children, cmp)
	}

	if len(children) == 1 {
		return query.NewQuery(children[0])
	}
	switch strings.ToUpper(strings.TrimSpace(input.Combinator)) {
	case "", "AND":
		return query.NewQuery(query.And(children...))
	case "OR":
		return query.NewQuery(query.Or(children...))
	default:
		return query.Query{}, fmt.Errorf("combinator must be AND or OR, got %q", input.Combinator)
	}
}

// normalizeOperator accepts lower-case and underscore spellings of the
// operator vocabulary.
func normalizeOperator(s string) query.Operator {
	upper := strings.ToUpper(strings.TrimSpace(s))
	switch upper {
	case "IS_NULL":
		return query.OpIsNull
	case "IS_NOT_NULL":
		return query.OpIsNotNull
	}
	return query.Operator(upper)
}

// coerceOperand converts a string value into the literal shape the field
// type expects. Datetime strings pass through; the comparison constructor
// checks their format.
func coerceOperand(t query.FieldType, raw string) (any, error) {
	switch t {
	case query.TypeInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q is not an integer", raw)
		}
		return n, nil
	case query.TypeDouble:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q is not a number", raw)
		}
		return f, nil
	case query.TypeBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("value %q is not a boolean", raw)
		}
		return b, nil
	default:
		return raw, nil
	}
}

func textResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("marshal result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}
