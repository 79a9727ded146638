package mcpserver

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workflow-lens/lens-go/internal/observability"
	"github.com/workflow-lens/lens-go/internal/query"
	"github.com/workflow-lens/lens-go/internal/visibility"
)

type stubClient struct {
	counts    map[string]int
	listed    []visibility.ExecutionSummary
	raw       []byte
	described []byte
	stack     []byte
	err       error
	counted   []string
	lists     int
}

func (s *stubClient) Count(_ context.Context, q string) (int, error) {
	s.counted = append(s.counted, q)
	return s.counts[q], s.err
}

func (s *stubClient) List(_ context.Context, _ string, _ int) ([]visibility.ExecutionSummary, error) {
	s.lists++
	return s.listed, s.err
}

func (s *stubClient) FetchRawHistory(_ context.Context, _, _ string) ([]byte, error) {
	return s.raw, s.err
}

func (s *stubClient) Describe(_ context.Context, _, _ string) ([]byte, error) {
	return s.described, s.err
}

func (s *stubClient) Stack(_ context.Context, _, _ string) ([]byte, error) {
	return s.stack, s.err
}

func testDeps(client *stubClient) Deps {
	return Deps{Client: client, Registry: query.NewRegistry(), MaxListLimit: 50}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestRegisterTools(t *testing.T) {
	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "v1"}, nil)
	RegisterTools(server, testDeps(&stubClient{}))
	assert.NotNil(t, server)
}

func TestBuildQueryTool(t *testing.T) {
	handler := buildQueryHandler(testDeps(&stubClient{}))

	res, _, err := handler(context.Background(), nil, buildQueryInput{
		Filters: []filterInput{
			{Field: "WorkflowType", Operator: "=", Values: []string{"Onboarding"}},
			{Field: "StartTime", Operator: ">=", Values: []string{"2026-08-01T00:00:00Z"}},
		},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), `WorkflowType = 'Onboarding' AND StartTime >= '2026-08-01T00:00:00Z'`)
}

func TestBuildQueryToolOperatorSpellings(t *testing.T) {
	handler := buildQueryHandler(testDeps(&stubClient{}))

	res, _, err := handler(context.Background(), nil, buildQueryInput{
		Filters: []filterInput{
			{Field: "CloseTime", Operator: "is_null"},
			{Field: "ExecutionStatus", Operator: "in", Values: []string{"Running", "Completed"}},
		},
		Combinator: "or",
	})
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, "CloseTime IS NULL OR ExecutionStatus IN ('Running', 'Completed')")
}

func TestBuildQueryToolUnknownField(t *testing.T) {
	handler := buildQueryHandler(testDeps(&stubClient{}))

	res, _, err := handler(context.Background(), nil, buildQueryInput{
		Filters: []filterInput{{Field: "workflowtype", Operator: "=", Values: []string{"X"}}},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "WorkflowType")
}

func TestBuildQueryToolTypeMismatch(t *testing.T) {
	deps := testDeps(&stubClient{})
	require.NoError(t, deps.Registry.SetCustomFields(map[string]query.FieldType{"Attempt": query.TypeInt}))
	handler := buildQueryHandler(deps)

	res, _, err := handler(context.Background(), nil, buildQueryInput{
		Filters: []filterInput{{Field: "Attempt", Operator: "=", Values: []string{"three"}}},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "not an integer")
}

func TestValidateQueryTool(t *testing.T) {
	handler := validateQueryHandler(testDeps(&stubClient{}))

	res, _, err := handler(context.Background(), nil, validateQueryInput{
		Query: "WorkflowType LIKE 'onboard%'",
	})
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, `"valid": false`)
	assert.Contains(t, text, "STARTS_WITH")
}

func TestCountWorkflowsTool(t *testing.T) {
	client := &stubClient{counts: map[string]int{"ExecutionStatus = 'Failed'": 12}}
	handler := countWorkflowsHandler(testDeps(client))

	res, _, err := handler(context.Background(), nil, countWorkflowsInput{Query: "ExecutionStatus = 'Failed'"})
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), `"count": 12`)
}

func TestListWorkflowsFallback(t *testing.T) {
	client := &stubClient{
		counts: map[string]int{
			"WorkflowType = 'user-onboard-42'":         0,
			"WorkflowId STARTS_WITH 'user-onboard-42'": 3,
		},
		listed: []visibility.ExecutionSummary{{WorkflowID: "user-onboard-42-a"}, {WorkflowID: "user-onboard-42-b"}, {WorkflowID: "user-onboard-42-c"}},
	}
	handler := listWorkflowsHandler(testDeps(client))

	res, _, err := handler(context.Background(), nil, listWorkflowsInput{WorkflowType: "user-onboard-42"})
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, string(visibility.StateFallbackById))
	assert.Contains(t, text, `"count": 3`)
	assert.Contains(t, text, string(visibility.StrategyFull))
	assert.Equal(t, 1, client.lists)
}

func TestListWorkflowsEmptySkipsList(t *testing.T) {
	client := &stubClient{counts: map[string]int{}}
	handler := listWorkflowsHandler(testDeps(client))

	res, _, err := handler(context.Background(), nil, listWorkflowsInput{Query: "TaskQueue = 'nowhere'"})
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), string(visibility.StrategyEmpty))
	assert.Zero(t, client.lists)
}

func TestListWorkflowsMutuallyExclusiveInput(t *testing.T) {
	handler := listWorkflowsHandler(testDeps(&stubClient{}))

	res, _, err := handler(context.Background(), nil, listWorkflowsInput{Query: "x", WorkflowType: "y"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestGetHistoryTool(t *testing.T) {
	client := &stubClient{raw: []byte(`{"events":[
		{"eventId":"1","eventType":"WorkflowExecutionStarted","eventTime":"2026-08-01T10:00:00Z"},
		{"eventId":"2","eventType":"ActivityTaskScheduled","eventTime":"2026-08-01T10:00:01Z"},
		{"eventId":"3","eventType":"WorkflowExecutionCompleted","eventTime":"2026-08-01T10:01:00Z"}
	]}`)}
	handler := getHistoryHandler(testDeps(client))

	res, _, err := handler(context.Background(), nil, getHistoryInput{
		WorkflowID: "wf-1",
		Preset:     "summary",
	})
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, "WorkflowExecutionStarted")
	assert.Contains(t, text, "WorkflowExecutionCompleted")
	assert.NotContains(t, text, "ActivityTaskScheduled")
}

func TestGetHistoryToolRequiresWorkflowID(t *testing.T) {
	handler := getHistoryHandler(testDeps(&stubClient{}))

	res, _, err := handler(context.Background(), nil, getHistoryInput{})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestGetHistoryToolRejectsBadSpec(t *testing.T) {
	handler := getHistoryHandler(testDeps(&stubClient{}))

	res, _, err := handler(context.Background(), nil, getHistoryInput{
		WorkflowID:   "wf-1",
		IncludeTypes: []string{"TimerFired"},
		ExcludeTypes: []string{"TimerStarted"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "mutually exclusive")
}

func TestGetFailedRunsTool(t *testing.T) {
	client := &stubClient{counts: map[string]int{
		"WorkflowId = 'order-processor-7' AND ExecutionStatus = 'Failed'": 23,
	}}
	handler := failedRunsHandler(testDeps(client))

	res, _, err := handler(context.Background(), nil, failedRunsInput{WorkflowID: "order-processor-7"})
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, `"failed_count": 23`)
	assert.Contains(t, text, "ExecutionStatus = 'Failed'")
	require.Len(t, client.counted, 1)
	assert.Equal(t, "WorkflowId = 'order-processor-7' AND ExecutionStatus = 'Failed'", client.counted[0])
}

func TestGetFailedRunsToolRequiresWorkflowID(t *testing.T) {
	handler := failedRunsHandler(testDeps(&stubClient{}))

	res, _, err := handler(context.Background(), nil, failedRunsInput{})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestTraceWorkflowTool(t *testing.T) {
	client := &stubClient{stack: []byte("goroutine 1:\n\tworkflow.Sleep")}
	handler := traceWorkflowHandler(testDeps(client))

	res, _, err := handler(context.Background(), nil, traceWorkflowInput{WorkflowID: "wf-1"})
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "workflow.Sleep")
}

func TestTraceWorkflowToolRequiresWorkflowID(t *testing.T) {
	handler := traceWorkflowHandler(testDeps(&stubClient{}))

	res, _, err := handler(context.Background(), nil, traceWorkflowInput{})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestDescribeWorkflowTool(t *testing.T) {
	client := &stubClient{described: []byte(`{"summary":{"workflow_id":"wf-1"}}`)}
	handler := describeWorkflowHandler(testDeps(client))

	res, _, err := handler(context.Background(), nil, describeWorkflowInput{WorkflowID: "wf-1"})
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "wf-1")
}

func TestDescribeWorkflowToolRequiresWorkflowID(t *testing.T) {
	handler := describeWorkflowHandler(testDeps(&stubClient{}))

	res, _, err := handler(context.Background(), nil, describeWorkflowInput{})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestInstrumentedPassesThrough(t *testing.T) {
	metrics, err := observability.NewMetrics()
	require.NoError(t, err)
	deps := testDeps(&stubClient{})
	deps.Metrics = metrics

	handler := instrumented(deps, "validate_workflow_query", validateQueryHandler(deps))
	res, _, err := handler(context.Background(), nil, validateQueryInput{Query: "WorkflowId = 'x'"})
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), `"valid": true`)
}

func TestListSearchAttributesTool(t *testing.T) {
	deps := testDeps(&stubClient{})
	require.NoError(t, deps.Registry.SetCustomFields(map[string]query.FieldType{"Tier": query.TypeKeyword}))
	handler := listFieldsHandler(deps)

	res, _, err := handler(context.Background(), nil, listFieldsInput{})
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, "WorkflowId")
	assert.Contains(t, text, "Tier")
}
