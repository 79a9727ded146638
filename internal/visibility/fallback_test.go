package visibility

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workflow-lens/lens-go/internal/query"
)

// countStub maps rendered queries to fixed counts and records each call.
type countStub struct {
	counts map[string]int
	calls  []string
}

func (s *countStub) Count(_ context.Context, q string) (int, error) {
	s.calls = append(s.calls, q)
	return s.counts[q], nil
}

func typeQuery(t *testing.T, reg *query.Registry, name string) query.Query {
	t.Helper()
	fd, err := reg.Describe("WorkflowType")
	require.NoError(t, err)
	cmp, err := query.NewComparison(fd, query.OpEq, name)
	require.NoError(t, err)
	q, err := query.NewQuery(cmp)
	require.NoError(t, err)
	return q
}

func TestResolveFallbackTransition(t *testing.T) {
	t.Parallel()
	reg := query.NewRegistry()
	stub := &countStub{counts: map[string]int{
		"WorkflowType = 'Foo'":         0,
		"WorkflowId STARTS_WITH 'Foo'": 3,
	}}
	r := NewResolver(stub, reg)

	res, err := r.Resolve(context.Background(), typeQuery(t, reg, "Foo"))
	require.NoError(t, err)

	assert.Equal(t, StateFallbackById, res.State)
	assert.Equal(t, 3, res.Count)
	assert.True(t, res.Found)
	assert.Equal(t, "WorkflowId STARTS_WITH 'Foo'", res.Query)
	assert.Equal(t, []string{"WorkflowType = 'Foo'", "WorkflowId STARTS_WITH 'Foo'"}, res.Attempted)
}

func TestResolvePrimaryHitNeverFallsBack(t *testing.T) {
	t.Parallel()
	reg := query.NewRegistry()
	stub := &countStub{counts: map[string]int{"WorkflowType = 'Foo'": 12}}
	r := NewResolver(stub, reg)

	res, err := r.Resolve(context.Background(), typeQuery(t, reg, "Foo"))
	require.NoError(t, err)

	assert.Equal(t, StatePrimary, res.State)
	assert.Equal(t, 12, res.Count)
	assert.Len(t, stub.calls, 1)
}

func TestResolveBothZeroReportsBothAttempts(t *testing.T) {
	t.Parallel()
	reg := query.NewRegistry()
	stub := &countStub{counts: map[string]int{}}
	r := NewResolver(stub, reg)

	res, err := r.Resolve(context.Background(), typeQuery(t, reg, "Ghost"))
	require.NoError(t, err)

	assert.False(t, res.Found)
	assert.Equal(t, StatePrimary, res.State)
	assert.Len(t, res.Attempted, 2)
	// Exactly two round trips, never a third heuristic attempt.
	assert.Len(t, stub.calls, 2)
}

func TestResolveIneligibleQueriesStayPrimary(t *testing.T) {
	t.Parallel()
	reg := query.NewRegistry()

	wt, err := reg.Describe("WorkflowType")
	require.NoError(t, err)
	st, err := reg.Describe("ExecutionStatus")
	require.NoError(t, err)

	eq, err := query.NewComparison(wt, query.OpEq, "Foo")
	require.NoError(t, err)
	failed, err := query.NewComparison(st, query.OpEq, "Failed")
	require.NoError(t, err)
	prefix, err := query.NewComparison(wt, query.OpStartsWith, "Foo")
	require.NoError(t, err)

	conj, err := query.NewQuery(query.And(eq, failed))
	require.NoError(t, err)
	starts, err := query.NewQuery(prefix)
	require.NoError(t, err)

	for name, q := range map[string]query.Query{
		"conjunction":      conj,
		"starts_with root": starts,
	} {
		t.Run(name, func(t *testing.T) {
			stub := &countStub{counts: map[string]int{}}
			res, err := NewResolver(stub, reg).Resolve(context.Background(), q)
			require.NoError(t, err)
			assert.Equal(t, StatePrimary, res.State)
			assert.False(t, res.Found)
			assert.Len(t, stub.calls, 1)
		})
	}
}
