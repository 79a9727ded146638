package visibility

import (
	"context"
	"fmt"

	"github.com/workflow-lens/lens-go/internal/query"
)

// State names which query the resolver ended on.
type State string

const (
	StatePrimary      State = "primary"
	StateFallbackById State = "fallback_by_id"
)

// Resolution reports the resolver outcome. Attempted lists every rendering
// that was counted, in order, so a "not found" can show both queries tried.
type Resolution struct {
	State     State    `json:"state"`
	Query     string   `json:"query"`
	Count     int      `json:"count"`
	Found     bool     `json:"found"`
	Attempted []string `json:"attempted"`
}

// Resolver rewrites a zero-result type-equality query into an id-prefix
// query. At most one fallback attempt is made, bounding cost to two round
// trips; no further heuristic chaining is allowed.
type Resolver struct {
	counter  Counter
	registry *query.Registry
}

// NewResolver builds a resolver counting through c and resolving the
// WorkflowId field against reg.
func NewResolver(c Counter, reg *query.Registry) *Resolver {
	return &Resolver{counter: c, registry: reg}
}

// Resolve counts q and, iff q is exactly `WorkflowType = '<literal>'` with a
// zero count, retries as `WorkflowId STARTS_WITH '<literal>'`.
func (r *Resolver) Resolve(ctx context.Context, q query.Query) (Resolution, error) {
	rendered := q.Render()
	count, err := r.counter.Count(ctx, rendered)
	if err != nil {
		return Resolution{}, fmt.Errorf("count primary query: %w", err)
	}

	res := Resolution{
		State:     StatePrimary,
		Query:     rendered,
		Count:     count,
		Found:     count > 0,
		Attempted: []string{rendered},
	}
	if count > 0 {
		return res, nil
	}

	literal, ok := typeEqualityLiteral(q.Root())
	if !ok {
		return res, nil
	}

	fallback, err := r.fallbackQuery(literal)
	if err != nil {
		return Resolution{}, err
	}
	fbRendered := fallback.Render()
	fbCount, err := r.counter.Count(ctx, fbRendered)
	if err != nil {
		return Resolution{}, fmt.Errorf("count fallback query: %w", err)
	}

	res.Attempted = append(res.Attempted, fbRendered)
	if fbCount > 0 {
		res.State = StateFallbackById
		res.Query = fbRendered
		res.Count = fbCount
		res.Found = true
	}
	return res, nil
}

// typeEqualityLiteral matches a root that is a single WorkflowType equality
// comparison with no conjuncts.
func typeEqualityLiteral(root query.Expression) (string, bool) {
	cmp, ok := root.(*query.Comparison)
	if !ok {
		return "", false
	}
	if cmp.Field.Name != "WorkflowType" || cmp.Op != query.OpEq {
		return "", false
	}
	literal, ok := cmp.Operands[0].(string)
	return literal, ok
}

func (r *Resolver) fallbackQuery(literal string) (query.Query, error) {
	fd, err := r.registry.Describe("WorkflowId")
	if err != nil {
		return query.Query{}, fmt.Errorf("resolve WorkflowId: %w", err)
	}
	cmp, err := query.NewComparison(fd, query.OpStartsWith, literal)
	if err != nil {
		return query.Query{}, fmt.Errorf("build fallback comparison: %w", err)
	}
	return query.NewQuery(cmp)
}
