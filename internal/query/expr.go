package query

import (
	"fmt"
	"time"
)

// Operator is a comparison operator of the visibility filter language.
type Operator string

const (
	OpEq         Operator = "="
	OpNeq        Operator = "!="
	OpGt         Operator = ">"
	OpGte        Operator = ">="
	OpLt         Operator = "<"
	OpLte        Operator = "<="
	OpStartsWith Operator = "STARTS_WITH"
	OpIn         Operator = "IN"
	OpBetween    Operator = "BETWEEN"
	OpIsNull     Operator = "IS NULL"
	OpIsNotNull  Operator = "IS NOT NULL"
)

// LogicalOp combines subexpressions.
type LogicalOp string

const (
	LogicalAnd LogicalOp = "AND"
	LogicalOr  LogicalOp = "OR"
)

// Expression is a node of the filter AST. Comparisons are leaves; Logical
// nodes combine children under AND/OR with explicit grouping metadata.
type Expression interface {
	exprMarker()
}

// Comparison is a single field/operator/operand leaf. Operand shape depends
// on the operator: none for IS NULL / IS NOT NULL, exactly two for BETWEEN,
// one or more for IN, exactly one otherwise. Built via NewComparison only so
// every leaf is type-checked at construction.
type Comparison struct {
	Field    FieldDescriptor
	Op       Operator
	Operands []any
}

func (*Comparison) exprMarker() {}

// Logical is an AND/OR combinator over two or more children. Grouped forces
// parentheses even where precedence would not require them.
type Logical struct {
	Op       LogicalOp
	Children []Expression
	Grouped  bool
}

func (*Logical) exprMarker() {}

// And combines expressions under AND.
func And(children ...Expression) *Logical {
	return &Logical{Op: LogicalAnd, Children: children}
}

// Or combines expressions under OR.
func Or(children ...Expression) *Logical {
	return &Logical{Op: LogicalOr, Children: children}
}

// NewComparison builds a type-checked comparison leaf. It fails with a
// TypeMismatchError when the operator is outside the field type's allowed set,
// when the operand arity does not fit the operator, or when any literal's
// shape mismatches the field type.
func NewComparison(field FieldDescriptor, op Operator, operands ...any) (*Comparison, error) {
	if !field.Type.Allows(op) {
		return nil, &TypeMismatchError{
			Field: field.Name, Type: field.Type, Operator: op,
			Reason: "operator not allowed for this field type",
		}
	}

	mismatch := func(reason string) error {
		return &TypeMismatchError{Field: field.Name, Type: field.Type, Operator: op, Reason: reason}
	}

	switch op {
	case OpIsNull, OpIsNotNull:
		if len(operands) != 0 {
			return nil, mismatch("operator takes no operand")
		}

	case OpIn:
		if len(operands) == 0 {
			return nil, mismatch("IN requires at least one element")
		}
		for i, v := range operands {
			if err := checkLiteral(field.Type, v); err != nil {
				return nil, mismatch(fmt.Sprintf("element %d: %v", i, err))
			}
		}
		if !homogeneous(operands) {
			return nil, mismatch("IN elements must be homogeneously typed")
		}

	case OpBetween:
		if len(operands) != 2 {
			return nil, mismatch("BETWEEN requires exactly two bounds")
		}
		for i, v := range operands {
			if err := checkLiteral(field.Type, v); err != nil {
				return nil, mismatch(fmt.Sprintf("bound %d: %v", i, err))
			}
		}
		// Server leniency on reversed bounds is unspecified; fail closed.
		if boundsReversed(field.Type, operands[0], operands[1]) {
			return nil, mismatch("BETWEEN lower bound orders after upper bound")
		}

	default:
		if len(operands) != 1 {
			return nil, mismatch("operator requires exactly one operand")
		}
		if err := checkLiteral(field.Type, operands[0]); err != nil {
			return nil, mismatch(err.Error())
		}
	}

	return &Comparison{Field: field, Op: op, Operands: operands}, nil
}

// checkLiteral validates the Go value shape against the declared field type.
func checkLiteral(t FieldType, v any) error {
	switch t {
	case TypeKeyword, TypeText, TypeKeywordList:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("want string literal, got %T", v)
		}
	case TypeInt:
		switch v.(type) {
		case int, int32, int64:
		default:
			return fmt.Errorf("want integer literal, got %T", v)
		}
	case TypeDouble:
		switch v.(type) {
		case float32, float64, int, int32, int64:
		default:
			return fmt.Errorf("want numeric literal, got %T", v)
		}
	case TypeBool:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("want boolean literal, got %T", v)
		}
	case TypeDatetime:
		switch d := v.(type) {
		case time.Time:
		case string:
			if _, err := time.Parse(time.RFC3339, d); err != nil {
				return fmt.Errorf("want RFC3339 timestamp, got %q", d)
			}
		default:
			return fmt.Errorf("want time.Time or RFC3339 string, got %T", v)
		}
	default:
		return fmt.Errorf("unknown field type %s", t)
	}
	return nil
}

// homogeneous reports whether all values share one Go type.
func homogeneous(vs []any) bool {
	first := fmt.Sprintf("%T", vs[0])
	for _, v := range vs[1:] {
		if fmt.Sprintf("%T", v) != first {
			return false
		}
	}
	return true
}

// boundsReversed reports lower > upper for types with a defined ordering.
// Bounds already passed checkLiteral.
func boundsReversed(t FieldType, lower, upper any) bool {
	switch t {
	case TypeInt, TypeDouble:
		return asFloat(lower) > asFloat(upper)
	case TypeDatetime:
		lo, lerr := asTime(lower)
		hi, herr := asTime(upper)
		return lerr == nil && herr == nil && lo.After(hi)
	case TypeKeyword:
		lo, _ := lower.(string)
		hi, _ := upper.(string)
		return lo > hi
	}
	return false
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func asTime(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d, nil
	case string:
		return time.Parse(time.RFC3339, d)
	}
	return time.Time{}, fmt.Errorf("not a timestamp: %T", v)
}

// Query owns one root expression and is immutable once built.
type Query struct {
	root Expression
}

// NewQuery wraps a non-nil root expression.
func NewQuery(root Expression) (Query, error) {
	if root == nil {
		return Query{}, fmt.Errorf("query: nil root expression")
	}
	return Query{root: root}, nil
}

// Root returns the owned expression tree.
func (q Query) Root() Expression { return q.root }

// Render produces the canonical filter string for the query.
func (q Query) Render() string { return Render(q.root) }
