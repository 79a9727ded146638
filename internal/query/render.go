package query

import (
	"strconv"
	"strings"
	"time"
)

// Render converts an expression tree to the canonical filter string. It is a
// pure function: identical trees always render identically.
//
// Quoting rules: Keyword/Text/Datetime/KeywordList literals are single-quoted
// with embedded quotes doubled; Int/Double/Bool render unquoted, booleans
// lowercase. A subtree is parenthesized whenever its combinator differs from
// its parent's or it sits under an OR parent, so rendered strings never rely
// on the server's implicit precedence.
func Render(e Expression) string {
	return renderNode(e, "")
}

func renderNode(e Expression, parent LogicalOp) string {
	switch n := e.(type) {
	case *Comparison:
		return renderComparison(n)
	case *Logical:
		parts := make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			parts = append(parts, renderNode(child, n.Op))
		}
		s := strings.Join(parts, " "+string(n.Op)+" ")
		if n.Grouped || (parent != "" && (n.Op != parent || parent == LogicalOr)) {
			return "(" + s + ")"
		}
		return s
	}
	return ""
}

func renderComparison(c *Comparison) string {
	name := c.Field.renderName()
	switch c.Op {
	case OpIsNull, OpIsNotNull:
		return name + " " + string(c.Op)
	case OpIn:
		lits := make([]string, 0, len(c.Operands))
		for _, v := range c.Operands {
			lits = append(lits, renderLiteral(c.Field.Type, v))
		}
		return name + " IN (" + strings.Join(lits, ", ") + ")"
	case OpBetween:
		return name + " BETWEEN " +
			renderLiteral(c.Field.Type, c.Operands[0]) + " AND " +
			renderLiteral(c.Field.Type, c.Operands[1])
	default:
		return name + " " + string(c.Op) + " " + renderLiteral(c.Field.Type, c.Operands[0])
	}
}

func renderLiteral(t FieldType, v any) string {
	switch t {
	case TypeInt:
		switch n := v.(type) {
		case int:
			return strconv.Itoa(n)
		case int32:
			return strconv.FormatInt(int64(n), 10)
		case int64:
			return strconv.FormatInt(n, 10)
		}
	case TypeDouble:
		switch n := v.(type) {
		case float32:
			return strconv.FormatFloat(float64(n), 'g', -1, 32)
		case float64:
			return strconv.FormatFloat(n, 'g', -1, 64)
		case int, int32, int64:
			return strconv.FormatFloat(asFloat(n), 'g', -1, 64)
		}
	case TypeBool:
		if b, ok := v.(bool); ok {
			return strconv.FormatBool(b)
		}
	case TypeDatetime:
		if ts, err := asTime(v); err == nil {
			if s, ok := v.(string); ok {
				return quote(s)
			}
			return quote(ts.UTC().Format(time.RFC3339))
		}
	}
	// Keyword, Text, KeywordList, and datetime strings all quote as text.
	if s, ok := v.(string); ok {
		return quote(s)
	}
	return quote("")
}

// quote wraps s in single quotes, doubling embedded quotes (never dropping).
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
