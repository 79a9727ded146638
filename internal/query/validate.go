package query

import (
	"fmt"
	"regexp"
	"strings"
)

// FindingCode classifies a validator finding.
type FindingCode string

const (
	CodeUnbalancedQuotes    FindingCode = "unbalanced_quotes"
	CodeUnbalancedParens    FindingCode = "unbalanced_parens"
	CodeUnsupportedOperator FindingCode = "unsupported_operator"
	CodeCase                FindingCode = "case"
	CodeUnknownField        FindingCode = "unknown_field"
	CodeUnknownStatus       FindingCode = "unknown_status"
)

// Finding is one static validation problem. Findings are collected, never
// raised individually, so callers see the complete list in one pass.
type Finding struct {
	Code       FindingCode `json:"code"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// unsupportedOperators maps operators the filter language rejects to the
// closest supported rewrite.
var unsupportedOperators = map[string]string{
	"LIKE":       "STARTS_WITH",
	"ILIKE":      "STARTS_WITH",
	"CONTAINS":   "STARTS_WITH",
	"MATCH":      "STARTS_WITH",
	"REGEX":      "STARTS_WITH",
	"REGEXP":     "STARTS_WITH",
	"SIMILAR TO": "STARTS_WITH",
	"NOT LIKE":   "!=",
	"NOT ILIKE":  "!=",
}

var (
	// LIKE 'foo%' style patterns that are plain prefixes rewrite cleanly.
	prefixPatternRe = regexp.MustCompile(`(?i)([A-Za-z0-9_` + "`" + `]+)\s+(?:I?LIKE|CONTAINS|MATCH)\s+'([^'%*]+)[%*]?'`)
	lowercaseConnRe = regexp.MustCompile(`(^|[\s)])(and|or)([\s(]|$)`)
	identRe         = regexp.MustCompile("`[^`]*`|[A-Za-z_][A-Za-z0-9_]*")
	statusEqRe      = regexp.MustCompile(`\bExecutionStatus\s*(?:=|!=|<>)\s*'([^']*)'`)
	statusInRe      = regexp.MustCompile(`(?i)\bExecutionStatus\s+(?:NOT\s+)?IN\s*\(([^)]*)\)`)
	quotedLitRe     = regexp.MustCompile(`'([^']*)'`)
)

// reserved words of the filter grammar that identifier scanning must skip.
var reservedWords = map[string]bool{
	"AND": true, "OR": true, "NOT": true, "IN": true, "BETWEEN": true,
	"STARTS_WITH": true, "IS": true, "NULL": true, "TRUE": true, "FALSE": true,
	"ORDER": true, "BY": true, "ASC": true, "DESC": true,
}

// Validator performs static pre-flight checks on raw filter strings without
// contacting any server.
type Validator struct {
	registry *Registry
}

// NewValidator returns a validator resolving field names against reg.
func NewValidator(reg *Registry) *Validator {
	return &Validator{registry: reg}
}

// Validate runs every check and returns the complete finding list. An empty
// query is valid. Validate is pure and therefore idempotent across calls.
func (v *Validator) Validate(q string) []Finding {
	findings := []Finding{}
	if strings.TrimSpace(q) == "" {
		return findings
	}

	if strings.Count(q, "'")%2 != 0 {
		findings = append(findings, Finding{
			Code:       CodeUnbalancedQuotes,
			Message:    "unbalanced single quotes in query",
			Suggestion: "close every string literal; escape embedded quotes by doubling them",
		})
	}

	stripped := stripQuoted(q)

	if strings.Count(stripped, "(") != strings.Count(stripped, ")") {
		findings = append(findings, Finding{
			Code:    CodeUnbalancedParens,
			Message: "unbalanced parentheses in query",
		})
	}

	findings = append(findings, v.checkOperators(q, stripped)...)
	findings = append(findings, checkConnectiveCase(stripped)...)
	findings = append(findings, v.checkFieldNames(stripped)...)
	findings = append(findings, checkStatusLiterals(q)...)

	return findings
}

func (v *Validator) checkOperators(original, stripped string) []Finding {
	var findings []Finding
	upper := strings.ToUpper(stripped)
	var matched []string
	for _, op := range sortedOperatorKeys() {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(op) + `\b`)
		if !re.MatchString(upper) {
			continue
		}
		// "NOT LIKE" already covers the "LIKE" inside it.
		if containedIn(op, matched) {
			continue
		}
		matched = append(matched, op)
		f := Finding{
			Code:       CodeUnsupportedOperator,
			Message:    fmt.Sprintf("operator %s is not supported", op),
			Suggestion: fmt.Sprintf("use %s instead", unsupportedOperators[op]),
		}
		// A simple-prefix pattern gets a concrete rewrite.
		if m := prefixPatternRe.FindStringSubmatch(original); m != nil {
			f.Suggestion = fmt.Sprintf("use %s STARTS_WITH '%s'", m[1], m[2])
		}
		findings = append(findings, f)
	}
	// Wildcards are banned even inside literals: the store treats them as
	// plain characters, which is almost never what the author meant.
	for _, wc := range []string{"%", "*"} {
		if strings.Contains(original, wc) {
			findings = append(findings, Finding{
				Code:       CodeUnsupportedOperator,
				Message:    fmt.Sprintf("wildcard %q is not supported", wc),
				Suggestion: "use STARTS_WITH for prefix matching",
			})
		}
	}
	return findings
}

func checkConnectiveCase(stripped string) []Finding {
	var findings []Finding
	seen := map[string]bool{}
	for _, m := range lowercaseConnRe.FindAllStringSubmatch(stripped, -1) {
		word := m[2]
		if seen[word] {
			continue
		}
		seen[word] = true
		findings = append(findings, Finding{
			Code:       CodeCase,
			Message:    fmt.Sprintf("logical connective %q must be uppercase", word),
			Suggestion: strings.ToUpper(word),
		})
	}
	return findings
}

// checkFieldNames looks up each identifier case-sensitively. A
// case-insensitive near-miss against a known field still fails, but carries a
// "did you mean" hint. Identifiers with no near-miss are left alone: they may
// be server-side custom attributes not declared locally.
func (v *Validator) checkFieldNames(stripped string) []Finding {
	var findings []Finding
	seen := map[string]bool{}
	for _, ident := range identRe.FindAllString(stripped, -1) {
		ident = strings.Trim(ident, "`")
		if reservedWords[strings.ToUpper(ident)] || seen[ident] {
			continue
		}
		if _, up := unsupportedOperators[strings.ToUpper(ident)]; up {
			continue
		}
		seen[ident] = true
		if _, err := v.registry.Describe(ident); err == nil {
			continue
		}
		if hint := v.registry.nearMiss(ident); hint != "" {
			findings = append(findings, Finding{
				Code:       CodeUnknownField,
				Message:    fmt.Sprintf("unknown field %q", ident),
				Suggestion: fmt.Sprintf("did you mean %q?", hint),
			})
		}
	}
	return findings
}

// checkStatusLiterals compares every ExecutionStatus literal against the
// closed value set. The store silently matches nothing on a wrong spelling,
// so this is the one literal check worth doing statically.
func checkStatusLiterals(q string) []Finding {
	var values []string
	for _, m := range statusEqRe.FindAllStringSubmatch(q, -1) {
		values = append(values, m[1])
	}
	for _, m := range statusInRe.FindAllStringSubmatch(q, -1) {
		for _, lit := range quotedLitRe.FindAllStringSubmatch(m[1], -1) {
			values = append(values, lit[1])
		}
	}

	var findings []Finding
	seen := map[string]bool{}
	for _, v := range values {
		if seen[v] || validStatus(v) {
			continue
		}
		seen[v] = true
		f := Finding{
			Code:       CodeUnknownStatus,
			Message:    fmt.Sprintf("%q is not an ExecutionStatus value", v),
			Suggestion: "one of " + strings.Join(ExecutionStatuses, ", "),
		}
		for _, s := range ExecutionStatuses {
			if strings.EqualFold(s, v) {
				f.Suggestion = s
				break
			}
		}
		findings = append(findings, f)
	}
	return findings
}

func validStatus(v string) bool {
	for _, s := range ExecutionStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// stripQuoted blanks out single-quoted literal contents so structural checks
// never trip on literal text. Doubled quotes stay inside their literal.
func stripQuoted(q string) string {
	var b strings.Builder
	b.Grow(len(q))
	inQuote := false
	for i := 0; i < len(q); i++ {
		c := q[i]
		if c == '\'' {
			if inQuote && i+1 < len(q) && q[i+1] == '\'' {
				b.WriteByte(' ')
				i++
				continue
			}
			inQuote = !inQuote
			b.WriteByte(c)
			continue
		}
		if inQuote {
			b.WriteByte(' ')
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// sortedOperatorKeys keeps finding order deterministic.
func sortedOperatorKeys() []string {
	keys := make([]string, 0, len(unsupportedOperators))
	for k := range unsupportedOperators {
		keys = append(keys, k)
	}
	// Longer operators first so "NOT LIKE" reports before the bare "LIKE"
	// inside it is considered.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && longerOrEarlier(keys[j], keys[j-1]); j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

func containedIn(op string, matched []string) bool {
	for _, m := range matched {
		if strings.Contains(m, op) {
			return true
		}
	}
	return false
}

func longerOrEarlier(a, b string) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a < b
}
