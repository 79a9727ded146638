// Package query implements typed construction, rendering, and static
// validation of Temporal visibility filter queries. The query engine is pure:
// it never contacts a server and mirrors only the published textual syntax of
// the filter language.
package query

import (
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
)

// FieldType is the declared type of a search attribute. Each type carries an
// allowed-operator set and a literal quoting rule.
type FieldType string

const (
	TypeKeyword     FieldType = "Keyword"
	TypeText        FieldType = "Text"
	TypeInt         FieldType = "Int"
	TypeDouble      FieldType = "Double"
	TypeBool        FieldType = "Bool"
	TypeDatetime    FieldType = "Datetime"
	TypeKeywordList FieldType = "KeywordList"
)

func (t FieldType) Valid() bool {
	switch t {
	case TypeKeyword, TypeText, TypeInt, TypeDouble, TypeBool, TypeDatetime, TypeKeywordList:
		return true
	}
	return false
}

// quoted reports whether literals of this type render single-quoted.
func (t FieldType) quoted() bool {
	switch t {
	case TypeInt, TypeDouble, TypeBool:
		return false
	}
	return true
}

// allowedOperators maps each field type to the operators the visibility store
// accepts for it. STARTS_WITH is Keyword-only; Text supports equality checks
// only; Bool has no ordering.
var allowedOperators = map[FieldType]map[Operator]bool{
	TypeKeyword:     opSet(OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpStartsWith, OpIn, OpBetween, OpIsNull, OpIsNotNull),
	TypeText:        opSet(OpEq, OpNeq, OpIsNull, OpIsNotNull),
	TypeInt:         opSet(OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpIn, OpBetween, OpIsNull, OpIsNotNull),
	TypeDouble:      opSet(OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpIn, OpBetween, OpIsNull, OpIsNotNull),
	TypeBool:        opSet(OpEq, OpNeq, OpIsNull, OpIsNotNull),
	TypeDatetime:    opSet(OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpBetween, OpIsNull, OpIsNotNull),
	TypeKeywordList: opSet(OpEq, OpIn, OpIsNull, OpIsNotNull),
}

func opSet(ops ...Operator) map[Operator]bool {
	m := make(map[Operator]bool, len(ops))
	for _, op := range ops {
		m[op] = true
	}
	return m
}

// Allows reports whether op is in the type's allowed-operator set.
func (t FieldType) Allows(op Operator) bool {
	return allowedOperators[t][op]
}

// FieldDescriptor resolves a field name to its declared type.
type FieldDescriptor struct {
	Name   string    `json:"name"`
	Type   FieldType `json:"type"`
	Custom bool      `json:"custom"`
}

var bareNameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// NewFieldDescriptor builds a descriptor, rejecting names that cannot be
// escaped in the filter language. Names containing a back-tick fail closed
// since back-tick wrapping has no escape for the wrapper itself.
func NewFieldDescriptor(name string, t FieldType, custom bool) (FieldDescriptor, error) {
	if name == "" {
		return FieldDescriptor{}, &InvalidFieldNameError{Name: name, Reason: "empty name"}
	}
	if strings.ContainsRune(name, '`') {
		return FieldDescriptor{}, &InvalidFieldNameError{Name: name, Reason: "back-tick not representable"}
	}
	if !t.Valid() {
		return FieldDescriptor{}, &InvalidFieldNameError{Name: name, Reason: "unknown field type " + string(t)}
	}
	return FieldDescriptor{Name: name, Type: t, Custom: custom}, nil
}

// renderName returns the name bare when it is a plain identifier, otherwise
// back-tick wrapped.
func (f FieldDescriptor) renderName() string {
	if bareNameRe.MatchString(f.Name) {
		return f.Name
	}
	return "`" + f.Name + "`"
}

// builtinFields is the fixed table of search attributes every namespace has.
var builtinFields = map[string]FieldType{
	"WorkflowId":               TypeKeyword,
	"WorkflowType":             TypeKeyword,
	"RunId":                    TypeKeyword,
	"ExecutionStatus":          TypeKeyword,
	"StartTime":                TypeDatetime,
	"CloseTime":                TypeDatetime,
	"ExecutionTime":            TypeDatetime,
	"TaskQueue":                TypeKeyword,
	"BuildIds":                 TypeKeywordList,
	"TemporalReportedProblems": TypeKeywordList,
}

// ExecutionStatuses are the valid ExecutionStatus literal values.
var ExecutionStatuses = []string{
	"Running", "Completed", "Failed", "Canceled", "Terminated", "ContinuedAsNew", "TimedOut",
}

// Registry resolves field names against the builtin table plus a
// caller-supplied custom attribute map. The custom map is the only
// process-wide state; reconfiguration swaps the map atomically under a single
// writer, lookups never lock.
type Registry struct {
	custom atomic.Pointer[map[string]FieldType]
}

// NewRegistry returns a registry with no custom attributes declared.
func NewRegistry() *Registry {
	r := &Registry{}
	empty := map[string]FieldType{}
	r.custom.Store(&empty)
	return r
}

// SetCustomFields replaces the custom attribute map. Names that shadow
// builtins or carry an invalid type are rejected as a whole; the previous map
// stays in effect on error.
func (r *Registry) SetCustomFields(fields map[string]FieldType) error {
	next := make(map[string]FieldType, len(fields))
	for name, t := range fields {
		if _, ok := builtinFields[name]; ok {
			return &InvalidFieldNameError{Name: name, Reason: "shadows builtin search attribute"}
		}
		if _, err := NewFieldDescriptor(name, t, true); err != nil {
			return err
		}
		next[name] = t
	}
	r.custom.Store(&next)
	return nil
}

// Describe resolves a field name, case-sensitively, to its descriptor.
func (r *Registry) Describe(name string) (FieldDescriptor, error) {
	if t, ok := builtinFields[name]; ok {
		return FieldDescriptor{Name: name, Type: t}, nil
	}
	custom := *r.custom.Load()
	if t, ok := custom[name]; ok {
		return FieldDescriptor{Name: name, Type: t, Custom: true}, nil
	}
	return FieldDescriptor{}, &UnknownFieldError{Name: name, Suggestion: r.nearMiss(name)}
}

// nearMiss returns a known field whose name matches case-insensitively, or "".
func (r *Registry) nearMiss(name string) string {
	lower := strings.ToLower(name)
	for known := range builtinFields {
		if strings.ToLower(known) == lower {
			return known
		}
	}
	for known := range *r.custom.Load() {
		if strings.ToLower(known) == lower {
			return known
		}
	}
	return ""
}

// Fields returns all known descriptors sorted by name, builtins first.
func (r *Registry) Fields() []FieldDescriptor {
	var out []FieldDescriptor
	for name, t := range builtinFields {
		out = append(out, FieldDescriptor{Name: name, Type: t})
	}
	for name, t := range *r.custom.Load() {
		out = append(out, FieldDescriptor{Name: name, Type: t, Custom: true})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Custom != out[j].Custom {
			return !out[i].Custom
		}
		return out[i].Name < out[j].Name
	})
	return out
}
