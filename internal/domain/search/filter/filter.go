// Package filter builds OR filter expressions for the store's
// column.operator.value filter grammar from untrusted values.
//
// The builder never emits a clause derived from unescaped input: clauses that
// fail validation are dropped, and an input with no surviving clause yields
// None, which callers must treat as "do not query".
package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxClauses is the maximum number of clauses in one expression.
const MaxClauses = 32

// Operator is a filter comparison operator of the target grammar.
type Operator string

// Allowed operators.
const (
	Eq    Operator = "eq"
	Neq   Operator = "neq"
	Gt    Operator = "gt"
	Gte   Operator = "gte"
	Lt    Operator = "lt"
	Lte   Operator = "lte"
	Like  Operator = "like"
	ILike Operator = "ilike"
	In    Operator = "in"
	Is    Operator = "is"
)

var operators = map[Operator]struct{}{
	Eq: {}, Neq: {}, Gt: {}, Gte: {}, Lt: {}, Lte: {},
	Like: {}, ILike: {}, In: {}, Is: {},
}

// IsValid reports whether o is on the allow-list.
func (o Operator) IsValid() bool {
	_, ok := operators[o]
	return ok
}

// IsPattern reports whether o is a pattern-match operator.
func (o Operator) IsPattern() bool { return o == Like || o == ILike }

var columnPattern = regexp.MustCompile(`^[a-zA-Z0-9_.]+$`)

// IsValidColumn reports whether name is a safe column identifier. Dotted
// names are allowed, but no segment may be empty or spell an operator, so
// "col.op.arg" always splits at exactly one place.
func IsValidColumn(name string) bool {
	if !columnPattern.MatchString(name) {
		return false
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" || Operator(part).IsValid() {
			return false
		}
	}
	return true
}

// isLiterals are the only values accepted by the "is" operator.
var isLiterals = map[string]struct{}{"null": {}, "true": {}, "false": {}, "unknown": {}}

// Intent is an unvalidated clause request. Values is used by the "in" operator only.
type Intent struct {
	Column   string
	Operator Operator
	Value    string
	Values   []string
}

// Clause is a validated filter clause with an escaped value.
type Clause struct {
	column string
	op     Operator
	value  string
	values []string
}

// NewClause validates and escapes a single intent.
// ok is false when the intent must be dropped.
func NewClause(in Intent) (Clause, bool) {
	if !IsValidColumn(in.Column) || !in.Operator.IsValid() {
		return Clause{}, false
	}

	switch {
	case in.Operator == In:
		return NewIn(in.Column, in.Values)
	case in.Operator.IsPattern():
		v := EscapePattern(sanitize(in.Value))
		if v == "" {
			return Clause{}, false
		}
		return Clause{column: in.Column, op: in.Operator, value: "%" + v + "%"}, true
	case in.Operator == Is:
		v := strings.ToLower(sanitize(in.Value))
		if _, ok := isLiterals[v]; !ok {
			return Clause{}, false
		}
		return Clause{column: in.Column, op: Is, value: v}, true
	default:
		v := sanitize(in.Value)
		if v == "" {
			return Clause{}, false
		}
		return Clause{column: in.Column, op: in.Operator, value: v}, true
	}
}

// NewIn builds an "in" clause. Members emptied by sanitization are dropped;
// a list with no surviving member yields ok=false.
func NewIn(column string, values []string) (Clause, bool) {
	if !IsValidColumn(column) {
		return Clause{}, false
	}
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if s := sanitize(v); s != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return Clause{}, false
	}
	return Clause{column: column, op: In, values: kept}, true
}

// Column returns the column identifier.
func (c Clause) Column() string { return c.column }

// Operator returns the comparison operator.
func (c Clause) Operator() Operator { return c.op }

// Value returns the escaped scalar value. Pattern values carry their % wildcards.
func (c Clause) Value() string { return c.value }

// Values returns the members of an "in" clause.
func (c Clause) Values() []string { return c.values }

// Arg returns the right-hand side as rendered in the grammar.
func (c Clause) Arg() string {
	if c.op == In {
		return "(" + strings.Join(c.values, ",") + ")"
	}
	return c.value
}

// String renders the clause as column.operator.value.
func (c Clause) String() string {
	return c.column + "." + string(c.op) + "." + c.Arg()
}

// Expression is a non-empty OR of clauses, or None.
type Expression struct {
	clauses []Clause
}

// None is the "no filter" sentinel. It never means "match everything".
var None = Expression{}

// Build validates intents and joins the survivors into an OR expression.
// Returns None when the input is empty, exceeds MaxClauses, or no clause survives.
func Build(intents []Intent) Expression {
	if len(intents) == 0 || len(intents) > MaxClauses {
		return None
	}
	clauses := make([]Clause, 0, len(intents))
	for _, in := range intents {
		if c, ok := NewClause(in); ok {
			clauses = append(clauses, c)
		}
	}
	if len(clauses) == 0 {
		return None
	}
	return Expression{clauses: clauses}
}

// IsNone reports whether e is the "no filter" sentinel.
func (e Expression) IsNone() bool { return len(e.clauses) == 0 }

// Clauses returns a copy of the clauses.
func (e Expression) Clauses() []Clause {
	out := make([]Clause, len(e.clauses))
	copy(out, e.clauses)
	return out
}

// String renders the comma-joined clause list. None renders as "".
func (e Expression) String() string {
	parts := make([]string, len(e.clauses))
	for i, c := range e.clauses {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}

var patternEscaper = strings.NewReplacer(
	`\`, `\\`,
	`%`, `\%`,
	`_`, `\_`,
)

// EscapePattern neutralizes LIKE wildcards and the escape character itself.
func EscapePattern(s string) string {
	return patternEscaper.Replace(s)
}

// sanitize strips control characters, the clause separator and grammar-reserved
// characters, then trims surrounding whitespace.
func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7F:
			return -1
		case r == ',', r == '(', r == ')', r == '"', r == '*':
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// Parse splits a rendered expression back into clauses. Values are returned as
// rendered (still escaped); Parse is a structural inverse of Expression.String.
func Parse(s string) ([]Clause, error) {
	if s == "" {
		return nil, fmt.Errorf("empty expression")
	}
	segments, err := splitTopLevel(s)
	if err != nil {
		return nil, err
	}
	clauses := make([]Clause, 0, len(segments))
	for _, seg := range segments {
		c, err := parseClause(seg)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
	}
	return clauses, nil
}

func splitTopLevel(s string) ([]string, error) {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced parenthesis at %d", i)
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parenthesis")
	}
	return append(parts, s[start:]), nil
}

// parseClause finds the leftmost ".op." whose prefix is a valid column. Valid
// columns never contain an operator segment, so that split is the only one.
func parseClause(seg string) (Clause, error) {
	for i := 0; i < len(seg); i++ {
		if seg[i] != '.' {
			continue
		}
		column := seg[:i]
		if !IsValidColumn(column) {
			continue
		}
		rest := seg[i+1:]
		opName, arg, found := strings.Cut(rest, ".")
		if !found || !Operator(opName).IsValid() {
			continue
		}
		op := Operator(opName)
		if op != In {
			return Clause{column: column, op: op, value: arg}, nil
		}
		if len(arg) < 2 || arg[0] != '(' || arg[len(arg)-1] != ')' {
			return Clause{}, fmt.Errorf("malformed in-list in %q", seg)
		}
		return Clause{column: column, op: In, values: strings.Split(arg[1:len(arg)-1], ",")}, nil
	}
	return Clause{}, fmt.Errorf("malformed clause %q", seg)
}
