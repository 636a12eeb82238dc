package sqlstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/marketsearch/internal/db"
	"github.com/kailas-cloud/marketsearch/internal/domain/search/filter"
)

// dialect captures the differences between the two SQL backends.
type dialect struct {
	name string
	// placeholder returns the bind marker for the n-th (1-based) argument.
	placeholder func(n int) string
	// ilike is the case-insensitive pattern operator.
	ilike string
}

var (
	postgresDialect = dialect{
		name:        DriverPostgres,
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		ilike:       "ILIKE",
	}
	// SQLite LIKE is case-insensitive for ASCII.
	sqliteDialect = dialect{
		name:        DriverSQLite,
		placeholder: func(int) string { return "?" },
		ilike:       "LIKE",
	}
)

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverPostgres:
		return postgresDialect, nil
	case DriverSQLite:
		return sqliteDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported driver %q", driver)
	}
}

var comparisons = map[filter.Operator]string{
	filter.Eq:  "=",
	filter.Neq: "<>",
	filter.Gt:  ">",
	filter.Gte: ">=",
	filter.Lt:  "<",
	filter.Lte: "<=",
}

var isLiterals = map[string]string{
	"null":  "IS NULL",
	"true":  "IS TRUE",
	"false": "IS FALSE",
	// UNKNOWN is NULL for booleans; SQLite has no IS UNKNOWN.
	"unknown": "IS NULL",
}

// renderer accumulates bind arguments while the statement is built.
type renderer struct {
	d    dialect
	args []any
}

func (r *renderer) bind(v any) string {
	r.args = append(r.args, v)
	return r.d.placeholder(len(r.args))
}

// render builds a parameterized SELECT. Values are always bound, never
// interpolated; identifiers are validated by Query.Validate and quoted.
func render(d dialect, q *db.Query) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	r := &renderer{d: d}

	cols := make([]string, len(q.Columns))
	for i, c := range q.Columns {
		cols[i] = quoteIdent(c)
	}

	var conds []string
	if q.Or != nil {
		clauses := q.Or.Clauses()
		parts := make([]string, 0, len(clauses))
		for _, c := range clauses {
			s, err := r.clause(c)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, s)
		}
		conds = append(conds, "("+strings.Join(parts, " OR ")+")")
	}
	for _, c := range q.Where {
		s, err := r.clause(c)
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, s)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(q.Table))
	b.WriteString(" WHERE ")
	b.WriteString(strings.Join(conds, " AND "))

	if len(q.OrderBy) > 0 {
		parts := make([]string, len(q.OrderBy))
		for i, o := range q.OrderBy {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			parts[i] = quoteIdent(o.Column) + " " + dir
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(parts, ", "))
	}
	b.WriteString(" LIMIT ")
	b.WriteString(strconv.Itoa(q.Limit))

	return b.String(), r.args, nil
}

func (r *renderer) clause(c filter.Clause) (string, error) {
	col := quoteIdent(c.Column())
	op := c.Operator()

	if cmp, ok := comparisons[op]; ok {
		return col + " " + cmp + " " + r.bind(c.Value()), nil
	}

	switch op {
	case filter.ILike:
		return col + " " + r.d.ilike + " " + r.bind(c.Value()) + ` ESCAPE '\'`, nil
	case filter.Like:
		return col + " LIKE " + r.bind(c.Value()) + ` ESCAPE '\'`, nil
	case filter.In:
		vals := c.Values()
		marks := make([]string, len(vals))
		for i, v := range vals {
			marks[i] = r.bind(v)
		}
		return col + " IN (" + strings.Join(marks, ", ") + ")", nil
	case filter.Is:
		lit, ok := isLiterals[c.Value()]
		if !ok {
			return "", fmt.Errorf("%w: is %q", db.ErrInvalidQuery, c.Value())
		}
		return col + " " + lit, nil
	default:
		return "", fmt.Errorf("%w: operator %q", db.ErrInvalidQuery, op)
	}
}

// quoteIdent double-quotes each dot-separated part of an identifier.
func quoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + p + `"`
	}
	return strings.Join(parts, ".")
}
