package store

import (
	"fmt"
	"iter"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// QueryOption narrows or orders a repository query. Column names may be
// given as database columns or Go field names.
type QueryOption func(*query)

type condition struct {
	column string
	op     string
	args   []any
}

type query struct {
	conditions      []condition
	likeTerm        string
	likeColumns     []string
	order           []clause.OrderByColumn
	orderColumns    []string
	limit           int
	includeArchived bool
}

var comparisonOps = map[string]struct{}{
	"=": {}, "!=": {}, "<>": {}, "<": {}, "<=": {}, ">": {}, ">=": {},
}

// Where filters on column op value, op being one of = != <> < <= > >=.
func Where(column, op string, value any) QueryOption {
	return func(q *query) {
		q.conditions = append(q.conditions, condition{column: column, op: op, args: []any{value}})
	}
}

// Between keeps rows whose column lies in [lo, hi].
func Between(column string, lo, hi any) QueryOption {
	return func(q *query) {
		q.conditions = append(q.conditions, condition{column: column, op: "between", args: []any{lo, hi}})
	}
}

// Like is a case-insensitive substring match of term against any of columns.
func Like(term string, columns ...string) QueryOption {
	return func(q *query) {
		q.likeTerm = term
		q.likeColumns = append(q.likeColumns, columns...)
	}
}

func OrderBy(column string, desc bool) QueryOption {
	return func(q *query) {
		q.orderColumns = append(q.orderColumns, column)
		q.order = append(q.order, clause.OrderByColumn{Desc: desc})
	}
}

func Limit(n int) QueryOption {
	return func(q *query) {
		q.limit = n
	}
}

// IncludeArchived lifts the default filter that hides soft-deleted rows.
func IncludeArchived() QueryOption {
	return func(q *query) {
		q.includeArchived = true
	}
}

func buildQuery(opts []QueryOption) *query {
	q := &query{}
	for _, opt := range opts {
		if opt != nil {
			opt(q)
		}
	}
	return q
}

func lookupColumn(sch *schema.Schema, name string) (string, error) {
	field := sch.LookUpField(strings.TrimSpace(name))
	if field == nil || field.DBName == "" {
		return "", invalid("query", fmt.Sprintf("unknown column %q", name))
	}
	return field.DBName, nil
}

// apply translates q into clauses on conn after checking every column
// against the model schema.
func (q *query) apply(conn *gorm.DB, sch *schema.Schema) (*gorm.DB, error) {
	conn, err := q.applyFilters(conn, sch)
	if err != nil {
		return nil, err
	}

	if len(q.order) == 0 {
		conn = conn.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}})
	}
	for idx, name := range q.orderColumns {
		column, err := lookupColumn(sch, name)
		if err != nil {
			return nil, err
		}
		order := q.order[idx]
		order.Column = clause.Column{Name: column}
		conn = conn.Order(order)
	}

	if q.limit > 0 {
		conn = conn.Limit(q.limit)
	}
	return conn, nil
}

func (q *query) applyFilters(conn *gorm.DB, sch *schema.Schema) (*gorm.DB, error) {
	for _, cond := range q.conditions {
		column, err := lookupColumn(sch, cond.column)
		if err != nil {
			return nil, err
		}
		if cond.op == "between" {
			conn = conn.Where(fmt.Sprintf("%s BETWEEN ? AND ?", column), cond.args...)
			continue
		}
		if _, ok := comparisonOps[cond.op]; !ok {
			return nil, invalid("query", fmt.Sprintf("unsupported operator %q", cond.op))
		}
		conn = conn.Where(fmt.Sprintf("%s %s ?", column, cond.op), cond.args...)
	}

	if term := strings.TrimSpace(q.likeTerm); term != "" && len(q.likeColumns) > 0 {
		pattern := "%" + strings.ToLower(term) + "%"
		parts := make([]string, 0, len(q.likeColumns))
		args := make([]any, 0, len(q.likeColumns))
		for _, name := range q.likeColumns {
			column, err := lookupColumn(sch, name)
			if err != nil {
				return nil, err
			}
			parts = append(parts, fmt.Sprintf("LOWER(%s) LIKE ?", column))
			args = append(args, pattern)
		}
		conn = conn.Where(strings.Join(parts, " OR "), args...)
	}
	return conn, nil
}

// Collect drains seq, stopping at the first error.
func Collect[T any](seq iter.Seq2[*T, error]) ([]*T, error) {
	var out []*T
	for item, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// Filter keeps the items of seq for which keep returns true. Errors pass
// through unfiltered.
func Filter[T any](seq iter.Seq2[*T, error], keep func(*T) bool) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		for item, err := range seq {
			if err != nil {
				yield(nil, err)
				return
			}
			if keep(item) && !yield(item, nil) {
				return
			}
		}
	}
}
