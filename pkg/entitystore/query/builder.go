// Package query assembles dynamic filter combinations into parameterized SQL
// in a single step. Callers compose explicit select/join/where fragment lists
// instead of concatenating SQL text; values travel as bound arguments.
package query

import (
	"fmt"
	"strings"
)

// Clause is one WHERE fragment with its bound arguments.
type Clause struct {
	Expr string
	Args []interface{}
}

// Where builds a Clause.
func Where(expr string, args ...interface{}) Clause {
	return Clause{Expr: expr, Args: args}
}

// Options is the option set accepted by the generic entity search. Producers
// such as the relationship filter merge their fragments into it.
type Options struct {
	Selects []string
	Joins   []string
	Wheres  []Clause
	GroupBy string
	OrderBy string
	Limit   int
	Offset  int

	// IncludeDisabled lifts the default enabled-only filter.
	IncludeDisabled bool
}

// Filter is a reusable join/where fragment pair produced by a filter builder.
// The zero value is a no-op filter.
type Filter struct {
	Joins  []string
	Wheres []Clause
}

// Empty reports whether the filter contributes nothing.
func (f Filter) Empty() bool {
	return len(f.Joins) == 0 && len(f.Wheres) == 0
}

// Merge folds a filter's fragments into the option set, along with any extra
// select expressions the consumer needs.
func (o *Options) Merge(f Filter, selects ...string) {
	o.Joins = append(o.Joins, f.Joins...)
	o.Wheres = append(o.Wheres, f.Wheres...)
	o.Selects = append(o.Selects, selects...)
}

// RelationshipFilter returns the join and where fragments for constraining an
// entity query by relationship. column is the entity column the counterpart
// joins against, in table.column form (e.g. "e.guid"). A zero filter is
// returned when neither a relationship name nor a counterpart GUID is given.
//
// Forward direction ("entities X is related to"): the subject sits in
// guid_one, so the join lands on guid_two and a counterpart constraint binds
// guid_one. Inverse swaps both.
func RelationshipFilter(column, relationship string, counterpartGUID int64, inverse bool) Filter {
	if relationship == "" && counterpartGUID == 0 {
		return Filter{}
	}

	var f Filter
	if inverse {
		f.Joins = append(f.Joins, fmt.Sprintf("JOIN entity_relationships r ON r.guid_one = %s", column))
	} else {
		f.Joins = append(f.Joins, fmt.Sprintf("JOIN entity_relationships r ON r.guid_two = %s", column))
	}

	if relationship != "" {
		f.Wheres = append(f.Wheres, Where("r.relationship = ?", relationship))
	}

	if counterpartGUID != 0 {
		if inverse {
			f.Wheres = append(f.Wheres, Where("r.guid_two = ?", counterpartGUID))
		} else {
			f.Wheres = append(f.Wheres, Where("r.guid_one = ?", counterpartGUID))
		}
	}

	return f
}

// BuildSelect assembles the option set into one parameterized SELECT over
// from, returning the statement and its bound arguments. columns is the base
// select list; option selects are appended after it.
func BuildSelect(columns, from string, o Options) (string, []interface{}) {
	var sb strings.Builder
	var args []interface{}

	sb.WriteString("SELECT ")
	sb.WriteString(columns)
	for _, s := range o.Selects {
		sb.WriteString(", ")
		sb.WriteString(s)
	}
	sb.WriteString(" FROM ")
	sb.WriteString(from)

	for _, j := range o.Joins {
		sb.WriteString(" ")
		sb.WriteString(j)
	}

	args = writeWheres(&sb, o.Wheres, args)

	if o.GroupBy != "" {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(o.GroupBy)
	}
	if o.OrderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(o.OrderBy)
	}
	if o.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", o.Limit)
	}
	if o.Offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", o.Offset)
	}

	return sb.String(), args
}

// BuildCount assembles the option set into a COUNT statement over from,
// ignoring ordering and pagination.
func BuildCount(from string, o Options) (string, []interface{}) {
	var sb strings.Builder
	var args []interface{}

	sb.WriteString("SELECT COUNT(*) FROM ")
	sb.WriteString(from)
	for _, j := range o.Joins {
		sb.WriteString(" ")
		sb.WriteString(j)
	}
	args = writeWheres(&sb, o.Wheres, args)

	return sb.String(), args
}

func writeWheres(sb *strings.Builder, wheres []Clause, args []interface{}) []interface{} {
	for i, w := range wheres {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString("(")
		sb.WriteString(w.Expr)
		sb.WriteString(")")
		args = append(args, w.Args...)
	}
	return args
}
