package search

import (
	"fmt"
	"slices"
	"strings"
)

// Expr is a SQL fragment with its positional arguments.
type Expr struct {
	SQL  string
	Args []any
}

// Raw builds an expression from SQL text and its arguments.
func Raw(sql string, args ...any) Expr {
	return Expr{SQL: sql, Args: args}
}

// Value binds v as a single placeholder.
func Value(v any) Expr {
	return Expr{SQL: "?", Args: []any{v}}
}

// IsZero reports whether the expression is unset.
func (e Expr) IsZero() bool {
	return strings.TrimSpace(e.SQL) == ""
}

// Predicate is a boolean SQL expression. The empty predicate matches
// everything.
type Predicate struct {
	SQL  string
	Args []any
}

// Where builds a predicate.
func Where(sql string, args ...any) Predicate {
	return Predicate{SQL: sql, Args: args}
}

// Empty reports whether the predicate filters nothing.
func (p Predicate) Empty() bool {
	return strings.TrimSpace(p.SQL) == ""
}

// Or combines predicates with OR. Empty predicates are ignored.
func Or(preds ...Predicate) Predicate {
	return combine(" OR ", preds)
}

// And combines predicates with AND. Empty predicates are ignored.
func And(preds ...Predicate) Predicate {
	return combine(" AND ", preds)
}

func combine(op string, preds []Predicate) Predicate {
	var kept []Predicate
	for _, p := range preds {
		if !p.Empty() {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return Predicate{}
	case 1:
		return kept[0]
	}

	parts := make([]string, len(kept))
	var args []any
	for i, p := range kept {
		parts[i] = "(" + p.SQL + ")"
		args = append(args, p.Args...)
	}
	return Predicate{SQL: strings.Join(parts, op), Args: args}
}

type annotation struct {
	name string
	expr Expr
}

// Relation is an immutable description of a filtered set of entities: a FROM
// clause, its filters and a default ordering. Every method returns a modified
// copy.
type Relation struct {
	from            Expr
	where           []Predicate
	orderBy         []string
	annotations     []annotation
	workspaceColumn string
}

// From starts a relation. from is everything that goes after FROM, joins
// included.
func From(from string, args ...any) Relation {
	return Relation{from: Expr{SQL: from, Args: args}}
}

// Join appends a join clause to the FROM part.
func (r Relation) Join(clause string, args ...any) Relation {
	r.from = Expr{
		SQL:  r.from.SQL + " " + clause,
		Args: append(slices.Clip(r.from.Args), args...),
	}
	return r
}

// Filter adds a predicate. Empty predicates leave the relation unchanged.
func (r Relation) Filter(p Predicate) Relation {
	if p.Empty() {
		return r
	}
	r.where = append(slices.Clip(r.where), p)
	return r
}

// OrderBy replaces the default ordering.
func (r Relation) OrderBy(terms ...string) Relation {
	r.orderBy = slices.Clone(terms)
	return r
}

// Annotate adds a named constant or computed column to the relation.
func (r Relation) Annotate(name string, e Expr) Relation {
	r.annotations = append(slices.Clip(r.annotations), annotation{name: name, expr: e})
	return r
}

// Annotation returns the expression annotated under name.
func (r Relation) Annotation(name string) (Expr, bool) {
	for _, a := range r.annotations {
		if a.name == name {
			return a.expr, true
		}
	}
	return Expr{}, false
}

// InWorkspace records the column holding the owning workspace id of every
// entity of the relation. Permission checks filter on it.
func (r Relation) InWorkspace(column string) Relation {
	r.workspaceColumn = column
	return r
}

// WorkspaceColumn returns the column set with InWorkspace.
func (r Relation) WorkspaceColumn() string {
	return r.workspaceColumn
}

// IsZero reports whether the relation has no FROM clause.
func (r Relation) IsZero() bool {
	return strings.TrimSpace(r.from.SQL) == ""
}

// Select renders SELECT columns FROM ... WHERE ... ORDER BY ..., followed by
// the annotations as extra columns.
func (r Relation) Select(columns ...Expr) Expr {
	return r.render(columns, true, true)
}

// Subquery renders the relation selecting a single column, without ordering,
// suitable for "x IN (...)".
func (r Relation) Subquery(column string) Expr {
	return r.render([]Expr{{SQL: column}}, false, false)
}

func (r Relation) render(columns []Expr, ordered, annotated bool) Expr {
	var b strings.Builder
	var args []any

	b.WriteString("SELECT ")
	cols := make([]string, 0, len(columns)+len(r.annotations))
	for _, c := range columns {
		cols = append(cols, c.SQL)
		args = append(args, c.Args...)
	}
	if annotated {
		for _, a := range r.annotations {
			cols = append(cols, a.expr.SQL+" AS "+a.name)
			args = append(args, a.expr.Args...)
		}
	}
	b.WriteString(strings.Join(cols, ", "))

	b.WriteString(" FROM ")
	b.WriteString(r.from.SQL)
	args = append(args, r.from.Args...)

	if len(r.where) > 0 {
		b.WriteString(" WHERE ")
		for i, p := range r.where {
			if i > 0 {
				b.WriteString(" AND ")
			}
			b.WriteString("(" + p.SQL + ")")
			args = append(args, p.Args...)
		}
	}

	if ordered && len(r.orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(r.orderBy, ", "))
	}

	return Expr{SQL: b.String(), Args: args}
}

// ProjectionColumns is the canonical column list of a projection, in order.
const ProjectionColumns = "search_type, object_id, sort_key, rank, priority, title, subtitle, payload"

// Projection maps a relation onto the normalized row shape shared by every
// search type. Column types are fixed here, so two types can never disagree
// on them.
type Projection struct {
	Relation Relation
	Type     string
	Priority int

	ObjectID Expr
	SortKey  Expr
	Title    Expr

	// Optional. Unset Rank and Subtitle render as NULL, an unset Payload
	// as an empty JSON object.
	Rank     Expr
	Subtitle Expr
	Payload  Expr
}

// Validate reports the required columns the projection does not define.
func (p Projection) Validate() error {
	var missing []string
	if p.Type == "" {
		missing = append(missing, "search_type")
	}
	if p.ObjectID.IsZero() {
		missing = append(missing, "object_id")
	}
	if p.SortKey.IsZero() {
		missing = append(missing, "sort_key")
	}
	if p.Title.IsZero() {
		missing = append(missing, "title")
	}
	if p.Relation.IsZero() {
		missing = append(missing, "relation")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s missing %s", ErrIncompleteProjection, p.Type, strings.Join(missing, ", "))
	}
	return nil
}

// SQL renders the projection as a SELECT with the canonical columns and no
// LIMIT or OFFSET.
func (p Projection) SQL() Expr {
	orNull := func(e Expr) Expr {
		if e.IsZero() {
			return Expr{SQL: "NULL"}
		}
		return e
	}
	payload := Expr{SQL: "'{}'"}
	if !p.Payload.IsZero() {
		payload = Expr{SQL: "COALESCE(" + p.Payload.SQL + ", '{}')", Args: p.Payload.Args}
	}
	rank := orNull(p.Rank)
	subtitle := orNull(p.Subtitle)

	return p.Relation.render([]Expr{
		{SQL: "CAST(? AS TEXT) AS search_type", Args: []any{p.Type}},
		{SQL: "CAST(" + p.ObjectID.SQL + " AS TEXT) AS object_id", Args: p.ObjectID.Args},
		{SQL: "CAST(" + p.SortKey.SQL + " AS INTEGER) AS sort_key", Args: p.SortKey.Args},
		{SQL: "CAST(" + rank.SQL + " AS REAL) AS rank", Args: rank.Args},
		{SQL: fmt.Sprintf("%d AS priority", p.Priority)},
		{SQL: "CAST(" + p.Title.SQL + " AS TEXT) AS title", Args: p.Title.Args},
		{SQL: "CAST(" + subtitle.SQL + " AS TEXT) AS subtitle", Args: subtitle.Args},
		{SQL: payload.SQL + " AS payload", Args: payload.Args},
	}, false, false)
}

// EmptyProjection is a correctly shaped projection that yields no rows.
func EmptyProjection(typ string, priority int) Projection {
	return Projection{
		Relation: From("(SELECT 1 AS one) AS empty_rows").Filter(Where("0")),
		Type:     typ,
		Priority: priority,
		ObjectID: Raw("NULL"),
		SortKey:  Raw("0"),
		Title:    Raw("NULL"),
	}
}
