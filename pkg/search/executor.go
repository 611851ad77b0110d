package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Strategies accepted by NewExecutor.
const (
	StrategyUnion = "union"
	StrategyMerge = "merge"
)

// Executor runs the projections of a search and returns one ordered page.
// Projections that fail on their own are reported as TypeErrors; the error
// return is for failures of the search as a whole.
type Executor interface {
	Execute(ctx context.Context, db Querier, projections []Projection, limit, offset int) ([]Row, []TypeError, error)
}

// NewExecutor returns the executor for strategy. The empty string selects
// the union strategy.
func NewExecutor(strategy string) (Executor, error) {
	switch strategy {
	case "", StrategyUnion:
		return UnionExecutor{}, nil
	case StrategyMerge:
		return MergeExecutor{}, nil
	}
	return nil, fmt.Errorf("unknown search strategy %q", strategy)
}

// UnionExecutor runs every projection in a single UNION ALL statement,
// ordered and paginated by the database.
type UnionExecutor struct{}

func (UnionExecutor) Execute(ctx context.Context, db Querier, projections []Projection, limit, offset int) ([]Row, []TypeError, error) {
	if len(projections) == 0 {
		return nil, nil, nil
	}
	q := UnionSQL(projections, limit, offset)
	rows, err := queryRows(ctx, db, q)
	if err != nil {
		return nil, nil, fmt.Errorf("executing combined search: %w", err)
	}
	return rows, nil, nil
}

// UnionSQL renders the combined statement for projections.
func UnionSQL(projections []Projection, limit, offset int) Expr {
	arms := make([]string, 0, len(projections))
	var args []any
	for _, p := range projections {
		q := p.SQL()
		arms = append(arms, "SELECT "+ProjectionColumns+" FROM ("+q.SQL+")")
		args = append(args, q.Args...)
	}
	args = append(args, limit, offset)
	return Expr{
		SQL: "SELECT " + ProjectionColumns + " FROM (" + strings.Join(arms, " UNION ALL ") + ")" +
			" ORDER BY " + OrderClause + " LIMIT ? OFFSET ?",
		Args: args,
	}
}

// MergeExecutor runs one bounded statement per projection concurrently and
// merges the results in memory with Compare. The page is the same the union
// strategy returns.
type MergeExecutor struct{}

func (MergeExecutor) Execute(ctx context.Context, db Querier, projections []Projection, limit, offset int) ([]Row, []TypeError, error) {
	var (
		mu     sync.Mutex
		merged []Row
		failed []TypeError
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range projections {
		g.Go(func() error {
			q := p.SQL()
			bounded := Expr{
				SQL:  "SELECT " + ProjectionColumns + " FROM (" + q.SQL + ") ORDER BY " + OrderClause + " LIMIT ?",
				Args: append(slices.Clip(q.Args), offset+limit),
			}
			rows, err := queryRows(gctx, db, bounded)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				failed = append(failed, TypeError{Type: p.Type, Stage: StageQuery, Err: err})
				return nil
			}
			merged = append(merged, rows...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("executing search: %w", err)
	}

	slices.SortFunc(merged, Compare)
	slices.SortFunc(failed, func(a, b TypeError) int { return strings.Compare(a.Type, b.Type) })

	if offset >= len(merged) {
		return nil, failed, nil
	}
	end := min(offset+limit, len(merged))
	return merged[offset:end], failed, nil
}

// QueryProjection runs a single projection with the global ordering.
func QueryProjection(ctx context.Context, db Querier, p Projection, limit, offset int) ([]Row, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	q := p.SQL()
	return queryRows(ctx, db, Expr{
		SQL:  "SELECT " + ProjectionColumns + " FROM (" + q.SQL + ") ORDER BY " + OrderClause + " LIMIT ? OFFSET ?",
		Args: append(slices.Clip(q.Args), limit, offset),
	})
}

func queryRows(ctx context.Context, db Querier, q Expr) ([]Row, error) {
	rows, err := db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRow(rows *sql.Rows) (Row, error) {
	var (
		r        Row
		objectID sql.NullString
		sortKey  sql.NullInt64
		rank     sql.NullFloat64
		title    sql.NullString
		subtitle sql.NullString
		payload  sql.NullString
	)
	if err := rows.Scan(&r.SearchType, &objectID, &sortKey, &rank, &r.Priority, &title, &subtitle, &payload); err != nil {
		return Row{}, fmt.Errorf("scanning search row: %w", err)
	}

	r.ObjectID = objectID.String
	r.SortKey = sortKey.Int64
	r.Title = title.String
	if rank.Valid {
		v := rank.Float64
		r.Rank = &v
	}
	if subtitle.Valid {
		r.Subtitle = &subtitle.String
	}

	r.Payload = map[string]any{}
	if payload.Valid && payload.String != "" {
		if err := json.Unmarshal([]byte(payload.String), &r.Payload); err != nil {
			return Row{}, fmt.Errorf("decoding payload of %s %s: %w", r.SearchType, r.ObjectID, err)
		}
	}
	return r, nil
}
