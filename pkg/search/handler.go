package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rubiojr/wsearch/pkg/log"
)

// OperationReadWorkspace is the permission checked before searching a
// workspace.
const OperationReadWorkspace = "workspace.read"

// Handler aggregates every registered type into one ordered, paginated result
// list.
type Handler struct {
	db          Querier
	registry    *Registry
	executor    Executor
	permissions Permissions
	validate    bool
	timeout     time.Duration
	logger      *log.Logger
}

type Option func(*Handler)

// WithExecutor selects the execution strategy. The default runs a single
// UNION ALL statement.
func WithExecutor(e Executor) Option {
	return func(h *Handler) { h.executor = e }
}

// WithValidation prepares every projection before running the combined
// statement, so a type referencing a missing column is skipped instead of
// failing the search.
func WithValidation(enabled bool) Option {
	return func(h *Handler) { h.validate = enabled }
}

// WithTimeout bounds each search. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) { h.timeout = d }
}

// WithPermissions makes SearchWorkspace check workspace access before
// searching.
func WithPermissions(p Permissions) Option {
	return func(h *Handler) { h.permissions = p }
}

func NewHandler(db Querier, registry *Registry, opts ...Option) *Handler {
	h := &Handler{
		db:       db,
		registry: registry,
		executor: UnionExecutor{},
		validate: true,
		logger:   log.ForService("search"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Registry returns the registry the handler searches.
func (h *Handler) Registry() *Registry {
	return h.registry
}

// SearchWorkspace searches every registered type of the workspace and returns
// at most limit results, starting at offset, plus whether more exist.
func (h *Handler) SearchWorkspace(ctx context.Context, user User, workspace Workspace, query string, limit, offset int) (*Response, error) {
	if h.registry.Len() == 0 {
		return nil, ErrNoTypesRegistered
	}
	if limit <= 0 {
		return &Response{Results: []SearchResult{}}, nil
	}
	if offset < 0 {
		offset = 0
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	if h.permissions != nil {
		if err := h.permissions.CheckWorkspace(ctx, user, workspace, OperationReadWorkspace); err != nil {
			return nil, err
		}
	}

	searchLimit := limit + 1
	sc := SearchContext{Query: query, Limit: searchLimit, Offset: offset}
	logger := h.logger.With("workspace", workspace.ID, "user", user.ID)

	var degraded []TypeError
	var projections []Projection
	for _, t := range h.registry.All() {
		p, err := h.projection(ctx, t, user, workspace, sc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("searching workspace %d: %w", workspace.ID, ctx.Err())
			}
			logger.With("type", t.Type(), "err", err).Errorf("workspace search failed building projection")
			degraded = append(degraded, TypeError{Type: t.Type(), Stage: StageProjection, Err: err})
			continue
		}
		projections = append(projections, p)
	}

	if len(projections) == 0 {
		return &Response{Results: []SearchResult{}, Degraded: degraded}, nil
	}

	page, failed, err := h.executor.Execute(ctx, h.db, projections, searchLimit, offset)
	if err != nil {
		return nil, fmt.Errorf("searching workspace %d: %w", workspace.ID, err)
	}
	for _, te := range failed {
		logger.With("type", te.Type, "err", te.Err).Errorf("workspace search failed running query")
	}
	degraded = append(degraded, failed...)

	hasMore := len(page) == searchLimit
	logger.Debugf("query %q matched %d rows from %d types (has_more=%t)", query, len(page), len(projections), hasMore)

	results, pfailed := h.postprocess(ctx, page, logger)
	degraded = append(degraded, pfailed...)

	if len(results) > limit {
		results = results[:limit]
	}

	return &Response{Results: results, HasMore: hasMore, Degraded: degraded}, nil
}

func (h *Handler) projection(ctx context.Context, t SearchableItemType, user User, workspace Workspace, sc SearchContext) (Projection, error) {
	p, err := t.UnionProjection(ctx, user, workspace, sc)
	if err != nil {
		return Projection{}, err
	}
	if p.Type == "" {
		p.Type = t.Type()
	}
	if err := p.Validate(); err != nil {
		return Projection{}, err
	}
	if h.validate {
		q := p.SQL()
		stmt, err := h.db.PrepareContext(ctx, q.SQL)
		if err != nil {
			return Projection{}, fmt.Errorf("preparing projection: %w", err)
		}
		if err := stmt.Close(); err != nil {
			h.logger.Warnf("failed to close statement: %v", err)
		}
	}
	return p, nil
}

type resultKey struct {
	typ string
	id  string
}

// postprocess groups the page by type, lets each type build its results and
// reassembles them in page order. Rows a type did not return are dropped and
// each result is placed once.
func (h *Handler) postprocess(ctx context.Context, page []Row, logger *log.Logger) ([]SearchResult, []TypeError) {
	var order []string
	groups := make(map[string][]Row)
	for _, r := range page {
		if _, ok := groups[r.SearchType]; !ok {
			order = append(order, r.SearchType)
		}
		groups[r.SearchType] = append(groups[r.SearchType], r)
	}

	var failed []TypeError
	byKey := make(map[resultKey]SearchResult, len(page))
	for _, typ := range order {
		results, err := h.postprocessGroup(ctx, typ, groups[typ])
		if err != nil {
			logger.With("type", typ, "err", err).Errorf("workspace search failed postprocessing results")
			failed = append(failed, TypeError{Type: typ, Stage: StagePostprocess, Err: err})
			continue
		}
		for _, res := range results {
			byKey[resultKey{typ: typ, id: res.ID}] = res
		}
	}

	results := make([]SearchResult, 0, len(page))
	for _, r := range page {
		key := resultKey{typ: r.SearchType, id: r.ObjectID}
		if res, ok := byKey[key]; ok {
			results = append(results, res)
			delete(byKey, key)
		}
	}
	return results, failed
}

func (h *Handler) postprocessGroup(ctx context.Context, typ string, rows []Row) (results []SearchResult, err error) {
	t, err := h.registry.Get(typ)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("postprocess panicked: %v", r)
		}
	}()
	return t.Postprocess(ctx, rows)
}

// SearchType runs the type-scoped search of a single registered type.
func (h *Handler) SearchType(ctx context.Context, user User, workspace Workspace, typeName, query string, limit, offset int) ([]SearchResult, error) {
	t, err := h.registry.Get(typeName)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []SearchResult{}, nil
	}
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	if h.permissions != nil {
		if err := h.permissions.CheckWorkspace(ctx, user, workspace, OperationReadWorkspace); err != nil {
			return nil, err
		}
	}
	results, err := t.ExecuteSearch(ctx, user, workspace, SearchContext{Query: query, Limit: limit, Offset: max(offset, 0)})
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", typeName, err)
	}
	return results, nil
}

// IsDegraded reports whether some types were left out of the response.
func (r *Response) IsDegraded() bool {
	return r != nil && len(r.Degraded) > 0
}

// DegradedError joins the per-type failures of the response, or returns nil.
func (r *Response) DegradedError() error {
	if !r.IsDegraded() {
		return nil
	}
	errs := make([]error, len(r.Degraded))
	for i, te := range r.Degraded {
		errs[i] = te
	}
	return errors.Join(errs...)
}
