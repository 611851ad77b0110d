package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rubiojr/wsearch/pkg/fulltext"
)

// ModelConfig describes a search type backed by a named entity table with
// id, name and timestamp columns.
type ModelConfig struct {
	Type         string
	Name         string
	Priority     int
	SearchFields []string
	// Operation is the permission checked on every entity of the relation.
	Operation string

	// Column expressions of the entity, qualified with the relation alias.
	IDColumn      string
	NameColumn    string
	CreatedColumn string
	UpdatedColumn string

	// FTSTable is the FTS5 index over the entity name, keyed by IDColumn.
	// When empty the type carries no relevance rank.
	FTSTable string

	// Base builds the relation of non-trashed entities in the workspace.
	Base func(ctx context.Context, user User, workspace Workspace) (Relation, error)

	// Optional overrides. Title defaults to the name column, Subtitle to the
	// type's display name, Payload to an empty JSON object and Attrs, the
	// extra attributes loaded by ExecuteSearch, to Payload.
	Title    func() Expr
	Subtitle func() Expr
	Payload  func() Expr
	Attrs    func() Expr

	// Serialize overrides SerializeResult.
	Serialize func(rec Record, user User, workspace Workspace) *SearchResult
}

// ModelType is the reusable SearchableItemType for named entities.
type ModelType struct {
	BaseType
	cfg  ModelConfig
	deps Deps
}

var _ SearchableItemType = (*ModelType)(nil)

func NewModelType(cfg ModelConfig, deps Deps) *ModelType {
	if cfg.IDColumn == "" {
		cfg.IDColumn = "id"
	}
	if cfg.NameColumn == "" {
		cfg.NameColumn = "name"
	}
	return &ModelType{
		BaseType: BaseType{
			TypeName:     cfg.Type,
			DisplayName:  cfg.Name,
			TypePriority: cfg.Priority,
			SearchFields: cfg.SearchFields,
		},
		cfg:  cfg,
		deps: deps,
	}
}

// Config returns the configuration the type was built with.
func (m *ModelType) Config() ModelConfig {
	return m.cfg
}

func (m *ModelType) BaseRelation(ctx context.Context, user User, workspace Workspace) (Relation, error) {
	if m.cfg.Base == nil {
		return Relation{}, fmt.Errorf("%s has no base relation", m.cfg.Type)
	}
	return m.cfg.Base(ctx, user, workspace)
}

func (m *ModelType) SearchRelation(ctx context.Context, user User, workspace Workspace, sc SearchContext) (Relation, error) {
	rel, err := m.BaseRelation(ctx, user, workspace)
	if err != nil {
		return Relation{}, fmt.Errorf("building base relation: %w", err)
	}
	if m.deps.Permissions != nil {
		rel, err = m.deps.Permissions.FilterRelation(ctx, user, m.cfg.Operation, rel, workspace)
		if err != nil {
			return Relation{}, fmt.Errorf("filtering by permissions: %w", err)
		}
	}
	return rel.Filter(m.SearchPredicate(sc.Query)).Annotate("search_type", Value(m.cfg.Type)), nil
}

func (m *ModelType) UnionProjection(ctx context.Context, user User, workspace Workspace, sc SearchContext) (Projection, error) {
	rel, err := m.SearchRelation(ctx, user, workspace, sc)
	if err != nil {
		return Projection{}, err
	}

	rank := Raw("0.0")
	if m.cfg.FTSTable != "" {
		if match := fulltext.Websearch(sc.Query); match != "" {
			t := m.cfg.FTSTable
			rel = rel.Join(fmt.Sprintf(
				"LEFT JOIN (SELECT rowid AS fts_rowid, -bm25(%s) AS fts_score FROM %s WHERE %s MATCH ?) AS fts ON fts.fts_rowid = %s",
				t, t, t, m.cfg.IDColumn), match)
			rank = Raw("COALESCE(fts.fts_score, 0.0)")
		}
	} else {
		rank = Expr{}
	}

	return Projection{
		Relation: rel,
		Type:     m.cfg.Type,
		Priority: m.cfg.Priority,
		ObjectID: Raw(m.cfg.IDColumn),
		SortKey:  Raw(m.cfg.IDColumn),
		Rank:     rank,
		Title:    m.title(),
		Subtitle: m.subtitle(),
		Payload:  m.payload(),
	}, nil
}

func (m *ModelType) title() Expr {
	if m.cfg.Title != nil {
		return m.cfg.Title()
	}
	return Raw(m.cfg.NameColumn)
}

func (m *ModelType) subtitle() Expr {
	if m.cfg.Subtitle != nil {
		return m.cfg.Subtitle()
	}
	return Value(m.cfg.Name)
}

func (m *ModelType) payload() Expr {
	if m.cfg.Payload != nil {
		return m.cfg.Payload()
	}
	return Raw("json_object()")
}

func (m *ModelType) attrs() Expr {
	if m.cfg.Attrs != nil {
		return m.cfg.Attrs()
	}
	return m.payload()
}

func (m *ModelType) SerializeResult(_ context.Context, rec Record, user User, workspace Workspace) (*SearchResult, error) {
	if m.cfg.Serialize != nil {
		return m.cfg.Serialize(rec, user, workspace), nil
	}
	return &SearchResult{
		Type:      m.cfg.Type,
		ID:        fmt.Sprint(rec.ID),
		Title:     rec.Name,
		Subtitle:  StringPtr(m.cfg.Name),
		Metadata:  rec.Attrs,
		CreatedOn: rec.CreatedOn,
		UpdatedOn: rec.UpdatedOn,
	}, nil
}

func (m *ModelType) ExecuteSearch(ctx context.Context, user User, workspace Workspace, sc SearchContext) ([]SearchResult, error) {
	rel, err := m.SearchRelation(ctx, user, workspace, sc)
	if err != nil {
		return nil, err
	}

	nullable := func(col string) Expr {
		if col == "" {
			return Raw("NULL")
		}
		return Raw(col)
	}
	q := rel.Select(
		Raw(m.cfg.IDColumn),
		Raw(m.cfg.NameColumn),
		nullable(m.cfg.CreatedColumn),
		nullable(m.cfg.UpdatedColumn),
		m.attrs(),
	)
	q.SQL += " LIMIT ? OFFSET ?"
	q.Args = append(q.Args, sc.Limit, sc.Offset)

	rows, err := m.deps.DB.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", m.cfg.Type, err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			rec       Record
			name      sql.NullString
			created   sql.NullString
			updated   sql.NullString
			attrs     sql.NullString
			typeLabel sql.NullString
		)
		if err := rows.Scan(&rec.ID, &name, &created, &updated, &attrs, &typeLabel); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", m.cfg.Type, err)
		}
		rec.Name = name.String
		if created.Valid {
			rec.CreatedOn = &created.String
		}
		if updated.Valid {
			rec.UpdatedOn = &updated.String
		}
		rec.Attrs = map[string]any{}
		if attrs.Valid && attrs.String != "" {
			if err := json.Unmarshal([]byte(attrs.String), &rec.Attrs); err != nil {
				return nil, fmt.Errorf("decoding %s %d attributes: %w", m.cfg.Type, rec.ID, err)
			}
		}

		res, err := m.SerializeResult(ctx, rec, user, workspace)
		if err != nil {
			return nil, err
		}
		if res != nil {
			results = append(results, *res)
		}
	}
	return results, rows.Err()
}
