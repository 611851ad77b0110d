package search

import (
	"context"
	"database/sql"
	"fmt"
)

// SearchableItemType is implemented by every kind of content that takes part
// in workspace search.
type SearchableItemType interface {
	// Type is the unique discriminator, e.g. "database_table".
	Type() string
	// Name is the human readable name, e.g. "Tables".
	Name() string
	// Priority orders types in the result list, lower first.
	Priority() int

	// BaseRelation is every entity of the type in the workspace that is not
	// trashed, before permissions and text filtering.
	BaseRelation(ctx context.Context, user User, workspace Workspace) (Relation, error)
	// SearchPredicate matches the query against the type's search fields.
	SearchPredicate(query string) Predicate
	// SearchRelation applies permissions and the text predicate to the base
	// relation.
	SearchRelation(ctx context.Context, user User, workspace Workspace, sc SearchContext) (Relation, error)
	// UnionProjection maps the search relation onto the normalized row shape.
	UnionProjection(ctx context.Context, user User, workspace Workspace, sc SearchContext) (Projection, error)
	// Postprocess turns the type's rows of a page into results. Rows missing
	// from the output are dropped from the page.
	Postprocess(ctx context.Context, rows []Row) ([]SearchResult, error)
	// SerializeResult converts a concrete entity loaded by ExecuteSearch.
	SerializeResult(ctx context.Context, rec Record, user User, workspace Workspace) (*SearchResult, error)
	// ExecuteSearch runs a search limited to this type.
	ExecuteSearch(ctx context.Context, user User, workspace Workspace, sc SearchContext) ([]SearchResult, error)
}

// Permissions decides what a user may see.
type Permissions interface {
	// FilterRelation narrows rel to the entities user may access with
	// operation.
	FilterRelation(ctx context.Context, user User, operation string, rel Relation, workspace Workspace) (Relation, error)
	// CheckWorkspace fails with ErrUserNotInWorkspace when user cannot
	// perform operation on the workspace.
	CheckWorkspace(ctx context.Context, user User, workspace Workspace, operation string) error
}

// Querier is the subset of *sql.DB used by search.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Deps are the collaborators every search type is built with.
type Deps struct {
	DB          Querier
	Permissions Permissions
}

// BaseType holds the identity of a search type and the behaviour shared by
// all of them. Embed it and implement the rest of SearchableItemType.
type BaseType struct {
	TypeName     string
	DisplayName  string
	TypePriority int
	SearchFields []string
}

func (b BaseType) Type() string  { return b.TypeName }
func (b BaseType) Name() string  { return b.DisplayName }
func (b BaseType) Priority() int { return b.TypePriority }

// SearchPredicate ORs a case-insensitive containment test over the search
// fields. No fields, or an empty query, yields the empty predicate.
func (b BaseType) SearchPredicate(query string) Predicate {
	if query == "" {
		return Predicate{}
	}
	preds := make([]Predicate, 0, len(b.SearchFields))
	for _, f := range b.SearchFields {
		preds = append(preds, IContains(f, query))
	}
	return Or(preds...)
}

// Postprocess applies DefaultPostprocess.
func (b BaseType) Postprocess(_ context.Context, rows []Row) ([]SearchResult, error) {
	return DefaultPostprocess(rows), nil
}

// IContains matches rows whose column contains needle, ignoring case. It relies
// on the icontains SQL function registered by the storage layer.
func IContains(column, needle string) Predicate {
	return Where(fmt.Sprintf("icontains(%s, ?)", column), needle)
}

// DefaultPostprocess maps rows one to one. The title falls back to the object
// id; description and timestamps are read from the payload, which also becomes
// the metadata.
func DefaultPostprocess(rows []Row) []SearchResult {
	results := make([]SearchResult, 0, len(rows))
	for _, r := range rows {
		title := r.Title
		if title == "" {
			title = r.ObjectID
		}
		payload := r.Payload
		if payload == nil {
			payload = map[string]any{}
		}
		results = append(results, SearchResult{
			Type:        r.SearchType,
			ID:          r.ObjectID,
			Title:       title,
			Subtitle:    r.Subtitle,
			Description: payloadString(payload, "description"),
			Metadata:    payload,
			CreatedOn:   payloadString(payload, "created_on"),
			UpdatedOn:   payloadString(payload, "updated_on"),
		})
	}
	return results
}
