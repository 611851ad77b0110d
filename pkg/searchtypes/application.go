// Package searchtypes holds the content types searched in a workspace:
// applications of every kind, database tables, fields and rows.
package searchtypes

import (
	"context"
	"fmt"

	"github.com/rubiojr/wsearch/pkg/perm"
	"github.com/rubiojr/wsearch/pkg/search"
	"github.com/rubiojr/wsearch/pkg/storage"
)

// Type priorities. Lower values are listed first.
const (
	PriorityDatabase    = 1
	PriorityTable       = 2
	PriorityBuilder     = 2
	PriorityDashboard   = 3
	PriorityAutomation  = 4
	PriorityField       = 6
	PriorityRow         = 7
	PriorityApplication = 10
)

// applicationKind describes one kind of application sharing the
// applications table.
type applicationKind struct {
	kind     string // applications.type, empty for every kind
	typeName string
	name     string
	priority int
	idKey    string // metadata key holding the application id
}

var (
	kindApplication = applicationKind{"", "application", "Applications", PriorityApplication, "application_id"}
	kindDatabase    = applicationKind{storage.KindDatabase, "database", "Database", PriorityDatabase, "database_id"}
	kindBuilder     = applicationKind{storage.KindBuilder, "builder", "Builder", PriorityBuilder, "builder_id"}
	kindDashboard   = applicationKind{storage.KindDashboard, "dashboard", "Dashboard", PriorityDashboard, "dashboard_id"}
	kindAutomation  = applicationKind{storage.KindAutomation, "automation", "Automation", PriorityAutomation, "automation_id"}
)

func applicationRelation(kind string) func(context.Context, search.User, search.Workspace) (search.Relation, error) {
	return func(_ context.Context, _ search.User, workspace search.Workspace) (search.Relation, error) {
		rel := search.From("applications a JOIN workspaces w ON w.id = a.workspace_id").
			Filter(search.Where("a.workspace_id = ?", workspace.ID)).
			Filter(search.Where("a.trashed = 0 AND w.trashed = 0")).
			OrderBy(`a."order"`, "a.id").
			InWorkspace("a.workspace_id")
		if kind != "" {
			rel = rel.Filter(search.Where("a.type = ?", kind))
		}
		return rel, nil
	}
}

func newApplicationType(k applicationKind, deps search.Deps) *search.ModelType {
	payload := func() search.Expr {
		return search.Raw(fmt.Sprintf(
			"json_object('workspace_id', a.workspace_id, 'workspace_name', w.name, '%s', a.id, 'created_on', a.created_on, 'updated_on', a.updated_on)",
			k.idKey))
	}
	return search.NewModelType(search.ModelConfig{
		Type:          k.typeName,
		Name:          k.name,
		Priority:      k.priority,
		SearchFields:  []string{"a.name"},
		Operation:     perm.ReadApplication,
		IDColumn:      "a.id",
		NameColumn:    "a.name",
		CreatedColumn: "a.created_on",
		UpdatedColumn: "a.updated_on",
		FTSTable:      "applications_fts",
		Base:          applicationRelation(k.kind),
		Payload:       payload,
		Serialize: func(rec search.Record, _ search.User, workspace search.Workspace) *search.SearchResult {
			return &search.SearchResult{
				Type:     k.typeName,
				ID:       fmt.Sprint(rec.ID),
				Title:    rec.Name,
				Subtitle: search.StringPtr(k.name),
				Metadata: map[string]any{
					"workspace_id":   workspace.ID,
					"workspace_name": workspace.Name,
					k.idKey:          rec.ID,
				},
				CreatedOn: rec.CreatedOn,
				UpdatedOn: rec.UpdatedOn,
			}
		},
	}, deps)
}

// NewApplicationType searches applications of every kind.
func NewApplicationType(deps search.Deps) *search.ModelType {
	return newApplicationType(kindApplication, deps)
}

// NewDatabaseType searches database applications.
func NewDatabaseType(deps search.Deps) *search.ModelType {
	return newApplicationType(kindDatabase, deps)
}

// NewBuilderType searches application builders.
func NewBuilderType(deps search.Deps) *search.ModelType {
	return newApplicationType(kindBuilder, deps)
}

// NewDashboardType searches dashboards.
func NewDashboardType(deps search.Deps) *search.ModelType {
	return newApplicationType(kindDashboard, deps)
}

// NewAutomationType searches automations.
func NewAutomationType(deps search.Deps) *search.ModelType {
	return newApplicationType(kindAutomation, deps)
}
