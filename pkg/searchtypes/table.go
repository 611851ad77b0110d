package searchtypes

import (
	"context"
	"fmt"

	"github.com/rubiojr/wsearch/pkg/perm"
	"github.com/rubiojr/wsearch/pkg/search"
	"github.com/rubiojr/wsearch/pkg/storage"
)

func tableRelation(_ context.Context, _ search.User, workspace search.Workspace) (search.Relation, error) {
	return search.From("database_tables t JOIN applications d ON d.id = t.database_id JOIN workspaces w ON w.id = d.workspace_id").
		Filter(search.Where("d.workspace_id = ?", workspace.ID)).
		Filter(search.Where("d.type = ?", storage.KindDatabase)).
		Filter(search.Where("t.trashed = 0 AND d.trashed = 0 AND w.trashed = 0")).
		OrderBy(`t."order"`, "t.id").
		InWorkspace("d.workspace_id"), nil
}

// NewTableType searches database tables by name.
func NewTableType(deps search.Deps) *search.ModelType {
	return search.NewModelType(search.ModelConfig{
		Type:          "database_table",
		Name:          "Tables",
		Priority:      PriorityTable,
		SearchFields:  []string{"t.name"},
		Operation:     perm.ReadTable,
		IDColumn:      "t.id",
		NameColumn:    "t.name",
		CreatedColumn: "t.created_on",
		UpdatedColumn: "t.updated_on",
		FTSTable:      "database_tables_fts",
		Base:          tableRelation,
		Subtitle: func() search.Expr {
			return search.Raw("'Table in ' || d.name")
		},
		Payload: func() search.Expr {
			return search.Raw(`json_object(
				'title', t.name,
				'subtitle', 'Table in ' || d.name,
				'workspace_id', d.workspace_id,
				'database_id', d.id,
				'table_id', t.id,
				'table_name', t.name,
				'database_name', d.name)`)
		},
		Serialize: func(rec search.Record, _ search.User, workspace search.Workspace) *search.SearchResult {
			dbName, _ := rec.Attrs["database_name"].(string)
			dbID, _ := search.PayloadInt64(rec.Attrs, "database_id")
			return &search.SearchResult{
				Type:     "database_table",
				ID:       fmt.Sprint(rec.ID),
				Title:    rec.Name,
				Subtitle: search.StringPtr("Table in " + dbName),
				Metadata: map[string]any{
					"workspace_id":  workspace.ID,
					"database_id":   dbID,
					"table_id":      rec.ID,
					"table_name":    rec.Name,
					"database_name": dbName,
				},
				CreatedOn: rec.CreatedOn,
				UpdatedOn: rec.UpdatedOn,
			}
		},
	}, deps)
}
