package searchtypes

import (
	"context"
	"fmt"

	"github.com/rubiojr/wsearch/pkg/perm"
	"github.com/rubiojr/wsearch/pkg/search"
	"github.com/rubiojr/wsearch/pkg/storage"
)

func fieldRelation(_ context.Context, _ search.User, workspace search.Workspace) (search.Relation, error) {
	return search.From(`database_fields f
		JOIN database_tables t ON t.id = f.table_id
		JOIN applications d ON d.id = t.database_id
		JOIN workspaces w ON w.id = d.workspace_id`).
		Filter(search.Where("d.workspace_id = ?", workspace.ID)).
		Filter(search.Where("d.type = ?", storage.KindDatabase)).
		Filter(search.Where("f.trashed = 0 AND t.trashed = 0 AND d.trashed = 0 AND w.trashed = 0")).
		OrderBy("f.table_id", `f."order"`, "f.id").
		InWorkspace("d.workspace_id"), nil
}

// NewFieldType searches table fields by name and description.
func NewFieldType(deps search.Deps) *search.ModelType {
	return search.NewModelType(search.ModelConfig{
		Type:          "database_field",
		Name:          "Fields",
		Priority:      PriorityField,
		SearchFields:  []string{"f.name", "f.description"},
		Operation:     perm.ListFields,
		IDColumn:      "f.id",
		NameColumn:    "f.name",
		CreatedColumn: "f.created_on",
		UpdatedColumn: "f.updated_on",
		FTSTable:      "database_fields_fts",
		Base:          fieldRelation,
		Subtitle: func() search.Expr {
			return search.Raw("'Field in ' || d.name || ' / ' || t.name")
		},
		Payload: func() search.Expr {
			return search.Raw(`json_object(
				'workspace_id', d.workspace_id,
				'database_id', d.id,
				'table_id', t.id,
				'field_id', f.id,
				'description', f.description)`)
		},
		Attrs: func() search.Expr {
			return search.Raw(`json_object(
				'database_id', d.id,
				'database_name', d.name,
				'table_id', t.id,
				'table_name', t.name,
				'description', f.description)`)
		},
		Serialize: func(rec search.Record, _ search.User, workspace search.Workspace) *search.SearchResult {
			dbName, _ := rec.Attrs["database_name"].(string)
			tableName, _ := rec.Attrs["table_name"].(string)
			dbID, _ := search.PayloadInt64(rec.Attrs, "database_id")
			tableID, _ := search.PayloadInt64(rec.Attrs, "table_id")
			res := &search.SearchResult{
				Type:     "database_field",
				ID:       fmt.Sprint(rec.ID),
				Title:    rec.Name,
				Subtitle: search.StringPtr(dbName + " / " + tableName),
				Metadata: map[string]any{
					"workspace_id": workspace.ID,
					"database_id":  dbID,
					"table_id":     tableID,
					"field_id":     rec.ID,
				},
				CreatedOn: rec.CreatedOn,
				UpdatedOn: rec.UpdatedOn,
			}
			if d, ok := rec.Attrs["description"].(string); ok {
				res.Description = &d
			}
			return res
		},
	}, deps)
}
