package searchtypes

import (
	"context"
	"fmt"
	"strings"

	"github.com/rubiojr/wsearch/pkg/fulltext"
	"github.com/rubiojr/wsearch/pkg/perm"
	"github.com/rubiojr/wsearch/pkg/search"
	"github.com/rubiojr/wsearch/pkg/storage"
)

// RowType searches the cell values of every visible table. A row matching in
// several fields is returned once, through its best ranked field.
type RowType struct {
	search.BaseType
	deps   search.Deps
	tables search.SearchableItemType
	fields search.SearchableItemType
}

var _ search.SearchableItemType = (*RowType)(nil)

// NewRowType builds the row type. Visibility of tables and fields is taken
// from the given types.
func NewRowType(deps search.Deps, tables, fields search.SearchableItemType) *RowType {
	return &RowType{
		BaseType: search.BaseType{
			TypeName:     "database_row",
			DisplayName:  "Rows",
			TypePriority: PriorityRow,
		},
		deps:   deps,
		tables: tables,
		fields: fields,
	}
}

func (t *RowType) BaseRelation(_ context.Context, _ search.User, workspace search.Workspace) (search.Relation, error) {
	return search.From(`database_rows r
		JOIN database_tables t ON t.id = r.table_id
		JOIN applications d ON d.id = t.database_id
		JOIN workspaces w ON w.id = d.workspace_id`).
		Filter(search.Where("d.workspace_id = ?", workspace.ID)).
		Filter(search.Where("d.type = ?", storage.KindDatabase)).
		Filter(search.Where("r.trashed = 0 AND t.trashed = 0 AND d.trashed = 0 AND w.trashed = 0")).
		OrderBy("r.table_id", "r.id").
		InWorkspace("d.workspace_id"), nil
}

// SearchPredicate matches rows with at least one cell matching the query.
func (t *RowType) SearchPredicate(query string) search.Predicate {
	if strings.TrimSpace(query) == "" {
		return search.Predicate{}
	}
	match := fulltext.Websearch(query)
	if match == "" {
		return search.Where("0")
	}
	return search.Where(`r.id IN (
		SELECT c.row_id FROM database_cells_fts
		JOIN database_cells c ON c.id = database_cells_fts.rowid
		WHERE database_cells_fts MATCH ?)`, match)
}

func (t *RowType) SearchRelation(ctx context.Context, user search.User, workspace search.Workspace, sc search.SearchContext) (search.Relation, error) {
	rel, err := t.BaseRelation(ctx, user, workspace)
	if err != nil {
		return search.Relation{}, err
	}
	if t.deps.Permissions != nil {
		rel, err = t.deps.Permissions.FilterRelation(ctx, user, perm.ListRows, rel, workspace)
		if err != nil {
			return search.Relation{}, fmt.Errorf("filtering by permissions: %w", err)
		}
	}
	return rel.Filter(t.SearchPredicate(sc.Query)).Annotate("search_type", search.Value(t.TypeName)), nil
}

// UnionProjection ranks every matching cell with bm25 and keeps the best cell
// per row. Cells of trashed or invisible rows, tables and fields are ignored.
func (t *RowType) UnionProjection(ctx context.Context, user search.User, workspace search.Workspace, sc search.SearchContext) (search.Projection, error) {
	match := fulltext.Websearch(sc.Query)
	if match == "" {
		return search.EmptyProjection(t.TypeName, t.TypePriority), nil
	}

	tables, err := t.tables.SearchRelation(ctx, user, workspace, search.SearchContext{})
	if err != nil {
		return search.Projection{}, fmt.Errorf("resolving visible tables: %w", err)
	}
	fields, err := t.fields.SearchRelation(ctx, user, workspace, search.SearchContext{})
	if err != nil {
		return search.Projection{}, fmt.Errorf("resolving visible fields: %w", err)
	}
	visible, err := t.SearchRelation(ctx, user, workspace, search.SearchContext{})
	if err != nil {
		return search.Projection{}, fmt.Errorf("resolving visible rows: %w", err)
	}
	visibleTables := tables.Subquery("t.id")
	visibleFields := fields.Subquery("f.id")
	visibleRows := visible.Subquery("r.id")

	from := `(WITH hits AS MATERIALIZED (
			SELECT c.table_id AS table_id, c.row_id AS row_id, c.field_id AS field_id,
				-bm25(database_cells_fts) AS score
			FROM database_cells_fts
			JOIN database_cells c ON c.id = database_cells_fts.rowid
			JOIN database_rows r ON r.id = c.row_id
			WHERE database_cells_fts MATCH ?
				AND r.trashed = 0
				AND c.table_id IN (` + visibleTables.SQL + `)
				AND c.field_id IN (` + visibleFields.SQL + `)
				AND c.row_id IN (` + visibleRows.SQL + `)
		)
		SELECT table_id, row_id, field_id, score,
			ROW_NUMBER() OVER (PARTITION BY table_id, row_id ORDER BY score DESC, field_id ASC) AS rn
		FROM hits) AS best`

	args := []any{match}
	args = append(args, visibleTables.Args...)
	args = append(args, visibleFields.Args...)
	args = append(args, visibleRows.Args...)

	return search.Projection{
		Relation: search.From(from, args...).Filter(search.Where("best.rn = 1")),
		Type:     t.TypeName,
		Priority: t.TypePriority,
		ObjectID: search.Raw("best.table_id || '_' || best.row_id"),
		SortKey:  search.Raw("best.row_id"),
		Rank:     search.Raw("best.score"),
		Title:    search.Raw("'row ' || best.row_id"),
		Payload:  search.Raw("json_object('table_id', best.table_id, 'row_id', best.row_id, 'field_id', best.field_id)"),
	}, nil
}

type fieldInfo struct {
	name         string
	tableID      int64
	tableName    string
	databaseID   int64
	databaseName string
	workspaceID  int64
	primaryField *int64
}

// Postprocess loads the names of the matched fields, their tables and
// databases, and the primary field value of every row, in two queries.
func (t *RowType) Postprocess(ctx context.Context, rows []search.Row) ([]search.SearchResult, error) {
	type hit struct {
		row                     search.Row
		tableID, rowID, fieldID int64
	}

	var hits []hit
	fieldIDs := map[int64]bool{}
	for _, r := range rows {
		tableID, ok1 := search.PayloadInt64(r.Payload, "table_id")
		rowID, ok2 := search.PayloadInt64(r.Payload, "row_id")
		fieldID, ok3 := search.PayloadInt64(r.Payload, "field_id")
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		hits = append(hits, hit{row: r, tableID: tableID, rowID: rowID, fieldID: fieldID})
		fieldIDs[fieldID] = true
	}
	if len(hits) == 0 {
		return nil, nil
	}

	fields, err := t.loadFields(ctx, fieldIDs)
	if err != nil {
		return nil, err
	}

	primaryOf := map[int64]int64{} // row id -> primary field id
	for _, h := range hits {
		if f, ok := fields[h.fieldID]; ok && f.primaryField != nil {
			primaryOf[h.rowID] = *f.primaryField
		}
	}
	primaryValues, err := t.loadPrimaryValues(ctx, primaryOf)
	if err != nil {
		return nil, err
	}

	results := make([]search.SearchResult, 0, len(hits))
	for _, h := range hits {
		f, known := fields[h.fieldID]

		tableID := h.tableID
		var parts []string
		meta := map[string]any{
			"table_id":            h.tableID,
			"row_id":              h.rowID,
			"field_id":            h.fieldID,
			"workspace_id":        nil,
			"database_id":         nil,
			"database_name":       nil,
			"table_name":          nil,
			"field_name":          nil,
			"rank":                nil,
			"primary_field_value": nil,
		}
		if known {
			tableID = f.tableID
			meta["workspace_id"] = f.workspaceID
			meta["database_id"] = f.databaseID
			meta["database_name"] = f.databaseName
			meta["table_name"] = f.tableName
			meta["field_name"] = f.name
			parts = append(parts, f.databaseName, f.tableName)
		}
		if h.row.Rank != nil {
			meta["rank"] = *h.row.Rank
		}

		title := fmt.Sprintf("Row #%d", h.rowID)
		if v, ok := primaryValues[h.rowID]; ok && v != "" {
			title = v
			meta["primary_field_value"] = v
		}

		var subtitle *string
		if len(parts) > 0 {
			subtitle = search.StringPtr("Row in " + strings.Join(parts, " / "))
		}

		id := h.row.ObjectID
		if id == "" {
			id = fmt.Sprintf("%d_%d", tableID, h.rowID)
		}
		results = append(results, search.SearchResult{
			Type:     t.TypeName,
			ID:       id,
			Title:    title,
			Subtitle: subtitle,
			Metadata: meta,
		})
	}
	return results, nil
}

func (t *RowType) loadFields(ctx context.Context, ids map[int64]bool) (map[int64]fieldInfo, error) {
	placeholders := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids))
	for id := range ids {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}

	q := `SELECT f.id, f.name, t.id, t.name, d.id, d.name, d.workspace_id,
			(SELECT pf.id FROM database_fields pf
			 WHERE pf.table_id = t.id AND pf.primary_field = 1 AND pf.trashed = 0
			 ORDER BY pf.id LIMIT 1)
		FROM database_fields f
		JOIN database_tables t ON t.id = f.table_id
		JOIN applications d ON d.id = t.database_id
		WHERE f.id IN (` + strings.Join(placeholders, ", ") + `)`

	rows, err := t.deps.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("loading matched fields: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]fieldInfo, len(ids))
	for rows.Next() {
		var (
			id      int64
			f       fieldInfo
			primary *int64
		)
		if err := rows.Scan(&id, &f.name, &f.tableID, &f.tableName, &f.databaseID, &f.databaseName, &f.workspaceID, &primary); err != nil {
			return nil, fmt.Errorf("scanning matched field: %w", err)
		}
		f.primaryField = primary
		out[id] = f
	}
	return out, rows.Err()
}

func (t *RowType) loadPrimaryValues(ctx context.Context, primaryOf map[int64]int64) (map[int64]string, error) {
	if len(primaryOf) == 0 {
		return map[int64]string{}, nil
	}

	conds := make([]string, 0, len(primaryOf))
	args := make([]any, 0, 2*len(primaryOf))
	for rowID, fieldID := range primaryOf {
		conds = append(conds, "(c.row_id = ? AND c.field_id = ?)")
		args = append(args, rowID, fieldID)
	}

	rows, err := t.deps.DB.QueryContext(ctx,
		"SELECT c.row_id, c.value FROM database_cells c WHERE "+strings.Join(conds, " OR "), args...)
	if err != nil {
		return nil, fmt.Errorf("loading primary values: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]string, len(primaryOf))
	for rows.Next() {
		var rowID int64
		var value string
		if err := rows.Scan(&rowID, &value); err != nil {
			return nil, fmt.Errorf("scanning primary value: %w", err)
		}
		out[rowID] = value
	}
	return out, rows.Err()
}

// SerializeResult builds the result of a single row. rec.Attrs must carry
// table_id and field_id.
func (t *RowType) SerializeResult(ctx context.Context, rec search.Record, _ search.User, _ search.Workspace) (*search.SearchResult, error) {
	tableID, ok1 := search.PayloadInt64(rec.Attrs, "table_id")
	fieldID, ok2 := search.PayloadInt64(rec.Attrs, "field_id")
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("row %d: missing table_id or field_id", rec.ID)
	}
	results, err := t.Postprocess(ctx, []search.Row{{
		SearchType: t.TypeName,
		ObjectID:   fmt.Sprintf("%d_%d", tableID, rec.ID),
		SortKey:    rec.ID,
		Priority:   t.TypePriority,
		Payload:    map[string]any{"table_id": tableID, "row_id": rec.ID, "field_id": fieldID},
	}})
	if err != nil || len(results) == 0 {
		return nil, err
	}
	return &results[0], nil
}

// ExecuteSearch runs the row projection alone, in relevance order.
func (t *RowType) ExecuteSearch(ctx context.Context, user search.User, workspace search.Workspace, sc search.SearchContext) ([]search.SearchResult, error) {
	p, err := t.UnionProjection(ctx, user, workspace, sc)
	if err != nil {
		return nil, err
	}
	rows, err := search.QueryProjection(ctx, t.deps.DB, p, sc.Limit, sc.Offset)
	if err != nil {
		return nil, fmt.Errorf("querying rows: %w", err)
	}
	return t.Postprocess(ctx, rows)
}
