package storage

import (
	"context"
	"fmt"
)

// Application kinds stored in applications.type.
const (
	KindDatabase   = "database"
	KindBuilder    = "builder"
	KindDashboard  = "dashboard"
	KindAutomation = "automation"
)

// Field describes a table field to create.
type Field struct {
	Name        string
	Description string
	Primary     bool
}

func (s *Store) insert(ctx context.Context, what, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", what, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", what, err)
	}
	return id, nil
}

// CreateApplication adds an application of the given kind to a workspace.
func (s *Store) CreateApplication(ctx context.Context, workspaceID int64, kind, name string) (int64, error) {
	return s.insert(ctx, kind+" "+name,
		`INSERT INTO applications (workspace_id, type, name, "order")
		 VALUES (?, ?, ?, (SELECT COALESCE(MAX("order"), 0) + 1 FROM applications WHERE workspace_id = ?))`,
		workspaceID, kind, name, workspaceID)
}

// CreateTable adds a table to a database application.
func (s *Store) CreateTable(ctx context.Context, databaseID int64, name string) (int64, error) {
	return s.insert(ctx, "table "+name,
		`INSERT INTO database_tables (database_id, name, "order")
		 VALUES (?, ?, (SELECT COALESCE(MAX("order"), 0) + 1 FROM database_tables WHERE database_id = ?))`,
		databaseID, name, databaseID)
}

// CreateField adds a field to a table.
func (s *Store) CreateField(ctx context.Context, tableID int64, f Field) (int64, error) {
	var description any
	if f.Description != "" {
		description = f.Description
	}
	return s.insert(ctx, "field "+f.Name,
		`INSERT INTO database_fields (table_id, name, description, primary_field, "order")
		 VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX("order"), 0) + 1 FROM database_fields WHERE table_id = ?))`,
		tableID, f.Name, description, f.Primary, tableID)
}

// CreateRow adds a row to a table with the given cell values, keyed by field
// id.
func (s *Store) CreateRow(ctx context.Context, tableID int64, values map[int64]string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				s.logger.Warnf("failed to rollback row creation: %v", err)
			}
		}
	}()

	res, err := tx.ExecContext(ctx, "INSERT INTO database_rows (table_id) VALUES (?)", tableID)
	if err != nil {
		return 0, fmt.Errorf("creating row in table %d: %w", tableID, err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("creating row in table %d: %w", tableID, err)
	}

	for fieldID, value := range values {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO database_cells (table_id, row_id, field_id, value) VALUES (?, ?, ?, ?)",
			tableID, rowID, fieldID, value); err != nil {
			return 0, fmt.Errorf("setting field %d of row %d: %w", fieldID, rowID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing row: %w", err)
	}
	committed = true
	return rowID, nil
}

// SetCell sets the value of one cell, creating it if needed.
func (s *Store) SetCell(ctx context.Context, rowID, fieldID int64, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO database_cells (table_id, row_id, field_id, value)
		SELECT table_id, id, ?, ? FROM database_rows WHERE id = ?
		ON CONFLICT (row_id, field_id) DO UPDATE SET value = excluded.value`,
		fieldID, value, rowID)
	if err != nil {
		return fmt.Errorf("setting field %d of row %d: %w", fieldID, rowID, err)
	}
	return nil
}

// Rename changes the name of an application, table or field.
func (s *Store) Rename(ctx context.Context, kind TrashKind, id int64, name string) error {
	table, ok := trashTables[kind]
	if !ok || kind == TrashRow {
		return fmt.Errorf("cannot rename %s", kind)
	}
	q := fmt.Sprintf("UPDATE %s SET name = ?, updated_on = strftime('%%Y-%%m-%%dT%%H:%%M:%%fZ', 'now') WHERE id = ?", table)
	if _, err := s.db.ExecContext(ctx, q, name, id); err != nil {
		return fmt.Errorf("renaming %s %d: %w", kind, id, err)
	}
	return nil
}

// TrashKind names what Trash and Restore act on.
type TrashKind string

const (
	TrashWorkspace   TrashKind = "workspace"
	TrashApplication TrashKind = "application"
	TrashTable       TrashKind = "table"
	TrashField       TrashKind = "field"
	TrashRow         TrashKind = "row"
)

var trashTables = map[TrashKind]string{
	TrashWorkspace:   "workspaces",
	TrashApplication: "applications",
	TrashTable:       "database_tables",
	TrashField:       "database_fields",
	TrashRow:         "database_rows",
}

// Trash marks an entity as trashed. Trashed entities, and everything below
// them, are invisible to search.
func (s *Store) Trash(ctx context.Context, kind TrashKind, id int64) error {
	return s.setTrashed(ctx, kind, id, true)
}

// Restore undoes Trash.
func (s *Store) Restore(ctx context.Context, kind TrashKind, id int64) error {
	return s.setTrashed(ctx, kind, id, false)
}

func (s *Store) setTrashed(ctx context.Context, kind TrashKind, id int64, trashed bool) error {
	table, ok := trashTables[kind]
	if !ok {
		return fmt.Errorf("unknown trash kind %q", kind)
	}
	q := fmt.Sprintf("UPDATE %s SET trashed = ? WHERE id = ?", table)
	res, err := s.db.ExecContext(ctx, q, trashed, id)
	if err != nil {
		return fmt.Errorf("trashing %s %d: %w", kind, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s %d does not exist", kind, id)
	}
	return nil
}
