package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rubiojr/wsearch/pkg/search"
)

func (s *Store) CreateUser(ctx context.Context, email, name string) (search.User, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO users (email, name) VALUES (?, ?)", email, name)
	if err != nil {
		return search.User{}, fmt.Errorf("creating user %s: %w", email, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return search.User{}, fmt.Errorf("creating user %s: %w", email, err)
	}
	return search.User{ID: id, Email: email, Name: name}, nil
}

// GetUserByEmail returns search.ErrUserNotFound for unknown emails.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (search.User, error) {
	u := search.User{Email: email}
	err := s.db.QueryRowContext(ctx, "SELECT id, name FROM users WHERE email = ?", email).Scan(&u.ID, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return search.User{}, fmt.Errorf("user %s: %w", email, search.ErrUserNotFound)
	}
	if err != nil {
		return search.User{}, fmt.Errorf("loading user %s: %w", email, err)
	}
	return u, nil
}

func (s *Store) CreateWorkspace(ctx context.Context, name string) (search.Workspace, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO workspaces (name) VALUES (?)", name)
	if err != nil {
		return search.Workspace{}, fmt.Errorf("creating workspace %s: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return search.Workspace{}, fmt.Errorf("creating workspace %s: %w", name, err)
	}
	return search.Workspace{ID: id, Name: name}, nil
}

// GetWorkspace returns search.ErrWorkspaceNotFound for unknown and trashed
// workspaces.
func (s *Store) GetWorkspace(ctx context.Context, id int64) (search.Workspace, error) {
	w := search.Workspace{ID: id}
	err := s.db.QueryRowContext(ctx, "SELECT name FROM workspaces WHERE id = ? AND trashed = 0", id).Scan(&w.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return search.Workspace{}, fmt.Errorf("workspace %d: %w", id, search.ErrWorkspaceNotFound)
	}
	if err != nil {
		return search.Workspace{}, fmt.Errorf("loading workspace %d: %w", id, err)
	}
	return w, nil
}

// AddMember makes user a member of workspace. Adding an existing member is a
// no-op.
func (s *Store) AddMember(ctx context.Context, workspaceID, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO workspace_users (workspace_id, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
		workspaceID, userID)
	if err != nil {
		return fmt.Errorf("adding user %d to workspace %d: %w", userID, workspaceID, err)
	}
	return nil
}

// RemoveMember revokes the membership of user in workspace.
func (s *Store) RemoveMember(ctx context.Context, workspaceID, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM workspace_users WHERE workspace_id = ? AND user_id = ?", workspaceID, userID)
	if err != nil {
		return fmt.Errorf("removing user %d from workspace %d: %w", userID, workspaceID, err)
	}
	return nil
}

// ListWorkspaces returns the workspaces user is a member of.
func (s *Store) ListWorkspaces(ctx context.Context, userID int64) ([]search.Workspace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.name FROM workspaces w
		JOIN workspace_users wu ON wu.workspace_id = w.id
		WHERE wu.user_id = ? AND w.trashed = 0
		ORDER BY w.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}
	defer rows.Close()

	var out []search.Workspace
	for rows.Next() {
		var w search.Workspace
		if err := rows.Scan(&w.ID, &w.Name); err != nil {
			return nil, fmt.Errorf("scanning workspace: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
