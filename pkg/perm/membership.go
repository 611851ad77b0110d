// Package perm implements workspace membership permissions for search.
package perm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rubiojr/wsearch/pkg/search"
)

// Operations checked by the search types.
const (
	ReadApplication = "application.read"
	ReadTable       = "database.table.read"
	ListFields      = "database.table.list_fields"
	ListRows        = "database.table.list_rows"
)

// Membership grants every operation on a workspace to its members and
// nothing to anybody else.
type Membership struct {
	db search.Querier
}

var _ search.Permissions = (*Membership)(nil)

func NewMembership(db search.Querier) *Membership {
	return &Membership{db: db}
}

// FilterRelation keeps the entities whose workspace has user as a member.
func (m *Membership) FilterRelation(_ context.Context, user search.User, operation string, rel search.Relation, workspace search.Workspace) (search.Relation, error) {
	col := rel.WorkspaceColumn()
	if col == "" {
		return search.Relation{}, fmt.Errorf("checking %s: relation has no workspace column", operation)
	}
	return rel.
		Filter(search.Where(col+" = ?", workspace.ID)).
		Filter(search.Where(
			"EXISTS (SELECT 1 FROM workspace_users wu WHERE wu.workspace_id = "+col+" AND wu.user_id = ?)",
			user.ID,
		)), nil
}

// CheckWorkspace fails with search.ErrWorkspaceNotFound for unknown or
// trashed workspaces and search.ErrUserNotInWorkspace for non-members.
func (m *Membership) CheckWorkspace(ctx context.Context, user search.User, workspace search.Workspace, operation string) error {
	var member bool
	err := m.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM workspace_users wu
			WHERE wu.workspace_id = w.id AND wu.user_id = ?
		)
		FROM workspaces w
		WHERE w.id = ? AND w.trashed = 0`,
		user.ID, workspace.ID,
	).Scan(&member)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("workspace %d: %w", workspace.ID, search.ErrWorkspaceNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking %s on workspace %d: %w", operation, workspace.ID, err)
	}
	if !member {
		return fmt.Errorf("user %d on workspace %d: %w", user.ID, workspace.ID, search.ErrUserNotInWorkspace)
	}
	return nil
}
