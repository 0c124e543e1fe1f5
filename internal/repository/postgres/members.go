package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresMembershipStore looks up workspace membership rows for the access
// guard.
type PostgresMembershipStore struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewMembershipStore creates a new membership store
func NewMembershipStore(config *RepositoryConfig) *PostgresMembershipStore {
	return &PostgresMembershipStore{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// IsMember reports whether userID belongs to the project's workspace.
func (r *PostgresMembershipStore) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM %s
			WHERE project_id = $1 AND user_id = $2
		)
	`, r.tables.WorkspaceMembers)

	var member bool
	if err := r.pool.QueryRow(ctx, query, projectID, userID).Scan(&member); err != nil {
		return false, storeErr("check membership", err)
	}

	return member, nil
}

// AddMember grants userID membership in the project's workspace. Idempotent.
func (r *PostgresMembershipStore) AddMember(ctx context.Context, projectID, userID, role string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (project_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (project_id, user_id) DO NOTHING
	`, r.tables.WorkspaceMembers)

	if _, err := r.pool.Exec(ctx, query, projectID, userID, role); err != nil {
		return storeErr("add member", err)
	}

	return nil
}
