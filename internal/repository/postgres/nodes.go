package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"codebench/internal/domain"
	models "codebench/internal/domain/models/filetree"
	repoft "codebench/internal/domain/repositories/filetree"
)

const nodeColumns = `id, project_id, parent_id, name, node_type, path,
	content, storage_key, size_bytes, is_deleted,
	created_by, updated_by, created_at, updated_at`

// PostgresNodeStore implements the NodeStore interface
type PostgresNodeStore struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewNodeStore creates a new node store
func NewNodeStore(config *RepositoryConfig) repoft.NodeStore {
	return &PostgresNodeStore{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// GetByID retrieves a node by ID, including soft-deleted nodes.
func (r *PostgresNodeStore) GetByID(ctx context.Context, projectID, id string) (*models.Node, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND project_id = $2
	`, nodeColumns, r.tables.Nodes)

	node, err := scanNode(r.pool.QueryRow(ctx, query, id, projectID))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
		}
		return nil, storeErr("get node", err)
	}

	return node, nil
}

// GetByPath retrieves the live node at the given materialized path.
func (r *PostgresNodeStore) GetByPath(ctx context.Context, projectID, path string) (*models.Node, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE project_id = $1 AND path = $2 AND NOT is_deleted
	`, nodeColumns, r.tables.Nodes)

	node, err := scanNode(r.pool.QueryRow(ctx, query, projectID, path))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("node at %q: %w", path, domain.ErrNotFound)
		}
		return nil, storeErr("get node by path", err)
	}

	return node, nil
}

// ListLive returns all live nodes of a project ordered by path.
func (r *PostgresNodeStore) ListLive(ctx context.Context, projectID string) ([]models.Node, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE project_id = $1 AND NOT is_deleted
		ORDER BY path ASC
	`, nodeColumns, r.tables.Nodes)

	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, storeErr("list nodes", err)
	}
	defer rows.Close()

	return collectNodes(rows)
}

// ListDescendants returns live nodes whose path starts with
// pathPrefix + "/", ordered by path.
func (r *PostgresNodeStore) ListDescendants(ctx context.Context, projectID, pathPrefix string) ([]models.Node, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE project_id = $1 AND NOT is_deleted AND path LIKE $2
		ORDER BY path ASC
	`, nodeColumns, r.tables.Nodes)

	rows, err := r.pool.Query(ctx, query, projectID, escapeLike(pathPrefix)+"/%")
	if err != nil {
		return nil, storeErr("list descendants", err)
	}
	defer rows.Close()

	return collectNodes(rows)
}

// Insert creates a new node row.
func (r *PostgresNodeStore) Insert(ctx context.Context, node *models.Node) error {
	content, storageKey := bodyColumns(node.Body)

	query := fmt.Sprintf(`
		INSERT INTO %s (id, project_id, parent_id, name, node_type, path,
			content, storage_key, size_bytes, is_deleted,
			created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false, $10, $11, $12, $13)
	`, r.tables.Nodes)

	_, err := r.pool.Exec(ctx, query,
		node.ID,
		node.ProjectID,
		node.ParentID,
		node.Name,
		node.Type,
		node.Path,
		content,
		storageKey,
		node.SizeBytes,
		node.CreatedBy,
		node.UpdatedBy,
		node.CreatedAt,
		node.UpdatedAt,
	)

	if err != nil {
		if isPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a node already exists at %q", node.Path),
				ResourceType: string(node.Type),
				ResourceID:   node.ID,
			}
		}
		return storeErr("insert node", err)
	}

	return nil
}

// Update rewrites the mutable fields of a node row.
func (r *PostgresNodeStore) Update(ctx context.Context, node *models.Node) error {
	content, storageKey := bodyColumns(node.Body)

	query := fmt.Sprintf(`
		UPDATE %s
		SET parent_id = $1, name = $2, path = $3,
			content = $4, storage_key = $5, size_bytes = $6,
			updated_by = $7, updated_at = $8
		WHERE id = $9 AND project_id = $10
	`, r.tables.Nodes)

	result, err := r.pool.Exec(ctx, query,
		node.ParentID,
		node.Name,
		node.Path,
		content,
		storageKey,
		node.SizeBytes,
		node.UpdatedBy,
		node.UpdatedAt,
		node.ID,
		node.ProjectID,
	)

	if err != nil {
		if isPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a node already exists at %q", node.Path),
				ResourceType: string(node.Type),
				ResourceID:   node.ID,
			}
		}
		return storeErr("update node", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("node %s: %w", node.ID, domain.ErrNotFound)
	}

	return nil
}

// SoftDelete tombstones the given nodes.
func (r *PostgresNodeStore) SoftDelete(ctx context.Context, projectID string, ids []string, deletedBy string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET is_deleted = true, updated_by = $1, updated_at = $2
		WHERE project_id = $3 AND id = ANY($4) AND NOT is_deleted
	`, r.tables.Nodes)

	if _, err := r.pool.Exec(ctx, query, deletedBy, at, projectID, ids); err != nil {
		return storeErr("soft delete nodes", err)
	}

	return nil
}

// scanNode reads one node row, reconstructing the body representation from
// the content/storage_key pair.
func scanNode(row pgx.Row) (*models.Node, error) {
	var (
		node       models.Node
		content    *string
		storageKey *string
	)

	err := row.Scan(
		&node.ID,
		&node.ProjectID,
		&node.ParentID,
		&node.Name,
		&node.Type,
		&node.Path,
		&content,
		&storageKey,
		&node.SizeBytes,
		&node.IsDeleted,
		&node.CreatedBy,
		&node.UpdatedBy,
		&node.CreatedAt,
		&node.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	switch {
	case storageKey != nil:
		node.Body = models.ExternalBody{Key: *storageKey}
	case content != nil:
		node.Body = models.InlineBody{Text: *content}
	}

	return &node, nil
}

func collectNodes(rows pgx.Rows) ([]models.Node, error) {
	var nodes []models.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, storeErr("scan node", err)
		}
		nodes = append(nodes, *node)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate nodes", err)
	}

	return nodes, nil
}

// bodyColumns maps the Body sum type onto the two nullable columns. At most
// one of the return values is non-nil.
func bodyColumns(body models.Body) (content, storageKey *string) {
	switch b := body.(type) {
	case models.InlineBody:
		return &b.Text, nil
	case models.ExternalBody:
		return nil, &b.Key
	default:
		return nil, nil
	}
}

// escapeLike escapes LIKE metacharacters so stored paths match literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
