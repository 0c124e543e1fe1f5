package filetree

import (
	"context"
	"time"

	"codebench/internal/domain/models/filetree"
)

// NodeStore defines metadata access for tree nodes, all scoped to one
// project. Row writes are individually atomic; callers are responsible for
// invariant checks before writing. Implementations surface missing rows as
// domain.ErrNotFound and transient faults as domain.ErrStoreUnavailable.
type NodeStore interface {
	// GetByID retrieves a node by ID, including soft-deleted nodes.
	GetByID(ctx context.Context, projectID, id string) (*filetree.Node, error)

	// GetByPath retrieves the live node at the given materialized path.
	// Used for conflict detection.
	GetByPath(ctx context.Context, projectID, path string) (*filetree.Node, error)

	// ListLive returns all live nodes of a project ordered by path.
	ListLive(ctx context.Context, projectID string) ([]filetree.Node, error)

	// ListDescendants returns live nodes whose path starts with
	// pathPrefix + "/", ordered by path.
	ListDescendants(ctx context.Context, projectID, pathPrefix string) ([]filetree.Node, error)

	// Insert creates a new node row.
	Insert(ctx context.Context, node *filetree.Node) error

	// Update rewrites the mutable fields of a node row
	// (name, parent_id, path, body, size, updated_by, updated_at).
	Update(ctx context.Context, node *filetree.Node) error

	// SoftDelete tombstones the given nodes.
	SoftDelete(ctx context.Context, projectID string, ids []string, deletedBy string, at time.Time) error
}
