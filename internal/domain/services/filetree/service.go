package filetree

import (
	"context"

	"codebench/internal/domain/models/filetree"
	"codebench/internal/httputil"
)

// TreeService orchestrates file-tree operations, enforcing path and blob
// consistency across the metadata and blob stores. All operations are
// project-scoped and authorize the principal before touching state.
type TreeService interface {
	// ListTree returns all live nodes of a project, flat and nested.
	ListTree(ctx context.Context, userID, projectID string) (*filetree.Tree, error)

	// CreateNode creates a file or folder, optionally with initial content.
	CreateNode(ctx context.Context, userID, projectID string, req *CreateNodeRequest) (*filetree.Node, error)

	// RenameOrMove renames a node, moves it to a new parent, or both.
	RenameOrMove(ctx context.Context, userID, projectID, nodeID string, req *UpdateNodeRequest) (*filetree.Node, error)

	// DeleteNode soft-deletes a node and, for folders, all live descendants.
	// Returns the path the node occupied.
	DeleteNode(ctx context.Context, userID, projectID, nodeID string) (string, error)

	// ReadContent returns the current body of a file node as text.
	ReadContent(ctx context.Context, userID, projectID, nodeID string) (string, error)

	// WriteContent replaces the body of a file node.
	WriteContent(ctx context.Context, userID, projectID, nodeID, text string) error
}

// CreateNodeRequest represents a node creation request.
type CreateNodeRequest struct {
	Name     string            `json:"name"`
	Type     filetree.NodeType `json:"type"`
	ParentID *string           `json:"parent_id,omitempty"` // null for root
	Content  string            `json:"content,omitempty"`   // files only
}

// UpdateNodeRequest represents a rename and/or move request. ParentID uses
// tri-state PATCH semantics: absent = unchanged, null = move to root,
// value = move under that folder.
type UpdateNodeRequest struct {
	Name     *string                 `json:"name,omitempty"`
	ParentID httputil.OptionalString `json:"parent_id,omitempty"`
}
