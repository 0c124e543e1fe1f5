package filetree

import "time"

// Entry is the flat tree-listing projection of a live node (no content).
type Entry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      NodeType  `json:"type"`
	ParentID  *string   `json:"parent_id"`
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tree is the project tree in both flat and nested form. The flat list is
// the contract surface; the nested form is what the editor sidebar renders.
type Tree struct {
	Entries []Entry     `json:"entries"`
	Roots   []*TreeNode `json:"roots"`
}

// TreeNode is a nested tree node. Children is nil for files and for empty
// folders.
type TreeNode struct {
	Entry
	Children []*TreeNode `json:"children,omitempty"`
}
