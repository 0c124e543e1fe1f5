package filetree

import (
	"time"
)

// NodeType distinguishes files from folders. Immutable after creation.
type NodeType string

const (
	NodeTypeFile   NodeType = "file"
	NodeTypeFolder NodeType = "folder"
)

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	return t == NodeTypeFile || t == NodeTypeFolder
}

// Node is a file or folder within one project's tree.
//
// Path is the materialized slash-joined chain of ancestor names down to and
// including Name. It is denormalized for fast prefix search and must be kept
// in sync with every rename/move of any ancestor.
type Node struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	ParentID  *string   `json:"parent_id"` // NULL = root level
	Name      string    `json:"name"`
	Type      NodeType  `json:"type"`
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	IsDeleted bool      `json:"-"`
	Body      Body      `json:"-"` // file body representation, nil for folders and empty files
	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsFolder reports whether the node is a folder.
func (n *Node) IsFolder() bool { return n.Type == NodeTypeFolder }

// StorageKey returns the external blob key if the body is externalized,
// or "" otherwise.
func (n *Node) StorageKey() string {
	if ext, ok := n.Body.(ExternalBody); ok {
		return ext.Key
	}
	return ""
}

// Body is the current content representation of a file node. Exactly one
// representation is authoritative at a time: either the text is held inline
// in the metadata row, or it lives in the blob store under a storage key.
// A nil Body means the file is empty (or the node is a folder).
type Body interface {
	isBody()
}

// InlineBody holds the file text directly in the metadata row. Used only
// while the body is below the externalization threshold.
type InlineBody struct {
	Text string
}

// ExternalBody references the blob store object holding the file body.
type ExternalBody struct {
	Key string
}

func (InlineBody) isBody()   {}
func (ExternalBody) isBody() {}
