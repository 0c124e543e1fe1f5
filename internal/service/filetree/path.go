package filetree

import (
	"fmt"
	"strings"

	"codebench/internal/domain"
)

// Materialize computes a child's canonical materialized path from its
// parent's path and its own name. The name is trimmed of surrounding
// whitespace and trailing slashes are stripped from the parent path. A root
// node (empty parent path) materializes to just its name.
//
// Pure; the only error is an empty name after trimming, which callers are
// expected to reject before path computation.
func Materialize(parentPath, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name must not be empty", domain.ErrValidation)
	}

	parentPath = strings.TrimRight(parentPath, "/")
	if parentPath == "" {
		return name, nil
	}
	return parentPath + "/" + name, nil
}

// Rebase rewrites path's oldPrefix ancestry to newPrefix. Paths outside the
// oldPrefix subtree are returned unchanged.
func Rebase(path, oldPrefix, newPrefix string) string {
	if path == oldPrefix {
		return newPrefix
	}
	if strings.HasPrefix(path, oldPrefix+"/") {
		return newPrefix + strings.TrimPrefix(path, oldPrefix)
	}
	return path
}

// BlobKey derives the object-store key for a file body from its project and
// materialized path. The bucket mirrors the virtual tree, which keeps
// objects inspectable and lets a reconciliation pass map keys back to rows.
func BlobKey(projectID, path string) string {
	return projectID + "/" + path
}
