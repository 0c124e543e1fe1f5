package services

import "context"

// AccessGuard answers whether an authenticated principal may operate on a
// project. Backed by workspace-membership lookups; returns
// domain.ErrForbidden when the principal is not a member and
// domain.ErrNotFound when the project does not exist.
type AccessGuard interface {
	CanAccessProject(ctx context.Context, userID, projectID string) error
}
