package auth

import (
	"context"
	"fmt"
	"log/slog"

	"codebench/internal/domain"
	"codebench/internal/domain/services"
)

// MembershipStore answers workspace-membership lookups.
type MembershipStore interface {
	IsMember(ctx context.Context, projectID, userID string) (bool, error)
}

type membershipGuard struct {
	members MembershipStore
	logger  *slog.Logger
}

// NewMembershipGuard creates an access guard backed by workspace-membership
// rows. A principal may operate on a project iff they are a member of its
// workspace.
func NewMembershipGuard(members MembershipStore, logger *slog.Logger) services.AccessGuard {
	return &membershipGuard{
		members: members,
		logger:  logger,
	}
}

func (g *membershipGuard) CanAccessProject(ctx context.Context, userID, projectID string) error {
	if userID == "" {
		return fmt.Errorf("missing principal: %w", domain.ErrUnauthorized)
	}

	member, err := g.members.IsMember(ctx, projectID, userID)
	if err != nil {
		return fmt.Errorf("authorize project access: %w", err)
	}
	if !member {
		g.logger.Debug("project access denied",
			"user_id", userID,
			"project_id", projectID,
		)
		return fmt.Errorf("no access to project %s: %w", projectID, domain.ErrForbidden)
	}

	return nil
}
