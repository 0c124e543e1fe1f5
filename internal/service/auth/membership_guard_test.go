package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"codebench/internal/domain"
)

type stubMembers struct {
	member bool
	err    error
}

func (s *stubMembers) IsMember(_ context.Context, _, _ string) (bool, error) {
	return s.member, s.err
}

func TestCanAccessProject(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		member  bool
		lookup  error
		wantErr error
	}{
		{
			name:   "member allowed",
			userID: "user-1",
			member: true,
		},
		{
			name:    "non-member forbidden",
			userID:  "user-1",
			member:  false,
			wantErr: domain.ErrForbidden,
		},
		{
			name:    "missing principal unauthorized",
			userID:  "",
			wantErr: domain.ErrUnauthorized,
		},
		{
			name:    "lookup failure surfaces",
			userID:  "user-1",
			lookup:  domain.ErrStoreUnavailable,
			wantErr: domain.ErrStoreUnavailable,
		},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard := NewMembershipGuard(&stubMembers{member: tt.member, err: tt.lookup}, logger)

			err := guard.CanAccessProject(context.Background(), tt.userID, "proj-1")
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected access, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
