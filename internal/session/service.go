// Copyright 2026 The Hearth Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hearthtools/hearth/internal/identity"
	"github.com/hearthtools/hearth/internal/rbac"
)

// GrantedBySelfHeal marks memberships created by the default-role fallback.
const GrantedBySelfHeal = "system:self-heal"

// Service resolves sessions from the identity provider's output plus live
// role and grant reads.
type Service struct {
	roles       rbac.RoleRepository
	grants      rbac.GrantRepository
	memberships rbac.MembershipRepository
}

// NewService creates a new session service
func NewService(roles rbac.RoleRepository, grants rbac.GrantRepository, memberships rbac.MembershipRepository) *Service {
	return &Service{
		roles:       roles,
		grants:      grants,
		memberships: memberships,
	}
}

// Resolve builds the session for the given identity. A nil identity yields
// the anonymous session. An identity holding zero roles is self-healed with a
// single membership to the default member role; the healing is idempotent
// (the membership write is a no-op when the row already exists) and skipped
// entirely if the member role has been removed from the registry.
func (s *Service) Resolve(ctx context.Context, ident *identity.Identity) (*Session, error) {
	if ident == nil {
		return Anonymous(), nil
	}

	roleIDs, err := s.memberships.ListRoleIDs(ctx, ident.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list role memberships: %w", err)
	}

	if len(roleIDs) == 0 {
		if healed, ok := s.healDefaultRole(ctx, ident.ID); ok {
			roleIDs = []int64{healed}
		}
	}

	all, err := s.roles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	held := make(map[int64]bool, len(roleIDs))
	for _, id := range roleIDs {
		held[id] = true
	}
	var roles []*rbac.Role
	for _, r := range all {
		if held[r.ID] {
			roles = append(roles, r)
		}
	}

	grants, err := s.grants.ListForRoles(ctx, roleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}

	eff := rbac.Resolve(roles, grants)

	return &Session{
		SignedIn:     true,
		UserID:       ident.ID,
		Email:        ident.Email,
		Roles:        roles,
		PrimaryRole:  rbac.PrimaryRole(roles),
		IsSuperadmin: eff.Superadmin,
		Permissions:  eff,
	}, nil
}

func (s *Service) healDefaultRole(ctx context.Context, identityID string) (int64, bool) {
	member, err := s.roles.GetByName(ctx, rbac.RoleMember)
	if err != nil {
		if !errors.Is(err, rbac.ErrRoleNotFound) {
			slog.WarnContext(ctx, "default role lookup failed",
				slog.String("identity_id", identityID),
				slog.String("error", err.Error()),
			)
		}
		return 0, false
	}

	err = s.memberships.Assign(ctx, &rbac.Membership{
		IdentityID: identityID,
		RoleID:     member.ID,
		GrantedAt:  time.Now(),
		GrantedBy:  GrantedBySelfHeal,
	})
	if err != nil {
		slog.WarnContext(ctx, "default role self-heal failed",
			slog.String("identity_id", identityID),
			slog.String("error", err.Error()),
		)
		return 0, false
	}

	return member.ID, true
}
