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

package identity

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hearthtools/hearth/internal/audit"
	"github.com/hearthtools/hearth/internal/rbac"
)

// EnvBootstrapAdminEmail names the account to promote on first run.
const EnvBootstrapAdminEmail = "HEARTH_BOOTSTRAP_ADMIN_EMAIL"

// BootstrapService promotes the configured account to the protected
// superadmin role when no superadmin membership exists yet.
type BootstrapService struct {
	users       UserRepository
	roles       rbac.RoleRepository
	memberships rbac.MembershipRepository
	auditLogger audit.Logger
}

// NewBootstrapService creates a new bootstrap service
func NewBootstrapService(
	users UserRepository,
	roles rbac.RoleRepository,
	memberships rbac.MembershipRepository,
	auditLogger audit.Logger,
) *BootstrapService {
	return &BootstrapService{
		users:       users,
		roles:       roles,
		memberships: memberships,
		auditLogger: auditLogger,
	}
}

// Bootstrap checks for bootstrap configuration and executes it if necessary
func (s *BootstrapService) Bootstrap(ctx context.Context) error {
	email := os.Getenv(EnvBootstrapAdminEmail)
	if email == "" {
		return nil
	}

	exists, err := s.memberships.AnySuperadmin(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for existing superadmin: %w", err)
	}
	if exists {
		// Already bootstrapped, skip silently.
		return nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("bootstrap account not found (email: %s): %w", email, err)
	}

	role, err := s.roles.GetByName(ctx, rbac.RoleSuperadmin)
	if err != nil {
		return fmt.Errorf("protected superadmin role missing: %w", err)
	}

	if err := s.memberships.Assign(ctx, &rbac.Membership{
		IdentityID: user.ID,
		RoleID:     role.ID,
		GrantedAt:  time.Now(),
		GrantedBy:  "system:bootstrap",
	}); err != nil {
		return fmt.Errorf("failed to grant superadmin role during bootstrap: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Action:     audit.ActionSecurity,
		ActorID:    user.ID,
		ActorEmail: user.Email,
		Target:     "bootstrap",
		Detail:     map[string]any{"role": role.Name},
	})
	return nil
}
