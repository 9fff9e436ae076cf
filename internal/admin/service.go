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

// Package admin implements role and permission administration. Every
// mutation is itself gated through the access gate at Admin level on the
// permissions-administration route, so administration of the RBAC system is
// RBAC-protected at the highest level.
package admin

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hearthtools/hearth/internal/audit"
	"github.com/hearthtools/hearth/internal/gate"
	"github.com/hearthtools/hearth/internal/rbac"
	"github.com/hearthtools/hearth/internal/session"
)

// Domain errors
var (
	ErrForbidden                = errors.New("administration requires admin access")
	ErrActorNotSuperadmin       = errors.New("role change requires a superadmin actor")
	ErrCannotDemoteSuperadmin   = errors.New("cannot demote a superadmin")
	ErrSuperadminCreateRequires = errors.New("creating a superadmin role requires a superadmin actor")
	ErrInvalidInput             = errors.New("invalid input")
)

// Service provides role and permission administration
type Service struct {
	roles       rbac.RoleRepository
	grants      rbac.GrantRepository
	memberships rbac.MembershipRepository
	gate        *gate.Gate
	auditLogger audit.Logger
	auditReader audit.Reader
	validate    *validator.Validate
}

// NewService creates a new administration service
func NewService(
	roles rbac.RoleRepository,
	grants rbac.GrantRepository,
	memberships rbac.MembershipRepository,
	g *gate.Gate,
	auditLogger audit.Logger,
	auditReader audit.Reader,
) *Service {
	return &Service{
		roles:       roles,
		grants:      grants,
		memberships: memberships,
		gate:        g,
		auditLogger: auditLogger,
		auditReader: auditReader,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Service) requireAdmin(ctx context.Context, actor *session.Session) error {
	d := s.gate.Evaluate(ctx, actor, rbac.RouteAdminPermissions, rbac.LevelAdmin)
	if !d.Allowed {
		return ErrForbidden
	}
	return nil
}

// coerceRank parses a submitted rank, falling back to 0 on unparsable or
// non-finite input.
func coerceRank(raw string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return int(f)
}

// CreateRoleInput carries the create-role form fields. Rank arrives as the
// raw form string and is coerced.
type CreateRoleInput struct {
	Name       string `json:"name" validate:"required,lowercase,excludesall=0x20"`
	Label      string `json:"label" validate:"required"`
	Rank       string `json:"rank"`
	Superadmin bool   `json:"superadmin"`
}

// CreateRole creates a new role. Machine-name uniqueness is enforced by the
// storage constraint, not pre-checked here; a violation surfaces as a failed
// mutation. Creating a role that carries the superadmin flag requires a
// superadmin actor.
func (s *Service) CreateRole(ctx context.Context, actor *session.Session, in CreateRoleInput) (*rbac.Role, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	if in.Superadmin && !actor.IsSuperadmin {
		s.auditLogger.Log(ctx, audit.Event{
			Action:     audit.ActionSecurity,
			ActorID:    actor.UserID,
			ActorEmail: actor.Email,
			Target:     in.Name,
			Detail:     map[string]any{"reason": audit.ReasonSuperadminCreateForbidden},
		})
		return nil, ErrSuperadminCreateRequires
	}

	role := &rbac.Role{
		Name:         strings.ToLower(strings.TrimSpace(in.Name)),
		Label:        strings.TrimSpace(in.Label),
		Rank:         coerceRank(in.Rank),
		IsSuperadmin: in.Superadmin,
	}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Action:     audit.ActionRoleCreated,
		ActorID:    actor.UserID,
		ActorEmail: actor.Email,
		Target:     role.Name,
		Detail:     map[string]any{"rank": role.Rank, "superadmin": role.IsSuperadmin},
	})
	return role, nil
}

// UpdateRoleInput carries the update-role form fields.
type UpdateRoleInput struct {
	ID         int64  `json:"id" validate:"required,gt=0"`
	Label      string `json:"label" validate:"required"`
	Rank       string `json:"rank"`
	Superadmin bool   `json:"superadmin"`
}

// UpdateRole updates a role's label, rank and superadmin flag. The protected
// role's superadmin flag is forced to remain true regardless of the
// submitted value; the UI disables the control but the guard lives here.
func (s *Service) UpdateRole(ctx context.Context, actor *session.Session, in UpdateRoleInput) error {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return err
	}
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	role, err := s.roles.GetByID(ctx, in.ID)
	if err != nil {
		return fmt.Errorf("failed to load role: %w", err)
	}

	superadmin := in.Superadmin
	if rbac.IsProtectedRole(role.Name) {
		superadmin = true
	}

	role.Label = strings.TrimSpace(in.Label)
	role.Rank = coerceRank(in.Rank)
	role.IsSuperadmin = superadmin
	if err := s.roles.Update(ctx, role); err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Action:     audit.ActionRoleUpdated,
		ActorID:    actor.UserID,
		ActorEmail: actor.Email,
		Target:     role.Name,
		Detail:     map[string]any{"rank": role.Rank, "superadmin": role.IsSuperadmin},
	})
	return nil
}

// DeleteRole removes a role. Protected roles are refused. Orphaned grants
// and memberships are cleaned up by the storage foreign-key cascade, and
// role IDs are never reused, so a stale grant can never re-attach.
func (s *Service) DeleteRole(ctx context.Context, actor *session.Session, roleID int64) error {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return err
	}

	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return fmt.Errorf("failed to load role: %w", err)
	}
	if rbac.IsProtectedRole(role.Name) {
		return rbac.ErrRoleProtected
	}

	if err := s.roles.Delete(ctx, roleID); err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Action:     audit.ActionRoleDeleted,
		ActorID:    actor.UserID,
		ActorEmail: actor.Email,
		Target:     role.Name,
	})
	return nil
}

// GrantInput carries the per-role per-route permission form fields.
type GrantInput struct {
	RoleID int64  `json:"role_id" validate:"required,gt=0"`
	Route  string `json:"route" validate:"required"`
	Level  string `json:"level"`
}

// UpsertGrant writes the single grant row for (role, route). A level of None
// deletes any existing row instead of storing a None row, keeping "no grant"
// and "explicit no access" indistinguishable by construction.
func (s *Service) UpsertGrant(ctx context.Context, actor *session.Session, in GrantInput) error {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return err
	}
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	level, err := rbac.ParseLevel(in.Level)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	if _, err := s.roles.GetByID(ctx, in.RoleID); err != nil {
		return fmt.Errorf("failed to load role: %w", err)
	}

	if level == rbac.LevelNone {
		if err := s.grants.Delete(ctx, in.RoleID, in.Route); err != nil {
			return fmt.Errorf("failed to remove grant: %w", err)
		}
		s.auditLogger.Log(ctx, audit.Event{
			Action:     audit.ActionGrantRemoved,
			ActorID:    actor.UserID,
			ActorEmail: actor.Email,
			Target:     in.Route,
			Detail:     map[string]any{"role_id": in.RoleID},
		})
		return nil
	}

	if err := s.grants.Upsert(ctx, &rbac.Grant{RoleID: in.RoleID, Route: in.Route, Level: level}); err != nil {
		return fmt.Errorf("failed to upsert grant: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Action:     audit.ActionGrantUpsert,
		ActorID:    actor.UserID,
		ActorEmail: actor.Email,
		Target:     in.Route,
		Detail:     map[string]any{"role_id": in.RoleID, "level": level.String()},
	})
	return nil
}

// ChangeMemberRole replaces a member's role set with the single named role.
//
// Two guards layer on top of the generic Admin-level gating: the actor must
// itself hold a superadmin role, and a target currently holding a superadmin
// role can never be moved to a non-superadmin role, not even by another
// superadmin. Both refusals are audited with distinguishing reason codes.
func (s *Service) ChangeMemberRole(ctx context.Context, actor *session.Session, targetIdentityID, nextRoleName string) error {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return err
	}

	if !actor.IsSuperadmin {
		s.auditLogger.Log(ctx, audit.Event{
			Action:     audit.ActionRoleChange,
			ActorID:    actor.UserID,
			ActorEmail: actor.Email,
			Target:     targetIdentityID,
			Detail:     map[string]any{"reason": audit.ReasonRoleChangeNotSuperadmin, "next_role": nextRoleName},
		})
		return ErrActorNotSuperadmin
	}

	next, err := s.roles.GetByName(ctx, nextRoleName)
	if err != nil {
		return fmt.Errorf("failed to load role %q: %w", nextRoleName, err)
	}

	targetRoles, prior, err := s.loadTargetRoles(ctx, targetIdentityID)
	if err != nil {
		return err
	}

	for _, r := range targetRoles {
		if r.IsSuperadmin && !next.IsSuperadmin {
			s.auditLogger.Log(ctx, audit.Event{
				Action:     audit.ActionRoleChange,
				ActorID:    actor.UserID,
				ActorEmail: actor.Email,
				Target:     targetIdentityID,
				Detail:     map[string]any{"reason": audit.ReasonCannotDemoteSuperadmin, "next_role": next.Name},
			})
			return ErrCannotDemoteSuperadmin
		}
	}

	// Unchanged membership is a silent no-op; only actual changes are audited.
	if len(targetRoles) == 1 && targetRoles[0].ID == next.ID {
		return nil
	}

	if err := s.memberships.Replace(ctx, targetIdentityID, next.ID, actor.UserID); err != nil {
		return fmt.Errorf("failed to replace membership: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Action:     audit.ActionRoleChange,
		ActorID:    actor.UserID,
		ActorEmail: actor.Email,
		Target:     targetIdentityID,
		Detail:     map[string]any{"from": prior, "to": next.Name, "identity": targetIdentityID},
	})
	return nil
}

func (s *Service) loadTargetRoles(ctx context.Context, identityID string) ([]*rbac.Role, string, error) {
	roleIDs, err := s.memberships.ListRoleIDs(ctx, identityID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list target memberships: %w", err)
	}
	held := make(map[int64]bool, len(roleIDs))
	for _, id := range roleIDs {
		held[id] = true
	}

	all, err := s.roles.List(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list roles: %w", err)
	}

	var roles []*rbac.Role
	for _, r := range all {
		if held[r.ID] {
			roles = append(roles, r)
		}
	}

	prior := ""
	if p := rbac.PrimaryRole(roles); p != nil {
		prior = p.Name
	}
	return roles, prior, nil
}
