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

package rbac

import (
	"errors"
	"time"
)

// Domain errors
var (
	ErrRoleNotFound      = errors.New("role not found")
	ErrRoleAlreadyExists = errors.New("role already exists")
	ErrRoleProtected     = errors.New("role is protected")
	ErrGrantNotFound     = errors.New("grant not found")
	ErrInvalidLevel      = errors.New("invalid permission level")
)

// Reserved role names seeded by the initial schema migration.
const (
	// RoleSuperadmin is the protected role. It can never be deleted and its
	// superadmin flag can never be cleared.
	RoleSuperadmin = "superadmin"

	// RoleAdmin is a high-rank role without the superadmin override.
	RoleAdmin = "admin"

	// RoleMember is the lowest-privilege default role, auto-assigned to
	// identities that hold no memberships at first session resolution.
	RoleMember = "member"
)

// IsProtectedRole reports whether the role name is in the protected-name set.
func IsProtectedRole(name string) bool {
	return name == RoleSuperadmin
}

// Role is a named role in the registry. Rank orders roles for display and
// primary-role selection only; it never participates in permission
// aggregation. Role IDs are BIGSERIAL and are never reused, so an orphaned
// grant can never silently re-attach to a later role.
type Role struct {
	ID           int64
	Name         string
	Label        string
	Rank         int
	IsSuperadmin bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Grant assigns a permission level to a role for one route. At most one row
// exists per (role, route) pair; a level of None is represented by row
// absence, never by a stored row.
type Grant struct {
	RoleID int64
	Route  string
	Level  Level
}

// Membership links an identity to a role. An identity may hold any number of
// roles simultaneously.
type Membership struct {
	IdentityID string
	RoleID     int64
	GrantedAt  time.Time
	GrantedBy  string
}
