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

import "context"

// RoleRepository defines the interface for role registry persistence
type RoleRepository interface {
	// Create creates a new role
	Create(ctx context.Context, role *Role) error

	// GetByID retrieves a role by ID
	GetByID(ctx context.Context, id int64) (*Role, error)

	// GetByName retrieves a role by machine name
	GetByName(ctx context.Context, name string) (*Role, error)

	// Update updates label, rank and superadmin flag
	Update(ctx context.Context, role *Role) error

	// Delete removes a role; grants and memberships cascade
	Delete(ctx context.Context, id int64) error

	// List retrieves all roles ordered by rank descending
	List(ctx context.Context) ([]*Role, error)
}

// GrantRepository defines the interface for the permission table
type GrantRepository interface {
	// Upsert writes the single row for (role, route), overwriting any prior level
	Upsert(ctx context.Context, grant *Grant) error

	// Delete removes the row for (role, route) if present
	Delete(ctx context.Context, roleID int64, route string) error

	// ListForRoles retrieves all grants belonging to the given roles
	ListForRoles(ctx context.Context, roleIDs []int64) ([]*Grant, error)

	// ListAll retrieves every grant row (administration listing)
	ListAll(ctx context.Context) ([]*Grant, error)
}

// MembershipRepository defines the interface for identity-role membership
type MembershipRepository interface {
	// ListRoleIDs retrieves the role IDs held by an identity
	ListRoleIDs(ctx context.Context, identityID string) ([]int64, error)

	// Assign adds a membership; assigning an already-held role is a no-op
	Assign(ctx context.Context, m *Membership) error

	// Replace atomically swaps an identity's memberships for the single given role
	Replace(ctx context.Context, identityID string, roleID int64, grantedBy string) error

	// AnySuperadmin reports whether any identity holds a superadmin role
	AnySuperadmin(ctx context.Context) (bool, error)
}
