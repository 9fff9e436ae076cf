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

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/hearthtools/hearth/internal/rbac"
)

// MembershipRepository implements rbac.MembershipRepository
type MembershipRepository struct {
	db *DB
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// ListRoleIDs retrieves the role IDs held by an identity
func (r *MembershipRepository) ListRoleIDs(ctx context.Context, identityID string) ([]int64, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT role_id FROM role_memberships WHERE identity_id = $1 ORDER BY role_id
	`, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Assign adds a membership; assigning an already-held role is a no-op, which
// makes the default-role self-heal idempotent under concurrent requests.
func (r *MembershipRepository) Assign(ctx context.Context, m *rbac.Membership) error {
	grantedAt := m.GrantedAt
	if grantedAt.IsZero() {
		grantedAt = time.Now()
	}
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO role_memberships (identity_id, role_id, granted_at, granted_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (identity_id, role_id) DO NOTHING
	`,
		m.IdentityID, m.RoleID, grantedAt, m.GrantedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to assign membership: %w", err)
	}
	return nil
}

// Replace atomically swaps an identity's memberships for the single given
// role. Runs in one transaction so a concurrent reader sees either the old
// or the new role set, never an empty intermediate.
func (r *MembershipRepository) Replace(ctx context.Context, identityID string, roleID int64, grantedBy string) error {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM role_memberships WHERE identity_id = $1`, identityID); err != nil {
		return fmt.Errorf("failed to clear memberships: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO role_memberships (identity_id, role_id, granted_by)
		VALUES ($1, $2, $3)
	`, identityID, roleID, grantedBy); err != nil {
		return fmt.Errorf("failed to insert membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit membership replace: %w", err)
	}
	return nil
}

// AnySuperadmin reports whether any identity holds a superadmin role
func (r *MembershipRepository) AnySuperadmin(ctx context.Context) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM role_memberships m
			JOIN roles r ON r.id = m.role_id
			WHERE r.is_superadmin
		)
	`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check for superadmin membership: %w", err)
	}
	return exists, nil
}
