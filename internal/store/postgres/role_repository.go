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
	"errors"
	"fmt"

	"github.com/hearthtools/hearth/internal/rbac"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// RoleRepository implements rbac.RoleRepository
type RoleRepository struct {
	db *DB
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// Create creates a new role
func (r *RoleRepository) Create(ctx context.Context, role *rbac.Role) error {
	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO roles (name, label, rank, is_superadmin)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`,
		role.Name, role.Label, role.Rank, role.IsSuperadmin,
	).Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return rbac.ErrRoleAlreadyExists
		}
		return fmt.Errorf("failed to create role: %w", err)
	}

	return nil
}

// GetByID retrieves a role by ID
func (r *RoleRepository) GetByID(ctx context.Context, id int64) (*rbac.Role, error) {
	return r.scanOne(ctx, `
		SELECT id, name, label, rank, is_superadmin, created_at, updated_at
		FROM roles
		WHERE id = $1
	`, id)
}

// GetByName retrieves a role by machine name
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*rbac.Role, error) {
	return r.scanOne(ctx, `
		SELECT id, name, label, rank, is_superadmin, created_at, updated_at
		FROM roles
		WHERE name = $1
	`, name)
}

func (r *RoleRepository) scanOne(ctx context.Context, query string, arg any) (*rbac.Role, error) {
	var role rbac.Role
	err := r.db.pool.QueryRow(ctx, query, arg).Scan(
		&role.ID, &role.Name, &role.Label, &role.Rank, &role.IsSuperadmin,
		&role.CreatedAt, &role.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rbac.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &role, nil
}

// Update updates label, rank and superadmin flag
func (r *RoleRepository) Update(ctx context.Context, role *rbac.Role) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE roles SET
			label = $2,
			rank = $3,
			is_superadmin = $4,
			updated_at = now()
		WHERE id = $1
	`,
		role.ID, role.Label, role.Rank, role.IsSuperadmin,
	)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return rbac.ErrRoleNotFound
	}
	return nil
}

// Delete removes a role; grants and memberships cascade via foreign keys
func (r *RoleRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return rbac.ErrRoleNotFound
	}
	return nil
}

// List retrieves all roles ordered by rank descending
func (r *RoleRepository) List(ctx context.Context) ([]*rbac.Role, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, name, label, rank, is_superadmin, created_at, updated_at
		FROM roles
		ORDER BY rank DESC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []*rbac.Role
	for rows.Next() {
		var role rbac.Role
		if err := rows.Scan(
			&role.ID, &role.Name, &role.Label, &role.Rank, &role.IsSuperadmin,
			&role.CreatedAt, &role.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, &role)
	}

	return roles, rows.Err()
}
