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

	"github.com/hearthtools/hearth/internal/rbac"
)

// GrantRepository implements rbac.GrantRepository
type GrantRepository struct {
	db *DB
}

// NewGrantRepository creates a new grant repository
func NewGrantRepository(db *DB) *GrantRepository {
	return &GrantRepository{db: db}
}

// Upsert writes the single row for (role, route). Concurrent writers resolve
// last-write-wins; the row is always either the old or new level, never torn.
func (r *GrantRepository) Upsert(ctx context.Context, grant *rbac.Grant) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO route_grants (role_id, route, level)
		VALUES ($1, $2, $3)
		ON CONFLICT (role_id, route) DO UPDATE SET level = EXCLUDED.level
	`,
		grant.RoleID, grant.Route, int(grant.Level),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert grant: %w", err)
	}
	return nil
}

// Delete removes the row for (role, route); deleting an absent row is fine
func (r *GrantRepository) Delete(ctx context.Context, roleID int64, route string) error {
	_, err := r.db.pool.Exec(ctx, `
		DELETE FROM route_grants WHERE role_id = $1 AND route = $2
	`, roleID, route)
	if err != nil {
		return fmt.Errorf("failed to delete grant: %w", err)
	}
	return nil
}

// ListForRoles retrieves all grants belonging to the given roles
func (r *GrantRepository) ListForRoles(ctx context.Context, roleIDs []int64) ([]*rbac.Grant, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.pool.Query(ctx, `
		SELECT role_id, route, level
		FROM route_grants
		WHERE role_id = ANY($1)
	`, roleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	return scanGrants(rows)
}

// ListAll retrieves every grant row
func (r *GrantRepository) ListAll(ctx context.Context) ([]*rbac.Grant, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT role_id, route, level
		FROM route_grants
		ORDER BY role_id, route
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	return scanGrants(rows)
}

type grantRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanGrants(rows grantRows) ([]*rbac.Grant, error) {
	var grants []*rbac.Grant
	for rows.Next() {
		var g rbac.Grant
		var level int
		if err := rows.Scan(&g.RoleID, &g.Route, &level); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		g.Level = rbac.Level(level)
		grants = append(grants, &g)
	}
	return grants, rows.Err()
}
