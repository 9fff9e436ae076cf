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

// Effective is the resolved permission set for one identity. When Superadmin
// is true the per-route map is irrelevant: access is unconditional, not
// merely Admin on every route.
type Effective struct {
	Superadmin bool
	Levels     map[string]Level
}

// LevelFor returns the effective level for a route key, None if absent.
func (e Effective) LevelFor(route string) Level {
	return e.Levels[route]
}

// Allows reports whether the effective permissions satisfy the required
// minimum level on the route. The superadmin flag short-circuits the level
// comparison entirely.
func (e Effective) Allows(route string, required Level) bool {
	if e.Superadmin {
		return true
	}
	return e.LevelFor(route) >= required
}

// Resolve computes the effective permission set from an identity's held roles
// and the grant rows belonging to those roles. It is a pure function: loading
// rows is the caller's responsibility.
//
// Aggregation is max-over-roles: holding more roles never reduces access.
// Duplicate (role, route) rows are deduplicated upstream by the storage
// uniqueness constraint, but the max keeps the result correct if any slip
// through.
func Resolve(roles []*Role, grants []*Grant) Effective {
	eff := Effective{Levels: make(map[string]Level, len(grants))}

	held := make(map[int64]bool, len(roles))
	for _, r := range roles {
		held[r.ID] = true
		if r.IsSuperadmin {
			eff.Superadmin = true
		}
	}

	for _, g := range grants {
		if !held[g.RoleID] {
			continue
		}
		if g.Level > eff.Levels[g.Route] {
			eff.Levels[g.Route] = g.Level
		}
	}

	return eff
}

// PrimaryRole returns the highest-rank role among those held, nil for an
// empty set. Informational only; it never participates in gating.
func PrimaryRole(roles []*Role) *Role {
	var primary *Role
	for _, r := range roles {
		if primary == nil || r.Rank > primary.Rank {
			primary = r
		}
	}
	return primary
}
