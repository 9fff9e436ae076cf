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

// Package rbactest provides an in-memory implementation of the rbac
// repository interfaces for tests. It mirrors the storage semantics the
// postgres repositories rely on: monotonic never-reused role IDs, (role,
// route) uniqueness, cascade on role deletion, and idempotent membership
// assignment.
package rbactest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hearthtools/hearth/internal/rbac"
)

// Fixture implements rbac.RoleRepository, rbac.GrantRepository and
// rbac.MembershipRepository over in-process maps.
type Fixture struct {
	mu          sync.Mutex
	nextRoleID  int64
	roles       map[int64]*rbac.Role
	grants      map[string]*rbac.Grant
	memberships map[string]map[int64]*rbac.Membership

	// FailWrites, when set, is returned by every mutating method. Used to
	// exercise storage-failure paths.
	FailWrites error
}

// New creates an empty fixture.
func New() *Fixture {
	return &Fixture{
		nextRoleID:  1,
		roles:       make(map[int64]*rbac.Role),
		grants:      make(map[string]*rbac.Grant),
		memberships: make(map[string]map[int64]*rbac.Membership),
	}
}

// Seeded creates a fixture holding the three migration-seeded roles and
// returns it together with the superadmin, admin and member roles.
func Seeded() (*Fixture, *rbac.Role, *rbac.Role, *rbac.Role) {
	f := New()
	ctx := context.Background()
	super := &rbac.Role{Name: rbac.RoleSuperadmin, Label: "Superadmin", Rank: 100, IsSuperadmin: true}
	admin := &rbac.Role{Name: rbac.RoleAdmin, Label: "Admin", Rank: 50}
	member := &rbac.Role{Name: rbac.RoleMember, Label: "Member", Rank: 10}
	for _, r := range []*rbac.Role{super, admin, member} {
		if err := f.Create(ctx, r); err != nil {
			panic(err)
		}
	}
	return f, super, admin, member
}

func grantKey(roleID int64, route string) string {
	return fmt.Sprintf("%d|%s", roleID, route)
}

// --- rbac.RoleRepository ---

func (f *Fixture) Create(ctx context.Context, role *rbac.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWrites != nil {
		return f.FailWrites
	}
	for _, r := range f.roles {
		if r.Name == role.Name {
			return rbac.ErrRoleAlreadyExists
		}
	}
	role.ID = f.nextRoleID
	f.nextRoleID++
	now := time.Now()
	role.CreatedAt = now
	role.UpdatedAt = now
	cp := *role
	f.roles[role.ID] = &cp
	return nil
}

func (f *Fixture) GetByID(ctx context.Context, id int64) (*rbac.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.roles[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, rbac.ErrRoleNotFound
}

func (f *Fixture) GetByName(ctx context.Context, name string) (*rbac.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.roles {
		if r.Name == name {
			cp := *r
			return &cp, nil
		}
	}
	return nil, rbac.ErrRoleNotFound
}

func (f *Fixture) Update(ctx context.Context, role *rbac.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWrites != nil {
		return f.FailWrites
	}
	r, ok := f.roles[role.ID]
	if !ok {
		return rbac.ErrRoleNotFound
	}
	r.Label = role.Label
	r.Rank = role.Rank
	r.IsSuperadmin = role.IsSuperadmin
	r.UpdatedAt = time.Now()
	return nil
}

func (f *Fixture) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWrites != nil {
		return f.FailWrites
	}
	if _, ok := f.roles[id]; !ok {
		return rbac.ErrRoleNotFound
	}
	delete(f.roles, id)
	for key, g := range f.grants {
		if g.RoleID == id {
			delete(f.grants, key)
		}
	}
	for _, held := range f.memberships {
		delete(held, id)
	}
	return nil
}

func (f *Fixture) List(ctx context.Context) ([]*rbac.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*rbac.Role, 0, len(f.roles))
	for _, r := range f.roles {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank > out[j].Rank
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// --- rbac.GrantRepository ---

// Grants returns the fixture viewed as a rbac.GrantRepository. A separate
// view is needed because Delete collides with the role repository's Delete.
func (f *Fixture) Grants() rbac.GrantRepository {
	return grantView{f}
}

type grantView struct{ f *Fixture }

func (v grantView) Upsert(ctx context.Context, grant *rbac.Grant) error {
	return v.f.Upsert(ctx, grant)
}

func (v grantView) Delete(ctx context.Context, roleID int64, route string) error {
	return v.f.DeleteGrant(ctx, roleID, route)
}

func (v grantView) ListForRoles(ctx context.Context, roleIDs []int64) ([]*rbac.Grant, error) {
	return v.f.ListForRoles(ctx, roleIDs)
}

func (v grantView) ListAll(ctx context.Context) ([]*rbac.Grant, error) {
	return v.f.ListAll(ctx)
}

func (f *Fixture) Upsert(ctx context.Context, grant *rbac.Grant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWrites != nil {
		return f.FailWrites
	}
	cp := *grant
	f.grants[grantKey(grant.RoleID, grant.Route)] = &cp
	return nil
}

func (f *Fixture) DeleteGrant(ctx context.Context, roleID int64, route string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWrites != nil {
		return f.FailWrites
	}
	delete(f.grants, grantKey(roleID, route))
	return nil
}

func (f *Fixture) ListForRoles(ctx context.Context, roleIDs []int64) ([]*rbac.Grant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[int64]bool, len(roleIDs))
	for _, id := range roleIDs {
		want[id] = true
	}
	var out []*rbac.Grant
	for _, g := range f.grants {
		if want[g.RoleID] {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *Fixture) ListAll(ctx context.Context) ([]*rbac.Grant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*rbac.Grant, 0, len(f.grants))
	for _, g := range f.grants {
		cp := *g
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RoleID != out[j].RoleID {
			return out[i].RoleID < out[j].RoleID
		}
		return out[i].Route < out[j].Route
	})
	return out, nil
}

// --- rbac.MembershipRepository ---

func (f *Fixture) ListRoleIDs(ctx context.Context, identityID string) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	held := f.memberships[identityID]
	out := make([]int64, 0, len(held))
	for id := range held {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (f *Fixture) Assign(ctx context.Context, m *rbac.Membership) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWrites != nil {
		return f.FailWrites
	}
	if _, ok := f.roles[m.RoleID]; !ok {
		return rbac.ErrRoleNotFound
	}
	held, ok := f.memberships[m.IdentityID]
	if !ok {
		held = make(map[int64]*rbac.Membership)
		f.memberships[m.IdentityID] = held
	}
	if _, exists := held[m.RoleID]; exists {
		return nil
	}
	cp := *m
	held[m.RoleID] = &cp
	return nil
}

func (f *Fixture) Replace(ctx context.Context, identityID string, roleID int64, grantedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWrites != nil {
		return f.FailWrites
	}
	if _, ok := f.roles[roleID]; !ok {
		return rbac.ErrRoleNotFound
	}
	f.memberships[identityID] = map[int64]*rbac.Membership{
		roleID: {IdentityID: identityID, RoleID: roleID, GrantedAt: time.Now(), GrantedBy: grantedBy},
	}
	return nil
}

func (f *Fixture) AnySuperadmin(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, held := range f.memberships {
		for roleID := range held {
			if r, ok := f.roles[roleID]; ok && r.IsSuperadmin {
				return true, nil
			}
		}
	}
	return false, nil
}

// MembershipCount returns the number of memberships an identity holds.
func (f *Fixture) MembershipCount(identityID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.memberships[identityID])
}

// RoleCount returns the number of roles in the registry.
func (f *Fixture) RoleCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.roles)
}
