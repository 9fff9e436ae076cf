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

package rbac_test

import (
	"testing"

	"github.com/hearthtools/hearth/internal/rbac"
	"github.com/stretchr/testify/assert"
)

func TestResolve_MaxOverRoles(t *testing.T) {
	roles := []*rbac.Role{
		{ID: 1, Name: "member", Rank: 10},
		{ID: 2, Name: "admin", Rank: 50},
	}
	grants := []*rbac.Grant{
		{RoleID: 1, Route: rbac.RouteFiles, Level: rbac.LevelRead},
		{RoleID: 2, Route: rbac.RouteFiles, Level: rbac.LevelAdmin},
	}

	eff := rbac.Resolve(roles, grants)

	assert.False(t, eff.Superadmin)
	assert.Equal(t, rbac.LevelAdmin, eff.LevelFor(rbac.RouteFiles))
}

func TestResolve_SuperadminShortCircuit(t *testing.T) {
	roles := []*rbac.Role{
		{ID: 1, Name: "superadmin", IsSuperadmin: true},
	}

	// Empty grant table: superadmin access is unconditional, not grant-derived.
	eff := rbac.Resolve(roles, nil)

	assert.True(t, eff.Superadmin)
	for _, d := range rbac.Routes {
		assert.True(t, eff.Allows(d.Key, rbac.LevelAdmin))
	}
	assert.True(t, eff.Allows("tools/never-declared", rbac.LevelAdmin))
}

func TestResolve_AbsentGrantIsNone(t *testing.T) {
	roles := []*rbac.Role{{ID: 1, Name: "member"}}

	eff := rbac.Resolve(roles, nil)

	assert.Equal(t, rbac.LevelNone, eff.LevelFor(rbac.RouteJournal))
	assert.False(t, eff.Allows(rbac.RouteJournal, rbac.LevelRead))
}

func TestResolve_DescriptorDefaultNeverGrantsAccess(t *testing.T) {
	// tools/files declares a Read display default, but an identity with no
	// explicit grant must still resolve to None.
	d, ok := rbac.DescriptorFor(rbac.RouteFiles)
	assert.True(t, ok)
	assert.Equal(t, rbac.LevelRead, d.DefaultLevel)

	eff := rbac.Resolve([]*rbac.Role{{ID: 1, Name: "member"}}, nil)
	assert.Equal(t, rbac.LevelNone, eff.LevelFor(rbac.RouteFiles))
}

func TestResolve_IgnoresGrantsOfUnheldRoles(t *testing.T) {
	roles := []*rbac.Role{{ID: 1, Name: "member"}}
	grants := []*rbac.Grant{
		{RoleID: 1, Route: rbac.RouteFiles, Level: rbac.LevelRead},
		{RoleID: 99, Route: rbac.RouteFiles, Level: rbac.LevelAdmin},
	}

	eff := rbac.Resolve(roles, grants)

	assert.Equal(t, rbac.LevelRead, eff.LevelFor(rbac.RouteFiles))
}

func TestResolve_DuplicateRowsTakeMax(t *testing.T) {
	roles := []*rbac.Role{{ID: 1, Name: "member"}}
	grants := []*rbac.Grant{
		{RoleID: 1, Route: rbac.RouteCalendar, Level: rbac.LevelWrite},
		{RoleID: 1, Route: rbac.RouteCalendar, Level: rbac.LevelRead},
	}

	eff := rbac.Resolve(roles, grants)

	assert.Equal(t, rbac.LevelWrite, eff.LevelFor(rbac.RouteCalendar))
}

func TestPrimaryRole(t *testing.T) {
	assert.Nil(t, rbac.PrimaryRole(nil))

	roles := []*rbac.Role{
		{ID: 1, Name: "member", Rank: 10},
		{ID: 2, Name: "admin", Rank: 50},
	}
	assert.Equal(t, "admin", rbac.PrimaryRole(roles).Name)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    rbac.Level
		wantErr bool
	}{
		{"None", rbac.LevelNone, false},
		{"read", rbac.LevelRead, false},
		{"WRITE", rbac.LevelWrite, false},
		{"Admin", rbac.LevelAdmin, false},
		{"", rbac.LevelNone, false},
		{"owner", rbac.LevelNone, true},
	}
	for _, tt := range tests {
		got, err := rbac.ParseLevel(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, rbac.ErrInvalidLevel, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestLevelOrdering(t *testing.T) {
	assert.True(t, rbac.LevelNone < rbac.LevelRead)
	assert.True(t, rbac.LevelRead < rbac.LevelWrite)
	assert.True(t, rbac.LevelWrite < rbac.LevelAdmin)
	assert.Equal(t, "Admin", rbac.LevelAdmin.String())
}

func TestIsProtectedRole(t *testing.T) {
	assert.True(t, rbac.IsProtectedRole(rbac.RoleSuperadmin))
	assert.False(t, rbac.IsProtectedRole(rbac.RoleAdmin))
	assert.False(t, rbac.IsProtectedRole(rbac.RoleMember))
}
