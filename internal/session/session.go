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

package session

import (
	"github.com/hearthtools/hearth/internal/rbac"
)

// Session is the per-request view of an identity: who they are, which roles
// they hold, and their resolved permissions. It is rebuilt from live reads on
// every request and never cached across requests.
type Session struct {
	SignedIn     bool
	UserID       string
	Email        string
	Roles        []*rbac.Role
	PrimaryRole  *rbac.Role
	IsSuperadmin bool
	Permissions  rbac.Effective
}

// Anonymous returns the session for an unauthenticated request.
func Anonymous() *Session {
	return &Session{Permissions: rbac.Effective{Levels: map[string]rbac.Level{}}}
}

// RoleNames returns the machine names of the held roles, for audit detail.
func (s *Session) RoleNames() []string {
	names := make([]string, 0, len(s.Roles))
	for _, r := range s.Roles {
		names = append(names, r.Name)
	}
	return names
}
