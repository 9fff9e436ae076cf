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

package admin

import (
	"context"
	"fmt"
	"sort"

	"github.com/hearthtools/hearth/internal/audit"
	"github.com/hearthtools/hearth/internal/rbac"
	"github.com/hearthtools/hearth/internal/session"
)

// RouteOption is one row of the permission-editing form for a single role:
// the route, its display metadata, and the level the form should show. The
// shown level is the stored grant when one exists, otherwise the descriptor's
// display default. This default is form pre-population only; the resolver
// never turns it into access.
type RouteOption struct {
	Route       string     `json:"route"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
	Known       bool       `json:"known"`
	Level       rbac.Level `json:"level"`
	HasGrant    bool       `json:"has_grant"`
}

// ListRoles returns all roles, rank-descending.
func (s *Service) ListRoles(ctx context.Context, actor *session.Session) ([]*rbac.Role, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

// RouteOptions returns the permission form rows for one role: every declared
// route plus any custom routes that exist only as grant rows (those carry a
// display default of None).
func (s *Service) RouteOptions(ctx context.Context, actor *session.Session, roleID int64) ([]RouteOption, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}

	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		return nil, fmt.Errorf("failed to load role: %w", err)
	}

	grants, err := s.grants.ListForRoles(ctx, []int64{roleID})
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	granted := make(map[string]rbac.Level, len(grants))
	for _, g := range grants {
		granted[g.Route] = g.Level
	}

	var options []RouteOption
	for _, d := range rbac.Routes {
		opt := RouteOption{
			Route:       d.Key,
			Label:       d.Label,
			Description: d.Description,
			Known:       true,
			Level:       d.DefaultLevel,
		}
		if level, ok := granted[d.Key]; ok {
			opt.Level = level
			opt.HasGrant = true
		}
		options = append(options, opt)
		delete(granted, d.Key)
	}

	// Custom routes: grant rows without a matching descriptor.
	custom := make([]RouteOption, 0, len(granted))
	for route, level := range granted {
		custom = append(custom, RouteOption{Route: route, Level: level, HasGrant: true})
	}
	sort.Slice(custom, func(i, j int) bool { return custom[i].Route < custom[j].Route })

	return append(options, custom...), nil
}

// RecentEvents returns the latest persisted audit events.
func (s *Service) RecentEvents(ctx context.Context, actor *session.Session, limit int) ([]*audit.Event, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	events, err := s.auditReader.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	return events, nil
}
