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

// Package gate is the enforcement point wrapping protected content. It
// evaluates a resolved session against a route's required minimum level and
// records denied authenticated attempts on the audit sink.
package gate

import (
	"context"

	"github.com/hearthtools/hearth/internal/audit"
	"github.com/hearthtools/hearth/internal/rbac"
	"github.com/hearthtools/hearth/internal/session"
)

// Reason identifies why access was denied.
type Reason string

const (
	ReasonUnauthenticated  Reason = "unauthenticated"
	ReasonInsufficientRole Reason = "insufficient_role"
)

// Decision is the tri-state outcome of a gate evaluation: allowed,
// denied-unauthenticated, or denied-insufficient-role.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Gate evaluates access decisions.
type Gate struct {
	auditLogger audit.Logger
}

// New creates a new access gate
func New(auditLogger audit.Logger) *Gate {
	return &Gate{auditLogger: auditLogger}
}

// DefaultLevel is the required minimum when a caller does not specify one.
const DefaultLevel = rbac.LevelRead

// Evaluate decides whether the session may access the route at the required
// level.
//
// Unauthenticated requests are denied without an audit record: absence of
// identity is ordinary browsing, not a security anomaly. A superadmin session
// is allowed unconditionally, skipping the level comparison. Authenticated
// denials are audited best-effort, strictly after the decision is made; a
// failed audit write never alters or blocks the decision (the sink swallows
// its own errors).
func (g *Gate) Evaluate(ctx context.Context, sess *session.Session, route string, required rbac.Level) Decision {
	if sess == nil || !sess.SignedIn {
		return Decision{Reason: ReasonUnauthenticated}
	}

	if sess.IsSuperadmin {
		return Decision{Allowed: true}
	}

	actual := sess.Permissions.LevelFor(route)
	if actual >= required {
		return Decision{Allowed: true}
	}

	g.auditLogger.Log(ctx, audit.Event{
		Action:     audit.ActionAccessDenied,
		ActorID:    sess.UserID,
		ActorEmail: sess.Email,
		Target:     route,
		Detail: map[string]any{
			"reason":   audit.ReasonInsufficientRole,
			"required": required.String(),
			"actual":   actual.String(),
			"roles":    sess.RoleNames(),
		},
	})

	return Decision{Reason: ReasonInsufficientRole}
}
