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

package audit

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Action kinds
const (
	ActionAccessDenied = "access_denied"
	ActionRoleChange   = "role_change"
	ActionRoleCreated  = "role_created"
	ActionRoleUpdated  = "role_updated"
	ActionRoleDeleted  = "role_deleted"
	ActionGrantUpsert  = "grant_upserted"
	ActionGrantRemoved = "grant_removed"
	ActionSecurity     = "security"
)

// Reason codes carried in event detail. The two role-change refusals are
// distinguished so operators can tell a privilege probe from a demotion
// attempt.
const (
	ReasonInsufficientRole          = "insufficient role"
	ReasonRoleChangeNotSuperadmin   = "role_change_requires_superadmin"
	ReasonCannotDemoteSuperadmin    = "cannot_demote_superadmin"
	ReasonSuperadminCreateForbidden = "superadmin_role_creation_requires_superadmin"
)

// Event represents an auditable action. Events are append-only; nothing in
// the system mutates or deletes one after it is written.
type Event struct {
	ID         string
	Action     string
	ActorID    string
	ActorEmail string
	Target     string
	Detail     map[string]any
	Timestamp  time.Time
}

// Logger defines the fire-and-forget audit sink. Implementations must never
// let a failed write escalate into the caller: losing an audit record must
// not block or corrupt the decision it describes.
type Logger interface {
	Log(ctx context.Context, event Event)
}

// Store is the persistence half of the sink, implemented by the postgres
// audit repository.
type Store interface {
	Insert(ctx context.Context, event *Event) error
}

// Reader lists persisted events for the admin console, newest first.
type Reader interface {
	ListRecent(ctx context.Context, limit int) ([]*Event, error)
}

// SlogLogger implements Logger using slog
type SlogLogger struct{}

// NewSlogLogger creates a new audit logger
func NewSlogLogger() *SlogLogger {
	return &SlogLogger{}
}

// Log records an audit event
func (l *SlogLogger) Log(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	attrs := []any{
		slog.String("audit_action", event.Action),
		slog.String("actor_id", event.ActorID),
		slog.String("target", event.Target),
		slog.Time("timestamp", event.Timestamp),
	}

	if event.ActorEmail != "" {
		attrs = append(attrs, slog.String("actor_email", event.ActorEmail))
	}

	if len(event.Detail) > 0 {
		group := []any{}
		for k, v := range event.Detail {
			// Redact secrets
			if isSecret(k) {
				v = "[REDACTED]"
			}
			group = append(group, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("detail", group...))
	}

	slog.InfoContext(ctx, "AUDIT_EVENT", append(attrs, slog.String("component", "audit"))...)
}

// StoreLogger implements Logger on top of a Store. Write failures are logged
// and discarded.
type StoreLogger struct {
	store Store
	newID func() string
}

// NewStoreLogger creates a store-backed audit logger. newID supplies event
// identifiers (id.NewUUIDv7 in production wiring).
func NewStoreLogger(store Store, newID func() string) *StoreLogger {
	return &StoreLogger{store: store, newID: newID}
}

// Log persists an audit event, best-effort.
func (l *StoreLogger) Log(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" && l.newID != nil {
		event.ID = l.newID()
	}
	if err := l.store.Insert(ctx, &event); err != nil {
		slog.WarnContext(ctx, "audit write failed",
			slog.String("audit_action", event.Action),
			slog.String("target", event.Target),
			slog.String("error", err.Error()),
		)
	}
}

// MultiLogger fans an event out to several sinks.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a fan-out audit logger
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log sends the event to every sink.
func (l *MultiLogger) Log(ctx context.Context, event Event) {
	for _, logger := range l.loggers {
		logger.Log(ctx, event)
	}
}

// isSecret checks if a key likely contains a secret
func isSecret(key string) bool {
	k := strings.ToLower(key)
	secrets := []string{"password", "secret", "token", "key", "authorization", "hash", "credential"}
	for _, s := range secrets {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}
