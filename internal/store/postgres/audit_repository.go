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
	"encoding/json"
	"fmt"

	"github.com/hearthtools/hearth/internal/audit"
)

// AuditRepository implements audit.Store and audit.Reader
type AuditRepository struct {
	db *DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert persists a single audit event
func (r *AuditRepository) Insert(ctx context.Context, event *audit.Event) error {
	detail, err := json.Marshal(event.Detail)
	if err != nil {
		return fmt.Errorf("failed to marshal audit detail: %w", err)
	}

	_, err = r.db.pool.Exec(ctx, `
		INSERT INTO audit_events (id, action, actor_id, actor_email, target, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		event.ID, event.Action, event.ActorID, event.ActorEmail,
		event.Target, detail, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// ListRecent retrieves the most recent audit events, newest first
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]*audit.Event, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, action, actor_id, actor_email, target, detail, created_at
		FROM audit_events
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []*audit.Event
	for rows.Next() {
		var e audit.Event
		var detail []byte
		if err := rows.Scan(
			&e.ID, &e.Action, &e.ActorID, &e.ActorEmail, &e.Target, &detail, &e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &e.Detail); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit detail: %w", err)
			}
		}
		events = append(events, &e)
	}

	return events, rows.Err()
}
