package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPurpose: Validates that sensitive keys are correctly identified as secrets to prevent them from being logged in plaintext.
// Scope: Unit Test
// Security: Data Masking and Leakage Prevention (CWE-532)
// Expected: Returns true for keys containing 'password', 'token', 'secret', etc., and false for non-sensitive keys.
// Test Case ID: AUD-01
func TestAudit_IsSecret(t *testing.T) {
	tests := []struct {
		key      string
		isSecret bool
	}{
		{"password", true},
		{"Password", true},
		{"PASSWORD", true},
		{"token", true},
		{"access_token", true},
		{"secret", true},
		{"api_key", true},
		{"hash", true},
		{"password_hash", true},
		{"credential", true},
		{"private_key", true},
		{"actor_id", false},
		{"route", false},
		{"email", false},
		{"required", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := isSecret(tt.key); got != tt.isSecret {
				t.Errorf("isSecret(%q) = %v, want %v", tt.key, got, tt.isSecret)
			}
		})
	}
}

type recordingStore struct {
	events []*Event
	err    error
}

func (s *recordingStore) Insert(ctx context.Context, event *Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

// TestPurpose: Validates that the store-backed sink assigns IDs and timestamps before persisting.
// Scope: Unit Test
// Expected: One row written with non-empty ID and timestamp.
// Test Case ID: AUD-02
func TestAudit_StoreLoggerPersists(t *testing.T) {
	store := &recordingStore{}
	l := NewStoreLogger(store, func() string { return "evt-1" })

	l.Log(context.Background(), Event{
		Action:  ActionAccessDenied,
		ActorID: "user-1",
		Target:  "tools/files",
		Detail:  map[string]any{"reason": ReasonInsufficientRole},
	})

	assert.Len(t, store.events, 1)
	assert.Equal(t, "evt-1", store.events[0].ID)
	assert.False(t, store.events[0].Timestamp.IsZero())
}

// TestPurpose: Validates fire-and-forget semantics: a failing store must never escalate into the caller.
// Scope: Unit Test
// Expected: Log returns normally when the store errors.
// Test Case ID: AUD-03
func TestAudit_StoreLoggerSwallowsFailure(t *testing.T) {
	store := &recordingStore{err: errors.New("connection refused")}
	l := NewStoreLogger(store, func() string { return "evt-1" })

	assert.NotPanics(t, func() {
		l.Log(context.Background(), Event{Action: ActionRoleChange, Target: "user-2"})
	})
	assert.Empty(t, store.events)
}

// TestPurpose: Validates that the fan-out sink delivers each event to every configured sink.
// Scope: Unit Test
// Expected: Both stores receive the event.
// Test Case ID: AUD-04
func TestAudit_MultiLoggerFansOut(t *testing.T) {
	a := &recordingStore{}
	b := &recordingStore{}
	l := NewMultiLogger(
		NewStoreLogger(a, func() string { return "evt-a" }),
		NewStoreLogger(b, func() string { return "evt-b" }),
	)

	l.Log(context.Background(), Event{Action: ActionSecurity, Target: "bootstrap"})

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}
