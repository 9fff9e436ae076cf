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

package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hearthtools/hearth/internal/audit"
	"github.com/hearthtools/hearth/internal/id"
)

// Service provides local account business logic for deployments that do not
// front Hearth with an external identity provider.
type Service struct {
	repo        UserRepository
	hasher      *PasswordHasher
	tokens      *TokenService
	auditLogger audit.Logger
}

// NewService creates a new identity service
func NewService(repo UserRepository, hasher *PasswordHasher, tokens *TokenService, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		hasher:      hasher,
		tokens:      tokens,
		auditLogger: auditLogger,
	}
}

// Register creates a local account with an argon2id-hashed password.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("valid email is required")
	}
	if len(password) < 10 {
		return nil, fmt.Errorf("password must be at least 10 characters")
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrUserAlreadyExists
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &User{
		ID:           id.NewUUIDv7(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login verifies credentials and issues a session token. Failed attempts are
// recorded on the audit sink; credential and lookup failures are collapsed
// into ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*Identity, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		s.auditFailedLogin(ctx, email, "unknown account")
		return nil, "", ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil || !ok {
		s.auditFailedLogin(ctx, email, "password mismatch")
		return nil, "", ErrInvalidCredentials
	}

	ident := &Identity{ID: user.ID, Email: user.Email}
	token, err := s.tokens.Issue(ident)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	return ident, token, nil
}

func (s *Service) auditFailedLogin(ctx context.Context, email, reason string) {
	s.auditLogger.Log(ctx, audit.Event{
		Action:     audit.ActionSecurity,
		ActorEmail: email,
		Target:     "login",
		Detail:     map[string]any{"reason": reason},
	})
}
