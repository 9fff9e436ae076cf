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
	"errors"
	"time"
)

// Domain errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Identity is the fixed shape the rest of the system sees for a signed-in
// principal. Provider-specific claim formats are translated into this struct
// at exactly one point (the Verifier implementation); nothing downstream
// inspects raw claims.
type Identity struct {
	ID    string
	Email string
}

// Verifier turns a bearer credential from the request into an Identity.
// A nil Identity with ErrInvalidToken means unauthenticated.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// User represents a local account for self-hosted deployments without an
// external identity provider.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository defines the interface for local account persistence
type UserRepository interface {
	// Create creates a new local account
	Create(ctx context.Context, user *User) error

	// GetByID retrieves an account by ID
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail retrieves an account by email
	GetByEmail(ctx context.Context, email string) (*User, error)
}
