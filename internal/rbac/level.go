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

package rbac

import (
	"fmt"
	"strings"
)

// Level is the ordered permission level for a route.
// Comparisons use the integer ordinal: None < Read < Write < Admin.
type Level int

const (
	LevelNone Level = iota
	LevelRead
	LevelWrite
	LevelAdmin
)

// String returns the canonical label for the level.
func (l Level) String() string {
	switch l {
	case LevelNone:
		return "None"
	case LevelRead:
		return "Read"
	case LevelWrite:
		return "Write"
	case LevelAdmin:
		return "Admin"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Valid reports whether the level is one of the four defined values.
func (l Level) Valid() bool {
	return l >= LevelNone && l <= LevelAdmin
}

// ParseLevel parses a level label (case-insensitive).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return LevelNone, nil
	case "read":
		return LevelRead, nil
	case "write":
		return LevelWrite, nil
	case "admin":
		return LevelAdmin, nil
	default:
		return LevelNone, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
}
