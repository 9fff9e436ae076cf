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

// Route keys for the built-in tools. Additional keys may appear in the grant
// table ("custom routes"); those carry a display default of None.
const (
	RouteFiles    = "tools/files"
	RouteShifts   = "tools/shifts"
	RouteCinema   = "tools/cinema"
	RouteJournal  = "tools/journal"
	RouteMessages = "tools/messages"
	RouteCalendar = "tools/calendar"

	// RouteAdminPermissions guards the RBAC administration surface itself.
	// Every administration mutation requires Admin level here.
	RouteAdminPermissions = "admin/permissions"
)

// RouteDescriptor describes a statically enumerated route. DefaultLevel is
// used exclusively to pre-populate administration forms; the resolver never
// turns a descriptor default into actual access.
type RouteDescriptor struct {
	Key          string
	Label        string
	Description  string
	DefaultLevel Level
}

// Routes enumerates the built-in route descriptors in display order.
var Routes = []RouteDescriptor{
	{Key: RouteFiles, Label: "Files", Description: "File storage with sharing", DefaultLevel: LevelRead},
	{Key: RouteShifts, Label: "Shifts", Description: "Shift scheduler", DefaultLevel: LevelRead},
	{Key: RouteCinema, Label: "Cinema", Description: "Cinema programming planner", DefaultLevel: LevelNone},
	{Key: RouteJournal, Label: "Journal", Description: "Encrypted journal", DefaultLevel: LevelNone},
	{Key: RouteMessages, Label: "Messages", Description: "End-to-end encrypted messaging", DefaultLevel: LevelNone},
	{Key: RouteCalendar, Label: "Calendar", Description: "Shared calendar", DefaultLevel: LevelRead},
	{Key: RouteAdminPermissions, Label: "Permissions", Description: "Role and permission administration", DefaultLevel: LevelNone},
}

// DescriptorFor returns the descriptor for a route key. The second return is
// false for custom routes that only exist as grant rows.
func DescriptorFor(key string) (RouteDescriptor, bool) {
	for _, d := range Routes {
		if d.Key == key {
			return d, true
		}
	}
	return RouteDescriptor{Key: key, DefaultLevel: LevelNone}, false
}
