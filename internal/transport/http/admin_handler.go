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

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hearthtools/hearth/internal/admin"
	"github.com/hearthtools/hearth/internal/rbac"
)

// ListRoles returns all roles, rank-descending
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.adminService.ListRoles(r.Context(), SessionFromContext(r.Context()))
	if err != nil {
		respondAdminError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"roles": rolesPayload(roles)})
}

// CreateRole creates a new role
func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var in admin.CreateRoleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role, err := h.adminService.CreateRole(r.Context(), SessionFromContext(r.Context()), in)
	if err != nil {
		respondAdminError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, rolePayload(role))
}

// UpdateRole updates a role's label, rank and superadmin flag
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := roleIDParam(w, r)
	if !ok {
		return
	}

	var in admin.UpdateRoleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in.ID = roleID

	if err := h.adminService.UpdateRole(r.Context(), SessionFromContext(r.Context()), in); err != nil {
		respondAdminError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "role updated"})
}

// DeleteRole removes a role
func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := roleIDParam(w, r)
	if !ok {
		return
	}

	if err := h.adminService.DeleteRole(r.Context(), SessionFromContext(r.Context()), roleID); err != nil {
		respondAdminError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "role deleted"})
}

// RouteOptions returns the permission form rows for one role
func (h *Handler) RouteOptions(w http.ResponseWriter, r *http.Request) {
	roleID, ok := roleIDParam(w, r)
	if !ok {
		return
	}

	options, err := h.adminService.RouteOptions(r.Context(), SessionFromContext(r.Context()), roleID)
	if err != nil {
		respondAdminError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"routes": options})
}

// UpsertGrant writes or clears a single permission row
func (h *Handler) UpsertGrant(w http.ResponseWriter, r *http.Request) {
	roleID, ok := roleIDParam(w, r)
	if !ok {
		return
	}

	var in admin.GrantInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in.RoleID = roleID

	if err := h.adminService.UpsertGrant(r.Context(), SessionFromContext(r.Context()), in); err != nil {
		respondAdminError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "permission saved"})
}

// ChangeMemberRoleRequest carries the next role for a member
type ChangeMemberRoleRequest struct {
	Role string `json:"role"`
}

// ChangeMemberRole replaces a member's role set with a single role
func (h *Handler) ChangeMemberRole(w http.ResponseWriter, r *http.Request) {
	identityID := chi.URLParam(r, "identityID")

	var req ChangeMemberRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.adminService.ChangeMemberRole(r.Context(), SessionFromContext(r.Context()), identityID, req.Role)
	if err != nil {
		respondAdminError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "role changed"})
}

// RecentEvents returns the latest audit events
func (h *Handler) RecentEvents(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.adminService.RecentEvents(r.Context(), SessionFromContext(r.Context()), limit)
	if err != nil {
		respondAdminError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"events": events})
}

func roleIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	roleID, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil || roleID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid role id")
		return 0, false
	}
	return roleID, true
}

func rolePayload(role *rbac.Role) map[string]any {
	return map[string]any{
		"id":         role.ID,
		"name":       role.Name,
		"label":      role.Label,
		"rank":       role.Rank,
		"superadmin": role.IsSuperadmin,
		"protected":  rbac.IsProtectedRole(role.Name),
	}
}

func rolesPayload(roles []*rbac.Role) []map[string]any {
	out := make([]map[string]any, 0, len(roles))
	for _, role := range roles {
		out = append(out, rolePayload(role))
	}
	return out
}

func respondAdminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, admin.ErrForbidden),
		errors.Is(err, admin.ErrActorNotSuperadmin),
		errors.Is(err, admin.ErrCannotDemoteSuperadmin),
		errors.Is(err, admin.ErrSuperadminCreateRequires),
		errors.Is(err, rbac.ErrRoleProtected):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, admin.ErrInvalidInput), errors.Is(err, rbac.ErrInvalidLevel):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, rbac.ErrRoleNotFound):
		respondError(w, http.StatusNotFound, "role not found")
	case errors.Is(err, rbac.ErrRoleAlreadyExists):
		respondError(w, http.StatusConflict, "role already exists")
	default:
		respondError(w, http.StatusInternalServerError, "operation failed")
	}
}
