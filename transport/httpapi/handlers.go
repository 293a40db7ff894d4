package httpapi

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/goliatone/go-permissions/audit"
	"github.com/goliatone/go-permissions/command"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/query"
)

type permissionEditsRequest struct {
	Edits []types.PermissionEdit `json:"edits"`
}

type roleRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	IsSystemRole bool   `json:"is_system_role"`
	IsActive     *bool  `json:"is_active,omitempty"`
}

type userRequest struct {
	RoleID   string `json:"role_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Status   string `json:"status"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *handler) effectivePermissions(w http.ResponseWriter, r *http.Request) {
	ids, err := pathUUIDs(r, "tenantID", "userID", "pageID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	flags, err := h.svc.Queries().EffectivePermissions.Query(r.Context(), query.EffectivePermissionsInput{
		TenantID: ids[0],
		UserID:   ids[1],
		PageID:   ids[2],
		Actor:    metaFrom(r).actor,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, flags)
}

func (h *handler) checkPermission(w http.ResponseWriter, r *http.Request) {
	ids, err := pathUUIDs(r, "tenantID", "userID", "pageID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.svc.Queries().CheckPermission.Query(r.Context(), query.CheckPermissionInput{
		TenantID: ids[0],
		UserID:   ids[1],
		PageID:   ids[2],
		Action:   r.URL.Query().Get("action"),
		Actor:    metaFrom(r).actor,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) roleMatrix(w http.ResponseWriter, r *http.Request) {
	ids, err := pathUUIDs(r, "tenantID", "systemID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	matrix, err := h.svc.Queries().RoleMatrix.Query(r.Context(), query.RoleMatrixInput{
		TenantID: ids[0],
		SystemID: ids[1],
		Actor:    metaFrom(r).actor,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matrix)
}

func (h *handler) userMatrix(w http.ResponseWriter, r *http.Request) {
	ids, err := pathUUIDs(r, "tenantID", "systemID", "userID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	matrix, err := h.svc.Queries().UserMatrix.Query(r.Context(), query.UserMatrixInput{
		TenantID: ids[0],
		SystemID: ids[1],
		UserID:   ids[2],
		Actor:    metaFrom(r).actor,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matrix)
}

func (h *handler) setRolePermissions(w http.ResponseWriter, r *http.Request) {
	ids, err := pathUUIDs(r, "tenantID", "roleID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req permissionEditsRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	meta := metaFrom(r)
	result := &types.PermissionChangeResult{}
	err = h.svc.Commands().SetRolePermissions.Execute(r.Context(), command.SetRolePermissionsInput{
		TenantID:  ids[0],
		RoleID:    ids[1],
		Edits:     req.Edits,
		Actor:     meta.actor,
		IPAddress: meta.ipAddress,
		UserAgent: meta.userAgent,
		Result:    result,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) setUserPermissions(w http.ResponseWriter, r *http.Request) {
	ids, err := pathUUIDs(r, "tenantID", "userID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req permissionEditsRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	meta := metaFrom(r)
	result := &types.PermissionChangeResult{}
	err = h.svc.Commands().SetUserPermissions.Execute(r.Context(), command.SetUserPermissionsInput{
		TenantID:  ids[0],
		UserID:    ids[1],
		Edits:     req.Edits,
		Actor:     meta.actor,
		IPAddress: meta.ipAddress,
		UserAgent: meta.userAgent,
		Result:    result,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) listRoles(w http.ResponseWriter, r *http.Request) {
	tenantID, err := pathUUID(r, "tenantID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := pagination(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	roles, err := h.svc.Queries().RoleList.Query(r.Context(), types.RoleFilter{
		Actor:         metaFrom(r).actor,
		TenantID:      tenantID,
		Keyword:       r.URL.Query().Get("q"),
		IncludeSystem: r.URL.Query().Get("include_system") == "true",
		Pagination:    page,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

func (h *handler) getRole(w http.ResponseWriter, r *http.Request) {
	ids, err := pathUUIDs(r, "tenantID", "roleID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	role, err := h.svc.Queries().RoleDetail.Query(r.Context(), query.RoleDetailInput{
		TenantID: ids[0],
		RoleID:   ids[1],
		Actor:    metaFrom(r).actor,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (h *handler) createRole(w http.ResponseWriter, r *http.Request) {
	tenantID, err := pathUUID(r, "tenantID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req roleRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	role := &types.Role{}
	err = h.svc.Commands().CreateRole.Execute(r.Context(), command.CreateRoleInput{
		TenantID:     tenantID,
		Name:         req.Name,
		Description:  req.Description,
		IsSystemRole: req.IsSystemRole,
		IsActive:     req.IsActive,
		Actor:        metaFrom(r).actor,
		Result:       role,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, role)
}

func (h *handler) updateRole(w http.ResponseWriter, r *http.Request) {
	ids, err := pathUUIDs(r, "tenantID", "roleID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req roleRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	role := &types.Role{}
	err = h.svc.Commands().UpdateRole.Execute(r.Context(), command.UpdateRoleInput{
		TenantID:    ids[0],
		RoleID:      ids[1],
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
		Actor:       metaFrom(r).actor,
		Result:      role,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (h *handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	ids, err := pathUUIDs(r, "tenantID", "roleID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	err = h.svc.Commands().DeleteRole.Execute(r.Context(), command.DeleteRoleInput{
		TenantID: ids[0],
		RoleID:   ids[1],
		Actor:    metaFrom(r).actor,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	tenantID, err := pathUUID(r, "tenantID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := pagination(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	roleID, err := queryUUID(r, "role_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	filter := types.UserFilter{
		Actor:      metaFrom(r).actor,
		TenantID:   tenantID,
		RoleID:     roleID,
		Keyword:    r.URL.Query().Get("q"),
		Pagination: page,
	}
	for _, raw := range r.URL.Query()["status"] {
		for _, part := range strings.Split(raw, ",") {
			if status := types.ParseUserStatus(part); status != "" {
				filter.Statuses = append(filter.Statuses, status)
			}
		}
	}
	users, err := h.svc.Queries().UserList.Query(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	ids, err := pathUUIDs(r, "tenantID", "userID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.svc.Queries().UserDetail.Query(r.Context(), query.UserDetailInput{
		TenantID: ids[0],
		UserID:   ids[1],
		Actor:    metaFrom(r).actor,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *handler) createUser(w http.ResponseWriter, r *http.Request) {
	tenantID, err := pathUUID(r, "tenantID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req userRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	input := command.CreateUserInput{
		TenantID: tenantID,
		Username: req.Username,
		Email:    req.Email,
		Status:   types.ParseUserStatus(req.Status),
		Actor:    metaFrom(r).actor,
		Result:   &types.User{},
	}
	if req.RoleID != "" {
		if err := input.RoleID.UnmarshalText([]byte(req.RoleID)); err != nil {
			h.writeError(w, r, types.Validation("invalid role_id", map[string]any{"role_id": req.RoleID}))
			return
		}
	}
	if err := h.svc.Commands().CreateUser.Execute(r.Context(), input); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, input.Result)
}

func (h *handler) changeUserRole(w http.ResponseWriter, r *http.Request) {
	ids, err := pathUUIDs(r, "tenantID", "userID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req struct {
		RoleID string `json:"role_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	input := command.ChangeUserRoleInput{
		TenantID: ids[0],
		UserID:   ids[1],
		Actor:    metaFrom(r).actor,
		Result:   &types.User{},
	}
	if err := input.RoleID.UnmarshalText([]byte(req.RoleID)); err != nil {
		h.writeError(w, r, types.Validation("invalid role_id", map[string]any{"role_id": req.RoleID}))
		return
	}
	if err := h.svc.Commands().ChangeUserRole.Execute(r.Context(), input); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, input.Result)
}

func (h *handler) setUserStatus(w http.ResponseWriter, r *http.Request) {
	ids, err := pathUUIDs(r, "tenantID", "userID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req statusRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	user := &types.User{}
	err = h.svc.Commands().SetUserStatus.Execute(r.Context(), command.SetUserStatusInput{
		TenantID: ids[0],
		UserID:   ids[1],
		Status:   types.ParseUserStatus(req.Status),
		Actor:    metaFrom(r).actor,
		Result:   user,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *handler) lockUser(w http.ResponseWriter, r *http.Request) {
	ids, err := pathUUIDs(r, "tenantID", "userID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req reasonRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	meta := metaFrom(r)
	user := &types.User{}
	err = h.svc.Commands().LockUser.Execute(r.Context(), command.LockUserInput{
		TenantID:  ids[0],
		UserID:    ids[1],
		Reason:    req.Reason,
		Actor:     meta.actor,
		IPAddress: meta.ipAddress,
		UserAgent: meta.userAgent,
		Result:    user,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *handler) unlockUser(w http.ResponseWriter, r *http.Request) {
	ids, err := pathUUIDs(r, "tenantID", "userID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req reasonRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	meta := metaFrom(r)
	record := &types.UnlockRecord{}
	err = h.svc.Commands().UnlockUser.Execute(r.Context(), command.UnlockUserInput{
		TenantID:  ids[0],
		UserID:    ids[1],
		Reason:    req.Reason,
		Actor:     meta.actor,
		IPAddress: meta.ipAddress,
		UserAgent: meta.userAgent,
		Result:    record,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *handler) lockedUsers(w http.ResponseWriter, r *http.Request) {
	tenantID, err := pathUUID(r, "tenantID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := pagination(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.svc.Queries().LockedUsers.Query(r.Context(), types.LockedUserFilter{
		Actor:      metaFrom(r).actor,
		TenantID:   tenantID,
		Pagination: page,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) unlockHistory(w http.ResponseWriter, r *http.Request) {
	tenantID, err := pathUUID(r, "tenantID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := pagination(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	userID, err := queryUUID(r, "user_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.svc.Queries().UnlockHistory.Query(r.Context(), types.UnlockHistoryFilter{
		Actor:      metaFrom(r).actor,
		TenantID:   tenantID,
		UserID:     userID,
		Pagination: page,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) auditLogs(w http.ResponseWriter, r *http.Request) {
	tenantID, err := pathUUID(r, "tenantID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	filter, err := auditFilter(r, tenantID, metaFrom(r).actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.svc.Queries().AuditLog.Query(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// exportSource routes audit exports through the guarded export query.
type exportSource struct {
	query *query.AuditExportQuery
}

func (s exportSource) Export(ctx context.Context, filter types.AuditFilter, fn func(types.AuditEntry) error) error {
	_, err := s.query.Query(ctx, query.AuditExportInput{Filter: filter, Fn: fn})
	return err
}

type exportWriter func(ctx context.Context, w io.Writer, source audit.Exporter, filter types.AuditFilter) error

func (h *handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "text/csv; charset=utf-8", "audit-log.csv", audit.WriteCSV)
}

func (h *handler) exportXLSX(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "audit-log.xlsx", audit.WriteXLSX)
}

// export authorizes the filter before any byte is written, then streams the
// file. A store failure after the headers went out aborts the connection so
// the client sees a broken download rather than a short file.
func (h *handler) export(w http.ResponseWriter, r *http.Request, contentType, filename string, write exportWriter) {
	tenantID, err := pathUUID(r, "tenantID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	filter, err := auditFilter(r, tenantID, metaFrom(r).actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	exports := h.svc.Queries().AuditExport
	filter, err = exports.Authorize(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	out := flushWriter{w: w, rc: http.NewResponseController(w)}
	if err := write(r.Context(), out, exportSource{query: exports}, filter); err != nil {
		h.logger.Error("audit export aborted", err, "tenant_id", filter.TenantID, "path", r.URL.Path)
		panic(http.ErrAbortHandler)
	}
}

// flushWriter pushes every chunk to the client as soon as it is written.
type flushWriter struct {
	w  io.Writer
	rc *http.ResponseController
}

func (f flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, err
	}
	_ = f.rc.Flush()
	return n, nil
}

func (h *handler) listPages(w http.ResponseWriter, r *http.Request) {
	systemID, err := pathUUID(r, "systemID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	pages, err := h.svc.Queries().PageList.Query(r.Context(), query.PageListInput{
		SystemID: systemID,
		Actor:    metaFrom(r).actor,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pages)
}
