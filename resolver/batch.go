package resolver

import (
	"context"

	"github.com/goliatone/go-permissions/accounts"
	"github.com/goliatone/go-permissions/catalog"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/registry"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SetRolePermissions applies a batch of edits to a role's default rows. The
// batch and its audit entry commit together.
func (r *Resolver) SetRolePermissions(ctx context.Context, batch types.RolePermissionBatch) (types.PermissionChangeResult, error) {
	result := types.PermissionChangeResult{}
	if batch.TenantID == uuid.Nil {
		return result, types.ErrTenantIDRequired
	}
	if batch.RoleID == uuid.Nil {
		return result, types.Validation("role_id required", nil)
	}
	if err := validateEdits(batch.Edits); err != nil {
		return result, err
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		result = types.PermissionChangeResult{}
		role, err := registry.LoadRole(ctx, tx, batch.TenantID, batch.RoleID)
		if err != nil {
			return err
		}
		if role.IsSystemRole {
			return types.Validation("system role permissions cannot be modified", map[string]any{"role_id": role.ID.String()})
		}
		store := r.store.WithTx(tx)
		changes := make([]map[string]any, 0, len(batch.Edits))
		for _, edit := range batch.Edits {
			if _, err := catalog.LoadPage(ctx, tx, edit.PageID); err != nil {
				return err
			}
			if edit.Reset {
				removed, err := store.DeleteRolePermission(ctx, batch.RoleID, edit.PageID)
				if err != nil {
					return err
				}
				if removed {
					result.Removed++
				}
				result.PageIDs = appendPage(result.PageIDs, edit.PageID)
				changes = append(changes, map[string]any{"page_id": edit.PageID.String(), "reset": true})
				continue
			}
			base := types.PermissionFlags{}
			current, err := store.GetRolePermission(ctx, batch.RoleID, edit.PageID)
			if err != nil {
				return err
			}
			if current != nil {
				base = current.PermissionFlags
			}
			next := edit.Apply(base)
			if err := store.UpsertRolePermission(ctx, batch.TenantID, batch.RoleID, edit.PageID, next); err != nil {
				return err
			}
			result.Upserted++
			result.PageIDs = appendPage(result.PageIDs, edit.PageID)
			changes = append(changes, flagChange(edit.PageID, base, next))
		}
		_, err = r.audit.RecordTx(ctx, tx, types.AuditEntry{
			TenantID:     batch.TenantID,
			ActorID:      batch.Actor.ID,
			Action:       types.AuditActionRolePermissionsUpdated,
			ResourceType: types.AuditResourceRole,
			ResourceID:   batch.RoleID.String(),
			Details:      "role permissions updated for " + role.Name,
			Metadata:     map[string]any{"changes": changes},
			IPAddress:    batch.IPAddress,
			UserAgent:    batch.UserAgent,
		})
		return err
	})
	if err != nil {
		return types.PermissionChangeResult{}, err
	}

	r.emitPermissionEvent(ctx, types.PermissionEvent{
		TenantID:   batch.TenantID,
		RoleID:     batch.RoleID,
		PageIDs:    result.PageIDs,
		Action:     types.AuditActionRolePermissionsUpdated,
		ActorID:    batch.Actor.ID,
		OccurredAt: r.clock.Now(),
	})
	return result, nil
}

// SetUserPermissions applies a batch of edits to a user's override rows. An
// edit patches the existing override, or the role default when there is
// none; Reset drops the override so the role default applies again.
func (r *Resolver) SetUserPermissions(ctx context.Context, batch types.UserPermissionBatch) (types.PermissionChangeResult, error) {
	result := types.PermissionChangeResult{}
	if batch.TenantID == uuid.Nil {
		return result, types.ErrTenantIDRequired
	}
	if batch.UserID == uuid.Nil {
		return result, types.ErrUserIDRequired
	}
	if err := validateEdits(batch.Edits); err != nil {
		return result, err
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		result = types.PermissionChangeResult{}
		user, err := accounts.LoadUserForUpdate(ctx, tx, batch.TenantID, batch.UserID)
		if err != nil {
			return err
		}
		store := r.store.WithTx(tx)
		changes := make([]map[string]any, 0, len(batch.Edits))
		for _, edit := range batch.Edits {
			if _, err := catalog.LoadPage(ctx, tx, edit.PageID); err != nil {
				return err
			}
			if edit.Reset {
				removed, err := store.DeleteOverride(ctx, batch.UserID, edit.PageID)
				if err != nil {
					return err
				}
				if removed {
					result.Removed++
				}
				result.PageIDs = appendPage(result.PageIDs, edit.PageID)
				changes = append(changes, map[string]any{"page_id": edit.PageID.String(), "reset": true})
				continue
			}
			current, err := store.GetOverride(ctx, batch.UserID, edit.PageID)
			if err != nil {
				return err
			}
			var (
				base   types.PermissionFlags
				custom map[string]any
			)
			if current != nil {
				base = current.PermissionFlags
				custom = current.CustomPermissions
			} else {
				base, err = roleDefault(ctx, tx, store, batch.TenantID, user.RoleID, edit.PageID)
				if err != nil {
					return err
				}
			}
			next := edit.Apply(base)
			if err := store.UpsertOverride(ctx, batch.TenantID, batch.UserID, edit.PageID, next, custom); err != nil {
				return err
			}
			result.Upserted++
			result.PageIDs = appendPage(result.PageIDs, edit.PageID)
			changes = append(changes, flagChange(edit.PageID, base, next))
		}
		_, err = r.audit.RecordTx(ctx, tx, types.AuditEntry{
			TenantID:     batch.TenantID,
			ActorID:      batch.Actor.ID,
			Action:       types.AuditActionUserPermissionsUpdated,
			ResourceType: types.AuditResourceUser,
			ResourceID:   batch.UserID.String(),
			Details:      "permission overrides updated for " + user.Username,
			Metadata:     map[string]any{"changes": changes},
			IPAddress:    batch.IPAddress,
			UserAgent:    batch.UserAgent,
		})
		return err
	})
	if err != nil {
		return types.PermissionChangeResult{}, err
	}

	r.emitPermissionEvent(ctx, types.PermissionEvent{
		TenantID:   batch.TenantID,
		UserID:     batch.UserID,
		PageIDs:    result.PageIDs,
		Action:     types.AuditActionUserPermissionsUpdated,
		ActorID:    batch.Actor.ID,
		OccurredAt: r.clock.Now(),
	})
	return result, nil
}

func validateEdits(edits []types.PermissionEdit) error {
	if len(edits) == 0 {
		return types.Validation("at least one permission edit required", nil)
	}
	for i, edit := range edits {
		if edit.PageID == uuid.Nil {
			return types.Validation("page_id required", map[string]any{"index": i})
		}
		if err := edit.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func appendPage(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func flagChange(pageID uuid.UUID, before, after types.PermissionFlags) map[string]any {
	return map[string]any{
		"page_id": pageID.String(),
		"before":  flagMap(before),
		"after":   flagMap(after),
	}
}

func flagMap(flags types.PermissionFlags) map[string]any {
	return map[string]any{
		"can_view":   flags.CanView,
		"can_create": flags.CanCreate,
		"can_edit":   flags.CanEdit,
		"can_delete": flags.CanDelete,
		"can_export": flags.CanExport,
	}
}
