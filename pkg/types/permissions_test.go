package types

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPermissionEditApplyKeepsViewInvariantForEveryCombination(t *testing.T) {
	pageID := uuid.New()
	for mask := 0; mask < 32; mask++ {
		flags := PermissionFlags{
			CanView:   mask&1 != 0,
			CanCreate: mask&2 != 0,
			CanEdit:   mask&4 != 0,
			CanDelete: mask&8 != 0,
			CanExport: mask&16 != 0,
		}
		for _, base := range []PermissionFlags{{}, {CanView: true, CanEdit: true}} {
			out := FullEdit(pageID, flags).Apply(base)
			require.True(t, out.Consistent(), "mask %05b produced %+v", mask, out)
			if !flags.CanView {
				require.Equal(t, PermissionFlags{}, out, "revoking view clears the row (mask %05b)", mask)
				continue
			}
			require.Equal(t, flags, out, "consistent input is stored verbatim (mask %05b)", mask)
		}
	}
}

func TestPermissionEditApplyPartialEdits(t *testing.T) {
	yes, no := true, false

	out := PermissionEdit{CanEdit: &yes}.Apply(PermissionFlags{})
	require.Equal(t, PermissionFlags{CanView: true, CanEdit: true}, out)

	out = PermissionEdit{CanView: &no}.Apply(PermissionFlags{CanView: true, CanCreate: true, CanExport: true})
	require.Equal(t, PermissionFlags{}, out)

	out = PermissionEdit{CanDelete: &no}.Apply(PermissionFlags{CanView: true, CanDelete: true})
	require.Equal(t, PermissionFlags{CanView: true}, out)

	out = PermissionEdit{}.Apply(PermissionFlags{CanView: true, CanCreate: true})
	require.Equal(t, PermissionFlags{CanView: true, CanCreate: true}, out)
}

func TestPermissionEditValidateRejectsContradictoryCell(t *testing.T) {
	yes, no := true, false
	pageID := uuid.New()

	err := PermissionEdit{PageID: pageID, CanView: &no, CanExport: &yes}.Validate()
	require.True(t, IsValidation(err))

	require.NoError(t, PermissionEdit{PageID: pageID, CanView: &no}.Validate())
	require.NoError(t, PermissionEdit{PageID: pageID, CanView: &no, CanEdit: &no}.Validate())
	require.NoError(t, PermissionEdit{PageID: pageID, CanDelete: &yes}.Validate())
	require.NoError(t, PermissionEdit{PageID: pageID, Reset: true, CanView: &no, CanEdit: &yes}.Validate())
}

func TestPermissionEditApplyIsIdempotent(t *testing.T) {
	yes := true
	edit := PermissionEdit{CanExport: &yes}
	once := edit.Apply(PermissionFlags{})
	twice := edit.Apply(once)
	require.Equal(t, once, twice)
}

func TestParseActionAndAllows(t *testing.T) {
	action, ok := ParseAction(" Export ")
	require.True(t, ok)
	require.Equal(t, ActionExport, action)

	_, ok = ParseAction("approve")
	require.False(t, ok)

	flags := PermissionFlags{CanView: true, CanExport: true}
	require.True(t, flags.Allows(ActionView))
	require.True(t, flags.Allows(ActionExport))
	require.False(t, flags.Allows(ActionDelete))
	require.False(t, flags.Allows(Action("approve")))
}

func TestMatrixKey(t *testing.T) {
	roleID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	pageID := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	require.Equal(t, "11111111-1111-1111-1111-111111111111-22222222-2222-2222-2222-222222222222", MatrixKey(roleID, pageID))
}

func TestErrorTaxonomy(t *testing.T) {
	require.True(t, IsNotFound(NotFound("user", uuid.Nil)))
	require.True(t, IsPermissionDenied(PermissionDenied()))
	require.Equal(t, "[authorization:PERMISSION_DENIED] not authorized", PermissionDenied().Error())
	require.True(t, IsIllegalTransition(IllegalTransition(UserStatusActive, UserStatusActive)))
	require.True(t, IsValidation(Validation("bad", nil)))
	require.True(t, IsValidation(ErrTenantIDRequired))

	wrapped := Persistence(NotFound("role", uuid.Nil), "delete role")
	require.True(t, IsNotFound(wrapped), "typed errors pass through")
	require.Nil(t, Persistence(nil, "noop"))
}

func TestPageRequest(t *testing.T) {
	require.Equal(t, Pagination{Limit: 25, Offset: 50}, PageRequest(3, 25))
	require.Equal(t, Pagination{Limit: 10, Offset: 0}, PageRequest(0, 10))
	require.Equal(t, Pagination{Limit: 50, Offset: 0}, NormalizePagination(Pagination{}, 50, 200))
	require.Equal(t, Pagination{Limit: 200, Offset: 0}, NormalizePagination(Pagination{Limit: 900, Offset: -3}, 50, 200))
}
