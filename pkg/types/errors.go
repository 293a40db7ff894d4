package types

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to the error taxonomy.
const (
	TextCodeNotFound          = "NOT_FOUND"
	TextCodePermissionDenied  = "PERMISSION_DENIED"
	TextCodeIllegalTransition = "ILLEGAL_STATE_TRANSITION"
	TextCodeValidation        = "VALIDATION_ERROR"
	TextCodePersistence       = "PERSISTENCE_FAILURE"
)

// NotFound reports an unknown tenant, system, role, user or page.
func NotFound(resource string, id any) *goerrors.Error {
	return goerrors.New(fmt.Sprintf("go-permissions: %s not found", resource), goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound).
		WithTextCode(TextCodeNotFound).
		WithMetadata(map[string]any{
			"resource": resource,
			"id":       fmt.Sprint(id),
		})
}

// PermissionDenied is the uniform denial. It never names the missing flag.
func PermissionDenied() *goerrors.Error {
	return goerrors.New("not authorized", goerrors.CategoryAuthz).
		WithCode(goerrors.CodeForbidden).
		WithTextCode(TextCodePermissionDenied)
}

// IllegalTransition reports a lock/unlock (or status change) attempted from
// the wrong state.
func IllegalTransition(from, to UserStatus) *goerrors.Error {
	return goerrors.New(fmt.Sprintf("go-permissions: cannot transition user from %s to %s", from, to), goerrors.CategoryConflict).
		WithCode(goerrors.CodeConflict).
		WithTextCode(TextCodeIllegalTransition).
		WithMetadata(map[string]any{
			"from": string(from),
			"to":   string(to),
		})
}

// Validation reports input that cannot be accepted or auto-corrected.
func Validation(message string, meta map[string]any) *goerrors.Error {
	err := goerrors.New("go-permissions: "+message, goerrors.CategoryValidation).
		WithCode(goerrors.CodeBadRequest).
		WithTextCode(TextCodeValidation)
	if len(meta) > 0 {
		err = err.WithMetadata(meta)
	}
	return err
}

// Persistence wraps a store failure. Errors already carrying a category pass
// through unchanged so typed results survive transaction callbacks.
func Persistence(err error, op string) error {
	if err == nil {
		return nil
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "go-permissions: "+op+" failed").
		WithCode(goerrors.CodeInternal).
		WithTextCode(TextCodePersistence)
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool {
	return goerrors.IsNotFound(err)
}

// IsPermissionDenied reports whether err is the uniform denial.
func IsPermissionDenied(err error) bool {
	return goerrors.IsCategory(err, goerrors.CategoryAuthz)
}

// IsIllegalTransition reports whether err is an illegal state transition.
func IsIllegalTransition(err error) bool {
	return hasTextCode(err, TextCodeIllegalTransition)
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return goerrors.IsValidation(err)
}

// IsPersistence reports whether err is a persistence failure.
func IsPersistence(err error) bool {
	return hasTextCode(err, TextCodePersistence)
}

func hasTextCode(err error, code string) bool {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode == code
	}
	return false
}
