// Package registry stores tenant roles. Roles carry the default per-page
// permissions that users inherit; the registry enforces the deletion and
// edit rules for system roles and roles that still have users.
package registry
