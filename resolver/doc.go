// Package resolver decides effective page permissions and maintains the two
// permission layers. A user's effective flags on a page come from their
// override row when one exists, otherwise from their role's default row,
// otherwise all-false. Inactive tenants, systems and users resolve to
// all-false without consulting either layer.
package resolver
