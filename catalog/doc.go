// Package catalog stores the reference data the permission engine resolves
// against: tenants, systems, per-tenant system activation and pages. The
// default implementation composes go-repository-bun repositories.
package catalog
