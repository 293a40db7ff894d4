// Package permission stores the two permission layers: role default rows and
// per-user override rows. Every write goes through an upsert keyed on
// (role, page) or (user, page) so retried batches converge on the same rows.
package permission
