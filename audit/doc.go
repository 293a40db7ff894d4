// Package audit provides the append-only audit log. The Repository records
// entries (standalone or inside a caller's transaction), answers filtered
// paginated queries and streams unpaginated exports as CSV or XLSX. It has no
// update or delete operation.
package audit
