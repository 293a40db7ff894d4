// Package command exposes go-command compatible command handlers for every
// write: permission batches, role and user changes, lockout actions and
// catalog administration. Commands are wired by the service layer and can be
// invoked by any transport.
package command
