// Package lockout tracks failed logins reported by the authentication layer
// and drives the active/locked transitions. Every unlock appends exactly one
// unlock history row and one audit entry in the transaction that flips the
// status.
package lockout
