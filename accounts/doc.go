// Package accounts stores the permission-relevant projection of user
// accounts: tenant, role, status and the failed login counter. Credentials
// live in the host's auth layer.
package accounts
