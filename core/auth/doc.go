// Package auth validates connection tokens and produces the claims the
// hub trusts for the lifetime of a connection.
//
// Validation happens exactly once, at connection registration; commands
// arriving later on the same connection are never re-authenticated.
package auth
