/*
Package session manages the persisted session tokens.

The Manager wraps a ports.TokenStorage with per-slot locking so that a
persist and a clear of the same slot never interleave, even across hosts
sharing a Redis-backed storage. It holds no business logic: deciding when to
persist or clear is the job of the authentication flows.
*/
package session
