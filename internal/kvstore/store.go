// Package kvstore provides the tiny durable key-value storage the dialer
// uses to keep its cooldown across restarts.
package kvstore

// Store is a minimal string key-value persistence interface.
// Get reports whether the key was present.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}
