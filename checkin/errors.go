package checkin

import "fmt"

// ConfigurationError reports a catalog state with fewer variants than the configured minimum.
// It is fatal: no session may run against such a catalog.
type ConfigurationError struct {
	State   string
	Count   int
	Minimum int
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("state %q has %d messages (minimum %d)", e.State, e.Count, e.Minimum)
}

// UnknownStateError is returned by Catalog.Resolve for a state the catalog does not carry.
// Select turns it into FallbackMessage.
type UnknownStateError struct {
	State string
}

func (e *UnknownStateError) Error() string {
	return fmt.Sprintf("unknown state %q", e.State)
}

// StorageError wraps a failed read or write of a profile or history file.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
