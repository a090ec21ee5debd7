//go:build debug

package channel

// New creates a new channel
// In debug builds, this returns a single-slot channel (ignores size) so a
// subscriber that falls behind starts missing snapshots immediately.
func New[T any](size int) Channel[T] {
	return NewBuffered[T](1)
}
