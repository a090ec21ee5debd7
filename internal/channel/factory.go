//go:build !debug

package channel

// New returns a subscriber channel holding up to size snapshots, capped at
// MaxBuffer.
func New[T any](size int) Channel[T] {
	return NewBuffered[T](min(size, MaxBuffer))
}
