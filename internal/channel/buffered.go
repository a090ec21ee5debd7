package channel

// Buffered is a buffered channel implementation
type Buffered[T any] struct {
	ch chan T
}

// NewBuffered creates a new buffered channel with the given size.
// Sizes below one are raised to one.
func NewBuffered[T any](size int) *Buffered[T] {
	if size < 1 {
		size = 1
	}
	return &Buffered[T]{ch: make(chan T, size)}
}

// Send sends a value to the channel, blocking while the buffer is full
func (b *Buffered[T]) Send(v T) {
	b.ch <- v
}

// TrySend sends v unless the buffer is full.
func (b *Buffered[T]) TrySend(v T) bool {
	select {
	case b.ch <- v:
		return true
	default:
		return false
	}
}

// Receive returns the receive-only channel
func (b *Buffered[T]) Receive() <-chan T {
	return b.ch
}

// Len returns the number of items currently in the buffer
func (b *Buffered[T]) Len() int {
	return len(b.ch)
}

// Cap returns the buffer size
func (b *Buffered[T]) Cap() int {
	return cap(b.ch)
}

// Close closes the channel
func (b *Buffered[T]) Close() {
	close(b.ch)
}
