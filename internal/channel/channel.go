// Package channel provides the generic channels the runner fans snapshots
// out on.
package channel

// Receiver provides read access to a channel.
type Receiver[T any] interface {
	Receive() <-chan T
	Len() int
}

// Sender provides write access to a channel.
type Sender[T any] interface {
	Send(T)
	// TrySend delivers v only if it would not block and reports whether it did.
	TrySend(v T) bool
}

// Channel combines read and write access.
type Channel[T any] interface {
	Receiver[T]
	Sender[T]
	Close()
}

// MaxBuffer bounds how many undelivered snapshots one subscriber may hold.
const MaxBuffer = 1024
