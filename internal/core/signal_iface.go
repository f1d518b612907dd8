package core

import "errors"

// Frame is one encoded outbound message.
type Frame []byte

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// SignalConnection abstracts the messaging transport of one attached client.
// Owned by the adapter; the adapter must Close() it. TrySend never blocks.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
