package amqp

import "errors"

var (
	// ErrDisposed is returned when an operation is attempted on a closed
	// connection or session entity. Close is terminal.
	ErrDisposed = errors.New("amqp entity is disposed")

	// ErrNotOpen is returned when a session is requested before the
	// connection has been opened.
	ErrNotOpen = errors.New("amqp connection is not open")
)
