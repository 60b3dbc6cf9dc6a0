// Package amqp wraps the AMQP 0-9-1 transport with the lifecycle guarantees
// the pooling layer relies on: an idempotently reconnecting Connection,
// session entities that rebuild their session and link when the transport
// went stale, and link factories that create senders and receivers over one
// shared connection.
package amqp
