package amqp

import (
	"context"
	"fmt"
	"sync"
)

type (
	// Link is an attached sender or receiver endpoint owned by a session
	// entity.
	Link interface {
		IsClosed() bool
		Close() error
	}

	createLinkFunc func(session transportSession) (Link, error)

	// SessionEntity owns exactly one session and one link, both derived from a
	// Connection it does not own. EnsureOpen transparently rebuilds the pair
	// when the connection reconnected or either half went stale. Close is
	// idempotent and terminal.
	SessionEntity struct {
		mu         sync.Mutex
		conn       *Connection
		session    transportSession
		link       Link
		create     createLinkFunc
		generation uint64
		closed     bool
		path       string
		logger     Logger
	}
)

func newSessionEntity(conn *Connection, path string, create createLinkFunc, logger Logger) *SessionEntity {
	return &SessionEntity{
		conn:   conn,
		create: create,
		path:   path,
		logger: logger,
	}
}

// EnsureOpen returns a usable link, rebuilding session and link when the
// shared connection reconnected or either of them reports closed. The whole
// check-and-rebuild sequence runs under the entity mutex so two callers never
// race to create duplicate links on the same session.
func (e *SessionEntity) EnsureOpen(ctx context.Context) (Link, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrDisposed
	}

	reconnected, err := e.conn.EnsureOpen(ctx)
	if err != nil {
		return nil, err
	}

	generation := e.conn.Generation()

	stale := reconnected ||
		generation != e.generation ||
		e.session == nil || e.session.IsClosed() ||
		e.link == nil || e.link.IsClosed()
	if !stale {
		return e.link, nil
	}

	// Best effort teardown of the stale pair; the transport may already have
	// released both ends.
	if e.link != nil {
		_ = e.link.Close()
	}
	if e.session != nil {
		_ = e.session.Close()
	}

	session, err := e.conn.Session()
	if err != nil {
		return nil, fmt.Errorf("failed to open session for %q: %w", e.path, err)
	}

	link, err := e.create(session)
	if err != nil {
		_ = session.Close()

		return nil, fmt.Errorf("failed to attach link for %q: %w", e.path, err)
	}

	e.session = session
	e.link = link
	e.generation = generation

	e.logger.Debug().Str("path", e.path).Msg("session and link established")

	return link, nil
}

// Close flips the entity into its terminal state and closes the underlying
// session, which cascades to the link. Subsequent calls return nil without
// touching the transport.
func (e *SessionEntity) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	if e.link != nil {
		_ = e.link.Close()
	}

	if e.session != nil {
		return e.session.Close()
	}

	return nil
}

func (e *SessionEntity) IsClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.closed
}
