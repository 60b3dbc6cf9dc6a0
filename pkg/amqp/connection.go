package amqp

import (
	"context"
	"fmt"
	"io"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// transportSession is the subset of the broker channel the links need. Kept
// as an interface so the whole lifecycle can be exercised with mocks.
type transportSession interface {
	io.Closer

	IsClosed() bool
	Qos(prefetchCount, prefetchSize int, global bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// transportConnection is the subset of the broker connection the Connection
// wrapper needs.
type transportConnection interface {
	io.Closer

	IsClosed() bool
	Channel() (transportSession, error)
}

type dialFunc func(cfg Config) (transportConnection, error)

func defaultDial(cfg Config) (transportConnection, error) {
	conn, err := amqp.DialConfig(getURL(cfg), amqp.Config{
		Heartbeat: cfg.Heartbeat,
		Dial:      amqp.DefaultDial(cfg.ConnectTimeout),
	})
	if err != nil {
		return nil, err
	}

	return &connectionAdapter{conn: conn}, nil
}

// connectionAdapter narrows *amqp091.Connection to transportConnection.
type connectionAdapter struct {
	conn *amqp.Connection
}

func (a *connectionAdapter) Close() error {
	return a.conn.Close()
}

func (a *connectionAdapter) IsClosed() bool {
	return a.conn.IsClosed()
}

func (a *connectionAdapter) Channel() (transportSession, error) {
	return a.conn.Channel()
}

// Connection is the single underlying transport connection shared by every
// session and link created from one factory. EnsureOpen is idempotent: when
// the connection is live it is a no-op, when it dropped exactly one reconnect
// happens under the mutex.
type Connection struct {
	mu         sync.Mutex
	cfg        Config
	dial       dialFunc
	conn       transportConnection
	generation uint64
	disposed   bool
	logger     Logger
}

func NewConnection(cfg Config, opts ...connectionOption) *Connection {
	options := defaultConnectionOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Connection{
		cfg:    cfg,
		dial:   options.dial,
		logger: options.logger,
	}
}

// EnsureOpen dials the broker when no live connection exists. It reports
// whether a reconnect happened so session entities can rebuild their links.
func (c *Connection) EnsureOpen(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return false, ErrDisposed
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}

	if c.conn != nil && !c.conn.IsClosed() {
		return false, nil
	}

	conn, err := c.dial(c.cfg)
	if err != nil {
		return false, fmt.Errorf("failed to connect to broker: %w", err)
	}

	c.conn = conn
	c.generation++

	c.logger.Info().Str("host", c.cfg.Host).Msg("connected to broker")

	return true, nil
}

// Generation counts reconnects. A session entity built on an older generation
// knows its session and link are stale.
func (c *Connection) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.generation
}

// Session opens a new channel on the current connection.
func (c *Connection) Session() (transportSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return nil, ErrDisposed
	}

	if c.conn == nil || c.conn.IsClosed() {
		return nil, ErrNotOpen
	}

	return c.conn.Channel()
}

// Close tears the connection down for good. Subsequent EnsureOpen calls fail
// with ErrDisposed.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return nil
	}
	c.disposed = true

	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn.Close()
	}

	return nil
}

// Disposed reports whether Close has been called. A dropped but reconnectable
// connection is not disposed.
func (c *Connection) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.disposed
}
