package amqp

import (
	"context"
	"fmt"
)

// LinkFactory creates senders and receivers over one shared connection. The
// factory pool keeps a small fixed set of these and round-robins link
// creation across them.
type LinkFactory struct {
	name   string
	conn   *Connection
	logger Logger
}

func NewLinkFactory(name string, cfg Config, opts ...connectionOption) *LinkFactory {
	options := defaultConnectionOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &LinkFactory{
		name:   name,
		conn:   NewConnection(cfg, opts...),
		logger: options.logger,
	}
}

func (f *LinkFactory) Name() string {
	return f.name
}

// IsClosed reports whether the factory was disposed. A temporarily dropped
// connection does not close the factory; links heal on their next use.
func (f *LinkFactory) IsClosed() bool {
	return f.conn.Disposed()
}

func (f *LinkFactory) Close() error {
	return f.conn.Close()
}

// CreateSender attaches a sender link for the destination path. The link is
// opened eagerly so a dead broker surfaces here rather than on first send.
func (f *LinkFactory) CreateSender(ctx context.Context, path string) (*Sender, error) {
	if path == "" {
		return nil, fmt.Errorf("sender path must not be empty")
	}

	entity := newSessionEntity(f.conn, path, func(session transportSession) (Link, error) {
		return &senderLink{session: session, queue: path}, nil
	}, f.logger)

	if _, err := entity.EnsureOpen(ctx); err != nil {
		return nil, err
	}

	return &Sender{entity: entity, path: path}, nil
}

// CreateReceiver attaches a receiver link for the source path with the given
// link credit.
func (f *LinkFactory) CreateReceiver(ctx context.Context, path string, credit int) (*Receiver, error) {
	if path == "" {
		return nil, fmt.Errorf("receiver path must not be empty")
	}

	entity := newSessionEntity(f.conn, path, func(session transportSession) (Link, error) {
		return newReceiverLink(session, path, credit)
	}, f.logger)

	if _, err := entity.EnsureOpen(ctx); err != nil {
		return nil, err
	}

	return &Receiver{entity: entity, path: path}, nil
}

// CreateMessage wraps a transport-ready payload into an empty envelope for
// the caller to stamp.
func (f *LinkFactory) CreateMessage(payload []byte) *Message {
	return &Message{
		Payload: payload,
		Headers: map[string]any{},
	}
}
