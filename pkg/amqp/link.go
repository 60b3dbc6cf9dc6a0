package amqp

import (
	"context"
	"fmt"
	"sync/atomic"

	amqp "github.com/rabbitmq/amqp091-go"
)

// senderLink targets one queue on an open session. Closing the link itself is
// a marker only; the owning session entity tears the channel down.
type senderLink struct {
	session transportSession
	queue   string
	closed  atomic.Bool
}

func (l *senderLink) IsClosed() bool {
	return l.closed.Load() || l.session.IsClosed()
}

func (l *senderLink) Close() error {
	l.closed.Store(true)

	return nil
}

func (l *senderLink) publish(ctx context.Context, msg *Message) error {
	return l.session.PublishWithContext(ctx, "", l.queue, false, false, buildPublishing(msg))
}

// receiverLink consumes one queue with a fixed credit window.
type receiverLink struct {
	session    transportSession
	queue      string
	deliveries <-chan amqp.Delivery
	closed     atomic.Bool
}

func newReceiverLink(session transportSession, queue string, credit int) (*receiverLink, error) {
	if err := session.Qos(credit, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set link credit: %w", err)
	}

	deliveries, err := session.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming %q: %w", queue, err)
	}

	return &receiverLink{
		session:    session,
		queue:      queue,
		deliveries: deliveries,
	}, nil
}

func (l *receiverLink) IsClosed() bool {
	return l.closed.Load() || l.session.IsClosed()
}

func (l *receiverLink) Close() error {
	l.closed.Store(true)

	return nil
}

func (l *receiverLink) receive(ctx context.Context) (*Inbound, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case delivery, ok := <-l.deliveries:
		if !ok {
			l.closed.Store(true)

			return nil, fmt.Errorf("delivery channel closed: %w", amqp.ErrClosed)
		}

		return NewInbound(delivery), nil
	}
}

// Sender is the pooled outbound link for one destination path. Every Send
// runs through EnsureOpen, so a dropped connection heals transparently.
type Sender struct {
	entity *SessionEntity
	path   string
}

func (s *Sender) Path() string {
	return s.path
}

func (s *Sender) IsClosed() bool {
	return s.entity.IsClosed()
}

func (s *Sender) Close() error {
	return s.entity.Close()
}

func (s *Sender) Send(ctx context.Context, msg *Message) error {
	link, err := s.entity.EnsureOpen(ctx)
	if err != nil {
		return err
	}

	sl, ok := link.(*senderLink)
	if !ok {
		return fmt.Errorf("unexpected link type %T for sender %q", link, s.path)
	}

	return sl.publish(ctx, msg)
}

// Receiver is the pooled inbound link for one source path.
type Receiver struct {
	entity *SessionEntity
	path   string
}

func (r *Receiver) Path() string {
	return r.path
}

func (r *Receiver) IsClosed() bool {
	return r.entity.IsClosed()
}

func (r *Receiver) Close() error {
	return r.entity.Close()
}

func (r *Receiver) Receive(ctx context.Context) (*Inbound, error) {
	link, err := r.entity.EnsureOpen(ctx)
	if err != nil {
		return nil, err
	}

	rl, ok := link.(*receiverLink)
	if !ok {
		return nil, fmt.Errorf("unexpected link type %T for receiver %q", link, r.path)
	}

	return rl.receive(ctx)
}
