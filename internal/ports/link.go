package ports

import (
	"context"
	"time"

	"github.com/architeacher/svc-health-messenger/internal/domain"
)

type (
	// Link is an attached sender or receiver, the unit cached by the pools.
	Link interface {
		Path() string
		IsClosed() bool
		Close() error
	}

	// Sender publishes wire messages to a single destination queue.
	Sender interface {
		Link

		Send(ctx context.Context, msg *domain.WireMessage) error
	}

	// Receiver consumes wire messages from a single queue with a fixed credit.
	Receiver interface {
		Link

		Receive(ctx context.Context) (ReceivedMessage, error)
	}

	// LinkFactory creates links over one shared transport connection. One
	// factory exists per pooled connection; the factory pool round-robins
	// across them.
	LinkFactory interface {
		Name() string
		IsClosed() bool
		Close() error

		CreateSender(ctx context.Context, path string) (Sender, error)
		CreateReceiver(ctx context.Context, path string, credit int) (Receiver, error)
		CreateMessage(payload []byte) *domain.WireMessage
	}

	// ReceivedMessage is an inbound message pending settlement. Complete
	// removes it from the queue; Reject returns it for redelivery.
	ReceivedMessage interface {
		ID() string
		CorrelationID() string
		FromHerID() domain.HerID
		ToHerID() domain.HerID
		MessageFunction() string
		ContentType() string
		ApplicationTimestamp() time.Time
		Payload() []byte
		Headers() map[string]any

		Complete(ctx context.Context) error
		Reject(ctx context.Context) error
	}
)
