package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/architeacher/svc-health-messenger/internal/domain"
	pkgamqp "github.com/architeacher/svc-health-messenger/pkg/amqp"
)

// Classify maps a transport failure onto the messaging error taxonomy. The
// mapping is total: anything unrecognized lands on KindUncategorized so
// unknown broker conditions fail fast instead of retrying forever.
func Classify(err error) domain.Kind {
	if err == nil {
		return domain.KindUncategorized
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.KindTimeout
	}

	var msgErr *domain.MessagingError
	if errors.As(err, &msgErr) {
		return msgErr.Kind
	}

	if errors.Is(err, pkgamqp.ErrDisposed) {
		return domain.KindDisposed
	}

	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) {
		return classifyCode(amqpErr.Code)
	}

	if errors.Is(err, amqp.ErrClosed) {
		return domain.KindConnectionForced
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.KindTimeout
	}

	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return domain.KindConnectionForced
	}

	return domain.KindUncategorized
}

func classifyCode(code int) domain.Kind {
	switch code {
	case amqp.ContentTooLarge:
		return domain.KindMessageSizeExceeded
	case amqp.NoConsumers:
		return domain.KindEntityDisabled
	case amqp.ConnectionForced:
		return domain.KindConnectionForced
	case amqp.InvalidPath, amqp.NotFound:
		return domain.KindNotFound
	case amqp.AccessRefused, amqp.NotAllowed:
		return domain.KindUnauthorized
	case amqp.ResourceLocked:
		return domain.KindLockLost
	case amqp.FrameError, amqp.SyntaxError, amqp.CommandInvalid, amqp.ChannelError, amqp.UnexpectedFrame:
		return domain.KindDetachForced
	case amqp.ResourceError, amqp.InternalError:
		return domain.KindServerBusy
	default:
		return domain.KindUncategorized
	}
}

// IsRetryable reports whether the kind is a transient broker signal worth
// backing off for.
func IsRetryable(kind domain.Kind) bool {
	switch kind {
	case domain.KindTimeout,
		domain.KindServerBusy,
		domain.KindConnectionForced,
		domain.KindDetachForced,
		domain.KindLinkStolen:
		return true
	default:
		return false
	}
}
