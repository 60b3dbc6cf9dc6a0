package service

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/architeacher/svc-health-messenger/internal/config"
	"github.com/architeacher/svc-health-messenger/internal/domain"
	"github.com/architeacher/svc-health-messenger/internal/pool"
	"github.com/architeacher/svc-health-messenger/internal/ports"
)

const receiveFailureDelay = 2 * time.Second

type (
	// MessageHandler processes one inbound message. The payload is already
	// unprotected. Returning an error hands the message back for redelivery.
	MessageHandler func(ctx context.Context, msg ports.ReceivedMessage, payload []byte) error

	MessageListenerDeps struct {
		Messaging              config.MessagingConfig
		Addresses              ports.AddressResolver
		Protector              ports.PayloadProtector
		DecryptionCertificates []*x509.Certificate
		Receivers              *pool.ReceiverPool
		Orchestrator           *SendOrchestrator
		Clock                  ports.Clock
		Logger                 zerolog.Logger
	}

	// MessageListener drains the party's own queues with a fixed number of
	// workers per queue type. Messages that cannot be unprotected are reported
	// back to their sender instead of being retried forever.
	MessageListener struct {
		cfg             config.MessagingConfig
		addresses       ports.AddressResolver
		protector       ports.PayloadProtector
		decryptionCerts []*x509.Certificate
		receivers       *pool.ReceiverPool
		orchestrator    *SendOrchestrator
		clock           ports.Clock
		logger          zerolog.Logger
	}
)

func NewMessageListener(deps MessageListenerDeps) *MessageListener {
	return &MessageListener{
		cfg:             deps.Messaging,
		addresses:       deps.Addresses,
		protector:       deps.Protector,
		decryptionCerts: deps.DecryptionCertificates,
		receivers:       deps.Receivers,
		orchestrator:    deps.Orchestrator,
		clock:           deps.Clock,
		logger:          deps.Logger.With().Str("component", "message_listener").Logger(),
	}
}

// Listen blocks until ctx is done, consuming the party's queue of the given
// type with the configured worker count.
func (l *MessageListener) Listen(ctx context.Context, queueType domain.QueueType, handler MessageHandler) error {
	if handler == nil {
		return fmt.Errorf("%w: handler must not be nil", domain.ErrInvalidArgument)
	}

	queue, err := l.addresses.ResolveQueue(ctx, domain.HerID(l.cfg.OwnHerID), queueType)
	if err != nil {
		return domain.NewSenderMissingInAddressRegistryError(domain.HerID(l.cfg.OwnHerID), queueType, err)
	}

	workers := l.cfg.WorkersFor(string(queueType))
	if workers <= 0 {
		workers = 1
	}

	l.logger.Info().
		Str("queue", queue).
		Int("workers", workers).
		Msg("starting consumers")

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.consume(ctx, queue, handler)
		}()
	}
	wg.Wait()

	return ctx.Err()
}

func (l *MessageListener) consume(ctx context.Context, queue string, handler MessageHandler) {
	for {
		if ctx.Err() != nil {
			return
		}

		receiver, err := l.receivers.Acquire(ctx, queue)
		if err != nil {
			if errors.Is(err, pool.ErrShutDown) {
				return
			}

			l.logger.Error().Err(err).Str("queue", queue).Msg("could not acquire receiver")
			if l.clock.Sleep(ctx, receiveFailureDelay) != nil {
				return
			}

			continue
		}

		l.drain(ctx, queue, receiver, handler)
		l.receivers.Release(queue)
	}
}

// drain receives from one pooled receiver until the context is cancelled or
// the receiver stops yielding. Transient receive errors back off briefly since
// the link heals itself on the next attempt.
func (l *MessageListener) drain(ctx context.Context, queue string, receiver ports.Receiver, handler MessageHandler) {
	for {
		msg, err := receiver.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			l.logger.Warn().Err(err).Str("queue", queue).Msg("receive failed")
			if l.clock.Sleep(ctx, receiveFailureDelay) != nil {
				return
			}

			continue
		}

		l.dispatch(ctx, msg, handler)
	}
}

func (l *MessageListener) dispatch(ctx context.Context, msg ports.ReceivedMessage, handler MessageHandler) {
	payload, err := l.protector.Unprotect(msg.Payload(), l.decryptionCerts)
	if err != nil {
		l.logger.Error().Err(err).
			Str("message_id", msg.ID()).
			Int("from_her_id", int(msg.FromHerID())).
			Msg("payload could not be unprotected, reporting to sender")

		if reportErr := l.orchestrator.ReportErrorToExternalSender(ctx, msg,
			"transport:unable-to-decrypt", err.Error()); reportErr != nil {
			l.logger.Error().Err(reportErr).Str("message_id", msg.ID()).Msg("error report failed")
		}

		return
	}

	if err := handler(ctx, msg, payload); err != nil {
		l.logger.Error().Err(err).Str("message_id", msg.ID()).Msg("handler failed, message goes back for redelivery")
		if rejectErr := msg.Reject(ctx); rejectErr != nil {
			l.logger.Error().Err(rejectErr).Str("message_id", msg.ID()).Msg("reject failed")
		}

		return
	}

	if err := msg.Complete(ctx); err != nil {
		l.logger.Error().Err(err).Str("message_id", msg.ID()).Msg("settlement failed")
	}
}
