package service

import (
	"context"
	"crypto/x509"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/architeacher/svc-health-messenger/internal/config"
	"github.com/architeacher/svc-health-messenger/internal/domain"
	"github.com/architeacher/svc-health-messenger/internal/pool"
	"github.com/architeacher/svc-health-messenger/internal/ports"
	"github.com/architeacher/svc-health-messenger/internal/retry"
)

type (
	// SendOrchestratorDeps carries everything the orchestrator needs. The
	// resolver, validator and protector are external collaborators.
	SendOrchestratorDeps struct {
		Messaging          config.MessagingConfig
		CircuitBreaker     config.CircuitBreakerConfig
		Addresses          ports.AddressResolver
		Profiles           ports.ProfileResolver
		Certificates       ports.CertificateValidator
		Protector          ports.PayloadProtector
		SigningCertificate *x509.Certificate
		Senders            *pool.SenderPool
		Retrier            *retry.Operation
		Clock              ports.Clock
		Logger             zerolog.Logger
	}

	// SendOrchestrator is the single entry point for outbound traffic. It
	// resolves the destination queue, validates certificates, protects the
	// payload, builds the wire message and pushes it through a pooled sender
	// with the configured retry policy.
	SendOrchestrator struct {
		cfg                config.MessagingConfig
		addresses          ports.AddressResolver
		profiles           ports.ProfileResolver
		certificates       ports.CertificateValidator
		protector          ports.PayloadProtector
		signingCertificate *x509.Certificate
		senders            *pool.SenderPool
		retrier            *retry.Operation
		breaker            *gobreaker.CircuitBreaker
		clock              ports.Clock
		logger             zerolog.Logger
	}

	sendOptions struct {
		replyTo       string
		correlationID string
	}

	// SendOption customizes a single Send call.
	SendOption func(*sendOptions)

	reportOptions struct {
		conditionData string
	}

	// ReportOption customizes a single error report.
	ReportOption func(*reportOptions)
)

// WithReplyTo sets the reply queue explicitly instead of deriving it from the
// sender's own synchronous queue.
func WithReplyTo(queue string) SendOption {
	return func(o *sendOptions) {
		o.replyTo = queue
	}
}

// WithCorrelationID overrides the correlation id, which otherwise defaults to
// the message id.
func WithCorrelationID(id string) SendOption {
	return func(o *sendOptions) {
		o.correlationID = id
	}
}

// WithErrorConditionData attaches machine-readable detail to an error report.
func WithErrorConditionData(data string) ReportOption {
	return func(o *reportOptions) {
		o.conditionData = data
	}
}

func NewSendOrchestrator(deps SendOrchestratorDeps) *SendOrchestrator {
	o := &SendOrchestrator{
		cfg:                deps.Messaging,
		addresses:          deps.Addresses,
		profiles:           deps.Profiles,
		certificates:       deps.Certificates,
		protector:          deps.Protector,
		signingCertificate: deps.SigningCertificate,
		senders:            deps.Senders,
		retrier:            deps.Retrier,
		clock:              deps.Clock,
		logger:             deps.Logger.With().Str("component", "send_orchestrator").Logger(),
	}

	if deps.CircuitBreaker.Enabled {
		o.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "broker-send",
			MaxRequests: deps.CircuitBreaker.MaxRequests,
			Interval:    deps.CircuitBreaker.Interval,
			Timeout:     deps.CircuitBreaker.Timeout,
		})
	}

	return o
}

// Send pushes one outgoing message to the queue class given by queueType.
// Failures surface as typed messaging errors; they are never dropped.
func (o *SendOrchestrator) Send(ctx context.Context, msg *domain.OutgoingMessage, queueType domain.QueueType, opts ...SendOption) error {
	options := sendOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	if msg == nil {
		return fmt.Errorf("%w: message must not be nil", domain.ErrInvalidArgument)
	}
	if msg.MessageID == "" {
		return fmt.Errorf("%w: message id must not be empty", domain.ErrInvalidArgument)
	}
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%w: message payload must not be empty", domain.ErrInvalidArgument)
	}

	queueName, err := o.resolveQueue(ctx, msg.ToHerID, queueType, options.replyTo)
	if err != nil {
		return err
	}

	profile, err := o.profiles.ResolveProfile(ctx, msg.FromHerID, msg.ToHerID, msg.MessageFunction)
	if err != nil {
		return fmt.Errorf("failed to resolve collaboration profile for her-id %d: %w", msg.ToHerID, err)
	}

	if profile.RequiresProtection() {
		if err := o.validateCertificates(profile); err != nil {
			return err
		}
	}

	payload, err := o.protector.Protect(msg.Payload, profile.EncryptionCertificate)
	if err != nil {
		return fmt.Errorf("failed to protect payload for message %s: %w", msg.MessageID, err)
	}

	wire := o.buildWireMessage(ctx, msg, queueType, queueName, payload, profile, options)

	return o.sendWire(ctx, queueName, wire)
}

// ReportErrorToExternalSender notifies the originating party that an inbound
// message failed processing, then settles the message so it is never
// redelivered: redelivery after reporting would duplicate the notification.
// The clone carries no payload, and headers already present on the inbound
// message are left untouched so re-running a report does not re-stamp them.
func (o *SendOrchestrator) ReportErrorToExternalSender(ctx context.Context, inbound ports.ReceivedMessage, errorCode, description string, opts ...ReportOption) error {
	options := reportOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	if inbound == nil {
		return fmt.Errorf("%w: inbound message must not be nil", domain.ErrInvalidArgument)
	}
	if errorCode == "" {
		return fmt.Errorf("%w: error code must not be empty", domain.ErrInvalidArgument)
	}

	errorQueue, err := o.addresses.ResolveQueue(ctx, inbound.FromHerID(), domain.QueueTypeError)
	if err != nil {
		return domain.NewSenderMissingInAddressRegistryError(inbound.FromHerID(), domain.QueueTypeError, err)
	}

	headers := inbound.Headers()
	if headers == nil {
		headers = map[string]any{}
	}

	stampHeader(headers, domain.HeaderOriginalMessageID, inbound.ID())
	stampHeader(headers, domain.HeaderReceiverTimestamp, o.clock.Now().Format(time.RFC3339))
	stampHeader(headers, domain.HeaderErrorCondition, errorCode)
	stampHeader(headers, domain.HeaderErrorDescription, description)
	if options.conditionData != "" {
		stampHeader(headers, domain.HeaderErrorConditionData, options.conditionData)
	}

	wire := &domain.WireMessage{
		MessageID:            uuid.NewString(),
		CorrelationID:        inbound.ID(),
		ContentType:          inbound.ContentType(),
		To:                   errorQueue,
		TimeToLive:           o.cfg.TimeToLiveFor(string(domain.QueueTypeError)),
		FromHerID:            inbound.ToHerID(),
		ToHerID:              inbound.FromHerID(),
		MessageFunction:      inbound.MessageFunction(),
		ApplicationTimestamp: o.clock.Now(),
		Headers:              headers,
	}

	if err := o.sendWire(ctx, errorQueue, wire); err != nil {
		return fmt.Errorf("failed to report error to sender %d: %w", inbound.FromHerID(), err)
	}

	if err := inbound.Complete(ctx); err != nil {
		return domain.NewMessagingError(domain.EventReportError, domain.KindUncategorized,
			"failed to settle inbound message after error report", err)
	}

	o.logger.Info().
		Str("original_message_id", inbound.ID()).
		Str("error_condition", errorCode).
		Int("to_her_id", int(inbound.FromHerID())).
		Msg("reported processing error to external sender")

	return nil
}

func (o *SendOrchestrator) resolveQueue(ctx context.Context, toHerID domain.HerID, queueType domain.QueueType, replyTo string) (string, error) {
	if queueType == domain.QueueTypeSynchronousReply {
		if replyTo == "" {
			return "", fmt.Errorf("%w: reply-to queue is required for synchronous replies", domain.ErrInvalidArgument)
		}

		return replyTo, nil
	}

	queueName, err := o.addresses.ResolveQueue(ctx, toHerID, queueType)
	if err != nil {
		return "", domain.NewSenderMissingInAddressRegistryError(toHerID, queueType, err)
	}

	return queueName, nil
}

// validateCertificates checks the recipient's encryption certificate and the
// local signing certificate separately, so operators can tell which party has
// to rotate a certificate. Faults either abort the send or are logged and
// ignored, governed by IgnoreCertificateErrorOnSend.
func (o *SendOrchestrator) validateCertificates(profile domain.CollaborationProfile) error {
	if flags := o.certificates.Validate(profile.EncryptionCertificate, x509.KeyUsageKeyEncipherment); flags != domain.CertificateErrNone {
		certErr := domain.NewCertificateError(domain.EventRemoteCertificate, flags, "recipient encryption")
		if !o.cfg.IgnoreCertificateErrorOnSend {
			return certErr
		}

		o.logger.Warn().Err(certErr).Msg("ignoring recipient certificate error on send")
	}

	if flags := o.certificates.Validate(o.signingCertificate, x509.KeyUsageDigitalSignature); flags != domain.CertificateErrNone {
		certErr := domain.NewCertificateError(domain.EventLocalCertificate, flags, "local signing")
		if !o.cfg.IgnoreCertificateErrorOnSend {
			return certErr
		}

		o.logger.Warn().Err(certErr).Msg("ignoring local signing certificate error on send")
	}

	return nil
}

func (o *SendOrchestrator) buildWireMessage(
	ctx context.Context,
	msg *domain.OutgoingMessage,
	queueType domain.QueueType,
	queueName string,
	payload []byte,
	profile domain.CollaborationProfile,
	options sendOptions,
) *domain.WireMessage {
	correlationID := options.correlationID
	if correlationID == "" {
		correlationID = msg.MessageID
	}

	replyTo := options.replyTo
	if replyTo == "" && o.cfg.OwnHerID != 0 {
		own, err := o.addresses.ResolveQueue(ctx, domain.HerID(o.cfg.OwnHerID), domain.QueueTypeSynchronous)
		if err != nil {
			o.logger.Warn().Err(err).Msg("could not resolve own synchronous queue for reply-to")
		} else {
			replyTo = own
		}
	}

	return &domain.WireMessage{
		MessageID:            msg.MessageID,
		CorrelationID:        correlationID,
		ContentType:          o.protector.ContentType(),
		To:                   queueName,
		ReplyTo:              replyTo,
		TimeToLive:           o.cfg.TimeToLiveFor(string(queueType)),
		FromHerID:            msg.FromHerID,
		ToHerID:              msg.ToHerID,
		CpaID:                profile.CpaID,
		MessageFunction:      msg.MessageFunction,
		ApplicationTimestamp: o.clock.Now(),
		Payload:              payload,
		Headers:              map[string]any{},
	}
}

// sendWire acquires a pooled sender for the destination, sends under the
// retry policy and releases the sender regardless of outcome.
func (o *SendOrchestrator) sendWire(ctx context.Context, queueName string, wire *domain.WireMessage) error {
	sender, err := o.senders.Acquire(ctx, queueName)
	if err != nil {
		return domain.NewMessagingError(domain.EventConnect, retry.Classify(err),
			fmt.Sprintf("could not acquire sender for %q", queueName), err)
	}
	defer o.senders.Release(queueName)

	err = o.retrier.Do(ctx, func(ctx context.Context) error {
		return o.execute(ctx, sender, wire)
	})
	if err != nil {
		return domain.NewSendError(
			fmt.Sprintf("failed to send message %s to %q", wire.MessageID, queueName), err, retry.Classify(err))
	}

	o.logger.Debug().
		Str("message_id", wire.MessageID).
		Str("to", queueName).
		Msg("message sent")

	return nil
}

func (o *SendOrchestrator) execute(ctx context.Context, sender ports.Sender, wire *domain.WireMessage) error {
	if o.breaker == nil {
		return sender.Send(ctx, wire)
	}

	_, err := o.breaker.Execute(func() (any, error) {
		return nil, sender.Send(ctx, wire)
	})

	return err
}

func stampHeader(headers map[string]any, key string, value any) {
	if _, ok := headers[key]; !ok {
		headers[key] = value
	}
}
