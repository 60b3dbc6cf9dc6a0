package infrastructure

import (
	"github.com/rs/zerolog"

	pkgamqp "github.com/architeacher/svc-health-messenger/pkg/amqp"
)

// AmqpLogger bridges the transport package's logging contract onto zerolog.
type AmqpLogger struct {
	logger zerolog.Logger
}

func NewAmqpLogger(logger zerolog.Logger) *AmqpLogger {
	return &AmqpLogger{logger: logger.With().Str("component", "amqp").Logger()}
}

func (l *AmqpLogger) Info() pkgamqp.LogEvent {
	return &amqpLogEvent{event: l.logger.Info()}
}

func (l *AmqpLogger) Error() pkgamqp.LogEvent {
	return &amqpLogEvent{event: l.logger.Error()}
}

func (l *AmqpLogger) Debug() pkgamqp.LogEvent {
	return &amqpLogEvent{event: l.logger.Debug()}
}

type amqpLogEvent struct {
	event *zerolog.Event
}

func (e *amqpLogEvent) Msg(msg string) {
	e.event.Msg(msg)
}

func (e *amqpLogEvent) Err(err error) pkgamqp.LogEvent {
	return &amqpLogEvent{event: e.event.Err(err)}
}

func (e *amqpLogEvent) Str(key, value string) pkgamqp.LogEvent {
	return &amqpLogEvent{event: e.event.Str(key, value)}
}

var _ pkgamqp.Logger = (*AmqpLogger)(nil)
