package adapters

import (
	"context"

	"github.com/architeacher/svc-health-messenger/internal/domain"
	"github.com/architeacher/svc-health-messenger/internal/ports"
	pkgamqp "github.com/architeacher/svc-health-messenger/pkg/amqp"
)

// BrokerLinkFactory adapts the transport link factory to the pooling
// contracts, translating between domain envelopes and broker envelopes at the
// boundary.
type BrokerLinkFactory struct {
	factory *pkgamqp.LinkFactory
}

func NewBrokerLinkFactory(factory *pkgamqp.LinkFactory) *BrokerLinkFactory {
	return &BrokerLinkFactory{factory: factory}
}

func (f *BrokerLinkFactory) Name() string {
	return f.factory.Name()
}

func (f *BrokerLinkFactory) IsClosed() bool {
	return f.factory.IsClosed()
}

func (f *BrokerLinkFactory) Close() error {
	return f.factory.Close()
}

func (f *BrokerLinkFactory) CreateSender(ctx context.Context, path string) (ports.Sender, error) {
	sender, err := f.factory.CreateSender(ctx, path)
	if err != nil {
		return nil, err
	}

	return &brokerSender{Sender: sender}, nil
}

func (f *BrokerLinkFactory) CreateReceiver(ctx context.Context, path string, credit int) (ports.Receiver, error) {
	receiver, err := f.factory.CreateReceiver(ctx, path, credit)
	if err != nil {
		return nil, err
	}

	return &brokerReceiver{Receiver: receiver}, nil
}

func (f *BrokerLinkFactory) CreateMessage(payload []byte) *domain.WireMessage {
	return &domain.WireMessage{
		Payload: payload,
		Headers: map[string]any{},
	}
}

// brokerSender converts the domain envelope on every send.
type brokerSender struct {
	*pkgamqp.Sender
}

func (s *brokerSender) Send(ctx context.Context, msg *domain.WireMessage) error {
	return s.Sender.Send(ctx, toEnvelope(msg))
}

// brokerReceiver wraps inbound deliveries into the settlement contract.
type brokerReceiver struct {
	*pkgamqp.Receiver
}

func (r *brokerReceiver) Receive(ctx context.Context) (ports.ReceivedMessage, error) {
	inbound, err := r.Receiver.Receive(ctx)
	if err != nil {
		return nil, err
	}

	return &inboundMessage{Inbound: inbound}, nil
}

// inboundMessage retypes the party ids; everything else passes through.
type inboundMessage struct {
	*pkgamqp.Inbound
}

func (m *inboundMessage) FromHerID() domain.HerID {
	return domain.HerID(m.Inbound.FromHerID())
}

func (m *inboundMessage) ToHerID() domain.HerID {
	return domain.HerID(m.Inbound.ToHerID())
}

func toEnvelope(msg *domain.WireMessage) *pkgamqp.Message {
	return &pkgamqp.Message{
		MessageID:            msg.MessageID,
		CorrelationID:        msg.CorrelationID,
		ContentType:          msg.ContentType,
		To:                   msg.To,
		ReplyTo:              msg.ReplyTo,
		TimeToLive:           msg.TimeToLive,
		FromHerID:            int(msg.FromHerID),
		ToHerID:              int(msg.ToHerID),
		CpaID:                msg.CpaID,
		MessageFunction:      msg.MessageFunction,
		ApplicationTimestamp: msg.ApplicationTimestamp,
		Payload:              msg.Payload,
		Headers:              msg.Headers,
	}
}

var (
	_ ports.LinkFactory     = (*BrokerLinkFactory)(nil)
	_ ports.Sender          = (*brokerSender)(nil)
	_ ports.Receiver        = (*brokerReceiver)(nil)
	_ ports.ReceivedMessage = (*inboundMessage)(nil)
)
