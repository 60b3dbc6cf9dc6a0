package amqp

import (
	"context"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Application headers carrying the party addressing that has no native frame
// field. The strings are fixed by the messaging protocol.
const (
	HeaderFromHerID = "fromHerId"
	HeaderToHerID   = "toHerId"
	HeaderCpaID     = "cpaId"
)

// Message is the broker envelope handed to a sender link. Party ids and the
// collaboration agreement id travel as application headers; everything else
// maps onto native frame fields.
type Message struct {
	MessageID            string
	CorrelationID        string
	ContentType          string
	To                   string
	ReplyTo              string
	TimeToLive           time.Duration
	FromHerID            int
	ToHerID              int
	CpaID                string
	MessageFunction      string
	ApplicationTimestamp time.Time
	Payload              []byte
	Headers              map[string]any
}

// buildPublishing maps the envelope onto the broker frame.
func buildPublishing(msg *Message) amqp.Publishing {
	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}

	headers[HeaderFromHerID] = int64(msg.FromHerID)
	headers[HeaderToHerID] = int64(msg.ToHerID)
	if msg.CpaID != "" {
		headers[HeaderCpaID] = msg.CpaID
	}

	pub := amqp.Publishing{
		MessageId:     msg.MessageID,
		CorrelationId: msg.CorrelationID,
		ContentType:   msg.ContentType,
		ReplyTo:       msg.ReplyTo,
		Type:          msg.MessageFunction,
		Timestamp:     msg.ApplicationTimestamp,
		DeliveryMode:  amqp.Persistent,
		Headers:       headers,
		Body:          msg.Payload,
	}

	if msg.TimeToLive > 0 {
		pub.Expiration = strconv.FormatInt(msg.TimeToLive.Milliseconds(), 10)
	}

	return pub
}

// Inbound is a consumed delivery pending settlement.
type Inbound struct {
	delivery amqp.Delivery
}

func NewInbound(delivery amqp.Delivery) *Inbound {
	return &Inbound{delivery: delivery}
}

func (m *Inbound) ID() string {
	return m.delivery.MessageId
}

func (m *Inbound) CorrelationID() string {
	return m.delivery.CorrelationId
}

func (m *Inbound) FromHerID() int {
	return herIDHeader(m.delivery.Headers, HeaderFromHerID)
}

func (m *Inbound) ToHerID() int {
	return herIDHeader(m.delivery.Headers, HeaderToHerID)
}

func (m *Inbound) MessageFunction() string {
	return m.delivery.Type
}

func (m *Inbound) ContentType() string {
	return m.delivery.ContentType
}

func (m *Inbound) ApplicationTimestamp() time.Time {
	return m.delivery.Timestamp
}

func (m *Inbound) Payload() []byte {
	return m.delivery.Body
}

func (m *Inbound) Headers() map[string]any {
	headers := make(map[string]any, len(m.delivery.Headers))
	for k, v := range m.delivery.Headers {
		headers[k] = v
	}

	return headers
}

// Complete removes the message from its queue for good.
func (m *Inbound) Complete(_ context.Context) error {
	return m.delivery.Ack(false)
}

// Reject hands the message back for redelivery.
func (m *Inbound) Reject(_ context.Context) error {
	return m.delivery.Nack(false, true)
}

// herIDHeader tolerates the integer widths different broker clients use.
func herIDHeader(headers amqp.Table, key string) int {
	v, ok := headers[key]
	if !ok {
		return 0
	}

	switch id := v.(type) {
	case int64:
		return int(id)
	case int32:
		return int(id)
	case int:
		return id
	case string:
		parsed, err := strconv.Atoi(id)
		if err != nil {
			return 0
		}

		return parsed
	default:
		return 0
	}
}
