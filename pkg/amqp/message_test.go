package amqp

import (
	"context"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPublishingMapsEnvelope(t *testing.T) {
	t.Parallel()

	sent := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	msg := &Message{
		MessageID:            "msg-1",
		CorrelationID:        "corr-1",
		ContentType:          "application/pkcs7-mime; smime-type=enveloped-data",
		To:                   "91468_async",
		ReplyTo:              "123_sync",
		TimeToLive:           15 * time.Second,
		FromHerID:            123,
		ToHerID:              91468,
		CpaID:                "cpa-42",
		MessageFunction:      "DIALOG_INNBYGGER_TEST",
		ApplicationTimestamp: sent,
		Payload:              []byte("<MsgHead/>"),
		Headers:              map[string]any{"custom": "value"},
	}

	pub := buildPublishing(msg)

	assert.Equal(t, "msg-1", pub.MessageId)
	assert.Equal(t, "corr-1", pub.CorrelationId)
	assert.Equal(t, "application/pkcs7-mime; smime-type=enveloped-data", pub.ContentType)
	assert.Equal(t, "123_sync", pub.ReplyTo)
	assert.Equal(t, "DIALOG_INNBYGGER_TEST", pub.Type)
	assert.Equal(t, sent, pub.Timestamp)
	assert.Equal(t, amqp.Persistent, pub.DeliveryMode)
	assert.Equal(t, "15000", pub.Expiration, "time to live travels as broker expiration in milliseconds")
	assert.Equal(t, []byte("<MsgHead/>"), pub.Body)

	assert.Equal(t, "value", pub.Headers["custom"])
	assert.Equal(t, int64(123), pub.Headers[HeaderFromHerID])
	assert.Equal(t, int64(91468), pub.Headers[HeaderToHerID])
	assert.Equal(t, "cpa-42", pub.Headers[HeaderCpaID])
}

func TestBuildPublishingOmitsOptionalFields(t *testing.T) {
	t.Parallel()

	pub := buildPublishing(&Message{MessageID: "msg-1"})

	assert.Empty(t, pub.Expiration, "no expiration without a time to live")
	assert.NotContains(t, pub.Headers, HeaderCpaID)
}

type fakeAcknowledger struct {
	mu    sync.Mutex
	acks  int
	nacks int
}

func (a *fakeAcknowledger) Ack(_ uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.acks++

	return nil
}

func (a *fakeAcknowledger) Nack(_ uint64, _, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.nacks++

	return nil
}

func (a *fakeAcknowledger) Reject(_ uint64, _ bool) error {
	return nil
}

func TestInboundExposesDeliveryFields(t *testing.T) {
	t.Parallel()

	sent := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	msg := NewInbound(amqp.Delivery{
		MessageId:     "inbound-1",
		CorrelationId: "corr-1",
		ContentType:   "text/plain",
		Type:          "DIALOG_INNBYGGER_TEST",
		Timestamp:     sent,
		Body:          []byte("<MsgHead/>"),
		Headers: amqp.Table{
			HeaderFromHerID: int64(2001),
			HeaderToHerID:   int32(123),
		},
	})

	assert.Equal(t, "inbound-1", msg.ID())
	assert.Equal(t, "corr-1", msg.CorrelationID())
	assert.Equal(t, 2001, msg.FromHerID())
	assert.Equal(t, 123, msg.ToHerID())
	assert.Equal(t, "DIALOG_INNBYGGER_TEST", msg.MessageFunction())
	assert.Equal(t, "text/plain", msg.ContentType())
	assert.Equal(t, sent, msg.ApplicationTimestamp())
	assert.Equal(t, []byte("<MsgHead/>"), msg.Payload())
}

func TestInboundHeadersAreACopy(t *testing.T) {
	t.Parallel()

	msg := NewInbound(amqp.Delivery{
		Headers: amqp.Table{"custom": "value"},
	})

	headers := msg.Headers()
	headers["custom"] = "mutated"

	assert.Equal(t, "value", msg.Headers()["custom"])
}

func TestInboundSettlement(t *testing.T) {
	t.Parallel()

	ack := &fakeAcknowledger{}
	msg := NewInbound(amqp.Delivery{Acknowledger: ack, DeliveryTag: 7})

	require.NoError(t, msg.Complete(context.Background()))
	assert.Equal(t, 1, ack.acks)

	require.NoError(t, msg.Reject(context.Background()))
	assert.Equal(t, 1, ack.nacks)
}

func TestHerIDHeaderToleratesWidths(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		value    any
		expected int
	}{
		{name: "int64", value: int64(91468), expected: 91468},
		{name: "int32", value: int32(91468), expected: 91468},
		{name: "int", value: 91468, expected: 91468},
		{name: "numeric string", value: "91468", expected: 91468},
		{name: "garbage string", value: "not-a-number", expected: 0},
		{name: "unsupported type", value: 3.14, expected: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			headers := amqp.Table{"fromHerId": tc.value}
			assert.Equal(t, tc.expected, herIDHeader(headers, "fromHerId"))
		})
	}
}

func TestHerIDHeaderMissingKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, herIDHeader(amqp.Table{}, "fromHerId"))
}
