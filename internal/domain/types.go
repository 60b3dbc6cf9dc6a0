package domain

import (
	"crypto/x509"
	"time"
)

const (
	// ContentTypeSignedAndEnveloped marks payloads that must be signed and
	// encrypted before they reach the broker.
	ContentTypeSignedAndEnveloped = "application/pkcs7-mime; smime-type=enveloped-data"

	DeliveryProtocolAMQP = "amqp"
	DeliveryProtocolNone = "none"
)

type (
	// HerID identifies a healthcare communication party in the address registry.
	HerID int

	// QueueType selects the destination queue class for an outgoing message and
	// determines its time-to-live and addressing rules.
	QueueType string

	// OutgoingMessage is the protocol-agnostic record the application hands to
	// the send pipeline.
	OutgoingMessage struct {
		MessageID         string
		FromHerID         HerID
		ToHerID           HerID
		MessageFunction   string
		Payload           []byte
		ScheduledSendTime time.Time
	}

	// WireMessage is the transport envelope built from an OutgoingMessage plus
	// the headers resolved during orchestration. It is created per send call
	// and not retained afterwards.
	WireMessage struct {
		MessageID            string
		CorrelationID        string
		ContentType          string
		To                   string
		ReplyTo              string
		TimeToLive           time.Duration
		FromHerID            HerID
		ToHerID              HerID
		CpaID                string
		MessageFunction      string
		ApplicationTimestamp time.Time
		Payload              []byte
		Headers              map[string]any
	}

	// CollaborationProfile holds the negotiated metadata between two parties,
	// resolved from the external CPA/CPP registry.
	CollaborationProfile struct {
		CpaID                 string
		ContentType           string
		DeliveryProtocol      string
		EncryptionCertificate *x509.Certificate
	}

	// CertificateErrorFlags is a bitset of validation failures. None means the
	// certificate is usable.
	CertificateErrorFlags uint
)

const (
	QueueTypeAsynchronous     QueueType = "asynchronous"
	QueueTypeSynchronous      QueueType = "synchronous"
	QueueTypeSynchronousReply QueueType = "synchronousreply"
	QueueTypeError            QueueType = "error"
)

// CertificateErrNone means the certificate passed every check.
const CertificateErrNone CertificateErrorFlags = 0

const (
	CertificateErrStartDate CertificateErrorFlags = 1 << iota
	CertificateErrEndDate
	CertificateErrUsage
	CertificateErrRevoked
	CertificateErrRevocationUnknown
	CertificateErrMissing
)

// RequiresProtection reports whether the negotiated content type demands a
// signed and enveloped payload.
func (p CollaborationProfile) RequiresProtection() bool {
	return p.ContentType == ContentTypeSignedAndEnveloped
}

// Header keys stamped by the error-reporting sub-protocol. A key is only
// written when the inbound message does not already carry it.
const (
	HeaderOriginalMessageID  = "originalMessageId"
	HeaderReceiverTimestamp  = "receiverTimestamp"
	HeaderErrorCondition     = "errorCondition"
	HeaderErrorDescription   = "errorDescription"
	HeaderErrorConditionData = "errorConditionData"
)
