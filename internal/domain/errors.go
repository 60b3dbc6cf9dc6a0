package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument          = errors.New("invalid argument")
	ErrInvalidTimeToLive        = errors.New("invalid time to live")
	ErrMissingConnectionString  = errors.New("missing broker connection settings")
	ErrMissingInAddressRegistry = errors.New("party not found in address registry")
	ErrCertificateRejected      = errors.New("certificate validation failed")
)

// EventID categorizes externally visible failures so operators can tell which
// side of a conversation needs attention.
type EventID int

const (
	EventSend EventID = iota + 1
	EventReceive
	EventConnect
	EventClose
	EventRetry
	EventLocalCertificate
	EventRemoteCertificate
	EventMissingAddress
	EventReportError
)

// Kind classifies a transport failure. Only a fixed subset is retryable; the
// classification is total, so unknown broker conditions land on
// KindUncategorized and fail fast.
type Kind int

const (
	KindUncategorized Kind = iota
	KindTimeout
	KindServerBusy
	KindConnectionForced
	KindDetachForced
	KindLinkStolen
	KindNotFound
	KindUnauthorized
	KindEntityDisabled
	KindQuotaExceeded
	KindLockLost
	KindMessageSizeExceeded
	KindDisposed
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindServerBusy:
		return "server_busy"
	case KindConnectionForced:
		return "connection_forced"
	case KindDetachForced:
		return "detach_forced"
	case KindLinkStolen:
		return "link_stolen"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindEntityDisabled:
		return "entity_disabled"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindLockLost:
		return "lock_lost"
	case KindMessageSizeExceeded:
		return "message_size_exceeded"
	case KindDisposed:
		return "disposed"
	default:
		return "uncategorized"
	}
}

type (
	// MessagingError is the typed failure surfaced by the send and receive
	// pipelines. EventID tells operators which stage failed, Kind what the
	// broker signalled.
	MessagingError struct {
		EventID EventID
		Kind    Kind
		Message string
		Cause   error
	}
)

func (e *MessagingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}

	return e.Message
}

func (e *MessagingError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the classified kind is a transient broker signal.
func (e *MessagingError) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindServerBusy, KindConnectionForced, KindDetachForced, KindLinkStolen:
		return true
	default:
		return false
	}
}

func NewMessagingError(eventID EventID, kind Kind, message string, cause error) *MessagingError {
	return &MessagingError{
		EventID: eventID,
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// NewSenderMissingInAddressRegistryError is raised when the destination queue
// cannot be resolved for a party. Address registry gaps are configuration
// problems and are never retried.
func NewSenderMissingInAddressRegistryError(herID HerID, queueType QueueType, cause error) *MessagingError {
	if cause == nil {
		cause = ErrMissingInAddressRegistry
	}

	return NewMessagingError(
		EventMissingAddress,
		KindNotFound,
		fmt.Sprintf("no %s queue registered for her-id %d", queueType, herID),
		cause,
	)
}

// NewCertificateError reports a certificate fault for either the local signing
// certificate or the remote encryption certificate, under distinct event ids.
func NewCertificateError(eventID EventID, flags CertificateErrorFlags, owner string) *MessagingError {
	return NewMessagingError(
		eventID,
		KindUncategorized,
		fmt.Sprintf("certificate for %s failed validation (flags %#x)", owner, uint(flags)),
		ErrCertificateRejected,
	)
}

func NewSendError(message string, cause error, kind Kind) *MessagingError {
	return NewMessagingError(EventSend, kind, message, cause)
}
