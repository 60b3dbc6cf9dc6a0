package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessagingErrorWrapsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("socket closed")
	err := NewSendError("failed to send message msg-1", cause, KindConnectionForced)

	assert.EqualError(t, err, "failed to send message msg-1: socket closed")
	assert.ErrorIs(t, err, cause)
	assert.True(t, err.Retryable())
	assert.Equal(t, EventSend, err.EventID)
}

func TestMessagingErrorWithoutCause(t *testing.T) {
	t.Parallel()

	err := NewMessagingError(EventReceive, KindNotFound, "queue missing", nil)

	assert.EqualError(t, err, "queue missing")
	assert.Nil(t, err.Unwrap())
	assert.False(t, err.Retryable())
}

func TestSenderMissingInAddressRegistryError(t *testing.T) {
	t.Parallel()

	err := NewSenderMissingInAddressRegistryError(91468, QueueTypeAsynchronous, nil)

	assert.ErrorIs(t, err, ErrMissingInAddressRegistry)
	assert.Equal(t, EventMissingAddress, err.EventID)
	assert.Equal(t, KindNotFound, err.Kind)
	assert.Contains(t, err.Error(), "91468")
}

func TestCertificateErrorCarriesFlags(t *testing.T) {
	t.Parallel()

	err := NewCertificateError(EventRemoteCertificate, CertificateErrEndDate|CertificateErrRevoked, "recipient encryption")

	require.ErrorIs(t, err, ErrCertificateRejected)
	assert.Equal(t, EventRemoteCertificate, err.EventID)
	assert.Contains(t, err.Error(), "recipient encryption")
}

func TestRequiresProtection(t *testing.T) {
	t.Parallel()

	assert.True(t, CollaborationProfile{ContentType: ContentTypeSignedAndEnveloped}.RequiresProtection())
	assert.False(t, CollaborationProfile{ContentType: "text/plain"}.RequiresProtection())
	assert.False(t, CollaborationProfile{}.RequiresProtection())
}

func TestKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "timeout", KindTimeout.String())
	assert.Equal(t, "uncategorized", KindUncategorized.String())
	assert.Equal(t, "uncategorized", Kind(999).String())
}
