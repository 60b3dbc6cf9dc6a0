package ports

import (
	"crypto/x509"
)

// PayloadProtector signs and encrypts outbound payloads and reverses the
// transform for inbound ones. The cryptography lives outside this module.
type PayloadProtector interface {
	// ContentType declares the media type Protect produces.
	ContentType() string

	Protect(payload []byte, encryptionCertificate *x509.Certificate) ([]byte, error)
	Unprotect(data []byte, decryptionCertificates []*x509.Certificate) ([]byte, error)
}
