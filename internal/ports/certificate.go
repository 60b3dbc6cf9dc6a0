package ports

import (
	"crypto/x509"

	"github.com/architeacher/svc-health-messenger/internal/domain"
)

// CertificateValidator checks a certificate against the required key usage.
// A result of CertificateErrNone means the certificate is usable.
type CertificateValidator interface {
	Validate(certificate *x509.Certificate, usage x509.KeyUsage) domain.CertificateErrorFlags
}
