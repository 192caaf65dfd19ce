package ledger

import (
	"context"

	"github.com/agritrace-ledger/internal/domain/trace"
)

// CertificateRegistry maps certificate verification hashes to certificate
// ids. Bindings are first-writer-wins: once a hash anchors a certificate it
// can never be rebound, which is what makes it usable as tamper evidence.
type CertificateRegistry struct {
	certs trace.CertificateRepository
}

// NewCertificateRegistry creates a registry over the given index
func NewCertificateRegistry(certs trace.CertificateRepository) *CertificateRegistry {
	return &CertificateRegistry{certs: certs}
}

// Register binds verificationHash to certificateID. Re-registering the same
// binding is an idempotent no-op; a different id for an existing hash fails
// with ErrDuplicateCertificate and leaves the original binding intact.
func (r *CertificateRegistry) Register(ctx context.Context, verificationHash, certificateID string) error {
	return r.certs.Put(ctx, verificationHash, certificateID)
}

// Lookup resolves a verification hash to its certificate id. Absence is a
// normal outcome, reported as ok=false, never as an error.
func (r *CertificateRegistry) Lookup(ctx context.Context, verificationHash string) (string, bool, error) {
	id, err := r.certs.Get(ctx, verificationHash)
	if err != nil {
		return "", false, err
	}
	return id, id != "", nil
}
