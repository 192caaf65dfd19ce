package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/agritrace-ledger/internal/domain/trace"
	"github.com/agritrace-ledger/internal/platform/persistence"
)

// CertificateRepository implements trace.CertificateRepository for PostgreSQL
type CertificateRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// Put binds a verification hash to a certificate id, first writer wins
func (r *CertificateRepository) Put(ctx context.Context, verificationHash, certificateID string) error {
	existing, err := r.Get(ctx, verificationHash)
	if err != nil {
		return err
	}
	if existing != "" {
		if existing != certificateID {
			return trace.ErrDuplicateCertificate{VerificationHash: verificationHash}
		}
		return nil
	}

	query := `INSERT INTO certificates (verification_hash, certificate_id) VALUES ($1, $2)`
	if _, err := r.querier.Exec(ctx, query, verificationHash, certificateID); err != nil {
		if isUniqueViolation(err) {
			// Raced with another registration of the same hash
			return trace.ErrDuplicateCertificate{VerificationHash: verificationHash}
		}
		r.logger.Error("failed to register certificate",
			"verification_hash", verificationHash, "certificate_id", certificateID, "error", err)
		return fmt.Errorf("failed to register certificate: %w", err)
	}
	return nil
}

// Get returns the bound certificate id, or "" when the hash is unknown
func (r *CertificateRepository) Get(ctx context.Context, verificationHash string) (string, error) {
	query := `SELECT certificate_id FROM certificates WHERE verification_hash = $1`

	var certificateID string
	err := r.querier.QueryRow(ctx, query, verificationHash).Scan(&certificateID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		r.logger.Error("failed to look up certificate", "verification_hash", verificationHash, "error", err)
		return "", fmt.Errorf("failed to look up certificate: %w", err)
	}
	return certificateID, nil
}
