package trace

import "errors"

// Ledger failure kinds. All are deterministic given ledger state, surfaced
// synchronously and never retried internally. Each type implements Is so
// callers can match with errors.Is against a zero-value target.

// IsNotFound reports whether err is one of the ledger's not-found kinds
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBatchNotFound{}) || errors.Is(err, ErrTransactionNotFound{})
}

// ErrBatchNotFound indicates a write or existence-requiring query against an
// unknown batch
type ErrBatchNotFound struct {
	BatchID string
}

func (e ErrBatchNotFound) Error() string {
	return "batch not found: " + e.BatchID
}

func (e ErrBatchNotFound) Is(target error) bool {
	t, ok := target.(ErrBatchNotFound)
	if !ok {
		return false
	}
	return t.BatchID == "" || t.BatchID == e.BatchID
}

// ErrTransactionNotFound indicates an unknown transaction id
type ErrTransactionNotFound struct {
	TransactionID string
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.TransactionID
}

func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	return t.TransactionID == "" || t.TransactionID == e.TransactionID
}

// ErrBatchAlreadyExists indicates a duplicate creation attempt; the original
// batch is left untouched
type ErrBatchAlreadyExists struct {
	BatchID string
}

func (e ErrBatchAlreadyExists) Error() string {
	return "batch already exists: " + e.BatchID
}

func (e ErrBatchAlreadyExists) Is(target error) bool {
	t, ok := target.(ErrBatchAlreadyExists)
	if !ok {
		return false
	}
	return t.BatchID == "" || t.BatchID == e.BatchID
}

// ErrBatchReadOnly indicates a write against a sold batch
type ErrBatchReadOnly struct {
	BatchID string
}

func (e ErrBatchReadOnly) Error() string {
	return "batch is sold and read-only: " + e.BatchID
}

func (e ErrBatchReadOnly) Is(target error) bool {
	t, ok := target.(ErrBatchReadOnly)
	if !ok {
		return false
	}
	return t.BatchID == "" || t.BatchID == e.BatchID
}

// ErrInvalidCorrectionTarget indicates a correction_of that does not resolve
// to a transaction within the same batch
type ErrInvalidCorrectionTarget struct {
	BatchID       string
	TransactionID string
}

func (e ErrInvalidCorrectionTarget) Error() string {
	return "correction target " + e.TransactionID + " not found in batch " + e.BatchID
}

func (e ErrInvalidCorrectionTarget) Is(target error) bool {
	t, ok := target.(ErrInvalidCorrectionTarget)
	if !ok {
		return false
	}
	return (t.BatchID == "" || t.BatchID == e.BatchID) &&
		(t.TransactionID == "" || t.TransactionID == e.TransactionID)
}

// ErrDuplicateCertificate indicates a verification hash already bound to a
// different certificate id; the original binding wins
type ErrDuplicateCertificate struct {
	VerificationHash string
}

func (e ErrDuplicateCertificate) Error() string {
	return "verification hash already registered: " + e.VerificationHash
}

func (e ErrDuplicateCertificate) Is(target error) bool {
	t, ok := target.(ErrDuplicateCertificate)
	if !ok {
		return false
	}
	return t.VerificationHash == "" || t.VerificationHash == e.VerificationHash
}

// ErrInvalidInput indicates a missing required field, a negative price or a
// non-positive quantity
type ErrInvalidInput struct {
	Field  string
	Reason string
}

func (e ErrInvalidInput) Error() string {
	return "invalid input: " + e.Field + ": " + e.Reason
}

func (e ErrInvalidInput) Is(target error) bool {
	t, ok := target.(ErrInvalidInput)
	if !ok {
		return false
	}
	return t.Field == "" || t.Field == e.Field
}

// ErrConflict indicates a lost race between two writers on the same batch,
// detected by the backing store's uniqueness constraints
type ErrConflict struct {
	BatchID string
}

func (e ErrConflict) Error() string {
	return "concurrent write conflict on batch: " + e.BatchID
}

func (e ErrConflict) Is(target error) bool {
	t, ok := target.(ErrConflict)
	if !ok {
		return false
	}
	return t.BatchID == "" || t.BatchID == e.BatchID
}
