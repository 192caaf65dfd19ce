package trace_projector

import (
	"context"

	"github.com/agritrace-ledger/internal/domain/trace"
)

// ArchiveService consumes trace events and materializes the archive read model.
// The signature mirrors the consumer message handler so implementations can be
// wired directly into a subscription.
type ArchiveService interface {
	ArchiveEvent(ctx context.Context, key []byte, value []byte) error
}

// ArchiveWriter persists projected events. Satisfied by the MongoDB archive
// repository.
type ArchiveWriter interface {
	Upsert(ctx context.Context, ev *trace.Event) error
}
