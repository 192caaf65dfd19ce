package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agritrace-ledger/internal/domain/trace"
)

// TraceabilityServiceImpl implements the TraceabilityService interface
type TraceabilityServiceImpl struct {
	ledger Ledger
	logger *slog.Logger
}

// NewTraceabilityService creates a new traceability service
func NewTraceabilityService(logger *slog.Logger, ledger Ledger) TraceabilityService {
	return &TraceabilityServiceImpl{
		ledger: ledger,
		logger: logger,
	}
}

// newTransactionID mints a chain-wide unique record id
func newTransactionID() string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:10]
	return fmt.Sprintf("TXN-%d-%s", time.Now().UnixMilli(), suffix)
}

func (s *TraceabilityServiceImpl) CreateBatch(ctx context.Context, in *CreateBatchInput) (*trace.TransactionRecord, error) {
	if in.BatchID == "" {
		return nil, trace.ErrInvalidInput{Field: "batch_id", Reason: "batch id is required"}
	}
	if in.Owner == "" {
		return nil, trace.ErrInvalidInput{Field: "owner", Reason: "owner is required"}
	}
	if in.Farmer.FarmID == "" {
		return nil, trace.ErrInvalidInput{Field: "farmer.farm_id", Reason: "farm id is required"}
	}
	if in.Farmer.CropType == "" {
		return nil, trace.ErrInvalidInput{Field: "farmer.crop_type", Reason: "crop type is required"}
	}
	if in.Farmer.QuantityKg <= 0 {
		return nil, trace.ErrInvalidInput{Field: "farmer.quantity_kg", Reason: "quantity must be positive"}
	}
	if in.Farmer.HarvestDate == "" {
		return nil, trace.ErrInvalidInput{Field: "farmer.harvest_date", Reason: "harvest date is required"}
	}
	if in.Farmer.GS1.BatchOrLot == "" || in.Farmer.GS1.CountryOfOrigin == "" || in.Farmer.GS1.ProductionDate == "" {
		return nil, trace.ErrInvalidInput{Field: "farmer.gs1", Reason: "gs1 batch/lot, country of origin and production date are required"}
	}
	for _, cert := range in.Farmer.Certificates {
		if cert.VerificationHash != "" && cert.CertificateID == "" {
			return nil, trace.ErrInvalidInput{Field: "farmer.certificates", Reason: "certificate id is required when a verification hash is given"}
		}
	}

	farmer := in.Farmer
	rec := &trace.TransactionRecord{
		TransactionID: newTransactionID(),
		Timestamp:     time.Now().UTC(),
		CreatorRole:   trace.RoleFarmer,
		BatchID:       in.BatchID,
		ParentBatchID: in.ParentBatchID,
		CurrentOwner:  in.Owner,
		CostPrice:     in.CostPrice,
		SellingPrice:  in.SellingPrice,
		Farmer:        &farmer,
	}

	created, err := s.ledger.CreateBatch(ctx, rec)
	if err != nil {
		s.logger.Error("Failed to create batch", "batch_id", in.BatchID, "error", err)
		return nil, err
	}
	return created, nil
}

func (s *TraceabilityServiceImpl) AddProcessorData(ctx context.Context, batchID string, in *ProcessorInput) (*trace.TransactionRecord, error) {
	if err := validateStage(batchID, in.Owner); err != nil {
		return nil, err
	}
	if in.Data.ProcessorID == "" {
		return nil, trace.ErrInvalidInput{Field: "processor.processor_id", Reason: "processor id is required"}
	}
	if len(in.Data.ProcessTypes) == 0 {
		return nil, trace.ErrInvalidInput{Field: "processor.process_types", Reason: "at least one process type is required"}
	}
	if in.Data.OutputQuantityKg <= 0 {
		return nil, trace.ErrInvalidInput{Field: "processor.output_quantity_kg", Reason: "output quantity must be positive"}
	}

	data := in.Data
	rec := s.newStageRecord(batchID, trace.RoleProcessor, in.Owner, in.CostPrice, in.SellingPrice)
	rec.Processor = &data

	appended, err := s.ledger.AddProcessorData(ctx, rec, in.CorrectionOf)
	if err != nil {
		s.logger.Error("Failed to add processor data", "batch_id", batchID, "error", err)
		return nil, err
	}
	return appended, nil
}

func (s *TraceabilityServiceImpl) AddDistributorData(ctx context.Context, batchID string, in *DistributorInput) (*trace.TransactionRecord, error) {
	if err := validateStage(batchID, in.Owner); err != nil {
		return nil, err
	}
	if in.Data.DistributorID == "" {
		return nil, trace.ErrInvalidInput{Field: "distributor.distributor_id", Reason: "distributor id is required"}
	}

	data := in.Data
	rec := s.newStageRecord(batchID, trace.RoleDistributor, in.Owner, in.CostPrice, in.SellingPrice)
	rec.Distributor = &data

	appended, err := s.ledger.AddDistributorData(ctx, rec, in.CorrectionOf)
	if err != nil {
		s.logger.Error("Failed to add distributor data", "batch_id", batchID, "error", err)
		return nil, err
	}
	return appended, nil
}

func (s *TraceabilityServiceImpl) AddRetailerData(ctx context.Context, batchID string, in *RetailerInput) (*trace.TransactionRecord, error) {
	if err := validateStage(batchID, in.Owner); err != nil {
		return nil, err
	}
	if in.Data.RetailerID == "" {
		return nil, trace.ErrInvalidInput{Field: "retailer.retailer_id", Reason: "retailer id is required"}
	}

	data := in.Data
	rec := s.newStageRecord(batchID, trace.RoleRetailer, in.Owner, in.CostPrice, in.SellingPrice)
	rec.Retailer = &data

	appended, err := s.ledger.AddRetailerData(ctx, rec, in.CorrectionOf)
	if err != nil {
		s.logger.Error("Failed to add retailer data", "batch_id", batchID, "error", err)
		return nil, err
	}
	return appended, nil
}

func (s *TraceabilityServiceImpl) MarkAsSold(ctx context.Context, batchID string, in *ConsumerInput) (*trace.TransactionRecord, error) {
	if err := validateStage(batchID, in.Owner); err != nil {
		return nil, err
	}

	data := in.Data
	rec := s.newStageRecord(batchID, trace.RoleConsumer, in.Owner, in.CostPrice, in.SellingPrice)
	rec.Consumer = &data

	sold, err := s.ledger.MarkAsSold(ctx, rec)
	if err != nil {
		s.logger.Error("Failed to mark batch as sold", "batch_id", batchID, "error", err)
		return nil, err
	}
	return sold, nil
}

func (s *TraceabilityServiceImpl) GetFullTrace(ctx context.Context, batchID string) ([]*trace.TransactionRecord, error) {
	return s.ledger.GetFullTrace(ctx, batchID)
}

func (s *TraceabilityServiceImpl) GetCurrentTransaction(ctx context.Context, batchID string) (*trace.TransactionRecord, error) {
	return s.ledger.GetCurrentTransaction(ctx, batchID)
}

func (s *TraceabilityServiceImpl) GetBatchStatus(ctx context.Context, batchID string) (trace.BatchSummary, error) {
	return s.ledger.GetBatchStatus(ctx, batchID)
}

// GetScanPayload aggregates the batch summary and the latest record. Unknown
// batches surface as ErrBatchNotFound so the QR endpoint can 404.
func (s *TraceabilityServiceImpl) GetScanPayload(ctx context.Context, batchID string) (*ScanPayload, error) {
	summary, err := s.ledger.GetBatchStatus(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if !summary.Exists {
		return nil, trace.ErrBatchNotFound{BatchID: batchID}
	}

	current, err := s.ledger.GetCurrentTransaction(ctx, batchID)
	if err != nil {
		return nil, err
	}

	return &ScanPayload{
		BatchID:          batchID,
		Sold:             summary.Sold,
		TransactionCount: summary.TransactionCount,
		Current:          current,
	}, nil
}

func (s *TraceabilityServiceImpl) VerifyCertificate(ctx context.Context, verificationHash string) (string, bool, error) {
	if verificationHash == "" {
		return "", false, trace.ErrInvalidInput{Field: "verification_hash", Reason: "verification hash is required"}
	}
	return s.ledger.VerifyCertificate(ctx, verificationHash)
}

func (s *TraceabilityServiceImpl) newStageRecord(batchID string, role trace.Role, owner string, costPrice, sellingPrice int64) *trace.TransactionRecord {
	return &trace.TransactionRecord{
		TransactionID: newTransactionID(),
		Timestamp:     time.Now().UTC(),
		CreatorRole:   role,
		BatchID:       batchID,
		CurrentOwner:  owner,
		CostPrice:     costPrice,
		SellingPrice:  sellingPrice,
	}
}

func validateStage(batchID, owner string) error {
	if batchID == "" {
		return trace.ErrInvalidInput{Field: "batch_id", Reason: "batch id is required"}
	}
	if owner == "" {
		return trace.ErrInvalidInput{Field: "owner", Reason: "owner is required"}
	}
	return nil
}
