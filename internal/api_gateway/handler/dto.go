package handler

import (
	"time"

	"github.com/agritrace-ledger/internal/api_gateway/service"
	"github.com/agritrace-ledger/internal/domain/trace"
)

// Monetary fields cross the API boundary as decimal strings ("25.50") and
// are stored as minor units. Conversion happens only in this file.

// GS1Request carries GS1 identification fields on a creation request
type GS1Request struct {
	BatchOrLot      string `json:"batch_or_lot" binding:"required"`
	CountryOfOrigin string `json:"country_of_origin" binding:"required"`
	ProductionDate  string `json:"production_date" binding:"required"`
	GTIN            string `json:"gtin,omitempty"`
}

// CertificateRequest attaches a certificate to a creation request
type CertificateRequest struct {
	CertificateID    string `json:"certificate_id" binding:"required"`
	Issuer           string `json:"issuer"`
	VerificationHash string `json:"verification_hash"`
}

// FarmerRequest is the creation-stage payload of CreateBatchRequest
type FarmerRequest struct {
	FarmID       string               `json:"farm_id" binding:"required"`
	CropType     string               `json:"crop_type" binding:"required"`
	HarvestDate  string               `json:"harvest_date" binding:"required"`
	QuantityKg   int64                `json:"quantity_kg" binding:"required,gt=0"`
	GeoLocation  string               `json:"geo_location"`
	GS1          GS1Request           `json:"gs1"`
	Certificates []CertificateRequest `json:"certificates,omitempty"`
}

// CreateBatchRequest represents a request to open a new batch
type CreateBatchRequest struct {
	BatchID       string        `json:"batch_id" binding:"required"`
	ParentBatchID string        `json:"parent_batch_id,omitempty"`
	Owner         string        `json:"owner" binding:"required"`
	CostPrice     string        `json:"cost_price,omitempty"`
	SellingPrice  string        `json:"selling_price,omitempty"`
	Farmer        FarmerRequest `json:"farmer" binding:"required"`
}

// ProcessorRequest represents a processing-stage append
type ProcessorRequest struct {
	Owner            string   `json:"owner" binding:"required"`
	CostPrice        string   `json:"cost_price,omitempty"`
	SellingPrice     string   `json:"selling_price,omitempty"`
	CorrectionOf     string   `json:"correction_of,omitempty"`
	ProcessorID      string   `json:"processor_id" binding:"required"`
	ProcessTypes     []string `json:"process_types" binding:"required,min=1"`
	InputBatch       string   `json:"input_batch"`
	OutputQuantityKg int64    `json:"output_quantity_kg" binding:"required,gt=0"`
	ProcessingDate   string   `json:"processing_date"`
	GS1GTIN          string   `json:"gs1_gtin,omitempty"`
}

// DistributorRequest represents a distribution-stage append
type DistributorRequest struct {
	Owner          string `json:"owner" binding:"required"`
	CostPrice      string `json:"cost_price,omitempty"`
	SellingPrice   string `json:"selling_price,omitempty"`
	CorrectionOf   string `json:"correction_of,omitempty"`
	DistributorID  string `json:"distributor_id" binding:"required"`
	DispatchDate   string `json:"dispatch_date"`
	TransportMode  string `json:"transport_mode"`
	DestinationGLN string `json:"destination_gln"`
	ExpiryDate     string `json:"expiry_date"`
}

// RetailerRequest represents a retail-stage append
type RetailerRequest struct {
	Owner             string `json:"owner" binding:"required"`
	CostPrice         string `json:"cost_price,omitempty"`
	SellingPrice      string `json:"selling_price,omitempty"`
	CorrectionOf      string `json:"correction_of,omitempty"`
	RetailerID        string `json:"retailer_id" binding:"required"`
	ShelfDate         string `json:"shelf_date"`
	RetailPrice       string `json:"retail_price,omitempty"`
	RetailLocationGLN string `json:"retail_location_gln"`
}

// SoldRequest represents the consumer purchase that closes a batch
type SoldRequest struct {
	Owner        string `json:"owner" binding:"required"`
	CostPrice    string `json:"cost_price,omitempty"`
	SellingPrice string `json:"selling_price,omitempty"`
	PurchaseDate string `json:"purchase_date"`
	PaymentMode  string `json:"payment_mode"`
	ConsumerID   string `json:"consumer_id"`
}

// RecordResponse represents a ledger record in API responses
type RecordResponse struct {
	TransactionID   string                 `json:"transaction_id"`
	Timestamp       string                 `json:"timestamp"`
	CreatorRole     string                 `json:"creator_role"`
	BatchID         string                 `json:"batch_id"`
	ParentBatchID   string                 `json:"parent_batch_id,omitempty"`
	Seq             uint64                 `json:"seq"`
	CurrentOwner    string                 `json:"current_owner"`
	PreviousOwners  []string               `json:"previous_owners"`
	CostPrice       string                 `json:"cost_price"`
	SellingPrice    string                 `json:"selling_price"`
	TransactionHash string                 `json:"transaction_hash"`
	PreviousHash    string                 `json:"previous_hash"`
	CorrectionOf    string                 `json:"correction_of,omitempty"`
	Farmer          *trace.FarmerData      `json:"farmer,omitempty"`
	Processor       *trace.ProcessorData   `json:"processor,omitempty"`
	Distributor     *trace.DistributorData `json:"distributor,omitempty"`
	Retailer        *RetailerResponse      `json:"retailer,omitempty"`
	Consumer        *trace.ConsumerData    `json:"consumer,omitempty"`
	IsActive        bool                   `json:"is_active"`
	IsSold          bool                   `json:"is_sold"`
}

// RetailerResponse mirrors RetailerData with the retail price in decimal form
type RetailerResponse struct {
	RetailerID        string `json:"retailer_id"`
	ShelfDate         string `json:"shelf_date"`
	RetailPrice       string `json:"retail_price"`
	RetailLocationGLN string `json:"retail_location_gln"`
}

// TraceResponse represents a batch's full chain in API responses
type TraceResponse struct {
	BatchID string            `json:"batch_id"`
	Trace   []*RecordResponse `json:"trace"`
}

// BatchStatusResponse represents the denormalized batch state
type BatchStatusResponse struct {
	BatchID          string `json:"batch_id"`
	Exists           bool   `json:"exists"`
	Sold             bool   `json:"sold"`
	TransactionCount uint64 `json:"transaction_count"`
}

// ScanResponse represents the QR scan aggregate
type ScanResponse struct {
	BatchID          string          `json:"batch_id"`
	Sold             bool            `json:"sold"`
	TransactionCount uint64          `json:"transaction_count"`
	Current          *RecordResponse `json:"current"`
}

// CertificateVerifyResponse represents a certificate lookup result
type CertificateVerifyResponse struct {
	VerificationHash string `json:"verification_hash"`
	CertificateID    string `json:"certificate_id,omitempty"`
	IsValid          bool   `json:"is_valid"`
}

// parseOptionalAmount converts a decimal string to minor units, "" meaning zero
func parseOptionalAmount(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return trace.ParseAmount(s)
}

func (r *CreateBatchRequest) toInput() (*service.CreateBatchInput, error) {
	costPrice, err := parseOptionalAmount(r.CostPrice)
	if err != nil {
		return nil, err
	}
	sellingPrice, err := parseOptionalAmount(r.SellingPrice)
	if err != nil {
		return nil, err
	}

	certs := make([]trace.Certificate, 0, len(r.Farmer.Certificates))
	for _, c := range r.Farmer.Certificates {
		certs = append(certs, trace.Certificate{
			CertificateID:    c.CertificateID,
			Issuer:           c.Issuer,
			VerificationHash: c.VerificationHash,
		})
	}

	return &service.CreateBatchInput{
		BatchID:       r.BatchID,
		ParentBatchID: r.ParentBatchID,
		Owner:         r.Owner,
		CostPrice:     costPrice,
		SellingPrice:  sellingPrice,
		Farmer: trace.FarmerData{
			FarmID:      r.Farmer.FarmID,
			CropType:    r.Farmer.CropType,
			HarvestDate: r.Farmer.HarvestDate,
			QuantityKg:  r.Farmer.QuantityKg,
			GeoLocation: r.Farmer.GeoLocation,
			GS1: trace.GS1Block{
				BatchOrLot:      r.Farmer.GS1.BatchOrLot,
				CountryOfOrigin: r.Farmer.GS1.CountryOfOrigin,
				ProductionDate:  r.Farmer.GS1.ProductionDate,
				GTIN:            r.Farmer.GS1.GTIN,
			},
			Certificates: certs,
		},
	}, nil
}

func (r *ProcessorRequest) toInput() (*service.ProcessorInput, error) {
	costPrice, err := parseOptionalAmount(r.CostPrice)
	if err != nil {
		return nil, err
	}
	sellingPrice, err := parseOptionalAmount(r.SellingPrice)
	if err != nil {
		return nil, err
	}
	return &service.ProcessorInput{
		Owner:        r.Owner,
		CostPrice:    costPrice,
		SellingPrice: sellingPrice,
		CorrectionOf: r.CorrectionOf,
		Data: trace.ProcessorData{
			ProcessorID:      r.ProcessorID,
			ProcessTypes:     r.ProcessTypes,
			InputBatch:       r.InputBatch,
			OutputQuantityKg: r.OutputQuantityKg,
			ProcessingDate:   r.ProcessingDate,
			GS1GTIN:          r.GS1GTIN,
		},
	}, nil
}

func (r *DistributorRequest) toInput() (*service.DistributorInput, error) {
	costPrice, err := parseOptionalAmount(r.CostPrice)
	if err != nil {
		return nil, err
	}
	sellingPrice, err := parseOptionalAmount(r.SellingPrice)
	if err != nil {
		return nil, err
	}
	return &service.DistributorInput{
		Owner:        r.Owner,
		CostPrice:    costPrice,
		SellingPrice: sellingPrice,
		CorrectionOf: r.CorrectionOf,
		Data: trace.DistributorData{
			DistributorID:  r.DistributorID,
			DispatchDate:   r.DispatchDate,
			TransportMode:  r.TransportMode,
			DestinationGLN: r.DestinationGLN,
			ExpiryDate:     r.ExpiryDate,
		},
	}, nil
}

func (r *RetailerRequest) toInput() (*service.RetailerInput, error) {
	costPrice, err := parseOptionalAmount(r.CostPrice)
	if err != nil {
		return nil, err
	}
	sellingPrice, err := parseOptionalAmount(r.SellingPrice)
	if err != nil {
		return nil, err
	}
	retailPrice, err := parseOptionalAmount(r.RetailPrice)
	if err != nil {
		return nil, err
	}
	return &service.RetailerInput{
		Owner:        r.Owner,
		CostPrice:    costPrice,
		SellingPrice: sellingPrice,
		CorrectionOf: r.CorrectionOf,
		Data: trace.RetailerData{
			RetailerID:        r.RetailerID,
			ShelfDate:         r.ShelfDate,
			RetailPrice:       retailPrice,
			RetailLocationGLN: r.RetailLocationGLN,
		},
	}, nil
}

func (r *SoldRequest) toInput() (*service.ConsumerInput, error) {
	costPrice, err := parseOptionalAmount(r.CostPrice)
	if err != nil {
		return nil, err
	}
	sellingPrice, err := parseOptionalAmount(r.SellingPrice)
	if err != nil {
		return nil, err
	}
	return &service.ConsumerInput{
		Owner:        r.Owner,
		CostPrice:    costPrice,
		SellingPrice: sellingPrice,
		Data: trace.ConsumerData{
			PurchaseDate: r.PurchaseDate,
			PaymentMode:  r.PaymentMode,
			ConsumerID:   r.ConsumerID,
		},
	}, nil
}

func mapRecordToResponse(rec *trace.TransactionRecord) *RecordResponse {
	resp := &RecordResponse{
		TransactionID:   rec.TransactionID,
		Timestamp:       rec.Timestamp.UTC().Format(time.RFC3339Nano),
		CreatorRole:     string(rec.CreatorRole),
		BatchID:         rec.BatchID,
		ParentBatchID:   rec.ParentBatchID,
		Seq:             rec.Seq,
		CurrentOwner:    rec.CurrentOwner,
		PreviousOwners:  rec.PreviousOwners,
		CostPrice:       trace.FormatAmount(rec.CostPrice),
		SellingPrice:    trace.FormatAmount(rec.SellingPrice),
		TransactionHash: string(rec.TransactionHash),
		PreviousHash:    string(rec.PreviousHash),
		CorrectionOf:    rec.CorrectionOf,
		Farmer:          rec.Farmer,
		Processor:       rec.Processor,
		Distributor:     rec.Distributor,
		Consumer:        rec.Consumer,
		IsActive:        rec.IsActive,
		IsSold:          rec.IsSold,
	}
	if rec.Retailer != nil {
		resp.Retailer = &RetailerResponse{
			RetailerID:        rec.Retailer.RetailerID,
			ShelfDate:         rec.Retailer.ShelfDate,
			RetailPrice:       trace.FormatAmount(rec.Retailer.RetailPrice),
			RetailLocationGLN: rec.Retailer.RetailLocationGLN,
		}
	}
	return resp
}

func mapTraceToResponse(batchID string, records []*trace.TransactionRecord) *TraceResponse {
	out := make([]*RecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, mapRecordToResponse(rec))
	}
	return &TraceResponse{BatchID: batchID, Trace: out}
}

func mapSummaryToResponse(summary trace.BatchSummary) *BatchStatusResponse {
	return &BatchStatusResponse{
		BatchID:          summary.BatchID,
		Exists:           summary.Exists,
		Sold:             summary.Sold,
		TransactionCount: summary.TransactionCount,
	}
}

func mapScanToResponse(scan *service.ScanPayload) *ScanResponse {
	resp := &ScanResponse{
		BatchID:          scan.BatchID,
		Sold:             scan.Sold,
		TransactionCount: scan.TransactionCount,
	}
	if scan.Current != nil {
		resp.Current = mapRecordToResponse(scan.Current)
	}
	return resp
}
