// Package trace defines the domain model of the traceability ledger:
// transaction records, stage payloads, batch summaries and the storage
// contracts the ledger state machine runs against.
package trace

import (
	"time"
)

// Role identifies the supply-chain actor that produced a record
type Role string

const (
	RoleFarmer      Role = "FARMER"
	RoleProcessor   Role = "PROCESSOR"
	RoleDistributor Role = "DISTRIBUTOR"
	RoleRetailer    Role = "RETAILER"
	RoleConsumer    Role = "CONSUMER"
)

// Hash is a hex-encoded 256-bit digest with a 0x prefix
type Hash string

// ZeroHash is the previous-hash input of the first record in a batch
const ZeroHash Hash = "0x0000000000000000000000000000000000000000000000000000000000000000"

// GS1Block carries the GS1 identification fields captured at harvest
type GS1Block struct {
	BatchOrLot      string `json:"batch_or_lot" bson:"batch_or_lot"`
	CountryOfOrigin string `json:"country_of_origin" bson:"country_of_origin"`
	ProductionDate  string `json:"production_date" bson:"production_date"`
	GTIN            string `json:"gtin,omitempty" bson:"gtin,omitempty"`
}

// Certificate is a quality/compliance certificate attached to a farmer record.
// VerificationHash anchors the certificate in the registry for tamper evidence.
type Certificate struct {
	CertificateID    string `json:"certificate_id" bson:"certificate_id"`
	Issuer           string `json:"issuer" bson:"issuer"`
	VerificationHash string `json:"verification_hash" bson:"verification_hash"`
}

// FarmerData is the creation-stage payload
type FarmerData struct {
	FarmID       string        `json:"farm_id" bson:"farm_id"`
	CropType     string        `json:"crop_type" bson:"crop_type"`
	HarvestDate  string        `json:"harvest_date" bson:"harvest_date"`
	QuantityKg   int64         `json:"quantity_kg" bson:"quantity_kg"`
	GeoLocation  string        `json:"geo_location" bson:"geo_location"`
	GS1          GS1Block      `json:"gs1" bson:"gs1"`
	Certificates []Certificate `json:"certificates,omitempty" bson:"certificates,omitempty"`
}

// ProcessorData is the processing-stage payload
type ProcessorData struct {
	ProcessorID      string   `json:"processor_id" bson:"processor_id"`
	ProcessTypes     []string `json:"process_types" bson:"process_types"`
	InputBatch       string   `json:"input_batch" bson:"input_batch"`
	OutputQuantityKg int64    `json:"output_quantity_kg" bson:"output_quantity_kg"`
	ProcessingDate   string   `json:"processing_date" bson:"processing_date"`
	GS1GTIN          string   `json:"gs1_gtin,omitempty" bson:"gs1_gtin,omitempty"`
}

// DistributorData is the distribution-stage payload
type DistributorData struct {
	DistributorID  string `json:"distributor_id" bson:"distributor_id"`
	DispatchDate   string `json:"dispatch_date" bson:"dispatch_date"`
	TransportMode  string `json:"transport_mode" bson:"transport_mode"`
	DestinationGLN string `json:"destination_gln" bson:"destination_gln"`
	ExpiryDate     string `json:"expiry_date" bson:"expiry_date"`
}

// RetailerData is the retail-stage payload
type RetailerData struct {
	RetailerID        string `json:"retailer_id" bson:"retailer_id"`
	ShelfDate         string `json:"shelf_date" bson:"shelf_date"`
	RetailPrice       int64  `json:"retail_price" bson:"retail_price"` // Minor units
	RetailLocationGLN string `json:"retail_location_gln" bson:"retail_location_gln"`
}

// ConsumerData is the purchase payload that closes a batch
type ConsumerData struct {
	PurchaseDate string `json:"purchase_date" bson:"purchase_date"`
	PaymentMode  string `json:"payment_mode" bson:"payment_mode"`
	ConsumerID   string `json:"consumer_id" bson:"consumer_id"`
}

// TransactionRecord is one link in a batch's hash chain. Exactly one stage
// payload is populated, matching CreatorRole. Records are immutable after
// append except for the IsActive flag, which a later correction may clear.
type TransactionRecord struct {
	TransactionID string    `json:"transaction_id" bson:"transaction_id"`
	Timestamp     time.Time `json:"timestamp" bson:"timestamp"`
	CreatorRole   Role      `json:"creator_role" bson:"creator_role"`
	BatchID       string    `json:"batch_id" bson:"batch_id"`
	ParentBatchID string    `json:"parent_batch_id,omitempty" bson:"parent_batch_id,omitempty"`
	Seq           uint64    `json:"seq" bson:"seq"` // Position in the batch chain, 0-based

	CurrentOwner   string   `json:"current_owner" bson:"current_owner"`
	PreviousOwners []string `json:"previous_owners" bson:"previous_owners"`

	CostPrice    int64 `json:"cost_price" bson:"cost_price"`       // Minor units
	SellingPrice int64 `json:"selling_price" bson:"selling_price"` // Minor units

	TransactionHash Hash   `json:"transaction_hash" bson:"transaction_hash"`
	PreviousHash    Hash   `json:"previous_hash" bson:"previous_hash"`
	CorrectionOf    string `json:"correction_of,omitempty" bson:"correction_of,omitempty"`

	Farmer      *FarmerData      `json:"farmer,omitempty" bson:"farmer,omitempty"`
	Processor   *ProcessorData   `json:"processor,omitempty" bson:"processor,omitempty"`
	Distributor *DistributorData `json:"distributor,omitempty" bson:"distributor,omitempty"`
	Retailer    *RetailerData    `json:"retailer,omitempty" bson:"retailer,omitempty"`
	Consumer    *ConsumerData    `json:"consumer,omitempty" bson:"consumer,omitempty"`

	IsActive bool `json:"is_active" bson:"is_active"`
	IsSold   bool `json:"is_sold" bson:"is_sold"`
}

// BatchSummary is the denormalized per-batch state maintained alongside the
// chain. It is updated in the same atomic unit as every append, so it never
// drifts from the record count.
type BatchSummary struct {
	BatchID          string `json:"batch_id" bson:"batch_id"`
	Exists           bool   `json:"exists" bson:"exists"`
	Sold             bool   `json:"sold" bson:"sold"`
	TransactionCount uint64 `json:"transaction_count" bson:"transaction_count"`
}

// Clone returns a deep copy of the record so callers can hand copies to
// readers without exposing ledger-owned state.
func (r *TransactionRecord) Clone() *TransactionRecord {
	c := *r
	c.PreviousOwners = append([]string(nil), r.PreviousOwners...)
	if r.Farmer != nil {
		f := *r.Farmer
		f.Certificates = append([]Certificate(nil), r.Farmer.Certificates...)
		c.Farmer = &f
	}
	if r.Processor != nil {
		p := *r.Processor
		p.ProcessTypes = append([]string(nil), r.Processor.ProcessTypes...)
		c.Processor = &p
	}
	if r.Distributor != nil {
		d := *r.Distributor
		c.Distributor = &d
	}
	if r.Retailer != nil {
		rt := *r.Retailer
		c.Retailer = &rt
	}
	if r.Consumer != nil {
		cn := *r.Consumer
		c.Consumer = &cn
	}
	return &c
}
