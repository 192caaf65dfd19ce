// Package ledger implements the traceability ledger core: the hash chain,
// the certificate registry, the batch index and the batch state machine.
package ledger

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"

	"github.com/agritrace-ledger/internal/domain/trace"
)

// HashChain computes the deterministic fingerprint linking a record to its
// predecessor. The digest covers every record field plus the previous hash,
// so any tampering with stored history breaks the chain. It is a pure
// function of its inputs.
type HashChain struct{}

// Compute returns the hex-encoded sha256 fingerprint of the record chained to
// previousHash. The first record of a batch is chained to trace.ZeroHash.
func (HashChain) Compute(rec *trace.TransactionRecord, previousHash trace.Hash) trace.Hash {
	h := sha256.New()

	writeString(h, string(previousHash))
	writeString(h, rec.TransactionID)
	writeString(h, rec.BatchID)
	writeString(h, string(rec.CreatorRole))
	writeInt(h, rec.Timestamp.UTC().UnixNano())
	writeString(h, rec.ParentBatchID)
	writeString(h, rec.CurrentOwner)
	writeInt(h, int64(len(rec.PreviousOwners)))
	for _, owner := range rec.PreviousOwners {
		writeString(h, owner)
	}
	writeInt(h, rec.CostPrice)
	writeInt(h, rec.SellingPrice)
	writeString(h, rec.CorrectionOf)
	writePayload(h, rec)

	return trace.Hash("0x" + hex.EncodeToString(h.Sum(nil)))
}

func writePayload(h hash.Hash, rec *trace.TransactionRecord) {
	switch {
	case rec.Farmer != nil:
		f := rec.Farmer
		writeString(h, f.FarmID)
		writeString(h, f.CropType)
		writeString(h, f.HarvestDate)
		writeInt(h, f.QuantityKg)
		writeString(h, f.GeoLocation)
		writeString(h, f.GS1.BatchOrLot)
		writeString(h, f.GS1.CountryOfOrigin)
		writeString(h, f.GS1.ProductionDate)
		writeString(h, f.GS1.GTIN)
		writeInt(h, int64(len(f.Certificates)))
		for _, c := range f.Certificates {
			writeString(h, c.CertificateID)
			writeString(h, c.Issuer)
			writeString(h, c.VerificationHash)
		}
	case rec.Processor != nil:
		p := rec.Processor
		writeString(h, p.ProcessorID)
		writeInt(h, int64(len(p.ProcessTypes)))
		for _, t := range p.ProcessTypes {
			writeString(h, t)
		}
		writeString(h, p.InputBatch)
		writeInt(h, p.OutputQuantityKg)
		writeString(h, p.ProcessingDate)
		writeString(h, p.GS1GTIN)
	case rec.Distributor != nil:
		d := rec.Distributor
		writeString(h, d.DistributorID)
		writeString(h, d.DispatchDate)
		writeString(h, d.TransportMode)
		writeString(h, d.DestinationGLN)
		writeString(h, d.ExpiryDate)
	case rec.Retailer != nil:
		r := rec.Retailer
		writeString(h, r.RetailerID)
		writeString(h, r.ShelfDate)
		writeInt(h, r.RetailPrice)
		writeString(h, r.RetailLocationGLN)
	case rec.Consumer != nil:
		c := rec.Consumer
		writeString(h, c.PurchaseDate)
		writeString(h, c.PaymentMode)
		writeString(h, c.ConsumerID)
	}
}

// writeString writes a length-prefixed string so field boundaries cannot be
// confused ("ab"+"c" hashes differently from "a"+"bc")
func writeString(h hash.Hash, s string) {
	writeInt(h, int64(len(s)))
	h.Write([]byte(s))
}

func writeInt(h hash.Hash, v int64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	h.Write(buf[:])
}
