package models

import "time"

// AuctionStatus follows the lifecycle CREATED -> MAPPED -> CLOSED.
type AuctionStatus string

const (
	AuctionCreated AuctionStatus = "CREATED"
	AuctionMapped  AuctionStatus = "MAPPED"
	AuctionClosed  AuctionStatus = "CLOSED"
)

// Auction is a sale event. Fee rates are fractions of the hammer price
// (0.20 = 20%) and are fixed at creation; every lot of the auction is
// calculated with these rates.
type Auction struct {
	ID              int64         `json:"id"`
	Number          string        `json:"number"`
	Name            string        `json:"name"`
	Date            time.Time     `json:"date"`
	Status          AuctionStatus `json:"status"`
	BuyerFeeRate    float64       `json:"buyer_fee_rate"`
	SellerFeeRate   float64       `json:"seller_fee_rate"`
	PlatformFeeRate float64       `json:"platform_fee_rate"`
}

type ActorType string

const (
	ActorSeller ActorType = "SELLER"
	ActorBuyer  ActorType = "BUYER"
)

// Actor is a party to the auction, seller or buyer. The name is the
// dedup key: one name string denotes exactly one party.
type Actor struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Type       ActorType `json:"type"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone_number,omitempty"`
	SirenSiret string    `json:"siren_siret,omitempty"`
	Address    string    `json:"address,omitempty"`
	IBAN       string    `json:"iban,omitempty"`
	BIC        string    `json:"bic,omitempty"`
	VATSubject bool      `json:"vat_subject"`
	// IsCompany drives the VAT regime of the actor's lots. It is set
	// once when the actor is created; imports default it from the
	// honorific prefix of the name.
	IsCompany bool `json:"is_company"`
}

type LotStatus string

const (
	LotCreated  LotStatus = "CREATED"
	LotSold     LotStatus = "SOLD"
	LotUnsold   LotStatus = "UNSOLD"
	LotAnomalie LotStatus = "ANOMALIE"
)

// Lot is a single item of an auction, identified by LotNumber within
// that auction. A lot in state ANOMALIE was never pre-mapped and
// therefore carries no seller.
type Lot struct {
	ID          int64     `json:"id"`
	AuctionID   int64     `json:"auction_id"`
	LotNumber   int       `json:"lot_number"`
	Description string    `json:"description,omitempty"`
	HammerPrice *int64    `json:"hammer_price,omitempty"`
	SellerID    *int64    `json:"seller_id,omitempty"`
	BuyerID     *int64    `json:"buyer_id,omitempty"`
	Status      LotStatus `json:"status"`
}

// HammerPriceValue returns the hammer price, treating an absent price as 0.
func (l *Lot) HammerPriceValue() float64 {
	if l.HammerPrice == nil {
		return 0
	}
	return float64(*l.HammerPrice)
}

type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "DRAFT"
	InvoiceValidated InvoiceStatus = "VALIDATED"
)

// Invoice is one buyer's bill for one settlement run. Hash and
// PreviousHash form the append-only chain: Hash is derived from
// (Number, BuyerID, TotalIncl, SignatureDate, PreviousHash), so editing
// a signed invoice breaks every later link.
type Invoice struct {
	ID            int64         `json:"id"`
	Number        string        `json:"number"`
	BuyerID       int64         `json:"buyer_id"`
	AuctionID     int64         `json:"auction_id"`
	TotalExcl     float64       `json:"total_excl"`
	TotalVAT      float64       `json:"total_vat"`
	TotalIncl     float64       `json:"total_incl"`
	Status        InvoiceStatus `json:"status"`
	Hash          string        `json:"hash"`
	PreviousHash  string        `json:"previous_hash"`
	SignatureDate time.Time     `json:"signature_date"`
}

// InvoiceLine is one row of an invoice: the lot itself, its buyer fees,
// or its platform fees.
type InvoiceLine struct {
	Description string  `json:"description"`
	Base        float64 `json:"base"`
	VATRate     float64 `json:"vat_rate"`
	VATAmount   float64 `json:"vat_amount"`
	Total       float64 `json:"total"`
}

type SettlementStatus string

const (
	SettlementCreated SettlementStatus = "CREATED"
	SettlementPaid    SettlementStatus = "PAID"
)

// Settlement is the net payment owed to one seller after an auction.
type Settlement struct {
	ID         int64            `json:"id"`
	AuctionID  int64            `json:"auction_id"`
	SellerID   int64            `json:"seller_id"`
	Amount     float64          `json:"amount"`
	Status     SettlementStatus `json:"status"`
	XMLContent string           `json:"-"`
	CreatedAt  time.Time        `json:"created_at"`

	// Populated when loaded with joins; not persisted on this row.
	Seller  *Actor   `json:"seller,omitempty"`
	Auction *Auction `json:"auction,omitempty"`
}

// ReconciliationStats summarises one reconciliation run.
// Processed counts export rows that carried a usable lot number, so
// Processed == Matched + Anomalies always holds.
type ReconciliationStats struct {
	Processed int `json:"processed"`
	Matched   int `json:"matched"`
	Anomalies int `json:"anomalies"`
	Unsold    int `json:"unsold"`
	Skipped   int `json:"skipped"`
}

// LotResult is one row of the reconciliation results view.
type LotResult struct {
	LotNumber   int       `json:"lot_number"`
	Description string    `json:"description"`
	SellerName  string    `json:"seller_name"`
	Status      LotStatus `json:"status"`
	HammerPrice *int64    `json:"hammer_price"`
	BuyerName   string    `json:"buyer_name,omitempty"`
}

// MappedLot is one row of a mapping import acknowledgement.
type MappedLot struct {
	LotNumber   int    `json:"lot_number"`
	Description string `json:"description"`
	SellerName  string `json:"seller_name"`
}
