package services

import (
	"github.com/el-kamal/auctify/backend/src/models"
)

// ActorCriteria selects an actor for get-or-create resolution. Email
// takes precedence when set; Name is the normalized full-name key.
type ActorCriteria struct {
	Email string
	Name  string
	Type  models.ActorType
}

// ResultFilter narrows the reconciliation results view.
type ResultFilter struct {
	Status     models.LotStatus // empty: all statuses
	SellerName string           // case-insensitive substring match
}

// Ledger opens atomic units of work over the auction ledger. Every
// reconciliation or generation run executes inside exactly one LedgerTx
// and commits all of its mutations together or none of them. The
// implementation must guarantee at-most-one-writer per auction; the
// services assume they run inside such an isolated scope.
type Ledger interface {
	Begin() (LedgerTx, error)
}

// LedgerTx is the repository capability handed to the engines. It keeps
// the engines free of ambient global state and trivially testable with
// an in-memory double.
type LedgerTx interface {
	Commit() error
	Rollback() error

	CreateAuction(a *models.Auction) error
	GetAuction(id int64) (*models.Auction, error)
	UpdateAuctionStatus(id int64, status models.AuctionStatus) error

	LotsByAuction(auctionID int64) ([]*models.Lot, error)
	CreateLot(l *models.Lot) error
	UpdateLot(l *models.Lot) error

	FindActor(c ActorCriteria) (*models.Actor, error)
	CreateActor(a *models.Actor) error
	GetActor(id int64) (*models.Actor, error)

	// LastInvoice returns the newest invoice across all auctions, or
	// nil when none exists. Its hash seeds the next chain link.
	LastInvoice() (*models.Invoice, error)
	CreateInvoice(inv *models.Invoice) error
	InvoicesByAuction(auctionID int64) ([]*models.Invoice, error)
	// ListInvoices returns every invoice in chain order (ascending id).
	ListInvoices() ([]*models.Invoice, error)

	CreateSettlement(s *models.Settlement) error
	UpdateSettlementXML(id int64, xmlContent string) error
	SettlementsByAuction(auctionID int64) ([]*models.Settlement, error)
	GetSettlement(id int64) (*models.Settlement, error)

	ResultRows(auctionID int64, f ResultFilter) ([]models.LotResult, error)
}
