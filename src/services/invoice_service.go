package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/el-kamal/auctify/backend/src/logger"
	"github.com/el-kamal/auctify/backend/src/models"
	"github.com/el-kamal/auctify/backend/src/processors"
)

// GenesisHash seeds the invoice chain before the first invoice exists.
const GenesisHash = "GENESIS_HASH"

// InvoiceWithLines pairs a signed invoice with its detail rows for the
// API response. Lines are not persisted; they are recomputed from the
// lots whenever needed.
type InvoiceWithLines struct {
	Invoice *models.Invoice      `json:"invoice"`
	Lines   []models.InvoiceLine `json:"lines"`
}

// ChainReport is the outcome of a full chain verification.
type ChainReport struct {
	Valid    bool   `json:"valid"`
	Invoices int    `json:"invoices"`
	Detail   string `json:"detail,omitempty"`
}

// InvoiceService turns an auction's sold lots into hash-chained buyer
// invoices. Each generation run verifies the existing chain, then
// appends its invoices as new links, all inside one transaction.
type InvoiceService struct {
	ledger Ledger
}

func NewInvoiceService(ledger Ledger) *InvoiceService {
	return &InvoiceService{ledger: ledger}
}

// GenerateInvoices bills every buyer of the auction's sold lots. Lots
// in state ANOMALIE or without a buyer are excluded. The run refuses to
// extend a corrupted chain and commits nothing on any failure.
func (s *InvoiceService) GenerateInvoices(auctionID int64) ([]InvoiceWithLines, error) {
	startTime := time.Now()
	logger.L.Info("GenerateInvoices START", "auctionID", auctionID)

	tx, err := s.ledger.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	auction, err := tx.GetAuction(auctionID)
	if err != nil {
		return nil, err
	}

	if err := verifyChain(tx); err != nil {
		return nil, err
	}

	lots, err := tx.LotsByAuction(auctionID)
	if err != nil {
		return nil, err
	}

	// Group billable lots per buyer, preserving lot-number order within
	// each invoice.
	lotsByBuyer := make(map[int64][]*models.Lot)
	var buyerOrder []int64
	for _, lot := range lots {
		if lot.Status != models.LotSold || lot.BuyerID == nil {
			continue
		}
		if _, seen := lotsByBuyer[*lot.BuyerID]; !seen {
			buyerOrder = append(buyerOrder, *lot.BuyerID)
		}
		lotsByBuyer[*lot.BuyerID] = append(lotsByBuyer[*lot.BuyerID], lot)
	}
	if len(buyerOrder) == 0 {
		return nil, fmt.Errorf("%w: auction %d has no sold lots to invoice", ErrValidation, auctionID)
	}
	sort.Slice(buyerOrder, func(i, j int) bool { return buyerOrder[i] < buyerOrder[j] })

	previousHash := GenesisHash
	var baseSeq int64
	if last, err := tx.LastInvoice(); err != nil {
		return nil, err
	} else if last != nil {
		previousHash = last.Hash
		baseSeq = last.ID
	}

	sellers := make(map[int64]*models.Actor)
	now := time.Now().UTC()

	var generated []InvoiceWithLines
	for i, buyerID := range buyerOrder {
		var (
			lines     []models.InvoiceLine
			totalExcl float64
			totalVAT  float64
			totalIncl float64
		)
		for _, lot := range lotsByBuyer[buyerID] {
			var seller *models.Actor
			if lot.SellerID != nil {
				seller, err = s.seller(tx, sellers, *lot.SellerID)
				if err != nil {
					return nil, err
				}
			}

			breakdown := processors.CalculateLines(lot, seller, auction.BuyerFeeRate, auction.PlatformFeeRate)
			lines = append(lines, lotLine(lot, breakdown.Lot))
			lines = append(lines, feeLine(fmt.Sprintf("Frais acheteur lot %d", lot.LotNumber), breakdown.Fees))
			if breakdown.PlatformFees.Base > 0 {
				lines = append(lines, feeLine(fmt.Sprintf("Frais plateforme lot %d", lot.LotNumber), breakdown.PlatformFees))
			}
			totalExcl += breakdown.Total.Excl
			totalVAT += breakdown.Total.VAT
			totalIncl += breakdown.Total.Incl
		}

		inv := &models.Invoice{
			Number:        invoiceNumber(now, baseSeq+int64(i)+1),
			BuyerID:       buyerID,
			AuctionID:     auctionID,
			TotalExcl:     totalExcl,
			TotalVAT:      totalVAT,
			TotalIncl:     totalIncl,
			Status:        models.InvoiceValidated,
			SignatureDate: now,
			PreviousHash:  previousHash,
		}
		inv.Hash = SignInvoice(inv, previousHash)
		previousHash = inv.Hash

		if err := tx.CreateInvoice(inv); err != nil {
			return nil, err
		}
		generated = append(generated, InvoiceWithLines{Invoice: inv, Lines: lines})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing invoice run: %w", err)
	}

	logger.L.Info("GenerateInvoices END", "auctionID", auctionID,
		"invoices", len(generated), "duration", time.Since(startTime))
	return generated, nil
}

// InvoicesForAuction lists an auction's invoices without their lines.
func (s *InvoiceService) InvoicesForAuction(auctionID int64) ([]*models.Invoice, error) {
	tx, err := s.ledger.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.GetAuction(auctionID); err != nil {
		return nil, err
	}
	return tx.InvoicesByAuction(auctionID)
}

// VerifyChain re-derives every invoice hash from the genesis sentinel
// and reports the first broken link.
func (s *InvoiceService) VerifyChain() (*ChainReport, error) {
	tx, err := s.ledger.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	invoices, err := tx.ListInvoices()
	if err != nil {
		return nil, err
	}
	if err := verifyInvoices(invoices); err != nil {
		logger.L.Error("Invoice chain verification failed", "error", err)
		return &ChainReport{Valid: false, Invoices: len(invoices), Detail: err.Error()}, nil
	}
	return &ChainReport{Valid: true, Invoices: len(invoices)}, nil
}

func verifyChain(tx LedgerTx) error {
	invoices, err := tx.ListInvoices()
	if err != nil {
		return err
	}
	return verifyInvoices(invoices)
}

func verifyInvoices(invoices []*models.Invoice) error {
	previousHash := GenesisHash
	for _, inv := range invoices {
		if inv.PreviousHash != previousHash {
			return fmt.Errorf("%w: invoice %s does not link to its predecessor", ErrIntegrity, inv.Number)
		}
		if SignInvoice(inv, previousHash) != inv.Hash {
			return fmt.Errorf("%w: invoice %s content does not match its hash", ErrIntegrity, inv.Number)
		}
		previousHash = inv.Hash
	}
	return nil
}

// SignInvoice derives the chain hash of an invoice from its immutable
// fields and the previous link. The amount uses the shortest exact
// float rendering so re-derivation is byte-stable.
func SignInvoice(inv *models.Invoice, previousHash string) string {
	payload := strings.Join([]string{
		inv.Number,
		strconv.FormatInt(inv.BuyerID, 10),
		strconv.FormatFloat(inv.TotalIncl, 'f', -1, 64),
		inv.SignatureDate.UTC().Format(time.RFC3339Nano),
		previousHash,
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func (s *InvoiceService) seller(tx LedgerTx, cache map[int64]*models.Actor, id int64) (*models.Actor, error) {
	if seller, ok := cache[id]; ok {
		return seller, nil
	}
	seller, err := tx.GetActor(id)
	if err != nil {
		return nil, err
	}
	cache[id] = seller
	return seller, nil
}

func lotLine(lot *models.Lot, line processors.VATLine) models.InvoiceLine {
	desc := lot.Description
	if runes := []rune(desc); len(runes) > 60 {
		desc = string(runes[:60])
	}
	return models.InvoiceLine{
		Description: strings.TrimSpace(fmt.Sprintf("Lot %d: %s", lot.LotNumber, desc)),
		Base:        line.Base,
		VATRate:     line.VATRate,
		VATAmount:   line.VATAmount,
		Total:       line.Total,
	}
}

func feeLine(desc string, line processors.VATLine) models.InvoiceLine {
	return models.InvoiceLine{
		Description: desc,
		Base:        line.Base,
		VATRate:     line.VATRate,
		VATAmount:   line.VATAmount,
		Total:       line.Total,
	}
}

// invoiceNumber formats the YYYY-MM-SEQ legal invoice number.
func invoiceNumber(t time.Time, seq int64) string {
	return fmt.Sprintf("%d-%02d-%04d", t.Year(), int(t.Month()), seq)
}
