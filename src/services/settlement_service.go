package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/el-kamal/auctify/backend/src/logger"
	"github.com/el-kamal/auctify/backend/src/models"
	"github.com/el-kamal/auctify/backend/src/sepa"
)

// SettlementService computes what each seller is owed after an auction
// and produces the SEPA payment file covering one generation run.
type SettlementService struct {
	ledger  Ledger
	builder *sepa.Builder
	emailer EmailService
}

func NewSettlementService(ledger Ledger, builder *sepa.Builder, emailer EmailService) *SettlementService {
	return &SettlementService{ledger: ledger, builder: builder, emailer: emailer}
}

// GenerateSettlements creates one settlement per seller with sold lots
// in the auction and attaches the same SEPA payment file to every
// settlement of the run. The seller is owed the sum of hammer prices of
// their sold lots; seller-side fees are invoiced separately and not
// deducted here. Payment advice emails go out best-effort after the
// commit.
func (s *SettlementService) GenerateSettlements(auctionID int64, executionDate time.Time) ([]*models.Settlement, error) {
	startTime := time.Now()
	logger.L.Info("GenerateSettlements START", "auctionID", auctionID)

	tx, err := s.ledger.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	auction, err := tx.GetAuction(auctionID)
	if err != nil {
		return nil, err
	}
	lots, err := tx.LotsByAuction(auctionID)
	if err != nil {
		return nil, err
	}

	amounts := make(map[int64]float64)
	var sellerOrder []int64
	for _, lot := range lots {
		if lot.Status != models.LotSold || lot.SellerID == nil {
			continue
		}
		if _, seen := amounts[*lot.SellerID]; !seen {
			sellerOrder = append(sellerOrder, *lot.SellerID)
		}
		amounts[*lot.SellerID] += lot.HammerPriceValue()
	}
	if len(sellerOrder) == 0 {
		return nil, fmt.Errorf("%w: auction %d has no sold lots to settle", ErrValidation, auctionID)
	}
	sort.Slice(sellerOrder, func(i, j int) bool { return sellerOrder[i] < sellerOrder[j] })

	now := time.Now().UTC()
	settlements := make([]*models.Settlement, 0, len(sellerOrder))
	for _, sellerID := range sellerOrder {
		seller, err := tx.GetActor(sellerID)
		if err != nil {
			return nil, err
		}
		set := &models.Settlement{
			AuctionID: auctionID,
			SellerID:  sellerID,
			Amount:    amounts[sellerID],
			Status:    models.SettlementCreated,
			CreatedAt: now,
			Seller:    seller,
			Auction:   auction,
		}
		if err := tx.CreateSettlement(set); err != nil {
			return nil, err
		}
		settlements = append(settlements, set)
	}

	xmlContent, err := s.builder.Build(settlements, executionDate)
	if err != nil {
		return nil, fmt.Errorf("error building payment file: %w", err)
	}
	for _, set := range settlements {
		set.XMLContent = xmlContent
		if err := tx.UpdateSettlementXML(set.ID, xmlContent); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing settlement run: %w", err)
	}

	s.sendPaymentAdvices(settlements)

	logger.L.Info("GenerateSettlements END", "auctionID", auctionID,
		"settlements", len(settlements), "duration", time.Since(startTime))
	return settlements, nil
}

// sendPaymentAdvices notifies sellers with an email on file. A send
// failure is logged and never fails the already-committed run.
func (s *SettlementService) sendPaymentAdvices(settlements []*models.Settlement) {
	for _, set := range settlements {
		if set.Seller == nil || set.Seller.Email == "" {
			continue
		}
		if err := s.emailer.SendPaymentAdvice(set.Seller.Email, set.Seller.Name, set.Auction.Name, set.Amount); err != nil {
			logger.L.Error("Failed to send payment advice", "settlementID", set.ID, "error", err)
		}
	}
}

// SettlementsForAuction lists an auction's settlements with their
// joined seller details.
func (s *SettlementService) SettlementsForAuction(auctionID int64) ([]*models.Settlement, error) {
	tx, err := s.ledger.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.GetAuction(auctionID); err != nil {
		return nil, err
	}
	return tx.SettlementsByAuction(auctionID)
}

// SettlementSEPA returns the payment file attached to one settlement.
func (s *SettlementService) SettlementSEPA(id int64) (string, error) {
	tx, err := s.ledger.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	set, err := tx.GetSettlement(id)
	if err != nil {
		return "", err
	}
	if set.XMLContent == "" {
		return "", fmt.Errorf("%w: settlement %d has no payment file", ErrValidation, id)
	}
	return set.XMLContent, nil
}
