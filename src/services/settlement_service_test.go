package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/el-kamal/auctify/backend/src/models"
	"github.com/el-kamal/auctify/backend/src/sepa"
)

type recordingEmailService struct {
	sent []string
	fail bool
}

func (r *recordingEmailService) SendPaymentAdvice(toEmail, sellerName, auctionName string, amount float64) error {
	if r.fail {
		return errors.New("smtp down")
	}
	r.sent = append(r.sent, toEmail)
	return nil
}

func testBuilder() *sepa.Builder {
	return &sepa.Builder{
		DebtorName:   "AUCTIFY FRANCE",
		DebtorIBAN:   "FR7630006000011234567890189",
		DebtorBIC:    "BNPARFXX",
		FallbackIBAN: "FR7630006000011234567890189",
		FallbackBIC:  "BNPARFXX",
	}
}

func seedSettlementFixture(m *memLedger) (*models.Auction, *models.Actor, *models.Actor) {
	auction := m.addAuction(&models.Auction{
		Name:          "Vente d'hiver",
		Date:          time.Now(),
		Status:        models.AuctionMapped,
		BuyerFeeRate:  0.20,
		SellerFeeRate: 0.05,
	})
	withBank := m.addActor(&models.Actor{
		Name:  "Galerie Ouest",
		Type:  models.ActorSeller,
		Email: "contact@ouest.example",
		IBAN:  "FR1420041010050500013M02606",
		BIC:   "PSSTFRPP",
	})
	noBank := m.addActor(&models.Actor{Name: "M. Blanc Pierre", Type: models.ActorSeller})

	prices := []struct {
		lot    int
		price  int64
		seller *models.Actor
	}{
		{1, 1000, withBank},
		{2, 500, withBank},
		{3, 200, noBank},
	}
	for _, p := range prices {
		price := p.price
		m.addLot(&models.Lot{
			AuctionID:   auction.ID,
			LotNumber:   p.lot,
			HammerPrice: &price,
			SellerID:    &p.seller.ID,
			Status:      models.LotSold,
		})
	}
	// Unsold and anomaly lots must not contribute to any settlement.
	m.addLot(&models.Lot{AuctionID: auction.ID, LotNumber: 4, SellerID: &withBank.ID, Status: models.LotUnsold})
	anomalyPrice := int64(999)
	m.addLot(&models.Lot{AuctionID: auction.ID, LotNumber: 5, HammerPrice: &anomalyPrice, Status: models.LotAnomalie})

	return auction, withBank, noBank
}

func TestGenerateSettlements(t *testing.T) {
	m := newMemLedger()
	auction, withBank, noBank := seedSettlementFixture(m)
	emails := &recordingEmailService{}

	svc := NewSettlementService(m, testBuilder(), emails)
	settlements, err := svc.GenerateSettlements(auction.ID, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GenerateSettlements() error: %v", err)
	}
	if len(settlements) != 2 {
		t.Fatalf("got %d settlements, want 2", len(settlements))
	}

	bySeller := make(map[int64]*models.Settlement)
	for _, s := range settlements {
		bySeller[s.SellerID] = s
	}
	// Amount is the sum of hammer prices, seller fee not deducted.
	if got := bySeller[withBank.ID].Amount; got != 1500 {
		t.Errorf("settlement amount = %v, want 1500", got)
	}
	if got := bySeller[noBank.ID].Amount; got != 200 {
		t.Errorf("settlement amount = %v, want 200", got)
	}

	for _, s := range settlements {
		if s.Status != models.SettlementCreated {
			t.Errorf("settlement %d status = %s, want CREATED", s.ID, s.Status)
		}
		if s.XMLContent == "" {
			t.Errorf("settlement %d has no payment file attached", s.ID)
		}
	}
	if bySeller[withBank.ID].XMLContent != bySeller[noBank.ID].XMLContent {
		t.Error("settlements of one run carry different payment files")
	}

	xml := bySeller[withBank.ID].XMLContent
	if !strings.Contains(xml, "pain.001.001.03") {
		t.Error("payment file missing pain.001.001.03 namespace")
	}
	if !strings.Contains(xml, "<ReqdExctnDt>2026-09-01</ReqdExctnDt>") {
		t.Error("payment file missing requested execution date")
	}

	// Only the seller with an email on file gets an advice.
	if len(emails.sent) != 1 || emails.sent[0] != "contact@ouest.example" {
		t.Errorf("advices sent to %v, want only contact@ouest.example", emails.sent)
	}
}

func TestGenerateSettlementsEmailFailureIsNonFatal(t *testing.T) {
	m := newMemLedger()
	auction, _, _ := seedSettlementFixture(m)

	svc := NewSettlementService(m, testBuilder(), &recordingEmailService{fail: true})
	if _, err := svc.GenerateSettlements(auction.ID, time.Now()); err != nil {
		t.Fatalf("GenerateSettlements() error despite committed run: %v", err)
	}
	if m.committed == 0 {
		t.Error("run did not commit")
	}
}

func TestGenerateSettlementsNothingToSettle(t *testing.T) {
	m := newMemLedger()
	auction := m.addAuction(&models.Auction{Name: "Vente vide", Status: models.AuctionMapped})

	svc := NewSettlementService(m, testBuilder(), &recordingEmailService{})
	_, err := svc.GenerateSettlements(auction.ID, time.Now())
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestSettlementSEPADownload(t *testing.T) {
	m := newMemLedger()
	auction, withBank, _ := seedSettlementFixture(m)

	svc := NewSettlementService(m, testBuilder(), &recordingEmailService{})
	settlements, err := svc.GenerateSettlements(auction.ID, time.Now())
	if err != nil {
		t.Fatalf("GenerateSettlements() error: %v", err)
	}

	xml, err := svc.SettlementSEPA(settlements[0].ID)
	if err != nil {
		t.Fatalf("SettlementSEPA() error: %v", err)
	}
	if !strings.Contains(xml, withBank.IBAN) {
		t.Error("downloaded payment file missing creditor IBAN")
	}

	if _, err := svc.SettlementSEPA(99999); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown settlement error = %v, want ErrNotFound", err)
	}
}
