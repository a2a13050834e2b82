package services

import (
	"errors"
	"testing"
	"time"

	"github.com/el-kamal/auctify/backend/src/models"
)

// seedSoldLots creates an auction with three sold lots owned by three
// distinct buyers at the given prices.
func seedSoldLots(m *memLedger, prices ...int64) (*models.Auction, []*models.Actor) {
	auction := m.addAuction(&models.Auction{
		Name:         "Vente d'automne",
		Date:         time.Now(),
		Status:       models.AuctionMapped,
		BuyerFeeRate: 0.20,
	})
	seller := m.addActor(&models.Actor{Name: "Galerie Est SARL", Type: models.ActorSeller, IsCompany: true})

	var buyers []*models.Actor
	for i, price := range prices {
		p := price
		buyer := m.addActor(&models.Actor{Name: "Acheteur " + string(rune('A'+i)), Type: models.ActorBuyer})
		buyers = append(buyers, buyer)
		m.addLot(&models.Lot{
			AuctionID:   auction.ID,
			LotNumber:   i + 1,
			Description: "Tableau",
			HammerPrice: &p,
			SellerID:    &seller.ID,
			BuyerID:     &buyer.ID,
			Status:      models.LotSold,
		})
	}
	return auction, buyers
}

func TestGenerateInvoicesChainsFromGenesis(t *testing.T) {
	m := newMemLedger()
	auction, _ := seedSoldLots(m, 1000, 500, 200)

	svc := NewInvoiceService(m)
	generated, err := svc.GenerateInvoices(auction.ID)
	if err != nil {
		t.Fatalf("GenerateInvoices() error: %v", err)
	}
	if len(generated) != 3 {
		t.Fatalf("got %d invoices, want 3", len(generated))
	}

	first := generated[0].Invoice
	if first.PreviousHash != GenesisHash {
		t.Errorf("first previous_hash = %q, want genesis sentinel", first.PreviousHash)
	}
	for i := 1; i < len(generated); i++ {
		prev, cur := generated[i-1].Invoice, generated[i].Invoice
		if cur.PreviousHash != prev.Hash {
			t.Errorf("invoice %d previous_hash does not equal invoice %d hash", i, i-1)
		}
	}
	for _, g := range generated {
		if got := SignInvoice(g.Invoice, g.Invoice.PreviousHash); got != g.Invoice.Hash {
			t.Errorf("invoice %s stored hash does not re-derive", g.Invoice.Number)
		}
		if g.Invoice.Status != models.InvoiceValidated {
			t.Errorf("invoice %s status = %s, want VALIDATED", g.Invoice.Number, g.Invoice.Status)
		}
	}

	// Company seller, 1000 hammer, 20% buyer fee: 1200 + 240 incl.
	if generated[0].Invoice.TotalIncl != 1440 {
		t.Errorf("first invoice total incl = %v, want 1440", generated[0].Invoice.TotalIncl)
	}
	if len(generated[0].Lines) != 2 {
		t.Errorf("first invoice has %d lines, want lot + fees", len(generated[0].Lines))
	}

	report, err := svc.VerifyChain()
	if err != nil {
		t.Fatalf("VerifyChain() error: %v", err)
	}
	if !report.Valid || report.Invoices != 3 {
		t.Errorf("report = %+v, want valid with 3 invoices", report)
	}
}

func TestGenerateInvoicesSeedsFromLastInvoice(t *testing.T) {
	m := newMemLedger()
	first, _ := seedSoldLots(m, 300)
	svc := NewInvoiceService(m)
	batch1, err := svc.GenerateInvoices(first.ID)
	if err != nil {
		t.Fatalf("first batch: %v", err)
	}

	second, _ := seedSoldLots(m, 700)
	batch2, err := svc.GenerateInvoices(second.ID)
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}

	tail := batch1[len(batch1)-1].Invoice
	if batch2[0].Invoice.PreviousHash != tail.Hash {
		t.Error("second batch does not chain onto the first batch's tail")
	}
}

func TestGenerateInvoicesRefusesCorruptedChain(t *testing.T) {
	m := newMemLedger()
	auction, _ := seedSoldLots(m, 1000, 500)
	svc := NewInvoiceService(m)
	if _, err := svc.GenerateInvoices(auction.ID); err != nil {
		t.Fatalf("setup batch: %v", err)
	}

	// Retroactive edit to the first invoice's amount.
	m.invoices[0].TotalIncl += 1

	next, _ := seedSoldLots(m, 100)
	_, err := svc.GenerateInvoices(next.ID)
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("error = %v, want ErrIntegrity", err)
	}

	report, err := svc.VerifyChain()
	if err != nil {
		t.Fatalf("VerifyChain() error: %v", err)
	}
	if report.Valid {
		t.Error("report says valid, want tampering detected")
	}
}

func TestVerifyChainDetectsBrokenLink(t *testing.T) {
	m := newMemLedger()
	auction, _ := seedSoldLots(m, 1000, 500, 200)
	svc := NewInvoiceService(m)
	if _, err := svc.GenerateInvoices(auction.ID); err != nil {
		t.Fatalf("setup batch: %v", err)
	}

	m.invoices[1].PreviousHash = "0000"

	report, err := svc.VerifyChain()
	if err != nil {
		t.Fatalf("VerifyChain() error: %v", err)
	}
	if report.Valid {
		t.Error("report says valid, want broken link detected")
	}
}

func TestGenerateInvoicesNoSoldLots(t *testing.T) {
	m := newMemLedger()
	auction := m.addAuction(&models.Auction{Name: "Vente vide", Status: models.AuctionMapped})

	_, err := NewInvoiceService(m).GenerateInvoices(auction.ID)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestGenerateInvoicesGroupsLotsPerBuyer(t *testing.T) {
	m := newMemLedger()
	auction, buyers := seedSoldLots(m, 1000, 500)

	// Give buyer A a second lot.
	extra := int64(100)
	m.addLot(&models.Lot{
		AuctionID:   auction.ID,
		LotNumber:   3,
		HammerPrice: &extra,
		BuyerID:     &buyers[0].ID,
		Status:      models.LotSold,
	})

	generated, err := NewInvoiceService(m).GenerateInvoices(auction.ID)
	if err != nil {
		t.Fatalf("GenerateInvoices() error: %v", err)
	}
	if len(generated) != 2 {
		t.Fatalf("got %d invoices, want one per buyer", len(generated))
	}

	var forA *InvoiceWithLines
	for i := range generated {
		if generated[i].Invoice.BuyerID == buyers[0].ID {
			forA = &generated[i]
		}
	}
	if forA == nil {
		t.Fatal("no invoice for buyer A")
	}
	// 1000 via company seller (1440 incl) + 100 via unknown seller
	// treated as company (120 + 24 fees = 144 incl).
	if forA.Invoice.TotalIncl != 1584 {
		t.Errorf("buyer A total incl = %v, want 1584", forA.Invoice.TotalIncl)
	}
}

func TestInvoiceNumberFormat(t *testing.T) {
	ts := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)
	if got := invoiceNumber(ts, 12); got != "2026-03-0012" {
		t.Errorf("invoiceNumber = %q, want 2026-03-0012", got)
	}
}
