package services

import (
	"testing"
	"time"

	"github.com/el-kamal/auctify/backend/src/models"
	"github.com/patrickmn/go-cache"
	"github.com/xuri/excelize/v2"
)

func TestExportResults(t *testing.T) {
	m := newMemLedger()
	auction := m.addAuction(&models.Auction{Name: "Vente de mai", Status: models.AuctionMapped})
	seller := m.addActor(&models.Actor{Name: "=Galerie()", Type: models.ActorSeller, IsCompany: true})
	buyer := m.addActor(&models.Actor{Name: "Durand Paul", Type: models.ActorBuyer})
	price := int64(100)
	m.addLot(&models.Lot{
		AuctionID:   auction.ID,
		LotNumber:   1,
		Description: "Commode",
		HammerPrice: &price,
		SellerID:    &seller.ID,
		BuyerID:     &buyer.ID,
		Status:      models.LotSold,
	})
	m.addLot(&models.Lot{AuctionID: auction.ID, LotNumber: 2, SellerID: &seller.ID, Status: models.LotUnsold})

	svc := NewReconciliationService(m, nil, cache.New(time.Minute, time.Minute))
	buf, err := svc.ExportResults(auction.ID, ResultFilter{})
	if err != nil {
		t.Fatalf("ExportResults() error: %v", err)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("reading exported workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Résultats")
	if err != nil {
		t.Fatalf("reading sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if rows[0][0] != "Vente" || rows[0][4] != "Statut" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][4] != "Vendu" || rows[2][4] != "Invendu" {
		t.Errorf("status labels = %q/%q, want Vendu/Invendu", rows[1][4], rows[2][4])
	}
	// Formula-looking seller name must arrive neutralized.
	if rows[1][3] != "'=Galerie()" {
		t.Errorf("seller cell = %q, want formula-injection prefix", rows[1][3])
	}
	if rows[1][6] != "Durand Paul" {
		t.Errorf("buyer cell = %q", rows[1][6])
	}
}
