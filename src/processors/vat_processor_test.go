package processors

import (
	"testing"

	"github.com/el-kamal/auctify/backend/src/models"
)

func lotWithPrice(price int64) *models.Lot {
	return &models.Lot{LotNumber: 1, HammerPrice: &price, Status: models.LotSold}
}

func TestCalculateLinesCompanySeller(t *testing.T) {
	seller := &models.Actor{Name: "Galerie Dupont SARL", IsCompany: true}
	b := CalculateLines(lotWithPrice(1000), seller, 0.20, 0)

	if b.Lot.VATRate != StandardVATRate {
		t.Errorf("lot VAT rate = %v, want %v", b.Lot.VATRate, StandardVATRate)
	}
	if b.Lot.Total != 1200 {
		t.Errorf("lot total = %v, want 1200", b.Lot.Total)
	}
	if b.Fees.Base != 200 {
		t.Errorf("fees base = %v, want 200", b.Fees.Base)
	}
	if b.Fees.Total != 240 {
		t.Errorf("fees total = %v, want 240", b.Fees.Total)
	}
	if b.Total.Incl != 1440 {
		t.Errorf("total incl = %v, want 1440", b.Total.Incl)
	}
}

func TestCalculateLinesIndividualSeller(t *testing.T) {
	seller := &models.Actor{Name: "M. Dupont Jean", IsCompany: false}
	b := CalculateLines(lotWithPrice(1000), seller, 0.20, 0)

	if b.Lot.VATRate != 0 {
		t.Errorf("lot VAT rate = %v, want 0 under margin scheme", b.Lot.VATRate)
	}
	if b.Lot.Total != 1000 {
		t.Errorf("lot total = %v, want 1000", b.Lot.Total)
	}
	// Fees stay taxed at the standard rate regardless of the seller.
	if b.Fees.VATRate != StandardVATRate {
		t.Errorf("fees VAT rate = %v, want %v", b.Fees.VATRate, StandardVATRate)
	}
	if b.Total.Incl != 1240 {
		t.Errorf("total incl = %v, want 1240", b.Total.Incl)
	}
}

func TestCalculateLinesNilSellerDefaultsToCompany(t *testing.T) {
	b := CalculateLines(lotWithPrice(500), nil, 0.20, 0)
	if b.Lot.VATRate != StandardVATRate {
		t.Errorf("lot VAT rate = %v, want %v for unknown seller", b.Lot.VATRate, StandardVATRate)
	}
}

func TestCalculateLinesPlatformFees(t *testing.T) {
	b := CalculateLines(lotWithPrice(1000), nil, 0.20, 0.05)
	if b.PlatformFees.Base != 50 {
		t.Errorf("platform base = %v, want 50", b.PlatformFees.Base)
	}
	if b.PlatformFees.Total != 60 {
		t.Errorf("platform total = %v, want 60", b.PlatformFees.Total)
	}
	if b.Total.Incl != 1500 {
		t.Errorf("total incl = %v, want 1500", b.Total.Incl)
	}
}

func TestCalculateLinesAbsentPrice(t *testing.T) {
	b := CalculateLines(&models.Lot{LotNumber: 9}, nil, 0.20, 0)
	if b.Total.Incl != 0 {
		t.Errorf("total incl = %v, want 0 for absent hammer price", b.Total.Incl)
	}
}

func TestIsIndividualName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"M. Dupont Jean", true},
		{"Mme Martin Claire", true},
		{"Galerie Dupont SARL", false},
		{"Maison de ventes", false},
	}
	for _, tc := range tests {
		if got := IsIndividualName(tc.name); got != tc.want {
			t.Errorf("IsIndividualName(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
