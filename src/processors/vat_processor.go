package processors

import (
	"strings"

	"github.com/el-kamal/auctify/backend/src/models"
)

// StandardVATRate is the standard French rate applied to VAT-able lot
// amounts and to all fee lines.
const StandardVATRate = 0.20

// VATLine is one taxed amount block: base, applied rate, resulting tax
// and tax-inclusive total.
type VATLine struct {
	Base      float64 `json:"base"`
	VATRate   float64 `json:"vat_rate"`
	VATAmount float64 `json:"vat_amount"`
	Total     float64 `json:"total"`
}

// VATTotals aggregates excl/vat/incl across all blocks of a breakdown.
type VATTotals struct {
	Excl float64 `json:"excl"`
	VAT  float64 `json:"vat"`
	Incl float64 `json:"incl"`
}

// VATBreakdown is the full monetary decomposition of one lot: the lot
// amount itself, the buyer-side fees and the platform fees.
type VATBreakdown struct {
	Lot          VATLine   `json:"lot"`
	Fees         VATLine   `json:"fees"`
	PlatformFees VATLine   `json:"platform_fees"`
	Total        VATTotals `json:"total"`
}

// CalculateLines decomposes a lot's hammer price under the seller's VAT
// regime:
//
//   - company seller: the lot amount is VAT-able at the standard rate;
//   - individual seller: margin scheme, modelled as 0% VAT on the
//     hammer price (the true margin calculation is out of scope).
//
// Buyer and platform fees are always taxed at the standard rate
// regardless of the seller. An absent hammer price counts as 0.
// Amounts are not rounded here; rounding happens at display time only.
func CalculateLines(lot *models.Lot, seller *models.Actor, buyerFeeRate, platformFeeRate float64) VATBreakdown {
	hammerPrice := lot.HammerPriceValue()

	isCompany := true
	if seller != nil {
		isCompany = seller.IsCompany
	}

	var lotLine VATLine
	if isCompany {
		lotLine = taxedLine(hammerPrice, StandardVATRate)
	} else {
		lotLine = taxedLine(hammerPrice, 0)
	}

	feesLine := taxedLine(hammerPrice*buyerFeeRate, StandardVATRate)
	platformLine := taxedLine(hammerPrice*platformFeeRate, StandardVATRate)

	return VATBreakdown{
		Lot:          lotLine,
		Fees:         feesLine,
		PlatformFees: platformLine,
		Total: VATTotals{
			Excl: lotLine.Base + feesLine.Base + platformLine.Base,
			VAT:  lotLine.VATAmount + feesLine.VATAmount + platformLine.VATAmount,
			Incl: lotLine.Total + feesLine.Total + platformLine.Total,
		},
	}
}

func taxedLine(base, rate float64) VATLine {
	vat := base * rate
	return VATLine{Base: base, VATRate: rate, VATAmount: vat, Total: base + vat}
}

// IsIndividualName reports whether a name carries an individual-style
// honorific. Used only as the classification default when an actor is
// first created; the persisted Actor.IsCompany flag is authoritative
// afterwards.
func IsIndividualName(name string) bool {
	return strings.HasPrefix(name, "M.") || strings.HasPrefix(name, "Mme")
}
