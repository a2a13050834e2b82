package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/el-kamal/auctify/backend/src/logger"
	"github.com/el-kamal/auctify/backend/src/models"
	"github.com/el-kamal/auctify/backend/src/parsers"
	"github.com/el-kamal/auctify/backend/src/processors"
	"github.com/patrickmn/go-cache"
)

const (
	ckResults = "res_results_auction_%d_%s_%s"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

// ReconciliationService reconciles a sale-results export against the
// lot ledger of one auction. A run classifies every lot SOLD, UNSOLD or
// ANOMALIE, resolves buyers and commits all mutations as one unit.
type ReconciliationService struct {
	ledger      Ledger
	loader      *parsers.TabularLoader
	resultCache *cache.Cache
}

func NewReconciliationService(ledger Ledger, loader *parsers.TabularLoader, resultCache *cache.Cache) *ReconciliationService {
	return &ReconciliationService{
		ledger:      ledger,
		loader:      loader,
		resultCache: resultCache,
	}
}

// Reconcile runs the match/anomaly/unsold state machine once over the
// given export bytes. Rows lacking a usable lot number are skipped and
// counted; an unparseable file aborts the run with nothing committed.
func (s *ReconciliationService) Reconcile(auctionID int64, raw []byte) (*models.ReconciliationStats, error) {
	startTime := time.Now()
	logger.L.Info("Reconcile START", "auctionID", auctionID)

	rows, err := s.loader.Load(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	tx, err := s.ledger.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.GetAuction(auctionID); err != nil {
		return nil, err
	}

	ledgerLots, err := tx.LotsByAuction(auctionID)
	if err != nil {
		return nil, err
	}
	lotsByNumber := make(map[int]*models.Lot, len(ledgerLots))
	for _, lot := range ledgerLots {
		lotsByNumber[lot.LotNumber] = lot
	}

	stats := &models.ReconciliationStats{}
	seen := make(map[int]bool)
	createdThisRun := make(map[int]bool)

	for _, row := range rows {
		lotStr, ok := row.Get("Lot")
		if !ok {
			stats.Skipped++
			continue
		}
		lotNumber, err := parsers.ParseLotNumber(lotStr)
		if err != nil {
			logger.L.Warn("Skipping row with non-numeric lot number", "auctionID", auctionID, "value", lotStr)
			stats.Skipped++
			continue
		}
		firstSeen := !seen[lotNumber]
		seen[lotNumber] = true

		buyer, err := s.resolveBuyer(tx, row)
		if err != nil {
			return nil, err
		}

		price := parsePriceCell(row)

		if lot, exists := lotsByNumber[lotNumber]; exists {
			// Anomaly lots created earlier in this run keep their state;
			// any lot already in the ledger before the run sells, even
			// one flagged ANOMALIE by an earlier run.
			if !createdThisRun[lotNumber] {
				lot.Status = models.LotSold
			}
			lot.HammerPrice = &price
			if buyer != nil {
				lot.BuyerID = &buyer.ID
			}
			if err := tx.UpdateLot(lot); err != nil {
				return nil, err
			}
			if firstSeen {
				stats.Matched++
			}
		} else {
			// Present in the export but never pre-mapped: an anomaly
			// lot, created without a seller.
			newLot := &models.Lot{
				AuctionID:   auctionID,
				LotNumber:   lotNumber,
				HammerPrice: &price,
				Status:      models.LotAnomalie,
			}
			if desc, ok := row.Get("Description"); ok {
				newLot.Description = desc
			}
			if buyer != nil {
				newLot.BuyerID = &buyer.ID
			}
			if err := tx.CreateLot(newLot); err != nil {
				return nil, err
			}
			// Later duplicate rows for this number update the lot
			// instead of violating the per-auction uniqueness.
			lotsByNumber[lotNumber] = newLot
			createdThisRun[lotNumber] = true
			stats.Anomalies++
		}
	}

	// Everything pre-mapped that the export never mentioned is unsold.
	// Anomaly lots keep their state: they were never mapped, so absence
	// from a later export says nothing about them.
	for lotNumber, lot := range lotsByNumber {
		if seen[lotNumber] || lot.Status == models.LotAnomalie {
			continue
		}
		lot.Status = models.LotUnsold
		if err := tx.UpdateLot(lot); err != nil {
			return nil, err
		}
		stats.Unsold++
	}

	stats.Processed = stats.Matched + stats.Anomalies

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing reconciliation run: %w", err)
	}

	s.invalidateResultCache(auctionID)

	logger.L.Info("Reconcile END", "auctionID", auctionID,
		"processed", stats.Processed, "matched", stats.Matched,
		"anomalies", stats.Anomalies, "unsold", stats.Unsold,
		"skipped", stats.Skipped, "duration", time.Since(startTime))
	return stats, nil
}

// resolveBuyer finds or creates the buyer an export row refers to:
// exact email match first, then the constructed full name (falling back
// to the raw buyer code), then creation with whatever contact fields
// the row carried.
func (s *ReconciliationService) resolveBuyer(tx LedgerTx, row parsers.Row) (*models.Actor, error) {
	email, _ := row.Get("Email")
	name, _ := row.Get("Nom")
	firstname, _ := row.Get("Prénom")
	code, _ := row.Get("Numéro acheteur")

	fullName := strings.TrimSpace(strings.TrimSpace(name) + " " + strings.TrimSpace(firstname))
	if fullName == "" {
		fullName = strings.TrimSpace(code)
	}
	if email == "" && fullName == "" {
		return nil, nil
	}

	buyer, err := tx.FindActor(ActorCriteria{Email: email, Name: fullName, Type: models.ActorBuyer})
	if err != nil {
		return nil, err
	}
	if buyer != nil {
		return buyer, nil
	}
	if fullName == "" {
		return nil, nil
	}

	siren, ok := row.Get("SIREN")
	if !ok {
		siren, _ = row.Get("SIRET")
	}

	buyer = &models.Actor{
		Name:       fullName,
		Type:       models.ActorBuyer,
		Email:      email,
		Address:    assembleAddress(row),
		Phone:      formatPhone(row),
		SirenSiret: siren,
		IsCompany:  !processors.IsIndividualName(fullName),
	}
	if err := tx.CreateActor(buyer); err != nil {
		return nil, err
	}
	logger.L.Debug("Created buyer from export row", "name", fullName, "email", email != "")
	return buyer, nil
}

func assembleAddress(row parsers.Row) string {
	var parts []string
	for _, col := range []string{"Adresse", "CP", "Ville"} {
		if v, ok := row.Get(col); ok {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// formatPhone normalizes a mobile number from the export: spreadsheet
// float renderings lose their fraction, and a leading country code
// "33" becomes the local leading zero.
func formatPhone(row parsers.Row) string {
	mobile, ok := row.Get("Mobile")
	if !ok {
		return ""
	}
	phone, _, _ := strings.Cut(mobile, ".")
	if strings.HasPrefix(phone, "33") {
		return "0" + phone[2:]
	}
	return phone
}

func parsePriceCell(row parsers.Row) int64 {
	v, ok := row.Get("Adj.")
	if !ok {
		return 0
	}
	v = strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return int64(f)
}

// GetResults returns the filtered reconciliation results view, ordered
// by lot number. Listings are cached per auction and filter until the
// next reconciliation run.
func (s *ReconciliationService) GetResults(auctionID int64, f ResultFilter) ([]models.LotResult, error) {
	cacheKey := fmt.Sprintf(ckResults, auctionID, f.Status, strings.ToLower(f.SellerName))
	if cached, found := s.resultCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for reconciliation results", "auctionID", auctionID)
		return cached.([]models.LotResult), nil
	}

	tx, err := s.ledger.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.GetAuction(auctionID); err != nil {
		return nil, err
	}
	results, err := tx.ResultRows(auctionID, f)
	if err != nil {
		return nil, err
	}

	s.resultCache.Set(cacheKey, results, DefaultCacheExpiration)
	return results, nil
}

func (s *ReconciliationService) invalidateResultCache(auctionID int64) {
	prefix := fmt.Sprintf("res_results_auction_%d_", auctionID)
	for key := range s.resultCache.Items() {
		if strings.HasPrefix(key, prefix) {
			s.resultCache.Delete(key)
		}
	}
	logger.L.Info("Invalidated result caches for auction", "auctionID", auctionID)
}
