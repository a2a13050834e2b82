package services

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/el-kamal/auctify/backend/src/logger"
	"github.com/el-kamal/auctify/backend/src/models"
	"github.com/el-kamal/auctify/backend/src/parsers"
	"github.com/el-kamal/auctify/backend/src/processors"
	"github.com/google/uuid"
)

// FeeRates carries the fee fractions stamped onto auctions at creation.
type FeeRates struct {
	Buyer    float64
	Seller   float64
	Platform float64
}

// ImportService builds the pre-auction lot ledger from the mapping
// workbook: which seller consigned which lot, before any sale results
// exist.
type ImportService struct {
	ledger Ledger
	parser *parsers.MappingParser
	rates  FeeRates
}

func NewImportService(ledger Ledger, parser *parsers.MappingParser, rates FeeRates) *ImportService {
	return &ImportService{ledger: ledger, parser: parser, rates: rates}
}

// CreateAuctionFromWorkbook creates a fresh auction named after the
// uploaded file and imports its mapping in one unit.
func (s *ImportService) CreateAuctionFromWorkbook(file io.Reader, filename string) (*models.Auction, []models.MappedLot, error) {
	mappings, err := s.parser.Parse(file)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	tx, err := s.ledger.Begin()
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	auction := &models.Auction{
		Number:          auctionNumber(now),
		Name:            filename,
		Date:            now,
		Status:          models.AuctionMapped,
		BuyerFeeRate:    s.rates.Buyer,
		SellerFeeRate:   s.rates.Seller,
		PlatformFeeRate: s.rates.Platform,
	}
	if err := tx.CreateAuction(auction); err != nil {
		return nil, nil, err
	}

	imported, err := importMappings(tx, auction.ID, mappings)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("error committing mapping import: %w", err)
	}

	logger.L.Info("Auction created from mapping workbook", "auctionID", auction.ID, "name", filename, "lots", len(imported))
	return auction, imported, nil
}

// ImportMapping (re-)imports the mapping into an existing auction,
// updating lots already present and upgrading a CREATED auction to
// MAPPED.
func (s *ImportService) ImportMapping(auctionID int64, file io.Reader) (*models.Auction, []models.MappedLot, error) {
	mappings, err := s.parser.Parse(file)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	tx, err := s.ledger.Begin()
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	auction, err := tx.GetAuction(auctionID)
	if err != nil {
		return nil, nil, err
	}

	imported, err := importMappings(tx, auction.ID, mappings)
	if err != nil {
		return nil, nil, err
	}

	if auction.Status == models.AuctionCreated {
		auction.Status = models.AuctionMapped
		if err := tx.UpdateAuctionStatus(auction.ID, auction.Status); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("error committing mapping import: %w", err)
	}

	logger.L.Info("Mapping imported into auction", "auctionID", auction.ID, "lots", len(imported))
	return auction, imported, nil
}

func importMappings(tx LedgerTx, auctionID int64, mappings []parsers.MappingRow) ([]models.MappedLot, error) {
	existing, err := tx.LotsByAuction(auctionID)
	if err != nil {
		return nil, err
	}
	lotsByNumber := make(map[int]*models.Lot, len(existing))
	for _, lot := range existing {
		lotsByNumber[lot.LotNumber] = lot
	}

	var imported []models.MappedLot
	for _, m := range mappings {
		seller, err := getOrCreateSeller(tx, m.SellerName)
		if err != nil {
			return nil, err
		}

		if lot, exists := lotsByNumber[m.LotNumber]; exists {
			lot.Description = m.Description
			lot.SellerID = &seller.ID
			if err := tx.UpdateLot(lot); err != nil {
				return nil, err
			}
		} else {
			lot := &models.Lot{
				AuctionID:   auctionID,
				LotNumber:   m.LotNumber,
				Description: m.Description,
				SellerID:    &seller.ID,
				Status:      models.LotCreated,
			}
			if err := tx.CreateLot(lot); err != nil {
				return nil, err
			}
			lotsByNumber[m.LotNumber] = lot
		}

		imported = append(imported, models.MappedLot{
			LotNumber:   m.LotNumber,
			Description: m.Description,
			SellerName:  m.SellerName,
		})
	}
	return imported, nil
}

func getOrCreateSeller(tx LedgerTx, name string) (*models.Actor, error) {
	seller, err := tx.FindActor(ActorCriteria{Name: name, Type: models.ActorSeller})
	if err != nil {
		return nil, err
	}
	if seller != nil {
		return seller, nil
	}
	seller = &models.Actor{
		Name:      name,
		Type:      models.ActorSeller,
		IsCompany: !processors.IsIndividualName(name),
	}
	if err := tx.CreateActor(seller); err != nil {
		return nil, err
	}
	return seller, nil
}

// auctionNumber builds the DD-MM-YYYY-XXXX human reference for a new
// auction.
func auctionNumber(t time.Time) string {
	suffix := strings.ToUpper(uuid.New().String()[:4])
	return fmt.Sprintf("%s-%s", t.Format("02-01-2006"), suffix)
}
