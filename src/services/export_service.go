package services

import (
	"bytes"
	"fmt"

	"github.com/el-kamal/auctify/backend/src/models"
	"github.com/el-kamal/auctify/backend/src/security/validation"
	"github.com/xuri/excelize/v2"
)

var exportHeaders = []string{"Vente", "N° Lot", "Description", "Vendeur", "Statut", "Adjudication", "Acheteur"}

// ExportResults renders the filtered results view as an xlsx workbook
// for download. Cell text goes through the formula-injection sanitizer
// before it reaches spreadsheet software.
func (s *ReconciliationService) ExportResults(auctionID int64, f ResultFilter) (*bytes.Buffer, error) {
	tx, err := s.ledger.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	auction, err := tx.GetAuction(auctionID)
	if err != nil {
		return nil, err
	}
	results, err := tx.ResultRows(auctionID, f)
	if err != nil {
		return nil, err
	}

	workbook := excelize.NewFile()
	defer workbook.Close()

	const sheet = "Résultats"
	if err := workbook.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("error naming export sheet: %w", err)
	}

	header := make([]interface{}, len(exportHeaders))
	for i, h := range exportHeaders {
		header[i] = h
	}
	if err := workbook.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("error writing export header: %w", err)
	}

	for i, item := range results {
		var price interface{}
		if item.HammerPrice != nil {
			price = *item.HammerPrice
		}
		row := []interface{}{
			validation.SanitizeForFormulaInjection(auction.Name),
			item.LotNumber,
			validation.SanitizeForFormulaInjection(item.Description),
			validation.SanitizeForFormulaInjection(item.SellerName),
			statusLabel(item.Status),
			price,
			validation.SanitizeForFormulaInjection(item.BuyerName),
		}
		cellRef := fmt.Sprintf("A%d", i+2)
		if err := workbook.SetSheetRow(sheet, cellRef, &row); err != nil {
			return nil, fmt.Errorf("error writing export row %d: %w", i+2, err)
		}
	}

	buf, err := workbook.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("error serializing export workbook: %w", err)
	}
	return buf, nil
}

// statusLabel maps lot statuses to the French labels the back office
// expects in exports. Anomalies keep their raw status on purpose.
func statusLabel(status models.LotStatus) string {
	switch status {
	case models.LotSold:
		return "Vendu"
	case models.LotUnsold:
		return "Invendu"
	default:
		return string(status)
	}
}
