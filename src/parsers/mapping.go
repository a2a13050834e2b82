package parsers

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/el-kamal/auctify/backend/src/logger"
	"github.com/xuri/excelize/v2"
)

// MappingRow is one pre-auction lot assignment from the mapping
// workbook: which seller consigned which lot.
type MappingRow struct {
	LotNumber   int
	SellerName  string
	Description string
}

// MappingParser reads the lot/seller mapping Excel workbook the auction
// house prepares before the sale. Expected columns: Lot, Vendeur,
// Désignation.
type MappingParser struct{}

func NewMappingParser() *MappingParser {
	return &MappingParser{}
}

func (p *MappingParser) Parse(file io.Reader) ([]MappingRow, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	colIdx := make(map[string]int)
	for i, col := range records[0] {
		colIdx[strings.TrimSpace(col)] = i
	}

	cell := func(record []string, col string) string {
		i, ok := colIdx[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var mappings []MappingRow
	for _, record := range records[1:] {
		lotStr := cell(record, "Lot")
		sellerName := cell(record, "Vendeur")
		if lotStr == "" || sellerName == "" {
			continue
		}
		lotNumber, err := ParseLotNumber(lotStr)
		if err != nil {
			logger.L.Warn("Skipping mapping row with invalid lot number", "value", lotStr)
			continue
		}
		mappings = append(mappings, MappingRow{
			LotNumber:   lotNumber,
			SellerName:  sellerName,
			Description: cell(record, "Désignation"),
		})
	}
	return mappings, nil
}

// ParseLotNumber accepts the integer-ish values spreadsheet tooling
// emits for lot numbers, including float renderings like "12.0".
func ParseLotNumber(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a lot number: %q", s)
	}
	return int(f), nil
}
