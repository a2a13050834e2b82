package parsers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/el-kamal/auctify/backend/src/logger"
	"golang.org/x/text/encoding/charmap"
)

// Row maps trimmed column names to raw cell values for one export line.
type Row map[string]string

// Get returns the cell value for col. Empty cells and the literal "NaN"
// some exporters write are reported as absent, never as a value.
func (r Row) Get(col string) (string, bool) {
	v, ok := r[col]
	if !ok || v == "" || v == "NaN" {
		return "", false
	}
	return v, true
}

// candidate is one (encoding, delimiter) pair to try. decode is nil for
// plain UTF-8 input.
type candidate struct {
	name      string
	decode    func([]byte) ([]byte, error)
	delimiter rune
}

func decodeLatin1(raw []byte) ([]byte, error) {
	return charmap.ISO8859_1.NewDecoder().Bytes(raw)
}

func decodeWindows1252(raw []byte) ([]byte, error) {
	return charmap.Windows1252.NewDecoder().Bytes(raw)
}

// candidates is the ordered fallback list. Export formats vary by
// locale and tool, so no single encoding+delimiter pair is reliable;
// the first candidate whose parse yields more than one column wins.
var candidates = []candidate{
	{name: "utf-8/comma", decode: nil, delimiter: ','},
	{name: "latin-1/semicolon", decode: decodeLatin1, delimiter: ';'},
	{name: "windows-1252/semicolon", decode: decodeWindows1252, delimiter: ';'},
}

// retryCandidate is the last-resort parse accepted even with a single
// column, mirroring the behaviour sellers' tooling has trained users on.
var retryCandidate = candidates[1]

// TabularLoader decodes raw bytes purporting to be a delimited table
// into a normalized row set.
type TabularLoader struct{}

func NewTabularLoader() *TabularLoader {
	return &TabularLoader{}
}

// Load runs the candidate cascade and returns the normalized rows. The
// returned error wraps nothing domain-specific; callers classify a nil
// row set as a format failure.
func (l *TabularLoader) Load(raw []byte) ([]Row, error) {
	for _, c := range candidates {
		rows, err := parseWith(raw, c)
		if err != nil {
			logger.L.Debug("Tabular candidate rejected", "candidate", c.name, "error", err)
			continue
		}
		logger.L.Info("Tabular candidate accepted", "candidate", c.name, "rows", len(rows))
		return rows, nil
	}

	// Every candidate produced either a parse error or a single wide
	// column. Retry latin-1/semicolon and take whatever parses.
	rows, err := parseWithLoose(raw, retryCandidate)
	if err != nil {
		return nil, fmt.Errorf("no encoding/delimiter candidate produced a usable table: %w", err)
	}
	logger.L.Warn("Tabular retry accepted single-column parse", "candidate", retryCandidate.name, "rows", len(rows))
	return rows, nil
}

func parseWith(raw []byte, c candidate) ([]Row, error) {
	rows, header, err := parseRecords(raw, c)
	if err != nil {
		return nil, err
	}
	if len(header) <= 1 {
		// Symptom of the wrong delimiter under an encoding that
		// nonetheless decoded; data must never be silently mis-split
		// into one wide column.
		return nil, fmt.Errorf("parse yielded %d column(s)", len(header))
	}
	return rows, nil
}

func parseWithLoose(raw []byte, c candidate) ([]Row, error) {
	rows, _, err := parseRecords(raw, c)
	return rows, err
}

func parseRecords(raw []byte, c candidate) ([]Row, []string, error) {
	decoded := raw
	if c.decode != nil {
		var err error
		decoded, err = c.decode(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("decoding as %s: %w", c.name, err)
		}
	} else if !utf8.Valid(raw) {
		return nil, nil, fmt.Errorf("input is not valid UTF-8")
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.Comma = c.delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading CSV records: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty table")
	}

	header := make([]string, len(records[0]))
	for i, col := range records[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(col, "\uFEFF"))
	}

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(Row, len(header))
		for i, cell := range record {
			if i >= len(header) {
				break
			}
			row[header[i]] = cell
		}
		rows = append(rows, row)
	}
	return rows, header, nil
}
