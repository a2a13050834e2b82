package parsers

import (
	"os"
	"testing"

	"github.com/el-kamal/auctify/backend/src/logger"
	"golang.org/x/text/encoding/charmap"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func encodeAs(t *testing.T, cm *charmap.Charmap, s string) []byte {
	t.Helper()
	out, err := cm.NewEncoder().Bytes([]byte(s))
	if err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return out
}

func TestLoadEncodingCascade(t *testing.T) {
	const utf8Comma = "Lot,Nom,Adj.\n1,Müller,100\n2,Leroy,250\n"
	const semicolon = "Lot;Nom;Adj.\n1;Müller;100\n2;Leroy;250\n"

	tests := []struct {
		name string
		raw  []byte
	}{
		{"utf-8 comma", []byte(utf8Comma)},
		{"latin-1 semicolon", encodeAs(t, charmap.ISO8859_1, semicolon)},
		{"windows-1252 semicolon", encodeAs(t, charmap.Windows1252, semicolon)},
	}

	loader := NewTabularLoader()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rows, err := loader.Load(tc.raw)
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if len(rows) != 2 {
				t.Fatalf("got %d rows, want 2", len(rows))
			}
			if name, _ := rows[0].Get("Nom"); name != "Müller" {
				t.Errorf("row 0 Nom = %q, want %q", name, "Müller")
			}
			if adj, _ := rows[1].Get("Adj."); adj != "250" {
				t.Errorf("row 1 Adj. = %q, want %q", adj, "250")
			}
		})
	}
}

func TestLoadStripsBOM(t *testing.T) {
	raw := []byte("\uFEFFLot,Nom\n1,Durand\n")
	rows, err := NewTabularLoader().Load(raw)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if _, ok := rows[0].Get("Lot"); !ok {
		t.Errorf("BOM-prefixed header not normalized, columns: %v", rows[0])
	}
}

func TestLoadSingleColumnRetry(t *testing.T) {
	// Semicolon-delimited but only one real column: every strict
	// candidate rejects it, the loose retry accepts it.
	raw := encodeAs(t, charmap.ISO8859_1, "Lot\n1\n2\n")
	rows, err := NewTabularLoader().Load(raw)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if v, _ := rows[1].Get("Lot"); v != "2" {
		t.Errorf("row 1 Lot = %q, want %q", v, "2")
	}
}

func TestLoadEmptyInputFails(t *testing.T) {
	if _, err := NewTabularLoader().Load(nil); err == nil {
		t.Fatal("Load(nil) succeeded, want error")
	}
}

func TestRowGetTreatsNaNAsAbsent(t *testing.T) {
	row := Row{"Email": "NaN", "Nom": "Petit", "Adj.": ""}
	if _, ok := row.Get("Email"); ok {
		t.Error("Get(Email) = present, want absent for NaN cell")
	}
	if _, ok := row.Get("Adj."); ok {
		t.Error("Get(Adj.) = present, want absent for empty cell")
	}
	if v, ok := row.Get("Nom"); !ok || v != "Petit" {
		t.Errorf("Get(Nom) = %q,%v, want Petit,true", v, ok)
	}
}

func TestParseLotNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"12", 12, false},
		{" 7 ", 7, false},
		{"12.0", 12, false},
		{"3.5", 3, false},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tc := range tests {
		got, err := ParseLotNumber(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseLotNumber(%q) = %d, want error", tc.in, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseLotNumber(%q) = %d,%v, want %d", tc.in, got, err, tc.want)
		}
	}
}
