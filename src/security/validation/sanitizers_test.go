package validation

import "testing"

func TestSanitizeForFormulaInjection(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"=SUM(A1:A9)", "'=SUM(A1:A9)"},
		{"+33612345678", "'+33612345678"},
		{"-100", "'-100"},
		{"@import", "'@import"},
		{"  =trailing spaces kept", "'  =trailing spaces kept"},
		{"Commode Louis XV", "Commode Louis XV"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := SanitizeForFormulaInjection(tc.in); got != tc.want {
			t.Errorf("SanitizeForFormulaInjection(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStripUnprintable(t *testing.T) {
	in := "Galerie\x00 Nord\t\n"
	want := "Galerie Nord\t\n"
	if got := StripUnprintable(in); got != want {
		t.Errorf("StripUnprintable = %q, want %q", got, want)
	}
}
