package validation

import "testing"

func TestSanitizeDescription(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text untouched", "Bolletta Enel marzo", "Bolletta Enel marzo"},
		{"html stripped", "<script>alert(1)</script>spesa", "spesa"},
		{"bold tags stripped", "<b>affitto</b>", "affitto"},
		{"formula equals neutralized", "=SUM(A1:A2)", "'=SUM(A1:A2)"},
		{"formula plus neutralized", "+39 bolletta", "'+39 bolletta"},
		{"formula at neutralized", "@pay", "'@pay"},
		{"unprintable stripped", "caffè\x00 bar", "caffè bar"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeDescription(tt.input); got != tt.want {
				t.Errorf("SanitizeDescription(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateAmount(t *testing.T) {
	if err := ValidateAmount(49.90); err != nil {
		t.Errorf("expected 49.90 to be valid, got %v", err)
	}
	for _, bad := range []float64{0, -10, 1_000_001} {
		if err := ValidateAmount(bad); err == nil {
			t.Errorf("expected %v to be rejected", bad)
		}
	}
}

func TestValidateMonthKey(t *testing.T) {
	for _, ok := range []string{"2024-01", "2024-12"} {
		if err := ValidateMonthKey(ok); err != nil {
			t.Errorf("expected %q to be valid, got %v", ok, err)
		}
	}
	for _, bad := range []string{"2024-13", "2024-1", "202401", "2024-00", "gennaio"} {
		if err := ValidateMonthKey(bad); err == nil {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}
