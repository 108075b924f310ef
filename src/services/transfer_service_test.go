package services

import "testing"

func TestParseBankStatementCSV(t *testing.T) {
	records := [][]string{
		{"Data", "Importo", "Descrizione"},
		{"2024-03-05", "650,00", "Bonifico budget marzo"},
		{"2024-04-05", "650.00", "Bonifico budget aprile"},
		{"2024-04-20", "-50", "Storno"},
	}

	transfers, err := ParseBankStatementCSV(records, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(transfers) != 3 {
		t.Fatalf("expected 3 transfers, got %d", len(transfers))
	}

	first := transfers[0]
	if first.FromUserID != 7 {
		t.Errorf("expected FromUserID 7, got %d", first.FromUserID)
	}
	if first.Amount != 650 {
		t.Errorf("expected comma decimal parsed as 650, got %v", first.Amount)
	}
	if first.Month != "2024-03" {
		t.Errorf("expected month 2024-03, got %q", first.Month)
	}
	if first.BankRowKey != "2024-03-05|650,00|Bonifico budget marzo" {
		t.Errorf("unexpected bank row key %q", first.BankRowKey)
	}

	if transfers[2].Amount != -50 {
		t.Errorf("expected corrective amount -50, got %v", transfers[2].Amount)
	}
}

func TestParseBankStatementCSVRejectsBadRows(t *testing.T) {
	_, err := ParseBankStatementCSV([][]string{
		{"2024-03-05", "650,00", "ok"},
		{"not-a-date", "650,00", "broken"},
	}, 1)
	if err == nil {
		t.Fatal("expected an error for a malformed date past the header row")
	}

	_, err = ParseBankStatementCSV([][]string{
		{"2024-03-05", "abc", "broken amount"},
	}, 1)
	if err == nil {
		t.Fatal("expected an error for a malformed amount")
	}
}
