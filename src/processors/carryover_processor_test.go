package processors

import (
	"testing"

	"github.com/username/budgetfolio/backend/src/models"
)

func TestAccumulateSurfacesNegativeHistory(t *testing.T) {
	p := NewCarryoverProcessor()
	transfers := []models.BudgetTransfer{
		{ID: 1, FromUserID: 1, ToUserID: 2, Amount: 1000, Month: "2024-01"},
	}
	spent := map[string]float64{"2024-01": 1200}

	got := p.Accumulate("2024-02", 2, TransferIncoming, transfers, spent)
	if got.Carryover != -200 {
		t.Errorf("Carryover = %v, want -200: debt is carried, not floored", got.Carryover)
	}
	if got.Remaining != -200 {
		t.Errorf("Remaining = %v, want -200", got.Remaining)
	}
	if !got.HasNegativeHistory {
		t.Error("HasNegativeHistory = false, want true")
	}
}

func TestAccumulateSplitsCarryoverFromTargetMonth(t *testing.T) {
	p := NewCarryoverProcessor()
	transfers := []models.BudgetTransfer{
		{ID: 1, FromUserID: 1, ToUserID: 2, Amount: 500, Month: "2024-01"},
		{ID: 2, FromUserID: 1, ToUserID: 2, Amount: 300, Month: "2024-02"},
		// A later month must not leak into the walk.
		{ID: 3, FromUserID: 1, ToUserID: 2, Amount: 900, Month: "2024-03"},
	}
	spent := map[string]float64{"2024-01": 200, "2024-02": 100}

	got := p.Accumulate("2024-02", 2, TransferIncoming, transfers, spent)
	if got.Carryover != 300 {
		t.Errorf("Carryover = %v, want 300 (balance entering the target month)", got.Carryover)
	}
	if got.Remaining != 500 {
		t.Errorf("Remaining = %v, want 500 (carryover plus the target month's movement)", got.Remaining)
	}
	if got.HasNegativeHistory {
		t.Error("HasNegativeHistory = true, want false")
	}
}

func TestAccumulateDirectionFilter(t *testing.T) {
	p := NewCarryoverProcessor()
	transfers := []models.BudgetTransfer{
		{ID: 1, FromUserID: 1, ToUserID: 2, Amount: 400, Month: "2024-01"},
		{ID: 2, FromUserID: 2, ToUserID: 3, Amount: 150, Month: "2024-01"},
	}

	incoming := p.Accumulate("2024-01", 2, TransferIncoming, transfers, nil)
	if incoming.Remaining != 400 {
		t.Errorf("incoming Remaining = %v, want 400", incoming.Remaining)
	}

	outgoing := p.Accumulate("2024-01", 2, TransferOutgoing, transfers, nil)
	if outgoing.Remaining != 150 {
		t.Errorf("outgoing Remaining = %v, want 150", outgoing.Remaining)
	}
}

func TestAccumulateEmptyInput(t *testing.T) {
	p := NewCarryoverProcessor()
	got := p.Accumulate("2024-06", 2, TransferIncoming, nil, nil)
	if got.Remaining != 0 || got.Carryover != 0 || got.HasNegativeHistory {
		t.Errorf("Accumulate(empty) = %+v, want zero value", got)
	}
}
