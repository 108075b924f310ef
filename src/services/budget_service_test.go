package services

import (
	"testing"
	"time"

	"github.com/username/budgetfolio/backend/src/models"
)

func TestAverageOutgoingTransfer(t *testing.T) {
	now := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	transfers := []models.BudgetTransfer{
		{FromUserID: 7, ToUserID: 9, Amount: 600, Month: "2024-04"},
		{FromUserID: 7, ToUserID: 9, Amount: 650, Month: "2024-03"},
		{FromUserID: 7, ToUserID: 9, Amount: 550, Month: "2024-02"},
		// Outside the trailing three-month window.
		{FromUserID: 7, ToUserID: 9, Amount: 999, Month: "2024-01"},
		{FromUserID: 7, ToUserID: 9, Amount: 999, Month: "2024-05"},
		// Incoming, not outgoing.
		{FromUserID: 9, ToUserID: 7, Amount: 400, Month: "2024-04"},
		// Unparseable month key is skipped.
		{FromUserID: 7, ToUserID: 9, Amount: 100, Month: "april"},
	}

	got := averageOutgoingTransfer(transfers, 7, now)
	want := (600.0 + 650.0 + 550.0) / 3
	if got != want {
		t.Errorf("expected average %v, got %v", want, got)
	}
}

func TestAverageOutgoingTransferNoHistory(t *testing.T) {
	got := averageOutgoingTransfer(nil, 7, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	if got != 0 {
		t.Errorf("expected 0 with no transfers, got %v", got)
	}
}
