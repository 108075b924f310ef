package processors

import (
	"testing"
	"time"

	"github.com/username/budgetfolio/backend/src/models"
)

func TestCreditCardBookedDate(t *testing.T) {
	tests := []struct {
		name     string
		purchase time.Time
		want     time.Time
	}{
		{
			"mid month",
			time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			"first of month",
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			"december rolls into january",
			time.Date(2023, 12, 28, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CreditCardBookedDate(tc.purchase); !got.Equal(tc.want) {
				t.Errorf("CreditCardBookedDate(%v) = %v, want %v", tc.purchase, got, tc.want)
			}
		})
	}
}

func TestIsBooked(t *testing.T) {
	purchase := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	card := models.Expense{
		Description:   "Acquisto online",
		Amount:        50,
		Date:          purchase,
		PaymentMethod: models.PaymentCartaCredito,
	}
	cash := models.Expense{
		Description:   "Spesa",
		Amount:        30,
		Date:          purchase,
		PaymentMethod: models.PaymentContanti,
	}

	beforeStatement := time.Date(2024, 4, 9, 0, 0, 0, 0, time.UTC)
	onStatement := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)

	if IsBooked(card, beforeStatement) {
		t.Error("card charge should not be booked before the statement date")
	}
	if !IsBooked(card, onStatement) {
		t.Error("card charge should be booked on the statement date")
	}
	if !IsBooked(cash, beforeStatement) {
		t.Error("non-card expenses post immediately")
	}
}
