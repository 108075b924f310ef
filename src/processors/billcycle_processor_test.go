package processors

import (
	"testing"
	"time"

	"github.com/username/budgetfolio/backend/src/models"
)

func datePtr(t time.Time) *time.Time { return &t }

func TestBillingFrequencyBreakpoints(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		days int
		want int
	}{
		{30, 1},
		{35, 1},
		{60, 2},
		{90, 3},
		{180, 6},
		{365, 12},
	}
	for _, tc := range tests {
		end := start.AddDate(0, 0, tc.days)
		if got := billingFrequencyMonths(&start, &end); got != tc.want {
			t.Errorf("billingFrequencyMonths(%d days) = %d, want %d", tc.days, got, tc.want)
		}
	}
	if got := billingFrequencyMonths(nil, nil); got != defaultFrequencyMonths {
		t.Errorf("billingFrequencyMonths(no period) = %d, want %d", got, defaultFrequencyMonths)
	}
}

func TestEstimateProjectsBillCycle(t *testing.T) {
	p := NewBillCycleProcessor()
	now := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)

	periodStart := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 0, 60)
	expenses := []models.Expense{
		{
			Description:  "Bolletta luce gennaio",
			BillType:     "luce",
			BillProvider: "Enel",
			Amount:       100,
			Date:         time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			IsPaid:       true,
		},
		{
			Description:     "Bolletta luce marzo",
			BillType:        "luce",
			BillProvider:    "Enel",
			Amount:          120,
			Date:            time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			BillPeriodStart: datePtr(periodStart),
			BillPeriodEnd:   datePtr(periodEnd),
			IsPaid:          true,
		},
		{
			// Unpaid bills contribute no history.
			Description:  "Bolletta luce maggio",
			BillType:     "luce",
			BillProvider: "Enel",
			Amount:       500,
			Date:         time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC),
		},
	}

	forecasts := p.Estimate(expenses, now, 6)
	if len(forecasts) != 1 {
		t.Fatalf("Estimate() returned %d forecasts, want 1", len(forecasts))
	}
	f := forecasts[0]
	if f.Provider != "Enel" || f.BillType != "luce" {
		t.Fatalf("unexpected group: %q/%q", f.BillType, f.Provider)
	}
	if f.AvgAmount != 110 {
		t.Errorf("AvgAmount = %v, want 110", f.AvgAmount)
	}
	if f.BillingFrequencyMonths != 2 {
		t.Errorf("BillingFrequencyMonths = %d, want 2", f.BillingFrequencyMonths)
	}

	wantDates := []time.Time{
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	if len(f.NextBillDates) != len(wantDates) {
		t.Fatalf("NextBillDates = %v, want %v", f.NextBillDates, wantDates)
	}
	for i, d := range wantDates {
		if !f.NextBillDates[i].Equal(d) {
			t.Errorf("NextBillDates[%d] = %v, want %v", i, f.NextBillDates[i], d)
		}
	}

	if got := p.TotalMonthlyEstimate(forecasts); got != 55 {
		t.Errorf("TotalMonthlyEstimate = %v, want 55 (110/2)", got)
	}
}

func TestEstimateDefaultsWithoutPeriodDates(t *testing.T) {
	p := NewBillCycleProcessor()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	expenses := []models.Expense{
		{
			Description:  "Bolletta acqua",
			BillType:     "acqua",
			BillProvider: "SMAT",
			Amount:       45,
			Date:         time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
			IsPaid:       true,
		},
	}
	forecasts := p.Estimate(expenses, now, 4)
	if len(forecasts) != 1 {
		t.Fatalf("Estimate() returned %d forecasts, want 1", len(forecasts))
	}
	if forecasts[0].BillingFrequencyMonths != defaultFrequencyMonths {
		t.Errorf("BillingFrequencyMonths = %d, want default %d",
			forecasts[0].BillingFrequencyMonths, defaultFrequencyMonths)
	}
}
