package processors

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/username/budgetfolio/backend/src/models"
)

func newBudgetForecastProcessor() *BudgetForecastProcessor {
	classifier := NewExpenseClassifier(DefaultProviderRegistry())
	return NewBudgetForecastProcessor(classifier, NewBillCycleProcessor())
}

// testNow pins the forecast window to March 2024 for every scenario below.
var testNow = time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)

func testOpts() ForecastOptions {
	return ForecastOptions{
		ForecastMonths: 6,
		PastMonths:     2,
		HorizonMonths:  3,
		Now:            testNow,
	}
}

func monthByKey(t *testing.T, result *ForecastResult, key string) *models.BudgetMonthSummary {
	t.Helper()
	for i := range result.Summaries {
		if result.Summaries[i].Month == key {
			return &result.Summaries[i]
		}
	}
	t.Fatalf("month %s not in forecast window", key)
	return nil
}

func TestForecastPaidInvoiceIncome(t *testing.T) {
	p := newBudgetForecastProcessor()
	paid := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	invoices := []models.Invoice{
		{
			ID:          1,
			TotalAmount: 1000,
			DueDate:     time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
			Status:      models.InvoicePagata,
			PaidAmount:  1000,
			PaidDate:    &paid,
		},
	}

	result := p.Forecast(invoices, nil, nil, testOpts())
	if result.CurrentMonth != "2024-03" {
		t.Fatalf("CurrentMonth = %s, want 2024-03", result.CurrentMonth)
	}

	cur := monthByKey(t, result, "2024-03")
	if cur.ReceivedIncome != 1000 {
		t.Errorf("ReceivedIncome = %v, want 1000", cur.ReceivedIncome)
	}
	// 1000 sits below the first savings tier, so the full amount survives.
	if cur.SavingsRate != 0 || cur.RealSavings != 0 {
		t.Errorf("savings = %v at rate %v, want none", cur.RealSavings, cur.SavingsRate)
	}
	if cur.Balance != 1000 {
		t.Errorf("Balance = %v, want 1000", cur.Balance)
	}

	next := monthByKey(t, result, "2024-04")
	if next.RealCarryover != 1000 {
		t.Errorf("April RealCarryover = %v, want 1000", next.RealCarryover)
	}
}

func TestForecastExpectedIncomeOnlyOnForecastTrack(t *testing.T) {
	p := newBudgetForecastProcessor()
	invoices := []models.Invoice{
		{
			ID:          1,
			TotalAmount: 800,
			DueDate:     time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC),
			Status:      models.InvoiceInviata,
		},
	}

	result := p.Forecast(invoices, nil, nil, testOpts())
	april := monthByKey(t, result, "2024-04")
	if april.ExpectedIncome != 800 {
		t.Fatalf("ExpectedIncome = %v, want 800", april.ExpectedIncome)
	}
	if april.ReceivedIncome != 0 {
		t.Errorf("ReceivedIncome = %v, want 0", april.ReceivedIncome)
	}
	if april.RealBalanceAfterSavings != 0 {
		t.Errorf("real balance = %v, want 0: expected income must not touch the real track", april.RealBalanceAfterSavings)
	}
	// April is a future month, so the displayed balance follows the forecast track.
	if april.Balance != 800 {
		t.Errorf("Balance = %v, want 800", april.Balance)
	}
}

func TestForecastDraftAndExcludedInvoicesIgnored(t *testing.T) {
	p := newBudgetForecastProcessor()
	paid := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	invoices := []models.Invoice{
		{ID: 1, TotalAmount: 500, DueDate: paid, Status: models.InvoiceBozza},
		{ID: 2, TotalAmount: 700, DueDate: paid, Status: models.InvoicePagata, PaidAmount: 700, PaidDate: &paid, ExcludeFromBudget: true},
	}
	result := p.Forecast(invoices, nil, nil, testOpts())
	cur := monthByKey(t, result, "2024-03")
	if cur.ReceivedIncome != 0 || cur.ExpectedIncome != 0 {
		t.Errorf("income = %v received / %v expected, want 0/0", cur.ReceivedIncome, cur.ExpectedIncome)
	}
}

func TestForecastCreditCardBooksNextMonth(t *testing.T) {
	p := newBudgetForecastProcessor()
	expenses := []models.Expense{
		{
			Description:   "Acquisto online",
			Amount:        50,
			Date:          time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			PaymentMethod: models.PaymentCartaCredito,
		},
	}

	result := p.Forecast(nil, expenses, nil, testOpts())
	march := monthByKey(t, result, "2024-03")
	april := monthByKey(t, result, "2024-04")
	if march.CreditCardExpenses != 0 {
		t.Errorf("March card expenses = %v, want 0", march.CreditCardExpenses)
	}
	if april.CreditCardExpenses != 50 {
		t.Errorf("April card expenses = %v, want 50", april.CreditCardExpenses)
	}
}

func TestForecastOverspendRedistribution(t *testing.T) {
	p := newBudgetForecastProcessor()
	aprilPaid := time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)
	mayPaid := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)
	invoices := []models.Invoice{
		{ID: 1, TotalAmount: 1000, DueDate: aprilPaid, Status: models.InvoicePagata, PaidAmount: 1000, PaidDate: &aprilPaid},
		{ID: 2, TotalAmount: 2000, DueDate: mayPaid, Status: models.InvoicePagata, PaidAmount: 2000, PaidDate: &mayPaid},
	}
	expenses := []models.Expense{
		{
			Description:   "Spesa straordinaria",
			Amount:        300,
			Date:          time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			PaymentMethod: models.PaymentContanti,
		},
	}

	result := p.Forecast(invoices, expenses, nil, testOpts())

	// The 300 deficit splits over April/May/June weighted by received income
	// (1000:2000:0), with the last month absorbing the rounding remainder.
	wantShares := map[string]float64{"2024-04": 100, "2024-05": 200, "2024-06": 0}
	total := 0.0
	for key, want := range wantShares {
		got := monthByKey(t, result, key).OverspendAllocated
		if got != want {
			t.Errorf("%s OverspendAllocated = %v, want %v", key, got, want)
		}
		total += got
	}
	if total != 300 {
		t.Errorf("allocated total = %v, want exactly 300", total)
	}
	if cur := monthByKey(t, result, "2024-03"); cur.OverspendAllocated != 0 {
		t.Errorf("overspending month kept an allocation: %v", cur.OverspendAllocated)
	}
}

func TestForecastOverspendEqualSplitWithoutIncome(t *testing.T) {
	p := newBudgetForecastProcessor()
	expenses := []models.Expense{
		{
			Description:   "Spesa",
			Amount:        90,
			Date:          time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			PaymentMethod: models.PaymentContanti,
		},
	}

	result := p.Forecast(nil, expenses, nil, testOpts())
	total := 0.0
	for _, key := range []string{"2024-04", "2024-05", "2024-06"} {
		got := monthByKey(t, result, key).OverspendAllocated
		if got != 30 {
			t.Errorf("%s OverspendAllocated = %v, want 30", key, got)
		}
		total += got
	}
	if total != 90 {
		t.Errorf("allocated total = %v, want exactly 90", total)
	}
}

func TestForecastCarryoverNeverNegative(t *testing.T) {
	p := newBudgetForecastProcessor()
	expenses := []models.Expense{
		{Description: "Spesa 1", Amount: 400, Date: time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), PaymentMethod: models.PaymentContanti},
		{Description: "Spesa 2", Amount: 250, Date: time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC), PaymentMethod: models.PaymentContanti},
		{Description: "Spesa 3", Amount: 600, Date: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), PaymentMethod: models.PaymentContanti},
	}

	result := p.Forecast(nil, expenses, nil, testOpts())
	for _, m := range result.Summaries {
		if m.RealCarryover < 0 || m.ForecastCarryover < 0 || m.Carryover < 0 {
			t.Errorf("%s carryover went negative: real=%v forecast=%v displayed=%v",
				m.Month, m.RealCarryover, m.ForecastCarryover, m.Carryover)
		}
	}
}

func TestForecastRecurringFixedReplication(t *testing.T) {
	p := newBudgetForecastProcessor()
	expenses := []models.Expense{
		{
			Description:   "Abbonamento palestra",
			Amount:        30,
			Date:          time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			PaymentMethod: models.PaymentBancomat,
			Recurring:     true,
		},
	}

	result := p.Forecast(nil, expenses, nil, testOpts())
	for _, m := range result.Summaries {
		want := 30.0
		if m.IsPastMonth {
			want = 0
		}
		if m.FixedExpenses != want {
			t.Errorf("%s FixedExpenses = %v, want %v", m.Month, m.FixedExpenses, want)
		}
	}
}

func TestForecastActualBillSuppressesProjection(t *testing.T) {
	p := newBudgetForecastProcessor()
	periodStart := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 0, 60)
	expenses := []models.Expense{
		{Description: "Bolletta luce", BillType: "luce", BillProvider: "Enel", Amount: 100,
			Date: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), IsPaid: true},
		{Description: "Bolletta luce", BillType: "luce", BillProvider: "Enel", Amount: 120,
			Date:            time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			BillPeriodStart: datePtr(periodStart), BillPeriodEnd: datePtr(periodEnd), IsPaid: true},
		// An actual bill already recorded where the cycle projects one.
		{Description: "Bolletta luce maggio", BillType: "luce", BillProvider: "Enel", Amount: 130,
			Date: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)},
	}

	result := p.Forecast(nil, expenses, nil, testOpts())

	may := monthByKey(t, result, "2024-05")
	if may.BillExpenses != 130 {
		t.Errorf("May BillExpenses = %v, want only the actual 130", may.BillExpenses)
	}
	for _, d := range may.BillDetails {
		if d.Forecast {
			t.Errorf("May still carries a projected bill: %+v", d)
		}
	}

	july := monthByKey(t, result, "2024-07")
	if july.BillExpenses != 110 {
		t.Errorf("July BillExpenses = %v, want projected 110", july.BillExpenses)
	}
	if len(july.BillDetails) != 1 || !july.BillDetails[0].Forecast {
		t.Errorf("July BillDetails = %+v, want one projected entry", july.BillDetails)
	}
	if result.TotalBillEstimate != 55 {
		t.Errorf("TotalBillEstimate = %v, want 55", result.TotalBillEstimate)
	}
}

func TestForecastSecondaryProfile(t *testing.T) {
	p := newBudgetForecastProcessor()
	opts := testOpts()
	opts.IsSecondary = true
	opts.ProfileTag = "anna"

	transfers := []models.BudgetTransfer{
		{ID: 1, FromUserID: 1, ToUserID: 2, Amount: 2500, Month: "2024-03"},
	}
	expenses := []models.Expense{
		{Description: "Spesa Anna", Amount: 100, Date: time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
			PaymentMethod: models.PaymentContanti, PaidBy: "anna"},
		{Description: "Spesa principale", Amount: 999, Date: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
			PaymentMethod: models.PaymentContanti},
	}

	result := p.Forecast(nil, expenses, transfers, opts)
	cur := monthByKey(t, result, "2024-03")
	if cur.ReceivedIncome != 2500 {
		t.Errorf("ReceivedIncome = %v, want transfer amount 2500", cur.ReceivedIncome)
	}
	if cur.VariableExpenses != 100 {
		t.Errorf("VariableExpenses = %v, want 100: untagged expenses belong to the primary", cur.VariableExpenses)
	}
	// Secondary profiles never save, even above the tier thresholds.
	if cur.RealSavings != 0 || cur.SavingsRate != 0 {
		t.Errorf("secondary profile saved %v at rate %v", cur.RealSavings, cur.SavingsRate)
	}
	if cur.Balance != 2400 {
		t.Errorf("Balance = %v, want 2400", cur.Balance)
	}
}

func TestForecastSavingsTiers(t *testing.T) {
	tiers := []struct {
		balance float64
		want    float64
	}{
		{1999.99, 0},
		{2000, 0.10},
		{2999.99, 0.10},
		{3000, 0.15},
		{3999.99, 0.15},
		{4000, 0.20},
		{10000, 0.20},
	}
	for _, tc := range tiers {
		if got := savingsRateFor(tc.balance); got != tc.want {
			t.Errorf("savingsRateFor(%v) = %v, want %v", tc.balance, got, tc.want)
		}
	}

	p := newBudgetForecastProcessor()
	paid := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	invoices := []models.Invoice{
		{ID: 1, TotalAmount: 3500, DueDate: paid, Status: models.InvoicePagata, PaidAmount: 3500, PaidDate: &paid},
	}
	result := p.Forecast(invoices, nil, nil, testOpts())
	cur := monthByKey(t, result, "2024-03")
	if cur.SavingsRate != 0.15 {
		t.Errorf("SavingsRate = %v, want 0.15", cur.SavingsRate)
	}
	if cur.RealSavings != 525 {
		t.Errorf("RealSavings = %v, want 525", cur.RealSavings)
	}
	if cur.Balance != 2975 {
		t.Errorf("Balance = %v, want 2975", cur.Balance)
	}
}

func TestForecastCurrentAlreadySpent(t *testing.T) {
	p := newBudgetForecastProcessor()
	paid := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	invoices := []models.Invoice{
		{ID: 1, TotalAmount: 1000, DueDate: paid, Status: models.InvoicePagata, PaidAmount: 1000, PaidDate: &paid},
	}
	opts := testOpts()
	opts.CurrentAlreadySpent = 400

	result := p.Forecast(invoices, nil, nil, opts)
	cur := monthByKey(t, result, "2024-03")
	if cur.Balance != 600 {
		t.Errorf("Balance = %v, want 600", cur.Balance)
	}
	// The adjustment applies only to the current month.
	next := monthByKey(t, result, "2024-04")
	if next.RealCarryover != 600 {
		t.Errorf("April RealCarryover = %v, want 600", next.RealCarryover)
	}
}

func TestForecastIdempotent(t *testing.T) {
	p := newBudgetForecastProcessor()
	paid := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	invoices := []models.Invoice{
		{ID: 1, TotalAmount: 1500, DueDate: paid, Status: models.InvoicePagata, PaidAmount: 1500, PaidDate: &paid},
		{ID: 2, TotalAmount: 800, DueDate: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), Status: models.InvoiceInviata},
	}
	expenses := []models.Expense{
		{Description: "Mutuo casa", Amount: 650, Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), PaymentMethod: models.PaymentBonifico},
		{Description: "Acquisto online", Amount: 120, Date: time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), PaymentMethod: models.PaymentCartaCredito},
		{Description: "Bolletta gas", BillType: "gas", BillProvider: "Eni", Amount: 95, Date: time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC), IsPaid: true},
	}

	first := p.Forecast(invoices, expenses, nil, testOpts())
	second := p.Forecast(invoices, expenses, nil, testOpts())
	if !reflect.DeepEqual(first, second) {
		t.Error("two runs over identical input diverged")
	}
}

func TestForecastNaNPropagates(t *testing.T) {
	p := newBudgetForecastProcessor()
	expenses := []models.Expense{
		{Description: "Riga corrotta", Amount: math.NaN(), Date: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), PaymentMethod: models.PaymentContanti},
	}
	result := p.Forecast(nil, expenses, nil, testOpts())
	cur := monthByKey(t, result, "2024-03")
	if !math.IsNaN(cur.TotalExpenses) {
		t.Errorf("TotalExpenses = %v, want NaN to propagate untouched", cur.TotalExpenses)
	}
}
