package processors

import (
	"math"
	"testing"
	"time"

	"github.com/username/budgetfolio/backend/src/models"
)

func newWorkPlanProcessor() *WorkPlanProcessor {
	return NewWorkPlanProcessor(NewExpenseClassifier(DefaultProviderRegistry()))
}

func TestPlanManualEstimates(t *testing.T) {
	p := newWorkPlanProcessor()
	opts := WorkPlanOptions{
		ForecastMonths: 3,
		Now:            time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
		Settings: models.FinancialSettings{
			DailyRate:               300,
			UseManualEstimates:      true,
			ManualFixedEstimate:     1000,
			ManualVariableEstimate:  500,
			ManualBillEstimate:      200,
			PensionContribution:     100,
			UseCustomInitialBalance: true,
			InitialBalance:          2000,
		},
	}

	result := p.Plan(nil, nil, opts)
	if len(result.Months) != 3 {
		t.Fatalf("Plan() returned %d months, want 3", len(result.Months))
	}

	wantBalances := []float64{200, -1600, -3400}
	wantStatus := []string{"ok", "deficit", "deficit"}
	wantRecovery := []int{0, 0, 6}
	for i, m := range result.Months {
		if m.TotalExpenses != 1800 {
			t.Errorf("month %d TotalExpenses = %v, want 1800", i, m.TotalExpenses)
		}
		if m.RequiredWorkDays != 6 {
			t.Errorf("month %d RequiredWorkDays = %d, want 6", i, m.RequiredWorkDays)
		}
		if m.DeficitRecoveryDays != wantRecovery[i] {
			t.Errorf("month %d DeficitRecoveryDays = %d, want %d", i, m.DeficitRecoveryDays, wantRecovery[i])
		}
		if m.CumulativeBalance != wantBalances[i] {
			t.Errorf("month %d CumulativeBalance = %v, want %v", i, m.CumulativeBalance, wantBalances[i])
		}
		if m.Status != wantStatus[i] {
			t.Errorf("month %d Status = %q, want %q", i, m.Status, wantStatus[i])
		}
	}

	s := result.Summary
	if s.AverageWorkDays != 8.0 {
		t.Errorf("AverageWorkDays = %v, want 8.0", s.AverageWorkDays)
	}
	if s.TotalDeficitMonths != 2 || s.TotalSurplusMonths != 0 {
		t.Errorf("deficit/surplus months = %d/%d, want 2/0", s.TotalDeficitMonths, s.TotalSurplusMonths)
	}
	if s.AnnualDeficit != 5400 || s.AnnualSurplus != 0 {
		t.Errorf("annual deficit/surplus = %v/%v, want 5400/0", s.AnnualDeficit, s.AnnualSurplus)
	}
	if s.FinalBalance != -3400 {
		t.Errorf("FinalBalance = %v, want -3400", s.FinalBalance)
	}
	if s.RecommendedBuffer != 5400 {
		t.Errorf("RecommendedBuffer = %v, want 5400 (three months of expenses)", s.RecommendedBuffer)
	}
}

func TestPlanTrailingBalanceAndAverages(t *testing.T) {
	p := newWorkPlanProcessor()
	paid := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	invoices := []models.Invoice{
		{ID: 1, TotalAmount: 1000, DueDate: paid, Status: models.InvoicePagata, PaidAmount: 1000, PaidDate: &paid},
	}
	expenses := []models.Expense{
		{Description: "Spesa febbraio", Amount: 300, Date: time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), PaymentMethod: models.PaymentContanti},
	}
	opts := WorkPlanOptions{
		ForecastMonths: 2,
		Now:            time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
		Settings:       models.FinancialSettings{DailyRate: 300},
	}

	result := p.Plan(invoices, expenses, opts)

	// Starting balance comes from the trailing window: 1000 paid minus 300 spent.
	march := result.Months[0]
	if march.TotalExpenses != 0 {
		t.Errorf("March TotalExpenses = %v, want 0 (current month uses actuals)", march.TotalExpenses)
	}
	if march.CumulativeBalance != 700 {
		t.Errorf("March CumulativeBalance = %v, want 700", march.CumulativeBalance)
	}

	// Future months fall back to the trailing three-month average.
	april := result.Months[1]
	if april.VariableExpenses != 100 {
		t.Errorf("April VariableExpenses = %v, want 100 (300 over a 3-month window)", april.VariableExpenses)
	}
	if april.CumulativeBalance != 600 {
		t.Errorf("April CumulativeBalance = %v, want 600", april.CumulativeBalance)
	}
}

func TestPlanDraftIncomeOptIn(t *testing.T) {
	p := newWorkPlanProcessor()
	invoices := []models.Invoice{
		{ID: 1, TotalAmount: 500, DueDate: time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC), Status: models.InvoiceBozza},
	}
	opts := WorkPlanOptions{
		ForecastMonths: 2,
		Now:            time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
		Settings:       models.FinancialSettings{DailyRate: 300},
	}

	without := p.Plan(invoices, nil, opts)
	if got := without.Months[1].Income; got != 0 {
		t.Errorf("draft counted without opt-in: Income = %v", got)
	}

	opts.Settings.IncludeDrafts = true
	with := p.Plan(invoices, nil, opts)
	if got := with.Months[1].Income; got != 500 {
		t.Errorf("Income = %v, want 500 with drafts included", got)
	}
}

func TestPlanExpectedExpensesAndFamilyTransfer(t *testing.T) {
	p := newWorkPlanProcessor()
	opts := WorkPlanOptions{
		ForecastMonths: 2,
		Now:            time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
		Settings: models.FinancialSettings{
			DailyRate:          300,
			UseManualEstimates: true,
		},
		ExpectedExpenses: []ExpectedExpense{
			{Month: "2024-04", Description: "Bollo auto", Amount: 250},
		},
		FamilyTransferMonthly: 400,
	}

	result := p.Plan(nil, nil, opts)
	march, april := result.Months[0], result.Months[1]
	if march.ExtraExpenses != 400 {
		t.Errorf("March ExtraExpenses = %v, want 400", march.ExtraExpenses)
	}
	if april.ExtraExpenses != 650 {
		t.Errorf("April ExtraExpenses = %v, want 650 (transfer plus one-off)", april.ExtraExpenses)
	}
}

func TestPensionGoalZeroReturn(t *testing.T) {
	p := newWorkPlanProcessor()
	opts := WorkPlanOptions{
		ForecastMonths: 1,
		Now:            time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
		Settings: models.FinancialSettings{
			DailyRate:           300,
			UseManualEstimates:  true,
			PensionTarget:       100000,
			PensionYears:        10,
			PensionContribution: 100,
		},
	}

	goal := p.Plan(nil, nil, opts).PensionGoal
	if goal == nil {
		t.Fatal("PensionGoal = nil, want a goal")
	}
	if goal.RequiredMonthly != 833.33 {
		t.Errorf("RequiredMonthly = %v, want 833.33 (target/months at zero return)", goal.RequiredMonthly)
	}
	if goal.MonthlyGap != 733.33 {
		t.Errorf("MonthlyGap = %v, want 733.33", goal.MonthlyGap)
	}
	if goal.ExtraWorkDays != 3 {
		t.Errorf("ExtraWorkDays = %d, want 3", goal.ExtraWorkDays)
	}
}

func TestPensionGoalAnnuity(t *testing.T) {
	p := newWorkPlanProcessor()
	opts := WorkPlanOptions{
		ForecastMonths: 1,
		Now:            time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
		Settings: models.FinancialSettings{
			UseManualEstimates:    true,
			PensionTarget:         120000,
			PensionYears:          20,
			PensionExpectedReturn: 0.06,
		},
	}

	goal := p.Plan(nil, nil, opts).PensionGoal
	if goal == nil {
		t.Fatal("PensionGoal = nil, want a goal")
	}
	if math.Abs(goal.RequiredMonthly-259.72) > 0.05 {
		t.Errorf("RequiredMonthly = %v, want ~259.72", goal.RequiredMonthly)
	}
}

func TestPlanWithoutPensionTarget(t *testing.T) {
	p := newWorkPlanProcessor()
	opts := WorkPlanOptions{
		ForecastMonths: 1,
		Now:            time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
		Settings:       models.FinancialSettings{UseManualEstimates: true},
	}
	if goal := p.Plan(nil, nil, opts).PensionGoal; goal != nil {
		t.Errorf("PensionGoal = %+v, want nil without a target", goal)
	}
}
