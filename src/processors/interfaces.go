package processors

import (
	"time"

	"github.com/username/budgetfolio/backend/src/models"
)

// Classifier defines the interface for expense classification.
type Classifier interface {
	Classify(e models.Expense) models.ExpenseClass
	IsFamilyTransfer(e models.Expense) bool
}

// BillCycleEstimator defines the interface for provider billing-cycle
// projection.
type BillCycleEstimator interface {
	Estimate(expenses []models.Expense, now time.Time, forecastMonths int) []models.ProviderForecast
	TotalMonthlyEstimate(forecasts []models.ProviderForecast) float64
}

// BudgetForecaster defines the interface for the monthly bucketing and
// balance engine.
type BudgetForecaster interface {
	Forecast(invoices []models.Invoice, expenses []models.Expense, transfers []models.BudgetTransfer, opts ForecastOptions) *ForecastResult
}

// CarryoverCalculator defines the interface for the accumulated-budget walk.
type CarryoverCalculator interface {
	Accumulate(targetMonth string, userID int64, direction TransferDirection, transfers []models.BudgetTransfer, spentByMonth map[string]float64) models.AccumulatedBudget
}

// WorkPlanner defines the interface for the work-plan/pension projection.
type WorkPlanner interface {
	Plan(invoices []models.Invoice, expenses []models.Expense, opts WorkPlanOptions) *WorkPlanResult
}

var (
	_ Classifier          = (*ExpenseClassifier)(nil)
	_ BillCycleEstimator  = (*BillCycleProcessor)(nil)
	_ BudgetForecaster    = (*BudgetForecastProcessor)(nil)
	_ CarryoverCalculator = (*CarryoverProcessor)(nil)
	_ WorkPlanner         = (*WorkPlanProcessor)(nil)
)
