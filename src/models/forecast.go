package models

import "time"

// BillDetail is one bill line inside a month summary. Forecast entries come
// from the provider bill-cycle estimator, actual entries from stored bills.
type BillDetail struct {
	BillType string  `json:"bill_type"`
	Provider string  `json:"provider"`
	Amount   float64 `json:"amount"`
	DueDate  string  `json:"due_date,omitempty"`
	Forecast bool    `json:"forecast"`
}

// BudgetMonthSummary is the per-month output of the budget forecast engine.
// It carries two parallel balance tracks: the real track counts only income
// actually received, the forecast track adds still-expected income. Each
// track has its own carryover chain, floored at zero month over month.
type BudgetMonthSummary struct {
	Month      string    `json:"month"` // yyyy-MM
	MonthStart time.Time `json:"month_start"`

	ReceivedIncome float64 `json:"received_income"`
	ExpectedIncome float64 `json:"expected_income"`

	FixedExpenses      float64      `json:"fixed_expenses"`
	VariableExpenses   float64      `json:"variable_expenses"`
	CreditCardExpenses float64      `json:"credit_card_expenses"`
	BillExpenses       float64      `json:"bill_expenses"`
	BillDetails        []BillDetail `json:"bill_details,omitempty"`
	TotalExpenses      float64      `json:"total_expenses"`

	// OverspendAllocated is the share of earlier months' deficits assigned
	// to this month by the redistribution pre-pass.
	OverspendAllocated float64 `json:"overspend_allocated"`

	RealCarryover            float64 `json:"real_carryover"` // carried into this month
	RealBalanceBeforeSavings float64 `json:"real_balance_before_savings"`
	RealSavings              float64 `json:"real_savings"`
	RealBalanceAfterSavings  float64 `json:"real_balance_after_savings"`
	ForecastCarryover        float64 `json:"forecast_carryover"`
	ForecastBalanceBefore    float64 `json:"forecast_balance_before_savings"`
	ForecastSavings          float64 `json:"forecast_savings"`
	ForecastBalanceAfter     float64 `json:"forecast_balance_after_savings"`
	SavingsRate              float64 `json:"savings_rate"`

	// Displayed track: real for past and current months, forecast for
	// strictly future months. Carryover is never negative.
	Carryover      float64 `json:"carryover"`
	Balance        float64 `json:"balance"`
	IsPastMonth    bool    `json:"is_past_month"`
	IsCurrentMonth bool    `json:"is_current_month"`
}

// ProviderForecast is the projected billing cycle for one (billType, provider)
// pair, derived from its paid-bill history.
type ProviderForecast struct {
	BillType               string      `json:"bill_type"`
	Provider               string      `json:"provider"`
	AvgAmount              float64     `json:"avg_amount"`
	BillingFrequencyMonths int         `json:"billing_frequency_months"`
	LastBillDate           time.Time   `json:"last_bill_date"`
	NextBillDates          []time.Time `json:"next_bill_dates"`
}

// AccumulatedBudget is the output of the carryover calculator used on
// secondary/family-member dashboards. Unlike the forecast engine's carryover
// chain, this carryover may go negative and negative history is surfaced.
type AccumulatedBudget struct {
	Remaining          float64 `json:"remaining"`
	Carryover          float64 `json:"carryover"`
	HasNegativeHistory bool    `json:"has_negative_history"`
}

// WorkPlanMonth is one month of the freelance work-day plan.
type WorkPlanMonth struct {
	Month               string  `json:"month"`
	Income              float64 `json:"income"`
	FixedExpenses       float64 `json:"fixed_expenses"`
	VariableExpenses    float64 `json:"variable_expenses"`
	BillExpenses        float64 `json:"bill_expenses"`
	PensionContribution float64 `json:"pension_contribution"`
	ExtraExpenses       float64 `json:"extra_expenses"`
	TotalExpenses       float64 `json:"total_expenses"`
	RequiredWorkDays    int     `json:"required_work_days"`
	DeficitRecoveryDays int     `json:"deficit_recovery_days"`
	CumulativeBalance   float64 `json:"cumulative_balance"`
	Status              string  `json:"status"` // deficit | ok | surplus
}

// WorkPlanSummary aggregates the plan across the forecast window.
type WorkPlanSummary struct {
	AverageWorkDays    float64 `json:"average_work_days"`
	TotalDeficitMonths int     `json:"total_deficit_months"`
	TotalSurplusMonths int     `json:"total_surplus_months"`
	AnnualSurplus      float64 `json:"annual_surplus"`
	AnnualDeficit      float64 `json:"annual_deficit"`
	FinalBalance       float64 `json:"final_balance"`
	RecommendedBuffer  float64 `json:"recommended_buffer"`
}

// PensionGoal reports the annuity calculation for the pension savings target.
type PensionGoal struct {
	TargetAmount        float64 `json:"target_amount"`
	Years               int     `json:"years"`
	AnnualReturn        float64 `json:"annual_return"`
	RequiredMonthly     float64 `json:"required_monthly"`
	CurrentContribution float64 `json:"current_contribution"`
	MonthlyGap          float64 `json:"monthly_gap"`
	ExtraWorkDays       int     `json:"extra_work_days"`
}
