package processors

import (
	"math"
	"time"

	"github.com/username/budgetfolio/backend/src/models"
	"github.com/username/budgetfolio/backend/src/utils"
)

const (
	// Status thresholds on the cumulative balance.
	deficitThreshold = -100.0
	surplusThreshold = 500.0

	// Months of history averaged for future-month expense estimates and for
	// the trailing starting-balance computation.
	trailingWindowMonths = 3
)

// ExpectedExpense is a one-off modeled expense added to a specific plan month.
type ExpectedExpense struct {
	Month       string  `json:"month"` // yyyy-MM
	Description string  `json:"description,omitempty"`
	Amount      float64 `json:"amount"`
}

// WorkPlanOptions configures a work-plan run.
type WorkPlanOptions struct {
	ForecastMonths        int
	Now                   time.Time
	Settings              models.FinancialSettings
	ExpectedExpenses      []ExpectedExpense
	FamilyTransferMonthly float64
}

// WorkPlanResult is the full output of a work-plan run.
type WorkPlanResult struct {
	Months      []models.WorkPlanMonth `json:"months"`
	Summary     models.WorkPlanSummary `json:"summary"`
	PensionGoal *models.PensionGoal    `json:"pension_goal,omitempty"`
}

// monthTotals accumulates per-month expense totals split by class.
type monthTotals struct {
	fixed    float64
	variable float64
	bills    float64
}

// WorkPlanProcessor computes how many freelance work-days are needed per
// month to cover projected expenses, and the pension-goal annuity.
// Pure and I/O-free, like the forecast engine.
type WorkPlanProcessor struct {
	classifier Classifier
}

func NewWorkPlanProcessor(classifier Classifier) *WorkPlanProcessor {
	return &WorkPlanProcessor{classifier: classifier}
}

// Plan projects the work-day requirement over the forecast window.
func (p *WorkPlanProcessor) Plan(invoices []models.Invoice, expenses []models.Expense, opts WorkPlanOptions) *WorkPlanResult {
	if opts.ForecastMonths <= 0 {
		opts.ForecastMonths = 12
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	settings := opts.Settings
	currentStart := utils.StartOfMonth(now)
	currentKey := utils.MonthKey(currentStart)

	totalsByMonth := p.expenseTotalsByMonth(expenses)
	avg := trailingAverages(totalsByMonth, currentStart)
	balance := p.initialBalance(invoices, totalsByMonth, currentStart, settings)

	extraByMonth := make(map[string]float64)
	for _, x := range opts.ExpectedExpenses {
		extraByMonth[x.Month] += x.Amount
	}

	months := make([]models.WorkPlanMonth, 0, opts.ForecastMonths)
	var summary models.WorkPlanSummary
	var totalDays, totalExpensesSum float64

	for i := 0; i < opts.ForecastMonths; i++ {
		start := utils.AddMonths(currentStart, i)
		key := utils.MonthKey(start)
		m := models.WorkPlanMonth{Month: key}

		m.Income = p.incomeForMonth(invoices, key, settings.IncludeDrafts)

		switch {
		case settings.UseManualEstimates:
			m.FixedExpenses = settings.ManualFixedEstimate
			m.VariableExpenses = settings.ManualVariableEstimate
			m.BillExpenses = settings.ManualBillEstimate
		case key == currentKey:
			actual := totalsByMonth[key]
			m.FixedExpenses = actual.fixed
			m.VariableExpenses = actual.variable
			m.BillExpenses = actual.bills
		default:
			m.FixedExpenses = avg.fixed
			m.VariableExpenses = avg.variable
			m.BillExpenses = avg.bills
		}

		m.PensionContribution = settings.PensionContribution
		m.ExtraExpenses = extraByMonth[key] + opts.FamilyTransferMonthly
		m.TotalExpenses = m.FixedExpenses + m.VariableExpenses + m.BillExpenses +
			m.PensionContribution + m.ExtraExpenses

		if settings.DailyRate > 0 {
			m.RequiredWorkDays = int(math.Ceil(m.TotalExpenses / settings.DailyRate))
			if balance < 0 {
				m.DeficitRecoveryDays = int(math.Ceil(-balance / settings.DailyRate))
			}
		}

		net := m.Income - m.TotalExpenses
		balance += net
		m.CumulativeBalance = utils.RoundCurrency(balance)

		switch {
		case balance < deficitThreshold:
			m.Status = "deficit"
			summary.TotalDeficitMonths++
		case balance > surplusThreshold:
			m.Status = "surplus"
			summary.TotalSurplusMonths++
		default:
			m.Status = "ok"
		}

		if net > 0 {
			summary.AnnualSurplus += net
		} else {
			summary.AnnualDeficit += -net
		}
		totalDays += float64(m.RequiredWorkDays + m.DeficitRecoveryDays)
		totalExpensesSum += m.TotalExpenses
		months = append(months, m)
	}

	summary.AverageWorkDays = utils.RoundFloat(totalDays/float64(len(months)), 1)
	summary.AnnualSurplus = utils.RoundCurrency(summary.AnnualSurplus)
	summary.AnnualDeficit = utils.RoundCurrency(summary.AnnualDeficit)
	summary.FinalBalance = utils.RoundCurrency(balance)
	summary.RecommendedBuffer = utils.RoundCurrency(trailingWindowMonths * totalExpensesSum / float64(len(months)))

	return &WorkPlanResult{
		Months:      months,
		Summary:     summary,
		PensionGoal: p.pensionGoal(settings),
	}
}

// expenseTotalsByMonth classifies every expense and buckets it by effective
// month. Credit-card charges count as variable spending in their booked
// month; the work plan cares about cash flow, not card mechanics.
func (p *WorkPlanProcessor) expenseTotalsByMonth(expenses []models.Expense) map[string]monthTotals {
	totals := make(map[string]monthTotals)
	for _, e := range expenses {
		e.Normalize()
		switch p.classifier.Classify(e) {
		case models.ClassCreditCard:
			base := e.Date
			if e.PurchaseDate != nil {
				base = *e.PurchaseDate
			}
			booked := CreditCardBookedDate(base)
			if e.BookedDate != nil {
				booked = *e.BookedDate
			}
			key := utils.MonthKey(booked)
			mt := totals[key]
			mt.variable += e.Amount
			totals[key] = mt
		case models.ClassUtilityBill:
			date := e.EffectiveDate()
			if e.PaidAt != nil {
				date = *e.PaidAt
			}
			key := utils.MonthKey(date)
			mt := totals[key]
			mt.bills += e.Amount
			totals[key] = mt
		case models.ClassFixedLoan, models.ClassFixedSub:
			key := utils.MonthKey(e.EffectiveDate())
			mt := totals[key]
			mt.fixed += e.Amount
			totals[key] = mt
		default:
			key := utils.MonthKey(e.EffectiveDate())
			mt := totals[key]
			mt.variable += e.Amount
			totals[key] = mt
		}
	}
	return totals
}

// trailingAverages is the mean of the trailing window's monthly totals,
// used as the expense estimate for future months.
func trailingAverages(totals map[string]monthTotals, currentStart time.Time) monthTotals {
	var sum monthTotals
	for i := 1; i <= trailingWindowMonths; i++ {
		key := utils.MonthKey(utils.AddMonths(currentStart, -i))
		mt := totals[key]
		sum.fixed += mt.fixed
		sum.variable += mt.variable
		sum.bills += mt.bills
	}
	sum.fixed /= trailingWindowMonths
	sum.variable /= trailingWindowMonths
	sum.bills /= trailingWindowMonths
	return sum
}

// initialBalance seeds the cumulative balance. Priority: the user's custom
// override; else the trailing-window carryover (paid invoices minus expenses
// over the last trailingWindowMonths); else the same computation over all
// history before the current month.
func (p *WorkPlanProcessor) initialBalance(
	invoices []models.Invoice,
	totals map[string]monthTotals,
	currentStart time.Time,
	settings models.FinancialSettings,
) float64 {
	if settings.UseCustomInitialBalance {
		return settings.InitialBalance
	}

	windowStart := utils.AddMonths(currentStart, -trailingWindowMonths)
	balance, active := balanceBetween(invoices, totals, windowStart, currentStart)
	if active {
		return balance
	}
	// No activity in the trailing window: fall back to the full history.
	balance, _ = balanceBetween(invoices, totals, time.Time{}, currentStart)
	return balance
}

// balanceBetween sums paid invoice amounts minus expense totals for months in
// [from, to). A zero from means "from the beginning". The second return
// reports whether any movement was found.
func balanceBetween(invoices []models.Invoice, totals map[string]monthTotals, from, to time.Time) (float64, bool) {
	balance := 0.0
	active := false
	fromKey := ""
	if !from.IsZero() {
		fromKey = utils.MonthKey(from)
	}
	toKey := utils.MonthKey(to)

	for _, inv := range invoices {
		if inv.PaidDate == nil || inv.PaidAmount <= 0 {
			continue
		}
		key := utils.MonthKey(*inv.PaidDate)
		if key >= toKey || (fromKey != "" && key < fromKey) {
			continue
		}
		balance += inv.PaidAmount
		active = true
	}
	for key, mt := range totals {
		if key >= toKey || (fromKey != "" && key < fromKey) {
			continue
		}
		balance -= mt.fixed + mt.variable + mt.bills
		active = true
	}
	return balance, active
}

// incomeForMonth sums invoice income attributed to a plan month: unpaid
// remainders due that month, amounts actually paid that month, and draft
// totals when drafts are included.
func (p *WorkPlanProcessor) incomeForMonth(invoices []models.Invoice, key string, includeDrafts bool) float64 {
	income := 0.0
	for _, inv := range invoices {
		if inv.ExcludeFromBudget {
			continue
		}
		if inv.Status == models.InvoiceBozza {
			if includeDrafts && utils.MonthKey(inv.DueDate) == key {
				income += inv.TotalAmount
			}
			continue
		}
		if inv.PaidDate != nil && inv.PaidAmount > 0 && utils.MonthKey(*inv.PaidDate) == key {
			income += inv.PaidAmount
		}
		if inv.Status != models.InvoicePagata && utils.MonthKey(inv.DueDate) == key {
			remaining := inv.RemainingAmount
			if remaining == 0 {
				remaining = inv.TotalAmount - inv.PaidAmount
			}
			income += remaining
		}
	}
	return income
}

// pensionGoal solves the required monthly contribution for the configured
// pension target via the annuity formula target * r / ((1+r)^n - 1), and
// translates the gap versus the current contribution into extra work-days.
func (p *WorkPlanProcessor) pensionGoal(settings models.FinancialSettings) *models.PensionGoal {
	if settings.PensionTarget <= 0 || settings.PensionYears <= 0 {
		return nil
	}
	n := float64(settings.PensionYears * 12)
	r := settings.PensionExpectedReturn / 12

	var required float64
	if r == 0 {
		required = settings.PensionTarget / n
	} else {
		required = settings.PensionTarget * r / (math.Pow(1+r, n) - 1)
	}
	required = utils.RoundCurrency(required)

	goal := &models.PensionGoal{
		TargetAmount:        settings.PensionTarget,
		Years:               settings.PensionYears,
		AnnualReturn:        settings.PensionExpectedReturn,
		RequiredMonthly:     required,
		CurrentContribution: settings.PensionContribution,
		MonthlyGap:          utils.RoundCurrency(required - settings.PensionContribution),
	}
	if goal.MonthlyGap > 0 && settings.DailyRate > 0 {
		goal.ExtraWorkDays = int(math.Ceil(goal.MonthlyGap / settings.DailyRate))
	}
	return goal
}
