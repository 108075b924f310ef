package processors

import (
	"math"
	"time"

	"github.com/username/budgetfolio/backend/src/models"
	"github.com/username/budgetfolio/backend/src/utils"
)

// ForecastOptions configures one forecast run. Zero values fall back to
// sensible defaults; Now is injectable for tests.
type ForecastOptions struct {
	ForecastMonths      int // months forward, including the current month
	PastMonths          int // months backward from the current month
	HorizonMonths       int // how many future months absorb an overspend
	CurrentAlreadySpent float64
	IsSecondary         bool
	ProfileTag          string
	Now                 time.Time
}

// ForecastResult is the full output of a forecast run.
type ForecastResult struct {
	Summaries         []models.BudgetMonthSummary `json:"summaries"`
	CurrentMonth      string                      `json:"current_month"`
	PastMonths        []string                    `json:"past_months"`
	FutureMonths      []string                    `json:"future_months"`
	ProviderForecasts []models.ProviderForecast   `json:"provider_forecasts"`
	TotalBillEstimate float64                     `json:"total_bill_estimate"`
}

// BudgetForecastProcessor buckets income and expense events into calendar
// months and computes the two running-balance tracks with carryover, tiered
// savings and overspend redistribution.
//
// The processor performs no I/O and no validation: malformed numeric input
// propagates (NaN in, NaN out). Validation belongs to the ingestion boundary.
type BudgetForecastProcessor struct {
	classifier Classifier
	billCycle  BillCycleEstimator
}

func NewBudgetForecastProcessor(classifier Classifier, billCycle BillCycleEstimator) *BudgetForecastProcessor {
	return &BudgetForecastProcessor{
		classifier: classifier,
		billCycle:  billCycle,
	}
}

// Forecast runs the engine over already-fetched rows. It is pure and
// idempotent: identical inputs yield identical output.
func (p *BudgetForecastProcessor) Forecast(
	invoices []models.Invoice,
	expenses []models.Expense,
	transfers []models.BudgetTransfer,
	opts ForecastOptions,
) *ForecastResult {
	if opts.ForecastMonths <= 0 {
		opts.ForecastMonths = 12
	}
	if opts.HorizonMonths <= 0 {
		opts.HorizonMonths = 3
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	currentStart := utils.StartOfMonth(now)
	currentIdx := opts.PastMonths
	total := opts.PastMonths + opts.ForecastMonths

	months := make([]models.BudgetMonthSummary, total)
	indexByKey := make(map[string]int, total)
	for i := range months {
		start := utils.AddMonths(currentStart, i-currentIdx)
		months[i].MonthStart = start
		months[i].Month = utils.MonthKey(start)
		indexByKey[months[i].Month] = i
	}
	bucket := func(t time.Time) (int, bool) {
		idx, ok := indexByKey[utils.MonthKey(t)]
		return idx, ok
	}

	p.bucketIncome(months, indexByKey, bucket, invoices, transfers, opts)
	actualBillKeys := p.bucketExpenses(months, bucket, expenses, currentIdx, total, opts)

	providerForecasts := p.billCycle.Estimate(expenses, now, opts.ForecastMonths)
	p.mergeProviderForecasts(months, bucket, providerForecasts, actualBillKeys, currentIdx)

	for i := range months {
		m := &months[i]
		m.TotalExpenses = m.FixedExpenses + m.VariableExpenses + m.CreditCardExpenses + m.BillExpenses
	}

	p.redistributeOverspend(months, currentIdx, opts.HorizonMonths)
	p.runLedgers(months, currentIdx, opts)

	result := &ForecastResult{
		Summaries:         months,
		CurrentMonth:      months[currentIdx].Month,
		ProviderForecasts: providerForecasts,
		TotalBillEstimate: p.billCycle.TotalMonthlyEstimate(providerForecasts),
	}
	for i := range months {
		switch {
		case i < currentIdx:
			result.PastMonths = append(result.PastMonths, months[i].Month)
		case i > currentIdx:
			result.FutureMonths = append(result.FutureMonths, months[i].Month)
		}
	}
	return result
}

// bucketIncome assigns invoice income (primary profiles) or transfer income
// (secondary profiles) to month buckets. Paid invoices count fully as
// received in their paid month; open invoices split into the already-paid
// part (received) and the remainder (expected in the due month). Drafts and
// budget-excluded invoices never count.
func (p *BudgetForecastProcessor) bucketIncome(
	months []models.BudgetMonthSummary,
	indexByKey map[string]int,
	bucket func(time.Time) (int, bool),
	invoices []models.Invoice,
	transfers []models.BudgetTransfer,
	opts ForecastOptions,
) {
	if opts.IsSecondary {
		for _, t := range transfers {
			if idx, ok := indexByKey[t.Month]; ok {
				months[idx].ReceivedIncome += t.Amount
			}
		}
		return
	}

	for _, inv := range invoices {
		if inv.ExcludeFromBudget || inv.Status == models.InvoiceBozza {
			continue
		}
		paidDate := inv.DueDate
		if inv.PaidDate != nil {
			paidDate = *inv.PaidDate
		}
		if inv.Status == models.InvoicePagata {
			if idx, ok := bucket(paidDate); ok {
				months[idx].ReceivedIncome += inv.TotalAmount
			}
			continue
		}
		if inv.PaidAmount > 0 {
			if idx, ok := bucket(paidDate); ok {
				months[idx].ReceivedIncome += inv.PaidAmount
			}
		}
		remaining := inv.RemainingAmount
		if remaining == 0 {
			remaining = inv.TotalAmount - inv.PaidAmount
		}
		if idx, ok := bucket(inv.DueDate); ok {
			months[idx].ExpectedIncome += remaining
		}
	}
}

// bucketExpenses classifies and buckets every non-bill expense, and merges
// actual bills into their months' bill totals. Returns, per month index, the
// set of "billType|provider" keys that have an actual bill there, used to
// suppress projections.
func (p *BudgetForecastProcessor) bucketExpenses(
	months []models.BudgetMonthSummary,
	bucket func(time.Time) (int, bool),
	expenses []models.Expense,
	currentIdx, total int,
	opts ForecastOptions,
) map[int]map[string]bool {
	actualBillKeys := make(map[int]map[string]bool)

	for _, e := range expenses {
		e.Normalize()
		if !p.visibleTo(e, opts) {
			continue
		}

		switch p.classifier.Classify(e) {
		case models.ClassCreditCard:
			booked := e.BookedDate
			if booked == nil {
				base := e.Date
				if e.PurchaseDate != nil {
					base = *e.PurchaseDate
				}
				b := CreditCardBookedDate(base)
				booked = &b
			}
			if idx, ok := bucket(*booked); ok {
				months[idx].CreditCardExpenses += e.Amount
			}

		case models.ClassUtilityBill:
			date := e.EffectiveDate()
			if e.PaidAt != nil {
				date = *e.PaidAt
			}
			idx, ok := bucket(date)
			if !ok {
				continue
			}
			months[idx].BillExpenses += e.Amount
			months[idx].BillDetails = append(months[idx].BillDetails, models.BillDetail{
				BillType: e.BillType,
				Provider: e.BillProvider,
				Amount:   e.Amount,
				DueDate:  date.Format(utils.DefaultDateFormat),
				Forecast: false,
			})
			if actualBillKeys[idx] == nil {
				actualBillKeys[idx] = make(map[string]bool)
			}
			actualBillKeys[idx][e.BillType+"|"+e.BillProvider] = true

		case models.ClassFixedLoan, models.ClassFixedSub:
			if e.Recurring {
				// A recurring fixed expense repeats in every non-past month
				// of the window, regardless of how many stored instances
				// exist. See DESIGN.md for the double-count caveat.
				for i := currentIdx; i < total; i++ {
					months[i].FixedExpenses += e.Amount
				}
				continue
			}
			if idx, ok := bucket(e.EffectiveDate()); ok {
				months[idx].FixedExpenses += e.Amount
			}

		default:
			if idx, ok := bucket(e.EffectiveDate()); ok {
				months[idx].VariableExpenses += e.Amount
			}
		}
	}
	return actualBillKeys
}

// visibleTo applies the paidBy visibility filter: a secondary profile sees
// only expenses tagged with its own profile tag; a primary profile sees
// untagged expenses plus its own.
func (p *BudgetForecastProcessor) visibleTo(e models.Expense, opts ForecastOptions) bool {
	if opts.IsSecondary {
		return e.PaidBy == opts.ProfileTag && opts.ProfileTag != ""
	}
	return e.PaidBy == "" || e.PaidBy == opts.ProfileTag
}

// mergeProviderForecasts adds projected bills to strictly future months,
// skipping any month that already holds an actual bill for the same
// (billType, provider). Actuals always take precedence over projections.
func (p *BudgetForecastProcessor) mergeProviderForecasts(
	months []models.BudgetMonthSummary,
	bucket func(time.Time) (int, bool),
	forecasts []models.ProviderForecast,
	actualBillKeys map[int]map[string]bool,
	currentIdx int,
) {
	for _, f := range forecasts {
		key := f.BillType + "|" + f.Provider
		for _, d := range f.NextBillDates {
			idx, ok := bucket(d)
			if !ok || idx <= currentIdx {
				continue
			}
			if actualBillKeys[idx][key] {
				continue
			}
			months[idx].BillExpenses += f.AvgAmount
			months[idx].BillDetails = append(months[idx].BillDetails, models.BillDetail{
				BillType: f.BillType,
				Provider: f.Provider,
				Amount:   f.AvgAmount,
				DueDate:  d.Format(utils.DefaultDateFormat),
				Forecast: true,
			})
		}
	}
}

// redistributeOverspend spreads each non-past month's pre-carryover deficit
// across the next horizonMonths future months, proportionally to their
// received income (equal split when none have income). The last allocation
// absorbs the rounding remainder so the split sums exactly to the deficit.
func (p *BudgetForecastProcessor) redistributeOverspend(months []models.BudgetMonthSummary, currentIdx, horizonMonths int) {
	total := len(months)
	for i := currentIdx; i < total; i++ {
		deficit := months[i].ReceivedIncome - months[i].TotalExpenses
		if deficit >= 0 {
			continue
		}
		need := -deficit

		last := utils.MinInt(i+horizonMonths, total-1)
		if last <= i {
			// No future months left: the deficit stays with its own month.
			months[i].OverspendAllocated += need
			continue
		}

		var weightSum float64
		for j := i + 1; j <= last; j++ {
			weightSum += months[j].ReceivedIncome
		}

		count := last - i
		allocated := 0.0
		for n, j := 0, i+1; j <= last; n, j = n+1, j+1 {
			var share float64
			switch {
			case n == count-1:
				share = utils.RoundCurrency(need - allocated)
			case weightSum > 0:
				share = utils.RoundCurrency(need * months[j].ReceivedIncome / weightSum)
			default:
				share = utils.RoundCurrency(need / float64(count))
			}
			months[j].OverspendAllocated += share
			allocated += share
		}
	}
}

// ledgerStep is the result of advancing one month on one balance track.
type ledgerStep struct {
	carryoverIn   float64
	balanceBefore float64
	savingsRate   float64
	savings       float64
	balanceAfter  float64
	carryoverOut  float64
}

// advanceLedger is the single recurrence used by both tracks: income plus
// incoming carryover, minus expenses, overspend share and any manual
// adjustment; then the tiered savings rate on a positive balance; carryover
// out is floored at zero, never carried as debt.
func advanceLedger(carryoverIn, income, expenses, overspend, alreadySpent float64, tiered bool) ledgerStep {
	before := income + carryoverIn - expenses - overspend - alreadySpent
	rate := 0.0
	if tiered && before > 0 {
		rate = savingsRateFor(before)
	}
	savings := utils.RoundCurrency(before * rate)
	after := before - savings
	return ledgerStep{
		carryoverIn:   carryoverIn,
		balanceBefore: before,
		savingsRate:   rate,
		savings:       savings,
		balanceAfter:  after,
		carryoverOut:  math.Max(0, after),
	}
}

// savingsRateFor is the dynamic savings tier on a pre-savings balance.
func savingsRateFor(balance float64) float64 {
	switch {
	case balance < 2000:
		return 0
	case balance < 3000:
		return 0.10
	case balance < 4000:
		return 0.15
	default:
		return 0.20
	}
}

// runLedgers folds both carryover chains over the month axis and fills the
// per-month track fields. The real track is authoritative for past and
// current months, the forecast track for strictly future months.
func (p *BudgetForecastProcessor) runLedgers(months []models.BudgetMonthSummary, currentIdx int, opts ForecastOptions) {
	tiered := !opts.IsSecondary
	realCarry, fcCarry := 0.0, 0.0

	for i := range months {
		m := &months[i]
		already := 0.0
		if i == currentIdx {
			already = opts.CurrentAlreadySpent
		}

		real := advanceLedger(realCarry, m.ReceivedIncome, m.TotalExpenses, m.OverspendAllocated, already, tiered)
		fc := advanceLedger(fcCarry, m.ReceivedIncome+m.ExpectedIncome, m.TotalExpenses, m.OverspendAllocated, already, tiered)

		m.RealCarryover = real.carryoverIn
		m.RealBalanceBeforeSavings = real.balanceBefore
		m.RealSavings = real.savings
		m.RealBalanceAfterSavings = real.balanceAfter
		m.ForecastCarryover = fc.carryoverIn
		m.ForecastBalanceBefore = fc.balanceBefore
		m.ForecastSavings = fc.savings
		m.ForecastBalanceAfter = fc.balanceAfter

		m.IsPastMonth = i < currentIdx
		m.IsCurrentMonth = i == currentIdx
		if i > currentIdx {
			m.Carryover = fc.carryoverIn
			m.Balance = fc.balanceAfter
			m.SavingsRate = fc.savingsRate
		} else {
			m.Carryover = real.carryoverIn
			m.Balance = real.balanceAfter
			m.SavingsRate = real.savingsRate
		}

		realCarry = real.carryoverOut
		fcCarry = fc.carryoverOut
	}
}
