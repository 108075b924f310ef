package processors

import (
	"sort"
	"time"

	"github.com/username/budgetfolio/backend/src/models"
	"github.com/username/budgetfolio/backend/src/utils"
)

// defaultFrequencyMonths is assumed when a bill carries no period dates.
const defaultFrequencyMonths = 2

// BillCycleProcessor infers each provider's billing frequency from its paid
// bill history and projects future bill dates forward to the forecast horizon.
type BillCycleProcessor struct{}

func NewBillCycleProcessor() *BillCycleProcessor {
	return &BillCycleProcessor{}
}

// Estimate groups paid bills by (billType, provider) and produces one
// ProviderForecast per group, with projected dates up to forecastMonths
// after the month of now.
func (p *BillCycleProcessor) Estimate(expenses []models.Expense, now time.Time, forecastMonths int) []models.ProviderForecast {
	type group struct {
		total    float64
		count    int
		lastBill models.Expense
	}
	groups := make(map[string]*group)
	var keys []string

	for _, e := range expenses {
		if !e.IsPaid || e.BillType == "" {
			continue
		}
		key := e.BillType + "|" + e.BillProvider
		g, ok := groups[key]
		if !ok {
			g = &group{lastBill: e}
			groups[key] = g
			keys = append(keys, key)
		}
		g.total += e.Amount
		g.count++
		if e.Date.After(g.lastBill.Date) {
			g.lastBill = e
		}
	}
	sort.Strings(keys)

	horizon := utils.AddMonths(utils.StartOfMonth(now), forecastMonths)
	forecasts := make([]models.ProviderForecast, 0, len(keys))
	for _, key := range keys {
		g := groups[key]
		last := g.lastBill
		freq := billingFrequencyMonths(last.BillPeriodStart, last.BillPeriodEnd)

		var nextDates []time.Time
		d := utils.StartOfMonth(last.Date)
		for {
			d = utils.AddMonths(d, freq)
			if d.After(horizon) {
				break
			}
			nextDates = append(nextDates, d)
		}

		forecasts = append(forecasts, models.ProviderForecast{
			BillType:               last.BillType,
			Provider:               last.BillProvider,
			AvgAmount:              utils.RoundCurrency(g.total / float64(g.count)),
			BillingFrequencyMonths: freq,
			LastBillDate:           last.Date,
			NextBillDates:          nextDates,
		})
	}
	return forecasts
}

// TotalMonthlyEstimate is the monthly-equivalent cost of all provider
// forecasts: sum of avgAmount / frequency.
func (p *BillCycleProcessor) TotalMonthlyEstimate(forecasts []models.ProviderForecast) float64 {
	var total float64
	for _, f := range forecasts {
		if f.BillingFrequencyMonths > 0 {
			total += f.AvgAmount / float64(f.BillingFrequencyMonths)
		}
	}
	return utils.RoundCurrency(total)
}

// billingFrequencyMonths infers the billing cycle from the stated period
// length in days. Breakpoints: <=35 monthly, <=65 bimonthly, <=95 quarterly,
// <=190 semiannual, else annual. Bills without period dates default to
// bimonthly.
func billingFrequencyMonths(start, end *time.Time) int {
	if start == nil || end == nil {
		return defaultFrequencyMonths
	}
	days := int(end.Sub(*start).Hours() / 24)
	switch {
	case days <= 35:
		return 1
	case days <= 65:
		return 2
	case days <= 95:
		return 3
	case days <= 190:
		return 6
	default:
		return 12
	}
}
