package processors

import (
	"sort"

	"github.com/username/budgetfolio/backend/src/models"
)

// TransferDirection selects which side of a transfer counts as budget for
// the accumulating user.
type TransferDirection string

const (
	TransferIncoming TransferDirection = "incoming"
	TransferOutgoing TransferDirection = "outgoing"
)

// CarryoverProcessor computes the accumulated budget position used on
// secondary/family-member dashboards: a chronological walk of
// transfers-received minus expenses-spent per month.
//
// Unlike the forecast engine, this calculator does not floor negative
// carryover at zero. Debt history is preserved and surfaced.
type CarryoverProcessor struct{}

func NewCarryoverProcessor() *CarryoverProcessor {
	return &CarryoverProcessor{}
}

// Accumulate walks every month present in the direction-filtered transfers or
// in spentByMonth, in chronological order up to and including targetMonth
// (yyyy-MM). Carryover is the running balance as it stood before entering the
// target month; Remaining includes the target month's own movement.
// HasNegativeHistory is set the first time the running balance dips below zero.
func (p *CarryoverProcessor) Accumulate(
	targetMonth string,
	userID int64,
	direction TransferDirection,
	transfers []models.BudgetTransfer,
	spentByMonth map[string]float64,
) models.AccumulatedBudget {
	budgetByMonth := make(map[string]float64)
	for _, t := range transfers {
		switch direction {
		case TransferOutgoing:
			if t.FromUserID != userID {
				continue
			}
		default:
			if t.ToUserID != userID {
				continue
			}
		}
		budgetByMonth[t.Month] += t.Amount
	}

	monthSet := make(map[string]bool)
	for m := range budgetByMonth {
		monthSet[m] = true
	}
	for m := range spentByMonth {
		monthSet[m] = true
	}

	var keys []string
	for m := range monthSet {
		// yyyy-MM keys order lexicographically, so string comparison is
		// chronological comparison.
		if m <= targetMonth {
			keys = append(keys, m)
		}
	}
	sort.Strings(keys)

	var result models.AccumulatedBudget
	running := 0.0
	targetSeen := false
	for _, m := range keys {
		if m == targetMonth {
			result.Carryover = running
			targetSeen = true
		}
		running += budgetByMonth[m] - spentByMonth[m]
		if running < 0 {
			result.HasNegativeHistory = true
		}
	}
	if !targetSeen {
		result.Carryover = running
	}
	result.Remaining = running
	return result
}
