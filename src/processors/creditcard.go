package processors

import (
	"time"

	"github.com/username/budgetfolio/backend/src/models"
)

// statementDay is the day of the month credit-card purchases post to the
// statement of the following month.
const statementDay = 10

// CreditCardBookedDate returns the deferred ledger date for a card purchase:
// the 10th of the month following the purchase month.
func CreditCardBookedDate(purchaseDate time.Time) time.Time {
	firstOfNext := time.Date(purchaseDate.Year(), purchaseDate.Month(), 1, 0, 0, 0, 0, purchaseDate.Location()).AddDate(0, 1, 0)
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), statementDay, 0, 0, 0, 0, purchaseDate.Location())
}

// IsBooked reports whether an expense has posted by now. Non-card expenses
// post immediately; card charges post on their statement date.
func IsBooked(e models.Expense, now time.Time) bool {
	if e.PaymentMethod != models.PaymentCartaCredito {
		return true
	}
	base := e.Date
	if e.PurchaseDate != nil {
		base = *e.PurchaseDate
	}
	return !now.Before(CreditCardBookedDate(base))
}
