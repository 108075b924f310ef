package processors

import (
	"regexp"
	"strings"

	"github.com/username/budgetfolio/backend/src/models"
)

var (
	installmentPattern = regexp.MustCompile(`(?i)rata\s+\d+/\d+`)
	loanKeywordPattern = regexp.MustCompile(`(?i)prestito|mutuo|finanziamento|leasing`)
	loanExcludePattern = regexp.MustCompile(`(?i)amazon|assicurazione|owen|mantenimento`)
	subKeywordPattern  = regexp.MustCompile(`(?i)abbonamento|subscription|mensile|palestra|gym|fitness`)
	transferWording    = regexp.MustCompile(`(?i)trasferimento|bonifico|giroconto`)
)

// minLoanAmount guards the loan keyword rule against small one-off purchases
// that merely mention financing.
const minLoanAmount = 30.0

// ExpenseClassifier assigns each expense to exactly one ExpenseClass.
// Classification is pure, total and deterministic: rules are evaluated in a
// fixed priority order and the first match wins.
type ExpenseClassifier struct {
	registry *ProviderRegistry
}

func NewExpenseClassifier(registry *ProviderRegistry) *ExpenseClassifier {
	if registry == nil {
		registry = DefaultProviderRegistry()
	}
	return &ExpenseClassifier{registry: registry}
}

// Classify maps an expense to its class.
//
// Priority order:
//  1. carta_credito payment method always wins: credit-card charges are
//     recognized through deferred booking, never as fixed or variable.
//  2. utility bill (explicit bill type, known provider, or description match).
//  3. loan payment (installment pattern, loan keywords, known lenders).
//  4. subscription (explicit type, category, streaming provider, keywords).
//  5. everything else is variable. Family transfers are detected separately
//     (IsFamilyTransfer) but still land in variable.
func (c *ExpenseClassifier) Classify(e models.Expense) models.ExpenseClass {
	if e.PaymentMethod == models.PaymentCartaCredito {
		return models.ClassCreditCard
	}
	if c.IsUtilityBill(e) {
		return models.ClassUtilityBill
	}
	if c.isLoanPayment(e) {
		return models.ClassFixedLoan
	}
	if c.isSubscription(e) {
		return models.ClassFixedSub
	}
	return models.ClassVariable
}

// IsUtilityBill reports whether the expense is a utility bill: an explicit
// bill type other than "altro", a known provider in the bill_provider field,
// or a known provider mentioned in the description. Streaming providers fall
// through to the subscription rule.
func (c *ExpenseClassifier) IsUtilityBill(e models.Expense) bool {
	if e.BillType != "" && e.BillType != models.BillTypeAltro {
		return true
	}
	if e.BillProvider != "" && c.registry.MatchesUtility(e.BillProvider) {
		return true
	}
	return c.registry.MatchesUtility(e.Description)
}

func (c *ExpenseClassifier) isLoanPayment(e models.Expense) bool {
	if installmentPattern.MatchString(e.Description) {
		return true
	}
	if e.Amount >= minLoanAmount &&
		loanKeywordPattern.MatchString(e.Description) &&
		!loanExcludePattern.MatchString(e.Description) {
		return true
	}
	if strings.Contains(strings.ToLower(e.Description), "younited") {
		return true
	}
	return e.CategoryParent == "finanza_obblighi"
}

func (c *ExpenseClassifier) isSubscription(e models.Expense) bool {
	if e.SubscriptionType != "" {
		return true
	}
	if e.CategoryParent == "abbonamenti" {
		return true
	}
	if c.registry.MatchesStreaming(e.Description) {
		return true
	}
	return subKeywordPattern.MatchString(e.Description)
}

// IsFamilyTransfer reports whether the expense looks like a household budget
// transfer. The result is informational only: transfers still classify as
// variable. Kept queryable pending a decision on whether transfers should
// ever change bucket assignment again.
func (c *ExpenseClassifier) IsFamilyTransfer(e models.Expense) bool {
	if e.LinkedTransferID != nil || e.IsFamilyExpense {
		return true
	}
	if c.registry.MatchesSupporter(e.Description) {
		return true
	}
	if e.CategoryParent == "fissa" &&
		transferWording.MatchString(e.Description) &&
		!c.IsUtilityBill(e) {
		return true
	}
	return false
}
