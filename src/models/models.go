package models

import (
	"math"
	"time"
)

// PaymentMethod is the closed set of payment instruments an expense can carry.
type PaymentMethod string

const (
	PaymentContanti     PaymentMethod = "contanti"
	PaymentBancomat     PaymentMethod = "bancomat"
	PaymentCartaCredito PaymentMethod = "carta_credito"
	PaymentBonifico     PaymentMethod = "bonifico"
)

// InvoiceStatus is the invoice lifecycle state.
type InvoiceStatus string

const (
	InvoiceBozza    InvoiceStatus = "bozza"
	InvoiceInviata  InvoiceStatus = "inviata"
	InvoiceParziale InvoiceStatus = "parziale"
	InvoicePagata   InvoiceStatus = "pagata"
)

// ExpenseClass is the classification outcome for an expense. Exactly one
// class applies per expense; see processors.ExpenseClassifier for the rules.
type ExpenseClass string

const (
	ClassVariable    ExpenseClass = "variable"
	ClassFixedLoan   ExpenseClass = "fixed_loan"
	ClassFixedSub    ExpenseClass = "fixed_sub"
	ClassUtilityBill ExpenseClass = "utility_bill"
	ClassCreditCard  ExpenseClass = "credit_card"
)

// BillTypeAltro marks a bill-typed expense that is not a utility bill.
const BillTypeAltro = "altro"

// Expense is a single outgoing movement as stored. Utility-bill fields are
// only populated for bill expenses; credit-card deferral uses BookedDate.
type Expense struct {
	ID               int64         `json:"id"`
	UserID           int64         `json:"user_id"`
	Description      string        `json:"description"`
	Amount           float64       `json:"amount"`
	Date             time.Time     `json:"date"`
	BookedDate       *time.Time    `json:"booked_date,omitempty"`
	PurchaseDate     *time.Time    `json:"purchase_date,omitempty"`
	Category         string        `json:"category,omitempty"` // legacy flat tag
	CategoryParent   string        `json:"category_parent,omitempty"`
	CategoryChild    string        `json:"category_child,omitempty"`
	PaymentMethod    PaymentMethod `json:"payment_method"`
	Recurring        bool          `json:"recurring"`
	BillType         string        `json:"bill_type,omitempty"`
	BillProvider     string        `json:"bill_provider,omitempty"`
	BillPeriodStart  *time.Time    `json:"bill_period_start,omitempty"`
	BillPeriodEnd    *time.Time    `json:"bill_period_end,omitempty"`
	ConsumptionValue *float64      `json:"consumption_value,omitempty"`
	ConsumptionUnit  string        `json:"consumption_unit,omitempty"`
	IsPaid           bool          `json:"is_paid"`
	PaidAt           *time.Time    `json:"paid_at,omitempty"`
	PaidBy           string        `json:"paid_by,omitempty"`
	SubscriptionType string        `json:"subscription_type,omitempty"`
	LinkedTransferID *int64        `json:"linked_transfer_id,omitempty"`
	IsFamilyExpense  bool          `json:"is_family_expense"`
}

// legacyCategoryMap maps old flat category tags onto the hierarchical
// parent/child pair. Unknown legacy tags become the parent as-is.
var legacyCategoryMap = map[string][2]string{
	"abbonamenti":      {"abbonamenti", ""},
	"fissa":            {"fissa", ""},
	"finanza":          {"finanza_obblighi", ""},
	"finanza_obblighi": {"finanza_obblighi", ""},
	"spesa":            {"alimentari", "spesa"},
	"bollette":         {"casa", "bollette"},
}

// Normalize maps the legacy flat Category tag onto CategoryParent/CategoryChild
// when the hierarchical pair is not already set. The forecasting core only
// reads the normalized pair; callers must normalize at the ingestion boundary.
func (e *Expense) Normalize() {
	if e.CategoryParent != "" || e.Category == "" {
		return
	}
	if mapped, ok := legacyCategoryMap[e.Category]; ok {
		e.CategoryParent = mapped[0]
		e.CategoryChild = mapped[1]
		return
	}
	e.CategoryParent = e.Category
}

// EffectiveDate is the ledger date used for month bucketing: BookedDate when
// present, otherwise the transaction date.
func (e *Expense) EffectiveDate() time.Time {
	if e.BookedDate != nil {
		return *e.BookedDate
	}
	return e.Date
}

// Invoice is a freelancer invoice. RemainingAmount is kept derived:
// totalAmount - paidAmount while not pagata, 0 once pagata.
type Invoice struct {
	ID                int64         `json:"id"`
	UserID            int64         `json:"user_id"`
	Number            string        `json:"number"`
	ClientName        string        `json:"client_name"`
	ClientEmail       string        `json:"client_email,omitempty"`
	Status            InvoiceStatus `json:"status"`
	InvoiceDate       time.Time     `json:"invoice_date"`
	DueDate           time.Time     `json:"due_date"`
	PaidDate          *time.Time    `json:"paid_date,omitempty"`
	TotalAmount       float64       `json:"total_amount"`
	PaidAmount        float64       `json:"paid_amount"`
	RemainingAmount   float64       `json:"remaining_amount"`
	ExcludeFromBudget bool          `json:"exclude_from_budget"`
}

// SyncRemaining re-derives RemainingAmount from the status and paid amount.
func (i *Invoice) SyncRemaining() {
	if i.Status == InvoicePagata {
		i.RemainingAmount = 0
		return
	}
	i.RemainingAmount = math.Round((i.TotalAmount-i.PaidAmount)*100) / 100
}

// CanTransitionTo reports whether a status change is a legal forward move.
// bozza -> inviata -> parziale -> pagata, with inviata -> pagata allowed.
func (i *Invoice) CanTransitionTo(next InvoiceStatus) bool {
	switch i.Status {
	case InvoiceBozza:
		return next == InvoiceInviata
	case InvoiceInviata:
		return next == InvoiceParziale || next == InvoicePagata
	case InvoiceParziale:
		return next == InvoicePagata
	default:
		return false
	}
}

// BudgetTransfer is a household budget movement between two profiles.
// Immutable once created except for deletion. Negative amounts are
// corrective/reset adjustments.
type BudgetTransfer struct {
	ID           int64      `json:"id"`
	FromUserID   int64      `json:"from_user_id"`
	ToUserID     int64      `json:"to_user_id"`
	Amount       float64    `json:"amount"`
	Month        string     `json:"month"` // yyyy-MM bucket key
	Description  string     `json:"description,omitempty"`
	TransferDate *time.Time `json:"transfer_date,omitempty"`
	BankRowKey   string     `json:"bank_row_key,omitempty"` // dedup key for bulk import
	CreatedAt    time.Time  `json:"created_at"`
}

// FinancialSettings is the per-user configuration record consumed by the
// work-plan engine and the forecast defaults.
type FinancialSettings struct {
	UserID                  int64   `json:"user_id"`
	DailyRate               float64 `json:"daily_rate"`
	PensionTarget           float64 `json:"pension_target"`
	PensionYears            int     `json:"pension_years"`
	PensionExpectedReturn   float64 `json:"pension_expected_return"` // annual rate, e.g. 0.04
	PensionContribution     float64 `json:"pension_contribution"`    // fixed monthly contribution
	PaymentDelayDays        int     `json:"payment_delay_days"`
	ManualFixedEstimate     float64 `json:"manual_fixed_estimate"`
	ManualVariableEstimate  float64 `json:"manual_variable_estimate"`
	ManualBillEstimate      float64 `json:"manual_bill_estimate"`
	InitialBalance          float64 `json:"initial_balance"`
	UseManualEstimates      bool    `json:"use_manual_estimates"`
	UseCustomInitialBalance bool    `json:"use_custom_initial_balance"`
	IncludeDrafts           bool    `json:"include_drafts"`
	IsSecondary             bool    `json:"is_secondary"`
	ProfileTag              string  `json:"profile_tag,omitempty"`
}
