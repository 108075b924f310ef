package services

import (
	"context"
	"errors"
	"time"

	"github.com/username/budgetfolio/backend/src/models"
	"github.com/username/budgetfolio/backend/src/processors"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidTransition = errors.New("invalid invoice status transition")
	ErrOverpayment       = errors.New("payment exceeds the remaining amount")
)

// OverdueInvoice pairs an overdue invoice with the addresses the reminder
// job needs.
type OverdueInvoice struct {
	Invoice   models.Invoice
	OwnerName string
	UserEmail string
}

// ImportSummary reports the outcome of a bank-statement bulk import.
type ImportSummary struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// BudgetService is the application core: persistence plus the forecasting
// engines, with per-user report caching on top.
type BudgetService interface {
	GetForecast(userID int64, opts processors.ForecastOptions) (*processors.ForecastResult, error)
	GetWorkPlan(userID int64, expected []processors.ExpectedExpense) (*processors.WorkPlanResult, error)
	GetProviderForecasts(userID int64, forecastMonths int) ([]models.ProviderForecast, float64, error)
	GetAccumulatedBudget(userID int64, month string, direction processors.TransferDirection) (models.AccumulatedBudget, error)

	ListInvoices(userID int64) ([]models.Invoice, error)
	CreateInvoice(inv *models.Invoice) error
	UpdateInvoiceStatus(userID, invoiceID int64, next models.InvoiceStatus) error
	RecordInvoicePayment(userID, invoiceID int64, amount float64, paidDate time.Time) error
	ListOverdueInvoices(asOf time.Time) ([]OverdueInvoice, error)

	ListExpenses(userID int64) ([]models.Expense, error)
	CreateExpense(e *models.Expense) error
	DeleteExpense(userID, expenseID int64) error
	MarkBillPaid(userID, expenseID int64, paidAt time.Time) error

	ListTransfers(userID int64) ([]models.BudgetTransfer, error)
	CreateTransfer(t *models.BudgetTransfer) error
	ImportTransfers(toUserID int64, rows []models.BudgetTransfer) (*ImportSummary, error)
	DeleteTransfer(userID, transferID int64) error

	GetSettings(userID int64) (*models.FinancialSettings, error)
	SaveSettings(settings *models.FinancialSettings) error

	InvalidateUserCache(userID int64)
}

// CategorySuggestion is the categorization proposal returned by the external
// suggestion service for a free-text expense description.
type CategorySuggestion struct {
	CategoryParent string  `json:"category_parent"`
	CategoryChild  string  `json:"category_child,omitempty"`
	Confidence     float64 `json:"confidence"`
}

// SuggestionService asks an external black-box HTTP service to categorize an
// expense description.
type SuggestionService interface {
	SuggestCategory(ctx context.Context, description string, amount float64) (*CategorySuggestion, error)
}
