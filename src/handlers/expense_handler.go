package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/username/budgetfolio/backend/src/models"
	"github.com/username/budgetfolio/backend/src/security/validation"
	"github.com/username/budgetfolio/backend/src/services"
	"github.com/username/budgetfolio/backend/src/utils"
)

type ExpenseHandler struct {
	budgetService     services.BudgetService
	suggestionService services.SuggestionService
}

func NewExpenseHandler(budgetService services.BudgetService, suggestionService services.SuggestionService) *ExpenseHandler {
	return &ExpenseHandler{
		budgetService:     budgetService,
		suggestionService: suggestionService,
	}
}

// expensePayload is the wire shape for expense creation. Dates travel as
// yyyy-MM-dd strings; optional dates as empty strings.
type expensePayload struct {
	Description      string   `json:"description"`
	Amount           float64  `json:"amount"`
	Date             string   `json:"date"`
	PurchaseDate     string   `json:"purchase_date"`
	Category         string   `json:"category"`
	CategoryParent   string   `json:"category_parent"`
	CategoryChild    string   `json:"category_child"`
	PaymentMethod    string   `json:"payment_method"`
	Recurring        bool     `json:"recurring"`
	BillType         string   `json:"bill_type"`
	BillProvider     string   `json:"bill_provider"`
	BillPeriodStart  string   `json:"bill_period_start"`
	BillPeriodEnd    string   `json:"bill_period_end"`
	ConsumptionValue *float64 `json:"consumption_value"`
	ConsumptionUnit  string   `json:"consumption_unit"`
	IsPaid           bool     `json:"is_paid"`
	PaidBy           string   `json:"paid_by"`
	SubscriptionType string   `json:"subscription_type"`
	IsFamilyExpense  bool     `json:"is_family_expense"`
}

func optionalDate(value, field string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := validation.ValidateDate(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return &t, nil
}

func (h *ExpenseHandler) HandleListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	expenses, err := h.budgetService.ListExpenses(userID)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error listing expenses for userID %d: %v", userID, err), http.StatusInternalServerError)
		return
	}
	if expenses == nil {
		expenses = []models.Expense{}
	}
	sendJSONWithETag(w, r, expenses)
}

func (h *ExpenseHandler) HandleCreateExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	var body expensePayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateDescription(body.Description); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateAmount(body.Amount); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePaymentMethod(body.PaymentMethod); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	date, err := validation.ValidateDate(body.Date)
	if err != nil {
		utils.SendJSONError(w, "date: "+err.Error(), http.StatusBadRequest)
		return
	}
	purchaseDate, err := optionalDate(body.PurchaseDate, "purchase_date")
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	periodStart, err := optionalDate(body.BillPeriodStart, "bill_period_start")
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	periodEnd, err := optionalDate(body.BillPeriodEnd, "bill_period_end")
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if periodStart != nil && periodEnd != nil && periodEnd.Before(*periodStart) {
		utils.SendJSONError(w, "bill_period_end must not precede bill_period_start", http.StatusBadRequest)
		return
	}

	e := &models.Expense{
		UserID:           userID,
		Description:      validation.SanitizeDescription(body.Description),
		Amount:           body.Amount,
		Date:             date,
		PurchaseDate:     purchaseDate,
		Category:         body.Category,
		CategoryParent:   body.CategoryParent,
		CategoryChild:    body.CategoryChild,
		PaymentMethod:    models.PaymentMethod(body.PaymentMethod),
		Recurring:        body.Recurring,
		BillType:         body.BillType,
		BillProvider:     validation.SanitizeDescription(body.BillProvider),
		BillPeriodStart:  periodStart,
		BillPeriodEnd:    periodEnd,
		ConsumptionValue: body.ConsumptionValue,
		ConsumptionUnit:  body.ConsumptionUnit,
		IsPaid:           body.IsPaid,
		PaidBy:           body.PaidBy,
		SubscriptionType: body.SubscriptionType,
		IsFamilyExpense:  body.IsFamilyExpense,
	}
	if err := h.budgetService.CreateExpense(e); err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error creating expense for userID %d: %v", userID, err), http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, e, http.StatusCreated)
}

func (h *ExpenseHandler) HandleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}
	expenseID, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = h.budgetService.DeleteExpense(userID, expenseID)
	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.SendJSONError(w, "Expense not found", http.StatusNotFound)
	case err != nil:
		utils.SendJSONError(w, fmt.Sprintf("Error deleting expense: %v", err), http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *ExpenseHandler) HandleMarkBillPaid(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}
	expenseID, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var body struct {
		PaidAt string `json:"paid_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	paidAt := time.Now()
	if body.PaidAt != "" {
		paidAt, err = validation.ValidateDate(body.PaidAt)
		if err != nil {
			utils.SendJSONError(w, "paid_at: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	err = h.budgetService.MarkBillPaid(userID, expenseID, paidAt)
	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.SendJSONError(w, "Expense not found", http.StatusNotFound)
	case err != nil:
		utils.SendJSONError(w, fmt.Sprintf("Error marking bill paid: %v", err), http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleSuggestCategory proxies a description to the external categorization
// service. Failures are reported as 502 so the client can fall back to manual
// category entry.
func (h *ExpenseHandler) HandleSuggestCategory(w http.ResponseWriter, r *http.Request) {
	_, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	var body struct {
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validation.ValidateDescription(body.Description); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	suggestion, err := h.suggestionService.SuggestCategory(r.Context(), validation.SanitizeDescription(body.Description), body.Amount)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Category suggestion unavailable: %v", err), http.StatusBadGateway)
		return
	}
	utils.SendJSON(w, suggestion, http.StatusOK)
}
