package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/username/budgetfolio/backend/src/models"
	"github.com/username/budgetfolio/backend/src/security/validation"
	"github.com/username/budgetfolio/backend/src/services"
	"github.com/username/budgetfolio/backend/src/utils"
)

type InvoiceHandler struct {
	budgetService services.BudgetService
}

func NewInvoiceHandler(budgetService services.BudgetService) *InvoiceHandler {
	return &InvoiceHandler{budgetService: budgetService}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id in path")
	}
	return id, nil
}

func (h *InvoiceHandler) HandleListInvoices(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	invoices, err := h.budgetService.ListInvoices(userID)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error listing invoices for userID %d: %v", userID, err), http.StatusInternalServerError)
		return
	}
	if invoices == nil {
		invoices = []models.Invoice{}
	}
	sendJSONWithETag(w, r, invoices)
}

func (h *InvoiceHandler) HandleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	var body struct {
		Number            string  `json:"number"`
		ClientName        string  `json:"client_name"`
		ClientEmail       string  `json:"client_email"`
		InvoiceDate       string  `json:"invoice_date"`
		DueDate           string  `json:"due_date"`
		TotalAmount       float64 `json:"total_amount"`
		ExcludeFromBudget bool    `json:"exclude_from_budget"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateAmount(body.TotalAmount); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateDescription(body.ClientName); err != nil {
		utils.SendJSONError(w, "client_name: "+err.Error(), http.StatusBadRequest)
		return
	}
	invoiceDate, err := validation.ValidateDate(body.InvoiceDate)
	if err != nil {
		utils.SendJSONError(w, "invoice_date: "+err.Error(), http.StatusBadRequest)
		return
	}
	dueDate, err := validation.ValidateDate(body.DueDate)
	if err != nil {
		utils.SendJSONError(w, "due_date: "+err.Error(), http.StatusBadRequest)
		return
	}
	if dueDate.Before(invoiceDate) {
		utils.SendJSONError(w, "due_date must not precede invoice_date", http.StatusBadRequest)
		return
	}

	inv := &models.Invoice{
		UserID:            userID,
		Number:            validation.SanitizeDescription(body.Number),
		ClientName:        validation.SanitizeDescription(body.ClientName),
		ClientEmail:       validation.SanitizeDescription(body.ClientEmail),
		InvoiceDate:       invoiceDate,
		DueDate:           dueDate,
		TotalAmount:       body.TotalAmount,
		ExcludeFromBudget: body.ExcludeFromBudget,
	}
	if err := h.budgetService.CreateInvoice(inv); err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error creating invoice for userID %d: %v", userID, err), http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, inv, http.StatusCreated)
}

func (h *InvoiceHandler) HandleUpdateInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}
	invoiceID, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validation.ValidateInvoiceStatus(body.Status); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = h.budgetService.UpdateInvoiceStatus(userID, invoiceID, models.InvoiceStatus(body.Status))
	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.SendJSONError(w, "Invoice not found", http.StatusNotFound)
	case errors.Is(err, services.ErrInvalidTransition):
		utils.SendJSONError(w, err.Error(), http.StatusConflict)
	case err != nil:
		utils.SendJSONError(w, fmt.Sprintf("Error updating invoice status: %v", err), http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *InvoiceHandler) HandleRecordPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}
	invoiceID, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var body struct {
		Amount   float64 `json:"amount"`
		PaidDate string  `json:"paid_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validation.ValidateAmount(body.Amount); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	paidDate := time.Now()
	if body.PaidDate != "" {
		paidDate, err = validation.ValidateDate(body.PaidDate)
		if err != nil {
			utils.SendJSONError(w, "paid_date: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	err = h.budgetService.RecordInvoicePayment(userID, invoiceID, body.Amount, paidDate)
	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.SendJSONError(w, "Invoice not found", http.StatusNotFound)
	case errors.Is(err, services.ErrOverpayment):
		utils.SendJSONError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, services.ErrInvalidTransition):
		utils.SendJSONError(w, err.Error(), http.StatusConflict)
	case err != nil:
		utils.SendJSONError(w, fmt.Sprintf("Error recording payment: %v", err), http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
