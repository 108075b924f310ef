package handlers

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/username/budgetfolio/backend/src/logger"
	"github.com/username/budgetfolio/backend/src/models"
	"github.com/username/budgetfolio/backend/src/security/validation"
	"github.com/username/budgetfolio/backend/src/services"
	"github.com/username/budgetfolio/backend/src/utils"
)

// maxStatementUploadSize caps bank-statement CSV uploads at 5 MB.
const maxStatementUploadSize = 5 << 20

type TransferHandler struct {
	budgetService services.BudgetService
}

func NewTransferHandler(budgetService services.BudgetService) *TransferHandler {
	return &TransferHandler{budgetService: budgetService}
}

func (h *TransferHandler) HandleListTransfers(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	transfers, err := h.budgetService.ListTransfers(userID)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error listing transfers for userID %d: %v", userID, err), http.StatusInternalServerError)
		return
	}
	if transfers == nil {
		transfers = []models.BudgetTransfer{}
	}
	sendJSONWithETag(w, r, transfers)
}

func (h *TransferHandler) HandleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	var body struct {
		ToUserID     int64   `json:"to_user_id"`
		Amount       float64 `json:"amount"`
		Month        string  `json:"month"`
		Description  string  `json:"description"`
		TransferDate string  `json:"transfer_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Negative amounts are legal corrective adjustments, zero is not.
	if body.Amount == 0 {
		utils.SendJSONError(w, "amount must not be zero", http.StatusBadRequest)
		return
	}
	if body.Amount > 0 {
		if err := validation.ValidateAmount(body.Amount); err != nil {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if err := validation.ValidateMonthKey(body.Month); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.ToUserID <= 0 {
		utils.SendJSONError(w, "to_user_id is required", http.StatusBadRequest)
		return
	}
	transferDate, err := optionalDate(body.TransferDate, "transfer_date")
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	t := &models.BudgetTransfer{
		FromUserID:   userID,
		ToUserID:     body.ToUserID,
		Amount:       body.Amount,
		Month:        body.Month,
		Description:  validation.SanitizeDescription(body.Description),
		TransferDate: transferDate,
	}
	if err := h.budgetService.CreateTransfer(t); err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error creating transfer from userID %d: %v", userID, err), http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, t, http.StatusCreated)
}

func (h *TransferHandler) HandleDeleteTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}
	transferID, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = h.budgetService.DeleteTransfer(userID, transferID)
	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.SendJSONError(w, "Transfer not found", http.StatusNotFound)
	case err != nil:
		utils.SendJSONError(w, fmt.Sprintf("Error deleting transfer: %v", err), http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleImportStatement ingests a bank-statement CSV and bulk-inserts the rows
// as transfers to the authenticated user. Re-importing the same statement only
// adds rows not seen before.
func (h *TransferHandler) HandleImportStatement(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxStatementUploadSize)
	if err := r.ParseMultipartForm(maxStatementUploadSize); err != nil {
		utils.SendJSONError(w, "Failed to parse multipart form (file too large?)", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.SendJSONError(w, "Missing 'file' form field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if err := validation.ValidateClientContentType(header.Header.Get("Content-Type")); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	}
	if _, err := validation.ValidateFileContentByMagicBytes(file); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	}

	reader := csv.NewReader(file)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse CSV: %v", err), http.StatusBadRequest)
		return
	}

	fromUserID := userID
	if v := r.FormValue("from_user_id"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed <= 0 {
			utils.SendJSONError(w, "from_user_id must be a positive integer", http.StatusBadRequest)
			return
		}
		fromUserID = parsed
	}

	transfers, err := services.ParseBankStatementCSV(records, fromUserID)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Failed to interpret statement rows: %v", err), http.StatusBadRequest)
		return
	}
	if len(transfers) == 0 {
		utils.SendJSONError(w, "Statement contains no usable rows", http.StatusBadRequest)
		return
	}

	summary, err := h.budgetService.ImportTransfers(userID, transfers)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error importing transfers for userID %d: %v", userID, err), http.StatusInternalServerError)
		return
	}

	logger.L.Info("Bank statement imported", "userID", userID, "filename", header.Filename,
		"inserted", summary.Inserted, "skipped", summary.Skipped)
	utils.SendJSON(w, summary, http.StatusOK)
}
