package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/username/budgetfolio/backend/src/models"
	"github.com/username/budgetfolio/backend/src/security/validation"
	"github.com/username/budgetfolio/backend/src/services"
	"github.com/username/budgetfolio/backend/src/utils"
)

type SettingsHandler struct {
	budgetService services.BudgetService
}

func NewSettingsHandler(budgetService services.BudgetService) *SettingsHandler {
	return &SettingsHandler{budgetService: budgetService}
}

func (h *SettingsHandler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	settings, err := h.budgetService.GetSettings(userID)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error loading settings for userID %d: %v", userID, err), http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, settings, http.StatusOK)
}

func (h *SettingsHandler) HandleSaveSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	var settings models.FinancialSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// The record always belongs to the authenticated user, whatever the body says.
	settings.UserID = userID

	if settings.DailyRate < 0 {
		utils.SendJSONError(w, "daily_rate must not be negative", http.StatusBadRequest)
		return
	}
	if settings.PensionYears < 0 {
		utils.SendJSONError(w, "pension_years must not be negative", http.StatusBadRequest)
		return
	}
	if settings.PensionExpectedReturn < 0 || settings.PensionExpectedReturn > 1 {
		utils.SendJSONError(w, "pension_expected_return must be a rate between 0 and 1", http.StatusBadRequest)
		return
	}
	if settings.PaymentDelayDays < 0 || settings.PaymentDelayDays > 365 {
		utils.SendJSONError(w, "payment_delay_days must be between 0 and 365", http.StatusBadRequest)
		return
	}
	settings.ProfileTag = validation.SanitizeDescription(settings.ProfileTag)

	if err := h.budgetService.SaveSettings(&settings); err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error saving settings for userID %d: %v", userID, err), http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, settings, http.StatusOK)
}
