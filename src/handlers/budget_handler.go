package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/username/budgetfolio/backend/src/config"
	"github.com/username/budgetfolio/backend/src/processors"
	"github.com/username/budgetfolio/backend/src/security/validation"
	"github.com/username/budgetfolio/backend/src/services"
	"github.com/username/budgetfolio/backend/src/utils"
)

// BudgetHandler serves the read-only report endpoints backed by the
// forecasting engines.
type BudgetHandler struct {
	budgetService services.BudgetService
}

func NewBudgetHandler(budgetService services.BudgetService) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService}
}

// sendJSONWithETag answers 304 when the client already holds the current
// representation, otherwise sends the body with its ETag.
func sendJSONWithETag(w http.ResponseWriter, r *http.Request, data interface{}) {
	etag, err := utils.GenerateETag(data)
	if err != nil {
		utils.SendJSON(w, data, http.StatusOK)
		return
	}
	w.Header().Set("ETag", `"`+etag+`"`)
	if match := r.Header.Get("If-None-Match"); match != "" && strings.Trim(match, `"`) == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	utils.SendJSON(w, data, http.StatusOK)
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (h *BudgetHandler) HandleGetForecast(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	opts := processors.ForecastOptions{
		ForecastMonths: queryInt(r, "forecastMonths", config.Cfg.DefaultForecastMonths),
		PastMonths:     queryInt(r, "pastMonths", config.Cfg.DefaultPastMonths),
		HorizonMonths:  config.Cfg.OverspendHorizonMonths,
	}
	if spent := r.URL.Query().Get("alreadySpent"); spent != "" {
		v, err := strconv.ParseFloat(spent, 64)
		if err != nil {
			utils.SendJSONError(w, "alreadySpent must be a number", http.StatusBadRequest)
			return
		}
		opts.CurrentAlreadySpent = v
	}

	result, err := h.budgetService.GetForecast(userID, opts)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error computing forecast for userID %d: %v", userID, err), http.StatusInternalServerError)
		return
	}
	sendJSONWithETag(w, r, result)
}

func (h *BudgetHandler) HandleGetWorkPlan(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	var expected []processors.ExpectedExpense
	if r.Method == http.MethodPost {
		var body struct {
			ExpectedExpenses []processors.ExpectedExpense `json:"expected_expenses"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		for _, x := range body.ExpectedExpenses {
			if err := validation.ValidateMonthKey(x.Month); err != nil {
				utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		expected = body.ExpectedExpenses
	}

	result, err := h.budgetService.GetWorkPlan(userID, expected)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error computing work plan for userID %d: %v", userID, err), http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, result, http.StatusOK)
}

func (h *BudgetHandler) HandleGetProviderForecasts(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	forecasts, totalMonthly, err := h.budgetService.GetProviderForecasts(userID, queryInt(r, "forecastMonths", config.Cfg.DefaultForecastMonths))
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error computing provider forecasts for userID %d: %v", userID, err), http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, map[string]interface{}{
		"provider_forecasts":     forecasts,
		"total_monthly_estimate": totalMonthly,
	}, http.StatusOK)
}

func (h *BudgetHandler) HandleGetAccumulatedBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	month := r.URL.Query().Get("month")
	if month == "" {
		month = time.Now().Format("2006-01")
	}
	if err := validation.ValidateMonthKey(month); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	direction := processors.TransferIncoming
	if r.URL.Query().Get("direction") == string(processors.TransferOutgoing) {
		direction = processors.TransferOutgoing
	}

	result, err := h.budgetService.GetAccumulatedBudget(userID, month, direction)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error computing accumulated budget for userID %d: %v", userID, err), http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, result, http.StatusOK)
}
