package services

import (
	"database/sql"
	"fmt"

	"github.com/username/budgetfolio/backend/src/database"
	"github.com/username/budgetfolio/backend/src/models"
)

// GetSettings returns the user's financial settings, or defaults when the
// user has never saved any.
func (s *budgetServiceImpl) GetSettings(userID int64) (*models.FinancialSettings, error) {
	row := database.DB.QueryRow(`
		SELECT user_id, daily_rate, pension_contribution, pension_target, pension_years,
			pension_expected_return, payment_delay_days, manual_fixed_estimate,
			manual_variable_estimate, manual_bill_estimate, use_manual_estimates,
			initial_balance, use_custom_initial_balance, include_drafts, is_secondary, profile_tag
		FROM financial_settings WHERE user_id = ?`, userID)

	var settings models.FinancialSettings
	var profileTag sql.NullString
	err := row.Scan(
		&settings.UserID, &settings.DailyRate, &settings.PensionContribution,
		&settings.PensionTarget, &settings.PensionYears, &settings.PensionExpectedReturn,
		&settings.PaymentDelayDays, &settings.ManualFixedEstimate,
		&settings.ManualVariableEstimate, &settings.ManualBillEstimate,
		&settings.UseManualEstimates, &settings.InitialBalance,
		&settings.UseCustomInitialBalance, &settings.IncludeDrafts,
		&settings.IsSecondary, &profileTag,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return &models.FinancialSettings{UserID: userID}, nil
		}
		return nil, fmt.Errorf("querying financial settings: %w", err)
	}
	settings.ProfileTag = profileTag.String
	return &settings, nil
}

// SaveSettings upserts the user's settings row.
func (s *budgetServiceImpl) SaveSettings(settings *models.FinancialSettings) error {
	_, err := database.DB.Exec(`
		INSERT INTO financial_settings (user_id, daily_rate, pension_contribution, pension_target,
			pension_years, pension_expected_return, payment_delay_days, manual_fixed_estimate,
			manual_variable_estimate, manual_bill_estimate, use_manual_estimates,
			initial_balance, use_custom_initial_balance, include_drafts, is_secondary, profile_tag)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			daily_rate = excluded.daily_rate,
			pension_contribution = excluded.pension_contribution,
			pension_target = excluded.pension_target,
			pension_years = excluded.pension_years,
			pension_expected_return = excluded.pension_expected_return,
			payment_delay_days = excluded.payment_delay_days,
			manual_fixed_estimate = excluded.manual_fixed_estimate,
			manual_variable_estimate = excluded.manual_variable_estimate,
			manual_bill_estimate = excluded.manual_bill_estimate,
			use_manual_estimates = excluded.use_manual_estimates,
			initial_balance = excluded.initial_balance,
			use_custom_initial_balance = excluded.use_custom_initial_balance,
			include_drafts = excluded.include_drafts,
			is_secondary = excluded.is_secondary,
			profile_tag = excluded.profile_tag,
			updated_at = CURRENT_TIMESTAMP`,
		settings.UserID, settings.DailyRate, settings.PensionContribution, settings.PensionTarget,
		settings.PensionYears, settings.PensionExpectedReturn, settings.PaymentDelayDays,
		settings.ManualFixedEstimate, settings.ManualVariableEstimate, settings.ManualBillEstimate,
		settings.UseManualEstimates, settings.InitialBalance, settings.UseCustomInitialBalance,
		settings.IncludeDrafts, settings.IsSecondary, settings.ProfileTag)
	if err != nil {
		return fmt.Errorf("saving financial settings: %w", err)
	}

	s.InvalidateUserCache(settings.UserID)
	return nil
}
