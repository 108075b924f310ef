package services

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/budgetfolio/backend/src/logger"
	"github.com/username/budgetfolio/backend/src/models"
	"github.com/username/budgetfolio/backend/src/processors"
	"github.com/username/budgetfolio/backend/src/utils"
)

const (
	// Long-lived caches for full engine runs
	ckForecast = "res_budget_forecast_user_%d_f%d_p%d"
	ckWorkPlan = "res_work_plan_user_%d"

	// Short-lived, aggregate caches
	ckProviderForecasts = "agg_provider_forecasts_user_%d"
	ckAccumulated       = "agg_accumulated_user_%d_%s_%s"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type budgetServiceImpl struct {
	billCycle   processors.BillCycleEstimator
	forecaster  processors.BudgetForecaster
	carryover   processors.CarryoverCalculator
	workPlanner processors.WorkPlanner
	reportCache *cache.Cache
}

func NewBudgetService(
	billCycle processors.BillCycleEstimator,
	forecaster processors.BudgetForecaster,
	carryover processors.CarryoverCalculator,
	workPlanner processors.WorkPlanner,
	reportCache *cache.Cache,
) BudgetService {
	return &budgetServiceImpl{
		billCycle:   billCycle,
		forecaster:  forecaster,
		carryover:   carryover,
		workPlanner: workPlanner,
		reportCache: reportCache,
	}
}

// GetForecast runs the monthly budget engine over the user's stored rows.
// Profile settings (secondary flag, tag) always come from the database; the
// caller only controls the window and the already-spent adjustment.
func (s *budgetServiceImpl) GetForecast(userID int64, opts processors.ForecastOptions) (*processors.ForecastResult, error) {
	cacheKey := fmt.Sprintf(ckForecast, userID, opts.ForecastMonths, opts.PastMonths)
	cacheable := opts.CurrentAlreadySpent == 0 && opts.Now.IsZero()
	if cacheable {
		if cached, found := s.reportCache.Get(cacheKey); found {
			logger.L.Debug("Cache hit for GetForecast", "userID", userID)
			return cached.(*processors.ForecastResult), nil
		}
	}

	settings, err := s.GetSettings(userID)
	if err != nil {
		return nil, err
	}
	opts.IsSecondary = settings.IsSecondary
	opts.ProfileTag = settings.ProfileTag

	invoices, err := s.ListInvoices(userID)
	if err != nil {
		return nil, err
	}
	expenses, err := s.ListExpenses(userID)
	if err != nil {
		return nil, err
	}
	transfers, err := s.ListTransfers(userID)
	if err != nil {
		return nil, err
	}

	result := s.forecaster.Forecast(invoices, expenses, transfers, opts)
	if cacheable {
		s.reportCache.Set(cacheKey, result, DefaultCacheExpiration)
	}
	return result, nil
}

// GetWorkPlan runs the work-day projection with the user's financial settings.
// One-off expected expenses come from the request and bypass the cache.
func (s *budgetServiceImpl) GetWorkPlan(userID int64, expected []processors.ExpectedExpense) (*processors.WorkPlanResult, error) {
	cacheKey := fmt.Sprintf(ckWorkPlan, userID)
	if len(expected) == 0 {
		if cached, found := s.reportCache.Get(cacheKey); found {
			logger.L.Debug("Cache hit for GetWorkPlan", "userID", userID)
			return cached.(*processors.WorkPlanResult), nil
		}
	}

	settings, err := s.GetSettings(userID)
	if err != nil {
		return nil, err
	}
	invoices, err := s.ListInvoices(userID)
	if err != nil {
		return nil, err
	}
	expenses, err := s.ListExpenses(userID)
	if err != nil {
		return nil, err
	}
	transfers, err := s.listTransfersTouching(userID)
	if err != nil {
		return nil, err
	}

	result := s.workPlanner.Plan(invoices, expenses, processors.WorkPlanOptions{
		Settings:              *settings,
		ExpectedExpenses:      expected,
		FamilyTransferMonthly: averageOutgoingTransfer(transfers, userID, time.Now()),
	})
	if len(expected) == 0 {
		s.reportCache.Set(cacheKey, result, DefaultCacheExpiration)
	}
	return result, nil
}

// averageOutgoingTransfer estimates the recurring monthly family contribution
// as the average of the user's outgoing transfers over the last three months.
func averageOutgoingTransfer(transfers []models.BudgetTransfer, userID int64, now time.Time) float64 {
	currentStart := utils.StartOfMonth(now)
	var total float64
	for _, t := range transfers {
		if t.FromUserID != userID {
			continue
		}
		monthStart, err := utils.ParseMonthKey(t.Month)
		if err != nil {
			continue
		}
		if back := utils.MonthsBetween(monthStart, currentStart); back >= 1 && back <= 3 {
			total += t.Amount
		}
	}
	return total / 3
}

// GetProviderForecasts exposes the bill-cycle projection on its own.
func (s *budgetServiceImpl) GetProviderForecasts(userID int64, forecastMonths int) ([]models.ProviderForecast, float64, error) {
	cacheKey := fmt.Sprintf(ckProviderForecasts, userID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		forecasts := cached.([]models.ProviderForecast)
		return forecasts, s.billCycle.TotalMonthlyEstimate(forecasts), nil
	}

	expenses, err := s.ListExpenses(userID)
	if err != nil {
		return nil, 0, err
	}
	forecasts := s.billCycle.Estimate(expenses, time.Now(), forecastMonths)
	s.reportCache.Set(cacheKey, forecasts, DefaultCacheExpiration)
	return forecasts, s.billCycle.TotalMonthlyEstimate(forecasts), nil
}

// GetAccumulatedBudget computes the accumulated position for a family member
// up to the given month.
func (s *budgetServiceImpl) GetAccumulatedBudget(userID int64, month string, direction processors.TransferDirection) (models.AccumulatedBudget, error) {
	cacheKey := fmt.Sprintf(ckAccumulated, userID, month, direction)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.(models.AccumulatedBudget), nil
	}

	transfers, err := s.listTransfersTouching(userID)
	if err != nil {
		return models.AccumulatedBudget{}, err
	}
	expenses, err := s.ListExpenses(userID)
	if err != nil {
		return models.AccumulatedBudget{}, err
	}

	spentByMonth := make(map[string]float64)
	for _, e := range expenses {
		e.Normalize()
		spentByMonth[e.EffectiveDate().Format("2006-01")] += e.Amount
	}

	result := s.carryover.Accumulate(month, userID, direction, transfers, spentByMonth)
	s.reportCache.Set(cacheKey, result, DefaultCacheExpiration)
	return result, nil
}

// InvalidateUserCache clears all cached reports for a user, forcing a full
// recomputation on the next request. Called after every mutation.
func (s *budgetServiceImpl) InvalidateUserCache(userID int64) {
	prefixes := []string{
		fmt.Sprintf("res_budget_forecast_user_%d", userID),
		fmt.Sprintf(ckWorkPlan, userID),
		fmt.Sprintf(ckProviderForecasts, userID),
		fmt.Sprintf("agg_accumulated_user_%d", userID),
	}
	for key := range s.reportCache.Items() {
		for _, p := range prefixes {
			if len(key) >= len(p) && key[:len(p)] == p {
				s.reportCache.Delete(key)
				break
			}
		}
	}
	logger.L.Info("Invalidated all caches for user", "userID", userID)
}
