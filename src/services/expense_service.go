package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/username/budgetfolio/backend/src/database"
	"github.com/username/budgetfolio/backend/src/models"
)

const expenseColumns = `id, user_id, description, amount, date, category, category_parent,
	category_child, payment_method, purchase_date, booked_date, recurring, subscription_type,
	bill_type, bill_provider, bill_period_start, bill_period_end, consumption_value,
	consumption_unit, is_paid, paid_at, paid_by, is_family_expense, linked_transfer_id`

func scanExpense(scan func(dest ...interface{}) error) (models.Expense, error) {
	var e models.Expense
	var date string
	var category, categoryParent, categoryChild, paymentMethod sql.NullString
	var purchaseDate, bookedDate, subscriptionType, billType, billProvider sql.NullString
	var periodStart, periodEnd, consumptionUnit, paidAt, paidBy sql.NullString
	var consumptionValue sql.NullFloat64
	var linkedTransferID sql.NullInt64

	err := scan(
		&e.ID, &e.UserID, &e.Description, &e.Amount, &date, &category, &categoryParent,
		&categoryChild, &paymentMethod, &purchaseDate, &bookedDate, &e.Recurring, &subscriptionType,
		&billType, &billProvider, &periodStart, &periodEnd, &consumptionValue,
		&consumptionUnit, &e.IsPaid, &paidAt, &paidBy, &e.IsFamilyExpense, &linkedTransferID,
	)
	if err != nil {
		return e, err
	}

	if d, err := time.Parse(dateLayout, date); err == nil {
		e.Date = d
	}
	e.Category = category.String
	e.CategoryParent = categoryParent.String
	e.CategoryChild = categoryChild.String
	e.PaymentMethod = models.PaymentMethod(paymentMethod.String)
	e.PurchaseDate = parseDBDate(purchaseDate)
	e.BookedDate = parseDBDate(bookedDate)
	e.SubscriptionType = subscriptionType.String
	e.BillType = billType.String
	e.BillProvider = billProvider.String
	e.BillPeriodStart = parseDBDate(periodStart)
	e.BillPeriodEnd = parseDBDate(periodEnd)
	if consumptionValue.Valid {
		v := consumptionValue.Float64
		e.ConsumptionValue = &v
	}
	e.ConsumptionUnit = consumptionUnit.String
	e.PaidAt = parseDBDate(paidAt)
	e.PaidBy = paidBy.String
	if linkedTransferID.Valid {
		id := linkedTransferID.Int64
		e.LinkedTransferID = &id
	}
	e.Normalize()
	return e, nil
}

func (s *budgetServiceImpl) ListExpenses(userID int64) ([]models.Expense, error) {
	rows, err := database.DB.Query(
		`SELECT `+expenseColumns+` FROM expenses WHERE user_id = ? ORDER BY date, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning expense row: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (s *budgetServiceImpl) CreateExpense(e *models.Expense) error {
	e.Normalize()
	var consumptionValue interface{}
	if e.ConsumptionValue != nil {
		consumptionValue = *e.ConsumptionValue
	}
	var linkedTransferID interface{}
	if e.LinkedTransferID != nil {
		linkedTransferID = *e.LinkedTransferID
	}

	res, err := database.DB.Exec(`
		INSERT INTO expenses (user_id, description, amount, date, category, category_parent,
			category_child, payment_method, purchase_date, booked_date, recurring, subscription_type,
			bill_type, bill_provider, bill_period_start, bill_period_end, consumption_value,
			consumption_unit, is_paid, paid_at, paid_by, is_family_expense, linked_transfer_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Description, e.Amount, e.Date.Format(dateLayout), e.Category, e.CategoryParent,
		e.CategoryChild, string(e.PaymentMethod), formatDBDate(e.PurchaseDate), formatDBDate(e.BookedDate),
		e.Recurring, e.SubscriptionType, e.BillType, e.BillProvider,
		formatDBDate(e.BillPeriodStart), formatDBDate(e.BillPeriodEnd), consumptionValue,
		e.ConsumptionUnit, e.IsPaid, formatDBDate(e.PaidAt), e.PaidBy, e.IsFamilyExpense, linkedTransferID)
	if err != nil {
		return fmt.Errorf("inserting expense: %w", err)
	}
	e.ID, _ = res.LastInsertId()

	s.InvalidateUserCache(e.UserID)
	return nil
}

func (s *budgetServiceImpl) DeleteExpense(userID, expenseID int64) error {
	res, err := database.DB.Exec(`DELETE FROM expenses WHERE id = ? AND user_id = ?`, expenseID, userID)
	if err != nil {
		return fmt.Errorf("deleting expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	s.InvalidateUserCache(userID)
	return nil
}

// MarkBillPaid records the payment date of a utility bill. The paid date, not
// the bill's own date, decides which budget month absorbs the amount.
func (s *budgetServiceImpl) MarkBillPaid(userID, expenseID int64, paidAt time.Time) error {
	res, err := database.DB.Exec(`
		UPDATE expenses SET is_paid = TRUE, paid_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?`,
		paidAt.Format(dateLayout), expenseID, userID)
	if err != nil {
		return fmt.Errorf("marking bill paid: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	s.InvalidateUserCache(userID)
	return nil
}
