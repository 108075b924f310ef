package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/username/budgetfolio/backend/src/database"
	"github.com/username/budgetfolio/backend/src/logger"
	"github.com/username/budgetfolio/backend/src/models"
)

const dateLayout = "2006-01-02"

func parseDBDate(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func formatDBDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func scanInvoice(scan func(dest ...interface{}) error) (models.Invoice, error) {
	var inv models.Invoice
	var number, clientEmail, invoiceDate, paidDate sql.NullString
	var dueDate string
	err := scan(
		&inv.ID, &inv.UserID, &number, &inv.ClientName, &clientEmail,
		&inv.Status, &invoiceDate, &dueDate, &paidDate,
		&inv.TotalAmount, &inv.PaidAmount, &inv.RemainingAmount, &inv.ExcludeFromBudget,
	)
	if err != nil {
		return inv, err
	}
	inv.Number = number.String
	inv.ClientEmail = clientEmail.String
	if d := parseDBDate(invoiceDate); d != nil {
		inv.InvoiceDate = *d
	}
	if d, err := time.Parse(dateLayout, dueDate); err == nil {
		inv.DueDate = d
	}
	inv.PaidDate = parseDBDate(paidDate)
	return inv, nil
}

const invoiceColumns = `id, user_id, number, client_name, client_email, status,
	invoice_date, due_date, paid_date, total_amount, paid_amount, remaining_amount, exclude_from_budget`

func (s *budgetServiceImpl) ListInvoices(userID int64) ([]models.Invoice, error) {
	rows, err := database.DB.Query(
		`SELECT `+invoiceColumns+` FROM invoices WHERE user_id = ? ORDER BY due_date, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying invoices: %w", err)
	}
	defer rows.Close()

	var invoices []models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning invoice row: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (s *budgetServiceImpl) getInvoice(userID, invoiceID int64) (*models.Invoice, error) {
	row := database.DB.QueryRow(
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = ? AND user_id = ?`, invoiceID, userID)
	inv, err := scanInvoice(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying invoice %d: %w", invoiceID, err)
	}
	return &inv, nil
}

func (s *budgetServiceImpl) CreateInvoice(inv *models.Invoice) error {
	if inv.Status == "" {
		inv.Status = models.InvoiceBozza
	}
	inv.SyncRemaining()

	res, err := database.DB.Exec(`
		INSERT INTO invoices (user_id, number, client_name, client_email, status,
			invoice_date, due_date, paid_date, total_amount, paid_amount, remaining_amount, exclude_from_budget)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.UserID, inv.Number, inv.ClientName, inv.ClientEmail, inv.Status,
		inv.InvoiceDate.Format(dateLayout), inv.DueDate.Format(dateLayout), formatDBDate(inv.PaidDate),
		inv.TotalAmount, inv.PaidAmount, inv.RemainingAmount, inv.ExcludeFromBudget)
	if err != nil {
		return fmt.Errorf("inserting invoice: %w", err)
	}
	inv.ID, _ = res.LastInsertId()

	s.InvalidateUserCache(inv.UserID)
	return nil
}

// UpdateInvoiceStatus moves an invoice along its lifecycle. Only the forward
// moves allowed by the state machine succeed.
func (s *budgetServiceImpl) UpdateInvoiceStatus(userID, invoiceID int64, next models.InvoiceStatus) error {
	inv, err := s.getInvoice(userID, invoiceID)
	if err != nil {
		return err
	}
	if !inv.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, inv.Status, next)
	}

	inv.Status = next
	if next == models.InvoicePagata {
		inv.PaidAmount = inv.TotalAmount
		if inv.PaidDate == nil {
			now := time.Now()
			inv.PaidDate = &now
		}
	}
	inv.SyncRemaining()

	_, err = database.DB.Exec(`
		UPDATE invoices SET status = ?, paid_amount = ?, remaining_amount = ?, paid_date = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?`,
		inv.Status, inv.PaidAmount, inv.RemainingAmount, formatDBDate(inv.PaidDate), invoiceID, userID)
	if err != nil {
		return fmt.Errorf("updating invoice status: %w", err)
	}

	s.InvalidateUserCache(userID)
	return nil
}

// RecordInvoicePayment books a partial or full payment against an invoice.
// The status follows the amount: parziale while something remains, pagata
// once settled.
func (s *budgetServiceImpl) RecordInvoicePayment(userID, invoiceID int64, amount float64, paidDate time.Time) error {
	inv, err := s.getInvoice(userID, invoiceID)
	if err != nil {
		return err
	}
	if inv.Status == models.InvoiceBozza {
		return fmt.Errorf("%w: cannot record a payment on a draft", ErrInvalidTransition)
	}
	remaining := inv.TotalAmount - inv.PaidAmount
	if amount > remaining+0.005 {
		return fmt.Errorf("%w: %.2f remaining, got %.2f", ErrOverpayment, remaining, amount)
	}

	inv.PaidAmount += amount
	inv.PaidDate = &paidDate
	if inv.TotalAmount-inv.PaidAmount < 0.005 {
		inv.Status = models.InvoicePagata
		inv.PaidAmount = inv.TotalAmount
	} else {
		inv.Status = models.InvoiceParziale
	}
	inv.SyncRemaining()

	_, err = database.DB.Exec(`
		UPDATE invoices SET status = ?, paid_amount = ?, remaining_amount = ?, paid_date = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?`,
		inv.Status, inv.PaidAmount, inv.RemainingAmount, formatDBDate(inv.PaidDate), invoiceID, userID)
	if err != nil {
		return fmt.Errorf("recording invoice payment: %w", err)
	}

	logger.L.Info("Recorded invoice payment", "userID", userID, "invoiceID", invoiceID, "amount", amount, "status", inv.Status)
	s.InvalidateUserCache(userID)
	return nil
}

// ListOverdueInvoices returns unpaid, non-draft invoices past their due date,
// joined with the owning user's address for the reminder job.
func (s *budgetServiceImpl) ListOverdueInvoices(asOf time.Time) ([]OverdueInvoice, error) {
	rows, err := database.DB.Query(`
		SELECT i.id, i.user_id, i.number, i.client_name, i.client_email, i.status,
			i.invoice_date, i.due_date, i.paid_date, i.total_amount, i.paid_amount,
			i.remaining_amount, i.exclude_from_budget,
			u.username, u.email
		FROM invoices i
		JOIN users u ON u.id = i.user_id
		WHERE i.status IN ('inviata', 'parziale') AND i.due_date < ?
		ORDER BY i.due_date`, asOf.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("querying overdue invoices: %w", err)
	}
	defer rows.Close()

	var overdue []OverdueInvoice
	for rows.Next() {
		var o OverdueInvoice
		var number, clientEmail, invoiceDate, paidDate sql.NullString
		var dueDate string
		err := rows.Scan(
			&o.Invoice.ID, &o.Invoice.UserID, &number, &o.Invoice.ClientName, &clientEmail,
			&o.Invoice.Status, &invoiceDate, &dueDate, &paidDate,
			&o.Invoice.TotalAmount, &o.Invoice.PaidAmount, &o.Invoice.RemainingAmount,
			&o.Invoice.ExcludeFromBudget, &o.OwnerName, &o.UserEmail)
		if err != nil {
			return nil, fmt.Errorf("scanning overdue invoice row: %w", err)
		}
		o.Invoice.Number = number.String
		o.Invoice.ClientEmail = clientEmail.String
		if d := parseDBDate(invoiceDate); d != nil {
			o.Invoice.InvoiceDate = *d
		}
		if d, err := time.Parse(dateLayout, dueDate); err == nil {
			o.Invoice.DueDate = d
		}
		o.Invoice.PaidDate = parseDBDate(paidDate)
		overdue = append(overdue, o)
	}
	return overdue, rows.Err()
}
