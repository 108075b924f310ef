package services

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/username/budgetfolio/backend/src/database"
	"github.com/username/budgetfolio/backend/src/logger"
	"github.com/username/budgetfolio/backend/src/models"
)

const transferColumns = `id, from_user_id, to_user_id, amount, month, description,
	transfer_date, bank_row_key, created_at`

func scanTransfer(scan func(dest ...interface{}) error) (models.BudgetTransfer, error) {
	var t models.BudgetTransfer
	var description, transferDate, bankRowKey sql.NullString
	err := scan(&t.ID, &t.FromUserID, &t.ToUserID, &t.Amount, &t.Month,
		&description, &transferDate, &bankRowKey, &t.CreatedAt)
	if err != nil {
		return t, err
	}
	t.Description = description.String
	t.TransferDate = parseDBDate(transferDate)
	t.BankRowKey = bankRowKey.String
	return t, nil
}

// ListTransfers returns the transfers received by a user, the income side of
// a secondary profile's budget.
func (s *budgetServiceImpl) ListTransfers(userID int64) ([]models.BudgetTransfer, error) {
	rows, err := database.DB.Query(
		`SELECT `+transferColumns+` FROM budget_transfers WHERE to_user_id = ? ORDER BY month, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying transfers: %w", err)
	}
	defer rows.Close()

	var transfers []models.BudgetTransfer
	for rows.Next() {
		t, err := scanTransfer(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning transfer row: %w", err)
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

// listTransfersTouching returns every transfer where the user appears on
// either side, as the carryover walk needs both directions.
func (s *budgetServiceImpl) listTransfersTouching(userID int64) ([]models.BudgetTransfer, error) {
	rows, err := database.DB.Query(
		`SELECT `+transferColumns+` FROM budget_transfers
		WHERE to_user_id = ? OR from_user_id = ? ORDER BY month, id`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying transfers: %w", err)
	}
	defer rows.Close()

	var transfers []models.BudgetTransfer
	for rows.Next() {
		t, err := scanTransfer(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning transfer row: %w", err)
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

func (s *budgetServiceImpl) CreateTransfer(t *models.BudgetTransfer) error {
	var bankRowKey interface{}
	if t.BankRowKey != "" {
		bankRowKey = t.BankRowKey
	}
	res, err := database.DB.Exec(`
		INSERT INTO budget_transfers (from_user_id, to_user_id, amount, month, description, transfer_date, bank_row_key)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.FromUserID, t.ToUserID, t.Amount, t.Month, t.Description, formatDBDate(t.TransferDate), bankRowKey)
	if err != nil {
		return fmt.Errorf("inserting transfer: %w", err)
	}
	t.ID, _ = res.LastInsertId()

	s.InvalidateUserCache(t.FromUserID)
	s.InvalidateUserCache(t.ToUserID)
	return nil
}

// ImportTransfers bulk-inserts bank-statement rows. Rows whose bank_row_key
// already exists for the recipient are skipped, so re-importing the same
// statement is harmless.
func (s *budgetServiceImpl) ImportTransfers(toUserID int64, transfers []models.BudgetTransfer) (*ImportSummary, error) {
	dbTx, err := database.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(`
		INSERT INTO budget_transfers (from_user_id, to_user_id, amount, month, description, transfer_date, bank_row_key)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	summary := &ImportSummary{}
	for _, t := range transfers {
		_, err := stmt.Exec(t.FromUserID, toUserID, t.Amount, t.Month, t.Description,
			formatDBDate(t.TransferDate), t.BankRowKey)
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
				logger.L.Debug("Skipping duplicate bank row on import", "toUserID", toUserID, "bankRowKey", t.BankRowKey)
				summary.Skipped++
				continue
			}
			return nil, fmt.Errorf("error inserting transfer (bankRowKey: %s): %w", t.BankRowKey, err)
		}
		summary.Inserted++
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing transfers: %w", err)
	}

	s.InvalidateUserCache(toUserID)
	logger.L.Info("Imported bank-statement transfers", "toUserID", toUserID,
		"inserted", summary.Inserted, "skipped", summary.Skipped)
	return summary, nil
}

func (s *budgetServiceImpl) DeleteTransfer(userID, transferID int64) error {
	row := database.DB.QueryRow(
		`SELECT from_user_id, to_user_id FROM budget_transfers WHERE id = ? AND (from_user_id = ? OR to_user_id = ?)`,
		transferID, userID, userID)
	var fromID, toID int64
	if err := row.Scan(&fromID, &toID); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("querying transfer %d: %w", transferID, err)
	}

	if _, err := database.DB.Exec(`DELETE FROM budget_transfers WHERE id = ?`, transferID); err != nil {
		return fmt.Errorf("deleting transfer: %w", err)
	}

	s.InvalidateUserCache(fromID)
	s.InvalidateUserCache(toID)
	return nil
}

// ParseBankStatementCSV turns bank-export rows into transfers for bulk import.
// Expected columns: date;amount;description. The month bucket derives from the
// row date and the dedup key from the raw row content.
func ParseBankStatementCSV(records [][]string, fromUserID int64) ([]models.BudgetTransfer, error) {
	var transfers []models.BudgetTransfer
	for i, rec := range records {
		if len(rec) < 2 {
			continue
		}
		// Tolerate a header row on the first line.
		date, err := time.Parse(dateLayout, strings.TrimSpace(rec[0]))
		if err != nil {
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("row %d: bad date '%s'", i+1, rec[0])
		}
		amountStr := strings.ReplaceAll(strings.TrimSpace(rec[1]), ",", ".")
		var amount float64
		if _, err := fmt.Sscanf(amountStr, "%f", &amount); err != nil {
			return nil, fmt.Errorf("row %d: bad amount '%s'", i+1, rec[1])
		}
		description := ""
		if len(rec) > 2 {
			description = strings.TrimSpace(rec[2])
		}
		transfers = append(transfers, models.BudgetTransfer{
			FromUserID:   fromUserID,
			Amount:       amount,
			Month:        date.Format("2006-01"),
			Description:  description,
			TransferDate: &date,
			BankRowKey:   fmt.Sprintf("%s|%s|%s", rec[0], rec[1], description),
		})
	}
	return transfers, nil
}
