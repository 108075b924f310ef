package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/budgetfolio/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}
	migrateExpensesTable()

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		is_email_verified BOOLEAN DEFAULT FALSE,
		verification_token TEXT,
		verification_token_expires_at TIMESTAMP,
		password_reset_token TEXT,
		password_reset_token_expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		user_agent TEXT,
		client_ip TEXT,
		is_blocked BOOLEAN DEFAULT FALSE,
		expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS invoices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		number TEXT,
		client_name TEXT NOT NULL,
		client_email TEXT,
		status TEXT NOT NULL DEFAULT 'bozza',
		invoice_date TEXT,
		due_date TEXT NOT NULL,
		paid_date TEXT,
		total_amount REAL NOT NULL,
		paid_amount REAL NOT NULL DEFAULT 0,
		remaining_amount REAL NOT NULL DEFAULT 0,
		exclude_from_budget BOOLEAN DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS expenses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		description TEXT NOT NULL,
		amount REAL NOT NULL,
		date TEXT NOT NULL,
		category TEXT,
		category_parent TEXT,
		category_child TEXT,
		payment_method TEXT,
		purchase_date TEXT,
		booked_date TEXT,
		recurring BOOLEAN DEFAULT FALSE,
		subscription_type TEXT,
		bill_type TEXT,
		bill_provider TEXT,
		bill_period_start TEXT,
		bill_period_end TEXT,
		consumption_value REAL,
		consumption_unit TEXT,
		is_paid BOOLEAN DEFAULT FALSE,
		paid_at TEXT,
		paid_by TEXT,
		is_family_expense BOOLEAN DEFAULT FALSE,
		linked_transfer_id INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS budget_transfers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		from_user_id INTEGER NOT NULL,
		to_user_id INTEGER NOT NULL,
		amount REAL NOT NULL,
		month TEXT NOT NULL,
		description TEXT,
		transfer_date TEXT,
		bank_row_key TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(from_user_id) REFERENCES users(id),
		FOREIGN KEY(to_user_id) REFERENCES users(id),
		UNIQUE(to_user_id, bank_row_key)
	);

	CREATE TABLE IF NOT EXISTS financial_settings (
		user_id INTEGER PRIMARY KEY,
		daily_rate REAL NOT NULL DEFAULT 0,
		pension_contribution REAL NOT NULL DEFAULT 0,
		pension_target REAL NOT NULL DEFAULT 0,
		pension_years INTEGER NOT NULL DEFAULT 0,
		pension_expected_return REAL NOT NULL DEFAULT 0,
		payment_delay_days INTEGER NOT NULL DEFAULT 0,
		manual_fixed_estimate REAL NOT NULL DEFAULT 0,
		manual_variable_estimate REAL NOT NULL DEFAULT 0,
		manual_bill_estimate REAL NOT NULL DEFAULT 0,
		use_manual_estimates BOOLEAN DEFAULT FALSE,
		initial_balance REAL NOT NULL DEFAULT 0,
		use_custom_initial_balance BOOLEAN DEFAULT FALSE,
		include_drafts BOOLEAN DEFAULT FALSE,
		is_secondary BOOLEAN DEFAULT FALSE,
		profile_tag TEXT,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_user ON invoices(user_id);
	CREATE INDEX IF NOT EXISTS idx_expenses_user_date ON expenses(user_id, date);
	CREATE INDEX IF NOT EXISTS idx_transfers_to_month ON budget_transfers(to_user_id, month);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// migrateExpensesTable adds columns introduced after the first release to an
// existing expenses table. The credit-card booking fields and the family
// attribution fields landed later, so older databases miss them.
func migrateExpensesTable() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='expenses'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			if logger.L != nil {
				logger.L.Info("'expenses' table does not exist, no migration needed as table will be created.")
			} else {
				stdlog.Println("'expenses' table does not exist, no migration needed as table will be created.")
			}
			return
		}
		if logger.L != nil {
			logger.L.Error("Error checking for 'expenses' table", "error", err)
		} else {
			stdlog.Printf("Error checking for 'expenses' table: %v", err)
		}
		return
	}

	rows, err := DB.Query("PRAGMA table_info(expenses)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for 'expenses'", "error", err)
		} else {
			stdlog.Printf("Error querying table schema for 'expenses': %v", err)
		}
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}

		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info for 'expenses'", "error", err)
			} else {
				stdlog.Printf("Error scanning column info for 'expenses': %v", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for 'expenses'", "error", err)
		} else {
			stdlog.Printf("Error iterating over column info for 'expenses': %v", err)
		}
		return
	}

	addColumn := func(name, definition string) {
		if columnExists[name] {
			return
		}
		if _, err := DB.Exec("ALTER TABLE expenses ADD COLUMN " + name + " " + definition); err != nil {
			logger.L.Error("Error adding column to 'expenses' table", "column", name, "error", err)
		} else {
			logger.L.Info("Added column to 'expenses' table", "column", name)
		}
	}

	addColumn("purchase_date", "TEXT")
	addColumn("booked_date", "TEXT")
	addColumn("subscription_type", "TEXT")
	addColumn("bill_period_start", "TEXT")
	addColumn("bill_period_end", "TEXT")
	addColumn("paid_by", "TEXT")
	addColumn("is_family_expense", "BOOLEAN DEFAULT FALSE")
	addColumn("linked_transfer_id", "INTEGER")
}
