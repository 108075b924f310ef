package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/username/budgetfolio/backend/src/models"
)

const (
	maxDescriptionLength = 500
	maxAmount            = 1_000_000
)

var monthKeyPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidateAmount rejects non-finite, non-positive or absurdly large amounts.
// The engines themselves never validate; malformed numbers must be stopped here.
func ValidateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("amount must be a finite number")
	}
	if amount <= 0 {
		return fmt.Errorf("amount must be greater than zero")
	}
	if amount > maxAmount {
		return fmt.Errorf("amount exceeds the maximum of %d", maxAmount)
	}
	return nil
}

// ValidateMonthKey checks the yyyy-MM format used throughout the budget API.
func ValidateMonthKey(month string) error {
	if !monthKeyPattern.MatchString(month) {
		return fmt.Errorf("month must be in yyyy-MM format, got '%s'", month)
	}
	return nil
}

// ValidateDate parses a yyyy-MM-dd date string.
func ValidateDate(date string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be in yyyy-MM-dd format, got '%s'", date)
	}
	return t, nil
}

// ValidateDescription enforces length limits on free-text fields.
func ValidateDescription(desc string) error {
	if strings.TrimSpace(desc) == "" {
		return fmt.Errorf("description must not be empty")
	}
	if len(desc) > maxDescriptionLength {
		return fmt.Errorf("description exceeds %d characters", maxDescriptionLength)
	}
	return nil
}

// ValidatePaymentMethod accepts the known payment method values or empty.
func ValidatePaymentMethod(pm string) error {
	switch models.PaymentMethod(pm) {
	case "", models.PaymentContanti, models.PaymentBancomat, models.PaymentCartaCredito, models.PaymentBonifico:
		return nil
	}
	return fmt.Errorf("unknown payment method '%s'", pm)
}

// ValidateInvoiceStatus accepts the known invoice lifecycle states.
func ValidateInvoiceStatus(status string) error {
	switch models.InvoiceStatus(status) {
	case models.InvoiceBozza, models.InvoiceInviata, models.InvoiceParziale, models.InvoicePagata:
		return nil
	}
	return fmt.Errorf("unknown invoice status '%s'", status)
}

// ValidateUsername enforces the username shape accepted at registration.
func ValidateUsername(username string) error {
	if len(username) < 3 || len(username) > 50 {
		return fmt.Errorf("username must be between 3 and 50 characters")
	}
	for _, r := range username {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '.' || r == '-') {
			return fmt.Errorf("username contains invalid characters")
		}
	}
	return nil
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateEmail checks the basic shape of an email address. Deliverability is
// proven by the verification email, not by the regex.
func ValidateEmail(email string) error {
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// ValidatePassword enforces a minimum password length.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if len(password) > 128 {
		return fmt.Errorf("password exceeds 128 characters")
	}
	return nil
}
