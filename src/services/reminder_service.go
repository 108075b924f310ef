package services

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/username/budgetfolio/backend/src/logger"
)

// ReminderService runs the daily overdue-invoice scan. Every overdue invoice
// with a client address gets a payment reminder; the invoice owner gets one
// summary per run.
type ReminderService struct {
	budgetService BudgetService
	emailService  EmailService
	cronSpec      string
	scheduler     *cron.Cron
}

func NewReminderService(budgetService BudgetService, emailService EmailService, cronSpec string) *ReminderService {
	return &ReminderService{
		budgetService: budgetService,
		emailService:  emailService,
		cronSpec:      cronSpec,
	}
}

// Start schedules the scan. The first run happens at the next cron tick, not
// at startup.
func (s *ReminderService) Start() error {
	s.scheduler = cron.New()
	if _, err := s.scheduler.AddFunc(s.cronSpec, s.RunOnce); err != nil {
		return err
	}
	s.scheduler.Start()
	logger.L.Info("Overdue invoice reminder job scheduled", "cronSpec", s.cronSpec)
	return nil
}

func (s *ReminderService) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// RunOnce performs a single scan and send cycle.
func (s *ReminderService) RunOnce() {
	started := time.Now()
	overdue, err := s.budgetService.ListOverdueInvoices(started)
	if err != nil {
		logger.L.Error("Overdue invoice scan failed", "error", err)
		return
	}
	if len(overdue) == 0 {
		logger.L.Info("Overdue invoice scan: nothing due")
		return
	}

	type ownerTotals struct {
		name        string
		email       string
		count       int
		outstanding float64
	}
	byOwner := make(map[int64]*ownerTotals)

	sent := 0
	for _, o := range overdue {
		inv := o.Invoice
		if inv.ClientEmail != "" {
			err := s.emailService.SendPaymentReminderEmail(
				inv.ClientEmail, inv.ClientName, inv.Number, inv.RemainingAmount, inv.DueDate)
			if err != nil {
				logger.L.Error("Failed to send payment reminder", "invoiceID", inv.ID, "error", err)
			} else {
				sent++
			}
		}
		t := byOwner[inv.UserID]
		if t == nil {
			t = &ownerTotals{name: o.OwnerName, email: o.UserEmail}
			byOwner[inv.UserID] = t
		}
		t.count++
		t.outstanding += inv.RemainingAmount
	}

	for userID, t := range byOwner {
		if t.email == "" {
			continue
		}
		if err := s.emailService.SendOverdueSummaryEmail(t.email, t.name, t.count, t.outstanding); err != nil {
			logger.L.Error("Failed to send overdue summary", "userID", userID, "error", err)
		}
	}

	logger.L.Info("Overdue invoice scan finished",
		"overdue", len(overdue), "remindersSent", sent, "duration", time.Since(started))
}
