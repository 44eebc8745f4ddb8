// Package notification turns billing follow-up intervals into reminder
// emails for the front desk.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clinidesk/frontdesk-api/internal/email"
	"github.com/clinidesk/frontdesk-api/internal/model"
	"github.com/clinidesk/frontdesk-api/pkg/messaging"
)

const (
	maxRetries = 3
	retryDelay = 5 * time.Second

	eventFollowUpScheduled = "FOLLOW_UP_SCHEDULED"
)

type Config struct {
	// ReminderRecipient is the front-desk mailbox that receives the
	// follow-up worklist.
	ReminderRecipient string
	ClinicName        string
}

type Service struct {
	emailSvc email.Service
	broker   messaging.Broker
	config   Config
}

func NewService(emailSvc email.Service, broker messaging.Broker, config Config) *Service {
	return &Service{
		emailSvc: emailSvc,
		broker:   broker,
		config:   config,
	}
}

// ScheduleFollowUp records and mails a follow-up reminder for a billed
// token. The bill must carry a concrete follow-up interval; bills
// marked not required never reach this point.
func (s *Service) ScheduleFollowUp(ctx context.Context, token *model.PatientToken, bill *model.Bill) error {
	interval, ok := bill.FollowUp.Duration()
	if !ok {
		return fmt.Errorf("bill %s has no follow-up interval", bill.BillNumber)
	}
	dueDate := time.Now().Add(interval)

	if s.broker != nil {
		payload, err := json.Marshal(map[string]interface{}{
			"token_id":     token.TokenID,
			"patient_name": token.PatientName,
			"bill_number":  bill.BillNumber,
			"follow_up":    bill.FollowUp,
			"due_date":     dueDate.Format("2006-01-02"),
		})
		if err == nil {
			if err := s.broker.Publish(ctx, eventFollowUpScheduled, payload); err != nil {
				log.Error().Err(err).
					Str("token_id", token.TokenID).
					Msg("failed to publish follow-up event")
			}
		}
	}

	if s.emailSvc == nil || s.config.ReminderRecipient == "" {
		return nil
	}

	subject := fmt.Sprintf("Follow-up due %s: %s (%s)",
		dueDate.Format("Jan 2"), token.PatientName, token.TokenID)
	content := s.reminderBody(token, bill, dueDate)

	// Send asynchronously; billing must not wait on the SMTP relay.
	go func() {
		ctx := context.Background()
		var err error
		for i := 0; i < maxRetries; i++ {
			if err = s.emailSvc.SendFollowUpReminder(ctx, s.config.ReminderRecipient, subject, content); err == nil {
				return
			}
			if i < maxRetries-1 {
				time.Sleep(retryDelay)
			}
		}
		log.Error().Err(err).
			Str("token_id", token.TokenID).
			Str("bill_number", bill.BillNumber).
			Msg("failed to send follow-up reminder")
	}()

	return nil
}

func (s *Service) reminderBody(token *model.PatientToken, bill *model.Bill, dueDate time.Time) string {
	clinic := s.config.ClinicName
	if clinic == "" {
		clinic = "the clinic"
	}
	return fmt.Sprintf(
		"Patient %s (token %s, phone %s) was billed %s on %s and is due for a %s follow-up at %s on %s.",
		token.PatientName,
		token.TokenID,
		token.PatientPhone,
		bill.BillNumber,
		bill.BillDate,
		bill.FollowUp,
		clinic,
		dueDate.Format("Monday, Jan 2 2006"),
	)
}
