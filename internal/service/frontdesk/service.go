// Package frontdesk orchestrates the patient token lifecycle: intake,
// consultation progress, billing, and completion.
package frontdesk

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clinidesk/frontdesk-api/internal/billing"
	"github.com/clinidesk/frontdesk-api/internal/model"
	"github.com/clinidesk/frontdesk-api/internal/repository"
	"github.com/clinidesk/frontdesk-api/pkg/errors"
	"github.com/clinidesk/frontdesk-api/pkg/metrics"
)

// Display formats for the issued date/time stamps on a token.
const (
	dateFormat = "1/2/2006"
	timeFormat = "3:04:05 PM"
)

// TokenSequencer hands out the next token identifier.
type TokenSequencer interface {
	Next(ctx context.Context) (string, error)
}

// Notifier schedules a follow-up reminder for a billed token.
type Notifier interface {
	ScheduleFollowUp(ctx context.Context, token *model.PatientToken, bill *model.Bill) error
}

type Service interface {
	AssignToken(ctx context.Context, req *model.CreateTokenRequest) (*model.PatientToken, error)
	GetToken(ctx context.Context, tokenID string) (*model.PatientToken, error)
	ListTokens(ctx context.Context, filters *model.TokenFilters) ([]*model.PatientToken, error)
	StatusCounts(ctx context.Context) (*model.StatusCounts, error)
	MarkConsultationDone(ctx context.Context, tokenID string) (*model.PatientToken, error)
	ChangeStatus(ctx context.Context, tokenID string, target model.TokenStatus) (*model.PatientToken, error)
	CreateBill(ctx context.Context, tokenID string, req *model.CreateBillRequest) (*model.Bill, error)
}

type service struct {
	repo       repository.TokenRepository
	outboxRepo repository.OutboxRepository
	sequencer  TokenSequencer
	notifier   Notifier
	metrics    *metrics.Metrics
}

func NewService(
	repo repository.TokenRepository,
	outboxRepo repository.OutboxRepository,
	sequencer TokenSequencer,
	notifier Notifier,
	m *metrics.Metrics,
) Service {
	return &service{
		repo:       repo,
		outboxRepo: outboxRepo,
		sequencer:  sequencer,
		notifier:   notifier,
		metrics:    m,
	}
}

func (s *service) AssignToken(ctx context.Context, req *model.CreateTokenRequest) (*model.PatientToken, error) {
	if err := validateIntake(req); err != nil {
		return nil, err
	}

	tokenID, err := s.sequencer.Next(ctx)
	if err != nil {
		return nil, errors.Store(fmt.Errorf("failed to allocate token: %w", err))
	}

	now := time.Now()
	token := &model.PatientToken{
		TokenID:      tokenID,
		PatientName:  req.PatientName,
		PatientAge:   req.PatientAge,
		PatientPhone: req.PatientPhone,
		Symptoms:     req.Symptoms,
		Priority:     model.Priority(req.Priority),
		Status:       model.StatusInProgress,
		IssuedDate:   now.Format(dateFormat),
		IssuedTime:   now.Format(timeFormat),
	}

	if err := s.repo.Create(ctx, token); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.TokensIssued.Inc()
	}
	s.emitEvent(ctx, model.EventTokenAssigned, token)
	return token, nil
}

func (s *service) GetToken(ctx context.Context, tokenID string) (*model.PatientToken, error) {
	return s.repo.Get(ctx, tokenID)
}

func (s *service) ListTokens(ctx context.Context, filters *model.TokenFilters) ([]*model.PatientToken, error) {
	return s.repo.List(ctx, filters)
}

func (s *service) StatusCounts(ctx context.Context) (*model.StatusCounts, error) {
	tokens, err := s.repo.List(ctx, nil)
	if err != nil {
		return nil, err
	}

	today := time.Now().Format(dateFormat)
	counts := &model.StatusCounts{Total: len(tokens)}
	for _, t := range tokens {
		switch t.Status {
		case model.StatusInProgress:
			counts.InProgress++
			if t.IssuedDate == today {
				counts.TodayPending++
			}
		case model.StatusActive:
			counts.Active++
		case model.StatusCompleted:
			counts.Completed++
		}
	}
	return counts, nil
}

// MarkConsultationDone concludes the consultation phase. Legal only
// while the token is in progress; the episode stays open, so the next
// state is always active. The in-progress phase is never re-entered.
func (s *service) MarkConsultationDone(ctx context.Context, tokenID string) (*model.PatientToken, error) {
	token, err := s.repo.Get(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	if !token.InProgress() {
		s.countTransition(model.StatusActive, "blocked")
		return nil, errors.Precondition("consultation already concluded")
	}

	if err := s.applyStatus(ctx, token, model.StatusActive); err != nil {
		return nil, err
	}
	return token, nil
}

// ChangeStatus moves an open or closed episode between active and
// completed. Tokens still in progress cannot be touched, and a token
// with no bills attached cannot be completed.
func (s *service) ChangeStatus(ctx context.Context, tokenID string, target model.TokenStatus) (*model.PatientToken, error) {
	if target != model.StatusActive && target != model.StatusCompleted {
		return nil, errors.Validation("status", fmt.Sprintf("invalid target status %q", target))
	}

	token, err := s.repo.Get(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	if token.InProgress() {
		s.countTransition(target, "blocked")
		return nil, errors.Precondition("patient is still in progress")
	}
	if target == model.StatusCompleted && len(token.Bills) == 0 {
		s.countTransition(target, "blocked")
		return nil, errors.Precondition("bills required")
	}

	if err := s.applyStatus(ctx, token, target); err != nil {
		return nil, err
	}
	return token, nil
}

func (s *service) CreateBill(ctx context.Context, tokenID string, req *model.CreateBillRequest) (*model.Bill, error) {
	if !req.PaymentMethod.Valid() {
		return nil, errors.Validation("payment_method", fmt.Sprintf("unknown payment method %q", req.PaymentMethod))
	}
	if !req.FollowUp.Valid() {
		return nil, errors.Validation("follow_up", fmt.Sprintf("unknown follow-up interval %q", req.FollowUp))
	}

	token, err := s.repo.Get(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	var items []model.LineItem
	for _, candidate := range req.Items {
		items, err = billing.AddLineItem(items, candidate)
		if err != nil {
			return nil, err
		}
	}

	inv := billing.ComputeInvoice(req.ConsultationFee, items, req.DiscountPercent)

	now := time.Now()
	bill := &model.Bill{
		TokenID:         token.TokenID,
		BillNumber:      fmt.Sprintf("%s-%d", token.TokenID, len(token.Bills)+1),
		ConsultationFee: inv.ConsultationFee,
		Items:           inv.Items,
		ItemsTotal:      inv.ItemsTotal,
		Subtotal:        inv.Subtotal,
		DiscountPercent: inv.DiscountPercent,
		DiscountAmount:  inv.DiscountAmount,
		TotalAmount:     inv.TotalAmount,
		PaymentMethod:   req.PaymentMethod,
		FollowUp:        req.FollowUp,
		Notes:           req.Notes,
		BillDate:        now.Format(dateFormat),
		BillTime:        now.Format(timeFormat),
	}

	if _, err := s.repo.AppendBill(ctx, token.TokenID, bill); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.BillsCreated.Inc()
		s.metrics.BillAmount.Observe(bill.TotalAmount)
	}
	s.emitEvent(ctx, model.EventBillCreated, bill)

	if s.notifier != nil {
		if _, due := bill.FollowUp.Duration(); due {
			if err := s.notifier.ScheduleFollowUp(ctx, token, bill); err != nil {
				log.Error().Err(err).
					Str("token_id", token.TokenID).
					Msg("failed to schedule follow-up reminder")
			}
		}
	}

	return bill, nil
}

// applyStatus persists the transition and records its side channels.
// Preconditions must already hold: this is the only place a status
// write happens, and it writes a single field.
func (s *service) applyStatus(ctx context.Context, token *model.PatientToken, target model.TokenStatus) error {
	if err := s.repo.UpdateStatus(ctx, token.TokenID, target); err != nil {
		s.countTransition(target, "error")
		return err
	}

	token.Status = target
	s.countTransition(target, "ok")
	s.emitEvent(ctx, model.EventStatusChanged, map[string]interface{}{
		"token_id": token.TokenID,
		"status":   target,
	})
	return nil
}

func (s *service) countTransition(target model.TokenStatus, outcome string) {
	if s.metrics != nil {
		s.metrics.StatusTransitions.WithLabelValues(string(target), outcome).Inc()
	}
}

func (s *service) emitEvent(ctx context.Context, eventType string, payload interface{}) {
	if s.outboxRepo == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal outbox payload")
		return
	}
	if err := s.outboxRepo.Create(ctx, &model.OutboxEvent{
		EventType: eventType,
		Payload:   data,
	}); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to create outbox event")
	}
}

func validateIntake(req *model.CreateTokenRequest) error {
	if req.PatientName == "" {
		return errors.Validation("patient_name", "patient name is required")
	}
	if req.PatientAge == "" {
		return errors.Validation("patient_age", "patient age is required")
	}
	if age := billing.ParseAmount(req.PatientAge); age < 0 || age > 120 {
		return errors.Validation("patient_age", "patient age must be between 0 and 120")
	}
	if req.PatientPhone == "" {
		return errors.Validation("patient_phone", "patient phone is required")
	}
	if req.Symptoms == "" {
		return errors.Validation("symptoms", "symptoms are required")
	}
	if !model.Priority(req.Priority).Valid() {
		return errors.Validation("priority", fmt.Sprintf("unknown priority %q", req.Priority))
	}
	return nil
}
