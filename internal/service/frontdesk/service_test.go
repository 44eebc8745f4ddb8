package frontdesk

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinidesk/frontdesk-api/internal/model"
	"github.com/clinidesk/frontdesk-api/internal/token"
	"github.com/clinidesk/frontdesk-api/pkg/errors"
)

type fakeRepo struct {
	tokens map[string]*model.PatientToken
	bills  map[string][]*model.Bill
	order  []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		tokens: make(map[string]*model.PatientToken),
		bills:  make(map[string][]*model.Bill),
	}
}

func (r *fakeRepo) Create(_ context.Context, t *model.PatientToken) error {
	r.tokens[t.TokenID] = t
	r.order = append(r.order, t.TokenID)
	return nil
}

func (r *fakeRepo) Get(_ context.Context, tokenID string) (*model.PatientToken, error) {
	id, _ := model.ParseRecordKey(tokenID)
	t, ok := r.tokens[id]
	if !ok {
		return nil, errors.NotFound("token", nil)
	}
	cp := *t
	cp.Bills = r.bills[id]
	return &cp, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, tokenID string, status model.TokenStatus) error {
	t, ok := r.tokens[tokenID]
	if !ok {
		return errors.NotFound("token", nil)
	}
	t.Status = status
	return nil
}

func (r *fakeRepo) AppendBill(_ context.Context, tokenID string, bill *model.Bill) (uuid.UUID, error) {
	if _, ok := r.tokens[tokenID]; !ok {
		return uuid.Nil, errors.NotFound("token", nil)
	}
	bill.ID = uuid.New()
	r.bills[tokenID] = append(r.bills[tokenID], bill)
	return bill.ID, nil
}

func (r *fakeRepo) Exists(_ context.Context, tokenID string) (bool, error) {
	_, ok := r.tokens[tokenID]
	return ok, nil
}

func (r *fakeRepo) List(_ context.Context, filters *model.TokenFilters) ([]*model.PatientToken, error) {
	var out []*model.PatientToken
	for _, id := range r.order {
		t := r.tokens[id]
		if filters != nil && filters.Status != "" && t.Status != filters.Status {
			continue
		}
		cp := *t
		cp.Bills = r.bills[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeRepo) CountIssued(_ context.Context) (int, error) {
	return len(r.tokens), nil
}

type fakeSequencer struct {
	n int
}

func (s *fakeSequencer) Next(context.Context) (string, error) {
	s.n++
	return token.Allocate(s.n - 1), nil
}

type fakeOutbox struct {
	events []*model.OutboxEvent
}

func (o *fakeOutbox) Create(_ context.Context, e *model.OutboxEvent) error {
	o.events = append(o.events, e)
	return nil
}

func (o *fakeOutbox) GetPendingEvents(context.Context, int) ([]*model.OutboxEvent, error) {
	return o.events, nil
}

func (o *fakeOutbox) UpdateStatus(context.Context, uuid.UUID, model.OutboxStatus, *string) error {
	return nil
}

type fakeNotifier struct {
	scheduled []string
}

func (n *fakeNotifier) ScheduleFollowUp(_ context.Context, t *model.PatientToken, _ *model.Bill) error {
	n.scheduled = append(n.scheduled, t.TokenID)
	return nil
}

func newTestService() (Service, *fakeRepo, *fakeOutbox, *fakeNotifier) {
	repo := newFakeRepo()
	outbox := &fakeOutbox{}
	notifier := &fakeNotifier{}
	svc := NewService(repo, outbox, &fakeSequencer{}, notifier, nil)
	return svc, repo, outbox, notifier
}

func intakeRequest(name string) *model.CreateTokenRequest {
	return &model.CreateTokenRequest{
		PatientName:  name,
		PatientAge:   "34",
		PatientPhone: "9876543210",
		Priority:     "Normal",
		Symptoms:     "fever and cough",
	}
}

func billRequest() *model.CreateBillRequest {
	return &model.CreateBillRequest{
		PatientName:     "Asha Rao",
		ConsultationFee: "200",
		Items:           []model.LineItemRequest{{Name: "Amoxicillin", Quantity: 2, Rate: 50}},
		DiscountPercent: "10",
		PaymentMethod:   model.PaymentCash,
		FollowUp:        model.FollowUpNone,
	}
}

func TestAssignTokenSequence(t *testing.T) {
	svc, _, outbox, _ := newTestService()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		tok, err := svc.AssignToken(ctx, intakeRequest(fmt.Sprintf("Patient %d", i)))
		require.NoError(t, err)
		ids = append(ids, tok.TokenID)

		assert.Equal(t, model.StatusInProgress, tok.Status)
		assert.True(t, tok.InProgress())
		assert.True(t, tok.Active())
		assert.NotEmpty(t, tok.IssuedDate)
		assert.NotEmpty(t, tok.IssuedTime)
	}

	assert.Equal(t, []string{"T001", "T002", "T003"}, ids)
	require.Len(t, outbox.events, 3)
	assert.Equal(t, model.EventTokenAssigned, outbox.events[0].EventType)
}

func TestAssignTokenValidation(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*model.CreateTokenRequest)
		field  string
	}{
		{"missing name", func(r *model.CreateTokenRequest) { r.PatientName = "" }, "patient_name"},
		{"missing age", func(r *model.CreateTokenRequest) { r.PatientAge = "" }, "patient_age"},
		{"age out of range", func(r *model.CreateTokenRequest) { r.PatientAge = "130" }, "patient_age"},
		{"missing phone", func(r *model.CreateTokenRequest) { r.PatientPhone = "" }, "patient_phone"},
		{"missing symptoms", func(r *model.CreateTokenRequest) { r.Symptoms = "" }, "symptoms"},
		{"bad priority", func(r *model.CreateTokenRequest) { r.Priority = "ASAP" }, "priority"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := intakeRequest("Asha Rao")
			tt.mutate(req)

			_, err := svc.AssignToken(ctx, req)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))

			var appErr *errors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}

	assert.Empty(t, repo.tokens, "nothing persisted on validation failure")
}

func TestMarkConsultationDone(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	tok, err := svc.AssignToken(ctx, intakeRequest("Asha Rao"))
	require.NoError(t, err)

	done, err := svc.MarkConsultationDone(ctx, tok.TokenID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, done.Status)
	assert.False(t, done.InProgress())
	assert.True(t, done.Active())

	// One-directional: a concluded consultation cannot be concluded again.
	_, err = svc.MarkConsultationDone(ctx, tok.TokenID)
	require.Error(t, err)
	assert.True(t, errors.IsPrecondition(err))

	got, err := svc.GetToken(ctx, tok.TokenID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, got.Status, "failed transition leaves state unchanged")
}

func TestChangeStatusBlockedWhileInProgress(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	tok, err := svc.AssignToken(ctx, intakeRequest("Asha Rao"))
	require.NoError(t, err)

	for _, target := range []model.TokenStatus{model.StatusActive, model.StatusCompleted} {
		_, err := svc.ChangeStatus(ctx, tok.TokenID, target)
		require.Error(t, err)
		assert.True(t, errors.IsPrecondition(err))
	}

	got, err := svc.GetToken(ctx, tok.TokenID)
	require.NoError(t, err)
	assert.True(t, got.InProgress(), "in-progress flag untouched by blocked transitions")
}

func TestCompleteRequiresBills(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	tok, err := svc.AssignToken(ctx, intakeRequest("Asha Rao"))
	require.NoError(t, err)
	_, err = svc.MarkConsultationDone(ctx, tok.TokenID)
	require.NoError(t, err)

	// No bills yet: completion is rejected and the state stays active.
	_, err = svc.ChangeStatus(ctx, tok.TokenID, model.StatusCompleted)
	require.Error(t, err)
	assert.True(t, errors.IsPrecondition(err))
	assert.EqualError(t, err, "bills required")

	_, err = svc.CreateBill(ctx, tok.TokenID, billRequest())
	require.NoError(t, err)

	done, err := svc.ChangeStatus(ctx, tok.TokenID, model.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)
	assert.False(t, done.Active())
	assert.False(t, done.InProgress())
}

func TestChangeStatusValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.ChangeStatus(ctx, "T001", model.StatusInProgress)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err), "no path back to in progress")
}

func TestChangeStatusNotFound(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.ChangeStatus(context.Background(), "T404", model.StatusActive)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	_, err = svc.MarkConsultationDone(context.Background(), "T404")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestCreateBill(t *testing.T) {
	svc, _, outbox, _ := newTestService()
	ctx := context.Background()

	tok, err := svc.AssignToken(ctx, intakeRequest("Asha Rao"))
	require.NoError(t, err)

	bill, err := svc.CreateBill(ctx, tok.TokenID, billRequest())
	require.NoError(t, err)

	assert.Equal(t, 200.0, bill.ConsultationFee)
	assert.Equal(t, 100.0, bill.ItemsTotal)
	assert.Equal(t, 300.0, bill.Subtotal)
	assert.Equal(t, 30.0, bill.DiscountAmount)
	assert.Equal(t, 270.0, bill.TotalAmount)
	assert.Equal(t, "T001-1", bill.BillNumber)

	second, err := svc.CreateBill(ctx, tok.TokenID, billRequest())
	require.NoError(t, err)
	assert.Equal(t, "T001-2", second.BillNumber, "bill numbers count per token")

	got, err := svc.GetToken(ctx, tok.TokenID)
	require.NoError(t, err)
	assert.Len(t, got.Bills, 2, "bills are append-only")

	var types []string
	for _, e := range outbox.events {
		types = append(types, e.EventType)
	}
	assert.Contains(t, types, model.EventBillCreated)
}

func TestCreateBillAcceptsLegacyRecordKey(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	tok, err := svc.AssignToken(ctx, intakeRequest("Asha Rao"))
	require.NoError(t, err)

	_, err = svc.CreateBill(ctx, tok.RecordKey(), billRequest())
	require.NoError(t, err)
}

func TestCreateBillUnknownToken(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.CreateBill(context.Background(), "T404", billRequest())
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestCreateBillValidation(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()

	tok, err := svc.AssignToken(ctx, intakeRequest("Asha Rao"))
	require.NoError(t, err)

	req := billRequest()
	req.Items = []model.LineItemRequest{{Name: "Amoxicillin", Quantity: 0, Rate: 50}}
	_, err = svc.CreateBill(ctx, tok.TokenID, req)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	req = billRequest()
	req.PaymentMethod = "Barter"
	_, err = svc.CreateBill(ctx, tok.TokenID, req)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	req = billRequest()
	req.FollowUp = "5 Weeks"
	_, err = svc.CreateBill(ctx, tok.TokenID, req)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	assert.Empty(t, repo.bills[tok.TokenID], "no bill persisted on validation failure")
}

func TestCreateBillSchedulesFollowUp(t *testing.T) {
	svc, _, _, notifier := newTestService()
	ctx := context.Background()

	tok, err := svc.AssignToken(ctx, intakeRequest("Asha Rao"))
	require.NoError(t, err)

	req := billRequest()
	req.FollowUp = model.FollowUp1Week
	_, err = svc.CreateBill(ctx, tok.TokenID, req)
	require.NoError(t, err)
	assert.Equal(t, []string{tok.TokenID}, notifier.scheduled)

	_, err = svc.CreateBill(ctx, tok.TokenID, billRequest())
	require.NoError(t, err)
	assert.Len(t, notifier.scheduled, 1, "no reminder when follow-up not required")
}

func TestStatusCounts(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	first, err := svc.AssignToken(ctx, intakeRequest("Asha Rao"))
	require.NoError(t, err)
	second, err := svc.AssignToken(ctx, intakeRequest("Vikram Shah"))
	require.NoError(t, err)
	_, err = svc.AssignToken(ctx, intakeRequest("Meera Iyer"))
	require.NoError(t, err)

	_, err = svc.MarkConsultationDone(ctx, first.TokenID)
	require.NoError(t, err)
	_, err = svc.CreateBill(ctx, first.TokenID, billRequest())
	require.NoError(t, err)
	_, err = svc.ChangeStatus(ctx, first.TokenID, model.StatusCompleted)
	require.NoError(t, err)

	_, err = svc.MarkConsultationDone(ctx, second.TokenID)
	require.NoError(t, err)

	counts, err := svc.StatusCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Total)
	assert.Equal(t, 1, counts.InProgress)
	assert.Equal(t, 1, counts.Active)
	assert.Equal(t, 1, counts.Completed)
	assert.Equal(t, 1, counts.TodayPending)
}

// Full lifecycle: intake, consultation done, completion blocked until a
// bill exists, then accepted.
func TestTokenLifecycle(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	tok, err := svc.AssignToken(ctx, intakeRequest("Asha Rao"))
	require.NoError(t, err)
	require.Equal(t, "T001", tok.TokenID)

	_, err = svc.MarkConsultationDone(ctx, tok.TokenID)
	require.NoError(t, err)

	_, err = svc.ChangeStatus(ctx, tok.TokenID, model.StatusCompleted)
	require.Error(t, err)
	assert.EqualError(t, err, "bills required")

	_, err = svc.CreateBill(ctx, tok.TokenID, billRequest())
	require.NoError(t, err)

	final, err := svc.ChangeStatus(ctx, tok.TokenID, model.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, final.Status)
	assert.False(t, final.Active())
	assert.False(t, final.InProgress())
}
