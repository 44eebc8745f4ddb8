// Package instrument decorates a TokenRepository with store operation
// counters and latency histograms.
package instrument

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinidesk/frontdesk-api/internal/model"
	"github.com/clinidesk/frontdesk-api/internal/repository"
	"github.com/clinidesk/frontdesk-api/pkg/metrics"
)

type tokenInstrumentation struct {
	inner repository.TokenRepository
	m     *metrics.Metrics
}

// NewTokenInstrumentation wraps inner so every store call is counted
// and timed. Wrap the real store, not a cache: cache hits are not
// store operations.
func NewTokenInstrumentation(inner repository.TokenRepository, m *metrics.Metrics) repository.TokenRepository {
	return &tokenInstrumentation{inner: inner, m: m}
}

func (r *tokenInstrumentation) observe(op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.m.StoreOperations.WithLabelValues(op, status).Inc()
	r.m.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (r *tokenInstrumentation) Create(ctx context.Context, token *model.PatientToken) error {
	start := time.Now()
	err := r.inner.Create(ctx, token)
	r.observe("create", start, err)
	return err
}

func (r *tokenInstrumentation) Get(ctx context.Context, tokenID string) (*model.PatientToken, error) {
	start := time.Now()
	token, err := r.inner.Get(ctx, tokenID)
	r.observe("get", start, err)
	return token, err
}

func (r *tokenInstrumentation) UpdateStatus(ctx context.Context, tokenID string, status model.TokenStatus) error {
	start := time.Now()
	err := r.inner.UpdateStatus(ctx, tokenID, status)
	r.observe("update_status", start, err)
	return err
}

func (r *tokenInstrumentation) AppendBill(ctx context.Context, tokenID string, bill *model.Bill) (uuid.UUID, error) {
	start := time.Now()
	id, err := r.inner.AppendBill(ctx, tokenID, bill)
	r.observe("append_bill", start, err)
	return id, err
}

func (r *tokenInstrumentation) Exists(ctx context.Context, tokenID string) (bool, error) {
	start := time.Now()
	ok, err := r.inner.Exists(ctx, tokenID)
	r.observe("exists", start, err)
	return ok, err
}

func (r *tokenInstrumentation) List(ctx context.Context, filters *model.TokenFilters) ([]*model.PatientToken, error) {
	start := time.Now()
	tokens, err := r.inner.List(ctx, filters)
	r.observe("list", start, err)
	return tokens, err
}

func (r *tokenInstrumentation) CountIssued(ctx context.Context) (int, error) {
	start := time.Now()
	count, err := r.inner.CountIssued(ctx)
	r.observe("count_issued", start, err)
	return count, err
}
