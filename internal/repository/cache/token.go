// Package cache wraps a TokenRepository with a read-through cache so
// the records dashboard does not hammer the store on every poll.
package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/clinidesk/frontdesk-api/internal/model"
	"github.com/clinidesk/frontdesk-api/internal/repository"
)

type tokenCache struct {
	inner repository.TokenRepository
	c     *gocache.Cache
}

// NewTokenCache decorates inner with per-token caching. Every write
// invalidates the affected entry; list and count queries always hit
// the store.
func NewTokenCache(inner repository.TokenRepository, ttl time.Duration) repository.TokenRepository {
	return &tokenCache{
		inner: inner,
		c:     gocache.New(ttl, 2*ttl),
	}
}

func cacheKey(tokenID string) string {
	id, _ := model.ParseRecordKey(tokenID)
	return "token:" + id
}

// Get hands every caller its own shallow copy. The service layer
// mutates the returned struct on status transitions; sharing one
// pointer across concurrent requests would race.
func (r *tokenCache) Get(ctx context.Context, tokenID string) (*model.PatientToken, error) {
	if v, ok := r.c.Get(cacheKey(tokenID)); ok {
		cp := *v.(*model.PatientToken)
		return &cp, nil
	}

	token, err := r.inner.Get(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	cp := *token
	r.c.SetDefault(cacheKey(tokenID), &cp)
	return token, nil
}

func (r *tokenCache) Exists(ctx context.Context, tokenID string) (bool, error) {
	if _, ok := r.c.Get(cacheKey(tokenID)); ok {
		return true, nil
	}
	return r.inner.Exists(ctx, tokenID)
}

func (r *tokenCache) Create(ctx context.Context, token *model.PatientToken) error {
	if err := r.inner.Create(ctx, token); err != nil {
		return err
	}
	r.c.Delete(cacheKey(token.TokenID))
	return nil
}

func (r *tokenCache) UpdateStatus(ctx context.Context, tokenID string, status model.TokenStatus) error {
	if err := r.inner.UpdateStatus(ctx, tokenID, status); err != nil {
		return err
	}
	r.c.Delete(cacheKey(tokenID))
	return nil
}

func (r *tokenCache) AppendBill(ctx context.Context, tokenID string, bill *model.Bill) (uuid.UUID, error) {
	id, err := r.inner.AppendBill(ctx, tokenID, bill)
	if err != nil {
		return uuid.Nil, err
	}
	r.c.Delete(cacheKey(tokenID))
	return id, nil
}

func (r *tokenCache) List(ctx context.Context, filters *model.TokenFilters) ([]*model.PatientToken, error) {
	return r.inner.List(ctx, filters)
}

func (r *tokenCache) CountIssued(ctx context.Context) (int, error) {
	return r.inner.CountIssued(ctx)
}
