package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinidesk/frontdesk-api/internal/model"
)

// TokenRepository is the narrow store contract the front-desk core
// reads and writes through. Records are keyed by the stable token ID;
// lookups also accept the legacy composite key "T001(Name)".
//
// Create is a full record write, UpdateStatus a merge of named fields,
// and AppendBill an append-only child insert returning the generated
// bill ID.
type TokenRepository interface {
	Create(ctx context.Context, token *model.PatientToken) error
	Get(ctx context.Context, tokenID string) (*model.PatientToken, error)
	UpdateStatus(ctx context.Context, tokenID string, status model.TokenStatus) error
	AppendBill(ctx context.Context, tokenID string, bill *model.Bill) (uuid.UUID, error)
	Exists(ctx context.Context, tokenID string) (bool, error)
	List(ctx context.Context, filters *model.TokenFilters) ([]*model.PatientToken, error)
	CountIssued(ctx context.Context) (int, error)
}

// OutboxRepository persists front-desk events for the outbox processor.
type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error
}
