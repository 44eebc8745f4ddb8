package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinidesk/frontdesk-api/internal/model"
	"github.com/clinidesk/frontdesk-api/internal/repository"
	"github.com/clinidesk/frontdesk-api/pkg/errors"
)

type tokenRepository struct {
	db *sqlx.DB
}

func NewTokenRepository(db *sqlx.DB) repository.TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, token *model.PatientToken) error {
	query := `
		INSERT INTO patient_tokens (
			token_id, patient_name, patient_age, patient_phone, symptoms,
			priority, status, issued_date, issued_time, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	token.CreatedAt = time.Now()
	token.UpdatedAt = token.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		token.TokenID,
		token.PatientName,
		token.PatientAge,
		token.PatientPhone,
		token.Symptoms,
		token.Priority,
		token.Status,
		token.IssuedDate,
		token.IssuedTime,
		token.CreatedAt,
		token.UpdatedAt,
	)
	if err != nil {
		return errors.Store(fmt.Errorf("failed to create token: %w", err))
	}
	return nil
}

func (r *tokenRepository) Get(ctx context.Context, tokenID string) (*model.PatientToken, error) {
	id, _ := model.ParseRecordKey(tokenID)

	query := `SELECT * FROM patient_tokens WHERE token_id = $1`
	var token model.PatientToken
	err := r.db.GetContext(ctx, &token, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("token", err)
	}
	if err != nil {
		return nil, errors.Store(fmt.Errorf("failed to get token: %w", err))
	}

	bills, err := r.getBills(ctx, id)
	if err != nil {
		return nil, err
	}
	token.Bills = bills
	return &token, nil
}

func (r *tokenRepository) UpdateStatus(ctx context.Context, tokenID string, status model.TokenStatus) error {
	id, _ := model.ParseRecordKey(tokenID)

	query := `UPDATE patient_tokens SET status = $1, updated_at = $2 WHERE token_id = $3`
	res, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return errors.Store(fmt.Errorf("failed to update token status: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NotFound("token", nil)
	}
	return nil
}

func (r *tokenRepository) AppendBill(ctx context.Context, tokenID string, bill *model.Bill) (uuid.UUID, error) {
	id, _ := model.ParseRecordKey(tokenID)

	itemsJSON, err := json.Marshal(bill.Items)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal line items: %w", err)
	}

	query := `
		INSERT INTO bills (
			id, token_id, bill_number, consultation_fee, items, items_total,
			subtotal, discount_percent, discount_amount, total_amount,
			payment_method, follow_up, notes, bill_date, bill_time, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	bill.ID = uuid.New()
	bill.TokenID = id
	bill.CreatedAt = time.Now()

	_, err = r.db.ExecContext(ctx, query,
		bill.ID,
		bill.TokenID,
		bill.BillNumber,
		bill.ConsultationFee,
		itemsJSON,
		bill.ItemsTotal,
		bill.Subtotal,
		bill.DiscountPercent,
		bill.DiscountAmount,
		bill.TotalAmount,
		bill.PaymentMethod,
		bill.FollowUp,
		bill.Notes,
		bill.BillDate,
		bill.BillTime,
		bill.CreatedAt,
	)
	if err != nil {
		return uuid.Nil, errors.Store(fmt.Errorf("failed to append bill: %w", err))
	}
	return bill.ID, nil
}

func (r *tokenRepository) Exists(ctx context.Context, tokenID string) (bool, error) {
	id, _ := model.ParseRecordKey(tokenID)

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM patient_tokens WHERE token_id = $1)`
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, errors.Store(fmt.Errorf("failed to check token existence: %w", err))
	}
	return exists, nil
}

func (r *tokenRepository) List(ctx context.Context, filters *model.TokenFilters) ([]*model.PatientToken, error) {
	query := `SELECT * FROM patient_tokens WHERE 1=1`
	args := []interface{}{}

	if filters != nil {
		if filters.Status != "" {
			args = append(args, filters.Status)
			query += fmt.Sprintf(" AND status = $%d", len(args))
		}
		if filters.Name != "" {
			args = append(args, "%"+filters.Name+"%")
			query += fmt.Sprintf(" AND patient_name ILIKE $%d", len(args))
		}
		if filters.Date != "" {
			args = append(args, filters.Date)
			query += fmt.Sprintf(" AND issued_date = $%d", len(args))
		}
	}
	query += " ORDER BY created_at ASC"

	var tokens []*model.PatientToken
	if err := r.db.SelectContext(ctx, &tokens, query, args...); err != nil {
		return nil, errors.Store(fmt.Errorf("failed to list tokens: %w", err))
	}
	return tokens, nil
}

func (r *tokenRepository) CountIssued(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM patient_tokens`
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, errors.Store(fmt.Errorf("failed to count tokens: %w", err))
	}
	return count, nil
}

func (r *tokenRepository) getBills(ctx context.Context, tokenID string) ([]*model.Bill, error) {
	query := `
		SELECT id, token_id, bill_number, consultation_fee, items, items_total,
			subtotal, discount_percent, discount_amount, total_amount,
			payment_method, follow_up, notes, bill_date, bill_time, created_at
		FROM bills WHERE token_id = $1 ORDER BY created_at ASC
	`
	rows, err := r.db.QueryxContext(ctx, query, tokenID)
	if err != nil {
		return nil, errors.Store(fmt.Errorf("failed to load bills: %w", err))
	}
	defer rows.Close()

	var bills []*model.Bill
	for rows.Next() {
		var bill model.Bill
		var itemsJSON []byte
		if err := rows.Scan(
			&bill.ID, &bill.TokenID, &bill.BillNumber, &bill.ConsultationFee,
			&itemsJSON, &bill.ItemsTotal, &bill.Subtotal, &bill.DiscountPercent,
			&bill.DiscountAmount, &bill.TotalAmount, &bill.PaymentMethod,
			&bill.FollowUp, &bill.Notes, &bill.BillDate, &bill.BillTime, &bill.CreatedAt,
		); err != nil {
			return nil, errors.Store(fmt.Errorf("failed to scan bill: %w", err))
		}
		if len(itemsJSON) > 0 {
			if err := json.Unmarshal(itemsJSON, &bill.Items); err != nil {
				return nil, fmt.Errorf("failed to unmarshal line items: %w", err)
			}
		}
		bills = append(bills, &bill)
	}
	return bills, rows.Err()
}
