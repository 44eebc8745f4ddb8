package model

import (
	"fmt"
	"strings"
	"time"
)

// Priority is the triage priority captured at intake.
type Priority string

const (
	PriorityNormal Priority = "Normal"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// TokenStatus is the lifecycle state of a consultation token. It replaces
// the legacy inprogress/active boolean pair with a single enumeration, so
// the undefined combination (in progress but inactive) is unrepresentable.
type TokenStatus string

const (
	StatusInProgress TokenStatus = "in_progress"
	StatusActive     TokenStatus = "active"
	StatusCompleted  TokenStatus = "completed"
)

func (s TokenStatus) Valid() bool {
	switch s {
	case StatusInProgress, StatusActive, StatusCompleted:
		return true
	}
	return false
}

// StatusFromFlags derives the effective status from the legacy boolean
// pair: inprogress wins regardless of active.
func StatusFromFlags(inProgress, active bool) TokenStatus {
	switch {
	case inProgress:
		return StatusInProgress
	case active:
		return StatusActive
	default:
		return StatusCompleted
	}
}

// PatientToken is one consultation episode, keyed by its token ID.
// Intake fields are immutable after creation; only status changes and
// bill appends mutate the record.
type PatientToken struct {
	TokenID      string      `db:"token_id" json:"token_number"`
	PatientName  string      `db:"patient_name" json:"patient_name"`
	PatientAge   string      `db:"patient_age" json:"patient_age"`
	PatientPhone string      `db:"patient_phone" json:"patient_phone"`
	Symptoms     string      `db:"symptoms" json:"symptoms"`
	Priority     Priority    `db:"priority" json:"priority"`
	Status       TokenStatus `db:"status" json:"status"`
	IssuedDate   string      `db:"issued_date" json:"date"`
	IssuedTime   string      `db:"issued_time" json:"time"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
	Bills        []*Bill     `db:"-" json:"bills,omitempty"`
}

// InProgress reports the legacy inprogress flag.
func (t *PatientToken) InProgress() bool { return t.Status == StatusInProgress }

// Active reports the legacy active flag: the episode is open. A token in
// progress is still an open episode.
func (t *PatientToken) Active() bool { return t.Status != StatusCompleted }

func (t *PatientToken) Completed() bool { return t.Status == StatusCompleted }

// RecordKey produces the human-readable composite key the original
// addressing scheme uses, e.g. "T001(Asha Rao)". Storage keys on the
// token ID alone; this exists for display and legacy lookups.
func (t *PatientToken) RecordKey() string {
	return fmt.Sprintf("%s(%s)", t.TokenID, t.PatientName)
}

// ParseRecordKey splits a composite record key back into token ID and
// patient name. Plain token IDs pass through with an empty name.
func ParseRecordKey(key string) (tokenID, patientName string) {
	open := strings.IndexByte(key, '(')
	if open < 0 || !strings.HasSuffix(key, ")") {
		return key, ""
	}
	return key[:open], key[open+1 : len(key)-1]
}

// CreateTokenRequest is the intake form payload.
type CreateTokenRequest struct {
	PatientName  string `json:"patient_name" binding:"required"`
	PatientAge   string `json:"patient_age" binding:"required"`
	PatientPhone string `json:"patient_phone" binding:"required"`
	Priority     string `json:"priority" binding:"required,oneof=Normal High Urgent"`
	Symptoms     string `json:"symptoms" binding:"required"`
}

// ChangeStatusRequest asks for a transition to active or completed.
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active completed"`
}

// TokenFilters narrows token listings for the records dashboard.
type TokenFilters struct {
	Status TokenStatus `form:"status"`
	Name   string      `form:"name"`
	Date   string      `form:"date"`
}

// StatusCounts backs the dashboard KPI cards.
type StatusCounts struct {
	Total        int `json:"total"`
	InProgress   int `json:"in_progress"`
	Active       int `json:"active"`
	Completed    int `json:"completed"`
	TodayPending int `json:"today_pending"`
}
