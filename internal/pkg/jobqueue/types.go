package jobqueue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobType identifies the kind of background work a job carries.
type JobType string

const (
	JobTypeSettlementEmail JobType = "settlement_email"
)

// JobStatus represents the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job is the unit of background work persisted in Redis.
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Status      JobStatus       `json:"status"`
	Payload     json.RawMessage `json:"payload"`
	Retries     int             `json:"retries"`
	MaxRetries  int             `json:"max_retries"`
	CreatedAt   time.Time       `json:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
}

// SettlementEmailPayload is the payload for settlement notification jobs.
type SettlementEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSettlementEmailJob creates a settlement email job with defaults applied.
func NewSettlementEmailJob(p SettlementEmailPayload) (*Job, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal settlement email payload: %w", err)
	}

	return &Job{
		ID:         uuid.NewString(),
		Type:       JobTypeSettlementEmail,
		Status:     JobStatusPending,
		Payload:    data,
		MaxRetries: DefaultMaxRetries,
		CreatedAt:  time.Now(),
	}, nil
}
