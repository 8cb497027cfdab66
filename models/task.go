package models

import (
	"math/rand"
	"time"
)

// TaskStatus represents the status of an async extraction task
type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// ExtractionTask represents an async product extraction task
type ExtractionTask struct {
	ID          string           `json:"id"`
	URL         string           `json:"url"`
	Status      TaskStatus       `json:"status"`
	Message     string           `json:"message"`
	Result      *ExtractResponse `json:"result,omitempty"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// NewExtractionTask creates a queued extraction task for a URL
func NewExtractionTask(url string) *ExtractionTask {
	return &ExtractionTask{
		ID:        generateTaskID(),
		URL:       url,
		Status:    TaskStatusQueued,
		Message:   "Task queued for processing",
		CreatedAt: time.Now(),
	}
}

// Start marks the task as processing
func (t *ExtractionTask) Start() {
	t.Status = TaskStatusProcessing
	t.Message = "Extracting product data..."
	now := time.Now()
	t.StartedAt = &now
}

// Complete marks the task as completed with result
func (t *ExtractionTask) Complete(result *ExtractResponse) {
	t.Status = TaskStatusCompleted
	t.Message = "Extraction completed successfully"
	t.Result = result
	now := time.Now()
	t.CompletedAt = &now
}

// Fail marks the task as failed with error
func (t *ExtractionTask) Fail(errMsg string) {
	t.Status = TaskStatusFailed
	t.Message = "Extraction failed"
	t.Error = errMsg
	now := time.Now()
	t.CompletedAt = &now
}

// IsCompleted returns true if the task is in a final state
func (t *ExtractionTask) IsCompleted() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// IsActive returns true if the task is still queued or running
func (t *ExtractionTask) IsActive() bool {
	return t.Status == TaskStatusQueued || t.Status == TaskStatusProcessing
}

// Duration returns how long the task has been running
func (t *ExtractionTask) Duration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}

	endTime := time.Now()
	if t.CompletedAt != nil {
		endTime = *t.CompletedAt
	}

	return endTime.Sub(*t.StartedAt)
}

// generateTaskID generates a unique task ID
func generateTaskID() string {
	return "task_" + time.Now().Format("20060102150405") + "_" + randomString(8)
}

func randomString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
