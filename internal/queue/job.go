package queue

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

const (
	StatusDelayed   = "delayed"
	StatusWaiting   = "waiting"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Payload is the task body carried through redis. Only the booking id
// travels; everything else is re-read from the store at processing time so
// the task never acts on stale data.
type Payload struct {
	BookingID string `json:"bookingId"`
}

// Job is a scheduled unit of work.
type Job struct {
	ID          string
	Name        string
	Key         string
	Payload     Payload
	Attempts    int
	MaxAttempts int
	CreatedAt   time.Time
	ReadyAt     time.Time
}

func (j *Job) fields() map[string]interface{} {
	data, _ := json.Marshal(j.Payload)
	return map[string]interface{}{
		"id":           j.ID,
		"name":         j.Name,
		"key":          j.Key,
		"payload":      string(data),
		"attempts":     j.Attempts,
		"max_attempts": j.MaxAttempts,
		"created_at":   j.CreatedAt.UnixMilli(),
		"ready_at":     j.ReadyAt.UnixMilli(),
		"status":       StatusDelayed,
	}
}

func jobFromFields(id string, fields map[string]string) (*Job, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("job %s has no data", id)
	}
	job := &Job{
		ID:   id,
		Name: fields["name"],
		Key:  fields["key"],
	}
	if raw := fields["payload"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &job.Payload); err != nil {
			return nil, fmt.Errorf("decode payload for job %s: %w", id, err)
		}
	}
	job.Attempts, _ = strconv.Atoi(fields["attempts"])
	job.MaxAttempts, _ = strconv.Atoi(fields["max_attempts"])
	if ms, err := strconv.ParseInt(fields["created_at"], 10, 64); err == nil {
		job.CreatedAt = time.UnixMilli(ms)
	}
	if ms, err := strconv.ParseInt(fields["ready_at"], 10, 64); err == nil {
		job.ReadyAt = time.UnixMilli(ms)
	}
	return job, nil
}
