package models

import (
	"time"

	"github.com/google/uuid"
)

// MeetingInvite is extracted from one inbound message. StartAt is nil when the
// message carried no calendar start time, meaning "join now".
type MeetingInvite struct {
	MessageID string     `json:"message_id"`
	Subject   string     `json:"subject"`
	Link      string     `json:"link"`
	StartAt   *time.Time `json:"start_at,omitempty"`
}

// ScheduledJob is a pending join owned by the scheduler. Key is the normalized
// link; at most one live job exists per key.
type ScheduledJob struct {
	ID        uuid.UUID `json:"id"`
	Key       string    `json:"key"`
	Link      string    `json:"link"`
	Subject   string    `json:"subject,omitempty"`
	FireAt    time.Time `json:"fire_at"`
	CreatedAt time.Time `json:"created_at"`
}
