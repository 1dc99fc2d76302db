package models

import "time"

// Participant records a user's intent to attend an event.
type Participant struct {
	ID       int64     `json:"id"`
	UserID   int64     `json:"user_id"`
	EventID  int64     `json:"event_id"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joined_at"`
}
