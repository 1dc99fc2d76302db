package models

import "time"

// Comment is a user's note and 1..5 rating on an event. Email is the
// author's, joined in for display.
type Comment struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	EventID   int64     `json:"event_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Timestamp time.Time `json:"timestamp"`
	Email     string    `json:"email"`
}

// RatingSummary aggregates the ratings of one event.
type RatingSummary struct {
	EventID int64   `json:"event_id"`
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}
