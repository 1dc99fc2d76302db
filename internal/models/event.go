package models

import (
	"strings"
	"time"
)

// Category is an event's visibility scope.
type Category string

const (
	CategoryPublic     Category = "public"
	CategoryUniversity Category = "university"
	CategoryRSO        Category = "rso"
)

// ParseCategory normalizes a submitted category. "private" is an alias of
// "university".
func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public":
		return CategoryPublic, true
	case "university", "private":
		return CategoryUniversity, true
	case "rso":
		return CategoryRSO, true
	}
	return "", false
}

// Event is a scheduled event. (EventTime, Location) is unique.
type Event struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Category     Category  `json:"category"`
	Description  string    `json:"description"`
	EventTime    time.Time `json:"event_time"`
	Location     string    `json:"location"`
	ContactPhone string    `json:"contact_phone"`
	ContactEmail string    `json:"contact_email"`
	UniversityID *int64    `json:"university"`
	RSOID        *int64    `json:"rso"`
	Approved     bool      `json:"approved"`
	CreatedBy    *int64    `json:"created_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
