package models

import "time"

// RSO is a registered student organization scoped to a university.
type RSO struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	UniversityID int64     `json:"university"`
	MemberCount  int       `json:"member_count"`
	CreatedBy    *int64    `json:"created_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
