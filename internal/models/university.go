package models

import "time"

// University is a tenant created by a super-admin at sign-up.
type University struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	NumStudents int       `json:"num_students"`
	CreatedAt   time.Time `json:"created_at"`
}
