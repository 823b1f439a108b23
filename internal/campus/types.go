// Package campus holds the off-campus student-life domain model: university
// accounts, students, registered parties, rental locations and incident
// reports.
package campus

import (
	"errors"
	"time"
)

// Account roles. The police principal is not an account row; it is a
// configured singleton identified downstream by a sentinel.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// Account statuses.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

var (
	ErrNotFound     = errors.New("campus: not found")
	ErrConflict     = errors.New("campus: resource conflict")
	ErrInvalidInput = errors.New("campus: invalid input")
)

// Account is a university login identity.
type Account struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	StudentID    string    `json:"student_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Student is the off-campus profile attached to an account.
type Student struct {
	ID             int64     `json:"id"`
	AccountID      int64     `json:"account_id"`
	Phone          string    `json:"phone,omitempty"`
	Address        string    `json:"address,omitempty"`
	GraduationYear int       `json:"graduation_year,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Party is a registered social event at a location.
type Party struct {
	ID            int64     `json:"id"`
	HostStudentID int64     `json:"host_student_id"`
	LocationID    int64     `json:"location_id"`
	Name          string    `json:"name"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	Expected      int       `json:"expected_attendance"`
	Registered    bool      `json:"registered"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Location is a rental address with running police counters. Warnings and
// citations only ever increase; increments are atomic in the store.
type Location struct {
	ID            int64     `json:"id"`
	StreetAddress string    `json:"street_address"`
	City          string    `json:"city"`
	Zip           string    `json:"zip"`
	WarningCount  int       `json:"warning_count"`
	CitationCount int       `json:"citation_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Incident is a complaint or police report tied to a location and optionally
// to a registered party. Reporter is "police" or a stringified account id.
type Incident struct {
	ID          string    `json:"id"`
	LocationID  int64     `json:"location_id"`
	PartyID     *int64    `json:"party_id,omitempty"`
	Reporter    string    `json:"reporter"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
	CreatedAt   time.Time `json:"created_at"`
}
