package models

import "time"

// AccidentStatus is the verification state of a report.
type AccidentStatus string

const (
	AccidentNotConfirmed AccidentStatus = "not_confirmed"
	AccidentConfirmed    AccidentStatus = "confirmed"
	AccidentFalseReport  AccidentStatus = "false_report"
)

// Valid reports whether s is a known status.
func (s AccidentStatus) Valid() bool {
	switch s {
	case AccidentNotConfirmed, AccidentConfirmed, AccidentFalseReport:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s AccidentStatus) Terminal() bool {
	return s == AccidentConfirmed || s == AccidentFalseReport
}

// Accident represents a row of the accidents table.
type Accident struct {
	ID                string         `db:"id"`
	UserID            *string        `db:"user_id"`
	Latitude          float64        `db:"latitude"`
	Longitude         float64        `db:"longitude"`
	Description       string         `db:"description"`
	Severity          int            `db:"severity"`
	CasualtiesDead    int            `db:"casualties_dead"`
	CasualtiesInjured int            `db:"casualties_injured"`
	Status            AccidentStatus `db:"status"`
	VerifiedBy        *string        `db:"verified_by"`
	PhotoURL          *string        `db:"photo_url"`
	IsAnonymous       bool           `db:"is_anonymous"`
	CreatedAt         time.Time      `db:"created_at"`
}

// AccidentDetail is an accident joined with reporter and verifier summaries.
type AccidentDetail struct {
	Accident
	ReporterUsername *string `db:"reporter_username"`
	ReporterRole     *Role   `db:"reporter_role"`
	VerifierUsername *string `db:"verifier_username"`
	VerifierRole     *Role   `db:"verifier_role"`
}

// AccidentFilter narrows accident listings.
type AccidentFilter struct {
	Status   *AccidentStatus
	Page     int
	PageSize int
}
