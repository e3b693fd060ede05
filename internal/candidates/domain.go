package candidates

import "time"

// Stage is a step of the recruitment pipeline.
type Stage string

// Pipeline stages.
const (
	StageApplied   Stage = "applied"
	StageScreening Stage = "screening"
	StageInterview Stage = "interview"
	StageOffer     Stage = "offer"
	StageHired     Stage = "hired"
	StageRejected  Stage = "rejected"
)

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StageApplied, StageScreening, StageInterview, StageOffer, StageHired, StageRejected:
		return true
	}
	return false
}

// Terminal reports whether candidates can no longer leave s.
func (s Stage) Terminal() bool {
	return s == StageHired || s == StageRejected
}

// Candidate is a person moving through the recruitment pipeline.
type Candidate struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Position  string    `json:"position"`
	Stage     Stage     `json:"stage"`
	Notes     string    `json:"notes"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Input carries the editable candidate fields.
type Input struct {
	Name     string
	Email    string
	Phone    string
	Position string
	Stage    Stage
	Notes    string
}

// ListFilter narrows candidate listings.
type ListFilter struct {
	TenantID int64
	Stage    Stage
	Page     int
	PerPage  int
}
