package tickets

import "time"

// Priority of a helpdesk ticket.
type Priority string

// Ticket priorities.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Status of a helpdesk ticket.
type Status string

// Ticket statuses.
const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Ticket is an HR helpdesk request.
type Ticket struct {
	ID          int64     `json:"id"`
	TenantID    int64     `json:"tenant_id"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Priority    Priority  `json:"priority"`
	Status      Status    `json:"status"`
	RaisedBy    int64     `json:"raised_by"`
	Assignee    *int64    `json:"assignee,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Input carries the editable ticket fields.
type Input struct {
	Subject     string
	Description string
	Priority    Priority
	Status      Status
	Assignee    *int64
}

// ListFilter narrows ticket listings.
type ListFilter struct {
	TenantID int64
	Status   Status
	Page     int
	PerPage  int
}
