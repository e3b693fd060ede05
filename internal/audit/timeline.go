package audit

import (
	"encoding/json"
	"time"
)

// TimelineFilters narrows the audit timeline of one tenant.
type TimelineFilters struct {
	TenantID int64
	From     time.Time
	To       time.Time
	ActorID  int64
	Entity   string
	Action   string
	Page     int
	PageSize int
}

// TimelineRow is one audit log entry.
type TimelineRow struct {
	ID       int64           `json:"id"`
	At       time.Time       `json:"at"`
	ActorID  int64           `json:"actor_id"`
	Action   string          `json:"action"`
	Entity   string          `json:"entity"`
	EntityID string          `json:"entity_id"`
	Meta     json.RawMessage `json:"meta,omitempty"`
}

// PagingInfo is keyset-free paging: HasNext comes from over-fetching one row.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result wraps a timeline page.
type Result struct {
	Rows   []TimelineRow `json:"data"`
	Paging PagingInfo    `json:"paging"`
}
