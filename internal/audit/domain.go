package audit

import "time"

// Entry is one row of the audit trail.
type Entry struct {
	ID         int64          `json:"id"`
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	Entity     string         `json:"entity"`
	EntityID   string         `json:"entityId"`
	Meta       map[string]any `json:"meta,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// Filters narrows the audit trail query.
type Filters struct {
	From     time.Time
	To       time.Time
	Actor    string
	Entity   string
	Action   string
	Page     int
	PageSize int
}

// Paging carries next/prev metadata without a total count. The trail can
// grow large, so listing avoids COUNT(*) and probes one row past the page.
type Paging struct {
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasNext  bool `json:"hasNext"`
	PrevPage int  `json:"prevPage,omitempty"`
	NextPage int  `json:"nextPage,omitempty"`
}

// Result bundles a page of entries with its paging metadata.
type Result struct {
	Rows   []Entry `json:"rows"`
	Paging Paging  `json:"paging"`
}
