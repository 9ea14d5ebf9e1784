package faults

import "time"

// Fault represents a persisted processing failure entry
type Fault struct {
	ID        int64     `json:"id"`
	ItemID    string    `json:"item_id"`
	Stage     string    `json:"stage,omitempty"` // analyze | store | other
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
