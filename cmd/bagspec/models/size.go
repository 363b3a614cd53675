package models

import "time"

// SizeEntry is a suggested size for one bag type
// Maps to: bag_sizes table
type SizeEntry struct {
	ID        int64     `json:"id"`
	SizeName  string    `json:"size_name"`
	BagType   BagType   `json:"bag_type"`
	CreatedAt time.Time `json:"created_at"`
}
