// Package models provides data model definitions for the fieldlog collector.
package models

import "time"

// SyncStatus represents the delivery state of a record.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusError   SyncStatus = "error"
)

// Category is the fixed set of record categories accepted at capture time.
type Category string

const (
	CategoryTask     Category = "task"
	CategoryNote     Category = "note"
	CategoryExpense  Category = "expense"
	CategoryPurchase Category = "purchase"
	CategoryOther    Category = "other"
)

// Payload holds the capture-side fields of a record. Title and category are
// required; everything else is optional. Value is a pointer so "absent" and
// zero stay distinguishable.
type Payload struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description,omitempty"`
	Category    Category `json:"category" validate:"required,oneof=task note expense purchase other"`
	Value       *float64 `json:"value,omitempty"`
	Memo        string   `json:"memo,omitempty"`
}

// Record represents one captured unit of work in the durable queue.
// ID is assigned by the queue at insert time and never reused. The payload
// fields and CreatedAt are immutable after creation; only the sync engine
// mutates SyncStatus, ServerID and LastError.
type Record struct {
	ID          int64      `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description,omitempty"`
	Category    Category   `db:"category" json:"category"`
	Value       *float64   `db:"value" json:"value,omitempty"`
	Memo        string     `db:"memo" json:"memo,omitempty"`
	CreatedAt   int64      `db:"created_at" json:"created_at"`
	SyncStatus  SyncStatus `db:"sync_status" json:"sync_status"`
	ServerID    *int64     `db:"server_id" json:"server_id,omitempty"`
	LastError   string     `db:"last_error" json:"last_error,omitempty"`
}

// TableName returns the table name for Record.
func (Record) TableName() string {
	return "records"
}

// Payload returns the capture-side fields of the record.
func (r *Record) Payload() Payload {
	return Payload{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Value:       r.Value,
		Memo:        r.Memo,
	}
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (r *Record) CreatedAtTime() time.Time {
	return time.Unix(r.CreatedAt, 0)
}
