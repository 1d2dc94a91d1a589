package model

import "time"

// SendRecord is one successfully dispatched message. Records are only
// ever appended.
type SendRecord struct {
	// ID is the provider message id, or a locally generated id when the
	// provider response carried none.
	ID string `json:"id" db:"id"`

	// Timestamp is the send time in milliseconds since the Unix epoch.
	Timestamp int64 `json:"ts" db:"ts"`
}

// NewSendRecord stamps a record for id at t.
func NewSendRecord(id string, t time.Time) SendRecord {
	return SendRecord{ID: id, Timestamp: t.UnixMilli()}
}

// Time returns the record timestamp as a time.Time in UTC.
func (r SendRecord) Time() time.Time {
	return time.UnixMilli(r.Timestamp).UTC()
}

// Quota is the derived daily send allowance.
type Quota struct {
	Used      int `json:"used"`
	Cap       int `json:"cap"`
	Remaining int `json:"remaining"`
}

// NewQuota derives the remaining allowance, never going below zero.
func NewQuota(used, cap int) Quota {
	return Quota{Used: used, Cap: cap, Remaining: max(0, cap-used)}
}

// Exhausted reports whether no sends are left today.
func (q Quota) Exhausted() bool {
	return q.Used >= q.Cap
}

// StartOfDay returns local midnight of the calendar day containing t,
// in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
