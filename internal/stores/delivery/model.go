package delivery

import (
	"time"

	"github.com/google/uuid"
)

// EntryModel is the GORM model for one recorded report delivery
type EntryModel struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	CandidateID string    `gorm:"size:255;not null;index:idx_delivery_key"`
	Recipient   string    `gorm:"size:255;not null;index:idx_delivery_key"`
	SessionID   uuid.UUID `gorm:"type:char(36);not null;index:idx_delivery_key"`
	DeliveredAt time.Time `gorm:"not null;index"`
}

// TableName sets the table name for GORM
func (EntryModel) TableName() string {
	return "report_deliveries"
}

// Key identifies one report delivery. The session is part of the key, so a
// later interview by the same candidate is never suppressed by an earlier one.
type Key struct {
	CandidateID string
	Recipient   string
	SessionID   uuid.UUID
}

// Valid reports whether every part of the key is set
func (k Key) Valid() bool {
	return k.CandidateID != "" && k.Recipient != "" && k.SessionID != uuid.Nil
}

// Entry is a delivery recorded against a key
type Entry struct {
	CandidateID string
	Recipient   string
	SessionID   uuid.UUID
	DeliveredAt time.Time
}

// Key returns the key the entry was recorded under
func (e Entry) Key() Key {
	return Key{CandidateID: e.CandidateID, Recipient: e.Recipient, SessionID: e.SessionID}
}
