package delivery

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Ledger records sent reports so retries inside a window can be suppressed
type Ledger interface {
	// DeliveredSince reports whether a delivery under key was recorded at or
	// after since
	DeliveredSince(ctx context.Context, key Key, since time.Time) (bool, error)
	Record(ctx context.Context, entry Entry) error
	// Prune removes entries delivered before the cutoff
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// MySqlLedger stores delivery entries using GORM
type MySqlLedger struct {
	db *gorm.DB
}

// NewMySqlLedger creates a ledger with a MySQL connection
func NewMySqlLedger(databaseURL string) (*MySqlLedger, error) {
	return NewMySqlLedgerFromDialector(mysql.Open(databaseURL))
}

// NewMySqlLedgerFromDialector creates a ledger over any GORM dialector
func NewMySqlLedgerFromDialector(dialector gorm.Dialector) (*MySqlLedger, error) {
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return NewMySqlLedgerFromDB(db)
}

// NewMySqlLedgerFromDB creates a ledger sharing an existing connection
func NewMySqlLedgerFromDB(db *gorm.DB) (*MySqlLedger, error) {
	if err := db.AutoMigrate(&EntryModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tables: %w", err)
	}

	return &MySqlLedger{db: db}, nil
}

// DeliveredSince reports whether a matching delivery exists inside the window
func (l *MySqlLedger) DeliveredSince(ctx context.Context, key Key, since time.Time) (bool, error) {
	var count int64
	err := l.db.WithContext(ctx).Model(&EntryModel{}).
		Where("candidate_id = ? AND recipient = ? AND session_id = ?", key.CandidateID, key.Recipient, key.SessionID).
		Where("delivered_at >= ?", since).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to query deliveries: %w", err)
	}

	return count > 0, nil
}

// Record stores a delivery entry
func (l *MySqlLedger) Record(ctx context.Context, entry Entry) error {
	if !entry.Key().Valid() {
		return fmt.Errorf("candidate, recipient and session cannot be empty")
	}

	model := &EntryModel{
		CandidateID: entry.CandidateID,
		Recipient:   entry.Recipient,
		SessionID:   entry.SessionID,
		DeliveredAt: entry.DeliveredAt,
	}
	if err := l.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}

	return nil
}

// Prune removes entries delivered before the cutoff
func (l *MySqlLedger) Prune(ctx context.Context, before time.Time) (int64, error) {
	result := l.db.WithContext(ctx).Where("delivered_at < ?", before).Delete(&EntryModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune deliveries: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// Close closes the database connection
func (l *MySqlLedger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from gorm.DB: %w", err)
	}
	return sqlDB.Close()
}
