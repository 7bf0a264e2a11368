package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/ports"
)

var _ ports.OrphanLedger = (*OrphanLedger)(nil)

// OrphanLedger persists orphaned object references in PostgreSQL.
type OrphanLedger struct {
	db *gorm.DB
}

// NewOrphanLedger wires a PostgreSQL-backed orphan ledger.
func NewOrphanLedger(db *gorm.DB) *OrphanLedger {
	return &OrphanLedger{db: db}
}

type orphanRecord struct {
	ID        string     `gorm:"primaryKey;column:id;size:36"`
	Reference string     `gorm:"column:reference;uniqueIndex:idx_media_orphans_pending_ref,where:reaped_at IS NULL"`
	Reason    string     `gorm:"column:reason;type:varchar(32)"`
	Attempts  int        `gorm:"column:attempts"`
	ReapedAt  *time.Time `gorm:"column:reaped_at;index"`
	CreatedAt time.Time  `gorm:"column:created_at;index"`
	UpdatedAt time.Time  `gorm:"column:updated_at"`
}

func (orphanRecord) TableName() string { return "media_orphans" }

// Record inserts one row per reference; references already pending are skipped.
func (l *OrphanLedger) Record(ctx context.Context, refs []string, reason ports.OrphanReason) error {
	if err := l.ensureDB(); err != nil {
		return err
	}
	records := make([]orphanRecord, 0, len(refs))
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		records = append(records, orphanRecord{ID: uuid.NewString(), Reference: ref, Reason: string(reason)})
	}
	if len(records) == 0 {
		return nil
	}
	return l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&records).Error
}

// Pending returns unreaped rows, oldest first.
func (l *OrphanLedger) Pending(ctx context.Context, limit int) ([]ports.OrphanRecord, error) {
	if err := l.ensureDB(); err != nil {
		return nil, err
	}
	var records []orphanRecord
	query := l.db.WithContext(ctx).Where("reaped_at IS NULL").Order("created_at ASC").Order("reference ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]ports.OrphanRecord, 0, len(records))
	for i := range records {
		out = append(out, records[i].toPort())
	}
	return out, nil
}

func (l *OrphanLedger) MarkReaped(ctx context.Context, ids []string) error {
	if err := l.ensureDB(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return l.db.WithContext(ctx).Model(&orphanRecord{}).
		Where("id IN ?", ids).
		Updates(map[string]any{"reaped_at": gorm.Expr("NOW()"), "updated_at": gorm.Expr("NOW()")}).Error
}

func (l *OrphanLedger) MarkFailed(ctx context.Context, ids []string) error {
	if err := l.ensureDB(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return l.db.WithContext(ctx).Model(&orphanRecord{}).
		Where("id IN ?", ids).
		Updates(map[string]any{"attempts": gorm.Expr("attempts + 1"), "updated_at": gorm.Expr("NOW()")}).Error
}

func (l *OrphanLedger) ensureDB() error {
	if l == nil || l.db == nil {
		return errors.New("postgres orphan ledger not configured")
	}
	return nil
}

func (r orphanRecord) toPort() ports.OrphanRecord {
	return ports.OrphanRecord{
		ID:        r.ID,
		Reference: r.Reference,
		Reason:    ports.OrphanReason(r.Reason),
		Attempts:  r.Attempts,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		ReapedAt:  r.ReapedAt,
	}
}
