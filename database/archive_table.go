package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sensor_data_migrator/apperr"
	"sensor_data_migrator/models"

	"gorm.io/gorm"
)

// archiveBatchSize bounds the rows per INSERT statement
const archiveBatchSize = 500

// ArchivedRecord is one archived record stored as JSON in a SQL archive
type ArchivedRecord struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Kind       string    `gorm:"index;not null;size:32" json:"kind"`
	ArchivedAt time.Time `gorm:"autoCreateTime;index" json:"archived_at"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
}

// TableName customizes the table name
func (ArchivedRecord) TableName() string {
	return "archived_records"
}

// ArchiveTable is an archive store backed by a relational database, for
// cold storage on a separate server and for local development
type ArchiveTable struct {
	db *gorm.DB
}

// NewArchiveTable creates an ArchiveTable
func NewArchiveTable(db *gorm.DB) *ArchiveTable {
	return &ArchiveTable{db: db}
}

// Migrate creates the archive table if it does not exist
func (t *ArchiveTable) Migrate() error {
	return t.db.AutoMigrate(&ArchivedRecord{})
}

// Append inserts the records in batches
func (t *ArchiveTable) Append(ctx context.Context, kind models.TableKind, records []models.ArchiveRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]ArchivedRecord, 0, len(records))
	for i, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			return apperr.Archive(fmt.Sprintf("encode %s record %d", kind, i), err)
		}
		rows = append(rows, ArchivedRecord{Kind: string(kind), Payload: string(payload)})
	}

	if err := t.db.WithContext(ctx).CreateInBatches(rows, archiveBatchSize).Error; err != nil {
		return apperr.Archive(fmt.Sprintf("insert %d %s records", len(rows), kind), err)
	}
	return nil
}

// Count returns how many records of kind have been archived
func (t *ArchiveTable) Count(ctx context.Context, kind models.TableKind) (int64, error) {
	var count int64
	err := t.db.WithContext(ctx).Model(&ArchivedRecord{}).Where("kind = ?", string(kind)).Count(&count).Error
	if err != nil {
		return 0, apperr.Archive("count records", err)
	}
	return count, nil
}

// Records returns the decoded payloads of kind in insertion order
func (t *ArchiveTable) Records(ctx context.Context, kind models.TableKind) ([]map[string]interface{}, error) {
	var rows []ArchivedRecord
	if err := t.db.WithContext(ctx).Where("kind = ?", string(kind)).Order("id").Find(&rows).Error; err != nil {
		return nil, apperr.Archive("read records", err)
	}
	payloads := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		var payload map[string]interface{}
		if err := json.Unmarshal([]byte(row.Payload), &payload); err != nil {
			return nil, apperr.Archive(fmt.Sprintf("decode record %d", row.ID), err)
		}
		payloads = append(payloads, payload)
	}
	return payloads, nil
}
