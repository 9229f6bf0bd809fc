package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/orderdesk/backend/internal/domain/order"
	"github.com/orderdesk/backend/internal/domain/shared"
)

// orderDocument is the persisted row: the reconciled record serialized as a
// JSON document keyed by its normalized identifier. The timestamp columns
// are denormalized copies used only for inspection; the document is the
// source of truth.
type orderDocument struct {
	Identifier string    `gorm:"primaryKey;size:191"`
	Document   []byte    `gorm:"not null"`
	CreatedAt  time.Time `gorm:"index"`
	UpdatedAt  time.Time `gorm:"index"`
}

// TableName sets the table name for GORM
func (orderDocument) TableName() string {
	return "order_documents"
}

// GormOrderRepository implements the order document store on a relational
// database through GORM, storing each record as a JSON document.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository wraps an existing GORM handle and migrates the
// document table.
func NewGormOrderRepository(db *gorm.DB) (*GormOrderRepository, error) {
	if err := db.AutoMigrate(&orderDocument{}); err != nil {
		return nil, fmt.Errorf("migrate order documents: %w", err)
	}
	return &GormOrderRepository{db: db}, nil
}

// OpenSQLite opens a SQLite-backed repository at the given path
func OpenSQLite(path string) (*GormOrderRepository, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return NewGormOrderRepository(db)
}

// OpenPostgres opens a PostgreSQL-backed repository with the given DSN
func OpenPostgres(dsn string) (*GormOrderRepository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewGormOrderRepository(db)
}

// Get returns the record for the normalized identifier
func (r *GormOrderRepository) Get(ctx context.Context, identifier string) (*order.OrderRecord, error) {
	var doc orderDocument
	err := r.db.WithContext(ctx).First(&doc, "identifier = ?", identifier).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound.WithMessage("order " + identifier + " not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", identifier, err)
	}
	return decodeDocument(&doc)
}

// Put stores the record, overwriting any previous version
func (r *GormOrderRepository) Put(ctx context.Context, record *order.OrderRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode order %s: %w", record.Identifier, err)
	}
	doc := orderDocument{
		Identifier: record.Identifier,
		Document:   raw,
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  record.UpdatedAt,
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identifier"}},
		UpdateAll: true,
	}).Create(&doc).Error
	if err != nil {
		return fmt.Errorf("store order %s: %w", record.Identifier, err)
	}
	return nil
}

// Delete removes the record for the identifier
func (r *GormOrderRepository) Delete(ctx context.Context, identifier string) error {
	res := r.db.WithContext(ctx).Delete(&orderDocument{}, "identifier = ?", identifier)
	if res.Error != nil {
		return fmt.Errorf("delete order %s: %w", identifier, res.Error)
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound.WithMessage("order " + identifier + " not found")
	}
	return nil
}

// List returns all records in unspecified order
func (r *GormOrderRepository) List(ctx context.Context) ([]*order.OrderRecord, error) {
	var docs []orderDocument
	if err := r.db.WithContext(ctx).Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	records := make([]*order.OrderRecord, 0, len(docs))
	for i := range docs {
		rec, err := decodeDocument(&docs[i])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeDocument(doc *orderDocument) (*order.OrderRecord, error) {
	var rec order.OrderRecord
	if err := json.Unmarshal(doc.Document, &rec); err != nil {
		return nil, fmt.Errorf("decode order %s: %w", doc.Identifier, err)
	}
	return &rec, nil
}
