package models

import (
	"time"

	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/google/uuid"
)

// OutboxEntryModel is the persistence model for an outbound event whose
// first publish attempt failed
type OutboxEntryModel struct {
	ID          uuid.UUID           `gorm:"type:uuid;primaryKey"`
	EventType   string              `gorm:"type:varchar(255);not null"`
	MessageKey  string              `gorm:"type:varchar(255);not null"`
	Payload     []byte              `gorm:"not null"`
	Status      shared.OutboxStatus `gorm:"type:varchar(20);not null;index:idx_outbox_status_created,priority:1"`
	RetryCount  int                 `gorm:"not null;default:0"`
	MaxRetries  int                 `gorm:"not null;default:5"`
	LastError   string              `gorm:"type:text"`
	NextRetryAt *time.Time          `gorm:"index:idx_outbox_next_retry"`
	ProcessedAt *time.Time
	CreatedAt   time.Time `gorm:"not null;index:idx_outbox_status_created,priority:2"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OutboxEntryModel) TableName() string {
	return "outbox_events"
}

// ToDomain converts the persistence model to a domain OutboxEntry
func (m *OutboxEntryModel) ToDomain() *shared.OutboxEntry {
	return &shared.OutboxEntry{
		ID:          m.ID,
		EventType:   m.EventType,
		MessageKey:  m.MessageKey,
		Payload:     m.Payload,
		Status:      m.Status,
		RetryCount:  m.RetryCount,
		MaxRetries:  m.MaxRetries,
		LastError:   m.LastError,
		NextRetryAt: m.NextRetryAt,
		ProcessedAt: m.ProcessedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// OutboxEntryModelFromDomain creates a persistence model from a domain OutboxEntry
func OutboxEntryModelFromDomain(e *shared.OutboxEntry) *OutboxEntryModel {
	return &OutboxEntryModel{
		ID:          e.ID,
		EventType:   e.EventType,
		MessageKey:  e.MessageKey,
		Payload:     e.Payload,
		Status:      e.Status,
		RetryCount:  e.RetryCount,
		MaxRetries:  e.MaxRetries,
		LastError:   e.LastError,
		NextRetryAt: e.NextRetryAt,
		ProcessedAt: e.ProcessedAt,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}
