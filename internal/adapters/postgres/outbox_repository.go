package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/ports"
	"gorm.io/gorm"
)

type outboxRepository struct {
	db *gorm.DB
}

func (r *outboxRepository) Enqueue(ctx context.Context, record ports.OutboxRecord) error {
	rec := revenueOutboxModel{
		OutboxID:         record.RecordID,
		EventType:        record.Envelope.EventType,
		EventClass:       record.EventClass,
		PartitionKey:     record.Envelope.PartitionKey,
		PartitionKeyPath: record.Envelope.PartitionKeyPath,
		Payload:          string(record.Envelope.Data),
		SchemaVersion:    record.Envelope.SchemaVersion,
		SourceService:    record.Envelope.SourceService,
		TraceID:          record.Envelope.TraceID,
		OccurredAt:       record.Envelope.OccurredAt,
		CreatedAt:        record.CreatedAt,
		PublishedAt:      record.SentAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *outboxRepository) ListPending(ctx context.Context, limit int) ([]ports.OutboxRecord, error) {
	var rows []revenueOutboxModel
	if err := r.db.WithContext(ctx).
		Where("published_at IS NULL").
		Order("created_at asc").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ports.OutboxRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, ports.OutboxRecord{
			RecordID:   row.OutboxID,
			EventClass: row.EventClass,
			Envelope: contracts.EventEnvelope{
				EventID:          row.OutboxID,
				EventType:        row.EventType,
				EventClass:       row.EventClass,
				OccurredAt:       row.OccurredAt,
				PartitionKeyPath: row.PartitionKeyPath,
				PartitionKey:     row.PartitionKey,
				SourceService:    row.SourceService,
				TraceID:          row.TraceID,
				SchemaVersion:    row.SchemaVersion,
				Data:             json.RawMessage(row.Payload),
			},
			CreatedAt: row.CreatedAt,
			SentAt:    row.PublishedAt,
		})
	}
	return out, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, recordID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&revenueOutboxModel{}).
		Where("outbox_id = ?", recordID).
		Update("published_at", at).Error
}
