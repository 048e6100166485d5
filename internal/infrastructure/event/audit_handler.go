package event

import (
	"context"

	"github.com/catalog/backend/internal/domain/media"
	"github.com/catalog/backend/internal/domain/shared"
	"github.com/catalog/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AuditLogHandler writes one structured log line per media event, giving
// operators a trail of which objects were written and removed.
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates an AuditLogHandler
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: logger.Named("media.audit")}
}

// EventTypes returns the media event types
func (h *AuditLogHandler) EventTypes() []string {
	return []string{media.EventTypeAssetStored, media.EventTypeAssetDeleted}
}

// Handle logs the event
func (h *AuditLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	log := logger.WithTraceContext(ctx, h.logger).With(
		zap.String("event_id", event.EventID().String()),
		zap.String("asset_id", event.AggregateID().String()),
	)
	switch e := event.(type) {
	case *media.AssetStoredEvent:
		log.Info("Media asset stored",
			zap.String("filename", e.Filename),
			zap.String("tier", e.Tier.String()),
			zap.Strings("keys", e.Keys),
			zap.Bool("in_pool", e.InPool),
		)
	case *media.AssetDeletedEvent:
		log.Info("Media asset deleted",
			zap.String("tier", e.Tier.String()),
			zap.Strings("keys", e.Keys),
		)
	default:
		log.Debug("Ignoring event", zap.String("event_type", event.EventType()))
	}
	return nil
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)
