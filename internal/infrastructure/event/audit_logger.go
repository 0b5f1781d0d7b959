package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/pharmadist/backend/internal/domain/shared"
)

// AuditLogger is a wildcard event handler that writes one structured
// log line per domain event. It gives operators a trace of every
// state change without a dedicated audit store.
type AuditLogger struct {
	logger *zap.Logger
}

// NewAuditLogger creates an audit logger writing to the given logger.
func NewAuditLogger(logger *zap.Logger) *AuditLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditLogger{logger: logger.Named("audit")}
}

// EventTypes returns an empty slice: the audit log receives every
// event published on the bus.
func (a *AuditLogger) EventTypes() []string {
	return nil
}

// Handle logs the event.
func (a *AuditLogger) Handle(_ context.Context, event shared.DomainEvent) error {
	a.logger.Info("Domain event",
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	)
	return nil
}

var _ shared.EventHandler = (*AuditLogger)(nil)
