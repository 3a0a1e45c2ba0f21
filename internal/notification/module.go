package notification

import (
	"context"
	"fmt"

	"outreach_backend/internal/events"
	platformevents "outreach_backend/platform/events"
	"outreach_backend/platform/logger"
)

// Module subscribes to domain events and emails batch summaries.
type Module struct {
	sender Sender
	log    *logger.Logger
}

// NewModule creates the notification module.
func NewModule(sender Sender, log *logger.Logger) *Module {
	return &Module{sender: sender, log: log}
}

// Register subscribes the module to the event bus.
func (m *Module) Register(bus platformevents.Bus) {
	bus.Subscribe(events.BatchCompletedName, m.onBatchCompleted)
}

func (m *Module) onBatchCompleted(ctx context.Context, event platformevents.Event) {
	completed, ok := event.(events.BatchCompleted)
	if !ok {
		return
	}

	name := completed.BatchName
	if name == "" {
		name = completed.BatchID
	}
	subject := fmt.Sprintf("Call batch %q completed", name)
	body := fmt.Sprintf(
		"Batch %s has finished processing.\n\nLeads: %d\nQualified: %d\nRejected: %d\nAwaiting re-call: %d\n",
		completed.BatchID, completed.Total, completed.Qualified, completed.Rejected, completed.Pending,
	)

	if err := m.sender.Send(ctx, subject, body); err != nil {
		m.log.Error("batch_summary_email_failed", "batch_id", completed.BatchID, "error", err)
		return
	}
	m.log.Info("batch_summary_email_sent", "batch_id", completed.BatchID)
}
