// Package events defines the domain events published by the application
// modules. Event names are stable strings used for subscription.
package events

// Event names.
const (
	BatchCreatedName   = "batches.created"
	BatchCompletedName = "batches.completed"
	LeadQualifiedName  = "leads.qualified"
)

// BatchCreated is published after a batch has been ingested and its initial
// wave of calls placed.
type BatchCreated struct {
	BatchID      string
	BatchName    string
	LeadCount    int
	CallsStarted int
}

func (BatchCreated) Name() string { return BatchCreatedName }

// BatchCompleted is published when the last in-flight call of a batch
// resolves and the batch transitions to completed.
type BatchCompleted struct {
	BatchID   string
	BatchName string
	Qualified int
	Rejected  int
	Pending   int
	Total     int
}

func (BatchCompleted) Name() string { return BatchCompletedName }

// LeadQualified is published when a lead's transcript scores at or above the
// qualification threshold.
type LeadQualified struct {
	BatchID string
	LeadID  string
	Score   int
}

func (LeadQualified) Name() string { return LeadQualifiedName }
