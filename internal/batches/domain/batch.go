package domain

import "time"

// BatchStatus is the lifecycle state of a batch.
type BatchStatus string

const (
	BatchInProgress BatchStatus = "in_progress"
	BatchCompleted  BatchStatus = "completed"
)

// Batch is a named collection of leads created together.
type Batch struct {
	ID        string      `json:"id"`
	Name      string      `json:"name,omitempty"`
	Status    BatchStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	Leads     []Lead      `json:"leads"`
}

// Lead returns a pointer to the lead with the given id, or nil.
func (b *Batch) Lead(id string) *Lead {
	for i := range b.Leads {
		if b.Leads[i].ID == id {
			return &b.Leads[i]
		}
	}
	return nil
}

// RecomputeStatus derives the batch status from its leads. A batch is
// completed exactly when no lead is in progress. Returns whether the status
// changed.
func (b *Batch) RecomputeStatus() bool {
	next := BatchCompleted
	for i := range b.Leads {
		if b.Leads[i].Status == LeadInProgress {
			next = BatchInProgress
			break
		}
	}
	if b.Status == next {
		return false
	}
	b.Status = next
	return true
}

// Counts summarizes lead outcomes for reporting.
type Counts struct {
	Pending    int
	InProgress int
	Qualified  int
	Rejected   int
	Total      int
}

// CountLeads tallies the batch's leads by status.
func (b *Batch) CountLeads() Counts {
	c := Counts{Total: len(b.Leads)}
	for i := range b.Leads {
		switch b.Leads[i].Status {
		case LeadPending:
			c.Pending++
		case LeadInProgress:
			c.InProgress++
		case LeadQualified:
			c.Qualified++
		case LeadRejected:
			c.Rejected++
		}
	}
	return c
}
