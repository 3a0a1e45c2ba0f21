// Package service contains the batch orchestrator: ingestion, call fan-out,
// status reconciliation, and single-call restarts. All batch mutation flows
// through here; writes to one batch are serialized by a per-batch lock.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"outreach_backend/internal/batches/domain"
	"outreach_backend/internal/batches/repository"
	"outreach_backend/internal/batches/transport"
	"outreach_backend/internal/events"
	"outreach_backend/internal/provider"
	"outreach_backend/internal/qualifier"
	"outreach_backend/platform/apperr"
	platformevents "outreach_backend/platform/events"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/phone"
)

// CallProvider places calls and polls their status.
type CallProvider interface {
	PlaceCall(ctx context.Context, phone string) (provider.CallHandle, error)
	GetCallStatus(ctx context.Context, callID string) (provider.CallStatus, error)
}

// Qualifier scores a call transcript.
type Qualifier interface {
	Qualify(ctx context.Context, transcript string) (qualifier.Result, error)
}

// ReconcileScheduler manages the background reconciliation loop for a batch.
// A nil scheduler disables background reconciliation; manual check-status
// still works.
type ReconcileScheduler interface {
	ScheduleReconcile(ctx context.Context, batchID string) error
	CancelReconcile(ctx context.Context, batchID string) error
}

// CreateResult summarizes batch creation for the HTTP layer.
type CreateResult struct {
	Batch          *domain.Batch
	LeadsProcessed int
	CallsStarted   int
}

// Orchestrator owns all batch state transitions.
type Orchestrator struct {
	store       repository.Store
	provider    CallProvider
	qualifier   Qualifier
	scheduler   ReconcileScheduler
	bus         platformevents.Bus
	log         *logger.Logger
	concurrency int
	now         func() time.Time

	// locks serializes read-modify-write cycles per batch id.
	locks sync.Map
}

// NewOrchestrator wires the orchestrator. scheduler and bus may be nil.
func NewOrchestrator(
	store repository.Store,
	callProvider CallProvider,
	qual Qualifier,
	scheduler ReconcileScheduler,
	bus platformevents.Bus,
	log *logger.Logger,
	concurrency int,
) *Orchestrator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Orchestrator{
		store:       store,
		provider:    callProvider,
		qualifier:   qual,
		scheduler:   scheduler,
		bus:         bus,
		log:         log,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// lock serializes read-modify-write cycles on one batch. The in-process
// mutex keeps goroutines of this process from contending on the store lock;
// the store lock extends the guarantee across the api and worker processes,
// which share one store. Entries are never removed from the map so two
// goroutines can never hold distinct mutexes for the same batch id.
func (o *Orchestrator) lock(ctx context.Context, batchID string) (func(), error) {
	mu, _ := o.locks.LoadOrStore(batchID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()

	release, err := o.store.Lock(ctx, batchID)
	if err != nil {
		m.Unlock()
		return nil, err
	}
	return func() {
		release()
		m.Unlock()
	}, nil
}

// CreateBatch ingests leads, places the initial wave of calls, and persists
// the new batch. Placement failures leave the affected lead pending; they
// never fail the batch.
func (o *Orchestrator) CreateBatch(ctx context.Context, name string, inputs []transport.LeadInput) (CreateResult, error) {
	leads := make([]domain.Lead, 0, len(inputs))
	dialable := 0
	for i, in := range inputs {
		lead := domain.Lead{
			ID:      in.ID,
			Name:    in.Name,
			Company: in.Company,
			Email:   in.Email,
			Phone:   normalizePhone(in.Phone),
			Status:  domain.LeadPending,
		}
		if lead.ID == "" {
			lead.ID = leadID(i)
		}
		if lead.HasPhone() {
			dialable++
		} else {
			lead.RejectNoContact()
		}
		leads = append(leads, lead)
	}

	if dialable == 0 {
		return CreateResult{}, apperr.Validation("no lead has a phone number")
	}

	batch := &domain.Batch{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    domain.BatchInProgress,
		CreatedAt: o.now().UTC(),
		Leads:     leads,
	}

	callsStarted := o.placeCalls(ctx, batch)
	batch.RecomputeStatus()

	if err := o.store.Create(ctx, batch); err != nil {
		return CreateResult{}, err
	}

	if o.scheduler != nil && batch.Status == domain.BatchInProgress {
		if err := o.scheduler.ScheduleReconcile(ctx, batch.ID); err != nil {
			o.log.Error("schedule_reconcile_failed", "batch_id", batch.ID, "error", err)
		}
	}
	if o.bus != nil {
		o.bus.Publish(ctx, events.BatchCreated{
			BatchID:      batch.ID,
			BatchName:    batch.Name,
			LeadCount:    len(batch.Leads),
			CallsStarted: callsStarted,
		})
	}

	return CreateResult{Batch: batch, LeadsProcessed: dialable, CallsStarted: callsStarted}, nil
}

// placeCalls fans out call placement over all pending leads with a phone.
// Each goroutine owns exactly one lead slot; failures are logged and the lead
// stays pending.
func (o *Orchestrator) placeCalls(ctx context.Context, batch *domain.Batch) int {
	var started int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for i := range batch.Leads {
		lead := &batch.Leads[i]
		if lead.Status != domain.LeadPending || !lead.HasPhone() {
			continue
		}
		g.Go(func() error {
			handle, err := o.provider.PlaceCall(gctx, lead.Phone)
			if err != nil {
				// No call was placed; record why so the persisted batch
				// shows the reason the lead never left pending.
				lead.CallSummary = "call not placed: " + err.Error()
				o.log.Error("call_placement_failed",
					"batch_id", batch.ID, "lead_id", lead.ID, "error", err)
				return nil
			}
			lead.MarkCallPlaced(handle.CallID, o.now().UTC())
			atomic.AddInt64(&started, 1)
			o.log.CallEvent("call_placed", batch.ID, lead.ID, handle.CallID)
			return nil
		})
	}
	g.Wait()
	return int(atomic.LoadInt64(&started))
}

// Reconcile polls the provider for every in-progress lead of the batch and
// applies the state machine to each independently. The batch is persisted
// only when at least one lead changed. A batch deleted while reconciliation
// is in flight is discarded without error.
func (o *Orchestrator) Reconcile(ctx context.Context, batchID string) (*domain.Batch, error) {
	unlock, err := o.lock(ctx, batchID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	log := o.log.WithContext(ctx).WithBatch(batchID)

	batch, err := o.store.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	wasInProgress := batch.Status == domain.BatchInProgress

	var changed int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for i := range batch.Leads {
		lead := &batch.Leads[i]
		if lead.Status != domain.LeadInProgress || lead.CallID == "" {
			continue
		}
		g.Go(func() error {
			status, err := o.provider.GetCallStatus(gctx, lead.CallID)
			if err != nil {
				// Status unknown; the next reconciliation retries.
				log.Error("call_status_check_failed",
					"lead_id", lead.ID, "call_id", lead.CallID, "error", err)
				return nil
			}
			advanced, err := domain.AdvanceLead(gctx, lead, toDomainStatus(status), o.qualifyFunc(), o.now().UTC())
			if err != nil {
				log.Error("qualification_failed", "lead_id", lead.ID, "error", err)
				return nil
			}
			if advanced {
				atomic.AddInt64(&changed, 1)
				o.log.CallEvent("lead_"+string(lead.Status), batch.ID, lead.ID, lead.CallID)
				if lead.Status == domain.LeadQualified && o.bus != nil {
					score := 0
					if lead.CallScore != nil {
						score = *lead.CallScore
					}
					o.bus.Publish(gctx, events.LeadQualified{BatchID: batch.ID, LeadID: lead.ID, Score: score})
				}
			}
			return nil
		})
	}
	g.Wait()

	statusChanged := batch.RecomputeStatus()
	if changed > 0 || statusChanged {
		if err := o.store.Put(ctx, batch); err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				log.Info("reconcile_discarded_deleted_batch")
				return batch, nil
			}
			return nil, err
		}
	}

	if wasInProgress && batch.Status == domain.BatchCompleted {
		o.onBatchCompleted(ctx, batch)
	}
	return batch, nil
}

func (o *Orchestrator) onBatchCompleted(ctx context.Context, batch *domain.Batch) {
	if o.scheduler != nil {
		if err := o.scheduler.CancelReconcile(ctx, batch.ID); err != nil {
			o.log.Error("cancel_reconcile_failed", "batch_id", batch.ID, "error", err)
		}
	}
	if o.bus != nil {
		counts := batch.CountLeads()
		o.bus.Publish(ctx, events.BatchCompleted{
			BatchID:   batch.ID,
			BatchName: batch.Name,
			Qualified: counts.Qualified,
			Rejected:  counts.Rejected,
			Pending:   counts.Pending,
			Total:     counts.Total,
		})
	}
}

// StartSingleCall re-attempts placement for one lead, regardless of its
// current state. This is the explicit out-of-band restart of the call cycle.
func (o *Orchestrator) StartSingleCall(ctx context.Context, batchID, leadID string) (string, error) {
	unlock, err := o.lock(ctx, batchID)
	if err != nil {
		return "", err
	}
	defer unlock()

	batch, err := o.store.Get(ctx, batchID)
	if err != nil {
		return "", err
	}
	lead := batch.Lead(leadID)
	if lead == nil {
		return "", apperr.NotFound("lead not found")
	}
	if !lead.HasPhone() {
		return "", apperr.Validation("lead has no phone number")
	}

	handle, err := o.provider.PlaceCall(ctx, lead.Phone)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "call placement failed", err).WithOp("batches.startSingleCall")
	}

	lead.MarkCallPlaced(handle.CallID, o.now().UTC())
	batch.RecomputeStatus()
	if err := o.store.Put(ctx, batch); err != nil {
		return "", err
	}
	o.log.CallEvent("call_placed", batch.ID, lead.ID, handle.CallID)

	if o.scheduler != nil {
		if err := o.scheduler.ScheduleReconcile(ctx, batch.ID); err != nil {
			o.log.Error("schedule_reconcile_failed", "batch_id", batch.ID, "error", err)
		}
	}
	return handle.CallID, nil
}

// DeleteBatch removes the batch and releases its background reconciliation.
func (o *Orchestrator) DeleteBatch(ctx context.Context, batchID string) error {
	unlock, err := o.lock(ctx, batchID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := o.store.Delete(ctx, batchID); err != nil {
		return err
	}

	if o.scheduler != nil {
		if err := o.scheduler.CancelReconcile(ctx, batchID); err != nil {
			o.log.Error("cancel_reconcile_failed", "batch_id", batchID, "error", err)
		}
	}
	return nil
}

// GetBatch returns one batch by id.
func (o *Orchestrator) GetBatch(ctx context.Context, batchID string) (*domain.Batch, error) {
	return o.store.Get(ctx, batchID)
}

// ListBatches returns all batches.
func (o *Orchestrator) ListBatches(ctx context.Context) ([]domain.Batch, error) {
	return o.store.List(ctx)
}

func (o *Orchestrator) qualifyFunc() domain.QualifyFunc {
	return func(ctx context.Context, transcript string) (domain.Qualification, error) {
		result, err := o.qualifier.Qualify(ctx, transcript)
		if err != nil {
			return domain.Qualification{}, err
		}
		return domain.Qualification{
			Score:      result.Score,
			Summary:    result.Summary,
			Transcript: result.Transcript,
		}, nil
	}
}

func toDomainStatus(cs provider.CallStatus) domain.CallStatus {
	return domain.CallStatus{
		Completed:              cs.Completed,
		Status:                 cs.Status,
		AnsweredBy:             cs.AnsweredBy,
		Transcript:             cs.Transcript,
		ConcatenatedTranscript: cs.ConcatenatedTranscript,
		Summary:                cs.Summary,
		DurationSeconds:        cs.CallLength,
		ErrorMessage:           cs.ErrorMessage,
	}
}

// normalizePhone canonicalizes to E.164 when the number parses; otherwise the
// trimmed input is kept and the provider gets the final say at placement.
func normalizePhone(raw string) string {
	if normalized := phone.Normalize(raw); normalized != "" {
		return normalized
	}
	return strings.TrimSpace(raw)
}

func leadID(index int) string {
	return fmt.Sprintf("lead-%d", index+1)
}
