package domain

import (
	"context"
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func inProgressLead() Lead {
	started := testNow.Add(-time.Minute)
	return Lead{
		ID:            "lead-1",
		Phone:         "+14155552671",
		Status:        LeadInProgress,
		CallID:        "call-abc",
		CallStartedAt: &started,
	}
}

func staticQualify(q Qualification) QualifyFunc {
	return func(ctx context.Context, transcript string) (Qualification, error) {
		return q, nil
	}
}

func failingQualify(err error) QualifyFunc {
	return func(ctx context.Context, transcript string) (Qualification, error) {
		return Qualification{}, err
	}
}

func TestRejectNoContact(t *testing.T) {
	l := Lead{ID: "lead-1", Status: LeadPending}
	l.RejectNoContact()

	if l.Status != LeadRejected {
		t.Errorf("expected status %q, got %q", LeadRejected, l.Status)
	}
	if l.CallSummary != NoContactSummary {
		t.Errorf("expected summary %q, got %q", NoContactSummary, l.CallSummary)
	}
	if l.CallID != "" {
		t.Error("phoneless lead must never receive a call id")
	}
}

func TestAdvanceLeadIncompleteCallIsNoop(t *testing.T) {
	l := inProgressLead()
	before := l

	changed, err := AdvanceLead(context.Background(), &l, CallStatus{Completed: false}, staticQualify(Qualification{}), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed {
		t.Error("incomplete call must not change the lead")
	}
	if l != before {
		t.Error("lead was mutated on a no-op transition")
	}
}

func TestAdvanceLeadFailedCallRejectsEvenWhenIncomplete(t *testing.T) {
	l := inProgressLead()

	cs := CallStatus{Completed: false, Status: "failed", ErrorMessage: "carrier rejected"}
	changed, err := AdvanceLead(context.Background(), &l, cs, staticQualify(Qualification{}), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Fatal("expected lead to change")
	}
	if l.Status != LeadRejected {
		t.Errorf("expected status %q, got %q", LeadRejected, l.Status)
	}
	if l.CallScore == nil || *l.CallScore != 0 {
		t.Errorf("expected score 0, got %v", l.CallScore)
	}
	if l.CallSummary != "carrier rejected" {
		t.Errorf("expected provider error message as summary, got %q", l.CallSummary)
	}
	if l.CallEndedAt == nil {
		t.Error("expected call end timestamp to be set")
	}
}

func TestAdvanceLeadNoAnswerReturnsToPending(t *testing.T) {
	l := inProgressLead()

	qualifyCalled := false
	qualify := func(ctx context.Context, transcript string) (Qualification, error) {
		qualifyCalled = true
		return Qualification{Score: 5}, nil
	}

	cs := CallStatus{Completed: true, AnsweredBy: "no-answer"}
	changed, err := AdvanceLead(context.Background(), &l, cs, qualify, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Fatal("expected lead to change")
	}
	if qualifyCalled {
		t.Error("no-answer must never invoke qualification")
	}
	if l.Status != LeadPending {
		t.Errorf("expected status %q, got %q", LeadPending, l.Status)
	}
	if l.CallScore != nil {
		t.Errorf("expected score cleared, got %v", *l.CallScore)
	}
	if l.CallSummary != NoAnswerSummary {
		t.Errorf("expected summary %q, got %q", NoAnswerSummary, l.CallSummary)
	}
}

func TestAdvanceLeadQualificationThreshold(t *testing.T) {
	tests := []struct {
		name  string
		score int
		want  LeadStatus
	}{
		{name: "above threshold", score: 4, want: LeadQualified},
		{name: "at threshold", score: 3, want: LeadQualified},
		{name: "below threshold", score: 2, want: LeadRejected},
		{name: "minimum", score: 1, want: LeadRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := inProgressLead()
			cs := CallStatus{Completed: true, AnsweredBy: "human", ConcatenatedTranscript: "hello"}
			qualify := staticQualify(Qualification{Score: tt.score, Summary: "summary", Transcript: "transcript"})

			changed, err := AdvanceLead(context.Background(), &l, cs, qualify, testNow)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !changed {
				t.Fatal("expected lead to change")
			}
			if l.Status != tt.want {
				t.Errorf("score %d: expected status %q, got %q", tt.score, tt.want, l.Status)
			}
			if l.CallScore == nil || *l.CallScore != tt.score {
				t.Errorf("expected score %d to be recorded, got %v", tt.score, l.CallScore)
			}
		})
	}
}

func TestAdvanceLeadQualificationFailureLeavesLeadUnchanged(t *testing.T) {
	l := inProgressLead()
	before := l

	cs := CallStatus{Completed: true, AnsweredBy: "human", ConcatenatedTranscript: "hello"}
	changed, err := AdvanceLead(context.Background(), &l, cs, failingQualify(errors.New("model timeout")), testNow)
	if err == nil {
		t.Fatal("expected qualification error to propagate")
	}
	if changed {
		t.Error("failed qualification must not report a change")
	}
	if l != before {
		t.Error("failed qualification must leave the lead untouched for retry")
	}
}

func TestAdvanceLeadTerminalLeadIsNoop(t *testing.T) {
	for _, status := range []LeadStatus{LeadQualified, LeadRejected} {
		l := inProgressLead()
		l.Status = status
		before := l

		changed, err := AdvanceLead(context.Background(), &l, CallStatus{Completed: true}, staticQualify(Qualification{Score: 5}), testNow)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if changed || l != before {
			t.Errorf("terminal lead %q must never change", status)
		}
	}
}

func TestAdvanceLeadRecordsProviderOutcome(t *testing.T) {
	l := inProgressLead()
	duration := 42.5

	cs := CallStatus{
		Completed:              true,
		AnsweredBy:             "human",
		Transcript:             "raw transcript",
		ConcatenatedTranscript: "agent: hi\nlead: hello",
		DurationSeconds:        &duration,
	}
	changed, err := AdvanceLead(context.Background(), &l, cs, staticQualify(Qualification{Score: 4, Summary: "interested"}), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Fatal("expected lead to change")
	}
	if l.CallConcatenatedTranscript != cs.ConcatenatedTranscript {
		t.Errorf("expected concatenated transcript recorded, got %q", l.CallConcatenatedTranscript)
	}
	if l.CallDuration == nil || *l.CallDuration != duration {
		t.Errorf("expected duration %v, got %v", duration, l.CallDuration)
	}
	if l.CallEndedAt == nil || !l.CallEndedAt.Equal(testNow) {
		t.Errorf("expected end timestamp %v, got %v", testNow, l.CallEndedAt)
	}
}

func TestRecomputeStatus(t *testing.T) {
	b := Batch{
		Status: BatchInProgress,
		Leads: []Lead{
			{ID: "lead-1", Status: LeadQualified},
			{ID: "lead-2", Status: LeadInProgress},
		},
	}

	if changed := b.RecomputeStatus(); changed {
		t.Error("batch with in-progress lead must stay in_progress")
	}

	b.Leads[1].Status = LeadRejected
	if changed := b.RecomputeStatus(); !changed {
		t.Error("expected batch to transition to completed")
	}
	if b.Status != BatchCompleted {
		t.Errorf("expected status %q, got %q", BatchCompleted, b.Status)
	}

	// Pending leads do not block completion; only in-progress ones do.
	b.Leads[0].Status = LeadPending
	b.Status = BatchInProgress
	b.RecomputeStatus()
	if b.Status != BatchCompleted {
		t.Errorf("pending leads must not block completion, got %q", b.Status)
	}
}
