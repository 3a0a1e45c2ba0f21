// Package domain holds the batch and lead model together with the pure state
// machine governing a lead's call lifecycle. Nothing in this package touches
// the network or the store.
package domain

import (
	"context"
	"strings"
	"time"
)

// LeadStatus is the lifecycle state of a lead.
type LeadStatus string

const (
	LeadPending    LeadStatus = "pending"
	LeadInProgress LeadStatus = "in_progress"
	LeadQualified  LeadStatus = "qualified"
	LeadRejected   LeadStatus = "rejected"
)

// QualificationThreshold is the minimum transcript score, on the 1-5 scale,
// for a lead to be qualified. A score equal to the threshold qualifies.
const QualificationThreshold = 3

// NoContactSummary is recorded on leads rejected at ingestion for lacking a
// phone number.
const NoContactSummary = "no contact method"

// NoAnswerSummary is recorded on leads whose call completed without being
// answered.
const NoAnswerSummary = "no answer"

// Lead is one outreach target within a batch.
type Lead struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Company string `json:"company,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`

	Status LeadStatus `json:"status"`

	CallID        string     `json:"callId,omitempty"`
	CallStartedAt *time.Time `json:"callStartedAt,omitempty"`
	CallEndedAt   *time.Time `json:"callEndedAt,omitempty"`

	CallTranscript             string   `json:"callTranscript,omitempty"`
	CallConcatenatedTranscript string   `json:"callConcatenatedTranscript,omitempty"`
	CallSummary                string   `json:"callSummary,omitempty"`
	CallScore                  *int     `json:"callScore,omitempty"`
	CallDuration               *float64 `json:"callDuration,omitempty"`
}

// HasPhone reports whether the lead is eligible for calling.
func (l *Lead) HasPhone() bool {
	return strings.TrimSpace(l.Phone) != ""
}

// Terminal reports whether the lead has reached a final state. Terminal leads
// are never touched by reconciliation; only an explicit re-call restarts the
// cycle.
func (l *Lead) Terminal() bool {
	return l.Status == LeadQualified || l.Status == LeadRejected
}

// RejectNoContact marks a phoneless lead as terminally rejected at ingestion.
func (l *Lead) RejectNoContact() {
	l.Status = LeadRejected
	l.CallSummary = NoContactSummary
}

// MarkCallPlaced transitions the lead to in_progress after a successful call
// placement. CallStartedAt is set once per placement.
func (l *Lead) MarkCallPlaced(callID string, now time.Time) {
	l.Status = LeadInProgress
	l.CallID = callID
	started := now
	l.CallStartedAt = &started
	l.CallEndedAt = nil
}

// CallStatus is the provider's view of a call, as consumed by the state
// machine. Fields map one-to-one onto the provider poll response.
type CallStatus struct {
	Completed              bool
	Status                 string
	AnsweredBy             string
	Transcript             string
	ConcatenatedTranscript string
	Summary                string
	DurationSeconds        *float64
	ErrorMessage           string
}

// Failed reports whether the provider marked the call as failed or errored.
// This takes precedence over the Completed flag.
func (cs CallStatus) Failed() bool {
	s := strings.ToLower(cs.Status)
	return s == "failed" || s == "error"
}

// Qualification is the scored outcome of a transcript.
type Qualification struct {
	Score      int
	Summary    string
	Transcript string
}

// QualifyFunc scores a call transcript. Implementations fail with an error on
// transport problems or malformed model output; the state machine then leaves
// the lead unchanged so the next reconciliation retries.
type QualifyFunc func(ctx context.Context, transcript string) (Qualification, error)

// AdvanceLead applies one provider status observation to an in-progress lead
// and returns whether the lead changed. The lead is mutated only when the
// whole transition succeeds; a qualification failure leaves it untouched.
//
/// Transition rules, checked in order:
//  1. Terminal leads and leads without a call handle never change.
//  2. A failed or errored call rejects the lead with score 0.
//  3. An incomplete call is left alone until the next observation.
//  4. A completed unanswered call returns the lead to pending for a re-call.
//  5. Otherwise the transcript is scored and the lead becomes qualified or
//     rejected against the threshold.
func AdvanceLead(ctx context.Context, l *Lead, cs CallStatus, qualify QualifyFunc, now time.Time) (bool, error) {
	if l.Terminal() || l.CallID == "" {
		return false, nil
	}

	next := *l
	next.recordOutcome(cs, now)

	switch {
	case cs.Failed():
		next.Status = LeadRejected
		zero := 0
		next.CallScore = &zero
		next.CallSummary = cs.ErrorMessage
		if next.CallSummary == "" {
			next.CallSummary = "call failed"
		}

	case !cs.Completed:
		return false, nil

	case cs.AnsweredBy == "no-answer":
		next.Status = LeadPending
		next.CallScore = nil
		next.CallSummary = NoAnswerSummary

	default:
		result, err := qualify(ctx, cs.ConcatenatedTranscript)
		if err != nil {
			return false, err
		}
		score := result.Score
		next.CallScore = &score
		next.CallSummary = result.Summary
		if result.Transcript != "" {
			next.CallTranscript = result.Transcript
		}
		if score >= QualificationThreshold {
			next.Status = LeadQualified
		} else {
			next.Status = LeadRejected
		}
	}

	*l = next
	return true, nil
}

// recordOutcome copies the raw provider outcome fields onto the lead and
// stamps the call end once.
func (l *Lead) recordOutcome(cs CallStatus, now time.Time) {
	if cs.Transcript != "" {
		l.CallTranscript = cs.Transcript
	}
	if cs.ConcatenatedTranscript != "" {
		l.CallConcatenatedTranscript = cs.ConcatenatedTranscript
	}
	if cs.DurationSeconds != nil {
		duration := *cs.DurationSeconds
		l.CallDuration = &duration
	}
	if l.CallEndedAt == nil {
		ended := now
		l.CallEndedAt = &ended
	}
}
