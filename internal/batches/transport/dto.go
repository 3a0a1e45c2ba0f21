// Package transport defines the request and response shapes of the batches
// HTTP API.
package transport

// LeadInput is one lead as submitted at batch creation. The id is optional;
// missing ids are assigned positionally at ingestion.
type LeadInput struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Company string `json:"company"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

// CreateBatchRequest is the body of POST /batches.
type CreateBatchRequest struct {
	Name  string      `json:"name"`
	Leads []LeadInput `json:"leads" validate:"required,min=1"`
}

// CreateBatchResponse is the creation summary returned with 201.
type CreateBatchResponse struct {
	ID             string `json:"id"`
	LeadsProcessed int    `json:"leadsProcessed"`
	CallsStarted   int    `json:"callsStarted"`
	Status         string `json:"status"`
}

// StartCallRequest is the body of POST /batches/{id}/start-call.
type StartCallRequest struct {
	LeadID string `json:"leadId" validate:"required"`
}

// StartCallResponse carries the handle of the placed call.
type StartCallResponse struct {
	CallID string `json:"callId"`
}
