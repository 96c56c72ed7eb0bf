package payment

import "context"

// SubmitResult is the backend's answer to a payment submission.
type SubmitResult struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// Submitter forwards a validated payment payload to the system of record.
type Submitter interface {
	SubmitPayment(ctx context.Context, orderID string, p Payload) (SubmitResult, error)
}
