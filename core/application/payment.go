package application

import (
	"strings"

	"github.com/google/uuid"
)

// PaymentOutcome is the classification of a payment gateway status.
type PaymentOutcome int

const (
	PaymentPending PaymentOutcome = iota
	PaymentSucceeded
	PaymentFailed
)

func (o PaymentOutcome) String() string {
	switch o {
	case PaymentSucceeded:
		return "success"
	case PaymentFailed:
		return "failure"
	case PaymentPending:
		return "pending"
	}
	return "pending"
}

// ClassifyGatewayStatus maps a gateway status string to an outcome. Unknown statuses are pending.
func ClassifyGatewayStatus(s string) PaymentOutcome {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success", "successful", "captured", "paid", "settlement", "completed":
		return PaymentSucceeded
	case "failure", "failed", "deny", "denied", "cancel", "cancelled", "canceled", "expire", "expired":
		return PaymentFailed
	}
	return PaymentPending
}

// newOrderID returns a fresh order id such as "ORD-1F0C2A9B77E34D1A".
func newOrderID() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return "ORD-" + id[:16]
}
