package fees

import (
	"math"
	"time"

	"github.com/trezcool/admissions/core"
)

// Status is the dashboard status of a fee line or group.
type Status string

const (
	StatusPaid          Status = "paid"
	StatusPartiallyPaid Status = "partially_paid"
	StatusOverdue       Status = "overdue"
	StatusPending       Status = "pending"
	StatusCancelled     Status = "cancelled"
)

// Urgency tells how close an unpaid due date is.
type Urgency string

const (
	UrgencyOverdue  Urgency = "overdue"
	UrgencyCritical Urgency = "critical"
	UrgencyWarning  Urgency = "warning"
	UrgencyNormal   Urgency = "normal"
)

// PaymentStatus is the stored payment status of a fee mapping.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSuccess   PaymentStatus = "SUCCESS"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentSuccess, PaymentFailed, PaymentCancelled:
		return true
	}
	return false
}

func overdue(due *time.Time, now time.Time) bool {
	return due != nil && core.DateOf(*due).Before(core.DateOf(now))
}

// Classify returns the status of a single fee line.
// Cancelled wins over paid, and paid wins over any due date.
func Classify(hasPaid, cancelled bool, due *time.Time, now time.Time) Status {
	switch {
	case cancelled:
		return StatusCancelled
	case hasPaid:
		return StatusPaid
	case overdue(due, now):
		return StatusOverdue
	}
	return StatusPending
}

// Item is a line of a group as seen by GroupStatus.
type Item struct {
	Paid      bool
	Cancelled bool
	DueDate   *time.Time
}

// GroupStatus returns the status of a group of lines owing required and having paid so far.
// A group that owes nothing is paid.
func GroupStatus(required, paid core.Amount, items []Item, now time.Time) Status {
	switch {
	case paid >= required:
		return StatusPaid
	case paid > 0:
		return StatusPartiallyPaid
	}
	for _, it := range items {
		if !it.Paid && !it.Cancelled && overdue(it.DueDate, now) {
			return StatusOverdue
		}
	}
	return StatusPending
}

// DaysUntilDue returns the number of days left until due, rounded up. It is negative once due has passed.
func DaysUntilDue(due, now time.Time) int {
	return int(math.Ceil(due.Sub(now).Hours() / 24))
}

func UrgencyFor(days int) Urgency {
	switch {
	case days < 0:
		return UrgencyOverdue
	case days <= 3:
		return UrgencyCritical
	case days <= 7:
		return UrgencyWarning
	}
	return UrgencyNormal
}
