package fees

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/lookup"
)

func datePtr(t time.Time) *time.Time { return &t }

func TestClassify(t *testing.T) {
	now := time.Now()
	yesterday := core.Today().AddDate(0, 0, -1)
	tomorrow := core.Today().AddDate(0, 0, 1)

	tests := []struct {
		name      string
		hasPaid   bool
		cancelled bool
		due       *time.Time
		want      Status
	}{
		{name: "paid wins over past due date", hasPaid: true, due: &yesterday, want: StatusPaid},
		{name: "cancelled wins over paid", hasPaid: true, cancelled: true, due: &yesterday, want: StatusCancelled},
		{name: "cancelled unpaid", cancelled: true, want: StatusCancelled},
		{name: "overdue", due: &yesterday, want: StatusOverdue},
		{name: "due today is pending", due: datePtr(core.Today()), want: StatusPending},
		{name: "due later", due: &tomorrow, want: StatusPending},
		{name: "no due date", want: StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.hasPaid, tt.cancelled, tt.due, now))
		})
	}
}

func TestGroupStatus(t *testing.T) {
	now := time.Now()
	yesterday := core.Today().AddDate(0, 0, -1)
	nextWeek := core.Today().AddDate(0, 0, 7)

	tests := []struct {
		name     string
		required core.Amount
		paid     core.Amount
		items    []Item
		want     Status
	}{
		{
			name:     "one of two instalments paid",
			required: 200, paid: 100,
			items: []Item{{Paid: true, DueDate: &yesterday}, {DueDate: &nextWeek}},
			want:  StatusPartiallyPaid,
		},
		{
			name:     "partial payment wins over overdue",
			required: 200, paid: 50,
			items: []Item{{DueDate: &yesterday}},
			want:  StatusPartiallyPaid,
		},
		{name: "fully paid", required: 200, paid: 200, items: []Item{{Paid: true}}, want: StatusPaid},
		{name: "overpaid", required: 200, paid: 250, want: StatusPaid},
		{name: "nothing owed", want: StatusPaid},
		{name: "unpaid and overdue", required: 100, items: []Item{{DueDate: &yesterday}}, want: StatusOverdue},
		{name: "cancelled overdue line is ignored", required: 100, items: []Item{{Cancelled: true, DueDate: &yesterday}, {DueDate: &nextWeek}}, want: StatusPending},
		{name: "unpaid not yet due", required: 100, items: []Item{{DueDate: &nextWeek}}, want: StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GroupStatus(tt.required, tt.paid, tt.items, now))
		})
	}
}

func TestDaysUntilDueAndUrgency(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		due      time.Time
		wantDays int
		want     Urgency
	}{
		{name: "yesterday", due: time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), wantDays: -1, want: UrgencyOverdue},
		{name: "today", due: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), wantDays: 0, want: UrgencyCritical},
		{name: "tomorrow", due: time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), wantDays: 1, want: UrgencyCritical},
		{name: "in three days", due: time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC), wantDays: 3, want: UrgencyCritical},
		{name: "in four days", due: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), wantDays: 4, want: UrgencyWarning},
		{name: "in a week", due: time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC), wantDays: 7, want: UrgencyWarning},
		{name: "in eight days", due: time.Date(2025, 3, 18, 0, 0, 0, 0, time.UTC), wantDays: 8, want: UrgencyNormal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days := DaysUntilDue(tt.due, now)
			assert.Equal(t, tt.wantDays, days)
			assert.Equal(t, tt.want, UrgencyFor(days))
		})
	}
}

func TestSummarize(t *testing.T) {
	now := time.Now()
	yesterday := core.Today().AddDate(0, 0, -1)
	nextWeek := core.Today().AddDate(0, 0, 7)

	mappings := []Mapping{
		{ID: 1, FeeType: "TUITION", TotalPayable: 100, AmountPaid: 100, PaymentStatus: PaymentSuccess, DueDate: &yesterday},
		{ID: 2, FeeType: "TUITION", TotalPayable: 100, PaymentStatus: PaymentPending, DueDate: &nextWeek},
		{ID: 3, FeeType: "LIBRARY", TotalPayable: 50, PaymentStatus: PaymentPending, DueDate: &yesterday},
		{ID: 4, FeeType: "LIBRARY", TotalPayable: 70, PaymentStatus: PaymentCancelled, DueDate: &yesterday},
	}
	sf := Summarize(lookup.Student{ID: 9, Name: "Asha"}, mappings, now)

	if assert.Len(t, sf.Groups, 2) {
		tuition, library := sf.Groups[0], sf.Groups[1]

		assert.Equal(t, "TUITION", tuition.FeeType)
		assert.Equal(t, StatusPartiallyPaid, tuition.Status)
		assert.Equal(t, core.Amount(100), tuition.Balance)
		assert.Equal(t, StatusPaid, tuition.Lines[0].Status)
		assert.Nil(t, tuition.Lines[0].DaysUntilDue)
		assert.Equal(t, StatusPending, tuition.Lines[1].Status)
		assert.Equal(t, UrgencyWarning, tuition.Lines[1].Urgency)

		assert.Equal(t, "LIBRARY", library.FeeType)
		assert.Equal(t, core.Amount(50), library.TotalPayable)
		assert.Equal(t, StatusOverdue, library.Status)
		assert.Equal(t, UrgencyOverdue, library.Lines[0].Urgency)
		assert.Equal(t, StatusCancelled, library.Lines[1].Status)
	}
	assert.Equal(t, core.Amount(250), sf.TotalPayable)
	assert.Equal(t, core.Amount(100), sf.AmountPaid)
	assert.Equal(t, core.Amount(150), sf.Balance)
	assert.Equal(t, StatusPartiallyPaid, sf.Status)
}
