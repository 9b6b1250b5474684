package fees

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/lookup"
)

// Mapping is a fee a student owes, joined with its instalment when it has one.
type Mapping struct {
	ID               int           `json:"id" db:"id"`
	StudentID        int           `json:"student_id" db:"student_id"`
	FeeStructureID   int           `json:"fee_structure_id" db:"fee_structure_id"`
	InstalmentID     *int          `json:"instalment_id" db:"instalment_id"`
	InstalmentNumber *int          `json:"instalment_number" db:"instalment_number"`
	StartDate        *time.Time    `json:"start_date" db:"start_date"`
	DueDate          *time.Time    `json:"due_date" db:"due_date"`
	FeeType          string        `json:"fee_type" db:"fee_type"`
	TotalPayable     core.Amount   `json:"total_payable" db:"total_payable"`
	AmountPaid       core.Amount   `json:"amount_paid" db:"amount_paid"`
	PaymentStatus    PaymentStatus `json:"payment_status" db:"payment_status"`
	PaymentDate      *time.Time    `json:"payment_date" db:"payment_date"`
}

func (m Mapping) HasPaid() bool {
	return m.PaymentStatus == PaymentSuccess || m.AmountPaid >= m.TotalPayable
}

func (m Mapping) Cancelled() bool {
	return m.PaymentStatus == PaymentCancelled
}

type Line struct {
	Mapping
	Status       Status  `json:"status"`
	DaysUntilDue *int    `json:"days_until_due,omitempty"`
	Urgency      Urgency `json:"urgency,omitempty"`
}

type Group struct {
	FeeType      string      `json:"fee_type"`
	TotalPayable core.Amount `json:"total_payable"`
	AmountPaid   core.Amount `json:"amount_paid"`
	Balance      core.Amount `json:"balance"`
	Status       Status      `json:"status"`
	Lines        []Line      `json:"lines"`
}

// StudentFees is the fee dashboard of one student.
type StudentFees struct {
	StudentID    int         `json:"student_id"`
	StudentName  string      `json:"student_name"`
	TotalPayable core.Amount `json:"total_payable"`
	AmountPaid   core.Amount `json:"amount_paid"`
	Balance      core.Amount `json:"balance"`
	Status       Status      `json:"status"`
	Groups       []Group     `json:"groups"`
}

type Repository interface {
	// QueryStudentMappings returns the mappings of a student ordered by fee type then due date.
	QueryStudentMappings(ctx context.Context, studentID int) ([]Mapping, error)
}

// Students finds the student a dashboard is for.
type Students interface {
	Student(ctx context.Context, id int) (lookup.Student, error)
}

type Service struct {
	repo     Repository
	students Students
	logger   core.Logger
}

func NewService(repo Repository, students Students, logger core.Logger) *Service {
	return &Service{repo: repo, students: students, logger: logger}
}

// StudentFees classifies every fee of a student and groups them by fee type.
func (svc *Service) StudentFees(ctx context.Context, studentID int) (StudentFees, error) {
	student, err := svc.students.Student(ctx, studentID)
	if err != nil {
		return StudentFees{}, err
	}
	mappings, err := svc.repo.QueryStudentMappings(ctx, studentID)
	if err != nil {
		return StudentFees{}, errors.Wrap(err, "querying student fees")
	}
	return Summarize(student, mappings, time.Now()), nil
}

// Summarize builds the dashboard of student from its mappings as of now.
func Summarize(student lookup.Student, mappings []Mapping, now time.Time) StudentFees {
	sf := StudentFees{StudentID: student.ID, StudentName: student.Name, Groups: []Group{}}

	index := make(map[string]int) // {fee type: group index}
	var allItems []Item
	for _, m := range mappings {
		line := Line{Mapping: m, Status: Classify(m.HasPaid(), m.Cancelled(), m.DueDate, now)}
		if m.DueDate != nil && (line.Status == StatusPending || line.Status == StatusOverdue) {
			days := DaysUntilDue(*m.DueDate, now)
			line.DaysUntilDue = &days
			line.Urgency = UrgencyFor(days)
		}

		i, ok := index[m.FeeType]
		if !ok {
			i = len(sf.Groups)
			index[m.FeeType] = i
			sf.Groups = append(sf.Groups, Group{FeeType: m.FeeType})
		}
		grp := &sf.Groups[i]
		grp.Lines = append(grp.Lines, line)
		if !m.Cancelled() {
			grp.TotalPayable += m.TotalPayable
			grp.AmountPaid += m.AmountPaid
		}
		allItems = append(allItems, Item{Paid: m.HasPaid(), Cancelled: m.Cancelled(), DueDate: m.DueDate})
	}

	for i := range sf.Groups {
		grp := &sf.Groups[i]
		items := make([]Item, 0, len(grp.Lines))
		for _, l := range grp.Lines {
			items = append(items, Item{Paid: l.HasPaid(), Cancelled: l.Cancelled(), DueDate: l.DueDate})
		}
		grp.Balance = grp.TotalPayable - grp.AmountPaid
		grp.Status = GroupStatus(grp.TotalPayable, grp.AmountPaid, items, now)

		sf.TotalPayable += grp.TotalPayable
		sf.AmountPaid += grp.AmountPaid
	}
	sf.Balance = sf.TotalPayable - sf.AmountPaid
	sf.Status = GroupStatus(sf.TotalPayable, sf.AmountPaid, allItems, now)
	return sf
}
