package admission

import (
	"time"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/status"
)

// Admission is the intake window of one academic year.
type Admission struct {
	ID             int               `json:"id" db:"id"`
	AcademicYearID int               `json:"academic_year_id" db:"academic_year_id"`
	AdmissionCode  string            `json:"admission_code" db:"admission_code"`
	IsClosed       bool              `json:"is_closed" db:"is_closed"`
	StartDate      time.Time         `json:"start_date" db:"start_date"`
	LastDate       time.Time         `json:"last_date" db:"last_date"`
	Archived       bool              `json:"archived" db:"archived"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" db:"updated_at"`
	Courses        []AdmissionCourse `json:"courses,omitempty" db:"-"`
}

// Expired reports whether the last date of the window has passed on the calendar date of now.
func (a Admission) Expired(now time.Time) bool {
	return core.DateOf(now).After(core.DateOf(a.LastDate))
}

// AdmissionCourse is a course offered within an admission.
type AdmissionCourse struct {
	ID          int       `json:"id" db:"id"`
	AdmissionID int       `json:"admission_id" db:"admission_id"`
	CourseID    int       `json:"course_id" db:"course_id"`
	Disabled    bool      `json:"disabled" db:"disabled"`
	IsClosed    bool      `json:"is_closed" db:"is_closed"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

func (c AdmissionCourse) Available() bool {
	return !c.Disabled && !c.IsClosed
}

// NewAdmission contains information needed to create a new Admission.
type NewAdmission struct {
	AcademicYearID int       `json:"academic_year_id" validate:"required,gt=0"`
	AdmissionCode  string    `json:"admission_code" validate:"omitempty,max=50"`
	StartDate      time.Time `json:"start_date" validate:"required"`
	LastDate       time.Time `json:"last_date" validate:"required"`
	CourseIDs      []int     `json:"course_ids" validate:"omitempty,unique,dive,gt=0"`
}

// UpdateAdmission defines what information may be provided to modify an existing Admission.
type UpdateAdmission struct {
	AdmissionCode *string    `json:"admission_code" validate:"omitempty,max=50"`
	StartDate     *time.Time `json:"start_date"`
	LastDate      *time.Time `json:"last_date"`
	Archived      *bool      `json:"archived"`
	IsClosed      *bool      `json:"is_closed"`
}

// Stats are the global admission counters shown on the staff dashboard.
type Stats struct {
	TotalAdmissions   int `json:"total_admissions"`
	TotalApplications int `json:"total_applications"`
	PaymentSuccess    int `json:"payment_success"`
	Draft             int `json:"draft"`
}

// StatusCounts is the number of forms per status, grouped the way the dashboard shows them.
type StatusCounts struct {
	Draft      int `json:"draft"`
	PaymentDue int `json:"payment_due"`
	Paid       int `json:"paid"`
	PaymentErr int `json:"payment_failed"`
	Documents  int `json:"documents"`
	Submitted  int `json:"submitted"`
	Approved   int `json:"approved"`
	Rejected   int `json:"rejected"`
	Cancelled  int `json:"cancelled"`
}

// Add counts n forms of status s.
func (c *StatusCounts) Add(s status.Form, n int) {
	switch s {
	case status.Draft:
		c.Draft += n
	case status.PaymentDue:
		c.PaymentDue += n
	case status.PaymentSuccess:
		c.Paid += n
	case status.PaymentFailed:
		c.PaymentErr += n
	case status.WaitingForDocuments, status.DocumentsVerified, status.DocumentsPending, status.DocumentsRejected:
		c.Documents += n
	case status.Submitted:
		c.Submitted += n
	case status.Approved:
		c.Approved += n
	case status.Rejected:
		c.Rejected += n
	case status.Cancelled:
		c.Cancelled += n
	}
}

// SummaryRow is what storage returns per admission for the summary listing.
type SummaryRow struct {
	AdmissionID      int
	AcademicYearID   int
	AcademicYearName string
	AdmissionCode    string
	IsClosed         bool
	StartDate        time.Time
	LastDate         time.Time
	ByStatus         map[status.Form]int
}

type Summary struct {
	AdmissionID    int          `json:"admission_id"`
	AcademicYearID int          `json:"academic_year_id"`
	AcademicYear   string       `json:"academic_year"`
	AdmissionCode  string       `json:"admission_code"`
	IsClosed       bool         `json:"is_closed"`
	StartDate      time.Time    `json:"start_date"`
	LastDate       time.Time    `json:"last_date"`
	TotalForms     int          `json:"total_forms"`
	Counts         StatusCounts `json:"counts"`
}

type SummaryPage struct {
	Items []Summary `json:"items"`
	Total int       `json:"total"`
	Page  core.Page `json:"page"`
}

// FormFilter narrows the application forms of an admission.
// Text filters are case-insensitive substring matches. Search matches first name, last name or form id.
type FormFilter struct {
	Category     string      `query:"category"`
	Religion     string      `query:"religion"`
	AnnualIncome string      `query:"annual_income"`
	Course       string      `query:"course"`
	Board        string      `query:"board"`
	FormStatus   status.Form `query:"form_status"`
	Search       string      `query:"search"`
}

// FormListItem is a denormalized row of the staff application listing.
type FormListItem struct {
	FormID            int         `json:"form_id" db:"form_id"`
	ApplicationNumber string      `json:"application_number" db:"application_number"`
	FormStatus        status.Form `json:"form_status" db:"form_status"`
	AdmissionStep     status.Step `json:"admission_step" db:"admission_step"`
	FirstName         string      `json:"first_name" db:"first_name"`
	LastName          string      `json:"last_name" db:"last_name"`
	Mobile            string      `json:"mobile" db:"mobile"`
	Email             string      `json:"email" db:"email"`
	Category          string      `json:"category" db:"category"`
	Religion          string      `json:"religion" db:"religion"`
	AnnualIncome      string      `json:"annual_income" db:"annual_income"`
	Courses           string      `json:"courses" db:"courses"`
	Board             string      `json:"board" db:"board"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
}

type FormListPage struct {
	Items []FormListItem `json:"items"`
	Total int            `json:"total"`
	Page  core.Page      `json:"page"`
}
