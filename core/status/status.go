// Package status holds the closed enumerations that drive an application form through its lifecycle.
package status

// Form is the lifecycle status of an application form.
type Form string

const (
	Draft               Form = "DRAFT"
	PaymentDue          Form = "PAYMENT_DUE"
	PaymentSuccess      Form = "PAYMENT_SUCCESS"
	PaymentFailed       Form = "PAYMENT_FAILED"
	WaitingForDocuments Form = "WAITING_FOR_DOCUMENTS"
	DocumentsVerified   Form = "DOCUMENTS_VERIFIED"
	DocumentsPending    Form = "DOCUMENTS_PENDING"
	DocumentsRejected   Form = "DOCUMENTS_REJECTED"
	Submitted           Form = "SUBMITTED"
	Approved            Form = "APPROVED"
	Rejected            Form = "REJECTED"
	Cancelled           Form = "CANCELLED"
)

// AllForms lists every form status in lifecycle order.
var AllForms = []Form{
	Draft, PaymentDue, PaymentSuccess, PaymentFailed,
	WaitingForDocuments, DocumentsVerified, DocumentsPending, DocumentsRejected,
	Submitted, Approved, Rejected, Cancelled,
}

func (s Form) Valid() bool {
	switch s {
	case Draft, PaymentDue, PaymentSuccess, PaymentFailed,
		WaitingForDocuments, DocumentsVerified, DocumentsPending, DocumentsRejected,
		Submitted, Approved, Rejected, Cancelled:
		return true
	}
	return false
}

// IsFinal reports whether no further transition is expected.
func (s Form) IsFinal() bool {
	switch s {
	case Approved, Rejected, Cancelled:
		return true
	case Draft, PaymentDue, PaymentSuccess, PaymentFailed,
		WaitingForDocuments, DocumentsVerified, DocumentsPending, DocumentsRejected,
		Submitted:
		return false
	}
	return false
}

// IsDocumentState reports whether s is one of the document sub-states.
func (s Form) IsDocumentState() bool {
	switch s {
	case WaitingForDocuments, DocumentsVerified, DocumentsPending, DocumentsRejected:
		return true
	}
	return false
}

// ExpectedNext reports whether moving from s to next follows the usual flow:
// DRAFT -> PAYMENT_DUE -> PAYMENT_SUCCESS|PAYMENT_FAILED -> SUBMITTED -> APPROVED|REJECTED|CANCELLED,
// with document sub-states interleaving after payment and before submission.
// Staying on the same status and cancelling an open form are always expected.
func (s Form) ExpectedNext(next Form) bool {
	if s == next {
		return true
	}
	if next == Cancelled && !s.IsFinal() {
		return true
	}
	switch s {
	case Draft:
		return next == PaymentDue || next == PaymentSuccess || next == PaymentFailed
	case PaymentDue:
		return next == PaymentSuccess || next == PaymentFailed
	case PaymentFailed:
		return next == PaymentDue || next == PaymentSuccess
	case PaymentSuccess, WaitingForDocuments, DocumentsVerified, DocumentsPending, DocumentsRejected:
		return next.IsDocumentState() || next == Submitted
	case Submitted:
		return next == Approved || next == Rejected || next.IsDocumentState()
	case Approved, Rejected, Cancelled:
		return false
	}
	return false
}

// Step marks how far an applicant went through the multi-step form.
type Step string

const (
	StepGeneralInfo     Step = "STEP_GENERAL_INFO"
	StepAcademicInfo    Step = "STEP_ACADEMIC_INFO"
	StepCourseSelection Step = "STEP_COURSE_SELECTION"
	StepAdditionalInfo  Step = "STEP_ADDITIONAL_INFO"
	StepPayment         Step = "STEP_PAYMENT"
	StepCompleted       Step = "STEP_COMPLETED"
)

func (s Step) Valid() bool {
	switch s {
	case StepGeneralInfo, StepAcademicInfo, StepCourseSelection, StepAdditionalInfo, StepPayment, StepCompleted:
		return true
	}
	return false
}

// Order is the position of the step in the form, starting at 1. Unknown steps are 0.
func (s Step) Order() int {
	switch s {
	case StepGeneralInfo:
		return 1
	case StepAcademicInfo:
		return 2
	case StepCourseSelection:
		return 3
	case StepAdditionalInfo:
		return 4
	case StepPayment:
		return 5
	case StepCompleted:
		return 6
	}
	return 0
}

// Result is the declared outcome of a prior qualifying examination.
type Result string

const (
	ResultPassed      Result = "PASSED"
	ResultFailed      Result = "FAILED"
	ResultCompartment Result = "COMPARTMENT"
	ResultAppearing   Result = "APPEARING"
)

func (r Result) Valid() bool {
	switch r {
	case ResultPassed, ResultFailed, ResultCompartment, ResultAppearing:
		return true
	}
	return false
}
