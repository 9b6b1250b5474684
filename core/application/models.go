package application

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/status"
)

// ApplicationForm is one applicant's attempt within an admission.
type ApplicationForm struct {
	ID                int         `json:"id" db:"id"`
	AdmissionID       int         `json:"admission_id" db:"admission_id"`
	ApplicationNumber string      `json:"application_number" db:"application_number"`
	FormStatus        status.Form `json:"form_status" db:"form_status"`
	AdmissionStep     status.Step `json:"admission_step" db:"admission_step"`
	Remarks           string      `json:"remarks" db:"remarks"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"`
}

type GeneralInfo struct {
	ID                int        `json:"id" db:"id"`
	ApplicationFormID int        `json:"application_form_id" db:"application_form_id"`
	FirstName         string     `json:"first_name" db:"first_name"`
	MiddleName        string     `json:"middle_name" db:"middle_name"`
	LastName          string     `json:"last_name" db:"last_name"`
	DateOfBirth       *time.Time `json:"date_of_birth" db:"date_of_birth"`
	Gender            string     `json:"gender" db:"gender"`
	Mobile            string     `json:"mobile" db:"mobile"`
	Email             string     `json:"email" db:"email"`
	PasswordHash      []byte     `json:"-" db:"password_hash"`
	CategoryID        *int       `json:"category_id" db:"category_id"`
	ReligionID        *int       `json:"religion_id" db:"religion_id"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

func (gi *GeneralInfo) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	gi.PasswordHash = hash
	return nil
}

func (gi *GeneralInfo) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(gi.PasswordHash, []byte(pwd))
}

func (gi GeneralInfo) FullName() string {
	name := gi.FirstName
	if gi.MiddleName != "" {
		name += " " + gi.MiddleName
	}
	if gi.LastName != "" {
		name += " " + gi.LastName
	}
	return name
}

type AcademicInfo struct {
	ID                   int               `json:"id" db:"id"`
	ApplicationFormID    int               `json:"application_form_id" db:"application_form_id"`
	BoardUniversityID    int               `json:"board_university_id" db:"board_university_id"`
	InstitutionID        *int              `json:"institution_id" db:"institution_id"`
	RollNumber           string            `json:"roll_number" db:"roll_number"`
	AdmitCardID          string            `json:"admit_card_id" db:"admit_card_id"`
	Stream               string            `json:"stream" db:"stream"`
	YearOfPassing        int               `json:"year_of_passing" db:"year_of_passing"`
	ResultStatus         status.Result     `json:"result_status" db:"result_status"`
	PreviouslyRegistered bool              `json:"previously_registered" db:"previously_registered"`
	CURegistrationNumber string            `json:"cu_registration_number" db:"cu_registration_number"`
	CreatedAt            time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at" db:"updated_at"`
	Subjects             []AcademicSubject `json:"subjects" db:"-"`
}

func (ai AcademicInfo) NaturalKey() core.NaturalKey {
	return AcademicInfoKey(ai.ApplicationFormID, ai.BoardUniversityID, ai.ResultStatus, ai.CURegistrationNumber)
}

type AcademicSubject struct {
	ID             int `json:"id" db:"id"`
	AcademicInfoID int `json:"academic_info_id" db:"academic_info_id"`
	SubjectID      int `json:"subject_id" db:"subject_id" validate:"required,gt=0"`
	FullMarks      int `json:"full_marks" db:"full_marks" validate:"gte=0"`
	MarksObtained  int `json:"marks_obtained" db:"marks_obtained" validate:"gte=0,ltefield=FullMarks"`
}

type AdditionalInfo struct {
	ID                 int          `json:"id" db:"id"`
	ApplicationFormID  int          `json:"application_form_id" db:"application_form_id"`
	CategoryID         *int         `json:"category_id" db:"category_id"`
	ReligionID         *int         `json:"religion_id" db:"religion_id"`
	AnnualIncome       string       `json:"annual_income" db:"annual_income"`
	BloodGroup         string       `json:"blood_group" db:"blood_group"`
	Disability         bool         `json:"disability" db:"disability"`
	GuardianName       string       `json:"guardian_name" db:"guardian_name"`
	GuardianOccupation string       `json:"guardian_occupation" db:"guardian_occupation"`
	CreatedAt          time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at" db:"updated_at"`
	Sports             []SportsInfo `json:"sports" db:"-"`
}

func (ai AdditionalInfo) NaturalKey() core.NaturalKey {
	return AdditionalInfoKey(ai.ApplicationFormID)
}

type SportsInfo struct {
	ID               int    `json:"id" db:"id"`
	AdditionalInfoID int    `json:"additional_info_id" db:"additional_info_id"`
	SportName        string `json:"sport_name" db:"sport_name" validate:"required,max=100"`
	Level            string `json:"level" db:"level" validate:"max=50"`
	Achievement      string `json:"achievement" db:"achievement" validate:"max=255"`
}

type CourseApplication struct {
	ID                int       `json:"id" db:"id"`
	ApplicationFormID int       `json:"application_form_id" db:"application_form_id"`
	AdmissionCourseID int       `json:"admission_course_id" db:"admission_course_id"`
	Preference        int       `json:"preference" db:"preference"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

func (ca CourseApplication) NaturalKey() core.NaturalKey {
	return CourseApplicationKey(ca.ApplicationFormID, ca.AdmissionCourseID)
}

type Payment struct {
	ID                int         `json:"id" db:"id"`
	ApplicationFormID int         `json:"application_form_id" db:"application_form_id"`
	OrderID           string      `json:"order_id" db:"order_id"`
	Amount            core.Amount `json:"amount" db:"amount"`
	PaymentMode       string      `json:"payment_mode" db:"payment_mode"`
	TransactionID     string      `json:"transaction_id" db:"transaction_id"`
	GatewayStatus     string      `json:"gateway_status" db:"gateway_status"`
	PaidAt            *time.Time  `json:"paid_at" db:"paid_at"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
}

func (p Payment) NaturalKey() core.NaturalKey {
	return PaymentKey(p.ApplicationFormID)
}

// FormDTO is an application form composed with all of its sub-records.
// Absent sub-records are nil (or empty for lists).
type FormDTO struct {
	Form               ApplicationForm     `json:"form"`
	GeneralInfo        *GeneralInfo        `json:"general_info"`
	AcademicInfo       []AcademicInfo      `json:"academic_info"`
	AdditionalInfo     *AdditionalInfo     `json:"additional_info"`
	CourseApplications []CourseApplication `json:"course_applications"`
	Payment            *Payment            `json:"payment"`
}

// LoginResult is the applicant matched by mobile number and password.
type LoginResult struct {
	GeneralInfo GeneralInfo     `json:"general_info"`
	Form        ApplicationForm `json:"form"`
}

// NewApplicationForm contains information needed to start an application (step 1).
type NewApplicationForm struct {
	AdmissionID     int        `json:"admission_id" validate:"required,gt=0"`
	FirstName       string     `json:"first_name" validate:"required,max=100"`
	MiddleName      string     `json:"middle_name" validate:"max=100"`
	LastName        string     `json:"last_name" validate:"max=100"`
	DateOfBirth     *time.Time `json:"date_of_birth"`
	Gender          string     `json:"gender" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	Mobile          string     `json:"mobile" validate:"required,mobile"`
	Email           string     `json:"email" validate:"omitempty,email"`
	Password        string     `json:"password" validate:"required"`
	PasswordConfirm string     `json:"password_confirm" validate:"required,eqfield=Password"`
	CategoryID      *int       `json:"category_id" validate:"omitempty,gt=0"`
	ReligionID      *int       `json:"religion_id" validate:"omitempty,gt=0"`
}

// Clean normalizes user input before validation.
func (nf *NewApplicationForm) Clean() {
	nf.FirstName = core.CleanString(nf.FirstName)
	nf.MiddleName = core.CleanString(nf.MiddleName)
	nf.LastName = core.CleanString(nf.LastName)
	nf.Gender = core.CleanString(nf.Gender)
	nf.Mobile = core.CleanString(nf.Mobile)
	nf.Email = core.CleanString(nf.Email, true /* lower */)
}

// UpdateApplicationForm defines what may be changed on a form. Nil fields are left untouched.
type UpdateApplicationForm struct {
	FormStatus    *status.Form `json:"form_status" validate:"omitempty,formstatus"`
	AdmissionStep *status.Step `json:"admission_step" validate:"omitempty,admstep"`
	Remarks       *string      `json:"remarks" validate:"omitempty,max=2000"`
}

type UpdateGeneralInfo struct {
	FirstName       string     `json:"first_name" validate:"omitempty,max=100"`
	MiddleName      *string    `json:"middle_name" validate:"omitempty,max=100"`
	LastName        *string    `json:"last_name" validate:"omitempty,max=100"`
	DateOfBirth     *time.Time `json:"date_of_birth"`
	Gender          string     `json:"gender" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	Email           *string    `json:"email" validate:"omitempty,email"`
	Password        string     `json:"password"`
	PasswordConfirm string     `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
	CategoryID      *int       `json:"category_id" validate:"omitempty,gt=0"`
	ReligionID      *int       `json:"religion_id" validate:"omitempty,gt=0"`
}

type NewAcademicInfo struct {
	BoardUniversityID    int               `json:"board_university_id" validate:"required,gt=0"`
	InstitutionID        *int              `json:"institution_id" validate:"omitempty,gt=0"`
	RollNumber           string            `json:"roll_number" validate:"max=50"`
	AdmitCardID          string            `json:"admit_card_id" validate:"max=50"`
	Stream               string            `json:"stream" validate:"omitempty,max=50,alphanum_"`
	YearOfPassing        int               `json:"year_of_passing" validate:"omitempty,gte=1950,lte=2100"`
	ResultStatus         status.Result     `json:"result_status" validate:"required,resultstatus"`
	PreviouslyRegistered bool              `json:"previously_registered"`
	CURegistrationNumber string            `json:"cu_registration_number" validate:"max=50"`
	Subjects             []AcademicSubject `json:"subjects" validate:"dive"`
}

type NewAdditionalInfo struct {
	CategoryID         *int         `json:"category_id" validate:"omitempty,gt=0"`
	ReligionID         *int         `json:"religion_id" validate:"omitempty,gt=0"`
	AnnualIncome       string       `json:"annual_income" validate:"max=50"`
	BloodGroup         string       `json:"blood_group" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Disability         bool         `json:"disability"`
	GuardianName       string       `json:"guardian_name" validate:"max=255"`
	GuardianOccupation string       `json:"guardian_occupation" validate:"max=100"`
	Sports             []SportsInfo `json:"sports" validate:"dive"`
}

type NewCourseApplication struct {
	AdmissionCourseID int `json:"admission_course_id" validate:"required,gt=0"`
	Preference        int `json:"preference" validate:"omitempty,gte=1,lte=10"`
}

type NewPayment struct {
	Amount        core.Amount `json:"amount" validate:"required,gt=0"`
	PaymentMode   string      `json:"payment_mode" validate:"required,max=30"`
	TransactionID string      `json:"transaction_id" validate:"max=100"`
	GatewayStatus string      `json:"gateway_status" validate:"max=30"`
}

// GatewayUpdate is a later status notification for an existing payment.
type GatewayUpdate struct {
	TransactionID string `json:"transaction_id" validate:"max=100"`
	GatewayStatus string `json:"gateway_status" validate:"required,max=30"`
}

// PasswordReset completes a reset started by RequestPasswordReset.
type PasswordReset struct {
	UID             string `json:"uid" validate:"required"`
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}
