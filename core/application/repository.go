package application

import (
	"context"

	"github.com/trezcool/admissions/core"
)

// Repositories return the package's not-found sentinels unwrapped. Deletes of missing rows are no-ops.

type FormRepository interface {
	CreateForm(ctx context.Context, form ApplicationForm) (ApplicationForm, error)
	GetForm(ctx context.Context, id int) (ApplicationForm, error)
	QueryFormsByAdmission(ctx context.Context, admissionID int) ([]ApplicationForm, error)
	UpdateForm(ctx context.Context, form ApplicationForm) (ApplicationForm, error)
	DeleteForm(ctx context.Context, id int) error
	// MobileExistsForAdmission reports whether a form of the admission has general info with this mobile (case-insensitive).
	MobileExistsForAdmission(ctx context.Context, admissionID int, mobile string) (bool, error)
}

type GeneralInfoRepository interface {
	CreateGeneralInfo(ctx context.Context, gi GeneralInfo) (GeneralInfo, error)
	GetGeneralInfoByForm(ctx context.Context, formID int) (GeneralInfo, error)
	// QueryGeneralInfoByMobile matches mobile case-insensitively across all admissions.
	QueryGeneralInfoByMobile(ctx context.Context, mobile string) ([]GeneralInfo, error)
	UpdateGeneralInfo(ctx context.Context, gi GeneralInfo) (GeneralInfo, error)
	DeleteGeneralInfoByForm(ctx context.Context, formID int) error
}

type AcademicInfoRepository interface {
	FindAcademicInfo(ctx context.Context, key core.NaturalKey) (AcademicInfo, error)
	CreateAcademicInfo(ctx context.Context, ai AcademicInfo) (AcademicInfo, error)
	GetAcademicInfo(ctx context.Context, id int) (AcademicInfo, error)
	QueryAcademicInfoByForm(ctx context.Context, formID int) ([]AcademicInfo, error)
	UpdateAcademicInfo(ctx context.Context, ai AcademicInfo) (AcademicInfo, error)
	// ReplaceSubjects deletes the subjects of an academic info and inserts subjects instead.
	ReplaceSubjects(ctx context.Context, academicInfoID int, subjects []AcademicSubject) ([]AcademicSubject, error)
	DeleteSubjectsByForm(ctx context.Context, formID int) error
	DeleteAcademicInfoByForm(ctx context.Context, formID int) error
}

type AdditionalInfoRepository interface {
	FindAdditionalInfo(ctx context.Context, key core.NaturalKey) (AdditionalInfo, error)
	CreateAdditionalInfo(ctx context.Context, ai AdditionalInfo) (AdditionalInfo, error)
	GetAdditionalInfoByForm(ctx context.Context, formID int) (AdditionalInfo, error)
	UpdateAdditionalInfo(ctx context.Context, ai AdditionalInfo) (AdditionalInfo, error)
	ReplaceSports(ctx context.Context, additionalInfoID int, sports []SportsInfo) ([]SportsInfo, error)
	DeleteSportsByForm(ctx context.Context, formID int) error
	DeleteAdditionalInfoByForm(ctx context.Context, formID int) error
}

type CourseApplicationRepository interface {
	FindCourseApplication(ctx context.Context, key core.NaturalKey) (CourseApplication, error)
	CreateCourseApplication(ctx context.Context, ca CourseApplication) (CourseApplication, error)
	QueryCourseApplicationsByForm(ctx context.Context, formID int) ([]CourseApplication, error)
	UpdateCourseApplication(ctx context.Context, ca CourseApplication) (CourseApplication, error)
	DeleteCourseApplication(ctx context.Context, id int) error
	DeleteCourseApplicationsByForm(ctx context.Context, formID int) error
}

type PaymentRepository interface {
	FindPayment(ctx context.Context, key core.NaturalKey) (Payment, error)
	CreatePayment(ctx context.Context, p Payment) (Payment, error)
	GetPaymentByForm(ctx context.Context, formID int) (Payment, error)
	UpdatePayment(ctx context.Context, p Payment) (Payment, error)
	DeletePaymentByForm(ctx context.Context, formID int) error
}

// Repositories groups the storage of a form and its sub-records.
type Repositories struct {
	Forms              FormRepository
	GeneralInfo        GeneralInfoRepository
	AcademicInfo       AcademicInfoRepository
	AdditionalInfo     AdditionalInfoRepository
	CourseApplications CourseApplicationRepository
	Payments           PaymentRepository
}
