package application

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/admission"
	"github.com/trezcool/admissions/core/status"
)

var (
	// errors
	ErrFormNotFound           = core.NewNotFoundError("application form not found")
	ErrGeneralInfoNotFound    = core.NewNotFoundError("general info not found")
	ErrAcademicInfoNotFound   = core.NewNotFoundError("academic info not found")
	ErrAdditionalInfoNotFound = core.NewNotFoundError("additional info not found")
	ErrCourseAppNotFound      = core.NewNotFoundError("course application not found")
	ErrPaymentNotFound        = core.NewNotFoundError("payment not found")

	ErrInvalidCredentials = errors.New("invalid mobile number or password")
	ErrCourseUnavailable  = errors.New("this course is not open for applications")
	ErrCourseMismatch     = errors.New("this course is not offered by the admission of this form")
)

const MsgAlreadyApplied = "you have already applied for this admission, please log in"

// CascadeError reports which sub-record could not be deleted with its form.
type CascadeError struct {
	Record string
	Err    error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("could not delete %s: %v", e.Record, e.Err)
}

func (e *CascadeError) Unwrap() error { return e.Err }

// Admissions is what forms need to know about admissions.
type Admissions interface {
	ReconcileAndFetch(ctx context.Context, id int) (admission.Admission, error)
	Course(ctx context.Context, id int) (admission.AdmissionCourse, error)
}

// Service manages application forms and their sub-records.
type Service struct {
	tx         core.Transactor
	repos      Repositories
	admissions Admissions
	mailSvc    core.EmailService
	cache      core.Cache
	tokens     *ResetTokens
	logger     core.Logger
}

func NewService(
	tx core.Transactor,
	repos Repositories,
	admissions Admissions,
	mailSvc core.EmailService,
	cache core.Cache,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return &Service{
		tx:         tx,
		repos:      repos,
		admissions: admissions,
		mailSvc:    mailSvc,
		cache:      cache,
		tokens:     NewResetTokens(conf),
		logger:     logger,
	}
}

func (svc *Service) invalidateStats(ctx context.Context) {
	if err := svc.cache.Delete(ctx, core.CacheKeyAdmissionStats); err != nil {
		svc.logger.Warn("invalidating admission stats cache", err)
	}
}

func (svc *Service) getForm(ctx context.Context, id int) (ApplicationForm, error) {
	form, err := svc.repos.Forms.GetForm(ctx, id)
	if err != nil {
		if err == ErrFormNotFound {
			return ApplicationForm{}, err
		}
		return ApplicationForm{}, errors.Wrap(err, "finding application form")
	}
	return form, nil
}

func applicationNumber(adm admission.Admission, formID int) string {
	code := adm.AdmissionCode
	if code == "" {
		code = fmt.Sprintf("ADM%d", adm.AcademicYearID)
	}
	return fmt.Sprintf("%s-%05d", code, formID)
}

// CreateApplicationForm starts an application with its general info.
// When the mobile number already applied under the same admission, it returns a *core.DuplicateError and writes nothing.
func (svc *Service) CreateApplicationForm(ctx context.Context, nf NewApplicationForm) (FormDTO, error) {
	nf.Clean()

	adm, err := svc.admissions.ReconcileAndFetch(ctx, nf.AdmissionID)
	if err != nil {
		if core.IsNotFound(err) {
			return FormDTO{}, core.NewValidationError(err, core.FieldError{Field: "admission_id", Error: err.Error()})
		}
		return FormDTO{}, errors.Wrap(err, "finding admission")
	}

	now := time.Now().UTC()
	gi := GeneralInfo{
		FirstName:   nf.FirstName,
		MiddleName:  nf.MiddleName,
		LastName:    nf.LastName,
		DateOfBirth: nf.DateOfBirth,
		Gender:      nf.Gender,
		Mobile:      nf.Mobile,
		Email:       nf.Email,
		CategoryID:  nf.CategoryID,
		ReligionID:  nf.ReligionID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err = gi.SetPassword(nf.Password); err != nil {
		return FormDTO{}, errors.Wrap(err, "hashing password")
	}

	var form ApplicationForm
	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		exists, err := svc.repos.Forms.MobileExistsForAdmission(ctx, nf.AdmissionID, nf.Mobile)
		if err != nil {
			return errors.Wrap(err, "checking applicant mobile")
		}
		if exists {
			return core.NewDuplicateError(MsgAlreadyApplied)
		}

		form, err = svc.repos.Forms.CreateForm(ctx, ApplicationForm{
			AdmissionID:   nf.AdmissionID,
			FormStatus:    status.Draft,
			AdmissionStep: status.StepGeneralInfo,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			return errors.Wrap(err, "creating application form")
		}
		form.ApplicationNumber = applicationNumber(adm, form.ID)
		if form, err = svc.repos.Forms.UpdateForm(ctx, form); err != nil {
			return errors.Wrap(err, "setting application number")
		}

		gi.ApplicationFormID = form.ID
		gi, err = svc.repos.GeneralInfo.CreateGeneralInfo(ctx, gi)
		return errors.Wrap(err, "creating general info")
	})
	if err != nil {
		return FormDTO{}, err
	}

	svc.invalidateStats(ctx)
	return FormDTO{
		Form:               form,
		GeneralInfo:        &gi,
		AcademicInfo:       []AcademicInfo{},
		CourseApplications: []CourseApplication{},
	}, nil
}

// compose builds the DTO of form by asking each sub-record repository independently.
func (svc *Service) compose(ctx context.Context, form ApplicationForm) (FormDTO, error) {
	dto := FormDTO{Form: form}

	gi, err := svc.repos.GeneralInfo.GetGeneralInfoByForm(ctx, form.ID)
	if err == nil {
		dto.GeneralInfo = &gi
	} else if err != ErrGeneralInfoNotFound {
		return FormDTO{}, errors.Wrap(err, "finding general info")
	}

	if dto.AcademicInfo, err = svc.repos.AcademicInfo.QueryAcademicInfoByForm(ctx, form.ID); err != nil {
		return FormDTO{}, errors.Wrap(err, "querying academic info")
	}
	if dto.AcademicInfo == nil {
		dto.AcademicInfo = []AcademicInfo{}
	}

	add, err := svc.repos.AdditionalInfo.GetAdditionalInfoByForm(ctx, form.ID)
	if err == nil {
		dto.AdditionalInfo = &add
	} else if err != ErrAdditionalInfoNotFound {
		return FormDTO{}, errors.Wrap(err, "finding additional info")
	}

	if dto.CourseApplications, err = svc.repos.CourseApplications.QueryCourseApplicationsByForm(ctx, form.ID); err != nil {
		return FormDTO{}, errors.Wrap(err, "querying course applications")
	}
	if dto.CourseApplications == nil {
		dto.CourseApplications = []CourseApplication{}
	}

	pay, err := svc.repos.Payments.GetPaymentByForm(ctx, form.ID)
	if err == nil {
		dto.Payment = &pay
	} else if err != ErrPaymentNotFound {
		return FormDTO{}, errors.Wrap(err, "finding payment")
	}

	return dto, nil
}

func (svc *Service) FindApplicationFormByID(ctx context.Context, id int) (FormDTO, error) {
	form, err := svc.getForm(ctx, id)
	if err != nil {
		return FormDTO{}, err
	}
	return svc.compose(ctx, form)
}

func (svc *Service) FindApplicationFormsByAdmissionID(ctx context.Context, admissionID int) ([]FormDTO, error) {
	forms, err := svc.repos.Forms.QueryFormsByAdmission(ctx, admissionID)
	if err != nil {
		return nil, errors.Wrap(err, "querying application forms")
	}
	dtos := make([]FormDTO, 0, len(forms))
	for _, form := range forms {
		dto, err := svc.compose(ctx, form)
		if err != nil {
			return nil, err
		}
		dtos = append(dtos, dto)
	}
	return dtos, nil
}

// UpdateApplicationForm merges the set fields onto the form.
// Status changes outside the usual flow are logged but applied.
func (svc *Service) UpdateApplicationForm(ctx context.Context, id int, uf UpdateApplicationForm) (ApplicationForm, error) {
	form, err := svc.getForm(ctx, id)
	if err != nil {
		return ApplicationForm{}, err
	}

	var statusChanged bool
	if uf.FormStatus != nil && *uf.FormStatus != form.FormStatus {
		next := *uf.FormStatus
		if !form.FormStatus.ExpectedNext(next) {
			svc.logger.Warn("unexpected form status transition", map[string]interface{}{
				"form_id": form.ID,
				"from":    form.FormStatus,
				"to":      next,
			})
		}
		form.FormStatus = next
		statusChanged = true
	}
	if uf.AdmissionStep != nil {
		form.AdmissionStep = *uf.AdmissionStep
	}
	if uf.Remarks != nil {
		form.Remarks = core.CleanString(*uf.Remarks)
	}
	form.UpdatedAt = time.Now().UTC()

	if form, err = svc.repos.Forms.UpdateForm(ctx, form); err != nil {
		return ApplicationForm{}, errors.Wrap(err, "updating application form")
	}
	if statusChanged {
		svc.invalidateStats(ctx)
	}
	return form, nil
}

// advanceStep moves the form to step unless it already went further.
func (svc *Service) advanceStep(ctx context.Context, form ApplicationForm, step status.Step) (ApplicationForm, error) {
	if form.AdmissionStep.Order() >= step.Order() {
		return form, nil
	}
	form.AdmissionStep = step
	form.UpdatedAt = time.Now().UTC()
	form, err := svc.repos.Forms.UpdateForm(ctx, form)
	return form, errors.Wrap(err, "advancing admission step")
}

// DeleteApplicationForm deletes the form and every sub-record in one transaction.
// Sub-records go first; a failure rolls everything back and returns a *CascadeError naming the sub-record.
func (svc *Service) DeleteApplicationForm(ctx context.Context, id int) error {
	if _, err := svc.getForm(ctx, id); err != nil {
		return err
	}

	steps := []struct {
		record string
		del    func(context.Context, int) error
	}{
		{"general info", svc.repos.GeneralInfo.DeleteGeneralInfoByForm},
		{"academic subjects", svc.repos.AcademicInfo.DeleteSubjectsByForm},
		{"academic info", svc.repos.AcademicInfo.DeleteAcademicInfoByForm},
		{"course applications", svc.repos.CourseApplications.DeleteCourseApplicationsByForm},
		{"sports info", svc.repos.AdditionalInfo.DeleteSportsByForm},
		{"additional info", svc.repos.AdditionalInfo.DeleteAdditionalInfoByForm},
		{"payment", svc.repos.Payments.DeletePaymentByForm},
		{"application form", svc.repos.Forms.DeleteForm},
	}
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		for _, step := range steps {
			if err := step.del(ctx, id); err != nil {
				return &CascadeError{Record: step.record, Err: err}
			}
		}
		return nil
	})
	if err != nil {
		svc.logger.Error("deleting application form", err, map[string]interface{}{"form_id": id})
		return err
	}

	svc.invalidateStats(ctx)
	return nil
}

// FindByLoginIDAndPassword finds the applicant by mobile number and password.
// Mobile numbers repeat across admissions, so every match is tried until a password fits.
func (svc *Service) FindByLoginIDAndPassword(ctx context.Context, mobile, pwd string) (LoginResult, error) {
	infos, err := svc.repos.GeneralInfo.QueryGeneralInfoByMobile(ctx, core.CleanString(mobile, true /* lower */))
	if err != nil {
		return LoginResult{}, errors.Wrap(err, "querying general info by mobile")
	}
	for _, gi := range infos {
		if gi.CheckPassword(pwd) != nil {
			continue
		}
		form, err := svc.getForm(ctx, gi.ApplicationFormID)
		if err != nil {
			return LoginResult{}, err
		}
		return LoginResult{GeneralInfo: gi, Form: form}, nil
	}
	return LoginResult{}, ErrInvalidCredentials
}

// General info

func (svc *Service) UpdateGeneralInfo(ctx context.Context, formID int, ug UpdateGeneralInfo) (GeneralInfo, error) {
	gi, err := svc.repos.GeneralInfo.GetGeneralInfoByForm(ctx, formID)
	if err != nil {
		if err == ErrGeneralInfoNotFound {
			return GeneralInfo{}, err
		}
		return GeneralInfo{}, errors.Wrap(err, "finding general info")
	}

	if name := core.CleanString(ug.FirstName); name != "" {
		gi.FirstName = name
	}
	if ug.MiddleName != nil {
		gi.MiddleName = core.CleanString(*ug.MiddleName)
	}
	if ug.LastName != nil {
		gi.LastName = core.CleanString(*ug.LastName)
	}
	if ug.DateOfBirth != nil {
		gi.DateOfBirth = ug.DateOfBirth
	}
	if ug.Gender != "" {
		gi.Gender = ug.Gender
	}
	if ug.Email != nil {
		gi.Email = core.CleanString(*ug.Email, true /* lower */)
	}
	if ug.CategoryID != nil {
		gi.CategoryID = ug.CategoryID
	}
	if ug.ReligionID != nil {
		gi.ReligionID = ug.ReligionID
	}
	if ug.Password != "" {
		if err = gi.SetPassword(ug.Password); err != nil {
			return GeneralInfo{}, errors.Wrap(err, "hashing password")
		}
	}
	gi.UpdatedAt = time.Now().UTC()

	gi, err = svc.repos.GeneralInfo.UpdateGeneralInfo(ctx, gi)
	return gi, errors.Wrap(err, "updating general info")
}

// ResetApplicantPassword sets a new password on the general info of a form.
func (svc *Service) ResetApplicantPassword(ctx context.Context, formID int, pwd string) error {
	_, err := svc.UpdateGeneralInfo(ctx, formID, UpdateGeneralInfo{Password: pwd})
	return err
}

type resetMailData struct {
	Name              string
	ApplicationNumber string
	UID               string
	Token             string
}

// RequestPasswordReset emails a reset link for every form registered with mobile that has an email.
// Unknown mobile numbers are not reported.
func (svc *Service) RequestPasswordReset(ctx context.Context, mobile string) error {
	infos, err := svc.repos.GeneralInfo.QueryGeneralInfoByMobile(ctx, core.CleanString(mobile, true /* lower */))
	if err != nil {
		return errors.Wrap(err, "querying general info by mobile")
	}

	messages := make([]*core.EmailMessage, 0, len(infos))
	for _, gi := range infos {
		if gi.Email == "" {
			continue
		}
		form, err := svc.getForm(ctx, gi.ApplicationFormID)
		if err != nil {
			return err
		}
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{{Name: gi.FullName(), Address: gi.Email}},
			Subject:      "Reset your password",
			TemplateName: "password_reset",
			TemplateData: resetMailData{
				Name:              gi.FullName(),
				ApplicationNumber: form.ApplicationNumber,
				UID:               EncodeFormID(form.ID),
				Token:             svc.tokens.Make(gi),
			},
		})
	}
	if len(messages) == 0 {
		svc.logger.Info("password reset requested for unknown mobile")
		return nil
	}
	svc.mailSvc.SendMessages(messages...)
	return nil
}

// ConfirmPasswordReset sets a new password on the form named by the reset link.
func (svc *Service) ConfirmPasswordReset(ctx context.Context, pr PasswordReset) error {
	invalid := core.NewValidationError(ErrInvalidResetToken, core.FieldError{Field: "token", Error: ErrInvalidResetToken.Error()})

	formID, err := decodeFormID(pr.UID)
	if err != nil {
		return invalid
	}
	gi, err := svc.repos.GeneralInfo.GetGeneralInfoByForm(ctx, formID)
	if err != nil {
		if err == ErrGeneralInfoNotFound {
			return invalid
		}
		return errors.Wrap(err, "finding general info")
	}
	if err = svc.tokens.verify(gi, pr.Token); err != nil {
		return invalid
	}

	if err = gi.SetPassword(pr.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	gi.UpdatedAt = time.Now().UTC()
	_, err = svc.repos.GeneralInfo.UpdateGeneralInfo(ctx, gi)
	return errors.Wrap(err, "updating general info")
}

// Academic info

// CreateAcademicInfo stores the academic info of a form with its subjects.
// When an academic info with the same natural key exists, it is reused and only its subjects are replaced.
func (svc *Service) CreateAcademicInfo(ctx context.Context, formID int, na NewAcademicInfo) (AcademicInfo, *core.Duplicate, error) {
	form, err := svc.getForm(ctx, formID)
	if err != nil {
		return AcademicInfo{}, nil, err
	}

	na.CURegistrationNumber = core.CleanString(na.CURegistrationNumber)
	key := AcademicInfoKey(formID, na.BoardUniversityID, na.ResultStatus, na.CURegistrationNumber)

	var ai AcademicInfo
	var dup *core.Duplicate
	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		existing, err := svc.repos.AcademicInfo.FindAcademicInfo(ctx, key)
		switch {
		case err == nil:
			ai, dup = existing, core.NewDuplicate(key.Entity)
		case err == ErrAcademicInfoNotFound:
			now := time.Now().UTC()
			ai, err = svc.repos.AcademicInfo.CreateAcademicInfo(ctx, AcademicInfo{
				ApplicationFormID:    formID,
				BoardUniversityID:    na.BoardUniversityID,
				InstitutionID:        na.InstitutionID,
				RollNumber:           core.CleanString(na.RollNumber),
				AdmitCardID:          core.CleanString(na.AdmitCardID),
				Stream:               core.CleanString(na.Stream),
				YearOfPassing:        na.YearOfPassing,
				ResultStatus:         na.ResultStatus,
				PreviouslyRegistered: na.PreviouslyRegistered,
				CURegistrationNumber: na.CURegistrationNumber,
				CreatedAt:            now,
				UpdatedAt:            now,
			})
			if err != nil {
				return errors.Wrap(err, "creating academic info")
			}
		default:
			return errors.Wrap(err, "finding academic info")
		}

		if ai.Subjects, err = svc.repos.AcademicInfo.ReplaceSubjects(ctx, ai.ID, na.Subjects); err != nil {
			return errors.Wrap(err, "replacing academic subjects")
		}
		_, err = svc.advanceStep(ctx, form, status.StepAcademicInfo)
		return err
	})
	if err != nil {
		return AcademicInfo{}, nil, err
	}
	return ai, dup, nil
}

// UpdateAcademicInfo overwrites an academic info of the form and replaces its subjects.
func (svc *Service) UpdateAcademicInfo(ctx context.Context, formID, id int, na NewAcademicInfo) (AcademicInfo, error) {
	ai, err := svc.repos.AcademicInfo.GetAcademicInfo(ctx, id)
	if err != nil {
		if err == ErrAcademicInfoNotFound {
			return AcademicInfo{}, err
		}
		return AcademicInfo{}, errors.Wrap(err, "finding academic info")
	}
	if ai.ApplicationFormID != formID {
		return AcademicInfo{}, ErrAcademicInfoNotFound
	}

	ai.BoardUniversityID = na.BoardUniversityID
	ai.InstitutionID = na.InstitutionID
	ai.RollNumber = core.CleanString(na.RollNumber)
	ai.AdmitCardID = core.CleanString(na.AdmitCardID)
	ai.Stream = core.CleanString(na.Stream)
	ai.YearOfPassing = na.YearOfPassing
	ai.ResultStatus = na.ResultStatus
	ai.PreviouslyRegistered = na.PreviouslyRegistered
	ai.CURegistrationNumber = core.CleanString(na.CURegistrationNumber)
	ai.UpdatedAt = time.Now().UTC()

	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		subjects := ai.Subjects
		if ai, err = svc.repos.AcademicInfo.UpdateAcademicInfo(ctx, ai); err != nil {
			return errors.Wrap(err, "updating academic info")
		}
		if na.Subjects == nil {
			ai.Subjects = subjects
			return nil
		}
		ai.Subjects, err = svc.repos.AcademicInfo.ReplaceSubjects(ctx, ai.ID, na.Subjects)
		return errors.Wrap(err, "replacing academic subjects")
	})
	if err != nil {
		return AcademicInfo{}, err
	}
	return ai, nil
}

// Additional info

// CreateAdditionalInfo stores the additional info of a form with its sports.
// A form has at most one; when it exists it is returned untouched.
func (svc *Service) CreateAdditionalInfo(ctx context.Context, formID int, na NewAdditionalInfo) (AdditionalInfo, *core.Duplicate, error) {
	form, err := svc.getForm(ctx, formID)
	if err != nil {
		return AdditionalInfo{}, nil, err
	}

	key := AdditionalInfoKey(formID)
	existing, err := svc.repos.AdditionalInfo.FindAdditionalInfo(ctx, key)
	if err == nil {
		if existing, err = svc.repos.AdditionalInfo.GetAdditionalInfoByForm(ctx, formID); err != nil {
			return AdditionalInfo{}, nil, errors.Wrap(err, "finding additional info")
		}
		return existing, core.NewDuplicate(key.Entity), nil
	} else if err != ErrAdditionalInfoNotFound {
		return AdditionalInfo{}, nil, errors.Wrap(err, "finding additional info")
	}

	now := time.Now().UTC()
	var ai AdditionalInfo
	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		ai, err = svc.repos.AdditionalInfo.CreateAdditionalInfo(ctx, AdditionalInfo{
			ApplicationFormID:  formID,
			CategoryID:         na.CategoryID,
			ReligionID:         na.ReligionID,
			AnnualIncome:       core.CleanString(na.AnnualIncome),
			BloodGroup:         na.BloodGroup,
			Disability:         na.Disability,
			GuardianName:       core.CleanString(na.GuardianName),
			GuardianOccupation: core.CleanString(na.GuardianOccupation),
			CreatedAt:          now,
			UpdatedAt:          now,
		})
		if err != nil {
			return errors.Wrap(err, "creating additional info")
		}
		if ai.Sports, err = svc.repos.AdditionalInfo.ReplaceSports(ctx, ai.ID, na.Sports); err != nil {
			return errors.Wrap(err, "creating sports info")
		}
		_, err = svc.advanceStep(ctx, form, status.StepAdditionalInfo)
		return err
	})
	if err != nil {
		return AdditionalInfo{}, nil, err
	}
	return ai, nil, nil
}

// UpdateAdditionalInfo overwrites the additional info of a form; Sports are replaced when provided.
func (svc *Service) UpdateAdditionalInfo(ctx context.Context, formID int, na NewAdditionalInfo) (AdditionalInfo, error) {
	ai, err := svc.repos.AdditionalInfo.GetAdditionalInfoByForm(ctx, formID)
	if err != nil {
		if err == ErrAdditionalInfoNotFound {
			return AdditionalInfo{}, err
		}
		return AdditionalInfo{}, errors.Wrap(err, "finding additional info")
	}

	ai.CategoryID = na.CategoryID
	ai.ReligionID = na.ReligionID
	ai.AnnualIncome = core.CleanString(na.AnnualIncome)
	ai.BloodGroup = na.BloodGroup
	ai.Disability = na.Disability
	ai.GuardianName = core.CleanString(na.GuardianName)
	ai.GuardianOccupation = core.CleanString(na.GuardianOccupation)
	ai.UpdatedAt = time.Now().UTC()

	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		sports := ai.Sports
		if ai, err = svc.repos.AdditionalInfo.UpdateAdditionalInfo(ctx, ai); err != nil {
			return errors.Wrap(err, "updating additional info")
		}
		if na.Sports == nil {
			ai.Sports = sports
			return nil
		}
		ai.Sports, err = svc.repos.AdditionalInfo.ReplaceSports(ctx, ai.ID, na.Sports)
		return errors.Wrap(err, "replacing sports info")
	})
	if err != nil {
		return AdditionalInfo{}, err
	}
	return ai, nil
}

// Course applications

// CreateCourseApplication selects an admission course for a form.
// The course must belong to the form's admission and be neither disabled nor closed.
func (svc *Service) CreateCourseApplication(ctx context.Context, formID int, nc NewCourseApplication) (CourseApplication, *core.Duplicate, error) {
	form, err := svc.getForm(ctx, formID)
	if err != nil {
		return CourseApplication{}, nil, err
	}

	course, err := svc.admissions.Course(ctx, nc.AdmissionCourseID)
	if err != nil {
		if core.IsNotFound(err) {
			return CourseApplication{}, nil, core.NewValidationError(err, core.FieldError{Field: "admission_course_id", Error: err.Error()})
		}
		return CourseApplication{}, nil, errors.Wrap(err, "finding admission course")
	}
	if course.AdmissionID != form.AdmissionID {
		return CourseApplication{}, nil, core.NewValidationError(ErrCourseMismatch, core.FieldError{Field: "admission_course_id", Error: ErrCourseMismatch.Error()})
	}

	key := CourseApplicationKey(formID, nc.AdmissionCourseID)
	existing, err := svc.repos.CourseApplications.FindCourseApplication(ctx, key)
	if err == nil {
		return existing, core.NewDuplicate(key.Entity), nil
	} else if err != ErrCourseAppNotFound {
		return CourseApplication{}, nil, errors.Wrap(err, "finding course application")
	}

	if !course.Available() {
		return CourseApplication{}, nil, core.NewValidationError(ErrCourseUnavailable, core.FieldError{Field: "admission_course_id", Error: ErrCourseUnavailable.Error()})
	}
	if nc.Preference == 0 {
		nc.Preference = 1
	}

	var ca CourseApplication
	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		ca, err = svc.repos.CourseApplications.CreateCourseApplication(ctx, CourseApplication{
			ApplicationFormID: formID,
			AdmissionCourseID: nc.AdmissionCourseID,
			Preference:        nc.Preference,
			CreatedAt:         time.Now().UTC(),
		})
		if err != nil {
			return errors.Wrap(err, "creating course application")
		}
		_, err = svc.advanceStep(ctx, form, status.StepCourseSelection)
		return err
	})
	if err != nil {
		return CourseApplication{}, nil, err
	}
	return ca, nil, nil
}

func (svc *Service) findCourseApplication(ctx context.Context, formID, id int) (CourseApplication, error) {
	cas, err := svc.repos.CourseApplications.QueryCourseApplicationsByForm(ctx, formID)
	if err != nil {
		return CourseApplication{}, errors.Wrap(err, "querying course applications")
	}
	for _, ca := range cas {
		if ca.ID == id {
			return ca, nil
		}
	}
	return CourseApplication{}, ErrCourseAppNotFound
}

func (svc *Service) UpdateCoursePreference(ctx context.Context, formID, id, preference int) (CourseApplication, error) {
	ca, err := svc.findCourseApplication(ctx, formID, id)
	if err != nil {
		return CourseApplication{}, err
	}
	ca.Preference = preference
	ca, err = svc.repos.CourseApplications.UpdateCourseApplication(ctx, ca)
	return ca, errors.Wrap(err, "updating course application")
}

func (svc *Service) DeleteCourseApplication(ctx context.Context, formID, id int) error {
	if _, err := svc.findCourseApplication(ctx, formID, id); err != nil {
		return err
	}
	return errors.Wrap(svc.repos.CourseApplications.DeleteCourseApplication(ctx, id), "deleting course application")
}

// Payment

type paymentMailData struct {
	Name              string
	ApplicationNumber string
	OrderID           string
	Amount            string
}

// CreatePayment records the application fee payment of a form under a generated order id.
// Recording a payment sets the form status to PAYMENT_SUCCESS whatever it was before.
func (svc *Service) CreatePayment(ctx context.Context, formID int, np NewPayment) (Payment, *core.Duplicate, error) {
	form, err := svc.getForm(ctx, formID)
	if err != nil {
		return Payment{}, nil, err
	}

	key := PaymentKey(formID)
	existing, err := svc.repos.Payments.FindPayment(ctx, key)
	if err == nil {
		return existing, core.NewDuplicate(key.Entity), nil
	} else if err != ErrPaymentNotFound {
		return Payment{}, nil, errors.Wrap(err, "finding payment")
	}

	now := time.Now().UTC()
	var pay Payment
	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		pay, err = svc.repos.Payments.CreatePayment(ctx, Payment{
			ApplicationFormID: formID,
			OrderID:           newOrderID(),
			Amount:            np.Amount,
			PaymentMode:       core.CleanString(np.PaymentMode),
			TransactionID:     core.CleanString(np.TransactionID),
			GatewayStatus:     core.CleanString(np.GatewayStatus),
			PaidAt:            &now,
			CreatedAt:         now,
		})
		if err != nil {
			return errors.Wrap(err, "creating payment")
		}

		if form.FormStatus != status.PaymentSuccess && !form.FormStatus.ExpectedNext(status.PaymentSuccess) {
			svc.logger.Warn("payment recorded on form with unexpected status", map[string]interface{}{
				"form_id": form.ID,
				"from":    form.FormStatus,
			})
		}
		form.FormStatus = status.PaymentSuccess
		if form.AdmissionStep.Order() < status.StepPayment.Order() {
			form.AdmissionStep = status.StepPayment
		}
		form.UpdatedAt = now
		form, err = svc.repos.Forms.UpdateForm(ctx, form)
		return errors.Wrap(err, "setting form status")
	})
	if err != nil {
		return Payment{}, nil, err
	}

	svc.invalidateStats(ctx)
	svc.sendPaymentReceipt(ctx, form, pay)
	return pay, nil, nil
}

func (svc *Service) sendPaymentReceipt(ctx context.Context, form ApplicationForm, pay Payment) {
	gi, err := svc.repos.GeneralInfo.GetGeneralInfoByForm(ctx, form.ID)
	if err != nil {
		if err != ErrGeneralInfoNotFound {
			svc.logger.Error("finding general info for payment receipt", err)
		}
		return
	}
	if gi.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: gi.FullName(), Address: gi.Email}},
		Subject:      "Application fee received",
		TemplateName: "payment_received",
		TemplateData: paymentMailData{
			Name:              gi.FullName(),
			ApplicationNumber: form.ApplicationNumber,
			OrderID:           pay.OrderID,
			Amount:            pay.Amount.String(),
		},
	})
}

// RecordGatewayStatus stores a later gateway notification on the payment of a form.
// A failed outcome moves the form to PAYMENT_FAILED; a success moves it to PAYMENT_SUCCESS.
func (svc *Service) RecordGatewayStatus(ctx context.Context, formID int, gu GatewayUpdate) (Payment, error) {
	form, err := svc.getForm(ctx, formID)
	if err != nil {
		return Payment{}, err
	}
	pay, err := svc.repos.Payments.GetPaymentByForm(ctx, formID)
	if err != nil {
		if err == ErrPaymentNotFound {
			return Payment{}, err
		}
		return Payment{}, errors.Wrap(err, "finding payment")
	}

	pay.GatewayStatus = core.CleanString(gu.GatewayStatus)
	if txn := core.CleanString(gu.TransactionID); txn != "" {
		pay.TransactionID = txn
	}

	var next status.Form
	switch ClassifyGatewayStatus(pay.GatewayStatus) {
	case PaymentSucceeded:
		next = status.PaymentSuccess
	case PaymentFailed:
		next = status.PaymentFailed
	case PaymentPending:
		next = form.FormStatus
	}

	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		if pay, err = svc.repos.Payments.UpdatePayment(ctx, pay); err != nil {
			return errors.Wrap(err, "updating payment")
		}
		if next == form.FormStatus {
			return nil
		}
		_, err = svc.UpdateApplicationForm(ctx, formID, UpdateApplicationForm{FormStatus: &next})
		return err
	})
	if err != nil {
		return Payment{}, err
	}
	return pay, nil
}
