package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/application"
)

const (
	formCols           = `id, admission_id, application_number, form_status, admission_step, remarks, created_at, updated_at`
	generalInfoCols    = `id, application_form_id, first_name, middle_name, last_name, date_of_birth, gender, mobile, email, password_hash, category_id, religion_id, created_at, updated_at`
	academicInfoCols   = `id, application_form_id, board_university_id, institution_id, roll_number, admit_card_id, stream, year_of_passing, result_status, previously_registered, cu_registration_number, created_at, updated_at`
	subjectCols        = `id, academic_info_id, subject_id, full_marks, marks_obtained`
	additionalInfoCols = `id, application_form_id, category_id, religion_id, annual_income, blood_group, disability, guardian_name, guardian_occupation, created_at, updated_at`
	sportsCols         = `id, additional_info_id, sport_name, level, achievement`
	courseAppCols      = `id, application_form_id, admission_course_id, preference, created_at`
	paymentCols        = `id, application_form_id, order_id, amount, payment_mode, transaction_id, gateway_status, paid_at, created_at`
)

// NewApplicationRepositories returns the storage of application forms and their sub-records.
func NewApplicationRepositories(db *sqlx.DB) application.Repositories {
	return application.Repositories{
		Forms:              &formRepository{db: db},
		GeneralInfo:        &generalInfoRepository{db: db},
		AcademicInfo:       &academicInfoRepository{db: db},
		AdditionalInfo:     &additionalInfoRepository{db: db},
		CourseApplications: &courseApplicationRepository{db: db},
		Payments:           &paymentRepository{db: db},
	}
}

type formRepository struct {
	db *sqlx.DB
}

func (repo *formRepository) CreateForm(ctx context.Context, form application.ApplicationForm) (application.ApplicationForm, error) {
	err := getExec(ctx, repo.db).QueryRowxContext(ctx,
		`INSERT INTO application_forms (admission_id, application_number, form_status, admission_step, remarks, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		form.AdmissionID, form.ApplicationNumber, form.FormStatus, form.AdmissionStep, form.Remarks, form.CreatedAt, form.UpdatedAt,
	).Scan(&form.ID)
	return form, err
}

func (repo *formRepository) GetForm(ctx context.Context, id int) (application.ApplicationForm, error) {
	var form application.ApplicationForm
	err := getOne(ctx, getExec(ctx, repo.db), &form, application.ErrFormNotFound,
		`SELECT `+formCols+` FROM application_forms WHERE id = $1`, id)
	return form, err
}

func (repo *formRepository) QueryFormsByAdmission(ctx context.Context, admissionID int) ([]application.ApplicationForm, error) {
	forms := make([]application.ApplicationForm, 0)
	err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &forms,
		`SELECT `+formCols+` FROM application_forms WHERE admission_id = $1 ORDER BY id`, admissionID)
	return forms, err
}

func (repo *formRepository) UpdateForm(ctx context.Context, form application.ApplicationForm) (application.ApplicationForm, error) {
	err := execAffecting(ctx, getExec(ctx, repo.db), application.ErrFormNotFound,
		`UPDATE application_forms
		SET application_number = $2, form_status = $3, admission_step = $4, remarks = $5, updated_at = $6
		WHERE id = $1`,
		form.ID, form.ApplicationNumber, form.FormStatus, form.AdmissionStep, form.Remarks, form.UpdatedAt)
	return form, err
}

func (repo *formRepository) DeleteForm(ctx context.Context, id int) error {
	_, err := getExec(ctx, repo.db).ExecContext(ctx, `DELETE FROM application_forms WHERE id = $1`, id)
	return err
}

// MobileExistsForAdmission reports whether mobile already applied to the admission.
// Inside a transaction it holds an advisory lock on (admission, mobile) until commit.
func (repo *formRepository) MobileExistsForAdmission(ctx context.Context, admissionID int, mobile string) (bool, error) {
	exec := getExec(ctx, repo.db)
	if _, inTx := exec.(*sqlx.Tx); inTx {
		if _, err := exec.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1, hashtext(LOWER($2)))`, admissionID, mobile); err != nil {
			return false, errors.Wrap(err, "locking applicant mobile")
		}
	}

	var exists bool
	err := sqlx.GetContext(ctx, exec, &exists,
		`SELECT EXISTS (
			SELECT 1 FROM general_infos g
			JOIN application_forms f ON f.id = g.application_form_id
			WHERE f.admission_id = $1 AND LOWER(g.mobile) = LOWER($2)
		)`, admissionID, mobile)
	return exists, err
}

type generalInfoRepository struct {
	db *sqlx.DB
}

func (repo *generalInfoRepository) CreateGeneralInfo(ctx context.Context, gi application.GeneralInfo) (application.GeneralInfo, error) {
	err := getExec(ctx, repo.db).QueryRowxContext(ctx,
		`INSERT INTO general_infos (application_form_id, first_name, middle_name, last_name, date_of_birth, gender,
			mobile, email, password_hash, category_id, religion_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`,
		gi.ApplicationFormID, gi.FirstName, gi.MiddleName, gi.LastName, gi.DateOfBirth, gi.Gender,
		gi.Mobile, gi.Email, gi.PasswordHash, gi.CategoryID, gi.ReligionID, gi.CreatedAt, gi.UpdatedAt,
	).Scan(&gi.ID)
	return gi, err
}

func (repo *generalInfoRepository) GetGeneralInfoByForm(ctx context.Context, formID int) (application.GeneralInfo, error) {
	var gi application.GeneralInfo
	err := getOne(ctx, getExec(ctx, repo.db), &gi, application.ErrGeneralInfoNotFound,
		`SELECT `+generalInfoCols+` FROM general_infos WHERE application_form_id = $1 ORDER BY id LIMIT 1`, formID)
	return gi, err
}

func (repo *generalInfoRepository) QueryGeneralInfoByMobile(ctx context.Context, mobile string) ([]application.GeneralInfo, error) {
	infos := make([]application.GeneralInfo, 0)
	err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &infos,
		`SELECT `+generalInfoCols+` FROM general_infos WHERE LOWER(mobile) = LOWER($1) ORDER BY id`, mobile)
	return infos, err
}

func (repo *generalInfoRepository) UpdateGeneralInfo(ctx context.Context, gi application.GeneralInfo) (application.GeneralInfo, error) {
	err := execAffecting(ctx, getExec(ctx, repo.db), application.ErrGeneralInfoNotFound,
		`UPDATE general_infos
		SET first_name = $2, middle_name = $3, last_name = $4, date_of_birth = $5, gender = $6, email = $7,
			password_hash = $8, category_id = $9, religion_id = $10, updated_at = $11
		WHERE id = $1`,
		gi.ID, gi.FirstName, gi.MiddleName, gi.LastName, gi.DateOfBirth, gi.Gender, gi.Email,
		gi.PasswordHash, gi.CategoryID, gi.ReligionID, gi.UpdatedAt)
	return gi, err
}

func (repo *generalInfoRepository) DeleteGeneralInfoByForm(ctx context.Context, formID int) error {
	_, err := getExec(ctx, repo.db).ExecContext(ctx, `DELETE FROM general_infos WHERE application_form_id = $1`, formID)
	return err
}

type academicInfoRepository struct {
	db *sqlx.DB
}

func (repo *academicInfoRepository) loadSubjects(ctx context.Context, infos []application.AcademicInfo) error {
	for i := range infos {
		infos[i].Subjects = make([]application.AcademicSubject, 0)
		err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &infos[i].Subjects,
			`SELECT `+subjectCols+` FROM academic_subjects WHERE academic_info_id = $1 ORDER BY id`, infos[i].ID)
		if err != nil {
			return errors.Wrap(err, "querying academic subjects")
		}
	}
	return nil
}

func (repo *academicInfoRepository) getOne(ctx context.Context, notFound error, where string, args ...interface{}) (application.AcademicInfo, error) {
	var ai application.AcademicInfo
	err := getOne(ctx, getExec(ctx, repo.db), &ai, notFound,
		`SELECT `+academicInfoCols+` FROM academic_infos WHERE `+where+` ORDER BY id LIMIT 1`, args...)
	if err != nil {
		return application.AcademicInfo{}, err
	}
	infos := []application.AcademicInfo{ai}
	err = repo.loadSubjects(ctx, infos)
	return infos[0], err
}

func (repo *academicInfoRepository) FindAcademicInfo(ctx context.Context, key core.NaturalKey) (application.AcademicInfo, error) {
	where, args := key.Where(1)
	return repo.getOne(ctx, application.ErrAcademicInfoNotFound, where, args...)
}

func (repo *academicInfoRepository) CreateAcademicInfo(ctx context.Context, ai application.AcademicInfo) (application.AcademicInfo, error) {
	err := getExec(ctx, repo.db).QueryRowxContext(ctx,
		`INSERT INTO academic_infos (application_form_id, board_university_id, institution_id, roll_number, admit_card_id,
			stream, year_of_passing, result_status, previously_registered, cu_registration_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`,
		ai.ApplicationFormID, ai.BoardUniversityID, ai.InstitutionID, ai.RollNumber, ai.AdmitCardID,
		ai.Stream, ai.YearOfPassing, ai.ResultStatus, ai.PreviouslyRegistered, ai.CURegistrationNumber, ai.CreatedAt, ai.UpdatedAt,
	).Scan(&ai.ID)
	return ai, err
}

func (repo *academicInfoRepository) GetAcademicInfo(ctx context.Context, id int) (application.AcademicInfo, error) {
	return repo.getOne(ctx, application.ErrAcademicInfoNotFound, "id = $1", id)
}

func (repo *academicInfoRepository) QueryAcademicInfoByForm(ctx context.Context, formID int) ([]application.AcademicInfo, error) {
	infos := make([]application.AcademicInfo, 0)
	err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &infos,
		`SELECT `+academicInfoCols+` FROM academic_infos WHERE application_form_id = $1 ORDER BY id`, formID)
	if err != nil {
		return nil, err
	}
	return infos, repo.loadSubjects(ctx, infos)
}

func (repo *academicInfoRepository) UpdateAcademicInfo(ctx context.Context, ai application.AcademicInfo) (application.AcademicInfo, error) {
	err := execAffecting(ctx, getExec(ctx, repo.db), application.ErrAcademicInfoNotFound,
		`UPDATE academic_infos
		SET board_university_id = $2, institution_id = $3, roll_number = $4, admit_card_id = $5, stream = $6,
			year_of_passing = $7, result_status = $8, previously_registered = $9, cu_registration_number = $10, updated_at = $11
		WHERE id = $1`,
		ai.ID, ai.BoardUniversityID, ai.InstitutionID, ai.RollNumber, ai.AdmitCardID, ai.Stream,
		ai.YearOfPassing, ai.ResultStatus, ai.PreviouslyRegistered, ai.CURegistrationNumber, ai.UpdatedAt)
	return ai, err
}

func (repo *academicInfoRepository) ReplaceSubjects(ctx context.Context, academicInfoID int, subjects []application.AcademicSubject) ([]application.AcademicSubject, error) {
	exec := getExec(ctx, repo.db)
	if _, err := exec.ExecContext(ctx, `DELETE FROM academic_subjects WHERE academic_info_id = $1`, academicInfoID); err != nil {
		return nil, errors.Wrap(err, "deleting academic subjects")
	}

	stored := make([]application.AcademicSubject, 0, len(subjects))
	for _, s := range subjects {
		s.AcademicInfoID = academicInfoID
		err := exec.QueryRowxContext(ctx,
			`INSERT INTO academic_subjects (academic_info_id, subject_id, full_marks, marks_obtained)
			VALUES ($1, $2, $3, $4) RETURNING id`,
			s.AcademicInfoID, s.SubjectID, s.FullMarks, s.MarksObtained,
		).Scan(&s.ID)
		if err != nil {
			return nil, errors.Wrap(err, "inserting academic subject")
		}
		stored = append(stored, s)
	}
	return stored, nil
}

func (repo *academicInfoRepository) DeleteSubjectsByForm(ctx context.Context, formID int) error {
	_, err := getExec(ctx, repo.db).ExecContext(ctx,
		`DELETE FROM academic_subjects
		WHERE academic_info_id IN (SELECT id FROM academic_infos WHERE application_form_id = $1)`, formID)
	return err
}

func (repo *academicInfoRepository) DeleteAcademicInfoByForm(ctx context.Context, formID int) error {
	_, err := getExec(ctx, repo.db).ExecContext(ctx, `DELETE FROM academic_infos WHERE application_form_id = $1`, formID)
	return err
}

type additionalInfoRepository struct {
	db *sqlx.DB
}

func (repo *additionalInfoRepository) getOne(ctx context.Context, where string, args ...interface{}) (application.AdditionalInfo, error) {
	var ai application.AdditionalInfo
	err := getOne(ctx, getExec(ctx, repo.db), &ai, application.ErrAdditionalInfoNotFound,
		`SELECT `+additionalInfoCols+` FROM additional_infos WHERE `+where+` ORDER BY id LIMIT 1`, args...)
	if err != nil {
		return application.AdditionalInfo{}, err
	}
	ai.Sports = make([]application.SportsInfo, 0)
	err = sqlx.SelectContext(ctx, getExec(ctx, repo.db), &ai.Sports,
		`SELECT `+sportsCols+` FROM sports_infos WHERE additional_info_id = $1 ORDER BY id`, ai.ID)
	return ai, errors.Wrap(err, "querying sports info")
}

func (repo *additionalInfoRepository) FindAdditionalInfo(ctx context.Context, key core.NaturalKey) (application.AdditionalInfo, error) {
	where, args := key.Where(1)
	return repo.getOne(ctx, where, args...)
}

func (repo *additionalInfoRepository) CreateAdditionalInfo(ctx context.Context, ai application.AdditionalInfo) (application.AdditionalInfo, error) {
	err := getExec(ctx, repo.db).QueryRowxContext(ctx,
		`INSERT INTO additional_infos (application_form_id, category_id, religion_id, annual_income, blood_group, disability,
			guardian_name, guardian_occupation, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		ai.ApplicationFormID, ai.CategoryID, ai.ReligionID, ai.AnnualIncome, ai.BloodGroup, ai.Disability,
		ai.GuardianName, ai.GuardianOccupation, ai.CreatedAt, ai.UpdatedAt,
	).Scan(&ai.ID)
	return ai, err
}

func (repo *additionalInfoRepository) GetAdditionalInfoByForm(ctx context.Context, formID int) (application.AdditionalInfo, error) {
	return repo.getOne(ctx, "application_form_id = $1", formID)
}

func (repo *additionalInfoRepository) UpdateAdditionalInfo(ctx context.Context, ai application.AdditionalInfo) (application.AdditionalInfo, error) {
	err := execAffecting(ctx, getExec(ctx, repo.db), application.ErrAdditionalInfoNotFound,
		`UPDATE additional_infos
		SET category_id = $2, religion_id = $3, annual_income = $4, blood_group = $5, disability = $6,
			guardian_name = $7, guardian_occupation = $8, updated_at = $9
		WHERE id = $1`,
		ai.ID, ai.CategoryID, ai.ReligionID, ai.AnnualIncome, ai.BloodGroup, ai.Disability,
		ai.GuardianName, ai.GuardianOccupation, ai.UpdatedAt)
	return ai, err
}

func (repo *additionalInfoRepository) ReplaceSports(ctx context.Context, additionalInfoID int, sports []application.SportsInfo) ([]application.SportsInfo, error) {
	exec := getExec(ctx, repo.db)
	if _, err := exec.ExecContext(ctx, `DELETE FROM sports_infos WHERE additional_info_id = $1`, additionalInfoID); err != nil {
		return nil, errors.Wrap(err, "deleting sports info")
	}

	stored := make([]application.SportsInfo, 0, len(sports))
	for _, s := range sports {
		s.AdditionalInfoID = additionalInfoID
		err := exec.QueryRowxContext(ctx,
			`INSERT INTO sports_infos (additional_info_id, sport_name, level, achievement)
			VALUES ($1, $2, $3, $4) RETURNING id`,
			s.AdditionalInfoID, s.SportName, s.Level, s.Achievement,
		).Scan(&s.ID)
		if err != nil {
			return nil, errors.Wrap(err, "inserting sports info")
		}
		stored = append(stored, s)
	}
	return stored, nil
}

func (repo *additionalInfoRepository) DeleteSportsByForm(ctx context.Context, formID int) error {
	_, err := getExec(ctx, repo.db).ExecContext(ctx,
		`DELETE FROM sports_infos
		WHERE additional_info_id IN (SELECT id FROM additional_infos WHERE application_form_id = $1)`, formID)
	return err
}

func (repo *additionalInfoRepository) DeleteAdditionalInfoByForm(ctx context.Context, formID int) error {
	_, err := getExec(ctx, repo.db).ExecContext(ctx, `DELETE FROM additional_infos WHERE application_form_id = $1`, formID)
	return err
}

type courseApplicationRepository struct {
	db *sqlx.DB
}

func (repo *courseApplicationRepository) FindCourseApplication(ctx context.Context, key core.NaturalKey) (application.CourseApplication, error) {
	where, args := key.Where(1)
	var ca application.CourseApplication
	err := getOne(ctx, getExec(ctx, repo.db), &ca, application.ErrCourseAppNotFound,
		`SELECT `+courseAppCols+` FROM course_applications WHERE `+where+` ORDER BY id LIMIT 1`, args...)
	return ca, err
}

func (repo *courseApplicationRepository) CreateCourseApplication(ctx context.Context, ca application.CourseApplication) (application.CourseApplication, error) {
	err := getExec(ctx, repo.db).QueryRowxContext(ctx,
		`INSERT INTO course_applications (application_form_id, admission_course_id, preference, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		ca.ApplicationFormID, ca.AdmissionCourseID, ca.Preference, ca.CreatedAt,
	).Scan(&ca.ID)
	return ca, err
}

func (repo *courseApplicationRepository) QueryCourseApplicationsByForm(ctx context.Context, formID int) ([]application.CourseApplication, error) {
	cas := make([]application.CourseApplication, 0)
	err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &cas,
		`SELECT `+courseAppCols+` FROM course_applications WHERE application_form_id = $1 ORDER BY preference, id`, formID)
	return cas, err
}

func (repo *courseApplicationRepository) UpdateCourseApplication(ctx context.Context, ca application.CourseApplication) (application.CourseApplication, error) {
	err := execAffecting(ctx, getExec(ctx, repo.db), application.ErrCourseAppNotFound,
		`UPDATE course_applications SET preference = $2 WHERE id = $1`, ca.ID, ca.Preference)
	return ca, err
}

func (repo *courseApplicationRepository) DeleteCourseApplication(ctx context.Context, id int) error {
	_, err := getExec(ctx, repo.db).ExecContext(ctx, `DELETE FROM course_applications WHERE id = $1`, id)
	return err
}

func (repo *courseApplicationRepository) DeleteCourseApplicationsByForm(ctx context.Context, formID int) error {
	_, err := getExec(ctx, repo.db).ExecContext(ctx, `DELETE FROM course_applications WHERE application_form_id = $1`, formID)
	return err
}

type paymentRepository struct {
	db *sqlx.DB
}

func (repo *paymentRepository) FindPayment(ctx context.Context, key core.NaturalKey) (application.Payment, error) {
	where, args := key.Where(1)
	var p application.Payment
	err := getOne(ctx, getExec(ctx, repo.db), &p, application.ErrPaymentNotFound,
		`SELECT `+paymentCols+` FROM payments WHERE `+where+` ORDER BY id LIMIT 1`, args...)
	return p, err
}

func (repo *paymentRepository) CreatePayment(ctx context.Context, p application.Payment) (application.Payment, error) {
	err := getExec(ctx, repo.db).QueryRowxContext(ctx,
		`INSERT INTO payments (application_form_id, order_id, amount, payment_mode, transaction_id, gateway_status, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		p.ApplicationFormID, p.OrderID, p.Amount, p.PaymentMode, p.TransactionID, p.GatewayStatus, p.PaidAt, p.CreatedAt,
	).Scan(&p.ID)
	return p, err
}

func (repo *paymentRepository) GetPaymentByForm(ctx context.Context, formID int) (application.Payment, error) {
	var p application.Payment
	err := getOne(ctx, getExec(ctx, repo.db), &p, application.ErrPaymentNotFound,
		`SELECT `+paymentCols+` FROM payments WHERE application_form_id = $1 ORDER BY id LIMIT 1`, formID)
	return p, err
}

func (repo *paymentRepository) UpdatePayment(ctx context.Context, p application.Payment) (application.Payment, error) {
	err := execAffecting(ctx, getExec(ctx, repo.db), application.ErrPaymentNotFound,
		`UPDATE payments SET transaction_id = $2, gateway_status = $3 WHERE id = $1`,
		p.ID, p.TransactionID, p.GatewayStatus)
	return p, err
}

func (repo *paymentRepository) DeletePaymentByForm(ctx context.Context, formID int) error {
	_, err := getExec(ctx, repo.db).ExecContext(ctx, `DELETE FROM payments WHERE application_form_id = $1`, formID)
	return err
}
