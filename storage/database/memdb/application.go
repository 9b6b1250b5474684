package memdb

import (
	"context"
	"strings"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/application"
)

// NewApplicationRepositories returns the storage of application forms and their sub-records.
func NewApplicationRepositories(db *DB) application.Repositories {
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
	db *DB
}

func (repo *formRepository) CreateForm(ctx context.Context, form application.ApplicationForm) (application.ApplicationForm, error) {
	repo.db.write(ctx, func(t *tables) {
		form.ID = t.forms.nextID()
		t.forms.rows[form.ID] = form
	})
	return form, nil
}

func (repo *formRepository) GetForm(ctx context.Context, id int) (form application.ApplicationForm, err error) {
	repo.db.read(ctx, func(t *tables) {
		var ok bool
		if form, ok = t.forms.rows[id]; !ok {
			err = application.ErrFormNotFound
		}
	})
	return form, err
}

func (repo *formRepository) QueryFormsByAdmission(ctx context.Context, admissionID int) (forms []application.ApplicationForm, err error) {
	repo.db.read(ctx, func(t *tables) {
		forms = t.forms.filter(func(f application.ApplicationForm) bool { return f.AdmissionID == admissionID })
	})
	return forms, nil
}

func (repo *formRepository) UpdateForm(ctx context.Context, form application.ApplicationForm) (application.ApplicationForm, error) {
	var err error
	repo.db.write(ctx, func(t *tables) {
		if _, ok := t.forms.rows[form.ID]; !ok {
			err = application.ErrFormNotFound
			return
		}
		t.forms.rows[form.ID] = form
	})
	return form, err
}

func (repo *formRepository) DeleteForm(ctx context.Context, id int) error {
	repo.db.write(ctx, func(t *tables) { delete(t.forms.rows, id) })
	return nil
}

func (repo *formRepository) MobileExistsForAdmission(ctx context.Context, admissionID int, mobile string) (exists bool, err error) {
	repo.db.read(ctx, func(t *tables) {
		_, exists = t.generalInfos.first(func(gi application.GeneralInfo) bool {
			form, ok := t.forms.rows[gi.ApplicationFormID]
			return ok && form.AdmissionID == admissionID && strings.EqualFold(gi.Mobile, mobile)
		})
	})
	return exists, nil
}

type generalInfoRepository struct {
	db *DB
}

func (repo *generalInfoRepository) CreateGeneralInfo(ctx context.Context, gi application.GeneralInfo) (application.GeneralInfo, error) {
	repo.db.write(ctx, func(t *tables) {
		gi.ID = t.generalInfos.nextID()
		t.generalInfos.rows[gi.ID] = gi
	})
	return gi, nil
}

func (repo *generalInfoRepository) GetGeneralInfoByForm(ctx context.Context, formID int) (gi application.GeneralInfo, err error) {
	repo.db.read(ctx, func(t *tables) {
		var ok bool
		gi, ok = t.generalInfos.first(func(gi application.GeneralInfo) bool { return gi.ApplicationFormID == formID })
		if !ok {
			err = application.ErrGeneralInfoNotFound
		}
	})
	return gi, err
}

func (repo *generalInfoRepository) QueryGeneralInfoByMobile(ctx context.Context, mobile string) (infos []application.GeneralInfo, err error) {
	repo.db.read(ctx, func(t *tables) {
		infos = t.generalInfos.filter(func(gi application.GeneralInfo) bool { return strings.EqualFold(gi.Mobile, mobile) })
	})
	return infos, nil
}

func (repo *generalInfoRepository) UpdateGeneralInfo(ctx context.Context, gi application.GeneralInfo) (application.GeneralInfo, error) {
	var err error
	repo.db.write(ctx, func(t *tables) {
		if _, ok := t.generalInfos.rows[gi.ID]; !ok {
			err = application.ErrGeneralInfoNotFound
			return
		}
		t.generalInfos.rows[gi.ID] = gi
	})
	return gi, err
}

func (repo *generalInfoRepository) DeleteGeneralInfoByForm(ctx context.Context, formID int) error {
	repo.db.write(ctx, func(t *tables) {
		t.generalInfos.deleteWhere(func(gi application.GeneralInfo) bool { return gi.ApplicationFormID == formID })
	})
	return nil
}

type academicInfoRepository struct {
	db *DB
}

func withSubjects(t *tables, ai application.AcademicInfo) application.AcademicInfo {
	ai.Subjects = t.academicSubjects.filter(func(s application.AcademicSubject) bool { return s.AcademicInfoID == ai.ID })
	return ai
}

func (repo *academicInfoRepository) FindAcademicInfo(ctx context.Context, key core.NaturalKey) (ai application.AcademicInfo, err error) {
	repo.db.read(ctx, func(t *tables) {
		var ok bool
		ai, ok = t.academicInfos.first(func(row application.AcademicInfo) bool { return key.MatchedBy(row.NaturalKey()) })
		if !ok {
			err = application.ErrAcademicInfoNotFound
			return
		}
		ai = withSubjects(t, ai)
	})
	return ai, err
}

func (repo *academicInfoRepository) CreateAcademicInfo(ctx context.Context, ai application.AcademicInfo) (application.AcademicInfo, error) {
	repo.db.write(ctx, func(t *tables) {
		ai.ID = t.academicInfos.nextID()
		ai.Subjects = nil
		t.academicInfos.rows[ai.ID] = ai
	})
	return ai, nil
}

func (repo *academicInfoRepository) GetAcademicInfo(ctx context.Context, id int) (ai application.AcademicInfo, err error) {
	repo.db.read(ctx, func(t *tables) {
		var ok bool
		if ai, ok = t.academicInfos.rows[id]; !ok {
			err = application.ErrAcademicInfoNotFound
			return
		}
		ai = withSubjects(t, ai)
	})
	return ai, err
}

func (repo *academicInfoRepository) QueryAcademicInfoByForm(ctx context.Context, formID int) (infos []application.AcademicInfo, err error) {
	repo.db.read(ctx, func(t *tables) {
		infos = t.academicInfos.filter(func(ai application.AcademicInfo) bool { return ai.ApplicationFormID == formID })
		for i := range infos {
			infos[i] = withSubjects(t, infos[i])
		}
	})
	return infos, nil
}

func (repo *academicInfoRepository) UpdateAcademicInfo(ctx context.Context, ai application.AcademicInfo) (application.AcademicInfo, error) {
	var err error
	repo.db.write(ctx, func(t *tables) {
		if _, ok := t.academicInfos.rows[ai.ID]; !ok {
			err = application.ErrAcademicInfoNotFound
			return
		}
		row := ai
		row.Subjects = nil
		t.academicInfos.rows[ai.ID] = row
	})
	return ai, err
}

func (repo *academicInfoRepository) ReplaceSubjects(ctx context.Context, academicInfoID int, subjects []application.AcademicSubject) ([]application.AcademicSubject, error) {
	stored := make([]application.AcademicSubject, 0, len(subjects))
	repo.db.write(ctx, func(t *tables) {
		t.academicSubjects.deleteWhere(func(s application.AcademicSubject) bool { return s.AcademicInfoID == academicInfoID })
		for _, s := range subjects {
			s.ID = t.academicSubjects.nextID()
			s.AcademicInfoID = academicInfoID
			t.academicSubjects.rows[s.ID] = s
			stored = append(stored, s)
		}
	})
	return stored, nil
}

func (repo *academicInfoRepository) DeleteSubjectsByForm(ctx context.Context, formID int) error {
	repo.db.write(ctx, func(t *tables) {
		t.academicSubjects.deleteWhere(func(s application.AcademicSubject) bool {
			ai, ok := t.academicInfos.rows[s.AcademicInfoID]
			return ok && ai.ApplicationFormID == formID
		})
	})
	return nil
}

func (repo *academicInfoRepository) DeleteAcademicInfoByForm(ctx context.Context, formID int) error {
	repo.db.write(ctx, func(t *tables) {
		t.academicInfos.deleteWhere(func(ai application.AcademicInfo) bool { return ai.ApplicationFormID == formID })
	})
	return nil
}

type additionalInfoRepository struct {
	db *DB
}

func withSports(t *tables, ai application.AdditionalInfo) application.AdditionalInfo {
	ai.Sports = t.sports.filter(func(s application.SportsInfo) bool { return s.AdditionalInfoID == ai.ID })
	return ai
}

func (repo *additionalInfoRepository) FindAdditionalInfo(ctx context.Context, key core.NaturalKey) (ai application.AdditionalInfo, err error) {
	repo.db.read(ctx, func(t *tables) {
		var ok bool
		ai, ok = t.additionalInfos.first(func(row application.AdditionalInfo) bool { return key.MatchedBy(row.NaturalKey()) })
		if !ok {
			err = application.ErrAdditionalInfoNotFound
			return
		}
		ai = withSports(t, ai)
	})
	return ai, err
}

func (repo *additionalInfoRepository) CreateAdditionalInfo(ctx context.Context, ai application.AdditionalInfo) (application.AdditionalInfo, error) {
	repo.db.write(ctx, func(t *tables) {
		ai.ID = t.additionalInfos.nextID()
		ai.Sports = nil
		t.additionalInfos.rows[ai.ID] = ai
	})
	return ai, nil
}

func (repo *additionalInfoRepository) GetAdditionalInfoByForm(ctx context.Context, formID int) (ai application.AdditionalInfo, err error) {
	repo.db.read(ctx, func(t *tables) {
		var ok bool
		ai, ok = t.additionalInfos.first(func(ai application.AdditionalInfo) bool { return ai.ApplicationFormID == formID })
		if !ok {
			err = application.ErrAdditionalInfoNotFound
			return
		}
		ai = withSports(t, ai)
	})
	return ai, err
}

func (repo *additionalInfoRepository) UpdateAdditionalInfo(ctx context.Context, ai application.AdditionalInfo) (application.AdditionalInfo, error) {
	var err error
	repo.db.write(ctx, func(t *tables) {
		if _, ok := t.additionalInfos.rows[ai.ID]; !ok {
			err = application.ErrAdditionalInfoNotFound
			return
		}
		row := ai
		row.Sports = nil
		t.additionalInfos.rows[ai.ID] = row
	})
	return ai, err
}

func (repo *additionalInfoRepository) ReplaceSports(ctx context.Context, additionalInfoID int, sports []application.SportsInfo) ([]application.SportsInfo, error) {
	stored := make([]application.SportsInfo, 0, len(sports))
	repo.db.write(ctx, func(t *tables) {
		t.sports.deleteWhere(func(s application.SportsInfo) bool { return s.AdditionalInfoID == additionalInfoID })
		for _, s := range sports {
			s.ID = t.sports.nextID()
			s.AdditionalInfoID = additionalInfoID
			t.sports.rows[s.ID] = s
			stored = append(stored, s)
		}
	})
	return stored, nil
}

func (repo *additionalInfoRepository) DeleteSportsByForm(ctx context.Context, formID int) error {
	repo.db.write(ctx, func(t *tables) {
		t.sports.deleteWhere(func(s application.SportsInfo) bool {
			ai, ok := t.additionalInfos.rows[s.AdditionalInfoID]
			return ok && ai.ApplicationFormID == formID
		})
	})
	return nil
}

func (repo *additionalInfoRepository) DeleteAdditionalInfoByForm(ctx context.Context, formID int) error {
	repo.db.write(ctx, func(t *tables) {
		t.additionalInfos.deleteWhere(func(ai application.AdditionalInfo) bool { return ai.ApplicationFormID == formID })
	})
	return nil
}

type courseApplicationRepository struct {
	db *DB
}

func (repo *courseApplicationRepository) FindCourseApplication(ctx context.Context, key core.NaturalKey) (ca application.CourseApplication, err error) {
	repo.db.read(ctx, func(t *tables) {
		var ok bool
		ca, ok = t.courseApps.first(func(row application.CourseApplication) bool { return key.MatchedBy(row.NaturalKey()) })
		if !ok {
			err = application.ErrCourseAppNotFound
		}
	})
	return ca, err
}

func (repo *courseApplicationRepository) CreateCourseApplication(ctx context.Context, ca application.CourseApplication) (application.CourseApplication, error) {
	repo.db.write(ctx, func(t *tables) {
		ca.ID = t.courseApps.nextID()
		t.courseApps.rows[ca.ID] = ca
	})
	return ca, nil
}

func (repo *courseApplicationRepository) QueryCourseApplicationsByForm(ctx context.Context, formID int) (cas []application.CourseApplication, err error) {
	repo.db.read(ctx, func(t *tables) {
		cas = t.courseApps.filter(func(ca application.CourseApplication) bool { return ca.ApplicationFormID == formID })
	})
	return cas, nil
}

func (repo *courseApplicationRepository) UpdateCourseApplication(ctx context.Context, ca application.CourseApplication) (application.CourseApplication, error) {
	var err error
	repo.db.write(ctx, func(t *tables) {
		if _, ok := t.courseApps.rows[ca.ID]; !ok {
			err = application.ErrCourseAppNotFound
			return
		}
		t.courseApps.rows[ca.ID] = ca
	})
	return ca, err
}

func (repo *courseApplicationRepository) DeleteCourseApplication(ctx context.Context, id int) error {
	repo.db.write(ctx, func(t *tables) { delete(t.courseApps.rows, id) })
	return nil
}

func (repo *courseApplicationRepository) DeleteCourseApplicationsByForm(ctx context.Context, formID int) error {
	repo.db.write(ctx, func(t *tables) {
		t.courseApps.deleteWhere(func(ca application.CourseApplication) bool { return ca.ApplicationFormID == formID })
	})
	return nil
}

type paymentRepository struct {
	db *DB
}

func (repo *paymentRepository) FindPayment(ctx context.Context, key core.NaturalKey) (p application.Payment, err error) {
	repo.db.read(ctx, func(t *tables) {
		var ok bool
		p, ok = t.payments.first(func(row application.Payment) bool { return key.MatchedBy(row.NaturalKey()) })
		if !ok {
			err = application.ErrPaymentNotFound
		}
	})
	return p, err
}

func (repo *paymentRepository) CreatePayment(ctx context.Context, p application.Payment) (application.Payment, error) {
	repo.db.write(ctx, func(t *tables) {
		p.ID = t.payments.nextID()
		t.payments.rows[p.ID] = p
	})
	return p, nil
}

func (repo *paymentRepository) GetPaymentByForm(ctx context.Context, formID int) (p application.Payment, err error) {
	repo.db.read(ctx, func(t *tables) {
		var ok bool
		p, ok = t.payments.first(func(p application.Payment) bool { return p.ApplicationFormID == formID })
		if !ok {
			err = application.ErrPaymentNotFound
		}
	})
	return p, err
}

func (repo *paymentRepository) UpdatePayment(ctx context.Context, p application.Payment) (application.Payment, error) {
	var err error
	repo.db.write(ctx, func(t *tables) {
		if _, ok := t.payments.rows[p.ID]; !ok {
			err = application.ErrPaymentNotFound
			return
		}
		t.payments.rows[p.ID] = p
	})
	return p, err
}

func (repo *paymentRepository) DeletePaymentByForm(ctx context.Context, formID int) error {
	repo.db.write(ctx, func(t *tables) {
		t.payments.deleteWhere(func(p application.Payment) bool { return p.ApplicationFormID == formID })
	})
	return nil
}
