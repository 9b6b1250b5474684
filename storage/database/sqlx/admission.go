package sqlxrepos

import (
	"context"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/admission"
	"github.com/trezcool/admissions/core/status"
)

const (
	admissionYearConstraint = "admissions_academic_year_id_key"

	admissionCols       = `id, academic_year_id, admission_code, is_closed, start_date, last_date, archived, created_at, updated_at`
	admissionCourseCols = `id, admission_id, course_id, disabled, is_closed, created_at`
)

type admissionRepository struct {
	db *sqlx.DB
}

func NewAdmissionRepository(db *sqlx.DB) admission.Repository {
	return &admissionRepository{db: db}
}

func (repo *admissionRepository) CreateAdmission(ctx context.Context, adm admission.Admission) (admission.Admission, error) {
	err := getExec(ctx, repo.db).QueryRowxContext(ctx,
		`INSERT INTO admissions (academic_year_id, admission_code, is_closed, start_date, last_date, archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		adm.AcademicYearID, adm.AdmissionCode, adm.IsClosed, adm.StartDate, adm.LastDate, adm.Archived, adm.CreatedAt, adm.UpdatedAt,
	).Scan(&adm.ID)
	if err != nil {
		if isUniqueViolation(err, admissionYearConstraint) {
			return admission.Admission{}, admission.ErrYearExists
		}
		return admission.Admission{}, err
	}
	return adm, nil
}

func (repo *admissionRepository) CreateAdmissionCourse(ctx context.Context, course admission.AdmissionCourse) (admission.AdmissionCourse, error) {
	err := getExec(ctx, repo.db).QueryRowxContext(ctx,
		`INSERT INTO admission_courses (admission_id, course_id, disabled, is_closed, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		course.AdmissionID, course.CourseID, course.Disabled, course.IsClosed, course.CreatedAt,
	).Scan(&course.ID)
	return course, err
}

func (repo *admissionRepository) GetAdmission(ctx context.Context, id int) (admission.Admission, error) {
	var adm admission.Admission
	err := getOne(ctx, getExec(ctx, repo.db), &adm, admission.ErrNotFound,
		`SELECT `+admissionCols+` FROM admissions WHERE id = $1`, id)
	return adm, err
}

func (repo *admissionRepository) GetAdmissionByYear(ctx context.Context, academicYearID int) (admission.Admission, error) {
	var adm admission.Admission
	err := getOne(ctx, getExec(ctx, repo.db), &adm, admission.ErrNotFound,
		`SELECT `+admissionCols+` FROM admissions WHERE academic_year_id = $1`, academicYearID)
	return adm, err
}

func (repo *admissionRepository) QueryAdmissions(ctx context.Context) ([]admission.Admission, error) {
	adms := make([]admission.Admission, 0)
	err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &adms,
		`SELECT a.id, a.academic_year_id, a.admission_code, a.is_closed, a.start_date, a.last_date, a.archived, a.created_at, a.updated_at
		FROM admissions a
		JOIN academic_years y ON y.id = a.academic_year_id
		ORDER BY y.start_date DESC, a.academic_year_id DESC`)
	return adms, err
}

func (repo *admissionRepository) UpdateAdmission(ctx context.Context, adm admission.Admission) (admission.Admission, error) {
	err := execAffecting(ctx, getExec(ctx, repo.db), admission.ErrNotFound,
		`UPDATE admissions SET admission_code = $2, start_date = $3, last_date = $4, archived = $5, updated_at = $6 WHERE id = $1`,
		adm.ID, adm.AdmissionCode, adm.StartDate, adm.LastDate, adm.Archived, adm.UpdatedAt)
	return adm, err
}

func (repo *admissionRepository) CloseIfOpen(ctx context.Context, id int) (bool, error) {
	res, err := getExec(ctx, repo.db).ExecContext(ctx,
		`UPDATE admissions SET is_closed = TRUE, updated_at = NOW() WHERE id = $1 AND is_closed = FALSE`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (repo *admissionRepository) SetAdmissionClosed(ctx context.Context, id int, closed bool) error {
	return execAffecting(ctx, getExec(ctx, repo.db), admission.ErrNotFound,
		`UPDATE admissions SET is_closed = $2, updated_at = NOW() WHERE id = $1`, id, closed)
}

func (repo *admissionRepository) SetCoursesClosed(ctx context.Context, admissionID int, closed bool) (int, error) {
	res, err := getExec(ctx, repo.db).ExecContext(ctx,
		`UPDATE admission_courses SET is_closed = $2 WHERE admission_id = $1`, admissionID, closed)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (repo *admissionRepository) QueryAdmissionCourses(ctx context.Context, admissionID int) ([]admission.AdmissionCourse, error) {
	courses := make([]admission.AdmissionCourse, 0)
	err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &courses,
		`SELECT `+admissionCourseCols+` FROM admission_courses WHERE admission_id = $1 ORDER BY id`, admissionID)
	return courses, err
}

func (repo *admissionRepository) GetAdmissionCourse(ctx context.Context, id int) (admission.AdmissionCourse, error) {
	var course admission.AdmissionCourse
	err := getOne(ctx, getExec(ctx, repo.db), &course, admission.ErrCourseNotFound,
		`SELECT `+admissionCourseCols+` FROM admission_courses WHERE id = $1`, id)
	return course, err
}

func (repo *admissionRepository) UpdateAdmissionCourse(ctx context.Context, course admission.AdmissionCourse) (admission.AdmissionCourse, error) {
	err := execAffecting(ctx, getExec(ctx, repo.db), admission.ErrCourseNotFound,
		`UPDATE admission_courses SET disabled = $2, is_closed = $3 WHERE id = $1`,
		course.ID, course.Disabled, course.IsClosed)
	return course, err
}

func (repo *admissionRepository) CountAdmissions(ctx context.Context) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, getExec(ctx, repo.db), &n, `SELECT COUNT(*) FROM admissions`)
	return n, err
}

type statusCount struct {
	AdmissionID int         `db:"admission_id"`
	FormStatus  status.Form `db:"form_status"`
	N           int         `db:"n"`
}

func (repo *admissionRepository) CountFormsByStatus(ctx context.Context) (map[status.Form]int, error) {
	var rows []statusCount
	err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &rows,
		`SELECT 0 AS admission_id, form_status, COUNT(*) AS n FROM application_forms GROUP BY form_status`)
	if err != nil {
		return nil, err
	}
	counts := make(map[status.Form]int, len(rows))
	for _, r := range rows {
		counts[r.FormStatus] = r.N
	}
	return counts, nil
}

func (repo *admissionRepository) QuerySummaries(ctx context.Context, page core.Page) ([]admission.SummaryRow, int, error) {
	exec := getExec(ctx, repo.db)

	var total int
	if err := sqlx.GetContext(ctx, exec, &total, `SELECT COUNT(*) FROM admissions`); err != nil {
		return nil, 0, errors.Wrap(err, "counting admissions")
	}

	var adms []struct {
		admission.Admission
		YearName string `db:"year_name"`
	}
	err := sqlx.SelectContext(ctx, exec, &adms,
		`SELECT a.id, a.academic_year_id, a.admission_code, a.is_closed, a.start_date, a.last_date, a.archived,
			a.created_at, a.updated_at, y.name AS year_name
		FROM admissions a
		JOIN academic_years y ON y.id = a.academic_year_id
		ORDER BY y.start_date DESC, a.academic_year_id DESC
		LIMIT $1 OFFSET $2`, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying admissions")
	}

	rows := make([]admission.SummaryRow, 0, len(adms))
	index := make(map[int]int, len(adms)) // {admission id: row index}
	ids := make([]int64, 0, len(adms))
	for i, a := range adms {
		rows = append(rows, admission.SummaryRow{
			AdmissionID:      a.ID,
			AcademicYearID:   a.AcademicYearID,
			AcademicYearName: a.YearName,
			AdmissionCode:    a.AdmissionCode,
			IsClosed:         a.IsClosed,
			StartDate:        a.StartDate,
			LastDate:         a.LastDate,
			ByStatus:         make(map[status.Form]int),
		})
		index[a.ID] = i
		ids = append(ids, int64(a.ID))
	}
	if len(ids) == 0 {
		return rows, total, nil
	}

	var counts []statusCount
	err = sqlx.SelectContext(ctx, exec, &counts,
		`SELECT admission_id, form_status, COUNT(*) AS n
		FROM application_forms
		WHERE admission_id = ANY($1)
		GROUP BY admission_id, form_status`, pq.Array(ids))
	if err != nil {
		return nil, 0, errors.Wrap(err, "counting forms by status")
	}
	for _, c := range counts {
		rows[index[c.AdmissionID]].ByStatus[c.FormStatus] = c.N
	}
	return rows, total, nil
}

const formListQuery = `
WITH items AS (
	SELECT f.id AS form_id, f.application_number, f.form_status, f.admission_step,
		COALESCE(g.first_name, '') AS first_name, COALESCE(g.last_name, '') AS last_name,
		COALESCE(g.mobile, '') AS mobile, COALESCE(g.email, '') AS email,
		COALESCE(c.name, '') AS category, COALESCE(r.name, '') AS religion,
		COALESCE(ai.annual_income, '') AS annual_income,
		COALESCE((
			SELECT string_agg(co.name, ', ' ORDER BY ca.id)
			FROM course_applications ca
			JOIN admission_courses ac ON ac.id = ca.admission_course_id
			JOIN courses co ON co.id = ac.course_id
			WHERE ca.application_form_id = f.id
		), '') AS courses,
		COALESCE((
			SELECT b.name
			FROM academic_infos acad
			JOIN board_universities b ON b.id = acad.board_university_id
			WHERE acad.application_form_id = f.id
			ORDER BY acad.id LIMIT 1
		), '') AS board,
		f.created_at
	FROM application_forms f
	LEFT JOIN general_infos g ON g.application_form_id = f.id
	LEFT JOIN additional_infos ai ON ai.application_form_id = f.id
	LEFT JOIN categories c ON c.id = COALESCE(g.category_id, ai.category_id)
	LEFT JOIN religions r ON r.id = COALESCE(g.religion_id, ai.religion_id)
	WHERE f.admission_id = $1
)
`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likeArg(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func formListWhere(filter admission.FormFilter) (string, []interface{}) {
	conds := []string{"TRUE"}
	args := []interface{}{}
	next := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args)+1) // $1 is the admission id
	}

	for _, f := range []struct{ col, value string }{
		{"category", filter.Category},
		{"religion", filter.Religion},
		{"annual_income", filter.AnnualIncome},
		{"courses", filter.Course},
		{"board", filter.Board},
	} {
		if f.value != "" {
			conds = append(conds, f.col+" ILIKE "+next(likeArg(f.value)))
		}
	}
	if filter.FormStatus != "" {
		conds = append(conds, "form_status = "+next(string(filter.FormStatus)))
	}
	if filter.Search != "" {
		p := next(likeArg(filter.Search))
		cond := "first_name ILIKE " + p + " OR last_name ILIKE " + p
		if id, err := strconv.Atoi(filter.Search); err == nil {
			cond += " OR form_id = " + next(id)
		}
		conds = append(conds, "("+cond+")")
	}
	return strings.Join(conds, " AND "), args
}

func (repo *admissionRepository) QueryForms(ctx context.Context, admissionID int, filter admission.FormFilter, page core.Page) ([]admission.FormListItem, int, error) {
	exec := getExec(ctx, repo.db)
	where, args := formListWhere(filter)
	args = append([]interface{}{admissionID}, args...)

	var total int
	if err := sqlx.GetContext(ctx, exec, &total, formListQuery+`SELECT COUNT(*) FROM items WHERE `+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting application forms")
	}

	n := len(args)
	q := formListQuery + `SELECT * FROM items WHERE ` + where +
		` ORDER BY form_id DESC LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	items := make([]admission.FormListItem, 0)
	if err := sqlx.SelectContext(ctx, exec, &items, q, append(args, page.Limit(), page.Offset())...); err != nil {
		return nil, 0, errors.Wrap(err, "querying application forms")
	}
	return items, total, nil
}
