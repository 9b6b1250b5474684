// Package testutil builds services on the in-memory backend and seeds fixtures for tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/admission"
	"github.com/trezcool/admissions/core/application"
	"github.com/trezcool/admissions/core/exam"
	"github.com/trezcool/admissions/core/fees"
	"github.com/trezcool/admissions/core/lookup"
	cachesvc "github.com/trezcool/admissions/services/cache"
	emailsvc "github.com/trezcool/admissions/services/email"
	"github.com/trezcool/admissions/storage/database/memdb"
)

// LogEntry is a message recorded by Logger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger records log entries instead of printing them.
type Logger struct {
	mu      sync.Mutex
	Entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args) }

// Messages returns the messages logged at level.
func (l *Logger) Messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var msgs []string
	for _, e := range l.Entries {
		if e.Level == level {
			msgs = append(msgs, e.Msg)
		}
	}
	return msgs
}

// Env wires every service on one in-memory database.
type Env struct {
	DB     *memdb.DB
	Conf   *core.Config
	Logger *Logger
	Cache  core.Cache
	Mail   core.EmailService

	AdmissionRepo    admission.Repository
	ApplicationRepos application.Repositories

	Lookups      *lookup.Service
	Admissions   *admission.Service
	Applications *application.Service
	Fees         *fees.Service
	Exams        *exam.Service
}

type Option func(env *Env)

// WithAdmissionRepo lets a test decorate the admission repository, e.g. to inject failures.
func WithAdmissionRepo(wrap func(admission.Repository) admission.Repository) Option {
	return func(env *Env) { env.AdmissionRepo = wrap(env.AdmissionRepo) }
}

// WithCache replaces the no-op cache.
func WithCache(c core.Cache) Option {
	return func(env *Env) { env.Cache = c }
}

// WithApplicationRepos lets a test decorate the application repositories.
func WithApplicationRepos(wrap func(repos *application.Repositories)) Option {
	return func(env *Env) { wrap(&env.ApplicationRepos) }
}

func NewEnv(t *testing.T, opts ...Option) *Env {
	t.Helper()

	db := memdb.Open()
	conf := core.NewTestConfig()
	logger := new(Logger)
	env := &Env{
		DB:               db,
		Conf:             conf,
		Logger:           logger,
		Cache:            cachesvc.NewNoopCache(),
		Mail:             emailsvc.NewConsoleServiceMock(conf, logger),
		AdmissionRepo:    memdb.NewAdmissionRepository(db),
		ApplicationRepos: memdb.NewApplicationRepositories(db),
	}
	for _, opt := range opts {
		opt(env)
	}

	env.Lookups = lookup.NewService(memdb.NewLookupRepository(db), env.Cache, conf, logger)
	env.Admissions = admission.NewService(db, env.AdmissionRepo, env.Cache, conf, logger)
	env.Applications = application.NewService(db, env.ApplicationRepos, env.Admissions, env.Mail, env.Cache, conf, logger)
	env.Fees = fees.NewService(memdb.NewFeesRepository(db), env.Lookups, logger)
	env.Exams = exam.NewService(memdb.NewExamRepository(db), env.Lookups)

	emailsvc.ResetSentMessages()
	return env
}

// SeedReference inserts the reference rows most tests rely on:
// academic years 6 and 7, courses 1 to 3, category and religion 1, boards 1 and 2, subjects 1 to 3.
func (env *Env) SeedReference() {
	db := env.DB
	db.SeedAcademicYear(lookup.AcademicYear{ID: 6, Name: "2024-25", StartDate: date(2024, 7, 1), EndDate: date(2025, 6, 30)})
	db.SeedAcademicYear(lookup.AcademicYear{ID: 7, Name: "2025-26", StartDate: date(2025, 7, 1), EndDate: date(2026, 6, 30)})

	db.SeedCourse(lookup.Course{ID: 1, Name: "B.Sc. Physics", Code: "BSC-PHY"})
	db.SeedCourse(lookup.Course{ID: 2, Name: "B.A. English", Code: "BA-ENG"})
	db.SeedCourse(lookup.Course{ID: 3, Name: "B.Com.", Code: "BCOM"})
	db.SeedClass(lookup.Class{ID: 1, Name: "Semester 1"})

	db.SeedCategory(lookup.Category{ID: 1, Name: "General"})
	db.SeedCategory(lookup.Category{ID: 2, Name: "OBC-A"})
	db.SeedReligion(lookup.Religion{ID: 1, Name: "Hinduism"})
	db.SeedBoardUniversity(lookup.BoardUniversity{ID: 1, Name: "WBCHSE", Kind: "BOARD"})
	db.SeedBoardUniversity(lookup.BoardUniversity{ID: 2, Name: "CBSE", Kind: "BOARD"})
	db.SeedInstitution(lookup.Institution{ID: 1, Name: "Hindu School"})

	db.SeedSubject(lookup.Subject{ID: 1, Name: "Physics", Code: "PHY"}, lookup.CourseSubject{CourseID: 1, ClassID: 1})
	db.SeedSubject(lookup.Subject{ID: 2, Name: "Mathematics", Code: "MTH"}, lookup.CourseSubject{CourseID: 1, ClassID: 1})
	db.SeedSubject(lookup.Subject{ID: 3, Name: "English", Code: "ENG"}, lookup.CourseSubject{CourseID: 2, ClassID: 1})
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CreateAdmission creates an admission of year open from yesterday for a month, with courses.
func (env *Env) CreateAdmission(t *testing.T, year int, courseIDs ...int) admission.Admission {
	t.Helper()
	today := core.Today()
	adm, err := env.Admissions.CreateWithCourses(context.Background(), admission.NewAdmission{
		AcademicYearID: year,
		AdmissionCode:  fmt.Sprintf("ADM%d", year),
		StartDate:      today.AddDate(0, 0, -1),
		LastDate:       today.AddDate(0, 1, 0),
		CourseIDs:      courseIDs,
	})
	if err != nil {
		t.Fatalf("CreateAdmission() failed: %v", err)
	}
	return adm
}

// NewForm returns valid input to start an application with mobile under adm.
func NewForm(admissionID int, mobile string) application.NewApplicationForm {
	return application.NewApplicationForm{
		AdmissionID:     admissionID,
		FirstName:       "Asha",
		LastName:        "Roy",
		Gender:          "FEMALE",
		Mobile:          mobile,
		Email:           "asha.roy@example.com",
		Password:        "kolkata2025",
		PasswordConfirm: "kolkata2025",
		CategoryID:      intPtr(1),
		ReligionID:      intPtr(1),
	}
}

func (env *Env) CreateForm(t *testing.T, admissionID int, mobile string) application.FormDTO {
	t.Helper()
	dto, err := env.Applications.CreateApplicationForm(context.Background(), NewForm(admissionID, mobile))
	if err != nil {
		t.Fatalf("CreateForm() failed: %v", err)
	}
	return dto
}

func intPtr(i int) *int { return &i }
