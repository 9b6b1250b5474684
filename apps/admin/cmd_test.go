package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/admissions/core/admission"
	"github.com/trezcool/admissions/core/application"
	"github.com/trezcool/admissions/tests"
)

func setup(t *testing.T) (*testutil.Env, *commandLine) {
	logger = log.New(os.Stdout, "ADMIN : ", 0)

	env := testutil.NewEnv(t)
	env.SeedReference()

	return env, &commandLine{
		db:           new(sql.DB),
		admissionSvc: env.Admissions,
		appSvc:       env.Applications,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	_, cli := setup(t)

	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "3"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "documents", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
			}
		})
	}

	t.Run("memory engine", func(t *testing.T) {
		noSQL := *cli
		noSQL.db = nil
		assert.Equal(t, errNoSQL, noSQL.run([]string{"admin", "migrate", "up"}))
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	env, cli := setup(t)
	adm := env.CreateAdmission(t, 7, 1)
	dto := env.CreateForm(t, adm.ID, "9876543210")
	formArg := strconv.Itoa(dto.Form.ID)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "form but no password", args: []string{"resetpassword", "-form", formArg}, wantErr: errHelp},
		{name: "form not found", args: []string{"resetpassword", "-form", "999"}, extra: extra{pwd: "lol"}, wantErr: application.ErrGeneralInfoNotFound},
		{name: "reset", args: []string{"resetpassword", "-form", formArg}, extra: extra{pwd: "howrah-bridge-7"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
		})
	}

	ctx := context.Background()
	_, err := env.Applications.FindByLoginIDAndPassword(ctx, "9876543210", "kolkata2025")
	assert.Equal(t, application.ErrInvalidCredentials, err)
	res, err := env.Applications.FindByLoginIDAndPassword(ctx, "9876543210", "howrah-bridge-7")
	require.NoError(t, err)
	assert.Equal(t, dto.Form.ID, res.Form.ID)
}

func Test_commandLine_closeExpired(t *testing.T) {
	env, cli := setup(t)
	ctx := context.Background()

	expired, err := env.Admissions.CreateWithCourses(ctx, admission.NewAdmission{
		AcademicYearID: 6,
		StartDate:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		LastDate:       time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		CourseIDs:      []int{1},
	})
	require.NoError(t, err)
	open := env.CreateAdmission(t, 7, 1)

	require.NoError(t, cli.run([]string{"admin", "closeexpired"}))

	got, err := env.AdmissionRepo.GetAdmission(ctx, expired.ID)
	require.NoError(t, err)
	assert.True(t, got.IsClosed)

	got, err = env.AdmissionRepo.GetAdmission(ctx, open.ID)
	require.NoError(t, err)
	assert.False(t, got.IsClosed)
}
