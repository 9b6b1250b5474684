package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/admissions/apps/api/echo"
	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/application"
	"github.com/trezcool/admissions/tests"
)

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	token    string
	wantCode int
	wantErr  interface{}
}

// envelope mirrors the JSON body every API endpoint answers with, except lookups.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   interface{}     `json:"error"`
}

func newTestServer(t *testing.T) (*testutil.Env, *echoapi.Server) {
	t.Helper()

	env := testutil.NewEnv(t)
	env.SeedReference()

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	application.InitValidators(validate, translator)

	srv := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           env.Conf,
		Logger:         env.Logger,
		Validate:       validate,
		Translator:     translator,
		LookupSvc:      env.Lookups,
		AdmissionSvc:   env.Admissions,
		ApplicationSvc: env.Applications,
		FeesSvc:        env.Fees,
		ExamSvc:        env.Exams,
	})
	return env, srv
}

func newAuthRequest(t *testing.T, method, path, token string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func do(t *testing.T, srv *echoapi.Server, tt httpTest) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, newAuthRequest(t, method, tt.path, tt.token, tt.body))

	var env envelope
	if rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func decode(t *testing.T, raw json.RawMessage, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, dest))
}
