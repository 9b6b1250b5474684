package application_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/application"
	emailsvc "github.com/trezcool/admissions/services/email"
	"github.com/trezcool/admissions/tests"
)

var resetLinkRe = regexp.MustCompile(`/reset-password/([^/\s]+)/(\S+)`)

// requestReset asks for a reset link for mobile and returns the uid and token it carries.
func requestReset(t *testing.T, env *testutil.Env, mobile string) (string, string) {
	t.Helper()
	emailsvc.ResetSentMessages()
	require.NoError(t, env.Applications.RequestPasswordReset(context.Background(), mobile))

	sent := emailsvc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "asha.roy@example.com", sent[0].To[0].Address)
	m := resetLinkRe.FindStringSubmatch(sent[0].TextContent)
	require.Len(t, m, 3, sent[0].TextContent)
	return m[1], m[2]
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	env.SeedReference()
	adm := env.CreateAdmission(t, 7, 1)
	dto := env.CreateForm(t, adm.ID, "9876543210")

	t.Run("unknown mobile", func(t *testing.T) {
		emailsvc.ResetSentMessages()
		require.NoError(t, env.Applications.RequestPasswordReset(ctx, "9000000000"))
		assert.Empty(t, emailsvc.Sent())
	})

	uid, token := requestReset(t, env, "9876543210")
	assert.Equal(t, application.EncodeFormID(dto.Form.ID), uid)

	reset := func(uid, token, pwd string) error {
		return env.Applications.ConfirmPasswordReset(ctx, application.PasswordReset{
			UID: uid, Token: token, Password: pwd, PasswordConfirm: pwd,
		})
	}
	assertInvalid := func(t *testing.T, err error) {
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		require.Len(t, vErr.Fields, 1)
		assert.Equal(t, "token", vErr.Fields[0].Field)
	}

	t.Run("tampered token", func(t *testing.T) {
		assertInvalid(t, reset(uid, token+"x", "salt-lake-42"))
	})
	t.Run("malformed uid", func(t *testing.T) {
		assertInvalid(t, reset("%%%", token, "salt-lake-42"))
	})
	t.Run("other form", func(t *testing.T) {
		assertInvalid(t, reset(application.EncodeFormID(dto.Form.ID+1), token, "salt-lake-42"))
	})

	require.NoError(t, reset(uid, token, "salt-lake-42"))
	_, err := env.Applications.FindByLoginIDAndPassword(ctx, "9876543210", "salt-lake-42")
	require.NoError(t, err)

	t.Run("token is single use", func(t *testing.T) {
		assertInvalid(t, reset(uid, token, "park-street-9"))
	})

	t.Run("expired token", func(t *testing.T) {
		application.NowFunc = func() time.Time { return time.Now().AddDate(0, 0, -10) }
		uid, token := requestReset(t, env, "9876543210")
		application.NowFunc = time.Now

		assertInvalid(t, reset(uid, token, "park-street-9"))
	})
}
