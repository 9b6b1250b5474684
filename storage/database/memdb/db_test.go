package memdb_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/admissions/core/application"
	"github.com/trezcool/admissions/core/status"
	"github.com/trezcool/admissions/storage/database/memdb"
)

var errAbort = errors.New("abort")

func newForm(t *testing.T, repos application.Repositories) application.ApplicationForm {
	t.Helper()
	form, err := repos.Forms.CreateForm(context.Background(), application.ApplicationForm{
		AdmissionID:   1,
		FormStatus:    status.Draft,
		AdmissionStep: status.StepGeneralInfo,
	})
	require.NoError(t, err)
	return form
}

func TestInTx_RollbackKeepsOtherWrites(t *testing.T) {
	ctx := context.Background()
	db := memdb.Open()
	repos := memdb.NewApplicationRepositories(db)
	form := newForm(t, repos)
	other := newForm(t, repos)

	done := make(chan error, 1)
	err := db.InTx(ctx, func(txCtx context.Context) error {
		go func() {
			approved := form
			approved.FormStatus = status.Approved
			_, err := repos.Forms.UpdateForm(context.Background(), approved)
			done <- err
		}()
		time.Sleep(20 * time.Millisecond)

		if err := repos.Forms.DeleteForm(txCtx, other.ID); err != nil {
			return err
		}
		return errAbort
	})
	require.Equal(t, errAbort, err)
	require.NoError(t, <-done)

	got, err := repos.Forms.GetForm(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, status.Approved, got.FormStatus)

	_, err = repos.Forms.GetForm(ctx, other.ID)
	assert.NoError(t, err, "rolled back delete")
}

func TestInTx_Isolation(t *testing.T) {
	ctx := context.Background()
	db := memdb.Open()
	repos := memdb.NewApplicationRepositories(db)
	form := newForm(t, repos)

	err := db.InTx(ctx, func(txCtx context.Context) error {
		submitted := form
		submitted.FormStatus = status.Submitted
		if _, err := repos.Forms.UpdateForm(txCtx, submitted); err != nil {
			return err
		}

		inside, err := repos.Forms.GetForm(txCtx, form.ID)
		require.NoError(t, err)
		assert.Equal(t, status.Submitted, inside.FormStatus)

		outside, err := repos.Forms.GetForm(context.Background(), form.ID)
		require.NoError(t, err)
		assert.Equal(t, status.Draft, outside.FormStatus, "uncommitted row visible")
		return nil
	})
	require.NoError(t, err)

	got, err := repos.Forms.GetForm(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, status.Submitted, got.FormStatus)
}

func TestInTx_Nested(t *testing.T) {
	ctx := context.Background()
	db := memdb.Open()
	repos := memdb.NewApplicationRepositories(db)

	err := db.InTx(ctx, func(ctx context.Context) error {
		newFormIn := func() error {
			_, err := repos.Forms.CreateForm(ctx, application.ApplicationForm{AdmissionID: 1, FormStatus: status.Draft})
			return err
		}
		require.NoError(t, newFormIn())
		return db.InTx(ctx, func(ctx context.Context) error {
			if err := newFormIn(); err != nil {
				return err
			}
			return errAbort
		})
	})
	require.Equal(t, errAbort, err)

	forms, err := repos.Forms.QueryFormsByAdmission(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, forms)
}
