package fees_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/fees"
	"github.com/trezcool/admissions/core/lookup"
	"github.com/trezcool/admissions/tests"
)

func TestStudentFees(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	st := env.DB.SeedStudent(lookup.Student{Name: "Asha Roy"})
	other := env.DB.SeedStudent(lookup.Student{Name: "Rahul Sen"})

	today := core.Today()
	lastWeek, nextWeek := today.AddDate(0, 0, -7), today.AddDate(0, 0, 7)
	env.DB.SeedFeeMapping(fees.Mapping{StudentID: st.ID, FeeType: "TUITION", TotalPayable: 10000, AmountPaid: 10000, PaymentStatus: fees.PaymentSuccess, DueDate: &lastWeek})
	env.DB.SeedFeeMapping(fees.Mapping{StudentID: st.ID, FeeType: "TUITION", TotalPayable: 10000, PaymentStatus: fees.PaymentPending, DueDate: &nextWeek})
	env.DB.SeedFeeMapping(fees.Mapping{StudentID: st.ID, FeeType: "LIBRARY", TotalPayable: 500, PaymentStatus: fees.PaymentPending, DueDate: &lastWeek})
	env.DB.SeedFeeMapping(fees.Mapping{StudentID: st.ID, FeeType: "LIBRARY", TotalPayable: 700, PaymentStatus: fees.PaymentCancelled, DueDate: &lastWeek})
	env.DB.SeedFeeMapping(fees.Mapping{StudentID: other.ID, FeeType: "TUITION", TotalPayable: 10000, PaymentStatus: fees.PaymentPending})

	sf, err := env.Fees.StudentFees(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha Roy", sf.StudentName)
	assert.Equal(t, core.Amount(20500), sf.TotalPayable)
	assert.Equal(t, core.Amount(10000), sf.AmountPaid)
	assert.Equal(t, core.Amount(10500), sf.Balance)
	assert.Equal(t, fees.StatusPartiallyPaid, sf.Status)

	require.Len(t, sf.Groups, 2)
	library, tuition := sf.Groups[0], sf.Groups[1]

	assert.Equal(t, "LIBRARY", library.FeeType)
	assert.Equal(t, core.Amount(500), library.TotalPayable)
	assert.Equal(t, fees.StatusOverdue, library.Status)
	require.Len(t, library.Lines, 2)
	assert.Equal(t, fees.StatusOverdue, library.Lines[0].Status)
	assert.Equal(t, fees.UrgencyOverdue, library.Lines[0].Urgency)
	assert.Equal(t, fees.StatusCancelled, library.Lines[1].Status)
	assert.Nil(t, library.Lines[1].DaysUntilDue)

	assert.Equal(t, fees.StatusPartiallyPaid, tuition.Status)
	assert.Equal(t, fees.StatusPaid, tuition.Lines[0].Status)
	assert.Equal(t, fees.StatusPending, tuition.Lines[1].Status)
	require.NotNil(t, tuition.Lines[1].DaysUntilDue)
	assert.Equal(t, 7, *tuition.Lines[1].DaysUntilDue)
	assert.Equal(t, fees.UrgencyWarning, tuition.Lines[1].Urgency)

	_, err = env.Fees.StudentFees(ctx, 999)
	assert.Equal(t, lookup.ErrStudentNotFound, err)
}
