package application

import (
	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/status"
)

// Natural keys of the duplicate guards. A create whose key matches a stored row returns that row.

// AcademicInfoKey only includes the CU registration number when it is not blank.
func AcademicInfoKey(formID, boardID int, result status.Result, cuRegNumber string) core.NaturalKey {
	return core.NewNaturalKey("academic info",
		core.KeyField{Column: "application_form_id", Value: formID},
		core.KeyField{Column: "board_university_id", Value: boardID},
		core.KeyField{Column: "result_status", Value: string(result)},
		core.KeyField{Column: "cu_registration_number", Value: cuRegNumber, OnlyIfSet: true},
	)
}

func AdditionalInfoKey(formID int) core.NaturalKey {
	return core.NewNaturalKey("additional info",
		core.KeyField{Column: "application_form_id", Value: formID},
	)
}

func CourseApplicationKey(formID, admissionCourseID int) core.NaturalKey {
	return core.NewNaturalKey("course application",
		core.KeyField{Column: "application_form_id", Value: formID},
		core.KeyField{Column: "admission_course_id", Value: admissionCourseID},
	)
}

func PaymentKey(formID int) core.NaturalKey {
	return core.NewNaturalKey("payment",
		core.KeyField{Column: "application_form_id", Value: formID},
	)
}
