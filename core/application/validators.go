package application

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/status"
)

var (
	formStatusTag  = "formstatus"
	formStatusText = "invalid form status"

	admStepTag  = "admstep"
	admStepText = "invalid admission step"

	resultStatusTag  = "resultstatus"
	resultStatusText = "invalid result status"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdComplexityTag  = "pwdcplx"
	pwdComplexityText = "password must contain at least 1 letter and 1 digit"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to your name, mobile number or email"
)

// InitValidators registers the application form validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(formStatusTag, func(fl validator.FieldLevel) bool {
		return status.Form(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, formStatusTag, formStatusText)

	_ = validate.RegisterValidation(admStepTag, func(fl validator.FieldLevel) bool {
		return status.Step(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, admStepTag, admStepText)

	_ = validate.RegisterValidation(resultStatusTag, func(fl validator.FieldLevel) bool {
		return status.Result(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, resultStatusTag, resultStatusText)

	validate.RegisterStructValidation(applicantStructValidation, NewApplicationForm{}, UpdateGeneralInfo{}, PasswordReset{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdComplexityTag, pwdComplexityText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// applicantStructValidation applies the password policy on NewApplicationForm, UpdateGeneralInfo and PasswordReset.
func applicantStructValidation(sl validator.StructLevel) {
	switch v := sl.Current().Interface().(type) {
	case NewApplicationForm:
		validatePassword(v.Password, sl, v.FirstName+" "+v.LastName, v.Mobile, v.Email)
	case UpdateGeneralInfo:
		if v.Password != "" {
			var email string
			if v.Email != nil {
				email = *v.Email
			}
			validatePassword(v.Password, sl, v.FirstName, email)
		}
	case PasswordReset:
		validatePassword(v.Password, sl)
	}
}

// validatePassword applies the password policy to provided password:
// - minLen: 8
// - no whitespace
// - no all numeric
// - complexity: 1 letter, 1 digit
// - no applicant attrs similarity
func validatePassword(pwd string, sl validator.StructLevel, attrs ...string) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}
	if pwd == "" {
		return // reported by "required"
	}

	var digitCount int
	var hasLetter bool

	pwdLen := len([]rune(pwd))
	if pwdLen < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			reportErr(pwdNoSpaceTag)
			return
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
		if !hasLetter && unicode.IsLetter(char) {
			hasLetter = true
		}
	}

	if digitCount == pwdLen {
		reportErr(pwdNotAllNumTag)
		return
	}
	if !hasLetter || digitCount == 0 {
		reportErr(pwdComplexityTag)
		return
	}

	lpwd := strings.ToLower(pwd)
	for _, attr := range attrs {
		attr = strings.ToLower(strings.TrimSpace(attr))
		if attr == "" {
			continue
		}
		ratio := difflib.NewMatcher(strings.Split(lpwd, ""), strings.Split(attr, "")).QuickRatio()
		if ratio >= pwdMaxSim {
			reportErr(pwdAttrSimTag)
			return
		}
	}
}
