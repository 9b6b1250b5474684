package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func academicKey(form, board int, result, reg string) NaturalKey {
	return NewNaturalKey("academic info",
		KeyField{Column: "application_form_id", Value: form},
		KeyField{Column: "board_university_id", Value: board},
		KeyField{Column: "result_status", Value: result},
		KeyField{Column: "cu_registration_number", Value: reg, OnlyIfSet: true},
	)
}

func TestNaturalKey_Where(t *testing.T) {
	tests := []struct {
		name     string
		key      NaturalKey
		start    int
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name:     "conditional field dropped when blank",
			key:      academicKey(1, 2, "PASSED", "  "),
			start:    1,
			wantSQL:  "application_form_id = $1 AND board_university_id = $2 AND result_status = $3",
			wantArgs: []interface{}{1, 2, "PASSED"},
		},
		{
			name:     "conditional field kept when set",
			key:      academicKey(1, 2, "PASSED", "CU-9"),
			start:    1,
			wantSQL:  "application_form_id = $1 AND board_university_id = $2 AND result_status = $3 AND cu_registration_number = $4",
			wantArgs: []interface{}{1, 2, "PASSED", "CU-9"},
		},
		{
			name:     "placeholders offset",
			key:      NewNaturalKey("payment", KeyField{Column: "application_form_id", Value: 5}),
			start:    3,
			wantSQL:  "application_form_id = $3",
			wantArgs: []interface{}{5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := tt.key.Where(tt.start)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestNaturalKey_MatchedBy(t *testing.T) {
	stored := academicKey(1, 2, "PASSED", "CU-9")

	assert.True(t, academicKey(1, 2, "PASSED", "").MatchedBy(stored))
	assert.True(t, academicKey(1, 2, "PASSED", "CU-9").MatchedBy(stored))
	assert.False(t, academicKey(1, 2, "PASSED", "CU-1").MatchedBy(stored))
	assert.False(t, academicKey(1, 3, "PASSED", "").MatchedBy(stored))
	assert.False(t, academicKey(1, 2, "FAILED", "").MatchedBy(stored))

	// a stored row without registration number never matches a lookup that has one
	assert.False(t, academicKey(1, 2, "PASSED", "CU-9").MatchedBy(academicKey(1, 2, "PASSED", "")))
}

func TestNaturalKey_pointerValues(t *testing.T) {
	id := 4
	k := NewNaturalKey("x", KeyField{Column: "a", Value: &id}, KeyField{Column: "b", Value: (*int)(nil), OnlyIfSet: true})
	sql, args := k.Where(1)
	assert.Equal(t, "a = $1", sql)
	assert.Equal(t, []interface{}{4}, args)
	assert.True(t, k.MatchedBy(NewNaturalKey("x", KeyField{Column: "a", Value: 4})))
}
