package sqlxrepos

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/admissions/core/admission"
	"github.com/trezcool/admissions/core/status"
)

func TestFormListWhere(t *testing.T) {
	tests := []struct {
		name      string
		filter    admission.FormFilter
		wantWhere string
		wantArgs  []interface{}
	}{
		{
			name:      "no filter",
			wantWhere: "TRUE",
			wantArgs:  []interface{}{},
		},
		{
			name:      "text filters escape like patterns",
			filter:    admission.FormFilter{Category: "OBC_A", Board: "100%"},
			wantWhere: `TRUE AND category ILIKE $2 AND board ILIKE $3`,
			wantArgs:  []interface{}{`%OBC\_A%`, `%100\%%`},
		},
		{
			name:      "status",
			filter:    admission.FormFilter{FormStatus: status.Draft},
			wantWhere: "TRUE AND form_status = $2",
			wantArgs:  []interface{}{"DRAFT"},
		},
		{
			name:      "search by name",
			filter:    admission.FormFilter{Search: "Roy"},
			wantWhere: "TRUE AND (first_name ILIKE $2 OR last_name ILIKE $2)",
			wantArgs:  []interface{}{"%Roy%"},
		},
		{
			name:      "search by padded form id",
			filter:    admission.FormFilter{Search: "0042"},
			wantWhere: "TRUE AND (first_name ILIKE $2 OR last_name ILIKE $2 OR form_id = $3)",
			wantArgs:  []interface{}{"%0042%", 42},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := formListWhere(tt.filter)
			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
