package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConditionValidation(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		op      Op
		value   any
		wantErr error
	}{
		{"eq with value", "city", OpEq, "Ames", nil},
		{"eq without value", "city", OpEq, nil, ErrInvalidCondition},
		{"empty field", "", OpEq, "x", ErrInvalidCondition},
		{"isnull with value", "party_id", OpIsNull, "x", ErrInvalidCondition},
		{"isnull without value", "party_id", OpIsNull, nil, nil},
		{"notnull without value", "party_id", OpNotNull, nil, nil},
		{"in with slice", "zip", OpIn, []string{"50010", "50011"}, nil},
		{"in with empty slice", "zip", OpIn, []string{}, ErrInvalidCondition},
		{"in with scalar", "zip", OpIn, "50010", ErrInvalidCondition},
		{"notin with slice", "zip", OpNotIn, []any{"50010"}, nil},
		{"contains with string", "name", OpContains, "block", nil},
		{"contains with int", "name", OpContains, 7, ErrInvalidCondition},
		{"unknown operator", "name", Op("between"), 7, ErrInvalidCondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, err := NewCondition(tt.field, tt.op, tt.value)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.field, cond.Field())
			assert.Equal(t, tt.op, cond.Operator())
		})
	}
}

func TestModelResolve(t *testing.T) {
	m := NewModel(map[string]string{
		"city":          "city",
		"warning_count": "warning_count",
		"created_at":    "created_at",
	})

	col, err := m.resolve("city", nil)
	require.NoError(t, err)
	assert.Equal(t, "city", col)

	// Allow-list narrows the model.
	_, err = m.resolve("created_at", []string{"city"})
	assert.ErrorIs(t, err, ErrFieldNotAllowed)

	// A field missing from the model is a different error than one that
	// exists but is not allowed.
	_, err = m.resolve("password_hash", []string{"city"})
	assert.ErrorIs(t, err, ErrUnknownField)
	assert.NotErrorIs(t, err, ErrFieldNotAllowed)
}

func TestBuildPage(t *testing.T) {
	tests := []struct {
		name  string
		p     Pagination
		total int64
		want  Page
	}{
		{
			name:  "middle page",
			p:     Pagination{Page: 2, PageSize: 10},
			total: 35,
			want:  Page{Page: 2, PageSize: 10, TotalRecords: 35, TotalPages: 4, HasNext: true, HasPrev: true},
		},
		{
			name:  "exact division",
			p:     Pagination{Page: 3, PageSize: 10},
			total: 30,
			want:  Page{Page: 3, PageSize: 10, TotalRecords: 30, TotalPages: 3, HasNext: false, HasPrev: true},
		},
		{
			name:  "empty result keeps one page",
			p:     Pagination{Page: 1, PageSize: 10},
			total: 0,
			want:  Page{Page: 1, PageSize: 10, TotalRecords: 0, TotalPages: 1, HasNext: false, HasPrev: false},
		},
		{
			name:  "unpaginated returns everything as one page",
			p:     Pagination{Page: 1, PageSize: 0},
			total: 250,
			want:  Page{Page: 1, PageSize: 250, TotalRecords: 250, TotalPages: 1, HasNext: false, HasPrev: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildPage(tt.p, tt.total))
		})
	}
}
