package query

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/huandu/go-sqlbuilder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var locationModel = NewModel(map[string]string{
	"city":          "city",
	"zip":           "zip",
	"warning_count": "warning_count",
	"created_at":    "created_at",
	"party_id":      "party_id",
})

func newLocationSB() *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "city", "zip").From("locations")
	return sb
}

func mustCondition(t *testing.T, field string, op Op, value any) Condition {
	t.Helper()
	cond, err := NewCondition(field, op, value)
	require.NoError(t, err)
	return cond
}

func TestApplyComposesInOrder(t *testing.T) {
	sb := newLocationSB()
	params := Params{
		Pagination: Pagination{Page: 3, PageSize: 10},
		Sort: []SortField{
			{Field: "warning_count", Desc: true},
			{Field: "created_at"},
		},
		Filter: []Condition{
			mustCondition(t, "city", OpEq, "Ames"),
			mustCondition(t, "warning_count", OpGte, 2),
		},
	}

	applied, err := Apply(sb, locationModel, params, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Pagination{Page: 3, PageSize: 10}, applied)

	q, args := sb.BuildWithFlavor(sqlbuilder.PostgreSQL)
	assert.Contains(t, q, "WHERE")
	assert.Contains(t, q, "ORDER BY warning_count DESC, created_at ASC")
	assert.Contains(t, q, "LIMIT")
	assert.Contains(t, q, "OFFSET")
	assert.Less(t, strings.Index(q, "WHERE"), strings.Index(q, "ORDER BY"))
	assert.Less(t, strings.Index(q, "ORDER BY"), strings.Index(q, "LIMIT"))
	assert.Subset(t, args, []any{"Ames", 2})
}

func TestApplyDefaultsPageToOne(t *testing.T) {
	sb := newLocationSB()
	applied, err := Apply(sb, locationModel, Params{Pagination: Pagination{PageSize: 25}}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, applied.Page)
}

func TestApplyRejectsBeforeBuilding(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr error
	}{
		{
			name:    "unknown sort field",
			params:  Params{Sort: []SortField{{Field: "nope"}}},
			wantErr: ErrUnknownField,
		},
		{
			name:    "sort field outside allow-list",
			params:  Params{Sort: []SortField{{Field: "zip"}}},
			wantErr: ErrFieldNotAllowed,
		},
		{
			name:    "filter field outside allow-list",
			params:  Params{Filter: []Condition{mustCondition(t, "zip", OpEq, "50010")}},
			wantErr: ErrFieldNotAllowed,
		},
		{
			name:    "oversized page",
			params:  Params{Pagination: Pagination{PageSize: MaxPageSize + 1}},
			wantErr: ErrInvalidPagination,
		},
		{
			name:    "negative page",
			params:  Params{Pagination: Pagination{Page: -1, PageSize: 10}},
			wantErr: ErrInvalidPagination,
		},
	}

	allowed := []string{"city", "warning_count", "created_at"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sb := newLocationSB()
			_, err := Apply(sb, locationModel, tt.params, allowed, allowed)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestApplyFilterOperators(t *testing.T) {
	tests := []struct {
		name     string
		cond     Condition
		wantFrag string
		wantArgs []any
	}{
		{"eq", mustCondition(t, "city", OpEq, "Ames"), "city =", []any{"Ames"}},
		{"neq", mustCondition(t, "city", OpNeq, "Ames"), "city <>", []any{"Ames"}},
		{"gt", mustCondition(t, "warning_count", OpGt, 1), "warning_count >", []any{1}},
		{"lte", mustCondition(t, "warning_count", OpLte, 5), "warning_count <=", []any{5}},
		{"contains", mustCondition(t, "city", OpContains, "ame"), "city ILIKE", []any{"%ame%"}},
		{"in", mustCondition(t, "zip", OpIn, []string{"50010", "50011"}), "zip IN", []any{"50010", "50011"}},
		{"notin", mustCondition(t, "zip", OpNotIn, []string{"50010"}), "zip NOT IN", []any{"50010"}},
		{"isnull", mustCondition(t, "party_id", OpIsNull, nil), "party_id IS NULL", nil},
		{"notnull", mustCondition(t, "party_id", OpNotNull, nil), "party_id IS NOT NULL", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sb := newLocationSB()
			err := ApplyFilter(sb, locationModel, []Condition{tt.cond}, nil)
			require.NoError(t, err)
			q, args := sb.BuildWithFlavor(sqlbuilder.PostgreSQL)
			assert.Contains(t, q, tt.wantFrag)
			if tt.wantArgs != nil {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestContainsEscapesLikeMetacharacters(t *testing.T) {
	sb := newLocationSB()
	cond := mustCondition(t, "city", OpContains, "100%_done\\")
	require.NoError(t, ApplyFilter(sb, locationModel, []Condition{cond}, nil))
	_, args := sb.BuildWithFlavor(sqlbuilder.PostgreSQL)
	require.Len(t, args, 1)
	assert.Equal(t, `%100\%\_done\\%`, args[0])
}

func TestCountWrapsUnpaginatedQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sb := newLocationSB()
	require.NoError(t, ApplyFilter(sb, locationModel, []Condition{
		mustCondition(t, "city", OpEq, "Ames"),
	}, nil))

	mock.ExpectQuery(`SELECT count\(\*\) FROM \(SELECT .+ FROM locations WHERE .+\) AS sub`).
		WithArgs("Ames").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	total, err := Count(context.Background(), db, sb)
	require.NoError(t, err)
	assert.Equal(t, int64(42), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
