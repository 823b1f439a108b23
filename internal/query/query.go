// Package query composes untrusted list parameters (pagination, sorting,
// filtering) onto a SQL select builder against a trusted per-model column
// table. Field names are resolved through explicit Model descriptors declared
// at startup, never through reflection over row structs.
package query

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// MaxPageSize caps client-requested page sizes.
const MaxPageSize = 100

var (
	// ErrUnknownField means the referenced field does not exist on the model.
	ErrUnknownField = errors.New("query: unknown field")
	// ErrFieldNotAllowed means the field exists but is outside the caller's
	// allow-list for this operation.
	ErrFieldNotAllowed = errors.New("query: field not allowed")
	// ErrInvalidCondition means a filter condition is structurally invalid.
	ErrInvalidCondition = errors.New("query: invalid condition")
	// ErrInvalidPagination means page or page size is out of range.
	ErrInvalidPagination = errors.New("query: invalid pagination")
)

// Op is a filter comparison operator.
type Op string

const (
	OpEq       Op = "eq"
	OpNeq      Op = "neq"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpContains Op = "contains" // case-insensitive substring match
	OpIn       Op = "in"
	OpNotIn    Op = "notin"
	OpIsNull   Op = "isnull"
	OpNotNull  Op = "notnull"
)

// Pagination selects a window of the result set. Page is 1-indexed. A zero
// PageSize means "no limit": every matching row is returned.
type Pagination struct {
	Page     int
	PageSize int
}

// SortField orders results by one field. Entries earlier in a Sort slice take
// precedence; later entries break ties.
type SortField struct {
	Field string
	Desc  bool
}

// Condition is one validated filter predicate. Construct with NewCondition;
// the zero value is not usable.
type Condition struct {
	field string
	op    Op
	value any
}

// NewCondition validates operator/value pairing at construction time so that
// malformed filters surface before any query building happens.
func NewCondition(field string, op Op, value any) (Condition, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return Condition{}, fmt.Errorf("%w: empty field name", ErrInvalidCondition)
	}
	switch op {
	case OpIsNull, OpNotNull:
		if value != nil {
			return Condition{}, fmt.Errorf("%w: %s takes no value", ErrInvalidCondition, op)
		}
	case OpIn, OpNotIn:
		if !isSequence(value) {
			return Condition{}, fmt.Errorf("%w: %s requires a non-empty sequence value", ErrInvalidCondition, op)
		}
	case OpContains:
		if _, ok := value.(string); !ok {
			return Condition{}, fmt.Errorf("%w: contains requires a string value", ErrInvalidCondition)
		}
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte:
		if value == nil {
			return Condition{}, fmt.Errorf("%w: %s requires a value", ErrInvalidCondition, op)
		}
	default:
		return Condition{}, fmt.Errorf("%w: unsupported operator %q", ErrInvalidCondition, op)
	}
	return Condition{field: field, op: op, value: value}, nil
}

// Field returns the model field the condition applies to.
func (c Condition) Field() string { return c.field }

// Operator returns the comparison operator.
func (c Condition) Operator() Op { return c.op }

func isSequence(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Len() > 0
	default:
		return false
	}
}

// Params bundles everything a list endpoint accepts from the client.
type Params struct {
	Pagination Pagination
	Sort       []SortField
	Filter     []Condition
}

// Model maps exposed field names to SQL columns for one table. Declared once
// per store at package level; an absent field is a caller error, not a no-op.
type Model struct {
	columns map[string]string
}

// NewModel builds a descriptor from a field→column table.
func NewModel(columns map[string]string) Model {
	copied := make(map[string]string, len(columns))
	for field, col := range columns {
		copied[field] = col
	}
	return Model{columns: copied}
}

// Column resolves an exposed field name to its SQL column.
func (m Model) Column(field string) (string, bool) {
	col, ok := m.columns[field]
	return col, ok
}

// resolve validates a field against the model and an allow-list. An empty
// allow-list permits every model field.
func (m Model) resolve(field string, allowed []string) (string, error) {
	col, ok := m.columns[field]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if len(allowed) == 0 {
		return col, nil
	}
	for _, a := range allowed {
		if a == field {
			return col, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrFieldNotAllowed, field)
}

// Page describes the window actually served, with totals for response
// envelopes. TotalPages = ceil(TotalRecords/PageSize), or 1 when the query was
// unpaginated or matched nothing.
type Page struct {
	Page         int   `json:"page"`
	PageSize     int   `json:"page_size"`
	TotalRecords int64 `json:"total_records"`
	TotalPages   int   `json:"total_pages"`
	HasNext      bool  `json:"has_next"`
	HasPrev      bool  `json:"has_prev"`
}

// BuildPage combines applied pagination with the pre-pagination total count.
func BuildPage(p Pagination, total int64) Page {
	page := Page{
		Page:         p.Page,
		PageSize:     p.PageSize,
		TotalRecords: total,
		TotalPages:   1,
	}
	if p.PageSize > 0 {
		page.TotalPages = int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
		if page.TotalPages < 1 {
			page.TotalPages = 1
		}
	} else {
		// Unpaginated: the single page holds everything that matched.
		page.PageSize = int(total)
	}
	page.HasNext = page.Page < page.TotalPages
	page.HasPrev = page.Page > 1
	return page
}
