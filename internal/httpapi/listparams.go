package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"offcampus.org/internal/query"
)

// parseListParams decodes the list query grammar shared by every collection
// endpoint:
//
//	?page=2&page_size=25
//	?sort=city,-warning_count
//	?filter=city:eq:Ames&filter=warning_count:gte:3&filter=zip:in:50010,50011
//
// Values are coerced to int64 or bool when they parse as such, otherwise kept
// as strings. Validation of field names against the model happens later in
// the composer; here only the shape is checked.
func parseListParams(r *http.Request) (query.Params, error) {
	var params query.Params

	q := r.URL.Query()

	page, err := parseIntParam(q.Get("page"), 1)
	if err != nil {
		return query.Params{}, fmt.Errorf("%w: page must be an integer", query.ErrInvalidPagination)
	}
	size, err := parseIntParam(q.Get("page_size"), 0)
	if err != nil {
		return query.Params{}, fmt.Errorf("%w: page_size must be an integer", query.ErrInvalidPagination)
	}
	params.Pagination = query.Pagination{Page: page, PageSize: size}

	if raw := strings.TrimSpace(q.Get("sort")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			sf := query.SortField{Field: part}
			if strings.HasPrefix(part, "-") {
				sf.Field = part[1:]
				sf.Desc = true
			}
			params.Sort = append(params.Sort, sf)
		}
	}

	for _, raw := range q["filter"] {
		cond, err := parseFilter(raw)
		if err != nil {
			return query.Params{}, err
		}
		params.Filter = append(params.Filter, cond)
	}

	return params, nil
}

// parseFilter decodes one field:op:value triple. The value segment may itself
// contain colons (timestamps), so only the first two separators split.
func parseFilter(raw string) (query.Condition, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) < 2 {
		return query.Condition{}, fmt.Errorf("%w: filter must be field:op[:value]", query.ErrInvalidCondition)
	}
	field := strings.TrimSpace(parts[0])
	op := query.Op(strings.ToLower(strings.TrimSpace(parts[1])))

	switch op {
	case query.OpIsNull, query.OpNotNull:
		if len(parts) == 3 && strings.TrimSpace(parts[2]) != "" {
			return query.Condition{}, fmt.Errorf("%w: %s takes no value", query.ErrInvalidCondition, op)
		}
		return query.NewCondition(field, op, nil)
	case query.OpIn, query.OpNotIn:
		if len(parts) < 3 {
			return query.Condition{}, fmt.Errorf("%w: %s requires values", query.ErrInvalidCondition, op)
		}
		var values []any
		for _, v := range strings.Split(parts[2], ",") {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			values = append(values, coerceValue(v))
		}
		return query.NewCondition(field, op, values)
	default:
		if len(parts) < 3 {
			return query.Condition{}, fmt.Errorf("%w: %s requires a value", query.ErrInvalidCondition, op)
		}
		if op == query.OpContains {
			return query.NewCondition(field, op, parts[2])
		}
		return query.NewCondition(field, op, coerceValue(parts[2]))
	}
}

// coerceValue keeps SQL parameter types aligned with numeric and boolean
// columns, which reject text-typed placeholders.
func coerceValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func parseIntParam(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
