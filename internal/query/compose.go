package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
)

// DB is the subset of database/sql needed by Count. Satisfied by *sql.DB and
// *sql.Tx.
type DB interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Apply composes filter, sort and pagination onto sb, in that fixed order.
// Filtering narrows the set before any window is taken; sorting precedes
// pagination so page boundaries stay stable across requests. The returned
// Pagination is what was actually applied (page defaulted to 1).
//
// Every referenced field must exist on the model and, when the matching
// allow-list is non-empty, be listed in it. Violations surface here, before
// the query ever executes.
func Apply(sb *sqlbuilder.SelectBuilder, model Model, params Params, allowedSort, allowedFilter []string) (Pagination, error) {
	if err := ApplyFilter(sb, model, params.Filter, allowedFilter); err != nil {
		return Pagination{}, err
	}
	if err := ApplySort(sb, model, params.Sort, allowedSort); err != nil {
		return Pagination{}, err
	}
	return ApplyPagination(sb, params.Pagination)
}

// ApplyFilter conjoins every condition onto the WHERE clause.
func ApplyFilter(sb *sqlbuilder.SelectBuilder, model Model, filter []Condition, allowed []string) error {
	for _, cond := range filter {
		col, err := model.resolve(cond.field, allowed)
		if err != nil {
			return err
		}
		expr, err := buildExpr(sb, col, cond)
		if err != nil {
			return err
		}
		sb.Where(expr)
	}
	return nil
}

// ApplySort appends ORDER BY terms preserving input order: the first entry is
// the primary sort key, subsequent entries break ties.
func ApplySort(sb *sqlbuilder.SelectBuilder, model Model, sort []SortField, allowed []string) error {
	for _, s := range sort {
		col, err := model.resolve(s.Field, allowed)
		if err != nil {
			return err
		}
		if s.Desc {
			sb.OrderBy(col + " DESC")
		} else {
			sb.OrderBy(col + " ASC")
		}
	}
	return nil
}

// ApplyPagination puts the OFFSET/LIMIT window on sb. A zero PageSize leaves
// the builder unlimited.
func ApplyPagination(sb *sqlbuilder.SelectBuilder, p Pagination) (Pagination, error) {
	if p.Page < 0 || p.PageSize < 0 {
		return Pagination{}, fmt.Errorf("%w: page and page_size must be positive", ErrInvalidPagination)
	}
	if p.PageSize > MaxPageSize {
		return Pagination{}, fmt.Errorf("%w: page_size must be <= %d", ErrInvalidPagination, MaxPageSize)
	}
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PageSize > 0 {
		sb.Offset((p.Page - 1) * p.PageSize)
		sb.Limit(p.PageSize)
	}
	return p, nil
}

// Count wraps a filtered-but-unpaginated builder in
// SELECT count(*) FROM (sub) and executes it. Counting must happen before
// pagination is applied; a count taken after LIMIT/OFFSET would report the
// window size, not the denominator.
func Count(ctx context.Context, db DB, sb *sqlbuilder.SelectBuilder) (int64, error) {
	wrap := sqlbuilder.PostgreSQL.NewSelectBuilder()
	wrap.Select("count(*)")
	wrap.From(wrap.BuilderAs(sb, "sub"))
	q, args := wrap.BuildWithFlavor(sqlbuilder.PostgreSQL)
	var total int64
	if err := db.QueryRowContext(ctx, q, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func buildExpr(sb *sqlbuilder.SelectBuilder, col string, cond Condition) (string, error) {
	switch cond.op {
	case OpEq:
		return sb.Equal(col, cond.value), nil
	case OpNeq:
		return sb.NotEqual(col, cond.value), nil
	case OpGt:
		return sb.GreaterThan(col, cond.value), nil
	case OpGte:
		return sb.GreaterEqualThan(col, cond.value), nil
	case OpLt:
		return sb.LessThan(col, cond.value), nil
	case OpLte:
		return sb.LessEqualThan(col, cond.value), nil
	case OpContains:
		needle, _ := cond.value.(string)
		return sb.ILike(col, "%"+escapeLike(needle)+"%"), nil
	case OpIn:
		return sb.In(col, sqlbuilder.Flatten(cond.value)...), nil
	case OpNotIn:
		return sb.NotIn(col, sqlbuilder.Flatten(cond.value)...), nil
	case OpIsNull:
		return sb.IsNull(col), nil
	case OpNotNull:
		return sb.IsNotNull(col), nil
	default:
		return "", fmt.Errorf("%w: unsupported operator %q", ErrInvalidCondition, cond.op)
	}
}

// escapeLike neutralises LIKE metacharacters in user input so a substring
// filter matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
