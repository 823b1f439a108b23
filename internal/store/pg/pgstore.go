// Package pg implements campus.Service on PostgreSQL. List queries are
// composed through the query package; uniqueness races are settled by the
// database's constraints and surfaced as campus.ErrConflict.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"offcampus.org/internal/campus"
	"offcampus.org/internal/query"
)

type Store struct {
	db *sql.DB
}

var _ campus.Service = (*Store)(nil)

// Open connects with tuned pool defaults.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing connection pool.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// AccountByID satisfies auth.PrincipalSource.
func (s *Store) AccountByID(ctx context.Context, id int64) (*campus.Account, error) {
	return s.GetAccount(ctx, id)
}

// AccountByEmail satisfies auth.PrincipalSource.
func (s *Store) AccountByEmail(ctx context.Context, email string) (*campus.Account, error) {
	return s.GetAccountByEmail(ctx, email)
}

// listPage validates and applies the full parameter set onto a fresh builder
// first, so allow-list and pagination errors surface before anything touches
// the database, then counts the filtered-but-unpaginated set and finally
// executes the windowed query.
func (s *Store) listPage(
	ctx context.Context,
	base func() *sqlbuilder.SelectBuilder,
	model query.Model,
	params query.Params,
	sortable, filterable []string,
	scan func(rows *sql.Rows) error,
) (query.Page, error) {
	listSB := base()
	applied, err := query.Apply(listSB, model, params, sortable, filterable)
	if err != nil {
		return query.Page{}, err
	}

	countSB := base()
	if err := query.ApplyFilter(countSB, model, params.Filter, filterable); err != nil {
		return query.Page{}, err
	}
	total, err := query.Count(ctx, s.db, countSB)
	if err != nil {
		return query.Page{}, err
	}

	q, args := listSB.BuildWithFlavor(sqlbuilder.PostgreSQL)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return query.Page{}, err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return query.Page{}, err
		}
	}
	if err := rows.Err(); err != nil {
		return query.Page{}, err
	}
	return query.BuildPage(applied, total), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return campus.ErrNotFound
	case isUniqueViolation(err):
		return campus.ErrConflict
	default:
		return err
	}
}
