package pg

import (
	"context"
	"database/sql"

	"github.com/huandu/go-sqlbuilder"

	"offcampus.org/internal/campus"
	"offcampus.org/internal/query"
)

var partyModel = query.NewModel(map[string]string{
	"id":                  "id",
	"host_student_id":     "host_student_id",
	"location_id":         "location_id",
	"name":                "name",
	"starts_at":           "starts_at",
	"ends_at":             "ends_at",
	"expected_attendance": "expected_attendance",
	"registered":          "registered",
	"created_at":          "created_at",
})

var (
	partySortable   = []string{"id", "name", "starts_at", "expected_attendance", "created_at"}
	partyFilterable = []string{"host_student_id", "location_id", "name", "starts_at", "registered", "expected_attendance"}
)

func partyBase() *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "host_student_id", "location_id", "name", "starts_at", "ends_at",
		"expected_attendance", "registered", "created_at", "updated_at")
	sb.From("parties")
	return sb
}

func (s *Store) CreateParty(ctx context.Context, p *campus.Party) error {
	if p.HostStudentID == 0 || p.LocationID == 0 || p.Name == "" {
		return campus.ErrInvalidInput
	}
	if !p.EndsAt.After(p.StartsAt) {
		return campus.ErrInvalidInput
	}
	err := s.db.QueryRowContext(ctx,
		`insert into parties(host_student_id, location_id, name, starts_at, ends_at, expected_attendance, registered)
		 values($1,$2,$3,$4,$5,$6,$7)
		 returning id, created_at, updated_at`,
		p.HostStudentID, p.LocationID, p.Name, p.StartsAt, p.EndsAt, p.Expected, p.Registered,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return translateErr(err)
}

func (s *Store) GetParty(ctx context.Context, id int64) (*campus.Party, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, host_student_id, location_id, name, starts_at, ends_at,
		        expected_attendance, registered, created_at, updated_at
		 from parties where id=$1`, id)
	var p campus.Party
	err := row.Scan(&p.ID, &p.HostStudentID, &p.LocationID, &p.Name, &p.StartsAt, &p.EndsAt,
		&p.Expected, &p.Registered, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &p, nil
}

func (s *Store) UpdateParty(ctx context.Context, p *campus.Party) error {
	if !p.EndsAt.After(p.StartsAt) {
		return campus.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx,
		`update parties set name=$2, starts_at=$3, ends_at=$4, expected_attendance=$5,
		        registered=$6, updated_at=now()
		 where id=$1`,
		p.ID, p.Name, p.StartsAt, p.EndsAt, p.Expected, p.Registered)
	if err != nil {
		return translateErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return campus.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteParty(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from parties where id=$1`, id)
	if err != nil {
		return translateErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return campus.ErrNotFound
	}
	return nil
}

func (s *Store) ListParties(ctx context.Context, params query.Params) ([]*campus.Party, query.Page, error) {
	var parties []*campus.Party
	page, err := s.listPage(ctx, partyBase, partyModel, params, partySortable, partyFilterable,
		func(rows *sql.Rows) error {
			var p campus.Party
			if err := rows.Scan(&p.ID, &p.HostStudentID, &p.LocationID, &p.Name, &p.StartsAt,
				&p.EndsAt, &p.Expected, &p.Registered, &p.CreatedAt, &p.UpdatedAt); err != nil {
				return err
			}
			parties = append(parties, &p)
			return nil
		})
	if err != nil {
		return nil, query.Page{}, err
	}
	return parties, page, nil
}
