package pg

import (
	"context"
	"database/sql"
	"strings"

	"github.com/huandu/go-sqlbuilder"

	"offcampus.org/internal/campus"
	"offcampus.org/internal/ids"
	"offcampus.org/internal/query"
)

var incidentModel = query.NewModel(map[string]string{
	"id":          "id",
	"location_id": "location_id",
	"party_id":    "party_id",
	"reporter":    "reporter",
	"category":    "category",
	"description": "description",
	"occurred_at": "occurred_at",
	"created_at":  "created_at",
})

var (
	incidentSortable   = []string{"id", "occurred_at", "created_at"}
	incidentFilterable = []string{"location_id", "party_id", "reporter", "category", "occurred_at", "description"}
)

func incidentBase() *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "location_id", "party_id", "reporter", "category", "description",
		"occurred_at", "created_at")
	sb.From("incidents")
	return sb
}

func (s *Store) CreateIncident(ctx context.Context, in *campus.Incident) error {
	in.Category = strings.TrimSpace(in.Category)
	if in.LocationID == 0 || in.Reporter == "" || in.Category == "" {
		return campus.ErrInvalidInput
	}
	if in.ID == "" {
		in.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx,
		`insert into incidents(id, location_id, party_id, reporter, category, description, occurred_at)
		 values($1,$2,$3,$4,$5,$6,$7)
		 returning created_at`,
		in.ID, in.LocationID, in.PartyID, in.Reporter, in.Category, in.Description, in.OccurredAt,
	).Scan(&in.CreatedAt)
	return translateErr(err)
}

func (s *Store) GetIncident(ctx context.Context, id string) (*campus.Incident, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, location_id, party_id, reporter, category, description, occurred_at, created_at
		 from incidents where id=$1`, id)
	var in campus.Incident
	err := row.Scan(&in.ID, &in.LocationID, &in.PartyID, &in.Reporter, &in.Category,
		&in.Description, &in.OccurredAt, &in.CreatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &in, nil
}

func (s *Store) ListIncidents(ctx context.Context, params query.Params) ([]*campus.Incident, query.Page, error) {
	var incidents []*campus.Incident
	page, err := s.listPage(ctx, incidentBase, incidentModel, params, incidentSortable, incidentFilterable,
		func(rows *sql.Rows) error {
			var in campus.Incident
			if err := rows.Scan(&in.ID, &in.LocationID, &in.PartyID, &in.Reporter, &in.Category,
				&in.Description, &in.OccurredAt, &in.CreatedAt); err != nil {
				return err
			}
			incidents = append(incidents, &in)
			return nil
		})
	if err != nil {
		return nil, query.Page{}, err
	}
	return incidents, page, nil
}
