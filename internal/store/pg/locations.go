package pg

import (
	"context"
	"database/sql"
	"strings"

	"github.com/huandu/go-sqlbuilder"

	"offcampus.org/internal/campus"
	"offcampus.org/internal/query"
)

var locationModel = query.NewModel(map[string]string{
	"id":             "id",
	"street_address": "street_address",
	"city":           "city",
	"zip":            "zip",
	"warning_count":  "warning_count",
	"citation_count": "citation_count",
	"created_at":     "created_at",
})

var (
	locationSortable   = []string{"id", "street_address", "warning_count", "citation_count", "created_at"}
	locationFilterable = []string{"street_address", "city", "zip", "warning_count", "citation_count"}
)

func locationBase() *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "street_address", "city", "zip", "warning_count", "citation_count",
		"created_at", "updated_at")
	sb.From("locations")
	return sb
}

func (s *Store) CreateLocation(ctx context.Context, l *campus.Location) error {
	l.StreetAddress = strings.TrimSpace(l.StreetAddress)
	if l.StreetAddress == "" || l.City == "" {
		return campus.ErrInvalidInput
	}
	err := s.db.QueryRowContext(ctx,
		`insert into locations(street_address, city, zip)
		 values($1,$2,$3)
		 returning id, warning_count, citation_count, created_at, updated_at`,
		l.StreetAddress, l.City, l.Zip,
	).Scan(&l.ID, &l.WarningCount, &l.CitationCount, &l.CreatedAt, &l.UpdatedAt)
	return translateErr(err)
}

func (s *Store) GetLocation(ctx context.Context, id int64) (*campus.Location, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, street_address, city, zip, warning_count, citation_count, created_at, updated_at
		 from locations where id=$1`, id)
	return scanLocation(row)
}

// AddLocationWarning atomically increments the police warning counter.
func (s *Store) AddLocationWarning(ctx context.Context, id int64) (*campus.Location, error) {
	row := s.db.QueryRowContext(ctx,
		`update locations set warning_count = warning_count + 1, updated_at = now()
		 where id=$1
		 returning id, street_address, city, zip, warning_count, citation_count, created_at, updated_at`,
		id)
	return scanLocation(row)
}

// AddLocationCitation atomically increments the police citation counter.
func (s *Store) AddLocationCitation(ctx context.Context, id int64) (*campus.Location, error) {
	row := s.db.QueryRowContext(ctx,
		`update locations set citation_count = citation_count + 1, updated_at = now()
		 where id=$1
		 returning id, street_address, city, zip, warning_count, citation_count, created_at, updated_at`,
		id)
	return scanLocation(row)
}

func (s *Store) ListLocations(ctx context.Context, params query.Params) ([]*campus.Location, query.Page, error) {
	var locations []*campus.Location
	page, err := s.listPage(ctx, locationBase, locationModel, params, locationSortable, locationFilterable,
		func(rows *sql.Rows) error {
			var l campus.Location
			if err := rows.Scan(&l.ID, &l.StreetAddress, &l.City, &l.Zip, &l.WarningCount,
				&l.CitationCount, &l.CreatedAt, &l.UpdatedAt); err != nil {
				return err
			}
			locations = append(locations, &l)
			return nil
		})
	if err != nil {
		return nil, query.Page{}, err
	}
	return locations, page, nil
}

func scanLocation(row rowScanner) (*campus.Location, error) {
	var l campus.Location
	err := row.Scan(&l.ID, &l.StreetAddress, &l.City, &l.Zip, &l.WarningCount, &l.CitationCount,
		&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &l, nil
}
