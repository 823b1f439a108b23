package campus

import (
	"context"

	"offcampus.org/internal/query"
)

// Service defines domain persistence operations. List operations take
// untrusted query parameters and return the page window actually served; they
// are the consumers of the query composer.
type Service interface {
	CreateAccount(ctx context.Context, a *Account) error
	GetAccount(ctx context.Context, id int64) (*Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	UpdateAccountStatus(ctx context.Context, id int64, status string) error

	CreateStudent(ctx context.Context, s *Student) error
	GetStudent(ctx context.Context, id int64) (*Student, error)
	UpdateStudent(ctx context.Context, s *Student) error
	DeleteStudent(ctx context.Context, id int64) error
	ListStudents(ctx context.Context, params query.Params) ([]*Student, query.Page, error)

	CreateParty(ctx context.Context, p *Party) error
	GetParty(ctx context.Context, id int64) (*Party, error)
	UpdateParty(ctx context.Context, p *Party) error
	DeleteParty(ctx context.Context, id int64) error
	ListParties(ctx context.Context, params query.Params) ([]*Party, query.Page, error)

	CreateLocation(ctx context.Context, l *Location) error
	GetLocation(ctx context.Context, id int64) (*Location, error)
	AddLocationWarning(ctx context.Context, id int64) (*Location, error)
	AddLocationCitation(ctx context.Context, id int64) (*Location, error)
	ListLocations(ctx context.Context, params query.Params) ([]*Location, query.Page, error)

	CreateIncident(ctx context.Context, i *Incident) error
	GetIncident(ctx context.Context, id string) (*Incident, error)
	ListIncidents(ctx context.Context, params query.Params) ([]*Incident, query.Page, error)
}
