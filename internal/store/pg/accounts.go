package pg

import (
	"context"
	"strings"

	"offcampus.org/internal/campus"
)

const accountColumns = `id, email, password_hash, full_name, role, status, student_id, created_at, updated_at`

func (s *Store) CreateAccount(ctx context.Context, a *campus.Account) error {
	a.Email = strings.TrimSpace(strings.ToLower(a.Email))
	if a.Email == "" || a.PasswordHash == "" {
		return campus.ErrInvalidInput
	}
	if a.Status == "" {
		a.Status = campus.StatusActive
	}
	if a.Role == "" {
		a.Role = campus.RoleStudent
	}
	err := s.db.QueryRowContext(ctx,
		`insert into accounts(email, password_hash, full_name, role, status, student_id)
		 values($1,$2,$3,$4,$5,$6)
		 returning id, created_at, updated_at`,
		a.Email, a.PasswordHash, a.FullName, a.Role, a.Status, a.StudentID,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return translateErr(err)
}

func (s *Store) GetAccount(ctx context.Context, id int64) (*campus.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where id=$1`, id)
	return scanAccount(row)
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*campus.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where email=$1`,
		strings.TrimSpace(strings.ToLower(email)))
	return scanAccount(row)
}

func (s *Store) UpdateAccountStatus(ctx context.Context, id int64, status string) error {
	if status != campus.StatusActive && status != campus.StatusDisabled {
		return campus.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx,
		`update accounts set status=$2, updated_at=now() where id=$1`, id, status)
	if err != nil {
		return translateErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return campus.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*campus.Account, error) {
	var a campus.Account
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.FullName, &a.Role, &a.Status,
		&a.StudentID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &a, nil
}
