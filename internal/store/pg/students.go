package pg

import (
	"context"
	"database/sql"

	"github.com/huandu/go-sqlbuilder"

	"offcampus.org/internal/campus"
	"offcampus.org/internal/query"
)

var studentModel = query.NewModel(map[string]string{
	"id":              "id",
	"account_id":      "account_id",
	"phone":           "phone",
	"address":         "address",
	"graduation_year": "graduation_year",
	"created_at":      "created_at",
})

var (
	studentSortable   = []string{"id", "graduation_year", "created_at"}
	studentFilterable = []string{"account_id", "address", "graduation_year"}
)

func studentBase() *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "account_id", "phone", "address", "graduation_year", "created_at", "updated_at")
	sb.From("students")
	return sb
}

func (s *Store) CreateStudent(ctx context.Context, st *campus.Student) error {
	if st.AccountID == 0 {
		return campus.ErrInvalidInput
	}
	err := s.db.QueryRowContext(ctx,
		`insert into students(account_id, phone, address, graduation_year)
		 values($1,$2,$3,$4)
		 returning id, created_at, updated_at`,
		st.AccountID, st.Phone, st.Address, st.GraduationYear,
	).Scan(&st.ID, &st.CreatedAt, &st.UpdatedAt)
	return translateErr(err)
}

func (s *Store) GetStudent(ctx context.Context, id int64) (*campus.Student, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, account_id, phone, address, graduation_year, created_at, updated_at
		 from students where id=$1`, id)
	var st campus.Student
	err := row.Scan(&st.ID, &st.AccountID, &st.Phone, &st.Address, &st.GraduationYear,
		&st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &st, nil
}

func (s *Store) UpdateStudent(ctx context.Context, st *campus.Student) error {
	res, err := s.db.ExecContext(ctx,
		`update students set phone=$2, address=$3, graduation_year=$4, updated_at=now()
		 where id=$1`,
		st.ID, st.Phone, st.Address, st.GraduationYear)
	if err != nil {
		return translateErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return campus.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteStudent(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from students where id=$1`, id)
	if err != nil {
		return translateErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return campus.ErrNotFound
	}
	return nil
}

func (s *Store) ListStudents(ctx context.Context, params query.Params) ([]*campus.Student, query.Page, error) {
	var students []*campus.Student
	page, err := s.listPage(ctx, studentBase, studentModel, params, studentSortable, studentFilterable,
		func(rows *sql.Rows) error {
			var st campus.Student
			if err := rows.Scan(&st.ID, &st.AccountID, &st.Phone, &st.Address,
				&st.GraduationYear, &st.CreatedAt, &st.UpdatedAt); err != nil {
				return err
			}
			students = append(students, &st)
			return nil
		})
	if err != nil {
		return nil, query.Page{}, err
	}
	return students, page, nil
}
