package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"spensagi/portal/internal/model"
)

// ErrNotFound is returned whenever a single-row lookup matches nothing.
var ErrNotFound = errors.New("not found")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const studentColumns = `id, nipd, name, class, birth_place, birth_date, is_active`

const accountColumns = `id, name, email, phone, is_admin, is_verified, role, student_id, teacher_id, profile_image`

func (s *Store) GetSession(ctx context.Context, id string) (model.Session, error) {
	var session model.Session
	row := s.pool.QueryRow(ctx, `
		SELECT id, student_id, user_id, created_at, expires_at, user_agent, ip_address
		FROM sessions
		WHERE id = $1 AND expires_at > now()
		LIMIT 1
	`, id)
	err := row.Scan(
		&session.ID,
		&session.StudentID,
		&session.UserID,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.UserAgent,
		&session.IPAddress,
	)
	return session, notFound(err)
}

func (s *Store) CreateSession(ctx context.Context, session model.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (id, student_id, user_id, created_at, expires_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, session.ID, session.StudentID, session.UserID, session.CreatedAt, session.ExpiresAt, session.UserAgent, session.IPAddress)
	return err
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) GetStudentProfile(ctx context.Context, id string) (model.StudentProfile, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	return scanStudent(row)
}

// GetStudentCredentials returns the profile and password hash for a login by enrollment number.
func (s *Store) GetStudentCredentials(ctx context.Context, nipd string) (model.StudentProfile, string, error) {
	var student model.StudentProfile
	var hash string
	row := s.pool.QueryRow(ctx, `SELECT `+studentColumns+`, password_hash FROM students WHERE nipd = $1`, nipd)
	err := row.Scan(
		&student.ID,
		&student.NIPD,
		&student.Name,
		&student.Class,
		&student.BirthPlace,
		&student.BirthDate,
		&student.IsActive,
		&hash,
	)
	return student, hash, notFound(err)
}

func (s *Store) GetAccount(ctx context.Context, id string) (model.Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE id = $1`, id)
	return scanAccount(row)
}

func (s *Store) GetAccountCredentials(ctx context.Context, email string) (model.Account, string, error) {
	var account model.Account
	var role, hash string
	row := s.pool.QueryRow(ctx, `SELECT `+accountColumns+`, password_hash FROM users WHERE email = $1`, email)
	err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.Phone,
		&account.IsAdmin,
		&account.IsVerified,
		&role,
		&account.StudentID,
		&account.TeacherID,
		&account.ProfileImage,
		&hash,
	)
	account.Role = model.Role(role)
	return account, hash, notFound(err)
}

func (s *Store) GetClass(ctx context.Context, id string) (model.Class, error) {
	var class model.Class
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, teacher_id, grade, academic_year
		FROM classes
		WHERE id = $1
	`, id)
	err := row.Scan(&class.ID, &class.Name, &class.TeacherID, &class.Grade, &class.AcademicYear)
	return class, notFound(err)
}

func (s *Store) ListClassStudents(ctx context.Context, classID string) ([]model.StudentProfile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.nipd, s.name, s.class, s.birth_place, s.birth_date, s.is_active
		FROM students s
		JOIN student_classes sc ON sc.student_id = s.id
		WHERE sc.class_id = $1 AND sc.is_active = TRUE
		ORDER BY s.name
	`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStudents(rows)
}

func (s *Store) ListChildren(ctx context.Context, parentID string) ([]model.StudentProfile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.nipd, s.name, s.class, s.birth_place, s.birth_date, s.is_active
		FROM students s
		JOIN parent_students ps ON ps.student_id = s.id
		WHERE ps.parent_id = $1
		ORDER BY ps.is_primary DESC, s.name
	`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStudents(rows)
}

func scanStudent(row pgx.Row) (model.StudentProfile, error) {
	var student model.StudentProfile
	err := row.Scan(
		&student.ID,
		&student.NIPD,
		&student.Name,
		&student.Class,
		&student.BirthPlace,
		&student.BirthDate,
		&student.IsActive,
	)
	return student, notFound(err)
}

func collectStudents(rows pgx.Rows) ([]model.StudentProfile, error) {
	out := []model.StudentProfile{}
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, student)
	}
	return out, rows.Err()
}

func scanAccount(row pgx.Row) (model.Account, error) {
	var account model.Account
	var role string
	err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.Phone,
		&account.IsAdmin,
		&account.IsVerified,
		&role,
		&account.StudentID,
		&account.TeacherID,
		&account.ProfileImage,
	)
	account.Role = model.Role(role)
	return account, notFound(err)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Store) ListStudents(ctx context.Context, limit int32) ([]model.StudentProfile, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+studentColumns+` FROM students ORDER BY name LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStudents(rows)
}
