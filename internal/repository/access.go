package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Relationship lookups backing the fine-grained access checks. Each is a
// single EXISTS query; a missing row is (false, nil).

func (s *Store) ParentHasStudent(ctx context.Context, parentID, studentID string) (bool, error) {
	return exists(ctx, s.pool, `
		SELECT 1 FROM parent_students
		WHERE parent_id = $1 AND student_id = $2
	`, parentID, studentID)
}

func (s *Store) TeacherHasStudent(ctx context.Context, teacherID, studentID string) (bool, error) {
	return exists(ctx, s.pool, `
		SELECT 1 FROM student_classes sc
		JOIN classes c ON c.id = sc.class_id
		WHERE sc.student_id = $2 AND c.teacher_id = $1 AND sc.is_active = TRUE
	`, teacherID, studentID)
}

func (s *Store) TeacherOwnsClass(ctx context.Context, teacherID, classID string) (bool, error) {
	return exists(ctx, s.pool, `
		SELECT 1 FROM classes
		WHERE id = $2 AND teacher_id = $1
	`, teacherID, classID)
}

func (s *Store) StudentInClass(ctx context.Context, studentID, classID string) (bool, error) {
	return exists(ctx, s.pool, `
		SELECT 1 FROM student_classes
		WHERE student_id = $1 AND class_id = $2 AND is_active = TRUE
	`, studentID, classID)
}

func (s *Store) ParentHasChildInClass(ctx context.Context, parentID, classID string) (bool, error) {
	return exists(ctx, s.pool, `
		SELECT 1 FROM parent_students ps
		JOIN student_classes sc ON sc.student_id = ps.student_id
		WHERE ps.parent_id = $1 AND sc.class_id = $2 AND sc.is_active = TRUE
	`, parentID, classID)
}

func exists(ctx context.Context, pool *pgxpool.Pool, query string, args ...any) (bool, error) {
	var found bool
	if err := pool.QueryRow(ctx, `SELECT EXISTS (`+query+`)`, args...).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}
