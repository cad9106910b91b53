package repository

import (
	"context"

	"spensagi/portal/internal/model"
)

// RecordAttendance inserts the record unless the student already has one for
// that class and day. It reports whether a row was written.
func (s *Store) RecordAttendance(ctx context.Context, record model.AttendanceRecord) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO attendance_records (id, student_id, class_id, date, status, method, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (student_id, class_id, date) DO NOTHING
	`, record.ID, record.StudentID, record.ClassID, record.Date, string(record.Status), record.Method, record.RecordedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) ListAttendance(ctx context.Context, studentID string, limit int32) ([]model.AttendanceRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, student_id, class_id, date, status, method, recorded_at
		FROM attendance_records
		WHERE student_id = $1
		ORDER BY date DESC, recorded_at DESC
		LIMIT $2
	`, studentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.AttendanceRecord{}
	for rows.Next() {
		var record model.AttendanceRecord
		var status string
		if err := rows.Scan(&record.ID, &record.StudentID, &record.ClassID, &record.Date, &status, &record.Method, &record.RecordedAt); err != nil {
			return nil, err
		}
		record.Status = model.AttendanceStatus(status)
		out = append(out, record)
	}
	return out, rows.Err()
}
