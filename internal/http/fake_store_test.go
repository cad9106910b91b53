package http

import (
	"context"
	"sync"
	"time"

	"spensagi/portal/internal/model"
	"spensagi/portal/internal/repository"
)

type pair struct{ a, b string }

type fakeStore struct {
	mu             sync.Mutex
	sessions       map[string]model.Session
	students       map[string]model.StudentProfile
	studentHashes  map[string]string
	accounts       map[string]model.Account
	accountHashes  map[string]string
	classes        map[string]model.Class
	parentStudents map[pair]bool
	enrollments    map[pair]bool
	attendance     map[string]model.AttendanceRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:       map[string]model.Session{},
		students:       map[string]model.StudentProfile{},
		studentHashes:  map[string]string{},
		accounts:       map[string]model.Account{},
		accountHashes:  map[string]string{},
		classes:        map[string]model.Class{},
		parentStudents: map[pair]bool{},
		enrollments:    map[pair]bool{},
		attendance:     map[string]model.AttendanceRecord{},
	}
}

func (f *fakeStore) GetSession(_ context.Context, id string) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[id]
	if !ok {
		return model.Session{}, repository.ErrNotFound
	}
	return sess, nil
}

func (f *fakeStore) GetStudentProfile(_ context.Context, id string) (model.StudentProfile, error) {
	student, ok := f.students[id]
	if !ok {
		return model.StudentProfile{}, repository.ErrNotFound
	}
	return student, nil
}

func (f *fakeStore) GetAccount(_ context.Context, id string) (model.Account, error) {
	account, ok := f.accounts[id]
	if !ok {
		return model.Account{}, repository.ErrNotFound
	}
	return account, nil
}

func (f *fakeStore) GetAccountCredentials(_ context.Context, email string) (model.Account, string, error) {
	for _, account := range f.accounts {
		if account.Email == email {
			return account, f.accountHashes[account.ID], nil
		}
	}
	return model.Account{}, "", repository.ErrNotFound
}

func (f *fakeStore) GetStudentCredentials(_ context.Context, nipd string) (model.StudentProfile, string, error) {
	for _, student := range f.students {
		if student.NIPD == nipd {
			return student, f.studentHashes[student.ID], nil
		}
	}
	return model.StudentProfile{}, "", repository.ErrNotFound
}

func (f *fakeStore) CreateSession(_ context.Context, sess model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[sess.ID] = sess
	return nil
}

func (f *fakeStore) DeleteSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeStore) GetClass(_ context.Context, id string) (model.Class, error) {
	class, ok := f.classes[id]
	if !ok {
		return model.Class{}, repository.ErrNotFound
	}
	return class, nil
}

func (f *fakeStore) ListStudents(_ context.Context, limit int32) ([]model.StudentProfile, error) {
	out := []model.StudentProfile{}
	for _, student := range f.students {
		if int32(len(out)) == limit {
			break
		}
		out = append(out, student)
	}
	return out, nil
}

func (f *fakeStore) ListClassStudents(_ context.Context, classID string) ([]model.StudentProfile, error) {
	out := []model.StudentProfile{}
	for key, active := range f.enrollments {
		if key.b == classID && active {
			out = append(out, f.students[key.a])
		}
	}
	return out, nil
}

func (f *fakeStore) ListChildren(_ context.Context, parentID string) ([]model.StudentProfile, error) {
	out := []model.StudentProfile{}
	for key := range f.parentStudents {
		if key.a == parentID {
			out = append(out, f.students[key.b])
		}
	}
	return out, nil
}

func (f *fakeStore) RecordAttendance(_ context.Context, record model.AttendanceRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := record.StudentID + "|" + record.ClassID + "|" + record.Date.Format(time.DateOnly)
	if _, ok := f.attendance[key]; ok {
		return false, nil
	}
	f.attendance[key] = record
	return true, nil
}

func (f *fakeStore) ListAttendance(_ context.Context, studentID string, _ int32) ([]model.AttendanceRecord, error) {
	out := []model.AttendanceRecord{}
	for _, record := range f.attendance {
		if record.StudentID == studentID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (f *fakeStore) ParentHasStudent(_ context.Context, parentID, studentID string) (bool, error) {
	return f.parentStudents[pair{parentID, studentID}], nil
}

func (f *fakeStore) TeacherHasStudent(_ context.Context, teacherID, studentID string) (bool, error) {
	for key, active := range f.enrollments {
		if key.a == studentID && active {
			if class, ok := f.classes[key.b]; ok && class.TeacherID != nil && *class.TeacherID == teacherID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakeStore) TeacherOwnsClass(_ context.Context, teacherID, classID string) (bool, error) {
	class, ok := f.classes[classID]
	return ok && class.TeacherID != nil && *class.TeacherID == teacherID, nil
}

func (f *fakeStore) StudentInClass(_ context.Context, studentID, classID string) (bool, error) {
	return f.enrollments[pair{studentID, classID}], nil
}

func (f *fakeStore) ParentHasChildInClass(_ context.Context, parentID, classID string) (bool, error) {
	for key := range f.parentStudents {
		if key.a == parentID && f.enrollments[pair{key.b, classID}] {
			return true, nil
		}
	}
	return false, nil
}

type memoryCodes struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *memoryCodes) Put(_ context.Context, classID, code string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[classID] = code
	return nil
}

func (m *memoryCodes) Get(_ context.Context, classID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	code, ok := m.codes[classID]
	return code, ok, nil
}
