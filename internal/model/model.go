package model

import "time"

// SessionKind tags what a session row points at.
type SessionKind int

const (
	SessionInvalid SessionKind = iota
	SessionStudent
	SessionUser
)

func (k SessionKind) String() string {
	switch k {
	case SessionStudent:
		return "student"
	case SessionUser:
		return "user"
	default:
		return "invalid"
	}
}

// SessionRef is the resolved reference of a session: a student id, a user id, or nothing usable.
type SessionRef struct {
	Kind SessionKind
	ID   string
}

type Session struct {
	ID        string
	StudentID *string
	UserID    *string
	CreatedAt time.Time
	ExpiresAt time.Time
	UserAgent *string
	IPAddress *string
}

// Ref requires exactly one non-empty reference. Rows carrying both are invalid.
func (s Session) Ref() SessionRef {
	student := nonEmpty(s.StudentID)
	user := nonEmpty(s.UserID)
	switch {
	case student != "" && user == "":
		return SessionRef{Kind: SessionStudent, ID: student}
	case user != "" && student == "":
		return SessionRef{Kind: SessionUser, ID: user}
	default:
		return SessionRef{Kind: SessionInvalid}
	}
}

func nonEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// StudentProfile holds the columns of the students table that may leave the store.
type StudentProfile struct {
	ID         string     `json:"id"`
	NIPD       string     `json:"nipd"`
	Name       string     `json:"name"`
	Class      *string    `json:"class"`
	BirthPlace *string    `json:"birth_place"`
	BirthDate  *time.Time `json:"birth_date"`
	IsActive   bool       `json:"is_active"`
}

// Account holds the columns of the users table that may leave the store.
type Account struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Phone        *string `json:"phone"`
	IsAdmin      bool    `json:"is_admin"`
	IsVerified   bool    `json:"is_verified"`
	Role         Role    `json:"role"`
	StudentID    *string `json:"student_id"`
	TeacherID    *string `json:"teacher_id"`
	ProfileImage *string `json:"profile_image"`
}

type Class struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	TeacherID    *string `json:"teacher_id"`
	Grade        *string `json:"grade"`
	AcademicYear *string `json:"academic_year"`
}

type ParentStudent struct {
	ParentID     string `json:"parent_id"`
	StudentID    string `json:"student_id"`
	Relationship string `json:"relationship"`
	IsPrimary    bool   `json:"is_primary"`
}

type Enrollment struct {
	StudentID  string    `json:"student_id"`
	ClassID    string    `json:"class_id"`
	IsActive   bool      `json:"is_active"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceExcused AttendanceStatus = "excused"
)

type AttendanceRecord struct {
	ID         string           `json:"id"`
	StudentID  string           `json:"student_id"`
	ClassID    string           `json:"class_id"`
	Date       time.Time        `json:"date"`
	Status     AttendanceStatus `json:"status"`
	Method     string           `json:"method"`
	RecordedAt time.Time        `json:"recorded_at"`
}
