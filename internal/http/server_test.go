package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"spensagi/portal/internal/attendance"
	"spensagi/portal/internal/config"
	"spensagi/portal/internal/crypto"
	"spensagi/portal/internal/model"
)

const testCookie = "spensagi_session"

func strPtr(value string) *string { return &value }

func testConfig() config.Config {
	return config.Config{
		SessionCookieName: testCookie,
		SessionHashKey:    "test-hash-key-test-hash-key-0000",
		SessionTTL:        time.Hour,
		LoginPath:         "/login",
		InstitutionDomain: "spensagi.id",
		AttendanceSecret:  "attendance-secret",
		AttendanceIssuer:  "spensagi-portal",
		AttendanceCodeTTL: time.Minute,
	}
}

func seededStore(t *testing.T) *fakeStore {
	t.Helper()
	hash, err := crypto.HashPassword("dev-password")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	store := newFakeStore()
	store.students["stu1"] = model.StudentProfile{ID: "stu1", NIPD: "2024070001", Name: "Ayu", IsActive: true}
	store.students["stu2"] = model.StudentProfile{ID: "stu2", NIPD: "2024070002", Name: "Bima", IsActive: false}
	store.students["stu9"] = model.StudentProfile{ID: "stu9", NIPD: "2024070009", Name: "Citra", IsActive: true}
	store.studentHashes["stu1"] = hash
	store.studentHashes["stu2"] = hash
	store.accounts["p1"] = model.Account{ID: "p1", Name: "Sari", Email: "sari@spensagi.id", Role: model.RoleParent}
	store.accounts["t1"] = model.Account{ID: "t1", Name: "Budi", Email: "budi@spensagi.id", Role: model.RoleTeacher}
	store.accounts["a1"] = model.Account{ID: "a1", Name: "Admin", Email: "admin@spensagi.id", Role: model.RoleAdmin, IsAdmin: true}
	store.accountHashes["p1"] = hash
	store.classes["c1"] = model.Class{ID: "c1", Name: "VII-A", TeacherID: strPtr("t1")}
	store.classes["c2"] = model.Class{ID: "c2", Name: "VII-B"}
	store.parentStudents[pair{"p1", "stu9"}] = true
	store.enrollments[pair{"stu9", "c1"}] = true
	store.enrollments[pair{"stu1", "c2"}] = true
	store.sessions["s1"] = model.Session{ID: "s1", StudentID: strPtr("stu1")}
	store.sessions["s2"] = model.Session{ID: "s2", StudentID: strPtr("stu2")}
	store.sessions["s9"] = model.Session{ID: "s9", StudentID: strPtr("stu9")}
	store.sessions["sp"] = model.Session{ID: "sp", UserID: strPtr("p1")}
	store.sessions["st"] = model.Session{ID: "st", UserID: strPtr("t1")}
	store.sessions["sa"] = model.Session{ID: "sa", UserID: strPtr("a1")}
	return store
}

type harness struct {
	t      *testing.T
	server *Server
	router http.Handler
}

func newHarness(t *testing.T, store *fakeStore, codes attendance.CodeStore) *harness {
	server := NewServer(testConfig(), store, codes, nil)
	return &harness{t: t, server: server, router: server.Router()}
}

// cookieFor mints the signed cookie a browser would hold for session token.
func (h *harness) cookieFor(token string) *http.Cookie {
	h.t.Helper()
	rec := httptest.NewRecorder()
	if err := h.server.resolver.Issue(rec, token, time.Hour); err != nil {
		h.t.Fatalf("issue cookie: %v", err)
	}
	return rec.Result().Cookies()[0]
}

func (h *harness) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatalf("encode error: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(h.cookieFor(token))
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode error: %v (body %s)", err, rec.Body.String())
	}
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookie {
			return c
		}
	}
	return nil
}

func expectLoginRedirect(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	cleared := sessionCookie(rec)
	if cleared == nil || cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Fatalf("expected cleared session cookie, got %+v", cleared)
	}
}

func TestHealth(t *testing.T) {
	h := newHarness(t, seededStore(t), nil)
	rec := h.do(http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestStudentSessionIdentity(t *testing.T) {
	h := newHarness(t, seededStore(t), nil)
	rec := h.do(http.MethodGet, "/auth/me", "s1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var shared model.Shared
	decode(t, rec, &shared)
	if shared.Role != model.RoleStudent || shared.Email != "2024070001@spensagi.id" {
		t.Fatalf("unexpected identity %+v", shared)
	}
}

func TestInactiveStudentSessionRedirects(t *testing.T) {
	h := newHarness(t, seededStore(t), nil)
	expectLoginRedirect(t, h.do(http.MethodGet, "/auth/me", "s2", nil))
}

func TestMissingCookieRedirects(t *testing.T) {
	h := newHarness(t, seededStore(t), nil)
	expectLoginRedirect(t, h.do(http.MethodGet, "/students/stu1", "", nil))
}

func TestTeacherOnAdminRoute(t *testing.T) {
	h := newHarness(t, seededStore(t), nil)
	rec := h.do(http.MethodGet, "/students", "st", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["error"] != "Unauthorized access. Insufficient permissions." {
		t.Fatalf("unexpected body %v", body)
	}
	if sessionCookie(rec) != nil {
		t.Fatalf("role rejection must keep the session cookie")
	}

	rec = h.do(http.MethodGet, "/students", "sa", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected admin 200, got %d", rec.Code)
	}
}

func TestParentStudentAccess(t *testing.T) {
	h := newHarness(t, seededStore(t), nil)
	if rec := h.do(http.MethodGet, "/students/stu9", "sp", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected parent to read child, got %d", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/students/stu10", "sp", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unrelated student, got %d", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/students/stu10", "sa", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected admin 404 for missing student, got %d", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/students/stu9", "s1", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected student to be denied other profile, got %d", rec.Code)
	}
}

func TestParentChildren(t *testing.T) {
	h := newHarness(t, seededStore(t), nil)

	rec := h.do(http.MethodGet, "/parents/me/children", "sp", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var children []model.StudentProfile
	decode(t, rec, &children)
	if len(children) != 1 || children[0].ID != "stu9" {
		t.Fatalf("unexpected children %+v", children)
	}

	for _, token := range []string{"st", "sa", "s9"} {
		if rec := h.do(http.MethodGet, "/parents/me/children", token, nil); rec.Code != http.StatusForbidden {
			t.Fatalf("session %s: expected 403 on parent-only route, got %d", token, rec.Code)
		}
	}
	if rec := h.do(http.MethodGet, "/parents/p1/children", "sp", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected parents to be barred from the admin route, got %d", rec.Code)
	}
}

func TestAdminParentChildren(t *testing.T) {
	store := seededStore(t)
	store.accounts["p2"] = model.Account{ID: "p2", Name: "Rina", Email: "rina@spensagi.id", Role: model.RoleParent}
	h := newHarness(t, store, nil)

	rec := h.do(http.MethodGet, "/parents/p1/children", "sa", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var children []model.StudentProfile
	decode(t, rec, &children)
	if len(children) != 1 || children[0].ID != "stu9" {
		t.Fatalf("unexpected children %+v", children)
	}

	rec = h.do(http.MethodGet, "/parents/p2/children", "sa", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for parent without links, got %d", rec.Code)
	}
	decode(t, rec, &children)
	if len(children) != 0 {
		t.Fatalf("expected no children, got %+v", children)
	}

	for _, id := range []string{"ghost", "t1"} {
		rec := h.do(http.MethodGet, "/parents/"+id+"/children", "sa", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("parent %s: expected 404, got %d", id, rec.Code)
		}
		var body map[string]string
		decode(t, rec, &body)
		if body["error"] != "parent_not_found" {
			t.Fatalf("unexpected body %v", body)
		}
	}
}

func TestClassAccess(t *testing.T) {
	h := newHarness(t, seededStore(t), nil)
	if rec := h.do(http.MethodGet, "/classes/c1", "st", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected class teacher 200, got %d", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/classes/c2", "st", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for other class, got %d", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/classes/c1", "sp", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected parent of enrolled child 200, got %d", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/classes/c1/students", "sp", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected roster to be staff only, got %d", rec.Code)
	}
	rec := h.do(http.MethodGet, "/classes/c1/students", "st", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected roster 200, got %d", rec.Code)
	}
	var roster []model.StudentProfile
	decode(t, rec, &roster)
	if len(roster) != 1 || roster[0].ID != "stu9" {
		t.Fatalf("unexpected roster %+v", roster)
	}
}

func TestLoginLogoutFlow(t *testing.T) {
	store := seededStore(t)
	h := newHarness(t, store, nil)

	rec := h.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "Sari@spensagi.id ", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = h.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "sari@spensagi.id", "password": "dev-password"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	cookie := sessionCookie(rec)
	if cookie == nil || cookie.Value == "" || !cookie.HttpOnly {
		t.Fatalf("expected session cookie, got %+v", cookie)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(cookie)
	me := httptest.NewRecorder()
	h.router.ServeHTTP(me, req)
	if me.Code != http.StatusOK {
		t.Fatalf("expected me 200, got %d", me.Code)
	}
	var shared model.Shared
	decode(t, me, &shared)
	if shared.ID != "p1" || shared.Role != model.RoleParent {
		t.Fatalf("unexpected identity %+v", shared)
	}

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookie)
	out := httptest.NewRecorder()
	h.router.ServeHTTP(out, req)
	if out.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", out.Code)
	}
	if cleared := sessionCookie(out); cleared == nil || cleared.MaxAge >= 0 {
		t.Fatalf("expected logout to clear cookie")
	}

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(cookie)
	after := httptest.NewRecorder()
	h.router.ServeHTTP(after, req)
	expectLoginRedirect(t, after)
}

func TestStudentLogin(t *testing.T) {
	store := seededStore(t)
	h := newHarness(t, store, nil)

	rec := h.do(http.MethodPost, "/auth/student/login", "", map[string]string{"nipd": "2024070002", "password": "dev-password"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected inactive student 403, got %d", rec.Code)
	}

	rec = h.do(http.MethodPost, "/auth/student/login", "", map[string]string{"nipd": "2024070001", "password": "dev-password"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp loginResponse
	decode(t, rec, &resp)
	if resp.User.Email != "2024070001@spensagi.id" || resp.User.Role != model.RoleStudent {
		t.Fatalf("unexpected user %+v", resp.User)
	}
	found := false
	for _, sess := range store.sessions {
		if sess.StudentID != nil && *sess.StudentID == "stu1" && sess.UserID == nil && sess.ID != "s1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a student session row to be stored")
	}
}

func TestAttendanceCheckIn(t *testing.T) {
	store := seededStore(t)
	codes := &memoryCodes{codes: map[string]string{}}
	h := newHarness(t, store, codes)

	if rec := h.do(http.MethodPost, "/classes/c1/attendance/code", "s9", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected students to be barred from issuing codes, got %d", rec.Code)
	}

	rec := h.do(http.MethodPost, "/classes/c1/attendance/code", "st", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var ticket attendance.Ticket
	decode(t, rec, &ticket)
	if ticket.Token == "" || ticket.ClassID != "c1" {
		t.Fatalf("unexpected ticket %+v", ticket)
	}

	if rec := h.do(http.MethodPost, "/attendance/scan", "s1", map[string]string{"token": ticket.Token}); rec.Code != http.StatusForbidden {
		t.Fatalf("expected unenrolled student 403, got %d", rec.Code)
	}
	if rec := h.do(http.MethodPost, "/attendance/scan", "s9", map[string]string{"token": ticket.Token}); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = h.do(http.MethodPost, "/attendance/scan", "s9", map[string]string{"token": ticket.Token})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected repeat scan 200, got %d", rec.Code)
	}
	var repeat map[string]string
	decode(t, rec, &repeat)
	if repeat["status"] != "already_recorded" {
		t.Fatalf("unexpected repeat body %v", repeat)
	}

	if reissue := h.do(http.MethodPost, "/classes/c1/attendance/code", "st", nil); reissue.Code != http.StatusCreated {
		t.Fatalf("expected reissue 201, got %d", reissue.Code)
	}
	if rec := h.do(http.MethodPost, "/attendance/scan", "s9", map[string]string{"token": ticket.Token}); rec.Code != http.StatusGone {
		t.Fatalf("expected stale ticket 410, got %d", rec.Code)
	}

	rec = h.do(http.MethodGet, "/students/stu9/attendance", "sp", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected parent to read attendance, got %d", rec.Code)
	}
	var records []model.AttendanceRecord
	decode(t, rec, &records)
	if len(records) != 1 || records[0].Status != model.AttendancePresent || records[0].Method != "qr" {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestAttendanceUnavailableWithoutCodes(t *testing.T) {
	h := newHarness(t, seededStore(t), nil)
	if rec := h.do(http.MethodPost, "/classes/c1/attendance/code", "st", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if rec := h.do(http.MethodPost, "/attendance/scan", "s9", map[string]string{"token": "x"}); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestSchoolDay(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	cases := []struct {
		at   time.Time
		want time.Time
	}{
		{time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 3, 2, 16, 59, 0, 0, time.UTC), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC), time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		if got := schoolDay(tc.at, jakarta); !got.Equal(tc.want) {
			t.Fatalf("schoolDay(%s): expected %s, got %s", tc.at, tc.want, got)
		}
	}
}

func TestAttendanceDayFollowsSchoolTimeZone(t *testing.T) {
	store := seededStore(t)
	codes := &memoryCodes{codes: map[string]string{}}
	cfg := testConfig()
	cfg.AttendanceTZ = "Asia/Jakarta"
	server := NewServer(cfg, store, codes, nil)
	h := &harness{t: t, server: server, router: server.Router()}

	rec := h.do(http.MethodPost, "/classes/c1/attendance/code", "st", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var ticket attendance.Ticket
	decode(t, rec, &ticket)

	// 06:30 in Jakarta on 2 March is still 1 March in UTC.
	server.now = func() time.Time { return time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC) }
	rec = h.do(http.MethodPost, "/attendance/scan", "s9", map[string]string{"token": ticket.Token})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var record model.AttendanceRecord
	decode(t, rec, &record)
	if want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC); !record.Date.Equal(want) {
		t.Fatalf("expected date %s, got %s", want, record.Date)
	}

	server.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	rec = h.do(http.MethodPost, "/attendance/scan", "s9", map[string]string{"token": ticket.Token})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected same school day to be already recorded, got %d", rec.Code)
	}
}
