package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"class-portal/backend/config"
	"class-portal/backend/internal/model"
	"class-portal/backend/internal/repository"
	pkgerrors "class-portal/backend/pkg/errors"
	"class-portal/backend/pkg/storage"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id
	seq   int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return pkgerrors.ErrConstraintViolation
		}
	}
	if user.UserID == "" {
		m.seq++
		user.UserID = fmt.Sprintf("user-%d", m.seq)
	}
	if user.Status == "" {
		user.Status = model.StatusActive
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := m.users[user.UserID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *mockUserRepo) SetStatus(_ context.Context, id string, status model.Status, at time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Status = status
	u.UpdatedAt = at
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filter repository.UserFilter, offset, limit int) ([]model.User, int64, error) {
	var all []model.User
	for _, u := range m.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if kw := filter.Keyword; kw != "" &&
			!(strings.Contains(u.FullName, kw) || strings.Contains(u.Email, kw) || strings.Contains(u.PhoneNumber, kw)) {
			continue
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (m *mockUserRepo) CountByRole(_ context.Context) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, u := range m.users {
		out[u.Role]++
	}
	return out, nil
}

func (m *mockUserRepo) CountCreatedSince(_ context.Context, since time.Time) ([]repository.DailyCount, error) {
	byDay := make(map[string]int64)
	for _, u := range m.users {
		if !u.CreatedAt.Before(since) {
			byDay[u.CreatedAt.In(since.Location()).Format("2006-01-02")]++
		}
	}
	var out []repository.DailyCount
	for day, n := range byDay {
		out = append(out, repository.DailyCount{Day: day, Count: n})
	}
	return out, nil
}

// ── Mock ClassRepository ──

type mockClassRepo struct {
	classes map[string]*model.Class
	users   *mockUserRepo
	seq     int
}

func newMockClassRepo(users *mockUserRepo) *mockClassRepo {
	return &mockClassRepo{classes: make(map[string]*model.Class), users: users}
}

func (m *mockClassRepo) Create(_ context.Context, class *model.Class) error {
	for _, c := range m.classes {
		if c.ClassCode == class.ClassCode {
			return pkgerrors.ErrConstraintViolation
		}
	}
	if class.ClassID == "" {
		m.seq++
		class.ClassID = fmt.Sprintf("class-%d", m.seq)
	}
	m.classes[class.ClassID] = class
	return nil
}

func (m *mockClassRepo) GetByID(_ context.Context, id string) (*model.Class, error) {
	c, ok := m.classes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if m.users != nil {
		if t, ok := m.users.users[c.TeacherID]; ok {
			c.Teacher = t
		}
	}
	return c, nil
}

func (m *mockClassRepo) GetByCode(_ context.Context, code string) (*model.Class, error) {
	for _, c := range m.classes {
		if c.ClassCode == code {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClassRepo) Update(_ context.Context, class *model.Class) error {
	if _, ok := m.classes[class.ClassID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.classes[class.ClassID] = class
	return nil
}

func (m *mockClassRepo) SetStatus(_ context.Context, id string, status model.Status, at time.Time) error {
	c, ok := m.classes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.Status = status
	c.UpdatedAt = at
	return nil
}

func (m *mockClassRepo) ListByTeacher(_ context.Context, teacherID string) ([]model.Class, error) {
	var out []model.Class
	for _, c := range m.classes {
		if c.TeacherID == teacherID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockClassRepo) List(_ context.Context, filter repository.ClassFilter, offset, limit int) ([]model.Class, int64, error) {
	var all []model.Class
	for _, c := range m.classes {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if kw := filter.Keyword; kw != "" && !(strings.Contains(c.ClassName, kw) || strings.Contains(c.ClassCode, kw)) {
			continue
		}
		all = append(all, *c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ClassCode < all[j].ClassCode })
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (m *mockClassRepo) SearchActive(ctx context.Context, keyword string) ([]model.Class, error) {
	list, _, err := m.List(ctx, repository.ClassFilter{Keyword: keyword, Status: model.StatusActive}, 0, len(m.classes))
	return list, err
}

func (m *mockClassRepo) CountByStatus(_ context.Context) (total, active int64, err error) {
	for _, c := range m.classes {
		total++
		if c.Status.IsActive() {
			active++
		}
	}
	return total, active, nil
}

// ── Mock ClassSessionRepository ──

type mockSessionRepo struct {
	sessions    []model.ClassSession
	classes     *mockClassRepo
	enrollments *mockEnrollmentRepo
	calls       int
}

func (m *mockSessionRepo) CreateBatch(_ context.Context, sessions []model.ClassSession) error {
	for i := range sessions {
		if sessions[i].SessionID == "" {
			sessions[i].SessionID = fmt.Sprintf("sess-%d", len(m.sessions)+1)
		}
		m.sessions = append(m.sessions, sessions[i])
	}
	return nil
}

func (m *mockSessionRepo) ListByClass(_ context.Context, classID string) ([]model.ClassSession, error) {
	var out []model.ClassSession
	for _, s := range m.sessions {
		if s.ClassID == classID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSessionRepo) ListForStudent(_ context.Context, studentID string, from, to time.Time) ([]model.ClassSession, error) {
	m.calls++
	var out []model.ClassSession
	for _, s := range m.sessions {
		e := m.enrollments.find(s.ClassID, studentID)
		if e == nil || e.Status != model.EnrollmentApproved {
			continue
		}
		if s.StartDate.After(to) || s.EndDate.Before(from) {
			continue
		}
		if c, ok := m.classes.classes[s.ClassID]; ok {
			s.Class = c
		}
		out = append(out, s)
	}
	return out, nil
}

// ── Mock EnrollmentRepository ──

type mockEnrollmentRepo struct {
	mu          sync.Mutex
	enrollments []*model.Enrollment
	users       *mockUserRepo
	classes     *mockClassRepo
	// createErr 非空时 CreateIfAbsent 直接返回该错误
	createErr error
}

func (m *mockEnrollmentRepo) find(classID, studentID string) *model.Enrollment {
	for _, e := range m.enrollments {
		if e.ClassID == classID && e.StudentID == studentID {
			return e
		}
	}
	return nil
}

func (m *mockEnrollmentRepo) GetByClassAndStudent(_ context.Context, classID, studentID string) (*model.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e := m.find(classID, studentID); e != nil {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEnrollmentRepo) CreateIfAbsent(_ context.Context, e *model.Enrollment) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return false, m.createErr
	}
	if m.find(e.ClassID, e.StudentID) != nil {
		return false, nil
	}
	if e.EnrollmentID == "" {
		e.EnrollmentID = fmt.Sprintf("enr-%d", len(m.enrollments)+1)
	}
	m.enrollments = append(m.enrollments, e)
	return true, nil
}

func (m *mockEnrollmentRepo) IsApproved(_ context.Context, classID, studentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.find(classID, studentID)
	return e != nil && e.Status == model.EnrollmentApproved, nil
}

func (m *mockEnrollmentRepo) ListByClass(_ context.Context, classID string) ([]model.Enrollment, error) {
	var out []model.Enrollment
	for _, e := range m.enrollments {
		if e.ClassID != classID {
			continue
		}
		cp := *e
		if m.users != nil {
			cp.Student = m.users.users[e.StudentID]
		}
		out = append(out, cp)
	}
	return out, nil
}

func (m *mockEnrollmentRepo) ListApprovedByStudent(_ context.Context, studentID string) ([]model.Enrollment, error) {
	var out []model.Enrollment
	for _, e := range m.enrollments {
		if e.StudentID != studentID || e.Status != model.EnrollmentApproved {
			continue
		}
		cp := *e
		if m.classes != nil {
			cp.Class = m.classes.classes[e.ClassID]
		}
		out = append(out, cp)
	}
	return out, nil
}

func (m *mockEnrollmentRepo) CountByClass(_ context.Context, classID string) (int64, error) {
	var n int64
	for _, e := range m.enrollments {
		if e.ClassID == classID {
			n++
		}
	}
	return n, nil
}

// ── Mock AssignmentRepository ──

type mockAssignmentRepo struct {
	assignments map[string]*model.Assignment
	classes     *mockClassRepo
}

func (m *mockAssignmentRepo) Create(_ context.Context, a *model.Assignment) error {
	if a.AssignmentID == "" {
		a.AssignmentID = fmt.Sprintf("asg-%d", len(m.assignments)+1)
	}
	m.assignments[a.AssignmentID] = a
	return nil
}

func (m *mockAssignmentRepo) GetByID(_ context.Context, id string) (*model.Assignment, error) {
	a, ok := m.assignments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	a.Class = m.classes.classes[a.ClassID]
	return a, nil
}

func (m *mockAssignmentRepo) ListByClass(_ context.Context, classID string) ([]model.Assignment, error) {
	var out []model.Assignment
	for _, a := range m.assignments {
		if a.ClassID == classID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (m *mockAssignmentRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.assignments)), nil
}

// ── Mock SubmissionRepository ──

type mockSubmissionRepo struct {
	submissions map[string]*model.Submission
	assignments *mockAssignmentRepo
	users       *mockUserRepo
}

func (m *mockSubmissionRepo) Create(_ context.Context, s *model.Submission) error {
	for _, existing := range m.submissions {
		if existing.AssignmentID == s.AssignmentID && existing.StudentID == s.StudentID {
			return pkgerrors.ErrConstraintViolation
		}
	}
	if s.SubmissionID == "" {
		s.SubmissionID = fmt.Sprintf("sub-%d", len(m.submissions)+1)
	}
	cp := *s
	m.submissions[s.SubmissionID] = &cp
	return nil
}

func (m *mockSubmissionRepo) hydrate(s *model.Submission) *model.Submission {
	cp := *s
	if a, ok := m.assignments.assignments[s.AssignmentID]; ok {
		ac := *a
		ac.Class = m.assignments.classes.classes[a.ClassID]
		cp.Assignment = &ac
	}
	cp.Student = m.users.users[s.StudentID]
	return &cp
}

func (m *mockSubmissionRepo) GetByID(_ context.Context, id string) (*model.Submission, error) {
	s, ok := m.submissions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.hydrate(s), nil
}

func (m *mockSubmissionRepo) GetByAssignmentAndStudent(_ context.Context, assignmentID, studentID string) (*model.Submission, error) {
	for _, s := range m.submissions {
		if s.AssignmentID == assignmentID && s.StudentID == studentID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubmissionRepo) ReplaceFile(_ context.Context, s *model.Submission) error {
	existing, ok := m.submissions[s.SubmissionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	existing.FileKey = s.FileKey
	existing.OriginalFileName = s.OriginalFileName
	existing.FileSize = s.FileSize
	existing.SubmittedAt = s.SubmittedAt
	existing.Status = s.Status
	return nil
}

func (m *mockSubmissionRepo) Grade(_ context.Context, s *model.Submission) error {
	existing, ok := m.submissions[s.SubmissionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	existing.Score = s.Score
	existing.Feedback = s.Feedback
	existing.Status = s.Status
	existing.GradedAt = s.GradedAt
	return nil
}

func (m *mockSubmissionRepo) ListByAssignment(_ context.Context, assignmentID string) ([]model.Submission, error) {
	var out []model.Submission
	for _, s := range m.submissions {
		if s.AssignmentID == assignmentID {
			out = append(out, *m.hydrate(s))
		}
	}
	return out, nil
}

func (m *mockSubmissionRepo) ListGradedByStudent(_ context.Context, studentID string) ([]model.Submission, error) {
	var out []model.Submission
	for _, s := range m.submissions {
		if s.StudentID == studentID && s.Score != nil {
			out = append(out, *m.hydrate(s))
		}
	}
	return out, nil
}

func (m *mockSubmissionRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.submissions)), nil
}

// ── Mock MaterialRepository ──

type mockMaterialRepo struct {
	materials map[string]*model.CourseMaterial
}

func (m *mockMaterialRepo) Create(_ context.Context, mat *model.CourseMaterial) error {
	if mat.MaterialID == "" {
		mat.MaterialID = fmt.Sprintf("mat-%d", len(m.materials)+1)
	}
	m.materials[mat.MaterialID] = mat
	return nil
}

func (m *mockMaterialRepo) GetByID(_ context.Context, id string) (*model.CourseMaterial, error) {
	if mat, ok := m.materials[id]; ok {
		return mat, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMaterialRepo) ListByClass(_ context.Context, classID string) ([]model.CourseMaterial, error) {
	var out []model.CourseMaterial
	for _, mat := range m.materials {
		if mat.ClassID == classID {
			out = append(out, *mat)
		}
	}
	return out, nil
}

// ── Mock BlobStore ──

type mockBlobStore struct {
	blobs map[string][]byte
	seq   int
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{blobs: make(map[string][]byte)}
}

func (m *mockBlobStore) Save(_ context.Context, dir, originalName string, r io.Reader) (string, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	m.seq++
	key := fmt.Sprintf("%s/%d_%s", dir, m.seq, originalName)
	m.blobs[key] = data
	return key, int64(len(data)), nil
}

func (m *mockBlobStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.blobs[key]
	if !ok {
		return nil, storage.ErrFileNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *mockBlobStore) Delete(_ context.Context, key string) error {
	delete(m.blobs, key)
	return nil
}

// ── 测试辅助 ──

// testEnv 一组互相关联的 mock 仓储
type testEnv struct {
	repo        *repository.Repository
	users       *mockUserRepo
	classes     *mockClassRepo
	sessions    *mockSessionRepo
	enrollments *mockEnrollmentRepo
	assignments *mockAssignmentRepo
	submissions *mockSubmissionRepo
	materials   *mockMaterialRepo
	blobs       *mockBlobStore
	loc         *time.Location
	logger      *zap.Logger
}

func newTestEnv() *testEnv {
	users := newMockUserRepo()
	classes := newMockClassRepo(users)
	enrollments := &mockEnrollmentRepo{users: users, classes: classes}
	sessions := &mockSessionRepo{classes: classes, enrollments: enrollments}
	assignments := &mockAssignmentRepo{assignments: make(map[string]*model.Assignment), classes: classes}
	submissions := &mockSubmissionRepo{submissions: make(map[string]*model.Submission), assignments: assignments, users: users}
	materials := &mockMaterialRepo{materials: make(map[string]*model.CourseMaterial)}

	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		loc = time.FixedZone("ICT", 7*3600)
	}

	return &testEnv{
		repo: &repository.Repository{
			User:         users,
			Class:        classes,
			ClassSession: sessions,
			Enrollment:   enrollments,
			Assignment:   assignments,
			Submission:   submissions,
			Material:     materials,
		},
		users:       users,
		classes:     classes,
		sessions:    sessions,
		enrollments: enrollments,
		assignments: assignments,
		submissions: submissions,
		materials:   materials,
		blobs:       newMockBlobStore(),
		loc:         loc,
		logger:      zap.NewNop(),
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret-key-for-unit-testing-2026",
			AccessTokenTTL:          15 * time.Minute,
			RefreshTokenTTLDefault:  24 * time.Hour,
			RefreshTokenTTLRemember: 7 * 24 * time.Hour,
		},
		Storage: config.StorageConfig{
			MaxUploadMB:   1,
			SubmissionDir: "submissions",
			MaterialDir:   "materials",
		},
		App: config.AppConfig{Timezone: "Asia/Ho_Chi_Minh"},
	}
}

func (e *testEnv) addUser(id, role string) *model.User {
	u := &model.User{
		UserID:   id,
		Email:    id + "@test.com",
		FullName: "用户 " + id,
		Role:     role,
		Status:   model.StatusActive,
	}
	e.users.users[id] = u
	return u
}

func (e *testEnv) addClass(id, code, teacherID string) *model.Class {
	c := &model.Class{
		ClassID:   id,
		ClassName: "课程 " + code,
		ClassCode: code,
		TeacherID: teacherID,
		Status:    model.StatusActive,
	}
	e.classes.classes[id] = c
	return c
}

func (e *testEnv) enroll(classID, studentID string, status model.EnrollmentStatus) {
	e.enrollments.enrollments = append(e.enrollments.enrollments, &model.Enrollment{
		EnrollmentID: fmt.Sprintf("enr-%s-%s", classID, studentID),
		ClassID:      classID,
		StudentID:    studentID,
		EnrolledAt:   time.Now(),
		Status:       status,
	})
}

func (e *testEnv) addSession(id, classID string, dow int, start, end, from, to string) {
	e.sessions.sessions = append(e.sessions.sessions, model.ClassSession{
		SessionID: id,
		ClassID:   classID,
		DayOfWeek: dow,
		StartTime: start,
		EndTime:   end,
		StartDate: mustDate(from, e.loc),
		EndDate:   mustDate(to, e.loc),
	})
}

func mustDate(s string, loc *time.Location) time.Time {
	d, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		panic(err)
	}
	return d
}

func paginate[T any](all []T, offset, limit int) []T {
	if offset >= len(all) {
		return nil
	}
	end := offset + limit
	if end > len(all) || limit <= 0 {
		end = len(all)
	}
	return all[offset:end]
}

func studentP(id string) *Principal { return &Principal{UserID: id, Role: model.RoleStudent} }
func teacherP(id string) *Principal { return &Principal{UserID: id, Role: model.RoleTeacher} }
