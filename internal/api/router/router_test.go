package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"class-portal/backend/config"
	"class-portal/backend/internal/api/handler"
	"class-portal/backend/internal/model"
	"class-portal/backend/internal/repository"
	"class-portal/backend/internal/service"
	"class-portal/backend/pkg/jwt"
)

func setupTestRouter(t *testing.T) (http.Handler, *jwt.Manager) {
	t.Helper()
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret-key-for-unit-testing-2026",
			AccessTokenTTL:          15 * time.Minute,
			RefreshTokenTTLDefault:  24 * time.Hour,
			RefreshTokenTTLRemember: 7 * 24 * time.Hour,
		},
		Storage: config.StorageConfig{MaxUploadMB: 1},
		App:     config.AppConfig{Timezone: "Asia/Ho_Chi_Minh"},
	}
	logger := zap.NewNop()
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(nil)
	svc := service.NewService(cfg, repo, jwtMgr, nil, nil, logger)
	return Setup(cfg, handler.NewHandler(cfg, svc), jwtMgr, nil, repo, logger), jwtMgr
}

func request(t *testing.T, r http.Handler, mgr *jwt.Manager, role, method, path string) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if role != "" {
		token, err := mgr.GenerateAccessToken("u1", role)
		if err != nil {
			t.Fatalf("签发 Token 失败: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestSetup_Health(t *testing.T) {
	r, mgr := setupTestRouter(t)
	if code := request(t, r, mgr, "", "GET", "/health"); code != http.StatusOK {
		t.Errorf("期望 200，实际 %d", code)
	}
}

func TestSetup_RoleGroups(t *testing.T) {
	r, mgr := setupTestRouter(t)

	cases := []struct {
		role   string
		path   string
		status int
	}{
		{"", "/api/v1/student/grades", http.StatusUnauthorized},
		{model.RoleTeacher, "/api/v1/student/grades", http.StatusForbidden},
		{model.RoleStudent, "/api/v1/teacher/classes", http.StatusForbidden},
		{model.RoleTeacher, "/api/v1/admin/dashboard", http.StatusForbidden},
		{model.RoleStudent, "/api/v1/student/schedule/weeks?year=2024", http.StatusOK},
	}
	for _, tc := range cases {
		if code := request(t, r, mgr, tc.role, "GET", tc.path); code != tc.status {
			t.Errorf("%s %s: 期望 %d，实际 %d", tc.role, tc.path, tc.status, code)
		}
	}
}

func TestSetup_SelfServiceRoutesRequireAuth(t *testing.T) {
	r, mgr := setupTestRouter(t)
	for _, path := range []string{"/api/v1/auth/profile", "/api/v1/auth/password"} {
		if code := request(t, r, mgr, "", "PUT", path); code != http.StatusUnauthorized {
			t.Errorf("PUT %s: 期望 401，实际 %d", path, code)
		}
	}
}

func TestSetup_MalformedPathIDs(t *testing.T) {
	r, mgr := setupTestRouter(t)

	cases := []struct {
		role   string
		method string
		path   string
		status int
	}{
		{model.RoleStudent, "POST", "/api/v1/student/classes/123/join", http.StatusNotFound},
		{model.RoleStudent, "GET", "/api/v1/student/classes/abc/assignments", http.StatusForbidden},
		{model.RoleStudent, "GET", "/api/v1/student/materials/abc/file", http.StatusNotFound},
		{model.RoleTeacher, "GET", "/api/v1/teacher/classes/abc", http.StatusForbidden},
		{model.RoleTeacher, "GET", "/api/v1/teacher/submissions/abc/file", http.StatusNotFound},
		{model.RoleAdmin, "GET", "/api/v1/admin/users/abc", http.StatusNotFound},
		{model.RoleAdmin, "DELETE", "/api/v1/admin/classes/abc", http.StatusNotFound},
	}
	for _, tc := range cases {
		if code := request(t, r, mgr, tc.role, tc.method, tc.path); code != tc.status {
			t.Errorf("%s %s: 期望 %d，实际 %d", tc.method, tc.path, tc.status, code)
		}
	}
}
