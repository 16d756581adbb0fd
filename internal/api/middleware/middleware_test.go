package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"class-portal/backend/config"
	"class-portal/backend/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestManager() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:               "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL:          15 * time.Minute,
		RefreshTokenTTLDefault:  24 * time.Hour,
		RefreshTokenTTLRemember: 7 * 24 * time.Hour,
	})
}

type mockChecker struct {
	revoked     map[string]bool
	userRevoked map[string]time.Time
	err         error
}

func (m *mockChecker) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	return m.revoked[jti], m.err
}

func (m *mockChecker) UserTokensRevokedAt(_ context.Context, userID string) (time.Time, bool, error) {
	at, ok := m.userRevoked[userID]
	return at, ok, m.err
}

type mockLimiter struct {
	calls int
	limit int
	keys  []string
}

func (m *mockLimiter) CheckRateLimit(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	m.calls++
	m.keys = append(m.keys, key)
	return m.calls <= limit, nil
}

func protectedEngine(mgr *jwt.Manager, checker TokenChecker, roles ...string) *gin.Engine {
	r := gin.New()
	handlers := []gin.HandlerFunc{JWTAuth(mgr, checker)}
	if len(roles) > 0 {
		handlers = append(handlers, RoleAuth(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id")+"/"+c.GetString("role"))
	})
	r.GET("/p", handlers...)
	return r
}

func do(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ── JWTAuth ──

func TestJWTAuth_MissingToken(t *testing.T) {
	w := do(protectedEngine(newTestManager(), nil), httptest.NewRequest("GET", "/p", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestJWTAuth_BearerAndCookie(t *testing.T) {
	mgr := newTestManager()
	token, _ := mgr.GenerateAccessToken("u1", "student")
	r := protectedEngine(mgr, nil)

	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if w := do(r, req); w.Code != http.StatusOK || w.Body.String() != "u1/student" {
		t.Errorf("bearer: expected 200 u1/student, got %d %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/p", nil)
	req.AddCookie(&http.Cookie{Name: accessCookie, Value: token})
	if w := do(r, req); w.Code != http.StatusOK {
		t.Errorf("cookie: expected 200, got %d", w.Code)
	}
}

func TestJWTAuth_MalformedHeader(t *testing.T) {
	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("Authorization", "Token abc")
	if w := do(protectedEngine(newTestManager(), nil), req); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestJWTAuth_RejectsRefreshToken(t *testing.T) {
	mgr := newTestManager()
	token, _ := mgr.GenerateRefreshToken("u1", "student", false)

	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if w := do(protectedEngine(mgr, nil), req); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestJWTAuth_Blacklisted(t *testing.T) {
	mgr := newTestManager()
	token, _ := mgr.GenerateAccessToken("u1", "student")
	claims, _ := mgr.ParseToken(token)

	checker := &mockChecker{revoked: map[string]bool{claims.ID: true}}
	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if w := do(protectedEngine(mgr, checker), req); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for revoked token, got %d", w.Code)
	}
}

func TestJWTAuth_UserRevoked(t *testing.T) {
	mgr := newTestManager()
	token, _ := mgr.GenerateAccessToken("u1", "student")

	checker := &mockChecker{userRevoked: map[string]time.Time{"u1": time.Now()}}
	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if w := do(protectedEngine(mgr, checker), req); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for token issued before deactivation, got %d", w.Code)
	}

	// 吊销时刻之后签发的 Token 不受影响
	checker.userRevoked["u1"] = time.Now().Add(-time.Hour)
	req = httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if w := do(protectedEngine(mgr, checker), req); w.Code != http.StatusOK {
		t.Errorf("expected 200 for token issued after revocation, got %d", w.Code)
	}
}

func TestJWTAuth_CheckerErrorFailsOpen(t *testing.T) {
	mgr := newTestManager()
	token, _ := mgr.GenerateAccessToken("u1", "student")

	checker := &mockChecker{err: errors.New("redis down")}
	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if w := do(protectedEngine(mgr, checker), req); w.Code != http.StatusOK {
		t.Errorf("expected 200 when checker unavailable, got %d", w.Code)
	}
}

// ── RoleAuth ──

func TestRoleAuth(t *testing.T) {
	mgr := newTestManager()
	token, _ := mgr.GenerateAccessToken("u1", "student")
	r := protectedEngine(mgr, nil, "teacher")

	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if w := do(r, req); w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

// ── RateLimit ──

func TestRateLimit(t *testing.T) {
	limiter := &mockLimiter{}
	r := gin.New()
	r.POST("/login", RateLimit(limiter, 2, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, do(r, httptest.NewRequest("POST", "/login", nil)).Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected 200,200,429, got %v", codes)
	}
	if !strings.HasPrefix(limiter.keys[0], "/login:") {
		t.Errorf("expected key scoped by route, got %s", limiter.keys[0])
	}
}

func TestRateLimit_NilLimiter(t *testing.T) {
	r := gin.New()
	r.POST("/login", RateLimit(nil, 1, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 3; i++ {
		if w := do(r, httptest.NewRequest("POST", "/login", nil)); w.Code != http.StatusOK {
			t.Fatalf("expected pass-through, got %d", w.Code)
		}
	}
}

// ── RequestID / BodyLimit ──

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	if w := do(r, req); w.Body.String() != "abc-123" || w.Header().Get("X-Request-ID") != "abc-123" {
		t.Errorf("expected request id to be propagated, got %q", w.Body.String())
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 100))
	if w := do(r, req); len(w.Body.String()) != 36 {
		t.Errorf("expected generated uuid for oversized id, got %q", w.Body.String())
	}
}

func TestBodyLimit_DeclaredLength(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(8))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	if w := do(r, httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("a", 32)))); w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}
	if w := do(r, httptest.NewRequest("POST", "/", strings.NewReader("ok"))); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

// ── Logger / CORS / SecurityHeaders ──

func TestLogger_RecordsUserAndRole(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	mgr := newTestManager()
	token, _ := mgr.GenerateAccessToken("u1", "teacher")

	r := gin.New()
	r.Use(Logger(zap.New(core)))
	r.GET("/classes/:id", JWTAuth(mgr, nil), func(c *gin.Context) { c.Status(http.StatusForbidden) })

	req := httptest.NewRequest("GET", "/classes/abc?x=1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	do(r, req)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.WarnLevel {
		t.Errorf("expected warn for 403, got %s", e.Level)
	}
	fields := e.ContextMap()
	if fields["user_id"] != "u1" || fields["role"] != "teacher" {
		t.Errorf("expected user_id=u1 role=teacher, got %v / %v", fields["user_id"], fields["role"])
	}
	if fields["route"] != "/classes/:id" || fields["query"] != "x=1" {
		t.Errorf("unexpected route/query: %v / %v", fields["route"], fields["query"])
	}
}

func TestLogger_AnonymousAndHealth(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(Logger(zap.New(core)))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	do(r, httptest.NewRequest("GET", "/health", nil))
	if logs.Len() != 0 {
		t.Errorf("expected healthy /health to be skipped, got %d entries", logs.Len())
	}

	do(r, httptest.NewRequest("GET", "/boom", nil))
	entries := logs.TakeAll()
	if len(entries) != 1 || entries[0].Level != zapcore.ErrorLevel {
		t.Fatalf("expected one error entry, got %v", entries)
	}
	if _, ok := entries[0].ContextMap()["user_id"]; ok {
		t.Error("anonymous request should not carry user_id")
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173/", "*"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("OPTIONS", "/x", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", "PUT")
		return do(r, req)
	}

	w := preflight("http://localhost:5173")
	if w.Code != http.StatusNoContent {
		t.Fatalf("allowed preflight: expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" ||
		w.Header().Get("Access-Control-Allow-Credentials") != "true" ||
		!strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "PUT") {
		t.Errorf("unexpected preflight headers: %v", w.Header())
	}

	if w := preflight("http://evil.example"); w.Code != http.StatusForbidden {
		t.Errorf("unknown origin preflight: expected 403, got %d", w.Code)
	}

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = do(r, req)
	if w.Code != http.StatusOK || w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("unknown origin simple request: expected 200 without CORS headers, got %d %v", w.Code, w.Header())
	}

	req = httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w = do(r, req)
	if !strings.Contains(w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition") {
		t.Errorf("expected Content-Disposition to be exposed, got %q", w.Header().Get("Access-Control-Expose-Headers"))
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, httptest.NewRequest("GET", "/x", nil))
	if w.Header().Get("Cache-Control") != "no-store" || w.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("missing base headers: %v", w.Header())
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain http")
	}

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	if w := do(r, req); w.Header().Get("Strict-Transport-Security") == "" {
		t.Error("expected HSTS behind https proxy")
	}
}
