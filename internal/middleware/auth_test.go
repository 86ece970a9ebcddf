package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zaqqye/attendance_backend/internal/models"
)

var testAuth = AuthConfig{JWTSecret: "test-secret", JWTExpiresIn: time.Hour}

func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.User{}))

	r := gin.New()
	api := r.Group("/", AuthMiddleware(db, testAuth))
	api.GET("/me", func(c *gin.Context) {
		user, _ := CurrentUser(c)
		c.String(http.StatusOK, user.Email)
	})
	api.GET("/admin", RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	api.GET("/members", RequireRoles(models.RoleMember), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r, db
}

func createUser(t *testing.T, db *gorm.DB, email, role string, active bool) models.User {
	t.Helper()
	u := models.User{FullName: email, Email: email, Password: "x", Role: role, Active: true}
	require.NoError(t, db.Create(&u).Error)
	if !active {
		require.NoError(t, db.Model(&u).Update("active", false).Error)
	}
	return u
}

func do(r *gin.Engine, path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r, db := setupRouter(t)
	member := createUser(t, db, "member@example.com", models.RoleMember, true)
	inactive := createUser(t, db, "gone@example.com", models.RoleMember, false)

	good, err := IssueToken(member, testAuth, time.Now())
	require.NoError(t, err)
	expired, err := IssueToken(member, testAuth, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	foreign, err := IssueToken(member, AuthConfig{JWTSecret: "other", JWTExpiresIn: time.Hour}, time.Now())
	require.NoError(t, err)
	gone, err := IssueToken(inactive, testAuth, time.Now())
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"bearer header", "/me", "Bearer " + good, http.StatusOK},
		{"query token", "/me?token=" + good, "", http.StatusOK},
		{"missing", "/me", "", http.StatusUnauthorized},
		{"wrong scheme", "/me", "Basic abc", http.StatusUnauthorized},
		{"expired", "/me", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong secret", "/me", "Bearer " + foreign, http.StatusUnauthorized},
		{"inactive user", "/me", "Bearer " + gone, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.path, tt.header)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	w := do(r, "/me", "Bearer "+good)
	assert.Equal(t, "member@example.com", w.Body.String())
}

func TestAuthMiddleware_RejectsOtherAlgorithms(t *testing.T) {
	r, db := setupRouter(t)
	member := createUser(t, db, "member@example.com", models.RoleMember, true)

	claims := Claims{
		UserID: member.UserID,
		Role:   member.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testAuth.JWTSecret))
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "Bearer "+tok).Code)
}

func TestRequireRoles(t *testing.T) {
	r, db := setupRouter(t)
	admin := createUser(t, db, "admin@example.com", models.RoleAdmin, true)
	member := createUser(t, db, "member@example.com", models.RoleMember, true)

	adminTok, err := IssueToken(admin, testAuth, time.Now())
	require.NoError(t, err)
	memberTok, err := IssueToken(member, testAuth, time.Now())
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, do(r, "/admin", "Bearer "+adminTok).Code)
	assert.Equal(t, http.StatusForbidden, do(r, "/admin", "Bearer "+memberTok).Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/members", "Bearer "+memberTok).Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/members", "Bearer "+adminTok).Code, "admin passes every gate")
}
