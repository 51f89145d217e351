package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"repairhub/internal/models"
	"repairhub/internal/services"
	"repairhub/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newAuthEnv 建一套隔离的认证环境：sqlite控制平面 + 测试专用JWT管理器
func newAuthEnv(t *testing.T) (*AuthMiddleware, *jwt.JWTManager, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "control.db")+"?_busy_timeout=5000"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	manager := jwt.NewJWTManager("test-secret", time.Hour)
	return NewAuthMiddleware(services.NewUserService(db), manager), manager, db
}

func createAuthUser(t *testing.T, db *gorm.DB, username, role string, approved, suspended bool) *models.User {
	t.Helper()
	tenantID := uint(3)
	user := &models.User{
		Username:  username,
		Email:     username + "@example.com",
		Name:      username,
		Role:      role,
		TenantID:  &tenantID,
		Approved:  approved,
		Suspended: suspended,
	}
	require.NoError(t, user.SetPassword("test-password"))
	require.NoError(t, db.Create(user).Error)
	return user
}

func authTestRouter(auth *AuthMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", auth.RequireLogin(), func(c *gin.Context) {
		user := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{
			"code":      200,
			"user_id":   user.ID,
			"tenant_id": CurrentTenantID(c),
		})
	})
	return router
}

func doRequest(t *testing.T, router *gin.Engine, authHeader string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return recorder.Code, body
}

func TestRequireLoginAcceptsValidToken(t *testing.T) {
	auth, manager, db := newAuthEnv(t)
	user := createAuthUser(t, db, "meister", models.RoleTenantMember, true, false)

	token, err := manager.GenerateToken(user.ID, *user.TenantID, user.Username, user.Role, user.Approved)
	require.NoError(t, err)

	status, body := doRequest(t, authTestRouter(auth), "Bearer "+token)
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 200, body["code"])
	assert.EqualValues(t, user.ID, body["user_id"])
	assert.EqualValues(t, 3, body["tenant_id"])
}

func TestRequireLoginRejectsMissingHeader(t *testing.T) {
	auth, _, _ := newAuthEnv(t)

	_, body := doRequest(t, authTestRouter(auth), "")
	assert.EqualValues(t, 401, body["code"])
}

func TestRequireLoginRejectsBadToken(t *testing.T) {
	auth, _, _ := newAuthEnv(t)

	_, body := doRequest(t, authTestRouter(auth), "Bearer not-a-token")
	assert.EqualValues(t, 401, body["code"])
}

func TestRequireLoginRejectsUnknownUser(t *testing.T) {
	auth, manager, _ := newAuthEnv(t)

	// 令牌有效但用户不在库里
	token, err := manager.GenerateToken(999, 0, "ghost", models.RoleTenantMember, true)
	require.NoError(t, err)

	_, body := doRequest(t, authTestRouter(auth), "Bearer "+token)
	assert.EqualValues(t, 401, body["code"])
}

func TestRequireLoginRejectsSuspendedUser(t *testing.T) {
	auth, manager, db := newAuthEnv(t)
	user := createAuthUser(t, db, "suspended", models.RoleTenantMember, true, true)

	token, err := manager.GenerateToken(user.ID, *user.TenantID, user.Username, user.Role, user.Approved)
	require.NoError(t, err)

	_, body := doRequest(t, authTestRouter(auth), "Bearer "+token)
	assert.EqualValues(t, 403, body["code"])
}
