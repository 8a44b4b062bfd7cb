package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"oiko/internal/auth"
	"oiko/internal/models"
	"oiko/internal/store/memstore"
)

func setupAuth(t *testing.T) (*auth.Tokens, *memstore.Store, models.User, models.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := memstore.New()
	tokens := auth.NewTokens("test-secret", time.Hour)

	customer := models.User{Email: "user@example.com", Role: models.RoleUser}
	admin := models.User{Email: "admin@example.com", Role: models.RoleAdmin}
	require.NoError(t, db.Users().Create(context.Background(), &customer))
	require.NoError(t, db.Users().Create(context.Background(), &admin))
	return tokens, db, customer, admin
}

func whoAmI(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"email": ""})
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": user.Email})
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthGuardAcceptsHeaderAndCookie(t *testing.T) {
	tokens, db, customer, _ := setupAuth(t)
	r := gin.New()
	r.GET("/me", AuthGuard(tokens, db.Users()), whoAmI)

	token, err := tokens.Issue(customer)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user@example.com")

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthGuardRejects(t *testing.T) {
	tokens, db, _, _ := setupAuth(t)
	r := gin.New()
	r.GET("/me", AuthGuard(tokens, db.Users()), whoAmI)

	assert.Equal(t, http.StatusUnauthorized, serve(r, httptest.NewRequest(http.MethodGet, "/me", nil)).Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	ghost, err := tokens.Issue(models.User{ID: primitive.NewObjectID(), Email: "ghost@example.com"})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+ghost)
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)
}

func TestAdminAuth(t *testing.T) {
	tokens, db, customer, admin := setupAuth(t)
	r := gin.New()
	r.GET("/admin", AdminAuth(tokens, db.Users()), whoAmI)

	userToken, _ := tokens.Issue(customer)
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	assert.Equal(t, http.StatusForbidden, serve(r, req).Code)

	adminToken, _ := tokens.Issue(admin)
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	assert.Equal(t, http.StatusOK, serve(r, req).Code)
}

func TestOptionalAuth(t *testing.T) {
	tokens, db, customer, _ := setupAuth(t)
	r := gin.New()
	r.GET("/checkout", OptionalAuth(tokens, db.Users()), whoAmI)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/checkout", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":""}`, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/checkout", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "stale"})
	assert.Equal(t, http.StatusOK, serve(r, req).Code)

	token, _ := tokens.Issue(customer)
	req = httptest.NewRequest(http.MethodGet, "/checkout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Contains(t, serve(r, req).Body.String(), "user@example.com")
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	r := gin.New()
	r.POST("/subscribe", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/subscribe", nil)
		req.RemoteAddr = ip + ":1234"
		return serve(r, req).Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2"))
	assert.Equal(t, 2, rl.Len())

	rl.cleanup(time.Now().Add(time.Hour))
	assert.Equal(t, 0, rl.Len())
}

func TestRequestLoggerLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)

	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	serve(r, httptest.NewRequest(http.MethodGet, "/ok", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.Equal(t, int64(500), entries[1].ContextMap()["status"])
}
