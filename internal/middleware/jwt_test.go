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
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/internal/service"
)

func protectedRouter(auth *service.AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/classes", JWT(auth), func(c *gin.Context) {
		_, hasClaims := c.Get(ContextUserKey)
		c.JSON(http.StatusOK, gin.H{"claims": hasClaims})
	})
	return r
}

func call(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/classes", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTPassThroughWhenDisabled(t *testing.T) {
	r := protectedRouter(service.NewAuthService(nil, nil, service.AuthConfig{}))
	w := call(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"claims":false}`, w.Body.String())
}

func TestJWTEnforcedWhenEnabled(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.MinCost)
	require.NoError(t, err)
	auth := service.NewAuthService(nil, nil, service.AuthConfig{
		Enabled: true, PINHash: string(hash), AccessTokenSecret: "s", AccessTokenExpiry: time.Hour, Issuer: "test",
	})
	r := protectedRouter(auth)

	assert.Equal(t, http.StatusUnauthorized, call(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, "Bearer not-a-jwt").Code)

	login, err := auth.Login(context.Background(), models.LoginRequest{PIN: "1234"})
	require.NoError(t, err)
	w := call(r, "Bearer "+login.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"claims":true}`, w.Body.String())
}
