package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/premium_bot/internal/pkg/jwt"
	"github.com/qs3c/premium_bot/internal/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testJWTSecret = "test-secret-key-for-middleware"

// secretValidator 只校验签名，不查白名单
type secretValidator struct{}

func (secretValidator) ValidateToken(token string) (*jwt.Claims, error) {
	return jwt.ParseToken(token, testJWTSecret)
}

type rejectValidator struct{}

func (rejectValidator) ValidateToken(string) (*jwt.Claims, error) {
	return nil, errors.New("not an admin")
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

func newAuthRouter(v TokenValidator) *gin.Engine {
	router := gin.New()
	router.Use(Auth(v))
	router.GET("/test", func(c *gin.Context) {
		adminID, ok := GetAdminID(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{})
			return
		}
		response.Success(c, gin.H{"admin_id": adminID, "name": c.GetString(AdminNameKey)})
	})
	return router
}

func TestAuth_Success(t *testing.T) {
	token, err := jwt.GenerateToken("111111111111111111", "alice", testJWTSecret, 24)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	newAuthRouter(secretValidator{}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := parseResponse(t, w)
	assert.Equal(t, response.CodeSuccess, resp.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "111111111111111111", data["admin_id"])
	assert.Equal(t, "alice", data["name"])
}

func TestAuth_Rejected(t *testing.T) {
	token, err := jwt.GenerateToken("111111111111111111", "alice", testJWTSecret, 24)
	require.NoError(t, err)

	tests := []struct {
		name      string
		header    string
		validator TokenValidator
	}{
		{"missing header", "", secretValidator{}},
		{"no bearer prefix", token, secretValidator{}},
		{"garbage token", "Bearer not-a-token", secretValidator{}},
		{"validator rejects", "Bearer " + token, rejectValidator{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newAuthRouter(tt.validator).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, response.CodeAuthFailed, parseResponse(t, w).Code)
		})
	}
}

func TestGetAdminID_NotSet(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := GetAdminID(c)
	assert.False(t, ok)
}
