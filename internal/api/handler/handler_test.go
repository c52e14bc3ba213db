package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/premium_bot/internal/api/middleware"
	"github.com/qs3c/premium_bot/internal/pkg/dateparse"
	"github.com/qs3c/premium_bot/internal/pkg/response"
	"github.com/qs3c/premium_bot/internal/repository"
	"github.com/qs3c/premium_bot/internal/service"
	"github.com/qs3c/premium_bot/internal/testutil"
)

const (
	testAdmin = "999999999999999999"
	alice     = "111111111111111111"
	bob       = "222222222222222222"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type handlerFixture struct {
	db     *gorm.DB
	guild  *testutil.FakeGuild
	events *testutil.FakePublisher
	subs   *service.SubscriptionService
	users  *service.UserService
}

func setupFixture(t *testing.T) (*handlerFixture, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	f := &handlerFixture{
		db:     db,
		guild:  testutil.NewFakeGuild(alice, bob),
		events: &testutil.FakePublisher{},
	}
	subRepo := repository.NewSubscriptionRepository(db)
	userRepo := repository.NewRegisteredUserRepository(db)
	f.subs = service.NewSubscriptionService(subRepo, userRepo, f.guild, dateparse.New(), f.events)
	f.users = service.NewUserService(userRepo)

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}
	return f, cleanup
}

// asAdmin 模拟认证中间件已通过
func asAdmin(c *gin.Context) {
	c.Set(middleware.AdminIDKey, testAdmin)
	c.Next()
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

func dataMap(t *testing.T, resp response.Response) map[string]interface{} {
	t.Helper()
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data should be an object")
	return data
}
