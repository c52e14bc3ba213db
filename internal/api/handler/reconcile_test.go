package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/premium_bot/internal/model"
	"github.com/qs3c/premium_bot/internal/pkg/response"
	"github.com/qs3c/premium_bot/internal/service"
)

type fakeRunner struct {
	dryRun bool
	result *service.ReconcileResult
	err    error
}

func (r *fakeRunner) RunNow(ctx context.Context, dryRun bool) (*service.ReconcileResult, error) {
	r.dryRun = dryRun
	if r.err != nil {
		return nil, r.err
	}
	r.result.DryRun = dryRun
	return r.result, nil
}

func newReconcileRouter(runner ReconcileRunner) *gin.Engine {
	router := gin.New()
	router.POST("/reconcile", NewReconcileHandler(runner).Run)
	return router
}

func TestReconcileHandler_Run(t *testing.T) {
	user := alice
	expireAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	runner := &fakeRunner{result: &service.ReconcileResult{
		Expired: []model.Subscription{{TransactionID: "TX001", UserID: &user, Approved: true, ExpireAt: &expireAt}},
		Revoked: 1,
		Deleted: 1,
	}}

	w := performRequest(newReconcileRouter(runner), http.MethodPost, "/reconcile", nil)
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.False(t, runner.dryRun, "empty body means a real run")

	data := dataMap(t, resp)
	assert.Equal(t, float64(1), data["expired"])
	assert.Equal(t, float64(1), data["revoked"])
	assert.Equal(t, float64(1), data["deleted"])
	items := data["items"].([]interface{})
	assert.Equal(t, "2026-03-01T00:00:00Z", items[0].(map[string]interface{})["expire_at"])
}

func TestReconcileHandler_DryRun(t *testing.T) {
	runner := &fakeRunner{result: &service.ReconcileResult{}}

	w := performRequest(newReconcileRouter(runner), http.MethodPost, "/reconcile", map[string]bool{"dry_run": true})
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.True(t, runner.dryRun)
	assert.Equal(t, true, dataMap(t, resp)["dry_run"])
}

func TestReconcileHandler_Failure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("database is locked")}

	w := performRequest(newReconcileRouter(runner), http.MethodPost, "/reconcile", nil)
	assert.Equal(t, response.CodeServerError, parseResponse(t, w).Code)
}
