package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formflow/dms/internal/db"
	"github.com/formflow/dms/internal/directory"
	"github.com/formflow/dms/internal/handler"
	"github.com/formflow/dms/internal/models"
	"github.com/formflow/dms/internal/notify"
	"github.com/formflow/dms/internal/repository"
	"github.com/formflow/dms/internal/router"
	"github.com/formflow/dms/internal/service"
	"github.com/formflow/dms/internal/workflow"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "api.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	log := zap.NewNop()
	users := repository.NewUserRepo(database)
	templates := repository.NewTemplateRepo(database)
	submissions := repository.NewSubmissionRepo(database)
	assignments := repository.NewAssignmentRepo(database)
	dir := directory.New(users)
	engine := workflow.NewEngine(database, dir, notify.NewLogSink(log), log)

	h := router.Handlers{
		Auth:      handler.NewAuthHandler(service.NewAuthService(users, testSecret)),
		Templates: handler.NewTemplateHandler(service.NewTemplateService(templates, dir)),
		Workflow:  handler.NewWorkflowHandler(engine),
		Dashboard: handler.NewDashboardHandler(engine, templates, assignments),
		Admin:     handler.NewAdminHandler(engine, submissions),
	}
	return router.New(log, testSecret, h)
}

func do(t *testing.T, srv http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}

func register(t *testing.T, srv http.Handler, name string) (string, string) {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":       name + "@lab.test",
		"password":    "pass-" + name,
		"name":        name,
		"lab":         "chemistry",
		"designation": "scientist",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	result := decode[service.AuthResult](t, rec)
	return result.Token, result.User.ID
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/v1/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/v1/dashboard", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWorkflowOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	distToken, _ := register(t, srv, "distributor")
	aliceToken, _ := register(t, srv, "alice")
	bobToken, bobID := register(t, srv, "bob")

	rec := do(t, srv, http.MethodPost, "/api/v1/templates", distToken, map[string]any{
		"name":            "Quarterly Review",
		"fields":          []map[string]any{{"name": "summary", "type": "textarea"}},
		"allowDelegation": true,
		"targets":         map[string]any{"public": true},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tpl := decode[models.FormTemplate](t, rec)

	// Alice drafts and hands off to Bob.
	rec = do(t, srv, http.MethodPost, "/api/v1/workflow/save-draft", aliceToken, map[string]any{
		"templateId": tpl.ID,
		"data":       map[string]any{"summary": "first draft"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	draft := decode[struct {
		Assignment models.Assignment `json:"assignment"`
	}](t, rec)

	rec = do(t, srv, http.MethodPost, "/api/v1/workflow/delegate", aliceToken, map[string]any{
		"templateId":         tpl.ID,
		"parentAssignmentId": draft.Assignment.ID,
		"assignedToId":       bobID,
		"remarks":            "over to you",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	child := decode[models.Assignment](t, rec)

	// Alice lost the ball; acting on her node is now a conflict.
	rec = do(t, srv, http.MethodPost, "/api/v1/workflow/mark-final", aliceToken, map[string]any{
		"assignmentId": draft.Assignment.ID,
	})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/api/v1/workflow/save-draft", bobToken, map[string]any{
		"templateId":   tpl.ID,
		"assignmentId": child.ID,
		"data":         map[string]any{"summary": "bob's revision"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/api/v1/workflow/mark-final", bobToken, map[string]any{
		"assignmentId": child.ID,
		"remarks":      "ready",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodGet,
		fmt.Sprintf("/api/v1/workflow/assignments/%s/approval-targets", child.ID), bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	targets := decode[[]models.UserResponse](t, rec)
	require.Len(t, targets, 1)
	assert.Equal(t, "alice@lab.test", targets[0].Email)

	// The distributor approves and ships it.
	rec = do(t, srv, http.MethodPost, "/api/v1/workflow/approve", distToken, map[string]any{
		"assignmentId": child.ID,
		"remarks":      "looks good",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/api/v1/workflow/submit", distToken, map[string]any{
		"assignmentId": child.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	final := decode[models.Assignment](t, rec)
	assert.Equal(t, models.StatusSubmitted, final.Status)

	rec = do(t, srv, http.MethodGet, "/api/v1/workflow/chain/"+child.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	chain := decode[[]models.ChainSegment](t, rec)
	require.Len(t, chain, 2)
	assert.Equal(t, models.StatusSubmitted, chain[1].Status)
	assert.False(t, chain[1].Current, "closed chains have no current holder")
}

func TestWorkflowErrorMapping(t *testing.T) {
	srv := newTestServer(t)

	distToken, _ := register(t, srv, "distributor")
	aliceToken, _ := register(t, srv, "alice")
	_, bobID := register(t, srv, "bob")

	rec := do(t, srv, http.MethodPost, "/api/v1/templates", distToken, map[string]any{
		"name":            "Locked Survey",
		"fields":          []map[string]any{{"name": "q1", "type": "text"}},
		"allowDelegation": false,
		"targets":         map[string]any{"public": true},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tpl := decode[models.FormTemplate](t, rec)

	rec = do(t, srv, http.MethodPost, "/api/v1/workflow/delegate", aliceToken, map[string]any{
		"templateId":   tpl.ID,
		"assignedToId": bobID,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/api/v1/workflow/save-draft", aliceToken, map[string]any{
		"templateId": "no-such-template",
		"data":       map[string]any{"q1": "answer"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/api/v1/templates/"+tpl.ID+"/stop", distToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/api/v1/workflow/save-draft", aliceToken, map[string]any{
		"templateId": tpl.ID,
		"data":       map[string]any{"q1": "too late"},
	})
	assert.Equal(t, http.StatusGone, rec.Code, rec.Body.String())
}

func TestAdminEndpointsRequireAdmin(t *testing.T) {
	srv := newTestServer(t)
	userToken, _ := register(t, srv, "plain")

	rec := do(t, srv, http.MethodGet, "/api/v1/admin/templates/tpl-1/submissions", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
