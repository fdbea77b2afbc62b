package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// headerAuth trusts X-User-ID / X-User-Role so routes can be exercised without a token
func headerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-User-ID")
		if id == "" {
			abortUnauthorized(c, "authorization header missing")
			return
		}
		setUserContext(c, &models.User{ID: id, Role: models.UserRole(c.GetHeader("X-User-Role"))})
		c.Next()
	}
}

type caller struct {
	id   string
	role models.UserRole
}

var (
	asAdmin    = &caller{"admin-1", models.RoleAdmin}
	asLecturer = &caller{"lect-1", models.RoleLecturer}
	asStudent  = &caller{"stud-1", models.RoleStudent}
)

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}, who *caller) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if who != nil {
		req.Header.Set("X-User-ID", who.id)
		req.Header.Set("X-User-Role", string(who.role))
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}
