package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExports struct {
	err error
}

func (s stubExports) ExportGradebook(_ context.Context, courseID uint, _ string) (*services.ExportFile, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &services.ExportFile{FileName: "CS101_gradebook_20261019.xlsx", ContentType: "application/test", Data: []byte("xlsx")}, nil
}

func (s stubExports) ExportRoster(_ context.Context, courseID uint, _ string) (*services.ExportFile, error) {
	return nil, services.ErrCourseNotFound
}

func TestExportHandler(t *testing.T) {
	router := gin.New()
	h := NewExportHandler(stubExports{}, testLogger())
	router.GET("/courses/:id/gradebook/export", headerAuth(), h.ExportGradebook)
	router.GET("/courses/:id/roster/export", headerAuth(), h.ExportRoster)

	w := doRequest(t, router, http.MethodGet, "/courses/1/gradebook/export", nil, asLecturer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/test", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="CS101_gradebook_20261019.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "xlsx", w.Body.String())

	w = doRequest(t, router, http.MethodGet, "/courses/1/roster/export", nil, asLecturer)
	assert.Equal(t, http.StatusNotFound, w.Code)

	forbidden := gin.New()
	h = NewExportHandler(stubExports{err: services.NewPermissionError("stud-1", uint(1), "course", "export", "not the lecturer")}, testLogger())
	forbidden.GET("/courses/:id/gradebook/export", headerAuth(), h.ExportGradebook)
	w = doRequest(t, forbidden, http.MethodGet, "/courses/1/gradebook/export", nil, asStudent)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", decodeBody(t, w)["error"])
}
