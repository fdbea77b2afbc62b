package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/stretchr/testify/assert"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", services.ValidationErrors{{Field: "email", Message: "required"}}, http.StatusBadRequest},
		{"permission", services.NewPermissionError("u", 1, "course", "update", "not owner"), http.StatusForbidden},
		{"business rule", services.NewBusinessRuleError("admin_delete", "no", nil), http.StatusUnprocessableEntity},
		{"wrapped not found", fmt.Errorf("get: %w", services.ErrCourseNotFound), http.StatusNotFound},
		{"user not found", services.ErrUserNotFound, http.StatusNotFound},
		{"already enrolled", services.ErrEnrollmentExists, http.StatusConflict},
		{"email taken", services.ErrEmailTaken, http.StatusConflict},
		{"lost race", services.ErrStateChanged, http.StatusConflict},
		{"unauthorized", services.ErrUnauthorized, http.StatusUnauthorized},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := errorStatus(tt.err)
			assert.Equal(t, tt.want, got)
		})
	}
}
