package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
)

type stubParser struct {
	claims map[string]*casdoorsdk.Claims
}

func (p stubParser) ParseJwtToken(token string) (*casdoorsdk.Claims, error) {
	if c, ok := p.claims[token]; ok {
		return c, nil
	}
	return nil, errors.New("signature is invalid")
}

type stubUserRepo struct {
	repositories.UserRepository
	users       map[string]*models.User
	unreachable map[string]bool
}

func (s stubUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	if s.unreachable[id] {
		return nil, errors.New("failed to get user from Casdoor: connection refused")
	}
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, repositories.ErrNotFound
}

type stubRoleRepo struct {
	repositories.RoleRepository
	roles map[string]models.UserRole
}

func (s stubRoleRepo) GetRole(_ context.Context, _ *gorm.DB, userID string) (models.UserRole, error) {
	if r, ok := s.roles[userID]; ok {
		return r, nil
	}
	return "", repositories.ErrNotFound
}

func TestCasdoorAuthMiddleware(t *testing.T) {
	parser := stubParser{claims: map[string]*casdoorsdk.Claims{
		"known":    {User: casdoorsdk.User{Id: "u-admin", Type: "normal-user"}},
		"offline":  {User: casdoorsdk.User{Id: "u-new", Email: "new@example.edu", DisplayName: "New", Type: "admin"}},
		"deleted":  {User: casdoorsdk.User{Id: "u-gone", Email: "gone@example.edu"}},
		"noid":     {User: casdoorsdk.User{}},
	}}
	users := stubUserRepo{
		users: map[string]*models.User{
			"u-admin": {ID: "u-admin", Email: "root@example.edu", Role: models.RoleAdmin},
		},
		unreachable: map[string]bool{"u-new": true},
	}
	auth := NewCasdoorAuthMiddlewareWithParser(parser, users, stubRoleRepo{roles: map[string]models.UserRole{}}, testLogger())

	router := gin.New()
	router.GET("/whoami", auth.AuthMiddleware(), func(c *gin.Context) {
		id, _ := GetUserIDFromContext(c)
		role, _ := GetUserRoleFromContext(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "role": role})
	})
	router.GET("/admin", auth.AuthMiddleware(), auth.RequireRoleMiddleware(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	call := func(path, header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("rejects missing and malformed tokens", func(t *testing.T) {
		for _, header := range []string{"", "Token known", "Bearer", "Bearer forged", "Bearer noid"} {
			w := call("/whoami", header)
			assert.Equal(t, http.StatusUnauthorized, w.Code, header)
			assert.Equal(t, "unauthorized", decodeBody(t, w)["error"])
		}
	})

	t.Run("known user keeps stored role", func(t *testing.T) {
		w := call("/whoami", "Bearer known")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "admin", decodeBody(t, w)["role"])
		assert.Equal(t, http.StatusNoContent, call("/admin", "Bearer known").Code)
	})

	t.Run("token type never grants a role", func(t *testing.T) {
		// identity provider unreachable: claims are used, role from the role table
		w := call("/whoami", "bearer offline")
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "u-new", body["id"])
		assert.Equal(t, "student", body["role"])
		assert.Equal(t, http.StatusForbidden, call("/admin", "Bearer offline").Code)
	})

	t.Run("deleted account is refused", func(t *testing.T) {
		w := call("/whoami", "Bearer deleted")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "unauthorized", decodeBody(t, w)["error"])
	})
}

func TestRequireRole(t *testing.T) {
	router := gin.New()
	router.GET("/staff", headerAuth(), RequireRole(models.RoleLecturer), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusNoContent, doRequest(t, router, http.MethodGet, "/staff", nil, asLecturer).Code)
	assert.Equal(t, http.StatusNoContent, doRequest(t, router, http.MethodGet, "/staff", nil, asAdmin).Code)
	assert.Equal(t, http.StatusForbidden, doRequest(t, router, http.MethodGet, "/staff", nil, asStudent).Code)
}
