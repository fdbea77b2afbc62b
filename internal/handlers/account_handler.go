package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// AccountHandler exposes the admin account operations. Failures answer with a flat {error} body.
type AccountHandler struct {
	BaseHandler
	accountService services.AccountService
}

func NewAccountHandler(accountService services.AccountService, logger utils.Logger) *AccountHandler {
	return &AccountHandler{
		BaseHandler:    NewBaseHandler(logger),
		accountService: accountService,
	}
}

func (h *AccountHandler) fail(c *gin.Context, err error) {
	status, _ := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.LogError(c, err, "Account operation failed")
		message = "internal server error"
	}
	c.JSON(status, gin.H{"error": message})
}

func (h *AccountHandler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// CreateUser creates an identity and assigns its role
// @Summary Create user (admin)
// @Tags admin
// @Accept json
// @Produce json
// @Param user body services.CreateAccountRequest true "Account"
// @Success 201 {object} map[string]interface{} "{success, user}"
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /admin/users [post]
func (h *AccountHandler) CreateUser(c *gin.Context) {
	actorID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateAccountRequest
	if !h.bind(c, &req) {
		return
	}

	h.LogRequest(c, "Creating account", "role", req.Role)

	user, err := h.accountService.CreateUser(c.Request.Context(), &req, actorID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "user": user})
}

// DeleteUser removes an identity and its role
// @Summary Delete user (admin)
// @Tags admin
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} map[string]interface{} "{success}"
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /admin/users/{id} [delete]
func (h *AccountHandler) DeleteUser(c *gin.Context) {
	actorID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	userID := c.Param("id")
	h.LogRequest(c, "Deleting account", "target_id", userID)

	if err := h.accountService.DeleteUser(c.Request.Context(), userID, actorID); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ResetPassword sets a new credential in the identity provider
// @Summary Reset password (admin)
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param body body services.ResetPasswordRequest true "New password"
// @Success 200 {object} map[string]interface{} "{success, message, user}"
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /admin/users/{id}/reset-password [post]
func (h *AccountHandler) ResetPassword(c *gin.Context) {
	actorID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req services.ResetPasswordRequest
	if !h.bind(c, &req) {
		return
	}

	userID := c.Param("id")
	h.LogRequest(c, "Resetting password", "target_id", userID)

	user, err := h.accountService.ResetPassword(c.Request.Context(), userID, &req, actorID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Password reset successfully",
		"user":    user,
	})
}
