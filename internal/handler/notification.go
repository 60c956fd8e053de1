package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/surdiana/auth-service/internal/constants"
	"github.com/surdiana/auth-service/internal/dto"
	apperrors "github.com/surdiana/auth-service/internal/errors"
	"github.com/surdiana/auth-service/internal/middleware"
	"github.com/surdiana/auth-service/internal/service"
	ctxutil "github.com/surdiana/auth-service/pkg/context"
)

type NotificationHandler struct {
	notificationService *service.NotificationService
}

func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// RegisterToken stores a device push token for the authenticated user
func (h *NotificationHandler) RegisterToken(c *gin.Context) {
	ctx := ctxutil.NewContextWithOperation(c.Request.Context(), "handler", "RegisterFCMToken")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}

	var req dto.RegisterFCMTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.notificationService.RegisterToken(ctx, user.ID, req.Token, req.DeviceType); err != nil {
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Token registration failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(constants.MsgSuccess))
}

// UnregisterToken removes a device push token
func (h *NotificationHandler) UnregisterToken(c *gin.Context) {
	ctx := ctxutil.NewContextWithOperation(c.Request.Context(), "handler", "UnregisterFCMToken")

	if _, ok := middleware.CurrentUser(c); !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}

	var req dto.RegisterFCMTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.notificationService.UnregisterToken(ctx, req.Token); err != nil {
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Token removal failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(constants.MsgDeleted))
}
