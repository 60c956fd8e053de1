package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/surdiana/auth-service/internal/constants"
	"github.com/surdiana/auth-service/internal/dto"
	apperrors "github.com/surdiana/auth-service/internal/errors"
	"github.com/surdiana/auth-service/internal/service"
	ctxutil "github.com/surdiana/auth-service/pkg/context"
	"github.com/surdiana/auth-service/pkg/logger"
)

type OAuth2Handler struct {
	oauth2Service *service.OAuth2Service
}

func NewOAuth2Handler(oauth2Service *service.OAuth2Service) *OAuth2Handler {
	return &OAuth2Handler{
		oauth2Service: oauth2Service,
	}
}

// Authorize returns the provider redirect URL for the requested provider
func (h *OAuth2Handler) Authorize(c *gin.Context) {
	ctx := ctxutil.NewContextWithOperation(c.Request.Context(), "handler", "OAuth2Authorize")

	provider := c.Param("provider")

	response, err := h.oauth2Service.Authorize(ctx, provider)
	if err != nil {
		logger.WarnWithContext(ctx, "OAuth2 authorize failed").
			String("provider", provider).
			Err(err).
			Log()
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Authorization failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, response)
}

// Callback completes the provider handshake and returns a session
func (h *OAuth2Handler) Callback(c *gin.Context) {
	ctx := ctxutil.NewContextWithOperation(c.Request.Context(), "handler", "OAuth2Callback")

	provider := c.Param("provider")

	var req dto.OAuth2CallbackRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, validationDetails(err)))
		return
	}

	response, err := h.oauth2Service.Callback(ctx, provider, req.Code, req.State)
	if err != nil {
		logger.WarnWithContext(ctx, "OAuth2 callback failed").
			String("provider", provider).
			Err(err).
			Log()
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Authentication failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, response)
}
