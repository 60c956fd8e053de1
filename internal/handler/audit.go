package handler

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/surdiana/auth-service/internal/constants"
	"github.com/surdiana/auth-service/internal/dto"
	apperrors "github.com/surdiana/auth-service/internal/errors"
	"github.com/surdiana/auth-service/internal/service"
	ctxutil "github.com/surdiana/auth-service/pkg/context"
)

type AuditHandler struct {
	auditService *service.AuditService
}

func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
	}
}

// List returns paginated audit log entries for administrators
func (h *AuditHandler) List(c *gin.Context) {
	ctx := ctxutil.NewContextWithOperation(c.Request.Context(), "handler", "ListAuditLogs")

	var filter dto.AuditFilter
	if !bindQuery(c, &filter) {
		return
	}

	pagination := constants.ParsePaginationParams(c)

	entries, total, err := h.auditService.List(ctx, filter, pagination.Limit, pagination.Offset)
	if err != nil {
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse(apperrors.GetErrorMessage(err), nil))
		return
	}

	pageTotal := int(math.Ceil(float64(total) / float64(pagination.Limit)))
	c.JSON(http.StatusOK, constants.BuildListResponse(total, pagination.Page, pageTotal, entries))
}
