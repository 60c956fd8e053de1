package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/surdiana/auth-service/internal/constants"
	"github.com/surdiana/auth-service/internal/model"
	"github.com/surdiana/auth-service/internal/repository"
	"github.com/surdiana/auth-service/internal/service"
	ctxutil "github.com/surdiana/auth-service/pkg/context"
	"github.com/surdiana/auth-service/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Gin context keys set by RequireAuth
const (
	GinKeyUser   = "current_user"
	GinKeyUserID = "user_id"
)

type JWTMiddleware struct {
	jwtService *service.JWTService
	userRepo   *repository.UserRepository
}

func NewJWTMiddleware(jwtService *service.JWTService, userRepo *repository.UserRepository) *JWTMiddleware {
	return &JWTMiddleware{
		jwtService: jwtService,
		userRepo:   userRepo,
	}
}

// RequireAuth validates the bearer token, loads the user and rejects
// banned or deleted accounts
func (m *JWTMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(constants.HeaderAuthorization)
		if authHeader == "" {
			abortUnauthorized(c, "Missing Authorization header")
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			abortUnauthorized(c, "Invalid Authorization header format")
			return
		}

		claims, err := m.jwtService.ValidateToken(tokenParts[1])
		if err != nil {
			logger.GetLogger().Warn("Invalid or expired token",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		userID, err := m.jwtService.ExtractUserID(claims)
		if err != nil {
			abortUnauthorized(c, "Invalid token subject")
			return
		}

		user, err := m.userRepo.GetByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				abortUnauthorized(c, "Account no longer exists")
				return
			}
			c.JSON(http.StatusInternalServerError, constants.BuildErrorResponse(constants.MsgInternalError, nil))
			c.Abort()
			return
		}

		if user.Status == model.StatusBanned {
			c.JSON(http.StatusForbidden, constants.BuildErrorResponse(constants.MsgForbidden, "account is banned"))
			c.Abort()
			return
		}

		ctx := ctxutil.WithUserID(c.Request.Context(), user.ID)
		ctx = context.WithValue(ctx, ctxutil.UserEmailKey, user.Email)
		c.Request = c.Request.WithContext(ctx)

		c.Set(GinKeyUser, user)
		c.Set(GinKeyUserID, user.ID)

		c.Next()
	}
}

// RequireRole allows the request through when the authenticated user
// holds any of the given roles. Must run after RequireAuth.
func (m *JWTMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(GinKeyUser)
		if !exists {
			abortUnauthorized(c, "No authenticated user")
			return
		}

		user, ok := value.(*model.User)
		if !ok {
			abortUnauthorized(c, "No authenticated user")
			return
		}

		for _, role := range roles {
			if user.HasRole(role) {
				c.Next()
				return
			}
		}

		logger.GetLogger().Warn("Role check failed",
			zap.String("user_id", user.ID.String()),
			zap.Strings("required", roles),
			zap.Strings("held", user.RoleNames()),
		)

		c.JSON(http.StatusForbidden, constants.BuildErrorResponse(constants.MsgForbidden, nil))
		c.Abort()
	}
}

// CurrentUser returns the user loaded by RequireAuth
func CurrentUser(c *gin.Context) (*model.User, bool) {
	value, exists := c.Get(GinKeyUser)
	if !exists {
		return nil, false
	}
	user, ok := value.(*model.User)
	return user, ok
}

func abortUnauthorized(c *gin.Context, reason string) {
	logger.GetLogger().Warn(reason,
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
	c.Abort()
}
