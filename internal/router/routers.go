package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/surdiana/auth-service/config"
	"github.com/surdiana/auth-service/internal/handler"
	"github.com/surdiana/auth-service/internal/middleware"
	"github.com/surdiana/auth-service/internal/model"
	redisclient "github.com/surdiana/auth-service/pkg/redis"
)

type Router struct {
	authHandler         *handler.AuthHandler
	oauth2Handler       *handler.OAuth2Handler
	userHandler         *handler.UserHandler
	notificationHandler *handler.NotificationHandler
	auditHandler        *handler.AuditHandler
	healthHandler       *handler.HealthHandler

	jwtMw       *middleware.JWTMiddleware
	redisClient *redisclient.Client
	Config      *config.Config
}

func NewRouter(
	auth *handler.AuthHandler,
	oauth2 *handler.OAuth2Handler,
	user *handler.UserHandler,
	notification *handler.NotificationHandler,
	audit *handler.AuditHandler,
	health *handler.HealthHandler,

	jwtMw *middleware.JWTMiddleware,
	redisClient *redisclient.Client,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:         auth,
		oauth2Handler:       oauth2,
		userHandler:         user,
		notificationHandler: notification,
		auditHandler:        audit,
		healthHandler:       health,

		jwtMw:       jwtMw,
		redisClient: redisClient,
		Config:      cfg,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.ContextMiddleware("auth-service"))
	router.Use(middleware.CORS())

	api := router.Group("/api")
	{
		api.GET("/health", r.healthHandler.BasicHealth)
		api.GET("/health/details", r.healthHandler.HealthCheck)

		v1 := api.Group("/v1")
		{
			v1.Use(middleware.RateLimit(
				r.redisClient,
				r.Config.RateLimit.Request,
				time.Duration(r.Config.RateLimit.Duration)*time.Second,
			))

			r.authRoutes(v1)
			r.oauth2Routes(v1)
			r.userRoutes(v1)
			r.notificationRoutes(v1)
			r.adminRoutes(v1)
		}
	}

	return router
}

// adminRoutes defines management routes restricted to elevated roles
func (r *Router) adminRoutes(version *gin.RouterGroup) {
	admin := version.Group("/admin")
	admin.Use(r.jwtMw.RequireAuth())
	{
		// User listing and lookup are open to managers as well
		staff := admin.Group("")
		staff.Use(r.jwtMw.RequireRole(model.RoleManager, model.RoleAdmin))
		{
			staff.GET("/users", r.userHandler.List)
			staff.GET("/users/:id", r.userHandler.Get)
			staff.GET("/audit-logs", r.auditHandler.List)
		}

		// Mutations require the admin role
		restricted := admin.Group("")
		restricted.Use(r.jwtMw.RequireRole(model.RoleAdmin))
		{
			restricted.POST("/users/:id/roles", r.userHandler.AssignRole)
			restricted.PUT("/users/:id/roles", r.userHandler.ReplaceRoles)
			restricted.DELETE("/users/:id/roles/:role", r.userHandler.RemoveRole)
			restricted.PUT("/users/:id/status", r.userHandler.UpdateStatus)
			restricted.DELETE("/users/:id", r.userHandler.Delete)
		}
	}
}
