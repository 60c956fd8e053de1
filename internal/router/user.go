package router

import "github.com/gin-gonic/gin"

func (r *Router) userRoutes(version *gin.RouterGroup) {
	users := version.Group("/users")
	{
		// All user routes require JWT authentication
		users.Use(r.jwtMw.RequireAuth())
		{
			// Authenticated user's own profile
			users.GET("/me", r.userHandler.Me)

			// Update profile (first name, last name, avatar - email cannot be changed)
			users.PUT("/me", r.userHandler.UpdateMe)

			// Update password with current password verification
			users.PUT("/me/password", r.userHandler.UpdatePassword)
		}
	}
}

func (r *Router) notificationRoutes(version *gin.RouterGroup) {
	notifications := version.Group("/notifications")
	{
		notifications.Use(r.jwtMw.RequireAuth())
		{
			notifications.POST("/tokens", r.notificationHandler.RegisterToken)
			notifications.DELETE("/tokens", r.notificationHandler.UnregisterToken)
		}
	}
}
