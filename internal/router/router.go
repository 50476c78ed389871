// Package router mounts the HTTP API on a gin engine.
package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/roadwatch-api/internal/handler"
	"github.com/noah-isme/roadwatch-api/internal/middleware"
	"github.com/noah-isme/roadwatch-api/internal/models"
	"github.com/noah-isme/roadwatch-api/internal/policy"
)

// Handlers groups every HTTP handler the API exposes.
type Handlers struct {
	Auth      *handler.AuthHandler
	Accidents *handler.AccidentHandler
	Comments  *handler.CommentHandler
	Routes    *handler.RouteHandler
	CheckIns  *handler.CheckInHandler
	Users     *handler.UserHandler
	Metrics   *handler.MetricsHandler
}

// Options controls the optional surfaces of the router.
type Options struct {
	APIPrefix   string
	UploadsDir  string
	UploadsPath string
	EnableDocs  bool
}

// RegisterRoutes mounts the API, probes, metrics, docs and photo files on r.
func RegisterRoutes(r *gin.Engine, h Handlers, auth middleware.TokenAuthenticator, opts Options) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	if opts.UploadsDir != "" && opts.UploadsPath != "" {
		r.StaticFS(opts.UploadsPath, http.Dir(opts.UploadsDir))
	}

	requireAuth := middleware.JWT(auth)

	api := r.Group("/" + strings.Trim(opts.APIPrefix, "/"))

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/apply-officer", h.Auth.ApplyOfficer)
		authGroup.POST("/register-admin", h.Auth.RegisterAdmin)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.POST("/logout", requireAuth, h.Auth.Logout)
	}

	api.GET("/leaderboard", h.Users.Leaderboard)
	api.GET("/profile", requireAuth, h.Users.Profile)

	accidents := api.Group("/accidents")
	{
		accidents.GET("", h.Accidents.List)
		accidents.POST("", requireAuth, h.Accidents.Create)
		accidents.GET("/:id", h.Accidents.Get)
		accidents.DELETE("/:id", requireAuth, h.Accidents.Delete)
		accidents.PUT("/:id/status", requireAuth, middleware.RequireAction(policy.ActionVerifyAccident), h.Accidents.Verify)

		accidents.GET("/:id/comments", h.Comments.List)
		accidents.POST("/:id/comments", requireAuth, h.Comments.Create)

		accidents.GET("/:id/routes", h.Routes.List)
		accidents.POST("/:id/routes", requireAuth, middleware.RequireAction(policy.ActionManageRoutes), h.Routes.Create)
	}

	comments := api.Group("/comments", requireAuth)
	{
		comments.DELETE("/:id", h.Comments.Delete)
		comments.POST("/:id/upvote", h.Comments.Upvote)
	}

	api.PATCH("/routes/:id", requireAuth, middleware.RequireAction(policy.ActionManageRoutes), h.Routes.Update)

	checkIns := api.Group("/safe-checkin", requireAuth)
	{
		checkIns.POST("", h.CheckIns.Create)
		checkIns.GET("", h.CheckIns.List)
	}

	admin := api.Group("/admin", requireAuth, middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/users", h.Users.List)
		admin.DELETE("/users/:id", h.Users.Delete)
		admin.POST("/users/:id/ban", h.Users.Ban)
		admin.POST("/process-admin", h.Users.ProcessAdmin)
		admin.POST("/process-officer", h.Users.ProcessOfficer)
		admin.GET("/pending-officers", h.Users.Pending)
		admin.GET("/accidents/export", h.Accidents.Export)
	}
}
