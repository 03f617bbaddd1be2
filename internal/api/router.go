// Package api assembles the HTTP control surface.
package api

import (
	"github.com/bhandras/avatarctl/internal/api/handlers"
	"github.com/bhandras/avatarctl/internal/api/middleware"
	"github.com/bhandras/avatarctl/internal/catalog"
	"github.com/bhandras/avatarctl/internal/dispatch"
	"github.com/bhandras/avatarctl/internal/session"
	"github.com/bhandras/avatarctl/internal/viewer"
	"github.com/bhandras/avatarctl/pkg/types"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// Deps are the pieces the router wires into handlers.
type Deps struct {
	Session        *session.Session
	Queue          *dispatch.Queue
	Catalog        catalog.Scanner
	Viewer         *viewer.Viewer
	AllowedOrigins []string
}

// Request bodies with fields the handlers do not know are rejected.
func init() {
	binding.EnableDecoderDisallowUnknownFields = true
}

// NewRouter builds the gin engine serving /v1.
func NewRouter(deps Deps) *gin.Engine {
	router := gin.New()
	// A redirect is written before any middleware runs, so it would bypass
	// auth and the envelope. Unknown paths go to NoRoute instead.
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  deps.AllowedOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", types.APIKeyHeader},
		ExposeHeaders: []string{"Content-Length", types.RequestIDHeader},
	}))
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.AuthMiddleware(deps.Viewer))

	h := handlers.NewHandler(deps.Session, deps.Queue, deps.Catalog, deps.Viewer)
	router.NoRoute(h.NotFound)

	v1 := router.Group("/v1")
	{
		v1.GET("/health", h.Health)

		// Models
		v1.GET("/models", h.ListModels)
		v1.GET("/model/status", h.ModelStatus)
		v1.GET("/model/status/stream", h.StatusStream)
		v1.POST("/model/switch", h.SwitchModel)

		// Expressions and motions
		v1.GET("/expressions", h.ListExpressions)
		v1.GET("/motions", h.ListMotions)
		v1.POST("/expression/apply", h.ApplyExpression)
		v1.POST("/motion/play", h.PlayMotion)
		v1.POST("/motion/stop", h.StopMotion)

		// Scene
		v1.POST("/behavior/auto", h.SetBehavior)
		v1.POST("/transform", h.SetTransform)
		v1.POST("/window/overlay", h.SetOverlay)
		v1.POST("/lipsync/volume", h.LipSync)
		v1.POST("/lipsync/viseme", h.LipSync)

		// Settings
		v1.POST("/settings/save", h.SaveSettings)
		v1.POST("/settings/load", h.LoadSettings)
	}

	return router
}
