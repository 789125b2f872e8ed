package http

import (
	"context"

	"soundcast/internal/adapters/ws"
	"soundcast/internal/config"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ClientIDMiddleware gives every browser a stable identity across page
// reloads so a reconnecting websocket replaces its previous session.
func ClientIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		cid, _ := session.Get("cid").(string)
		if cid == "" {
			cid = uuid.NewString()
			session.Set("cid", cid)
			if err := session.Save(); err != nil {
				c.Next()
				return
			}
		}
		c.Set("client_id", cid)
		c.Next()
	}
}

// NewRouter wires the HTTP surface: the JSON API, the websocket endpoint
// and the static web UI.
func NewRouter(ctx context.Context, cfg *config.Config, api *API, wsc *ws.Controller) *gin.Engine {
	gin.SetMode(cfg.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Mode == gin.DebugMode {
		r.Use(gin.Logger())
	}

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("SoundcastSession", store))
	r.Use(ClientIDMiddleware())

	auth := r.Group("/api/auth")
	{
		auth.POST("/login", api.Login)
		auth.GET("/check", api.Check)
	}

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/sounds", api.Sounds)
		apiGroup.GET("/audio/:id", api.Audio)
		apiGroup.POST("/play/:id", api.Play)
		apiGroup.POST("/stop", api.Stop)
		apiGroup.POST("/sounds/upload", api.Upload)
		apiGroup.GET("/sounds/files", api.Files)
		apiGroup.POST("/sounds/add", api.AddExisting)
		apiGroup.PATCH("/sounds/:id", api.Rename)
		apiGroup.DELETE("/sounds/:id", api.Delete)
		apiGroup.GET("/info", api.Info)
		apiGroup.GET("/devices", api.Devices)
		apiGroup.POST("/device", api.SetDevice)
	}

	r.GET("/ws", func(c *gin.Context) {
		wsc.Handle(ctx, c)
	})

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
		r.StaticFile("/", cfg.StaticPath+"/index.html")
		r.NoRoute(func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
	}

	return r
}
