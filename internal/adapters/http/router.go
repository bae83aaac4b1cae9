package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"chat-relay/internal/adapters/chat"
	"chat-relay/internal/config"
	"chat-relay/internal/core"
	"chat-relay/internal/domain"
)

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, rooms core.RoomManager, chatCtl *chat.Controller, fetcher ImageFetcher) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("RelaySessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	r.GET("/ws/:room", func(c *gin.Context) {
		chatCtl.HandleChat(ctx, c)
	})
	r.GET("/telegram_image/:file_id", imageProxy(fetcher))

	api := r.Group("/api")
	api.GET("/rooms", listRooms(rooms))
	api.GET("/rooms/:room/members", func(c *gin.Context) {
		room := rooms.GetOrCreate(domain.RoomName(c.Param("room")))
		c.JSON(200, room.MembersSnapshot())
	})

	return r
}

func listRooms(rooms core.RoomManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, rooms.List())
	}
}
