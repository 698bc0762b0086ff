package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Controllers struct {
	Rooms    *RoomController
	Users    *UserController
	Catalog  *CatalogController
	Sessions *SessionController
}

func SetupRouter(allowOrigins []string, c Controllers) *gin.Engine {
	router := gin.Default()
	config := cors.DefaultConfig()
	if len(allowOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowOrigins
		config.AllowCredentials = true
	}
	config.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"Origin",
		"Accept",
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	router.Use(cors.New(config))
	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	if c.Users != nil {
		users := api.Group("/users")
		users.POST("/create", c.Users.CreateUser)
		users.GET("/:userID", c.Users.GetUser)
	}

	rooms := api.Group("/rooms")
	if c.Rooms != nil {
		rooms.POST("/create", c.Rooms.CreateRoom)
		rooms.GET("/public", c.Rooms.ListPublicRooms)
		rooms.GET("/:code", c.Rooms.GetRoom)
		rooms.GET("/:code/participants", c.Rooms.ListParticipants)
		rooms.GET("/:code/messages", c.Rooms.ListMessages)
		rooms.POST("/:code/messages", c.Rooms.SendMessage)
		rooms.GET("/:code/qr", c.Rooms.QRCode)
	}
	if c.Sessions != nil {
		rooms.GET("/:code/ws", c.Sessions.JoinRoom)
	}

	if c.Catalog != nil {
		api.GET("/catalog", c.Catalog.ListOpportunities)
		api.POST("/catalog/reload", c.Catalog.Reload)
		api.POST("/recommend-opportunity", c.Catalog.Recommend)
		api.POST("/locate", c.Catalog.Locate)
	}

	return router
}
