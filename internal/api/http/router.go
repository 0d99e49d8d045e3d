package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(
	allowedOrigins []string,
	socketController *SocketController,
	notifyController *NotifyController,
	deliveryController *DeliveryController,
	userController *UserController,
) *gin.Engine {
	router := gin.Default()

	config := cors.DefaultConfig()
	config.AllowOrigins = allowedOrigins
	config.AllowCredentials = true
	config.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"Origin",
		"Accept",
		"X-User-ID",
		"X-User-Role",
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	router.Use(cors.New(config))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	if socketController != nil {
		router.GET("/ws", socketController.Connect)
	}

	// The bridge endpoint trusts the network, not the caller; never expose it
	// beyond the internal service network without adding auth.
	if notifyController != nil {
		router.POST("/notify", notifyController.Notify)
	}

	api := router.Group("/api")

	if deliveryController != nil {
		api.GET("/assignment/:id/accept-assignment", deliveryController.AcceptAssignment)
		api.POST("/otp/send", deliveryController.SendOTP)
		api.POST("/otp/verify", deliveryController.VerifyOTP)

		orders := api.Group("/orders")
		orders.POST("/:orderID/paid", deliveryController.MarkPaid)
		orders.POST("/:orderID/broadcast", deliveryController.BroadcastAssignment)

		api.GET("/rooms/:roomID/messages", deliveryController.RoomHistory)
	}

	if userController != nil {
		users := api.Group("/users")
		users.POST("/create", userController.CreateUser)
		users.GET("/:userID", userController.GetUser)
	}

	return router
}
