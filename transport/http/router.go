package http

import (
	"github.com/gin-gonic/gin"
	"github.com/layer-3/sweeper/ports"
)

// SetupRouter sets up the Gin router
func SetupRouter(handlers *Handlers, tokenizer ports.Tokenizer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	operator := OperatorAuth(tokenizer)

	// Controller routes
	controller := router.Group("/controller")
	{
		controller.GET("", handlers.Controller)
		controller.GET("/nonce", handlers.Nonce)
		controller.GET("/sweep-params", handlers.SweepParams)
		controller.POST("/initialize", operator, handlers.InitializeController)
	}

	// Account routes. Sweeps carry their own authorization in the
	// signature and need no operator token.
	accounts := router.Group("/accounts")
	{
		accounts.POST("", operator, handlers.InitializeAccount)
		accounts.GET("/:address", handlers.Account)
		accounts.GET("/:address/status", handlers.AccountStatus)
		accounts.GET("/:address/can-sweep", handlers.CanSweep)
		accounts.POST("/:address/payments", operator, handlers.RecordPayment)
		accounts.POST("/:address/sweep", handlers.ExecuteSweep)
		accounts.GET("/:address/sweep", handlers.SweepRecord)
	}

	// Asset routes
	assets := router.Group("/assets")
	{
		assets.POST("/:asset/deposits", operator, handlers.Deposit)
		assets.GET("/:asset/balances/:owner", handlers.Balance)
	}

	return router
}

// requestLogger logs every request through the package logger.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Debugf("%s %s -> %d", c.Request.Method, c.Request.URL.Path,
			c.Writer.Status())
	}
}
