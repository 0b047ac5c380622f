package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smartkasa/kasapay/controllers"
	"github.com/smartkasa/kasapay/middleware"
	"github.com/smartkasa/kasapay/utils"
)

// SetupRouter initializes and returns the Gin router with all routes
func SetupRouter(metrics *utils.PaymentMetrics) *gin.Engine {
	router := gin.New()

	router.Use(utils.RecoveryMiddleware())
	router.Use(utils.LoggerMiddleware())
	router.Use(utils.CORSMiddleware())
	router.Use(utils.RequestIDMiddleware())
	router.Use(utils.SecurityHeadersMiddleware())
	if metrics != nil {
		router.Use(metrics.MetricsMiddleware())
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		payments := api.Group("/payments")
		{
			payments.POST("/calculate", controllers.CalculatePayment)
			payments.POST("/validate", controllers.ValidateClient)
			payments.POST("/create", controllers.CreatePayment)
			payments.GET("/:id/status", controllers.GetPaymentStatus)
			payments.POST("/:id/confirm", controllers.ConfirmPayment)
			payments.POST("/:id/retry", controllers.RetryPayment)
		}

		webhooks := api.Group("/webhooks")
		{
			webhooks.POST("/monobank/callback", controllers.MonobankCallback)
		}

		products := api.Group("/products")
		{
			products.GET("", controllers.ListProducts)
			products.GET("/:id", controllers.GetProduct)
		}

		customers := api.Group("/customers")
		{
			customers.GET("", controllers.ListCustomers)
			customers.GET("/by-phone", controllers.GetCustomerByPhone)
			customers.GET("/:id", controllers.GetCustomer)
		}

		admin := api.Group("/admin")
		{
			admin.POST("/login", controllers.AdminLogin)

			protected := admin.Group("")
			protected.Use(middleware.AdminAuthMiddleware())
			{
				protected.POST("/products", controllers.CreateProduct)
				protected.PUT("/products/:id", controllers.UpdateProduct)
				protected.DELETE("/products/:id", controllers.DeleteProduct)
				protected.PUT("/customers/:id", controllers.UpdateCustomer)
			}
		}
	}

	return router
}
