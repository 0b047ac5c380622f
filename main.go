package main

import (
	"log"

	"github.com/smartkasa/kasapay/config"
	"github.com/smartkasa/kasapay/controllers"
	"github.com/smartkasa/kasapay/routes"
	"github.com/smartkasa/kasapay/services"
	"github.com/smartkasa/kasapay/utils"
)

func main() {
	// Initialize logger
	if err := utils.InitLogger(); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	// Load environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.LogError("Error loading config: %v", err)
		log.Fatal("Error loading config:", err)
	}

	// Initialize database
	config.InitDB(cfg)

	// Seed the admin account
	if err := controllers.EnsureDefaultAdmin(); err != nil {
		utils.LogError("Failed to create default admin: %v", err)
		log.Fatal("Failed to create default admin:", err)
	}

	// Construct gateways and services
	phoneRule := utils.PhoneRule{Prefix: cfg.PhonePrefix, Length: cfg.PhoneLength}
	metrics := utils.NewPaymentMetrics()

	provider := services.NewMonobankClient(cfg)
	crm, err := services.NewCRMProvider(cfg)
	if err != nil {
		utils.LogError("Failed to configure CRM provider: %v", err)
		log.Fatal("Failed to configure CRM provider:", err)
	}

	pricing := services.NewPricingService(config.DB)
	customers := services.NewCustomerService(config.DB, crm, phoneRule)
	payments := services.NewPaymentService(config.DB, provider, pricing, customers, metrics, phoneRule)
	webhooks := services.NewWebhookService(config.DB, provider, crm, metrics, cfg.NotifyEmail)

	controllers.Init(pricing, customers, payments, webhooks, phoneRule)

	// Set up router
	router := routes.SetupRouter(metrics)

	utils.LogInfo("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		utils.LogError("Error starting server: %v", err)
		log.Fatal("Error starting server:", err)
	}
}
