package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/smartkasa/kasapay/services"
	"github.com/smartkasa/kasapay/utils"
)

var (
	pricingService  *services.PricingService
	customerService *services.CustomerService
	paymentService  *services.PaymentService
	webhookService  *services.WebhookService
	phoneRule       utils.PhoneRule
)

// Init wires the constructed services into the handler package. Called once
// from main before the router is set up.
func Init(pricing *services.PricingService, customers *services.CustomerService,
	payments *services.PaymentService, webhooks *services.WebhookService, rule utils.PhoneRule) {
	pricingService = pricing
	customerService = customers
	paymentService = payments
	webhookService = webhooks
	phoneRule = rule
}

// respondError maps an application error onto the standard error envelope
func respondError(c *gin.Context, err error) {
	if appErr := utils.GetAppError(err); appErr != nil {
		utils.Error(c, appErr.Code, appErr.Message, gin.H{"kind": appErr.Kind})
		return
	}
	utils.InternalServerError(c, "Unexpected error", err.Error())
}
