package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smartkasa/kasapay/services"
	"github.com/smartkasa/kasapay/utils"
)

// POST /payments/calculate
func CalculatePayment(c *gin.Context) {
	utils.LogInfo("CalculatePayment called")

	var req struct {
		Products []services.ProductItemRequest `json:"products" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid calculation request: %v", err)
		utils.BadRequest(c, "Invalid request. products is required", err.Error())
		return
	}

	calc, err := pricingService.Calculate(req.Products)
	if err != nil {
		utils.LogError("Calculation failed: %v", err)
		respondError(c, err)
		return
	}

	utils.Success(c, "Calculation completed", calc)
}

// POST /payments/validate
func ValidateClient(c *gin.Context) {
	utils.LogInfo("ValidateClient called")

	var req struct {
		Phone string `json:"phone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request. phone is required", err.Error())
		return
	}

	if err := phoneRule.Validate(req.Phone); err != nil {
		utils.LogError("Phone validation failed for %s: %v", req.Phone, err)
		respondError(c, err)
		return
	}

	utils.Success(c, "Phone number is valid", gin.H{
		"phone":    req.Phone,
		"is_valid": true,
	})
}

// POST /payments/create
func CreatePayment(c *gin.Context) {
	utils.LogInfo("CreatePayment called")

	var req services.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid payment request: %v", err)
		utils.BadRequest(c, "Invalid payment request", err.Error())
		return
	}
	utils.LogInfo("Processing payment creation for store order %s", req.StoreOrderID)

	response, err := paymentService.CreatePayment(c.Request.Context(), req)
	if err != nil {
		if response != nil {
			// The payment row survived the provider failure; tell the caller
			// which payment to retry.
			utils.LogError("Provider call failed after persisting payment %d: %v", response.PaymentID, err)
			appErr := utils.GetAppError(err)
			if appErr == nil {
				respondError(c, err)
				return
			}
			utils.Error(c, appErr.Code, appErr.Message, gin.H{
				"kind":       appErr.Kind,
				"payment_id": response.PaymentID,
				"retryable":  utils.IsProviderUnavailable(err),
			})
			return
		}
		utils.LogError("Payment creation failed for store order %s: %v", req.StoreOrderID, err)
		respondError(c, err)
		return
	}

	utils.Created(c, "Payment created", response)
}

// GET /payments/:id/status
func GetPaymentStatus(c *gin.Context) {
	utils.LogInfo("GetPaymentStatus called")

	idOrExternal := c.Param("id")
	result, err := paymentService.GetPaymentStatus(c.Request.Context(), idOrExternal)
	if err != nil {
		utils.LogError("Status lookup failed for %s: %v", idOrExternal, err)
		respondError(c, err)
		return
	}

	utils.Success(c, "Payment status retrieved", result)
}

// POST /payments/:id/confirm
func ConfirmPayment(c *gin.Context) {
	utils.LogInfo("ConfirmPayment called")

	paymentID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequest(c, "Invalid payment id", nil)
		return
	}

	var req struct {
		Confirmed *bool `json:"confirmed" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request. confirmed is required", err.Error())
		return
	}

	result, err := paymentService.ConfirmPayment(c.Request.Context(), uint(paymentID), *req.Confirmed)
	if err != nil {
		utils.LogError("Confirmation failed for payment %d: %v", paymentID, err)
		respondError(c, err)
		return
	}

	utils.Success(c, "Payment confirmation recorded", result)
}

// POST /payments/:id/retry
func RetryPayment(c *gin.Context) {
	utils.LogInfo("RetryPayment called")

	paymentID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequest(c, "Invalid payment id", nil)
		return
	}

	response, err := paymentService.RetryProvider(c.Request.Context(), uint(paymentID))
	if err != nil {
		utils.LogError("Provider retry failed for payment %d: %v", paymentID, err)
		respondError(c, err)
		return
	}

	utils.Success(c, "Provider order created", response)
}
