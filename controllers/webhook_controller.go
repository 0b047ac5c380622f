package controllers

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/smartkasa/kasapay/utils"
)

// POST /webhooks/monobank/callback
//
// Signature verification runs over the raw body bytes before any parsing. A
// missing payment yields 404 so the provider retries a transient lookup race
// but can distinguish it from an authentication failure (401).
func MonobankCallback(c *gin.Context) {
	utils.LogInfo("MonobankCallback called")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.LogError("Failed to read callback body: %v", err)
		utils.BadRequest(c, "Failed to read request body", nil)
		return
	}

	signature := c.GetHeader("signature")
	result, err := webhookService.HandleCallback(c.Request.Context(), body, signature)
	if err != nil {
		utils.LogError("Callback processing failed: %v", err)
		respondError(c, err)
		return
	}

	utils.Success(c, "Callback processed", result)
}
