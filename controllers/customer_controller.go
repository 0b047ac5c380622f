package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smartkasa/kasapay/services"
	"github.com/smartkasa/kasapay/utils"
)

// GET /customers
func ListCustomers(c *gin.Context) {
	utils.LogInfo("ListCustomers called")

	customers, err := customerService.List()
	if err != nil {
		utils.LogError("Failed to list customers: %v", err)
		respondError(c, err)
		return
	}

	utils.Success(c, "Customers retrieved", gin.H{"customers": customers})
}

// GET /customers/:id
func GetCustomer(c *gin.Context) {
	utils.LogInfo("GetCustomer called")

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequest(c, "Invalid customer id", nil)
		return
	}

	customer, err := customerService.GetByID(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.Success(c, "Customer retrieved", customer)
}

// GET /customers/by-phone?phone=...
func GetCustomerByPhone(c *gin.Context) {
	utils.LogInfo("GetCustomerByPhone called")

	phone := c.Query("phone")
	if phone == "" {
		utils.BadRequest(c, "phone query parameter is required", nil)
		return
	}

	customer, err := customerService.GetByPhone(phone)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.Success(c, "Customer retrieved", customer)
}

// PUT /admin/customers/:id
func UpdateCustomer(c *gin.Context) {
	utils.LogInfo("UpdateCustomer called")

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequest(c, "Invalid customer id", nil)
		return
	}

	var req struct {
		Phone     string `json:"phone"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}

	if req.Email != "" {
		if ok, msg := utils.ValidateEmail(req.Email); !ok {
			utils.BadRequest(c, msg, nil)
			return
		}
	}

	customer, err := customerService.Update(uint(id), req.Phone, services.CustomerHints{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		utils.LogError("Failed to update customer %d: %v", id, err)
		respondError(c, err)
		return
	}

	utils.Success(c, "Customer updated", customer)
}
