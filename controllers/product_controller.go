package controllers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smartkasa/kasapay/config"
	"github.com/smartkasa/kasapay/models"
	"github.com/smartkasa/kasapay/utils"
	"gorm.io/gorm"
)

// GET /products
func ListProducts(c *gin.Context) {
	utils.LogInfo("ListProducts called")

	var products []models.Product
	if err := config.DB.Where("is_active = ?", true).Order("id").Find(&products).Error; err != nil {
		utils.LogError("Failed to list products: %v", err)
		utils.InternalServerError(c, "Failed to list products", err.Error())
		return
	}

	utils.Success(c, "Products retrieved", gin.H{"products": products})
}

// GET /products/:id
func GetProduct(c *gin.Context) {
	utils.LogInfo("GetProduct called")

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequest(c, "Invalid product id", nil)
		return
	}

	var product models.Product
	if err := config.DB.First(&product, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Product not found")
			return
		}
		utils.InternalServerError(c, "Failed to load product", err.Error())
		return
	}

	utils.Success(c, "Product retrieved", product)
}

// POST /admin/products
func CreateProduct(c *gin.Context) {
	utils.LogInfo("CreateProduct called")

	var req struct {
		Name        string  `json:"name" binding:"required"`
		SKU         string  `json:"sku" binding:"required"`
		Price       float64 `json:"price" binding:"required"`
		Description string  `json:"description"`
		Photo       string  `json:"photo"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request. name, sku and price are required", err.Error())
		return
	}

	if req.Price <= 0 {
		utils.BadRequest(c, "Price must be positive", nil)
		return
	}
	if ok, msg := utils.ValidateSKU(req.SKU); !ok {
		utils.BadRequest(c, msg, nil)
		return
	}

	var existing models.Product
	if err := config.DB.Where("sku = ?", req.SKU).First(&existing).Error; err == nil {
		utils.LogError("Product with SKU %s already exists", req.SKU)
		utils.Conflict(c, "Product with this SKU already exists", nil)
		return
	}

	product := models.Product{
		Name:        req.Name,
		SKU:         req.SKU,
		Price:       req.Price,
		Description: req.Description,
		Photo:       req.Photo,
		IsActive:    true,
	}
	if err := config.DB.Create(&product).Error; err != nil {
		utils.LogError("Failed to create product %s: %v", req.SKU, err)
		utils.InternalServerError(c, "Failed to create product", err.Error())
		return
	}
	utils.LogInfo("Product created: %s (SKU: %s)", product.Name, product.SKU)

	utils.Created(c, "Product created", product)
}

// PUT /admin/products/:id
func UpdateProduct(c *gin.Context) {
	utils.LogInfo("UpdateProduct called")

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequest(c, "Invalid product id", nil)
		return
	}

	var product models.Product
	if err := config.DB.First(&product, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Product not found")
			return
		}
		utils.InternalServerError(c, "Failed to load product", err.Error())
		return
	}

	var req struct {
		Name        *string  `json:"name"`
		SKU         *string  `json:"sku"`
		Price       *float64 `json:"price"`
		Description *string  `json:"description"`
		Photo       *string  `json:"photo"`
		IsActive    *bool    `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}

	if req.SKU != nil && *req.SKU != product.SKU {
		if ok, msg := utils.ValidateSKU(*req.SKU); !ok {
			utils.BadRequest(c, msg, nil)
			return
		}
		var existing models.Product
		if err := config.DB.Where("sku = ?", *req.SKU).First(&existing).Error; err == nil {
			utils.Conflict(c, "Product with this SKU already exists", nil)
			return
		}
		product.SKU = *req.SKU
	}
	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			utils.BadRequest(c, "Price must be positive", nil)
			return
		}
		product.Price = *req.Price
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Photo != nil {
		product.Photo = *req.Photo
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := config.DB.Save(&product).Error; err != nil {
		utils.LogError("Failed to update product %d: %v", product.ID, err)
		utils.InternalServerError(c, "Failed to update product", err.Error())
		return
	}
	utils.LogInfo("Product updated: %s (ID: %d)", product.Name, product.ID)

	utils.Success(c, "Product updated", product)
}

// DELETE /admin/products/:id performs a soft delete: the catalog is append-only
func DeleteProduct(c *gin.Context) {
	utils.LogInfo("DeleteProduct called")

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequest(c, "Invalid product id", nil)
		return
	}

	result := config.DB.Model(&models.Product{}).Where("id = ?", uint(id)).Update("is_active", false)
	if result.Error != nil {
		utils.InternalServerError(c, "Failed to deactivate product", result.Error.Error())
		return
	}
	if result.RowsAffected == 0 {
		utils.NotFound(c, "Product not found")
		return
	}
	utils.LogInfo("Product deactivated: %d", id)

	utils.Success(c, "Product deactivated", gin.H{"id": id})
}
