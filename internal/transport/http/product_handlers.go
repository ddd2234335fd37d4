package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/inventory/internal/domain"
)

type createProductRequest struct {
	SKU           string `json:"sku"`
	Name          string `json:"name"`
	PriceMinor    int64  `json:"price_minor"`
	StockQuantity int64  `json:"stock_quantity"`
	Active        *bool  `json:"active"`
}

type updateProductRequest struct {
	ID            int64   `json:"id"`
	SKU           *string `json:"sku"`
	Name          *string `json:"name"`
	PriceMinor    *int64  `json:"price_minor"`
	StockQuantity *int64  `json:"stock_quantity"`
	Active        *bool   `json:"active"`
}

func (s *Server) listProducts(c *gin.Context) {
	products, err := s.products.List()
	if err != nil {
		respondError(c, err)
		return
	}
	response := make([]productResponse, 0, len(products))
	for _, product := range products {
		response = append(response, toProductResponse(product))
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) getProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, validationError("product id must be an integer"))
		return
	}

	product, err := s.products.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(product))
}

func (s *Server) createProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, validationError("invalid request body"))
		return
	}

	now := time.Now().UTC()
	product := domain.Product{
		SKU:           req.SKU,
		Name:          req.Name,
		PriceMinor:    req.PriceMinor,
		StockQuantity: req.StockQuantity,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.Active != nil {
		product.Active = *req.Active
	}
	if errs := product.ValidateInvariants(); len(errs) > 0 {
		respondError(c, &domain.ValidationError{Errs: errs})
		return
	}

	created, err := s.products.Create(product)
	if err != nil {
		respondError(c, err)
		return
	}

	s.logger.WithFields(log.Fields{
		"product_id": created.ID,
		"sku":        created.SKU,
	}).Info("product created")
	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created successfully",
		"product": toProductResponse(created),
	})
}

func (s *Server) updateProduct(c *gin.Context) {
	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, validationError("invalid request body"))
		return
	}
	if req.ID == 0 {
		respondError(c, validationError("product id is required"))
		return
	}

	product, err := s.products.Get(req.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	if req.SKU != nil {
		product.SKU = *req.SKU
	}
	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.PriceMinor != nil {
		product.PriceMinor = *req.PriceMinor
	}
	if req.StockQuantity != nil {
		product.StockQuantity = *req.StockQuantity
	}
	if req.Active != nil {
		product.Active = *req.Active
	}
	product.UpdatedAt = time.Now().UTC()

	if errs := product.ValidateInvariants(); len(errs) > 0 {
		respondError(c, &domain.ValidationError{Errs: errs})
		return
	}
	if err := s.products.Save(product); err != nil {
		respondError(c, err)
		return
	}
	product.Version++

	c.JSON(http.StatusOK, gin.H{
		"message": "Product updated successfully",
		"product": toProductResponse(product),
	})
}

func (s *Server) deleteProduct(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == 0 {
		respondError(c, validationError("product id is required"))
		return
	}

	if err := s.products.Delete(req.ID); err != nil {
		respondError(c, err)
		return
	}

	s.logger.WithField("product_id", req.ID).Info("product deleted")
	c.Status(http.StatusNoContent)
}
