package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/inventory/internal/domain"
)

type createCustomerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Active  *bool  `json:"active"`
}

type updateCustomerRequest struct {
	ID      int64   `json:"id"`
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	Active  *bool   `json:"active"`
}

type deleteRequest struct {
	ID int64 `json:"id"`
}

func (s *Server) listCustomers(c *gin.Context) {
	customers, err := s.customers.List(false)
	if err != nil {
		respondError(c, err)
		return
	}
	response := make([]customerResponse, 0, len(customers))
	for _, customer := range customers {
		response = append(response, toCustomerResponse(customer))
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) listActiveCustomers(c *gin.Context) {
	customers, err := s.customers.List(true)
	if err != nil {
		respondError(c, err)
		return
	}
	response := make([]customerResponse, 0, len(customers))
	for _, customer := range customers {
		response = append(response, toCustomerResponse(customer))
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) getCustomer(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, validationError("customer id must be an integer"))
		return
	}

	customer, err := s.customers.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCustomerResponse(customer))
}

func (s *Server) createCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, validationError("invalid request body"))
		return
	}

	now := time.Now().UTC()
	customer := domain.Customer{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Active != nil {
		customer.Active = *req.Active
	}
	if errs := customer.ValidateInvariants(); len(errs) > 0 {
		respondError(c, &domain.ValidationError{Errs: errs})
		return
	}

	created, err := s.customers.Create(customer)
	if err != nil {
		respondError(c, err)
		return
	}

	s.logger.WithField("customer_id", created.ID).Info("customer created")
	c.JSON(http.StatusCreated, gin.H{
		"message":  "Customer created successfully",
		"customer": toCustomerResponse(created),
	})
}

func (s *Server) updateCustomer(c *gin.Context) {
	var req updateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, validationError("invalid request body"))
		return
	}
	if req.ID == 0 {
		respondError(c, validationError("customer id is required"))
		return
	}

	customer, err := s.customers.Get(req.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	if req.Name != nil {
		customer.Name = *req.Name
	}
	if req.Email != nil {
		customer.Email = *req.Email
	}
	if req.Phone != nil {
		customer.Phone = *req.Phone
	}
	if req.Address != nil {
		customer.Address = *req.Address
	}
	if req.Active != nil {
		customer.Active = *req.Active
	}
	customer.UpdatedAt = time.Now().UTC()

	if errs := customer.ValidateInvariants(); len(errs) > 0 {
		respondError(c, &domain.ValidationError{Errs: errs})
		return
	}
	if err := s.customers.Save(customer); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Customer updated successfully",
		"customer": toCustomerResponse(customer),
	})
}

func (s *Server) deleteCustomer(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == 0 {
		respondError(c, validationError("customer id is required"))
		return
	}

	if err := s.customers.Delete(req.ID); err != nil {
		respondError(c, err)
		return
	}

	s.logger.WithField("customer_id", req.ID).Info("customer deleted")
	c.Status(http.StatusNoContent)
}
