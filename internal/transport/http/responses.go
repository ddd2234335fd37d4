package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/inventory/internal/domain"
)

// Коды ошибок HTTP API.
const (
	codeValidation        = "validation_error"
	codeNotFound          = "not_found"
	codeInsufficientStock = "insufficient_stock"
	codeConflict          = "conflict"
	codeInternal          = "internal_error"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type customerResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type productResponse struct {
	ID            int64     `json:"id"`
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	PriceMinor    int64     `json:"price_minor"`
	StockQuantity int64     `json:"stock_quantity"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type orderItemResponse struct {
	ID       int64            `json:"id"`
	Product  *productResponse `json:"product,omitempty"`
	Quantity int64            `json:"quantity"`
}

type orderResponse struct {
	ID        int64               `json:"id"`
	Customer  *customerResponse   `json:"customer,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	Items     []orderItemResponse `json:"items"`
}

func toCustomerResponse(customer domain.Customer) customerResponse {
	return customerResponse{
		ID:        customer.ID,
		Name:      customer.Name,
		Email:     customer.Email,
		Phone:     customer.Phone,
		Address:   customer.Address,
		Active:    customer.Active,
		CreatedAt: customer.CreatedAt,
		UpdatedAt: customer.UpdatedAt,
	}
}

func toProductResponse(product domain.Product) productResponse {
	return productResponse{
		ID:            product.ID,
		SKU:           product.SKU,
		Name:          product.Name,
		PriceMinor:    product.PriceMinor,
		StockQuantity: product.StockQuantity,
		Active:        product.Active,
		CreatedAt:     product.CreatedAt,
		UpdatedAt:     product.UpdatedAt,
	}
}

func toOrderResponse(order domain.Order) orderResponse {
	response := orderResponse{
		ID:        order.ID,
		CreatedAt: order.CreatedAt,
		Items:     make([]orderItemResponse, 0, len(order.Items)),
	}
	if order.Customer != nil {
		customer := toCustomerResponse(*order.Customer)
		response.Customer = &customer
	}
	for _, item := range order.Items {
		itemResponse := orderItemResponse{
			ID:       item.ID,
			Quantity: item.Quantity,
		}
		if item.Product != nil {
			product := toProductResponse(*item.Product)
			itemResponse.Product = &product
		}
		response.Items = append(response.Items, itemResponse)
	}
	return response
}

// errorResponse переводит доменную ошибку в HTTP-статус и тело {error, code}.
func errorResponse(err error) (int, errorBody) {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest, errorBody{Error: err.Error(), Code: codeValidation}
	case domain.IsInsufficientStock(err):
		return http.StatusConflict, errorBody{Error: err.Error(), Code: codeInsufficientStock}
	case errors.Is(err, domain.ErrCustomerNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, errorBody{Error: err.Error(), Code: codeNotFound}
	case errors.Is(err, domain.ErrEmailAlreadyExists),
		errors.Is(err, domain.ErrSKUAlreadyExists),
		errors.Is(err, domain.ErrIdempotencyHashMismatch),
		domain.IsVersionConflict(err):
		return http.StatusConflict, errorBody{Error: err.Error(), Code: codeConflict}
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal server error", Code: codeInternal}
	}
}

func respondError(c *gin.Context, err error) {
	status, body := errorResponse(err)
	c.AbortWithStatusJSON(status, body)
}

func validationError(message string) *domain.ValidationError {
	return &domain.ValidationError{Errs: []error{errors.New(message)}}
}
