package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/inventory/internal/service/orders"
)

type createOrderItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type createOrderRequest struct {
	CustomerID int64                    `json:"customer_id"`
	Items      []createOrderItemRequest `json:"items"`
}

func (s *Server) listOrders(c *gin.Context) {
	listed, err := s.manager.ListOrders(0)
	if err != nil {
		respondError(c, err)
		return
	}
	response := make([]orderResponse, 0, len(listed))
	for _, order := range listed {
		response = append(response, toOrderResponse(order))
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) getOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, validationError("order id must be an integer"))
		return
	}

	order, err := s.manager.GetOrder(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// createOrder оформляет заказ. Заголовок Idempotency-Key (если передан)
// защищает от повторного списания при сетевых ретраях клиента.
func (s *Server) createOrder(c *gin.Context) {
	body, finished, err := s.beginIdempotent(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if finished {
		return
	}

	var req createOrderRequest
	if err := unmarshalBody(body, &req); err != nil {
		s.completeIdempotent(c, http.StatusBadRequest, errorBody{
			Error: "invalid request body", Code: codeValidation,
		})
		return
	}

	placeReq := orders.PlaceOrderRequest{CustomerID: req.CustomerID}
	for _, item := range req.Items {
		placeReq.Items = append(placeReq.Items, orders.ItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	created, err := s.manager.PlaceOrder(placeReq)
	if err != nil {
		s.completeIdempotentError(c, err)
		return
	}

	s.logger.WithFields(log.Fields{
		"order_id":    created.ID,
		"customer_id": created.CustomerID,
	}).Info("order created via http")
	s.completeIdempotent(c, http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"order":   toOrderResponse(created),
	})
}

func (s *Server) deleteOrder(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == 0 {
		respondError(c, validationError("order id is required"))
		return
	}

	if err := s.manager.CancelOrder(req.ID); err != nil {
		respondError(c, err)
		return
	}

	s.logger.WithField("order_id", req.ID).Info("order canceled via http")
	c.Status(http.StatusNoContent)
}
