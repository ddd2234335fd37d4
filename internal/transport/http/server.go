package http

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/inventory/internal/domain"
	"github.com/vladislavdragonenkov/inventory/internal/service/orders"
)

// Server собирает HTTP API сервиса: CRUD клиентов и товаров плюс
// транзакционные операции над заказами.
type Server struct {
	manager     orders.Manager
	customers   domain.CustomerRepository
	products    domain.ProductRepository
	idempotency domain.IdempotencyRepository
	logger      *log.Entry
}

// NewServer создаёт HTTP server поверх доменных зависимостей.
// idempotency может быть nil, тогда заголовок Idempotency-Key игнорируется.
func NewServer(
	manager orders.Manager,
	customers domain.CustomerRepository,
	products domain.ProductRepository,
	idempotency domain.IdempotencyRepository,
	logger *log.Entry,
) *Server {
	if logger == nil {
		logger = log.New().WithField("component", "http")
	}
	return &Server{
		manager:     manager,
		customers:   customers,
		products:    products,
		idempotency: idempotency,
		logger:      logger,
	}
}

// Router собирает gin.Engine с маршрутами API.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(s.requestLogger(), gin.Recovery())

	api := router.Group("/api")
	{
		api.GET("/customer/", s.listCustomers)
		api.GET("/customer/active/", s.listActiveCustomers)
		api.GET("/customer/:id", s.getCustomer)
		api.POST("/customer/create/", s.createCustomer)
		api.PUT("/customer/update/", s.updateCustomer)
		api.DELETE("/customer/delete/", s.deleteCustomer)

		api.GET("/product/", s.listProducts)
		api.GET("/product/:id", s.getProduct)
		api.POST("/product/create/", s.createProduct)
		api.PUT("/product/update/", s.updateProduct)
		api.DELETE("/product/delete/", s.deleteProduct)

		api.GET("/order/", s.listOrders)
		api.GET("/order/:id/", s.getOrder)
		api.POST("/order/create/", s.createOrder)
		api.DELETE("/order/delete/", s.deleteOrder)
	}

	return router
}

// requestLogger пишет access-лог в общем формате сервиса.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.WithFields(log.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("http request")
	}
}
