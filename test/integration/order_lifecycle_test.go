package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/inventory/internal/domain"
	"github.com/vladislavdragonenkov/inventory/internal/service/orders"
	"github.com/vladislavdragonenkov/inventory/internal/storage/memory"
	transport "github.com/vladislavdragonenkov/inventory/internal/transport/http"
)

// OrderLifecycleTestSuite проверяет полный жизненный цикл заказа через HTTP API.
type OrderLifecycleTestSuite struct {
	suite.Suite
	router   *gin.Engine
	products domain.ProductRepository
	ledger   domain.StockLedger
}

func (s *OrderLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel) // Уменьшаем шум в тестах
	logger := baseLogger.WithField("component", "integration-test")

	customers := memory.NewCustomerRepository()
	s.products = memory.NewProductRepository()
	ordersRepo := memory.NewOrderRepository()
	s.ledger = memory.NewStockLedger()
	outbox := memory.NewOutboxRepository()
	idempotency := memory.NewIdempotencyRepository()

	manager := orders.NewManagerWithoutMetrics(
		customers,
		s.products,
		ordersRepo,
		s.ledger,
		outbox,
		logger,
	)

	server := transport.NewServer(manager, customers, s.products, idempotency, logger)
	s.router = server.Router()
}

func (s *OrderLifecycleTestSuite) request(method, path string, payload any, headers map[string]string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		require.NoError(s.T(), json.NewEncoder(&body).Encode(payload))
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	recorder := httptest.NewRecorder()
	s.router.ServeHTTP(recorder, req)
	return recorder
}

func (s *OrderLifecycleTestSuite) createCustomer(email string) int64 {
	resp := s.request(http.MethodPost, "/api/customer/create/", map[string]any{
		"name":  "Test Customer",
		"email": email,
	}, nil)
	require.Equal(s.T(), http.StatusCreated, resp.Code, resp.Body.String())

	var decoded struct {
		Customer struct {
			ID int64 `json:"id"`
		} `json:"customer"`
	}
	require.NoError(s.T(), json.Unmarshal(resp.Body.Bytes(), &decoded))
	return decoded.Customer.ID
}

func (s *OrderLifecycleTestSuite) createProduct(sku string, stock int64) int64 {
	resp := s.request(http.MethodPost, "/api/product/create/", map[string]any{
		"sku":            sku,
		"name":           "Product " + sku,
		"price_minor":    1000,
		"stock_quantity": stock,
	}, nil)
	require.Equal(s.T(), http.StatusCreated, resp.Code, resp.Body.String())

	var decoded struct {
		Product struct {
			ID int64 `json:"id"`
		} `json:"product"`
	}
	require.NoError(s.T(), json.Unmarshal(resp.Body.Bytes(), &decoded))
	return decoded.Product.ID
}

func (s *OrderLifecycleTestSuite) stockOf(productID int64) int64 {
	product, err := s.products.Get(productID)
	require.NoError(s.T(), err)
	return product.StockQuantity
}

func (s *OrderLifecycleTestSuite) TestPlaceAndCancelOrder() {
	customerID := s.createCustomer("lifecycle@example.com")
	productID := s.createProduct("LIFE-1", 10)

	resp := s.request(http.MethodPost, "/api/order/create/", map[string]any{
		"customer_id": customerID,
		"items": []map[string]any{
			{"product_id": productID, "quantity": 4},
		},
	}, nil)
	require.Equal(s.T(), http.StatusCreated, resp.Code, resp.Body.String())

	var created struct {
		Order struct {
			ID       int64 `json:"id"`
			Customer *struct {
				ID int64 `json:"id"`
			} `json:"customer"`
			Items []struct {
				Quantity int64 `json:"quantity"`
				Product  *struct {
					ID int64 `json:"id"`
				} `json:"product"`
			} `json:"items"`
		} `json:"order"`
	}
	require.NoError(s.T(), json.Unmarshal(resp.Body.Bytes(), &created))
	require.NotZero(s.T(), created.Order.ID)
	require.NotNil(s.T(), created.Order.Customer)
	require.Len(s.T(), created.Order.Items, 1)
	require.Equal(s.T(), int64(4), created.Order.Items[0].Quantity)

	require.Equal(s.T(), int64(6), s.stockOf(productID))

	movements, err := s.ledger.ListByOrder(created.Order.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), movements, 1)
	require.Equal(s.T(), domain.MovementDeduct, movements[0].Kind)

	cancelResp := s.request(http.MethodDelete, "/api/order/delete/", map[string]any{
		"id": created.Order.ID,
	}, nil)
	require.Equal(s.T(), http.StatusNoContent, cancelResp.Code)
	require.Equal(s.T(), int64(10), s.stockOf(productID))

	repeat := s.request(http.MethodDelete, "/api/order/delete/", map[string]any{
		"id": created.Order.ID,
	}, nil)
	require.Equal(s.T(), http.StatusNotFound, repeat.Code)
}

func (s *OrderLifecycleTestSuite) TestInsufficientStockLeavesNoTrace() {
	customerID := s.createCustomer("greedy@example.com")
	productID := s.createProduct("LIFE-2", 3)

	resp := s.request(http.MethodPost, "/api/order/create/", map[string]any{
		"customer_id": customerID,
		"items": []map[string]any{
			{"product_id": productID, "quantity": 5},
		},
	}, nil)
	require.Equal(s.T(), http.StatusConflict, resp.Code)

	var errBody struct {
		Code string `json:"code"`
	}
	require.NoError(s.T(), json.Unmarshal(resp.Body.Bytes(), &errBody))
	require.Equal(s.T(), "insufficient_stock", errBody.Code)
	require.Equal(s.T(), int64(3), s.stockOf(productID))

	list := s.request(http.MethodGet, "/api/order/", nil, nil)
	require.Equal(s.T(), http.StatusOK, list.Code)

	var listed []json.RawMessage
	require.NoError(s.T(), json.Unmarshal(list.Body.Bytes(), &listed))
	require.Empty(s.T(), listed)
}

func (s *OrderLifecycleTestSuite) TestDuplicateLinesCheckedAsSum() {
	customerID := s.createCustomer("split@example.com")
	productID := s.createProduct("LIFE-3", 10)

	resp := s.request(http.MethodPost, "/api/order/create/", map[string]any{
		"customer_id": customerID,
		"items": []map[string]any{
			{"product_id": productID, "quantity": 6},
			{"product_id": productID, "quantity": 6},
		},
	}, nil)
	require.Equal(s.T(), http.StatusConflict, resp.Code)
	require.Equal(s.T(), int64(10), s.stockOf(productID))
}

func (s *OrderLifecycleTestSuite) TestIdempotentReplay() {
	customerID := s.createCustomer("replay@example.com")
	productID := s.createProduct("LIFE-4", 10)

	payload := map[string]any{
		"customer_id": customerID,
		"items": []map[string]any{
			{"product_id": productID, "quantity": 3},
		},
	}
	headers := map[string]string{"Idempotency-Key": "lifecycle-key-1"}

	first := s.request(http.MethodPost, "/api/order/create/", payload, headers)
	require.Equal(s.T(), http.StatusCreated, first.Code)

	second := s.request(http.MethodPost, "/api/order/create/", payload, headers)
	require.Equal(s.T(), http.StatusCreated, second.Code)
	require.JSONEq(s.T(), first.Body.String(), second.Body.String())

	// Списание произошло ровно один раз.
	require.Equal(s.T(), int64(7), s.stockOf(productID))
}

func (s *OrderLifecycleTestSuite) TestConcurrentOrdersRespectStock() {
	customerID := s.createCustomer("race@example.com")
	productID := s.createProduct("LIFE-5", 5)

	const workers = 6
	codes := make([]int, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			resp := s.request(http.MethodPost, "/api/order/create/", map[string]any{
				"customer_id": customerID,
				"items": []map[string]any{
					{"product_id": productID, "quantity": 1},
				},
			}, map[string]string{
				"Idempotency-Key": fmt.Sprintf("race-key-%d", idx),
			})
			codes[idx] = resp.Code
		}(i)
	}
	wg.Wait()

	created := 0
	for _, code := range codes {
		if code == http.StatusCreated {
			created++
		} else {
			require.Equal(s.T(), http.StatusConflict, code)
		}
	}
	require.Equal(s.T(), 5, created)
	require.Equal(s.T(), int64(0), s.stockOf(productID))
}

func TestOrderLifecycleTestSuite(t *testing.T) {
	suite.Run(t, new(OrderLifecycleTestSuite))
}
