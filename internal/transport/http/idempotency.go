package http

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/inventory/internal/domain"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	idempotencyTTL       = 24 * time.Hour

	contextIdempotencyKey = "idempotency-key"
)

// beginIdempotent читает тело запроса и регистрирует Idempotency-Key.
// Возвращает тело запроса и признак того, что ответ уже отправлен
// (повтор известного ключа или конфликт обработки).
func (s *Server) beginIdempotent(c *gin.Context) (body []byte, finished bool, err error) {
	body, err = io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, false, validationError("failed to read request body")
	}

	key := c.GetHeader(headerIdempotencyKey)
	if key == "" || s.idempotency == nil {
		return body, false, nil
	}

	hash := requestHash(body)
	_, createErr := s.idempotency.CreateProcessing(key, hash, time.Now().UTC().Add(idempotencyTTL))
	if createErr == nil {
		c.Set(contextIdempotencyKey, key)
		return body, false, nil
	}

	if errors.Is(createErr, domain.ErrIdempotencyKeyAlreadyExists) {
		record, getErr := s.idempotency.Get(key)
		if getErr != nil {
			return nil, false, fmt.Errorf("load idempotency record: %w", getErr)
		}
		if record.Status == domain.IdempotencyStatusProcessing {
			c.JSON(http.StatusConflict, errorBody{
				Error: "request with this idempotency key is being processed",
				Code:  codeConflict,
			})
			return nil, true, nil
		}

		// Повтор завершённого запроса: отдаём сохранённый ответ как есть.
		s.logger.WithField("idempotency_key", key).Info("replaying idempotent response")
		c.Data(record.HTTPStatus, "application/json; charset=utf-8", record.ResponseBody)
		return nil, true, nil
	}

	return nil, false, createErr
}

// completeIdempotent отправляет ответ и сохраняет его для повторов ключа.
func (s *Server) completeIdempotent(c *gin.Context, status int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).Error("marshal idempotent response failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{
			Error: "internal server error", Code: codeInternal,
		})
		return
	}

	c.Data(status, "application/json; charset=utf-8", data)

	key, ok := c.Get(contextIdempotencyKey)
	if !ok {
		return
	}
	keyValue, _ := key.(string)
	if keyValue == "" {
		return
	}

	var markErr error
	if status < http.StatusInternalServerError {
		markErr = s.idempotency.MarkDone(keyValue, data, status)
	} else {
		markErr = s.idempotency.MarkFailed(keyValue, data, status)
	}
	if markErr != nil {
		s.logger.WithError(markErr).WithField("idempotency_key", keyValue).Warn("failed to store idempotent response")
	}
}

// completeIdempotentError отправляет ошибку через общий маппинг и тоже
// сохраняет её для повторов ключа.
func (s *Server) completeIdempotentError(c *gin.Context, err error) {
	status, body := errorResponse(err)
	s.completeIdempotent(c, status, body)
}

func requestHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func unmarshalBody(body []byte, target interface{}) error {
	if len(body) == 0 {
		return fmt.Errorf("empty request body")
	}
	return json.Unmarshal(body, target)
}
