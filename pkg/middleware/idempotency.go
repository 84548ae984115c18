package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/parking-lot/pkg/common"
	"github.com/richxcame/parking-lot/pkg/logger"
	redisClient "github.com/richxcame/parking-lot/pkg/redis"
	"go.uber.org/zap"
)

const (
	// IdempotencyKeyHeader is the HTTP header for idempotency keys
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotentReplayedHeader marks a response served from the cache
	IdempotentReplayedHeader = "Idempotent-Replayed"

	idempotencyTTL     = 24 * time.Hour
	idempotencyLockTTL = 30 * time.Second
	idempotencyPrefix  = "idempotency:"
	idempotencyLock    = "idempotency-lock:"
)

// idempotencyEntry stores the cached response for a given idempotency key
type idempotencyEntry struct {
	StatusCode  int             `json:"status_code"`
	Body        json.RawMessage `json:"body"`
	RequestHash string          `json:"request_hash"`
}

// idempotencyResponseWriter captures the response for caching
type idempotencyResponseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *idempotencyResponseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *idempotencyResponseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency makes a retried POST with the same Idempotency-Key return the
// first response instead of admitting or departing the vehicle twice.
func Idempotency(redis redisClient.ClientInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
		if idempotencyKey == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()

		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "failed to read request body")
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		requestHash := hashRequest(c.Request.Method, c.FullPath(), bodyBytes)
		cacheKey := idempotencyPrefix + idempotencyKey
		lockKey := idempotencyLock + idempotencyKey

		if cached, err := redis.GetString(ctx, cacheKey); err == nil && cached != "" {
			var entry idempotencyEntry
			if err := json.Unmarshal([]byte(cached), &entry); err == nil {
				if entry.RequestHash != requestHash {
					common.ErrorResponse(c, http.StatusUnprocessableEntity,
						"Idempotency-Key has already been used with a different request")
					c.Abort()
					return
				}

				c.Header(IdempotentReplayedHeader, "true")
				c.Data(entry.StatusCode, "application/json; charset=utf-8", entry.Body)
				c.Abort()
				return
			}
		}

		acquired, err := redis.SetIfAbsent(ctx, lockKey, requestHash, idempotencyLockTTL)
		if err != nil {
			// Redis trouble must not block the lot; run without the guarantee.
			logger.WarnContext(ctx, "idempotency lock unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !acquired {
			common.ErrorResponse(c, http.StatusConflict, "a request with this Idempotency-Key is already in progress")
			c.Abort()
			return
		}
		defer func() {
			if err := redis.Delete(ctx, lockKey); err != nil {
				logger.WarnContext(ctx, "failed to release idempotency lock", zap.Error(err))
			}
		}()

		writer := &idempotencyResponseWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer

		c.Next()

		status := writer.Status()
		if status < 200 || status >= 300 {
			return
		}

		data, err := json.Marshal(idempotencyEntry{
			StatusCode:  status,
			Body:        writer.body.Bytes(),
			RequestHash: requestHash,
		})
		if err != nil {
			return
		}
		if err := redis.SetWithExpiration(ctx, cacheKey, data, idempotencyTTL); err != nil {
			logger.WarnContext(ctx, "failed to cache idempotency response",
				zap.String("key", idempotencyKey),
				zap.Error(err),
			)
		}
	}
}

// hashRequest creates a SHA-256 hash of the request method, path, and body
func hashRequest(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte(path))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
