package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	KeyRequestID = "request_id"
	KeyClientKey = "client_key"
	KeyCode      = "relay_code"
	KeyStreamed  = "relay_streamed"

	// AnonymousClient buckets callers that send no forwarded address.
	AnonymousClient = "anonymous"
)

// ClientKey derives the rate-limit bucket from the first X-Forwarded-For
// entry.
func ClientKey(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return AnonymousClient
	}
	first, _, _ := strings.Cut(xff, ",")
	if first = strings.TrimSpace(first); first == "" {
		return AnonymousClient
	}
	return first
}

// RequestID assigns every request a uuid and echoes it in X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set(KeyRequestID, id)
		c.Set(KeyClientKey, ClientKey(c.Request))
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func GetRequestID(c *gin.Context) string {
	if id := c.GetString(KeyRequestID); id != "" {
		return id
	}
	id := uuid.NewString()
	c.Set(KeyRequestID, id)
	return id
}

func GetClientKey(c *gin.Context) string {
	if key := c.GetString(KeyClientKey); key != "" {
		return key
	}
	return ClientKey(c.Request)
}

// SetOutcome records the relay code of a response for logging and metrics.
// An empty code means success.
func SetOutcome(c *gin.Context, code string, streamed bool) {
	c.Set(KeyCode, code)
	c.Set(KeyStreamed, streamed)
}
