package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kotek/backend/internal/interfaces/http/dto"
)

// BodyLimit caps the request body size. Order payloads are a handful of
// line items plus a delivery address, so anything near the cap is a
// misbehaving client, not a big order.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse(dto.ErrCodePayloadTooLarge, "Request body exceeds the allowed size"))
			return
		}

		// Content-Length can be absent or wrong, so the cap is also
		// enforced while the handler reads the body.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
