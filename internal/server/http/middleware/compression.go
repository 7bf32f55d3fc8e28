package middleware

import (
	"compress/gzip"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderboard/internal/server/http/dto"
)

// MaxRequestBody caps decoded request bodies. Board requests are a few hundred bytes.
const MaxRequestBody = 1 << 20

// DecompressRequest accepts gzip encoded request bodies and bounds every body
// to MaxRequestBody after decoding.
func DecompressRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.Contains(strings.ToLower(c.GetHeader("Content-Encoding")), "gzip") {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxRequestBody)
			c.Next()
			return
		}

		encoded := c.Request.Body
		reader, err := gzip.NewReader(encoded)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Error: "malformed gzip body"})
			return
		}
		defer encoded.Close()
		defer reader.Close()

		c.Request.Body = http.MaxBytesReader(c.Writer, reader, MaxRequestBody)
		c.Request.Header.Del("Content-Encoding")
		c.Request.ContentLength = -1
		c.Next()
	}
}
