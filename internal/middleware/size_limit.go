package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// multipart boundary and headers around the file part
var multipartOverhead = int64(8 * 1024)

// SizeLimit function is a middleware that check if file is larger than maxBodyBytes or not
// will return http.MaxBytesError when file size exceed maxBodyBytes
// and usually response with 413 request entity too large.
func SizeLimit(maxBodyBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBodyBytes+multipartOverhead {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "Entity too large",
			})
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes+multipartOverhead)
		c.Next()
	}
}
