package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PrepareSSE switches the response into server-sent-events mode and hands
// back the flusher the handler pushes each chunk through. The bool is
// false when the underlying writer cannot flush, in which case streaming
// is not possible on this connection.
func PrepareSSE(c *gin.Context) (http.Flusher, bool) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Transfer-Encoding", "chunked")
	flusher, ok := c.Writer.(http.Flusher)
	return flusher, ok
}
