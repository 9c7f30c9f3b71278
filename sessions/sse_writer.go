package sessions

import (
	"github.com/gin-gonic/gin"
)

// SSEWriter streams turn events as Server-Sent Events over a gin response.
type SSEWriter struct {
	c *gin.Context
}

func NewSSEWriter(c *gin.Context) *SSEWriter {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	return &SSEWriter{c: c}
}

func (w *SSEWriter) WriteEvent(event string, data interface{}) error {
	if err := w.c.Request.Context().Err(); err != nil {
		return err
	}
	w.c.SSEvent(event, data)
	return nil
}

func (w *SSEWriter) Flush() {
	w.c.Writer.Flush()
}
