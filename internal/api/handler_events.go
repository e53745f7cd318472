package api

import (
	"io"

	"github.com/gin-gonic/gin"
)

// StreamEvents handles GET /api/events: a server-sent-event stream of
// reservation changes. Observers that fall behind are dropped by the hub
// and see their stream end; they reconnect and catch up through the pull
// fallback (ListAppliances).
func (h *Handler) StreamEvents(c *gin.Context) {
	events, cancel := h.hub.Subscribe()
	defer cancel()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("change", ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
