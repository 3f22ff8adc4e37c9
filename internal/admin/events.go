package admin

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"catalog-admin/internal/querycache"

	"github.com/gin-gonic/gin"
)

const (
	viewCatalog    = "catalog"
	viewProducts   = "products"
	viewCategories = "categories"

	eventRefresh      = "refresh"
	heartbeatInterval = 25 * time.Second
)

// events streams a "refresh" event each time a cache entry shown by the
// requested view is refetched. The subscription lives as long as the
// connection, or until the server shuts down.
func (s *Server) events(c *gin.Context) {
	updates := make(chan querycache.Snapshot, 1)
	notify := func(snap querycache.Snapshot) {
		// Subscribers must not block the fetching goroutine; one pending
		// refresh is enough.
		select {
		case updates <- snap:
		default:
		}
	}

	var unsubscribe func()
	switch c.Query("view") {
	case viewCatalog:
		if term := strings.TrimSpace(c.Query("search")); term != "" {
			unsubscribe = s.catalog.WatchSearch(term, notify)
		} else {
			unsubscribe = s.catalog.WatchProducts(notify)
		}
	case viewProducts:
		unsubscribe = s.catalog.WatchProducts(notify)
	case viewCategories:
		unsubscribe = s.catalog.WatchCategories(notify)
	default:
		c.String(http.StatusBadRequest, "unknown view")
		return
	}
	defer unsubscribe()

	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	w.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case snap := <-updates:
			c.SSEvent(eventRefresh, snap.Status.String())
			w.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			w.Flush()
		}
	}
}
