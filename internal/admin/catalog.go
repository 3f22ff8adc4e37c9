package admin

import (
	"net/http"
	"net/url"
	"strings"

	"catalog-admin/internal/catalog"

	"github.com/gin-gonic/gin"
)

type catalogPage struct {
	layout
	Search   string
	Products []catalog.Product
	Error    string
}

// catalogPage renders the product grid. A non-blank search term reads the
// search entry for that term; otherwise the full product list is shown.
func (s *Server) catalogPage(c *gin.Context) {
	term := strings.TrimSpace(c.Query("search"))

	page := catalogPage{
		layout: s.newLayout(c, "Catalog", "catalog"),
		Search: term,
	}
	page.Live = true
	page.LiveURL = "/events?view=" + viewCatalog
	if term != "" {
		page.LiveURL += "&search=" + url.QueryEscape(term)
	}

	wait, cancel := s.pageContext(c)
	defer cancel()

	var (
		products []catalog.Product
		err      error
	)
	if term != "" {
		products, err = s.catalog.Search(wait, term)
	} else {
		products, err = s.catalog.Products(wait)
	}

	status := http.StatusOK
	switch {
	case err == nil, servingStale(err):
		page.Products = products
	case stillLoading(c, wait, err):
		page.Loading = true
	default:
		s.logFailure(c, "load catalog", err)
		page.Error = failureMessage(err, "Something went wrong")
		status = http.StatusBadGateway
	}

	c.HTML(status, "catalog.tmpl", page)
}
