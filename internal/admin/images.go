package admin

import (
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const contentTypeSVG = "image/svg+xml"

// productImage proxies the product image through the cache. Any failure,
// including a product without an image, renders the placeholder.
func (s *Server) productImage(c *gin.Context) {
	c.Header("Cache-Control", "no-cache")

	id, ok := pathID(c)
	if !ok {
		s.servePlaceholder(c)
		return
	}

	img, err := s.catalog.ProductImage(c.Request.Context(), id)
	if err != nil || img.Empty() {
		if err != nil {
			s.logger.Debug("product image unavailable", "product_id", id, "error", err)
		}
		s.servePlaceholder(c)
		return
	}

	mediaType, ok := rasterType(img.MediaType, img.Data)
	if !ok {
		s.servePlaceholder(c)
		return
	}
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, mediaType, img.Data)
}

// rasterType returns the media type to serve stored image bytes with.
// Anything that is not a raster image, SVG included, is refused.
func rasterType(declared string, data []byte) (string, bool) {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && isRaster(mt) {
		return mt, true
	}
	detected, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return detected, isRaster(detected)
}

func isRaster(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/") && mediaType != contentTypeSVG
}

func (s *Server) servePlaceholder(c *gin.Context) {
	c.Data(http.StatusOK, contentTypeSVG, s.placeholder)
}
