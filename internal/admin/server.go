// Package admin serves the catalog admin console: server-rendered pages that
// read through the request cache and a server-sent-events stream that tells
// open pages when the data behind them was refetched.
package admin

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"catalog-admin/internal/catalog"
	"catalog-admin/internal/client"
	"catalog-admin/internal/middleware"
	"catalog-admin/internal/querycache"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultPageWait = 2 * time.Second

	healthStatusOK        = "ok"
	healthStatusUnhealthy = "unhealthy"
)

//go:embed templates/*.tmpl static/placeholder.svg
var assets embed.FS

// Catalog is the cached catalog API the console reads and writes through.
type Catalog interface {
	Categories(ctx context.Context) ([]catalog.Category, error)
	Products(ctx context.Context) ([]catalog.Product, error)
	Product(ctx context.Context, id int64) (catalog.Product, error)
	Search(ctx context.Context, keyword string) ([]catalog.Product, error)
	ProductImage(ctx context.Context, id int64) (catalog.Image, error)

	CreateCategory(ctx context.Context, category catalog.Category) (catalog.Category, error)
	UpdateCategory(ctx context.Context, category catalog.Category) (catalog.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	CreateProduct(ctx context.Context, product catalog.Product, image catalog.Image) (catalog.Product, error)
	UpdateProduct(ctx context.Context, product catalog.Product, image catalog.Image) (catalog.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	WatchCategories(fn func(querycache.Snapshot)) (unsubscribe func())
	WatchProducts(fn func(querycache.Snapshot)) (unsubscribe func())
	WatchSearch(keyword string, fn func(querycache.Snapshot)) (unsubscribe func())
}

type HealthChecker interface {
	Health(ctx context.Context) error
}

type Options struct {
	// PageWait bounds how long a page waits for a cache fetch before it
	// renders its loading state.
	PageWait       time.Duration
	MaxUploadBytes int64
}

type Server struct {
	catalog     Catalog
	sessions    sessions.Store
	logger      *slog.Logger
	opts        Options
	placeholder []byte

	done     chan struct{}
	stopOnce sync.Once
}

func New(c Catalog, store sessions.Store, logger *slog.Logger, opts Options) (*Server, error) {
	if opts.PageWait <= 0 {
		opts.PageWait = defaultPageWait
	}

	placeholder, err := assets.ReadFile("static/placeholder.svg")
	if err != nil {
		return nil, err
	}

	return &Server{
		catalog:     c,
		sessions:    store,
		logger:      logger,
		opts:        opts,
		placeholder: placeholder,
		done:        make(chan struct{}),
	}, nil
}

// Shutdown ends every open events stream so the HTTP server can drain. It
// is meant for http.Server.RegisterOnShutdown and is safe to call twice.
func (s *Server) Shutdown() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *Server) RegisterRoutes(router *gin.Engine, checker HealthChecker) {
	router.SetHTMLTemplate(template.Must(template.New("").ParseFS(assets, "templates/*.tmpl")))

	router.GET("/", s.catalogPage)
	router.GET("/events", s.events)

	products := router.Group("/products")
	products.GET("", s.listProducts)
	products.GET("/new", s.newProduct)
	products.POST("", s.limitBody(), s.createProduct)
	products.GET("/:id/edit", s.editProduct)
	products.POST("/:id", s.limitBody(), s.updateProduct)
	products.GET("/:id/delete", s.confirmDeleteProduct)
	products.POST("/:id/delete", s.deleteProduct)
	products.GET("/:id/image", s.productImage)

	categories := router.Group("/categories")
	categories.GET("", s.listCategories)
	categories.GET("/new", s.newCategory)
	categories.POST("", s.limitBody(), s.createCategory)
	categories.GET("/:id/edit", s.editCategory)
	categories.POST("/:id", s.limitBody(), s.updateCategory)
	categories.GET("/:id/delete", s.confirmDeleteCategory)
	categories.POST("/:id/delete", s.deleteCategory)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		if err := checker.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": healthStatusUnhealthy})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": healthStatusOK})
	})
}

// layout is embedded by every page and drives the shared header and footer.
type layout struct {
	Title   string
	Nav     string
	Success []string
	Errors  []string
	Loading bool
	Live    bool
	LiveURL string
}

type messagePage struct {
	layout
	Message string
	BackURL string
}

// newLayout drains pending flash messages into the page. It must run
// before anything is written to the response.
func (s *Server) newLayout(c *gin.Context, title, nav string) layout {
	success, errs := s.takeFlashes(c)
	return layout{Title: title, Nav: nav, Success: success, Errors: errs}
}

func (s *Server) renderMessage(c *gin.Context, status int, title, message, back string) {
	c.HTML(status, "message.tmpl", messagePage{
		layout:  s.newLayout(c, title, ""),
		Message: message,
		BackURL: back,
	})
}

// pageContext bounds how long a page render waits on the cache. The fetch
// itself keeps running and lands in the cache for the next render.
func (s *Server) pageContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.opts.PageWait)
}

// servingStale reports whether the page stopped waiting on a refetch and
// got the previous value instead. The events stream reloads the page once
// the refetch lands.
func servingStale(err error) bool {
	return errors.Is(err, querycache.ErrStale)
}

// stillLoading reports whether err only means the page stopped waiting.
func stillLoading(c *gin.Context, wait context.Context, err error) bool {
	return err != nil &&
		errors.Is(wait.Err(), context.DeadlineExceeded) &&
		c.Request.Context().Err() == nil
}

func (s *Server) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.opts.MaxUploadBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)
		}
		c.Next()
	}
}

// failureMessage prefers the message the catalog service sent.
func failureMessage(err error, fallback string) string {
	if msg := client.Message(err); msg != "" {
		return msg
	}
	return fallback
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) redirect(c *gin.Context, location string) {
	c.Redirect(http.StatusSeeOther, location)
}

func (s *Server) logFailure(c *gin.Context, msg string, err error) {
	s.logger.Error(msg,
		"error", err,
		"path", c.Request.URL.Path,
		"request_id", middleware.RequestIDFrom(c),
	)
}
