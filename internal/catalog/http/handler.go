package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"catalog-admin/internal/catalog"

	"github.com/gin-gonic/gin"
)

const (
	partProduct = "product"
	partImage   = "imageFile"
)

type CatalogService interface {
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	CreateCategory(ctx context.Context, c catalog.Category) (catalog.Category, error)
	UpdateCategory(ctx context.Context, c catalog.Category) (catalog.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	ListProducts(ctx context.Context) ([]catalog.Product, error)
	SearchProducts(ctx context.Context, keyword string) ([]catalog.Product, error)
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
	ProductImage(ctx context.Context, id int64) (catalog.Image, error)
	CreateProduct(ctx context.Context, p catalog.Product, img catalog.Image) (catalog.Product, error)
	UpdateProduct(ctx context.Context, p catalog.Product, img catalog.Image) (catalog.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

type Handler struct {
	service        CatalogService
	maxUploadBytes int64
}

func NewHandler(svc CatalogService, maxUploadBytes int64) *Handler {
	return &Handler{service: svc, maxUploadBytes: maxUploadBytes}
}

type categoryRequest struct {
	ID          int64  `json:"id" example:"1"`
	Name        string `json:"name" example:"Laptops"`
	Description string `json:"description" example:"Portable computers"`
}

// requestError is a malformed request; its text is returned to the caller.
type requestError string

func (e requestError) Error() string { return string(e) }

type errorResponse struct {
	Message string `json:"message" example:"Product not found"`
}

var userMessages = map[error]string{
	catalog.ErrInvalidName:      "Name is required",
	catalog.ErrInvalidPrice:     "Price must be a non-negative number",
	catalog.ErrInvalidQuantity:  "Quantity must be a non-negative whole number",
	catalog.ErrInvalidCategory:  "Category does not exist",
	catalog.ErrImageRequired:    "Product image is required",
	catalog.ErrCategoryNotFound: "Category not found",
	catalog.ErrProductNotFound:  "Product not found",
	catalog.ErrNotFound:         "Not found",
	catalog.ErrCategoryInUse:    "Category still has products and cannot be deleted",
}

// ListCategories godoc
// @Summary      List all categories
// @Tags         categories
// @Produce      json
// @Success      200  {array}   catalog.Category
// @Failure      500  {object}  errorResponse
// @Router       /categories [get]
func (h *Handler) ListCategories(c *gin.Context) {
	list, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to get categories")
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreateCategory godoc
// @Summary      Create a category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        body  body      categoryRequest  true  "Category data"
// @Success      201   {object}  catalog.Category
// @Failure      400   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /categories [post]
func (h *Handler) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
		return
	}

	created, err := h.service.CreateCategory(c.Request.Context(), catalog.Category{Name: req.Name, Description: req.Description})
	if err != nil {
		h.fail(c, err, "Failed to create category")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateCategory godoc
// @Summary      Update a category; the id travels in the body
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        body  body      categoryRequest  true  "Category data"
// @Success      200   {object}  catalog.Category
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /categories [put]
func (h *Handler) UpdateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
		return
	}

	updated, err := h.service.UpdateCategory(c.Request.Context(), catalog.Category(req))
	if err != nil {
		h.fail(c, err, "Failed to update category")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteCategory godoc
// @Summary      Delete a category by ID
// @Tags         categories
// @Produce      json
// @Param        id   path      int  true  "Category ID"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /categories/{id} [delete]
func (h *Handler) DeleteCategory(c *gin.Context) {
	id, ok := pathID(c, "Invalid category id")
	if !ok {
		return
	}

	if err := h.service.DeleteCategory(c.Request.Context(), id); err != nil {
		h.fail(c, err, "Failed to delete category")
		return
	}
	c.Status(http.StatusNoContent)
}

// ListProducts godoc
// @Summary      List all products without image data
// @Tags         products
// @Produce      json
// @Success      200  {array}   catalog.Product
// @Failure      500  {object}  errorResponse
// @Router       /products [get]
func (h *Handler) ListProducts(c *gin.Context) {
	list, err := h.service.ListProducts(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to get products")
		return
	}
	c.JSON(http.StatusOK, list)
}

// SearchProducts godoc
// @Summary      Search products by keyword
// @Tags         products
// @Produce      json
// @Param        search  query     string  false  "Keyword"
// @Success      200     {array}   catalog.Product
// @Failure      500     {object}  errorResponse
// @Router       /products/search [get]
func (h *Handler) SearchProducts(c *gin.Context) {
	list, err := h.service.SearchProducts(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.fail(c, err, "Failed to search products")
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetProduct godoc
// @Summary      Get a product, including its base64 image
// @Tags         products
// @Produce      json
// @Param        id   path      int  true  "Product ID"
// @Success      200  {object}  catalog.Product
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /products/{id} [get]
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := pathID(c, "Invalid product id")
	if !ok {
		return
	}

	p, err := h.service.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to get product")
		return
	}
	c.JSON(http.StatusOK, p)
}

// ProductImage godoc
// @Summary      Get the raw product image
// @Tags         products
// @Produce      octet-stream
// @Param        id   path      int  true  "Product ID"
// @Success      200  {file}    binary
// @Failure      404  {object}  errorResponse
// @Router       /products/{id}/image [get]
func (h *Handler) ProductImage(c *gin.Context) {
	id, ok := pathID(c, "Invalid product id")
	if !ok {
		return
	}

	img, err := h.service.ProductImage(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to get product image")
		return
	}

	mediaType := img.MediaType
	if mediaType == "" {
		mediaType = http.DetectContentType(img.Data)
	}
	c.Data(http.StatusOK, mediaType, img.Data)
}

// CreateProduct godoc
// @Summary      Create a product with its image
// @Tags         products
// @Accept       mpfd
// @Produce      json
// @Param        product    formData  string  true  "Product JSON"
// @Param        imageFile  formData  file    true  "Product image"
// @Success      201        {object}  catalog.Product
// @Failure      400        {object}  errorResponse
// @Failure      500        {object}  errorResponse
// @Router       /products [post]
func (h *Handler) CreateProduct(c *gin.Context) {
	p, img, err := h.readProductForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Message: err.Error()})
		return
	}

	created, err := h.service.CreateProduct(c.Request.Context(), p, img)
	if err != nil {
		h.fail(c, err, "Failed to create product")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateProduct godoc
// @Summary      Update a product; an empty imageFile keeps the stored image
// @Tags         products
// @Accept       mpfd
// @Produce      json
// @Param        product    formData  string  true   "Product JSON including id"
// @Param        imageFile  formData  file    false  "Replacement image"
// @Success      200        {object}  catalog.Product
// @Failure      400        {object}  errorResponse
// @Failure      404        {object}  errorResponse
// @Failure      500        {object}  errorResponse
// @Router       /products [put]
func (h *Handler) UpdateProduct(c *gin.Context) {
	p, img, err := h.readProductForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Message: err.Error()})
		return
	}

	updated, err := h.service.UpdateProduct(c.Request.Context(), p, img)
	if err != nil {
		h.fail(c, err, "Failed to update product")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteProduct godoc
// @Summary      Delete a product by ID
// @Tags         products
// @Produce      json
// @Param        id   path      int  true  "Product ID"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /products/{id} [delete]
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c, "Invalid product id")
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(c.Request.Context(), id); err != nil {
		h.fail(c, err, "Failed to delete product")
		return
	}
	c.Status(http.StatusNoContent)
}

// readProductForm decodes the "product" JSON part, sent either as a plain
// value or as a file part, and the optional "imageFile" part. A missing or
// empty image part yields an empty image.
func (h *Handler) readProductForm(c *gin.Context) (catalog.Product, catalog.Image, error) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	form, err := c.MultipartForm()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return catalog.Product{}, catalog.Image{}, requestError(fmt.Sprintf("Request exceeds %d bytes", maxErr.Limit))
		}
		return catalog.Product{}, catalog.Image{}, requestError("Invalid multipart request")
	}

	raw, err := productPart(form)
	if err != nil {
		return catalog.Product{}, catalog.Image{}, err
	}

	var p catalog.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return catalog.Product{}, catalog.Image{}, requestError("Invalid product payload")
	}

	img, err := imagePart(form)
	if err != nil {
		return catalog.Product{}, catalog.Image{}, err
	}
	return p, img, nil
}

func productPart(form *multipart.Form) ([]byte, error) {
	if values := form.Value[partProduct]; len(values) > 0 {
		return []byte(values[0]), nil
	}
	if files := form.File[partProduct]; len(files) > 0 {
		return readFile(files[0])
	}
	return nil, requestError("Missing product part")
}

func imagePart(form *multipart.Form) (catalog.Image, error) {
	files := form.File[partImage]
	if len(files) == 0 || files[0].Size == 0 {
		return catalog.Image{}, nil
	}

	data, err := readFile(files[0])
	if err != nil {
		return catalog.Image{}, err
	}
	mediaType := files[0].Header.Get("Content-Type")
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = http.DetectContentType(data)
	}
	return catalog.Image{Name: files[0].Filename, MediaType: mediaType, Data: data}, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, requestError("Unreadable upload")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, requestError("Unreadable upload")
	}
	return data, nil
}

func pathID(c *gin.Context, message string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Message: message})
		return 0, false
	}
	return id, true
}

// fail maps service errors to a status and a message the console can show
// as is. Unknown errors are reported with fallback.
func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, catalog.ErrInvalidName),
		errors.Is(err, catalog.ErrInvalidPrice),
		errors.Is(err, catalog.ErrInvalidQuantity),
		errors.Is(err, catalog.ErrInvalidCategory),
		errors.Is(err, catalog.ErrImageRequired):
		status = http.StatusBadRequest
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrCategoryNotFound),
		errors.Is(err, catalog.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, catalog.ErrCategoryInUse):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, errorResponse{Message: fallback})
		return
	}

	for sentinel, msg := range userMessages {
		if errors.Is(err, sentinel) {
			c.JSON(status, errorResponse{Message: msg})
			return
		}
	}
	c.JSON(status, errorResponse{Message: fallback})
}
