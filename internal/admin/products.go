package admin

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"catalog-admin/internal/catalog"
	"catalog-admin/internal/forms"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const formImageField = "imageFile"

type productsPage struct {
	layout
	Products []catalog.Product
	Error    string
}

type productFormPage struct {
	layout
	Editing         bool
	ProductID       int64
	Action          string
	Form            forms.ProductForm
	Categories      []catalog.Category
	CategoriesError string
	Message         string
	Field           string
}

type confirmPage struct {
	layout
	Name      string
	Action    string
	CancelURL string
}

func (s *Server) listProducts(c *gin.Context) {
	page := productsPage{layout: s.newLayout(c, "Products", "products")}
	page.Live = true
	page.LiveURL = "/events?view=" + viewProducts

	wait, cancel := s.pageContext(c)
	defer cancel()

	products, err := s.catalog.Products(wait)

	status := http.StatusOK
	switch {
	case err == nil, servingStale(err):
		page.Products = products
	case stillLoading(c, wait, err):
		page.Loading = true
	default:
		s.logFailure(c, "load products", err)
		page.Error = failureMessage(err, "Something went wrong")
		status = http.StatusBadGateway
	}

	c.HTML(status, "products.tmpl", page)
}

func (s *Server) newProduct(c *gin.Context) {
	s.renderProductForm(c, http.StatusOK, productFormPage{Action: "/products"})
}

func (s *Server) createProduct(c *gin.Context) {
	page := productFormPage{Action: "/products"}

	if err := c.ShouldBindWith(&page.Form, binding.FormMultipart); err != nil {
		page.Message = "Invalid form submission"
		s.renderProductForm(c, http.StatusBadRequest, page)
		return
	}

	image, err := uploadedImage(c)
	if err != nil {
		page.Message = "Could not read the selected image"
		s.renderProductForm(c, http.StatusBadRequest, page)
		return
	}

	product, err := page.Form.Product(0, image)
	if s.rejected(c, &page, err) {
		return
	}

	if _, err := s.catalog.CreateProduct(c.Request.Context(), product, image); err != nil {
		s.logFailure(c, "create product", err)
		page.Message = failureMessage(err, "Failed to create product")
		s.renderProductForm(c, http.StatusBadGateway, page)
		return
	}

	s.flash(c, flashSuccess, "Product created successfully")
	s.redirect(c, "/products")
}

func (s *Server) editProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		s.renderMessage(c, http.StatusNotFound, "Product not found", "The requested product does not exist.", "/products")
		return
	}

	product, err := s.catalog.Product(c.Request.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		s.renderMessage(c, http.StatusNotFound, "Product not found", "The requested product does not exist.", "/products")
		return
	}
	if err != nil {
		s.logFailure(c, "load product", err)
		s.renderMessage(c, http.StatusBadGateway, "Error", failureMessage(err, "Failed to load product"), "/products")
		return
	}

	s.renderProductForm(c, http.StatusOK, productFormPage{
		Editing:   true,
		ProductID: id,
		Action:    "/products/" + strconv.FormatInt(id, 10),
		Form:      forms.FromProduct(product),
	})
}

// updateProduct saves the edit form. Leaving the file input empty keeps the
// current image.
func (s *Server) updateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		s.renderMessage(c, http.StatusNotFound, "Product not found", "The requested product does not exist.", "/products")
		return
	}
	page := productFormPage{
		Editing:   true,
		ProductID: id,
		Action:    "/products/" + strconv.FormatInt(id, 10),
	}

	if err := c.ShouldBindWith(&page.Form, binding.FormMultipart); err != nil {
		page.Message = "Invalid form submission"
		s.renderProductForm(c, http.StatusBadRequest, page)
		return
	}

	image, err := uploadedImage(c)
	if err != nil {
		page.Message = "Could not read the selected image"
		s.renderProductForm(c, http.StatusBadRequest, page)
		return
	}

	product, err := page.Form.Product(id, image)
	if s.rejected(c, &page, err) {
		return
	}

	if _, err := s.catalog.UpdateProduct(c.Request.Context(), product, image); err != nil {
		s.logFailure(c, "update product", err)
		page.Message = failureMessage(err, "Failed to update product")
		s.renderProductForm(c, http.StatusBadGateway, page)
		return
	}

	s.flash(c, flashSuccess, "Product updated successfully")
	s.redirect(c, "/products")
}

func (s *Server) confirmDeleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	product, found := catalog.Product{}, false
	if ok {
		product, found = s.findProduct(c, id)
	}
	if !found {
		s.renderMessage(c, http.StatusNotFound, "Product not found", "The requested product does not exist.", "/products")
		return
	}

	name := product.Name
	if name == "" {
		name = "Unnamed Product"
	}
	c.HTML(http.StatusOK, "confirm_delete.tmpl", confirmPage{
		layout:    s.newLayout(c, "Delete Product", "products"),
		Name:      name,
		Action:    "/products/" + strconv.FormatInt(id, 10) + "/delete",
		CancelURL: "/products",
	})
}

func (s *Server) deleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		s.flash(c, flashError, "Failed to delete product")
		s.redirect(c, "/products")
		return
	}

	if err := s.catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		s.logFailure(c, "delete product", err)
		s.flash(c, flashError, failureMessage(err, "Failed to delete product"))
		s.redirect(c, "/products")
		return
	}

	s.flash(c, flashSuccess, "Product deleted successfully")
	s.redirect(c, "/products")
}

// findProduct looks id up in the cached product list, which avoids loading
// the product's image just to show its name.
func (s *Server) findProduct(c *gin.Context, id int64) (catalog.Product, bool) {
	products, err := s.catalog.Products(c.Request.Context())
	if err != nil {
		s.logFailure(c, "load products", err)
		return catalog.Product{}, false
	}
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return catalog.Product{}, false
}

// rejected renders the form with the validation message when err is a
// local validation failure.
func (s *Server) rejected(c *gin.Context, page *productFormPage, err error) bool {
	if err == nil {
		return false
	}

	var vErr *forms.ValidationError
	if errors.As(err, &vErr) {
		page.Message = vErr.Message
		page.Field = vErr.Field
	} else {
		page.Message = err.Error()
	}
	s.renderProductForm(c, http.StatusUnprocessableEntity, *page)
	return true
}

func (s *Server) renderProductForm(c *gin.Context, status int, page productFormPage) {
	title := "Create New Product"
	if page.Editing {
		title = "Edit Product"
	}
	page.layout = s.newLayout(c, title, "products")

	wait, cancel := s.pageContext(c)
	defer cancel()

	categories, err := s.catalog.Categories(wait)
	if err != nil && !servingStale(err) {
		page.CategoriesError = failureMessage(err, "Failed to load categories")
	}
	page.Categories = categories

	c.HTML(status, "product_form.tmpl", page)
}

// uploadedImage returns the selected image, or an empty image when the file
// input was left empty.
func uploadedImage(c *gin.Context) (catalog.Image, error) {
	fh, err := c.FormFile(formImageField)
	if errors.Is(err, http.ErrMissingFile) {
		return catalog.Image{}, nil
	}
	if err != nil {
		return catalog.Image{}, err
	}
	if fh.Size == 0 {
		return catalog.Image{}, nil
	}

	f, err := fh.Open()
	if err != nil {
		return catalog.Image{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return catalog.Image{}, err
	}

	mediaType := fh.Header.Get("Content-Type")
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = http.DetectContentType(data)
	}
	return catalog.Image{Name: fh.Filename, MediaType: mediaType, Data: data}, nil
}
