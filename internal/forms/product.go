package forms

import (
	"strconv"
	"strings"

	"catalog-admin/internal/catalog"
)

var productMessages = map[string]*ValidationError{
	"Name":       {Field: "name", Message: "Product name is required", Err: catalog.ErrInvalidName},
	"Price":      {Field: "price", Message: "Please enter a valid price", Err: catalog.ErrInvalidPrice},
	"Stock":      {Field: "stock", Message: "Please enter a valid stock quantity", Err: catalog.ErrInvalidQuantity},
	"CategoryID": {Field: "categoryId", Message: "Please select a category", Err: catalog.ErrInvalidCategory},
}

var errImageRequired = &ValidationError{
	Field:   "imageFile",
	Message: "Please select an image for the product",
	Err:     catalog.ErrImageRequired,
}

// ProductForm holds the raw values of the product create/edit form exactly
// as submitted, so they can be rendered back after a failure.
type ProductForm struct {
	Name        string `form:"name" validate:"required"`
	Description string `form:"description"`
	Price       string `form:"price" validate:"required,price"`
	Stock       string `form:"stock" validate:"omitempty,stock"`
	CategoryID  string `form:"categoryId" validate:"required,ref"`
}

// FromProduct prefills the form for editing.
func FromProduct(p catalog.Product) ProductForm {
	f := ProductForm{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.String(),
		Stock:       strconv.Itoa(p.Quantity),
	}
	if id := p.CategoryID(); id > 0 {
		f.CategoryID = strconv.FormatInt(id, 10)
	}
	return f
}

// Product validates the form and builds the product to send. id is zero
// when creating; an image is only required in that case.
func (f ProductForm) Product(id int64, image catalog.Image) (catalog.Product, error) {
	trimmed := ProductForm{
		Name:        strings.TrimSpace(f.Name),
		Description: strings.TrimSpace(f.Description),
		Price:       strings.TrimSpace(f.Price),
		Stock:       strings.TrimSpace(f.Stock),
		CategoryID:  strings.TrimSpace(f.CategoryID),
	}

	if err := check(trimmed, productMessages); err != nil {
		return catalog.Product{}, err
	}
	if id == 0 && image.Empty() {
		return catalog.Product{}, errImageRequired
	}

	price, _ := catalog.ParsePrice(trimmed.Price)
	quantity := 0
	if trimmed.Stock != "" {
		quantity, _ = strconv.Atoi(trimmed.Stock)
	}
	categoryID, _ := strconv.ParseInt(trimmed.CategoryID, 10, 64)

	return catalog.Product{
		ID:          id,
		Name:        trimmed.Name,
		Description: trimmed.Description,
		Price:       price,
		Quantity:    quantity,
		Category:    &catalog.Category{ID: categoryID},
		Available:   true,
	}, nil
}
