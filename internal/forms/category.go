package forms

import (
	"strings"

	"catalog-admin/internal/catalog"
)

var categoryMessages = map[string]*ValidationError{
	"Name": {Field: "name", Message: "Category name is required", Err: catalog.ErrInvalidName},
}

type CategoryForm struct {
	Name        string `form:"name" validate:"required"`
	Description string `form:"description"`
}

func FromCategory(c catalog.Category) CategoryForm {
	return CategoryForm{Name: c.Name, Description: c.Description}
}

func (f CategoryForm) Category(id int64) (catalog.Category, error) {
	trimmed := CategoryForm{
		Name:        strings.TrimSpace(f.Name),
		Description: strings.TrimSpace(f.Description),
	}
	if err := check(trimmed, categoryMessages); err != nil {
		return catalog.Category{}, err
	}
	return catalog.Category{ID: id, Name: trimmed.Name, Description: trimmed.Description}, nil
}
