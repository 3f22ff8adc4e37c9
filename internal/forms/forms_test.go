package forms

import (
	"errors"
	"testing"

	"catalog-admin/internal/catalog"

	"github.com/shopspring/decimal"
)

var pngImage = catalog.Image{Name: "a.png", MediaType: "image/png", Data: []byte{1, 2, 3}}

func validProductForm() ProductForm {
	return ProductForm{
		Name:        "  Desk Lamp ",
		Description: " Warm light ",
		Price:       "24.99",
		Stock:       "7",
		CategoryID:  "3",
	}
}

func TestProductForm_Validation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(f *ProductForm)
		id        int64
		image     catalog.Image
		wantField string
		wantErr   error
	}{
		{name: "valid create", image: pngImage},
		{name: "valid edit without image", id: 4},
		{name: "zero price accepted", mutate: func(f *ProductForm) { f.Price = "0" }, image: pngImage},
		{name: "empty stock accepted", mutate: func(f *ProductForm) { f.Stock = "" }, image: pngImage},
		{name: "blank name", mutate: func(f *ProductForm) { f.Name = "   " }, image: pngImage, wantField: "name", wantErr: catalog.ErrInvalidName},
		{name: "missing price", mutate: func(f *ProductForm) { f.Price = "" }, image: pngImage, wantField: "price", wantErr: catalog.ErrInvalidPrice},
		{name: "negative price", mutate: func(f *ProductForm) { f.Price = "-1" }, image: pngImage, wantField: "price", wantErr: catalog.ErrInvalidPrice},
		{name: "non-numeric price", mutate: func(f *ProductForm) { f.Price = "ten" }, image: pngImage, wantField: "price", wantErr: catalog.ErrInvalidPrice},
		{name: "negative stock", mutate: func(f *ProductForm) { f.Stock = "-2" }, image: pngImage, wantField: "stock", wantErr: catalog.ErrInvalidQuantity},
		{name: "fractional stock", mutate: func(f *ProductForm) { f.Stock = "1.5" }, image: pngImage, wantField: "stock", wantErr: catalog.ErrInvalidQuantity},
		{name: "no category", mutate: func(f *ProductForm) { f.CategoryID = "" }, image: pngImage, wantField: "categoryId", wantErr: catalog.ErrInvalidCategory},
		{name: "create without image", wantField: "imageFile", wantErr: catalog.ErrImageRequired},
		{
			name:      "name is reported before price",
			mutate:    func(f *ProductForm) { f.Name = ""; f.Price = "-1" },
			image:     pngImage,
			wantField: "name",
			wantErr:   catalog.ErrInvalidName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validProductForm()
			if tt.mutate != nil {
				tt.mutate(&f)
			}

			p, err := f.Product(tt.id, tt.image)
			if tt.wantErr != nil {
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("want *ValidationError, got %v", err)
				}
				if vErr.Field != tt.wantField {
					t.Fatalf("want field %q, got %q", tt.wantField, vErr.Field)
				}
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want error wrapping %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.ID != tt.id {
				t.Fatalf("want id %d, got %d", tt.id, p.ID)
			}
			if p.CategoryID() != 3 || !p.Available {
				t.Fatalf("unexpected product %+v", p)
			}
		})
	}
}

func TestProductForm_TrimsAndConverts(t *testing.T) {
	f := validProductForm()
	f.Stock = ""

	p, err := f.Product(0, pngImage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "Desk Lamp" || p.Description != "Warm light" {
		t.Fatalf("values not trimmed: %+v", p)
	}
	if !p.Price.Equal(decimal.RequireFromString("24.99")) {
		t.Fatalf("want price 24.99, got %s", p.Price)
	}
	if p.Quantity != 0 {
		t.Fatalf("want quantity 0 for empty stock, got %d", p.Quantity)
	}
}

func TestFromProduct(t *testing.T) {
	f := FromProduct(catalog.Product{
		Name:     "Chair",
		Price:    catalog.NewPrice(decimal.RequireFromString("49.5")),
		Quantity: 2,
		Category: &catalog.Category{ID: 8},
	})
	if f.Name != "Chair" || f.Price != "49.5" || f.Stock != "2" || f.CategoryID != "8" {
		t.Fatalf("unexpected form %+v", f)
	}
}

func TestCategoryForm(t *testing.T) {
	tests := []struct {
		name    string
		form    CategoryForm
		wantErr bool
	}{
		{name: "valid", form: CategoryForm{Name: " Books ", Description: " Paper "}},
		{name: "description optional", form: CategoryForm{Name: "Games"}},
		{name: "empty name", form: CategoryForm{Name: ""}, wantErr: true},
		{name: "whitespace name", form: CategoryForm{Name: " \t "}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := tt.form.Category(5)
			if tt.wantErr {
				var vErr *ValidationError
				if !errors.As(err, &vErr) || vErr.Message != "Category name is required" {
					t.Fatalf("want category name validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.ID != 5 || c.Name == "" || c.Name[0] == ' ' {
				t.Fatalf("unexpected category %+v", c)
			}
		})
	}
}
