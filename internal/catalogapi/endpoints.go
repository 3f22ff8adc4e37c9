// Package catalogapi declares the catalog's query endpoints and mutations on
// top of the request cache. Which tags a query provides and which tags a
// mutation invalidates is kept in the two tables below rather than in the
// call sites.
package catalogapi

import (
	"catalog-admin/internal/querycache"
)

const (
	TagProduct  querycache.Tag = "Product"
	TagCategory querycache.Tag = "Category"
)

const (
	GetCategories   querycache.Endpoint = "getCategories"
	GetProducts     querycache.Endpoint = "getProducts"
	GetProductByID  querycache.Endpoint = "getProductById"
	SearchProducts  querycache.Endpoint = "searchProducts"
	GetProductImage querycache.Endpoint = "getProductImage"
)

const (
	CreateCategory querycache.Mutation = "createCategory"
	UpdateCategory querycache.Mutation = "updateCategory"
	DeleteCategory querycache.Mutation = "deleteCategory"
	CreateProduct  querycache.Mutation = "createProduct"
	UpdateProduct  querycache.Mutation = "updateProduct"
	DeleteProduct  querycache.Mutation = "deleteProduct"
)

var provides = map[querycache.Endpoint][]querycache.Tag{
	GetCategories:   {TagCategory},
	GetProducts:     {TagProduct},
	GetProductByID:  {TagProduct},
	SearchProducts:  {TagProduct},
	GetProductImage: {TagProduct},
}

var invalidates = map[querycache.Mutation][]querycache.Tag{
	CreateCategory: {TagCategory},
	UpdateCategory: {TagCategory},
	DeleteCategory: {TagCategory},
	CreateProduct:  {TagProduct},
	UpdateProduct:  {TagProduct},
	DeleteProduct:  {TagProduct},
}

// Tables returns copies of the endpoint and mutation tag tables.
func Tables() querycache.Tables {
	t := querycache.Tables{
		Provides:    make(map[querycache.Endpoint][]querycache.Tag, len(provides)),
		Invalidates: make(map[querycache.Mutation][]querycache.Tag, len(invalidates)),
	}
	for k, v := range provides {
		t.Provides[k] = append([]querycache.Tag(nil), v...)
	}
	for k, v := range invalidates {
		t.Invalidates[k] = append([]querycache.Tag(nil), v...)
	}
	return t
}
