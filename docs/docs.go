// Package docs is generated by swag from the godoc annotations in
// internal/catalog/http. Regenerate with:
//
//	swag init -g cmd/catalogd/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/categories": {
            "get": {
                "produces": ["application/json"],
                "tags": ["categories"],
                "summary": "List all categories",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/catalog.Category"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/http.errorResponse"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["categories"],
                "summary": "Update a category; the id travels in the body",
                "parameters": [{"description": "Category data", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.categoryRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/catalog.Category"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/http.errorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["categories"],
                "summary": "Create a category",
                "parameters": [{"description": "Category data", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.categoryRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/catalog.Category"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/http.errorResponse"}}
                }
            }
        },
        "/categories/{id}": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["categories"],
                "summary": "Delete a category by ID",
                "parameters": [{"type": "integer", "description": "Category ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/http.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/http.errorResponse"}}
                }
            }
        },
        "/products": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "List all products without image data",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/catalog.Product"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/http.errorResponse"}}
                }
            },
            "put": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Update a product; an empty imageFile keeps the stored image",
                "parameters": [
                    {"type": "string", "description": "Product JSON including id", "name": "product", "in": "formData", "required": true},
                    {"type": "file", "description": "Replacement image", "name": "imageFile", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/catalog.Product"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/http.errorResponse"}}
                }
            },
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Create a product with its image",
                "parameters": [
                    {"type": "string", "description": "Product JSON", "name": "product", "in": "formData", "required": true},
                    {"type": "file", "description": "Product image", "name": "imageFile", "in": "formData", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/catalog.Product"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/http.errorResponse"}}
                }
            }
        },
        "/products/search": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Search products by keyword",
                "parameters": [{"type": "string", "description": "Keyword", "name": "search", "in": "query"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/catalog.Product"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/http.errorResponse"}}
                }
            }
        },
        "/products/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Get a product, including its base64 image",
                "parameters": [{"type": "integer", "description": "Product ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/catalog.Product"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/http.errorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Delete a product by ID",
                "parameters": [{"type": "integer", "description": "Product ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/http.errorResponse"}}
                }
            }
        },
        "/products/{id}/image": {
            "get": {
                "produces": ["application/octet-stream"],
                "tags": ["products"],
                "summary": "Get the raw product image",
                "parameters": [{"type": "integer", "description": "Product ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "catalog.Category": {
            "type": "object",
            "properties": {
                "description": {"type": "string", "example": "Portable computers"},
                "id": {"type": "integer", "example": 1},
                "name": {"type": "string", "example": "Laptops"}
            }
        },
        "catalog.Product": {
            "type": "object",
            "properties": {
                "available": {"type": "boolean"},
                "category": {"$ref": "#/definitions/catalog.Category"},
                "description": {"type": "string"},
                "id": {"type": "integer"},
                "image": {"type": "string", "format": "byte"},
                "imageName": {"type": "string"},
                "imageType": {"type": "string"},
                "name": {"type": "string"},
                "price": {"type": "number"},
                "quantity": {"type": "integer"}
            }
        },
        "http.categoryRequest": {
            "type": "object",
            "properties": {
                "description": {"type": "string", "example": "Portable computers"},
                "id": {"type": "integer", "example": 1},
                "name": {"type": "string", "example": "Laptops"}
            }
        },
        "http.errorResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "Product not found"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Catalog API",
	Description:      "Product and category catalog with change events.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
