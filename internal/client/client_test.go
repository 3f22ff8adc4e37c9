package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"catalog-admin/internal/catalog"

	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	if _, err := New("catalog.local", time.Second, slog.Default()); err == nil {
		t.Fatal("expected error for relative base url")
	}
}

func TestClient_CategoryEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		call       func(c *Client) error
		wantMethod string
		wantPath   string
		wantBody   string
	}{
		{
			name:       "list",
			call:       func(c *Client) error { _, err := c.ListCategories(context.Background()); return err },
			wantMethod: http.MethodGet,
			wantPath:   "/categories",
		},
		{
			name: "create",
			call: func(c *Client) error {
				_, err := c.CreateCategory(context.Background(), catalog.Category{Name: "Books"})
				return err
			},
			wantMethod: http.MethodPost,
			wantPath:   "/categories",
			wantBody:   `{"id":0,"name":"Books","description":""}`,
		},
		{
			name: "update",
			call: func(c *Client) error {
				_, err := c.UpdateCategory(context.Background(), catalog.Category{ID: 4, Name: "Games"})
				return err
			},
			wantMethod: http.MethodPut,
			wantPath:   "/categories",
			wantBody:   `{"id":4,"name":"Games","description":""}`,
		},
		{
			name:       "delete",
			call:       func(c *Client) error { return c.DeleteCategory(context.Background(), 4) },
			wantMethod: http.MethodDelete,
			wantPath:   "/categories/4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != tt.wantMethod || r.URL.Path != tt.wantPath {
					t.Errorf("want %s %s, got %s %s", tt.wantMethod, tt.wantPath, r.Method, r.URL.Path)
				}
				body, _ := io.ReadAll(r.Body)
				if tt.wantBody != "" && string(body) != tt.wantBody {
					t.Errorf("want body %s, got %s", tt.wantBody, body)
				}
				switch r.Method {
				case http.MethodGet:
					_, _ = w.Write([]byte(`[{"id":1,"name":"Books"}]`))
				case http.MethodDelete:
					w.WriteHeader(http.StatusNoContent)
				default:
					_, _ = w.Write([]byte(`{"id":4,"name":"Games"}`))
				}
			})

			if err := tt.call(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestClient_SearchEncodesKeyword(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("search"); got != "red & blue" {
			t.Errorf("want keyword %q, got %q", "red & blue", got)
		}
		_, _ = w.Write([]byte(`[]`))
	})

	got, err := c.SearchProducts(context.Background(), "red & blue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("want no products, got %d", len(got))
	}
}

func TestClient_CreateProductMultipart(t *testing.T) {
	image := catalog.Image{Name: "mug.png", MediaType: "image/png", Data: []byte("png-bytes")}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/products" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}

		var p catalog.Product
		if err := json.Unmarshal([]byte(r.MultipartForm.Value["product"][0]), &p); err != nil {
			t.Errorf("decode product part: %v", err)
		}
		if p.Name != "Mug" || p.CategoryID() != 3 || !p.Available {
			t.Errorf("unexpected product part %+v", p)
		}

		files := r.MultipartForm.File["imageFile"]
		if len(files) != 1 {
			t.Errorf("want 1 image file, got %d", len(files))
			return
		}
		if files[0].Filename != "mug.png" || files[0].Header.Get("Content-Type") != "image/png" {
			t.Errorf("unexpected image header %+v", files[0].Header)
		}
		f, _ := files[0].Open()
		data, _ := io.ReadAll(f)
		if !bytes.Equal(data, image.Data) {
			t.Errorf("image bytes mismatch")
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":9,"name":"Mug","price":4.5}`))
	})

	created, err := c.CreateProduct(context.Background(), catalog.Product{
		Name:      "Mug",
		Price:     catalog.NewPrice(decimal.RequireFromString("4.5")),
		Category:  &catalog.Category{ID: 3},
		Available: true,
	}, image)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID != 9 {
		t.Fatalf("want id 9, got %d", created.ID)
	}
}

func TestClient_UpdateProductWithoutImageSendsEmptyPart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("want PUT, got %s", r.Method)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		if len(r.MultipartForm.File["imageFile"]) != 0 {
			t.Errorf("empty image must not arrive as a file")
		}
		if _, ok := r.MultipartForm.Value["imageFile"]; !ok {
			t.Errorf("empty image part missing")
		}
		_, _ = w.Write([]byte(`{"id":9,"name":"Mug"}`))
	})

	if _, err := c.UpdateProduct(context.Background(), catalog.Product{ID: 9, Name: "Mug"}, catalog.Image{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_ProductImage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/5/image" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
	})

	img, err := c.ProductImage(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.MediaType != "image/jpeg" || len(img.Data) != 3 {
		t.Fatalf("unexpected image %+v", img)
	}
}

func TestClient_ErrorResponses(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantMessage  string
		wantNotFound bool
	}{
		{name: "message field", status: http.StatusBadRequest, body: `{"message":"Category name already exists"}`, wantMessage: "Category name already exists"},
		{name: "error field", status: http.StatusInternalServerError, body: `{"error":"boom"}`, wantMessage: "boom"},
		{name: "plain text", status: http.StatusBadGateway, body: "upstream gone", wantMessage: "upstream gone"},
		{name: "html body", status: http.StatusBadGateway, body: "<html>oops</html>", wantMessage: ""},
		{name: "not found", status: http.StatusNotFound, body: `{"message":"product not found"}`, wantMessage: "product not found", wantNotFound: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.GetProduct(context.Background(), 1)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("want *APIError, got %v", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Fatalf("want status %d, got %d", tt.status, apiErr.StatusCode)
			}
			if Message(err) != tt.wantMessage {
				t.Fatalf("want message %q, got %q", tt.wantMessage, Message(err))
			}
			if errors.Is(err, catalog.ErrNotFound) != tt.wantNotFound {
				t.Fatalf("errors.Is(ErrNotFound) = %v, want %v", !tt.wantNotFound, tt.wantNotFound)
			}
		})
	}
}
