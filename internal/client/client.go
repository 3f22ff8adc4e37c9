package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"catalog-admin/internal/catalog"
)

const (
	categoriesPath = "/categories"
	productsPath   = "/products"

	contentTypeJSON   = "application/json"
	contentTypeBinary = "application/octet-stream"

	partProduct = "product"
	partImage   = "imageFile"

	maxErrorBody = 64 << 10
)

// APIError is a non-2xx response from the catalog service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("catalog api: %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("catalog api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Is lets errors.Is(err, catalog.ErrNotFound) match a 404.
func (e *APIError) Is(target error) bool {
	return target == catalog.ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Message returns the server-provided message carried by err, if any.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *slog.Logger
}

func New(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	var out []catalog.Category
	if err := c.doJSON(ctx, http.MethodGet, categoriesPath, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (c *Client) CreateCategory(ctx context.Context, category catalog.Category) (catalog.Category, error) {
	var out catalog.Category
	if err := c.doJSON(ctx, http.MethodPost, categoriesPath, nil, category, &out); err != nil {
		return catalog.Category{}, fmt.Errorf("create category: %w", err)
	}
	return out, nil
}

func (c *Client) UpdateCategory(ctx context.Context, category catalog.Category) (catalog.Category, error) {
	var out catalog.Category
	if err := c.doJSON(ctx, http.MethodPut, categoriesPath, nil, category, &out); err != nil {
		return catalog.Category{}, fmt.Errorf("update category %d: %w", category.ID, err)
	}
	return out, nil
}

func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	if err := c.doJSON(ctx, http.MethodDelete, categoriesPath+"/"+strconv.FormatInt(id, 10), nil, nil, nil); err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	return nil
}

func (c *Client) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	var out []catalog.Product
	if err := c.doJSON(ctx, http.MethodGet, productsPath, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (catalog.Product, error) {
	var out catalog.Product
	if err := c.doJSON(ctx, http.MethodGet, productPath(id), nil, nil, &out); err != nil {
		return catalog.Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return out, nil
}

func (c *Client) SearchProducts(ctx context.Context, keyword string) ([]catalog.Product, error) {
	var out []catalog.Product
	query := url.Values{"search": {keyword}}
	if err := c.doJSON(ctx, http.MethodGet, productsPath+"/search", query, nil, &out); err != nil {
		return nil, fmt.Errorf("search products %q: %w", keyword, err)
	}
	return out, nil
}

// CreateProduct sends the product and its image as a multipart request.
func (c *Client) CreateProduct(ctx context.Context, product catalog.Product, image catalog.Image) (catalog.Product, error) {
	var out catalog.Product
	if err := c.doMultipart(ctx, http.MethodPost, product, image, &out); err != nil {
		return catalog.Product{}, fmt.Errorf("create product: %w", err)
	}
	return out, nil
}

// UpdateProduct sends the product by id. An empty image is sent as an empty
// file part, which the service treats as "keep the current image".
func (c *Client) UpdateProduct(ctx context.Context, product catalog.Product, image catalog.Image) (catalog.Product, error) {
	var out catalog.Product
	if err := c.doMultipart(ctx, http.MethodPut, product, image, &out); err != nil {
		return catalog.Product{}, fmt.Errorf("update product %d: %w", product.ID, err)
	}
	return out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	if err := c.doJSON(ctx, http.MethodDelete, productPath(id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	return nil
}

func (c *Client) ProductImage(ctx context.Context, id int64) (catalog.Image, error) {
	req, err := c.newRequest(ctx, http.MethodGet, productPath(id)+"/image", nil, nil)
	if err != nil {
		return catalog.Image{}, err
	}

	resp, err := c.send(req)
	if err != nil {
		return catalog.Image{}, fmt.Errorf("get product %d image: %w", id, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return catalog.Image{}, fmt.Errorf("read product %d image: %w", id, err)
	}

	mediaType := resp.Header.Get("Content-Type")
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}
	return catalog.Image{MediaType: mediaType, Data: data}, nil
}

// Health reports whether the catalog service answers a cheap read.
func (c *Client) Health(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, categoriesPath, nil, nil)
	if err != nil {
		return err
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}
	req.Header.Set("Accept", contentTypeJSON)

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeBody(resp, out)
}

func (c *Client) doMultipart(ctx context.Context, method string, product catalog.Product, image catalog.Image, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	payload, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q`, partProduct))
	header.Set("Content-Type", contentTypeJSON)
	part, err := w.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create product part: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return fmt.Errorf("write product part: %w", err)
	}

	mediaType := image.MediaType
	if mediaType == "" {
		mediaType = contentTypeBinary
	}
	header = make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, partImage, image.Name))
	header.Set("Content-Type", mediaType)
	part, err = w.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create image part: %w", err)
	}
	if _, err := part.Write(image.Data); err != nil {
		return fmt.Errorf("write image part: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, method, productsPath, nil, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", contentTypeJSON)

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeBody(resp, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return req, nil
}

// send performs req and converts non-2xx responses into *APIError. On
// success the caller owns the response body.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("catalog api request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	return nil, &APIError{
		StatusCode: resp.StatusCode,
		Message:    errorMessage(io.LimitReader(resp.Body, maxErrorBody)),
	}
}

func decodeBody(resp *http.Response, out any) error {
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage extracts {"message": ...} or {"error": ...} from an error
// body, falling back to the trimmed body when it is short plain text.
func errorMessage(r io.Reader) string {
	raw, err := io.ReadAll(r)
	if err != nil || len(raw) == 0 {
		return ""
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		return payload.Error
	}

	text := strings.TrimSpace(string(raw))
	if len(text) > 200 || strings.HasPrefix(text, "<") {
		return ""
	}
	return text
}

func productPath(id int64) string {
	return productsPath + "/" + strconv.FormatInt(id, 10)
}
