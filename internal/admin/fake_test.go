package admin

import (
	"context"
	"errors"
	"sync"

	"catalog-admin/internal/catalog"
)

// fakeClient is an in-memory catalog service that records every call.
type fakeClient struct {
	mu         sync.Mutex
	categories []catalog.Category
	products   []catalog.Product
	images     map[int64]catalog.Image
	nextID     int64
	calls      map[string]int

	listProductsGate chan struct{}
	failWith         map[string]error
	lastImage        catalog.Image
	lastProduct      catalog.Product
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		images: make(map[int64]catalog.Image),
		nextID: 100,
		calls:  make(map[string]int),
	}
}

func (f *fakeClient) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.failWith[name]
}

func (f *fakeClient) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeClient) fail(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith == nil {
		f.failWith = make(map[string]error)
	}
	f.failWith[name] = err
}

// gateListProducts makes later ListProducts calls block until the returned
// channel is closed.
func (f *fakeClient) gateListProducts() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listProductsGate = make(chan struct{})
	return f.listProductsGate
}

func (f *fakeClient) ListCategories(context.Context) ([]catalog.Category, error) {
	if err := f.record("ListCategories"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]catalog.Category(nil), f.categories...), nil
}

func (f *fakeClient) CreateCategory(_ context.Context, c catalog.Category) (catalog.Category, error) {
	if err := f.record("CreateCategory"); err != nil {
		return catalog.Category{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c.ID = f.nextID
	f.categories = append(f.categories, c)
	return c, nil
}

func (f *fakeClient) UpdateCategory(_ context.Context, c catalog.Category) (catalog.Category, error) {
	if err := f.record("UpdateCategory"); err != nil {
		return catalog.Category{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.categories {
		if f.categories[i].ID == c.ID {
			f.categories[i] = c
			return c, nil
		}
	}
	return catalog.Category{}, catalog.ErrNotFound
}

func (f *fakeClient) DeleteCategory(_ context.Context, id int64) error {
	if err := f.record("DeleteCategory"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.categories[:0]
	for _, c := range f.categories {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	f.categories = kept
	return nil
}

func (f *fakeClient) ListProducts(context.Context) ([]catalog.Product, error) {
	if err := f.record("ListProducts"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	gate := f.listProductsGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]catalog.Product(nil), f.products...), nil
}

func (f *fakeClient) GetProduct(_ context.Context, id int64) (catalog.Product, error) {
	if err := f.record("GetProduct"); err != nil {
		return catalog.Product{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return catalog.Product{}, catalog.ErrNotFound
}

func (f *fakeClient) SearchProducts(_ context.Context, keyword string) ([]catalog.Product, error) {
	if err := f.record("SearchProducts"); err != nil {
		return nil, err
	}
	return []catalog.Product{}, nil
}

func (f *fakeClient) CreateProduct(_ context.Context, p catalog.Product, img catalog.Image) (catalog.Product, error) {
	if err := f.record("CreateProduct"); err != nil {
		return catalog.Product{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	f.products = append(f.products, p)
	f.images[p.ID] = img
	f.lastProduct, f.lastImage = p, img
	return p, nil
}

func (f *fakeClient) UpdateProduct(_ context.Context, p catalog.Product, img catalog.Image) (catalog.Product, error) {
	if err := f.record("UpdateProduct"); err != nil {
		return catalog.Product{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastProduct, f.lastImage = p, img
	if !img.Empty() {
		f.images[p.ID] = img
	}
	return p, nil
}

func (f *fakeClient) DeleteProduct(_ context.Context, id int64) error {
	return f.record("DeleteProduct")
}

func (f *fakeClient) ProductImage(_ context.Context, id int64) (catalog.Image, error) {
	if err := f.record("ProductImage"); err != nil {
		return catalog.Image{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[id]
	if !ok {
		return catalog.Image{}, errors.New("no image")
	}
	return img, nil
}
