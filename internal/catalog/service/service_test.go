package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"catalog-admin/internal/catalog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

type mockRepo struct {
	listCategoriesFn func(ctx context.Context) ([]catalog.Category, error)
	createCategoryFn func(ctx context.Context, c catalog.Category) (catalog.Category, error)
	updateCategoryFn func(ctx context.Context, c catalog.Category) (catalog.Category, error)
	deleteCategoryFn func(ctx context.Context, id int64) error
	listProductsFn   func(ctx context.Context) ([]catalog.Product, error)
	searchProductsFn func(ctx context.Context, keyword string) ([]catalog.Product, error)
	getProductFn     func(ctx context.Context, id int64) (catalog.Product, error)
	productImageFn   func(ctx context.Context, id int64) (catalog.Image, error)
	createProductFn  func(ctx context.Context, p catalog.Product, img catalog.Image) (catalog.Product, error)
	updateProductFn  func(ctx context.Context, p catalog.Product, img catalog.Image) (catalog.Product, error)
	deleteProductFn  func(ctx context.Context, id int64) error
}

func (m *mockRepo) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	return m.listCategoriesFn(ctx)
}
func (m *mockRepo) CreateCategory(ctx context.Context, c catalog.Category) (catalog.Category, error) {
	return m.createCategoryFn(ctx, c)
}
func (m *mockRepo) UpdateCategory(ctx context.Context, c catalog.Category) (catalog.Category, error) {
	return m.updateCategoryFn(ctx, c)
}
func (m *mockRepo) DeleteCategory(ctx context.Context, id int64) error {
	return m.deleteCategoryFn(ctx, id)
}
func (m *mockRepo) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	return m.listProductsFn(ctx)
}
func (m *mockRepo) SearchProducts(ctx context.Context, keyword string) ([]catalog.Product, error) {
	return m.searchProductsFn(ctx, keyword)
}
func (m *mockRepo) GetProduct(ctx context.Context, id int64) (catalog.Product, error) {
	return m.getProductFn(ctx, id)
}
func (m *mockRepo) ProductImage(ctx context.Context, id int64) (catalog.Image, error) {
	return m.productImageFn(ctx, id)
}
func (m *mockRepo) CreateProduct(ctx context.Context, p catalog.Product, img catalog.Image) (catalog.Product, error) {
	return m.createProductFn(ctx, p, img)
}
func (m *mockRepo) UpdateProduct(ctx context.Context, p catalog.Product, img catalog.Image) (catalog.Product, error) {
	return m.updateProductFn(ctx, p, img)
}
func (m *mockRepo) DeleteProduct(ctx context.Context, id int64) error {
	return m.deleteProductFn(ctx, id)
}

type mockPublisher struct {
	events []catalog.Event
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, event catalog.Event) error {
	m.events = append(m.events, event)
	return m.err
}

func newTestService(repo Repository, pub Publisher) (*Service, *prometheus.CounterVec) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	changes := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "t_changes", Help: "t"}, []string{"entity", "event"})
	return New(repo, pub, logger, changes), changes
}

func defaultRepo() *mockRepo {
	return &mockRepo{
		listCategoriesFn: func(context.Context) ([]catalog.Category, error) { return nil, nil },
		createCategoryFn: func(_ context.Context, c catalog.Category) (catalog.Category, error) {
			c.ID = 1
			return c, nil
		},
		updateCategoryFn: func(_ context.Context, c catalog.Category) (catalog.Category, error) { return c, nil },
		deleteCategoryFn: func(context.Context, int64) error { return nil },
		listProductsFn:   func(context.Context) ([]catalog.Product, error) { return []catalog.Product{{ID: 1}}, nil },
		searchProductsFn: func(context.Context, string) ([]catalog.Product, error) { return []catalog.Product{}, nil },
		getProductFn:     func(_ context.Context, id int64) (catalog.Product, error) { return catalog.Product{ID: id}, nil },
		productImageFn:   func(context.Context, int64) (catalog.Image, error) { return catalog.Image{}, nil },
		createProductFn: func(_ context.Context, p catalog.Product, _ catalog.Image) (catalog.Product, error) {
			p.ID = 10
			return p, nil
		},
		updateProductFn: func(_ context.Context, p catalog.Product, _ catalog.Image) (catalog.Product, error) { return p, nil },
		deleteProductFn: func(context.Context, int64) error { return nil },
	}
}

func validProduct() catalog.Product {
	return catalog.Product{
		Name:      " Lamp ",
		Price:     catalog.NewPrice(decimal.RequireFromString("0")),
		Quantity:  1,
		Category:  &catalog.Category{ID: 2},
		Available: true,
	}
}

var testImage = catalog.Image{Name: "a.png", MediaType: "image/png", Data: []byte{1}}

func TestCreateCategory(t *testing.T) {
	errDB := errors.New("db down")

	tests := []struct {
		name      string
		input     catalog.Category
		repoErr   error
		wantErr   error
		wantName  string
		wantEvent bool
	}{
		{name: "success", input: catalog.Category{Name: " Books "}, wantName: "Books", wantEvent: true},
		{name: "blank name", input: catalog.Category{Name: "  "}, wantErr: catalog.ErrInvalidName},
		{name: "repo error", input: catalog.Category{Name: "Books"}, repoErr: errDB, wantErr: errDB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := defaultRepo()
			called := false
			repo.createCategoryFn = func(_ context.Context, c catalog.Category) (catalog.Category, error) {
				called = true
				if tt.repoErr != nil {
					return catalog.Category{}, tt.repoErr
				}
				c.ID = 1
				return c, nil
			}
			pub := &mockPublisher{}
			svc, changes := newTestService(repo, pub)

			got, err := svc.CreateCategory(context.Background(), tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want error %v, got %v", tt.wantErr, err)
				}
				if errors.Is(tt.wantErr, catalog.ErrInvalidName) && called {
					t.Fatal("repository must not be called for an invalid name")
				}
				if len(pub.events) != 0 {
					t.Fatalf("want no events, got %d", len(pub.events))
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Name != tt.wantName {
				t.Fatalf("want name %q, got %q", tt.wantName, got.Name)
			}
			if len(pub.events) != 1 {
				t.Fatalf("want 1 event, got %d", len(pub.events))
			}
			ev := pub.events[0]
			if ev.Entity != catalog.EntityCategory || ev.EventType != catalog.EventCreated || ev.EntityID != 1 {
				t.Fatalf("unexpected event %+v", ev)
			}
			if v := testutil.ToFloat64(changes.WithLabelValues(catalog.EntityCategory, catalog.EventCreated)); v != 1 {
				t.Fatalf("want counter 1, got %v", v)
			}
		})
	}
}

func TestUpdateCategory_UnknownID(t *testing.T) {
	svc, _ := newTestService(defaultRepo(), &mockPublisher{})
	_, err := svc.UpdateCategory(context.Background(), catalog.Category{Name: "Books"})
	if !errors.Is(err, catalog.ErrCategoryNotFound) {
		t.Fatalf("want ErrCategoryNotFound, got %v", err)
	}
}

func TestDeleteCategory_InUse(t *testing.T) {
	repo := defaultRepo()
	repo.deleteCategoryFn = func(context.Context, int64) error { return catalog.ErrCategoryInUse }
	pub := &mockPublisher{}
	svc, _ := newTestService(repo, pub)

	err := svc.DeleteCategory(context.Background(), 3)
	if !errors.Is(err, catalog.ErrCategoryInUse) {
		t.Fatalf("want ErrCategoryInUse, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("want no events, got %d", len(pub.events))
	}
}

func TestCreateProduct(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *catalog.Product)
		image   catalog.Image
		wantErr error
	}{
		{name: "success with zero price", image: testImage},
		{name: "blank name", mutate: func(p *catalog.Product) { p.Name = " " }, image: testImage, wantErr: catalog.ErrInvalidName},
		{
			name:    "negative price",
			mutate:  func(p *catalog.Product) { p.Price = catalog.NewPrice(decimal.NewFromInt(-1)) },
			image:   testImage,
			wantErr: catalog.ErrInvalidPrice,
		},
		{name: "negative quantity", mutate: func(p *catalog.Product) { p.Quantity = -1 }, image: testImage, wantErr: catalog.ErrInvalidQuantity},
		{name: "no category", mutate: func(p *catalog.Product) { p.Category = nil }, image: testImage, wantErr: catalog.ErrInvalidCategory},
		{name: "no image", wantErr: catalog.ErrImageRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &mockPublisher{}
			svc, _ := newTestService(defaultRepo(), pub)

			p := validProduct()
			if tt.mutate != nil {
				tt.mutate(&p)
			}

			got, err := svc.CreateProduct(context.Background(), p, tt.image)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Name != "Lamp" {
				t.Fatalf("want trimmed name, got %q", got.Name)
			}
			if len(pub.events) != 1 || pub.events[0].EventType != catalog.EventCreated {
				t.Fatalf("want one created event, got %+v", pub.events)
			}
		})
	}
}

func TestUpdateProduct_PassesEmptyImageThrough(t *testing.T) {
	repo := defaultRepo()
	var gotImage catalog.Image
	repo.updateProductFn = func(_ context.Context, p catalog.Product, img catalog.Image) (catalog.Product, error) {
		gotImage = img
		return p, nil
	}
	svc, _ := newTestService(repo, &mockPublisher{})

	p := validProduct()
	p.ID = 4
	if _, err := svc.UpdateProduct(context.Background(), p, catalog.Image{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gotImage.Empty() {
		t.Fatalf("want empty image passed to repo, got %+v", gotImage)
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	pub := &mockPublisher{err: errors.New("broker down")}
	svc, changes := newTestService(defaultRepo(), pub)

	if err := svc.DeleteProduct(context.Background(), 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.events) != 1 || pub.events[0].EntityID != 7 {
		t.Fatalf("want delete event for 7, got %+v", pub.events)
	}
	if v := testutil.ToFloat64(changes.WithLabelValues(catalog.EntityProduct, catalog.EventDeleted)); v != 1 {
		t.Fatalf("want counter 1, got %v", v)
	}
}

func TestSearchProducts(t *testing.T) {
	repo := defaultRepo()
	var gotKeyword string
	repo.searchProductsFn = func(_ context.Context, keyword string) ([]catalog.Product, error) {
		gotKeyword = keyword
		return []catalog.Product{}, nil
	}
	svc, _ := newTestService(repo, &mockPublisher{})

	list, err := svc.SearchProducts(context.Background(), "   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 || gotKeyword != "" {
		t.Fatalf("blank keyword should list all products, got %d items and keyword %q", len(list), gotKeyword)
	}

	if _, err := svc.SearchProducts(context.Background(), " lamp "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKeyword != "lamp" {
		t.Fatalf("want trimmed keyword lamp, got %q", gotKeyword)
	}
}
