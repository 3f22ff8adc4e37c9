package catalogapi

import (
	"context"
	"strconv"

	"catalog-admin/internal/catalog"
	"catalog-admin/internal/querycache"
)

// Client is the subset of the catalog REST client the endpoints need.
type Client interface {
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	CreateCategory(ctx context.Context, category catalog.Category) (catalog.Category, error)
	UpdateCategory(ctx context.Context, category catalog.Category) (catalog.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	ListProducts(ctx context.Context) ([]catalog.Product, error)
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
	SearchProducts(ctx context.Context, keyword string) ([]catalog.Product, error)
	CreateProduct(ctx context.Context, product catalog.Product, image catalog.Image) (catalog.Product, error)
	UpdateProduct(ctx context.Context, product catalog.Product, image catalog.Image) (catalog.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ProductImage(ctx context.Context, id int64) (catalog.Image, error)
}

type API struct {
	client Client
	store  *querycache.Store
}

func New(client Client, store *querycache.Store) *API {
	return &API{client: client, store: store}
}

func CategoriesKey() querycache.Key {
	return querycache.Key{Endpoint: GetCategories}
}

func ProductsKey() querycache.Key {
	return querycache.Key{Endpoint: GetProducts}
}

func ProductKey(id int64) querycache.Key {
	return querycache.Key{Endpoint: GetProductByID, Arg: strconv.FormatInt(id, 10)}
}

func SearchKey(keyword string) querycache.Key {
	return querycache.Key{Endpoint: SearchProducts, Arg: keyword}
}

func ImageKey(id int64) querycache.Key {
	return querycache.Key{Endpoint: GetProductImage, Arg: strconv.FormatInt(id, 10)}
}

func (a *API) Categories(ctx context.Context) ([]catalog.Category, error) {
	return querycache.Get(ctx, a.store, CategoriesKey(), a.client.ListCategories)
}

func (a *API) Products(ctx context.Context) ([]catalog.Product, error) {
	return querycache.Get(ctx, a.store, ProductsKey(), a.client.ListProducts)
}

func (a *API) Product(ctx context.Context, id int64) (catalog.Product, error) {
	return querycache.Get(ctx, a.store, ProductKey(id), func(ctx context.Context) (catalog.Product, error) {
		return a.client.GetProduct(ctx, id)
	})
}

func (a *API) Search(ctx context.Context, keyword string) ([]catalog.Product, error) {
	return querycache.Get(ctx, a.store, SearchKey(keyword), func(ctx context.Context) ([]catalog.Product, error) {
		return a.client.SearchProducts(ctx, keyword)
	})
}

func (a *API) ProductImage(ctx context.Context, id int64) (catalog.Image, error) {
	return querycache.Get(ctx, a.store, ImageKey(id), func(ctx context.Context) (catalog.Image, error) {
		return a.client.ProductImage(ctx, id)
	})
}

func (a *API) CreateCategory(ctx context.Context, category catalog.Category) (catalog.Category, error) {
	var out catalog.Category
	err := a.store.Mutate(ctx, CreateCategory, func(ctx context.Context) error {
		var err error
		out, err = a.client.CreateCategory(ctx, category)
		return err
	})
	return out, err
}

func (a *API) UpdateCategory(ctx context.Context, category catalog.Category) (catalog.Category, error) {
	var out catalog.Category
	err := a.store.Mutate(ctx, UpdateCategory, func(ctx context.Context) error {
		var err error
		out, err = a.client.UpdateCategory(ctx, category)
		return err
	})
	return out, err
}

func (a *API) DeleteCategory(ctx context.Context, id int64) error {
	return a.store.Mutate(ctx, DeleteCategory, func(ctx context.Context) error {
		return a.client.DeleteCategory(ctx, id)
	})
}

func (a *API) CreateProduct(ctx context.Context, product catalog.Product, image catalog.Image) (catalog.Product, error) {
	var out catalog.Product
	err := a.store.Mutate(ctx, CreateProduct, func(ctx context.Context) error {
		var err error
		out, err = a.client.CreateProduct(ctx, product, image)
		return err
	})
	return out, err
}

func (a *API) UpdateProduct(ctx context.Context, product catalog.Product, image catalog.Image) (catalog.Product, error) {
	var out catalog.Product
	err := a.store.Mutate(ctx, UpdateProduct, func(ctx context.Context) error {
		var err error
		out, err = a.client.UpdateProduct(ctx, product, image)
		return err
	})
	return out, err
}

func (a *API) DeleteProduct(ctx context.Context, id int64) error {
	return a.store.Mutate(ctx, DeleteProduct, func(ctx context.Context) error {
		return a.client.DeleteProduct(ctx, id)
	})
}

// WatchCategories keeps the category list entry alive across invalidations
// and calls fn after each refetch.
func (a *API) WatchCategories(fn func(querycache.Snapshot)) (unsubscribe func()) {
	return querycache.Watch(a.store, CategoriesKey(), a.client.ListCategories, fn)
}

func (a *API) WatchProducts(fn func(querycache.Snapshot)) (unsubscribe func()) {
	return querycache.Watch(a.store, ProductsKey(), a.client.ListProducts, fn)
}

func (a *API) WatchSearch(keyword string, fn func(querycache.Snapshot)) (unsubscribe func()) {
	return querycache.Watch(a.store, SearchKey(keyword), func(ctx context.Context) ([]catalog.Product, error) {
		return a.client.SearchProducts(ctx, keyword)
	}, fn)
}
