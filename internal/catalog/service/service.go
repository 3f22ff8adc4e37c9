package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"catalog-admin/internal/catalog"

	"github.com/prometheus/client_golang/prometheus"
)

type Repository interface {
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	CreateCategory(ctx context.Context, c catalog.Category) (catalog.Category, error)
	UpdateCategory(ctx context.Context, c catalog.Category) (catalog.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	ListProducts(ctx context.Context) ([]catalog.Product, error)
	SearchProducts(ctx context.Context, keyword string) ([]catalog.Product, error)
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
	ProductImage(ctx context.Context, id int64) (catalog.Image, error)
	CreateProduct(ctx context.Context, p catalog.Product, img catalog.Image) (catalog.Product, error)
	UpdateProduct(ctx context.Context, p catalog.Product, img catalog.Image) (catalog.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

type Publisher interface {
	Publish(ctx context.Context, event catalog.Event) error
}

type Service struct {
	repo      Repository
	publisher Publisher
	logger    *slog.Logger
	changes   *prometheus.CounterVec
}

// New builds the service. changes must carry the labels "entity" and
// "event".
func New(repo Repository, publisher Publisher, logger *slog.Logger, changes *prometheus.CounterVec) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		changes:   changes,
	}
}

func (s *Service) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	list, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("repo list categories: %w", err)
	}
	return list, nil
}

func (s *Service) CreateCategory(ctx context.Context, c catalog.Category) (catalog.Category, error) {
	c = normalizeCategory(c)
	if c.Name == "" {
		return catalog.Category{}, catalog.ErrInvalidName
	}

	created, err := s.repo.CreateCategory(ctx, c)
	if err != nil {
		return catalog.Category{}, fmt.Errorf("repo create category: %w", err)
	}

	s.publish(ctx, catalog.EntityCategory, catalog.EventCreated, created.ID, created.Name)
	return created, nil
}

func (s *Service) UpdateCategory(ctx context.Context, c catalog.Category) (catalog.Category, error) {
	c = normalizeCategory(c)
	if c.ID <= 0 {
		return catalog.Category{}, catalog.ErrCategoryNotFound
	}
	if c.Name == "" {
		return catalog.Category{}, catalog.ErrInvalidName
	}

	updated, err := s.repo.UpdateCategory(ctx, c)
	if err != nil {
		return catalog.Category{}, fmt.Errorf("repo update category: %w", err)
	}

	s.publish(ctx, catalog.EntityCategory, catalog.EventUpdated, updated.ID, updated.Name)
	return updated, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("repo delete category: %w", err)
	}

	s.publish(ctx, catalog.EntityCategory, catalog.EventDeleted, id, "")
	return nil
}

func (s *Service) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	list, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("repo list products: %w", err)
	}
	return list, nil
}

// SearchProducts returns every product for a blank keyword.
func (s *Service) SearchProducts(ctx context.Context, keyword string) ([]catalog.Product, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return s.ListProducts(ctx)
	}

	list, err := s.repo.SearchProducts(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("repo search products: %w", err)
	}
	return list, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (catalog.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("repo get product: %w", err)
	}
	return p, nil
}

func (s *Service) ProductImage(ctx context.Context, id int64) (catalog.Image, error) {
	img, err := s.repo.ProductImage(ctx, id)
	if err != nil {
		return catalog.Image{}, fmt.Errorf("repo product image: %w", err)
	}
	return img, nil
}

func (s *Service) CreateProduct(ctx context.Context, p catalog.Product, img catalog.Image) (catalog.Product, error) {
	p, err := validateProduct(p)
	if err != nil {
		return catalog.Product{}, err
	}
	if img.Empty() {
		return catalog.Product{}, catalog.ErrImageRequired
	}

	created, err := s.repo.CreateProduct(ctx, p, img)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("repo create product: %w", err)
	}

	s.publish(ctx, catalog.EntityProduct, catalog.EventCreated, created.ID, created.Name)
	return created, nil
}

// UpdateProduct keeps the stored image when img is empty.
func (s *Service) UpdateProduct(ctx context.Context, p catalog.Product, img catalog.Image) (catalog.Product, error) {
	if p.ID <= 0 {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	p, err := validateProduct(p)
	if err != nil {
		return catalog.Product{}, err
	}

	updated, err := s.repo.UpdateProduct(ctx, p, img)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("repo update product: %w", err)
	}

	s.publish(ctx, catalog.EntityProduct, catalog.EventUpdated, updated.ID, updated.Name)
	return updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("repo delete product: %w", err)
	}

	s.publish(ctx, catalog.EntityProduct, catalog.EventDeleted, id, "")
	return nil
}

// publish reports a change. A failed publish is logged and does not fail
// the write that caused it.
func (s *Service) publish(ctx context.Context, entity, eventType string, id int64, name string) {
	if err := s.publisher.Publish(ctx, catalog.Event{
		EventType: eventType,
		Entity:    entity,
		EntityID:  id,
		Name:      name,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		s.logger.Error("publish catalog event failed",
			"entity", entity,
			"event_type", eventType,
			"entity_id", id,
			"error", err,
		)
	}

	s.changes.WithLabelValues(entity, eventType).Inc()
}

func normalizeCategory(c catalog.Category) catalog.Category {
	c.Name = strings.TrimSpace(c.Name)
	c.Description = strings.TrimSpace(c.Description)
	return c
}

func validateProduct(p catalog.Product) (catalog.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)

	switch {
	case p.Name == "":
		return p, catalog.ErrInvalidName
	case p.Price.IsNegative():
		return p, catalog.ErrInvalidPrice
	case p.Quantity < 0:
		return p, catalog.ErrInvalidQuantity
	case p.CategoryID() <= 0:
		return p, catalog.ErrInvalidCategory
	}
	return p, nil
}
