package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"catalog-admin/internal/catalog"

	"github.com/lib/pq"
)

const (
	healthCheckTimeout = 2 * time.Second

	pqForeignKeyViolation = "23503"
)

const productColumns = `
	p.id, p.name, p.description, p.price, p.quantity, p.available,
	c.id, c.name, c.description`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, description FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	list := make([]catalog.Category, 0)
	for rows.Next() {
		var c catalog.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		list = append(list, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	return list, nil
}

func (r *PostgresRepository) CreateCategory(ctx context.Context, c catalog.Category) (catalog.Category, error) {
	query := `
		INSERT INTO categories (name, description)
		VALUES ($1, $2)
		RETURNING id, name, description
	`

	var out catalog.Category
	if err := r.db.QueryRowContext(ctx, query, c.Name, c.Description).Scan(&out.ID, &out.Name, &out.Description); err != nil {
		return catalog.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) UpdateCategory(ctx context.Context, c catalog.Category) (catalog.Category, error) {
	query := `
		UPDATE categories
		SET name = $2, description = $3
		WHERE id = $1
		RETURNING id, name, description
	`

	var out catalog.Category
	err := r.db.QueryRowContext(ctx, query, c.ID, c.Name, c.Description).Scan(&out.ID, &out.Name, &out.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Category{}, catalog.ErrCategoryNotFound
	}
	if err != nil {
		return catalog.Category{}, fmt.Errorf("update category %d: %w", c.ID, err)
	}
	return out, nil
}

func (r *PostgresRepository) DeleteCategory(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return catalog.ErrCategoryInUse
	}
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return catalog.ErrCategoryNotFound
	}

	return nil
}

// ListProducts returns every product with its category; image bytes are
// not loaded.
func (r *PostgresRepository) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	query := `SELECT` + productColumns + `
		FROM products p
		JOIN categories c ON c.id = p.category_id
		ORDER BY p.id DESC
	`
	return r.queryProducts(ctx, query)
}

// SearchProducts matches keyword case-insensitively against the product
// name, description and category name.
func (r *PostgresRepository) SearchProducts(ctx context.Context, keyword string) ([]catalog.Product, error) {
	query := `SELECT` + productColumns + `
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.name ILIKE $1 OR p.description ILIKE $1 OR c.name ILIKE $1
		ORDER BY p.id DESC
	`
	pattern := "%" + likeEscaper.Replace(strings.TrimSpace(keyword)) + "%"
	return r.queryProducts(ctx, query, pattern)
}

func (r *PostgresRepository) GetProduct(ctx context.Context, id int64) (catalog.Product, error) {
	query := `SELECT` + productColumns + `, p.image_name, p.image_type, p.image_data
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1
	`

	var (
		p   catalog.Product
		c   catalog.Category
		img catalog.Image
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price.Decimal, &p.Quantity, &p.Available,
		&c.ID, &c.Name, &c.Description,
		&img.Name, &img.MediaType, &img.Data,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	if err != nil {
		return catalog.Product{}, fmt.Errorf("get product %d: %w", id, err)
	}

	p.Category = &c
	if !img.Empty() {
		p.Image = &img
	}
	return p, nil
}

func (r *PostgresRepository) ProductImage(ctx context.Context, id int64) (catalog.Image, error) {
	query := `SELECT image_name, image_type, image_data FROM products WHERE id = $1`

	var img catalog.Image
	err := r.db.QueryRowContext(ctx, query, id).Scan(&img.Name, &img.MediaType, &img.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Image{}, catalog.ErrProductNotFound
	}
	if err != nil {
		return catalog.Image{}, fmt.Errorf("get product %d image: %w", id, err)
	}
	if img.Empty() {
		return catalog.Image{}, catalog.ErrNotFound
	}
	return img, nil
}

func (r *PostgresRepository) CreateProduct(ctx context.Context, p catalog.Product, img catalog.Image) (catalog.Product, error) {
	query := `
		INSERT INTO products (name, description, price, quantity, category_id, available, image_name, image_type, image_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		p.Name, p.Description, p.Price.Decimal, p.Quantity, p.CategoryID(), p.Available,
		img.Name, img.MediaType, img.Data,
	).Scan(&id)
	if isForeignKeyViolation(err) {
		return catalog.Product{}, catalog.ErrInvalidCategory
	}
	if err != nil {
		return catalog.Product{}, fmt.Errorf("insert product: %w", err)
	}

	return r.productWithoutImage(ctx, id)
}

// UpdateProduct overwrites the product fields. The stored image is replaced
// only when img is non-empty.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, p catalog.Product, img catalog.Image) (catalog.Product, error) {
	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4, quantity = $5, category_id = $6, available = $7,
		    updated_at = NOW()
		WHERE id = $1
	`
	args := []any{p.ID, p.Name, p.Description, p.Price.Decimal, p.Quantity, p.CategoryID(), p.Available}
	if !img.Empty() {
		query = `
			UPDATE products
			SET name = $2, description = $3, price = $4, quantity = $5, category_id = $6, available = $7,
			    image_name = $8, image_type = $9, image_data = $10, updated_at = NOW()
			WHERE id = $1
		`
		args = append(args, img.Name, img.MediaType, img.Data)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if isForeignKeyViolation(err) {
		return catalog.Product{}, catalog.ErrInvalidCategory
	}
	if err != nil {
		return catalog.Product{}, fmt.Errorf("update product %d: %w", p.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return catalog.Product{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return catalog.Product{}, catalog.ErrProductNotFound
	}

	return r.productWithoutImage(ctx, p.ID)
}

func (r *PostgresRepository) DeleteProduct(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return catalog.ErrProductNotFound
	}

	return nil
}

func (r *PostgresRepository) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()
	return r.db.PingContext(ctx)
}

func (r *PostgresRepository) productWithoutImage(ctx context.Context, id int64) (catalog.Product, error) {
	query := `SELECT` + productColumns + `
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1
	`
	list, err := r.queryProducts(ctx, query, id)
	if err != nil {
		return catalog.Product{}, err
	}
	if len(list) == 0 {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return list[0], nil
}

func (r *PostgresRepository) queryProducts(ctx context.Context, query string, args ...any) ([]catalog.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	list := make([]catalog.Product, 0)
	for rows.Next() {
		var (
			p catalog.Product
			c catalog.Category
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Price.Decimal, &p.Quantity, &p.Available,
			&c.ID, &c.Name, &c.Description,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.Category = &c
		list = append(list, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return list, nil
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation
}
