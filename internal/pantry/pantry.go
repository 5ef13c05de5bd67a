// Package pantry stores the user's pantry products in PostgreSQL.
package pantry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foodsave-ai/foodsave/internal/log"
)

// Sentinel errors, checked with errors.Is.
var (
	// ErrProductNotFound indicates the product does not exist.
	ErrProductNotFound = errors.New("pantry product not found")

	// ErrInvalidProduct indicates missing or malformed product fields.
	ErrInvalidProduct = errors.New("invalid pantry product")
)

// DefaultCategory is assigned when a product carries no category.
const DefaultCategory = "inne"

// Product is one pantry item.
type Product struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Category  string     `json:"unified_category"`
	Quantity  float64    `json:"quantity"`
	Unit      string     `json:"unit,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (p Product) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if p.Quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidProduct)
	}
	return nil
}

// Store persists pantry products.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewStore creates a pantry store backed by the given pool.
func NewStore(pool *pgxpool.Pool, logger log.Logger) (*Store, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Store{pool: pool, logger: logger}, nil
}

const productColumns = `id, name, unified_category, quantity, unit, expires_at, created_at, updated_at`

// List returns all products, optionally filtered by category. Products
// expiring soonest come first, undated ones last.
func (s *Store) List(ctx context.Context, category string) ([]*Product, error) {
	q := `
		SELECT ` + productColumns + `
		FROM pantry_products`
	args := []any{}
	if category != "" {
		q += ` WHERE unified_category = $1`
		args = append(args, category)
	}
	q += ` ORDER BY expires_at ASC NULLS LAST, name ASC`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing pantry products: %w", err)
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Get returns one product.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM pantry_products
		WHERE id = $1`, id)

	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", id, ErrProductNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting product %s: %w", id, err)
	}
	return p, nil
}

// Add inserts a product and returns it with generated fields filled in.
func (s *Store) Add(ctx context.Context, p Product) (*Product, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.Category == "" {
		p.Category = DefaultCategory
	}
	if p.Quantity == 0 {
		p.Quantity = 1
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO pantry_products (name, unified_category, quantity, unit, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+productColumns,
		strings.TrimSpace(p.Name), p.Category, p.Quantity, p.Unit, p.ExpiresAt)

	created, err := scanProduct(row)
	if err != nil {
		return nil, fmt.Errorf("adding product: %w", err)
	}
	s.logger.Debug("pantry product added", "id", created.ID, "name", created.Name)
	return created, nil
}

// Update replaces a product's mutable fields.
func (s *Store) Update(ctx context.Context, p Product) (*Product, error) {
	if p.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidProduct)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.Category == "" {
		p.Category = DefaultCategory
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE pantry_products
		SET name = $2, unified_category = $3, quantity = $4, unit = $5,
		    expires_at = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns,
		p.ID, strings.TrimSpace(p.Name), p.Category, p.Quantity, p.Unit, p.ExpiresAt)

	updated, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", p.ID, ErrProductNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("updating product %s: %w", p.ID, err)
	}
	return updated, nil
}

// Delete removes a product.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM pantry_products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting product %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", id, ErrProductNotFound)
	}
	s.logger.Debug("pantry product deleted", "id", id)
	return nil
}

// Expiring returns products whose expiry date falls within the next
// given number of days.
func (s *Store) Expiring(ctx context.Context, days int) ([]*Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM pantry_products
		WHERE expires_at IS NOT NULL
		  AND expires_at <= CURRENT_DATE + $1::int
		ORDER BY expires_at ASC`, days)
	if err != nil {
		return nil, fmt.Errorf("listing expiring products: %w", err)
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Quantity, &p.Unit,
		&p.ExpiresAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
