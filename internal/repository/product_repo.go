package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campus-cart/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

// ProductCatalog expone lo mínimo del catálogo que necesita la mensajería.
type ProductCatalog interface {
	ResolveSeller(ctx context.Context, productID string) (string, error)
	GetByID(ctx context.Context, productID string) (domain.Product, error)
}

type PgProductRepository struct {
	pool *pgxpool.Pool
}

func NewPgProductRepository(pool *pgxpool.Pool) *PgProductRepository {
	return &PgProductRepository{pool: pool}
}

func (r *PgProductRepository) ResolveSeller(ctx context.Context, productID string) (string, error) {
	const query = `
		SELECT seller_id
		FROM products
		WHERE id = $1
	`
	var sellerID string
	err := r.pool.QueryRow(ctx, query, productID).Scan(&sellerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrProductNotFound
	}
	return sellerID, err
}

func (r *PgProductRepository) GetByID(ctx context.Context, productID string) (domain.Product, error) {
	const query = `
		SELECT id, seller_id, name, image_url
		FROM products
		WHERE id = $1
	`
	var p domain.Product
	err := r.pool.QueryRow(ctx, query, productID).Scan(
		&p.ID,
		&p.SellerID,
		&p.Name,
		&p.ImageURL,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, ErrProductNotFound
	}
	return p, err
}

type MemoryProductCatalog struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

func NewMemoryProductCatalog() *MemoryProductCatalog {
	return &MemoryProductCatalog{products: make(map[string]domain.Product)}
}

func (c *MemoryProductCatalog) Put(p domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}

func (c *MemoryProductCatalog) ResolveSeller(ctx context.Context, productID string) (string, error) {
	p, err := c.GetByID(ctx, productID)
	if err != nil {
		return "", err
	}
	return p.SellerID, nil
}

func (c *MemoryProductCatalog) GetByID(_ context.Context, productID string) (domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[productID]
	if !ok {
		return domain.Product{}, ErrProductNotFound
	}
	return p, nil
}
