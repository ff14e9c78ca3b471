package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrUserNotFound    = errors.New("user not found")
)

type Store struct {
	db         *sqlx.DB
	txAttempts int
}

// NewStore creates a new database store
func NewStore(databaseURL string, txAttempts int) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewStoreWithDB(db, txAttempts), nil
}

// NewStoreWithDB wraps an existing connection
func NewStoreWithDB(db *sqlx.DB, txAttempts int) *Store {
	if txAttempts < 1 {
		txAttempts = 1
	}
	return &Store{db: db, txAttempts: txAttempts}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProducts retrieves all products
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY created_at DESC, id")
	return products, err
}

// CreateProduct inserts a product, assigning its id and timestamps
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	query := `
		INSERT INTO products (id, sku, name, slug, description, thumbnail, brand, categories,
			base_price, sale_price, is_on_sale, variants, stock, stock_status, is_featured)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		p.ID, p.SKU, p.Name, p.Slug, p.Description, p.Thumbnail, p.Brand, p.Categories,
		p.BasePrice, p.SalePrice, p.IsOnSale, p.Variants, p.Stock, p.StockStatus, p.IsFeatured,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

// UpdateProduct overwrites the editable fields of a product
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	query := `
		UPDATE products SET sku = $2, name = $3, slug = $4, description = $5, thumbnail = $6,
			brand = $7, categories = $8, base_price = $9, sale_price = $10, is_on_sale = $11,
			variants = $12, stock = $13, stock_status = $14, is_featured = $15, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`

	err := s.db.QueryRowxContext(ctx, query,
		p.ID, p.SKU, p.Name, p.Slug, p.Description, p.Thumbnail, p.Brand, p.Categories,
		p.BasePrice, p.SalePrice, p.IsOnSale, p.Variants, p.Stock, p.StockStatus, p.IsFeatured,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", ErrProductNotFound, p.ID)
	}
	return err
}

// DeleteProduct removes a product
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return nil
}

// RefreshStockStatus marks sold-out products out-of-stock and restocked
// products in-stock. Pre-order products keep their status.
func (s *Store) RefreshStockStatus(ctx context.Context, productIDs []string) (int64, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`
		UPDATE products SET
			stock_status = CASE WHEN stock <= 0 THEN 'out-of-stock' ELSE 'in-stock' END,
			updated_at = NOW()
		WHERE id IN (?)
			AND stock_status <> 'pre-order'
			AND stock_status <> CASE WHEN stock <= 0 THEN 'out-of-stock' ELSE 'in-stock' END`, productIDs)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetDashboardStats counts users, products and orders and sums revenue
func (s *Store) GetDashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	err := s.db.GetContext(ctx, &stats, `
		SELECT
			(SELECT COUNT(*) FROM users) AS users,
			(SELECT COUNT(*) FROM products) AS products,
			(SELECT COUNT(*) FROM orders) AS orders,
			(SELECT COALESCE(SUM(total), 0) FROM orders WHERE status <> 'cancelled') AS revenue`)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
