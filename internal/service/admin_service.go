package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ValidationError lists the form fields that failed validation.
// Subject names the form and defaults to "product".
type ValidationError struct {
	Subject string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	subject := e.Subject
	if subject == "" {
		subject = "product"
	}
	return "invalid " + subject + ": " + strings.Join(parts, ", ")
}

// AdminStore is the persistence behind the admin surface
type AdminStore interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id string) error
	GetDashboardStats(ctx context.Context) (*models.DashboardStats, error)
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, error)
}

// CatalogReloader refreshes the catalog snapshot after product writes
type CatalogReloader interface {
	Reload(ctx context.Context) error
}

// ProductInput is the admin product form
type ProductInput struct {
	SKU         string              `json:"sku"`
	Name        string              `json:"name" validate:"required"`
	Slug        string              `json:"slug"`
	Description string              `json:"description"`
	Thumbnail   string              `json:"thumbnail" validate:"required"`
	Brand       string              `json:"brand"`
	Categories  []string            `json:"categories"`
	BasePrice   decimal.Decimal     `json:"base_price"`
	SalePrice   decimal.NullDecimal `json:"sale_price"`
	IsOnSale    bool                `json:"is_on_sale"`
	Sizes       []SizeInput         `json:"sizes" validate:"dive"`
	Colors      []ColorInput        `json:"colors" validate:"dive"`
	Stock       int                 `json:"stock" validate:"gte=0"`
	StockStatus string              `json:"stock_status" validate:"omitempty,oneof=in-stock out-of-stock pre-order"`
	IsFeatured  bool                `json:"is_featured"`
}

// SizeInput is one size row of the product form
type SizeInput struct {
	ID            string          `json:"id"`
	Name          string          `json:"name" validate:"required"`
	PriceModifier decimal.Decimal `json:"price_modifier"`
	Stock         int             `json:"stock" validate:"gte=0"`
}

// ColorInput is one color row of the product form
type ColorInput struct {
	ID      string `json:"id"`
	Name    string `json:"name" validate:"required"`
	HexCode string `json:"hex_code" validate:"required,hexcolor"`
	Image   string `json:"image"`
}

// AdminService backs the admin dashboard and product management
type AdminService struct {
	store   AdminStore
	catalog CatalogReloader
	logger  *zap.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(store AdminStore, catalog CatalogReloader) *AdminService {
	return &AdminService{
		store:   store,
		catalog: catalog,
		logger:  util.GetLogger(),
	}
}

// Dashboard returns the store-wide counts and revenue
func (s *AdminService) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.Dashboard")
	defer span.End()

	stats, err := s.store.GetDashboardStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard: %w", err)
	}
	return stats, nil
}

// ListUsers returns a page of user documents
func (s *AdminService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.ListUsers")
	defer span.End()

	limit, offset = page(limit, offset)
	users, err := s.store.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// CreateProduct validates the form and stores a new product
func (s *AdminService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.CreateProduct")
	defer span.End()

	product, err := BuildProduct(in)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created", zap.String("product_id", product.ID), zap.String("sku", product.SKU))
	s.reloadCatalog(ctx)
	return product, nil
}

// UpdateProduct validates the form and overwrites product id
func (s *AdminService) UpdateProduct(ctx context.Context, id string, in ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.UpdateProduct")
	defer span.End()

	product, err := BuildProduct(in)
	if err != nil {
		return nil, err
	}
	product.ID = id

	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product updated", zap.String("product_id", id))
	s.reloadCatalog(ctx)
	return product, nil
}

// DeleteProduct removes a product
func (s *AdminService) DeleteProduct(ctx context.Context, id string) error {
	ctx, span := util.StartSpan(ctx, "AdminService.DeleteProduct")
	defer span.End()

	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Product deleted", zap.String("product_id", id))
	s.reloadCatalog(ctx)
	return nil
}

func (s *AdminService) reloadCatalog(ctx context.Context) {
	if s.catalog == nil {
		return
	}
	if err := s.catalog.Reload(ctx); err != nil {
		s.logger.Warn("Failed to reload catalog after product write", zap.Error(err))
	}
}

// BuildProduct validates the admin form and turns it into a product.
// A sale price is kept only while the product is on sale.
func BuildProduct(in ProductInput) (*models.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Thumbnail = strings.TrimSpace(in.Thumbnail)

	fields, err := util.ValidateStruct(in)
	if err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]string{}
	}

	if !in.BasePrice.IsPositive() {
		fields["base_price"] = "must be greater than 0"
	}

	salePrice := decimal.NullDecimal{}
	if in.IsOnSale {
		switch {
		case !in.SalePrice.Valid || !in.SalePrice.Decimal.IsPositive():
			fields["sale_price"] = "is required when the product is on sale"
		case in.SalePrice.Decimal.GreaterThanOrEqual(in.BasePrice):
			fields["sale_price"] = "must be lower than the base price"
		default:
			salePrice = in.SalePrice
		}
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		slug = Slugify(in.Name)
	}
	sku := strings.TrimSpace(in.SKU)
	if sku == "" {
		sku = generateSKU(slug)
	}
	status := models.StockStatus(in.StockStatus)
	if status == "" {
		status = models.StockStatusInStock
	}

	product := &models.Product{
		SKU:         sku,
		Name:        in.Name,
		Slug:        slug,
		Description: in.Description,
		Thumbnail:   in.Thumbnail,
		Brand:       strings.TrimSpace(in.Brand),
		Categories:  cleanCategories(in.Categories),
		BasePrice:   in.BasePrice,
		SalePrice:   salePrice,
		IsOnSale:    in.IsOnSale,
		Stock:       in.Stock,
		StockStatus: status,
		IsFeatured:  in.IsFeatured,
		Variants: models.Variants{
			Sizes:  make([]models.Size, 0, len(in.Sizes)),
			Colors: make([]models.Color, 0, len(in.Colors)),
		},
	}

	for _, sz := range in.Sizes {
		id := sz.ID
		if id == "" {
			id = "size_" + shortID()
		}
		product.Variants.Sizes = append(product.Variants.Sizes, models.Size{
			ID:            id,
			Name:          strings.TrimSpace(sz.Name),
			PriceModifier: sz.PriceModifier,
			Stock:         sz.Stock,
		})
	}
	for _, c := range in.Colors {
		id := c.ID
		if id == "" {
			id = "color_" + shortID()
		}
		product.Variants.Colors = append(product.Variants.Colors, models.Color{
			ID:      id,
			Name:    strings.TrimSpace(c.Name),
			HexCode: c.HexCode,
			Image:   c.Image,
		})
	}

	return product, nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases name and joins its words with hyphens
func Slugify(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

func generateSKU(slug string) string {
	prefix := strings.ToUpper(strings.ReplaceAll(slug, "-", ""))
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	if prefix == "" {
		prefix = "SKU"
	}
	return prefix + "-" + strings.ToUpper(shortID())
}

func shortID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

func cleanCategories(in []string) pq.StringArray {
	out := make(pq.StringArray, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		key := strings.ToLower(c)
		if c == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
