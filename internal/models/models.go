package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// StockStatus is the availability label shown in the catalog
type StockStatus string

// Stock statuses
const (
	StockStatusInStock    StockStatus = "in-stock"
	StockStatusOutOfStock StockStatus = "out-of-stock"
	StockStatusPreOrder   StockStatus = "pre-order"
)

// Valid reports whether s is one of the known stock statuses
func (s StockStatus) Valid() bool {
	switch s {
	case StockStatusInStock, StockStatusOutOfStock, StockStatusPreOrder:
		return true
	}
	return false
}

// Product represents a product in the catalog
type Product struct {
	ID          string              `db:"id" json:"id"`
	SKU         string              `db:"sku" json:"sku"`
	Name        string              `db:"name" json:"name"`
	Slug        string              `db:"slug" json:"slug"`
	Description string              `db:"description" json:"description"`
	Thumbnail   string              `db:"thumbnail" json:"thumbnail"`
	Brand       string              `db:"brand" json:"brand,omitempty"`
	Categories  pq.StringArray      `db:"categories" json:"categories"`
	BasePrice   decimal.Decimal     `db:"base_price" json:"base_price"`
	SalePrice   decimal.NullDecimal `db:"sale_price" json:"sale_price"`
	IsOnSale    bool                `db:"is_on_sale" json:"is_on_sale"`
	Variants    Variants            `db:"variants" json:"variants"`
	Stock       int                 `db:"stock" json:"stock"`
	StockStatus StockStatus         `db:"stock_status" json:"stock_status"`
	IsFeatured  bool                `db:"is_featured" json:"is_featured"`
	CreatedAt   time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `db:"updated_at" json:"updated_at"`
}

// Size is a selectable size variant with its own stock
type Size struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	PriceModifier decimal.Decimal `json:"price_modifier"`
	Stock         int             `json:"stock"`
}

// Color is a selectable color variant
type Color struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	HexCode string `json:"hex_code"`
	Image   string `json:"image,omitempty"`
}

// Variants holds the ordered size and color options of a product.
// Stored as a single JSONB column.
type Variants struct {
	Sizes  []Size  `json:"sizes"`
	Colors []Color `json:"colors"`
}

// Size looks up a size by id
func (v Variants) Size(id string) (Size, bool) {
	for _, s := range v.Sizes {
		if s.ID == id {
			return s, true
		}
	}
	return Size{}, false
}

// Color looks up a color by id
func (v Variants) Color(id string) (Color, bool) {
	for _, c := range v.Colors {
		if c.ID == id {
			return c, true
		}
	}
	return Color{}, false
}

// Value implements driver.Valuer
func (v Variants) Value() (driver.Value, error) {
	return json.Marshal(v)
}

// Scan implements sql.Scanner
func (v *Variants) Scan(src interface{}) error {
	return scanJSON(src, v)
}

// CartLine is a denormalized product snapshot plus the shopper's selection
type CartLine struct {
	LineID          string          `json:"line_id"`
	Product         Product         `json:"product"`
	Quantity        int             `json:"quantity"`
	SelectedSizeID  string          `json:"selected_size_id,omitempty"`
	SelectedColorID string          `json:"selected_color_id,omitempty"`
	Price           decimal.Decimal `json:"price"`
}

// WishlistItems is the wishlist array stored on the user document
type WishlistItems []Product

// Value implements driver.Valuer
func (w WishlistItems) Value() (driver.Value, error) {
	if w == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(w)
}

// Scan implements sql.Scanner
func (w *WishlistItems) Scan(src interface{}) error {
	return scanJSON(src, w)
}

// Address is the shipping address of an order or user
type Address struct {
	Street string `json:"street,omitempty"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	Zip    string `json:"zip,omitempty"`
}

// Value implements driver.Valuer
func (a Address) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements sql.Scanner
func (a *Address) Scan(src interface{}) error {
	return scanJSON(src, a)
}

// OrderDetails is the contact and shipping block of an order.
// Optional fields are omitted from the stored document when empty.
type OrderDetails struct {
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Phone         string  `json:"phone"`
	Address       Address `json:"address"`
	PaymentMethod string  `json:"payment_method,omitempty"`
	Notes         string  `json:"notes,omitempty"`
}

// Value implements driver.Valuer
func (d OrderDetails) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements sql.Scanner
func (d *OrderDetails) Scan(src interface{}) error {
	return scanJSON(src, d)
}

// Order represents a customer order
type Order struct {
	ID        string          `db:"id" json:"id"`
	UserID    string          `db:"user_id" json:"user_id"`
	Details   OrderDetails    `db:"details" json:"details"`
	Total     decimal.Decimal `db:"total" json:"total"`
	Status    string          `db:"status" json:"status"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
	Items     []OrderItem     `db:"-" json:"items"`
}

// OrderItem represents items in an order
type OrderItem struct {
	ID        int64           `db:"id" json:"-"`
	OrderID   string          `db:"order_id" json:"-"`
	ProductID string          `db:"product_id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Quantity  int             `db:"quantity" json:"quantity"`
	Size      *string         `db:"size_id" json:"size,omitempty"`
	Color     *string         `db:"color_id" json:"color,omitempty"`
}

// Order statuses
const (
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// ValidOrderStatus reports whether status is a known order status
func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// User is the user document; identity itself lives with the auth provider
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name,omitempty"`
	Role      string    `db:"role" json:"role"`
	Phone     string    `db:"phone" json:"phone,omitempty"`
	Address   Address   `db:"address" json:"address"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DashboardStats summarizes the store for the admin dashboard
type DashboardStats struct {
	Users    int             `db:"users" json:"users"`
	Products int             `db:"products" json:"products"`
	Orders   int             `db:"orders" json:"orders"`
	Revenue  decimal.Decimal `db:"revenue" json:"revenue"`
}

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}

func scanJSON(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
}
