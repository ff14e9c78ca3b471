package checkout

import (
	"strings"

	"storefront-service/internal/models"
	"storefront-service/internal/pricing"
	"storefront-service/internal/util"

	"github.com/shopspring/decimal"
)

// DefaultPaymentMethod is used when the shopper does not pick one
const DefaultPaymentMethod = "card"

// Shipping is the contact and address block submitted with a checkout
type Shipping struct {
	Name          string          `json:"name" validate:"required"`
	Email         string          `json:"email" validate:"required,email"`
	Phone         string          `json:"phone" validate:"required"`
	Address       ShippingAddress `json:"address"`
	PaymentMethod string          `json:"payment_method,omitempty" validate:"omitempty,oneof=card cash"`
	Notes         string          `json:"notes,omitempty" validate:"max=1000"`
}

// ShippingAddress is the delivery address; every part is required
type ShippingAddress struct {
	Street string `json:"street" validate:"required"`
	City   string `json:"city" validate:"required"`
	State  string `json:"state" validate:"required"`
	Zip    string `json:"zip" validate:"required"`
}

// Validate checks the required contact and address fields
func (s Shipping) Validate() error {
	fields, err := util.ValidateStruct(s.trimmed())
	if err != nil {
		return err
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (s Shipping) trimmed() Shipping {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)
	s.Phone = strings.TrimSpace(s.Phone)
	s.Address.Street = strings.TrimSpace(s.Address.Street)
	s.Address.City = strings.TrimSpace(s.Address.City)
	s.Address.State = strings.TrimSpace(s.Address.State)
	s.Address.Zip = strings.TrimSpace(s.Address.Zip)
	s.PaymentMethod = strings.TrimSpace(s.PaymentMethod)
	s.Notes = strings.TrimSpace(s.Notes)
	return s
}

// OrderBuilder assembles an order document. Required fields are checked in
// Build; optional fields left empty are omitted from the stored document.
type OrderBuilder struct {
	id      string
	userID  string
	details models.OrderDetails
	items   []models.OrderItem
	total   decimal.Decimal
}

// NewOrderBuilder creates a new OrderBuilder
func NewOrderBuilder(id, userID string) *OrderBuilder {
	return &OrderBuilder{id: id, userID: userID, total: decimal.Zero}
}

// Shipping sets the required contact and address fields
func (b *OrderBuilder) Shipping(s Shipping) *OrderBuilder {
	s = s.trimmed()
	b.details.Name = s.Name
	b.details.Email = s.Email
	b.details.Phone = s.Phone
	b.details.Address = models.Address{
		Street: s.Address.Street,
		City:   s.Address.City,
		State:  s.Address.State,
		Zip:    s.Address.Zip,
	}
	b.details.PaymentMethod = s.PaymentMethod
	b.details.Notes = s.Notes
	return b
}

// PaymentMethod overrides the payment method
func (b *OrderBuilder) PaymentMethod(method string) *OrderBuilder {
	b.details.PaymentMethod = strings.TrimSpace(method)
	return b
}

// Notes sets the optional delivery notes
func (b *OrderBuilder) Notes(notes string) *OrderBuilder {
	b.details.Notes = strings.TrimSpace(notes)
	return b
}

// AddLine appends a cart line as an order item at the price captured in the cart
func (b *OrderBuilder) AddLine(line models.CartLine) *OrderBuilder {
	item := models.OrderItem{
		ProductID: line.Product.ID,
		Name:      line.Product.Name,
		Price:     line.Price,
		Quantity:  line.Quantity,
	}
	if line.SelectedSizeID != "" {
		size := line.SelectedSizeID
		item.Size = &size
	}
	if line.SelectedColorID != "" {
		color := line.SelectedColorID
		item.Color = &color
	}

	b.items = append(b.items, item)
	b.total = b.total.Add(pricing.LineTotal(line.Price, line.Quantity))
	return b
}

// Build returns the order in processing status, or a ValidationError naming
// every missing required field.
func (b *OrderBuilder) Build() (*models.Order, error) {
	missing := map[string]string{}
	require := func(name, value string) {
		if value == "" {
			missing[name] = "is required"
		}
	}

	require("id", b.id)
	require("user_id", b.userID)
	require("name", b.details.Name)
	require("email", b.details.Email)
	require("phone", b.details.Phone)
	require("address.street", b.details.Address.Street)
	require("address.city", b.details.Address.City)
	require("address.state", b.details.Address.State)
	require("address.zip", b.details.Address.Zip)
	if len(b.items) == 0 {
		missing["items"] = "cart is empty"
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Fields: missing}
	}

	details := b.details
	if details.PaymentMethod == "" {
		details.PaymentMethod = DefaultPaymentMethod
	}

	items := make([]models.OrderItem, len(b.items))
	copy(items, b.items)

	return &models.Order{
		ID:      b.id,
		UserID:  b.userID,
		Details: details,
		Total:   b.total,
		Status:  models.OrderStatusProcessing,
		Items:   items,
	}, nil
}
