package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"storefront-service/internal/auth"
	"storefront-service/internal/cart"
	"storefront-service/internal/catalog"
	"storefront-service/internal/checkout"
	"storefront-service/internal/models"
	"storefront-service/internal/service"
	"storefront-service/internal/store"
	"storefront-service/internal/wishlist"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type memorySnapshots struct {
	mu       sync.Mutex
	carts    map[string][]models.CartLine
	wishlist map[string][]models.Product
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{
		carts:    map[string][]models.CartLine{},
		wishlist: map[string][]models.Product{},
	}
}

func (m *memorySnapshots) LoadCart(ctx context.Context, sessionID string) ([]models.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.carts[sessionID], nil
}

func (m *memorySnapshots) SaveCart(ctx context.Context, sessionID string, items []models.CartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[sessionID] = items
	return nil
}

func (m *memorySnapshots) DeleteCart(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, sessionID)
	return nil
}

func (m *memorySnapshots) LoadWishlist(ctx context.Context, userID string) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wishlist[userID], nil
}

func (m *memorySnapshots) SaveWishlist(ctx context.Context, userID string, items []models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wishlist[userID] = items
	return nil
}

func (m *memorySnapshots) DeleteWishlist(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.wishlist, userID)
	return nil
}

// fakeBackend stands in for the database behind every service
type fakeBackend struct {
	mu       sync.Mutex
	products map[string]models.Product
	orders   map[string]*models.Order
	users    map[string]models.User
	remote   map[string][]models.Product
}

func newFakeBackend(products ...models.Product) *fakeBackend {
	b := &fakeBackend{
		products: map[string]models.Product{},
		orders:   map[string]*models.Order{},
		users:    map[string]models.User{},
		remote:   map[string][]models.Product{},
	}
	for _, p := range products {
		b.products[p.ID] = p
	}
	return b
}

func (b *fakeBackend) RunOrderTx(ctx context.Context, fn func(store.OrderTx) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	tx := &fakeTx{backend: b}
	if err := fn(tx); err != nil {
		return err
	}
	for _, o := range tx.orders {
		b.orders[o.ID] = o
	}
	for id, qty := range tx.decrements {
		p := b.products[id]
		p.Stock -= qty
		b.products[id] = p
	}
	return nil
}

type fakeTx struct {
	backend    *fakeBackend
	orders     []*models.Order
	decrements map[string]int
}

func (tx *fakeTx) GetProductForUpdate(ctx context.Context, id string) (*models.Product, error) {
	p, ok := tx.backend.products[id]
	if !ok {
		return nil, store.ErrProductNotFound
	}
	return &p, nil
}

func (tx *fakeTx) InsertOrder(ctx context.Context, order *models.Order) error {
	tx.orders = append(tx.orders, order)
	return nil
}

func (tx *fakeTx) DecrementStock(ctx context.Context, productID, sizeID string, quantity int) error {
	if tx.decrements == nil {
		tx.decrements = map[string]int{}
	}
	tx.decrements[productID] += quantity
	return nil
}

func (b *fakeBackend) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	if !ok {
		return nil, store.ErrOrderNotFound
	}
	return o, nil
}

func (b *fakeBackend) GetOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.Order
	for _, o := range b.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (b *fakeBackend) ListOrders(ctx context.Context, limit, offset int) ([]models.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Order, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (b *fakeBackend) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[orderID]
	if !ok {
		return store.ErrOrderNotFound
	}
	o.Status = status
	return nil
}

func (b *fakeBackend) GetProducts(ctx context.Context) ([]models.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Product, 0, len(b.products))
	for _, p := range b.products {
		out = append(out, p)
	}
	return out, nil
}

func (b *fakeBackend) CreateProduct(ctx context.Context, p *models.Product) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	b.products[p.ID] = *p
	return nil
}

func (b *fakeBackend) UpdateProduct(ctx context.Context, p *models.Product) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.products[p.ID]; !ok {
		return store.ErrProductNotFound
	}
	b.products[p.ID] = *p
	return nil
}

func (b *fakeBackend) DeleteProduct(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.products[id]; !ok {
		return store.ErrProductNotFound
	}
	delete(b.products, id)
	return nil
}

func (b *fakeBackend) GetDashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &models.DashboardStats{Users: len(b.users), Products: len(b.products), Orders: len(b.orders), Revenue: decimal.Zero}, nil
}

func (b *fakeBackend) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.User
	for _, u := range b.users {
		out = append(out, u)
	}
	return out, nil
}

func (b *fakeBackend) EnsureUser(ctx context.Context, id, email, role string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[id]
	if !ok {
		u = models.User{ID: id, Role: role, CreatedAt: time.Now()}
	}
	u.Email = email
	b.users[id] = u
	return nil
}

func (b *fakeBackend) GetUser(ctx context.Context, id string) (*models.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return &u, nil
}

func (b *fakeBackend) UpdateProfile(ctx context.Context, user *models.User) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[user.ID]; !ok {
		return store.ErrUserNotFound
	}
	b.users[user.ID] = *user
	return nil
}

func (b *fakeBackend) FetchWishlist(ctx context.Context, userID string) ([]models.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Product(nil), b.remote[userID]...), nil
}

func (b *fakeBackend) AppendToWishlist(ctx context.Context, userID string, product models.Product) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remote[userID] = append(b.remote[userID], product)
	return nil
}

func (b *fakeBackend) RemoveFromWishlist(ctx context.Context, userID, productID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var kept []models.Product
	for _, p := range b.remote[userID] {
		if p.ID != productID {
			kept = append(kept, p)
		}
	}
	b.remote[userID] = kept
	return nil
}

type testServer struct {
	router   *gin.Engine
	backend  *fakeBackend
	verifier *auth.Verifier
	carts    *cart.Service
}

func shirt() models.Product {
	return models.Product{
		ID:          "shirt",
		Name:        "Linen Shirt",
		Categories:  []string{"tops"},
		BasePrice:   decimal.NewFromInt(40),
		Stock:       5,
		StockStatus: models.StockStatusInStock,
		Variants: models.Variants{
			Sizes: []models.Size{
				{ID: "m", Name: "M", PriceModifier: decimal.Zero, Stock: 3},
				{ID: "xl", Name: "XL", PriceModifier: decimal.NewFromInt(5), Stock: 1},
			},
			Colors: []models.Color{{ID: "white", Name: "White", HexCode: "#ffffff"}},
		},
	}
}

func soldOut() models.Product {
	return models.Product{
		ID:          "cap",
		Name:        "Wool Cap",
		BasePrice:   decimal.NewFromInt(15),
		StockStatus: models.StockStatusOutOfStock,
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	products := []models.Product{shirt(), soldOut()}
	backend := newFakeBackend(products...)

	catalogStore := catalog.NewStore(backend)
	require.NoError(t, catalogStore.Reload(context.Background()))

	snapshots := newMemorySnapshots()
	carts := cart.NewService(snapshots, 10)

	syncer := wishlist.NewSyncer(backend, 16, 1, time.Millisecond)
	syncer.Start(context.Background())
	t.Cleanup(syncer.Close)
	wishlists := wishlist.NewService(snapshots, backend, syncer)

	verifier := auth.NewVerifier(testSecret, "")
	provider := auth.NewProvider(verifier)
	provider.OnAuthStateChanged(func(ctx context.Context, change auth.StateChange) error {
		if change.SignedIn() {
			return wishlists.Hydrate(ctx, change.UserID)
		}
		return wishlists.Forget(ctx, change.UserID)
	})

	handler := NewHandler(Deps{
		Catalog:   catalogStore,
		Carts:     carts,
		Wishlists: wishlists,
		Checkout:  checkout.NewReconciler(backend, nil, nil, time.Second, time.Minute),
		Orders:    service.NewOrderService(backend),
		Admin:     service.NewAdminService(backend, catalogStore),
		Profiles:  service.NewProfileService(backend),
		Auth:      provider,
		Users:     backend,
	})

	router := gin.New()
	handler.SetupRoutes(router, []string{"http://localhost:3000"})

	return &testServer{router: router, backend: backend, verifier: verifier, carts: carts}
}

func (s *testServer) token(t *testing.T, userID, role string) string {
	t.Helper()
	token, _, err := s.verifier.Issue(auth.Identity{UserID: userID, Email: userID + "@example.com", Role: role}, time.Hour)
	require.NoError(t, err)
	return token
}

type request struct {
	method  string
	path    string
	body    interface{}
	token   string
	session string
	headers map[string]string
}

func (s *testServer) do(t *testing.T, r request) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var body bytes.Buffer
	if r.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(r.body))
	}
	req := httptest.NewRequest(r.method, r.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if r.session != "" {
		req.Header.Set(sessionHeader, r.session)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	}
	return w, decoded
}

func validShipping() checkout.Shipping {
	return checkout.Shipping{
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
		Phone: "555-0100",
		Address: checkout.ShippingAddress{
			Street: "1 Analytical Way",
			City:   "London",
			State:  "LDN",
			Zip:    "N1",
		},
	}
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, request{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])

	w, body = s.do(t, request{method: http.MethodGet, path: "/ready"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", body["status"])
}

func TestProducts(t *testing.T) {
	s := newTestServer(t)

	t.Run("search by name", func(t *testing.T) {
		w, body := s.do(t, request{method: http.MethodGet, path: "/api/v1/products?q=linen"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(1), body["count"])
	})

	t.Run("filter by category", func(t *testing.T) {
		w, body := s.do(t, request{method: http.MethodGet, path: "/api/v1/products?category=TOPS"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(1), body["count"])
	})

	t.Run("unknown product", func(t *testing.T) {
		w, _ := s.do(t, request{method: http.MethodGet, path: "/api/v1/products/nope"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("price with size modifier", func(t *testing.T) {
		w, body := s.do(t, request{method: http.MethodGet, path: "/api/v1/products/shirt/price?size=xl"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "45", body["price"])
	})

	t.Run("price with unknown size", func(t *testing.T) {
		w, _ := s.do(t, request{method: http.MethodGet, path: "/api/v1/products/shirt/price?size=xxl"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCart(t *testing.T) {
	s := newTestServer(t)
	lineID := cart.LineID("shirt", "m", "white")

	t.Run("requires a session", func(t *testing.T) {
		w, _ := s.do(t, request{method: http.MethodGet, path: "/api/v1/cart"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("add same variant twice", func(t *testing.T) {
		add := request{
			method:  http.MethodPost,
			path:    "/api/v1/cart/items",
			session: "s1",
			body:    AddCartItemRequest{ProductID: "shirt", SizeID: "m", ColorID: "white"},
		}
		s.do(t, add)
		w, body := s.do(t, add)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(2), body["item_count"])
		assert.Equal(t, "80", body["total"])
		assert.Len(t, body["items"], 1)
	})

	t.Run("quantity is clamped", func(t *testing.T) {
		w, body := s.do(t, request{
			method:  http.MethodPatch,
			path:    "/api/v1/cart/items/" + lineID,
			session: "s1",
			body:    map[string]int{"quantity": 50},
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(10), body["item_count"])
	})

	t.Run("unknown size", func(t *testing.T) {
		w, _ := s.do(t, request{
			method:  http.MethodPost,
			path:    "/api/v1/cart/items",
			session: "s1",
			body:    AddCartItemRequest{ProductID: "shirt", SizeID: "xxl"},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown product", func(t *testing.T) {
		w, _ := s.do(t, request{
			method:  http.MethodPost,
			path:    "/api/v1/cart/items",
			session: "s1",
			body:    AddCartItemRequest{ProductID: "nope"},
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("out of stock", func(t *testing.T) {
		w, _ := s.do(t, request{
			method:  http.MethodPost,
			path:    "/api/v1/cart/items",
			session: "s1",
			body:    AddCartItemRequest{ProductID: "cap"},
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("remove and clear", func(t *testing.T) {
		w, body := s.do(t, request{method: http.MethodDelete, path: "/api/v1/cart/items/" + lineID, session: "s1"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(0), body["item_count"])

		w, _ = s.do(t, request{method: http.MethodDelete, path: "/api/v1/cart", session: "s1"})
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestWishlist(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "u1", auth.RoleCustomer)

	t.Run("requires auth", func(t *testing.T) {
		w, _ := s.do(t, request{method: http.MethodGet, path: "/api/v1/wishlist"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("sign in hydrates from remote", func(t *testing.T) {
		s.backend.remote["u1"] = []models.Product{soldOut()}

		w, body := s.do(t, request{method: http.MethodPost, path: "/api/v1/session", token: token})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, body["wishlist"], 1)
		assert.Contains(t, s.backend.users, "u1")
	})

	t.Run("add is idempotent", func(t *testing.T) {
		add := request{method: http.MethodPost, path: "/api/v1/wishlist", token: token, body: AddWishlistRequest{ProductID: "shirt"}}
		s.do(t, add)
		w, body := s.do(t, add)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(2), body["count"])
	})

	t.Run("toggle removes", func(t *testing.T) {
		w, body := s.do(t, request{method: http.MethodPost, path: "/api/v1/wishlist/shirt/toggle", token: token})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, body["wishlisted"])
		assert.Equal(t, float64(1), body["count"])
	})

	t.Run("remove", func(t *testing.T) {
		w, body := s.do(t, request{method: http.MethodDelete, path: "/api/v1/wishlist/cap", token: token})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(0), body["count"])
	})

	t.Run("sign out", func(t *testing.T) {
		w, _ := s.do(t, request{method: http.MethodDelete, path: "/api/v1/session", token: token})
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestCheckout(t *testing.T) {
	t.Run("places order and clears cart", func(t *testing.T) {
		s := newTestServer(t)
		token := s.token(t, "u1", auth.RoleCustomer)
		add := request{
			method: http.MethodPost,
			path:   "/api/v1/cart/items",
			token:  token,
			body:   AddCartItemRequest{ProductID: "shirt", SizeID: "m"},
		}
		s.do(t, add)
		s.do(t, add)

		w, body := s.do(t, request{method: http.MethodPost, path: "/api/v1/checkout", token: token, body: validShipping()})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		orderID, _ := body["order_id"].(string)
		require.NotEmpty(t, orderID)

		order := s.backend.orders[orderID]
		require.NotNil(t, order)
		assert.True(t, decimal.NewFromInt(80).Equal(order.Total))
		assert.Equal(t, 3, s.backend.products["shirt"].Stock)
		assert.Empty(t, s.carts.Get(context.Background(), "user:u1").Items)

		w, body = s.do(t, request{method: http.MethodGet, path: "/api/v1/orders/" + orderID, token: token})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, models.OrderStatusProcessing, body["status"])

		other := s.token(t, "u2", auth.RoleCustomer)
		w, _ = s.do(t, request{method: http.MethodGet, path: "/api/v1/orders/" + orderID, token: other})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("empty cart", func(t *testing.T) {
		s := newTestServer(t)
		token := s.token(t, "u1", auth.RoleCustomer)

		w, body := s.do(t, request{method: http.MethodPost, path: "/api/v1/checkout", token: token, body: validShipping()})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, body["fields"], "items")
	})

	t.Run("missing shipping fields", func(t *testing.T) {
		s := newTestServer(t)
		token := s.token(t, "u1", auth.RoleCustomer)
		shipping := validShipping()
		shipping.Address.Zip = ""

		w, body := s.do(t, request{method: http.MethodPost, path: "/api/v1/checkout", token: token, body: shipping})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, body["fields"], "address.zip")
	})

	t.Run("insufficient stock", func(t *testing.T) {
		s := newTestServer(t)
		token := s.token(t, "u1", auth.RoleCustomer)
		add := request{
			method: http.MethodPost,
			path:   "/api/v1/cart/items",
			token:  token,
			body:   AddCartItemRequest{ProductID: "shirt", SizeID: "xl"},
		}
		s.do(t, add)
		s.do(t, add)

		w, body := s.do(t, request{method: http.MethodPost, path: "/api/v1/checkout", token: token, body: validShipping()})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "XL", body["size"])
		assert.Empty(t, s.backend.orders)
		assert.Len(t, s.carts.Get(context.Background(), "user:u1").Items, 1)
	})
}

func TestAdmin(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, "root", auth.RoleAdmin)
	customer := s.token(t, "u1", auth.RoleCustomer)

	t.Run("customers are forbidden", func(t *testing.T) {
		w, _ := s.do(t, request{method: http.MethodGet, path: "/api/v1/admin/dashboard", token: customer})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("dashboard", func(t *testing.T) {
		w, body := s.do(t, request{method: http.MethodGet, path: "/api/v1/admin/dashboard", token: admin})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(2), body["products"])
	})

	t.Run("create product reloads catalog", func(t *testing.T) {
		in := service.ProductInput{
			Name:      "Canvas Tote",
			Thumbnail: "https://cdn.example.com/tote.jpg",
			BasePrice: decimal.NewFromInt(25),
			Stock:     4,
		}
		w, body := s.do(t, request{method: http.MethodPost, path: "/api/v1/admin/products", token: admin, body: in})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		id, _ := body["id"].(string)
		w, _ = s.do(t, request{method: http.MethodGet, path: "/api/v1/products/" + id})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid product", func(t *testing.T) {
		in := service.ProductInput{Name: "Nothing", Thumbnail: "x"}
		w, body := s.do(t, request{method: http.MethodPost, path: "/api/v1/admin/products", token: admin, body: in})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, body["fields"], "base_price")
	})

	t.Run("delete unknown product", func(t *testing.T) {
		w, _ := s.do(t, request{method: http.MethodDelete, path: "/api/v1/admin/products/nope", token: admin})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid order status", func(t *testing.T) {
		s.backend.orders["o1"] = &models.Order{ID: "o1", UserID: "u1", Status: models.OrderStatusProcessing}

		w, _ := s.do(t, request{method: http.MethodPatch, path: "/api/v1/admin/orders/o1/status", token: admin, body: UpdateOrderStatusRequest{Status: "lost"}})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w, _ = s.do(t, request{method: http.MethodPatch, path: "/api/v1/admin/orders/o1/status", token: admin, body: UpdateOrderStatusRequest{Status: models.OrderStatusShipped}})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, models.OrderStatusShipped, s.backend.orders["o1"].Status)
	})

	t.Run("unknown order", func(t *testing.T) {
		w, _ := s.do(t, request{method: http.MethodPatch, path: "/api/v1/admin/orders/missing/status", token: admin, body: UpdateOrderStatusRequest{Status: models.OrderStatusShipped}})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestProfile(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "u1", auth.RoleCustomer)

	w, _ := s.do(t, request{method: http.MethodGet, path: "/api/v1/profile", token: token})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, request{method: http.MethodPost, path: "/api/v1/session", token: token})
	require.Equal(t, http.StatusOK, w.Code)

	w, body := s.do(t, request{method: http.MethodGet, path: "/api/v1/profile", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1@example.com", body["email"])

	in := service.ProfileInput{
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
		Phone: "555-0100",
		Address: service.AddressInput{
			Street: "1 Analytical Way",
			City:   "London",
			State:  "LDN",
			Zip:    "N1",
		},
	}
	w, body = s.do(t, request{method: http.MethodPut, path: "/api/v1/profile", token: token, body: in})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Ada Lovelace", body["name"])
	assert.Equal(t, "London", s.backend.users["u1"].Address.City)

	in.Email = "nope"
	w, body = s.do(t, request{method: http.MethodPut, path: "/api/v1/profile", token: token, body: in})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["fields"], "email")

	w, _ = s.do(t, request{method: http.MethodGet, path: "/api/v1/profile"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckoutPrefillFromProfile(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "u1", auth.RoleCustomer)

	w, body := s.do(t, request{method: http.MethodGet, path: "/api/v1/checkout/shipping", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	shipping, _ := body["shipping"].(map[string]interface{})
	assert.Equal(t, "u1@example.com", shipping["email"])
	assert.Empty(t, shipping["name"])

	profile := validShipping()
	s.backend.users["u1"] = models.User{
		ID:    "u1",
		Email: profile.Email,
		Name:  profile.Name,
		Phone: profile.Phone,
		Address: models.Address{
			Street: profile.Address.Street,
			City:   profile.Address.City,
			State:  profile.Address.State,
			Zip:    profile.Address.Zip,
		},
	}

	w, body = s.do(t, request{method: http.MethodGet, path: "/api/v1/checkout/shipping", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	shipping, _ = body["shipping"].(map[string]interface{})
	assert.Equal(t, profile.Name, shipping["name"])
	address, _ := shipping["address"].(map[string]interface{})
	assert.Equal(t, profile.Address.City, address["city"])

	s.do(t, request{
		method: http.MethodPost,
		path:   "/api/v1/cart/items",
		token:  token,
		body:   AddCartItemRequest{ProductID: "shirt", SizeID: "m"},
	})

	partial := checkout.Shipping{Name: "Grace Hopper"}
	w, body = s.do(t, request{method: http.MethodPost, path: "/api/v1/checkout", token: token, body: partial})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	orderID, _ := body["order_id"].(string)
	order := s.backend.orders[orderID]
	require.NotNil(t, order)
	assert.Equal(t, "Grace Hopper", order.Details.Name)
	assert.Equal(t, profile.Email, order.Details.Email)
	assert.Equal(t, profile.Address.Zip, order.Details.Address.Zip)
}
