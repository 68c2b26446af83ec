package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/bidshop/pkg/config"
	"github.com/example/bidshop/pkg/models"
	"github.com/example/bidshop/pkg/repository"
	"github.com/example/bidshop/pkg/service"
)

type testEnv struct {
	db      *gorm.DB
	gateway *Gateway
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, repository.Migrate(db))

	cfg := &config.Config{
		Server: config.ServerConfig{Name: "gateway-test", Host: "localhost", Port: 0},
		JWT:    config.JWTConfig{Secret: "test-secret", TTL: time.Hour},
		Pricing: config.PricingConfig{
			TaxRate:       0.0825,
			ProcessingFee: 4.99,
		},
		Auction: config.AuctionConfig{
			MinIncrement:         1.0,
			DefaultDurationHours: 72,
			MaxDurationHours:     720,
		},
	}

	log := zap.NewNop()
	users := repository.NewUserRepository(db)
	products := repository.NewProductRepository(db)
	orders := repository.NewOrderRepository(db)
	auctions := repository.NewAuctionRepository(db)
	reviews := repository.NewReviewRepository(db)
	tx := repository.NewTxRunner(db)

	gw := NewGateway(cfg, log,
		service.NewAuthService(users, cfg.JWT, log),
		service.NewCatalogService(products, reviews, nil, nil, log),
		service.NewOrderService(orders, products, tx, nil, cfg.Pricing, log),
		service.NewAuctionService(auctions, tx, nil, nil, cfg.Auction, log),
		service.NewReviewService(reviews, products, nil, nil, cfg.Review, log),
		nil,
	)
	gw.SetupRoutes()

	return &testEnv{db: db, gateway: gw}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.gateway.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// signup registers a user and returns a bearer token.
func (e *testEnv) signup(t *testing.T, name, email string, admin bool) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": name, "email": email, "password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	if admin {
		require.NoError(t, e.db.Model(&models.User{}).
			Where("email = ?", email).
			Update("admin", true).Error)
	}

	rec = e.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": email, "password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token, _ := decode(t, rec)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func (e *testEnv) createProduct(t *testing.T, adminToken string, price float64, stock int) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/v1/admin/products", adminToken, gin.H{
		"name": "Widget", "price": price, "stock": stock, "category": "tools",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id, _ := decode(t, rec)["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/orders", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := env.signup(t, "Alice", "alice@example.com", false)
	rec = env.do(t, http.MethodGet, "/api/v1/orders", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProfileEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := env.signup(t, "Alice", "alice@example.com", false)
	rec = env.do(t, http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "alice@example.com", body["email"])
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func TestAdminRequired(t *testing.T) {
	env := newTestEnv(t)
	userToken := env.signup(t, "Alice", "alice@example.com", false)
	adminToken := env.signup(t, "Root", "root@example.com", true)

	body := gin.H{"name": "Widget", "price": 9.99, "stock": 1}

	rec := env.do(t, http.MethodPost, "/api/v1/admin/products", userToken, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/admin/products", adminToken, body)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestEntityAuditLogs(t *testing.T) {
	env := newTestEnv(t)
	userToken := env.signup(t, "Alice", "alice@example.com", false)
	adminToken := env.signup(t, "Root", "root@example.com", true)

	rec := env.do(t, http.MethodGet, "/api/v1/admin/audit/some-entity", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Without an audit store the endpoint reports itself unavailable
	// instead of pretending the trail is empty.
	rec = env.do(t, http.MethodGet, "/api/v1/admin/audit/some-entity", adminToken, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestOrderFlow(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.signup(t, "Root", "root@example.com", true)
	userToken := env.signup(t, "Alice", "alice@example.com", false)
	productID := env.createProduct(t, adminToken, 19.99, 10)

	// Empty items fail validation.
	rec := env.do(t, http.MethodPost, "/api/v1/orders", userToken, gin.H{
		"items": []gin.H{}, "shipping_address": "1 Main St",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown product maps to 404.
	rec = env.do(t, http.MethodPost, "/api/v1/orders", userToken, gin.H{
		"items": []gin.H{
			{"product_id": "missing", "quantity": 1, "price_at_purchase": 19.99},
		},
		"shipping_address": "1 Main St",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/orders", userToken, gin.H{
		"items": []gin.H{
			{"product_id": productID, "quantity": 2, "price_at_purchase": 19.99},
		},
		"shipping_address": "1 Main St",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	orderID, _ := created["id"].(string)
	assert.Equal(t, "ORD-1", created["number"])

	// Ordering more than the remaining stock maps to 409.
	rec = env.do(t, http.MethodPost, "/api/v1/orders", userToken, gin.H{
		"items": []gin.H{
			{"product_id": productID, "quantity": 100, "price_at_purchase": 19.99},
		},
		"shipping_address": "1 Main St",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Another user cannot read the order.
	otherToken := env.signup(t, "Bob", "bob@example.com", false)
	rec = env.do(t, http.MethodGet, "/api/v1/orders/"+orderID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/orders/"+orderID, userToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Status moves forward only.
	rec = env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/admin/orders/%s/status", orderID),
		adminToken, gin.H{"status": "shipped"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/admin/orders/%s/status", orderID),
		adminToken, gin.H{"status": "processing"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuctionFlow(t *testing.T) {
	env := newTestEnv(t)
	sellerToken := env.signup(t, "Seller", "seller@example.com", false)
	bidderToken := env.signup(t, "Bidder", "bidder@example.com", false)

	rec := env.do(t, http.MethodPost, "/api/v1/auctions", sellerToken, gin.H{
		"title": "Vintage lamp", "starting_price": 45.0,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	auctionID, _ := decode(t, rec)["id"].(string)
	require.NotEmpty(t, auctionID)

	// Below starting price plus increment.
	rec = env.do(t, http.MethodPost, "/api/v1/auctions/"+auctionID+"/bids", bidderToken,
		gin.H{"amount": 45.5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Sellers cannot bid on their own auction.
	rec = env.do(t, http.MethodPost, "/api/v1/auctions/"+auctionID+"/bids", sellerToken,
		gin.H{"amount": 50.0})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/auctions/"+auctionID+"/bids", bidderToken,
		gin.H{"amount": 50.0})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/v1/auctions/missing/bids", bidderToken,
		gin.H{"amount": 50.0})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Anonymous detail read.
	rec = env.do(t, http.MethodGet, "/api/v1/auctions/"+auctionID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Only the seller cancels, and only once.
	rec = env.do(t, http.MethodPost, "/api/v1/auctions/"+auctionID+"/cancel", bidderToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/v1/auctions/"+auctionID+"/cancel", sellerToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/v1/auctions/"+auctionID+"/cancel", sellerToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestReviewFlow(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.signup(t, "Root", "root@example.com", true)
	userToken := env.signup(t, "Alice", "alice@example.com", false)
	productID := env.createProduct(t, adminToken, 9.99, 5)

	rec := env.do(t, http.MethodPost, "/api/v1/products/"+productID+"/reviews", userToken, gin.H{
		"rating": 6, "title": "Too good",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/products/"+productID+"/reviews", userToken, gin.H{
		"rating": 5, "title": "Great", "comment": "Does the job.",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reviewID, _ := decode(t, rec)["id"].(string)

	// Pending reviews stay off the public listing.
	rec = env.do(t, http.MethodGet, "/api/v1/products/"+productID+"/reviews", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode(t, rec)["total"])

	rec = env.do(t, http.MethodPut, "/api/v1/admin/reviews/"+reviewID+"/status",
		adminToken, gin.H{"status": "approved"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/products/"+productID+"/reviews", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, 5.0, body["rating"])

	rec = env.do(t, http.MethodGet, "/api/v1/products/"+productID+"/reviews/me", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["reviewed"])
}
