package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"food-ordering-api/config"
	"food-ordering-api/handlers"
	"food-ordering-api/middleware"
	"food-ordering-api/repository"
	"food-ordering-api/routes"
	"food-ordering-api/services"
	"food-ordering-api/upload"
	"food-ordering-api/ws"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details"`
}

type app struct {
	t        *testing.T
	router   *gin.Engine
	accounts *services.AccountService
}

func newApp(t *testing.T, headerAuth bool) *app {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, config.Migrate(db))

	log := zap.NewNop()
	creds := services.BcryptVerifier{Cost: bcrypt.MinCost}
	users := repository.NewUserRepository(db)
	hub := ws.NewHub(log)
	go hub.Run()
	t.Cleanup(hub.Close)

	dir := t.TempDir()
	uploads, err := upload.NewLocalStore(dir, "")
	require.NoError(t, err)

	accounts := services.NewAccountService(users, creds, log)
	h := &handlers.Handler{
		Accounts:  accounts,
		Tenants:   services.NewTenantService(db, creds, log),
		Catalog:   services.NewCatalogService(repository.NewFoodRepository(db), log),
		Orders:    services.NewOrderService(db, 5, nil, log),
		Messages:  services.NewMessageService(repository.NewMessageRepository(db), repository.NewOrderRepository(db), users, hub, log),
		Dashboard: services.NewDashboardService(repository.NewStatsRepository(db), users, repository.NewRestaurantRepository(db), log),
		Uploads:   uploads,
		Hub:       hub,
		Log:       log,
	}

	var auth middleware.Authenticator
	if headerAuth {
		auth = middleware.NewHeaderAuthenticator(accounts)
	} else {
		jwtAuth := middleware.NewJWTAuthenticator("test-secret", time.Hour, accounts)
		h.Tokens = jwtAuth
		auth = jwtAuth
	}

	return &app{
		t:        t,
		accounts: accounts,
		router:   routes.NewRouter(h, routes.Options{Auth: auth, UploadDir: dir, CORSOrigins: []string{"*"}, Log: log}),
	}
}

// do sends a JSON request. auth is a bearer token, or "id:<n>" for header
// authentication.
func (a *app) do(method, path, auth string, body any) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	a.authorize(req, auth)
	return a.serve(req)
}

func (a *app) authorize(req *http.Request, auth string) {
	switch {
	case auth == "":
	case strings.HasPrefix(auth, "id:"):
		req.Header.Set(middleware.UserIDHeader, strings.TrimPrefix(auth, "id:"))
	default:
		req.Header.Set("Authorization", "Bearer "+auth)
	}
}

func (a *app) serve(req *http.Request) (int, envelope) {
	a.t.Helper()
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

type authData struct {
	Token string `json:"token"`
	User  struct {
		ID           uint   `json:"id"`
		Role         string `json:"role"`
		RestaurantID *uint  `json:"restaurant_id"`
	} `json:"user"`
}

func (a *app) login(email, password string) authData {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/users/login", "", gin.H{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, code, env.Error)
	return decode[authData](a.t, env.Data)
}

type orderData struct {
	ID              uint   `json:"id"`
	Status          string `json:"status"`
	RestaurantID    uint   `json:"restaurant_id"`
	DeliveryID      *uint  `json:"delivery_id"`
	StaffID         *uint  `json:"staff_id"`
	RejectionReason string `json:"rejection_reason"`
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	a := newApp(t, false)

	_, err := a.accounts.SeedSuperAdmin(context.Background(), "root", "root@example.com", "rootpass")
	require.NoError(t, err)
	super := a.login("root@example.com", "rootpass")

	// Tenant with its first admin.
	code, env := a.do(http.MethodPost, "/api/admin/restaurants", super.Token, gin.H{
		"name": "Xamar Kitchen", "address": "Hodan", "phone": "+252610000000",
		"admin": gin.H{"email": "boss@xamar.so", "password": "bosspass"},
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	created := decode[struct {
		Restaurant struct{ ID uint } `json:"restaurant"`
		Admin      struct{ Username string } `json:"admin"`
	}](t, env.Data)
	rid := created.Restaurant.ID
	assert.Equal(t, "xamarkitchen_admin", created.Admin.Username)

	admin := a.login("boss@xamar.so", "bosspass")
	require.NotNil(t, admin.User.RestaurantID)
	assert.Equal(t, rid, *admin.User.RestaurantID)

	code, env = a.do(http.MethodPost, "/api/admin/staff", admin.Token, gin.H{
		"username": "rider", "email": "rider@xamar.so", "password": "riderpass", "role": "delivery",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	rider := a.login("rider@xamar.so", "riderpass")

	code, env = a.do(http.MethodPost, "/api/foods", admin.Token, gin.H{
		"name": "Bariis", "category": "Main", "price": 6.5, "quantity": 2,
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	food := decode[struct{ ID uint }](t, env.Data)

	// Customer side.
	code, env = a.do(http.MethodPost, "/api/users/register", "", gin.H{
		"username": "amina", "email": "amina@example.com", "password": "aminapass",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	customer := decode[authData](t, env.Data)
	require.NotEmpty(t, customer.Token)
	assert.Equal(t, "customer", customer.User.Role)

	code, env = a.do(http.MethodGet, fmt.Sprintf("/api/foods?restaurantId=%d", rid), "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]json.RawMessage](t, env.Data), 1)

	code, env = a.do(http.MethodPost, "/api/orders", customer.Token, gin.H{
		"items": []gin.H{{"food_id": food.ID, "quantity": 3}},
	})
	require.Equal(t, http.StatusConflict, code)
	details := decode[struct {
		FoodID    uint `json:"food_id"`
		Available int  `json:"available"`
		Requested int  `json:"requested"`
	}](t, env.Details)
	assert.Equal(t, food.ID, details.FoodID)
	assert.Equal(t, 2, details.Available)
	assert.Equal(t, 3, details.Requested)

	code, env = a.do(http.MethodPost, "/api/orders", customer.Token, gin.H{
		"items": []gin.H{{"food_id": food.ID, "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	order := decode[orderData](t, env.Data)
	assert.Equal(t, "Pending", order.Status)
	assert.Equal(t, rid, order.RestaurantID)

	code, _ = a.do(http.MethodPatch, fmt.Sprintf("/api/staff/orders/%d/accept", order.ID), customer.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = a.do(http.MethodPatch, fmt.Sprintf("/api/staff/orders/%d/accept", order.ID), rider.Token, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	order = decode[orderData](t, env.Data)
	assert.Equal(t, "Handed to Delivery", order.Status)
	require.NotNil(t, order.DeliveryID)
	assert.Equal(t, rider.User.ID, *order.DeliveryID)

	code, _ = a.do(http.MethodPatch, fmt.Sprintf("/api/staff/orders/%d/status", order.ID), rider.Token, gin.H{"status": "Preparing"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = a.do(http.MethodPatch, fmt.Sprintf("/api/staff/orders/%d/status", order.ID), rider.Token, gin.H{"status": "On the way"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = a.do(http.MethodPatch, fmt.Sprintf("/api/staff/orders/%d/status", order.ID), rider.Token, gin.H{"status": "Delivered"})
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, "Delivered", decode[orderData](t, env.Data).Status)

	code, env = a.do(http.MethodPatch, fmt.Sprintf("/api/orders/%d/rating", order.ID), customer.Token, gin.H{"rating": 5, "review": "hot"})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = a.do(http.MethodGet, "/api/admin/orders", admin.Token, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	listing := decode[struct {
		Count   int            `json:"count"`
		Summary map[string]int `json:"order_summary"`
	}](t, env.Data)
	assert.Equal(t, 1, listing.Count)
	assert.Equal(t, 1, listing.Summary["Delivered"])

	code, env = a.do(http.MethodGet, "/api/admin/stats", admin.Token, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	stats := decode[struct {
		TotalOrders  int64   `json:"total_orders"`
		TotalRevenue float64 `json:"total_revenue"`
	}](t, env.Data)
	assert.EqualValues(t, 1, stats.TotalOrders)
	assert.InDelta(t, 2*6.5+5, stats.TotalRevenue, 1e-9)

	code, env = a.do(http.MethodPost, "/api/messages", customer.Token, gin.H{"order_id": order.ID, "content": "Thanks!", "type": "feedback"})
	require.Equal(t, http.StatusCreated, code, env.Error)

	code, env = a.do(http.MethodGet, fmt.Sprintf("/api/messages/restaurant/%d", rid), admin.Token, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Len(t, decode[[]json.RawMessage](t, env.Data), 1)
}

func TestTenantIsolationOverHTTP(t *testing.T) {
	a := newApp(t, false)
	_, err := a.accounts.SeedSuperAdmin(context.Background(), "root", "root@example.com", "rootpass")
	require.NoError(t, err)
	super := a.login("root@example.com", "rootpass")

	for _, name := range []string{"Alpha", "Beta"} {
		code, env := a.do(http.MethodPost, "/api/admin/restaurants", super.Token, gin.H{
			"name": name, "address": "Mogadishu", "phone": "+252",
			"admin": gin.H{"email": strings.ToLower(name) + "@example.com", "password": "secret1"},
		})
		require.Equal(t, http.StatusCreated, code, env.Error)
	}
	alpha := a.login("alpha@example.com", "secret1")
	beta := a.login("beta@example.com", "secret1")

	code, env := a.do(http.MethodPost, "/api/foods", alpha.Token, gin.H{"name": "Suqaar", "category": "Main", "price": 4, "quantity": 5})
	require.Equal(t, http.StatusCreated, code, env.Error)
	food := decode[struct{ ID uint }](t, env.Data)

	code, _ = a.do(http.MethodPut, fmt.Sprintf("/api/foods/%d", food.ID), beta.Token, gin.H{"price": 1})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = a.do(http.MethodDelete, "/api/foods/99999", beta.Token, nil)
	assert.Equal(t, http.StatusNotFound, code)

	// Beta asking for Alpha's figures gets its own.
	code, env = a.do(http.MethodGet, fmt.Sprintf("/api/admin/stats?restaurantId=%d", *alpha.User.RestaurantID), beta.Token, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, fmt.Sprintf("restaurant:%d", *beta.User.RestaurantID), decode[struct{ Scope string }](t, env.Data).Scope)

	code, _ = a.do(http.MethodPost, "/api/admin/restaurants", alpha.Token, gin.H{"name": "Gamma", "address": "x", "phone": "y"})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = a.do(http.MethodPost, "/api/admin/restaurants", super.Token, gin.H{
		"name": "Gamma", "address": "x", "phone": "y",
		"admin": gin.H{"email": "alpha@example.com", "password": "secret1"},
	})
	assert.Equal(t, http.StatusConflict, code, env.Error)
	code, env = a.do(http.MethodGet, "/api/admin/restaurants", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]json.RawMessage](t, env.Data), 2)
}

func TestAuthentication(t *testing.T) {
	a := newApp(t, false)

	code, env := a.do(http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)

	code, _ = a.do(http.MethodGet, "/api/users/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = a.do(http.MethodPost, "/api/users/login", "", gin.H{"email": "ghost@example.com", "password": "whatever"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = a.do(http.MethodPost, "/api/users/register", "", gin.H{"username": "x", "email": "bad"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = a.do(http.MethodPost, "/api/users/register", "", gin.H{"username": "cawo", "email": "cawo@example.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, code, env.Error)
	me := decode[authData](t, env.Data)

	code, env = a.do(http.MethodGet, "/api/users/me", me.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	code, _ = a.do(http.MethodPost, "/api/users/register", "", gin.H{"username": "cawo2", "email": "cawo@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = a.do(http.MethodGet, "/api/orders/abc", me.Token, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.do(http.MethodGet, "/api/orders/12345", me.Token, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = a.do(http.MethodGet, "/api/admin/stats", me.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestHeaderAuthentication(t *testing.T) {
	a := newApp(t, true)

	code, env := a.do(http.MethodPost, "/api/users/register", "", gin.H{"username": "cawo", "email": "cawo@example.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, code, env.Error)
	me := decode[authData](t, env.Data)
	assert.Empty(t, me.Token)

	code, _ = a.do(http.MethodGet, "/api/users/me", fmt.Sprintf("id:%d", me.User.ID), nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = a.do(http.MethodGet, "/api/users/me", "id:999", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = a.do(http.MethodGet, "/api/users/me", "id:abc", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestUpload(t *testing.T) {
	a := newApp(t, true)
	code, env := a.do(http.MethodPost, "/api/users/register", "", gin.H{"username": "cawo", "email": "cawo@example.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, code, env.Error)
	me := decode[authData](t, env.Data)
	auth := fmt.Sprintf("id:%d", me.User.ID)

	send := func(filename string) (int, envelope) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG fake image"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/users/upload", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		a.authorize(req, auth)
		return a.serve(req)
	}

	code, env = send("dish.png")
	require.Equal(t, http.StatusCreated, code, env.Error)
	url := decode[struct{ URL string }](t, env.Data).URL
	assert.True(t, strings.HasPrefix(url, "/uploads/"), url)
	assert.True(t, strings.HasSuffix(url, ".png"), url)

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	code, _ = send("notes.txt")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPublicEndpoints(t *testing.T) {
	a := newApp(t, false)

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	code, env := a.do(http.MethodGet, "/api/state-machine", "", nil)
	require.Equal(t, http.StatusOK, code)
	info := decode[struct {
		Transitions    []json.RawMessage `json:"transitions"`
		TerminalStates []string          `json:"terminal_states"`
	}](t, env.Data)
	assert.NotEmpty(t, info.Transitions)
	assert.ElementsMatch(t, []string{"Delivered", "Rejected", "Cancelled"}, info.TerminalStates)

	code, _ = a.do(http.MethodGet, "/api/foods/77", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = a.do(http.MethodGet, "/api/foods?restaurantId=x", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
