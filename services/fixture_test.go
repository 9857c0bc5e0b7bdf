package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"food-ordering-api/access"
	"food-ordering-api/config"
	"food-ordering-api/models"
	"food-ordering-api/repository"
	"food-ordering-api/services"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testDeliveryFee = 5

// recorder is a Publisher and StockListener that remembers what it saw.
type recorder struct {
	mu       sync.Mutex
	messages []*models.Message
	stock    [][]uint
}

func (r *recorder) Publish(m *models.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
}

func (r *recorder) StockChanged(_ context.Context, _ uint, ids []uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stock = append(r.stock, ids)
}

func (r *recorder) published() []*models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.Message(nil), r.messages...)
}

type fixture struct {
	ctx context.Context
	db  *gorm.DB
	rec *recorder

	accounts  *services.AccountService
	tenants   *services.TenantService
	catalog   *services.CatalogService
	orders    *services.OrderService
	messages  *services.MessageService
	dashboard *services.DashboardService

	restA, restB *models.Restaurant

	super               *models.User
	customer, customer2 *models.User
	adminA, staffA      *models.User
	deliveryA, courierA *models.User
	adminB, staffB      *models.User
	deliveryB           *models.User

	pizza, rice, burger *models.Food
}

func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	log := zap.NewNop()
	creds := services.BcryptVerifier{Cost: bcrypt.MinCost}
	users := repository.NewUserRepository(db)
	rec := &recorder{}

	f := &fixture{
		ctx:       context.Background(),
		db:        db,
		rec:       rec,
		accounts:  services.NewAccountService(users, creds, log),
		tenants:   services.NewTenantService(db, creds, log),
		catalog:   services.NewCatalogService(repository.NewFoodRepository(db), log),
		orders:    services.NewOrderService(db, testDeliveryFee, rec, log),
		messages:  services.NewMessageService(repository.NewMessageRepository(db), repository.NewOrderRepository(db), users, rec, log),
		dashboard: services.NewDashboardService(repository.NewStatsRepository(db), users, repository.NewRestaurantRepository(db), log),
	}

	f.restA = f.restaurant(t, "Xamar Kitchen")
	f.restB = f.restaurant(t, "Hodan Grill")

	f.super = f.account(t, "root", models.RoleSuperAdmin, nil)
	f.customer = f.account(t, "amina", models.RoleCustomer, nil)
	f.customer2 = f.account(t, "bashir", models.RoleCustomer, nil)
	f.adminA = f.account(t, "admin_a", models.RoleAdmin, &f.restA.ID)
	f.staffA = f.account(t, "staff_a", models.RoleStaff, &f.restA.ID)
	f.deliveryA = f.account(t, "rider_a", models.RoleDelivery, &f.restA.ID)
	f.courierA = f.account(t, "courier_a", models.RoleDelivery, &f.restA.ID)
	f.adminB = f.account(t, "admin_b", models.RoleAdmin, &f.restB.ID)
	f.staffB = f.account(t, "staff_b", models.RoleStaff, &f.restB.ID)
	f.deliveryB = f.account(t, "rider_b", models.RoleDelivery, &f.restB.ID)

	f.pizza = f.food(t, f.restA.ID, "Pizza", 10, 10)
	f.rice = f.food(t, f.restA.ID, "Rice", 3, 2)
	f.burger = f.food(t, f.restB.ID, "Burger", 8, 5)
	return f
}

func (f *fixture) restaurant(t *testing.T, name string) *models.Restaurant {
	t.Helper()
	r, err := models.NewRestaurant(name, "Mogadishu", "+252610000000", "", "")
	require.NoError(t, err)
	require.NoError(t, repository.NewRestaurantRepository(f.db).Create(f.ctx, r))
	return r
}

func (f *fixture) account(t *testing.T, username string, role models.UserRole, restaurantID *uint) *models.User {
	t.Helper()
	var rid *uint
	if restaurantID != nil {
		id := *restaurantID
		rid = &id
	}
	u, err := models.NewAccount(username, fmt.Sprintf("%s@example.com", username), "not-a-real-hash", role, rid)
	require.NoError(t, err)
	require.NoError(t, repository.NewUserRepository(f.db).Create(f.ctx, u))
	return u
}

func (f *fixture) food(t *testing.T, restaurantID uint, name string, price float64, qty int) *models.Food {
	t.Helper()
	food, err := models.NewFood(restaurantID, name, "", "Main", price, qty)
	require.NoError(t, err)
	require.NoError(t, repository.NewFoodRepository(f.db).Create(f.ctx, food))
	return food
}

func (f *fixture) stock(t *testing.T, id uint) int {
	t.Helper()
	food, err := repository.NewFoodRepository(f.db).GetByID(f.ctx, id)
	require.NoError(t, err)
	return food.Quantity
}

// place orders qty of food as the fixture customer.
func (f *fixture) place(t *testing.T, food *models.Food, qty int) *models.Order {
	t.Helper()
	o, err := f.orders.Place(f.ctx, as(f.customer), services.PlaceOrderRequest{
		Items: []services.OrderItemRequest{{FoodID: food.ID, Quantity: qty}},
	})
	require.NoError(t, err)
	return o
}

func as(u *models.User) access.Caller {
	return access.Caller{AccountID: u.ID, Role: u.Role, RestaurantID: u.RestaurantID}
}

func uintPtr(v uint) *uint { return &v }
