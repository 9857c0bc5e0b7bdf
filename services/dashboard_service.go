package services

import (
	"context"
	"math"
	"time"

	"food-ordering-api/access"
	"food-ordering-api/models"
	"food-ordering-api/repository"
	"food-ordering-api/statemachine"

	"go.uber.org/zap"
)

const (
	topItemsLimit       = 5
	topRestaurantsLimit = 5
	performanceDays     = 7
)

type Stats struct {
	Scope                string                       `json:"scope"`
	TotalOrders          int64                        `json:"total_orders"`
	TotalCustomers       int64                        `json:"total_customers"`
	TotalRevenue         float64                      `json:"total_revenue"`
	OngoingOrders        int64                        `json:"ongoing_orders"`
	TotalRestaurants     int64                        `json:"total_restaurants"`
	TotalStaff           int64                        `json:"total_staff"`
	TotalItemsSold       int64                        `json:"total_items_sold"`
	TotalDelivered       int64                        `json:"total_delivered"`
	AvailableForDelivery int64                        `json:"available_for_delivery"`
	AvgOrderValue        float64                      `json:"avg_order_value"`
	ByStatus             map[models.OrderStatus]int64 `json:"by_status"`
	TopSellingItems      []repository.TopItem         `json:"top_selling_items"`
}

// DayPerformance is one point of the daily performance series.
type DayPerformance struct {
	Date    string  `json:"date"`
	Day     string  `json:"day"`
	Orders  int64   `json:"orders"`
	Revenue float64 `json:"revenue"`
}

type RestaurantStats struct {
	models.Restaurant
	TotalOrders    int64   `json:"total_orders"`
	TotalRevenue   float64 `json:"total_revenue"`
	TotalCustomers int64   `json:"total_customers"`
	TotalStaff     int64   `json:"total_staff"`
}

// DashboardService computes the read-only projections behind the admin and
// staff dashboards. Every figure goes through the same tenant scope as the
// order listings.
type DashboardService struct {
	stats       *repository.StatsRepository
	users       *repository.UserRepository
	restaurants *repository.RestaurantRepository
	now         func() time.Time
	log         *zap.Logger
}

func NewDashboardService(stats *repository.StatsRepository, users *repository.UserRepository, restaurants *repository.RestaurantRepository, log *zap.Logger) *DashboardService {
	return &DashboardService{
		stats:       stats,
		users:       users,
		restaurants: restaurants,
		now:         time.Now,
		log:         log.Named("dashboard"),
	}
}

func (s *DashboardService) Stats(ctx context.Context, caller access.Caller, requested *uint) (*Stats, error) {
	d := access.Authorize(caller, requested, access.ActionStats)
	if !d.Allowed {
		return nil, d.Reason
	}
	scope := d.Scope
	out := &Stats{Scope: scope.String()}

	var err error
	if out.TotalOrders, err = s.stats.CountOrders(ctx, scope); err != nil {
		return nil, err
	}
	if scope.All() {
		out.TotalCustomers, err = s.users.CountByRole(ctx, models.RoleCustomer, scope)
	} else {
		out.TotalCustomers, err = s.stats.DistinctCustomers(ctx, scope)
	}
	if err != nil {
		return nil, err
	}
	if out.TotalRevenue, err = s.stats.Revenue(ctx, scope, time.Time{}, time.Time{}); err != nil {
		return nil, err
	}
	if out.OngoingOrders, err = s.stats.CountOrders(ctx, scope, ongoing...); err != nil {
		return nil, err
	}
	if out.TotalRestaurants, err = s.restaurants.Count(ctx); err != nil {
		return nil, err
	}
	if out.TotalStaff, err = s.users.CountByRole(ctx, models.RoleStaff, scope); err != nil {
		return nil, err
	}
	if out.TotalItemsSold, err = s.stats.ItemsSold(ctx, scope); err != nil {
		return nil, err
	}
	if out.TotalDelivered, err = s.stats.CountOrders(ctx, scope, models.StatusDelivered); err != nil {
		return nil, err
	}
	if out.AvailableForDelivery, err = s.stats.CountClaimable(ctx, scope, statemachine.ClaimableStatuses); err != nil {
		return nil, err
	}
	if out.ByStatus, err = s.stats.CountByStatus(ctx, scope); err != nil {
		return nil, err
	}
	if out.TopSellingItems, err = s.stats.TopItems(ctx, scope, topItemsLimit); err != nil {
		return nil, err
	}
	if out.TotalOrders > 0 {
		out.AvgOrderValue = math.Round(out.TotalRevenue/float64(out.TotalOrders)*100) / 100
	}
	return out, nil
}

// ongoing are the statuses counted as open work on the dashboard.
var ongoing = append([]models.OrderStatus{models.StatusPending}, statemachine.InFlightStatuses...)

// Performance returns order counts and revenue for each of the last seven
// days, oldest first, today included.
func (s *DashboardService) Performance(ctx context.Context, caller access.Caller, requested *uint) ([]DayPerformance, error) {
	d := access.Authorize(caller, requested, access.ActionStats)
	if !d.Allowed {
		return nil, d.Reason
	}
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	series := make([]DayPerformance, 0, performanceDays)
	for i := performanceDays - 1; i >= 0; i-- {
		from := today.AddDate(0, 0, -i)
		to := from.AddDate(0, 0, 1)
		count, err := s.stats.CountCreated(ctx, d.Scope, from, to)
		if err != nil {
			return nil, err
		}
		revenue, err := s.stats.Revenue(ctx, d.Scope, from, to)
		if err != nil {
			return nil, err
		}
		series = append(series, DayPerformance{
			Date:    from.Format(time.DateOnly),
			Day:     from.Format("Mon"),
			Orders:  count,
			Revenue: revenue,
		})
	}
	return series, nil
}

func (s *DashboardService) TopRestaurants(ctx context.Context, caller access.Caller) ([]repository.TopRestaurant, error) {
	if d := access.Authorize(caller, nil, access.ActionTopRestaurants); !d.Allowed {
		return nil, d.Reason
	}
	return s.stats.TopRestaurants(ctx, topRestaurantsLimit)
}

// RestaurantsWithStats lists every restaurant with its headline figures.
func (s *DashboardService) RestaurantsWithStats(ctx context.Context, caller access.Caller) ([]RestaurantStats, error) {
	if d := access.Authorize(caller, nil, access.ActionTenantManage); !d.Allowed {
		return nil, d.Reason
	}
	rests, err := s.restaurants.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RestaurantStats, 0, len(rests))
	for _, r := range rests {
		scope := access.Tenant(r.ID)
		row := RestaurantStats{Restaurant: r}
		if row.TotalOrders, err = s.stats.CountOrders(ctx, scope); err != nil {
			return nil, err
		}
		if row.TotalRevenue, err = s.stats.Revenue(ctx, scope, time.Time{}, time.Time{}); err != nil {
			return nil, err
		}
		if row.TotalCustomers, err = s.stats.DistinctCustomers(ctx, scope); err != nil {
			return nil, err
		}
		if row.TotalStaff, err = s.users.CountByRole(ctx, models.RoleStaff, scope); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	s.log.Debug("restaurant stats computed", zap.Int("restaurants", len(out)))
	return out, nil
}
