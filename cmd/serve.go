package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"food-ordering-api/cache"
	"food-ordering-api/config"
	"food-ordering-api/handlers"
	"food-ordering-api/middleware"
	"food-ordering-api/repository"
	"food-ordering-api/routes"
	"food-ordering-api/services"
	"food-ordering-api/upload"
	"food-ordering-api/ws"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()
		return serve(cmd.Context(), cfg, log)
	},
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	gin.SetMode(cfg.GinMode)

	db, err := config.OpenDB(cfg, log)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}

	hub := ws.NewHub(log)
	go hub.Run()
	defer hub.Close()

	h, auth, cleanup, err := build(ctx, cfg, db, hub, log)
	if err != nil {
		return err
	}
	defer cleanup()

	router := routes.NewRouter(h, routes.Options{
		Auth:        auth,
		UploadDir:   cfg.UploadDir,
		CORSOrigins: cfg.CORSOrigins,
		Log:         log,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("auth_mode", cfg.AuthMode))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// build wires repositories, services and the optional redis cache into a
// handler.
func build(ctx context.Context, cfg *config.Config, db *gorm.DB, hub *ws.Hub, log *zap.Logger) (*handlers.Handler, middleware.Authenticator, func(), error) {
	creds := services.BcryptVerifier{}
	users := repository.NewUserRepository(db)
	foodRepo := repository.NewFoodRepository(db)

	var (
		foods   services.FoodStore     = foodRepo
		stock   services.StockListener
		cleanup = func() {}
	)
	if cfg.RedisURL != "" {
		rdb, err := cache.ConnectRedis(ctx, cache.Options{Addr: cfg.RedisURL, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			// The catalog works without the cache.
			log.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
		} else {
			cached := cache.NewCachedFoodRepository(foodRepo, rdb, cfg.CacheTTL, log)
			foods, stock = cached, cached
			cleanup = func() { rdb.Close() }
			log.Info("catalog cache enabled", zap.String("redis", cfg.RedisURL))
		}
	}

	uploads, err := upload.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		return nil, nil, nil, err
	}

	accounts := services.NewAccountService(users, creds, log)
	h := &handlers.Handler{
		Accounts:  accounts,
		Tenants:   services.NewTenantService(db, creds, log),
		Catalog:   services.NewCatalogService(foods, log),
		Orders:    services.NewOrderService(db, cfg.DeliveryFee, stock, log),
		Messages:  services.NewMessageService(repository.NewMessageRepository(db), repository.NewOrderRepository(db), users, hub, log),
		Dashboard: services.NewDashboardService(repository.NewStatsRepository(db), users, repository.NewRestaurantRepository(db), log),
		Uploads:   uploads,
		Hub:       hub,
		Log:       log,
	}

	var auth middleware.Authenticator
	switch cfg.AuthMode {
	case config.AuthModeHeader:
		log.Warn("header authentication enabled; callers are trusted by account id")
		auth = middleware.NewHeaderAuthenticator(accounts)
	default:
		jwtAuth := middleware.NewJWTAuthenticator(cfg.JWTSecret, cfg.JWTTTL, accounts)
		h.Tokens = jwtAuth
		auth = jwtAuth
	}
	return h, auth, cleanup, nil
}
