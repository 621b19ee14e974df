package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"campus-cart/internal/config"
	"campus-cart/internal/db"
	"campus-cart/internal/domain"
	apihttp "campus-cart/internal/http"
	"campus-cart/internal/realtime"
	"campus-cart/internal/repository"
	"campus-cart/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type stores struct {
	conversations repository.ConversationRepository
	users         repository.UserDirectory
	products      repository.ProductCatalog
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	var st stores
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		if err := db.EnsureSchema(ctx, pool); err != nil {
			logger.Fatal("db schema", zap.Error(err))
		}
		st = pgStores(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
		st = memoryStores(cfg.DevSeed, logger)
	}

	var limiter service.SendRateLimiter = service.NewMemorySendRateLimiter(cfg.RateWindow(), cfg.MessageRateMax)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory rate limiter", zap.Error(err))
		} else {
			limiter = service.NewRedisSendRateLimiter(redisClient, cfg.RateWindow(), cfg.MessageRateMax)
		}
		cancel()
	}

	jwtSvc := service.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTTL())
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	registry := realtime.NewRegistry()
	pushServer := realtime.NewServer(registry, jwtSvc, logger, realtime.ServerOptions{
		AllowedOrigins: cfg.AllowedOrigins(),
		SendBuffer:     cfg.WSSendBuffer,
	})

	messageSvc := service.NewMessageService(logger, st.conversations, st.users, st.products, registry, service.MessageServiceOptions{
		Limiter:       limiter,
		MaxBodyLength: cfg.MessageMaxLength,
	})
	convHandler := apihttp.NewConversationHandler(logger, messageSvc)
	router := apihttp.NewRouter(logger, convHandler, pushServer, jwtSvc, registry)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	// Shutdown no espera conexiones hijacked.
	pushServer.CloseAll()
	logger.Info("server stopped")
}

func pgStores(pool *pgxpool.Pool) stores {
	return stores{
		conversations: repository.NewPgConversationRepository(pool),
		users:         repository.NewPgUserRepository(pool),
		products:      repository.NewPgProductRepository(pool),
	}
}

func memoryStores(seed bool, logger *zap.Logger) stores {
	users := repository.NewMemoryUserDirectory()
	products := repository.NewMemoryProductCatalog()
	if seed {
		users.Put("seller-1", "seller@campus.edu")
		users.Put("buyer-1", "buyer@campus.edu")
		products.Put(domain.Product{ID: "product-1", SellerID: "seller-1", Name: "Desk lamp"})
		logger.Info("demo data seeded",
			zap.Strings("users", []string{"seller-1", "buyer-1"}),
			zap.String("product", "product-1"),
		)
	}
	return stores{
		conversations: repository.NewMemoryConversationRepository(),
		users:         users,
		products:      products,
	}
}
