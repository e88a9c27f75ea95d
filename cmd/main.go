package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"tpf-ecosystem/internal/blockchain"
	"tpf-ecosystem/internal/config"
	"tpf-ecosystem/internal/handler"
	"tpf-ecosystem/internal/level"
	"tpf-ecosystem/internal/metrics"
	"tpf-ecosystem/internal/models"
	"tpf-ecosystem/internal/repository"
	"tpf-ecosystem/internal/scheduler"
	"tpf-ecosystem/internal/service"
	"tpf-ecosystem/internal/store"
	"tpf-ecosystem/internal/swap"
	"tpf-ecosystem/pkg/logger"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ledgers 三类账本的存储实现
type ledgers struct {
	claims   service.ClaimRepository
	checkIns service.CheckInRepository
	payments service.PaymentRepository
	close    func()
}

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	ledger, err := openLedgers(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer ledger.close()

	levels, err := level.FromConfig(cfg.Level)
	if err != nil {
		logger.Fatal("Invalid level table:", err)
	}
	rates := swap.DefaultRateTable()
	if len(cfg.Swap.Rates) > 0 {
		if rates, err = swap.ParseRateTable(cfg.Swap.Rates); err != nil {
			logger.Fatal("Invalid swap rates:", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.MustRegister(registry)

	resolver := blockchain.NewResolver(cfg.Chain.RPCEndpoints, blockchain.Dial(&cfg.Chain))
	airdropSvc := service.NewAirdropService(resolver, ledger.claims, cfg.Airdrop, cfg.Chain.HasSigner())
	checkInSvc := service.NewCheckInService(ledger.checkIns, levels)
	paymentSvc := service.NewPaymentService(ledger.payments)
	promotionSvc := service.NewPromotionService(newPromotionStore(cfg.Promotion), cfg.Promotion)

	wordStore, closeRedis := newStormStore(cfg.Redis, cfg.Storm)
	defer closeRedis()
	stormSvc := service.NewStormService(wordStore, cfg.Storm)

	logger.WithFields(map[string]interface{}{
		"rpc_endpoints": len(cfg.Chain.RPCEndpoints),
		"signer":        cfg.Chain.HasSigner(),
		"database":      cfg.Database.Driver,
		"redis":         cfg.Redis.Addr != "",
	}).Info("Services initialized")

	sweeper := scheduler.NewSweepScheduler(cfg.Scheduler.SweepCron, map[string]scheduler.Sweeper{
		"promotions":  promotionSvc,
		"storm_words": stormSvc,
	})
	if err := sweeper.Start(); err != nil {
		logger.Fatal("Failed to start scheduler:", err)
	}
	defer sweeper.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Chain.WatchEnabled() {
		watcher := blockchain.NewClaimWatcher(&cfg.Chain, blockchain.DialLogs, airdropSvc.ObserveClaim)
		go watcher.Start(ctx)
		defer watcher.Stop()
	} else {
		logger.Info("Claim watcher disabled: token or contract address not configured")
	}

	router := handler.NewRouter(handler.Services{
		Airdrop:    airdropSvc,
		CheckIn:    checkInSvc,
		Storm:      stormSvc,
		Promotions: promotionSvc,
		Payments:   paymentSvc,
		Portal:     service.NewDevPortalClient(cfg.WorldID, nil),
		Sessions:   service.NewSessionService(cfg.Auth),
		Rates:      rates,
		CookieName: cfg.Auth.CookieName,
		Metrics:    promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Server starting on port ", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error:", err)
	}

	logger.Info("Server stopped")
}

// openLedgers driver 为 memory 时使用进程内账本，否则连接数据库并迁移表结构
func openLedgers(cfg config.DatabaseConfig) (*ledgers, error) {
	if cfg.Driver == "memory" {
		logger.Warn("Using in-memory ledgers; claim and check-in history is lost on restart")
		return &ledgers{
			claims:   repository.NewMemoryClaimRepository(),
			checkIns: repository.NewMemoryCheckInRepository(),
			payments: repository.NewMemoryPaymentRepository(),
			close:    func() {},
		}, nil
	}

	db, err := initDatabase(cfg)
	if err != nil {
		return nil, err
	}
	if err := repository.AutoMigrate(db); err != nil {
		closeDatabase(db)
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return &ledgers{
		claims:   repository.NewClaimRepository(db),
		checkIns: repository.NewCheckInRepository(db),
		payments: repository.NewPaymentRepository(db),
		close:    func() { closeDatabase(db) },
	}, nil
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		dialector = mysql.Open(cfg.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	return db, nil
}

func closeDatabase(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to get database instance:", err)
		return
	}
	sqlDB.Close()
}

func newPromotionStore(cfg config.PromotionConfig) store.Mutable[models.Promotion] {
	return store.NewMemory(service.PromotionStoreOptions(cfg))
}

// newStormStore 配置了 Redis 时广播词在多个实例间共享
func newStormStore(redisCfg config.RedisConfig, stormCfg config.StormConfig) (store.Store[models.StormWord], func()) {
	opts := service.StormStoreOptions(stormCfg)
	if redisCfg.Addr == "" {
		return store.NewMemory(opts), func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:       redisCfg.Addr,
		Password:   redisCfg.Password,
		DB:         redisCfg.DB,
		MaxRetries: 3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.WithFields(map[string]interface{}{
			"addr": redisCfg.Addr,
		}).WithError(err).Warn("Redis connection failed, storm words kept in memory")
		rdb.Close()
		return store.NewMemory(opts), func() {}
	}

	key := redisCfg.Prefix + ":storm:words"
	return store.NewRedisList(rdb, key, opts, stormCfg.TTL), func() { rdb.Close() }
}
